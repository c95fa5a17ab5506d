// Package sms delivers confirmation messages over SMS.
package sms

// SMSConfig holds SMS delivery configuration
type SMSConfig struct {
	Provider            string // "twilio" or "log"
	TwilioAccountSID    string
	TwilioAuthToken     string
	FromNumber          string
	MessagingServiceSID string
	CompanyName         string
	MessageTemplate     string
}

const (
	ProviderTwilio = "twilio"
	ProviderLog    = "log"
)
