package services

import "github.com/prometheus/client_golang/prometheus"

var (
	tokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "phone_confirmation_tokens_issued_total",
			Help: "The total number of confirmation tokens issued",
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_confirmation_notifications_total",
			Help: "Confirmation messages handed to the dispatcher, by result",
		},
		[]string{"result"},
	)

	confirmAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phone_confirmation_attempts_total",
			Help: "Confirmation attempts, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(tokensIssuedTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(confirmAttemptsTotal)
}
