package identity

// RequestState carries the transient, never-persisted switches of a single request or
// operation. Create one per request and pass the same value to every confirmation call
// made on behalf of that request; a nil *RequestState behaves like a fresh one.
type RequestState struct {
	bypassPostponeOnce    bool
	reconfirmationPending bool
	suppressNotification  bool
	rawToken              string
}

// NewRequestState returns an empty request state.
func NewRequestState() *RequestState {
	return &RequestState{}
}

// SkipConfirmationNotification suppresses any confirmation message for this request.
func (s *RequestState) SkipConfirmationNotification() {
	s.suppressNotification = true
}

// SkipReconfirmationPostponeOnce applies the next phone change immediately.
func (s *RequestState) SkipReconfirmationPostponeOnce() {
	s.bypassPostponeOnce = true
}

// IsReconfirmationPending reports whether a phone change was deferred and its
// notification has not been dispatched yet.
func (s *RequestState) IsReconfirmationPending() bool {
	return s != nil && s.reconfirmationPending
}

// NotificationSuppressed reports whether SkipConfirmationNotification was called.
func (s *RequestState) NotificationSuppressed() bool {
	return s != nil && s.suppressNotification
}

// BypassPostpone reports whether the next phone change skips reconfirmation.
func (s *RequestState) BypassPostpone() bool {
	return s != nil && s.bypassPostponeOnce
}

// RawToken is the plaintext of the token issued during this request, if any.
func (s *RequestState) RawToken() string {
	if s == nil {
		return ""
	}
	return s.rawToken
}

// ConsumeBypass returns the bypass flag and resets it.
func (s *RequestState) ConsumeBypass() bool {
	bypass := s.bypassPostponeOnce
	s.bypassPostponeOnce = false
	return bypass
}

// MarkReconfirmationPending flags that a phone change has just been deferred.
func (s *RequestState) MarkReconfirmationPending() {
	s.reconfirmationPending = true
}

// ClearReconfirmationPending resets the pending flag.
func (s *RequestState) ClearReconfirmationPending() {
	s.reconfirmationPending = false
}

// CacheRawToken remembers the plaintext of a freshly issued token.
func (s *RequestState) CacheRawToken(token string) {
	s.rawToken = token
}
