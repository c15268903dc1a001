package auth

// PendingState is the caller intent that must survive a round trip through
// an external provider. It is never stored server-side.
type PendingState struct {
	TargetClientID    string
	TargetRedirectURL string
	Nonce             string
}

// HasClient reports whether the pending state names a client exchange.
func (p PendingState) HasClient() bool {
	return p.TargetClientID != "" || p.TargetRedirectURL != ""
}
