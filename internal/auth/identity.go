package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider       Provider // e.g. ProviderGoogle, ProviderFacebook
	ProviderUserID string   // provider-scoped unique user identifier (sub)
	Email          string   // email returned by provider, may be empty
	EmailVerified  bool     // whether provider asserts email ownership
	DisplayName    string
	AvatarURL      string
}
