package auth

import "fmt"

// Provider names one of the closed set of login methods.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderKeycloak Provider = "keycloak"
)

// FederatedProviders lists every provider that authenticates through an
// external redirect, in display order.
var FederatedProviders = []Provider{ProviderGoogle, ProviderFacebook, ProviderKeycloak}

// ParseProvider maps a route or config name onto the closed provider set.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(name); p {
	case ProviderLocal, ProviderGoogle, ProviderFacebook, ProviderKeycloak:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Federated reports whether p authenticates via an external redirect.
func (p Provider) Federated() bool {
	switch p {
	case ProviderGoogle, ProviderFacebook, ProviderKeycloak:
		return true
	default:
		return false
	}
}

func (p Provider) String() string {
	return string(p)
}
