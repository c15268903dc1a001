package identity

import (
	"errors"
	"maps"
	"slices"
	"time"

	"identity-broker/internal/auth"
)

// Principal is a user as seen outside this package. It never carries the
// credential hash.
type Principal struct {
	ID                  string
	Username            string
	Email               string
	DisplayImageURL     string
	FederatedIdentities map[auth.Provider]string
	CreatedAt           time.Time
}

// PublicProfile is the presentation view of a principal.
type PublicProfile struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	DisplayImageURL string    `json:"displayImageUrl,omitempty"`
	Providers       []string  `json:"providers"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (p *Principal) Public() PublicProfile {
	providers := make([]string, 0, len(p.FederatedIdentities))
	for k := range p.FederatedIdentities {
		providers = append(providers, k.String())
	}
	slices.Sort(providers)

	return PublicProfile{
		ID:              p.ID,
		Username:        p.Username,
		Email:           p.Email,
		DisplayImageURL: p.DisplayImageURL,
		Providers:       providers,
		CreatedAt:       p.CreatedAt,
	}
}

func (p *Principal) clone() *Principal {
	c := *p
	c.FederatedIdentities = maps.Clone(p.FederatedIdentities)
	return &c
}

// Record is the stored form of a principal. An empty PasswordHash means the
// principal has no local credential.
type Record struct {
	Principal
	PasswordHash string
}

var errNoLoginMethod = errors.New("principal needs a password or a federated identity")

// validate enforces that a password-less principal is reachable by federation.
func (r *Record) validate() error {
	if r.PasswordHash == "" && len(r.FederatedIdentities) == 0 {
		return errNoLoginMethod
	}
	return nil
}
