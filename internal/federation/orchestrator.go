package federation

import (
	"context"
	"crypto/subtle"
	"fmt"

	"golang.org/x/oauth2"

	"identity-broker/internal/auth"
	"identity-broker/internal/auth/provider"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/utils"
)

const nonceBytes = 24

type Providers interface {
	Get(kind auth.Provider) (provider.OAuthProvider, error)
}

type Identities interface {
	FindOrCreateFederated(ctx context.Context, profile *auth.Identity) (*identity.Principal, error)
}

// AuthorizationRequest is everything needed to send a browser to a provider.
// Nonce and CodeVerifier must be kept by the browser, never by the server.
type AuthorizationRequest struct {
	Provider     auth.Provider
	URL          string
	State        string
	Nonce        string
	CodeVerifier string
}

// Orchestrator runs the two legs of a federated login without any
// server-side state between them.
type Orchestrator struct {
	providers  Providers
	identities Identities
	states     *StateCodec
	bind       bool
}

// NewOrchestrator builds an orchestrator. With bindBrowser set, Complete
// requires the nonce the browser was given in leg one.
func NewOrchestrator(providers Providers, identities Identities, states *StateCodec, bindBrowser bool) *Orchestrator {
	return &Orchestrator{
		providers:  providers,
		identities: identities,
		states:     states,
		bind:       bindBrowser,
	}
}

// Begin builds the provider redirect for kind, sealing pending into the state.
func (o *Orchestrator) Begin(kind auth.Provider, pending auth.PendingState) (*AuthorizationRequest, error) {
	p, err := o.providers.Get(kind)
	if err != nil {
		return nil, err
	}

	if pending.Nonce == "" {
		pending.Nonce, err = utils.RandomString(nonceBytes)
		if err != nil {
			return nil, err
		}
	}

	state, err := o.states.Encode(kind, pending)
	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()

	return &AuthorizationRequest{
		Provider:     kind,
		URL:          p.AuthCodeURL(state, oauth2.S256ChallengeFromVerifier(verifier)),
		State:        state,
		Nonce:        pending.Nonce,
		CodeVerifier: verifier,
	}, nil
}

// Exchange redeems the provider's authorization code. Every provider-side
// failure wraps auth.ErrAuthFailed.
func (o *Orchestrator) Exchange(ctx context.Context, kind auth.Provider, code, verifier string) (*auth.Identity, error) {
	p, err := o.providers.Get(kind)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", auth.ErrAuthFailed)
	}
	if verifier == "" {
		return nil, fmt.Errorf("%w: missing pkce verifier", auth.ErrAuthFailed)
	}

	profile, err := p.ExchangeCode(ctx, code, verifier)
	if err != nil {
		logger.Warn("provider code exchange failed", map[string]any{
			"provider": kind.String(),
			"error":    err,
		})
		return nil, fmt.Errorf("%w: %v", auth.ErrAuthFailed, err)
	}
	if profile == nil || profile.Provider != kind {
		return nil, fmt.Errorf("%w: provider returned a foreign profile", auth.ErrAuthFailed)
	}
	return profile, nil
}

// Complete resolves the principal for profile, then reconstructs the
// pending state from rawState.
//
// A broken continuation returns the principal together with an error
// wrapping auth.ErrStateInvalid, so the caller can still sign the user in
// without any client exchange.
func (o *Orchestrator) Complete(
	ctx context.Context,
	kind auth.Provider,
	profile *auth.Identity,
	rawState string,
	boundNonce string,
) (*identity.Principal, *auth.PendingState, error) {
	if profile == nil || profile.Provider != kind {
		return nil, nil, fmt.Errorf("%w: profile does not belong to %s", auth.ErrAuthFailed, kind)
	}

	principal, err := o.identities.FindOrCreateFederated(ctx, profile)
	if err != nil {
		return nil, nil, err
	}

	pending, err := o.states.Decode(kind, rawState)
	if err != nil {
		logger.Warn("federated state rejected", map[string]any{"provider": kind.String(), "error": err})
		return principal, nil, err
	}

	if o.bind && subtle.ConstantTimeCompare([]byte(boundNonce), []byte(pending.Nonce)) != 1 {
		logger.Warn("federated state not bound to this browser", map[string]any{"provider": kind.String()})
		return principal, nil, fmt.Errorf("%w: nonce mismatch", auth.ErrStateInvalid)
	}

	return principal, &pending, nil
}
