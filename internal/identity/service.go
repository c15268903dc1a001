package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"identity-broker/internal/auth"
	"identity-broker/internal/logger"
	"identity-broker/internal/utils"
)

const (
	maxUsernameLen   = 64
	federatedRetries = 4
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrLinkRequired means a federated login matched an existing account by
	// email but the link policy refused to attach it automatically.
	ErrLinkRequired = fmt.Errorf("account link required: %w", auth.ErrAlreadyExists)
)

// LinkPolicy decides whether a federated identity may be attached to an
// existing principal that has the same email.
type LinkPolicy int

const (
	LinkByEmail LinkPolicy = iota
	LinkVerifiedEmail
	LinkNever
)

func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "email":
		return LinkByEmail, nil
	case "verified_email":
		return LinkVerifiedEmail, nil
	case "never":
		return LinkNever, nil
	default:
		return 0, fmt.Errorf("unknown link policy %q", s)
	}
}

func (p LinkPolicy) allows(profile *auth.Identity) bool {
	switch p {
	case LinkByEmail:
		return true
	case LinkVerifiedEmail:
		return profile.EmailVerified
	default:
		return false
	}
}

type Service struct {
	store  Store
	hasher *hasher
	policy LinkPolicy
	now    func() time.Time
}

type Option func(*serviceOptions)

type serviceOptions struct {
	policy LinkPolicy
	cost   int
	now    func() time.Time
}

func WithLinkPolicy(p LinkPolicy) Option {
	return func(o *serviceOptions) { o.policy = p }
}

// WithHashCost sets the bcrypt cost. Out of range values fall back to the default.
func WithHashCost(cost int) Option {
	return func(o *serviceOptions) { o.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	o := serviceOptions{policy: LinkByEmail, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:  store,
		hasher: newHasher(o.cost),
		policy: o.policy,
		now:    o.now,
	}
}

// FindByCredentials authenticates a local login. Unknown email, missing
// password and wrong password all return auth.ErrInvalidCredentials.
func (s *Service) FindByCredentials(ctx context.Context, email, password string) (*Principal, error) {
	rec, err := s.store.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("find by email: %w", err)
		}
		// hide whether user exists or not
		s.hasher.Verify("", password)
		return nil, auth.ErrInvalidCredentials
	}

	if !s.hasher.Verify(rec.PasswordHash, password) {
		return nil, auth.ErrInvalidCredentials
	}
	return rec.Principal.clone(), nil
}

// Register creates a local principal. A taken email or username returns
// auth.ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", ErrInvalidInput, maxUsernameLen)
	}
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Principal: Principal{
			ID:                  uuid.NewString(),
			Username:            username,
			Email:               email,
			FederatedIdentities: map[auth.Provider]string{},
			CreatedAt:           s.timestamp(),
		},
		PasswordHash: hash,
	}
	if err := s.create(ctx, rec); err != nil {
		return nil, err
	}

	logger.Info("principal registered", map[string]any{"user_id": rec.ID, "method": auth.ProviderLocal.String()})
	return rec.Principal.clone(), nil
}

// FindOrCreateFederated maps a provider profile to a principal: first by
// (provider, subject), then by email subject to the link policy, and
// finally by creating a principal with no local password.
func (s *Service) FindOrCreateFederated(ctx context.Context, profile *auth.Identity) (*Principal, error) {
	if profile == nil || !profile.Provider.Federated() || profile.ProviderUserID == "" {
		return nil, fmt.Errorf("%w: incomplete provider profile", auth.ErrAuthFailed)
	}
	email := normalizeEmail(profile.Email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: provider returned no usable email", auth.ErrAuthFailed)
	}

	// A lost uniqueness race re-runs the lookups so concurrent first
	// callbacks converge on the same principal.
	for attempt := 0; attempt < federatedRetries; attempt++ {
		rec, err := s.store.ByFederatedIdentity(ctx, profile.Provider, profile.ProviderUserID)
		if err == nil {
			return rec.Principal.clone(), nil
		}
		if !errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("find by identity: %w", err)
		}

		rec, err = s.store.ByEmail(ctx, email)
		switch {
		case err == nil:
			p, err := s.link(ctx, rec, profile)
			if errors.Is(err, errLinkRace) {
				continue
			}
			return p, err
		case !errors.Is(err, auth.ErrNotFound):
			return nil, fmt.Errorf("find by email: %w", err)
		}

		username, err := federatedUsername(profile, email, attempt)
		if err != nil {
			return nil, err
		}
		rec = &Record{
			Principal: Principal{
				ID:                  uuid.NewString(),
				Username:            username,
				Email:               email,
				DisplayImageURL:     strings.TrimSpace(profile.AvatarURL),
				FederatedIdentities: map[auth.Provider]string{profile.Provider: profile.ProviderUserID},
				CreatedAt:           s.timestamp(),
			},
		}
		err = s.create(ctx, rec)
		if errors.Is(err, auth.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Info("principal registered", map[string]any{"user_id": rec.ID, "method": profile.Provider.String()})
		return rec.Principal.clone(), nil
	}

	return nil, fmt.Errorf("federated principal for %s: too many conflicting writes", profile.Provider)
}

var errLinkRace = errors.New("identity link raced")

func (s *Service) link(ctx context.Context, rec *Record, profile *auth.Identity) (*Principal, error) {
	if !s.policy.allows(profile) {
		logger.Warn("federated email matches existing account, link refused", map[string]any{
			"user_id":  rec.ID,
			"provider": profile.Provider.String(),
		})
		return nil, ErrLinkRequired
	}
	if existing, ok := rec.FederatedIdentities[profile.Provider]; ok && existing != profile.ProviderUserID {
		// a different account at the same provider already owns this principal
		return nil, ErrLinkRequired
	}

	err := s.store.LinkIdentity(ctx, rec.ID, profile.Provider, profile.ProviderUserID)
	if errors.Is(err, auth.ErrAlreadyExists) {
		return nil, errLinkRace
	}
	if err != nil {
		return nil, fmt.Errorf("link identity: %w", err)
	}

	logger.Info("federated identity linked", map[string]any{"user_id": rec.ID, "provider": profile.Provider.String()})

	p := rec.Principal.clone()
	if p.FederatedIdentities == nil {
		p.FederatedIdentities = map[auth.Provider]string{}
	}
	p.FederatedIdentities[profile.Provider] = profile.ProviderUserID
	return p, nil
}

// Get returns the principal with id or auth.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Principal, error) {
	rec, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}
	return rec.Principal.clone(), nil
}

func (s *Service) create(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	return s.store.Create(ctx, rec)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func federatedUsername(profile *auth.Identity, email string, attempt int) (string, error) {
	base := strings.TrimSpace(profile.DisplayName)
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}
	if base == "" {
		base = "user"
	}
	if r := []rune(base); len(r) > maxUsernameLen-5 {
		base = string(r[:maxUsernameLen-5])
	}
	if attempt == 0 {
		return base, nil
	}

	suffix, err := utils.RandomHex(2)
	if err != nil {
		return "", err
	}
	return base + "-" + suffix, nil
}
