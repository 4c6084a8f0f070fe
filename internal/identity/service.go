// Package identity signs users in through OAuth providers, issues session
// tokens and announces session changes to subscribers.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/id"
	"promptarchitect/internal/infra"
)

const stateTTL = 10 * time.Minute

// ErrUnknownProvider is returned for providers that are not configured.
var ErrUnknownProvider = errors.New("identity: unknown provider")

// StateStore keeps OAuth state values between redirect and callback.
type StateStore interface {
	SaveState(state, deviceID string, ttl time.Duration) error
	ConsumeState(state string) (string, bool, error)
}

// Revocations records signed-out token ids.
type Revocations interface {
	Revoke(jti string, expiresAt time.Time) error
	IsRevoked(jti string) (bool, error)
}

// Service is the identity provider facade used by the HTTP layer.
type Service struct {
	tokens    *TokenManager
	users     domain.UserRepository
	states    StateStore
	revoked   Revocations
	broker    *Broker
	providers map[domain.AuthProvider]Provider
	logger    infra.Logger
}

func NewService(tokens *TokenManager, users domain.UserRepository, states StateStore, revoked Revocations, broker *Broker, logger infra.Logger, providers ...Provider) *Service {
	s := &Service{
		tokens:    tokens,
		users:     users,
		states:    states,
		revoked:   revoked,
		broker:    broker,
		providers: make(map[domain.AuthProvider]Provider, len(providers)),
		logger:    logger,
	}
	for _, p := range providers {
		if p != nil {
			s.providers[p.Name()] = p
		}
	}
	return s
}

// Broker exposes the session-changed event stream.
func (s *Service) Broker() *Broker {
	return s.broker
}

func (s *Service) provider(name string) (Provider, error) {
	ap, ok := domain.ParseAuthProvider(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return nil, ErrUnknownProvider
	}
	p, ok := s.providers[ap]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// SignInURL starts a redirect sign-in for deviceID.
func (s *Service) SignInURL(provider, deviceID string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	state, err := id.Generate("st")
	if err != nil {
		return "", err
	}
	if err := s.states.SaveState(state, deviceID, stateTTL); err != nil {
		return "", err
	}
	return p.AuthURL(state), nil
}

// Complete finishes a sign-in: it checks state, exchanges the grant, upserts
// the user, issues a token and publishes the new session for the device that
// started the flow.
func (s *Service) Complete(ctx context.Context, provider, state, grant string) (string, *domain.Session, string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", nil, "", err
	}
	deviceID, ok, err := s.states.ConsumeState(state)
	if err != nil {
		return "", nil, "", err
	}
	if !ok {
		return "", nil, "", fmt.Errorf("%w: unknown or expired sign-in state", domain.ErrAuthRequired)
	}
	if strings.TrimSpace(grant) == "" {
		return "", nil, "", fmt.Errorf("%w: missing grant", domain.ErrValidation)
	}

	ext, err := p.Exchange(ctx, grant)
	if err != nil {
		return "", nil, "", err
	}
	user, err := s.users.UpsertExternal(ctx, ext)
	if err != nil {
		return "", nil, "", fmt.Errorf("%w: upsert user: %v", domain.ErrRemote, err)
	}
	token, session, err := s.tokens.Issue(*user, deviceID)
	if err != nil {
		return "", nil, "", err
	}

	s.logger.Info().Str("provider", string(p.Name())).Str("user_id", user.ID).Str("device_id", deviceID).Msg("identity: signed in")
	s.broker.Publish(Event{DeviceID: deviceID, Session: session})
	return token, session, deviceID, nil
}

// Current returns the session carried by token. An empty token is no session.
func (s *Service) Current(token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(session.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: session signed out", domain.ErrAuthRequired)
	}
	return session, nil
}

// SignOut revokes token and clears the session of the device it was issued
// to. A token that does not parse changes nothing. A valid token presented
// from another device is revoked but leaves deviceID alone.
func (s *Service) SignOut(deviceID, token string) error {
	session, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.Debug().Err(err).Str("device_id", deviceID).Msg("identity: sign-out without a valid token")
		return nil
	}
	if err := s.revoked.Revoke(session.TokenID, session.ExpiresAt); err != nil {
		return err
	}
	if session.DeviceID != deviceID {
		s.logger.Warn().Str("device_id", deviceID).Str("token_device_id", session.DeviceID).
			Msg("identity: sign-out token belongs to another device")
		return nil
	}
	s.broker.Publish(Event{DeviceID: deviceID})
	return nil
}
