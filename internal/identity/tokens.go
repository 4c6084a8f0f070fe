package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/id"
)

// TokenManager issues and validates HS256 session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager. secret should be at least 32 bytes.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Provider   string `json:"prv"`
	ExternalID string `json:"ext,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Picture    string `json:"picture,omitempty"`
	DeviceID   string `json:"dev,omitempty"`
}

// Issue signs a token for u on deviceID and returns it with the session it
// encodes.
func (m *TokenManager) Issue(u domain.User, deviceID string) (string, *domain.Session, error) {
	jti, err := id.Generate("ses")
	if err != nil {
		return "", nil, err
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Provider:   string(u.Provider),
		ExternalID: u.ExternalID,
		Name:       u.Name,
		Email:      u.Email,
		Picture:    u.AvatarURL,
		DeviceID:   deviceID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, &domain.Session{User: u, TokenID: jti, ExpiresAt: exp.Truncate(time.Second), DeviceID: deviceID}, nil
}

// Parse validates raw and rebuilds its session. Every failure wraps
// domain.ErrAuthRequired.
func (m *TokenManager) Parse(raw string) (*domain.Session, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: token is empty", domain.ErrAuthRequired)
	}
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthRequired, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrAuthRequired)
	}
	return &domain.Session{
		User: domain.User{
			ID:         claims.Subject,
			Provider:   domain.AuthProvider(claims.Provider),
			ExternalID: claims.ExternalID,
			Name:       claims.Name,
			Email:      claims.Email,
			AvatarURL:  claims.Picture,
		},
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		DeviceID:  claims.DeviceID,
	}, nil
}
