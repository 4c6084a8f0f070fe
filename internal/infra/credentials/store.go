// Package credentials reads provider API keys persisted in integration_tokens.
// The database value is a fallback for keys not supplied through the environment.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"promptarchitect/internal/infra"
	"promptarchitect/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// ErrEmptyToken rejects blank tokens on write.
var ErrEmptyToken = errors.New("credentials: token is required")

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GeminiAPIKey returns the stored Gemini key, or "" when none was saved.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	var token string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectProviderToken, provider).Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string, props map[string]any) error {
	return s.SetToken(ctx, ProviderGemini, key, props)
}

// SetToken upserts the token for provider. props is stored as jsonb.
func (s *Store) SetToken(ctx context.Context, provider, token string, props map[string]any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertProviderToken, strings.TrimSpace(provider), token, raw)
	return err
}
