// Package credentials resolves external API keys, preferring the environment
// and falling back to tokens persisted in the database.
package credentials

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
)

const ProviderOpenAI = "openai"

// RowQuerier is the narrow database contract the store needs.
type RowQuerier interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

type Store struct {
	db RowQuerier
}

// NewStore creates a credential store. db may be nil, in which case only the
// environment is consulted.
func NewStore(db RowQuerier) *Store {
	return &Store{db: db}
}

// OpenAIAPIKey returns the configured OpenAI key or the empty string when none
// is available anywhere.
func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return key, nil
	}
	return s.Token(ctx, ProviderOpenAI)
}

// Token loads a stored integration token for the given provider. A missing row
// is not an error; the caller decides whether an empty key is fatal.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}
	row := s.db.QueryRow(ctx,
		`SELECT token FROM integration_tokens WHERE provider = $1;`, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}
