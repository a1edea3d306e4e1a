package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type stubQuerier struct {
	token string
	err   error
}

func (s *stubQuerier) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestOpenAIAPIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", " sk-env ")
	store := NewStore(&stubQuerier{token: "sk-db"})
	key, err := store.OpenAIAPIKey(context.Background())
	if err != nil {
		t.Fatalf("OpenAIAPIKey error: %v", err)
	}
	if key != "sk-env" {
		t.Fatalf("expected env key to win, got %q", key)
	}
}

func TestOpenAIAPIKeyFromStore(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	store := NewStore(&stubQuerier{token: " sk-db "})
	key, err := store.OpenAIAPIKey(context.Background())
	if err != nil {
		t.Fatalf("OpenAIAPIKey error: %v", err)
	}
	if key != "sk-db" {
		t.Fatalf("expected stored key, got %q", key)
	}
}

func TestTokenMissingRow(t *testing.T) {
	store := NewStore(&stubQuerier{err: pgx.ErrNoRows})
	key, err := store.Token(context.Background(), ProviderOpenAI)
	if err != nil {
		t.Fatalf("missing row should not error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestTokenNilStore(t *testing.T) {
	store := NewStore(nil)
	key, err := store.Token(context.Background(), ProviderOpenAI)
	if err != nil || key != "" {
		t.Fatalf("nil db should yield empty key, got %q, %v", key, err)
	}
}
