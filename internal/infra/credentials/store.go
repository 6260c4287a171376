package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	ProviderGemini = "gemini"
)

// Store reads provider tokens from a secrets directory, one file per
// provider named "<provider>_api_key" (the layout of mounted container
// secrets). A missing directory or file yields an empty token.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: strings.TrimSpace(dir)}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// SetGeminiAPIKey writes the Gemini key, replacing any previous one.
func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	return s.SetToken(ctx, ProviderGemini, key)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.dir == "" {
		return "", nil
	}
	path, err := s.tokenPath(provider)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: read %s token: %w", provider, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// SetToken stores token for provider with owner-only permissions. The file
// is written next to its final path and renamed so readers never see a
// partial key.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.dir == "" {
		return errors.New("credentials: secrets directory is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("credentials: token is empty")
	}
	path, err := s.tokenPath(provider)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("credentials: create secrets dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("credentials: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("credentials: write token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("credentials: chmod token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credentials: close token: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("credentials: store %s token: %w", provider, err)
	}
	return nil
}

func (s *Store) tokenPath(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || strings.ContainsAny(provider, `/\.`) {
		return "", fmt.Errorf("credentials: invalid provider %q", provider)
	}
	return filepath.Join(s.dir, provider+"_api_key"), nil
}
