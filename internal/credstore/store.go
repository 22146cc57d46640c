package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"crosspost/internal/model"
)

// Store persists one credential per platform. The store does not check
// expiry; staleness is detected downstream when a platform rejects the
// credential during use.
type Store interface {
	// Get returns the stored credential and whether one exists.
	Get(ctx context.Context, p model.Platform) (model.Credential, bool, error)
	// Put overwrites the platform's credential. A credential whose
	// shape does not match the platform is rejected.
	Put(ctx context.Context, p model.Platform, cred model.Credential) error
	// Clear removes the stored entry entirely (logout).
	Clear(ctx context.Context, p model.Platform) error
}

func checkShape(p model.Platform, cred model.Credential) error {
	if !cred.Matches(p) {
		return fmt.Errorf("credential kind %q does not match platform %q", cred.Kind, p)
	}
	return nil
}

// fileStore keeps one JSON file per platform under a directory,
// <dir>/<platform>.json, platform names already lower-case.
type fileStore struct {
	dir string
}

// NewFile returns a file-backed store rooted at dir.
func NewFile(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(p model.Platform) string {
	return filepath.Join(s.dir, string(p)+".json")
}

func (s *fileStore) Get(_ context.Context, p model.Platform) (model.Credential, bool, error) {
	b, err := os.ReadFile(s.path(p))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Credential{}, false, nil
		}
		return model.Credential{}, false, err
	}
	var cred model.Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return model.Credential{}, false, fmt.Errorf("decode credential for %s: %w", p, err)
	}
	return cred, true, nil
}

func (s *fileStore) Put(_ context.Context, p model.Platform, cred model.Credential) error {
	if err := checkShape(p, cred); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(p), b, 0o600)
}

func (s *fileStore) Clear(_ context.Context, p model.Platform) error {
	err := os.Remove(s.path(p))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
