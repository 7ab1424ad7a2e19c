// Package tokenstore persists the token pair in a single JSON file, the
// client-side stand-in for the browser's durable storage slots.
package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	apperrors "agentdash/internal/errors"
	"agentdash/session"
)

var _ session.Store = (*FileStore)(nil)

// FileStore keeps both token slots in one 0600 file. Writes go through a
// temp file and rename, so a crash never leaves a half-written pair.
type FileStore struct {
	path string
}

type storedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// New creates a file store at path. The parent directory is created lazily
// on the first write.
func New(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[tokenstore.New] path is required")
	}
	return &FileStore{path: path}, nil
}

// Get returns the named slot, or "" when the file or slot is absent.
func (fs *FileStore) Get(slot string) (string, error) {
	tokens, err := fs.read()
	if err != nil {
		return "", err
	}
	switch slot {
	case session.SlotAccessToken:
		return tokens.AccessToken, nil
	case session.SlotRefreshToken:
		return tokens.RefreshToken, nil
	}
	return "", errors.Wrapf(apperrors.ErrNotFound, "[FileStore.Get] unknown slot %q", slot)
}

// SetPair replaces both slots in one atomic file write.
func (fs *FileStore) SetPair(accessToken, refreshToken string) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.SetPair] creating store directory")
	}

	payload, err := json.Marshal(storedTokens{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return errors.Wrap(err, "[FileStore.SetPair] encoding tokens")
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.SetPair] writing temp file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "[FileStore.SetPair] replacing store file")
	}
	return nil
}

// Clear removes both slots. Clearing an absent store succeeds.
func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] removing store file")
	}
	return nil
}

func (fs *FileStore) read() (storedTokens, error) {
	var tokens storedTokens
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return tokens, nil
	}
	if err != nil {
		return tokens, apperrors.Wrapf(apperrors.ErrStoreUnavailable, "[FileStore.read] %s", err)
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return tokens, apperrors.Wrapf(apperrors.ErrStoreCorrupt, "[FileStore.read] %s", err)
	}
	return tokens, nil
}
