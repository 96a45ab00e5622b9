package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/hikari-ai/chat-assistant/internal/model"
)

// Slot is a single named location holding the serialized history list.
// It is read once at startup and rewritten wholesale on every mutation.
type Slot interface {
	Load() ([]*model.ChatHistory, error)
	Save(histories []*model.ChatHistory) error
}

// FileSlot persists the history list as one JSON blob on disk. Writes go
// through a temp file and rename so a crashed write never leaves a partial
// blob. Two processes sharing a path race with last-write-wins semantics.
type FileSlot struct {
	path string
}

// NewFileSlot creates a file-backed slot at the given path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// DefaultSlotPath returns the per-user location of the history slot.
func DefaultSlotPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve user config dir")
	}
	return filepath.Join(dir, "chat-assistant", "histories.json"), nil
}

// Load reads the whole blob. A missing file yields an empty history list.
func (s *FileSlot) Load() ([]*model.ChatHistory, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read history slot", goerr.V("path", s.path))
	}

	var histories []*model.ChatHistory
	if err := json.Unmarshal(data, &histories); err != nil {
		return nil, goerr.Wrap(err, "history slot is corrupt", goerr.V("path", s.path))
	}
	return histories, nil
}

// Save rewrites the whole blob.
func (s *FileSlot) Save(histories []*model.ChatHistory) error {
	if histories == nil {
		histories = []*model.ChatHistory{}
	}

	data, err := json.MarshalIndent(histories, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal histories")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return goerr.Wrap(err, "failed to create slot directory", goerr.V("path", s.path))
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write history slot", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return goerr.Wrap(err, "failed to replace history slot", goerr.V("path", s.path))
	}
	return nil
}
