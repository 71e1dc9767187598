package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BloggingApp/megablog/internal/model"
	"gopkg.in/yaml.v3"
)

type fileState struct {
	Token string      `yaml:"token"`
	User  *model.User `yaml:"user,omitempty"`
}

// Load restores a session saved by Save. A missing file yields an empty session.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var state fileState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}

	s := New(state.Token)
	s.user = state.User
	return s, nil
}

func Save(path string, s *Session) error {
	state := fileState{Token: s.Token(), User: s.User()}
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
