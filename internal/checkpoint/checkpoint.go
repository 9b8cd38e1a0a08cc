// Package checkpoint provides a per-fold handle on a single transient model
// snapshot file.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrReleased is returned when a released handle is used.
	ErrReleased = errors.New("checkpoint: handle released")
	// ErrEmpty is returned by Load before anything was saved.
	ErrEmpty = errors.New("checkpoint: nothing saved")
)

// Handle owns one checkpoint file from Acquire until Release.
type Handle struct {
	path     string
	saved    bool
	released bool
}

// Acquire reserves a fresh checkpoint file in dir (the OS temp dir when
// empty). name is used as the file name prefix.
func Acquire(dir, name string) (*Handle, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	f, err := os.CreateTemp(dir, name+"-*.json")
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return &Handle{path: f.Name()}, nil
}

// Path returns the checkpoint file location.
func (h *Handle) Path() string {
	return h.path
}

// Saved reports whether Save has succeeded at least once.
func (h *Handle) Saved() bool {
	return h.saved
}

// Save serializes v to JSON, replacing any earlier snapshot.
func (h *Handle) Save(v any) error {
	if h.released {
		return ErrReleased
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint: %w", err)
	}
	h.saved = true
	return nil
}

// Load deserializes the last snapshot into v.
func (h *Handle) Load(v any) error {
	if h.released {
		return ErrReleased
	}
	if !h.saved {
		return ErrEmpty
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("checkpoint: %s: %w", filepath.Base(h.path), err)
	}
	return nil
}

// Release removes the checkpoint file. It is safe to call more than once.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	h.saved = false
	for _, p := range []string{h.path, h.path + ".tmp"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	return nil
}
