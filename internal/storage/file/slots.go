// Package file implements storage slots as one file per slot inside a
// directory.
package file

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/persist"
)

var _ persist.Slots = (*Slots)(nil)

// Slots keeps slot documents under dir. Writes go to a temporary file that
// is renamed over the slot, so readers never see a partial document.
type Slots struct {
	dir string
}

// NewSlots creates dir if needed and returns Slots rooted at it.
func NewSlots(dir string) (*Slots, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create slot dir %s", dir)
	}
	return &Slots{dir: dir}, nil
}

func (s *Slots) path(name string) string {
	return filepath.Join(s.dir, url.QueryEscape(name)+".json")
}

// Read returns the slot document or persist.ErrSlotEmpty.
func (s *Slots) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, persist.ErrSlotEmpty
	}
	if err != nil {
		return nil, errors.Wrap(err, "read slot file")
	}
	return data, nil
}

// Write replaces the slot document.
func (s *Slots) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".slot-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return errors.Wrap(err, "rename slot file")
	}
	return nil
}

// Ping checks that the directory is still present.
func (s *Slots) Ping(context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
