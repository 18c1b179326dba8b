package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	crerr "github.com/cockroachdb/errors"
)

// LocalStore maps each key to a file under root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, crerr.New("local cache root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, crerr.Wrapf(err, "create cache root %s", root)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, crerr.Wrapf(err, "read cache file %s", key)
	}
	return payload, true, nil
}

// Write replaces the file atomically through a temp file in the same directory.
func (s *LocalStore) Write(ctx context.Context, key string, payload []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return crerr.Wrapf(err, "create cache dir for %s", key)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return crerr.Wrapf(err, "create temp file for %s", key)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return crerr.Wrapf(err, "write cache file %s", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return crerr.Wrapf(err, "sync cache file %s", key)
	}
	if err := tmp.Close(); err != nil {
		return crerr.Wrapf(err, "close cache file %s", key)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return crerr.Wrapf(err, "commit cache file %s", key)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, crerr.Wrapf(err, "stat cache file %s", key)
	}
	return true, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
