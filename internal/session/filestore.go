package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each slot in its own file under dir. Writes go through a
// temp file and rename so a concurrent reader sees either the old or the new
// value.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory holding the slot files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *FileStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
