package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openpress/openpress/internal/topic"
)

// FileStore persists the index as a JSON document. Reads happen once at
// run start, writes once at commit; the file is never held open between.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Path() string { return fs.path }

// Load reads the persisted index. A missing file is not an error: the
// caller gets an empty index and may rebuild from the corpus. A file that
// exists but cannot be parsed reports ErrIndexUnavailable.
func (fs *FileStore) Load() (*Index, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIndexUnavailable, fs.path, err)
	}
	if len(data) == 0 {
		return New(), nil
	}

	var records []topic.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrIndexUnavailable, fs.path, err)
	}

	ix := New()
	ix.ReplaceAll(records)
	return ix, nil
}

// Save writes the record set atomically: marshal to a temp file in the
// same directory, then rename over the target. A crash mid-write leaves
// the previous index intact.
func (fs *FileStore) Save(records []topic.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}
