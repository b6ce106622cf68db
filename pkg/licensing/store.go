package licensing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// DocumentStore defines persistence for the entitlement aggregate.
// Load and Save move the whole document as one unit; there is no
// partial read or write.
type DocumentStore interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Ping(ctx context.Context) error
	Close() error
}

const storeFileName = "licenses.json"

// FileStore persists the aggregate as a single JSON document on disk
type FileStore struct {
	path        string
	keepBackups bool
	mu          sync.Mutex
}

// NewFileStore creates a file-backed store rooted in dataDir
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, &StorageError{Op: "init", Err: err}
	}

	return &FileStore{
		path: filepath.Join(dataDir, storeFileName),
	}, nil
}

// WithBackups keeps a snappy-compressed snapshot of the previous
// document alongside the store file, refreshed on every save
func (s *FileStore) WithBackups() *FileStore {
	s.keepBackups = true
	return s
}

// Load reads the whole document. A missing file is first-run bootstrap
// and yields an empty aggregate, not an error.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, &StorageError{Op: "load", Err: err}
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	doc.normalize()

	return doc, nil
}

// Save atomically rewrites the whole document: write to a temp file in
// the same directory, then rename over the store file, so a crash
// mid-write can never truncate the aggregate.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keepBackups {
		if prev, err := os.ReadFile(s.path); err == nil {
			// Best effort: a failed backup never blocks the save
			_ = writeSnapshotFile(s.path+".snap", prev)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	return nil
}

// RestoreBackup decodes the compressed backup snapshot, if one exists
func (s *FileStore) RestoreBackup() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := readSnapshotFile(s.path + ".snap")
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	doc.normalize()

	return doc, nil
}

// Ping always succeeds for the file-based store
func (s *FileStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the file-based store
func (s *FileStore) Close() error {
	return nil
}
