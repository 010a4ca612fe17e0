package session

import (
	"encoding/json"
	"os"
	"sync"
)

// Store is the key/value byte store backing session persistence. It holds
// serialized snapshots only and contains no logic of its own.
type Store interface {
	// Load returns the bytes under key, or (nil, nil) when absent.
	Load(key string) ([]byte, error)
	// Save writes the bytes under key.
	Save(key string, data []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// FileStore persists keys as a single JSON object in one file, the
// counterpart of the browser's per-tab session storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore writing to path. The file is created
// lazily on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (fs *FileStore) write(entries map[string]json.RawMessage) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(fs.path, data, 0600)
}

// Load returns the bytes stored under key, or (nil, nil) when the key or
// the whole file does not exist.
func (fs *FileStore) Load(key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := fs.read()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

// Save writes data under key, creating the file if needed.
func (fs *FileStore) Save(key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := fs.read()
	if err != nil {
		return err
	}
	entries[key] = json.RawMessage(data)
	return fs.write(entries)
}

// Delete removes key from the file.
func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := fs.read()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return fs.write(entries)
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{entries: map[string][]byte{}}
}

// Load returns the bytes stored under key, or (nil, nil) when absent.
func (ms *MemStore) Load(key string) ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	data, ok := ms.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Save writes data under key.
func (ms *MemStore) Save(key string, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	ms.entries[key] = stored
	return nil
}

// Delete removes key.
func (ms *MemStore) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.entries, key)
	return nil
}
