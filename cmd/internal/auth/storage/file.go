package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

const fileFormatVersion = 1

// fileDoc is the on-disk document. Exactly one of Values and Sealed is set.
type fileDoc struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values,omitempty"`
	Sealed  string            `json:"sealed,omitempty"`
}

// File keeps all keys in one JSON document and rewrites it atomically on change.
type File struct {
	path   string
	sealer *Sealer

	mu sync.Mutex
}

// NewFile returns a File storage rooted at path. sealer may be nil.
// The parent directory is created with 0700 permissions.
func NewFile(path string, sealer *Sealer) (*File, error) {
	if path == "" {
		return nil, ErrConfig
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &OpError{Op: "init", Err: err}
	}
	return &File{path: path, sealer: sealer}, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Get returns the value for key and whether it was present.
func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, &OpError{Op: "get", Key: key, Err: err}
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return &OpError{Op: "set", Key: key, Err: err}
	}
	values[key] = value
	if err := f.store(values); err != nil {
		return &OpError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		// Unreadable state is discarded on delete so logout always succeeds.
		if errors.Is(err, ErrSealed) || errors.Is(err, ErrKeyMismatch) {
			values = map[string]string{}
		} else {
			return &OpError{Op: "delete", Key: key, Err: err}
		}
	}
	if _, ok := values[key]; !ok && err == nil {
		return nil
	}
	delete(values, key)
	if err := f.store(values); err != nil {
		return &OpError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Close is a no-op; File holds no open handles between calls.
func (f *File) Close() error { return nil }

func (f *File) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc.Version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported version %d", doc.Version)
	}

	if doc.Sealed == "" {
		if doc.Values == nil {
			doc.Values = map[string]string{}
		}
		return doc.Values, nil
	}

	if f.sealer == nil {
		return nil, ErrSealed
	}
	ct, err := base64.StdEncoding.DecodeString(doc.Sealed)
	if err != nil {
		return nil, ErrKeyMismatch
	}
	pt, err := f.sealer.Open(ct, []byte(f.path))
	if err != nil {
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(pt, &values); err != nil {
		return nil, fmt.Errorf("decode sealed: %w", err)
	}
	return values, nil
}

func (f *File) store(values map[string]string) error {
	doc := fileDoc{Version: fileFormatVersion}

	if f.sealer == nil {
		doc.Values = values
	} else {
		pt, err := json.Marshal(values)
		if err != nil {
			return err
		}
		ct, err := f.sealer.Seal(pt, []byte(f.path))
		if err != nil {
			return err
		}
		doc.Sealed = base64.StdEncoding.EncodeToString(ct)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return renameio.WriteFile(f.path, raw, 0o600)
}
