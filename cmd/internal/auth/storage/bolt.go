package storage

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("session")

// Bolt keeps keys in a single bbolt bucket. Values are sealed individually
// when a Sealer is configured, with the key name as associated data.
type Bolt struct {
	db     *bolt.DB
	sealer *Sealer
}

// OpenBolt opens (or creates) the database at path. sealer may be nil.
func OpenBolt(path string, sealer *Sealer) (*Bolt, error) {
	if path == "" {
		return nil, ErrConfig
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &OpError{Op: "init", Err: err}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, &OpError{Op: "open", Err: err}
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, &OpError{Op: "init", Err: err}
	}
	return &Bolt{db: db, sealer: sealer}, nil
}

// Get returns the value for key and whether it was present.
func (b *Bolt) Get(key string) (string, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, b.wrap("get", key, err)
	}
	if raw == nil {
		return "", false, nil
	}

	v, err := b.open(key, raw)
	if err != nil {
		return "", false, &OpError{Op: "get", Key: key, Err: err}
	}
	return v, true, nil
}

// Set stores value under key.
func (b *Bolt) Set(key, value string) error {
	raw, err := b.seal(key, value)
	if err != nil {
		return &OpError{Op: "set", Key: key, Err: err}
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), raw)
	})
	return b.wrap("set", key, err)
}

// Delete removes key. Missing keys are not an error.
func (b *Bolt) Delete(key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	return b.wrap("delete", key, err)
}

// Close releases the database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// sealed values carry a one-byte marker so plain and sealed entries can coexist
// across key configuration changes.
const (
	markPlain  byte = 'p'
	markSealed byte = 's'
)

func (b *Bolt) seal(key, value string) ([]byte, error) {
	if b.sealer == nil {
		return append([]byte{markPlain}, value...), nil
	}
	ct, err := b.sealer.Seal([]byte(value), []byte(key))
	if err != nil {
		return nil, err
	}
	return append([]byte{markSealed}, ct...), nil
}

func (b *Bolt) open(key string, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrKeyMismatch
	}
	switch raw[0] {
	case markPlain:
		return string(raw[1:]), nil
	case markSealed:
		if b.sealer == nil {
			return "", ErrSealed
		}
		pt, err := b.sealer.Open(raw[1:], []byte(key))
		if err != nil {
			return "", err
		}
		return string(pt), nil
	default:
		return "", ErrKeyMismatch
	}
}

func (b *Bolt) wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		err = ErrClosed
	}
	return &OpError{Op: op, Key: key, Err: err}
}
