// Package prefs persists user preferences that survive restarts.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// FileName is the preference database name inside the data directory
	FileName = "prefs.bolt"

	bucketPrefs        = "prefs"
	keyVoiceOutput     = "voice_output_enabled"
	defaultOpenTimeout = time.Second
)

// Store is a BoltDB-backed preference store. The database is opened per
// operation so a running chat does not lock out `pal voice`.
type Store struct {
	path string
}

// Path returns the preference database path under dataDir
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// New returns a store backed by the file at path
func New(path string) *Store {
	return &Store{path: path}
}

// VoiceOutputEnabled reports whether synthesized replies should be played. Defaults to false.
func (s *Store) VoiceOutputEnabled() (bool, error) {
	var enabled bool
	found, err := s.get(keyVoiceOutput, &enabled)
	if err != nil {
		return false, fmt.Errorf("failed to read voice preference: %w", err)
	}
	if !found {
		return false, nil
	}
	return enabled, nil
}

// SetVoiceOutputEnabled persists the voice output preference
func (s *Store) SetVoiceOutputEnabled(enabled bool) error {
	if err := s.put(keyVoiceOutput, enabled); err != nil {
		return fmt.Errorf("failed to save voice preference: %w", err)
	}
	return nil
}

func (s *Store) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, err
	}
	return bolt.Open(s.path, 0o600, &bolt.Options{Timeout: defaultOpenTimeout})
}

func (s *Store) get(key string, v any) (bool, error) {
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer func() { _ = db.Close() }()

	found := false
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPrefs))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if e := json.Unmarshal(raw, v); e != nil {
			// Treat a malformed value as unset
			return nil
		}
		found = true
		return nil
	})
	return found, err
}

func (s *Store) put(key string, v any) error {
	enc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b, e := tx.CreateBucketIfNotExists([]byte(bucketPrefs))
		if e != nil {
			return e
		}
		return b.Put([]byte(key), enc)
	})
}
