package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestVoiceOutputDefaultsToDisabled(t *testing.T) {
	s := New(Path(t.TempDir()))

	enabled, err := s.VoiceOutputEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestVoiceOutputSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	require.NoError(t, New(path).SetVoiceOutputEnabled(true))

	enabled, err := New(path).VoiceOutputEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, New(path).SetVoiceOutputEnabled(false))
	enabled, err = New(path).VoiceOutputEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestVoiceOutputMalformedValue(t *testing.T) {
	path := Path(t.TempDir())
	db, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketPrefs))
		if err != nil {
			return err
		}
		return b.Put([]byte(keyVoiceOutput), []byte("{not json"))
	}))
	require.NoError(t, db.Close())

	enabled, err := New(path).VoiceOutputEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}
