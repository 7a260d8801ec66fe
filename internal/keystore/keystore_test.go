package keystore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Put("sess-1/.env", "a2V5LWJ5dGVz"))

	got, err := s.Get("sess-1/.env")
	require.NoError(t, err)
	assert.Equal(t, "a2V5LWJ5dGVz", got)

	require.NoError(t, s.Delete("sess-1/.env"))

	_, err = s.Get("sess-1/.env")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Put("name", "first"))
	require.NoError(t, s.Put("name", "second"))

	got, err := s.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestMemoryStoreMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("absent")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete("absent"), ErrNotFound)
}

func TestMemoryStoreEmptyName(t *testing.T) {
	s := NewMemoryStore()

	assert.Error(t, s.Put("", "v"))
	_, err := s.Get("")
	assert.Error(t, err)
	assert.Error(t, s.Delete(""))
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("key-%d", i)
			assert.NoError(t, s.Put(name, "v"))
			_, err := s.Get(name)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestSessionKeyName(t *testing.T) {
	assert.Equal(t, "abc123/.env", SessionKeyName("abc123", ".env"))
	assert.Equal(t, "abc123/config/secrets.yaml", SessionKeyName("abc123", "config/secrets.yaml"))
}
