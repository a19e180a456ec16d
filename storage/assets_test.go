package storage

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*AssetStore, afero.Fs, *fakeClock) {
	t.Helper()
	fs := afero.NewMemMapFs()
	clock := &fakeClock{t: time.UnixMilli(1700000000000)}
	return NewAssetStore(fs, "public/images", WithClock(clock.Now)), fs, clock
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	assert.Equal(t, "1700000000123_a.png", Key(at, "a.png"))
	assert.Equal(t, "1700000000123_passwd", Key(at, "../../etc/passwd"))
	assert.Equal(t, "1700000000123_upload", Key(at, "/"))
}

func TestStore_CreatesDirectoryAndWrites(t *testing.T) {
	s, fs, _ := newTestStore(t)

	key, err := s.Store(bytes.NewBufferString("png-bytes"), "a.png")
	require.NoError(t, err)

	assert.Equal(t, "1700000000000_a.png", key)
	assert.True(t, s.Exists(key))
	assert.Equal(t, "png-bytes", readFile(t, fs, s.Path(key)))
}

func TestStoreAt_UsesGivenTime(t *testing.T) {
	s, fs, _ := newTestStore(t)
	at := time.UnixMilli(1700000999999)

	key, err := s.StoreAt(at, bytes.NewBufferString("png-bytes"), "a.png")
	require.NoError(t, err)

	assert.Equal(t, Key(at, "a.png"), key)
	assert.Equal(t, "png-bytes", readFile(t, fs, s.Path(key)))
}

func TestStore_DirectoryFailure(t *testing.T) {
	s := NewAssetStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "public/images")

	key, err := s.Store(bytes.NewBufferString("x"), "a.png")

	assert.Empty(t, key)
	assert.True(t, errors.Is(err, ErrAssetWrite))
}

func TestRemove_MissingIsIgnored(t *testing.T) {
	s, _, _ := newTestStore(t)

	assert.NotPanics(t, func() {
		s.Remove("does-not-exist.png")
		s.Remove("")
	})
	assert.True(t, errors.Is(s.remove("does-not-exist.png"), ErrAssetRemove))
	assert.NoError(t, s.remove(""))
}

func TestReplace(t *testing.T) {
	s, fs, clock := newTestStore(t)

	oldKey, err := s.Store(bytes.NewBufferString("old"), "a.png")
	require.NoError(t, err)

	clock.Advance(time.Second)
	newKey, err := s.Replace(oldKey, bytes.NewBufferString("new"), "b.png")
	require.NoError(t, err)

	assert.NotEqual(t, oldKey, newKey)
	assert.False(t, s.Exists(oldKey))
	assert.Equal(t, "new", readFile(t, fs, s.Path(newKey)))
}

func TestReplace_MissingOldKeyStillStores(t *testing.T) {
	s, _, _ := newTestStore(t)

	key, err := s.Replace("gone.png", bytes.NewBufferString("new"), "b.png")
	require.NoError(t, err)
	assert.True(t, s.Exists(key))
}

func TestStoreRemoveRoundTrip(t *testing.T) {
	s, _, clock := newTestStore(t)

	key, err := s.Store(bytes.NewBufferString("x"), "a.png")
	require.NoError(t, err)
	s.Remove(key)
	assert.False(t, s.Exists(key))

	clock.Advance(time.Millisecond)
	next, err := s.Store(bytes.NewBufferString("y"), "a.png")
	require.NoError(t, err)
	assert.NotEqual(t, key, next)
}

// Keys have millisecond granularity: two uploads of the same name within one
// millisecond resolve to the same file and the later upload wins.
func TestStore_SameMillisecondCollision(t *testing.T) {
	s, fs, _ := newTestStore(t)

	first, err := s.Store(bytes.NewBufferString("first"), "a.png")
	require.NoError(t, err)
	second, err := s.Store(bytes.NewBufferString("second"), "a.png")
	require.NoError(t, err)

	assert.Equal(t, first, second, "known limitation: same-millisecond uploads collide")
	assert.Equal(t, "second", readFile(t, fs, s.Path(first)))
}

func TestNewDiskAssetStore(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskAssetStore(dir)

	key, err := s.Store(bytes.NewBufferString("disk"), "c.jpg")
	require.NoError(t, err)
	assert.True(t, s.Exists(key))
	assert.Equal(t, dir, s.Dir())

	s.Remove(key)
	assert.False(t, s.Exists(key))
}
