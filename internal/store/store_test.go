package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-evaluator/internal/types"
)

func testSet() *types.SearchResultSet {
	return &types.SearchResultSet{
		Query:        "go engineer",
		Timestamp:    "2024-01-02T03:04:05.006Z",
		TotalMatches: 1,
		Results: []types.FormattedResult{
			{ID: "0", Filename: "resume_jane.pdf", IsMatch: true, Explanation: "because", Snippet: "because", Score: 1},
		},
	}
}

func openStores(t *testing.T, maxBytes int) (*LevelDB, *FileStore) {
	t.Helper()
	dir := t.TempDir()

	primary, err := OpenLevelDB(filepath.Join(dir, "leveldb"), maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = primary.Close() })

	fallback, err := NewFileStore(filepath.Join(dir, "fallback"))
	require.NoError(t, err)
	return primary, fallback
}

// failingKV rejects every write.
type failingKV struct{ FileStore }

func (failingKV) Put(string, []byte) error { return errors.New("disk full") }

func TestLevelDB_PutGetDelete(t *testing.T) {
	primary, _ := openStores(t, 0)

	_, err := primary.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, primary.Put("k", []byte("v")))
	got, err := primary.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, primary.Delete("k"))
	_, err = primary.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, primary.Put("", []byte("v")), ErrInvalidKey)
}

func TestLevelDB_MaxBytes(t *testing.T) {
	primary, _ := openStores(t, 4)
	assert.NoError(t, primary.Put("k", []byte("1234")))
	assert.ErrorIs(t, primary.Put("k", []byte("12345")), ErrTooLarge)
}

func TestFileStore_PutGetDelete(t *testing.T) {
	_, fs := openStores(t, 0)

	_, err := fs.Get(KeyResults)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Put(KeyResults, []byte(`{"a":1}`)))
	got, err := fs.Get(KeyResults)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, fs.Delete(KeyResults))
	require.NoError(t, fs.Delete(KeyResults), "deleting a missing key is not an error")

	assert.ErrorIs(t, fs.Put("../escape", nil), ErrInvalidKey)
}

func TestHandoff_PublishPrimary(t *testing.T) {
	primary, fallback := openStores(t, 0)
	h := NewHandoff(primary, fallback, nil)

	ch, err := h.Publish(testSet())
	require.NoError(t, err)
	assert.Equal(t, ChannelPrimary, ch)

	_, err = fallback.Get(KeyBackup)
	assert.NoError(t, err, "backup copy is always written")
	_, err = fallback.Get(KeyResults)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandoff_PublishTooLargeFallsBack(t *testing.T) {
	primary, fallback := openStores(t, 10)
	h := NewHandoff(primary, fallback, nil)

	ch, err := h.Publish(testSet())
	require.NoError(t, err)
	assert.Equal(t, ChannelFallback, ch)

	set, err := h.Peek()
	require.NoError(t, err)
	assert.Equal(t, "go engineer", set.Query)
}

func TestHandoff_LatestPublishWinsAcrossChannels(t *testing.T) {
	primary, fallback := openStores(t, 600)
	h := NewHandoff(primary, fallback, nil)

	first := testSet()
	first.Query = "first"
	ch, err := h.Publish(first)
	require.NoError(t, err)
	require.Equal(t, ChannelPrimary, ch)

	second := testSet()
	second.Query = "second"
	second.Results[0].Explanation = strings.Repeat("x", 1000)
	ch, err = h.Publish(second)
	require.NoError(t, err)
	require.Equal(t, ChannelFallback, ch)

	set, err := h.Peek()
	require.NoError(t, err)
	assert.Equal(t, "second", set.Query)

	set, err = h.Consume()
	require.NoError(t, err)
	assert.Equal(t, "second", set.Query)

	third := testSet()
	third.Query = "third"
	ch, err = h.Publish(third)
	require.NoError(t, err)
	require.Equal(t, ChannelPrimary, ch)

	require.NoError(t, fallback.Put(KeyResults, []byte(`{"query":"stale","timestamp":"t","totalMatches":0,"results":[]}`)))
	fourth := testSet()
	fourth.Query = "fourth"
	_, err = h.Publish(fourth)
	require.NoError(t, err)

	_, err = fallback.Get(KeyResults)
	assert.ErrorIs(t, err, ErrNotFound, "primary publish removes the fallback copy")
	set, err = h.Peek()
	require.NoError(t, err)
	assert.Equal(t, "fourth", set.Query)
}

func TestHandoff_PublishWithoutPrimary(t *testing.T) {
	_, fallback := openStores(t, 0)
	h := NewHandoff(nil, fallback, nil)

	ch, err := h.Publish(testSet())
	require.NoError(t, err)
	assert.Equal(t, ChannelFallback, ch)
}

func TestHandoff_PublishFailsWhenFallbackFails(t *testing.T) {
	_, err := NewHandoff(nil, &failingKV{}, nil).Publish(testSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHandoff_PublishRejectsInvalid(t *testing.T) {
	primary, fallback := openStores(t, 0)
	h := NewHandoff(primary, fallback, nil)

	set := testSet()
	set.Timestamp = ""
	_, err := h.Publish(set)
	require.Error(t, err)

	_, err = h.Peek()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandoff_ConsumeOnce(t *testing.T) {
	primary, fallback := openStores(t, 0)
	h := NewHandoff(primary, fallback, nil)

	_, err := h.Publish(testSet())
	require.NoError(t, err)

	set, err := h.Consume()
	require.NoError(t, err)
	assert.Equal(t, 1, set.TotalMatches)

	_, err = h.Consume()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandoff_ReadsBackupLast(t *testing.T) {
	primary, fallback := openStores(t, 0)
	require.NoError(t, fallback.Put(KeyBackup, []byte(`{"query":"backup","timestamp":"t","totalMatches":0,"results":[]}`)))

	h := NewHandoff(primary, fallback, nil)
	set, err := h.Peek()
	require.NoError(t, err)
	assert.Equal(t, "backup", set.Query)

	require.NoError(t, fallback.Put(KeyResults, []byte(`{"query":"fallback","timestamp":"t","totalMatches":0,"results":[]}`)))
	set, err = h.Peek()
	require.NoError(t, err)
	assert.Equal(t, "fallback", set.Query)

	require.NoError(t, primary.Put(KeyResults, []byte(`{"query":"primary","timestamp":"t","totalMatches":0,"results":[]}`)))
	set, err = h.Peek()
	require.NoError(t, err)
	assert.Equal(t, "primary", set.Query)
}

func TestHandoff_SkipsCorruptValues(t *testing.T) {
	primary, fallback := openStores(t, 0)
	require.NoError(t, primary.Put(KeyResults, []byte("{not json")))
	require.NoError(t, fallback.Put(KeyResults, []byte(`{"query":"ok","timestamp":"t","totalMatches":0,"results":[]}`)))

	set, err := NewHandoff(primary, fallback, nil).Peek()
	require.NoError(t, err)
	assert.Equal(t, "ok", set.Query)
}
