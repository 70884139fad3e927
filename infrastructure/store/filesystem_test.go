package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/veridoc/internal/domain"
)

func newTestStore(t *testing.T) (*FilesystemStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewFilesystemStore(root)
	require.NoError(t, err)
	return s, root
}

func TestNewFilesystemStore_Validation(t *testing.T) {
	_, err := NewFilesystemStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewFilesystemStore(file)
	assert.Error(t, err, "a plain file is not a store root")
}

func TestGetDocumentText(t *testing.T) {
	s, root := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "thesis-1.md"), []byte("# Thesis"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("plain notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bare"), []byte("no extension"), 0o644))

	tests := []struct {
		id   string
		want string
	}{
		{id: "thesis-1", want: "# Thesis"},
		{id: "notes", want: "plain notes"},
		{id: "bare", want: "no extension"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			text, err := s.GetDocumentText(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestGetDocumentText_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetDocumentText(context.Background(), "ghost")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetDocumentText_RejectsPathEscapes(t *testing.T) {
	s, _ := newTestStore(t)
	for _, id := range []string{"", "../secret", "a/b", `a\b`, ".."} {
		_, err := s.GetDocumentText(context.Background(), id)
		assert.Error(t, err, "id %q must be rejected", id)
	}
}

func TestSaveResult_RoundTrip(t *testing.T) {
	s, root := newTestStore(t)
	result := &domain.AggregateResult{
		HumanScore:   87.5,
		MachineScore: 12.5,
		WordCount:    1200,
		Passed:       true,
		ChunksScored: 3,
		CompletedAt:  time.Now().UTC(),
	}

	require.NoError(t, s.SaveResult(context.Background(), "thesis-1", result))

	data, err := os.ReadFile(filepath.Join(root, "thesis-1.result.json"))
	require.NoError(t, err)

	var loaded domain.AggregateResult
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, result.HumanScore, loaded.HumanScore)
	assert.True(t, loaded.Passed)
	assert.Equal(t, 1200, loaded.WordCount)
}

func TestSaveResult_OverwritesPrevious(t *testing.T) {
	s, root := newTestStore(t)

	require.NoError(t, s.SaveResult(context.Background(), "d", &domain.AggregateResult{HumanScore: 10}))
	require.NoError(t, s.SaveResult(context.Background(), "d", &domain.AggregateResult{HumanScore: 90}))

	data, err := os.ReadFile(filepath.Join(root, "d.result.json"))
	require.NoError(t, err)

	var loaded domain.AggregateResult
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, 90.0, loaded.HumanScore)

	// No leftover temp files from the atomic write.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_RespectsContextCancellation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetDocumentText(ctx, "any")
	assert.ErrorIs(t, err, context.Canceled)

	err = s.SaveResult(ctx, "any", &domain.AggregateResult{})
	assert.ErrorIs(t, err, context.Canceled)
}
