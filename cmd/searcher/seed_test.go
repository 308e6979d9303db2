package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAdder struct{ text []string }

func (r *recordingAdder) AddNoiseWords(_ context.Context, text string) error {
	r.text = append(r.text, text)
	return nil
}

func TestSeedNoiseWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.txt")
	require.NoError(t, os.WriteFile(path, []byte("the\na\n"), 0o600))

	adder := &recordingAdder{}
	require.NoError(t, seedNoiseWords(context.Background(), adder, path))
	assert.Equal(t, []string{"the\na\n"}, adder.text)

	require.NoError(t, seedNoiseWords(context.Background(), adder, ""))
	assert.Len(t, adder.text, 1)

	assert.Error(t, seedNoiseWords(context.Background(), adder, filepath.Join(t.TempDir(), "absent")))
}

func TestStoreScheme(t *testing.T) {
	assert.Equal(t, "postgres", storeScheme("postgres://user:secret@db/textsearch"))
	assert.Equal(t, "memory", storeScheme("memory://"))
}
