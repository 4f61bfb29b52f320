package provisioning

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pdrhub/pkg/pdr"
)

func TestFileWatcher_ReappliesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")

	repo := pdr.New(pdr.Config{})

	fw, err := NewFileWatcher(path, repo)
	require.NoError(t, err)
	defer fw.Close()

	applied := make(chan int, 4)
	fw.OnApply = func(records int) { applied <- records }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	image := packImage(imageRecord{handle: 1, typ: 1, body: []byte{0xAA}})
	require.NoError(t, os.WriteFile(path, image, 0644))

	select {
	case n := <-applied:
		assert.Equal(t, 1, n)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not re-apply the image")
	}

	assert.Equal(t, uint32(1), repo.GetRepositoryInfo().RecordCount)

	// A second write with more records re-applies again.
	image = packImage(
		imageRecord{handle: 1, typ: 1, body: []byte{0xAA}},
		imageRecord{handle: 2, typ: 1, body: []byte{0xBB}},
	)
	require.NoError(t, os.WriteFile(path, image, 0644))

	select {
	case n := <-applied:
		assert.Equal(t, 2, n)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not re-apply the changed image")
	}

	assert.Equal(t, uint32(2), repo.GetRepositoryInfo().RecordCount)
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")

	repo := pdr.New(pdr.Config{})

	fw, err := NewFileWatcher(path, repo)
	require.NoError(t, err)
	defer fw.Close()

	applied := make(chan int, 1)
	fw.OnApply = func(records int) { applied <- records }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.bin"), []byte{0x01}, 0644))

	select {
	case <-applied:
		t.Fatal("watcher applied an unrelated file")
	case <-time.After(250 * time.Millisecond):
	}
}

func TestFileWatcher_KeepsRecordsOnMalformedImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")

	repo := pdr.New(pdr.Config{})
	_, err := repo.AddRecord(1, []byte{0x01})
	require.NoError(t, err)

	fw, err := NewFileWatcher(path, repo)
	require.NoError(t, err)
	defer fw.Close()

	applied := make(chan int, 1)
	fw.OnApply = func(records int) { applied <- records }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	// A record header declaring a body that is not there.
	image := packImage(imageRecord{handle: 1, typ: 1, body: []byte{0xAA, 0xBB}})
	require.NoError(t, os.WriteFile(path, image[:len(image)-1], 0644))

	select {
	case <-applied:
		t.Fatal("watcher applied a malformed image")
	case <-time.After(250 * time.Millisecond):
	}

	assert.Equal(t, uint32(1), repo.GetRepositoryInfo().RecordCount)
}
