package provisioning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/pkg/pdr"
)

// FileWatcher re-applies a local PDR image file to a repository
// whenever the file changes, by running the repository's init agent
// with the new image as the populate source. This is the development
// analogue of re-flashing a generated PDR image: the daemon keeps
// serving while its record set is hot-swapped.
//
// The watcher serializes re-applies on its own goroutine; the
// integrator is still responsible for serializing repository access
// between the watcher goroutine and other users, the same way all
// repository access is serialized externally.
type FileWatcher struct {
	path    string
	repo    *pdr.Repository
	watcher *fsnotify.Watcher

	// OnApply, if set, is called after every successful re-apply with
	// the number of records the new image carried.
	OnApply func(records int)
}

// NewFileWatcher creates a watcher for the image file at path,
// re-applying it to repo on change. The file's directory must exist;
// the file itself may appear later.
func NewFileWatcher(path string, repo *pdr.Repository) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("provisioning: creating watcher: %w", err)
	}

	// Watch the directory rather than the file: editors and atomic
	// writers replace the file, which drops a direct file watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("provisioning: watching %s: %w", filepath.Dir(path), err)
	}

	return &FileWatcher{path: path, repo: repo, watcher: w}, nil
}

// Run services watch events until ctx is cancelled. It is typically
// launched on its own goroutine by the daemon.
func (fw *FileWatcher) Run(ctx context.Context) {
	logger.Info("watching PDR image file", logger.KeyPath, fw.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fw.apply(ctx)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("image watch error", logger.KeyPath, fw.path, logger.KeyError, err.Error())
		}
	}
}

// Close releases the underlying filesystem watch.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// apply reads the image file and rebuilds the repository from it.
func (fw *FileWatcher) apply(ctx context.Context) {
	image, err := os.ReadFile(fw.path)
	if err != nil {
		logger.WarnCtx(ctx, "could not read changed image file",
			logger.KeyPath, fw.path, logger.KeyError, err.Error())
		return
	}

	offsets, err := ScanImage(image)
	if err != nil {
		logger.WarnCtx(ctx, "changed image file is malformed, keeping current records",
			logger.KeyPath, fw.path, logger.KeyError, err.Error())
		return
	}

	if err := fw.repo.RunInitAgent(PopulateFromImage(image)); err != nil {
		logger.WarnCtx(ctx, "image re-apply failed",
			logger.KeyPath, fw.path, logger.KeyError, err.Error())
		return
	}

	logger.InfoCtx(ctx, "re-applied PDR image",
		logger.KeyPath, fw.path,
		logger.KeyRecordCount, len(offsets),
	)
	if fw.OnApply != nil {
		fw.OnApply(len(offsets))
	}
}
