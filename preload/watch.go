package preload

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads the preload list at path whenever the file changes
// and passes every successfully parsed list to onChange.
// A list that fails to load is logged and the previous one stays in use.
// Watch blocks until the context is cancelled.
func Watch(ctx context.Context, path string, onChange func(*List), logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory, since editors and deploy tools replace the file
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Debug().Str("path", abs).Msg("Watching preload list")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			list, err := Load(abs)
			if err != nil {
				logger.Warn().Err(err).Str("path", abs).Msg("Could not reload preload list, keeping previous")
				continue
			}
			logger.Info().Int("hosts", list.Len()).Time("expires", list.Expires).Msg("Reloaded preload list")
			onChange(list)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Preload list watcher error")
		}
	}
}
