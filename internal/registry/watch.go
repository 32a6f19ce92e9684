package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"vramd/internal/common/fsutil"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the registry file whenever it changes and hands every result,
// degraded or not, to onChange. The file's directory is watched so that
// atomic rename-on-save is observed. Blocks until ctx is done.
func Watch(ctx context.Context, path string, log zerolog.Logger, onChange func(Result)) error {
	abs, err := fsutil.Resolve(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	log = log.With().Str("component", "registry-watch").Str("path", abs).Logger()
	log.Info().Msg("watching registry file")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("registry watcher error")
		case <-pending:
			pending = nil
			res := Load(abs)
			if res.Degraded {
				log.Warn().Str("reason", res.Reason).Msg("registry reload degraded, using built-in defaults")
			} else {
				log.Info().Int("models", len(res.Registry.Definitions())).Int("warnings", len(res.Warnings)).Msg("registry reloaded")
			}
			onChange(res)
		}
	}
}
