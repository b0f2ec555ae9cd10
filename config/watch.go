package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ducka/go-flow/instrumentation"
	"github.com/ducka/go-flow/subject"
	"github.com/fsnotify/fsnotify"
)

const watchActivity = "ConfigWatch"

// Watch loads the settings at path and republishes them whenever the file changes. Changes that fail to load are
// logged and skipped. The subject completes once ctx is done.
func Watch(ctx context.Context, path string) (*subject.CurrentValue[Settings], error) {
	settings, err := Load(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Editors often replace the file rather than write to it, so the directory is watched instead.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	current := subject.NewCurrentValue(settings)
	go watch(ctx, watcher, path, current)

	return current, nil
}

func watch(ctx context.Context, watcher *fsnotify.Watcher, path string, current *subject.CurrentValue[Settings]) {
	defer current.Complete()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			settings, changed := reload(path)
			if changed {
				instrumentation.Logging().Info(watchActivity, "config reloaded from "+path)
				current.Send(settings)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			instrumentation.Logging().Warn(watchActivity, "config watcher error: "+err.Error())
		}
	}
}

func reload(path string) (Settings, bool) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		// Removed, or truncated and not yet rewritten
		return Settings{}, false
	}

	settings, err := Load(path)
	if err != nil {
		instrumentation.Logging().Warn(watchActivity, "ignoring invalid config: "+err.Error())
		return Settings{}, false
	}
	return settings, true
}
