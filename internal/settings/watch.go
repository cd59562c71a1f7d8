package settings

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads settings whenever the file at path is written and calls
// onChange with the merged result. Events are debounced because editors and
// the settings writer produce bursts of writes for a single save.
func Watch(ctx context.Context, path string, onChange func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: the file may not exist yet, and atomic saves
	// replace it (rename) which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
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
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, func() {
					s, err := LoadFrom(path)
					if err != nil {
						log.Printf("[settings] reload failed: %v", err)
						return
					}
					onChange(s)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[settings] watch error: %v", err)
			}
		}
	}()

	return nil
}
