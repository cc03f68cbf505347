package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 300 * time.Millisecond

// Watch re-imports markdown files in dir as they change and removes the
// post of a deleted file. It blocks until ctx is done.
func (im *Importer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	im.logger.Printf("Watching %s for changes", dir)

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
		wg     sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	// Editors write files in bursts; act once per file after it settles.
	schedule := func(path string, fn func()) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok && t.Stop() {
			wg.Done()
		}
		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(debounce, func() {
			defer wg.Done()
			mu.Lock()
			if timers[path] == t {
				delete(timers, path)
			}
			mu.Unlock()
			fn()
		})
		timers[path] = t
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			im.logger.Printf("Watcher error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isMarkdown(event.Name) {
				continue
			}
			path := event.Name
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				schedule(path, func() {
					if err := im.Remove(ctx, path); err != nil {
						im.logger.Printf("Error removing post for %s: %v", path, err)
					}
				})
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				schedule(path, func() {
					if _, err := im.ImportFile(ctx, path); err != nil {
						im.logger.Printf("Error importing %s: %v", path, err)
					}
				})
			}
		}
	}
}
