package daemon

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchLog signals on the returned channel when path is written or
// recreated. It watches the parent directory because the log may not
// exist yet or may be rotated. A nil channel means no watching; the
// caller falls back to its ticker.
func watchLog(path string) (<-chan struct{}, func()) {
	noop := func() {}
	if path == "" {
		return nil, noop
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("cxburn daemon: file watch unavailable: %v", err)
		return nil, noop
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		log.Printf("cxburn daemon: watching %s: %v", path, err)
		_ = w.Close()
		return nil, noop
	}

	target := filepath.Clean(path)
	wake := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == target && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("cxburn daemon: watch error: %v", err)
			}
		}
	}()
	return wake, func() { _ = w.Close() }
}
