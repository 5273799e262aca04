package relayserver

import (
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/routeops/traefik-route-relay/internal/config"
)

// installRouteAutoReload watches the route template file and re-evaluates on
// change. The parent directory is watched rather than the file itself so
// editor save-via-rename still triggers.
func installRouteAutoReload(cfg *config.Config, st *state) (io.Closer, error) {
	if !cfg.Route.AutoReload.Enabled {
		return nil, nil
	}
	debounce := time.Duration(cfg.Route.AutoReload.DebounceMs) * time.Millisecond

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(cfg.Route.File)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	target := filepath.Base(cfg.Route.File)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		resetTimer := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			timerC = timer.C
		}

		for {
			select {
			case <-stopCh:
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				if err := st.ReloadTemplate(); err != nil {
					log.Printf("reload failed (route auto): %v", err)
					continue
				}
				log.Printf("reload ok (route auto): route_file=%q", cfg.Route.File)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("route auto-reload watcher error: %v", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldTriggerRouteReload(evt, target) {
					resetTimer()
				}
			}
		}
	}()

	log.Printf("route auto-reload enabled: file=%q debounce_ms=%d", cfg.Route.File, cfg.Route.AutoReload.DebounceMs)

	return closerFunc(func() error {
		close(stopCh)
		err := watcher.Close()
		<-doneCh
		return err
	}), nil
}

// shouldTriggerRouteReload filters watcher events down to changes of the
// route template file itself.
func shouldTriggerRouteReload(evt fsnotify.Event, target string) bool {
	if evt.Name == "" || filepath.Base(evt.Name) != target {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}
