// Package watch reloads the target velocity when the config file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/basepilot/internal/cliconfig"
	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

// DefaultDebounceDelay is how long to wait after the last file event
// before reloading.
const DefaultDebounceDelay = 100 * time.Millisecond

// Target is the setpoint the watcher updates.
type Target interface {
	Target() domain.Velocity
	Set(domain.Velocity) error
}

// Watcher watches one TOML config file and applies its [target] table.
type Watcher struct {
	mu sync.Mutex

	path          string
	target        Target
	logger        ports.Logger
	debounceDelay time.Duration

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a watcher for path. A non-positive delay uses
// DefaultDebounceDelay.
func New(path string, target Target, logger ports.Logger, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Watcher{
		path:          filepath.Clean(path),
		target:        target,
		logger:        logger,
		debounceDelay: delay,
	}
}

// Start begins watching. The parent directory is watched so that editors
// replacing the file atomically are noticed.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("watching config file", ports.String("path", w.path))

	w.wg.Add(1)
	go w.watchLoop(watchCtx, fw)
	return nil
}

// Stop ends watching and waits for the watch goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.Reload(); err != nil {
			w.logger.Warn("config reload failed", ports.String("path", w.path), ports.Err(err))
		}
	})
}

// Reload reads the file and applies its [target] table. Components missing
// from the table keep their current value.
func (w *Watcher) Reload() error {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		return err
	}

	next := fc.Target.Velocity(w.target.Target())
	if err := w.target.Set(next); err != nil {
		return err
	}

	w.logger.Info("target velocity reloaded",
		ports.Float64("linear_x", float64(next.LinearX)),
		ports.Float64("linear_y", float64(next.LinearY)),
		ports.Float64("angular_z", float64(next.AngularZ)),
	)
	return nil
}
