package artifacts

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the whole bundle when an artifact file changes. Events
// are debounced so a training job rewriting several files triggers one
// reload.
type Watcher struct {
	cfg      Config
	logger   *zap.Logger
	onReload func(*Bundle)
	load     func(Config) (*Bundle, error)
}

func NewWatcher(cfg Config, logger *zap.Logger, onReload func(*Bundle)) *Watcher {
	return &Watcher{cfg: cfg, logger: logger, onReload: onReload, load: Load}
}

// Run blocks until ctx is cancelled. A failed reload is logged and the
// previous bundle stays in service.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dirs := make(map[string]bool)
	watched := make(map[string]bool)
	for _, file := range w.cfg.Files() {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return err
		}
		w.logger.Info("watching artifacts", zap.String("dir", dir))
	}

	debounce := w.cfg.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("artifact changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		case <-timer.C:
			bundle, err := w.load(w.cfg)
			if err != nil {
				w.logger.Error("artifact reload failed, keeping previous bundle", zap.Error(err))
				continue
			}
			w.logger.Info("artifacts reloaded",
				zap.Int("symptoms", bundle.Index.Len()),
				zap.Int("classes", bundle.Classes.Len()))
			w.onReload(bundle)
		}
	}
}
