package config

import (
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spectraldev/spectral/engine/core"
)

// Watcher reloads a config file on change and applies the tunable subset
// through the callback. Capacity changes on disk are logged and ignored;
// they require a renderer restart.
type Watcher struct {
	path     string
	baseline Capacities
	onChange func(Tunables)

	mutex    sync.Mutex
	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func Watch(path string, baseline Capacities, onChange func(Tunables)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		baseline: baseline,
		onChange: onChange,
		done:     make(chan struct{}),
		fsnotify: fsWatch,
	}

	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go w.start()
	return w, nil
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	return nil
}

func (w *Watcher) start() {
	for {
		select {
		case e := <-w.fsnotify.Events:
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.reload()

		case e := <-w.fsnotify.Errors:
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogWarn("config reload skipped: %s", err.Error())
		return
	}
	if cfg.Capacities != w.baseline {
		core.LogWarn("capacity change in %s takes effect on restart only", w.path)
	}
	core.LogInfo("applying tunables: filter=%v iterations=%d",
		cfg.Tunables.FilterEnabled, cfg.Tunables.FilterIterations)
	w.onChange(cfg.Tunables)
}
