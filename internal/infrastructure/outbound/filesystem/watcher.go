package filesystem

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sophialabs/agenix/internal/infrastructure/ports"
)

// Filter reports whether a change to path should trigger the callback.
type Filter func(path string) bool

// YAMLFiles accepts changes to .yaml and .yml files.
func YAMLFiles(path string) bool { return isYAMLFile(path) }

// SingleFile accepts changes to exactly one file.
func SingleFile(file string) Filter {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	return func(path string) bool {
		p, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		return p == abs
	}
}

// Watcher watches a directory tree and calls onChange once per burst of
// matching file events.
type Watcher struct {
	rootDir  string
	filter   Filter
	debounce time.Duration
	logger   ports.Logger
	watcher  *fsnotify.Watcher
	onChange func()
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a file watcher for rootDir and its subdirectories. A
// nil filter watches YAML files.
func NewWatcher(rootDir string, filter Filter, debounce time.Duration, logger ports.Logger, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = YAMLFiles
	}

	w := &Watcher{
		rootDir:  rootDir,
		filter:   filter,
		debounce: debounce,
		logger:   logger,
		watcher:  fsWatcher,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(rootDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching for file changes in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.filter(event.Name) {
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.addRecursive(event.Name)
					}
				}
				continue
			}

			w.logger.Debug("file change detected", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timerC:
			w.logger.Info("file changes detected, reloading", "dir", w.rootDir)
			w.onChange()
			timerC = nil
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}
