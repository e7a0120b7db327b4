package formfile

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-actionform/pkg/form"
)

// Holder provides thread-safe access to the forms of a directory with hot
// reload support. A failed reload keeps the previous store.
type Holder struct {
	mu       sync.RWMutex
	store    *Store
	dir      string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Store)
	onError  []func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads dir and returns a holder for it.
func NewHolder(dir string, logger zerolog.Logger) (*Holder, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("formfile: absolute path: %w", err)
	}
	store, err := LoadFS(os.DirFS(absDir))
	if err != nil {
		return nil, fmt.Errorf("formfile: load %s: %w", absDir, err)
	}

	logger.Info().Str("dir", absDir).Int("forms", store.Len()).Msg("forms loaded")
	return &Holder{
		store:  store,
		dir:    absDir,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current store.
func (h *Holder) Get() *Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

// Definition looks name up in the current store.
func (h *Holder) Definition(name string) (*form.Definition, bool) {
	return h.Get().Definition(name)
}

// Names lists the forms of the current store.
func (h *Holder) Names() []string {
	return h.Get().Names()
}

// Dir reports the watched directory.
func (h *Holder) Dir() string { return h.dir }

// Reload reads the directory again and swaps the store on success.
func (h *Holder) Reload() error {
	h.logger.Info().Str("dir", h.dir).Msg("reloading forms")

	next, err := LoadFS(os.DirFS(h.dir))
	if err != nil {
		h.logger.Error().Err(err).Msg("forms reload failed, keeping old definitions")
		h.mu.RLock()
		listeners := append([]func(error){}, h.onError...)
		h.mu.RUnlock()
		for _, fn := range listeners {
			fn(err)
		}
		return fmt.Errorf("formfile: reload: %w", err)
	}

	h.mu.Lock()
	prev := h.store
	h.store = next
	listeners := append([]func(*Store){}, h.onChange...)
	h.mu.Unlock()

	h.logChanges(prev, next)
	for _, fn := range listeners {
		fn(next)
	}

	h.logger.Info().Int("forms", next.Len()).Msg("forms reloaded")
	return nil
}

// OnChange registers a callback invoked after every successful reload.
func (h *Holder) OnChange(fn func(*Store)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReloadError registers a callback invoked when a reload fails.
func (h *Holder) OnReloadError(fn func(error)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = append(h.onError, fn)
}

// Watch reloads on writes, creations, renames and removals of form files in
// the directory.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("formfile: create watcher: %w", err)
	}
	if err := watcher.Add(h.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("formfile: watch %s: %w", h.dir, err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("dir", h.dir).Msg("watching forms for changes")
	return nil
}

// WatchSignals reloads on SIGHUP.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading forms")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !isFormFile(event.Name) || event.Op&relevant == 0 {
				continue
			}
			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("form file changed")
			if err := h.Reload(); err != nil {
				h.logger.Error().Err(err).Msg("file watch reload failed")
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(prev, next *Store) {
	before := make(map[string]struct{}, prev.Len())
	for _, name := range prev.Names() {
		before[name] = struct{}{}
	}
	for _, name := range next.Names() {
		if _, ok := before[name]; ok {
			delete(before, name)
			continue
		}
		h.logger.Info().Str("form", name).Msg("form added")
	}
	for name := range before {
		h.logger.Info().Str("form", name).Msg("form removed")
	}
}
