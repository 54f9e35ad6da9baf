package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/logging"
)

// Watcher monitors the machine overrides file while the agent is running.
// Checks re-resolve configuration on every run anyway; the watcher exists so
// a LOG_LEVEL change takes effect immediately and so the agent can log that
// an operator touched the file.
type Watcher struct {
	overridesPath string
	watcher       *fsnotify.Watcher
	stopChan      chan struct{}
	lastModTime   time.Time
	mu            sync.Mutex
	onChange      func() // optional callback for the agent loop
}

// NewWatcher creates a watcher for the overrides file under configDir.
func NewWatcher(configDir string) (*Watcher, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	overridesPath := filepath.Join(configDir, OverridesFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		overridesPath: overridesPath,
		watcher:       watcher,
		stopChan:      make(chan struct{}),
	}
	if stat, err := os.Stat(overridesPath); err == nil {
		w.lastModTime = stat.ModTime()
	}
	return w, nil
}

// SetChangeCallback registers a callback invoked after each reload.
func (w *Watcher) SetChangeCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins watching the overrides file's directory.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.overridesPath)
	if err := w.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("Failed to watch config directory")
		return err
	}

	go w.watchLoop()
	log.Info().Str("path", w.overridesPath).Msg("Watching machine overrides file")
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close config watcher")
	}
}

func (w *Watcher) watchLoop() {
	// Editors replace files rather than writing in place, so debounce on
	// mod time instead of trusting individual event types.
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.overridesPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handleChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleChange() {
	stat, err := os.Stat(w.overridesPath)
	if err != nil {
		return
	}

	w.mu.Lock()
	if !stat.ModTime().After(w.lastModTime) {
		w.mu.Unlock()
		return
	}
	w.lastModTime = stat.ModTime()
	callback := w.onChange
	w.mu.Unlock()

	log.Info().Str("path", w.overridesPath).Msg("Machine overrides changed, reloading")

	if values, err := godotenv.Read(w.overridesPath); err == nil {
		if level, ok := values[KeyLogLevel]; ok {
			logging.SetLevel(level)
			log.Info().Str("level", level).Msg("Log level updated from overrides")
		}
	}

	if callback != nil {
		callback()
	}
}
