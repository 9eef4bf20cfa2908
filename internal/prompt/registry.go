package prompt

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Template names served by the registry.
const (
	UserTemplate   = "prompt.txt"
	SystemTemplate = "system_prompt.txt"
)

var templateNames = []string{UserTemplate, SystemTemplate}

// Registry serves the prompt templates. Defaults are embedded in the binary;
// files in the override directory shadow them and can be hot-reloaded.
type Registry struct {
	overrideDir string
	logger      *slog.Logger

	templates   map[string]string
	templatesMu sync.RWMutex

	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
	debounce    time.Duration
}

// NewRegistry loads the templates and returns a ready registry. overrideDir
// may be empty. A template that is missing or blank is a configuration
// error.
func NewRegistry(overrideDir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		overrideDir: overrideDir,
		logger:      logger.With("component", "prompt"),
		templates:   make(map[string]string),
		debounce:    250 * time.Millisecond,
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load re-reads all templates. On failure the previously loaded set stays
// active.
func (r *Registry) Load() error {
	loaded := make(map[string]string, len(templateNames))
	for _, name := range templateNames {
		content, err := r.read(name)
		if err != nil {
			return err
		}
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("template %s is empty", name)
		}
		loaded[name] = content
	}

	r.templatesMu.Lock()
	r.templates = loaded
	r.templatesMu.Unlock()
	return nil
}

func (r *Registry) read(name string) (string, error) {
	if r.overrideDir != "" {
		data, err := os.ReadFile(filepath.Join(r.overrideDir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read template override %s: %w", name, err)
		}
	}
	data, err := fs.ReadFile(BuiltinFS(), name)
	if err != nil {
		return "", fmt.Errorf("read builtin template %s: %w", name, err)
	}
	return string(data), nil
}

// Get returns a template by name.
func (r *Registry) Get(name string) (string, error) {
	r.templatesMu.RLock()
	defer r.templatesMu.RUnlock()
	content, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	return content, nil
}

// User returns the user prompt template.
func (r *Registry) User() string {
	content, _ := r.Get(UserTemplate)
	return content
}

// System returns the system prompt template.
func (r *Registry) System() string {
	content, _ := r.Get(SystemTemplate)
	return content
}

// StartWatching reloads templates when files in the override directory
// change. It is a no-op without an override directory.
func (r *Registry) StartWatching(ctx context.Context) error {
	if r.overrideDir == "" {
		return nil
	}
	if r.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.overrideDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch template overrides: %w", err)
	}
	r.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	r.watchCancel = cancel

	r.watchWg.Add(1)
	go r.watchLoop(watchCtx, watcher)
	return nil
}

// Close stops the watcher if one is active.
func (r *Registry) Close() error {
	if r.watchCancel != nil {
		r.watchCancel()
		r.watchCancel = nil
	}
	watcher := r.watcher
	r.watcher = nil
	if watcher != nil {
		_ = watcher.Close()
	}
	r.watchWg.Wait()
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer r.watchWg.Done()

	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(r.debounce, func() {
			if err := r.Load(); err != nil {
				r.logger.Warn("template reload failed, keeping previous set", "error", err)
				return
			}
			r.logger.Info("templates reloaded")
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("template watch error", "error", err)
		}
	}
}
