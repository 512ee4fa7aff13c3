package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Manifest describes preregistered services and routes, loaded at Registry
// startup (and again on every reload by ManifestWatcher) to seed
// serviceMetadata.preregistered (§3) — a mechanism
// spec.md names but never defines; this is that definition.
type Manifest struct {
	Services []ManifestService `yaml:"services"`
	Routes   []ManifestRoute   `yaml:"routes"`
}

// ManifestService is one preregistered service entry.
type ManifestService struct {
	Name        string `yaml:"name"`
	Location    string `yaml:"location"`
	AuthService string `yaml:"authService"`
	Public      bool   `yaml:"public"`
	PullOnly    bool   `yaml:"pullOnly"`
	Type        string `yaml:"type"`
}

// ManifestRoute is one preregistered route entry.
type ManifestRoute struct {
	Service   string `yaml:"service"`
	Path      string `yaml:"path"`
	DataType  string `yaml:"dataType"`
	RouteType string `yaml:"routeType"`
}

// LoadManifest reads and parses a manifest YAML file. A missing path is not
// an error — the manifest is entirely optional.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// ManifestWatcher hot-reloads a manifest file and delivers each successfully
// parsed revision on Updates(). Modeled on the teacher pack's config file
// watcher: a buffered channel, non-blocking sends, initial load folded into
// Start().
type ManifestWatcher struct {
	path    string
	updates chan *Manifest
	fsw     *fsnotify.Watcher
	log     *slog.Logger
}

// NewManifestWatcher creates a watcher for path. If path is empty, Start
// returns immediately and Updates never fires — callers can unconditionally
// construct and start a watcher without branching on whether a manifest was
// configured.
func NewManifestWatcher(path string, log *slog.Logger) (*ManifestWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating manifest watcher: %w", err)
	}
	return &ManifestWatcher{
		path:    path,
		updates: make(chan *Manifest, 4),
		fsw:     fsw,
		log:     log,
	}, nil
}

// Updates returns the channel on which reloaded manifests are delivered.
func (w *ManifestWatcher) Updates() <-chan *Manifest {
	return w.updates
}

// Start loads the manifest once, then watches it for writes until the
// watcher is closed. It blocks; call it in a goroutine.
func (w *ManifestWatcher) Start() error {
	defer w.fsw.Close()

	if w.path == "" {
		return nil
	}

	if err := w.reload(); err != nil {
		w.log.Warn("manifest: initial load failed", "path", w.path, "error", err)
	}
	if err := w.fsw.Add(w.path); err != nil {
		return fmt.Errorf("config: watching manifest %s: %w", w.path, err)
	}
	w.log.Info("manifest: watching", "path", w.path)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := w.reload(); err != nil {
					w.log.Warn("manifest: reload failed", "path", w.path, "error", err)
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("manifest: watch error", "error", err)
		}
	}
}

func (w *ManifestWatcher) reload() error {
	m, err := LoadManifest(w.path)
	if err != nil {
		return err
	}
	select {
	case w.updates <- m:
		w.log.Info("manifest: reloaded", "path", w.path, "services", len(m.Services), "routes", len(m.Routes))
	default:
		w.log.Warn("manifest: update channel full, dropping reload")
	}
	return nil
}
