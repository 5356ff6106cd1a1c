package identity

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/easternmills/millops/pkg/access"
)

// Provider is the protocol-specific half of the identity boundary. A
// successful callback yields the principal the access resolver consumes.
type Provider interface {
	// Name returns the provider instance name used in login URLs.
	Name() string

	// Type returns the provider protocol.
	Type() ProviderType

	// InitiateLogin redirects the browser to the provider's login flow.
	InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error

	// HandleCallback processes the provider callback and returns the
	// authenticated principal.
	HandleCallback(w http.ResponseWriter, r *http.Request) (*access.Principal, error)
}

// providersFile is the on-disk shape of the identity configuration.
type providersFile struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// Registry holds the configured providers and reloads them when the
// configuration file changes. Lookups are lock-cheap; reloads swap the whole
// map under the write lock.
type Registry struct {
	baseURL string
	logger  logrus.FieldLogger

	mu        sync.RWMutex
	providers map[string]Provider

	watcher *fsnotify.Watcher
}

// NewRegistry creates a registry from the identity configuration file.
func NewRegistry(ctx context.Context, path, baseURL string, logger logrus.FieldLogger) (*Registry, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Registry{
		baseURL:   baseURL,
		logger:    logger,
		providers: make(map[string]Provider),
	}
	if err := r.loadFile(ctx, path); err != nil {
		return nil, err
	}
	return r, nil
}

// Watch reloads the registry whenever the configuration file is rewritten.
// It returns once the watcher is installed; reloads happen on a background
// goroutine until ctx is done.
func (r *Registry) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	r.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.loadFile(ctx, path); err != nil {
					r.logger.WithError(err).Warn("identity config reload failed, keeping previous providers")
					continue
				}
				r.logger.WithField("path", path).Info("identity providers reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.WithError(err).Warn("identity config watcher error")
			}
		}
	}()
	return nil
}

// loadFile parses the YAML file and builds fresh provider instances. A
// provider that fails to construct is skipped with a warning rather than
// taking down the rest.
func (r *Registry) loadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read identity config: %w", err)
	}

	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse identity config: %w", err)
	}

	providers := make(map[string]Provider, len(file.Providers))
	for i := range file.Providers {
		cfg := &file.Providers[i]
		if !cfg.Enabled {
			continue
		}
		provider, err := r.buildProvider(ctx, cfg)
		if err != nil {
			r.logger.WithError(err).WithField("provider", cfg.Name).
				Warn("skipping identity provider")
			continue
		}
		providers[cfg.Name] = provider
	}

	r.mu.Lock()
	r.providers = providers
	r.mu.Unlock()
	return nil
}

func (r *Registry) buildProvider(ctx context.Context, cfg *ProviderConfig) (Provider, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	switch cfg.ProviderType {
	case ProviderTypeOIDC:
		if cfg.OIDC == nil {
			return nil, fmt.Errorf("oidc config is required for provider %s", cfg.Name)
		}
		return NewOIDCProvider(ctx, cfg.Name, cfg.OIDC)
	case ProviderTypeSAML:
		if cfg.SAML == nil {
			return nil, fmt.Errorf("saml config is required for provider %s", cfg.Name)
		}
		return NewSAMLProvider(cfg.Name, cfg.SAML, r.baseURL)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.ProviderType)
	}
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the configured provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
