package payment

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// ProviderConfig carries what a provider factory needs.
type ProviderConfig struct {
	BaseURL   string
	SecretKey string
}

// ProviderFactory creates a Provider.
type ProviderFactory func(cfg ProviderConfig, client *http.Client) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider available by name.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// GetRegisteredProviders returns the registered provider names, sorted.
func GetRegisteredProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider instantiates a registered provider.
func NewProvider(name string, cfg ProviderConfig, client *http.Client) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("payment provider %q is not registered", name)
	}
	return factory(cfg, client), nil
}
