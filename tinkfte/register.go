package tinkfte

import (
	"sync"

	"github.com/google/tink/go/core/registry"
)

var registerMu sync.Mutex

// Register registers the header KeyManager with Tink's registry. It is safe
// to call multiple times; the factories of this package call it themselves.
func Register() error {
	registerMu.Lock()
	defer registerMu.Unlock()

	// GetKeyManager fails for type URLs that are not registered yet
	if _, err := registry.GetKeyManager(HeaderKeyTypeURL); err == nil {
		return nil
	}
	return registry.RegisterKeyManager(NewKeyManager())
}
