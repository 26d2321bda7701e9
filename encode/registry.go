// Package encode implements the Encoder capability (§6): embedding a query
// or a batch of passages into fixed-dimension vectors. The HTTP-backed DPR
// implementation is the default; a registry lets a host application swap in
// a different bi-encoder or a single-encoder fallback without touching the
// retrieval core.
package encode

import (
	"fmt"
	"sync"
	"time"

	"github.com/corvid-labs/hybridqa/index"
)

// Config holds the settings needed to construct an Encoder. Different
// factories use different subsets.
type Config struct {
	// APIKey authenticates with the encoder's service. Empty for local models.
	APIKey string
	// QueryModel and PassageModel name the two sides of a bi-encoder. A
	// single-encoder fallback (§6) may use the same name for both.
	QueryModel   string
	PassageModel string
	// QueryURL and PassageURL are the HTTP endpoints serving each model.
	QueryURL   string
	PassageURL string
	// Dimension is the expected output width D. Encoder results are not
	// checked against it; DenseIndex checks on commit that every row has
	// the width of the first row it stored.
	Dimension int
	// RequestsPerSecond throttles outbound encoding calls. Zero disables
	// throttling.
	RequestsPerSecond float64
	// Timeout bounds a single HTTP round trip. Zero uses a 30s default.
	Timeout time.Duration
}

// Factory constructs an Encoder from a Config.
type Factory func(cfg Config) (index.Encoder, error)

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var globalRegistry = &registry{factories: make(map[string]Factory)}

// Register adds a named encoder factory to the global registry, overwriting
// any existing entry of the same name.
func Register(name string, factory Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories[name] = factory
}

// Get constructs a new Encoder using the named factory and the given config.
func Get(name string, cfg Config) (index.Encoder, error) {
	globalRegistry.mu.RLock()
	factory, ok := globalRegistry.factories[name]
	globalRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("encode: provider not found: %s", name)
	}
	return factory(cfg)
}

// List returns the names of all registered encoder factories.
func List() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	names := make([]string, 0, len(globalRegistry.factories))
	for name := range globalRegistry.factories {
		names = append(names, name)
	}
	return names
}

func init() {
	Register("dpr", func(cfg Config) (index.Encoder, error) { return NewDPREncoder(cfg) })
}
