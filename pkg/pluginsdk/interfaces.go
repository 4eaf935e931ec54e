package pluginsdk

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	appTypes "github.com/pshmarlow/scripts-demos/types"
)

// Plugin defines the lifecycle of a report sink.
// Plugins should keep Process cheap and perform heavier work in Finalize.
type Plugin interface {
	// Name returns a unique, human-readable name for the plugin.
	Name() string
	// Init provides the plugin with context and allows it to prepare resources.
	Init(ctx Context) error
	// Process receives the finalized report of a run.
	Process(report appTypes.Report) error
	// Finalize is called on shutdown to flush and persist results.
	Finalize() error
}

// Storage exposes a minimal API for plugins to persist documents.
type Storage interface {
	StoreResults(ctx context.Context, results []interface{}, collectionName string) error
}

// ObjectStore puts whole blobs under a key, e.g. an S3 bucket.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType, contentEncoding string) (string, error)
}

// Metrics exposes a minimal API for emitting counters and observations.
type Metrics interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
}

// NoopMetrics is a default metrics implementation doing nothing.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(_ string, _ map[string]string)                  {}
func (NoopMetrics) ObserveHistogram(_ string, _ float64, _ map[string]string) {}

// CounterMetrics keeps counters in memory. Histograms are ignored.
type CounterMetrics struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewCounterMetrics returns an empty CounterMetrics.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counters: make(map[string]int)}
}

func (m *CounterMetrics) IncCounter(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	if len(labels) > 0 {
		m.counters[labelled(name, labels)]++
	}
}

func (m *CounterMetrics) ObserveHistogram(_ string, _ float64, _ map[string]string) {}

// Count returns the counter for name, optionally narrowed to labels.
func (m *CounterMetrics) Count(name string, labels map[string]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(labels) > 0 {
		return m.counters[labelled(name, labels)]
	}
	return m.counters[name]
}

func labelled(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("{" + k + "=" + labels[k] + "}")
	}
	return b.String()
}

// Context gives plugins access to common facilities without coupling to internals.
type Context struct {
	// Ctx is a base context for background operations.
	Ctx context.Context
	// Logger is named per plugin by the loader.
	Logger *zap.Logger
	// Storage persists documents to the main DB. May be nil.
	Storage Storage
	// Objects archives blobs. May be nil.
	Objects ObjectStore
	// Metrics for optional instrumentation.
	Metrics Metrics
	// Config is the loaded application config.
	Config AppConfig
}

// AppConfig is a read-only view of app configuration relevant to plugins.
type AppConfig interface {
	GetRunID() string
	GetOutputPath() string
}

// PluginConfig declares plugin selection in app config. Kept in SDK so
// external tools can share the structure without depending on internal packages.
type PluginConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}
