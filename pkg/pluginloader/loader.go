package pluginloader

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/pkg/logging"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	appTypes "github.com/pshmarlow/scripts-demos/types"
)

// Factory creates a new Plugin instance.
type Factory func() pluginsdk.Plugin

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register allows sinks to self-register by name.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// Registered returns the registered plugin names, sorted.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Loader is responsible for managing plugin lifecycle and dispatching reports.
type Loader struct {
	plugins []pluginsdk.Plugin
	logger  *zap.Logger
}

// New creates a Loader and initializes enabled plugins from config.
func New(pctx pluginsdk.Context, cfgs []pluginsdk.PluginConfig) (*Loader, error) {
	logger := logging.OrNop(pctx.Logger).Named("pluginloader")
	if pctx.Metrics == nil {
		pctx.Metrics = pluginsdk.NoopMetrics{}
	}
	l := &Loader{logger: logger}

	for _, pcfg := range cfgs {
		if !pcfg.Enabled {
			continue
		}
		factory, ok := lookup(pcfg.Name)
		if !ok {
			logger.Warn("plugin not found in registry; skipping", zap.String("plugin", pcfg.Name))
			continue
		}
		inst := factory()
		ictx := pctx
		ictx.Logger = logging.OrNop(pctx.Logger).Named(inst.Name())
		if err := inst.Init(ictx); err != nil {
			return nil, fmt.Errorf("init plugin %s: %w", pcfg.Name, err)
		}
		l.plugins = append(l.plugins, inst)
		logger.Info("initialized plugin", zap.String("plugin", inst.Name()))
	}
	return l, nil
}

// Plugins returns the active plugin names in initialization order.
func (l *Loader) Plugins() []string {
	names := make([]string, len(l.plugins))
	for i, p := range l.plugins {
		names[i] = p.Name()
	}
	return names
}

// Dispatch passes the report to all active plugins. Failures are logged and
// counted; the first one is returned.
func (l *Loader) Dispatch(report appTypes.Report) error {
	var first error
	for _, p := range l.plugins {
		if err := p.Process(report); err != nil {
			l.logger.Error("plugin process error", zap.String("plugin", p.Name()), zap.Error(err))
			if first == nil {
				first = fmt.Errorf("plugin %s: %w", p.Name(), err)
			}
		}
	}
	return first
}

// Finalize calls Finalize on all active plugins.
func (l *Loader) Finalize() error {
	var first error
	for _, p := range l.plugins {
		if err := p.Finalize(); err != nil {
			l.logger.Error("plugin finalize error", zap.String("plugin", p.Name()), zap.Error(err))
			if first == nil {
				first = fmt.Errorf("plugin %s: %w", p.Name(), err)
			}
		}
	}
	return first
}
