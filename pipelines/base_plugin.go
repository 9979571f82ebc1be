package pipelines

import (
	"context"
	"fmt"
	"sync"
)

// PluginContext carries values between pipeline steps. Each step reads the
// outputs of earlier steps from here and publishes its own under the key
// named by its StepConfig.Output.
type PluginContext struct {
	data     map[string]any
	metadata map[string]any
	mutex    sync.RWMutex
}

// NewPluginContext creates an empty PluginContext
func NewPluginContext() *PluginContext {
	return &PluginContext{
		data:     make(map[string]any),
		metadata: make(map[string]any),
	}
}

// Get retrieves a value by key
func (pc *PluginContext) Get(key string) (any, bool) {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()
	value, exists := pc.data[key]
	return value, exists
}

// Set stores a value by key
func (pc *PluginContext) Set(key string, value any) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	pc.data[key] = value
}

// Delete removes a value by key
func (pc *PluginContext) Delete(key string) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	delete(pc.data, key)
}

// Keys returns all keys in the context
func (pc *PluginContext) Keys() []string {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()
	keys := make([]string, 0, len(pc.data))
	for k := range pc.data {
		keys = append(keys, k)
	}
	return keys
}

// Size returns the number of items in the context
func (pc *PluginContext) Size() int {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()
	return len(pc.data)
}

// Merge copies every entry of other into this context, overwriting on
// key collision
func (pc *PluginContext) Merge(other *PluginContext) {
	if other == nil {
		return
	}
	other.mutex.RLock()
	defer other.mutex.RUnlock()
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	for k, v := range other.data {
		pc.data[k] = v
	}
}

// GetMetadata retrieves metadata by key
func (pc *PluginContext) GetMetadata(key string) (any, bool) {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()
	value, exists := pc.metadata[key]
	return value, exists
}

// SetMetadata stores metadata by key
func (pc *PluginContext) SetMetadata(key string, value any) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	pc.metadata[key] = value
}

// StepConfig represents the configuration for a single pipeline step
type StepConfig struct {
	Name   string         `yaml:"name"`
	Plugin string         `yaml:"plugin"`
	Config map[string]any `yaml:"config"`
	Output string         `yaml:"output,omitempty"`
}

// BasePlugin defines the interface that all plugins must implement
type BasePlugin interface {
	// ExecuteStep executes a single pipeline step
	ExecuteStep(ctx context.Context, stepConfig StepConfig, globalContext *PluginContext) (*PluginContext, error)

	// GetPluginType returns the type of plugin (Input, ML, Output)
	GetPluginType() string

	// GetPluginName returns the name of the plugin
	GetPluginName() string

	// ValidateConfig validates the plugin configuration
	ValidateConfig(config map[string]any) error
}

// PluginRegistry holds all registered plugins
type PluginRegistry struct {
	plugins map[string]map[string]BasePlugin // pluginType -> pluginName -> plugin
}

// NewPluginRegistry creates a new plugin registry
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		plugins: make(map[string]map[string]BasePlugin),
	}
}

// RegisterPlugin registers a plugin in the registry
func (pr *PluginRegistry) RegisterPlugin(plugin BasePlugin) error {
	pluginType := plugin.GetPluginType()
	pluginName := plugin.GetPluginName()

	if pr.plugins[pluginType] == nil {
		pr.plugins[pluginType] = make(map[string]BasePlugin)
	}

	if _, exists := pr.plugins[pluginType][pluginName]; exists {
		return fmt.Errorf("plugin %s of type %s already registered", pluginName, pluginType)
	}

	pr.plugins[pluginType][pluginName] = plugin
	return nil
}

// GetPlugin retrieves a plugin by type and name
func (pr *PluginRegistry) GetPlugin(pluginType, pluginName string) (BasePlugin, error) {
	if typePlugins, exists := pr.plugins[pluginType]; exists {
		if plugin, exists := typePlugins[pluginName]; exists {
			return plugin, nil
		}
	}
	return nil, fmt.Errorf("plugin %s of type %s not found", pluginName, pluginType)
}

// GetPluginsByType returns all plugins of a specific type
func (pr *PluginRegistry) GetPluginsByType(pluginType string) map[string]BasePlugin {
	if plugins, exists := pr.plugins[pluginType]; exists {
		return plugins
	}
	return make(map[string]BasePlugin)
}

// ListPluginTypes returns all available plugin types
func (pr *PluginRegistry) ListPluginTypes() []string {
	var types []string
	for pluginType := range pr.plugins {
		types = append(types, pluginType)
	}
	return types
}
