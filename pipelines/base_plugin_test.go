package pipelines

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	pluginType string
	name       string
}

func (p *stubPlugin) ExecuteStep(ctx context.Context, stepConfig StepConfig, globalContext *PluginContext) (*PluginContext, error) {
	return NewPluginContext(), nil
}

func (p *stubPlugin) GetPluginType() string                      { return p.pluginType }
func (p *stubPlugin) GetPluginName() string                      { return p.name }
func (p *stubPlugin) ValidateConfig(config map[string]any) error { return nil }

func TestPluginContext(t *testing.T) {
	t.Run("set get delete", func(t *testing.T) {
		pc := NewPluginContext()
		pc.Set("rows", 200)

		value, exists := pc.Get("rows")
		require.True(t, exists)
		assert.Equal(t, 200, value)
		assert.Equal(t, 1, pc.Size())

		pc.Delete("rows")
		_, exists = pc.Get("rows")
		assert.False(t, exists)
		assert.Equal(t, 0, pc.Size())
	})

	t.Run("keys", func(t *testing.T) {
		pc := NewPluginContext()
		pc.Set("items", nil)
		pc.Set("annotations", nil)

		keys := pc.Keys()
		sort.Strings(keys)
		assert.Equal(t, []string{"annotations", "items"}, keys)
	})

	t.Run("merge overwrites on collision", func(t *testing.T) {
		pc := NewPluginContext()
		pc.Set("stage", "sample")
		pc.Set("seed", 42)

		other := NewPluginContext()
		other.Set("stage", "prepare")
		other.Set("min_support", 300)

		pc.Merge(other)
		assert.Equal(t, 3, pc.Size())

		stage, _ := pc.Get("stage")
		assert.Equal(t, "prepare", stage)
		seed, _ := pc.Get("seed")
		assert.Equal(t, 42, seed)
	})

	t.Run("merge nil is a no-op", func(t *testing.T) {
		pc := NewPluginContext()
		pc.Set("stage", "sample")
		pc.Merge(nil)
		assert.Equal(t, 1, pc.Size())
	})

	t.Run("metadata", func(t *testing.T) {
		pc := NewPluginContext()
		pc.SetMetadata("run_id", "run-1")

		value, exists := pc.GetMetadata("run_id")
		require.True(t, exists)
		assert.Equal(t, "run-1", value)

		_, exists = pc.Get("run_id")
		assert.False(t, exists, "metadata must not leak into data")
	})

	t.Run("concurrent access", func(t *testing.T) {
		pc := NewPluginContext()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func(n int) {
				defer wg.Done()
				pc.Set("counter", n)
			}(i)
			go func() {
				defer wg.Done()
				pc.Get("counter")
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, pc.Size())
	})
}

func TestPluginRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		registry := NewPluginRegistry()
		plugin := &stubPlugin{pluginType: "Input", name: "csv"}
		require.NoError(t, registry.RegisterPlugin(plugin))

		fetched, err := registry.GetPlugin("Input", "csv")
		require.NoError(t, err)
		assert.Same(t, plugin, fetched.(*stubPlugin))
	})

	t.Run("duplicate registration is rejected", func(t *testing.T) {
		registry := NewPluginRegistry()
		require.NoError(t, registry.RegisterPlugin(&stubPlugin{pluginType: "Input", name: "csv"}))
		err := registry.RegisterPlugin(&stubPlugin{pluginType: "Input", name: "csv"})
		assert.Error(t, err)
	})

	t.Run("same name under different types", func(t *testing.T) {
		registry := NewPluginRegistry()
		require.NoError(t, registry.RegisterPlugin(&stubPlugin{pluginType: "Input", name: "csv"}))
		require.NoError(t, registry.RegisterPlugin(&stubPlugin{pluginType: "Output", name: "csv"}))

		types := registry.ListPluginTypes()
		sort.Strings(types)
		assert.Equal(t, []string{"Input", "Output"}, types)
	})

	t.Run("unknown plugin", func(t *testing.T) {
		registry := NewPluginRegistry()
		_, err := registry.GetPlugin("Input", "parquet")
		assert.Error(t, err)
	})

	t.Run("plugins by type", func(t *testing.T) {
		registry := NewPluginRegistry()
		require.NoError(t, registry.RegisterPlugin(&stubPlugin{pluginType: "Input", name: "csv"}))

		inputs := registry.GetPluginsByType("Input")
		assert.Len(t, inputs, 1)
		assert.Empty(t, registry.GetPluginsByType("ML"))
	})
}
