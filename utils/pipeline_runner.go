package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/annolab-ml/annolab-go/pipelines"
)

// PipelineRunner executes a sequence of plugin steps, threading each step's
// output through a shared context. Steps run strictly in order; the first
// failure aborts the run without executing later steps.
type PipelineRunner struct {
	registry *pipelines.PluginRegistry
	logger   *Logger
}

// NewPipelineRunner creates a runner over the given registry
func NewPipelineRunner(registry *pipelines.PluginRegistry, logger *Logger) *PipelineRunner {
	return &PipelineRunner{registry: registry, logger: logger}
}

// ExecuteSteps runs the steps against the shared context
func (r *PipelineRunner) ExecuteSteps(ctx context.Context, steps []pipelines.StepConfig, globalContext *pipelines.PluginContext) error {
	for _, step := range steps {
		pluginType, pluginName, err := splitPluginRef(step.Plugin)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}

		plugin, err := r.registry.GetPlugin(pluginType, pluginName)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}

		start := time.Now()
		r.logger.Debug("executing step", Component("runner"), String("step", step.Name), String("plugin", step.Plugin))

		output, err := plugin.ExecuteStep(ctx, step, globalContext)
		if err != nil {
			return fmt.Errorf("step %q failed: %w", step.Name, err)
		}

		globalContext.Merge(output)
		r.logger.Debug("step completed", Component("runner"), String("step", step.Name), Duration("took", time.Since(start)))
	}
	return nil
}

// splitPluginRef parses a "Type.name" plugin reference
func splitPluginRef(ref string) (string, string, error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid plugin reference %q, want Type.name", ref)
	}
	return parts[0], parts[1], nil
}
