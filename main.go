// Entry point for the annolab dataset pipeline CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/annolab-ml/annolab-go/pipelines"
	Input "github.com/annolab-ml/annolab-go/pipelines/Input"
	ml "github.com/annolab-ml/annolab-go/pipelines/ML"
	Output "github.com/annolab-ml/annolab-go/pipelines/Output"
	"github.com/annolab-ml/annolab-go/utils"
)

const annolabVersion = "v0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}

	switch args[0] {
	case "-h", "--help", "help":
		printHelp()
		return
	case "-v", "--version":
		fmt.Println("annolab version:", annolabVersion)
		return
	}

	command := args[0]
	configPath := filepath.Join(".", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = ""
	}

	// Commands with an extra positional argument shift the config path.
	rest := args[1:]
	var modelID string
	if command == "evaluate" {
		if len(rest) == 0 {
			fmt.Fprintln(os.Stderr, "Error: evaluate requires a model id")
			os.Exit(1)
		}
		modelID = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		configPath = rest[0]
	}

	app, err := newApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.store.Close()

	ctx := context.Background()

	switch command {
	case "sample":
		err = app.runSample(ctx)
	case "prepare":
		err = app.runPrepare(ctx)
	case "train":
		err = app.runTrain(ctx)
	case "evaluate":
		err = app.runEvaluate(ctx, modelID)
	case "run":
		err = app.runAll(ctx)
	case "schedule":
		err = app.runSchedule()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Use --help for usage.\n", command)
		os.Exit(1)
	}

	if err != nil {
		app.logger.Error("command failed", err, utils.String("command", command))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`annolab - crowd-annotated tweet classification pipeline

Usage:
  annolab <command> [config.yaml]

Commands:
  sample              draw a balanced, seeded sample from the item pool
  prepare             aggregate annotations, filter rare classes, remap labels
  train               split, fine-tune via the external trainer, evaluate
  evaluate <model>    score an existing model on the held-out test set
  run                 sample, prepare and train in one pass
  schedule            run the full pipeline on the configured cron cadence

  -h, --help          show this help
  -v, --version       show the version`)
}

// app wires the configuration, logging, plugin registry and run store for
// one CLI invocation
type app struct {
	config *utils.Config
	logger *utils.Logger
	runner *utils.PipelineRunner
	store  *utils.RunStore
}

func newApp(configPath string) (*app, error) {
	config, err := utils.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := utils.NewLogger()
	logger.SetLevel(utils.ParseLogLevel(config.Log.Level))
	logger.SetFormat(config.Log.Format)

	registry := pipelines.NewPluginRegistry()
	if err := registry.RegisterPlugin(Input.NewCSVPlugin()); err != nil {
		return nil, err
	}
	if err := registry.RegisterPlugin(Output.NewCSVPlugin()); err != nil {
		return nil, err
	}

	store, err := utils.NewRunStore(config.Store.Path)
	if err != nil {
		return nil, err
	}

	return &app{
		config: config,
		logger: logger,
		runner: utils.NewPipelineRunner(registry, logger),
		store:  store,
	}, nil
}

// readTable runs one Input.csv step and returns the parsed rows
func (a *app) readTable(ctx context.Context, name, filePath string, requiredColumns []string) ([]map[string]any, error) {
	globalContext := pipelines.NewPluginContext()
	steps := []pipelines.StepConfig{{
		Name:   name,
		Plugin: "Input.csv",
		Config: map[string]any{
			"file_path":        filePath,
			"required_columns": requiredColumns,
		},
		Output: "table",
	}}
	if err := a.runner.ExecuteSteps(ctx, steps, globalContext); err != nil {
		return nil, err
	}

	value, _ := globalContext.Get("table")
	table, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("step %q produced no table", name)
	}
	rows, ok := table["rows"].([]map[string]any)
	if !ok {
		return nil, fmt.Errorf("step %q produced no rows", name)
	}
	return rows, nil
}

// writeTable runs one Output.csv step writing the given table
func (a *app) writeTable(ctx context.Context, name, filePath string, columns []string, rows []map[string]any) error {
	globalContext := pipelines.NewPluginContext()
	globalContext.Set("table", map[string]any{"columns": columns, "rows": rows})

	steps := []pipelines.StepConfig{{
		Name:   name,
		Plugin: "Output.csv",
		Config: map[string]any{
			"file_path": filePath,
			"input":     "table",
		},
		Output: "written",
	}}
	return a.runner.ExecuteSteps(ctx, steps, globalContext)
}

// recordRun persists the outcome of one stage
func (a *app) recordRun(runID, stage string, rowsIn, rowsOut int, modelID string, runErr error) {
	record := utils.RunRecord{
		ID:      runID,
		Stage:   stage,
		Status:  "completed",
		RowsIn:  rowsIn,
		RowsOut: rowsOut,
		ModelID: modelID,
	}
	if runErr != nil {
		record.Status = "failed"
		record.Error = runErr.Error()
	}
	if err := a.store.RecordRun(record); err != nil {
		a.logger.Warn("failed to record run", utils.Component("store"), utils.RunID(runID), utils.Err(err))
	}
}

func (a *app) sampledPath() string  { return filepath.Join(a.config.OutputDir, "sampled.csv") }
func (a *app) preparedPath() string { return filepath.Join(a.config.OutputDir, "prepared.tsv") }
func (a *app) trainPath() string    { return filepath.Join(a.config.OutputDir, "train.csv") }
func (a *app) testPath() string     { return filepath.Join(a.config.OutputDir, "test.csv") }

// runSample draws a balanced, seeded sample from the item pool and writes it
// for the annotation round
func (a *app) runSample(ctx context.Context) error {
	runID := utils.NewRunID()
	a.logger.Info("sampling items", utils.Component("sampler"), utils.RunID(runID),
		utils.Int("per_class", a.config.Sample.PerClass))

	rows, err := a.readTable(ctx, "read_items", a.config.ItemsPath, []string{"_id", "text", "sexist"})
	if err != nil {
		a.recordRun(runID, "sample", 0, 0, "", err)
		return err
	}

	items, err := ml.ItemsFromRows(rows)
	if err != nil {
		a.recordRun(runID, "sample", len(rows), 0, "", err)
		return err
	}

	sampler := ml.NewBalancedSampler(a.config.Sample.PerClass, a.config.Sample.Seed)
	sampled, err := sampler.Sample(items)
	if err != nil {
		a.recordRun(runID, "sample", len(items), 0, "", err)
		return err
	}

	columns, outRows := ml.ItemsToRows(sampled)
	if err := a.writeTable(ctx, "write_sampled", a.sampledPath(), columns, outRows); err != nil {
		a.recordRun(runID, "sample", len(items), 0, "", err)
		return err
	}

	a.recordRun(runID, "sample", len(items), len(sampled), "", nil)
	a.logger.Info("sample written", utils.Component("sampler"), utils.RunID(runID),
		utils.String("path", a.sampledPath()), utils.Int("rows", len(sampled)))
	return nil
}

// runPrepare aggregates crowd annotations by majority vote, drops rare
// classes and writes the densely relabeled dataset
func (a *app) runPrepare(ctx context.Context) error {
	runID := utils.NewRunID()
	a.logger.Info("preparing dataset", utils.Component("aggregator"), utils.RunID(runID),
		utils.String("category", a.config.Prepare.Category), utils.Int("min_support", a.config.Prepare.MinSupport))

	itemRows, err := a.readTable(ctx, "read_items", a.config.ItemsPath, []string{"_id", "text", "sexist"})
	if err != nil {
		a.recordRun(runID, "prepare", 0, 0, "", err)
		return err
	}
	items, err := ml.ItemsFromRows(itemRows)
	if err != nil {
		a.recordRun(runID, "prepare", len(itemRows), 0, "", err)
		return err
	}

	annotationRows, err := a.readTable(ctx, "read_annotations", a.config.AnnotationsPath, []string{"_id", "content", "phrasing"})
	if err != nil {
		a.recordRun(runID, "prepare", 0, 0, "", err)
		return err
	}
	annotations, err := ml.AnnotationsFromRows(annotationRows)
	if err != nil {
		a.recordRun(runID, "prepare", len(annotationRows), 0, "", err)
		return err
	}

	aggregator := ml.NewMajorityAggregator()
	aggregated, err := aggregator.Aggregate(annotations, items)
	if err != nil {
		a.recordRun(runID, "prepare", len(annotations), 0, "", err)
		return err
	}

	filter := ml.NewClassFilter(a.config.Prepare.Category, a.config.Prepare.MinSupport)
	filtered, mapping, err := filter.Apply(aggregated)
	if err != nil {
		a.recordRun(runID, "prepare", len(aggregated), 0, "", err)
		return err
	}

	if err := a.store.SaveLabelMapping(runID, mapping); err != nil {
		a.recordRun(runID, "prepare", len(aggregated), len(filtered), "", err)
		return err
	}

	columns, outRows := ml.AggregatedToRows(filtered)
	if err := a.writeTable(ctx, "write_prepared", a.preparedPath(), columns, outRows); err != nil {
		a.recordRun(runID, "prepare", len(aggregated), len(filtered), "", err)
		return err
	}

	a.recordRun(runID, "prepare", len(annotations), len(filtered), "", nil)
	a.logger.Info("prepared dataset written", utils.Component("aggregator"), utils.RunID(runID),
		utils.String("path", a.preparedPath()), utils.Int("rows", len(filtered)),
		utils.Int("classes", mapping.NumClasses()))
	return nil
}

// loadDataset builds the task dataset: binary straight from the sampled
// items, content from the prepared file
func (a *app) loadDataset(ctx context.Context) (*ml.LabeledDataset, error) {
	if a.config.Task == "binary" {
		rows, err := a.readTable(ctx, "read_sampled", a.sampledPath(), []string{"_id", "text", "sexist"})
		if err != nil {
			return nil, err
		}
		items, err := ml.ItemsFromRows(rows)
		if err != nil {
			return nil, err
		}
		return ml.DatasetFromItems(items), nil
	}

	rows, err := a.readTable(ctx, "read_prepared", a.preparedPath(), []string{"text", "content_label"})
	if err != nil {
		return nil, err
	}
	return ml.DatasetFromPrepared(rows)
}

func (a *app) newTrainer() (*ml.RemoteTrainer, error) {
	return ml.NewRemoteTrainer(ml.RemoteTrainerConfig{
		Endpoint: a.config.Trainer.Endpoint,
		APIKey:   a.config.Trainer.APIKey,
		Timeout:  a.config.Trainer.TimeoutSeconds,
	})
}

// runTrain splits the dataset, fine-tunes a classifier via the external
// trainer and evaluates it on the held-out test set
func (a *app) runTrain(ctx context.Context) error {
	runID := utils.NewRunID()

	dataset, err := a.loadDataset(ctx)
	if err != nil {
		a.recordRun(runID, "train", 0, 0, "", err)
		return err
	}

	splitter := ml.NewStratifiedSplitter(a.config.Split.TestFraction, a.config.Split.Seed)
	trainSet, testSet, err := splitter.Split(dataset)
	if err != nil {
		a.recordRun(runID, "train", dataset.Len(), 0, "", err)
		return err
	}

	trainColumns, trainRows := ml.DatasetToRows(trainSet)
	if err := a.writeTable(ctx, "write_train", a.trainPath(), trainColumns, trainRows); err != nil {
		a.recordRun(runID, "train", dataset.Len(), 0, "", err)
		return err
	}
	testColumns, testRows := ml.DatasetToRows(testSet)
	if err := a.writeTable(ctx, "write_test", a.testPath(), testColumns, testRows); err != nil {
		a.recordRun(runID, "train", dataset.Len(), 0, "", err)
		return err
	}

	trainer, err := a.newTrainer()
	if err != nil {
		a.recordRun(runID, "train", dataset.Len(), 0, "", err)
		return err
	}

	fineTuneConfig := ml.FineTuneConfig{
		BaseModel:  a.config.Trainer.BaseModel,
		Epochs:     a.config.Trainer.Epochs,
		Device:     a.config.Trainer.Device,
		NumClasses: dataset.NumClasses,
	}

	a.logger.Info("fine-tuning classifier", utils.Component("trainer"), utils.RunID(runID),
		utils.String("base_model", fineTuneConfig.BaseModel),
		utils.Int("train_rows", trainSet.Len()), utils.Int("test_rows", testSet.Len()))

	result, err := ml.TrainClassifier(ctx, trainer, trainSet, fineTuneConfig)
	if err != nil {
		a.recordRun(runID, "train", trainSet.Len(), 0, "", err)
		return err
	}

	a.recordRun(runID, "train", trainSet.Len(), trainSet.Len(), result.ModelID, nil)
	a.logger.Info("training finished", utils.Component("trainer"), utils.RunID(runID),
		utils.String("model_id", result.ModelID), utils.Duration("took", result.TrainingDuration))

	metrics, err := ml.EvaluatePredictor(ctx, result.Predictor, testSet)
	if err != nil {
		return err
	}
	if err := a.store.SaveMetrics(runID, result.ModelID, metrics); err != nil {
		return err
	}

	fmt.Println(metrics.Report())
	return nil
}

// runEvaluate scores an already trained model on the persisted test split
func (a *app) runEvaluate(ctx context.Context, modelID string) error {
	runID := utils.NewRunID()

	rows, err := a.readTable(ctx, "read_test", a.testPath(), []string{"text", "label"})
	if err != nil {
		a.recordRun(runID, "evaluate", 0, 0, modelID, err)
		return err
	}
	testSet, err := ml.DatasetFromRows(rows)
	if err != nil {
		a.recordRun(runID, "evaluate", len(rows), 0, modelID, err)
		return err
	}

	trainer, err := a.newTrainer()
	if err != nil {
		a.recordRun(runID, "evaluate", testSet.Len(), 0, modelID, err)
		return err
	}
	predictor, err := trainer.PredictorFor(modelID)
	if err != nil {
		a.recordRun(runID, "evaluate", testSet.Len(), 0, modelID, err)
		return err
	}

	metrics, err := ml.EvaluatePredictor(ctx, predictor, testSet)
	if err != nil {
		a.recordRun(runID, "evaluate", testSet.Len(), 0, modelID, err)
		return err
	}

	if err := a.store.SaveMetrics(runID, modelID, metrics); err != nil {
		return err
	}
	a.recordRun(runID, "evaluate", testSet.Len(), testSet.Len(), modelID, nil)

	fmt.Println(metrics.Report())
	return nil
}

// runAll executes the full pipeline: sample, prepare (content task only)
// and train
func (a *app) runAll(ctx context.Context) error {
	if err := a.runSample(ctx); err != nil {
		return err
	}
	if a.config.Task == "content" {
		if err := a.runPrepare(ctx); err != nil {
			return err
		}
	}
	return a.runTrain(ctx)
}

// runSchedule runs the full pipeline on the configured cron cadence until
// interrupted
func (a *app) runSchedule() error {
	if a.config.Schedule.CronExpr == "" {
		return fmt.Errorf("schedule.cron_expr is required for the schedule command")
	}

	scheduler := utils.NewScheduler(a.logger)
	if _, err := scheduler.AddJob("retrain", a.config.Schedule.CronExpr, a.runAll); err != nil {
		return err
	}

	scheduler.Start()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutting down scheduler")
	return nil
}
