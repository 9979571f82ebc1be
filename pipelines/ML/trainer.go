package ml

import (
	"context"
	"fmt"
	"time"
)

// Device preferences accepted by the external trainer
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// FineTuneConfig carries the knobs the external trainer accepts. The
// pipeline never looks inside the training process itself.
type FineTuneConfig struct {
	BaseModel  string `json:"base_model"`
	Epochs     int    `json:"epochs"`
	Device     string `json:"device"`
	NumClasses int    `json:"num_classes"`
}

// DefaultFineTuneConfig returns the reference configuration
func DefaultFineTuneConfig() FineTuneConfig {
	return FineTuneConfig{
		BaseModel: "bert-base-uncased",
		Epochs:    2,
		Device:    DeviceCPU,
	}
}

// Validate checks the config before it is sent to the trainer
func (c FineTuneConfig) Validate() error {
	if c.BaseModel == "" {
		return fmt.Errorf("base_model is required")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.Device != DeviceCPU && c.Device != DeviceCUDA {
		return fmt.Errorf("unknown device %q", c.Device)
	}
	return nil
}

// Prediction is the trainer's verdict on one text
type Prediction struct {
	Label         int       `json:"label"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

// Predictor is an opaque handle to a trained model. The pipeline never
// parses the underlying artifact; it only asks for predictions.
type Predictor interface {
	// ModelID returns the trainer-side identifier of the artifact
	ModelID() string

	// Predict returns one prediction per input text, in order
	Predict(ctx context.Context, texts []string) ([]Prediction, error)
}

// ClassifierTrainer is the external fine-tuning capability. Implementations
// bind to a real ML runtime; this package only defines the contract.
type ClassifierTrainer interface {
	Train(ctx context.Context, trainSet *LabeledDataset, config FineTuneConfig) (Predictor, error)
}

// TrainResult pairs the trained predictor with run bookkeeping
type TrainResult struct {
	Predictor        Predictor     `json:"-"`
	ModelID          string        `json:"model_id"`
	TrainingRows     int           `json:"training_rows"`
	TrainingDuration time.Duration `json:"training_duration"`
	Config           FineTuneConfig `json:"config"`
}

// TrainClassifier validates inputs, invokes the external trainer once and
// wraps any failure as TrainerFailure. The call is blocking and atomic: it
// either returns a usable predictor or an error, never partial state.
func TrainClassifier(ctx context.Context, trainer ClassifierTrainer, trainSet *LabeledDataset, config FineTuneConfig) (*TrainResult, error) {
	if err := trainSet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training set: %w", err)
	}
	if config.NumClasses == 0 {
		config.NumClasses = trainSet.NumClasses
	}
	if config.NumClasses != trainSet.NumClasses {
		return nil, fmt.Errorf("config declares %d classes, dataset has %d", config.NumClasses, trainSet.NumClasses)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fine-tune config: %w", err)
	}

	startTime := time.Now()
	predictor, err := trainer.Train(ctx, trainSet, config)
	if err != nil {
		return nil, &TrainerFailure{Op: "train", Err: err}
	}

	return &TrainResult{
		Predictor:        predictor,
		ModelID:          predictor.ModelID(),
		TrainingRows:     trainSet.Len(),
		TrainingDuration: time.Since(startTime),
		Config:           config,
	}, nil
}

// EvaluatePredictor scores the predictor on a held-out set and computes the
// classification metrics pipeline-side.
func EvaluatePredictor(ctx context.Context, predictor Predictor, testSet *LabeledDataset) (*EvaluationMetrics, error) {
	if err := testSet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid test set: %w", err)
	}

	predictions, err := predictor.Predict(ctx, testSet.Texts)
	if err != nil {
		return nil, &TrainerFailure{Op: "predict", Err: err}
	}
	if len(predictions) != testSet.Len() {
		return nil, &TrainerFailure{Op: "predict", Err: fmt.Errorf("expected %d predictions, got %d", testSet.Len(), len(predictions))}
	}

	yPred := make([]int, len(predictions))
	for i, p := range predictions {
		yPred[i] = p.Label
	}

	return CalculateMetrics(testSet.Labels, yPred, testSet.NumClasses)
}
