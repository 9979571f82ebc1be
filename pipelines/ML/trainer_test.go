package ml

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainClassifier(t *testing.T) {
	trainSet := &LabeledDataset{
		Texts:      []string{"a", "b", "c", "d"},
		Labels:     []int{1, 1, 1, 0},
		NumClasses: 2,
	}

	t.Run("trains and returns a usable predictor", func(t *testing.T) {
		trainer := NewMockTrainer()
		config := DefaultFineTuneConfig()

		result, err := TrainClassifier(context.Background(), trainer, trainSet, config)
		require.NoError(t, err)
		assert.Equal(t, 4, result.TrainingRows)
		assert.NotEmpty(t, result.ModelID)
		assert.Equal(t, 2, result.Config.NumClasses)
		assert.Equal(t, 2, trainer.LastConfig.NumClasses)

		predictions, err := result.Predictor.Predict(context.Background(), []string{"x", "y"})
		require.NoError(t, err)
		require.Len(t, predictions, 2)
		assert.Equal(t, 1, predictions[0].Label)
	})

	t.Run("trainer errors surface as TrainerFailure", func(t *testing.T) {
		trainer := NewMockTrainer()
		trainer.TrainErr = fmt.Errorf("CUDA out of memory")

		_, err := TrainClassifier(context.Background(), trainer, trainSet, DefaultFineTuneConfig())
		var failure *TrainerFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, "train", failure.Op)
		assert.Contains(t, failure.Error(), "CUDA out of memory")
	})

	t.Run("invalid config is rejected before the trainer is called", func(t *testing.T) {
		trainer := NewMockTrainer()
		config := FineTuneConfig{BaseModel: "", Epochs: 2, Device: DeviceCPU}

		_, err := TrainClassifier(context.Background(), trainer, trainSet, config)
		assert.Error(t, err)
		assert.Empty(t, trainer.LastConfig.BaseModel)
	})

	t.Run("class count mismatch is rejected", func(t *testing.T) {
		config := DefaultFineTuneConfig()
		config.NumClasses = 5

		_, err := TrainClassifier(context.Background(), NewMockTrainer(), trainSet, config)
		assert.Error(t, err)
	})
}

func TestEvaluatePredictor(t *testing.T) {
	trainSet := &LabeledDataset{
		Texts:      []string{"a", "b", "c"},
		Labels:     []int{1, 1, 0},
		NumClasses: 2,
	}
	testSet := &LabeledDataset{
		Texts:      []string{"x", "y"},
		Labels:     []int{1, 0},
		NumClasses: 2,
	}

	t.Run("computes metrics from predictions", func(t *testing.T) {
		result, err := TrainClassifier(context.Background(), NewMockTrainer(), trainSet, DefaultFineTuneConfig())
		require.NoError(t, err)

		metrics, err := EvaluatePredictor(context.Background(), result.Predictor, testSet)
		require.NoError(t, err)
		// Majority predictor answers 1 everywhere: one of two is correct.
		assert.InDelta(t, 0.5, metrics.Accuracy, 1e-9)
	})

	t.Run("prediction errors surface as TrainerFailure", func(t *testing.T) {
		predictor := &mockPredictor{modelID: "m", PredictErr: fmt.Errorf("model not found")}

		_, err := EvaluatePredictor(context.Background(), predictor, testSet)
		var failure *TrainerFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, "predict", failure.Op)
	})

	t.Run("prediction count mismatch is a TrainerFailure", func(t *testing.T) {
		predictor := &truncatingPredictor{}

		_, err := EvaluatePredictor(context.Background(), predictor, testSet)
		var failure *TrainerFailure
		require.ErrorAs(t, err, &failure)
	})
}

// truncatingPredictor returns fewer predictions than requested
type truncatingPredictor struct{}

func (p *truncatingPredictor) ModelID() string { return "truncating" }

func (p *truncatingPredictor) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	return []Prediction{{Label: 0}}, nil
}

func TestFineTuneConfigValidate(t *testing.T) {
	valid := FineTuneConfig{BaseModel: "bert-base-uncased", Epochs: 2, Device: DeviceCPU, NumClasses: 2}
	assert.NoError(t, valid.Validate())

	noEpochs := valid
	noEpochs.Epochs = 0
	assert.Error(t, noEpochs.Validate())

	badDevice := valid
	badDevice.Device = "tpu"
	assert.Error(t, badDevice.Validate())
}
