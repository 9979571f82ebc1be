package ml

import (
	"context"
	"fmt"
)

// MockTrainer implements ClassifierTrainer in-process for tests and dry
// runs. The resulting predictor always answers with the majority label of
// the training set, which gives a deterministic, dependency-free baseline.
type MockTrainer struct {
	// TrainErr, when set, is returned from Train to simulate failures
	TrainErr error

	// LastConfig records the config of the most recent Train call
	LastConfig FineTuneConfig
}

// NewMockTrainer creates a mock trainer
func NewMockTrainer() *MockTrainer {
	return &MockTrainer{}
}

// Train returns a majority-class predictor over the training labels
func (m *MockTrainer) Train(ctx context.Context, trainSet *LabeledDataset, config FineTuneConfig) (Predictor, error) {
	if m.TrainErr != nil {
		return nil, m.TrainErr
	}
	m.LastConfig = config

	counts := trainSet.ClassCounts()
	majority := 0
	bestCount := -1
	for label := 0; label < trainSet.NumClasses; label++ {
		if counts[label] > bestCount {
			majority = label
			bestCount = counts[label]
		}
	}

	probabilities := make([]float64, trainSet.NumClasses)
	for label, count := range counts {
		probabilities[label] = float64(count) / float64(trainSet.Len())
	}

	return &mockPredictor{
		modelID:       fmt.Sprintf("mock-majority-%d", majority),
		majority:      majority,
		probabilities: probabilities,
	}, nil
}

type mockPredictor struct {
	modelID       string
	majority      int
	probabilities []float64

	// PredictErr, when set, is returned from Predict
	PredictErr error
}

func (p *mockPredictor) ModelID() string {
	return p.modelID
}

func (p *mockPredictor) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	if p.PredictErr != nil {
		return nil, p.PredictErr
	}
	predictions := make([]Prediction, len(texts))
	for i := range texts {
		predictions[i] = Prediction{Label: p.majority, Probabilities: p.probabilities}
	}
	return predictions, nil
}
