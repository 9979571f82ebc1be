package ml

import "fmt"

// EvaluationMetrics holds classification metrics over dense labels
type EvaluationMetrics struct {
	Accuracy           float64             `json:"accuracy"`
	Precision          map[int]float64     `json:"precision"` // Per-class
	Recall             map[int]float64     `json:"recall"`    // Per-class
	F1Score            map[int]float64     `json:"f1_score"`  // Per-class
	MacroPrecision     float64             `json:"macro_precision"`
	MacroRecall        float64             `json:"macro_recall"`
	MacroF1            float64             `json:"macro_f1"`
	ConfusionMatrix    map[int]map[int]int `json:"confusion_matrix"` // Actual -> Predicted -> Count
	Support            map[int]int         `json:"support"`          // Samples per class
	TotalSamples       int                 `json:"total_samples"`
	CorrectPredictions int                 `json:"correct_predictions"`
}

// CalculateMetrics computes accuracy, per-class precision/recall/F1, macro
// averages and the confusion matrix for dense labels in [0, numClasses).
func CalculateMetrics(yTrue, yPred []int, numClasses int) (*EvaluationMetrics, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("empty evaluation data")
	}
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("yTrue and yPred must have same length")
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", numClasses)
	}

	metrics := &EvaluationMetrics{
		Precision:       make(map[int]float64),
		Recall:          make(map[int]float64),
		F1Score:         make(map[int]float64),
		Support:         make(map[int]int),
		ConfusionMatrix: make(map[int]map[int]int),
		TotalSamples:    len(yTrue),
	}

	for actual := 0; actual < numClasses; actual++ {
		metrics.ConfusionMatrix[actual] = make(map[int]int)
		for pred := 0; pred < numClasses; pred++ {
			metrics.ConfusionMatrix[actual][pred] = 0
		}
	}

	for i := range yTrue {
		actual, predicted := yTrue[i], yPred[i]
		if actual < 0 || actual >= numClasses {
			return nil, fmt.Errorf("true label %d at row %d outside [0, %d)", actual, i, numClasses)
		}
		if predicted < 0 || predicted >= numClasses {
			return nil, fmt.Errorf("predicted label %d at row %d outside [0, %d)", predicted, i, numClasses)
		}

		metrics.ConfusionMatrix[actual][predicted]++
		metrics.Support[actual]++
		if actual == predicted {
			metrics.CorrectPredictions++
		}
	}

	metrics.Accuracy = float64(metrics.CorrectPredictions) / float64(metrics.TotalSamples)

	for class := 0; class < numClasses; class++ {
		tp := metrics.ConfusionMatrix[class][class]

		fn := 0
		for pred, count := range metrics.ConfusionMatrix[class] {
			if pred != class {
				fn += count
			}
		}

		fp := 0
		for actual := 0; actual < numClasses; actual++ {
			if actual != class {
				fp += metrics.ConfusionMatrix[actual][class]
			}
		}

		precision := 0.0
		if tp+fp > 0 {
			precision = float64(tp) / float64(tp+fp)
		}
		recall := 0.0
		if tp+fn > 0 {
			recall = float64(tp) / float64(tp+fn)
		}
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		metrics.Precision[class] = precision
		metrics.Recall[class] = recall
		metrics.F1Score[class] = f1

		metrics.MacroPrecision += precision
		metrics.MacroRecall += recall
		metrics.MacroF1 += f1
	}

	n := float64(numClasses)
	metrics.MacroPrecision /= n
	metrics.MacroRecall /= n
	metrics.MacroF1 /= n

	return metrics, nil
}

// Report renders the metrics as a human-readable classification report
func (m *EvaluationMetrics) Report() string {
	report := fmt.Sprintf("Accuracy: %.4f (%d/%d)\n", m.Accuracy, m.CorrectPredictions, m.TotalSamples)
	report += fmt.Sprintf("Macro P/R/F1: %.4f / %.4f / %.4f\n", m.MacroPrecision, m.MacroRecall, m.MacroF1)
	for class := 0; class < len(m.Precision); class++ {
		report += fmt.Sprintf("  class %d: precision=%.4f recall=%.4f f1=%.4f support=%d\n",
			class, m.Precision[class], m.Recall[class], m.F1Score[class], m.Support[class])
	}
	return report
}
