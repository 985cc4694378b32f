package gbdt

import (
	"math"
	"testing"

	"github.com/clinml/paascreen/split"
)

func TestCrossValidate(t *testing.T) {
	X, y := makeBinaryData(90)

	params := TrainingParams{
		NumIterations: 10,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
	}

	splitter := split.NewStratifiedKFold(3, true, 42)
	result, err := CrossValidate(params, X, y, splitter)
	if err != nil {
		t.Fatalf("CrossValidate failed: %v", err)
	}

	if len(result.TestScores) != 3 {
		t.Fatalf("got %d test scores, want 3", len(result.TestScores))
	}
	for i, score := range result.TestScores {
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
			t.Errorf("fold %d test log-loss = %v, want finite non-negative", i, score)
		}
		if result.Models[i] == nil {
			t.Errorf("fold %d has no model", i)
		}
	}

	mean := result.MeanScore()
	if math.IsNaN(mean) || mean < 0 {
		t.Errorf("MeanScore() = %v, want finite non-negative", mean)
	}
	if result.StdScore() < 0 {
		t.Errorf("StdScore() = %v, want non-negative", result.StdScore())
	}

	// On separable folds the fit should beat the chance log-loss ln(2).
	if mean >= math.Log(2) {
		t.Errorf("mean test log-loss = %v, want < ln(2)", mean)
	}
}

func TestCrossValidateWithEarlyStopping(t *testing.T) {
	X, y := makeBinaryData(90)

	params := TrainingParams{
		NumIterations: 30,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
		EarlyStopping: 3,
	}

	result, err := CrossValidate(params, X, y, split.NewStratifiedKFold(3, true, 7))
	if err != nil {
		t.Fatalf("CrossValidate failed: %v", err)
	}
	if result.BestFold < 0 || result.BestFold >= 3 {
		t.Errorf("BestFold = %d, want within [0, 3)", result.BestFold)
	}
	if result.BestScore > result.MeanScore() {
		t.Errorf("BestScore %v should not exceed mean %v for a loss metric",
			result.BestScore, result.MeanScore())
	}
}
