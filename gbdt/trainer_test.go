package gbdt

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"
)

// makeBinaryData builds a linearly separable binary dataset: class 1
// when x1 >= 0.5.
func makeBinaryData(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)

	half := n / 2
	for i := 0; i < half; i++ {
		X.Set(i, 0, float64(i)/float64(n))
		X.Set(i, 1, float64(i%5)/5.0)
		y.SetVec(i, 0)
	}
	for i := half; i < n; i++ {
		X.Set(i, 0, 0.5+float64(i-half)/float64(n))
		X.Set(i, 1, float64(i%5)/5.0)
		y.SetVec(i, 1)
	}
	return X, y
}

func TestTrainerBinaryClassification(t *testing.T) {
	X, y := makeBinaryData(100)

	params := TrainingParams{
		NumIterations: 20,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
	}

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		t.Fatalf("Training failed: %v", err)
	}

	if len(trainer.trees) == 0 {
		t.Fatal("No trees were built")
	}

	model := trainer.GetModel()
	proba, err := model.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	// A separable dataset should be fit almost perfectly.
	correct := 0
	for i := 0; i < proba.Len(); i++ {
		pred := 0.0
		if proba.AtVec(i) > 0.5 {
			pred = 1.0
		}
		if pred == y.AtVec(i) {
			correct++
		}
	}
	accuracy := float64(correct) / float64(proba.Len())
	if accuracy < 0.9 {
		t.Errorf("accuracy = %v, want >= 0.9", accuracy)
	}
}

func TestTrainerTrainLossDecreases(t *testing.T) {
	X, y := makeBinaryData(100)

	params := TrainingParams{
		NumIterations: 15,
		LearningRate:  0.2,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
	}

	trainer := NewTrainer(params)
	history, err := trainer.FitWithValidation(X, y, nil)
	if err != nil {
		t.Fatalf("Training failed: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("No evaluation history recorded")
	}

	first := history[0].TrainLoss
	last := history[len(history)-1].TrainLoss
	if last >= first {
		t.Errorf("training loss did not decrease: first=%v last=%v", first, last)
	}
}

func TestTrainerRejectsNonBinaryLabels(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{0, 1, 2, 1})

	trainer := NewTrainer(TrainingParams{Objective: "binary", MinDataInLeaf: 1})
	if err := trainer.Fit(X, y); err == nil {
		t.Error("expected error for labels outside {0, 1}, got nil")
	}
}

func TestTrainerRejectsNonFiniteFeatures(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, math.NaN(), 3, 4})
	y := mat.NewVecDense(4, []float64{0, 1, 0, 1})

	trainer := NewTrainer(TrainingParams{Objective: "binary", MinDataInLeaf: 1})
	if err := trainer.Fit(X, y); err == nil {
		t.Error("expected error for NaN feature, got nil")
	}
}

func TestTrainerRejectsDimensionMismatch(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(3, []float64{0, 1, 0})

	trainer := NewTrainer(TrainingParams{Objective: "binary"})
	if err := trainer.Fit(X, y); err == nil {
		t.Error("expected dimension error, got nil")
	}
}

func TestTrainerDeterminism(t *testing.T) {
	X, y := makeBinaryData(80)

	params := TrainingParams{
		NumIterations: 10,
		LearningRate:  0.1,
		MaxDepth:      4,
		MinDataInLeaf: 5,
		Objective:     "binary",
		Seed:          42,
	}

	first := NewTrainer(params)
	if err := first.Fit(X, y); err != nil {
		t.Fatalf("first training failed: %v", err)
	}
	second := NewTrainer(params)
	if err := second.Fit(X, y); err != nil {
		t.Fatalf("second training failed: %v", err)
	}

	probaA, err := first.GetModel().PredictProba(X)
	if err != nil {
		t.Fatalf("first PredictProba failed: %v", err)
	}
	probaB, err := second.GetModel().PredictProba(X)
	if err != nil {
		t.Fatalf("second PredictProba failed: %v", err)
	}

	for i := 0; i < probaA.Len(); i++ {
		if probaA.AtVec(i) != probaB.AtVec(i) {
			t.Fatalf("predictions differ at row %d: %v vs %v", i, probaA.AtVec(i), probaB.AtVec(i))
		}
	}
}

func TestLogisticObjective(t *testing.T) {
	obj := NewLogisticObjective()

	// raw score 0 corresponds to p = 0.5.
	if got := obj.Gradient(0, 1); math.Abs(got-(-0.5)) > 1e-9 {
		t.Errorf("Gradient(0, 1) = %v, want -0.5", got)
	}
	if got := obj.Gradient(0, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Gradient(0, 0) = %v, want 0.5", got)
	}
	if got := obj.Hessian(0, 1); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Hessian(0, 1) = %v, want 0.25", got)
	}

	// Loss at p = 0.5 is ln(2) for either label.
	if got := obj.Loss(0, 1); math.Abs(got-math.Log(2)) > 1e-9 {
		t.Errorf("Loss(0, 1) = %v, want ln(2)", got)
	}

	// Balanced labels give zero log-odds.
	if got := obj.InitScore([]float64{0, 1, 0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("InitScore(balanced) = %v, want 0", got)
	}

	// 3:1 positives give log(3).
	if got := obj.InitScore([]float64{1, 1, 1, 0}); math.Abs(got-math.Log(3)) > 1e-9 {
		t.Errorf("InitScore(3:1) = %v, want ln(3)", got)
	}
}

func TestTrainerCallbacks(t *testing.T) {
	X, y := makeBinaryData(60)

	var history map[string][]float64
	trainer := NewTrainer(TrainingParams{
		NumIterations: 5,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
	}).WithCallbacks(PrintEvaluation(2), RecordEvaluation(&history))

	if err := trainer.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	losses, ok := history["training_loss"]
	if !ok {
		t.Fatal("expected training_loss in recorded history")
	}
	if len(losses) != 5 {
		t.Fatalf("recorded %d rounds, want 5", len(losses))
	}
	for i, l := range losses {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			t.Errorf("loss at round %d is not finite: %v", i, l)
		}
	}
}

func TestTrainerTimeLimitCallback(t *testing.T) {
	X, y := makeBinaryData(60)

	trainer := NewTrainer(TrainingParams{
		NumIterations: 50,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
	}).WithCallbacks(TimeLimit(time.Nanosecond))

	if err := trainer.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := trainer.GetModel().NumIterations(); got >= 50 {
		t.Errorf("time limit did not stop training: %d rounds", got)
	}
}

func TestFeatureImportance(t *testing.T) {
	X, y := makeBinaryData(100)

	trainer := NewTrainer(TrainingParams{
		NumIterations: 10,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
	})
	if err := trainer.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	model := trainer.GetModel()

	for _, importanceType := range []string{"split", "gain"} {
		imp := model.FeatureImportance(importanceType)
		if len(imp) != 2 {
			t.Fatalf("%s: got %d features, want 2", importanceType, len(imp))
		}
		sum := imp[0] + imp[1]
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("%s importance sums to %v, want 1", importanceType, sum)
		}
		// Feature 0 separates the classes, so it carries the weight.
		if imp[0] <= imp[1] {
			t.Errorf("%s: separating feature importance %v not above %v", importanceType, imp[0], imp[1])
		}
	}
}

func TestL2Objective(t *testing.T) {
	obj := NewL2Objective()

	if got := obj.Gradient(2.0, 0.5); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("Gradient(2, 0.5) = %v, want 1.5", got)
	}
	if got := obj.Hessian(2.0, 0.5); got != 1.0 {
		t.Errorf("Hessian = %v, want 1", got)
	}
	if got := obj.Loss(2.0, 0.5); math.Abs(got-1.125) > 1e-9 {
		t.Errorf("Loss(2, 0.5) = %v, want 1.125", got)
	}
	if got := obj.InitScore([]float64{1, 2, 3}); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("InitScore = %v, want 2", got)
	}
	if got := obj.InitScore(nil); got != 0.0 {
		t.Errorf("InitScore(empty) = %v, want 0", got)
	}
}

func TestEarlyStoppingUpdate(t *testing.T) {
	es := NewEarlyStopping(2)

	if es.Update(0, 1.0) {
		t.Error("should not stop after first improvement")
	}
	if es.Update(1, 0.8) {
		t.Error("should not stop while improving")
	}
	if es.Update(2, 0.9) {
		t.Error("should not stop after one bad round")
	}
	if !es.Update(3, 0.85) {
		t.Error("should stop after patience exhausted")
	}
	if es.BestIteration != 1 {
		t.Errorf("BestIteration = %d, want 1", es.BestIteration)
	}
	if es.BestScore != 0.8 {
		t.Errorf("BestScore = %v, want 0.8", es.BestScore)
	}
}

func TestEarlyStoppingDisabled(t *testing.T) {
	es := NewEarlyStopping(0)
	if es.Enabled {
		t.Error("zero rounds should disable early stopping")
	}
	if es.Update(0, 1.0) {
		t.Error("disabled handler should never request a stop")
	}
}

func TestFitWithValidationHistoryComplete(t *testing.T) {
	X, y := makeBinaryData(80)
	valX, valY := makeBinaryData(40)

	params := TrainingParams{
		NumIterations: 50,
		LearningRate:  0.3,
		MaxDepth:      3,
		MinDataInLeaf: 5,
		Objective:     "binary",
		EarlyStopping: 3,
	}

	trainer := NewTrainer(params)
	history, err := trainer.FitWithValidation(X, y, &ValidationData{X: valX, Y: valY})
	if err != nil {
		t.Fatalf("Training failed: %v", err)
	}

	// The history covers every round run, even when the ensemble was
	// truncated to the best iteration.
	if len(trainer.trees) > len(history) {
		t.Errorf("model has %d trees but history has %d rounds", len(trainer.trees), len(history))
	}
	for i, rec := range history {
		if rec.Iteration != i {
			t.Errorf("history[%d].Iteration = %d, want %d", i, rec.Iteration, i)
		}
		if math.IsNaN(rec.TrainLoss) || math.IsNaN(rec.ValLoss) {
			t.Errorf("history[%d] has NaN loss: %+v", i, rec)
		}
	}
}
