package gbdt

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/metrics"
	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/split"
)

// CVResult stores per-fold cross-validation scores.
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
	Models      []*Model
	BestFold    int
	BestScore   float64
}

// MeanScore returns the mean test score.
func (cv *CVResult) MeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, score := range cv.TestScores {
		sum += score
	}
	return sum / float64(len(cv.TestScores))
}

// StdScore returns the sample standard deviation of test scores.
func (cv *CVResult) StdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}
	mean := cv.MeanScore()
	sumSq := 0.0
	for _, score := range cv.TestScores {
		diff := score - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.TestScores)-1))
}

// CrossValidate trains one model per fold and scores each on its
// held-out rows with binary log-loss. Folds run concurrently.
func CrossValidate(params TrainingParams, X *mat.Dense, y *mat.VecDense, splitter split.FoldSplitter) (*CVResult, error) {
	folds := splitter.Split(y)
	nFolds := len(folds)

	result := &CVResult{
		TrainScores: make([]float64, nFolds),
		TestScores:  make([]float64, nFolds),
		Models:      make([]*Model, nFolds),
	}

	var wg sync.WaitGroup
	foldErrs := make([]error, nFolds)

	for foldIdx := 0; foldIdx < nFolds; foldIdx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			fold := folds[idx]
			trainX, trainY := extractRows(X, y, fold.TrainIndices)
			testX, testY := extractRows(X, y, fold.TestIndices)

			trainer := NewTrainer(params)
			if params.EarlyStopping > 0 {
				if _, err := trainer.FitWithValidation(trainX, trainY, &ValidationData{X: testX, Y: testY}); err != nil {
					foldErrs[idx] = errors.Wrapf(err, "fold %d training failed", idx)
					return
				}
			} else {
				if err := trainer.Fit(trainX, trainY); err != nil {
					foldErrs[idx] = errors.Wrapf(err, "fold %d training failed", idx)
					return
				}
			}

			model := trainer.GetModel()
			result.Models[idx] = model

			trainScore, err := scoreLogLoss(model, trainX, trainY)
			if err != nil {
				foldErrs[idx] = errors.Wrapf(err, "fold %d train scoring failed", idx)
				return
			}
			result.TrainScores[idx] = trainScore

			testScore, err := scoreLogLoss(model, testX, testY)
			if err != nil {
				foldErrs[idx] = errors.Wrapf(err, "fold %d test scoring failed", idx)
				return
			}
			result.TestScores[idx] = testScore
		}(foldIdx)
	}

	wg.Wait()

	for _, err := range foldErrs {
		if err != nil {
			return nil, err
		}
	}

	// Log-loss: lower is better.
	result.BestScore = result.TestScores[0]
	for i := 1; i < nFolds; i++ {
		if result.TestScores[i] < result.BestScore {
			result.BestScore = result.TestScores[i]
			result.BestFold = i
		}
	}

	return result, nil
}

func scoreLogLoss(model *Model, X *mat.Dense, y *mat.VecDense) (float64, error) {
	proba, err := model.PredictProba(X)
	if err != nil {
		return 0, err
	}
	return metrics.BinaryLogLoss(y, proba)
}

// extractRows builds the feature matrix and label vector for a set of
// row indices.
func extractRows(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	rows := len(indices)
	_, cols := X.Dims()

	xSubset := mat.NewDense(rows, cols, nil)
	ySubset := mat.NewVecDense(rows, nil)

	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		ySubset.SetVec(i, y.AtVec(idx))
	}

	return xSubset, ySubset
}
