package gbdt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/log"
)

// EarlyStopping tracks validation loss across boosting rounds and
// signals when training should stop.
type EarlyStopping struct {
	Rounds          int     // rounds without improvement before stopping
	BestScore       float64 // best validation loss so far
	BestIteration   int     // iteration with the best score
	RoundsNoImprove int
	Enabled         bool
}

// NewEarlyStopping creates an early stopping handler. rounds <= 0
// disables it.
func NewEarlyStopping(rounds int) *EarlyStopping {
	if rounds <= 0 {
		return &EarlyStopping{Enabled: false}
	}
	return &EarlyStopping{
		Rounds:    rounds,
		BestScore: math.Inf(1),
		Enabled:   true,
	}
}

// Update records the validation loss for an iteration and returns
// true when the patience window is exhausted.
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if !es.Enabled {
		return false
	}

	if score < es.BestScore {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove++
	}

	return es.RoundsNoImprove >= es.Rounds
}

// ValidationData holds a held-out dataset monitored during training.
type ValidationData struct {
	X *mat.Dense
	Y *mat.VecDense
}

// EvalRecord is one round's losses. The full per-round history is
// retained even when early stopping truncates the ensemble.
type EvalRecord struct {
	Iteration int     `json:"iteration"`
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
}

// FitWithValidation trains the ensemble while monitoring validation
// loss. When early stopping is configured, the returned model is
// truncated to the best-validation iteration rather than the last one;
// the evaluation history always covers every round actually run.
func (t *Trainer) FitWithValidation(X mat.Matrix, y *mat.VecDense, valData *ValidationData) ([]EvalRecord, error) {
	if err := t.prepare(X, y); err != nil {
		return nil, err
	}

	var earlyStopping *EarlyStopping
	if t.params.EarlyStopping > 0 && valData != nil {
		earlyStopping = NewEarlyStopping(t.params.EarlyStopping)
	}

	history := make([]EvalRecord, 0, t.params.NumIterations)

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		if stop, err := t.runCallbacksBefore(iter); err != nil {
			return history, err
		} else if stop {
			break
		}

		if err := t.boostOneRound(); err != nil {
			return history, err
		}

		trainLoss := t.trainLoss()
		valLoss := math.NaN()
		if valData != nil {
			valLoss = t.validationLoss(valData)
		}
		history = append(history, EvalRecord{Iteration: iter, TrainLoss: trainLoss, ValLoss: valLoss})

		t.logger.Debug("boosting round",
			log.IterationKey, iter,
			log.TrainLossKey, trainLoss,
			log.ValLossKey, valLoss,
		)

		evalResults := map[string]float64{"training_loss": trainLoss}
		if valData != nil {
			evalResults["validation_loss"] = valLoss
		}
		if stop, err := t.runCallbacksAfter(iter, evalResults); err != nil {
			return history, err
		} else if stop {
			break
		}

		if earlyStopping != nil && earlyStopping.Update(iter, valLoss) {
			t.logger.Info("early stopping",
				log.IterationKey, iter,
				log.BestIterationKey, earlyStopping.BestIteration,
				log.ValLossKey, earlyStopping.BestScore,
			)
			break
		}
	}

	// Keep the best-validation snapshot, not necessarily the final round.
	if earlyStopping != nil && earlyStopping.BestIteration+1 < len(t.trees) {
		t.trees = t.trees[:earlyStopping.BestIteration+1]
	}

	return history, nil
}

// validationLoss computes the mean objective loss on the validation set.
func (t *Trainer) validationLoss(valData *ValidationData) float64 {
	rows, _ := valData.X.Dims()
	if rows == 0 {
		return math.Inf(1)
	}

	loss := 0.0
	for i := 0; i < rows; i++ {
		features := mat.Row(nil, i, valData.X)
		raw := t.initScore
		for j := range t.trees {
			raw += t.trees[j].Predict(features)
		}
		loss += t.objective.Loss(raw, valData.Y.AtVec(i))
	}
	return loss / float64(rows)
}
