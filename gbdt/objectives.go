package gbdt

import (
	"math"
)

// Objective defines the interface for training objective functions.
// Predictions passed in are raw ensemble scores, before any link
// transformation.
type Objective interface {
	// Gradient returns the first derivative of the loss for one sample.
	Gradient(rawScore, target float64) float64

	// Hessian returns the second derivative of the loss for one sample.
	Hessian(rawScore, target float64) float64

	// Loss returns the loss for one sample.
	Loss(rawScore, target float64) float64

	// InitScore returns the constant baseline raw score.
	InitScore(targets []float64) float64

	// Name returns the objective's name.
	Name() string
}

const probEps = 1e-15

// LogisticObjective implements binary cross-entropy loss through a
// logistic link: the raw score is a log-odds, probabilities come from
// the sigmoid.
type LogisticObjective struct{}

// NewLogisticObjective creates a logistic-loss objective.
func NewLogisticObjective() *LogisticObjective {
	return &LogisticObjective{}
}

func (o *LogisticObjective) Gradient(rawScore, target float64) float64 {
	return sigmoid(rawScore) - target
}

func (o *LogisticObjective) Hessian(rawScore, target float64) float64 {
	p := sigmoid(rawScore)
	return p * (1.0 - p)
}

func (o *LogisticObjective) Loss(rawScore, target float64) float64 {
	p := sigmoid(rawScore)
	if p < probEps {
		p = probEps
	} else if p > 1-probEps {
		p = 1 - probEps
	}
	if target == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// InitScore returns the log-odds of the positive-class frequency.
func (o *LogisticObjective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	p := sum / float64(len(targets))
	if p < probEps {
		p = probEps
	} else if p > 1-probEps {
		p = 1 - probEps
	}
	return math.Log(p / (1 - p))
}

func (o *LogisticObjective) Name() string {
	return "binary"
}

// L2Objective implements squared-error loss. It exists for gradient
// sanity checks against a linear baseline; classification training
// always uses LogisticObjective.
type L2Objective struct{}

// NewL2Objective creates an L2-loss objective.
func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) Gradient(rawScore, target float64) float64 {
	return rawScore - target
}

func (o *L2Objective) Hessian(rawScore, target float64) float64 {
	return 1.0
}

func (o *L2Objective) Loss(rawScore, target float64) float64 {
	diff := rawScore - target
	return 0.5 * diff * diff
}

func (o *L2Objective) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return "regression"
}
