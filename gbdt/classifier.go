package gbdt

import (
	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/core/model"
	"github.com/clinml/paascreen/metrics"
	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/pkg/log"
)

// Classifier is a gradient-boosted binary classifier with an
// estimator-style API: configure, Fit, then Predict or PredictProba.
type Classifier struct {
	model.BaseEstimator

	Model *Model

	// Hyperparameters
	NumIterations   int
	LearningRate    float64
	MaxDepth        int
	MinChildSamples int
	RegLambda       float64
	MinGainToSplit  float64
	RandomState     int
	EarlyStopping   int
	Threshold       float64

	// Per-round losses from the most recent FitWithValidation call.
	EvalHistory []EvalRecord

	nFeatures_ int
	nSamples_  int
}

var (
	_ model.Model          = (*Classifier)(nil)
	_ model.ProbaPredictor = (*Classifier)(nil)
	_ model.Scorer         = (*Classifier)(nil)
)

// NewClassifier creates a classifier with default hyperparameters.
func NewClassifier() *Classifier {
	return &Classifier{
		NumIterations:   100,
		LearningRate:    0.1,
		MaxDepth:        -1,
		MinChildSamples: 20,
		RegLambda:       0.0,
		MinGainToSplit:  1e-7,
		RandomState:     42,
		EarlyStopping:   0,
		Threshold:       0.5,
	}
}

// WithNumIterations sets the boosting round upper bound.
func (c *Classifier) WithNumIterations(n int) *Classifier {
	c.NumIterations = n
	return c
}

// WithLearningRate sets the learning rate.
func (c *Classifier) WithLearningRate(lr float64) *Classifier {
	c.LearningRate = lr
	return c
}

// WithMaxDepth sets the maximum tree depth.
func (c *Classifier) WithMaxDepth(d int) *Classifier {
	c.MaxDepth = d
	return c
}

// WithMinChildSamples sets the minimum number of rows per leaf.
func (c *Classifier) WithMinChildSamples(n int) *Classifier {
	c.MinChildSamples = n
	return c
}

// WithRegLambda sets the L2 regularization strength.
func (c *Classifier) WithRegLambda(l float64) *Classifier {
	c.RegLambda = l
	return c
}

// WithRandomState sets the random seed.
func (c *Classifier) WithRandomState(seed int) *Classifier {
	c.RandomState = seed
	return c
}

// WithEarlyStopping sets the early-stopping patience in rounds.
func (c *Classifier) WithEarlyStopping(rounds int) *Classifier {
	c.EarlyStopping = rounds
	return c
}

// WithThreshold sets the decision threshold for Predict.
func (c *Classifier) WithThreshold(threshold float64) *Classifier {
	c.Threshold = threshold
	return c
}

func (c *Classifier) trainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:  c.NumIterations,
		LearningRate:   c.LearningRate,
		MaxDepth:       c.MaxDepth,
		MinDataInLeaf:  c.MinChildSamples,
		Lambda:         c.RegLambda,
		MinGainToSplit: c.MinGainToSplit,
		Objective:      "binary",
		Seed:           c.RandomState,
		EarlyStopping:  c.EarlyStopping,
	}
}

// Fit trains the classifier on X and y without validation monitoring.
func (c *Classifier) Fit(X mat.Matrix, y *mat.VecDense) (err error) {
	defer errors.Recover(&err, "Classifier.Fit")

	rows, cols := X.Dims()
	c.nFeatures_ = cols
	c.nSamples_ = rows

	trainer := NewTrainer(c.trainingParams())
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "training failed")
	}

	c.Model = trainer.GetModel()
	c.EvalHistory = nil
	c.SetFitted()
	return nil
}

// FitWithValidation trains the classifier while monitoring validation
// loss for early stopping. The per-round loss history is kept in
// EvalHistory.
func (c *Classifier) FitWithValidation(X mat.Matrix, y *mat.VecDense, valData *ValidationData) (err error) {
	defer errors.Recover(&err, "Classifier.FitWithValidation")

	rows, cols := X.Dims()
	c.nFeatures_ = cols
	c.nSamples_ = rows

	logger := log.GetLoggerWithName("gbdt.classifier")
	logger.Info("training started",
		log.RowsKey, rows,
		log.FeaturesKey, cols,
		log.IterationsKey, c.NumIterations,
		log.SeedKey, c.RandomState,
	)

	trainer := NewTrainer(c.trainingParams())
	history, err := trainer.FitWithValidation(X, y, valData)
	if err != nil {
		return errors.Wrap(err, "training failed")
	}

	c.Model = trainer.GetModel()
	c.EvalHistory = history
	c.SetFitted()

	logger.Info("training completed",
		log.IterationsKey, len(history),
		log.BestIterationKey, c.Model.NumIterations(),
	)
	return nil
}

// PredictProba returns the probability of the positive class per row.
func (c *Classifier) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("Classifier", "PredictProba")
	}
	return c.Model.PredictProba(X)
}

// Predict returns 0/1 labels binarized at the configured threshold.
func (c *Classifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("Classifier", "Predict")
	}
	return c.Model.Predict(X, c.Threshold)
}

// Score returns the accuracy on X against true labels y.
func (c *Classifier) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	if !c.IsFitted() {
		return 0, errors.NewNotFittedError("Classifier", "Score")
	}
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// SaveModel writes the trained ensemble to a JSON file.
func (c *Classifier) SaveModel(path string) error {
	if !c.IsFitted() {
		return errors.NewNotFittedError("Classifier", "SaveModel")
	}
	return c.Model.SaveToFile(path)
}

// LoadModel loads a previously saved ensemble from a JSON file.
func (c *Classifier) LoadModel(path string) error {
	m, err := LoadFromFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to load model")
	}
	c.Model = m
	c.nFeatures_ = m.NumFeatures
	c.SetFitted()
	return nil
}
