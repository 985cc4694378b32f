package gbdt

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/pkg/log"
)

// TrainingParams contains all training hyperparameters.
type TrainingParams struct {
	NumIterations int     `json:"num_iterations" mapstructure:"num_iterations"`
	LearningRate  float64 `json:"learning_rate" mapstructure:"learning_rate"`
	MaxDepth      int     `json:"max_depth" mapstructure:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf" mapstructure:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2" mapstructure:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split" mapstructure:"min_gain_to_split"`

	Objective string `json:"objective" mapstructure:"objective"`

	Seed          int `json:"seed" mapstructure:"seed"`
	EarlyStopping int `json:"early_stopping_rounds" mapstructure:"early_stopping_rounds"`
}

// SplitInfo describes a candidate split during tree growth.
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
	LeftGrad   float64
	RightGrad  float64
	LeftHess   float64
	RightHess  float64
}

// Trainer grows a boosted tree ensemble one tree at a time.
type Trainer struct {
	params TrainingParams

	X *mat.Dense
	y *mat.VecDense

	gradients []float64
	hessians  []float64
	rawScores []float64

	trees     []Tree
	iteration int

	objective Objective
	initScore float64

	callbacks *CallbackList
	logger    log.Logger
}

// NewTrainer creates a trainer with defaults filled in for zero-valued
// hyperparameters.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.Objective == "" {
		params.Objective = "binary"
	}

	return &Trainer{
		params: params,
		logger: log.GetLoggerWithName("gbdt.trainer"),
	}
}

// WithCallbacks sets the callbacks invoked around each boosting round.
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = NewCallbackList(callbacks...)
	return t
}

// Fit trains the ensemble on X and y without a validation set.
func (t *Trainer) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := t.prepare(X, y); err != nil {
		return err
	}

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		if stop, err := t.runCallbacksBefore(iter); err != nil {
			return err
		} else if stop {
			break
		}

		if err := t.boostOneRound(); err != nil {
			return err
		}

		trainLoss := t.trainLoss()
		if stop, err := t.runCallbacksAfter(iter, map[string]float64{"training_loss": trainLoss}); err != nil {
			return err
		} else if stop {
			break
		}
	}

	return nil
}

// prepare validates inputs and sets up training state.
func (t *Trainer) prepare(X mat.Matrix, y *mat.VecDense) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("Trainer.Fit", "empty training data", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return errors.NewDimensionError("Trainer.Fit", rows, y.Len(), 0)
	}

	xDense, ok := X.(*mat.Dense)
	if !ok {
		xDense = mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				xDense.Set(i, j, X.At(i, j))
			}
		}
	}

	// Reject non-finite features before training starts.
	if err := errors.CheckMatrix("Trainer.Fit", xDense, rows, cols, 0); err != nil {
		return err
	}

	switch t.params.Objective {
	case "binary":
		for i := 0; i < y.Len(); i++ {
			if v := y.AtVec(i); v != 0 && v != 1 {
				return errors.NewValueError("Trainer.Fit", "binary objective requires labels in {0, 1}")
			}
		}
		t.objective = NewLogisticObjective()
	case "regression":
		t.objective = NewL2Objective()
	default:
		return errors.NewValueError("Trainer.Fit", "unknown objective: "+t.params.Objective)
	}

	t.X = xDense
	t.y = y
	t.trees = nil
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = y.AtVec(i)
	}
	t.initScore = t.objective.InitScore(targets)

	// Raw scores are cached and updated incrementally per tree.
	t.rawScores = make([]float64, rows)
	for i := range t.rawScores {
		t.rawScores[i] = t.initScore
	}

	return nil
}

// boostOneRound computes gradients, grows one tree, and updates the
// cached raw scores.
func (t *Trainer) boostOneRound() error {
	t.computeGradients()

	tree := t.buildTree()
	t.trees = append(t.trees, tree)

	rows, _ := t.X.Dims()
	for i := 0; i < rows; i++ {
		t.rawScores[i] += tree.Predict(mat.Row(nil, i, t.X))
	}

	// Non-finite scores surface as a warning rather than silently
	// corrupting later rounds.
	for i := 0; i < rows; i++ {
		if math.IsNaN(t.rawScores[i]) || math.IsInf(t.rawScores[i], 0) {
			errors.Warn(errors.NewConvergenceWarning("gbdt", t.iteration,
				"non-finite raw score encountered during boosting"))
			break
		}
	}

	return nil
}

// computeGradients fills the gradient and hessian buffers from the
// cached raw scores.
func (t *Trainer) computeGradients() {
	for i := range t.gradients {
		target := t.y.AtVec(i)
		t.gradients[i] = t.objective.Gradient(t.rawScores[i], target)
		t.hessians[i] = t.objective.Hessian(t.rawScores[i], target)
	}
}

// buildTree grows a single tree by recursive exact greedy splitting.
func (t *Trainer) buildTree() Tree {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{},
	}

	rows, _ := t.X.Dims()
	rootIndices := make([]int, rows)
	for i := range rootIndices {
		rootIndices[i] = i
	}

	t.buildNode(&tree, rootIndices, -1, 0)

	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree
}

// buildNode recursively builds tree nodes and returns the new node's index.
func (t *Trainer) buildNode(tree *Tree, indices []int, parentIdx, depth int) int {
	nodeIdx := len(tree.Nodes)

	if (t.params.MaxDepth > 0 && depth >= t.params.MaxDepth) ||
		len(indices) < 2*t.params.MinDataInLeaf {
		tree.Nodes = append(tree.Nodes, t.newLeaf(nodeIdx, parentIdx, indices))
		return nodeIdx
	}

	bestSplit := t.findBestSplit(indices)
	if bestSplit.Gain <= t.params.MinGainToSplit {
		tree.Nodes = append(tree.Nodes, t.newLeaf(nodeIdx, parentIdx, indices))
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		ParentID:     parentIdx,
		NodeType:     SplitNode,
		SplitFeature: bestSplit.Feature,
		Threshold:    bestSplit.Threshold,
		Gain:         bestSplit.Gain,
	})

	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if t.X.At(idx, bestSplit.Feature) <= bestSplit.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	leftChild := t.buildNode(tree, leftIndices, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild

	return nodeIdx
}

func (t *Trainer) newLeaf(nodeIdx, parentIdx int, indices []int) Node {
	return Node{
		NodeID:     nodeIdx,
		ParentID:   parentIdx,
		NodeType:   LeafNode,
		LeafValue:  t.leafValue(indices),
		LeafCount:  len(indices),
		LeftChild:  -1,
		RightChild: -1,
	}
}

// findBestSplit scans every feature for the highest-gain split.
func (t *Trainer) findBestSplit(indices []int) SplitInfo {
	_, cols := t.X.Dims()
	bestSplit := SplitInfo{Gain: -math.MaxFloat64}

	for j := 0; j < cols; j++ {
		split := t.findBestSplitForFeature(indices, j)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}
	return bestSplit
}

// findBestSplitForFeature scans sorted feature values for the best
// threshold on one feature.
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Slice(sorted, func(a, b int) bool {
		return t.X.At(sorted[a], feature) < t.X.At(sorted[b], feature)
	})

	totalGrad := 0.0
	totalHess := 0.0
	for _, idx := range sorted {
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}

	bestSplit := SplitInfo{
		Feature: feature,
		Gain:    -math.MaxFloat64,
	}

	leftGrad := 0.0
	leftHess := 0.0
	for i := 0; i < len(sorted)-1; i++ {
		idx := sorted[i]
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]
		leftCount := i + 1

		value := t.X.At(idx, feature)
		next := t.X.At(sorted[i+1], feature)
		if value == next {
			continue
		}

		rightCount := len(sorted) - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess
		gain := t.splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)

		if gain > bestSplit.Gain {
			bestSplit.Gain = gain
			bestSplit.Threshold = (value + next) / 2
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = rightCount
			bestSplit.LeftGrad = leftGrad
			bestSplit.RightGrad = rightGrad
			bestSplit.LeftHess = leftHess
			bestSplit.RightHess = rightHess
		}
	}

	return bestSplit
}

// splitGain computes the loss reduction of a split with L2 regularization.
func (t *Trainer) splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

// leafValue computes the optimal value for a leaf node.
func (t *Trainer) leafValue(indices []int) float64 {
	sumGrad := 0.0
	sumHess := 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}

	epsilon := 1e-10
	if math.Abs(sumHess) < epsilon {
		sumHess = epsilon
	}
	return -sumGrad / (sumHess + t.params.Lambda + epsilon)
}

// trainLoss computes the mean training loss from cached raw scores.
func (t *Trainer) trainLoss() float64 {
	loss := 0.0
	for i := range t.rawScores {
		loss += t.objective.Loss(t.rawScores[i], t.y.AtVec(i))
	}
	return loss / float64(len(t.rawScores))
}

func (t *Trainer) runCallbacksBefore(iter int) (bool, error) {
	if t.callbacks == nil {
		return false, nil
	}
	if err := t.callbacks.BeforeIteration(iter, t.GetModel()); err != nil {
		return false, errors.Wrapf(err, "callback error at iteration %d", iter)
	}
	if t.callbacks.ShouldStop() {
		t.logger.Info("training stopped by callback", log.IterationKey, iter)
		return true, nil
	}
	return false, nil
}

func (t *Trainer) runCallbacksAfter(iter int, evalResults map[string]float64) (bool, error) {
	if t.callbacks == nil {
		return false, nil
	}
	if err := t.callbacks.AfterIteration(iter, t.GetModel(), evalResults); err != nil {
		return false, errors.Wrapf(err, "callback error at iteration %d", iter)
	}
	if t.callbacks.ShouldStop() {
		t.logger.Info("training stopped by callback", log.IterationKey, iter)
		return true, nil
	}
	return false, nil
}

// GetModel returns the trained model.
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Trees = t.trees
	model.NumFeatures = t.X.RawMatrix().Cols
	model.Objective = t.params.Objective
	model.LearningRate = t.params.LearningRate
	model.MaxDepth = t.params.MaxDepth
	model.InitScore = t.initScore
	model.BestIteration = len(t.trees)
	return model
}
