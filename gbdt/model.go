// Package gbdt implements gradient-boosted decision trees for binary
// classification. Training uses exact greedy splits with second-order
// gradient statistics and optional early stopping against a validation
// set; the resulting model is an immutable tree ensemble.
package gbdt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/errors"
)

// NodeType represents the type of a tree node.
type NodeType int

const (
	// LeafNode is a terminal node holding a value.
	LeafNode NodeType = iota
	// SplitNode is an internal node with a numeric threshold split.
	SplitNode
)

// Node is a single node in a decision tree.
type Node struct {
	NodeID     int `json:"node_id"`
	ParentID   int `json:"parent_id"`
	LeftChild  int `json:"left_child"`
	RightChild int `json:"right_child"`

	NodeType NodeType `json:"node_type"`

	// Split information (internal nodes).
	SplitFeature int     `json:"split_feature"`
	Threshold    float64 `json:"threshold"`
	Gain         float64 `json:"gain"`

	// Leaf information (leaf nodes).
	LeafValue float64 `json:"leaf_value"`
	LeafCount int     `json:"leaf_count"`
}

// IsLeaf returns true if the node is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a single decision tree in the ensemble.
type Tree struct {
	TreeIndex     int     `json:"tree_index"`
	NumLeaves     int     `json:"num_leaves"`
	ShrinkageRate float64 `json:"shrinkage"`
	Nodes         []Node  `json:"nodes"`
}

// Predict returns the shrunken output of this tree for one sample.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// Model is a trained gradient-boosted tree ensemble for binary
// classification. Immutable after training.
type Model struct {
	Trees []Tree `json:"trees"`

	NumFeatures  int      `json:"num_features"`
	FeatureNames []string `json:"feature_names,omitempty"`

	Objective     string  `json:"objective"`
	LearningRate  float64 `json:"learning_rate"`
	MaxDepth      int     `json:"max_depth"`
	InitScore     float64 `json:"init_score"`
	BestIteration int     `json:"best_iteration"`
}

// NewModel creates a new empty model.
func NewModel() *Model {
	return &Model{
		Trees:        make([]Tree, 0),
		Objective:    "binary",
		LearningRate: 0.1,
		MaxDepth:     -1,
	}
}

// NumIterations returns the number of trees in the ensemble.
func (m *Model) NumIterations() int {
	return len(m.Trees)
}

// rawScore returns the untransformed ensemble output for one sample.
func (m *Model) rawScore(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// PredictProba returns the predicted probability of the positive class
// for each row of X.
func (m *Model) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.NewModelError("Model.PredictProba", "empty input", errors.ErrEmptyData)
	}
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.PredictProba", m.NumFeatures, cols, 1)
	}

	proba := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		features := mat.Row(nil, i, X)
		proba.SetVec(i, sigmoid(m.rawScore(features)))
	}
	return proba, nil
}

// Predict returns hard 0/1 labels at the given decision threshold.
func (m *Model) Predict(X mat.Matrix, threshold float64) (*mat.VecDense, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := mat.NewVecDense(proba.Len(), nil)
	for i := 0; i < proba.Len(); i++ {
		if proba.AtVec(i) > threshold {
			labels.SetVec(i, 1)
		}
	}
	return labels, nil
}

// FeatureImportance returns per-feature importance scores, normalized
// to sum to 1. importanceType is "split" (usage count) or "gain".
func (m *Model) FeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "gain":
				importance[node.SplitFeature] += node.Gain
			default:
				importance[node.SplitFeature]++
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
