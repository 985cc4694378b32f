package split

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Fold represents a single train/test division in cross-validation.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// FoldSplitter defines the interface for cross-validation splitters.
type FoldSplitter interface {
	Split(y *mat.VecDense) []Fold
	GetNSplits() int
}

// KFold implements plain k-fold cross-validation.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int
}

// NewKFold creates a new k-fold splitter.
func NewKFold(nSplits int, shuffle bool, seed int) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold.
func (kf *KFold) Split(y *mat.VecDense) []Fold {
	n := y.Len()

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		testIndices := make([]int, testSize)
		copy(testIndices, indices[current:current+testSize])

		trainIndices := make([]int, 0, n-testSize)
		trainIndices = append(trainIndices, indices[:current]...)
		trainIndices = append(trainIndices, indices[current+testSize:]...)

		sort.Ints(testIndices)
		sort.Ints(trainIndices)
		folds[i] = Fold{TrainIndices: trainIndices, TestIndices: testIndices}

		current += testSize
	}

	return folds
}

// StratifiedKFold implements stratified k-fold cross-validation: each
// fold's class proportions match the input within one record per class.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    int
}

// NewStratifiedKFold creates a new stratified k-fold splitter.
func NewStratifiedKFold(nSplits int, shuffle bool, seed int) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// GetNSplits returns the number of folds.
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold.
func (skf *StratifiedKFold) Split(y *mat.VecDense) []Fold {
	n := y.Len()

	classIndices := make(map[float64][]int)
	for i := 0; i < n; i++ {
		label := y.AtVec(i)
		classIndices[label] = append(classIndices[label], i)
	}

	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.Seed), uint64(skf.Seed)))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]Fold, skf.NSplits)

	// Distribute each class across folds.
	for _, label := range labels {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		current := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			folds[i].TestIndices = append(folds[i].TestIndices, indices[current:current+testSize]...)
			current += testSize
		}
	}

	// Build train sets from everything not in the fold's test set.
	for i := range folds {
		testSet := make(map[int]bool, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			testSet[idx] = true
		}
		for j := 0; j < n; j++ {
			if !testSet[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
		sort.Ints(folds[i].TestIndices)
	}

	return folds
}
