// Package split provides deterministic dataset partitioning for model
// development: a three-way stratified train/validation/test split and
// k-fold splitters for cross-validation.
package split

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/pkg/log"
)

// Partition holds the row indices of a three-way split. Indices are
// disjoint across partitions and together cover every input row.
type Partition struct {
	Train []int
	Val   []int
	Test  []int
}

// StratifiedSplitter splits rows into train/validation/test partitions
// while preserving the class balance of a binary label in each partition.
// The same seed always produces the same partition.
type StratifiedSplitter struct {
	TrainFrac float64
	ValFrac   float64
	TestFrac  float64
	Seed      int
}

// NewStratifiedSplitter creates a splitter with the given fractions and seed.
func NewStratifiedSplitter(trainFrac, valFrac, testFrac float64, seed int) *StratifiedSplitter {
	return &StratifiedSplitter{
		TrainFrac: trainFrac,
		ValFrac:   valFrac,
		TestFrac:  testFrac,
		Seed:      seed,
	}
}

const fracTolerance = 1e-9

func (s *StratifiedSplitter) validate() error {
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"train_frac", s.TrainFrac},
		{"val_frac", s.ValFrac},
		{"test_frac", s.TestFrac},
	} {
		if f.val <= 0 || f.val >= 1 {
			return errors.NewValidationError(f.name, "must be in the open interval (0, 1)", f.val)
		}
	}
	sum := s.TrainFrac + s.ValFrac + s.TestFrac
	if math.Abs(sum-1.0) > fracTolerance {
		return errors.NewValidationError("fractions", "must sum to 1", sum)
	}
	return nil
}

// Split partitions the rows of y by stratified sampling. Labels must be
// 0 or 1. Test rows are drawn first, then validation rows from the
// remainder; whatever floor rounding leaves over stays in train.
func (s *StratifiedSplitter) Split(y *mat.VecDense) (*Partition, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	n := y.Len()
	if n == 0 {
		return nil, errors.NewModelError("StratifiedSplitter.Split", "empty labels", errors.ErrEmptyData)
	}

	// Group row indices by class.
	classIndices := make(map[float64][]int)
	for i := 0; i < n; i++ {
		label := y.AtVec(i)
		if label != 0 && label != 1 {
			return nil, errors.NewValueError("StratifiedSplitter.Split",
				"labels must be 0 or 1 for stratified splitting")
		}
		classIndices[label] = append(classIndices[label], i)
	}

	// Shuffle within each class so the draw is random but reproducible.
	// Classes are visited in sorted order to keep the generator stream
	// independent of map iteration order.
	r := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)))
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	part := &Partition{}
	for _, label := range labels {
		indices := classIndices[label]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		// Stage one carves the test set from the whole class; stage two
		// carves validation from what remains, with the fraction rescaled
		// to the remaining pool.
		nClass := len(indices)
		nTest := int(math.Floor(s.TestFrac * float64(nClass)))
		valShare := s.ValFrac / (s.TrainFrac + s.ValFrac)
		nVal := int(math.Floor(valShare * float64(nClass-nTest)))

		if nTest == 0 {
			return nil, errors.NewEmptyPartitionError("test", label, nClass, s.TestFrac)
		}
		if nVal == 0 {
			return nil, errors.NewEmptyPartitionError("validation", label, nClass, s.ValFrac)
		}
		if nClass-nTest-nVal == 0 {
			return nil, errors.NewEmptyPartitionError("train", label, nClass, s.TrainFrac)
		}

		part.Test = append(part.Test, indices[:nTest]...)
		part.Val = append(part.Val, indices[nTest:nTest+nVal]...)
		part.Train = append(part.Train, indices[nTest+nVal:]...)
	}

	// Sorted partitions keep downstream row extraction in input order.
	sort.Ints(part.Train)
	sort.Ints(part.Val)
	sort.Ints(part.Test)

	log.GetLoggerWithName("split.stratified").Debug("split complete",
		log.TrainSizeKey, len(part.Train),
		log.ValSizeKey, len(part.Val),
		log.TestSizeKey, len(part.Test),
		log.SeedKey, s.Seed,
	)

	return part, nil
}
