// Package pipeline runs the end-to-end screening workflow: load a
// delimited clinical dataset, encode categorical fields, split into
// stratified train/validation/test partitions, train a boosted-tree
// classifier with early stopping, and evaluate on the held-out rows.
package pipeline

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/dataset"
	"github.com/clinml/paascreen/gbdt"
	"github.com/clinml/paascreen/metrics"
	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/pkg/log"
	"github.com/clinml/paascreen/preprocessing"
	"github.com/clinml/paascreen/split"
)

// Config describes one pipeline run.
type Config struct {
	// Input
	DataPath  string `mapstructure:"data_path"`
	Delimiter string `mapstructure:"delimiter"`

	// Encoding
	IDColumns   []string                  `mapstructure:"id_columns"`
	LabelColumn string                    `mapstructure:"label_column"`
	Mappings    map[string]map[string]int `mapstructure:"mappings"`

	// Partitioning
	TrainFrac float64 `mapstructure:"train_frac"`
	ValFrac   float64 `mapstructure:"val_frac"`
	TestFrac  float64 `mapstructure:"test_frac"`
	Seed      int     `mapstructure:"seed"`

	// Training
	Training  gbdt.TrainingParams `mapstructure:"training"`
	Threshold float64             `mapstructure:"threshold"`

	// Optional outputs
	ModelPath string `mapstructure:"model_path"`
	PlotPath  string `mapstructure:"plot_path"`
}

// DefaultConfig returns a config with the defaults filled in; callers
// still have to set DataPath, LabelColumn, and Mappings.
func DefaultConfig() Config {
	return Config{
		Delimiter: ",",
		TrainFrac: 0.6,
		ValFrac:   0.2,
		TestFrac:  0.2,
		Seed:      42,
		Threshold: 0.5,
		Training: gbdt.TrainingParams{
			NumIterations: 200,
			LearningRate:  0.1,
			MaxDepth:      4,
			MinDataInLeaf: 5,
			Objective:     "binary",
			EarlyStopping: 10,
		},
	}
}

func (c *Config) validate() error {
	if c.DataPath == "" {
		return errors.NewValueError("pipeline.Run", "data_path is required")
	}
	if c.LabelColumn == "" {
		return errors.NewValueError("pipeline.Run", "label_column is required")
	}
	if len(c.Mappings) == 0 {
		return errors.NewValueError("pipeline.Run", "categorical mappings are required")
	}
	if len(c.Delimiter) != 1 {
		return errors.NewValueError("pipeline.Run", "delimiter must be a single character")
	}
	return nil
}

// Report holds the outputs of a pipeline run.
type Report struct {
	Rows      int
	Features  int
	TrainSize int
	ValSize   int
	TestSize  int

	Accuracy      float64
	AUCPR         float64
	ROCAUC        float64
	TestLogLoss   float64
	BestIteration int
	PRCurve       []metrics.PRPoint
	EvalHistory   []gbdt.EvalRecord

	Duration time.Duration
}

// Run executes the pipeline described by cfg. Errors are terminal:
// there is no retry or partial recovery.
func Run(cfg Config) (report *Report, err error) {
	defer errors.Recover(&err, "pipeline.Run")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("pipeline")
	start := time.Now()

	// Stage 1: load.
	ds, err := dataset.LoadDelimited(cfg.DataPath, rune(cfg.Delimiter[0]))
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		log.StageKey, "load",
		log.RowsKey, ds.NumRows(),
		log.FeaturesKey, ds.NumCols(),
	)

	// Stage 2: encode.
	if len(cfg.IDColumns) > 0 {
		if ds, err = ds.DropColumns(cfg.IDColumns...); err != nil {
			return nil, err
		}
	}
	encoder := preprocessing.NewOrdinalEncoder(cfg.Mappings)
	encoded, err := encoder.FitTransform(ds)
	if err != nil {
		return nil, err
	}
	if encoded.NumRows() != ds.NumRows() {
		return nil, errors.New("paascreen: encoding changed the row count")
	}
	if err := encoded.CheckFinite(); err != nil {
		return nil, err
	}
	logger.Info("dataset encoded", log.StageKey, "encode", log.RowsKey, encoded.NumRows())

	X, y, err := encoded.FeatureMatrix(cfg.LabelColumn)
	if err != nil {
		return nil, err
	}

	// Stage 3: partition.
	splitter := split.NewStratifiedSplitter(cfg.TrainFrac, cfg.ValFrac, cfg.TestFrac, cfg.Seed)
	part, err := splitter.Split(y)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset partitioned",
		log.StageKey, "partition",
		log.TrainSizeKey, len(part.Train),
		log.ValSizeKey, len(part.Val),
		log.TestSizeKey, len(part.Test),
		log.SeedKey, cfg.Seed,
	)

	trainX, trainY := subset(X, y, part.Train)
	valX, valY := subset(X, y, part.Val)
	testX, testY := subset(X, y, part.Test)

	// Stage 4: train.
	clf := classifierFromParams(cfg.Training).
		WithRandomState(cfg.Seed).
		WithThreshold(cfg.Threshold)
	if err := clf.FitWithValidation(trainX, trainY, &gbdt.ValidationData{X: valX, Y: valY}); err != nil {
		return nil, err
	}

	// Stage 5: evaluate.
	proba, err := clf.PredictProba(testX)
	if err != nil {
		return nil, err
	}
	predicted := metrics.Binarize(proba, cfg.Threshold)

	accuracy, err := metrics.Accuracy(testY, predicted)
	if err != nil {
		return nil, err
	}
	curve, err := metrics.PrecisionRecallCurve(testY, proba)
	if err != nil {
		return nil, err
	}
	aucpr, err := metrics.AUCPR(testY, proba)
	if err != nil {
		return nil, err
	}
	rocauc, err := metrics.AUC(testY, proba)
	if err != nil {
		return nil, err
	}
	logLoss, err := metrics.BinaryLogLoss(testY, proba)
	if err != nil {
		return nil, err
	}

	if cfg.ModelPath != "" {
		if err := clf.SaveModel(cfg.ModelPath); err != nil {
			return nil, err
		}
	}
	if cfg.PlotPath != "" {
		if err := metrics.SavePRCurvePlot(curve, aucpr, cfg.PlotPath); err != nil {
			return nil, err
		}
	}

	_, features := X.Dims()
	report = &Report{
		Rows:          encoded.NumRows(),
		Features:      features,
		TrainSize:     len(part.Train),
		ValSize:       len(part.Val),
		TestSize:      len(part.Test),
		Accuracy:      accuracy,
		AUCPR:         aucpr,
		ROCAUC:        rocauc,
		TestLogLoss:   logLoss,
		BestIteration: clf.Model.BestIteration,
		PRCurve:       curve,
		EvalHistory:   clf.EvalHistory,
		Duration:      time.Since(start),
	}

	logger.Info("pipeline complete",
		log.StageKey, "evaluate",
		log.AccuracyKey, report.Accuracy,
		log.AUCPRKey, report.AUCPR,
		log.DurationMsKey, report.Duration.Milliseconds(),
	)

	return report, nil
}

func classifierFromParams(params gbdt.TrainingParams) *gbdt.Classifier {
	clf := gbdt.NewClassifier()
	if params.NumIterations > 0 {
		clf.NumIterations = params.NumIterations
	}
	if params.LearningRate > 0 {
		clf.LearningRate = params.LearningRate
	}
	if params.MaxDepth != 0 {
		clf.MaxDepth = params.MaxDepth
	}
	if params.MinDataInLeaf > 0 {
		clf.MinChildSamples = params.MinDataInLeaf
	}
	clf.RegLambda = params.Lambda
	if params.MinGainToSplit > 0 {
		clf.MinGainToSplit = params.MinGainToSplit
	}
	clf.EarlyStopping = params.EarlyStopping
	return clf
}

// subset extracts the rows of X and y named by indices.
func subset(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	xs := mat.NewDense(len(indices), cols, nil)
	ys := mat.NewVecDense(len(indices), nil)

	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			xs.Set(i, j, X.At(idx, j))
		}
		ys.SetVec(i, y.AtVec(idx))
	}
	return xs, ys
}
