// Package log defines standard attribute keys for pipeline operations.
//
// Using these keys keeps records consistent across the loader, encoder,
// splitter, trainer and evaluator so runs can be filtered and compared.

package log

// Pipeline and operation context.
const (
	// ComponentKey identifies which component emitted the record.
	// Examples: "dataset.loader", "gbdt.trainer", "pipeline"
	ComponentKey = "component"

	// StageKey names the pipeline stage being executed.
	// Standard values: "load", "encode", "split", "train", "evaluate"
	StageKey = "pipeline.stage"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"
)

// Data shape.
const (
	// RowsKey indicates the number of records in the dataset.
	RowsKey = "data.rows"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// TrainSizeKey, ValSizeKey and TestSizeKey record partition sizes.
	TrainSizeKey = "split.train"
	ValSizeKey   = "split.val"
	TestSizeKey  = "split.test"

	// SeedKey records the random seed controlling the run.
	SeedKey = "seed"
)

// Training and evaluation results.
const (
	// IterationKey is the current boosting round.
	IterationKey = "train.iteration"

	// IterationsKey is the total number of boosting rounds performed.
	IterationsKey = "train.iterations"

	// BestIterationKey is the round retained by early stopping.
	BestIterationKey = "train.best_iteration"

	// TrainLossKey and ValLossKey carry per-round log-loss values.
	TrainLossKey = "train.loss"
	ValLossKey   = "train.val_loss"

	// AccuracyKey and AUCPRKey carry held-out evaluation results.
	AccuracyKey = "eval.accuracy"
	AUCPRKey    = "eval.auc_pr"

	// DurationMsKey records elapsed wall time in milliseconds.
	DurationMsKey = "duration_ms"
)
