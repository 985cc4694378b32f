package pipeline

import (
	"github.com/clinml/paascreen/dataset"
	"github.com/clinml/paascreen/gbdt"
	"github.com/clinml/paascreen/metrics"
	"github.com/clinml/paascreen/pkg/errors"
	"github.com/clinml/paascreen/pkg/log"
	"github.com/clinml/paascreen/preprocessing"
)

// PredictReport holds the outputs of a scoring-only run.
type PredictReport struct {
	// Probabilities is the predicted positive-class probability per row.
	Probabilities []float64
	// Labels is the thresholded 0/1 prediction per row.
	Labels []int
	// Accuracy against the dataset's own label column.
	Accuracy float64
}

// Predict scores a labeled dataset with a previously trained model
// instead of training a new one. The same encoding configuration used
// for training must be supplied.
func Predict(cfg Config) (report *PredictReport, err error) {
	defer errors.Recover(&err, "pipeline.Predict")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ModelPath == "" {
		return nil, errors.NewValueError("pipeline.Predict", "model_path is required")
	}

	model, err := gbdt.LoadFromFile(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.LoadDelimited(cfg.DataPath, rune(cfg.Delimiter[0]))
	if err != nil {
		return nil, err
	}
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
	if err := encoded.CheckFinite(); err != nil {
		return nil, err
	}

	X, y, err := encoded.FeatureMatrix(cfg.LabelColumn)
	if err != nil {
		return nil, err
	}

	proba, err := model.PredictProba(X)
	if err != nil {
		return nil, err
	}
	predicted := metrics.Binarize(proba, cfg.Threshold)

	accuracy, err := metrics.Accuracy(y, predicted)
	if err != nil {
		return nil, err
	}

	report = &PredictReport{
		Probabilities: make([]float64, proba.Len()),
		Labels:        make([]int, proba.Len()),
		Accuracy:      accuracy,
	}
	for i := 0; i < proba.Len(); i++ {
		report.Probabilities[i] = proba.AtVec(i)
		report.Labels[i] = int(predicted.AtVec(i))
	}

	log.GetLoggerWithName("pipeline").Info("scoring complete",
		log.StageKey, "predict",
		log.RowsKey, len(report.Probabilities),
		log.AccuracyKey, report.Accuracy,
	)
	return report, nil
}
