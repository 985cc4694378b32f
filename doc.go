// Package paascreen implements an end-to-end pipeline for screening
// clinical subjects from plasma amino acid profiles with a
// gradient-boosted binary classifier.
//
// The pipeline runs as a single sequential pass: load a delimited
// dataset, encode categorical fields with fixed integer mappings,
// split into stratified train/validation/test partitions under a fixed
// seed, train with early stopping against the validation partition,
// and evaluate accuracy and the precision-recall curve on the test
// partition.
//
// # Quick Start
//
//	cfg := pipeline.DefaultConfig()
//	cfg.DataPath = "screening.csv"
//	cfg.IDColumns = []string{"subject_id"}
//	cfg.LabelColumn = "outcome"
//	cfg.Mappings = map[string]map[string]int{
//	    "sex":     {"F": 0, "M": 1},
//	    "outcome": {"healthy": 0, "affected": 1},
//	}
//
//	report, err := pipeline.Run(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("accuracy=%.4f auc-pr=%.4f\n", report.Accuracy, report.AUCPR)
//
// # Packages
//
//   - dataset: delimited loading with column type inference
//   - preprocessing: ordinal encoding of categorical columns
//   - split: stratified three-way splitting and k-fold splitters
//   - gbdt: gradient-boosted tree training, early stopping, persistence
//   - metrics: accuracy, log-loss, ROC AUC, precision-recall curves
//   - pipeline: the sequential workflow tying the stages together
package paascreen
