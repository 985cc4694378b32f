package preprocessing

import (
	"sort"

	"github.com/clinml/paascreen/core/model"
	"github.com/clinml/paascreen/dataset"
	"github.com/clinml/paascreen/pkg/errors"
)

// OrdinalEncoder はカテゴリ列を固定の整数コードに変換するエンコーダー
// 列ごとに明示的なマッピング（例: sex: F→0, M→1）を与え、
// マッピングに存在しない値は黙って0にせず必ずエラーで失敗する
type OrdinalEncoder struct {
	model.BaseEstimator

	// Mappings は列名 → (文字列値 → 整数コード) のマッピング
	Mappings map[string]map[string]int

	// columns_ はFit時に確認した対象列名（決定的な順序）
	columns_ []string
}

// NewOrdinalEncoder は明示的なマッピングを持つOrdinalEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewOrdinalEncoder(map[string]map[string]int{
//	    "sex":     {"F": 0, "M": 1},
//	    "outcome": {"healthy": 0, "affected": 1},
//	})
//	encoded, err := enc.FitTransform(ds)
func NewOrdinalEncoder(mappings map[string]map[string]int) *OrdinalEncoder {
	return &OrdinalEncoder{Mappings: mappings}
}

// Fit はマッピング対象の列がデータセットに存在し、カテゴリ列であることを確認する
func (e *OrdinalEncoder) Fit(ds *dataset.Dataset) error {
	if ds.NumRows() == 0 {
		return errors.NewModelError("OrdinalEncoder.Fit", "empty dataset", errors.ErrEmptyData)
	}
	if len(e.Mappings) == 0 {
		return errors.NewValueError("OrdinalEncoder.Fit", "no column mappings configured")
	}

	// マッピングの順序を決定的にするため列名をソートしておく
	cols := make([]string, 0, len(e.Mappings))
	for name := range e.Mappings {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	for _, name := range cols {
		col, err := ds.Column(name)
		if err != nil {
			return err
		}
		if col.Kind != dataset.Categorical {
			return errors.NewValueError("OrdinalEncoder.Fit",
				"column "+name+" is numeric; only categorical columns can be encoded")
		}
		if len(e.Mappings[name]) == 0 {
			return errors.NewValueError("OrdinalEncoder.Fit", "empty mapping for column "+name)
		}
	}

	e.columns_ = cols
	e.SetFitted()
	return nil
}

// Transform はカテゴリ列を整数コードの数値列に変換した新しいデータセットを返す
// マッピングに存在しない値が現れた場合はUnknownCategoryErrorで失敗する
// 行数は変換前後で必ず一致する
func (e *OrdinalEncoder) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OrdinalEncoder", "Transform")
	}

	cols := make([]dataset.Column, 0, ds.NumCols())
	for _, name := range ds.ColumnNames() {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}

		mapping, mapped := e.Mappings[name]
		if !mapped {
			if col.Kind == dataset.Categorical {
				return nil, errors.NewValueError("OrdinalEncoder.Transform",
					"categorical column "+name+" has no mapping")
			}
			cols = append(cols, *col)
			continue
		}

		encoded := dataset.Column{
			Name:   name,
			Kind:   dataset.Numeric,
			Floats: make([]float64, col.Len()),
		}
		for i, v := range col.Strings {
			code, ok := mapping[v]
			if !ok {
				return nil, errors.NewUnknownCategoryError(name, v, knownValues(mapping))
			}
			encoded.Floats[i] = float64(code)
		}
		cols = append(cols, encoded)
	}

	return dataset.New(cols)
}

// FitTransform はFitとTransformを同時に実行する
func (e *OrdinalEncoder) FitTransform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if err := e.Fit(ds); err != nil {
		return nil, err
	}
	return e.Transform(ds)
}

// knownValues はマッピングの既知の値をソートして返す（エラーメッセージ用）
func knownValues(mapping map[string]int) []string {
	known := make([]string, 0, len(mapping))
	for v := range mapping {
		known = append(known, v)
	}
	sort.Strings(known)
	return known
}
