package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/errors"
)

// PRPoint は精度-再現率曲線上の1点を表す
type PRPoint struct {
	Threshold float64 `json:"threshold"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// PrecisionRecallCurve は予測確率の全ての異なる値を降順に閾値として掃引し、
// 各カットでの(再現率, 精度)の列を返す
// 先頭には基準点(recall=0, precision=1)が入り、再現率は単調非減少となる
func PrecisionRecallCurve(yTrue, yPred *mat.VecDense) ([]PRPoint, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return nil, errors.NewValueError("PrecisionRecallCurve", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("PrecisionRecallCurve", "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError("PrecisionRecallCurve", n, yPred.Len(), 0)
	}

	nPos := 0
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 0 && y != 1 {
			return nil, errors.NewValueError("PrecisionRecallCurve", "labels must be 0 or 1")
		}
		if y == 1 {
			nPos++
		}
	}

	curve := []PRPoint{{Threshold: 1.0, Precision: 1.0, Recall: 0.0}}

	// 正例が存在しない場合、再現率は定義できないため基準点のみ返す
	if nPos == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("PrecisionRecallCurve",
			"no positive samples in y_true", 0.0))
		return curve, nil
	}

	// 予測値の降順にソート
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) > yPred.AtVec(idx[b])
	})

	tp := 0
	fp := 0
	i := 0
	for i < n {
		threshold := yPred.AtVec(idx[i])
		// 同じ予測値のサンプルは同じカットに属する
		for i < n && yPred.AtVec(idx[i]) == threshold {
			if yTrue.AtVec(idx[i]) == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		curve = append(curve, PRPoint{
			Threshold: threshold,
			Precision: float64(tp) / float64(tp+fp),
			Recall:    float64(tp) / float64(nPos),
		})
	}

	return curve, nil
}

// AUCPR は精度-再現率曲線の下面積を左リーマン和（ステップ関数）で計算する
// AUCPR = Σ (R_i - R_{i-1}) * P_i
func AUCPR(yTrue, yPred *mat.VecDense) (float64, error) {
	curve, err := PrecisionRecallCurve(yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var area float64
	for i := 1; i < len(curve); i++ {
		area += (curve[i].Recall - curve[i-1].Recall) * curve[i].Precision
	}
	return area, nil
}

// AveragePrecision はランキングの平均精度を計算する
// 各正例の順位における精度を正例総数で平均したもので、
// ステップ関数積分によるAUCPRと一致する
// 同じ予測値のサンプルは同じカットとして扱うため、同点の並び順に依存しない
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AveragePrecision", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AveragePrecision", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("AveragePrecision", n, yPred.Len(), 0)
	}

	nPos := 0
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 0 && y != 1 {
			return 0, errors.NewValueError("AveragePrecision", "labels must be 0 or 1")
		}
		if y == 1 {
			nPos++
		}
	}
	if nPos == 0 {
		return 0.0, nil
	}

	// 予測値の降順にソート
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) > yPred.AtVec(idx[b])
	})

	tp := 0
	fp := 0
	var sum float64
	i := 0
	for i < n {
		threshold := yPred.AtVec(idx[i])
		tpGroup := 0
		// 同じ予測値のサンプルは同じカットに属する
		for i < n && yPred.AtVec(idx[i]) == threshold {
			if yTrue.AtVec(idx[i]) == 1 {
				tpGroup++
				tp++
			} else {
				fp++
			}
			i++
		}
		if tpGroup > 0 {
			sum += float64(tpGroup) * float64(tp) / float64(tp+fp)
		}
	}
	return sum / float64(nPos), nil
}

// Binarize は予測確率を閾値で0/1ラベルに変換する
// p > threshold のとき正例と判定するため、threshold=1.0では
// 全サンプルが負例となり再現率は0になる
func Binarize(yPred *mat.VecDense, threshold float64) *mat.VecDense {
	labels := mat.NewVecDense(yPred.Len(), nil)
	for i := 0; i < yPred.Len(); i++ {
		if yPred.AtVec(i) > threshold {
			labels.SetVec(i, 1)
		}
	}
	return labels
}
