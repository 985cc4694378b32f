package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/clinml/paascreen/pkg/errors"
)

// Accuracy は正解率（予測ラベルが正解と完全一致する割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errRate, nil
}

// ClassificationError は誤分類率（予測ラベルが正解と一致しない割合）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("ClassificationError", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("ClassificationError", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("ClassificationError", n, yPred.Len(), 0)
	}

	miss := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			miss++
		}
	}
	return float64(miss) / float64(n), nil
}

// BinaryLogLoss は二値分類のロジスティック損失を計算する
// 予測確率はlog(0)を避けるためepsでクリップされる
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("BinaryLogLoss", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("BinaryLogLoss", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("BinaryLogLoss", n, yPred.Len(), 0)
	}

	const eps = 1e-15
	var loss float64
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 0 && y != 1 {
			return 0, errors.NewValueError("BinaryLogLoss", "labels must be 0 or 1")
		}

		p := yPred.AtVec(i)
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}

		if y == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// AUC はROC曲線の下面積を順位ベースで計算する
// 片方のクラスしか存在しない場合は未定義のため0.5を返す
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUC", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yPred.Len(), 0)
	}

	nPos := 0
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 0 && y != 1 {
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
		if y == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC",
			"only one class present", 0.5))
		return 0.5, nil
	}

	// 予測値でソートし、同点には平均順位を割り当てる
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n-1 && yPred.AtVec(idx[j+1]) == yPred.AtVec(idx[i]) {
			j++
		}
		// i..j は同点グループ（順位は1始まり）
		avgRank := float64(i+j)/2.0 + 1.0
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avgRank
		}
		i = j + 1
	}

	// Mann-Whitney U統計量からAUCを導出する
	var rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			rankSum += ranks[i]
		}
	}
	u := rankSum - float64(nPos)*float64(nPos+1)/2.0
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列のみ使用）
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	// 入力検証
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, _ := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}

	return AUC(yTrueVec, yPredVec)
}
