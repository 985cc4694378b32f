package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを特徴行列Xとラベルベクトルyで学習させる
	Fit(X mat.Matrix, y *mat.VecDense) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対するラベル予測を行う
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// ProbaPredictor は正例確率を出力できるモデルのインターフェース
type ProbaPredictor interface {
	// PredictProba は各サンプルの正例確率を返す
	PredictProba(X mat.Matrix) (*mat.VecDense, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は予測の評価スコアを返す（分類では正解率）
	Score(X mat.Matrix, y *mat.VecDense) (float64, error)
}

// Model は教師あり学習モデルの基本インターフェース
type Model interface {
	Fitter
	Predictor
}
