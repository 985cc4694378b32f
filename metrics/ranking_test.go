package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAveragePrecision(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect ranking",
			yTrue: []float64{1, 1, 1, 0, 0},
			yPred: []float64{5, 4, 3, 2, 1},
			want:  1.0,
		},
		{
			name:  "Worst ranking",
			yTrue: []float64{1, 1, 1, 0, 0},
			yPred: []float64{1, 2, 3, 4, 5},
			want:  0.478, // (1/3 + 2/4 + 3/5) / 3
		},
		{
			name:  "Mixed ranking",
			yTrue: []float64{1, 0, 1, 0, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.6, 0.5},
			want:  0.756, // (1/1 + 2/3 + 3/5) / 3
		},
		{
			name:  "Single relevant",
			yTrue: []float64{0, 0, 1, 0, 0},
			yPred: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
			want:  0.333, // 1/3
		},
		{
			name:  "No relevant items",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{1, 2, 3, 4},
			want:  0.0,
		},
		{
			name:  "All relevant",
			yTrue: []float64{1, 1, 1},
			yPred: []float64{3, 2, 1},
			want:  1.0,
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := AveragePrecision(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AveragePrecision() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("AveragePrecision() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 同点の予測値は1つのカットとして扱うため、結果は入力の並び順に依存しない
func TestAveragePrecisionTiedScores(t *testing.T) {
	tied := mat.NewVecDense(2, []float64{0.5, 0.5})

	got1, err := AveragePrecision(mat.NewVecDense(2, []float64{1, 0}), tied)
	if err != nil {
		t.Fatalf("AveragePrecision() error = %v", err)
	}
	got2, err := AveragePrecision(mat.NewVecDense(2, []float64{0, 1}), tied)
	if err != nil {
		t.Fatalf("AveragePrecision() error = %v", err)
	}
	if got1 != got2 {
		t.Errorf("tied scores gave order-dependent results: %v vs %v", got1, got2)
	}
	if math.Abs(got1-0.5) > 1e-9 {
		t.Errorf("AveragePrecision() = %v, want 0.5", got1)
	}

	// 同点グループを含む場合もステップ関数積分のAUCPRと一致する
	yTrue := mat.NewVecDense(6, []float64{1, 0, 1, 1, 0, 0})
	yPred := mat.NewVecDense(6, []float64{0.9, 0.7, 0.7, 0.7, 0.4, 0.4})

	ap, err := AveragePrecision(yTrue, yPred)
	if err != nil {
		t.Fatalf("AveragePrecision() error = %v", err)
	}
	aucpr, err := AUCPR(yTrue, yPred)
	if err != nil {
		t.Fatalf("AUCPR() error = %v", err)
	}
	if math.Abs(ap-aucpr) > 1e-9 {
		t.Errorf("AveragePrecision = %v, AUCPR = %v; want equal", ap, aucpr)
	}
}

func TestPrecisionRecallCurve(t *testing.T) {
	yTrue := mat.NewVecDense(5, []float64{1, 0, 1, 0, 1})
	yPred := mat.NewVecDense(5, []float64{0.9, 0.8, 0.7, 0.6, 0.5})

	curve, err := PrecisionRecallCurve(yTrue, yPred)
	if err != nil {
		t.Fatalf("PrecisionRecallCurve() error = %v", err)
	}

	// 基準点 + 異なる予測値ごとに1点
	if len(curve) != 6 {
		t.Fatalf("got %d points, want 6", len(curve))
	}

	// 先頭は(recall=0, precision=1)の基準点
	if curve[0].Recall != 0 || curve[0].Precision != 1 {
		t.Errorf("curve[0] = (R=%v, P=%v), want (R=0, P=1)", curve[0].Recall, curve[0].Precision)
	}

	// 再現率は単調非減少
	for i := 1; i < len(curve); i++ {
		if curve[i].Recall < curve[i-1].Recall {
			t.Errorf("recall decreased at point %d: %v -> %v", i, curve[i-1].Recall, curve[i].Recall)
		}
	}

	// 最終点は再現率1（全ての正例を回収）
	last := curve[len(curve)-1]
	if math.Abs(last.Recall-1.0) > 1e-9 {
		t.Errorf("final recall = %v, want 1.0", last.Recall)
	}
	if math.Abs(last.Precision-0.6) > 1e-9 {
		t.Errorf("final precision = %v, want 0.6", last.Precision)
	}

	// 各点の精度・再現率は[0,1]の範囲
	for i, point := range curve {
		if point.Precision < 0 || point.Precision > 1 || point.Recall < 0 || point.Recall > 1 {
			t.Errorf("point %d out of range: %+v", i, point)
		}
	}
}

func TestPrecisionRecallCurveTiedScores(t *testing.T) {
	// 同じ予測値のサンプルは同じカットに属する
	yTrue := mat.NewVecDense(4, []float64{1, 0, 1, 0})
	yPred := mat.NewVecDense(4, []float64{0.8, 0.8, 0.3, 0.3})

	curve, err := PrecisionRecallCurve(yTrue, yPred)
	if err != nil {
		t.Fatalf("PrecisionRecallCurve() error = %v", err)
	}
	if len(curve) != 3 {
		t.Fatalf("got %d points, want 3", len(curve))
	}
	if math.Abs(curve[1].Precision-0.5) > 1e-9 || math.Abs(curve[1].Recall-0.5) > 1e-9 {
		t.Errorf("curve[1] = (R=%v, P=%v), want (R=0.5, P=0.5)", curve[1].Recall, curve[1].Precision)
	}
}

func TestAUCPR(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect ranking",
			yTrue: []float64{1, 1, 1, 0, 0},
			yPred: []float64{5, 4, 3, 2, 1},
			want:  1.0,
		},
		{
			name:  "Worst ranking",
			yTrue: []float64{1, 1, 1, 0, 0},
			yPred: []float64{1, 2, 3, 4, 5},
			want:  0.478,
		},
		{
			name:  "Mixed ranking",
			yTrue: []float64{1, 0, 1, 0, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.6, 0.5},
			want:  0.756,
		},
		{
			// 正例が存在しない退化ケースは0を返す
			name:  "All negatives",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.2, 0.3, 0.4},
			want:  0.0,
		},
		{
			// 全て正例なら曲線は精度1で張り付く
			name:  "All positives",
			yTrue: []float64{1, 1, 1},
			yPred: []float64{0.2, 0.5, 0.9},
			want:  1.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := AUCPR(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUCPR() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("AUCPR() = %v, want %v", got, tt.want)
			}
		})
	}
}

// AUCPRはステップ関数積分のためAveragePrecisionと一致する
func TestAUCPRMatchesAveragePrecision(t *testing.T) {
	yTrue := mat.NewVecDense(8, []float64{1, 0, 1, 1, 0, 0, 1, 0})
	yPred := mat.NewVecDense(8, []float64{0.95, 0.85, 0.8, 0.7, 0.6, 0.4, 0.3, 0.1})

	aucpr, err := AUCPR(yTrue, yPred)
	if err != nil {
		t.Fatalf("AUCPR() error = %v", err)
	}
	ap, err := AveragePrecision(yTrue, yPred)
	if err != nil {
		t.Fatalf("AveragePrecision() error = %v", err)
	}
	if math.Abs(aucpr-ap) > 1e-9 {
		t.Errorf("AUCPR = %v, AveragePrecision = %v; want equal", aucpr, ap)
	}
}

func TestBinarize(t *testing.T) {
	yPred := mat.NewVecDense(4, []float64{0.2, 0.5, 0.7, 1.0})

	tests := []struct {
		name      string
		threshold float64
		want      []float64
	}{
		{"Default threshold", 0.5, []float64{0, 0, 1, 1}},
		{"Low threshold", 0.1, []float64{1, 1, 1, 1}},
		{"Threshold one yields no positives", 1.0, []float64{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Binarize(yPred, tt.threshold)
			for i, want := range tt.want {
				if got.AtVec(i) != want {
					t.Errorf("Binarize()[%d] = %v, want %v", i, got.AtVec(i), want)
				}
			}
		})
	}
}

// 閾値を上げても再現率は増加しない
func TestThresholdMonotonicity(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{1, 0, 1, 0, 1, 0})
	yPred := mat.NewVecDense(6, []float64{0.9, 0.8, 0.6, 0.5, 0.3, 0.1})

	recallAt := func(threshold float64) float64 {
		labels := Binarize(yPred, threshold)
		tp, fn := 0, 0
		for i := 0; i < yTrue.Len(); i++ {
			if yTrue.AtVec(i) == 1 {
				if labels.AtVec(i) == 1 {
					tp++
				} else {
					fn++
				}
			}
		}
		return float64(tp) / float64(tp+fn)
	}

	prev := math.Inf(1)
	for _, threshold := range []float64{0.0, 0.2, 0.4, 0.55, 0.7, 0.85, 1.0} {
		recall := recallAt(threshold)
		if recall > prev {
			t.Errorf("recall increased from %v to %v at threshold %v", prev, recall, threshold)
		}
		prev = recall
	}
}

func BenchmarkAveragePrecision(b *testing.B) {
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%3 == 0 {
			yTrue[i] = 1
		}
		yPred[i] = float64(i) / float64(n)
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AveragePrecision(yTrueVec, yPredVec)
	}
}
