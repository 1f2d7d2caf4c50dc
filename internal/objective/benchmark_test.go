package objective

import "testing"

func BenchmarkEvaluate(b *testing.B) {
	p := Params{
		LearningRate:  1e-3,
		BatchSize:     96,
		Dropout:       0.3,
		NumLayers:     6,
		OptimizerType: OptimizerAdam,
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Evaluate(p)
	}
}

func BenchmarkNeuralNetworkAdapter(b *testing.B) {
	fn := NeuralNetwork()
	point := map[string]float64{
		ParamLearningRate:  1e-3,
		ParamBatchSize:     96,
		ParamDropout:       0.3,
		ParamNumLayers:     6,
		ParamOptimizerType: OptimizerAdam,
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := fn(point); err != nil {
			b.Fatal(err)
		}
	}
}
