// Package objective implements the neural-network hyperparameter cost model
// searched by the steppe binary. The model is synthetic but captures
// realistic interactions between learning rate, batch size, dropout, depth,
// and optimizer choice.
package objective

import (
	"math"

	"github.com/copyleftdev/STEPPE/internal/search"
	"github.com/copyleftdev/STEPPE/internal/search/space"
)

// Parameter names shared between the cost model, the search space, and the
// driver.
const (
	ParamLearningRate  = "learning_rate"
	ParamBatchSize     = "batch_size"
	ParamDropout       = "dropout"
	ParamNumLayers     = "num_layers"
	ParamOptimizerType = "optimizer_type"
)

// Optimizer choices, encoded numerically so they fit a float-valued grid.
const (
	OptimizerSGD   = 0
	OptimizerAdam  = 1
	OptimizerAdamW = 2
)

// Params is one hyperparameter assignment. All values are float64 because
// grid cells carry numeric values only; NumLayers and OptimizerType hold
// whole numbers.
type Params struct {
	LearningRate  float64
	BatchSize     float64
	Dropout       float64
	NumLayers     float64
	OptimizerType float64
}

// Breakdown is the cost at one assignment plus every diagnostic sub-term.
type Breakdown struct {
	// Value is the total cost being minimized, noise included.
	Value float64

	LRBatchInteraction float64
	DropoutPenalty     float64
	OptimizerPenalty   float64
	ComplexityPenalty  float64
	BatchEfficiency    float64
	Noise              float64

	// PredictedAccuracy is 0.95 - 0.1*Value.
	PredictedAccuracy float64
}

// Evaluate computes the cost of the given hyperparameters. It is
// deterministic and side-effect free: the noise term is a fixed function of
// the inputs, not a random draw.
func Evaluate(p Params) Breakdown {
	// Learning rate should be balanced with batch size.
	lrBatch := math.Abs(math.Log10(p.LearningRate) + math.Log10(p.BatchSize/64.0))

	// Deeper networks want more dropout, up to a ceiling.
	optimalDropout := clip(0.1+0.05*(p.NumLayers-2), 0.0, 0.6)
	dropoutPenalty := (p.Dropout - optimalDropout) * (p.Dropout - optimalDropout)

	// Each optimizer tolerates a different learning-rate range.
	var optimizerPenalty float64
	switch p.OptimizerType {
	case OptimizerSGD:
		if p.LearningRate > 0.1 {
			optimizerPenalty = (p.LearningRate - 0.1) * (p.LearningRate - 0.1)
		}
	case OptimizerAdam:
		if p.LearningRate > 0.001 {
			optimizerPenalty = (p.LearningRate - 0.001) * (p.LearningRate - 0.001) * 0.1
		}
	}

	// Architecture complexity penalty past 8 layers.
	var complexityPenalty float64
	if excess := p.NumLayers - 8; excess > 0 {
		complexityPenalty = 0.01 * excess * excess
	}

	// Batch sizes at exact powers of two cost nothing extra.
	log2Batch := math.Log2(p.BatchSize)
	batchEfficiency := 0.1 * math.Abs(log2Batch-math.Round(log2Batch))

	total := lrBatch + dropoutPenalty + optimizerPenalty + complexityPenalty + batchEfficiency
	noise := 0.01 * math.Sin(123.45*p.LearningRate+67.89*p.Dropout+42.0*p.NumLayers)
	value := total + noise

	return Breakdown{
		Value:              value,
		LRBatchInteraction: lrBatch,
		DropoutPenalty:     dropoutPenalty,
		OptimizerPenalty:   optimizerPenalty,
		ComplexityPenalty:  complexityPenalty,
		BatchEfficiency:    batchEfficiency,
		Noise:              noise,
		PredictedAccuracy:  0.95 - 0.1*value,
	}
}

// Metrics returns the diagnostic sub-terms as a named map, suitable for
// attaching to an evaluation record.
func (b Breakdown) Metrics() map[string]float64 {
	return map[string]float64{
		"lr_batch_interaction": b.LRBatchInteraction,
		"dropout_penalty":      b.DropoutPenalty,
		"optimizer_penalty":    b.OptimizerPenalty,
		"complexity_penalty":   b.ComplexityPenalty,
		"batch_efficiency":     b.BatchEfficiency,
		"noise_component":      b.Noise,
		"predicted_accuracy":   b.PredictedAccuracy,
	}
}

// NeuralNetwork binds the cost model to the search engine's objective
// interface. The returned function rejects points missing any of the five
// required parameters.
func NeuralNetwork() search.ObjectiveFunc {
	return func(point search.Point) (search.Outcome, error) {
		p := Params{}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{ParamLearningRate, &p.LearningRate},
			{ParamBatchSize, &p.BatchSize},
			{ParamDropout, &p.Dropout},
			{ParamNumLayers, &p.NumLayers},
			{ParamOptimizerType, &p.OptimizerType},
		} {
			v, ok := point[field.name]
			if !ok {
				return search.Outcome{}, search.NewErrorf("point is missing parameter %q", field.name).
					WithComponent("objective").
					WithOperation("NeuralNetwork")
			}
			*field.dst = v
		}

		b := Evaluate(p)
		return search.Outcome{Value: b.Value, Metrics: b.Metrics()}, nil
	}
}

// DefaultSpace returns the documented default grid:
// 15 x 8 x 7 x 7 x 3 = 22,050 combinations.
func DefaultSpace() *space.Space {
	return space.MustNew(
		space.LogSpan(ParamLearningRate, 1e-4, 1e-1, 15),
		space.Values(ParamBatchSize, 16, 32, 48, 64, 96, 128, 192, 256),
		space.Span(ParamDropout, 0.0, 0.6, 7),
		space.Values(ParamNumLayers, 2, 3, 4, 5, 6, 7, 8),
		space.Values(ParamOptimizerType, OptimizerSGD, OptimizerAdam, OptimizerAdamW),
	)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
