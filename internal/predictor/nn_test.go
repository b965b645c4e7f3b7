package predictor

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetwork_ForwardDimensions(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	net := NewNetwork([]int{6, 32, 16, 3}, rng)

	input := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	output := net.Forward(input)

	assert.Len(t, output, 3, "output should have 3 elements")
	for i, v := range output {
		assert.False(t, math.IsNaN(v), "output %d should not be NaN", i)
	}
}

func TestNetwork_XOR(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	net := NewNetwork([]int{2, 8, 1}, rng)

	trainX := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	trainY := [][]float64{{0}, {1}, {1}, {0}}

	cfg := TrainConfig{
		LearningRate: 0.05,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		BatchSize:    4,
		Epochs:       3000,
	}

	losses := net.Train(trainX, trainY, trainX, trainY, cfg, rng)

	finalLoss := losses[len(losses)-1]
	assert.Less(t, finalLoss, 0.01, "XOR should converge, final MSE: %f", finalLoss)

	for i, x := range trainX {
		pred := net.Forward(x)[0]
		expected := trainY[i][0]
		assert.InDelta(t, expected, pred, 0.15, "XOR input %v: expected %.1f, got %.3f", x, expected, pred)
	}
}

func TestNetwork_MultiOutputRegression(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	net := NewNetwork([]int{2, 16, 2}, rng)

	// Learn two simple linear targets: sum and difference.
	var trainX, trainY [][]float64
	for i := 0; i < 200; i++ {
		a := rng.Float64()*2 - 1
		b := rng.Float64()*2 - 1
		trainX = append(trainX, []float64{a, b})
		trainY = append(trainY, []float64{a + b, a - b})
	}

	cfg := DefaultTrainConfig()
	cfg.Epochs = 500
	losses := net.Train(trainX, trainY, trainX, trainY, cfg, rng)

	assert.Less(t, losses[len(losses)-1], 0.01)

	pred := net.Forward([]float64{0.5, 0.2})
	assert.InDelta(t, 0.7, pred[0], 0.1)
	assert.InDelta(t, 0.3, pred[1], 0.1)
}

func TestNetwork_GradientDescendsLoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(123, 0))
	net := NewNetwork([]int{3, 8, 2}, rng)

	var X, Y [][]float64
	for i := 0; i < 100; i++ {
		a := rng.Float64()
		b := rng.Float64()
		c := rng.Float64()
		X = append(X, []float64{a, b, c})
		Y = append(Y, []float64{a * b, b + c})
	}

	initialLoss := net.MSELoss(X, Y)
	cfg := DefaultTrainConfig()
	cfg.Epochs = 200
	net.Train(X, Y, X, Y, cfg, rng)

	assert.Less(t, net.MSELoss(X, Y), initialLoss, "training should reduce loss")
}
