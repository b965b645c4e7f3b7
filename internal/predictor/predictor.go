package predictor

import (
	"errors"
	"math"
	"math/rand/v2"
)

// MinTrainingSamples is the minimum history size before training is allowed.
const MinTrainingSamples = 10

var (
	// ErrInsufficientData is returned when the history is too small to train on.
	ErrInsufficientData = errors.New("insufficient data for training")
	// ErrNotTrained is returned by Predict before a successful Train.
	ErrNotTrained = errors.New("predictor has not been trained")
)

// Sample is one training example joining a reading with its solar sample.
type Sample struct {
	Hour       int
	DayOfWeek  int
	IntensityW float64
	PanelTempC float64

	SolarW       float64
	WindW        float64
	ConsumptionW float64
}

// Features are the conditions a prediction is made for.
type Features struct {
	Hour       int
	DayOfWeek  int
	IntensityW float64
	PanelTempC float64
}

// Targets are predicted power levels in watts.
type Targets struct {
	SolarW       float64 `json:"predicted_solar_w"`
	WindW        float64 `json:"predicted_wind_w"`
	ConsumptionW float64 `json:"predicted_consumption_w"`
}

// Predictor trains on telemetry history and predicts power levels. The
// interface exists so the network model can be swapped without touching
// its consumers.
type Predictor interface {
	Train(samples []Sample) error
	Predict(f Features) (Targets, error)
}

// Normalization holds z-score parameters for the continuous features and
// the three targets.
type Normalization struct {
	IntensityMean float64
	IntensityStd  float64
	TempMean      float64
	TempStd       float64
	TargetMean    [3]float64
	TargetStd     [3]float64
}

// NeuralPredictor is the feedforward-network Predictor implementation.
type NeuralPredictor struct {
	net  *Network
	norm Normalization
	cfg  TrainConfig
	seed uint64
}

// NewNeuralPredictor creates an untrained predictor. The seed fixes weight
// initialization and shuffling for reproducible training.
func NewNeuralPredictor(cfg TrainConfig, seed uint64) *NeuralPredictor {
	return &NeuralPredictor{cfg: cfg, seed: seed}
}

// EncodeFeatures converts (hour, dayOfWeek, normIntensity, normTemp) to a
// 6-element feature vector. Hour and day-of-week are cyclically encoded so
// 23:00 sits next to 00:00 and Sunday next to Monday.
func EncodeFeatures(hour, dayOfWeek int, normIntensity, normTemp float64) []float64 {
	hAngle := 2 * math.Pi * float64(hour) / 24.0
	dAngle := 2 * math.Pi * float64(dayOfWeek) / 7.0
	return []float64{
		math.Sin(hAngle),
		math.Cos(hAngle),
		math.Sin(dAngle),
		math.Cos(dAngle),
		normIntensity,
		normTemp,
	}
}

// ComputeNormalization computes z-score parameters from training samples.
func ComputeNormalization(samples []Sample) Normalization {
	n := float64(len(samples))
	var norm Normalization

	var intensitySum, tempSum float64
	var targetSum [3]float64
	for _, s := range samples {
		intensitySum += s.IntensityW
		tempSum += s.PanelTempC
		targetSum[0] += s.SolarW
		targetSum[1] += s.WindW
		targetSum[2] += s.ConsumptionW
	}
	norm.IntensityMean = intensitySum / n
	norm.TempMean = tempSum / n
	for i := range targetSum {
		norm.TargetMean[i] = targetSum[i] / n
	}

	var intensityVar, tempVar float64
	var targetVar [3]float64
	for _, s := range samples {
		di := s.IntensityW - norm.IntensityMean
		dt := s.PanelTempC - norm.TempMean
		intensityVar += di * di
		tempVar += dt * dt
		for i, v := range [3]float64{s.SolarW, s.WindW, s.ConsumptionW} {
			d := v - norm.TargetMean[i]
			targetVar[i] += d * d
		}
	}
	norm.IntensityStd = nonZeroStd(math.Sqrt(intensityVar / n))
	norm.TempStd = nonZeroStd(math.Sqrt(tempVar / n))
	for i := range targetVar {
		norm.TargetStd[i] = nonZeroStd(math.Sqrt(targetVar[i] / n))
	}
	return norm
}

func nonZeroStd(std float64) float64 {
	if std < 1e-10 {
		return 1
	}
	return std
}

// Train fits the network on the given history. Fewer than
// MinTrainingSamples samples yields ErrInsufficientData and leaves any
// previously trained model in place.
func (p *NeuralPredictor) Train(samples []Sample) error {
	if len(samples) < MinTrainingSamples {
		return ErrInsufficientData
	}

	rng := rand.New(rand.NewPCG(p.seed, 0))
	norm := ComputeNormalization(samples)

	X := make([][]float64, len(samples))
	Y := make([][]float64, len(samples))
	for i, s := range samples {
		X[i] = p.encode(norm, Features{
			Hour:       s.Hour,
			DayOfWeek:  s.DayOfWeek,
			IntensityW: s.IntensityW,
			PanelTempC: s.PanelTempC,
		})
		Y[i] = []float64{
			(s.SolarW - norm.TargetMean[0]) / norm.TargetStd[0],
			(s.WindW - norm.TargetMean[1]) / norm.TargetStd[1],
			(s.ConsumptionW - norm.TargetMean[2]) / norm.TargetStd[2],
		}
	}

	trainX, trainY, valX, valY := ShuffleAndSplit(X, Y, rng)
	net := NewNetwork([]int{6, 32, 16, 3}, rng)
	net.Train(trainX, trainY, valX, valY, p.cfg, rng)

	p.net = net
	p.norm = norm
	return nil
}

// Predict returns the denormalized power predictions for the given
// conditions, floored at zero since negative power is meaningless here.
func (p *NeuralPredictor) Predict(f Features) (Targets, error) {
	if p.net == nil {
		return Targets{}, ErrNotTrained
	}

	out := p.net.Forward(p.encode(p.norm, f))
	denorm := func(i int) float64 {
		return math.Max(0, out[i]*p.norm.TargetStd[i]+p.norm.TargetMean[i])
	}
	return Targets{
		SolarW:       denorm(0),
		WindW:        denorm(1),
		ConsumptionW: denorm(2),
	}, nil
}

// Trained reports whether a model is available.
func (p *NeuralPredictor) Trained() bool {
	return p.net != nil
}

func (p *NeuralPredictor) encode(norm Normalization, f Features) []float64 {
	normIntensity := (f.IntensityW - norm.IntensityMean) / norm.IntensityStd
	normTemp := (f.PanelTempC - norm.TempMean) / norm.TempStd
	return EncodeFeatures(f.Hour, f.DayOfWeek, normIntensity, normTemp)
}

// ShuffleAndSplit shuffles data and returns a 90/10 train/val split.
func ShuffleAndSplit(X, Y [][]float64, rng *rand.Rand) (trainX, trainY, valX, valY [][]float64) {
	n := len(X)
	nVal := n / 10
	if nVal < 1 {
		nVal = 1
	}
	nTrain := n - nVal

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	trainX = make([][]float64, nTrain)
	trainY = make([][]float64, nTrain)
	valX = make([][]float64, nVal)
	valY = make([][]float64, nVal)
	for i := 0; i < nTrain; i++ {
		trainX[i] = X[indices[i]]
		trainY[i] = Y[indices[i]]
	}
	for i := 0; i < nVal; i++ {
		valX[i] = X[indices[nTrain+i]]
		valY[i] = Y[indices[nTrain+i]]
	}
	return
}
