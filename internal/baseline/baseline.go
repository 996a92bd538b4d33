// Package baseline maintains the per-video rolling behavioral history and
// turns a new window's metrics into robust z-scores and a composite
// coordination score, per spec.md §4.B.
package baseline

import (
	"sort"

	"commentwatch/internal/model"
)

// noise floors, fixed per spec.md §4.B.
const (
	floorCount         = 2.0
	floorAuthors       = 2.0
	floorLength        = 10.0
	floorSentiment     = 0.1
	floorConcentration = 0.15
	floorSentimentVar  = 0.05
	floorGap           = 5.0
	floorGapVar        = 10.0
)

// ZScores is the z-vector produced by Evaluate.
type ZScores struct {
	CountZ         float64
	AuthorZ        float64
	LengthZ        float64
	SentimentZ     float64
	ConcentrationZ float64
	SentimentVarZ  float64
	GapZ           float64
	GapVarZ        float64
}

// Weights mirrors config.Weights without importing the config package, so
// baseline stays free of configuration-loading concerns.
type Weights struct {
	Concentration float64
	GapVariance   float64
	SentimentVar  float64
	Count         float64
}

// Options configures a Baseline's thresholds; all fields have the spec.md
// §6 defaults applied by New when left zero.
type Options struct {
	MaxWindows               int
	Warmup                   int
	NoiseFloor               float64
	RoboticThreshold         float64
	RoboticPenaltyMultiplier float64
	Weights                  Weights
}

func (o *Options) applyDefaults() {
	if o.MaxWindows <= 0 {
		o.MaxWindows = 20
	}
	if o.Warmup <= 0 {
		o.Warmup = 10
	}
	if o.NoiseFloor == 0 {
		o.NoiseFloor = 1.0
	}
	if o.RoboticThreshold == 0 {
		o.RoboticThreshold = -1.5
	}
	if o.RoboticPenaltyMultiplier == 0 {
		o.RoboticPenaltyMultiplier = 2.0
	}
	if o.Weights == (Weights{}) {
		o.Weights = Weights{Concentration: 0.4, GapVariance: 0.3, SentimentVar: 0.2, Count: 0.1}
	}
}

// Baseline is one video's bounded rolling history. It is never shared
// across videos (spec.md §3 "Ownership") and is not safe for concurrent
// use by more than one goroutine; the orchestrator gives each video
// exclusive access to its own Baseline.
type Baseline struct {
	opts Options

	counts        []float64
	authors       []float64
	lengths       []float64
	sentiments    []float64
	concentration []float64
	sentimentVar  []float64
	avgGaps       []float64
	gapVars       []float64
}

// New creates an empty Baseline. Capacity defaults to 20 windows and
// warmup to 10, per spec.md §3 and §4.B.
func New(opts Options) *Baseline {
	opts.applyDefaults()
	return &Baseline{opts: opts}
}

// Update appends record's eight derived values (concentration is derived
// from total/authors) to the parallel history series, evicting the oldest
// entry once at capacity.
func (b *Baseline) Update(record model.WindowMetricRecord) {
	b.counts = push(b.counts, float64(record.TotalComments), b.opts.MaxWindows)
	authors := record.UniqueAuthors
	if authors < 1 {
		authors = 1
	}
	b.authors = push(b.authors, float64(authors), b.opts.MaxWindows)
	b.lengths = push(b.lengths, record.AvgLength, b.opts.MaxWindows)
	b.sentiments = push(b.sentiments, record.AvgSentiment, b.opts.MaxWindows)
	b.concentration = push(b.concentration, float64(record.TotalComments)/float64(authors), b.opts.MaxWindows)
	b.sentimentVar = push(b.sentimentVar, record.SentimentVariance, b.opts.MaxWindows)
	b.avgGaps = push(b.avgGaps, record.AvgGap, b.opts.MaxWindows)
	b.gapVars = push(b.gapVars, record.GapVariance, b.opts.MaxWindows)
}

// Len reports the number of windows currently held, the same for every
// series since Update always appends to all eight together.
func (b *Baseline) Len() int { return len(b.counts) }

// Evaluate computes the robust z-vector for record against the history
// observed so far, NOT including record itself (callers must call Evaluate
// before Update for the same record, per spec.md §4.B "Ordering"). It
// returns ok=false if any series has fewer than Warmup entries.
func (b *Baseline) Evaluate(record model.WindowMetricRecord) (ZScores, bool) {
	if b.Len() < b.opts.Warmup {
		return ZScores{}, false
	}
	authors := record.UniqueAuthors
	if authors < 1 {
		authors = 1
	}
	total := float64(record.TotalComments)

	return ZScores{
		CountZ:         robustZ(total, b.counts, floorCount),
		AuthorZ:        robustZ(float64(authors), b.authors, floorAuthors),
		LengthZ:        robustZ(record.AvgLength, b.lengths, floorLength),
		SentimentZ:     robustZ(record.AvgSentiment, b.sentiments, floorSentiment),
		ConcentrationZ: robustZ(total/float64(authors), b.concentration, floorConcentration),
		SentimentVarZ:  robustZ(record.SentimentVariance, b.sentimentVar, floorSentimentVar),
		GapZ:           robustZ(record.AvgGap, b.avgGaps, floorGap),
		GapVarZ:        robustZ(record.GapVariance, b.gapVars, floorGapVar),
	}, true
}

// robustZ implements spec.md §4.B's "Robust z": median/MAD scaled z-score,
// floored by noiseFloor and clamped to [-20, 20]. Series shorter than 3
// entries always yield 0.
func robustZ(value float64, series []float64, noiseFloor float64) float64 {
	if len(series) < 3 {
		return 0
	}
	m := median(series)
	deviations := make([]float64, len(series))
	for i, x := range series {
		d := x - m
		if d < 0 {
			d = -d
		}
		deviations[i] = d
	}
	mad := median(deviations)
	sigma := mad * 1.4826
	if sigma < noiseFloor {
		sigma = noiseFloor
	}
	if sigma == 0 {
		return 0
	}
	z := (value - m) / sigma
	if z > 20 {
		return 20
	}
	if z < -20 {
		return -20
	}
	return z
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// dampen attenuates sub-threshold deviations per spec.md §4.B "Dampening".
func dampen(z, noiseFloor float64) float64 {
	abs := z
	if abs < 0 {
		abs = -abs
	}
	if abs > noiseFloor {
		return abs
	}
	return abs * 0.1
}

// CoordinationScore computes the composite score from a z-vector per
// spec.md §4.B, applying the robotic-timing bias to gap_var_z and the
// configured weights. The result is rounded to 4 decimals.
func (b *Baseline) CoordinationScore(z ZScores) float64 {
	nf := b.opts.NoiseFloor
	gapSignal := dampen(z.GapVarZ, nf)
	if z.GapVarZ < b.opts.RoboticThreshold {
		gapSignal *= b.opts.RoboticPenaltyMultiplier
	}
	w := b.opts.Weights
	score := dampen(z.ConcentrationZ, nf)*w.Concentration +
		gapSignal*w.GapVariance +
		dampen(z.SentimentVarZ, nf)*w.SentimentVar +
		dampen(z.CountZ, nf)*w.Count
	return roundTo4(score)
}

func roundTo4(v float64) float64 {
	const scale = 10000.0
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}

func push(series []float64, v float64, capacity int) []float64 {
	series = append(series, v)
	if len(series) > capacity {
		series = series[len(series)-capacity:]
	}
	return series
}
