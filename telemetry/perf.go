package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for one driver iteration.
const (
	PhaseClear   = "clear"
	PhaseAcquire = "acquire"
	PhaseScatter = "scatter"
)

// PerfSample holds timing data for a single iteration.
type PerfSample struct {
	IterationDuration time.Duration
	Phases            map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	iterStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of iterations to aggregate over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// WindowSize returns the number of iterations per window.
func (p *PerfCollector) WindowSize() int { return p.windowSize }

// StartIteration begins timing a new iteration.
func (p *PerfCollector) StartIteration() {
	p.iterStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndIteration finishes timing the current iteration and records the sample.
func (p *PerfCollector) EndIteration() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		IterationDuration: now.Sub(p.iterStart),
		Phases:            p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// ResetWindow discards recorded samples so the next Stats covers only
// iterations ended after this call.
func (p *PerfCollector) ResetWindow() {
	p.writeIndex = 0
	p.sampleCount = 0
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Samples int

	AvgIteration time.Duration
	MinIteration time.Duration
	MaxIteration time.Duration

	// Phase breakdown (average durations and share of iteration time)
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	// Scatter phase distribution
	ScatterP50 time.Duration
	ScatterP90 time.Duration

	IterationsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minIter, maxIter time.Duration
	phaseSum := make(map[string]time.Duration)
	scatter := make([]float64, 0, p.sampleCount)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.IterationDuration

		if i == 0 || s.IterationDuration < minIter {
			minIter = s.IterationDuration
		}
		if s.IterationDuration > maxIter {
			maxIter = s.IterationDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
		scatter = append(scatter, float64(s.Phases[PhaseScatter]))
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	sort.Float64s(scatter)

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		Samples:             p.sampleCount,
		AvgIteration:        avg,
		MinIteration:        minIter,
		MaxIteration:        maxIter,
		PhaseAvg:            phaseAvg,
		PhasePct:            phasePct,
		ScatterP50:          time.Duration(stat.Quantile(0.5, stat.Empirical, scatter, nil)),
		ScatterP90:          time.Duration(stat.Quantile(0.9, stat.Empirical, scatter, nil)),
		IterationsPerSecond: perSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("samples", s.Samples),
		slog.Int64("avg_iter_us", s.AvgIteration.Microseconds()),
		slog.Int64("min_iter_us", s.MinIteration.Microseconds()),
		slog.Int64("max_iter_us", s.MaxIteration.Microseconds()),
		slog.Int64("scatter_p50_us", s.ScatterP50.Microseconds()),
		slog.Int64("scatter_p90_us", s.ScatterP90.Microseconds()),
		slog.Float64("iters_per_sec", s.IterationsPerSecond),
	}

	for _, phase := range []string{PhaseClear, PhaseAcquire, PhaseScatter} {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	RunID        string  `csv:"run_id"`
	WindowEnd    int     `csv:"window_end"`
	Samples      int     `csv:"samples"`
	AvgIterUS    int64   `csv:"avg_iter_us"`
	MinIterUS    int64   `csv:"min_iter_us"`
	MaxIterUS    int64   `csv:"max_iter_us"`
	ScatterP50US int64   `csv:"scatter_p50_us"`
	ScatterP90US int64   `csv:"scatter_p90_us"`
	ItersPerSec  float64 `csv:"iters_per_sec"`
	ClearPct     float64 `csv:"clear_pct"`
	AcquirePct   float64 `csv:"acquire_pct"`
	ScatterPct   float64 `csv:"scatter_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(runID string, windowEnd int) PerfStatsCSV {
	return PerfStatsCSV{
		RunID:        runID,
		WindowEnd:    windowEnd,
		Samples:      s.Samples,
		AvgIterUS:    s.AvgIteration.Microseconds(),
		MinIterUS:    s.MinIteration.Microseconds(),
		MaxIterUS:    s.MaxIteration.Microseconds(),
		ScatterP50US: s.ScatterP50.Microseconds(),
		ScatterP90US: s.ScatterP90.Microseconds(),
		ItersPerSec:  s.IterationsPerSecond,
		ClearPct:     s.PhasePct[PhaseClear],
		AcquirePct:   s.PhasePct[PhaseAcquire],
		ScatterPct:   s.PhasePct[PhaseScatter],
	}
}
