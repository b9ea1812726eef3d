package observability

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Pipeline stages observed per turn.
const (
	StageNormalize = "normalize"
	StageContext   = "context_fold"
	StageResolve   = "product_resolve"
	StageClassify  = "classify"
	StageCompose   = "compose"
	StageAppend    = "history_append"
	StageTurnTotal = "turn_total"
)

// stageTargetsP95MS are the latency budgets reported next to each stage.
var stageTargetsP95MS = map[string]float64{
	StageNormalize: 1,
	StageClassify:  1,
	StageResolve:   5,
	StageCompose:   5,
	StageContext:   25,
	StageAppend:    25,
	StageTurnTotal: 60,
}

type TurnStageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  int     `json:"over_target,omitempty"`
}

type TurnIndicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type TurnStageSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowSize  int              `json:"window_size"`
	Stages      []TurnStageStats `json:"stages"`
	Indicators  []TurnIndicator  `json:"indicators,omitempty"`
}

// sampleRing keeps the newest samples of one stage.
type sampleRing struct {
	buf  []float64
	head int
	full bool
	last float64
}

func (r *sampleRing) add(v float64) {
	r.buf[r.head] = v
	r.last = v
	r.head = (r.head + 1) % len(r.buf)
	if r.head == 0 {
		r.full = true
	}
}

func (r *sampleRing) sorted() []float64 {
	n := r.head
	if r.full {
		n = len(r.buf)
	}
	out := slices.Clone(r.buf[:n])
	slices.Sort(out)
	return out
}

// turnStageWindow is a rolling per-stage latency window plus counters for
// notable turn events.
type turnStageWindow struct {
	mu         sync.RWMutex
	size       int
	rings      map[string]*sampleRing
	indicators map[string]int
}

func newTurnStageWindow(size int) *turnStageWindow {
	if size <= 0 {
		size = 256
	}
	return &turnStageWindow{
		size:       size,
		rings:      make(map[string]*sampleRing),
		indicators: make(map[string]int),
	}
}

func (w *turnStageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.rings[stage]
	if !ok {
		r = &sampleRing{buf: make([]float64, w.size)}
		w.rings[stage] = r
	}
	r.add(ms)
}

func (w *turnStageWindow) ObserveIndicator(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *turnStageWindow) Snapshot() TurnStageSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := TurnStageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]TurnStageStats, 0, len(w.rings)),
	}
	for _, stage := range sortedKeys(w.rings) {
		r := w.rings[stage]
		samples := r.sorted()
		if len(samples) == 0 {
			continue
		}
		snap.Stages = append(snap.Stages, summarize(stage, samples, r.last))
	}
	for _, name := range sortedKeys(w.indicators) {
		if n := w.indicators[name]; n > 0 {
			snap.Indicators = append(snap.Indicators, TurnIndicator{Name: name, Count: n})
		}
	}
	return snap
}

func (w *turnStageWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rings = make(map[string]*sampleRing)
	w.indicators = make(map[string]int)
}

func summarize(stage string, sorted []float64, last float64) TurnStageStats {
	target := stageTargetsP95MS[stage]
	sum, over := 0.0, 0
	for _, v := range sorted {
		sum += v
		if target > 0 && v > target {
			over++
		}
	}
	return TurnStageStats{
		Stage:       stage,
		Samples:     len(sorted),
		LastMS:      round2(last),
		AvgMS:       round2(sum / float64(len(sorted))),
		P50MS:       round2(quantile(sorted, 0.50)),
		P95MS:       round2(quantile(sorted, 0.95)),
		P99MS:       round2(quantile(sorted, 0.99)),
		TargetP95MS: target,
		OverTarget:  over,
	}
}

// quantile interpolates linearly between the closest ranks.
func quantile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
