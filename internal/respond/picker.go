package respond

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Picker chooses an index in [0, n). n is always positive.
type Picker interface {
	Pick(n int) int
}

// RandPicker picks uniformly from a seeded source. Safe for concurrent use.
type RandPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandPicker seeds a picker; seed 0 uses the current time.
func NewRandPicker(seed uint64) *RandPicker {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// FirstPicker always picks the first alternative.
type FirstPicker struct{}

func (FirstPicker) Pick(int) int { return 0 }

// FixedPicker always picks Index, clamped to the available alternatives.
type FixedPicker struct{ Index int }

func (p FixedPicker) Pick(n int) int {
	if p.Index < 0 {
		return 0
	}
	if p.Index >= n {
		return n - 1
	}
	return p.Index
}
