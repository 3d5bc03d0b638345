package miner

import (
	"math/big"
	"sync/atomic"
	"time"
)

// hashrateWindow is the number of one-second samples averaged into the
// published hash rate.
const hashrateWindow = 10

// hashrateEstimator accumulates a per-second hash count into a moving
// average over up to hashrateWindow samples, the way a simple rolling
// average smooths out single-second noise without a full exponential
// filter.
type hashrateEstimator struct {
	attempts atomic.Uint64

	samples []float64
	next    int
	filled  int
}

func newHashrateEstimator() *hashrateEstimator {
	return &hashrateEstimator{samples: make([]float64, hashrateWindow)}
}

// recordAttempt is called once per nonce attempt from the search loop.
func (h *hashrateEstimator) recordAttempt() {
	h.attempts.Add(1)
}

// tick consumes the attempts accumulated since the last tick (elapsed
// is how long that period actually lasted) and returns the current
// moving average in hashes per second.
func (h *hashrateEstimator) tick(elapsed time.Duration) *big.Float {
	count := h.attempts.Swap(0)
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		seconds = 1
	}

	h.samples[h.next] = float64(count) / seconds
	h.next = (h.next + 1) % hashrateWindow
	if h.filled < hashrateWindow {
		h.filled++
	}

	var sum float64
	for i := 0; i < h.filled; i++ {
		sum += h.samples[i]
	}
	return big.NewFloat(sum / float64(h.filled))
}
