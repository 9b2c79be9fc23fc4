package arm

import (
	"math/rand"

	"pocketarm/logger"
)

// rng backs the single non-architectural random-value compatibility
// address (0x4200401A). It is a thin wrapper around math/rand so that
// a seed can be injected for reproducible tests, rather than exposing
// a full peripheral register block like a real SAM/STM32 RNG unit.
type rng struct {
	source *rand.Rand
}

// newRNG creates an rng seeded with seed. Two rngs created with the
// same seed produce the same sequence of values.
func newRNG(seed int64) *rng {
	return &rng{source: rand.New(rand.NewSource(seed))}
}

func (r *rng) reset() {
	// nothing to reset; the sequence continues from wherever it left off,
	// matching real hardware RNGs which do not restart on CPU reset
}

// halfword returns the next pseudo-random 16-bit value, used to satisfy
// reads of the 0x4200401A compatibility address.
func (r *rng) halfword() uint16 {
	if r == nil || r.source == nil {
		logger.Log("ARM", "rng read with no source configured, returning 0")
		return 0
	}
	return uint16(r.source.Uint32())
}
