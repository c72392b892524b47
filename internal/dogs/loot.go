package dogs

import (
	"math"
	"time"
)

// RandomFunc returns a uniform pseudo-random value in [0, 1].
type RandomFunc func() float64

// LootGenerator is a stochastic source of new-loot counts, grounded on
// the shortage-based probability formula: the longer the map goes
// without loot, the likelier a shortage gets filled.
type LootGenerator struct {
	baseInterval    time.Duration
	probability     float64
	randomFunc      RandomFunc
	timeWithoutLoot time.Duration
}

// NewLootGenerator builds a generator with the given base interval and
// per-interval spawn probability. randomFunc defaults to always-1.0 if nil.
func NewLootGenerator(baseInterval time.Duration, probability float64, randomFunc RandomFunc) *LootGenerator {
	if randomFunc == nil {
		randomFunc = func() float64 { return 1.0 }
	}
	return &LootGenerator{
		baseInterval: baseInterval,
		probability:  probability,
		randomFunc:   randomFunc,
	}
}

// Generate returns how many loot items should appear given the elapsed
// time, the loot already on the map, and the number of looters (dogs).
// The count never exceeds the looter/loot shortage.
func (g *LootGenerator) Generate(elapsed time.Duration, lootCount, looterCount int) int {
	g.timeWithoutLoot += elapsed

	shortage := looterCount - lootCount
	if shortage < 0 {
		shortage = 0
	}

	// A non-positive base interval means "always due"; guard the division
	// instead of letting a zero interval produce a NaN ratio.
	ratio := math.Inf(1)
	if g.baseInterval > 0 {
		ratio = g.timeWithoutLoot.Seconds() / g.baseInterval.Seconds()
	}
	p := (1 - math.Pow(1-g.probability, ratio)) * g.randomFunc()
	p = math.Max(0, math.Min(1, p))

	n := int(math.Round(float64(shortage) * p))
	if n > 0 {
		g.timeWithoutLoot = 0
	}
	return n
}
