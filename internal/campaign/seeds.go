package campaign

import (
	"fmt"
	"math/rand/v2"

	"github.com/mayant15/railcar-bench/internal/core"
)

// maxSeed is the largest seed drawn for an iteration.
const maxSeed = 100000

// DrawSeeds returns one seed per iteration. Pinned seeds are used when
// given; extra pinned seeds are ignored. Without pinned seeds, n values in
// [0, 100000] are drawn from rng.
func DrawSeeds(n int, pinned []int, rng *rand.Rand) ([]int, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: iterations must be at least 1, got %d", core.ErrConfiguration, n)
	}
	if len(pinned) > 0 {
		if len(pinned) < n {
			return nil, fmt.Errorf("%w: %d seeds pinned for %d iterations", core.ErrConfiguration, len(pinned), n)
		}
		return append([]int(nil), pinned[:n]...), nil
	}
	seeds := make([]int, n)
	for i := range seeds {
		seeds[i] = rng.IntN(maxSeed + 1)
	}
	return seeds, nil
}
