package layer

import (
	"math"
	"math/rand/v2"
)

// Initializer draws one weight for a kernel with the given fan-in and fan-out.
type Initializer func(fanIn, fanOut int, rng *rand.Rand) float64

// GlorotUniform draws from U(-l, l) with l = √(6/(fanIn+fanOut)).
func GlorotUniform(fanIn, fanOut int, rng *rand.Rand) float64 {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	return (rng.Float64()*2 - 1) * limit
}

// truncatedNormalStddev corrects the standard deviation of a unit normal
// truncated at two deviations.
const truncatedNormalStddev = 0.87962566103423978

// LeCunNormal draws from a normal truncated at two deviations with standard
// deviation √(1/fanIn), as expected by SELU networks.
func LeCunNormal(fanIn, fanOut int, rng *rand.Rand) float64 {
	stddev := math.Sqrt(1/float64(fanIn)) / truncatedNormalStddev
	for {
		if v := rng.NormFloat64(); math.Abs(v) <= 2 {
			return v * stddev
		}
	}
}
