package model

import (
	"math"
	"sort"
)

// RoundPreservingSum rounds each value to an integer so that the results sum to
// the rounded sum of the inputs. Remainders are assigned largest-first, ties to
// the lower index.
func RoundPreservingSum(values []float64) []int {
	out := make([]int, len(values))
	if len(values) == 0 {
		return out
	}
	var total float64
	floorSum := 0
	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(values))
	for i, v := range values {
		total += v
		f := math.Floor(v)
		out[i] = int(f)
		floorSum += int(f)
		rems[i] = rem{idx: i, frac: v - f}
	}
	short := int(math.Round(total)) - floorSum
	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})
	for i := 0; i < short && i < len(rems); i++ {
		out[rems[i].idx]++
	}
	return out
}

// Apportion splits total into integers proportional to weights. The parts sum
// to total. Non-positive weight sums split evenly.
func Apportion(total int, weights []float64) []int {
	if len(weights) == 0 {
		return nil
	}
	var sum float64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	shares := make([]float64, len(weights))
	for i, w := range weights {
		switch {
		case sum <= 0:
			shares[i] = float64(total) / float64(len(weights))
		case w > 0:
			shares[i] = float64(total) * w / sum
		}
	}
	return RoundPreservingSum(shares)
}
