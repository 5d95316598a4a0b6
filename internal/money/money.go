// Package money provides integer minor-unit currency arithmetic.
//
// Amounts are always carried as int64 minor units (e.g. rials, cents);
// floating point never touches a stored amount. The split functions are
// deterministic: identical inputs produce identical outputs, including
// remainder placement.
package money

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrInvalidAmount is returned for a negative total or weight.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrNoRecipients is returned when a positive total has nobody to receive it.
	ErrNoRecipients = errors.New("money: no recipients")
)

// ProportionalSplit divides total minor units across weights so the result
// sums to total exactly. Each share starts as the floored proportional
// amount; the leftover minor units go one at a time to the entries with the
// largest fractional remainder, ties broken by lowest index.
func ProportionalSplit(total int64, weights []float64) ([]int64, error) {
	if total < 0 {
		return nil, ErrInvalidAmount
	}
	var weightSum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, ErrInvalidAmount
		}
		weightSum += w
	}
	if total == 0 {
		return make([]int64, len(weights)), nil
	}
	if len(weights) == 0 || weightSum == 0 {
		return nil, ErrNoRecipients
	}

	shares := make([]int64, len(weights))
	fractions := make([]float64, len(weights))
	var allocated int64
	for i, w := range weights {
		raw := float64(total) * (w / weightSum)
		floored := math.Floor(raw)
		shares[i] = int64(floored)
		fractions[i] = raw - floored
		allocated += shares[i]
	}

	leftover := total - allocated
	if leftover <= 0 {
		return shares, nil
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if fractions[order[a]] != fractions[order[b]] {
			return fractions[order[a]] > fractions[order[b]]
		}
		return order[a] < order[b]
	})
	for i := int64(0); i < leftover; i++ {
		shares[order[int(i)%len(order)]]++
	}
	return shares, nil
}

// EqualSplit divides total evenly across count recipients with the same
// remainder rule as ProportionalSplit (earliest indexes absorb the extra).
func EqualSplit(total int64, count int) ([]int64, error) {
	if count < 0 {
		return nil, ErrInvalidAmount
	}
	weights := make([]float64, count)
	for i := range weights {
		weights[i] = 1
	}
	return ProportionalSplit(total, weights)
}
