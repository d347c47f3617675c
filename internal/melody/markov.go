package melody

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Oracle is the narrow probability interface the scorer blends in. The
// generator tolerates a nil oracle by renormalizing criterion weights, so
// implementations never need to special-case empty histories beyond
// returning a neutral probability.
type Oracle interface {
	// ProbabilityForDegree returns P(degree | history) in [0,1].
	ProbabilityForDegree(degree int) float64
	// UpdateHistory folds an emitted degree into the oracle's context.
	UpdateHistory(degree int)
	// ResetHistory clears the context at the start of a new melody.
	ResetHistory()
}

// DegreeChain is an order 1-3 Markov chain over scale degrees, trainable
// from observed degree sequences.
type DegreeChain struct {
	order       int
	transitions map[string]map[int]int
	history     []int
}

// NewDegreeChain builds an untrained chain. Order must be 1, 2 or 3.
func NewDegreeChain(order int) (*DegreeChain, error) {
	if order < 1 || order > 3 {
		return nil, fmt.Errorf("markov order must be between 1 and 3, got %d", order)
	}
	return &DegreeChain{
		order:       order,
		transitions: make(map[string]map[int]int),
	}, nil
}

// Order returns the chain's context length.
func (c *DegreeChain) Order() int {
	return c.order
}

// Train folds a degree sequence into the transition counts.
func (c *DegreeChain) Train(sequence []int) {
	if len(sequence) < c.order+1 {
		return
	}
	for i := 0; i+c.order < len(sequence); i++ {
		key := stateKey(sequence[i : i+c.order])
		next := sequence[i+c.order]
		if c.transitions[key] == nil {
			c.transitions[key] = make(map[int]int)
		}
		c.transitions[key][next]++
	}
}

// ProbabilityForDegree returns the transition probability for a degree
// given the current history. A short or unseen history is neutral.
func (c *DegreeChain) ProbabilityForDegree(degree int) float64 {
	if len(c.history) < c.order {
		return 1.0 / 7
	}
	counts, ok := c.transitions[stateKey(c.history[len(c.history)-c.order:])]
	if !ok {
		return 1.0 / 7
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(counts[degree]) / float64(total)
}

// SuggestDegree samples a next degree from the chain, falling back to a
// uniform choice over the fallback set when the history is unseen.
func (c *DegreeChain) SuggestDegree(rng *rand.Rand, fallback []int) int {
	if len(fallback) == 0 {
		fallback = []int{1, 3, 5}
	}
	if len(c.history) < c.order {
		return fallback[rng.Intn(len(fallback))]
	}
	counts, ok := c.transitions[stateKey(c.history[len(c.history)-c.order:])]
	if !ok || len(counts) == 0 {
		return fallback[rng.Intn(len(fallback))]
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	r := rng.Intn(total)
	for degree, n := range counts {
		r -= n
		if r < 0 {
			return degree
		}
	}
	return fallback[rng.Intn(len(fallback))]
}

// UpdateHistory appends an emitted degree, keeping a bounded window.
func (c *DegreeChain) UpdateHistory(degree int) {
	c.history = append(c.history, degree)
	if max := c.order + 20; len(c.history) > max {
		c.history = c.history[len(c.history)-max:]
	}
}

// ResetHistory clears the context.
func (c *DegreeChain) ResetHistory() {
	c.history = nil
}

func stateKey(state []int) string {
	parts := make([]string, len(state))
	for i, d := range state {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
