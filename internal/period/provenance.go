package period

import (
	"fmt"

	"github.com/cantus-labs/cantus-api/internal/melody"
	"github.com/cantus-labs/cantus-api/internal/score"
)

// Trace accumulates the per-onset decision records of one generation. An
// external corrector can use it to swap a single onset's pitch for one of
// the alternatives that were actually scored, without re-running anything.
type Trace struct {
	decisions []melody.Decision
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// TraceFromDecisions rebuilds a trace from persisted decision records.
func TraceFromDecisions(decisions []melody.Decision) *Trace {
	return &Trace{decisions: decisions}
}

// Record appends one decision.
func (t *Trace) Record(d melody.Decision) {
	t.decisions = append(t.decisions, d)
}

// Decisions returns all recorded decisions in onset order.
func (t *Trace) Decisions() []melody.Decision {
	return t.decisions
}

// DecisionAt finds the decision for one onset of one measure.
func (t *Trace) DecisionAt(measureIndex, onsetIndex int) (melody.Decision, bool) {
	for _, d := range t.decisions {
		if d.MeasureIndex == measureIndex && d.OnsetIndex == onsetIndex {
			return d, true
		}
	}
	return melody.Decision{}, false
}

// ReplaceOnset swaps one onset's pitch for a recorded alternative. Only
// candidates from the original scoring are admissible, and cadentially
// forced onsets stay fixed.
func (t *Trace) ReplaceOnset(piece *score.Piece, measureIndex, onsetIndex, candidateIndex int) error {
	d, ok := t.DecisionAt(measureIndex, onsetIndex)
	if !ok {
		return fmt.Errorf("no decision recorded for measure %d onset %d", measureIndex, onsetIndex)
	}
	if d.Forced {
		return fmt.Errorf("measure %d onset %d is a forced cadential note", measureIndex, onsetIndex)
	}
	if candidateIndex < 0 || candidateIndex >= len(d.Alternatives) {
		return fmt.Errorf("candidate index %d out of range, %d alternatives recorded",
			candidateIndex, len(d.Alternatives))
	}

	if measureIndex < 0 || measureIndex >= len(piece.Measures) {
		return fmt.Errorf("measure index %d out of range", measureIndex)
	}
	events := piece.Measures[measureIndex].Events
	if onsetIndex < 0 || onsetIndex >= len(events) {
		return fmt.Errorf("onset index %d out of range in measure %d", onsetIndex, measureIndex)
	}
	if events[onsetIndex].Rest {
		return fmt.Errorf("measure %d onset %d is a rest", measureIndex, onsetIndex)
	}

	alt := d.Alternatives[candidateIndex]
	events[onsetIndex].Pitch = alt.Pitch
	events[onsetIndex].Degree = alt.Degree

	for i := range t.decisions {
		if t.decisions[i].MeasureIndex == measureIndex && t.decisions[i].OnsetIndex == onsetIndex {
			t.decisions[i].ChosenDegree = alt.Degree
			t.decisions[i].ChosenPitch = alt.Pitch
		}
	}
	return nil
}
