package classifier

import (
	"fmt"
	"slices"
	"strings"
)

// Scores is a score distribution index-aligned with a LabelSet.
type Scores []float64

// Argmax returns the index of the largest score. Ties resolve to the lowest
// index. Returns -1 for empty scores.
func (s Scores) Argmax() int {
	best := -1
	for i, v := range s {
		if best < 0 || v > s[best] {
			best = i
		}
	}
	return best
}

// Sum returns the total of all scores.
func (s Scores) Sum() float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum
}

// Percentages returns each score multiplied by 100.
func (s Scores) Percentages() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v * 100
	}
	return out
}

// Prediction is the result of one Predict call.
type Prediction struct {
	Label  string
	Index  int
	Scores Scores
	Labels LabelSet
}

// Confidence returns the winning score.
func (p *Prediction) Confidence() float64 { return p.Scores[p.Index] }

// Percentages maps each class name to score*100.
func (p *Prediction) Percentages() map[string]float64 {
	out := make(map[string]float64, len(p.Scores))
	for i, v := range p.Scores.Percentages() {
		out[p.Labels.Name(i)] = v
	}
	return out
}

// ClassScore is one entry of Ranked.
type ClassScore struct {
	Label   string  `json:"label" yaml:"label"`
	Score   float64 `json:"score" yaml:"score"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Ranked returns all classes by descending score. Equal scores keep label
// order.
func (p *Prediction) Ranked() []ClassScore {
	out := make([]ClassScore, len(p.Scores))
	for i, v := range p.Scores {
		out[i] = ClassScore{Label: p.Labels.Name(i), Score: v, Percent: v * 100}
	}
	slices.SortStableFunc(out, func(a, b ClassScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}

// Render formats the prediction for display: the winning label followed by
// one percentage line per class in label order.
func (p *Prediction) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Predicted class: %s\n\n", p.Label)
	for i, v := range p.Scores {
		fmt.Fprintf(&b, "%s: %.2f%%\n", p.Labels.Name(i), v*100)
	}
	return b.String()
}
