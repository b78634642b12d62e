// Package mastery tracks per-topic mastery estimates. Values only move up:
// a weak evaluation never erases mastery already shown.
package mastery

import (
	"math"
	"sort"
)

const (
	// Retention is the weight kept from the previous estimate.
	Retention = 0.6
	// Gain is the weight given to the newest evaluation score.
	Gain = 0.4
)

// Update blends score into prev and never returns less than prev. The result
// is rounded to three decimals and clamped to [0, 1].
func Update(prev, score float64) float64 {
	prev = clamp(prev)
	blended := round3(Retention*prev + Gain*clamp(score))
	return math.Max(prev, blended)
}

// Map holds mastery per topic.
type Map map[string]float64

// Get returns the mastery for topic, 0 when unknown.
func (m Map) Get(topic string) float64 {
	return m[topic]
}

// Apply updates topic with score and returns the new value.
func (m Map) Apply(topic string, score float64) float64 {
	v := Update(m[topic], score)
	m[topic] = v
	return v
}

// Topics returns the topics in lexical order.
func (m Map) Topics() []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
