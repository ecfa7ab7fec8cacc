// Package sample implements the sliding-window training sample buffer
// (spec §4.A) that pairs each RL prediction with the actual row count
// observed once its query finishes executing. Grounded on the teacher's
// feedback.ExecutionFeedback singleton (pkg/optimizer/feedback/feedback.go)
// for the mutex-guarded, fixed-capacity FIFO idiom, and on the original
// source's CollectActualCardinalitiesRecursive for the pairing semantics.
package sample

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// DefaultCapacity is the buffer's default window size (spec §4.A).
const DefaultCapacity = 200

// Sample is one (feature vector, predicted cardinality, actual cardinality)
// triple collected after a query finishes.
type Sample struct {
	ID        uuid.UUID
	Features  []float64
	Predicted float64
	Actual    float64
}

// QError computes the Q-error between a prediction and the actual row
// count, clamping both operands to a minimum of 1 before dividing (spec
// §4.A) so a prediction or actual of 0 never produces a divide-by-zero or
// an infinite error.
func QError(predicted, actual float64) float64 {
	p := math.Max(predicted, 1)
	a := math.Max(actual, 1)
	if p > a {
		return p / a
	}
	return a / p
}

// Buffer is a fixed-capacity, thread-safe FIFO of training samples. Once
// full, adding a new sample evicts the oldest one — the same
// capacity-then-evict shape as the teacher's bounded caches, just applied
// to a slice instead of a map.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	samples  []Sample
}

// NewBuffer constructs a buffer with the given capacity. A non-positive
// capacity falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Add appends a sample, evicting the oldest entry if the buffer is full.
func (b *Buffer) Add(s Sample) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) >= b.capacity {
		b.samples = b.samples[1:]
	}
	b.samples = append(b.samples, s)
}

// Recent returns a copy of the n most recently added samples (or all of
// them if n exceeds the buffer's current size).
func (b *Buffer) Recent(n int) []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || n > len(b.samples) {
		n = len(b.samples)
	}
	start := len(b.samples) - n
	out := make([]Sample, n)
	copy(out, b.samples[start:])
	return out
}

// All returns a copy of every sample currently held.
func (b *Buffer) All() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Size reports the number of samples currently held.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
}
