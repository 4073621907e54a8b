package mocks

import (
	"fmt"
	"sync"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing. Queued values
// are returned first; after that it counts upwards so values stay unique.
type MockRandom struct {
	mu      sync.Mutex
	results []string
	counter int
	err     error
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Hex returns the next queued value, or a zero-padded counter of length 2n
func (r *MockRandom) Hex(n int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return "", r.err
	}
	if len(r.results) > 0 {
		result := r.results[0]
		r.results = r.results[1:]
		return result, nil
	}
	r.counter++
	return fmt.Sprintf("%0*x", 2*n, r.counter), nil
}

// QueueHex adds values to the result queue
func (r *MockRandom) QueueHex(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, values...)
}

// FailWith makes every following call return err; nil restores normal
// behaviour
func (r *MockRandom) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
