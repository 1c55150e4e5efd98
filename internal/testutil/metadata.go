// Package testutil provides fakes and schema builders shared by tests.
package testutil

import (
	"context"
	"sync"
)

// StaticMetadata is a MetadataSource backed by a fixed table. Unknown
// datasets report "not observed" (zero). If Err is set, every lookup fails
// with it.
type StaticMetadata struct {
	mu      sync.Mutex
	PerLumi map[string]float64
	Err     error
	Calls   []string // datasets queried, in order
}

// EventsPerLumi implements policy.MetadataSource.
func (s *StaticMetadata) EventsPerLumi(_ context.Context, dataset string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, dataset)
	if s.Err != nil {
		return 0, s.Err
	}
	return s.PerLumi[dataset], nil
}
