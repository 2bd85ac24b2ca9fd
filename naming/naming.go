// Package naming supplies collision-free names for generated invocation
// types. A Scope is safe under concurrent generation of different proxies
// from multiple threads; names handed out are never reused, even when the
// generation request they were allocated for fails.
package naming

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Scope hands out unique names within one generation scope, typically one
// proxy module.
type Scope struct {
	mu   sync.Mutex
	used map[string]int
}

// NewScope creates an empty naming scope.
func NewScope() *Scope {
	return &Scope{used: make(map[string]int)}
}

// GetUniqueName returns suggested on first use and a numbered variant on
// every later request for the same suggestion.
func (s *Scope) GetUniqueName(suggested string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, taken := s.used[suggested]
	if !taken {
		s.used[suggested] = 0
		return suggested
	}
	for {
		n++
		candidate := fmt.Sprintf("%s_%d", suggested, n)
		if _, clash := s.used[candidate]; !clash {
			s.used[suggested] = n
			s.used[candidate] = 0
			return candidate
		}
	}
}

// UniqueSuffix returns a globally unique suffix for names that must not
// collide across scopes.
func UniqueSuffix() string {
	return uuid.NewString()
}
