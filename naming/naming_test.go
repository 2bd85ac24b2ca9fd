package naming

import (
	"sync"
	"testing"
)

func TestGetUniqueName(t *testing.T) {
	s := NewScope()

	if got := s.GetUniqueName("Repo_Save"); got != "Repo_Save" {
		t.Errorf("first name = %q, want Repo_Save", got)
	}
	if got := s.GetUniqueName("Repo_Save"); got != "Repo_Save_1" {
		t.Errorf("second name = %q, want Repo_Save_1", got)
	}
	if got := s.GetUniqueName("Repo_Save"); got != "Repo_Save_2" {
		t.Errorf("third name = %q, want Repo_Save_2", got)
	}
	// A different suggestion is independent.
	if got := s.GetUniqueName("Repo_Delete"); got != "Repo_Delete" {
		t.Errorf("name = %q, want Repo_Delete", got)
	}
}

func TestGetUniqueName_SuffixClash(t *testing.T) {
	s := NewScope()

	// Take the numbered variant first; the counter must skip over it.
	if got := s.GetUniqueName("X_1"); got != "X_1" {
		t.Fatalf("name = %q, want X_1", got)
	}
	if got := s.GetUniqueName("X"); got != "X" {
		t.Fatalf("name = %q, want X", got)
	}
	if got := s.GetUniqueName("X"); got != "X_2" {
		t.Errorf("name = %q, want X_2 (X_1 already taken)", got)
	}
}

func TestGetUniqueName_Concurrent(t *testing.T) {
	s := NewScope()

	const workers = 32
	var wg sync.WaitGroup
	names := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- s.GetUniqueName("Shared")
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool)
	for n := range names {
		if seen[n] {
			t.Fatalf("duplicate name %q under concurrency", n)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Errorf("got %d distinct names, want %d", len(seen), workers)
	}
}

func TestUniqueSuffix(t *testing.T) {
	if UniqueSuffix() == UniqueSuffix() {
		t.Error("UniqueSuffix returned the same value twice")
	}
}
