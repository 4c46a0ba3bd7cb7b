package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/memvra/docbot/internal/adapter"
)

func user(s string) Turn      { return Turn{Role: adapter.RoleUser, Content: s} }
func assistant(s string) Turn { return Turn{Role: adapter.RoleAssistant, Content: s} }

func TestSession_RecentWindow(t *testing.T) {
	s := NewSession("a", 0)
	for i := 0; i < 15; i++ {
		s.Append(user(fmt.Sprintf("q%d", i)))
	}

	recent := s.Recent(DefaultWindow)
	if len(recent) != 10 {
		t.Fatalf("Recent(10) returned %d turns", len(recent))
	}
	if recent[0].Content != "q5" || recent[9].Content != "q14" {
		t.Errorf("window = %s..%s", recent[0].Content, recent[9].Content)
	}

	// The returned slice is a copy.
	recent[0].Content = "mutated"
	if s.Recent(10)[0].Content != "q5" {
		t.Error("Recent leaked internal state")
	}
}

func TestSession_RecentShortHistory(t *testing.T) {
	s := NewSession("a", 0)
	s.Append(user("hi"), assistant("hello"))
	if got := s.Recent(10); len(got) != 2 {
		t.Errorf("Recent = %v", got)
	}
}

func TestSession_RetentionCap(t *testing.T) {
	s := NewSession("a", 4)
	for i := 0; i < 6; i++ {
		s.Append(user(fmt.Sprintf("q%d", i)))
	}
	if s.Len() != 4 {
		t.Fatalf("Len = %d, want 4", s.Len())
	}
	if got := s.Recent(0); got[0].Content != "q2" {
		t.Errorf("oldest kept = %q", got[0].Content)
	}
}

func TestSession_LastAssistant(t *testing.T) {
	s := NewSession("a", 0)
	if _, ok := s.LastAssistant(); ok {
		t.Error("empty session should have no assistant turn")
	}
	s.Append(user("write a poem"), assistant("roses are red"), user("thanks"))
	got, ok := s.LastAssistant()
	if !ok || got != "roses are red" {
		t.Errorf("LastAssistant = %q, %v", got, ok)
	}
}

func TestSession_Clear(t *testing.T) {
	s := NewSession("a", 0)
	s.Append(user("a"), assistant("b"))
	if n := s.Clear(); n != 2 {
		t.Errorf("Clear = %d", n)
	}
	if s.Len() != 0 {
		t.Error("history not cleared")
	}
}

func TestSession_ConcurrentAppend(t *testing.T) {
	s := NewSession("a", 1000)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Lock()
			defer s.Unlock()
			s.Append(user("q"), assistant("a"))
		}()
	}
	wg.Wait()

	turns := s.Recent(0)
	if len(turns) != 40 {
		t.Fatalf("Len = %d", len(turns))
	}
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Role != adapter.RoleUser || turns[i+1].Role != adapter.RoleAssistant {
			t.Fatalf("turns interleaved at %d", i)
		}
	}
}

func TestRegistry_GetCreatesAndReuses(t *testing.T) {
	r := NewRegistry(time.Hour, 0)
	a := r.Get("one")
	a.Append(user("hi"))

	if b := r.Get("one"); b != a {
		t.Error("Get returned a different session for the same id")
	}
	if c := r.Get("two"); c == a || c.Len() != 0 {
		t.Error("sessions are not independent")
	}
	if r.Count() != 2 {
		t.Errorf("Count = %d", r.Count())
	}

	r.Delete("two")
	if _, ok := r.Lookup("two"); ok {
		t.Error("deleted session still present")
	}
}

func TestRegistry_ClearAll(t *testing.T) {
	r := NewRegistry(0, 0)
	r.Get("a").Append(user("1"), assistant("2"))
	r.Get("b").Append(user("3"))

	if n := r.ClearAll(); n != 3 {
		t.Errorf("ClearAll = %d, want 3", n)
	}
	if r.Get("a").Len() != 0 || r.Get("b").Len() != 0 {
		t.Error("sessions not cleared")
	}
}

func TestRegistry_Expiry(t *testing.T) {
	r := NewRegistry(20*time.Millisecond, 0)
	r.Get("short").Append(user("x"))
	time.Sleep(40 * time.Millisecond)
	if _, ok := r.Lookup("short"); ok {
		t.Error("idle session should have expired")
	}
}
