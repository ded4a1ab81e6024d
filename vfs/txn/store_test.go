package txn

import "testing"

func TestNextIsMonotone(t *testing.T) {
	s := NewStore()
	a := s.Next()
	b := s.Next()
	if !(a < b) {
		t.Fatalf("expected a < b, got a=%d b=%d", a, b)
	}
}

func TestUndefinedStatusIsWaiting(t *testing.T) {
	s := NewStore()
	id := s.Next()
	if got := s.GetStatus(id); got != Waiting {
		t.Fatalf("fresh transaction should read Waiting, got %v", got)
	}
}

func TestSetGetRemove(t *testing.T) {
	s := NewStore()
	id := s.Next()
	s.SetStatus(id, Finished)
	if got := s.GetStatus(id); got != Finished {
		t.Fatalf("got %v, want Finished", got)
	}
	s.Remove(id)
	if got := s.GetStatus(id); got != Waiting {
		t.Fatalf("removed transaction should read Waiting again, got %v", got)
	}
}
