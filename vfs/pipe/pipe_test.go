package pipe

import "testing"

func TestWriteThenRead(t *testing.T) {
	s := NewStore()
	id := s.Create()
	p := s.Get(id)

	n := p.Write([]byte("hello"))
	if n != 5 {
		t.Fatalf("wrote %d bytes, want 5", n)
	}
	if got := p.Readable(); got != 5 {
		t.Fatalf("readable = %d, want 5", got)
	}

	buf := make([]byte, 5)
	n = p.Read(buf)
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("read %q (%d bytes), want %q", buf, n, "hello")
	}
	if got := p.Readable(); got != 0 {
		t.Fatalf("readable after drain = %d, want 0", got)
	}
}

func TestWriteWrapsAroundRing(t *testing.T) {
	s := NewStore()
	id := s.Create()
	p := s.Get(id)

	p.Write(make([]byte, DefaultCapacity-2))
	drained := make([]byte, DefaultCapacity-2)
	p.Read(drained)

	n := p.Write([]byte{1, 2, 3, 4})
	if n != 4 {
		t.Fatalf("wrote %d, want 4", n)
	}
	out := make([]byte, 4)
	if got := p.Read(out); got != 4 {
		t.Fatalf("read %d, want 4", got)
	}
	for i, b := range out {
		if b != byte(i+1) {
			t.Fatalf("out[%d] = %d, want %d", i, b, i+1)
		}
	}
}

func TestWritePastCapacityTruncates(t *testing.T) {
	s := NewStore()
	id := s.Create()
	p := s.Get(id)

	n := p.Write(make([]byte, DefaultCapacity+100))
	if n != DefaultCapacity {
		t.Fatalf("wrote %d, want capacity %d", n, DefaultCapacity)
	}
	if got := p.Writable(); got != 0 {
		t.Fatalf("writable = %d, want 0", got)
	}
}

func TestReferenceCountingFreesOnLastRemove(t *testing.T) {
	s := NewStore()
	id := s.Create()
	s.AddReference(id, 1)
	s.AddReference(id, 2)

	if !s.HasReferenceFromOtherProcess(id, 1) {
		t.Fatalf("pid 2 should count as another process")
	}

	s.RemoveReference(id, 1)
	if s.Get(id) == nil {
		t.Fatalf("pipe freed too early, pid 2 still references it")
	}
	if s.HasReferenceFromOtherProcess(id, 2) {
		t.Fatalf("only pid 2 left, should report no other process")
	}

	s.RemoveReference(id, 2)
	if s.Get(id) != nil {
		t.Fatalf("pipe should be freed once all references are gone")
	}
}

func TestRemoveReferenceUnknownPipeIsNoop(t *testing.T) {
	s := NewStore()
	s.RemoveReference(ID(999), 1)
}
