package fdtable

import "testing"

func TestMapStartsAtThree(t *testing.T) {
	m := NewManager()
	fd := m.Map(1, 10, 0)
	if fd != firstFd {
		t.Fatalf("first fd = %d, want %d", fd, firstFd)
	}
}

func TestMapUnmapGet(t *testing.T) {
	m := NewManager()
	fd := m.Map(1, 42, 0)
	d := m.Get(1, fd)
	if d == nil || d.NodeID != 42 {
		t.Fatalf("got %+v, want node 42", d)
	}
	m.Unmap(1, fd)
	if got := m.Get(1, fd); got != nil {
		t.Fatalf("expected nil after unmap, got %+v", got)
	}
}

func TestSetOffset(t *testing.T) {
	m := NewManager()
	fd := m.Map(1, 1, 0)
	if !m.SetOffset(1, fd, 128) {
		t.Fatalf("SetOffset reported failure for live fd")
	}
	if d := m.Get(1, fd); d.Offset != 128 {
		t.Fatalf("offset = %d, want 128", d.Offset)
	}
	if m.SetOffset(1, 999, 1) {
		t.Fatalf("SetOffset should fail for unknown fd")
	}
}

func TestCloneIndependentOffsets(t *testing.T) {
	m := NewManager()
	fd := m.Map(1, 7, 0)
	m.SetOffset(1, fd, 50)

	dup, ok := m.Clone(1, fd)
	if !ok {
		t.Fatalf("clone failed")
	}
	if dup == fd {
		t.Fatalf("clone returned same fd")
	}
	if m.Get(1, dup).Offset != 50 {
		t.Fatalf("clone did not copy offset")
	}

	m.SetOffset(1, dup, 99)
	if m.Get(1, fd).Offset != 50 {
		t.Fatalf("clone should not share offset storage with the original")
	}
}

func TestUnmapAll(t *testing.T) {
	m := NewManager()
	fd1 := m.Map(1, 1, 0)
	fd2 := m.Map(1, 2, 0)
	m.UnmapAll(1)
	if m.Get(1, fd1) != nil || m.Get(1, fd2) != nil {
		t.Fatalf("expected all descriptors gone after UnmapAll")
	}
}

func TestCloneProcessCopiesWholeTable(t *testing.T) {
	m := NewManager()
	fd := m.Map(1, 5, 0)
	m.SetOffset(1, fd, 10)

	m.CloneProcess(1, 2)
	d := m.Get(2, fd)
	if d == nil || d.NodeID != 5 || d.Offset != 10 {
		t.Fatalf("CloneProcess did not copy descriptor, got %+v", d)
	}

	m.SetOffset(2, fd, 20)
	if m.Get(1, fd).Offset != 10 {
		t.Fatalf("CloneProcess should not alias the source table")
	}
}
