package ramdisk

import "testing"

func TestSeedAndFindChild(t *testing.T) {
	a := NewArchive()
	id, ok := a.Seed(a.Root(), "hello.txt", []byte("hi"))
	if !ok {
		t.Fatal("seed failed")
	}
	got, ok := a.FindChild(a.Root(), "hello.txt")
	if !ok || got != id {
		t.Fatalf("FindChild = %d, %v; want %d, true", got, ok, id)
	}
}

func TestChildAtOrdersByInsertion(t *testing.T) {
	a := NewArchive()
	a.Seed(a.Root(), "a", nil)
	b, _ := a.Seed(a.Root(), "b", nil)
	a.Seed(a.Root(), "c", nil)

	got, ok := a.ChildAt(a.Root(), 1)
	if !ok || got != b {
		t.Fatalf("ChildAt(1) = %d, %v; want %d, true", got, ok, b)
	}
	if _, ok := a.ChildAt(a.Root(), 3); ok {
		t.Fatal("expected no child at position 3")
	}
}

func TestReadRespectsLength(t *testing.T) {
	a := NewArchive()
	id, _ := a.Seed(a.Root(), "f", []byte("hello world"))
	buf := make([]byte, 5)
	n, ok := a.Read(id, 6, buf)
	if !ok || n != 5 || string(buf[:n]) != "world" {
		t.Fatalf("Read = %q, %d, %v", buf[:n], n, ok)
	}
}

func TestWriteGrowsArchiveBackedBuffer(t *testing.T) {
	a := NewArchive()
	id, _ := a.Seed(a.Root(), "f", []byte("hi"))

	n, ok := a.Write(id, 0, []byte("hello world, this is longer than hi"), 1.2)
	if !ok || n != int64(len("hello world, this is longer than hi")) {
		t.Fatalf("Write = %d, %v", n, ok)
	}

	got := make([]byte, n)
	rn, _ := a.Read(id, 0, got)
	if string(got[:rn]) != "hello world, this is longer than hi" {
		t.Fatalf("Read back = %q", got[:rn])
	}
}

func TestTruncateNoopOnArchiveBacked(t *testing.T) {
	a := NewArchive()
	id, _ := a.Seed(a.Root(), "f", []byte("hi"))
	a.Truncate(id)
	length, _ := a.Length(id)
	if length != 2 {
		t.Fatalf("archive-backed entry should not truncate, length = %d", length)
	}

	a.Write(id, 0, []byte("hi"), 1.2)
	a.Truncate(id)
	length, _ = a.Length(id)
	if length != 0 {
		t.Fatalf("heap-backed entry should truncate to 0, got %d", length)
	}
}

func TestCreateChildUnderNonFolderFails(t *testing.T) {
	a := NewArchive()
	fileID, _ := a.Seed(a.Root(), "f", []byte("x"))
	if _, ok := a.CreateChild(fileID, "child"); ok {
		t.Fatal("expected CreateChild under a file to fail")
	}
}
