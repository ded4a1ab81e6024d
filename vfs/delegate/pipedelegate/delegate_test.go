package pipedelegate_test

import (
	"testing"
	"time"

	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/delegate/pipedelegate"
	"github.com/kestrel-os/vfscore/vfs/sched"
)

func newPipeVFS(t *testing.T) (*vfs.VFS, *sched.Loop) {
	t.Helper()
	loop := sched.NewLoop()
	v := vfs.New(loop, vfs.DefaultOptions())
	v.SetPipeDelegate(pipedelegate.New(v.Pipes(), v.TxnStore()))
	return v, loop
}

func TestPipeWriteThenRead(t *testing.T) {
	v, loop := newPipeVFS(t)
	defer loop.Close()

	writeFd, readFd, status := v.Pipe(1)
	if status != vfs.PipeCallSuccessful {
		t.Fatalf("Pipe status = %v", status)
	}

	task := sched.NewTask(1, 1)
	var writeN int64
	var writeStatus vfs.WriteCallStatus
	v.Write(task, writeFd, []byte("hi"), func(n int64, s vfs.WriteCallStatus) {
		writeN, writeStatus = n, s
	})
	if writeStatus != vfs.WriteCallSuccessful || writeN != 2 {
		t.Fatalf("write = %d, %v", writeN, writeStatus)
	}

	buf := make([]byte, 2)
	var readN int64
	var readStatus vfs.ReadCallStatus
	v.Read(task, readFd, buf, func(n int64, s vfs.ReadCallStatus) {
		readN, readStatus = n, s
	})
	if readStatus != vfs.ReadCallSuccessful || string(buf[:readN]) != "hi" {
		t.Fatalf("read = %q, %v", buf[:readN], readStatus)
	}
}

func TestPipeBlockingReadWaitsForWrite(t *testing.T) {
	v, loop := newPipeVFS(t)
	defer loop.Close()

	writeFd, readFd, _ := v.Pipe(1)
	task := sched.NewTask(1, 1)

	done := make(chan struct{})
	buf := make([]byte, 5)
	var readStatus vfs.ReadCallStatus
	go func() {
		v.Read(task, readFd, buf, func(n int64, s vfs.ReadCallStatus) {
			readStatus = s
		})
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("read returned before any data was written")
	default:
	}

	v.Write(task, writeFd, []byte("hello"), func(int64, vfs.WriteCallStatus) {})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking read never woke up after write")
	}
	if readStatus != vfs.ReadCallSuccessful {
		t.Fatalf("read status = %v", readStatus)
	}
}

func TestPipeReadReturnsEOFAfterWriteEndCloses(t *testing.T) {
	v, loop := newPipeVFS(t)
	defer loop.Close()

	writeFd, readFd, _ := v.Pipe(1)
	task := sched.NewTask(1, 1)

	v.Close(task, 1, writeFd, func(status vfs.CloseCallStatus) {
		if status != vfs.CloseCallSuccessful {
			t.Fatalf("close write end: %v", status)
		}
	})

	buf := make([]byte, 4)
	var readN int64
	var readStatus vfs.ReadCallStatus
	v.Read(task, readFd, buf, func(n int64, s vfs.ReadCallStatus) {
		readN, readStatus = n, s
	})
	if readStatus != vfs.ReadCallSuccessful || readN != 0 {
		t.Fatalf("read = %d, %v, want 0, Successful (EOF)", readN, readStatus)
	}
}
