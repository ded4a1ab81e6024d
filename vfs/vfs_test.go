package vfs_test

import (
	"testing"
	"time"

	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/delegate/pipedelegate"
	"github.com/kestrel-os/vfscore/vfs/delegate/ramdisk"
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/sched"
)

// newRamdiskVFS builds a VFS with a ramdisk delegate on the root, seeded
// with a single file, and a pipe delegate installed for Pipe() to use.
func newRamdiskVFS(t *testing.T) (*vfs.VFS, *sched.Loop) {
	t.Helper()
	loop := sched.NewLoop()
	v := vfs.New(loop, vfs.DefaultOptions())

	rd := ramdisk.New(v.Graph(), v.TxnStore(), vfs.DefaultOptions().RamdiskGrowthFactor)
	rd.Archive().Seed(rd.Archive().Root(), "hello.txt", []byte("hello world\n"))
	v.Graph().Root().SetDelegate(rd)

	v.SetPipeDelegate(pipedelegate.New(v.Pipes(), v.TxnStore()))

	return v, loop
}

func TestOpenReadTellClose(t *testing.T) {
	v, loop := newRamdiskVFS(t)
	defer loop.Close()

	task := sched.NewTask(1, 1)

	var fd fdtable.Fd
	v.Open(task, "/hello.txt", 0, func(f fdtable.Fd, status vfs.OpenCallStatus) {
		if status != vfs.OpenCallSuccessful {
			t.Fatalf("open status = %v", status)
		}
		fd = f
	})

	buf := make([]byte, 64)
	var n int64
	var readStatus vfs.ReadCallStatus
	v.Read(task, fd, buf, func(rn int64, rs vfs.ReadCallStatus) {
		n, readStatus = rn, rs
	})
	if readStatus != vfs.ReadCallSuccessful || string(buf[:n]) != "hello world\n" {
		t.Fatalf("read = %q, %v", buf[:n], readStatus)
	}

	if off, status := v.Tell(1, fd); status != vfs.SeekCallSuccessful || off != n {
		t.Fatalf("tell = %d, %v, want %d", off, status, n)
	}

	// A second read at EOF returns zero bytes rather than blocking or erroring.
	v.Read(task, fd, buf, func(rn int64, rs vfs.ReadCallStatus) {
		n, readStatus = rn, rs
	})
	if readStatus != vfs.ReadCallSuccessful || n != 0 {
		t.Fatalf("read past EOF = %d, %v, want 0, Successful", n, readStatus)
	}

	v.Close(task, 1, fd, func(status vfs.CloseCallStatus) {
		if status != vfs.CloseCallSuccessful {
			t.Fatalf("close status = %v", status)
		}
	})
}

func TestOpenMissingFileReportsNotFound(t *testing.T) {
	v, loop := newRamdiskVFS(t)
	defer loop.Close()

	task := sched.NewTask(1, 1)
	v.Open(task, "/nope.txt", 0, func(fd fdtable.Fd, status vfs.OpenCallStatus) {
		if status != vfs.OpenCallNotFound {
			t.Fatalf("open status = %v, want NotFound", status)
		}
	})
}

func TestCreateWritesAndGrowsThenReadsBack(t *testing.T) {
	v, loop := newRamdiskVFS(t)
	defer loop.Close()

	task := sched.NewTask(1, 1)

	var fd fdtable.Fd
	v.Open(task, "/fresh.txt", fdtable.FlagCreate, func(f fdtable.Fd, status vfs.OpenCallStatus) {
		if status != vfs.OpenCallSuccessful {
			t.Fatalf("create status = %v", status)
		}
		fd = f
	})

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	var writeN int64
	var writeStatus vfs.WriteCallStatus
	v.Write(task, fd, payload, func(n int64, s vfs.WriteCallStatus) {
		writeN, writeStatus = n, s
	})
	if writeStatus != vfs.WriteCallSuccessful || int(writeN) != len(payload) {
		t.Fatalf("write = %d, %v", writeN, writeStatus)
	}

	v.Seek(task, fd, vfs.SeekSet, 0, func(offset int64, status vfs.SeekCallStatus) {
		if status != vfs.SeekCallSuccessful || offset != 0 {
			t.Fatalf("seek = %d, %v", offset, status)
		}
	})

	readBack := make([]byte, len(payload))
	var readN int64
	v.Read(task, fd, readBack, func(n int64, s vfs.ReadCallStatus) {
		if s != vfs.ReadCallSuccessful {
			t.Fatalf("read status = %v", s)
		}
		readN = n
	})
	if string(readBack[:readN]) != string(payload) {
		t.Fatalf("read back mismatch after grow-on-write")
	}
}

func TestReadDirectoryListsSeededChildren(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()
	v := vfs.New(loop, vfs.DefaultOptions())

	rd := ramdisk.New(v.Graph(), v.TxnStore(), 0)
	rd.Archive().SeedFolder(rd.Archive().Root(), "docs")
	rd.Archive().Seed(rd.Archive().Root(), "a.txt", []byte("a"))
	rd.Archive().Seed(rd.Archive().Root(), "b.txt", []byte("b"))
	v.Graph().Root().SetDelegate(rd)

	task := sched.NewTask(1, 1)

	var dirID uint64
	v.OpenDirectory(task, "/", func(id uint64, status vfs.OpenDirectoryStatus) {
		if status != vfs.OpenDirectorySuccessful {
			t.Fatalf("open directory status = %v", status)
		}
		dirID = id
	})

	seen := map[string]bool{}
	for position := 0; ; position++ {
		var done bool
		v.ReadDirectory(task, dirID, position, func(res vfs.ReadDirectoryResult, status vfs.ReadDirectoryCallStatus) {
			switch status {
			case vfs.ReadDirectoryCallSuccessful:
				seen[res.Entry.Name] = true
			case vfs.ReadDirectoryCallEndOfDirectory:
				done = true
			default:
				t.Fatalf("read directory status = %v", status)
			}
		})
		if done {
			break
		}
	}

	for _, name := range []string{"docs", "a.txt", "b.txt"} {
		if !seen[name] {
			t.Fatalf("directory listing missing %q: %v", name, seen)
		}
	}
}

func TestPipeRoundTripAcrossTasks(t *testing.T) {
	v, loop := newRamdiskVFS(t)
	defer loop.Close()

	writeFd, readFd, status := v.Pipe(1)
	if status != vfs.PipeCallSuccessful {
		t.Fatalf("pipe status = %v", status)
	}

	writer := sched.NewTask(1, 1)
	reader := sched.NewTask(2, 1)

	done := make(chan struct{})
	buf := make([]byte, 5)
	var readStatus vfs.ReadCallStatus
	var readN int64
	go func() {
		v.Read(reader, readFd, buf, func(n int64, s vfs.ReadCallStatus) {
			readN, readStatus = n, s
		})
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("blocking read returned before any data was written")
	default:
	}

	v.Write(writer, writeFd, []byte("hello"), func(int64, vfs.WriteCallStatus) {})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking read never woke up after write")
	}
	if readStatus != vfs.ReadCallSuccessful || string(buf[:readN]) != "hello" {
		t.Fatalf("read = %q, %v", buf[:readN], readStatus)
	}
}

func TestForkProcessSharesPipeReferenceAndCwd(t *testing.T) {
	v, loop := newRamdiskVFS(t)
	defer loop.Close()

	parent := sched.NewTask(1, 1)
	v.SetWorkingDirectory(parent, "/", func(status vfs.SetCwdStatus) {
		if status != vfs.SetCwdSuccessful {
			t.Fatalf("set cwd = %v", status)
		}
	})

	writeFd, readFd, _ := v.Pipe(1)
	v.ForkProcess(1, 2)

	if v.GetWorkingDirectory(2) != v.GetWorkingDirectory(1) {
		t.Fatalf("forked process did not inherit cwd")
	}

	child := sched.NewTask(2, 2)
	v.Write(parent, writeFd, []byte("hi"), func(int64, vfs.WriteCallStatus) {})

	buf := make([]byte, 2)
	var readStatus vfs.ReadCallStatus
	v.Read(child, readFd, buf, func(n int64, s vfs.ReadCallStatus) {
		readStatus = s
	})
	if readStatus != vfs.ReadCallSuccessful {
		t.Fatalf("forked process could not read through its cloned fd: %v", readStatus)
	}
}

func TestCloseProcessReleasesEveryDescriptor(t *testing.T) {
	v, loop := newRamdiskVFS(t)
	defer loop.Close()

	task := sched.NewTask(1, 1)
	var fd fdtable.Fd
	v.Open(task, "/hello.txt", 0, func(f fdtable.Fd, status vfs.OpenCallStatus) {
		fd = f
	})

	doneCh := make(chan struct{})
	v.CloseProcess(task, func() { close(doneCh) })
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("CloseProcess never completed")
	}

	if _, status := v.Tell(1, fd); status != vfs.SeekCallInvalidFd {
		t.Fatalf("descriptor still mapped after CloseProcess: %v", status)
	}
}
