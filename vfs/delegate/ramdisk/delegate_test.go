package ramdisk_test

import (
	"testing"

	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/delegate/ramdisk"
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/sched"
)

func TestOpenCreatesAndReadsBack(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()

	v, rd, task := mountedVFS(t, loop)
	v.Graph().Root().SetDelegate(rd)

	var openStatus vfs.OpenCallStatus
	var fd fdtable.Fd
	v.Open(task, "/greeting.txt", fdtable.FlagCreate, func(f fdtable.Fd, status vfs.OpenCallStatus) {
		fd, openStatus = f, status
	})
	if openStatus != vfs.OpenCallSuccessful {
		t.Fatalf("open status = %v, want Successful", openStatus)
	}

	var writeN int64
	var writeStatus vfs.WriteCallStatus
	v.Write(task, fd, []byte("hello ramdisk"), func(n int64, status vfs.WriteCallStatus) {
		writeN, writeStatus = n, status
	})
	if writeStatus != vfs.WriteCallSuccessful || writeN != int64(len("hello ramdisk")) {
		t.Fatalf("write = %d, %v", writeN, writeStatus)
	}

	var seekOffset int64
	var seekStatus vfs.SeekCallStatus
	v.Seek(task, fd, vfs.SeekSet, 0, func(offset int64, status vfs.SeekCallStatus) {
		seekOffset, seekStatus = offset, status
	})
	if seekStatus != vfs.SeekCallSuccessful || seekOffset != 0 {
		t.Fatalf("seek = %d, %v", seekOffset, seekStatus)
	}

	buf := make([]byte, 32)
	var readN int64
	var readStatus vfs.ReadCallStatus
	v.Read(task, fd, buf, func(n int64, status vfs.ReadCallStatus) {
		readN, readStatus = n, status
	})
	if readStatus != vfs.ReadCallSuccessful || string(buf[:readN]) != "hello ramdisk" {
		t.Fatalf("read = %q, %v", buf[:readN], readStatus)
	}
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()

	v, rd, task := mountedVFS(t, loop)
	v.Graph().Root().SetDelegate(rd)

	var status vfs.OpenCallStatus
	v.Open(task, "/nope.txt", 0, func(fd fdtable.Fd, s vfs.OpenCallStatus) {
		status = s
	})
	if status != vfs.OpenCallNotFound {
		t.Fatalf("status = %v, want NotFound", status)
	}
}

func TestDirectoryRefreshListsSeededEntries(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()

	v, rd, task := mountedVFS(t, loop)
	v.Graph().Root().SetDelegate(rd)
	rd.Archive().Seed(rd.Archive().Root(), "a.txt", []byte("a"))
	rd.Archive().Seed(rd.Archive().Root(), "b.txt", []byte("b"))

	var dirID uint64
	var odStatus vfs.OpenDirectoryStatus
	v.OpenDirectory(task, "/", func(id uint64, status vfs.OpenDirectoryStatus) {
		dirID, odStatus = id, status
	})
	if odStatus != vfs.OpenDirectorySuccessful {
		t.Fatalf("opendir status = %v", odStatus)
	}

	names := map[string]bool{}
	for pos := 0; ; pos++ {
		var res vfs.ReadDirectoryResult
		var status vfs.ReadDirectoryCallStatus
		v.ReadDirectory(task, dirID, pos, func(r vfs.ReadDirectoryResult, s vfs.ReadDirectoryCallStatus) {
			res, status = r, s
		})
		if status == vfs.ReadDirectoryCallEndOfDirectory {
			break
		}
		if status != vfs.ReadDirectoryCallSuccessful {
			t.Fatalf("readdir status = %v at position %d", status, pos)
		}
		names[res.Entry.Name] = true
	}

	if !names["a.txt"] || !names["b.txt"] {
		t.Fatalf("names = %v, want both a.txt and b.txt", names)
	}
}

func TestOpenFolderFails(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()

	v, rd, task := mountedVFS(t, loop)
	v.Graph().Root().SetDelegate(rd)
	rd.Archive().SeedFolder(rd.Archive().Root(), "docs")

	var status vfs.OpenCallStatus
	v.Open(task, "/docs", 0, func(fd fdtable.Fd, s vfs.OpenCallStatus) {
		status = s
	})
	if status != vfs.OpenCallError {
		t.Fatalf("open on a folder = %v, want Error", status)
	}
}

func TestAppendWriteLandsAtEndOfFile(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()

	v, rd, task := mountedVFS(t, loop)
	v.Graph().Root().SetDelegate(rd)
	rd.Archive().Seed(rd.Archive().Root(), "log.txt", []byte("first;"))

	var fd fdtable.Fd
	var openStatus vfs.OpenCallStatus
	v.Open(task, "/log.txt", fdtable.FlagAppend, func(f fdtable.Fd, status vfs.OpenCallStatus) {
		fd, openStatus = f, status
	})
	if openStatus != vfs.OpenCallSuccessful {
		t.Fatalf("open status = %v", openStatus)
	}

	// Leave the descriptor's offset pointing mid-file to prove the append
	// write ignores it rather than overwriting from there.
	v.Seek(task, fd, vfs.SeekSet, 3, func(int64, vfs.SeekCallStatus) {})

	var writeStatus vfs.WriteCallStatus
	v.Write(task, fd, []byte("second;"), func(n int64, status vfs.WriteCallStatus) {
		writeStatus = status
	})
	if writeStatus != vfs.WriteCallSuccessful {
		t.Fatalf("write status = %v", writeStatus)
	}

	v.Seek(task, fd, vfs.SeekSet, 0, func(int64, vfs.SeekCallStatus) {})
	buf := make([]byte, 32)
	var readN int64
	var readStatus vfs.ReadCallStatus
	v.Read(task, fd, buf, func(n int64, status vfs.ReadCallStatus) {
		readN, readStatus = n, status
	})
	if readStatus != vfs.ReadCallSuccessful || string(buf[:readN]) != "first;second;" {
		t.Fatalf("read = %q, %v, want %q", buf[:readN], readStatus, "first;second;")
	}
}

func mountedVFS(t *testing.T, loop *sched.Loop) (*vfs.VFS, *ramdisk.Delegate, *sched.Task) {
	t.Helper()
	v := vfs.New(loop, vfs.DefaultOptions())
	rd := ramdisk.New(v.Graph(), v.TxnStore(), vfs.DefaultOptions().RamdiskGrowthFactor)
	task := sched.NewTask(1, 1)
	return v, rd, task
}
