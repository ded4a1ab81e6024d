package usertask_test

import (
	"testing"

	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/bus"
	"github.com/kestrel-os/vfscore/vfs/delegate/usertask"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// runFakeTask drains inbox until stop is closed, answering every
// discovery request with DiscoveryNotFound, standing in for a real
// registered user-space task.
func runFakeTask(d *usertask.Delegate, inbox <-chan bus.Message, space vfs.SpaceID, stop <-chan struct{}) {
	go func() {
		for {
			select {
			case msg, ok := <-inbox:
				if !ok {
					return
				}
				switch msg.Op {
				case usertask.OpDiscovery:
					d.CompleteDiscovery(msg.TxnID, vfs.NewContextual(vfs.DiscoveryResult{Status: vfs.DiscoveryNotFound}, space))
				}
			case <-stop:
				return
			}
		}
	}()
}

func TestDiscoveryRoundTripsThroughTask(t *testing.T) {
	loop := sched.NewLoop()
	defer loop.Close()

	v := vfs.New(loop, vfs.DefaultOptions())
	store := v.TxnStore()
	b := bus.NewBus()
	const space vfs.SpaceID = 7
	d, inbox := usertask.New(store, b, 42, space, 4)

	stop := make(chan struct{})
	defer close(stop)
	runFakeTask(d, inbox, space, stop)

	v.Graph().Root().SetDelegate(d)

	task := sched.NewTask(1, 1)
	var status vfs.OpenDirectoryStatus
	v.OpenDirectory(task, "/nonexistent", func(id uint64, s vfs.OpenDirectoryStatus) {
		status = s
	})
	if status != vfs.OpenDirectoryNotFound {
		t.Fatalf("status = %v, want OpenDirectoryNotFound", status)
	}
}

func TestRequestReportsBusyWhenQueueFull(t *testing.T) {
	store := txn.NewStore()
	b := bus.NewBus()
	d, _ := usertask.New(store, b, 42, 7, 0)

	task := sched.NewTask(1, 1)
	parent := &vfs.Node{}
	id := d.RequestDiscovery(task, parent, "x", txn.NoRepeat)

	if got := store.GetStatus(id); got != txn.Finished {
		t.Fatalf("status = %v, want Finished", got)
	}
	res := d.FinishDiscovery(task, id)
	if res.Status != vfs.DiscoveryBusy {
		t.Fatalf("discovery status = %v, want DiscoveryBusy", res.Status)
	}
}

func TestCompleteWithWrongSpacePanics(t *testing.T) {
	store := txn.NewStore()
	b := bus.NewBus()
	d, _ := usertask.New(store, b, 42, 7, 4)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from mismatched address space")
		}
	}()
	d.CompleteDiscovery(1, vfs.NewContextual(vfs.DiscoveryResult{}, vfs.SpaceID(999)))
}
