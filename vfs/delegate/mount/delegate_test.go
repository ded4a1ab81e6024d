package mount_test

import (
	"testing"

	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/delegate/mount"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

type stubDelegate struct{ vfs.Delegate }

func TestCreateDelegateThenDiscoverIt(t *testing.T) {
	store := txn.NewStore()
	graph := vfs.NewGraph(0)
	mountNode := graph.CreateNode()
	mountNode.Type = vfs.NodeMountpoint
	mountNode.Name = "mount"
	graph.Root().AddChild(mountNode)

	var factoryCalls []uint64
	factory := func(taskID uint64, physID int64) vfs.Delegate {
		factoryCalls = append(factoryCalls, taskID)
		return stubDelegate{}
	}
	d := mount.New(graph, mountNode, store, factory)
	mountNode.SetDelegate(d)

	task := sched.NewTask(1, 1)
	created, err := d.CreateDelegate(task, 42, "ramdisk0", 7)
	if err != nil {
		t.Fatalf("CreateDelegate error: %v", err)
	}
	if created.Name != "ramdisk0" || created.Type != vfs.NodeMountpoint {
		t.Fatalf("created = %+v", created)
	}
	if len(factoryCalls) != 1 || factoryCalls[0] != 42 {
		t.Fatalf("factory calls = %v", factoryCalls)
	}

	if _, err := d.CreateDelegate(task, 43, "ramdisk0", 8); err == nil {
		t.Fatal("expected error registering a duplicate name")
	}

	id := d.RequestDiscovery(task, mountNode, "ramdisk0", txn.NoRepeat)
	res := d.FinishDiscovery(task, id)
	if res.Status != vfs.DiscoverySuccessful || res.Node != created {
		t.Fatalf("discovery result = %+v", res)
	}
}
