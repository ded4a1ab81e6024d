package vfs

import "github.com/kestrel-os/vfscore/vfs/sched"

// MountDelegate extends Delegate with the one operation the singleton
// /mount node supports beyond the usual six: accepting a new mountpoint
// registration. Grounded on spec §4.3.4 ("its sole purpose is to accept
// createDelegate(taskId, name, physId)").
type MountDelegate interface {
	Delegate

	// CreateDelegate creates a new Mountpoint child of /mount named name,
	// bound to a fresh delegate serving taskID, and attaches physID as its
	// PhysID. It returns the new node, or an error if name is already
	// taken.
	CreateDelegate(task *sched.Task, taskID uint64, name string, physID int64) (*Node, error)
}
