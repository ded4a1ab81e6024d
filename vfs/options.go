package vfs

// Options configures a VFS instance. There is no single "defaults" global:
// callers build an Options value (by convention starting from
// DefaultOptions()) and pass it to New, the same way the teacher's
// nodefs.FileSystemOptions is threaded through a mount call.
type Options struct {
	// PipeDefaultCapacity records the ring-buffer size of a freshly
	// created pipe. New does not consult it: every pipe is created with
	// pipe.DefaultCapacity (64 KiB, the value DefaultOptions sets here).
	PipeDefaultCapacity int

	// RamdiskGrowthFactor is the multiplier applied to a ramdisk file's
	// backing buffer when a write needs more room than it currently has
	// (spec §4.3.1; the original grows by exactly this factor, ×1.2,
	// rather than doubling).
	RamdiskGrowthFactor float64

	// MaxPathLen bounds any absolute path this core will construct or
	// accept, matching the original's G_PATH_MAX discipline of working
	// against fixed-size buffers.
	MaxPathLen int

	// PortableHandles names a freelist-backed handle allocation strategy
	// (like fuse/nodefs's portableHandleMap). New does not consult it:
	// descriptors and transaction ids always come from monotone counters,
	// whatever its value.
	PortableHandles bool
}

// DefaultOptions returns the option set used by cmd/vfsdemo and most
// tests, with values matching the original kernel's constants.
func DefaultOptions() Options {
	return Options{
		PipeDefaultCapacity: 64 * 1024,
		RamdiskGrowthFactor: 1.2,
		MaxPathLen:          1024,
		PortableHandles:     true,
	}
}
