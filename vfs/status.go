package vfs

// The types in this file are the facade-level status enums named by
// spec §6's syscall table — distinct from the Delegate-level status enums
// in delegate.go. A facade status additionally covers lookup failures
// (InvalidFd, a cwd that isn't a folder) that no delegate ever sees,
// since the facade resolves fds and paths before a delegate is even
// reached.

// SetCwdStatus is fs_set_working_directory's result.
type SetCwdStatus int

const (
	SetCwdSuccessful SetCwdStatus = iota
	SetCwdNotFound
	SetCwdNotAFolder
	SetCwdError
)

// OpenCallStatus is fs_open's result.
type OpenCallStatus int

const (
	OpenCallSuccessful OpenCallStatus = iota
	OpenCallNotFound
	OpenCallBusy
	OpenCallError
)

func (s OpenCallStatus) String() string {
	switch s {
	case OpenCallSuccessful:
		return "successful"
	case OpenCallNotFound:
		return "not-found"
	case OpenCallBusy:
		return "busy"
	default:
		return "error"
	}
}

// CloseCallStatus is fs_close's result.
type CloseCallStatus int

const (
	CloseCallSuccessful CloseCallStatus = iota
	CloseCallInvalidFd
	CloseCallBusy
	CloseCallError
)

// ReadCallStatus is fs_read's result.
type ReadCallStatus int

const (
	ReadCallSuccessful ReadCallStatus = iota
	ReadCallInvalidFd
	ReadCallAgain
	ReadCallBusy
	ReadCallError
)

// WriteCallStatus is fs_write's result.
type WriteCallStatus int

const (
	WriteCallSuccessful WriteCallStatus = iota
	WriteCallInvalidFd
	WriteCallAgain
	WriteCallBusy
	WriteCallError
)

// SeekCallStatus is fs_seek's and fs_tell's result.
type SeekCallStatus int

const (
	SeekCallSuccessful SeekCallStatus = iota
	SeekCallInvalidFd
	SeekCallError
)

// LengthCallStatus is fs_length's result.
type LengthCallStatus int

const (
	LengthCallSuccessful LengthCallStatus = iota
	LengthCallNotFound
	LengthCallInvalidFd
	LengthCallError
)

// OpenDirectoryStatus is fs_open_directory's result.
type OpenDirectoryStatus int

const (
	OpenDirectorySuccessful OpenDirectoryStatus = iota
	OpenDirectoryNotFound
	OpenDirectoryNotAFolder
	OpenDirectoryError
)

// ReadDirectoryCallStatus is fs_read_directory's result.
type ReadDirectoryCallStatus int

const (
	ReadDirectoryCallSuccessful ReadDirectoryCallStatus = iota
	ReadDirectoryCallEndOfDirectory
	ReadDirectoryCallError
)

// PipeCallStatus is fs_pipe's result.
type PipeCallStatus int

const (
	PipeCallSuccessful PipeCallStatus = iota
	PipeCallError
)

// CloneFdCallStatus is fs_clonefd's result.
type CloneFdCallStatus int

const (
	CloneFdCallSuccessful CloneFdCallStatus = iota
	CloneFdCallInvalidFd
)

// CreateNodeStatus is fs_create_node's result, grounded on filesystem.cpp's
// create-or-update semantics (see SUPPLEMENTED FEATURES in SPEC_FULL.md).
type CreateNodeStatus int

const (
	NodeCreated CreateNodeStatus = iota
	NodeUpdated
	NodeFailedNoParent
)

// RegisterDelegateStatus is fs_register_as_delegate's result.
type RegisterDelegateStatus int

const (
	RegisterDelegateSuccessful RegisterDelegateStatus = iota
	RegisterDelegateError
)

// StatStatus models the source's reserved, never-implemented fs_stat /
// fs_fstat pair (Open Question in spec §9; resolution recorded in
// DESIGN.md: keep the no-op shape rather than inventing stat semantics
// the original never had).
type StatStatus int

const (
	StatusNotImplemented StatStatus = iota
)
