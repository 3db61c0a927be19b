// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/u-root/cellblock/bind"
	"github.com/u-root/cellblock/mount"
)

// ChildFlag, as the first argument, starts the cellblock binary in the
// child role.
const ChildFlag = "-child"

// Exit codes of the child role when it can not run the command. They
// are the ones chroot(1) uses.
const (
	// ExitFailure is for everything before exec: chroot, privilege
	// drop, or a launch that never got that far.
	ExitFailure = 125
	// ExitCannotExec means the command was found but could not run.
	ExitCannotExec = 126
	// ExitNotFound means the command was not found.
	ExitNotFound = 127
)

// Stage names the step of a launch an Error comes from.
type Stage string

const (
	StagePrivilege Stage = "privilege check"
	StageMount     Stage = "mount setup"
	StageStart     Stage = "start"
	StageChroot    Stage = "chroot"
	StageDropPrivs Stage = "privilege drop"
	StageExec      Stage = "exec"
	StageUnmount   Stage = "unmount"
)

// Error is a launch failure and the stage it happened in.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNotRoot is returned when a jail is asked for by someone who can
// not chroot.
var ErrNotRoot = errors.New("you must be root to set a root directory; configure a user to drop privileges after the chroot")

// Session is one instance of a cellblock launch.
type Session struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Root is the jail root. / means no jail.
	Root string
	// User is who the command runs as. Empty means whoever we are,
	// which is root whenever there is a jail.
	User string
	// Binds are applied, in order, after /proc, /dev and /sys.
	Binds []bind.Directive
	// Mounter is the mount namespace the jail is built in.
	Mounter mount.Mounter
	// Self is the binary started in the child role. Empty means
	// os.Executable.
	Self string

	cmd     string
	args    []string
	geteuid func() int
}

// isolated reports whether root asks for a jail.
func isolated(root string) bool {
	return root != "" && filepath.Clean(root) != "/"
}

var v = func(string, ...interface{}) {}

// SetVerbose sets the verbose printer.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}
