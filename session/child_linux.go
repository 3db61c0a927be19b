// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

// ChildMain parses the arguments that follow ChildFlag and runs the
// child role. It never returns.
func ChildMain(args []string) {
	f := pflag.NewFlagSet(ChildFlag, pflag.ContinueOnError)
	f.SetInterspersed(false)
	root := f.String("root", "/", "directory to chroot to")
	name := f.String("user", "", "user to run as")
	if err := f.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "cellblock: %s: %v\n", ChildFlag, err)
		os.Exit(ExitFailure)
	}
	if f.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "cellblock: %s: no command\n", ChildFlag)
		os.Exit(ExitFailure)
	}
	RunChild(*root, *name, f.Arg(0), f.Args()[1:])
}

// RunChild is the child role: chroot to root, become user, and exec
// cmd with argv [cmd, args...]. It never returns. If any step fails it
// says which on stderr and exits with ExitFailure, or, if exec failed,
// with ExitCannotExec or ExitNotFound.
func RunChild(root, user, cmd string, args []string) {
	err := child(root, user, cmd, args)
	fmt.Fprintf(os.Stderr, "cellblock: %v\n", err)
	os.Exit(exitCode(err))
}

func child(root, user, cmd string, args []string) error {
	if isolated(root) {
		if err := unix.Chroot(root); err != nil {
			return &Error{Stage: StageChroot, Err: fmt.Errorf("%s: %w", root, err)}
		}
		if err := unix.Chdir("/"); err != nil {
			return &Error{Stage: StageChroot, Err: fmt.Errorf("chdir /: %w", err)}
		}
		verbose("chroot %s", root)
	}
	if err := DropPrivs(user); err != nil {
		return &Error{Stage: StageDropPrivs, Err: err}
	}

	path := cmd
	if !strings.Contains(cmd, "/") {
		p, err := exec.LookPath(cmd)
		if err != nil {
			return &Error{Stage: StageExec, Err: err}
		}
		path = p
	}
	err := unix.Exec(path, append([]string{cmd}, args...), os.Environ())
	return &Error{Stage: StageExec, Err: fmt.Errorf("%s: %w", path, err)}
}

// DropPrivs becomes the user called name, as found in the password
// file of the current root: no supplementary groups, then the user's
// gid, then the user's uid. An empty name leaves the identity as it
// is. A name with no entry is an error.
func DropPrivs(name string) error {
	if name == "" {
		return nil
	}
	u, err := user.Lookup(name)
	if err != nil {
		return fmt.Errorf("user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("user %q: uid %q: %w", name, u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("user %q: gid %q: %w", name, u.Gid, err)
	}
	verbose("dropping privileges to %s: uid %d, gid %d", name, uid, gid)
	// The syscall versions apply to every thread, and the uid must go
	// last or the rest are not allowed.
	if err := syscall.Setgroups([]int{}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("setgid %d: %w", gid, err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("setuid %d: %w", uid, err)
	}
	return nil
}
