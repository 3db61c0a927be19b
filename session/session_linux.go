// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/u-root/cellblock/jail"
	"github.com/u-root/cellblock/mount"
)

// New returns a Session with defaults set: the process's stdio, the
// kernel mount table, and no bind directives.
func New(root, user, cmd string, args ...string) *Session {
	return &Session{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Root:    root,
		User:    user,
		Mounter: mount.Kernel{},
		cmd:     cmd,
		args:    args,
		geteuid: os.Geteuid,
	}
}

// Run is the parent role. It builds the jail, starts the child role,
// waits for it, and tears the jail down again.
//
// status is the child's exit status, or 128 plus the signal that
// killed it, or ExitFailure if it never ran. err says why the child
// never ran. warning is for teardown failures, which happen after
// the child is gone and never change status.
func (s *Session) Run() (status int, warning error, err error) {
	var j *jail.Jail
	if isolated(s.Root) {
		if euid := s.geteuid(); euid != 0 {
			return ExitFailure, nil, &Error{Stage: StagePrivilege, Err: fmt.Errorf("euid %d: %w", euid, ErrNotRoot)}
		}
		if j, err = jail.New(s.Root, s.Mounter, s.Binds...); err != nil {
			return ExitFailure, nil, &Error{Stage: StageMount, Err: err}
		}
		verbose("building jail at %q", j.Root)
		if err := j.Build(); err != nil {
			return ExitFailure, nil, &Error{Stage: StageMount, Err: err}
		}
	}

	status, err = s.run()
	if j != nil {
		verbose("tearing down jail at %q", j.Root)
		if terr := j.Teardown(); terr != nil {
			warning = &Error{Stage: StageUnmount, Err: terr}
		}
	}
	return status, warning, err
}

// run starts the child role and waits for it.
func (s *Session) run() (int, error) {
	c, err := s.command()
	if err != nil {
		return ExitFailure, &Error{Stage: StageStart, Err: err}
	}

	// Signals meant for the command must not kill us before the
	// teardown. Until Wait returns, they are passed on instead.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	verbose("run %q", c.Args)
	if err := c.Start(); err != nil {
		return ExitFailure, &Error{Stage: StageStart, Err: err}
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				verbose("passing %v to %d", sig, c.Process.Pid)
				if err := c.Process.Signal(sig); err != nil {
					verbose("signal %v: %v", sig, err)
				}
			case <-done:
				return
			}
		}
	}()
	err = c.Wait()
	close(done)
	verbose("child %d: %v", c.Process.Pid, err)
	return exitStatus(c.ProcessState), nil
}

// command is the child role invocation for s.
func (s *Session) command() (*exec.Cmd, error) {
	self := s.Self
	if self == "" {
		var err error
		if self, err = os.Executable(); err != nil {
			return nil, err
		}
	}
	root := s.Root
	if root == "" {
		root = "/"
	}
	args := []string{ChildFlag, "--root=" + root, "--user=" + s.User, "--", s.cmd}
	c := exec.Command(self, append(args, s.args...)...)
	c.Stdin, c.Stdout, c.Stderr = s.Stdin, s.Stdout, s.Stderr
	return c, nil
}
