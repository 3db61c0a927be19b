// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func verbose(f string, a ...interface{}) {
	v("session:"+f, a...)
}

// exitStatus is the status a shell would report for ps: the exit code,
// or 128 plus the signal for a process that was killed.
func exitStatus(ps *os.ProcessState) int {
	if ps == nil {
		return ExitFailure
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ps.ExitCode()
}

// exitCode is what the child role exits with when err stopped it.
func exitCode(err error) int {
	var e *Error
	if !errors.As(err, &e) || e.Stage != StageExec {
		return ExitFailure
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return ExitNotFound
	}
	return ExitCannotExec
}
