// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/u-root/cellblock/bind"
	"github.com/u-root/cellblock/jail"
	"github.com/u-root/cellblock/mount/mounttest"
	"golang.org/x/sys/unix"
)

// The test binary doubles as the child role.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == ChildFlag {
		ChildMain(os.Args[2:])
	}
	os.Exit(m.Run())
}

func testSession(t *testing.T, root, cmd string, args ...string) (*Session, *mounttest.Mounter) {
	t.Helper()
	m := &mounttest.Mounter{}
	s := New(root, "", cmd, args...)
	s.Stdin, s.Stdout, s.Stderr = nil, &bytes.Buffer{}, &bytes.Buffer{}
	s.Mounter = m
	return s, m
}

func TestRunExitStatus(t *testing.T) {
	for _, tt := range []struct {
		name   string
		args   []string
		status int
	}{
		{name: "zero", args: []string{"-c", "exit 0"}, status: 0},
		{name: "seven", args: []string{"-c", "exit 7"}, status: 7},
		{name: "killed", args: []string{"-c", "kill -9 $$"}, status: 128 + 9},
	} {
		s, m := testSession(t, "/", "/bin/sh", tt.args...)
		status, warning, err := s.Run()
		if err != nil || warning != nil {
			t.Errorf("%s:Run(): (%v, %v) != (nil, nil)", tt.name, warning, err)
			continue
		}
		if status != tt.status {
			t.Errorf("%s:Run(): status %d != %d", tt.name, status, tt.status)
		}
		if len(m.Calls) != 0 {
			t.Errorf("%s:Run(): mount calls %v, want none", tt.name, m.Calls)
		}
	}
}

func TestRunStdio(t *testing.T) {
	s, _ := testSession(t, "/", "sh", "-c", "read x; echo $x $0")
	s.Stdin = strings.NewReader("hello\n")
	var out bytes.Buffer
	s.Stdout = &out
	if status, _, err := s.Run(); status != 0 || err != nil {
		t.Fatalf("Run(): (%d, %v) != (0, nil)", status, err)
	}
	if got, want := out.String(), "hello sh\n"; got != want {
		t.Errorf("stdout: %q != %q", got, want)
	}
}

func TestRunExecFailure(t *testing.T) {
	d := t.TempDir()
	noexec := filepath.Join(d, "noexec")
	if err := os.WriteFile(noexec, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		cmd    string
		status int
	}{
		{cmd: filepath.Join(d, "missing"), status: ExitNotFound},
		{cmd: "cellblock-no-such-command", status: ExitNotFound},
		{cmd: noexec, status: ExitCannotExec},
	} {
		s, _ := testSession(t, "/", tt.cmd)
		var stderr bytes.Buffer
		s.Stderr = &stderr
		status, _, err := s.Run()
		if err != nil {
			t.Errorf("Run(%q): %v != nil", tt.cmd, err)
		}
		if status != tt.status {
			t.Errorf("Run(%q): status %d != %d", tt.cmd, status, tt.status)
		}
		if !strings.Contains(stderr.String(), string(StageExec)) {
			t.Errorf("Run(%q): stderr %q does not name the exec stage", tt.cmd, stderr.String())
		}
	}
}

func TestRunNotRoot(t *testing.T) {
	s, m := testSession(t, "/cellblock/test", "/bin/true")
	s.geteuid = func() int { return 1000 }
	s.Self = "/nonexistent"
	status, warning, err := s.Run()
	var e *Error
	if !errors.As(err, &e) || e.Stage != StagePrivilege {
		t.Fatalf("Run(): %v is not a %s error", err, StagePrivilege)
	}
	if !errors.Is(err, ErrNotRoot) {
		t.Errorf("Run(): %v is not ErrNotRoot", err)
	}
	if status != ExitFailure || warning != nil {
		t.Errorf("Run(): (%d, %v) != (%d, nil)", status, warning, ExitFailure)
	}
	if len(m.Calls) != 0 {
		t.Errorf("mount calls %v, want none", m.Calls)
	}
}

func TestRunBuildFailure(t *testing.T) {
	s, m := testSession(t, t.TempDir(), "/bin/true")
	s.geteuid = func() int { return 0 }
	s.Self = "/nonexistent"
	m.Fail = func(c mounttest.Call) error {
		if strings.HasSuffix(c.Target, "/sys") {
			return unix.EPERM
		}
		return nil
	}
	status, _, err := s.Run()
	var e *Error
	if !errors.As(err, &e) || e.Stage != StageMount {
		t.Fatalf("Run(): %v is not a %s error", err, StageMount)
	}
	var me *jail.MountError
	if !errors.As(err, &me) || !errors.Is(err, unix.EPERM) {
		t.Errorf("Run(): %v is not a jail.MountError for EPERM", err)
	}
	if status != ExitFailure {
		t.Errorf("Run(): status %d != %d", status, ExitFailure)
	}
	if len(m.Table) != 0 {
		t.Errorf("mount table after a failed build: %q, want empty", m.Table)
	}
}

func TestRunTearsDown(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// The child role is replaced by /bin/true, which ignores its
	// arguments, so the jail is built and torn down without a chroot.
	s, m := testSession(t, root, "/bin/true")
	s.geteuid = func() int { return 0 }
	s.Self = "/bin/true"
	d, err := bind.Parse("local: /usr mountpoint: /usr opts: ro")
	if err != nil {
		t.Fatal(err)
	}
	s.Binds = []bind.Directive{d}

	status, warning, err := s.Run()
	if status != 0 || warning != nil || err != nil {
		t.Fatalf("Run(): (%d, %v, %v) != (0, nil, nil)", status, warning, err)
	}
	want := []string{root + "/proc", root + "/dev", root + "/sys", root + "/usr"}
	if got := m.Unmounted(); !reflect.DeepEqual(got, want) {
		t.Errorf("unmounted %q != %q", got, want)
	}
	if len(m.Table) != 0 {
		t.Errorf("mount table after Run: %q, want empty", m.Table)
	}
}

func TestRunTeardownWarning(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s, m := testSession(t, root, "/bin/true")
	s.geteuid = func() int { return 0 }
	s.Self = "/bin/false"
	m.Fail = func(c mounttest.Call) error {
		if c.Unmount && c.Target == root+"/dev" {
			return unix.EPERM
		}
		return nil
	}
	status, warning, err := s.Run()
	if err != nil {
		t.Fatalf("Run(): %v != nil", err)
	}
	if status != 1 {
		t.Errorf("Run(): status %d != 1", status)
	}
	var e *Error
	if !errors.As(warning, &e) || e.Stage != StageUnmount || !errors.Is(warning, unix.EPERM) {
		t.Errorf("Run(): warning %v is not an %s error for EPERM", warning, StageUnmount)
	}
}

func TestCommand(t *testing.T) {
	s := New("/cellblock/test", "nobody", "ls", "-l", "--", "/")
	s.Self = "/bin/cellblock"
	c, err := s.command()
	if err != nil {
		t.Fatalf("command(): %v != nil", err)
	}
	want := []string{"/bin/cellblock", ChildFlag, "--root=/cellblock/test", "--user=nobody", "--", "ls", "-l", "--", "/"}
	if !reflect.DeepEqual(c.Args, want) {
		t.Errorf("command(): %q != %q", c.Args, want)
	}
}

func TestDropPrivs(t *testing.T) {
	if err := DropPrivs(""); err != nil {
		t.Errorf(`DropPrivs(""): %v != nil`, err)
	}
	err := DropPrivs("cellblock-no-such-user")
	var unknown user.UnknownUserError
	if !errors.As(err, &unknown) {
		t.Errorf("DropPrivs(cellblock-no-such-user): %v is not a user.UnknownUserError", err)
	}
}

func TestRunUnknownUser(t *testing.T) {
	s, _ := testSession(t, "/", "/bin/true")
	s.User = "cellblock-no-such-user"
	var stderr bytes.Buffer
	s.Stderr = &stderr
	status, _, err := s.Run()
	if err != nil {
		t.Fatalf("Run(): %v != nil", err)
	}
	if status != ExitFailure {
		t.Errorf("Run() as an unknown user: status %d != %d", status, ExitFailure)
	}
	if !strings.Contains(stderr.String(), string(StageDropPrivs)) {
		t.Errorf("stderr %q does not name the %s stage", stderr.String(), StageDropPrivs)
	}
}

func TestExitCode(t *testing.T) {
	for _, tt := range []struct {
		err  error
		code int
	}{
		{err: &Error{Stage: StageChroot, Err: unix.EPERM}, code: ExitFailure},
		{err: &Error{Stage: StageDropPrivs, Err: unix.EPERM}, code: ExitFailure},
		{err: &Error{Stage: StageExec, Err: &exec.Error{Name: "x", Err: exec.ErrNotFound}}, code: ExitNotFound},
		{err: &Error{Stage: StageExec, Err: fmt.Errorf("/x: %w", unix.ENOENT)}, code: ExitNotFound},
		{err: &Error{Stage: StageExec, Err: fmt.Errorf("/x: %w", unix.EACCES)}, code: ExitCannotExec},
		{err: errors.New("anything"), code: ExitFailure},
	} {
		if got := exitCode(tt.err); got != tt.code {
			t.Errorf("exitCode(%v): %d != %d", tt.err, got, tt.code)
		}
	}
}
