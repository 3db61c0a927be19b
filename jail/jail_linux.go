// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jail

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/hashicorp/go-multierror"
	"github.com/moby/sys/mountinfo"
	"github.com/u-root/cellblock/bind"
	"github.com/u-root/cellblock/mount"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

var (
	// ErrLiveRoot is returned when asked to build a jail at /.
	ErrLiveRoot = errors.New("jail root is the live root")
	// ErrRelativeRoot is returned for a jail root that is not absolute.
	ErrRelativeRoot = errors.New("jail root is not an absolute path")
	// ErrResidualMounts is returned by Teardown when mounts made for
	// the jail are still there afterwards.
	ErrResidualMounts = errors.New("mounts left in jail")

	v = func(string, ...interface{}) {}
)

// SetVerbose sets the verbose printer.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}

func verbose(f string, a ...interface{}) {
	v("JAIL:"+f, a...)
}

// MountError records which step of building a jail failed, and where.
type MountError struct {
	// Op is one of "mkdir", "bind", "propagation", "remount".
	Op     string
	Source string
	Target string
	Err    error
}

func (e *MountError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Source, e.Target, e.Err)
}

func (e *MountError) Unwrap() error {
	return e.Err
}

// special filesystems are bound in this order. procfs manages itself
// per pid, so a plain bind is enough; /dev and /sys carry submounts.
var special = []struct {
	path string
	rec  bool
}{
	{path: "/proc"},
	{path: "/dev", rec: true},
	{path: "/sys", rec: true},
}

// Jail is one jail root and the bind directives to apply to it.
//
// A Jail is not safe for concurrent use, and two Jails must not share
// a root: the mount namespace they change is global to the process.
type Jail struct {
	// Root is the jail root, cleaned and with symlinks resolved.
	Root  string
	Binds []bind.Directive

	m        mount.Mounter
	specials []string
	targets  []string
	opts     []mount.Options
	// applied are the bind targets mounted so far, in order.
	applied []string
	// before is what was mounted under Root when Build started.
	before  []string
	snapped bool
}

// New returns a Jail at root. The root must be absolute and must not
// be /. Every directive's options are resolved and every mount point
// is placed under root here, so a bad directive fails before anything
// is mounted. A mount point that would leave root through a symlink
// is kept inside it instead. Nothing is resolved again after New: at
// teardown the jail's contents belong to whoever ran in it.
func New(root string, m mount.Mounter, binds ...bind.Directive) (*Jail, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%q: %w", root, ErrRelativeRoot)
	}
	root = filepath.Clean(root)
	// The kernel reports mount points with symlinks resolved.
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	if root == "/" {
		return nil, ErrLiveRoot
	}

	j := &Jail{Root: root, Binds: binds, m: m}
	for _, s := range special {
		t, err := securejoin.SecureJoin(root, s.path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.path, err)
		}
		j.specials = append(j.specials, t)
	}
	for _, b := range binds {
		o, err := mount.Resolve(b.Options)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", b, err)
		}
		t, err := securejoin.SecureJoin(root, b.Mountpoint)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", b, err)
		}
		j.opts = append(j.opts, o)
		j.targets = append(j.targets, t)
	}
	return j, nil
}

// Target returns where directive i is mounted on the host.
func (j *Jail) Target(i int) string {
	return j.targets[i]
}

// PrepareSpecialMounts binds the host /proc, /dev and /sys into the
// jail. The first failure stops it.
func (j *Jail) PrepareSpecialMounts() error {
	for i, s := range special {
		t := j.specials[i]
		if err := os.MkdirAll(t, 0755); err != nil {
			return &MountError{Op: "mkdir", Target: t, Err: err}
		}
		// mount(2) follows symlinks.
		if fi, err := os.Lstat(t); err != nil || !fi.IsDir() {
			if err == nil {
				err = fmt.Errorf("%v is not a directory: %w", fi.Mode(), unix.ENOTDIR)
			}
			return &MountError{Op: "mkdir", Target: t, Err: err}
		}
		var flags uintptr = unix.MS_BIND
		if s.rec {
			flags |= unix.MS_REC
		}
		if err := j.m.Mount(s.path, t, "", flags, ""); err != nil {
			return &MountError{Op: "bind", Source: s.path, Target: t, Err: err}
		}
		verbose("bound %s on %s", s.path, t)
		if !s.rec {
			continue
		}
		// This must stay a separate call; MS_BIND|MS_REC|MS_SLAVE in one
		// call leaves /dev/pts unmountable.
		if err := j.m.Mount("", t, "", unix.MS_SLAVE|unix.MS_REC, ""); err != nil {
			return &MountError{Op: "propagation", Target: t, Err: err}
		}
		verbose("made %s a recursive slave", t)
	}
	return nil
}

// ApplyBindMounts binds each directive's source onto its mount point
// under the jail root, in order, then remounts it with the directive's
// options. Later directives may mount on top of earlier ones. The first
// failure stops it; nothing after it is attempted.
func (j *Jail) ApplyBindMounts() error {
	for i, b := range j.Binds {
		t := j.targets[i]
		if err := mkTarget(b.Source, t); err != nil {
			return &MountError{Op: "mkdir", Source: b.Source, Target: t, Err: err}
		}
		if err := j.m.Mount(b.Source, t, "", unix.MS_BIND, ""); err != nil {
			return &MountError{Op: "bind", Source: b.Source, Target: t, Err: err}
		}
		j.applied = append(j.applied, t)
		// A bind mount ignores most flags; they only take with a remount.
		// MS_BIND keeps the remount to this mount point and off the
		// filesystem it came from.
		flags := unix.MS_REMOUNT | unix.MS_BIND | j.opts[i].Flags()
		if err := j.m.Mount("", t, "", flags, ""); err != nil {
			return &MountError{Op: "remount", Source: b.Source, Target: t, Err: fmt.Errorf("%s: %w", j.opts[i], err)}
		}
		verbose("bound %s on %s (%s)", b.Source, t, j.opts[i])
	}
	return nil
}

// Build prepares the special mounts and applies the bind mounts. If
// anything fails, what was mounted is torn down again before Build
// returns: a jail is either complete or not there.
func (j *Jail) Build() error {
	before, err := mountpoints(j.m, mountinfo.PrefixFilter(j.Root))
	if err != nil {
		return err
	}
	j.before, j.snapped = before, true
	err = j.PrepareSpecialMounts()
	if err == nil {
		err = j.ApplyBindMounts()
	}
	if err == nil {
		return nil
	}
	if terr := j.Teardown(); terr != nil {
		return fmt.Errorf("%w (and teardown: %v)", err, terr)
	}
	return err
}

// Teardown unmounts everything below the jail's /proc, /dev and /sys,
// then every applied bind mount, the last applied first. Mount points
// are the paths recorded by New, matched as they are against the
// mount table. It tries all of them and returns every failure. After
// a Build, anything under Root that was not there before Build started
// is reported as ErrResidualMounts.
func (j *Jail) Teardown() error {
	var errs *multierror.Error
	for _, t := range j.specials {
		if err := RecursiveUnmount(j.m, t); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for i := len(j.applied) - 1; i >= 0; i-- {
		if err := RecursiveUnmount(j.m, j.applied[i]); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	j.applied = nil
	if j.snapped {
		if err := j.residual(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// residual checks the mount table for mounts under Root that Build
// left there.
func (j *Jail) residual() error {
	now, err := mountpoints(j.m, mountinfo.PrefixFilter(j.Root))
	if err != nil {
		return err
	}
	for _, p := range j.before {
		if i := slices.Index(now, p); i >= 0 {
			now = slices.Delete(now, i, i+1)
		}
	}
	if len(now) > 0 {
		return fmt.Errorf("%w: %q", ErrResidualMounts, now)
	}
	return nil
}

// mkTarget makes sure there is something to mount on: a directory for
// a directory, an empty file for anything else.
func mkTarget(source, target string) error {
	src, err := os.Stat(source)
	if err != nil {
		return err
	}
	if src.IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if t, err := os.Stat(target); err == nil {
		if t.IsDir() {
			return fmt.Errorf("cannot bind file %s to a dir %s: %w", source, target, os.ErrInvalid)
		}
		return nil
	}
	return os.WriteFile(target, []byte{}, 0644)
}
