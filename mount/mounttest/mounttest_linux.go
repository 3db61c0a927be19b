// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mounttest provides a mount.Mounter that keeps its mount
// table in memory, for testing code that builds and tears down jails
// without being root.
package mounttest

import (
	"fmt"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/u-root/cellblock/mount"
	"golang.org/x/sys/unix"
)

// Call records one Mount or Unmount.
type Call struct {
	Unmount bool
	Source  string
	Target  string
	FSType  string
	Flags   uintptr
	Data    string
	// UFlags are the umount2 flags of an Unmount.
	UFlags int
}

func (c Call) String() string {
	if c.Unmount {
		return fmt.Sprintf("umount2(%q, %#x)", c.Target, c.UFlags)
	}
	return fmt.Sprintf("mount(%q, %q, %q, %#x, %q)", c.Source, c.Target, c.FSType, c.Flags, c.Data)
}

// Mounter is an in-memory mount namespace.
//
// Mounts that create a mount point (anything but a remount or a
// propagation change) push the target onto Table. Unmount pops the
// most recent entry for its target; it fails with EBUSY while other
// mounts sit below the target, unless MNT_DETACH is given, in which
// case they go too. That is how the kernel behaves.
type Mounter struct {
	// Table holds mount points in the order they were mounted.
	Table []string
	// Calls holds every call, failed or not, in order.
	Calls []Call
	// Fail, if not nil, is consulted before each call is carried out.
	// A non-nil return fails the call with that error.
	Fail func(Call) error
}

var _ mount.Mounter = &Mounter{}

const propagation = unix.MS_SHARED | unix.MS_SLAVE | unix.MS_PRIVATE | unix.MS_UNBINDABLE

func (m *Mounter) fail(c Call) error {
	m.Calls = append(m.Calls, c)
	if m.Fail == nil {
		return nil
	}
	return m.Fail(c)
}

// Mount implements mount.Mounter.Mount.
func (m *Mounter) Mount(source, target, fstype string, flags uintptr, data string) error {
	if err := m.fail(Call{Source: source, Target: target, FSType: fstype, Flags: flags, Data: data}); err != nil {
		return err
	}
	if flags&(unix.MS_REMOUNT|propagation) != 0 {
		if !m.mounted(target) {
			return unix.EINVAL
		}
		return nil
	}
	m.Table = append(m.Table, target)
	return nil
}

// Unmount implements mount.Mounter.Unmount.
func (m *Mounter) Unmount(target string, flags int) error {
	if err := m.fail(Call{Unmount: true, Target: target, UFlags: flags}); err != nil {
		return err
	}
	top := -1
	for i, p := range m.Table {
		if p == target {
			top = i
		}
	}
	if top < 0 {
		return unix.EINVAL
	}
	var below []int
	for i, p := range m.Table {
		if strings.HasPrefix(p, target+"/") {
			below = append(below, i)
		}
	}
	if len(below) > 0 && flags&unix.MNT_DETACH == 0 {
		return unix.EBUSY
	}
	t := m.Table[:0]
	for i, p := range m.Table {
		if i == top || (flags&unix.MNT_DETACH != 0 && strings.HasPrefix(p, target+"/")) {
			continue
		}
		t = append(t, p)
	}
	m.Table = t
	return nil
}

// Mounts implements mount.Mounter.Mounts.
func (m *Mounter) Mounts(f mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
	var infos []*mountinfo.Info
	for i, p := range m.Table {
		info := &mountinfo.Info{ID: i + 1, Mountpoint: p}
		skip, stop := false, false
		if f != nil {
			skip, stop = f(info)
		}
		if !skip {
			infos = append(infos, info)
		}
		if stop {
			break
		}
	}
	return infos, nil
}

func (m *Mounter) mounted(target string) bool {
	for _, p := range m.Table {
		if p == target {
			return true
		}
	}
	return false
}

// Under returns the entries of Table at or below prefix.
func (m *Mounter) Under(prefix string) []string {
	var p []string
	for _, t := range m.Table {
		if t == prefix || strings.HasPrefix(t, prefix+"/") {
			p = append(p, t)
		}
	}
	return p
}

// Mounted returns every Mount call, failed or not.
func (m *Mounter) Mounted() []Call {
	var c []Call
	for _, call := range m.Calls {
		if !call.Unmount {
			c = append(c, call)
		}
	}
	return c
}

// Unmounted returns the targets of every Unmount call, in order.
func (m *Mounter) Unmounted() []string {
	var p []string
	for _, call := range m.Calls {
		if call.Unmount {
			p = append(p, call.Target)
		}
	}
	return p
}
