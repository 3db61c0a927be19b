// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mount

import (
	"fmt"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

// Kernel is the Mounter for the mount namespace of the calling process.
type Kernel struct{}

var _ Mounter = Kernel{}

// Mount implements Mounter.Mount.
func (Kernel) Mount(source, target, fstype string, flags uintptr, data string) error {
	v("mount(%q, %q, %q, %#x, %q)", source, target, fstype, flags, data)
	if err := unix.Mount(source, target, fstype, flags, data); err != nil {
		return fmt.Errorf("Mount(%q, %q, %q, %#x, %q): %w", source, target, fstype, flags, data, err)
	}
	return nil
}

// Unmount implements Mounter.Unmount.
func (Kernel) Unmount(target string, flags int) error {
	v("umount2(%q, %#x)", target, flags)
	if err := unix.Unmount(target, flags); err != nil {
		return fmt.Errorf("Unmount(%q, %#x): %w", target, flags, err)
	}
	return nil
}

// Mounts implements Mounter.Mounts by reading /proc/self/mountinfo.
func (Kernel) Mounts(f mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
	return mountinfo.GetMounts(f)
}
