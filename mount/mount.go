// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mount

import "github.com/moby/sys/mountinfo"

// Mounter is the mount namespace a jail is built in. All mount and
// unmount activity goes through it, so tests can substitute a table
// that lives in memory.
//
// The namespace is shared by the whole process and by every other
// process in it. Nothing here locks: only one cellblock may work on a
// given jail root at a time.
type Mounter interface {
	// Mount is mount(2).
	Mount(source, target, fstype string, flags uintptr, data string) error
	// Unmount is umount2(2).
	Unmount(target string, flags int) error
	// Mounts returns a fresh snapshot of the mount table, filtered by f.
	// A nil f returns every entry.
	Mounts(f mountinfo.FilterFunc) ([]*mountinfo.Info, error)
}

var v = func(string, ...interface{}) {}

// SetVerbose sets the verbose printer.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}
