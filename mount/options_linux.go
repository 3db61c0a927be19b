// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mount

import "golang.org/x/sys/unix"

// Flags returns the MS_* bits for o, suitable for a remount.
func (o Options) Flags() uintptr {
	var flags uintptr
	for _, f := range []struct {
		set  bool
		flag uintptr
	}{
		{o.NoDiratime, unix.MS_NODIRATIME},
		{o.NoDev, unix.MS_NODEV},
		{o.DirSync, unix.MS_DIRSYNC},
		{o.NoExec, unix.MS_NOEXEC},
		{o.Mandlock, unix.MS_MANDLOCK},
		{o.Relatime, unix.MS_RELATIME},
		{o.StrictAtime, unix.MS_STRICTATIME},
		{o.NoSuid, unix.MS_NOSUID},
		{o.Synchronous, unix.MS_SYNCHRONOUS},
		{o.ReadOnly, unix.MS_RDONLY},
	} {
		if f.set {
			flags |= f.flag
		}
	}
	return flags
}
