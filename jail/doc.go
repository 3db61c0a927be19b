// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jail builds and tears down the filesystem view a cellblock
// child is chrooted into.
//
// A Jail is a directory on the host, the jail root, with /proc, /dev
// and /sys bound into it and a list of bind directives applied on top.
// The mounts are made in the caller's mount namespace; nothing is
// unshared, so Teardown must run when the child is done or the mounts
// stay behind.
//
// /dev and /sys are bound recursively and then, in a separate mount
// call, made recursive slaves. Doing both in one call leaves mounts
// such as /dev/pts pinned and impossible to unmount later.
//
// Teardown looks up the mount points recorded when the jail was
// built in the live mount table, without resolving any symlinks the
// child may have planted, and unmounts deepest mounts first. Mounts it
// could not find or remove are reported, not ignored.
package jail
