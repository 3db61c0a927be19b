// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session runs one command in a cellblock jail.
//
// New(root, user, cmd string, args ...string) creates a new Session.
// If root is not /, Run builds a jail at root, starts the child role,
// waits for it, and tears the jail down, in that order, whatever the
// child did. The child role chroots into root, becomes user, and
// replaces itself with cmd.
//
// Go can not fork without exec, so the child role is the cellblock
// binary itself, started again with ChildFlag as its first argument.
// Programs using this package must hand such invocations to ChildMain
// before doing anything else, the way cpud hands -remote invocations
// to its session.
//
// The parent and child share nothing but the child's exit status.
package session
