// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bind parses bind mount directives.
//
// A directive is one line of the form
//
//	local: /usr/lib mountpoint: /usr/lib opts: ro,nosuid
//
// local names the host directory (or file), mountpoint names where it
// appears inside the jail, and the optional opts field is a comma
// separated list of mount option tokens, see mount.Resolve.
//
// Fields are separated by runs of spaces and tabs, so a value that
// contains blanks must escape them the way fstab(5) does: \040 for a
// space and \011 for a tab. \012 (newline) and \134 (backslash) are
// also understood.
package bind
