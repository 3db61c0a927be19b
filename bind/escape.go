// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import "strings"

// These are the octal escapes getmntent(3) understands.
var (
	unescaper = strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	escaper   = strings.NewReplacer(" ", `\040`, "\t", `\011`, "\n", `\012`, `\`, `\134`)
)

// Unescape decodes the \040, \011, \012 and \134 escapes in s.
// Any other backslash is left alone.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Escape is the inverse of Unescape.
func Escape(s string) string {
	return escaper.Replace(s)
}
