// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package env trims the process environment down to an allow-list.
package env

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/slices"
)

// Filter returns the entries of environ, in "key=value" form, whose
// key is in keep. Order is kept.
func Filter(environ, keep []string) []string {
	var e []string
	for _, kv := range environ {
		k, _, _ := strings.Cut(kv, "=")
		if slices.Contains(keep, k) {
			e = append(e, kv)
		}
	}
	return e
}

// Clear unsets every environment variable whose name is not in keep.
func Clear(keep []string) error {
	e := Filter(os.Environ(), keep)
	os.Clearenv()
	for _, kv := range e {
		k, val, _ := strings.Cut(kv, "=")
		if err := os.Setenv(k, val); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}
