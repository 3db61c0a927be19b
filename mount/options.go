// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mount

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedOption is wrapped by every UnsupportedOptionError.
var ErrUnsupportedOption = errors.New("unsupported mount option")

// UnsupportedOptionError names a token Resolve does not know.
// Unknown tokens are never ignored.
type UnsupportedOptionError struct {
	Option string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("mount: unsupported option %q", e.Option)
}

func (e *UnsupportedOptionError) Unwrap() error {
	return ErrUnsupportedOption
}

// Options are the per-mount flags a bind mount can be remounted with.
// The zero value is what a plain bind mount gets.
type Options struct {
	NoDiratime  bool
	NoDev       bool
	DirSync     bool
	NoExec      bool
	Mandlock    bool
	Relatime    bool
	StrictAtime bool
	NoSuid      bool
	Synchronous bool
	ReadOnly    bool
}

// convert maps each token to the flag it sets and the value it sets it to.
var convert = map[string]struct {
	flag func(*Options) *bool
	set  bool
}{
	"diratime":      {flag: func(o *Options) *bool { return &o.NoDiratime }, set: false},
	"nodiratime":    {flag: func(o *Options) *bool { return &o.NoDiratime }, set: true},
	"dev":           {flag: func(o *Options) *bool { return &o.NoDev }, set: false},
	"nodev":         {flag: func(o *Options) *bool { return &o.NoDev }, set: true},
	"dirsync":       {flag: func(o *Options) *bool { return &o.DirSync }, set: true},
	"nodirsync":     {flag: func(o *Options) *bool { return &o.DirSync }, set: false},
	"exec":          {flag: func(o *Options) *bool { return &o.NoExec }, set: false},
	"noexec":        {flag: func(o *Options) *bool { return &o.NoExec }, set: true},
	"mand":          {flag: func(o *Options) *bool { return &o.Mandlock }, set: true},
	"nomand":        {flag: func(o *Options) *bool { return &o.Mandlock }, set: false},
	"relatime":      {flag: func(o *Options) *bool { return &o.Relatime }, set: true},
	"norelatime":    {flag: func(o *Options) *bool { return &o.Relatime }, set: false},
	"strictatime":   {flag: func(o *Options) *bool { return &o.StrictAtime }, set: true},
	"nostrictatime": {flag: func(o *Options) *bool { return &o.StrictAtime }, set: false},
	"suid":          {flag: func(o *Options) *bool { return &o.NoSuid }, set: false},
	"nosuid":        {flag: func(o *Options) *bool { return &o.NoSuid }, set: true},
	"sync":          {flag: func(o *Options) *bool { return &o.Synchronous }, set: true},
	"nosync":        {flag: func(o *Options) *bool { return &o.Synchronous }, set: false},
	"ro":            {flag: func(o *Options) *bool { return &o.ReadOnly }, set: true},
	"rw":            {flag: func(o *Options) *bool { return &o.ReadOnly }, set: false},
}

// Resolve applies tokens, left to right, to a zero Options.
// The last token to touch a flag wins. "default" sets ReadOnly,
// NoSuid, NoExec and Synchronous and leaves the rest alone, so
// "default,exec" is read-only, nosuid, synchronous, and executable.
func Resolve(tokens []string) (Options, error) {
	var o Options
	for _, t := range tokens {
		if t == "default" {
			o.ReadOnly, o.NoSuid, o.NoExec, o.Synchronous = true, true, true, true
			continue
		}
		c, ok := convert[t]
		if !ok {
			return Options{}, &UnsupportedOptionError{Option: t}
		}
		*c.flag(&o) = c.set
	}
	return o, nil
}

// String returns the set flags in mount(8) spelling, e.g. "ro,nosuid".
// The zero Options is "rw".
func (o Options) String() string {
	var s []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{o.ReadOnly, "ro"},
		{o.NoSuid, "nosuid"},
		{o.NoDev, "nodev"},
		{o.NoExec, "noexec"},
		{o.Synchronous, "sync"},
		{o.DirSync, "dirsync"},
		{o.Mandlock, "mand"},
		{o.NoDiratime, "nodiratime"},
		{o.Relatime, "relatime"},
		{o.StrictAtime, "strictatime"},
	} {
		if f.set {
			s = append(s, f.name)
		}
	}
	if len(s) == 0 {
		return "rw"
	}
	return strings.Join(s, ",")
}
