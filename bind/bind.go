// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = errors.New("malformed bind directive")

// Directive is one parsed bind mount rule. Source and Mountpoint
// are already unescaped.
type Directive struct {
	// Source is the host path, outside the jail.
	Source string
	// Mountpoint is an absolute path, interpreted relative to the jail root.
	Mountpoint string
	// Options are mount option tokens in the order they were written.
	Options []string
}

// ParseError describes a directive that could not be parsed.
type ParseError struct {
	Line   string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("bind: %s in %q", e.Reason, e.Line)
	}
	return fmt.Sprintf("bind: %s %s in %q", e.Field, e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

type field int

const (
	none field = iota
	local
	mountpoint
	opts
)

var keywords = []struct {
	name string
	f    field
}{
	{"local:", local},
	{"mountpoint:", mountpoint},
	{"opts:", opts},
}

func (f field) String() string {
	if f == none {
		return ""
	}
	return keywords[f-1].name
}

// keyword returns the field introduced by tok, if any.
// The keyword may have its value glued to it, e.g. local:/usr.
func keyword(tok string) (field, string, bool) {
	for _, k := range keywords {
		if strings.HasPrefix(tok, k.name) {
			return k.f, tok[len(k.name):], true
		}
	}
	return none, "", false
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// Parse parses one directive line.
//
// The fields must appear in the order local:, mountpoint:, opts:.
// A missing opts: field yields no options. Both paths must be
// absolute once unescaped.
func Parse(line string) (Directive, error) {
	var (
		d    Directive
		vals [opts + 1]string
		seen [opts + 1]bool
		last = none
	)
	bad := func(f field, format string, a ...interface{}) (Directive, error) {
		return Directive{}, &ParseError{Line: line, Field: f.String(), Reason: fmt.Sprintf(format, a...)}
	}

	toks := strings.FieldsFunc(line, isBlank)
	for i := 0; i < len(toks); i++ {
		f, val, ok := keyword(toks[i])
		if !ok {
			return bad(none, "unexpected %q", toks[i])
		}
		switch {
		case seen[f]:
			return bad(f, "appears more than once")
		case f < last:
			return bad(f, "must come before %s", last)
		}
		seen[f], last = true, f
		if val == "" && i+1 < len(toks) {
			if _, _, kw := keyword(toks[i+1]); !kw {
				i++
				val = toks[i]
			}
		}
		if val == "" {
			return bad(f, "has no value")
		}
		vals[f] = val
	}

	for _, f := range []field{local, mountpoint} {
		if !seen[f] {
			return bad(f, "is missing")
		}
		p := Unescape(vals[f])
		if !filepath.IsAbs(p) {
			return bad(f, "%q is not an absolute path", p)
		}
		vals[f] = p
	}
	d.Source, d.Mountpoint = vals[local], vals[mountpoint]

	if seen[opts] {
		for _, o := range strings.Split(vals[opts], ",") {
			if o == "" {
				return bad(opts, "has an empty option in %q", vals[opts])
			}
			d.Options = append(d.Options, o)
		}
	}
	return d, nil
}

// ParseAll parses a list of directives. Empty lines and lines
// starting with # are skipped. The first bad line stops the parse.
func ParseAll(lines []string) ([]Directive, error) {
	var ds []Directive
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if len(l) == 0 || strings.HasPrefix(l, "#") {
			continue
		}
		d, err := Parse(l)
		if err != nil {
			return nil, fmt.Errorf("bind directive %d: %w", i, err)
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// String formats d as a directive line that Parse accepts.
func (d Directive) String() string {
	s := fmt.Sprintf("local: %s mountpoint: %s", Escape(d.Source), Escape(d.Mountpoint))
	if len(d.Options) > 0 {
		s += " opts: " + strings.Join(d.Options, ",")
	}
	return s
}
