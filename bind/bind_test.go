// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   string
		want Directive
	}{
		{name: "noopts", in: "local: /usr/lib mountpoint: /usr/lib", want: Directive{Source: "/usr/lib", Mountpoint: "/usr/lib"}},
		{name: "ro", in: "local: /usr/lib mountpoint: /usr/lib opts: ro", want: Directive{Source: "/usr/lib", Mountpoint: "/usr/lib", Options: []string{"ro"}}},
		{name: "tabs", in: "\tlocal:\t/bin   mountpoint: /bin\topts: ro,nosuid,noexec  ", want: Directive{Source: "/bin", Mountpoint: "/bin", Options: []string{"ro", "nosuid", "noexec"}}},
		{name: "glued", in: "local:/etc mountpoint:/etc opts:default,exec", want: Directive{Source: "/etc", Mountpoint: "/etc", Options: []string{"default", "exec"}}},
		{name: "space", in: `local: /home/a\040b mountpoint: /x\011y`, want: Directive{Source: "/home/a b", Mountpoint: "/x\ty"}},
		{name: "backslash", in: `local: /a\134040 mountpoint: /b`, want: Directive{Source: `/a\040`, Mountpoint: "/b"}},
		{name: "otherbackslash", in: `local: /a\b mountpoint: /b`, want: Directive{Source: `/a\b`, Mountpoint: "/b"}},
		{name: "unknownopt", in: "local: /a mountpoint: /b opts: bogus", want: Directive{Source: "/a", Mountpoint: "/b", Options: []string{"bogus"}}},
	} {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("%s:Parse(%q): %v != nil", tt.name, tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s:Parse(%q): %#v != %#v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, tt := range []struct {
		name  string
		in    string
		field string
	}{
		{name: "empty", in: "", field: "local:"},
		{name: "nolocal", in: "mountpoint: /b", field: "local:"},
		{name: "nomountpoint", in: "local: /a", field: "mountpoint:"},
		{name: "novalue", in: "local: mountpoint: /b", field: "local:"},
		{name: "trailingopts", in: "local: /a mountpoint: /b opts:", field: "opts:"},
		{name: "emptyopt", in: "local: /a mountpoint: /b opts: ro,,nosuid", field: "opts:"},
		{name: "relative", in: "local: usr mountpoint: /b", field: "local:"},
		{name: "relativemp", in: "local: /a mountpoint: b", field: "mountpoint:"},
		{name: "order", in: "mountpoint: /b local: /a", field: "local:"},
		{name: "twice", in: "local: /a local: /b mountpoint: /b", field: "local:"},
		{name: "stray", in: "local: /a b mountpoint: /b", field: ""},
		{name: "unescapedspace", in: "local: /a b mountpoint: /c d", field: ""},
		{name: "escapedempty", in: `local: \040 mountpoint: /b`, field: "local:"},
	} {
		_, err := Parse(tt.in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s:Parse(%q): %v is not a *ParseError", tt.name, tt.in, err)
			continue
		}
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("%s:Parse(%q): %v is not ErrSyntax", tt.name, tt.in, err)
		}
		if pe.Field != tt.field {
			t.Errorf("%s:Parse(%q): field %q != %q (%v)", tt.name, tt.in, pe.Field, tt.field, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, d := range []Directive{
		{Source: "/usr/lib", Mountpoint: "/usr/lib"},
		{Source: "/usr/lib", Mountpoint: "/usr/lib", Options: []string{"ro"}},
		{Source: "/home/my files", Mountpoint: "/data/my\tfiles", Options: []string{"default", "exec"}},
		{Source: `/odd\040name`, Mountpoint: "/new\nline", Options: []string{"nodev", "nosuid", "rw"}},
		{Source: `/trailing\`, Mountpoint: "/ x "},
	} {
		s := d.String()
		got, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(%q): %v != nil", s, err)
			continue
		}
		if !reflect.DeepEqual(got, d) {
			t.Errorf("Parse(%q): %#v != %#v", s, got, d)
		}
	}
}

func TestParseAll(t *testing.T) {
	ds, err := ParseAll([]string{
		"# system libraries",
		"local: /usr/lib mountpoint: /usr/lib opts: ro",
		"",
		"local: /etc/ssl mountpoint: /etc/ssl opts: default",
	})
	if err != nil {
		t.Fatalf("ParseAll: %v != nil", err)
	}
	if len(ds) != 2 || ds[0].Source != "/usr/lib" || ds[1].Source != "/etc/ssl" {
		t.Fatalf("ParseAll: got %v, want /usr/lib and /etc/ssl", ds)
	}

	if _, err := ParseAll([]string{"local: /a mountpoint: /b", "local: /a"}); !errors.Is(err, ErrSyntax) {
		t.Fatalf("ParseAll with a bad line: %v is not ErrSyntax", err)
	}
}

func TestEscape(t *testing.T) {
	for _, tt := range []struct {
		in, out string
	}{
		{in: "a b", out: `a\040b`},
		{in: "a\tb", out: `a\011b`},
		{in: `a\b`, out: `a\134b`},
		{in: "/plain", out: "/plain"},
	} {
		if got := Escape(tt.in); got != tt.out {
			t.Errorf("Escape(%q): %q != %q", tt.in, got, tt.out)
		}
		if got := Unescape(tt.out); got != tt.in {
			t.Errorf("Unescape(%q): %q != %q", tt.out, got, tt.in)
		}
	}
}
