// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads cellblock configuration. A configuration is
// layered: built in defaults, then JSON files from the system, the
// user's home and the working directory, then the command line.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"golang.org/x/exp/slices"
)

// ErrNoCommand is returned when nothing says what to run.
var ErrNoCommand = errors.New("no command to run")

// Config is what to run, where, and as whom.
type Config struct {
	// Exe is the command. If it is empty, ExeArgs[0] is.
	Exe     string   `json:"exe,omitempty"`
	ExeArgs []string `json:"exe_args,omitempty"`
	// RootDir is the jail root. / means no jail.
	RootDir string `json:"root_dir,omitempty"`
	// User is who the command runs as inside the jail.
	User string `json:"user,omitempty"`
	// KeepEnv names the environment variables the command keeps.
	KeepEnv []string `json:"keep_env,omitempty"`
	// BindMounts are bind directive lines, in the order they apply.
	BindMounts []string `json:"bind_mounts,omitempty"`
}

// Error is a configuration that can not be used.
type Error struct {
	// File is empty for errors from the command line or the
	// combined configuration.
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.File, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the configuration all others are layered on.
func Default() *Config {
	return &Config{RootDir: "/"}
}

// Parse parses a JSON configuration. Comments and trailing commas are
// allowed; unknown keys are not.
func Parse(data []byte) (*Config, error) {
	d := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	d.DisallowUnknownFields()
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromFile reads the configuration in name. A file that does not
// exist is not an error: FromFile returns nil, nil.
func FromFile(name string) (*Config, error) {
	b, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		v("config: %s: not there", name)
		return nil, nil
	}
	if err != nil {
		return nil, &Error{File: name, Err: err}
	}
	c, err := Parse(b)
	if err != nil {
		return nil, &Error{File: name, Err: err}
	}
	v("config: %s: %+v", name, c)
	return c, nil
}

// Overlay returns c with o layered on top. Exe, RootDir and User come
// from o if o sets them. KeepEnv is the union of both, sorted. ExeArgs
// and BindMounts are o's appended to c's. A nil o changes nothing.
func (c *Config) Overlay(o *Config) *Config {
	n := *c
	n.KeepEnv = append([]string(nil), c.KeepEnv...)
	n.ExeArgs = append([]string(nil), c.ExeArgs...)
	n.BindMounts = append([]string(nil), c.BindMounts...)
	if o == nil {
		return &n
	}
	if o.Exe != "" {
		n.Exe = o.Exe
	}
	if o.RootDir != "" {
		n.RootDir = o.RootDir
	}
	if o.User != "" {
		n.User = o.User
	}
	n.ExeArgs = append(n.ExeArgs, o.ExeArgs...)
	n.BindMounts = append(n.BindMounts, o.BindMounts...)
	n.KeepEnv = union(n.KeepEnv, o.KeepEnv)
	return &n
}

func union(a, b []string) []string {
	var u []string
	for _, s := range append(a, b...) {
		if !slices.Contains(u, s) {
			u = append(u, s)
		}
	}
	slices.Sort(u)
	return u
}

// Command returns the command to run and its arguments.
func (c *Config) Command() (string, []string, error) {
	if c.Exe != "" {
		return c.Exe, c.ExeArgs, nil
	}
	if len(c.ExeArgs) == 0 || c.ExeArgs[0] == "" {
		return "", nil, &Error{Err: ErrNoCommand}
	}
	return c.ExeArgs[0], c.ExeArgs[1:], nil
}

var v = func(string, ...interface{}) {}

// SetVerbose sets the verbose printer.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}
