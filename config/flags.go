// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// Flags are the command line switches that are not configuration.
type Flags struct {
	// ConfigFile is one more file, layered over the others.
	ConfigFile string
	Debug      bool
	KernelLog  bool
}

// NewFlagSet returns the cellblock command line, bound to c and f.
func NewFlagSet(c *Config, f *Flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("cellblock", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.StringVarP(&c.Exe, "exe", "e", "", "command to run; the first argument if not set")
	fs.StringVarP(&c.RootDir, "root-dir", "r", "", "jail root (default /, no jail)")
	fs.StringSliceVarP(&c.KeepEnv, "keep-env", "k", nil, "environment variables to keep")
	fs.StringVarP(&c.User, "user", "u", "", "user to run as inside the jail")
	fs.StringArrayVarP(&c.BindMounts, "bind", "b", nil, "bind directive, 'local: <dir> mountpoint: <dir> [opts: <opts>]'")
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "extra config file")
	fs.BoolVarP(&f.Debug, "debug", "d", false, "enable debug prints")
	fs.BoolVar(&f.KernelLog, "klog", false, "log debug prints to the kernel log, not stdout")
	return fs
}

// FromArgs parses the command line, without the program name. The
// returned Config holds only what the command line set, with the
// arguments after the flags as ExeArgs.
func FromArgs(args []string) (*Config, *Flags, error) {
	var (
		c Config
		f Flags
	)
	fs := NewFlagSet(&c, &f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, &Error{Err: err}
	}
	c.ExeArgs = fs.Args()
	return &c, &f, nil
}

// Files returns the configuration files read by Load, lowest layer
// first.
func Files() []string {
	home := os.Getenv("HOME")
	if home == "" {
		home = "/"
	}
	return []string{
		"/etc/cellblock/config.json",
		filepath.Join(home, ".cellblock", "config.json"),
		filepath.Join(".cellblock", "config.json"),
	}
}

// Load layers Default, Files, the file named in f, if any, and cli,
// which is usually from FromArgs.
func Load(cli *Config, f *Flags) (*Config, error) {
	files := Files()
	if f != nil && f.ConfigFile != "" {
		if _, err := os.Stat(f.ConfigFile); err != nil {
			return nil, &Error{File: f.ConfigFile, Err: err}
		}
		files = append(files, f.ConfigFile)
	}
	return load(files, cli)
}

func load(files []string, cli *Config) (*Config, error) {
	c := Default()
	for _, n := range files {
		l, err := FromFile(n)
		if err != nil {
			return nil, err
		}
		c = c.Overlay(l)
	}
	c = c.Overlay(cli)
	v("config: %+v", c)
	return c, nil
}
