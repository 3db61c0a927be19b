// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// cellblock runs a command in a jail built from bind mounts.
//
// Synopsis:
//
//	cellblock [OPTIONS] [--] [COMMAND [ARGS...]]
//
// Description:
//
//	cellblock binds the host /proc, /dev and /sys, and the directories
//	named by -b, into the root given by -r, runs the command chrooted
//	there as the user given by -u, and unmounts everything once the
//	command exits. It exits with the command's status, or 125 if the
//	command could not be started.
//
//	Options are also read, in this order, from /etc/cellblock/config.json,
//	$HOME/.cellblock/config.json, ./.cellblock/config.json and the file
//	given by -c. The command line comes last.
//
// Options:
//
//	-e, --exe:      command to run; the first argument if not set
//	-r, --root-dir: jail root (default /, no jail)
//	-u, --user:     user to run as inside the jail
//	-k, --keep-env: environment variables to keep
//	-b, --bind:     bind directive, 'local: <dir> mountpoint: <dir> [opts: <opts>]'
//	-c, --config:   extra config file
//	-d, --debug:    enable debug prints
//	    --klog:     log debug prints to the kernel log
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"github.com/u-root/cellblock/bind"
	"github.com/u-root/cellblock/config"
	"github.com/u-root/cellblock/env"
	"github.com/u-root/cellblock/jail"
	"github.com/u-root/cellblock/mount"
	"github.com/u-root/cellblock/session"
	"github.com/u-root/u-root/pkg/ulog"
)

// v allows debug printing.
// Do not call it directly, call verbose instead.
var v = func(string, ...interface{}) {}

func verbose(f string, a ...interface{}) {
	v("CELLBLOCK:"+f, a...)
}

func setup(f *config.Flags) {
	if !f.Debug {
		return
	}
	v = ulog.Log.Printf
	if f.KernelLog {
		ulog.KernelLog.Reinit()
		v = ulog.KernelLog.Printf
	}
	config.SetVerbose(v)
	mount.SetVerbose(v)
	jail.SetVerbose(v)
	session.SetVerbose(v)
}

// directives parses bind directive lines and resolves their options,
// so that a bad one is found before anything is mounted.
func directives(lines []string) ([]bind.Directive, error) {
	ds, err := bind.ParseAll(lines)
	if err != nil {
		return nil, err
	}
	for i, d := range ds {
		if _, err := mount.Resolve(d.Options); err != nil {
			return nil, fmt.Errorf("bind directive %d: %v: %w", i+1, d, err)
		}
	}
	return ds, nil
}

func run(args []string) int {
	cli, f, err := config.FromArgs(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Print(err)
		return session.ExitFailure
	}
	setup(f)

	c, err := config.Load(cli, f)
	if err != nil {
		log.Print(err)
		return session.ExitFailure
	}
	exe, args, err := c.Command()
	if err != nil {
		log.Print(err)
		return session.ExitFailure
	}
	binds, err := directives(c.BindMounts)
	if err != nil {
		log.Print(err)
		return session.ExitFailure
	}
	if err := env.Clear(c.KeepEnv); err != nil {
		log.Print(err)
		return session.ExitFailure
	}

	verbose("root %q user %q command %q %q binds %q", c.RootDir, c.User, exe, args, binds)
	s := session.New(c.RootDir, c.User, exe, args...)
	s.Binds = binds
	status, warning, err := s.Run()
	if warning != nil {
		log.Printf("warning: %v", warning)
	}
	if err != nil {
		log.Print(err)
	}
	verbose("exit status %d", status)
	return status
}

func main() {
	// The jailed side of a session; this never returns.
	if len(os.Args) > 1 && os.Args[1] == session.ChildFlag {
		session.ChildMain(os.Args[2:])
	}
	log.SetPrefix("cellblock: ")
	os.Exit(run(os.Args[1:]))
}
