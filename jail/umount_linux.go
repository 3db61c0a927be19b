// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jail

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/moby/sys/mountinfo"
	"github.com/u-root/cellblock/mount"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

// busyBackoff is how long a busy mount gets to settle before it is
// detached instead.
var busyBackoff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 500 * time.Millisecond
	return b
}

// ErrPathChanged is returned for a mount point whose path no longer
// leads to it because a directory on the way was replaced by a symlink.
var ErrPathChanged = errors.New("mount point path now leads elsewhere")

// ActiveMounts returns the mount points of the current mount
// namespace, in mount table order.
func ActiveMounts(m mount.Mounter) ([]string, error) {
	return mountpoints(m, nil)
}

func mountpoints(m mount.Mounter, f mountinfo.FilterFunc) ([]string, error) {
	infos, err := m.Mounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading mount table: %w", err)
	}
	p := make([]string, 0, len(infos))
	for _, i := range infos {
		p = append(p, i.Mountpoint)
	}
	return p, nil
}

// RecursiveUnmount unmounts prefix and every mount below it.
//
// prefix is matched as it is against the mount table, which holds
// paths with symlinks resolved; prefix itself is never resolved. Mount
// points are taken from a fresh read of the mount table, sorted, and
// unmounted in reverse, so /a/b/c goes before /a/b and /a/b before /a. /ab is not below /a and is left alone. A busy mount is retried
// for a short while and then detached. Every mount point is tried; the
// error, if any, lists all that could not be removed.
func RecursiveUnmount(m mount.Mounter, prefix string) error {
	prefix = filepath.Clean(prefix)
	if prefix == "/" {
		return ErrLiveRoot
	}
	p, err := mountpoints(m, mountinfo.PrefixFilter(prefix))
	if err != nil {
		return err
	}
	slices.Sort(p)

	var errs *multierror.Error
	for i := len(p) - 1; i >= 0; i-- {
		if err := unmount(m, p[i]); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func unmount(m mount.Mounter, p string) error {
	// umount2 walks the path. A path that resolves somewhere else is
	// someone else's mount.
	if r, err := filepath.EvalSymlinks(p); err == nil && r != p {
		return fmt.Errorf("unmount %s: %w: %s", p, ErrPathChanged, r)
	}
	err := backoff.Retry(func() error {
		err := m.Unmount(p, unix.UMOUNT_NOFOLLOW)
		if err == nil || errors.Is(err, unix.EBUSY) {
			return err
		}
		return backoff.Permanent(err)
	}, busyBackoff())
	if errors.Is(err, unix.EBUSY) {
		verbose("%s is busy, detaching it", p)
		err = m.Unmount(p, unix.MNT_DETACH|unix.UMOUNT_NOFOLLOW)
	}
	if err != nil {
		return fmt.Errorf("unmount %s: %w", p, err)
	}
	verbose("unmounted %s", p)
	return nil
}
