package engine

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

// promote moves src to dest, preferring a plain rename. When src and dest
// sit on different filesystems the rename fails with EXDEV; the fallback
// copies into a hidden sibling of dest on the destination filesystem and
// renames that, so the caller-visible path still appears in one step.
func promote(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	var lerr *os.LinkError
	if !errors.As(err, &lerr) || !errors.Is(lerr.Err, syscall.EXDEV) {
		return errs.Wrap(errs.KindIO, err)
	}
	return copyAndSwap(src, dest)
}

// copyAndSwap carries src across a filesystem boundary. The copy lands in
// a dot-prefixed sibling of dest so a crash never leaves a partial file or
// tree at the final path.
func copyAndSwap(src, dest string) error {
	stage := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".partial")
	if err := copyPath(src, stage); err != nil {
		os.RemoveAll(stage)
		return errs.Wrap(errs.KindIO, err)
	}
	if err := os.Rename(stage, dest); err != nil {
		os.RemoveAll(stage)
		return errs.Wrap(errs.KindIO, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return errs.Wrap(errs.KindIO, err)
	}
	return nil
}

// copyPath copies a file, directory tree, or symlink. dest must not
// exist.
func copyPath(src, dest string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dest)

	case info.IsDir():
		if err := os.Mkdir(dest, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := copyPath(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
				return err
			}
		}
		return nil

	default:
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	}
}
