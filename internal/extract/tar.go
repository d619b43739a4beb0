package extract

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

// decodeTar returns a decoder for a tarball, optionally compressed with
// the given format.
func decodeTar(compression Format) decoderFunc {
	return func(src, name, destDir string) (*Result, error) {
		f, err := os.Open(src)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}
		defer f.Close()

		r, closeReader, err := wrapCompression(f, compression)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}
		defer closeReader()

		return untar(r, destDir)
	}
}

func untar(r io.Reader, destDir string) (*Result, error) {
	res := &Result{}
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}

		rel, err := safeRelPath(hdr.Name)
		if err != nil {
			return nil, err
		}
		target := filepath.Join(destDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, errs.Wrap(errs.KindIO, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, errs.Wrap(errs.KindIO, err)
			}
			n, err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return nil, err
			}
			res.Paths = append(res.Paths, rel)
			res.Bytes += n

		case tar.TypeSymlink:
			if err := checkLinkTarget(rel, hdr.Linkname); err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, errs.Wrap(errs.KindIO, err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return nil, errs.Wrap(errs.KindIO, err)
			}
			res.Paths = append(res.Paths, rel)
		}
	}
}

func writeEntry(target string, r io.Reader, mode os.FileMode) (int64, error) {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return 0, errs.Wrap(errs.KindIO, err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, errs.Wrap(errs.KindIO, err)
	}
	return n, nil
}

// checkLinkTarget rejects symlinks whose target resolves outside the
// destination directory.
func checkLinkTarget(rel, linkname string) error {
	if filepath.IsAbs(linkname) {
		return errs.Errorf(errs.KindUnsafeArchiveEntry, "symlink %q points to absolute path %q", rel, linkname)
	}
	resolved := filepath.Clean(filepath.Join(filepath.Dir(rel), linkname))
	if resolved == ".." || strings.HasPrefix(resolved, ".."+string(filepath.Separator)) {
		return errs.Errorf(errs.KindUnsafeArchiveEntry, "symlink %q escapes the destination directory via %q", rel, linkname)
	}
	return nil
}
