package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

func decodeZip(src, name, destDir string) (*Result, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		if errors.Is(err, zip.ErrInsecurePath) {
			if zr != nil {
				zr.Close()
			}
			return nil, errs.Wrap(errs.KindUnsafeArchiveEntry, err)
		}
		return nil, errs.Wrap(errs.KindIO, err)
	}
	defer zr.Close()

	res := &Result{}
	for _, zf := range zr.File {
		rel, err := safeRelPath(zf.Name)
		if err != nil {
			return nil, err
		}
		target := filepath.Join(destDir, rel)

		if zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, errs.Wrap(errs.KindIO, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}

		in, err := zf.Open()
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}
		n, err := writeEntry(target, in, zf.Mode().Perm())
		in.Close()
		if err != nil {
			return nil, err
		}
		res.Paths = append(res.Paths, rel)
		res.Bytes += n
	}

	return res, nil
}

// decodeSingle returns a decoder that decompresses a plain (non-tar)
// compressed file into the destination directory, stripping the
// compression suffix from the logical filename.
func decodeSingle(format Format) decoderFunc {
	return func(src, name, destDir string) (*Result, error) {
		f, err := os.Open(src)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}
		defer f.Close()

		r, closeReader, err := wrapCompression(f, format)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}
		defer closeReader()

		rel := stripSuffix(name, format)
		n, err := writeEntry(filepath.Join(destDir, rel), r, 0o644)
		if err != nil {
			return nil, err
		}
		return &Result{Paths: []string{rel}, Bytes: n}, nil
	}
}
