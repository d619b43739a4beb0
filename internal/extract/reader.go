package extract

import (
	"compress/bzip2"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// wrapCompression layers a decompressor over r. The returned close
// function releases decoder resources and must always be called; it does
// not close r itself.
func wrapCompression(r io.Reader, format Format) (io.Reader, func(), error) {
	switch format {
	case "":
		return r, func() {}, nil
	case FormatGz:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case FormatBz2:
		return bzip2.NewReader(r), func() {}, nil
	case FormatXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() {}, nil
	case FormatZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}
