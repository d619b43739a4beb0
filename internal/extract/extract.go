package extract

import (
	"os"
	"path/filepath"
	"strings"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

// Format names an archive or compression format.
type Format string

const (
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarXz  Format = "tar.xz"
	FormatTarZst Format = "tar.zst"
	FormatZip    Format = "zip"
	FormatGz     Format = "gz"
	FormatBz2    Format = "bz2"
	FormatXz     Format = "xz"
	FormatZst    Format = "zst"
)

// Result describes what a decoder materialized. Paths are relative to the
// destination directory.
type Result struct {
	Paths []string
	Bytes int64
}

// decoderFunc unpacks src into destDir. name is the logical filename of
// the downloaded resource; single-file decoders derive their output name
// from it.
type decoderFunc func(src, name, destDir string) (*Result, error)

// decoders is the capability map driving format dispatch. New formats
// register here without touching Extract.
var decoders = map[Format]decoderFunc{
	FormatTar:    decodeTar(""),
	FormatTarGz:  decodeTar(FormatGz),
	FormatTarBz2: decodeTar(FormatBz2),
	FormatTarXz:  decodeTar(FormatXz),
	FormatTarZst: decodeTar(FormatZst),
	FormatZip:    decodeZip,
	FormatGz:     decodeSingle(FormatGz),
	FormatBz2:    decodeSingle(FormatBz2),
	FormatXz:     decodeSingle(FormatXz),
	FormatZst:    decodeSingle(FormatZst),
}

// ParseFormat resolves an explicit format tag.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if _, ok := decoders[f]; !ok {
		return "", errs.Errorf(errs.KindUnsupportedFormat, "unknown archive format %q", s)
	}
	return f, nil
}

// suffixes maps filename endings to formats, longest first so that
// ".tar.gz" wins over ".gz".
var suffixes = []struct {
	ext    string
	format Format
}{
	{".tar.bz2", FormatTarBz2},
	{".tar.zst", FormatTarZst},
	{".tar.gz", FormatTarGz},
	{".tar.xz", FormatTarXz},
	{".tgz", FormatTarGz},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".bz2", FormatBz2},
	{".zst", FormatZst},
	{".gz", FormatGz},
	{".xz", FormatXz},
}

// Detect infers the format from a filename.
func Detect(filename string) (Format, error) {
	lower := strings.ToLower(filename)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.ext) {
			return s.format, nil
		}
	}
	return "", errs.Errorf(errs.KindUnsupportedFormat, "cannot infer archive format of %q", filename)
}

// Extract unpacks src into destDir using the decoder registered for
// format. The destination directory is created as needed; cleanup of src
// is the caller's responsibility.
func Extract(src, name string, format Format, destDir string) (*Result, error) {
	dec, ok := decoders[format]
	if !ok {
		return nil, errs.Errorf(errs.KindUnsupportedFormat, "no decoder registered for format %q", format)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIO, err)
	}
	return dec(src, name, destDir)
}

// safeRelPath normalizes an archive entry name and rejects entries that
// would resolve outside the destination directory.
func safeRelPath(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errs.Errorf(errs.KindUnsafeArchiveEntry, "archive entry %q escapes the destination directory", name)
	}
	return clean, nil
}

// stripSuffix removes one compression suffix from a filename, so that
// "kernel.img.gz" decompresses to "kernel.img". A name without the
// suffix gains ".out" to avoid colliding with the archive itself.
func stripSuffix(name string, format Format) string {
	base := filepath.Base(name)
	ext := "." + string(format)
	if strings.HasSuffix(strings.ToLower(base), ext) {
		return base[:len(base)-len(ext)]
	}
	return base + ".out"
}
