package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func writeTarGz(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0o644,
			Size:     int64(len(e.body)),
			Typeflag: tar.TypeReg,
		}
		if e.typeflag != 0 {
			hdr.Typeflag = e.typeflag
			hdr.Size = 0
			hdr.Linkname = e.linkname
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
}

func TestExtract_TarGz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bundle.tar.gz")
	writeTarGz(t, src, []tarEntry{
		{name: "top.txt", body: "hello"},
		{name: "nested/inner.txt", body: "world!"},
	})

	dest := filepath.Join(dir, "out")
	res, err := Extract(src, "bundle.tar.gz", FormatTarGz, dest)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"top.txt", filepath.Join("nested", "inner.txt")}, res.Paths)
	assert.Equal(t, int64(len("hello")+len("world!")), res.Bytes)

	got, err := os.ReadFile(filepath.Join(dest, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "nested", "inner.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world!", string(got))
}

func TestExtract_PathTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, src, []tarEntry{
		{name: "../escaped.txt", body: "gotcha"},
	})

	dest := filepath.Join(dir, "sandbox")
	_, err := Extract(src, "evil.tar.gz", FormatTarGz, dest)
	require.Error(t, err)
	assert.Equal(t, errs.KindUnsafeArchiveEntry, errs.KindOf(err))

	_, statErr := os.Stat(filepath.Join(dir, "escaped.txt"))
	assert.True(t, os.IsNotExist(statErr), "entry must not materialize outside the destination")
}

func TestExtract_SymlinkEscapeRejected(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "link.tar.gz")
	writeTarGz(t, src, []tarEntry{
		{name: "passwd", typeflag: tar.TypeSymlink, linkname: "../../etc/passwd"},
	})

	dest := filepath.Join(dir, "sandbox")
	_, err := Extract(src, "link.tar.gz", FormatTarGz, dest)
	require.Error(t, err)
	assert.Equal(t, errs.KindUnsafeArchiveEntry, errs.KindOf(err))
}

func TestExtract_Zip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bundle.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("a.txt")
	require.NoError(t, err)
	w.Write([]byte("alpha"))
	w, err = zw.Create("sub/b.txt")
	require.NoError(t, err)
	w.Write([]byte("beta"))
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	dest := filepath.Join(dir, "out")
	res, err := Extract(src, "bundle.zip", FormatZip, dest)
	require.NoError(t, err)
	assert.Len(t, res.Paths, 2)

	got, err := os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "beta", string(got))
}

func TestExtract_ZipTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../../etc/passwd")
	require.NoError(t, err)
	w.Write([]byte("root"))
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	_, err = Extract(src, "evil.zip", FormatZip, filepath.Join(dir, "sandbox"))
	require.Error(t, err)
	assert.Equal(t, errs.KindUnsafeArchiveEntry, errs.KindOf(err))
}

func TestExtract_SingleGzStripsSuffix(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob")

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("uncompressed content"))
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	dest := filepath.Join(dir, "out")
	res, err := Extract(src, "notes.txt.gz", FormatGz, dest)
	require.NoError(t, err)
	require.Equal(t, []string{"notes.txt"}, res.Paths)

	got, err := os.ReadFile(filepath.Join(dest, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "uncompressed content", string(got))
}

func TestDetect_LongestSuffixWins(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"pkg.tar.gz", FormatTarGz},
		{"pkg.tgz", FormatTarGz},
		{"pkg.tar.bz2", FormatTarBz2},
		{"pkg.tar.xz", FormatTarXz},
		{"pkg.tar.zst", FormatTarZst},
		{"pkg.tar", FormatTar},
		{"pkg.zip", FormatZip},
		{"data.gz", FormatGz},
		{"data.bz2", FormatBz2},
		{"data.xz", FormatXz},
		{"data.zst", FormatZst},
		{"KERNEL.TAR.GZ", FormatTarGz},
	}

	for _, tt := range tests {
		got, err := Detect(tt.filename)
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}

	_, err := Detect("plain.txt")
	require.Error(t, err)
	assert.Equal(t, errs.KindUnsupportedFormat, errs.KindOf(err))
}

func TestParseFormat_Unknown(t *testing.T) {
	_, err := ParseFormat("rar")
	require.Error(t, err)
	assert.Equal(t, errs.KindUnsupportedFormat, errs.KindOf(err))
}
