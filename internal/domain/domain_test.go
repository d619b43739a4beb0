package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/pkg/archive.tar.gz", "archive.tar.gz"},
		{"http://example.com/file.bin?version=2", "file.bin"},
		{"http://example.com/", "download"},
		{"http://example.com", "download"},
		{"http://example.com/dir/", "dir"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FilenameFromURL(tt.url), tt.url)
	}
}

func TestDisplayName(t *testing.T) {
	d := ResourceDescriptor{URL: "http://example.com/asset.zip"}
	assert.Equal(t, "asset.zip", d.DisplayName())

	d.Label = "release bundle"
	assert.Equal(t, "release bundle", d.DisplayName())
}

func TestToDescriptors(t *testing.T) {
	req := CreateRunRequest{
		Items: []DescriptorRequest{
			{URL: "http://example.com/a.bin"},
			{URL: "http://example.com/b.bin", Destination: "sub/b"},
			{URL: "http://example.com/c.bin", Destination: "/abs/c"},
			{
				URL:      "http://example.com/d.tar.gz",
				Checksum: &ChecksumSpecRequest{Algorithm: "sha256", Digest: "ff"},
				Extract:  &ExtractSpecRequest{TargetDir: "unpacked"},
				Header:   map[string]string{"Authorization": "Bearer tok"},
			},
		},
	}

	descs := req.ToDescriptors("/data")
	require.Len(t, descs, 4)

	assert.Equal(t, filepath.Join("/data", "a.bin"), descs[0].Destination)
	assert.Equal(t, filepath.Join("/data", "sub", "b"), descs[1].Destination)
	assert.Equal(t, "/abs/c", descs[2].Destination)

	require.NotNil(t, descs[3].Checksum)
	assert.Equal(t, "sha256", descs[3].Checksum.Algorithm)
	require.NotNil(t, descs[3].Extract)
	assert.Equal(t, filepath.Join("/data", "unpacked"), descs[3].Extract.TargetDir)
	assert.Equal(t, "Bearer tok", descs[3].Header.Get("Authorization"))
}

func TestTaskOutcome_Finalize(t *testing.T) {
	out := TaskOutcome{State: StateFailed, Err: errs.Errorf(errs.KindChecksumMismatch, "digest mismatch")}
	out.Finalize()

	assert.Equal(t, "digest mismatch", out.Error)
	assert.Equal(t, errs.KindChecksumMismatch.String(), out.ErrorKind)

	ok := TaskOutcome{State: StateSucceeded}
	ok.Finalize()
	assert.Empty(t, ok.Error)
	assert.Empty(t, ok.ErrorKind)
}

func TestTaskState_Terminal(t *testing.T) {
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateSkipped.Terminal())
	assert.False(t, StateFetching.Terminal())
	assert.False(t, StateQueued.Terminal())
}
