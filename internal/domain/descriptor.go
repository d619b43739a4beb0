package domain

import (
	"net/http"
	"net/url"
	"strings"
)

// ChecksumSpec names the expected digest of a resource. Algorithm may be
// empty, in which case it is inferred from the digest length.
type ChecksumSpec struct {
	Algorithm string `json:"algorithm,omitempty"`
	Digest    string `json:"digest"`
}

// ExtractSpec asks for the downloaded file to be unpacked after
// verification. Format may be empty, in which case it is inferred from
// the source filename.
type ExtractSpec struct {
	Format    string `json:"format,omitempty"`
	TargetDir string `json:"target_dir"`
}

// ResourceDescriptor specifies one file to fetch, verify, and optionally
// extract. Immutable once submitted to the engine.
type ResourceDescriptor struct {
	URL         string        `json:"url"`
	Destination string        `json:"destination"`
	Checksum    *ChecksumSpec `json:"checksum,omitempty"`
	Extract     *ExtractSpec  `json:"extract,omitempty"`
	Label       string        `json:"label,omitempty"`
	Header      http.Header   `json:"header,omitempty"`
}

// DisplayName returns the label if set, otherwise the filename implied by
// the URL.
func (d ResourceDescriptor) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return FilenameFromURL(d.URL)
}

// FilenameFromURL derives a filename from the last path segment of raw,
// falling back to "download" when the path carries none.
func FilenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "download"
	}
	segments := strings.Split(strings.TrimSuffix(u.Path, "/"), "/")
	name := segments[len(segments)-1]
	if name == "" {
		return "download"
	}
	return name
}
