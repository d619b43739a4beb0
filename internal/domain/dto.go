package domain

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ChecksumSpecRequest carries an expected digest in a run request.
type ChecksumSpecRequest struct {
	Algorithm string `json:"algorithm" validate:"omitempty,oneof=md5 sha1 sha224 sha256 sha384 sha512"`
	Digest    string `json:"digest" validate:"required,hexadecimal"`
}

// ExtractSpecRequest asks for extraction in a run request.
type ExtractSpecRequest struct {
	Format    string `json:"format" validate:"omitempty,oneof=tar tar.gz tar.bz2 tar.xz tar.zst zip gz bz2 xz zst"`
	TargetDir string `json:"target_dir" validate:"required"`
}

// DescriptorRequest is one resource in a run request.
type DescriptorRequest struct {
	URL         string               `json:"url" validate:"required,url"`
	Destination string               `json:"destination"`
	Checksum    *ChecksumSpecRequest `json:"checksum" validate:"omitempty"`
	Extract     *ExtractSpecRequest  `json:"extract" validate:"omitempty"`
	Label       string               `json:"label"`
	Header      map[string]string    `json:"header,omitempty"`
}

// CreateRunRequest represents the request body for submitting a new run.
// The item count ceiling is enforced by the service against
// Config.MaxRunItems, not here.
type CreateRunRequest struct {
	Items          []DescriptorRequest `json:"items" validate:"required,min=1,dive"`
	MaxConcurrency int                 `json:"max_concurrency" validate:"omitempty,min=1"`
	FailFast       bool                `json:"fail_fast"`
}

// ToDescriptors converts the request items into engine descriptors.
// Relative or missing destinations are resolved under downloadDir, with
// the filename derived from the URL when absent.
func (r *CreateRunRequest) ToDescriptors(downloadDir string) []ResourceDescriptor {
	descs := make([]ResourceDescriptor, len(r.Items))
	for i, item := range r.Items {
		dest := item.Destination
		if dest == "" {
			dest = FilenameFromURL(item.URL)
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(downloadDir, dest)
		}

		d := ResourceDescriptor{
			URL:         item.URL,
			Destination: dest,
			Label:       item.Label,
		}
		if len(item.Header) > 0 {
			d.Header = make(http.Header, len(item.Header))
			for k, v := range item.Header {
				d.Header.Set(k, v)
			}
		}
		if item.Checksum != nil {
			d.Checksum = &ChecksumSpec{
				Algorithm: item.Checksum.Algorithm,
				Digest:    item.Checksum.Digest,
			}
		}
		if item.Extract != nil {
			target := item.Extract.TargetDir
			if !filepath.IsAbs(target) {
				target = filepath.Join(downloadDir, target)
			}
			d.Extract = &ExtractSpec{
				Format:    item.Extract.Format,
				TargetDir: target,
			}
		}
		descs[i] = d
	}
	return descs
}

// RunResponse represents the response returned for a run, including its
// status and the ordered outcome collection.
type RunResponse struct {
	ID        uuid.UUID     `json:"run_id"`
	Status    RunStatus     `json:"status"`
	Outcomes  []TaskOutcome `json:"outcomes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
