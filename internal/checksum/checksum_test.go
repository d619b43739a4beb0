package checksum

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

const (
	helloSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	helloMD5    = "5eb63bbbe01eeed093cb22bb8f5acdc3"
)

func TestVerifier_DigestIndependentOfChunkBoundaries(t *testing.T) {
	payload := []byte(strings.Repeat("abcdefgh", 4096))

	whole := New(SHA256)
	_, err := whole.Write(payload)
	require.NoError(t, err)

	byteAtATime := New(SHA256)
	for i := range payload {
		_, err := byteAtATime.Write(payload[i : i+1])
		require.NoError(t, err)
	}

	oddChunks := New(SHA256)
	for off := 0; off < len(payload); off += 777 {
		end := off + 777
		if end > len(payload) {
			end = len(payload)
		}
		_, err := oddChunks.Write(payload[off:end])
		require.NoError(t, err)
	}

	assert.Equal(t, whole.SumHex(), byteAtATime.SumHex())
	assert.Equal(t, whole.SumHex(), oddChunks.SumHex())
}

func TestVerifier_MatchPasses(t *testing.T) {
	v, err := NewExpected("sha256", helloSHA256)
	require.NoError(t, err)

	v.Write([]byte("hello world"))

	assert.NoError(t, v.Verify())
	assert.Equal(t, helloSHA256, v.SumHex())
}

func TestVerifier_MismatchCarriesBothDigests(t *testing.T) {
	v, err := NewExpected("sha256", helloSHA256)
	require.NoError(t, err)

	v.Write([]byte("goodbye world"))

	err = v.Verify()
	require.Error(t, err)
	assert.Equal(t, errs.KindChecksumMismatch, errs.KindOf(err))
	assert.Contains(t, err.Error(), helloSHA256)
	assert.Contains(t, err.Error(), v.SumHex())
}

func TestVerifier_NoExpectedDigestAlwaysPasses(t *testing.T) {
	v := New(MD5)
	v.Write([]byte("hello world"))

	assert.NoError(t, v.Verify())
	assert.Equal(t, helloMD5, v.SumHex())
}

func TestInfer(t *testing.T) {
	tests := []struct {
		length int
		want   Algorithm
	}{
		{32, MD5},
		{40, SHA1},
		{56, SHA224},
		{64, SHA256},
		{96, SHA384},
		{128, SHA512},
	}

	for _, tt := range tests {
		got, err := Infer(strings.Repeat("a", tt.length))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Infer("abc")
	assert.Error(t, err)
}

func TestNewExpected_InfersAlgorithmFromLength(t *testing.T) {
	v, err := NewExpected("", helloMD5)
	require.NoError(t, err)
	assert.Equal(t, MD5, v.Algorithm())
}

func TestNewExpected_Invalid(t *testing.T) {
	_, err := NewExpected("sha256", "not-hex")
	assert.Error(t, err)

	_, err = NewExpected("crc32", helloSHA256)
	assert.Error(t, err)

	_, err = NewExpected("sha256", helloMD5)
	assert.Error(t, err, "digest length must match the named algorithm")
}
