package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA224 Algorithm = "sha224"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// Parse resolves a case-exact algorithm name.
func Parse(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case MD5, SHA1, SHA224, SHA256, SHA384, SHA512:
		return Algorithm(name), nil
	}
	return "", fmt.Errorf("unsupported checksum algorithm %q", name)
}

// Infer guesses the algorithm from the hex digest length.
func Infer(hexDigest string) (Algorithm, error) {
	switch len(hexDigest) {
	case 32:
		return MD5, nil
	case 40:
		return SHA1, nil
	case 56:
		return SHA224, nil
	case 64:
		return SHA256, nil
	case 96:
		return SHA384, nil
	case 128:
		return SHA512, nil
	}
	return "", fmt.Errorf("cannot infer checksum algorithm from digest of length %d", len(hexDigest))
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA224:
		return sha256.New224()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// Verifier accumulates a digest over a byte stream and compares it to an
// optional expected value. It must observe every byte in transfer order;
// feeding happens through the io.Writer interface so it can sit behind an
// io.TeeReader or an explicit copy loop.
type Verifier struct {
	algo     Algorithm
	h        hash.Hash
	expected []byte
}

// New returns a Verifier computing a digest with no expected value to
// compare against. Verify always passes.
func New(algo Algorithm) *Verifier {
	return &Verifier{algo: algo, h: algo.newHash()}
}

// NewExpected returns a Verifier that compares against expectedHex. An
// empty algorithm name is inferred from the digest length.
func NewExpected(algorithm, expectedHex string) (*Verifier, error) {
	var algo Algorithm
	var err error
	if algorithm == "" {
		algo, err = Infer(expectedHex)
	} else {
		algo, err = Parse(algorithm)
	}
	if err != nil {
		return nil, err
	}

	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex digest: %w", err)
	}
	if len(expected) != algo.newHash().Size() {
		return nil, fmt.Errorf("digest length %d does not match algorithm %s", len(expected), algo)
	}

	return &Verifier{algo: algo, h: algo.newHash(), expected: expected}, nil
}

// Algorithm returns the algorithm the verifier accumulates with.
func (v *Verifier) Algorithm() Algorithm {
	return v.algo
}

// Write feeds the next chunk of the stream. Never fails.
func (v *Verifier) Write(p []byte) (int, error) {
	return v.h.Write(p)
}

// SumHex returns the hex encoding of the digest accumulated so far.
func (v *Verifier) SumHex() string {
	return hex.EncodeToString(v.h.Sum(nil))
}

// Verify compares the accumulated digest against the expected one using a
// constant-time comparison. A verifier without an expected digest passes.
func (v *Verifier) Verify() error {
	if v.expected == nil {
		return nil
	}
	got := v.h.Sum(nil)
	if subtle.ConstantTimeCompare(got, v.expected) != 1 {
		return errs.Errorf(errs.KindChecksumMismatch,
			"%s digest %s does not match expected %s",
			v.algo, hex.EncodeToString(got), hex.EncodeToString(v.expected))
	}
	return nil
}
