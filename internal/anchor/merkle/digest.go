// Package merkle computes credential content digests and the binary Merkle
// trees committed on chain for each anchor batch.
package merkle

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentDigest returns the sha2-256 digest of a credential's canonical bytes.
func ContentDigest(canonical []byte) ([32]byte, error) {
	var out [32]byte
	sum, err := multihash.Sum(canonical, multihash.SHA2_256, -1)
	if err != nil {
		return out, fmt.Errorf("hash content: %w", err)
	}
	decoded, err := multihash.Decode(sum)
	if err != nil {
		return out, fmt.Errorf("decode multihash: %w", err)
	}
	if len(decoded.Digest) != len(out) {
		return out, fmt.Errorf("unexpected digest length %d", len(decoded.Digest))
	}
	copy(out[:], decoded.Digest)
	return out, nil
}

// CID renders a 32-byte sha2-256 digest as a CIDv1 with the raw codec.
func CID(digest [32]byte) (cid.Cid, error) {
	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	if err != nil {
		return cid.Undef, fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// ParseCID extracts the sha2-256 digest from a CID string produced by CID.
func ParseCID(s string) ([32]byte, error) {
	var out [32]byte
	c, err := cid.Decode(s)
	if err != nil {
		return out, fmt.Errorf("decode cid: %w", err)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return out, fmt.Errorf("decode multihash: %w", err)
	}
	if decoded.Code != multihash.SHA2_256 || len(decoded.Digest) != len(out) {
		return out, fmt.Errorf("cid %s is not a sha2-256 digest", s)
	}
	copy(out[:], decoded.Digest)
	return out, nil
}
