package merkle

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(i int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("credential-%d", i)))
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBuild_SingleLeafRootIsLeafHash(t *testing.T) {
	tree, err := Build([][32]byte{leaf(1)})
	require.NoError(t, err)

	assert.Equal(t, hashLeaf(leaf(1)), tree.Root())
	path, err := tree.Proof(0)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, Verify(leaf(1), path, tree.Root()))
}

func TestBuild_RootIndependentOfInputOrder(t *testing.T) {
	a, err := Build([][32]byte{leaf(1), leaf(2), leaf(3)})
	require.NoError(t, err)
	b, err := Build([][32]byte{leaf(3), leaf(1), leaf(2)})
	require.NoError(t, err)

	assert.Equal(t, a.Root(), b.Root())
}

func TestProof_EveryLeafVerifies(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8, 13} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			leaves := make([][32]byte, n)
			for i := range leaves {
				leaves[i] = leaf(i)
			}
			tree, err := Build(leaves)
			require.NoError(t, err)

			for _, l := range leaves {
				idx := tree.IndexOf(l)
				require.GreaterOrEqual(t, idx, 0)
				path, err := tree.Proof(idx)
				require.NoError(t, err)
				assert.True(t, Verify(l, path, tree.Root()))
			}
		})
	}
}

func TestVerify_RejectsForeignLeaf(t *testing.T) {
	tree, err := Build([][32]byte{leaf(1), leaf(2), leaf(3), leaf(4)})
	require.NoError(t, err)
	path, err := tree.Proof(0)
	require.NoError(t, err)

	assert.False(t, Verify(leaf(99), path, tree.Root()))
}

func TestProof_OutOfRange(t *testing.T) {
	tree, err := Build([][32]byte{leaf(1)})
	require.NoError(t, err)
	_, err = tree.Proof(1)
	assert.Error(t, err)
	assert.Equal(t, -1, tree.IndexOf(leaf(2)))
}

func TestContentDigest_MatchesSHA256(t *testing.T) {
	data := []byte(`{"id":"vc_1"}`)
	d, err := ContentDigest(data)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(data), d)
}

func TestCID_RoundTrip(t *testing.T) {
	d := leaf(7)
	c, err := CID(d)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Version())

	back, err := ParseCID(c.String())
	require.NoError(t, err)
	assert.Equal(t, d, back)

	_, err = ParseCID("not-a-cid")
	assert.Error(t, err)
}
