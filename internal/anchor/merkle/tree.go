package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"slices"
)

// ErrEmpty is returned when a tree is built from zero leaves.
var ErrEmpty = errors.New("merkle: no leaves")

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// Step is one sibling on a proof path. Left means the sibling sits to the
// left of the running hash.
type Step struct {
	Hash [32]byte
	Left bool
}

// Tree is a binary Merkle tree over sorted leaf digests. Leaves and inner
// nodes are domain-separated; an odd node at the end of a level is promoted
// unchanged.
type Tree struct {
	leaves [][32]byte
	levels [][][32]byte
}

// Build sorts the leaves and constructs the tree. Duplicate leaves are kept.
func Build(leaves [][32]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmpty
	}
	sorted := slices.Clone(leaves)
	slices.SortFunc(sorted, func(a, b [32]byte) int { return bytes.Compare(a[:], b[:]) })

	level := make([][32]byte, len(sorted))
	for i, l := range sorted {
		level[i] = hashLeaf(l)
	}
	levels := [][][32]byte{level}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashNode(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{leaves: sorted, levels: levels}, nil
}

// Root returns the tree root.
func (t *Tree) Root() [32]byte {
	return t.levels[len(t.levels)-1][0]
}

// IndexOf returns the sorted position of digest, or -1.
func (t *Tree) IndexOf(digest [32]byte) int {
	i, found := slices.BinarySearchFunc(t.leaves, digest, func(a, b [32]byte) int { return bytes.Compare(a[:], b[:]) })
	if !found {
		return -1
	}
	return i
}

// Proof returns the sibling path for the leaf at index.
func (t *Tree) Proof(index int) ([]Step, error) {
	if index < 0 || index >= len(t.leaves) {
		return nil, errors.New("merkle: leaf index out of range")
	}
	var path []Step
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			path = append(path, Step{Hash: level[sibling], Left: sibling < index})
		}
		index /= 2
	}
	return path, nil
}

// Verify reports whether leaf with path hashes to root.
func Verify(leaf [32]byte, path []Step, root [32]byte) bool {
	h := hashLeaf(leaf)
	for _, s := range path {
		if s.Left {
			h = hashNode(s.Hash, h)
		} else {
			h = hashNode(h, s.Hash)
		}
	}
	return h == root
}

func hashLeaf(d [32]byte) [32]byte {
	var buf [33]byte
	buf[0] = leafPrefix
	copy(buf[1:], d[:])
	return sha256.Sum256(buf[:])
}

func hashNode(l, r [32]byte) [32]byte {
	var buf [65]byte
	buf[0] = nodePrefix
	copy(buf[1:33], l[:])
	copy(buf[33:], r[:])
	return sha256.Sum256(buf[:])
}
