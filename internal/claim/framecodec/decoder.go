package framecodec

import (
	"bytes"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/reedsolomon"
)

// Decoder accumulates scanned frames of one sequence. Frames may arrive in
// any order and repeat; the first frame fixes the sequence header.
type Decoder struct {
	header *Frame
	shards [][]byte
	count  int
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Add accepts the textual form of one frame.
func (d *Decoder) Add(s string) error {
	f, err := Parse(s)
	if err != nil {
		return err
	}
	return d.AddFrame(f)
}

func (d *Decoder) AddFrame(f Frame) error {
	if d.header == nil {
		h := f
		h.Data = nil
		d.header = &h
		d.shards = make([][]byte, f.Total)
	} else if !d.sameSequence(f) {
		return ErrMismatch
	}
	if d.shards[f.Index] != nil {
		return nil
	}
	d.shards[f.Index] = bytes.Clone(f.Data)
	d.count++
	return nil
}

func (d *Decoder) sameSequence(f Frame) bool {
	h := d.header
	if f.Total != h.Total || f.Parity != h.Parity || f.Length != h.Length || f.Checksum != h.Checksum {
		return false
	}
	for _, shard := range d.shards {
		if shard != nil {
			return len(shard) == len(f.Data)
		}
	}
	return true
}

// Received is the number of distinct frames accepted so far.
func (d *Decoder) Received() int {
	return d.count
}

// Complete reports whether enough distinct frames arrived to rebuild the payload.
func (d *Decoder) Complete() bool {
	return d.header != nil && d.count >= d.header.DataFrames()
}

// Missing lists frame indexes not yet received.
func (d *Decoder) Missing() []int {
	var out []int
	for i, shard := range d.shards {
		if shard == nil {
			out = append(out, i)
		}
	}
	return out
}

// Payload reconstructs and checksums the payload.
func (d *Decoder) Payload() ([]byte, error) {
	if !d.Complete() {
		return nil, ErrIncomplete
	}
	h := d.header
	data := h.DataFrames()
	shards := make([][]byte, len(d.shards))
	copy(shards, d.shards)

	if h.Parity > 0 {
		enc, err := reedsolomon.New(data, h.Parity)
		if err != nil {
			return nil, fmt.Errorf("framecodec: init decoder: %w", err)
		}
		if err := enc.ReconstructData(shards); err != nil {
			return nil, fmt.Errorf("framecodec: reconstruct: %w", err)
		}
	}

	var buf bytes.Buffer
	for _, shard := range shards[:data] {
		buf.Write(shard)
	}
	if buf.Len() < h.Length {
		return nil, ErrMalformed
	}
	payload := buf.Bytes()[:h.Length]
	if crc32.ChecksumIEEE(payload) != h.Checksum {
		return nil, ErrChecksum
	}
	return payload, nil
}
