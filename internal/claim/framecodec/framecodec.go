// Package framecodec splits a claim payload into self-describing QR frames
// and reassembles it from any sufficient subset, in any order.
//
// Wire format of one frame:
//
//	VCQR1:{index}:{total}:{parity}:{length}:{crc32}:{base64url chunk}
//
// The first total-parity frames carry data; the rest carry Reed-Solomon
// parity, so any total-parity distinct frames reconstruct the payload.
package framecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/klauspost/reedsolomon"
	"github.com/skip2/go-qrcode"
)

const (
	Prefix = "VCQR1"

	MinSize     = 128
	MaxSize     = 1024
	DefaultSize = 320

	// MaxFrames bounds total frames so one sequence stays scannable.
	MaxFrames = 64
)

var (
	ErrEmptyPayload = errors.New("framecodec: empty payload")
	ErrMalformed    = errors.New("framecodec: malformed frame")
	ErrMismatch     = errors.New("framecodec: frame belongs to a different sequence")
	ErrIncomplete   = errors.New("framecodec: not enough frames to reconstruct")
	ErrChecksum     = errors.New("framecodec: payload checksum mismatch")
)

// Frame is one self-describing slice of a payload.
type Frame struct {
	Index    int
	Total    int
	Parity   int
	Length   int
	Checksum uint32
	Data     []byte
}

// DataFrames is the number of frames carrying payload bytes.
func (f Frame) DataFrames() int {
	return f.Total - f.Parity
}

func (f Frame) String() string {
	return fmt.Sprintf("%s:%d:%d:%d:%d:%08x:%s",
		Prefix, f.Index, f.Total, f.Parity, f.Length, f.Checksum,
		base64.RawURLEncoding.EncodeToString(f.Data))
}

// Parse decodes the textual form produced by Frame.String.
func Parse(s string) (Frame, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 7 || parts[0] != Prefix {
		return Frame{}, ErrMalformed
	}
	var nums [4]int
	for i := range nums {
		n, err := strconv.Atoi(parts[i+1])
		if err != nil || n < 0 {
			return Frame{}, ErrMalformed
		}
		nums[i] = n
	}
	sum, err := strconv.ParseUint(parts[5], 16, 32)
	if err != nil {
		return Frame{}, ErrMalformed
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[6])
	if err != nil {
		return Frame{}, ErrMalformed
	}
	f := Frame{
		Index:    nums[0],
		Total:    nums[1],
		Parity:   nums[2],
		Length:   nums[3],
		Checksum: uint32(sum),
		Data:     data,
	}
	if f.Total < 1 || f.Total > MaxFrames || f.Parity >= f.Total || f.Index >= f.Total || f.Length == 0 || len(f.Data) == 0 {
		return Frame{}, ErrMalformed
	}
	return f, nil
}

// Split partitions payload into dataFrames data frames followed by
// parityFrames parity frames. The result is deterministic for equal inputs.
func Split(payload []byte, dataFrames, parityFrames int) ([]Frame, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if dataFrames < 1 || parityFrames < 0 || dataFrames+parityFrames > MaxFrames {
		return nil, fmt.Errorf("framecodec: invalid frame layout %d+%d", dataFrames, parityFrames)
	}
	// Every data shard must carry at least one byte.
	if dataFrames > len(payload) {
		dataFrames = len(payload)
	}
	shards, err := encode(payload, dataFrames, parityFrames)
	if err != nil {
		return nil, err
	}
	total := dataFrames + parityFrames
	sum := crc32.ChecksumIEEE(payload)
	frames := make([]Frame, total)
	for i, shard := range shards {
		frames[i] = Frame{
			Index:    i,
			Total:    total,
			Parity:   parityFrames,
			Length:   len(payload),
			Checksum: sum,
			Data:     shard,
		}
	}
	return frames, nil
}

func encode(payload []byte, dataFrames, parityFrames int) ([][]byte, error) {
	if parityFrames == 0 {
		return splitPlain(payload, dataFrames), nil
	}
	enc, err := reedsolomon.New(dataFrames, parityFrames)
	if err != nil {
		return nil, fmt.Errorf("framecodec: init encoder: %w", err)
	}
	// Split may reuse the input's spare capacity, so hand it a copy.
	shards, err := enc.Split(bytes.Clone(payload))
	if err != nil {
		return nil, fmt.Errorf("framecodec: split payload: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("framecodec: encode parity: %w", err)
	}
	return shards, nil
}

// splitPlain zero-pads payload into equal shards without parity.
func splitPlain(payload []byte, n int) [][]byte {
	size := (len(payload) + n - 1) / n
	padded := make([]byte, size*n)
	copy(padded, payload)
	shards := make([][]byte, n)
	for i := range shards {
		shards[i] = padded[i*size : (i+1)*size]
	}
	return shards
}

// ClampSize resolves a requested pixel size: zero selects def, and the result
// is bounded by MinSize and limit.
func ClampSize(size, def, limit int) int {
	if limit <= 0 || limit > MaxSize {
		limit = MaxSize
	}
	if size <= 0 {
		size = def
	}
	if size <= 0 {
		size = DefaultSize
	}
	return max(MinSize, min(size, limit))
}

// Render draws f as a square PNG QR code of size pixels.
func Render(f Frame, size int) ([]byte, error) {
	png, err := qrcode.Encode(f.String(), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("framecodec: render frame %d: %w", f.Index, err)
	}
	return png, nil
}
