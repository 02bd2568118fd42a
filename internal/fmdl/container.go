package fmdl

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	containerMagic        = "FMDL"
	containerVersion      = 0x4001EB85
	containerHeaderSize   = 56 // bytes the reader consumes
	containerHeaderPad    = 8  // trailing zero u64 the writer appends
	segment0DescriptorLen = 8
	segment1DescriptorLen = 12
	blockAlignment        = 16
)

// Container is the in-memory mirror of the file's two block segments: an
// array of fixed-size records per segment-0 block-id, and an opaque byte
// buffer per segment-1 block-id. It knows nothing about what the bytes mean.
type Container struct {
	segment0 map[uint16][][]byte
	segment1 map[uint16][]byte
}

func newContainer() *Container {
	return &Container{
		segment0: make(map[uint16][][]byte),
		segment1: make(map[uint16][]byte),
	}
}

// Segment0Records returns the ordered records stored under block-id id, or
// nil if that block is absent.
func (c *Container) Segment0Records(id uint16) [][]byte {
	return c.segment0[id]
}

// AddSegment0Record appends one record to block-id id. The caller is
// responsible for keeping record length consistent with segment0RecordSize.
func (c *Container) AddSegment0Record(id uint16, record []byte) {
	c.segment0[id] = append(c.segment0[id], record)
}

// Segment1Block returns the byte buffer stored under block-id id and whether
// it is present.
func (c *Container) Segment1Block(id uint16) ([]byte, bool) {
	b, ok := c.segment1[id]
	return b, ok
}

// SetSegment1Block sets (overwriting) the byte buffer for block-id id.
func (c *Container) SetSegment1Block(id uint16, data []byte) {
	c.segment1[id] = data
}

func padLen(n int) int {
	if rem := n % blockAlignment; rem != 0 {
		return n + (blockAlignment - rem)
	}
	return n
}

// ReadContainer parses the framed file format into a Container. The second
// return value reports whether any segment-1 block's declared length was
// clamped to fit the file (the liberal-reader concession for block 3 and for
// any block whose declared length overruns the file).
func ReadContainer(r io.Reader) (*Container, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	return parseContainer(data)
}

func parseContainer(data []byte) (*Container, bool, error) {
	if len(data) < containerHeaderSize {
		return nil, false, fmt.Errorf("header: %w", ErrTruncated)
	}
	if string(data[0:4]) != containerMagic {
		return nil, false, fmt.Errorf("bad magic: %w", ErrInvalidContainer)
	}

	descriptorsOffset := binary.LittleEndian.Uint64(data[8:16])
	seg0Count := binary.LittleEndian.Uint32(data[32:36])
	seg1Count := binary.LittleEndian.Uint32(data[36:40])
	seg0Offset := binary.LittleEndian.Uint32(data[40:44])
	seg1Offset := binary.LittleEndian.Uint32(data[48:52])

	pos := int(descriptorsOffset)
	c := newContainer()
	clamped := false

	for i := uint32(0); i < seg0Count; i++ {
		end := pos + segment0DescriptorLen
		if end > len(data) {
			return nil, false, fmt.Errorf("segment-0 descriptor %d: %w", i, ErrTruncated)
		}
		blockID := binary.LittleEndian.Uint16(data[pos : pos+2])
		entryCount := binary.LittleEndian.Uint16(data[pos+2 : pos+4])
		relOffset := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		pos = end

		recordSize, known := segment0RecordSize[blockID]
		if !known {
			continue // unknown block-id: skip silently
		}
		if _, seen := c.segment0[blockID]; seen {
			return nil, false, fmt.Errorf("segment-0 block %d: %w", blockID, ErrDuplicateBlock)
		}

		base := int(seg0Offset) + int(relOffset)
		records := make([][]byte, 0, entryCount)
		for j := uint16(0); j < entryCount; j++ {
			recStart := base + int(j)*recordSize
			recEnd := recStart + recordSize
			if recStart < 0 || recEnd > len(data) {
				return nil, false, fmt.Errorf("segment-0 block %d record %d: %w", blockID, j, ErrTruncated)
			}
			records = append(records, data[recStart:recEnd])
		}
		c.segment0[blockID] = records
	}

	for i := uint32(0); i < seg1Count; i++ {
		end := pos + segment1DescriptorLen
		if end > len(data) {
			return nil, false, fmt.Errorf("segment-1 descriptor %d: %w", i, ErrTruncated)
		}
		blockID := binary.LittleEndian.Uint32(data[pos : pos+4])
		relOffset := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		length := binary.LittleEndian.Uint32(data[pos+8 : pos+12])
		pos = end

		id := uint16(blockID)
		if _, seen := c.segment1[id]; seen {
			return nil, false, fmt.Errorf("segment-1 block %d: %w", id, ErrDuplicateBlock)
		}

		absOffset := int(seg1Offset) + int(relOffset)
		if absOffset < 0 || absOffset > len(data) {
			return nil, false, fmt.Errorf("segment-1 block %d: %w", id, ErrTruncated)
		}
		remaining := len(data) - absOffset
		want := int(length)
		if want > remaining || id == segment1BlockStringPool {
			if want > remaining {
				clamped = true
			}
			want = remaining
		}
		c.segment1[id] = data[absOffset : absOffset+want]
	}

	return c, clamped, nil
}

// WriteTo serializes the Container in the framed file format. Segment-0
// block-ids and segment-1 block-ids are each emitted in ascending numeric
// order; absent blocks are skipped. Every block is padded to a 16-byte
// multiple.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	var seg0Bitmap, seg1Bitmap uint64
	var seg0Payload, seg1Payload []byte
	var seg0Descriptors, seg1Descriptors []byte
	var seg0Count, seg1Count uint32

	for id := uint16(0); id < 64; id++ {
		records, ok := c.segment0[id]
		if !ok {
			continue
		}
		relOffset := uint32(len(seg0Payload))
		for _, rec := range records {
			seg0Payload = append(seg0Payload, rec...)
		}
		if pad := padLen(len(seg0Payload)) - len(seg0Payload); pad > 0 {
			seg0Payload = append(seg0Payload, make([]byte, pad)...)
		}

		d := make([]byte, segment0DescriptorLen)
		binary.LittleEndian.PutUint16(d[0:2], id)
		binary.LittleEndian.PutUint16(d[2:4], uint16(len(records)))
		binary.LittleEndian.PutUint32(d[4:8], relOffset)
		seg0Descriptors = append(seg0Descriptors, d...)

		seg0Bitmap |= 1 << id
		seg0Count++
	}

	for id := uint16(0); id < 64; id++ {
		block, ok := c.segment1[id]
		if !ok {
			continue
		}
		relOffset := uint32(len(seg1Payload))
		seg1Payload = append(seg1Payload, block...)
		if pad := padLen(len(seg1Payload)) - len(seg1Payload); pad > 0 {
			seg1Payload = append(seg1Payload, make([]byte, pad)...)
		}

		d := make([]byte, segment1DescriptorLen)
		binary.LittleEndian.PutUint32(d[0:4], uint32(id))
		binary.LittleEndian.PutUint32(d[4:8], relOffset)
		binary.LittleEndian.PutUint32(d[8:12], uint32(len(block)))
		seg1Descriptors = append(seg1Descriptors, d...)

		seg1Bitmap |= 1 << id
		seg1Count++
	}

	descriptors := append(seg0Descriptors, seg1Descriptors...)
	if pad := padLen(len(descriptors)) - len(descriptors); pad > 0 {
		descriptors = append(descriptors, make([]byte, pad)...)
	}

	descriptorsOffset := uint64(containerHeaderSize + containerHeaderPad)
	seg0Offset := uint32(int(descriptorsOffset) + len(descriptors))
	seg1Offset := seg0Offset + uint32(len(seg0Payload))

	header := make([]byte, containerHeaderSize+containerHeaderPad)
	copy(header[0:4], containerMagic)
	binary.LittleEndian.PutUint32(header[4:8], containerVersion)
	binary.LittleEndian.PutUint64(header[8:16], descriptorsOffset)
	binary.LittleEndian.PutUint64(header[16:24], seg0Bitmap)
	binary.LittleEndian.PutUint64(header[24:32], seg1Bitmap)
	binary.LittleEndian.PutUint32(header[32:36], seg0Count)
	binary.LittleEndian.PutUint32(header[36:40], seg1Count)
	binary.LittleEndian.PutUint32(header[40:44], seg0Offset)
	binary.LittleEndian.PutUint32(header[44:48], uint32(len(seg0Payload)))
	binary.LittleEndian.PutUint32(header[48:52], seg1Offset)
	binary.LittleEndian.PutUint32(header[52:56], uint32(len(seg1Payload)))
	// trailing 8 bytes stay zero.

	buf := make([]byte, 0, len(header)+len(descriptors)+len(seg0Payload)+len(seg1Payload))
	buf = append(buf, header...)
	buf = append(buf, descriptors...)
	buf = append(buf, seg0Payload...)
	buf = append(buf, seg1Payload...)

	n, err := w.Write(buf)
	return int64(n), err
}
