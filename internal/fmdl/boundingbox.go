package fmdl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decodeBoundingBoxes resolves segment-0 block 13 into a flat slice indexed
// by bounding-box id.
func decodeBoundingBoxes(c *Container) ([]BoundingBox, error) {
	records := c.Segment0Records(blockBoundingBox)
	out := make([]BoundingBox, len(records))
	for i, rec := range records {
		if len(rec) != 32 {
			return nil, fmt.Errorf("bounding box %d: %w", i, ErrTruncated)
		}
		out[i] = BoundingBox{
			Max: Vector4{decodeF32(rec, 0), decodeF32(rec, 4), decodeF32(rec, 8), decodeF32(rec, 12)},
			Min: Vector4{decodeF32(rec, 16), decodeF32(rec, 20), decodeF32(rec, 24), decodeF32(rec, 28)},
		}
	}
	return out, nil
}

// encodeBoundingBox appends one bounding box record and returns its id.
func encodeBoundingBox(c *Container, bb BoundingBox) uint16 {
	id := uint16(len(c.Segment0Records(blockBoundingBox)))
	rec := make([]byte, 32)
	putF32(rec, 0, bb.Max.X)
	putF32(rec, 4, bb.Max.Y)
	putF32(rec, 8, bb.Max.Z)
	putF32(rec, 12, bb.Max.W)
	putF32(rec, 16, bb.Min.X)
	putF32(rec, 20, bb.Min.Y)
	putF32(rec, 24, bb.Min.Z)
	putF32(rec, 28, bb.Min.W)
	c.AddSegment0Record(blockBoundingBox, rec)
	return id
}

func putF32(buf []byte, pos int, v float32) {
	binary.LittleEndian.PutUint32(buf[pos:pos+4], math.Float32bits(v))
}

func putU16(buf []byte, pos int, v uint16) {
	binary.LittleEndian.PutUint16(buf[pos:pos+2], v)
}

func putU32(buf []byte, pos int, v uint32) {
	binary.LittleEndian.PutUint32(buf[pos:pos+4], v)
}

func putU64(buf []byte, pos int, v uint64) {
	binary.LittleEndian.PutUint64(buf[pos:pos+8], v)
}
