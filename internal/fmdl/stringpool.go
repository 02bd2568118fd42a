package fmdl

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// decodeStrings resolves every segment-0 block-12 string descriptor against
// its referenced segment-1 block, producing a flat slice indexed by string
// id (the position of the descriptor in block 12).
func decodeStrings(c *Container) ([]string, error) {
	descriptors := c.Segment0Records(blockStringDescriptor)
	result := make([]string, len(descriptors))
	for i, rec := range descriptors {
		blockID := binary.LittleEndian.Uint16(rec[0:2])
		length := binary.LittleEndian.Uint16(rec[2:4])
		offset := binary.LittleEndian.Uint32(rec[4:8])

		buf, ok := c.Segment1Block(blockID)
		if !ok {
			return nil, fmt.Errorf("string %d: references segment-1 block %d: %w", i, blockID, ErrInvalidReference)
		}
		start := int(offset)
		end := start + int(length)
		if start < 0 || end > len(buf) {
			return nil, fmt.Errorf("string %d: %w", i, ErrTruncated)
		}
		b := buf[start:end]
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("string %d: %w", i, ErrInvalidString)
		}
		result[i] = string(b)
	}
	return result, nil
}

// stringWriter accumulates an append-only UTF-8 arena for segment-1 block 3,
// producing one segment-0 block-12 descriptor per string added. No
// deduplication is performed.
type stringWriter struct {
	pool    []byte
	entries []stringPoolEntry
}

type stringPoolEntry struct {
	length uint16
	offset uint32
}

func newStringWriter() *stringWriter {
	return &stringWriter{}
}

// add appends s (NUL-terminated in the pool, NUL excluded from the recorded
// length) and returns its string id — the index it will occupy in block 12.
func (sw *stringWriter) add(s string) uint16 {
	id := uint16(len(sw.entries))
	offset := uint32(len(sw.pool))
	sw.pool = append(sw.pool, s...)
	sw.pool = append(sw.pool, 0)
	sw.entries = append(sw.entries, stringPoolEntry{length: uint16(len(s)), offset: offset})
	return id
}

// flush writes the accumulated pool and descriptors into c.
func (sw *stringWriter) flush(c *Container) {
	for _, e := range sw.entries {
		rec := make([]byte, 8)
		binary.LittleEndian.PutUint16(rec[0:2], segment1BlockStringPool)
		binary.LittleEndian.PutUint16(rec[2:4], e.length)
		binary.LittleEndian.PutUint32(rec[4:8], e.offset)
		c.AddSegment0Record(blockStringDescriptor, rec)
	}
	c.SetSegment1Block(segment1BlockStringPool, sw.pool)
}
