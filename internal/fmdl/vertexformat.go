package fmdl

import (
	"encoding/binary"
	"fmt"
)

// meshFormatEntry is one resolved vertex attribute slot: where to find it in
// the vertex buffer and how to interpret the bytes.
type meshFormatEntry struct {
	DatumType   VertexDatumType
	DatumFormat VertexDatumFormat
	Offset      uint32 // absolute offset within segment-1 block 2
	Stride      uint32
}

// meshVertexFormat is the fully resolved vertex layout for one mesh-format
// assignment (one block-9 record), referenced by mesh records via index.
type meshVertexFormat struct {
	Entries []meshFormatEntry
	Fields  VertexFields
}

// decodeBufferOffsets resolves segment-0 block 14 into the base offsets used
// by mesh-format records to locate the position, data, and face buffers
// within segment-1 block 2.
func decodeBufferOffsets(c *Container) []uint32 {
	records := c.Segment0Records(blockBufferOffset)
	offsets := make([]uint32, len(records))
	for i, rec := range records {
		offsets[i] = binary.LittleEndian.Uint32(rec[8:12]) // offset field; eof/length/padding unused
	}
	return offsets
}

type rawMeshFormat struct {
	bufferID               uint8
	bufferOffset           uint32
	bufferOffsetIncrement  uint8
	vertexFormatEntryCount uint8
}

func decodeMeshFormats(c *Container) []rawMeshFormat {
	records := c.Segment0Records(blockMeshFormat)
	out := make([]rawMeshFormat, len(records))
	for i, rec := range records {
		out[i] = rawMeshFormat{
			bufferID:              rec[0],
			vertexFormatEntryCount: rec[1],
			bufferOffsetIncrement:  rec[2],
			// rec[3] is meshFormatType, unused on decode.
			bufferOffset: binary.LittleEndian.Uint32(rec[4:8]),
		}
	}
	return out
}

type rawVertexFormat struct {
	datumType   VertexDatumType
	datumFormat VertexDatumFormat
	offset      uint16
}

func decodeVertexFormats(c *Container) ([]rawVertexFormat, error) {
	records := c.Segment0Records(blockVertexFormat)
	out := make([]rawVertexFormat, len(records))
	for i, rec := range records {
		datumType := VertexDatumType(rec[0])
		datumFormat := VertexDatumFormat(rec[1])
		if !datumType.valid() {
			return nil, fmt.Errorf("vertex format %d: datum type %d: %w", i, rec[0], ErrInvalidFormat)
		}
		want, _ := requiredFormat(datumType)
		if datumFormat != want {
			return nil, fmt.Errorf("vertex format %d: datum type %s bound to format %s: %w", i, datumType, datumFormat, ErrInvalidFormat)
		}
		out[i] = rawVertexFormat{
			datumType:   datumType,
			datumFormat: datumFormat,
			offset:      binary.LittleEndian.Uint16(rec[2:4]),
		}
	}
	return out, nil
}

// decodeMeshFormatAssignments resolves blocks 9/10/11/14 into a flat,
// per-assignment list of resolved vertex format entries, indexed exactly
// like the mesh-format IDs referenced by mesh records.
func decodeMeshFormatAssignments(c *Container) ([]meshVertexFormat, error) {
	bufferOffsets := decodeBufferOffsets(c)
	meshFormats := decodeMeshFormats(c)
	vertexFormats, err := decodeVertexFormats(c)
	if err != nil {
		return nil, err
	}

	assignmentRecords := c.Segment0Records(blockMeshFormatAssignment)
	assignments := make([]meshVertexFormat, len(assignmentRecords))

	for a, rec := range assignmentRecords {
		meshFormatEntryCount := int(rec[0])
		vertexFormatEntryCount := int(rec[1])
		firstMeshFormatID := int(binary.LittleEndian.Uint16(rec[4:6]))
		firstVertexFormatID := int(binary.LittleEndian.Uint16(rec[6:8]))

		if firstMeshFormatID+meshFormatEntryCount > len(meshFormats) {
			return nil, fmt.Errorf("mesh format assignment %d: mesh format range out of bounds: %w", a, ErrInvalidReference)
		}
		if firstVertexFormatID+vertexFormatEntryCount > len(vertexFormats) {
			return nil, fmt.Errorf("mesh format assignment %d: vertex format range out of bounds: %w", a, ErrInvalidReference)
		}

		var slotOffsets []uint32
		var slotStrides []uint32
		for i := firstMeshFormatID; i < firstMeshFormatID+meshFormatEntryCount; i++ {
			mf := meshFormats[i]
			if int(mf.bufferID) >= len(bufferOffsets) {
				return nil, fmt.Errorf("mesh format assignment %d: buffer %d out of bounds: %w", a, mf.bufferID, ErrInvalidReference)
			}
			base := bufferOffsets[mf.bufferID] + mf.bufferOffset
			for k := uint8(0); k < mf.vertexFormatEntryCount; k++ {
				slotOffsets = append(slotOffsets, base)
				slotStrides = append(slotStrides, uint32(mf.bufferOffsetIncrement))
			}
		}

		if len(slotOffsets) != vertexFormatEntryCount {
			return nil, fmt.Errorf("mesh format assignment %d: expected %d vertex format slots, found %d: %w", a, vertexFormatEntryCount, len(slotOffsets), ErrMalformedFormat)
		}

		entries := make([]meshFormatEntry, vertexFormatEntryCount)
		for i := 0; i < vertexFormatEntryCount; i++ {
			vf := vertexFormats[firstVertexFormatID+i]
			entries[i] = meshFormatEntry{
				DatumType:   vf.datumType,
				DatumFormat: vf.datumFormat,
				Offset:      slotOffsets[i] + uint32(vf.offset),
				Stride:      slotStrides[i],
			}
		}

		fields, err := deriveVertexFields(entries)
		if err != nil {
			return nil, fmt.Errorf("mesh format assignment %d: %w", a, err)
		}

		assignments[a] = meshVertexFormat{Entries: entries, Fields: fields}
	}

	return assignments, nil
}

// deriveVertexFields enforces the field-presence invariants and computes the
// per-mesh VertexFields summary, including UV aliasing.
func deriveVertexFields(entries []meshFormatEntry) (VertexFields, error) {
	var fields VertexFields
	seen := make(map[VertexDatumType]bool)
	uvOffset := make(map[int]uint32)
	var hasBoneWeights, hasBoneIndices bool

	for _, e := range entries {
		if seen[e.DatumType] {
			return VertexFields{}, fmt.Errorf("duplicate datum type %s: %w", e.DatumType, ErrInvalidFormat)
		}
		seen[e.DatumType] = true

		switch e.DatumType {
		case DatumNormal:
			fields.HasNormal = true
		case DatumTangent:
			fields.HasTangent = true
		case DatumColor:
			fields.HasColor = true
		case DatumBoneWeights:
			hasBoneWeights = true
		case DatumBoneIndices:
			hasBoneIndices = true
		case DatumUV0, DatumUV1, DatumUV2, DatumUV3:
			ch := e.DatumType.uvChannel()
			uvOffset[ch] = e.Offset
			fields.UVCount++
		}
	}

	if _, ok := uvOffset[3]; ok {
		if _, ok := uvOffset[2]; !ok {
			return VertexFields{}, fmt.Errorf("uv3 present without uv2: %w", ErrMalformedFormat)
		}
	}
	if _, ok := uvOffset[2]; ok {
		if _, ok := uvOffset[1]; !ok {
			return VertexFields{}, fmt.Errorf("uv2 present without uv1: %w", ErrMalformedFormat)
		}
	}
	if _, ok := uvOffset[1]; ok {
		if _, ok := uvOffset[0]; !ok {
			return VertexFields{}, fmt.Errorf("uv1 present without uv0: %w", ErrMalformedFormat)
		}
	}
	if hasBoneWeights != hasBoneIndices {
		return VertexFields{}, fmt.Errorf("bone weights without bone indices or vice versa: %w", ErrMalformedFormat)
	}
	fields.HasBoneMapping = hasBoneWeights && hasBoneIndices

	fields.UVEqualities = make(map[int][]int, fields.UVCount)
	for i := 0; i < fields.UVCount; i++ {
		var aliases []int
		for j := 0; j < fields.UVCount; j++ {
			if i != j && uvOffset[i] == uvOffset[j] {
				aliases = append(aliases, j)
			}
		}
		fields.UVEqualities[i] = aliases
	}

	return fields, nil
}
