package fmdl

import (
	"encoding/binary"
	"sort"
)

// vertexFormatSlot is one resolved block-11 entry produced by
// buildCanonicalFormat, not yet bound to an absolute buffer offset (that
// binding happens per-mesh in encodeMeshFormatAssignment).
type vertexFormatSlot struct {
	DatumType   VertexDatumType
	DatumFormat VertexDatumFormat
	BufferID    uint8 // 0 = position buffer, 1 = data buffer
	Offset      uint32
}

// buildCanonicalFormat computes the emission-order vertex layout for a mesh's
// VertexFields, per spec.md §4.8: position, then normal/tangent/color/
// bone-mapping/UV in the data buffer, reusing an earlier UV channel's offset
// when VertexFields.UVEqualities marks it aliased. typeEntries[0..3] are the
// per-meshFormat-category entry counts (position, normal+tangent, color,
// bone-mapping+UV) used to emit block-10 records.
func buildCanonicalFormat(fields VertexFields) (slots []vertexFormatSlot, positionStride, dataStride uint32, typeEntries [4]int) {
	slots = append(slots, vertexFormatSlot{DatumType: DatumPosition, DatumFormat: FormatTripleFloat32, BufferID: 0, Offset: 0})
	positionStride = 12
	typeEntries[0] = 1

	var dataOffset uint32
	if fields.HasNormal {
		slots = append(slots, vertexFormatSlot{DatumNormal, FormatQuadFloat16, 1, dataOffset})
		dataOffset += 8
		typeEntries[1]++
	}
	if fields.HasTangent {
		slots = append(slots, vertexFormatSlot{DatumTangent, FormatQuadFloat16, 1, dataOffset})
		dataOffset += 8
		typeEntries[1]++
	}
	if fields.HasColor {
		slots = append(slots, vertexFormatSlot{DatumColor, FormatQuadFloat8, 1, dataOffset})
		dataOffset += 4
		typeEntries[2]++
	}
	if fields.HasBoneMapping {
		slots = append(slots, vertexFormatSlot{DatumBoneWeights, FormatQuadFloat8, 1, dataOffset})
		dataOffset += 4
		slots = append(slots, vertexFormatSlot{DatumBoneIndices, FormatQuadInt8, 1, dataOffset})
		dataOffset += 4
		typeEntries[3] += 2
	}

	uvTypes := [4]VertexDatumType{DatumUV0, DatumUV1, DatumUV2, DatumUV3}
	uvOffsets := make(map[int]uint32, fields.UVCount)
	for i := 0; i < fields.UVCount; i++ {
		offset, reused := uint32(0), false
		for _, j := range fields.UVEqualities[i] {
			if off, ok := uvOffsets[j]; ok {
				offset, reused = off, true
				break
			}
		}
		if !reused {
			offset = dataOffset
			uvOffsets[i] = offset
			dataOffset += 4
		}
		slots = append(slots, vertexFormatSlot{uvTypes[i], FormatDoubleFloat16, 1, offset})
		typeEntries[3]++
	}

	dataStride = dataOffset
	return slots, positionStride, dataStride, typeEntries
}

// encodeMeshFormatAssignment emits one block-9/10/11 group for a mesh's
// vertex layout and returns the resolved slots (still relative to the
// per-mesh buffer regions) plus the two buffer strides, for use by
// encodeVertices.
func encodeMeshFormatAssignment(c *Container, fields VertexFields, positionBufferOffset, dataBufferOffset uint32) (assignmentID uint16, slots []vertexFormatSlot, positionStride, dataStride uint32) {
	slots, positionStride, dataStride, typeEntries := buildCanonicalFormat(fields)

	firstMeshFormatID := uint16(len(c.Segment0Records(blockMeshFormat)))
	firstVertexFormatID := uint16(len(c.Segment0Records(blockVertexFormat)))

	for _, s := range slots {
		rec := make([]byte, 4)
		rec[0] = byte(s.DatumType)
		rec[1] = byte(s.DatumFormat)
		putU16(rec, 2, uint16(s.Offset))
		c.AddSegment0Record(blockVertexFormat, rec)
	}

	emitMeshFormat := func(bufferID uint8, count int, stride uint32, category uint8, bufferOffset uint32) {
		rec := make([]byte, 8)
		rec[0] = bufferID
		rec[1] = byte(count)
		rec[2] = byte(stride)
		rec[3] = category
		putU32(rec, 4, bufferOffset)
		c.AddSegment0Record(blockMeshFormat, rec)
	}

	emitMeshFormat(0, typeEntries[0], positionStride, 0, positionBufferOffset)
	for category := 1; category <= 3; category++ {
		if typeEntries[category] > 0 {
			emitMeshFormat(1, typeEntries[category], dataStride, uint8(category), dataBufferOffset)
		}
	}

	meshFormatCount := uint16(len(c.Segment0Records(blockMeshFormat))) - firstMeshFormatID
	vertexFormatCount := uint16(len(c.Segment0Records(blockVertexFormat))) - firstVertexFormatID

	rec := make([]byte, 8)
	rec[0] = byte(meshFormatCount)
	rec[1] = byte(vertexFormatCount)
	rec[2] = 0
	rec[3] = byte(fields.UVCount)
	putU16(rec, 4, firstMeshFormatID)
	putU16(rec, 6, firstVertexFormatID)

	assignmentID = uint16(len(c.Segment0Records(blockMeshFormatAssignment)))
	c.AddSegment0Record(blockMeshFormatAssignment, rec)
	return assignmentID, slots, positionStride, dataStride
}

type boneWeight struct {
	index  int
	weight float32
}

// encodeVertices packs every vertex into the position and data buffers
// according to slots, sorting bone weights descending and truncating/padding
// to 4 entries (spec.md §4.8). It returns the vertex->local-index map needed
// to pack faces afterward.
func encodeVertices(vertices []*Vertex, slots []vertexFormatSlot, positionStride, dataStride uint32, boneGroupIndices map[*Bone]int) (positionBuf, dataBuf []byte, vertexIndices map[*Vertex]int) {
	positionBuf = make([]byte, len(vertices)*int(positionStride))
	dataBuf = make([]byte, len(vertices)*int(dataStride))
	vertexIndices = make(map[*Vertex]int, len(vertices))

	for vi, v := range vertices {
		vertexIndices[v] = vi

		var bones []boneWeight
		if v.BoneMapping != nil {
			bones = make([]boneWeight, 0, len(v.BoneMapping))
			for bone, weight := range v.BoneMapping {
				bones = append(bones, boneWeight{index: boneGroupIndices[bone], weight: weight})
			}
			sort.Slice(bones, func(a, b int) bool { return bones[a].weight > bones[b].weight })
		}

		for _, s := range slots {
			buf, stride := dataBuf, dataStride
			if s.BufferID == 0 {
				buf, stride = positionBuf, positionStride
			}
			pos := int(stride)*vi + int(s.Offset)

			switch s.DatumType {
			case DatumPosition:
				putF32(buf, pos, v.Position.X)
				putF32(buf, pos+4, v.Position.Y)
				putF32(buf, pos+8, v.Position.Z)
			case DatumNormal:
				putHalfQuad(buf, pos, [4]float32{v.Normal.X, v.Normal.Y, v.Normal.Z, v.Normal.W})
			case DatumTangent:
				putHalfQuad(buf, pos, [4]float32{v.Tangent.X, v.Tangent.Y, v.Tangent.Z, v.Tangent.W})
			case DatumColor:
				putQuadFloat8(buf, pos, *v.Color)
			case DatumBoneWeights:
				var w [4]float32
				for i := 0; i < 4 && i < len(bones); i++ {
					w[i] = bones[i].weight
				}
				putQuadFloat8(buf, pos, w)
			case DatumBoneIndices:
				for i := 0; i < 4; i++ {
					if i < len(bones) {
						buf[pos+i] = byte(bones[i].index)
					} else {
						buf[pos+i] = 0
					}
				}
			case DatumUV0, DatumUV1, DatumUV2, DatumUV3:
				uv := v.UV[s.DatumType.uvChannel()]
				binary.LittleEndian.PutUint16(buf[pos:pos+2], encodeHalf(uv.U))
				binary.LittleEndian.PutUint16(buf[pos+2:pos+4], encodeHalf(uv.V))
			}
		}
	}

	if pad := padLen(len(positionBuf)) - len(positionBuf); pad > 0 {
		positionBuf = append(positionBuf, make([]byte, pad)...)
	}
	if pad := padLen(len(dataBuf)) - len(dataBuf); pad > 0 {
		dataBuf = append(dataBuf, make([]byte, pad)...)
	}
	return positionBuf, dataBuf, vertexIndices
}

func putHalfQuad(buf []byte, pos int, v [4]float32) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(buf[pos+i*2:pos+i*2+2], encodeHalf(v[i]))
	}
}

// quadFloat8 truncates x*255 toward zero, matching the reference packer,
// but clamps to [0,1] first -- the reference leaves out-of-range input
// undefined and this codec chooses to saturate instead of wrapping.
func quadFloat8(x float32) byte {
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return byte(int32(x * 255))
}

func putQuadFloat8(buf []byte, pos int, v [4]float32) {
	for i := 0; i < 4; i++ {
		buf[pos+i] = quadFloat8(v[i])
	}
}

func packFaces(faces []Face, vertexIndices map[*Vertex]int) []byte {
	buf := make([]byte, len(faces)*6)
	for i, f := range faces {
		putU16(buf, i*6, uint16(vertexIndices[f.V0]))
		putU16(buf, i*6+2, uint16(vertexIndices[f.V1]))
		putU16(buf, i*6+4, uint16(vertexIndices[f.V2]))
	}
	return buf
}
