package fmdl

import (
	"encoding/binary"
	"fmt"
)

const boneGroupUnknownConstant uint16 = 4

// decodeBoneGroups resolves segment-0 block 5 into ordered bone lists,
// clamping any declared entry count above 32 down to 32 (the format's own
// per-group limit).
func decodeBoneGroups(c *Container, bones []*Bone) ([]*BoneGroup, error) {
	records := c.Segment0Records(blockBoneGroup)
	out := make([]*BoneGroup, len(records))
	for i, rec := range records {
		if len(rec) != 68 {
			return nil, fmt.Errorf("bone group %d: %w", i, ErrTruncated)
		}
		entryCount := int(binary.LittleEndian.Uint16(rec[2:4]))
		if entryCount > 32 {
			entryCount = 32
		}
		bg := &BoneGroup{Bones: make([]*Bone, 0, entryCount)}
		for j := 0; j < entryCount; j++ {
			boneID := binary.LittleEndian.Uint16(rec[4+j*2 : 6+j*2])
			if int(boneID) >= len(bones) {
				return nil, fmt.Errorf("bone group %d entry %d: bone %d: %w", i, j, boneID, ErrInvalidReference)
			}
			bg.Bones = append(bg.Bones, bones[boneID])
		}
		out[i] = bg
	}
	return out, nil
}

// decodeLevelOfDetail validates that block 16 holds exactly one record (this
// codec always writes a single level of detail, per spec.md §4.10) and
// returns its declared count. The placeholder floats carry no semantics.
func decodeLevelOfDetail(c *Container) (int, error) {
	records := c.Segment0Records(blockLevelOfDetail)
	if len(records) != 1 {
		return 0, fmt.Errorf("expected exactly one level-of-detail record, found %d: %w", len(records), ErrMalformedFormat)
	}
	return int(binary.LittleEndian.Uint32(records[0][0:4])), nil
}

// decodeFaceIndices resolves segment-0 block 17 into (firstFaceVertexIndex,
// faceVertexCount) pairs, one per level-of-detail record.
func decodeFaceIndices(c *Container) ([][2]uint32, error) {
	records := c.Segment0Records(blockFaceIndex)
	out := make([][2]uint32, len(records))
	for i, rec := range records {
		if len(rec) != 8 {
			return nil, fmt.Errorf("face index %d: %w", i, ErrTruncated)
		}
		out[i] = [2]uint32{
			binary.LittleEndian.Uint32(rec[0:4]),
			binary.LittleEndian.Uint32(rec[4:8]),
		}
	}
	return out, nil
}

// decodeMeshes assembles block 3 against bone groups, mesh-format
// assignments, face indices, and buffer offsets, producing fully-materialized
// meshes (vertices and faces included).
func decodeMeshes(c *Container, bones []*Bone, materialInstances []*MaterialInstance) ([]*Mesh, error) {
	records := c.Segment0Records(blockMesh)
	if len(records) == 0 {
		return nil, nil
	}

	boneGroups, err := decodeBoneGroups(c, bones)
	if err != nil {
		return nil, err
	}
	if _, err := decodeLevelOfDetail(c); err != nil {
		return nil, err
	}
	faceIndices, err := decodeFaceIndices(c)
	if err != nil {
		return nil, err
	}
	bufferOffsets := decodeBufferOffsets(c)
	if len(bufferOffsets) < 3 {
		return nil, fmt.Errorf("missing face buffer offset: %w", ErrMalformedFormat)
	}
	meshFormats, err := decodeMeshFormatAssignments(c)
	if err != nil {
		return nil, err
	}

	vertexBuf, ok := c.Segment1Block(segment1BlockVertexData)
	if !ok {
		return nil, fmt.Errorf("vertex block not found: %w", ErrTruncated)
	}

	meshes := make([]*Mesh, len(records))
	for i, rec := range records {
		if len(rec) != 48 {
			return nil, fmt.Errorf("mesh %d: %w", i, ErrTruncated)
		}
		alphaEnum := rec[0]
		shadowEnum := rec[1]
		materialInstanceID := binary.LittleEndian.Uint16(rec[4:6])
		boneGroupID := binary.LittleEndian.Uint16(rec[6:8])
		meshFormatID := binary.LittleEndian.Uint16(rec[8:10])
		vertexCount := binary.LittleEndian.Uint16(rec[10:12])
		firstFaceVertexIndex := binary.LittleEndian.Uint32(rec[16:20])
		faceVertexCount := binary.LittleEndian.Uint32(rec[20:24])
		firstFaceIndexID := binary.LittleEndian.Uint64(rec[24:32])

		if int(meshFormatID) >= len(meshFormats) {
			return nil, fmt.Errorf("mesh %d: mesh format %d: %w", i, meshFormatID, ErrInvalidReference)
		}
		format := meshFormats[meshFormatID]

		if int(materialInstanceID) >= len(materialInstances) {
			return nil, fmt.Errorf("mesh %d: material instance %d: %w", i, materialInstanceID, ErrInvalidReference)
		}

		var boneGroup *BoneGroup
		if format.Fields.HasBoneMapping {
			if int(boneGroupID) >= len(boneGroups) {
				return nil, fmt.Errorf("mesh %d: bone group %d: %w", i, boneGroupID, ErrInvalidReference)
			}
			boneGroup = boneGroups[boneGroupID]
		}

		if firstFaceIndexID >= uint64(len(faceIndices)) {
			return nil, fmt.Errorf("mesh %d: face index %d: %w", i, firstFaceIndexID, ErrInvalidReference)
		}
		lod := faceIndices[firstFaceIndexID]

		vertices, err := decodeVertices(vertexBuf, format.Entries, boneGroup, int(vertexCount))
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		faces, err := decodeFaces(vertexBuf, bufferOffsets[2], int(firstFaceVertexIndex)+int(lod[0]), int(lod[1]), vertices)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		_ = faceVertexCount // redundant with lod[1]; carried for on-disk fidelity only

		meshes[i] = &Mesh{
			Vertices:         vertices,
			Faces:            faces,
			BoneGroup:        boneGroup,
			MaterialInstance: materialInstances[materialInstanceID],
			AlphaEnum:        alphaEnum,
			ShadowEnum:       shadowEnum,
			VertexFields:     format.Fields,
		}
	}

	return meshes, nil
}

// encodeBoneGroup emits one block-5 record for a (possibly nil) bone group
// and returns its id plus a per-bone local index map for vertex packing.
func encodeBoneGroup(c *Container, bg *BoneGroup, boneIndices map[*Bone]uint16) (uint16, map[*Bone]int, error) {
	var bones []*Bone
	if bg != nil {
		bones = bg.Bones
	}
	if len(bones) > 32 {
		return 0, nil, fmt.Errorf("bone group with %d bones: %w", len(bones), ErrBoneGroupOverflow)
	}

	rec := make([]byte, 68)
	putU16(rec, 0, boneGroupUnknownConstant)
	putU16(rec, 2, uint16(len(bones)))

	groupIndices := make(map[*Bone]int, len(bones))
	for i, bone := range bones {
		putU16(rec, 4+i*2, boneIndices[bone])
		groupIndices[bone] = i
	}

	id := uint16(len(c.Segment0Records(blockBoneGroup)))
	c.AddSegment0Record(blockBoneGroup, rec)
	return id, groupIndices, nil
}

func encodeFaceIndex(c *Container, faceCount int) uint16 {
	rec := make([]byte, 8)
	putU32(rec, 0, 0)
	putU32(rec, 4, uint32(faceCount*3))
	id := uint16(len(c.Segment0Records(blockFaceIndex)))
	c.AddSegment0Record(blockFaceIndex, rec)
	return id
}

func encodeBufferOffset(c *Container, last bool, length, offset int) uint16 {
	rec := make([]byte, 16)
	if last {
		putU32(rec, 0, 1)
	}
	putU32(rec, 4, uint32(length))
	putU32(rec, 8, uint32(offset))
	id := uint16(len(c.Segment0Records(blockBufferOffset)))
	c.AddSegment0Record(blockBufferOffset, rec)
	return id
}

// encodeMesh emits one mesh's bone group, vertex-format assignment, packed
// vertex data (appended to positionBuf/dataBuf), packed faces (appended to
// faceBuf), and its own block-3 record.
func encodeMesh(
	c *Container,
	mesh *Mesh,
	boneIndices map[*Bone]uint16,
	materialInstanceIndices map[*MaterialInstance]uint16,
	levelsOfDetail int,
	positionBuf, dataBuf, faceBuf *[]byte,
) (uint16, error) {
	boneGroupID, boneGroupIndices, err := encodeBoneGroup(c, mesh.BoneGroup, boneIndices)
	if err != nil {
		return 0, err
	}

	assignmentID, slots, positionStride, dataStride := encodeMeshFormatAssignment(
		c, mesh.VertexFields, uint32(len(*positionBuf)), uint32(len(*dataBuf)),
	)

	vPos, vData, vertexIndices := encodeVertices(mesh.Vertices, slots, positionStride, dataStride, boneGroupIndices)
	*positionBuf = append(*positionBuf, vPos...)
	*dataBuf = append(*dataBuf, vData...)

	firstFaceIndexID := uint64(len(c.Segment0Records(blockFaceIndex)))
	for i := 0; i < levelsOfDetail; i++ {
		encodeFaceIndex(c, len(mesh.Faces))
	}

	firstFaceVertexID := uint32(len(*faceBuf)) / 2
	*faceBuf = append(*faceBuf, packFaces(mesh.Faces, vertexIndices)...)

	rec := make([]byte, 48)
	rec[0] = mesh.AlphaEnum
	rec[1] = mesh.ShadowEnum
	putU16(rec, 4, materialInstanceIndices[mesh.MaterialInstance])
	putU16(rec, 6, boneGroupID)
	putU16(rec, 8, assignmentID)
	putU16(rec, 10, uint16(len(mesh.Vertices)))
	putU32(rec, 16, firstFaceVertexID)
	putU32(rec, 20, uint32(len(mesh.Faces)*3))
	putU64(rec, 24, firstFaceIndexID)

	id := uint16(len(c.Segment0Records(blockMesh)))
	c.AddSegment0Record(blockMesh, rec)
	return id, nil
}

// encodeMeshes emits the single level-of-detail record, every mesh, and the
// three block-14 buffer-offset records that describe the concatenated
// position/data/face buffer finally stored in segment-1 block 2.
func encodeMeshes(c *Container, meshes []*Mesh, boneIndices map[*Bone]uint16, materialInstanceIndices map[*MaterialInstance]uint16) (map[*Mesh]uint16, error) {
	const levelsOfDetail = 1
	lodRec := make([]byte, 16)
	putU32(lodRec, 0, uint32(levelsOfDetail))
	putF32(lodRec, 4, 1.0)
	putF32(lodRec, 8, 1.0)
	putF32(lodRec, 12, 1.0)
	c.AddSegment0Record(blockLevelOfDetail, lodRec)

	var positionBuf, dataBuf, faceBuf []byte
	meshIndices := make(map[*Mesh]uint16, len(meshes))

	for _, mesh := range meshes {
		id, err := encodeMesh(c, mesh, boneIndices, materialInstanceIndices, levelsOfDetail, &positionBuf, &dataBuf, &faceBuf)
		if err != nil {
			return nil, err
		}
		meshIndices[mesh] = id
	}

	encodeBufferOffset(c, false, len(positionBuf), 0)
	encodeBufferOffset(c, false, len(dataBuf), len(positionBuf))
	encodeBufferOffset(c, true, len(faceBuf), len(positionBuf)+len(dataBuf))

	buf := make([]byte, 0, len(positionBuf)+len(dataBuf)+len(faceBuf))
	buf = append(buf, positionBuf...)
	buf = append(buf, dataBuf...)
	buf = append(buf, faceBuf...)
	c.SetSegment1Block(segment1BlockVertexData, buf)

	return meshIndices, nil
}
