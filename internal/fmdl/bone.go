package fmdl

import (
	"encoding/binary"
	"fmt"
)

const boneUnknownConstant uint16 = 1

// decodeBones resolves segment-0 block 0 into a bone tree: a first pass
// materializes every bone's scalar fields, a second pass wires parent/child
// links, and a third pass rejects any parent cycle.
func decodeBones(c *Container, strings []string, boundingBoxes []BoundingBox) ([]*Bone, error) {
	records := c.Segment0Records(blockBone)
	bones := make([]*Bone, len(records))
	parentIDs := make([]int16, len(records))

	for i, rec := range records {
		if len(rec) != 48 {
			return nil, fmt.Errorf("bone %d: %w", i, ErrTruncated)
		}
		nameStringID := binary.LittleEndian.Uint16(rec[0:2])
		parentBoneID := int16(binary.LittleEndian.Uint16(rec[2:4]))
		boundingBoxID := binary.LittleEndian.Uint16(rec[4:6])
		// rec[6:8] is an unknown u16, always rewritten as a constant on write.
		padding := binary.LittleEndian.Uint64(rec[8:16])

		if int(nameStringID) >= len(strings) {
			return nil, fmt.Errorf("bone %d: name string %d: %w", i, nameStringID, ErrInvalidReference)
		}
		if int(boundingBoxID) >= len(boundingBoxes) {
			return nil, fmt.Errorf("bone %d: bounding box %d: %w", i, boundingBoxID, ErrInvalidReference)
		}

		unknown := padding
		bones[i] = &Bone{
			Name:        strings[nameStringID],
			BoundingBox: boundingBoxes[boundingBoxID],
			LocalPosition: Vector4{
				decodeF32(rec, 16), decodeF32(rec, 20), decodeF32(rec, 24), decodeF32(rec, 28),
			},
			GlobalPosition: Vector4{
				decodeF32(rec, 32), decodeF32(rec, 36), decodeF32(rec, 40), decodeF32(rec, 44),
			},
			Unknown: &unknown,
		}
		parentIDs[i] = parentBoneID
	}

	for i, bone := range bones {
		parentID := parentIDs[i]
		if parentID < 0 {
			continue
		}
		if int(parentID) >= len(bones) {
			return nil, fmt.Errorf("bone %d: parent %d: %w", i, parentID, ErrInvalidReference)
		}
		bone.Parent = bones[parentID]
		bones[parentID].Children = append(bones[parentID].Children, bone)
	}

	for _, bone := range bones {
		seen := make(map[*Bone]bool)
		for b := bone.Parent; b != nil; b = b.Parent {
			if seen[b] {
				return nil, fmt.Errorf("bone %q: %w", bone.Name, ErrParentCycle)
			}
			seen[b] = true
		}
	}

	return bones, nil
}

// encodeBones assigns a stable index to every bone (in slice order, so that
// later parent references resolve within the same pass) and emits block-0
// records. It returns the assigned indices keyed by bone pointer.
func encodeBones(c *Container, sw *stringWriter, bones []*Bone) map[*Bone]uint16 {
	indices := make(map[*Bone]uint16, len(bones))
	for i, bone := range bones {
		indices[bone] = uint16(i)
	}

	for _, bone := range bones {
		parentID := int16(-1)
		if bone.Parent != nil {
			if id, ok := indices[bone.Parent]; ok {
				parentID = int16(id)
			}
		}

		unknown := uint64(0)
		if bone.Unknown != nil {
			unknown = *bone.Unknown
		}

		rec := make([]byte, 48)
		putU16(rec, 0, sw.add(bone.Name))
		binary.LittleEndian.PutUint16(rec[2:4], uint16(parentID))
		putU16(rec, 4, encodeBoundingBox(c, bone.BoundingBox))
		putU16(rec, 6, boneUnknownConstant)
		putU64(rec, 8, unknown)
		putF32(rec, 16, bone.LocalPosition.X)
		putF32(rec, 20, bone.LocalPosition.Y)
		putF32(rec, 24, bone.LocalPosition.Z)
		putF32(rec, 28, bone.LocalPosition.W)
		putF32(rec, 32, bone.GlobalPosition.X)
		putF32(rec, 36, bone.GlobalPosition.Y)
		putF32(rec, 40, bone.GlobalPosition.Z)
		putF32(rec, 44, bone.GlobalPosition.W)
		c.AddSegment0Record(blockBone, rec)
	}

	return indices
}
