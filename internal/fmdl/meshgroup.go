package fmdl

import (
	"encoding/binary"
	"fmt"
)

const meshGroupUnknownConstant int16 = -1

type rawMeshGroupAssignment struct {
	meshGroupID   uint16
	firstMeshID   uint16
	meshCount     uint16
	boundingBoxID uint16
}

func decodeMeshGroupAssignments(c *Container) []rawMeshGroupAssignment {
	records := c.Segment0Records(blockMeshGroupAssignment)
	out := make([]rawMeshGroupAssignment, len(records))
	for i, rec := range records {
		out[i] = rawMeshGroupAssignment{
			meshGroupID:   binary.LittleEndian.Uint16(rec[4:6]),
			meshCount:     binary.LittleEndian.Uint16(rec[6:8]),
			firstMeshID:   binary.LittleEndian.Uint16(rec[8:10]),
			boundingBoxID: binary.LittleEndian.Uint16(rec[10:12]),
		}
	}
	return out
}

// decodeMeshGroups resolves block 1 into a mesh-group tree (parent/children,
// cycle-checked like bones) and then applies block-2 assignments to bind
// each mesh to exactly one group and each group to its bounding box.
func decodeMeshGroups(c *Container, strings []string, boundingBoxes []BoundingBox, meshes []*Mesh) ([]*MeshGroup, error) {
	records := c.Segment0Records(blockMeshGroup)
	groups := make([]*MeshGroup, len(records))
	parentIDs := make([]int16, len(records))

	for i, rec := range records {
		if len(rec) != 8 {
			return nil, fmt.Errorf("mesh group %d: %w", i, ErrTruncated)
		}
		nameID := binary.LittleEndian.Uint16(rec[0:2])
		invisible := binary.LittleEndian.Uint16(rec[2:4])
		parentID := int16(binary.LittleEndian.Uint16(rec[4:6]))
		unknown := int16(binary.LittleEndian.Uint16(rec[6:8]))

		if int(nameID) >= len(strings) {
			return nil, fmt.Errorf("mesh group %d: name: %w", i, ErrInvalidReference)
		}

		groups[i] = &MeshGroup{
			Name:    strings[nameID],
			Visible: invisible == 0,
			Unknown: &unknown,
		}
		parentIDs[i] = parentID
	}

	for i, group := range groups {
		parentID := parentIDs[i]
		if parentID < 0 {
			continue
		}
		if int(parentID) >= len(groups) {
			return nil, fmt.Errorf("mesh group %d: parent %d: %w", i, parentID, ErrInvalidReference)
		}
		group.Parent = groups[parentID]
		groups[parentID].Children = append(groups[parentID].Children, group)
	}

	for _, group := range groups {
		seen := make(map[*MeshGroup]bool)
		for g := group.Parent; g != nil; g = g.Parent {
			if seen[g] {
				return nil, fmt.Errorf("mesh group %q: %w", group.Name, ErrParentCycle)
			}
			seen[g] = true
		}
	}

	assignments := decodeMeshGroupAssignments(c)
	meshGroupOf := make([]int, len(meshes))
	for i := range meshGroupOf {
		meshGroupOf[i] = -1
	}

	for a, assignment := range assignments {
		if int(assignment.meshGroupID) >= len(groups) {
			return nil, fmt.Errorf("mesh group assignment %d: group %d: %w", a, assignment.meshGroupID, ErrInvalidReference)
		}
		end := int(assignment.firstMeshID) + int(assignment.meshCount)
		if end > len(meshes) {
			return nil, fmt.Errorf("mesh group assignment %d: mesh range %d..%d: %w", a, assignment.firstMeshID, end, ErrInvalidReference)
		}
		if int(assignment.boundingBoxID) >= len(boundingBoxes) {
			return nil, fmt.Errorf("mesh group assignment %d: bounding box %d: %w", a, assignment.boundingBoxID, ErrInvalidReference)
		}

		for i := int(assignment.firstMeshID); i < end; i++ {
			if meshGroupOf[i] != -1 {
				return nil, fmt.Errorf("mesh %d: %w", i, ErrDuplicateAssignment)
			}
			meshGroupOf[i] = int(assignment.meshGroupID)
		}

		group := groups[assignment.meshGroupID]
		bb := boundingBoxes[assignment.boundingBoxID]
		if group.BoundingBox != nil && *group.BoundingBox != bb {
			return nil, fmt.Errorf("mesh group %d: %w", assignment.meshGroupID, ErrDuplicateAssignment)
		}
		group.BoundingBox = &bb
	}

	for i, gid := range meshGroupOf {
		if gid == -1 {
			return nil, fmt.Errorf("mesh %d: %w", i, ErrUnassignedMesh)
		}
	}
	for i, gid := range meshGroupOf {
		groups[gid].Meshes = append(groups[gid].Meshes, meshes[i])
	}

	return groups, nil
}

func encodeMeshGroupAssignment(c *Container, meshGroupID, firstMeshID, meshCount, boundingBoxID uint16) {
	rec := make([]byte, 32)
	putU16(rec, 4, meshGroupID)
	putU16(rec, 6, meshCount)
	putU16(rec, 8, firstMeshID)
	putU16(rec, 10, boundingBoxID)
	c.AddSegment0Record(blockMeshGroupAssignment, rec)
}

// encodeMeshGroups assigns a stable index to every group (so parent refs
// resolve within the same pass, mirroring encodeBones) and emits block-1
// records plus the block-2 assignments that bind each group's meshes and
// bounding box.
func encodeMeshGroups(c *Container, sw *stringWriter, groups []*MeshGroup, meshIndices map[*Mesh]uint16) {
	indices := make(map[*MeshGroup]uint16, len(groups))
	for i, group := range groups {
		indices[group] = uint16(i)
	}

	for _, group := range groups {
		parentID := int16(-1)
		if group.Parent != nil {
			if id, ok := indices[group.Parent]; ok {
				parentID = int16(id)
			}
		}

		invisible := uint16(0)
		if !group.Visible {
			invisible = 1
		}

		unknown := meshGroupUnknownConstant
		if group.Unknown != nil {
			unknown = *group.Unknown
		}

		rec := make([]byte, 8)
		putU16(rec, 0, sw.add(group.Name))
		putU16(rec, 2, invisible)
		binary.LittleEndian.PutUint16(rec[4:6], uint16(parentID))
		putU16(rec, 6, uint16(unknown))
		c.AddSegment0Record(blockMeshGroup, rec)

		groupID := indices[group]
		var boundingBoxID uint16
		if group.BoundingBox != nil {
			boundingBoxID = encodeBoundingBox(c, *group.BoundingBox)
		} else {
			boundingBoxID = encodeBoundingBox(c, BoundingBox{})
		}

		type run struct{ first, count uint16 }
		var runs []run
		for _, mesh := range group.Meshes {
			meshID := meshIndices[mesh]
			if len(runs) > 0 && runs[len(runs)-1].first+runs[len(runs)-1].count == meshID {
				runs[len(runs)-1].count++
			} else {
				runs = append(runs, run{first: meshID, count: 1})
			}
		}
		if len(runs) == 0 {
			encodeMeshGroupAssignment(c, groupID, 0, 0, boundingBoxID)
		} else {
			for _, r := range runs {
				encodeMeshGroupAssignment(c, groupID, r.first, r.count, boundingBoxID)
			}
		}
	}
}
