package fmdl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func meshGroupRecord(nameID uint16, parentID int16) []byte {
	rec := make([]byte, 8)
	putU16(rec, 0, nameID)
	binaryPutInt16(rec, 4, parentID)
	return rec
}

// binaryPutInt16 writes a signed int16 as its little-endian bit pattern.
func binaryPutInt16(buf []byte, pos int, v int16) {
	putU16(buf, pos, uint16(v))
}

func TestDecodeMeshGroupsParentCycle(t *testing.T) {
	c := newContainer()
	c.AddSegment0Record(blockMeshGroup, meshGroupRecord(0, 1))
	c.AddSegment0Record(blockMeshGroup, meshGroupRecord(0, 0))

	_, err := decodeMeshGroups(c, []string{"g"}, nil, nil)
	require.ErrorIs(t, err, ErrParentCycle)
}

func TestDecodeMeshGroupsUnassignedMesh(t *testing.T) {
	c := newContainer()
	c.AddSegment0Record(blockMeshGroup, meshGroupRecord(0, -1))
	// no block-2 assignment at all

	mesh := &Mesh{}
	_, err := decodeMeshGroups(c, []string{"g"}, []BoundingBox{{}}, []*Mesh{mesh})
	require.ErrorIs(t, err, ErrUnassignedMesh)
}

func TestDecodeMeshGroupsDuplicateAssignment(t *testing.T) {
	c := newContainer()
	c.AddSegment0Record(blockMeshGroup, meshGroupRecord(0, -1))
	encodeMeshGroupAssignment(c, 0, 0, 1, 0)
	encodeMeshGroupAssignment(c, 0, 0, 1, 0)

	mesh := &Mesh{}
	_, err := decodeMeshGroups(c, []string{"g"}, []BoundingBox{{}}, []*Mesh{mesh})
	require.ErrorIs(t, err, ErrDuplicateAssignment)
}

func TestEncodeDecodeMeshGroupsRoundTrip(t *testing.T) {
	mesh0, mesh1 := &Mesh{}, &Mesh{}
	root := &MeshGroup{Name: "root", Visible: true, Meshes: []*Mesh{mesh0, mesh1}}

	c := newContainer()
	sw := newStringWriter()
	sw.add("")
	meshIndices := map[*Mesh]uint16{mesh0: 0, mesh1: 1}
	encodeMeshGroups(c, sw, []*MeshGroup{root}, meshIndices)
	sw.flush(c)

	strings, err := decodeStrings(c)
	require.NoError(t, err)
	boundingBoxes, err := decodeBoundingBoxes(c)
	require.NoError(t, err)

	groups, err := decodeMeshGroups(c, strings, boundingBoxes, []*Mesh{mesh0, mesh1})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "root", groups[0].Name)
	require.True(t, groups[0].Visible)
	require.ElementsMatch(t, []*Mesh{mesh0, mesh1}, groups[0].Meshes)
	require.Equal(t, meshGroupUnknownConstant, *groups[0].Unknown)
}

func TestEncodeDecodeMeshGroupsPreservesUnknown(t *testing.T) {
	unknown := int16(7)
	mesh := &Mesh{}
	group := &MeshGroup{Name: "g", Visible: true, Meshes: []*Mesh{mesh}, Unknown: &unknown}

	c := newContainer()
	sw := newStringWriter()
	sw.add("")
	meshIndices := map[*Mesh]uint16{mesh: 0}
	encodeMeshGroups(c, sw, []*MeshGroup{group}, meshIndices)
	sw.flush(c)

	strings, err := decodeStrings(c)
	require.NoError(t, err)
	boundingBoxes, err := decodeBoundingBoxes(c)
	require.NoError(t, err)

	decoded, err := decodeMeshGroups(c, strings, boundingBoxes, []*Mesh{mesh})
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.NotNil(t, decoded[0].Unknown)
	require.Equal(t, int16(7), *decoded[0].Unknown)
}
