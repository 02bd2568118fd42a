package fmdl

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func boneRecord(nameID uint16, parentID int16, boundingBoxID uint16) []byte {
	rec := make([]byte, 48)
	binary.LittleEndian.PutUint16(rec[0:2], nameID)
	binary.LittleEndian.PutUint16(rec[2:4], uint16(parentID))
	binary.LittleEndian.PutUint16(rec[4:6], boundingBoxID)
	return rec
}

func TestDecodeBonesParentCycle(t *testing.T) {
	c := newContainer()
	c.AddSegment0Record(blockBone, boneRecord(0, 1, 0)) // bone 0's parent is bone 1
	c.AddSegment0Record(blockBone, boneRecord(0, 0, 0)) // bone 1's parent is bone 0

	strings := []string{"root"}
	boundingBoxes := []BoundingBox{{}}

	_, err := decodeBones(c, strings, boundingBoxes)
	require.ErrorIs(t, err, ErrParentCycle)
}

func TestDecodeBonesTree(t *testing.T) {
	c := newContainer()
	c.AddSegment0Record(blockBone, boneRecord(0, -1, 0)) // root
	c.AddSegment0Record(blockBone, boneRecord(1, 0, 0))  // child of root

	strings := []string{"root", "child"}
	boundingBoxes := []BoundingBox{{}}

	bones, err := decodeBones(c, strings, boundingBoxes)
	require.NoError(t, err)
	require.Len(t, bones, 2)
	require.Nil(t, bones[0].Parent)
	require.Equal(t, bones[0], bones[1].Parent)
	require.Equal(t, []*Bone{bones[1]}, bones[0].Children)
}

func TestDecodeBonesInvalidParentReference(t *testing.T) {
	c := newContainer()
	c.AddSegment0Record(blockBone, boneRecord(0, 5, 0))

	_, err := decodeBones(c, []string{"root"}, []BoundingBox{{}})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestEncodeDecodeBonesRoundTrip(t *testing.T) {
	unknown := uint64(42)
	bones := []*Bone{
		{Name: "root", LocalPosition: Vector4{1, 2, 3, 4}, GlobalPosition: Vector4{5, 6, 7, 8}},
		{Name: "child", LocalPosition: Vector4{9, 10, 11, 12}, Unknown: &unknown},
	}
	bones[1].Parent = bones[0]
	bones[0].Children = []*Bone{bones[1]}

	c := newContainer()
	sw := newStringWriter()
	sw.add("") // empty-string-first invariant
	indices := encodeBones(c, sw, bones)
	sw.flush(c)
	require.Equal(t, uint16(0), indices[bones[0]])
	require.Equal(t, uint16(1), indices[bones[1]])

	strings, err := decodeStrings(c)
	require.NoError(t, err)
	require.Equal(t, "", strings[0])

	boundingBoxes, err := decodeBoundingBoxes(c)
	require.NoError(t, err)

	decoded, err := decodeBones(c, strings, boundingBoxes)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, "root", decoded[0].Name)
	require.Equal(t, "child", decoded[1].Name)
	require.Equal(t, decoded[0], decoded[1].Parent)
	require.Equal(t, Vector4{9, 10, 11, 12}, decoded[1].LocalPosition)
	require.Equal(t, uint64(42), *decoded[1].Unknown)
	require.Equal(t, uint64(0), *decoded[0].Unknown)
}
