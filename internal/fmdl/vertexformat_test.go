package fmdl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveVertexFieldsUVGapRejected(t *testing.T) {
	entries := []meshFormatEntry{
		{DatumType: DatumPosition, DatumFormat: FormatTripleFloat32},
		{DatumType: DatumUV1, DatumFormat: FormatDoubleFloat16, Offset: 0},
	}
	_, err := deriveVertexFields(entries)
	require.ErrorIs(t, err, ErrMalformedFormat)
}

func TestDeriveVertexFieldsBoneWeightsRequireIndices(t *testing.T) {
	entries := []meshFormatEntry{
		{DatumType: DatumPosition, DatumFormat: FormatTripleFloat32},
		{DatumType: DatumBoneWeights, DatumFormat: FormatQuadFloat8, Offset: 0},
	}
	_, err := deriveVertexFields(entries)
	require.ErrorIs(t, err, ErrMalformedFormat)
}

func TestDeriveVertexFieldsDuplicateDatumType(t *testing.T) {
	entries := []meshFormatEntry{
		{DatumType: DatumPosition, DatumFormat: FormatTripleFloat32},
		{DatumType: DatumPosition, DatumFormat: FormatTripleFloat32},
	}
	_, err := deriveVertexFields(entries)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDeriveVertexFieldsUVEqualities(t *testing.T) {
	entries := []meshFormatEntry{
		{DatumType: DatumPosition, DatumFormat: FormatTripleFloat32},
		{DatumType: DatumUV0, DatumFormat: FormatDoubleFloat16, Offset: 100},
		{DatumType: DatumUV1, DatumFormat: FormatDoubleFloat16, Offset: 100},
	}
	fields, err := deriveVertexFields(entries)
	require.NoError(t, err)
	require.Equal(t, 2, fields.UVCount)
	require.Equal(t, []int{1}, fields.UVEqualities[0])
	require.Equal(t, []int{0}, fields.UVEqualities[1])
}

func TestDecodeVertexFormatsRejectsWrongBinding(t *testing.T) {
	c := newContainer()
	rec := make([]byte, 4)
	rec[0] = byte(DatumPosition)
	rec[1] = byte(FormatQuadFloat8) // position must be tripleFloat32
	c.AddSegment0Record(blockVertexFormat, rec)

	_, err := decodeVertexFormats(c)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecodeMeshFormatAssignmentOutOfBounds(t *testing.T) {
	c := newContainer()
	rec := make([]byte, 8)
	rec[0] = 1 // meshFormatEntryCount
	putU16(rec, 4, 0)
	putU16(rec, 6, 0)
	c.AddSegment0Record(blockMeshFormatAssignment, rec)

	_, err := decodeMeshFormatAssignments(c)
	require.ErrorIs(t, err, ErrInvalidReference)
}
