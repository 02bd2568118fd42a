package fmdl

// segment0RecordSize maps a segment-0 block-id to its fixed record size in
// bytes. Block ids absent from this table are unknown and, on read, are
// skipped rather than rejected (see container.go).
var segment0RecordSize = map[uint16]int{
	0:  48, // bone
	1:  8,  // mesh group
	2:  32, // mesh-group -> mesh range assignment
	3:  48, // mesh
	4:  16, // material instance
	5:  68, // bone group (header + up to 32 x u16)
	6:  4,  // texture
	7:  4,  // texture/material-parameter assignment
	8:  4,  // material
	9:  8,  // mesh-format assignment
	10: 8,  // mesh format
	11: 4,  // vertex format
	12: 8,  // string descriptor
	13: 32, // bounding box
	14: 16, // buffer offset
	16: 16,  // level-of-detail
	17: 8,   // face-index
	18: 8,   // reserved/unknown
	20: 128, // reserved/unknown
}

// Segment-0 block ids used throughout the codec.
const (
	blockBone                   = 0
	blockMeshGroup               = 1
	blockMeshGroupAssignment     = 2
	blockMesh                    = 3
	blockMaterialInstance        = 4
	blockBoneGroup               = 5
	blockTexture                 = 6
	blockTextureParamAssignment  = 7
	blockMaterial                = 8
	blockMeshFormatAssignment    = 9
	blockMeshFormat              = 10
	blockVertexFormat            = 11
	blockStringDescriptor        = 12
	blockBoundingBox             = 13
	blockBufferOffset            = 14
	blockLevelOfDetail           = 16
	blockFaceIndex               = 17
	blockReserved18              = 18
	blockReserved20              = 20
)

// Segment-1 block ids.
const (
	segment1BlockReserved1  = 1
	segment1BlockVertexData = 2
	segment1BlockStringPool = 3
)

// VertexDatumType identifies the semantic role of one vertex-format entry.
type VertexDatumType uint8

const (
	DatumPosition    VertexDatumType = 0
	DatumBoneWeights VertexDatumType = 1
	DatumNormal      VertexDatumType = 2
	DatumColor       VertexDatumType = 3
	DatumBoneIndices VertexDatumType = 7
	DatumUV0         VertexDatumType = 8
	DatumUV1         VertexDatumType = 9
	DatumUV2         VertexDatumType = 10
	DatumUV3         VertexDatumType = 11
	DatumTangent     VertexDatumType = 14
)

func (t VertexDatumType) String() string {
	switch t {
	case DatumPosition:
		return "position"
	case DatumBoneWeights:
		return "boneWeights"
	case DatumNormal:
		return "normal"
	case DatumColor:
		return "color"
	case DatumBoneIndices:
		return "boneIndices"
	case DatumUV0:
		return "uv0"
	case DatumUV1:
		return "uv1"
	case DatumUV2:
		return "uv2"
	case DatumUV3:
		return "uv3"
	case DatumTangent:
		return "tangent"
	default:
		return "unknownDatumType"
	}
}

// valid reports whether t is one of the enumerated vertex datum types.
func (t VertexDatumType) valid() bool {
	switch t {
	case DatumPosition, DatumBoneWeights, DatumNormal, DatumColor,
		DatumBoneIndices, DatumUV0, DatumUV1, DatumUV2, DatumUV3, DatumTangent:
		return true
	default:
		return false
	}
}

// uvChannel returns the UV channel index (0-3) for a uv0..uv3 datum type, or
// -1 if t is not a UV datum type.
func (t VertexDatumType) uvChannel() int {
	switch t {
	case DatumUV0:
		return 0
	case DatumUV1:
		return 1
	case DatumUV2:
		return 2
	case DatumUV3:
		return 3
	default:
		return -1
	}
}

// VertexDatumFormat identifies the on-disk packing of one vertex-format
// entry's bytes.
type VertexDatumFormat uint8

const (
	FormatTripleFloat32 VertexDatumFormat = 1
	FormatQuadFloat16   VertexDatumFormat = 6
	FormatDoubleFloat16 VertexDatumFormat = 7
	FormatQuadFloat8    VertexDatumFormat = 8
	FormatQuadInt8      VertexDatumFormat = 9
)

func (f VertexDatumFormat) String() string {
	switch f {
	case FormatTripleFloat32:
		return "tripleFloat32"
	case FormatQuadFloat16:
		return "quadFloat16"
	case FormatDoubleFloat16:
		return "doubleFloat16"
	case FormatQuadFloat8:
		return "quadFloat8"
	case FormatQuadInt8:
		return "quadInt8"
	default:
		return "unknownDatumFormat"
	}
}

// byteSize returns the on-disk size in bytes of one value packed in format f,
// or 0 if f is not one of the enumerated formats.
func (f VertexDatumFormat) byteSize() int {
	switch f {
	case FormatTripleFloat32:
		return 12
	case FormatQuadFloat16:
		return 8
	case FormatDoubleFloat16:
		return 4
	case FormatQuadFloat8:
		return 4
	case FormatQuadInt8:
		return 4
	default:
		return 0
	}
}

// requiredFormat returns the single datumFormat that the reference format
// binds to datum type t, and whether t has such a binding at all (position
// through tangent all do; an unrecognized t does not).
func requiredFormat(t VertexDatumType) (VertexDatumFormat, bool) {
	switch t {
	case DatumPosition:
		return FormatTripleFloat32, true
	case DatumNormal, DatumTangent:
		return FormatQuadFloat16, true
	case DatumColor, DatumBoneWeights:
		return FormatQuadFloat8, true
	case DatumBoneIndices:
		return FormatQuadInt8, true
	case DatumUV0, DatumUV1, DatumUV2, DatumUV3:
		return FormatDoubleFloat16, true
	default:
		return 0, false
	}
}
