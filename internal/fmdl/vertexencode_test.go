package fmdl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCanonicalFormatUVAliasing(t *testing.T) {
	fields := VertexFields{
		UVCount:      2,
		UVEqualities: map[int][]int{0: {1}, 1: {0}},
	}

	slots, _, dataStride, _ := buildCanonicalFormat(fields)

	var uv0, uv1 *vertexFormatSlot
	for i := range slots {
		switch slots[i].DatumType {
		case DatumUV0:
			uv0 = &slots[i]
		case DatumUV1:
			uv1 = &slots[i]
		}
	}
	require.NotNil(t, uv0)
	require.NotNil(t, uv1)
	require.Equal(t, uv0.Offset, uv1.Offset, "aliased UV channels must share the same on-disk offset")
	// Only one 4-byte slot was actually allocated for both channels.
	require.Equal(t, uint32(4), dataStride)
}

func TestBuildCanonicalFormatDistinctUVOffsets(t *testing.T) {
	fields := VertexFields{
		UVCount:      2,
		UVEqualities: map[int][]int{0: nil, 1: nil},
	}

	slots, _, dataStride, _ := buildCanonicalFormat(fields)

	var uv0, uv1 *vertexFormatSlot
	for i := range slots {
		switch slots[i].DatumType {
		case DatumUV0:
			uv0 = &slots[i]
		case DatumUV1:
			uv1 = &slots[i]
		}
	}
	require.NotEqual(t, uv0.Offset, uv1.Offset)
	require.Equal(t, uint32(8), dataStride)
}

func TestEncodeVerticesBoneWeightTruncation(t *testing.T) {
	bones := make([]*Bone, 5)
	boneGroupIndices := make(map[*Bone]int, 5)
	for i := range bones {
		bones[i] = &Bone{Name: "b"}
		boneGroupIndices[bones[i]] = i
	}

	v := &Vertex{
		BoneMapping: map[*Bone]float32{
			bones[0]: 0.4,
			bones[1]: 0.3,
			bones[2]: 0.2,
			bones[3]: 0.05,
			bones[4]: 0.05,
		},
	}

	fields := VertexFields{HasBoneMapping: true, UVEqualities: map[int][]int{}}
	slots, positionStride, dataStride, _ := buildCanonicalFormat(fields)

	_, dataBuf, _ := encodeVertices([]*Vertex{v}, slots, positionStride, dataStride, boneGroupIndices)

	// boneWeights occupies the first 4 bytes of the data buffer: sorted
	// descending, truncated to 4 entries, packed as floor(w*255).
	require.Equal(t, []byte{102, 76, 51, 12}, dataBuf[0:4])
}

func TestQuadFloat8ClampsOutOfRange(t *testing.T) {
	require.Equal(t, byte(0), quadFloat8(-1.0))
	require.Equal(t, byte(255), quadFloat8(2.0))
	require.Equal(t, byte(0), quadFloat8(0))
	require.Equal(t, byte(255), quadFloat8(1))
}
