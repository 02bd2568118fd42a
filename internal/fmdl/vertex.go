package fmdl

import (
	"encoding/binary"
	"fmt"
	"math"
)

const boneWeightThreshold = 1e-6

// decodeVertices reads vertexCount vertices out of the segment-1 vertex
// buffer at the offsets and strides described by format. boneGroup is nil
// for meshes without bone mapping.
func decodeVertices(buf []byte, format []meshFormatEntry, boneGroup *BoneGroup, vertexCount int) ([]*Vertex, error) {
	vertices := make([]*Vertex, vertexCount)

	for k := 0; k < vertexCount; k++ {
		v := &Vertex{}
		var uv [4]*Vector2
		var boneWeights, boneIndices *[4]float32

		for _, entry := range format {
			pos := int(entry.Offset) + k*int(entry.Stride)
			size := entry.DatumFormat.byteSize()
			if pos < 0 || pos+size > len(buf) {
				return nil, fmt.Errorf("vertex %d datum %s: %w", k, entry.DatumType, ErrTruncated)
			}

			switch entry.DatumFormat {
			case FormatTripleFloat32:
				v.Position = Vector3{
					X: decodeF32(buf, pos),
					Y: decodeF32(buf, pos+4),
					Z: decodeF32(buf, pos+8),
				}
			case FormatQuadFloat16:
				var quad [4]float32
				for i := 0; i < 4; i++ {
					quad[i] = decodeHalf(binary.LittleEndian.Uint16(buf[pos+i*2 : pos+i*2+2]))
				}
				switch entry.DatumType {
				case DatumNormal:
					v.Normal = &Vector4{quad[0], quad[1], quad[2], quad[3]}
				case DatumTangent:
					v.Tangent = &Vector4{quad[0], quad[1], quad[2], quad[3]}
				}
			case FormatDoubleFloat16:
				a := decodeHalf(binary.LittleEndian.Uint16(buf[pos : pos+2]))
				b := decodeHalf(binary.LittleEndian.Uint16(buf[pos+2 : pos+4]))
				if ch := entry.DatumType.uvChannel(); ch >= 0 {
					uv[ch] = &Vector2{U: a, V: b}
				}
			case FormatQuadFloat8:
				var quad [4]float32
				for i := 0; i < 4; i++ {
					quad[i] = float32(buf[pos+i]) / 255.0
				}
				switch entry.DatumType {
				case DatumColor:
					v.Color = &quad
				case DatumBoneWeights:
					boneWeights = &quad
				}
			case FormatQuadInt8:
				var quad [4]float32
				for i := 0; i < 4; i++ {
					quad[i] = float32(buf[pos+i])
				}
				if entry.DatumType == DatumBoneIndices {
					boneIndices = &quad
				}
			default:
				return nil, fmt.Errorf("vertex %d datum %s: %w", k, entry.DatumType, ErrInvalidFormat)
			}
		}

		for ch := 0; ch < 4; ch++ {
			if uv[ch] != nil {
				v.UV = append(v.UV, *uv[ch])
			}
		}

		if boneWeights != nil {
			mapping := make(map[*Bone]float32)
			for i := 0; i < 4; i++ {
				if boneWeights[i] <= boneWeightThreshold {
					continue
				}
				index := int(boneIndices[i])
				if boneGroup == nil || index >= len(boneGroup.Bones) {
					// Out-of-range bone indices occur in real assets; drop
					// the weighting rather than fail the whole mesh.
					continue
				}
				mapping[boneGroup.Bones[index]] = boneWeights[i]
			}
			v.BoneMapping = mapping
		}

		vertices[k] = v
	}

	return vertices, nil
}

func decodeF32(buf []byte, pos int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[pos : pos+4]))
}

// decodeFaces reads faceVertexCount/3 triangles starting at
// firstFaceVertexIndex*2 + faceBufferOffset within buf, indexing into vertices (the owning mesh's own
// vertex slice).
func decodeFaces(buf []byte, faceBufferOffset uint32, firstFaceVertexIndex, faceVertexCount int, vertices []*Vertex) ([]Face, error) {
	faces := make([]Face, 0, faceVertexCount/3)
	for i := firstFaceVertexIndex; i < firstFaceVertexIndex+faceVertexCount; i += 3 {
		pos := int(faceBufferOffset) + i*2
		if pos < 0 || pos+6 > len(buf) {
			return nil, fmt.Errorf("face at index %d: %w", i, ErrTruncated)
		}
		i0 := binary.LittleEndian.Uint16(buf[pos : pos+2])
		i1 := binary.LittleEndian.Uint16(buf[pos+2 : pos+4])
		i2 := binary.LittleEndian.Uint16(buf[pos+4 : pos+6])
		if int(i0) >= len(vertices) || int(i1) >= len(vertices) || int(i2) >= len(vertices) {
			return nil, fmt.Errorf("face at index %d: %w", i, ErrInvalidReference)
		}
		faces = append(faces, Face{V0: vertices[i0], V1: vertices[i1], V2: vertices[i2]})
	}
	return faces, nil
}
