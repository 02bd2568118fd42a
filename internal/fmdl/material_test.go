package fmdl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeMaterialInstancesDuplicateTextureRole(t *testing.T) {
	c := newContainer()
	sw := newStringWriter()
	sw.add("")
	shaderID := sw.add("shader")
	techniqueID := sw.add("tech")
	nameID := sw.add("mat")
	roleID := sw.add("Diffuse")

	materialRec := make([]byte, 4)
	putU16(materialRec, 0, shaderID)
	putU16(materialRec, 2, techniqueID)
	c.AddSegment0Record(blockMaterial, materialRec)

	texRec := make([]byte, 4)
	putU16(texRec, 0, sw.add("a.dds"))
	putU16(texRec, 2, sw.add("dir"))
	c.AddSegment0Record(blockTexture, texRec)
	texRec2 := make([]byte, 4)
	putU16(texRec2, 0, sw.add("b.dds"))
	putU16(texRec2, 2, sw.add("dir"))
	c.AddSegment0Record(blockTexture, texRec2)

	assignRec := func(name uint16, ref uint16) []byte {
		rec := make([]byte, 4)
		putU16(rec, 0, name)
		putU16(rec, 2, ref)
		return rec
	}
	c.AddSegment0Record(blockTextureParamAssignment, assignRec(roleID, 0))
	c.AddSegment0Record(blockTextureParamAssignment, assignRec(roleID, 1))

	instRec := make([]byte, 16)
	putU16(instRec, 0, nameID)
	putU16(instRec, 4, 0)
	instRec[6] = 2 // textureCount
	instRec[7] = 0
	putU16(instRec, 8, 0) // firstTextureID
	putU16(instRec, 10, 0)
	c.AddSegment0Record(blockMaterialInstance, instRec)

	sw.flush(c)
	strings, err := decodeStrings(c)
	require.NoError(t, err)

	_, err = decodeMaterialInstances(c, strings)
	require.ErrorIs(t, err, ErrDuplicateAssignment)
}

func TestEncodeDecodeMaterialParameters(t *testing.T) {
	inst := &MaterialInstance{
		Name:      "inst",
		Technique: "tech",
		Shader:    "shader",
		Parameters: []MaterialParameter{
			{Name: "roughness", Values: [4]float32{0.1, 0.2, 0.3, 0.4}},
			{Name: "metalness", Values: [4]float32{1, 1, 1, 1}},
		},
	}

	c := newContainer()
	sw := newStringWriter()
	sw.add("")
	encodeMaterialInstances(c, sw, []*MaterialInstance{inst})
	sw.flush(c)

	strings, err := decodeStrings(c)
	require.NoError(t, err)

	decoded, err := decodeMaterialInstances(c, strings)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Len(t, decoded[0].Parameters, 2)
	require.Equal(t, "roughness", decoded[0].Parameters[0].Name)
	require.Equal(t, [4]float32{0.1, 0.2, 0.3, 0.4}, decoded[0].Parameters[0].Values)
	require.Equal(t, "metalness", decoded[0].Parameters[1].Name)
}
