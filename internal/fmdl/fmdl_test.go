package fmdl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteEmptyModel(t *testing.T) {
	model := &Model{}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, model))

	got, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Empty(t, got.Bones)
	require.Empty(t, got.MaterialInstances)
	require.Empty(t, got.Meshes)
	require.Empty(t, got.MeshGroups)
}

func TestReadWriteRoundTrip(t *testing.T) {
	root := &Bone{Name: "root", LocalPosition: Vector4{0, 0, 0, 1}, GlobalPosition: Vector4{0, 0, 0, 1}}
	child := &Bone{Name: "child", Parent: root, LocalPosition: Vector4{1, 0, 0, 1}, GlobalPosition: Vector4{1, 0, 0, 1}}
	root.Children = []*Bone{child}

	material := &MaterialInstance{
		Name:      "mat_skin",
		Technique: "tech_default",
		Shader:    "shader_std",
		Textures: []MaterialTexture{
			{Role: "DiffuseColor", Texture: &Texture{Filename: "skin.dds", Directory: "chars"}},
		},
		Parameters: []MaterialParameter{
			{Name: "specularPower", Values: [4]float32{1, 2, 3, 4}},
		},
	}

	fields := VertexFields{
		HasNormal:      true,
		HasTangent:     true,
		HasColor:       true,
		HasBoneMapping: true,
		UVCount:        2,
		UVEqualities:   map[int][]int{0: {1}, 1: {0}},
	}

	mkVertex := func(pos Vector3) *Vertex {
		return &Vertex{
			Position: pos,
			Normal:   &Vector4{0, 1, 0, 0},
			Tangent:  &Vector4{1, 0, 0, 0},
			Color:    &[4]float32{1, 0, 0, 1},
			UV:       []Vector2{{0.25, 0.5}, {0.25, 0.5}},
			BoneMapping: map[*Bone]float32{
				root:  0.6,
				child: 0.4,
			},
		}
	}
	v0 := mkVertex(Vector3{0, 0, 0})
	v1 := mkVertex(Vector3{1, 0, 0})
	v2 := mkVertex(Vector3{0, 1, 0})

	mesh := &Mesh{
		Vertices:         []*Vertex{v0, v1, v2},
		Faces:            []Face{{V0: v0, V1: v1, V2: v2}},
		BoneGroup:        &BoneGroup{Bones: []*Bone{root, child}},
		MaterialInstance: material,
		AlphaEnum:        1,
		ShadowEnum:       2,
		VertexFields:     fields,
	}

	group := &MeshGroup{Name: "body", Visible: true, Meshes: []*Mesh{mesh}}

	model := &Model{
		Bones:             []*Bone{root, child},
		MaterialInstances: []*MaterialInstance{material},
		Meshes:            []*Mesh{mesh},
		MeshGroups:        []*MeshGroup{group},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, model))

	got, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Len(t, got.Bones, 2)
	require.Equal(t, "root", got.Bones[0].Name)
	require.Equal(t, "child", got.Bones[1].Name)
	require.Nil(t, got.Bones[0].Parent)
	require.Equal(t, got.Bones[0], got.Bones[1].Parent)
	require.Equal(t, Vector4{1, 0, 0, 1}, got.Bones[1].LocalPosition)

	require.Len(t, got.MaterialInstances, 1)
	gotMat := got.MaterialInstances[0]
	require.Equal(t, "mat_skin", gotMat.Name)
	require.Equal(t, "tech_default", gotMat.Technique)
	require.Equal(t, "shader_std", gotMat.Shader)
	require.Len(t, gotMat.Textures, 1)
	require.Equal(t, "DiffuseColor", gotMat.Textures[0].Role)
	require.Equal(t, "skin.dds", gotMat.Textures[0].Texture.Filename)
	require.Len(t, gotMat.Parameters, 1)
	require.Equal(t, [4]float32{1, 2, 3, 4}, gotMat.Parameters[0].Values)

	require.Len(t, got.Meshes, 1)
	gotMesh := got.Meshes[0]
	require.Equal(t, uint8(1), gotMesh.AlphaEnum)
	require.Equal(t, uint8(2), gotMesh.ShadowEnum)
	require.Len(t, gotMesh.Vertices, 3)
	require.Len(t, gotMesh.Faces, 1)

	for i, wantPos := range []Vector3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		gv := gotMesh.Vertices[i]
		require.Equal(t, wantPos, gv.Position)
		require.NotNil(t, gv.Normal)
		require.InDelta(t, 1.0, gv.Normal.Y, 0.01)
		require.NotNil(t, gv.Tangent)
		require.InDelta(t, 1.0, gv.Tangent.X, 0.01)
		require.NotNil(t, gv.Color)
		require.InDelta(t, 1.0, gv.Color[0], 1.0/255)
		require.Len(t, gv.UV, 2)
		require.Equal(t, gv.UV[0], gv.UV[1], "aliased UV channels must decode identically")
		require.InDelta(t, 0.25, gv.UV[0].U, 0.01)

		var rootWeight, childWeight float32
		for bone, weight := range gv.BoneMapping {
			if bone.Name == "root" {
				rootWeight = weight
			} else if bone.Name == "child" {
				childWeight = weight
			}
		}
		require.InDelta(t, 0.6, rootWeight, 1.0/255)
		require.InDelta(t, 0.4, childWeight, 1.0/255)
	}

	require.Len(t, got.MeshGroups, 1)
	require.Equal(t, "body", got.MeshGroups[0].Name)
	require.True(t, got.MeshGroups[0].Visible)
	require.Equal(t, gotMesh, got.MeshGroups[0].Meshes[0])
}

func TestReadWithResultSurfacesClamp(t *testing.T) {
	overrun := uint32(1 << 20)
	data := buildRawContainer(t, nil, nil, &overrun)

	result, err := ReadWithResult(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, result.Clamped)
	require.NotNil(t, result.Model)

	plain, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, plain)
}

func TestWriteEmptyStringIsAlwaysFirst(t *testing.T) {
	model := &Model{
		Bones: []*Bone{{Name: "only"}},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, model))

	c, _, err := ReadContainer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	strings, err := decodeStrings(c)
	require.NoError(t, err)
	require.NotEmpty(t, strings)
	require.Equal(t, "", strings[0])
}
