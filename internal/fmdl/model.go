package fmdl

// Vector2, Vector3 and Vector4 are plain float32 tuples. Field names follow
// the role they play in the container (u/v for texture coordinates, x/y/z/w
// for positions and packed attribute quads).
type Vector2 struct{ U, V float32 }

type Vector3 struct{ X, Y, Z float32 }

type Vector4 struct{ X, Y, Z, W float32 }

// BoundingBox stores max before min, matching the on-disk field order.
type BoundingBox struct {
	Max Vector4
	Min Vector4
}

// Bone is a node in the skeleton tree. Parent/Children are derived: Parent is
// authoritative, Children is rebuilt from it on read and ignored on write.
type Bone struct {
	Name     string
	Parent   *Bone
	Children []*Bone

	BoundingBox     BoundingBox
	LocalPosition   Vector4
	GlobalPosition  Vector4

	// Unknown is the bone record's 8 opaque bytes. nil means "not set by a
	// reader" — the writer then emits zero. (The separate u16 before it is
	// always written as the constant 1 and is not kept on read.)
	Unknown *uint64
}

// BoneGroup is a per-mesh ordered set of up to 32 bones, indexed by the
// vertex bone-index bytes.
type BoneGroup struct {
	Bones []*Bone
}

// Texture is a filename/directory pair; this codec never opens the file it
// names.
type Texture struct {
	Filename  string
	Directory string
}

// MaterialTexture binds a texture to a named role (e.g. "DiffuseColor")
// within one MaterialInstance.
type MaterialTexture struct {
	Role    string
	Texture *Texture
}

// MaterialParameter binds a named shader parameter to its four float values.
type MaterialParameter struct {
	Name   string
	Values [4]float32
}

// MaterialInstance is a named combination of technique/shader plus the
// textures and scalar parameters it binds.
type MaterialInstance struct {
	Name       string
	Technique  string
	Shader     string
	Textures   []MaterialTexture
	Parameters []MaterialParameter
}

// Vertex holds one mesh vertex's decoded attributes. Position is always
// present; every other field is optional per the mesh's VertexFields.
type Vertex struct {
	Position Vector3

	Normal  *Vector4
	Tangent *Vector4
	Color   *[4]float32

	// UV holds between 0 and 4 coordinates, uv[0] first. Presence is
	// monotonic: uv[i] implies uv[j] for all j < i.
	UV []Vector2

	// BoneMapping is nil for an unskinned vertex, and a (possibly empty)
	// map for a skinned one — an empty map still marks the vertex as
	// skinned even if every weight was dropped for being out of range or
	// below the weight threshold.
	BoneMapping map[*Bone]float32
}

// Face is an ordered triple of vertices, all owned by the same Mesh.
type Face struct {
	V0, V1, V2 *Vertex
}

// VertexFields summarizes which optional attributes a Mesh's vertices carry.
type VertexFields struct {
	HasNormal      bool
	HasTangent     bool
	HasColor       bool
	HasBoneMapping bool
	UVCount        int

	// UVEqualities[i] lists the other UV channels that share on-disk
	// storage with channel i (UV aliasing, spec §4.6).
	UVEqualities map[int][]int
}

// Mesh is one renderable piece of geometry.
type Mesh struct {
	Vertices []*Vertex
	Faces    []Face

	BoneGroup        *BoneGroup
	MaterialInstance *MaterialInstance

	AlphaEnum  uint8
	ShadowEnum uint8

	VertexFields VertexFields
}

// MeshGroup is a node in the mesh-group tree, analogous to Bone.
type MeshGroup struct {
	Name     string
	Parent   *MeshGroup
	Children []*MeshGroup

	Meshes      []*Mesh
	BoundingBox *BoundingBox
	Visible     bool

	// Unknown is the mesh-group record's 2 opaque bytes. nil means "not set
	// by a reader" — the writer then emits the reference format's constant
	// (-1).
	Unknown *int16
}

// Model is the full in-memory semantic graph produced by Read and consumed
// by Write.
type Model struct {
	Bones             []*Bone
	MaterialInstances []*MaterialInstance
	Meshes            []*Mesh
	MeshGroups        []*MeshGroup
}
