package fmdl

import "io"

// ReadResult is the outcome of ReadWithResult: the assembled Model plus the
// liberal-reader signals a caller may want to surface, such as whether the
// segment-1 block-3 (string pool) length had to be clamped to the remaining
// file length on this particular file.
type ReadResult struct {
	Model   *Model
	Clamped bool
}

// Read parses the framed FMDL container and assembles it into a semantic
// Model, in the bottom-up order spec.md §4.9 mandates: strings and bounding
// boxes first, then bones, then materials, then meshes (which need bone
// groups and vertex formats resolved), then mesh groups (which need meshes
// to exist so they can be assigned).
//
// Read discards the string-pool clamp signal; callers that need to report it
// should use ReadWithResult instead.
func Read(r io.Reader) (*Model, error) {
	res, err := ReadWithResult(r)
	if err != nil {
		return nil, err
	}
	return res.Model, nil
}

// ReadWithResult is Read, but also reports whether the liberal reader had to
// clamp the string pool's declared length to the remaining file length.
// spec.md §9 calls this out as the one known-bad producer quirk worth
// logging; callers such as the CLIs print it, Read itself stays silent.
func ReadWithResult(r io.Reader) (*ReadResult, error) {
	c, clamped, err := ReadContainer(r)
	if err != nil {
		return nil, err
	}
	m, err := buildModel(c)
	if err != nil {
		return nil, err
	}
	return &ReadResult{Model: m, Clamped: clamped}, nil
}

func buildModel(c *Container) (*Model, error) {
	strings, err := decodeStrings(c)
	if err != nil {
		return nil, err
	}
	boundingBoxes, err := decodeBoundingBoxes(c)
	if err != nil {
		return nil, err
	}
	bones, err := decodeBones(c, strings, boundingBoxes)
	if err != nil {
		return nil, err
	}
	materialInstances, err := decodeMaterialInstances(c, strings)
	if err != nil {
		return nil, err
	}
	meshes, err := decodeMeshes(c, bones, materialInstances)
	if err != nil {
		return nil, err
	}
	meshGroups, err := decodeMeshGroups(c, strings, boundingBoxes, meshes)
	if err != nil {
		return nil, err
	}

	return &Model{
		Bones:             bones,
		MaterialInstances: materialInstances,
		Meshes:            meshes,
		MeshGroups:        meshGroups,
	}, nil
}

// Write serializes a Model into the framed FMDL container format, in the
// top-down order spec.md §4.10 mandates: the compatibility empty string
// first, then bones (indices pre-assigned so parent refs resolve), then
// material instances, then meshes (which grow the three shared vertex/face
// buffers and finish with the block-14 buffer-offset records), then mesh
// groups, then the two opaque trailing blocks legacy consumers expect.
func Write(w io.Writer, m *Model) error {
	c := newContainer()
	sw := newStringWriter()
	sw.add("")

	boneIndices := encodeBones(c, sw, m.Bones)
	materialInstanceIndices := encodeMaterialInstances(c, sw, m.MaterialInstances)

	meshIndices, err := encodeMeshes(c, m.Meshes, boneIndices, materialInstanceIndices)
	if err != nil {
		return err
	}

	encodeMeshGroups(c, sw, m.MeshGroups, meshIndices)

	// Undocumented but required for interoperability with legacy consumers;
	// see spec.md §4.10 step 7.
	c.AddSegment0Record(blockReserved18, make([]byte, 8))
	reserved20 := make([]byte, 128)
	putF32(reserved20, 0, 0.0)
	putF32(reserved20, 4, 1.0)
	putF32(reserved20, 8, 1.0)
	putF32(reserved20, 12, 1.0)
	putU32(reserved20, 16, 0)
	putU32(reserved20, 20, 0)
	putU32(reserved20, 24, 0)
	putU32(reserved20, 28, 0xFFFFFFFF) // -1 as i32
	c.AddSegment0Record(blockReserved20, reserved20)

	c.SetSegment1Block(segment1BlockReserved1, []byte{})

	sw.flush(c)

	_, err = c.WriteTo(w)
	return err
}
