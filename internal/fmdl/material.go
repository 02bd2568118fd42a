package fmdl

import (
	"encoding/binary"
	"fmt"
)

const segment1BlockMaterialParameters = 0

type rawMaterial struct {
	technique string
	shader    string
}

func decodeMaterials(c *Container, strings []string) ([]rawMaterial, error) {
	records := c.Segment0Records(blockMaterial)
	out := make([]rawMaterial, len(records))
	for i, rec := range records {
		shaderID := binary.LittleEndian.Uint16(rec[0:2])
		techniqueID := binary.LittleEndian.Uint16(rec[2:4])
		if int(shaderID) >= len(strings) || int(techniqueID) >= len(strings) {
			return nil, fmt.Errorf("material %d: %w", i, ErrInvalidReference)
		}
		out[i] = rawMaterial{technique: strings[techniqueID], shader: strings[shaderID]}
	}
	return out, nil
}

func decodeTextures(c *Container, strings []string) ([]Texture, error) {
	records := c.Segment0Records(blockTexture)
	out := make([]Texture, len(records))
	for i, rec := range records {
		filenameID := binary.LittleEndian.Uint16(rec[0:2])
		directoryID := binary.LittleEndian.Uint16(rec[2:4])
		if int(filenameID) >= len(strings) || int(directoryID) >= len(strings) {
			return nil, fmt.Errorf("texture %d: %w", i, ErrInvalidReference)
		}
		out[i] = Texture{Filename: strings[filenameID], Directory: strings[directoryID]}
	}
	return out, nil
}

type rawAssignment struct {
	name string
	refID uint16
}

func decodeTextureParamAssignments(c *Container, strings []string) ([]rawAssignment, error) {
	records := c.Segment0Records(blockTextureParamAssignment)
	out := make([]rawAssignment, len(records))
	for i, rec := range records {
		nameID := binary.LittleEndian.Uint16(rec[0:2])
		refID := binary.LittleEndian.Uint16(rec[2:4])
		if int(nameID) >= len(strings) {
			return nil, fmt.Errorf("texture/parameter assignment %d: %w", i, ErrInvalidReference)
		}
		out[i] = rawAssignment{name: strings[nameID], refID: refID}
	}
	return out, nil
}

func decodeMaterialParameters(c *Container) ([][4]float32, error) {
	buf, ok := c.Segment1Block(segment1BlockMaterialParameters)
	if !ok {
		return nil, nil
	}
	count := len(buf) / 16
	out := make([][4]float32, count)
	for i := 0; i < count; i++ {
		base := i * 16
		out[i] = [4]float32{
			decodeF32(buf, base), decodeF32(buf, base+4),
			decodeF32(buf, base+8), decodeF32(buf, base+12),
		}
	}
	return out, nil
}

// decodeMaterialInstances assembles block 4 against the materials, textures,
// material parameters, and the shared role/parameter assignment table
// (block 7, which textures and parameters both draw from).
func decodeMaterialInstances(c *Container, strings []string) ([]*MaterialInstance, error) {
	materials, err := decodeMaterials(c, strings)
	if err != nil {
		return nil, err
	}
	textures, err := decodeTextures(c, strings)
	if err != nil {
		return nil, err
	}
	parameters, err := decodeMaterialParameters(c)
	if err != nil {
		return nil, err
	}
	assignments, err := decodeTextureParamAssignments(c, strings)
	if err != nil {
		return nil, err
	}

	records := c.Segment0Records(blockMaterialInstance)
	instances := make([]*MaterialInstance, len(records))

	for i, rec := range records {
		nameID := binary.LittleEndian.Uint16(rec[0:2])
		materialID := binary.LittleEndian.Uint16(rec[4:6])
		textureCount := int(rec[6])
		parameterCount := int(rec[7])
		firstTextureID := int(binary.LittleEndian.Uint16(rec[8:10]))
		firstParameterID := int(binary.LittleEndian.Uint16(rec[10:12]))

		if int(nameID) >= len(strings) {
			return nil, fmt.Errorf("material instance %d: name: %w", i, ErrInvalidReference)
		}
		if int(materialID) >= len(materials) {
			return nil, fmt.Errorf("material instance %d: material %d: %w", i, materialID, ErrInvalidReference)
		}
		material := materials[materialID]

		var instTextures []MaterialTexture
		seenRoles := make(map[string]bool)
		for a := firstTextureID; a < firstTextureID+textureCount; a++ {
			if a >= len(assignments) {
				return nil, fmt.Errorf("material instance %d: texture assignment %d: %w", i, a, ErrInvalidReference)
			}
			assignment := assignments[a]
			if int(assignment.refID) >= len(textures) {
				return nil, fmt.Errorf("material instance %d: texture %d: %w", i, assignment.refID, ErrInvalidReference)
			}
			if seenRoles[assignment.name] {
				return nil, fmt.Errorf("material instance %d: duplicate texture role %q: %w", i, assignment.name, ErrDuplicateAssignment)
			}
			seenRoles[assignment.name] = true
			instTextures = append(instTextures, MaterialTexture{Role: assignment.name, Texture: &textures[assignment.refID]})
		}

		var instParameters []MaterialParameter
		seenParams := make(map[string]bool)
		for a := firstParameterID; a < firstParameterID+parameterCount; a++ {
			if a >= len(assignments) {
				return nil, fmt.Errorf("material instance %d: parameter assignment %d: %w", i, a, ErrInvalidReference)
			}
			assignment := assignments[a]
			if int(assignment.refID) >= len(parameters) {
				return nil, fmt.Errorf("material instance %d: parameter %d: %w", i, assignment.refID, ErrInvalidReference)
			}
			if seenParams[assignment.name] {
				return nil, fmt.Errorf("material instance %d: duplicate parameter name %q: %w", i, assignment.name, ErrDuplicateAssignment)
			}
			seenParams[assignment.name] = true
			instParameters = append(instParameters, MaterialParameter{Name: assignment.name, Values: parameters[assignment.refID]})
		}

		instances[i] = &MaterialInstance{
			Name:       strings[nameID],
			Technique:  material.technique,
			Shader:     material.shader,
			Textures:   instTextures,
			Parameters: instParameters,
		}
	}

	return instances, nil
}

// materialParamWriter accumulates segment-1 block 0 (material parameter
// values), 16 bytes per entry.
type materialParamWriter struct {
	buf []byte
}

func (w *materialParamWriter) add(values [4]float32) uint16 {
	id := uint16(len(w.buf) / 16)
	rec := make([]byte, 16)
	putF32(rec, 0, values[0])
	putF32(rec, 4, values[1])
	putF32(rec, 8, values[2])
	putF32(rec, 12, values[3])
	w.buf = append(w.buf, rec...)
	return id
}

func encodeTexture(c *Container, sw *stringWriter, tex *Texture) uint16 {
	id := uint16(len(c.Segment0Records(blockTexture)))
	rec := make([]byte, 4)
	putU16(rec, 0, sw.add(tex.Filename))
	putU16(rec, 2, sw.add(tex.Directory))
	c.AddSegment0Record(blockTexture, rec)
	return id
}

func encodeMaterial(c *Container, sw *stringWriter, shader, technique string) uint16 {
	id := uint16(len(c.Segment0Records(blockMaterial)))
	rec := make([]byte, 4)
	putU16(rec, 0, sw.add(shader))
	putU16(rec, 2, sw.add(technique))
	c.AddSegment0Record(blockMaterial, rec)
	return id
}

func encodeTextureParamAssignment(c *Container, sw *stringWriter, name string, refID uint16) uint16 {
	id := uint16(len(c.Segment0Records(blockTextureParamAssignment)))
	rec := make([]byte, 4)
	putU16(rec, 0, sw.add(name))
	putU16(rec, 2, refID)
	c.AddSegment0Record(blockTextureParamAssignment, rec)
	return id
}

// encodeMaterialInstances emits blocks 4/6/7/8 and the segment-1 material
// parameter buffer, returning each instance's assigned index.
func encodeMaterialInstances(c *Container, sw *stringWriter, instances []*MaterialInstance) map[*MaterialInstance]uint16 {
	indices := make(map[*MaterialInstance]uint16, len(instances))
	paramWriter := &materialParamWriter{}

	for _, inst := range instances {
		nameID := sw.add(inst.Name)
		materialID := encodeMaterial(c, sw, inst.Shader, inst.Technique)

		firstTextureID := uint16(len(c.Segment0Records(blockTextureParamAssignment)))
		for _, mt := range inst.Textures {
			texID := encodeTexture(c, sw, mt.Texture)
			encodeTextureParamAssignment(c, sw, mt.Role, texID)
		}

		firstParameterID := uint16(len(c.Segment0Records(blockTextureParamAssignment)))
		for _, p := range inst.Parameters {
			valueID := paramWriter.add(p.Values)
			encodeTextureParamAssignment(c, sw, p.Name, valueID)
		}

		rec := make([]byte, 16)
		putU16(rec, 0, nameID)
		putU16(rec, 4, materialID)
		rec[6] = byte(len(inst.Textures))
		rec[7] = byte(len(inst.Parameters))
		putU16(rec, 8, firstTextureID)
		putU16(rec, 10, firstParameterID)
		id := uint16(len(c.Segment0Records(blockMaterialInstance)))
		c.AddSegment0Record(blockMaterialInstance, rec)
		indices[inst] = id
	}

	if len(paramWriter.buf) > 0 {
		c.SetSegment1Block(segment1BlockMaterialParameters, paramWriter.buf)
	}

	return indices
}
