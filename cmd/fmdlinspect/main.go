// Command fmdlinspect reads one or more .fmdl files and prints their bone
// tree, mesh-group tree, and per-mesh vertex-field summary.
package main

import (
	"fmt"
	"os"
	"strings"

	"pes-fmdl/internal/fmdl"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: fmdlinspect <file.fmdl> [more.fmdl ...]\n")
		os.Exit(1)
	}

	for _, arg := range os.Args[1:] {
		f, err := os.Open(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open error %s: %v\n", arg, err)
			continue
		}
		result, err := fmdl.ReadWithResult(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse error %s: %v\n", arg, err)
			continue
		}
		if result.Clamped {
			fmt.Fprintf(os.Stderr, "%s: string pool length clamped to remaining file length\n", arg)
		}
		model := result.Model

		fmt.Printf("\n=== %s (bones=%d materials=%d meshes=%d groups=%d) ===\n",
			arg, len(model.Bones), len(model.MaterialInstances), len(model.Meshes), len(model.MeshGroups))

		fmt.Println("--- bone tree ---")
		for _, bone := range model.Bones {
			if bone.Parent == nil {
				printBoneTree(bone, 0)
			}
		}

		fmt.Println("--- mesh group tree ---")
		for _, group := range model.MeshGroups {
			if group.Parent == nil {
				printGroupTree(group, 0)
			}
		}

		fmt.Println("--- meshes ---")
		printMeshes(model.Meshes)
	}
}

func printBoneTree(bone *fmdl.Bone, depth int) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), bone.Name)
	for _, child := range bone.Children {
		printBoneTree(child, depth+1)
	}
}

func printGroupTree(group *fmdl.MeshGroup, depth int) {
	vis := ""
	if !group.Visible {
		vis = " [hidden]"
	}
	fmt.Printf("%s%s (meshes=%d)%s\n", strings.Repeat("  ", depth), group.Name, len(group.Meshes), vis)
	for _, child := range group.Children {
		printGroupTree(child, depth+1)
	}
}

func printMeshes(meshes []*fmdl.Mesh) {
	for i, m := range meshes {
		fields := m.VertexFields
		var flags []string
		if fields.HasNormal {
			flags = append(flags, "normal")
		}
		if fields.HasTangent {
			flags = append(flags, "tangent")
		}
		if fields.HasColor {
			flags = append(flags, "color")
		}
		if fields.HasBoneMapping {
			flags = append(flags, "boneMapping")
		}
		if fields.UVCount > 0 {
			flags = append(flags, fmt.Sprintf("uv=%d", fields.UVCount))
		}
		fmt.Printf("  Mesh[%d]: v=%d f=%d material=%q fields=[%s]\n",
			i, len(m.Vertices), len(m.Faces), m.MaterialInstance.Name, strings.Join(flags, " "))
	}
}
