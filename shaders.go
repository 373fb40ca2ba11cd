package main

import "fmt"

// Shader registry (spec.md §4.3, component E). Grounded on
// original_source/codegen/shader_registry.cpp — a trivial pass that assigns
// deterministic names to the artifact's embedded shader binaries in
// declared order.

// ShaderBinary is one named, embedded SPIR-V module.
type ShaderBinary struct {
	Name string
	SPV  []uint32
}

// CreateShaderRegistry names every shader binary in the artifact "comp<i>"
// in artifact order, stable across reruns.
func CreateShaderRegistry(m *Model) []ShaderBinary {
	registry := make([]ShaderBinary, len(m.ShaderBinaries))
	for i, spv := range m.ShaderBinaries {
		registry[i] = ShaderBinary{
			Name: fmt.Sprintf("comp%d", i),
			SPV:  spv,
		}
	}
	return registry
}
