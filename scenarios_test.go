package main

import (
	"strings"
	"testing"
)

// End-to-end scenarios from spec.md §8 "End-to-end scenarios", driving the
// full pipeline (symbolic IR -> weight packing -> graph reconstruction ->
// source emission) the way main.go's run() does, minus the filesystem.

func litU64(v uint64) Source {
	lit, err := PutUnsignedScalarLiteral(ScalarU64, v)
	if err != nil {
		panic(err)
	}
	return LiteralSource(lit)
}

// buildGraph runs the non-I/O half of the pipeline over m and returns the
// reconstructed graph, symbolic IR, and packed weights together.
func buildGraph(t *testing.T, m *Model) (*ComputeGraph, *SymbolicIR, *CompressedWeights) {
	t.Helper()
	weights, err := CompressWeights(m)
	if err != nil {
		t.Fatalf("CompressWeights: %v", err)
	}
	ir, err := ReadSymbolicIR(m)
	if err != nil {
		t.Fatalf("ReadSymbolicIR: %v", err)
	}
	graph, err := ReconstructComputeGraph(m, weights)
	if err != nil {
		t.Fatalf("ReconstructComputeGraph: %v", err)
	}
	return graph, ir, weights
}

// Scenario 1 — single dispatch, no initializers, one F16 input, one F16
// output.
func TestScenario1SingleDispatchInputOutput(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: litU64(256), Alignment: 16}},
		Tensors: []Tensor{{
			Buffer: 0, Offset: litU64(0),
			Info: &TensorInfo{Name: "x", Type: ScalarF16, Format: TensorFormatSSBOHWC},
		}},
		Dispatches: []Dispatch{{
			Bindings: []DescriptorSetBinding{{
				Set: 0,
				Bindings: []TensorBinding{
					{Binding: 0, Access: AccessReadOnly, Tensor: 0},
					{Binding: 1, Access: AccessWriteOnly, Tensor: 1},
				},
			}},
			Info:            &DispatchInfo{Name: "main"},
			WorkgroupCountX: litU64(1), WorkgroupCountY: litU64(1), WorkgroupCountZ: litU64(1),
		}},
		Inputs:         []uint32{0},
		Outputs:        []uint32{1},
		ShaderBinaries: [][]uint32{{0xcafef00d}},
	}
	m.Buffers = append(m.Buffers, Buffer{Size: litU64(256), Alignment: 16})
	m.Tensors = append(m.Tensors, Tensor{
		Buffer: 1, Offset: litU64(0),
		Info: &TensorInfo{Name: "y", Type: ScalarF16, Format: TensorFormatSSBOHWC},
	})

	graph, ir, weights := buildGraph(t, m)

	if len(graph.InputDescriptors) != 1 || graph.InputDescriptors[0].Name != "x" || graph.InputDescriptors[0].Format != FormatF16 {
		t.Fatalf("input descriptors mismatch: %+v", graph.InputDescriptors)
	}
	if len(graph.OutputDescriptors) != 1 || graph.OutputDescriptors[0].Name != "y" || graph.OutputDescriptors[0].Format != FormatF16 {
		t.Fatalf("output descriptors mismatch: %+v", graph.OutputDescriptors)
	}

	// One dispatch node (node 1; node 0 is always the weights upload).
	if len(graph.Nodes) != 2 {
		t.Fatalf("expected 2 nodes (weights upload + 1 dispatch), got %d", len(graph.Nodes))
	}
	dispatch := graph.Nodes[1]
	if len(dispatch.SinkSources) != 2 {
		t.Fatalf("expected 2 slots on the dispatch node, got %d", len(dispatch.SinkSources))
	}
	a, b := dispatch.SinkSources[0], dispatch.SinkSources[1]
	if a.Name != "a" || a.Type != SinkRead || a.Format != FormatF16 {
		t.Errorf("slot a mismatch: %+v", a)
	}
	if b.Name != "b" || b.Type != SinkWrite || b.Format != FormatF16 {
		t.Errorf("slot b mismatch: %+v", b)
	}

	foundInConn, foundOutConn := false, false
	for _, c := range graph.Connectors {
		if c.SrcNode == nodeExternal && c.SrcSlot == 0 && c.DstNode == 1 && c.DstSlot == 0 {
			foundInConn = true
		}
		if c.SrcNode == 1 && c.SrcSlot == 1 && c.DstNode == nodeExternal && c.DstSlot == 0 {
			foundOutConn = true
		}
	}
	if !foundInConn {
		t.Error("missing (external,0)->(node,a) connector")
	}
	if !foundOutConn {
		t.Error("missing (node,b)->(external,0) connector")
	}

	shaders := CreateShaderRegistry(m)
	w := NewSourceWriter()
	if err := EmitCreateNodes(w, ir, graph, shaders, "mymodel"); err != nil {
		t.Fatalf("EmitCreateNodes: %v", err)
	}
	out := w.Finish()
	if !containsAll(out, `if (x_connector == NULL) {`, `dt_connector_copy(`, `} else {`, `dt_node_connect_named(`) {
		t.Errorf("expected guarded input connector pattern in emitted source, got:\n%s", out)
	}
	_ = weights
}

// Scenario 2 — two dispatches that both write to the same buffer, then a
// third reads it: expect RAW edges W1->W2, W1->R, and a dummy path
// W2(dummy)->R(z0); dummy_roi has byte size 1.
func TestScenario2DoubleWriteThenRead(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: litU64(64), Alignment: 4}},
		Tensors: []Tensor{{Buffer: 0, Offset: litU64(0)}},
		Dispatches: []Dispatch{
			oneBufferDispatch(0, 0, AccessWriteOnly, 0, "w1"),
			oneBufferDispatch(0, 0, AccessWriteOnly, 0, "w2"),
			oneBufferDispatch(0, 0, AccessReadOnly, 0, "r"),
		},
	}
	graph, _, _ := buildGraph(t, m)

	const w1, w2, r uint32 = 1, 2, 3
	rawW1W2, rawW1R, dummy := false, false, false
	for _, c := range graph.Connectors {
		if c.SrcNode == w1 && c.DstNode == w2 {
			rawW1W2 = true
		}
		if c.SrcNode == w1 && c.DstNode == r {
			rawW1R = true
		}
		if c.SrcNode == w2 && c.DstNode == r {
			dummy = true
			if graph.Nodes[r].SinkSources[c.DstSlot].Name != "z0" {
				t.Errorf("expected dummy sink z0, got %q", graph.Nodes[r].SinkSources[c.DstSlot].Name)
			}
		}
	}
	if !rawW1W2 || !rawW1R || !dummy {
		t.Fatalf("missing expected edges: W1->W2=%v W1->R=%v dummy=%v", rawW1W2, rawW1R, dummy)
	}
	if !graph.HasDummyRoi {
		t.Fatal("expected dummy ROI to exist")
	}
	sz, err := ReadUnsignedScalarLiteral(graph.BufferRois[graph.DummyRoi].ByteSize.Lit())
	if err != nil {
		t.Fatalf("dummy roi size: %v", err)
	}
	if sz != 1 {
		t.Errorf("expected dummy roi size 1, got %d", sz)
	}
}

// Scenario 3 — initializer with buffer alignment 256 following one with
// size 5.
func TestScenario3AlignmentPacking(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: litU64(5), Alignment: 1}, {Size: litU64(8), Alignment: 256}},
		Tensors: []Tensor{{Buffer: 0, Offset: litU64(0)}, {Buffer: 1, Offset: litU64(0)}},
		Initializers: []Initializer{
			{Tensor: 0, Data: []byte{1, 2, 3, 4, 5}},
			{Tensor: 1, Data: []byte{9, 9, 9, 9, 9, 9, 9, 9}},
		},
	}
	weights, err := CompressWeights(m)
	if err != nil {
		t.Fatalf("CompressWeights: %v", err)
	}
	if weights.Offsets[0] != 0 {
		t.Errorf("expected offsets[0] == 0, got %d", weights.Offsets[0])
	}
	if weights.Offsets[1] != 256 {
		t.Errorf("expected offsets[1] == 256, got %d", weights.Offsets[1])
	}
	if len(weights.Data) != 256+8 {
		t.Fatalf("expected packed size 264, got %d", len(weights.Data))
	}
	for i := 5; i < 256; i++ {
		if weights.Data[i] != 0 {
			t.Fatalf("expected zero padding at byte %d, got %d", i, weights.Data[i])
		}
	}
}

// Scenario 4 — dispatch name "my-op+x" appearing twice.
func TestScenario4DuplicateNameSanitization(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: litU64(64), Alignment: 4}},
		Tensors: []Tensor{{Buffer: 0, Offset: litU64(0)}},
		Dispatches: []Dispatch{
			oneBufferDispatch(0, 0, AccessWriteOnly, 0, "my-op+x"),
			oneBufferDispatch(0, 0, AccessReadOnly, 0, "my-op+x"),
		},
	}
	graph, _, _ := buildGraph(t, m)
	if graph.Nodes[1].Dispatch.Name != "my_op_x" {
		t.Errorf("expected first occurrence 'my_op_x', got %q", graph.Nodes[1].Dispatch.Name)
	}
	if graph.Nodes[2].Dispatch.Name != "my_op_x_1" {
		t.Errorf("expected second occurrence 'my_op_x_1', got %q", graph.Nodes[2].Dispatch.Name)
	}
}

// Scenario 5 — push-constants {offset=0,U32},{offset=4,U32} emits a
// contiguous array; changing one field to I16 forces the byte-array form.
func TestScenario5PushConstantEmission(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: litU64(64), Alignment: 4}},
		Tensors: []Tensor{{Buffer: 0, Offset: litU64(0)}},
		Dispatches: []Dispatch{{
			Bindings: []DescriptorSetBinding{{
				Set:      0,
				Bindings: []TensorBinding{{Binding: 0, Access: AccessWriteOnly, Tensor: 0}},
			}},
			Info:            &DispatchInfo{Name: "pc_op"},
			WorkgroupCountX: litU64(1), WorkgroupCountY: litU64(1), WorkgroupCountZ: litU64(1),
			PushConstant: PushConstantDecl{
				Size: 8,
				Fields: []PushConstantField{
					{Offset: 0, DType: ScalarU32, Source: litU64(1)},
					{Offset: 4, DType: ScalarU32, Source: litU64(2)},
				},
			},
		}},
		ShaderBinaries: [][]uint32{{0xcafef00d}},
	}
	graph, ir, _ := buildGraph(t, m)
	shaders := CreateShaderRegistry(m)
	w := NewSourceWriter()
	if err := EmitCreateNodes(w, ir, graph, shaders, "mymodel"); err != nil {
		t.Fatalf("EmitCreateNodes: %v", err)
	}
	out := w.Finish()
	if !containsAll(out, "const uint32_t pc_op_pc[2] = {1, 2};") {
		t.Errorf("expected contiguous u32 array, got:\n%s", out)
	}

	m.Dispatches[0].PushConstant.Fields[1].DType = ScalarI16
	graph2, ir2, _ := buildGraph(t, m)
	w2 := NewSourceWriter()
	if err := EmitCreateNodes(w2, ir2, graph2, shaders, "mymodel"); err != nil {
		t.Fatalf("EmitCreateNodes (mixed types): %v", err)
	}
	out2 := w2.Finish()
	if !containsAll(out2, "uint8_t pc_op_pc[8];", "memcpy(pc_op_pc + 0", "memcpy(pc_op_pc + 4") {
		t.Errorf("expected byte-array fallback with memcpy, got:\n%s", out2)
	}
}

// Scenario 6 — symbolic IR with an unused MUL node: pruned, no s<sid>
// emitted for it; live downstream consumers unaffected.
func TestScenario6SymbolicPruning(t *testing.T) {
	// var 0 is named "n"; op 1 (index var_count+0) is MUL(var0, 2) and is
	// never referenced; op 2 (index var_count+1) is ADD(var0, 1) and is
	// referenced by a dispatch's workgroup count.
	m := &Model{
		Buffers: []Buffer{
			{Size: litU64(64), Alignment: 4}, // output buffer
			{Size: litU64(64), Alignment: 4}, // input buffer
		},
		Tensors: []Tensor{
			{Buffer: 0, Offset: litU64(0), Info: &TensorInfo{Name: "y", Type: ScalarF16, Format: TensorFormatSSBOHWC}},
			{Buffer: 1, Offset: litU64(0), Info: &TensorInfo{Name: "x", Type: ScalarF16, Format: TensorFormatSSBOHWC}},
		},
		Dispatches: []Dispatch{{
			Bindings: []DescriptorSetBinding{{
				Set: 0,
				Bindings: []TensorBinding{
					{Binding: 0, Access: AccessReadOnly, Tensor: 1},
					{Binding: 1, Access: AccessWriteOnly, Tensor: 0},
				},
			}},
			Info:            &DispatchInfo{Name: "op"},
			WorkgroupCountX: SymbolicSource(2), // references the ADD op, not the MUL
			WorkgroupCountY: litU64(1), WorkgroupCountZ: litU64(1),
		}},
		Inputs:     []uint32{1},
		Outputs:    []uint32{0},
		ValueNames: []ValueName{{Name: "n", Value: SymbolicSource(0)}},
		SymIR: SymIR{
			VarCount: 1,
			Ops: []SymOp{
				{Op: SymMul, Lhs: 0, RhsLiteral: true, Rhs: 2}, // sid 1, unused
				{Op: SymAdd, Lhs: 0, RhsLiteral: true, Rhs: 1}, // sid 2, live
			},
		},
		ShaderBinaries: [][]uint32{{0xcafef00d}},
	}
	graph, ir, _ := buildGraph(t, m)
	shaders := CreateShaderRegistry(m)
	w := NewSourceWriter()
	if err := EmitCreateNodes(w, ir, graph, shaders, "mymodel"); err != nil {
		t.Fatalf("EmitCreateNodes: %v", err)
	}
	out := w.Finish()
	if containsAll(out, "int64_t s1 =") {
		t.Errorf("expected unused MUL (s1) to be pruned, got:\n%s", out)
	}
	if !containsAll(out, "int64_t s2 = n + 1;") {
		t.Errorf("expected live ADD (s2) to survive pruning, got:\n%s", out)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
