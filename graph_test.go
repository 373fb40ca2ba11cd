package main

import "testing"

// literalSourceU64 avoids the *testing.T dependency weights_test.go's
// literalSource helper carries, since graph_test.go builds models outside
// subtests too.
func literalSourceU64(v uint64) Source {
	lit, err := PutUnsignedScalarLiteral(ScalarU64, v)
	if err != nil {
		panic(err)
	}
	return LiteralSource(lit)
}

func oneBufferDispatch(set uint16, binding uint16, access Access, tensor uint32, name string) Dispatch {
	return Dispatch{
		Bindings: []DescriptorSetBinding{{
			Set:      set,
			Bindings: []TensorBinding{{Binding: binding, Access: access, Tensor: tensor}},
		}},
		Info:            &DispatchInfo{Name: name},
		WorkgroupCountX: literalSourceU64(1),
		WorkgroupCountY: literalSourceU64(1),
		WorkgroupCountZ: literalSourceU64(1),
	}
}

func TestReconstructComputeGraphDummyEdgeProtocol(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: literalSourceU64(64), Alignment: 4}},
		Tensors: []Tensor{{Buffer: 0, Offset: literalSourceU64(0)}},
		Dispatches: []Dispatch{
			oneBufferDispatch(0, 0, AccessWriteOnly, 0, "write_fresh"),
			oneBufferDispatch(0, 0, AccessWriteOnly, 0, "write_in_place"),
			oneBufferDispatch(0, 0, AccessReadOnly, 0, "read_after"),
		},
	}
	weights := &CompressedWeights{}

	graph, err := ReconstructComputeGraph(m, weights)
	if err != nil {
		t.Fatalf("ReconstructComputeGraph: %v", err)
	}

	// Node 0 is always the weights upload; dispatches are nodes 1, 2, 3.
	const writeFresh, writeInPlace, readAfter uint32 = 1, 2, 3

	foundRAW := false
	foundDummy := false
	for _, c := range graph.Connectors {
		if c.SrcNode == writeFresh && c.DstNode == readAfter {
			foundRAW = true
		}
		if c.SrcNode == writeInPlace && c.DstNode == readAfter {
			foundDummy = true
			if !graph.Nodes[writeInPlace].HasDummySource {
				t.Error("write_in_place node should have gained a dummy source slot")
			}
			if c.SrcSlot != graph.Nodes[writeInPlace].DummySource {
				t.Errorf("dummy connector src slot = %d, want %d", c.SrcSlot, graph.Nodes[writeInPlace].DummySource)
			}
		}
	}
	if !foundRAW {
		t.Error("missing RAW connector from the original owner to the final reader")
	}
	if !foundDummy {
		t.Error("missing dummy-edge connector ordering the in-place writer before the final reader")
	}
}

func TestReconstructComputeGraphRejectsReadBeforeWrite(t *testing.T) {
	m := &Model{
		Buffers:    []Buffer{{Size: literalSourceU64(64), Alignment: 4}},
		Tensors:    []Tensor{{Buffer: 0, Offset: literalSourceU64(0)}},
		Dispatches: []Dispatch{oneBufferDispatch(0, 0, AccessReadOnly, 0, "read_first")},
	}
	if _, err := ReconstructComputeGraph(m, &CompressedWeights{}); err == nil {
		t.Fatal("expected an error reading a buffer with no prior writer")
	}
}

func TestReconstructComputeGraphRejectsReadWriteAccess(t *testing.T) {
	m := &Model{
		Buffers:    []Buffer{{Size: literalSourceU64(64), Alignment: 4}},
		Tensors:    []Tensor{{Buffer: 0, Offset: literalSourceU64(0)}},
		Dispatches: []Dispatch{oneBufferDispatch(0, 0, AccessReadWrite, 0, "rw")},
	}
	if _, err := ReconstructComputeGraph(m, &CompressedWeights{}); err == nil {
		t.Fatal("expected an error for read-write descriptor access")
	}
}

func TestReconstructComputeGraphInputOutputPipeline(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{
			{Size: literalSourceU64(128), Alignment: 4}, // input buffer
			{Size: literalSourceU64(128), Alignment: 4}, // output buffer
		},
		Tensors: []Tensor{
			{Buffer: 0, Offset: literalSourceU64(0), Info: &TensorInfo{Name: "in", Type: ScalarF16, Format: TensorFormatSSBOHWC}},
			{Buffer: 1, Offset: literalSourceU64(0), Info: &TensorInfo{Name: "out", Type: ScalarF16, Format: TensorFormatSSBOHWC}},
		},
		Dispatches: []Dispatch{{
			Bindings: []DescriptorSetBinding{{
				Set: 0,
				Bindings: []TensorBinding{
					{Binding: 0, Access: AccessReadOnly, Tensor: 0},
					{Binding: 1, Access: AccessWriteOnly, Tensor: 1},
				},
			}},
			Info:            &DispatchInfo{Name: "conv"},
			WorkgroupCountX: literalSourceU64(1),
			WorkgroupCountY: literalSourceU64(1),
			WorkgroupCountZ: literalSourceU64(1),
		}},
		Inputs:  []uint32{0},
		Outputs: []uint32{1},
	}

	graph, err := ReconstructComputeGraph(m, &CompressedWeights{})
	if err != nil {
		t.Fatalf("ReconstructComputeGraph: %v", err)
	}
	if len(graph.InputDescriptors) != 1 || graph.InputDescriptors[0].Name != "in" {
		t.Fatalf("input descriptors: %+v", graph.InputDescriptors)
	}
	if len(graph.OutputDescriptors) != 1 || graph.OutputDescriptors[0].Name != "out" {
		t.Fatalf("output descriptors: %+v", graph.OutputDescriptors)
	}

	foundExternalIn, foundExternalOut := false, false
	for _, c := range graph.Connectors {
		if c.SrcNode == nodeExternal && c.SrcSlot == 0 {
			foundExternalIn = true
		}
		if c.DstNode == nodeExternal && c.DstSlot == 0 {
			foundExternalOut = true
		}
	}
	if !foundExternalIn {
		t.Error("missing external connector feeding the input tensor")
	}
	if !foundExternalOut {
		t.Error("missing external connector draining the output tensor")
	}
}

func TestReconstructComputeGraphRejectsNonF16Input(t *testing.T) {
	m := &Model{
		Buffers: []Buffer{{Size: literalSourceU64(128), Alignment: 4}},
		Tensors: []Tensor{
			{Buffer: 0, Offset: literalSourceU64(0), Info: &TensorInfo{Name: "in", Type: ScalarF32, Format: TensorFormatSSBOHWC}},
		},
		Inputs: []uint32{0},
	}
	if _, err := ReconstructComputeGraph(m, &CompressedWeights{}); err == nil {
		t.Fatal("expected an error for a non-F16 input tensor")
	}
}
