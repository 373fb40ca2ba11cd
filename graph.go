package main

import (
	"fmt"
	"sort"
	"strings"
)

// Compute-graph reconstruction (spec.md §4.4, component F). Grounded
// directly on original_source/codegen/compute_graph.cpp: a single pass
// buffer-liveness analysis over the artifact's dispatches that assigns
// owning/borrowing nodes per buffer, emits RAW connectors (WAW hazards
// approximated as RAW, per spec.md §9), and a construction-order format
// inference pass.

// Sentinel node ids (spec.md §3 "Node"/"Connector").
const (
	nodeNone     uint32 = ^uint32(0)
	nodeExternal uint32 = ^uint32(0) - 1
)

type SinkSourceType uint8

const (
	SinkRead SinkSourceType = iota
	SinkWrite
	SinkSourceSrc
)

func (t SinkSourceType) String() string {
	switch t {
	case SinkRead:
		return "read"
	case SinkWrite:
		return "write"
	case SinkSourceSrc:
		return "source"
	default:
		return "?"
	}
}

type SinkSourceChan uint8

const ChanSSBO SinkSourceChan = 0

func (SinkSourceChan) String() string { return "ssbo" }

type SinkSourceFormat uint8

const (
	FormatF16 SinkSourceFormat = iota
	FormatByte
	FormatAuto
)

func (f SinkSourceFormat) String() string {
	switch f {
	case FormatF16:
		return "f16"
	case FormatByte:
		return "u8"
	default:
		return "*"
	}
}

func (f SinkSourceFormat) elementSize() (uint64, error) {
	switch f {
	case FormatF16:
		return 2, nil
	case FormatByte:
		return 1, nil
	default:
		return 0, artifactErrorf("trying to size an Auto-format slot")
	}
}

// SinkSource is one descriptor slot on a node (spec.md §3 "Sink/Source").
type SinkSource struct {
	Name            string
	Type            SinkSourceType
	Chan            SinkSourceChan
	Format          SinkSourceFormat
	BufferRoiID     uint32
	SSBOOffset      Source
	TensorOffset    Source
	HasTensorOffset bool
	TensorInfo      *TensorInfo
}

// PushConstantTypeG is the restricted integer-width type set allowed for
// emitted push constants (spec.md §3 "Push-constants").
type PushConstantTypeG uint8

const (
	PCU32 PushConstantTypeG = iota
	PCI32
	PCU16
	PCI16
	PCU64
	PCI64
)

func (t PushConstantTypeG) cType() string {
	switch t {
	case PCU32:
		return "uint32_t"
	case PCI32:
		return "int32_t"
	case PCU16:
		return "uint16_t"
	case PCI16:
		return "int16_t"
	case PCU64:
		return "uint64_t"
	default:
		return "int64_t"
	}
}

func scalarToPushConstantType(t ScalarType) (PushConstantTypeG, error) {
	switch t {
	case ScalarI16:
		return PCI16, nil
	case ScalarU16:
		return PCU16, nil
	case ScalarI32:
		return PCI32, nil
	case ScalarU32:
		return PCU32, nil
	case ScalarI64:
		return PCI64, nil
	case ScalarU64:
		return PCU64, nil
	default:
		return 0, unsupportedErrorf("push constant field has unsupported dtype %v (floating-point push constants are not supported)", t)
	}
}

type PushConstantFieldG struct {
	Offset uint16
	Type   PushConstantTypeG
	Value  Source
}

type PushConstantsG struct {
	Size   uint16
	Fields []PushConstantFieldG
}

type ComputeDispatchOp struct {
	Name            string
	BinaryID        uint32
	WorkgroupCountX Source
	WorkgroupCountY Source
	WorkgroupCountZ Source
	PushConstant    PushConstantsG
	Info            *DispatchInfo
}

type UploadOp struct {
	Name       string
	SourceSlot uint32
}

type NodeKind uint8

const (
	NodeKindDispatch NodeKind = iota
	NodeKindUpload
)

// Node is either a ComputeDispatch or an Upload (spec.md §3 "Node"),
// represented as a tagged struct rather than a C++-style variant.
type Node struct {
	Kind           NodeKind
	Dispatch       ComputeDispatchOp
	Upload         UploadOp
	SinkSources    []SinkSource
	DummySource    uint32
	HasDummySource bool
}

// Connector is a directed edge between two node slots (spec.md §3
// "Connector"). SrcNode/DstNode may be nodeExternal for graph boundary
// edges.
type Connector struct {
	SrcNode uint32
	SrcSlot uint32
	DstNode uint32
	DstSlot uint32
}

// BufferRoi describes the logical allocation backing a graph edge
// (spec.md §3 "Buffer-ROI"). The 2D extent field is reserved but must
// never be set (Non-goals) so it is not modeled here.
type BufferRoi struct {
	ByteSize Source
	Format   SinkSourceFormat
}

type InOutLayout uint8

const (
	LayoutHWC InOutLayout = iota
	LayoutCHW
	LayoutCHWC8
)

type InOutDescriptor struct {
	Name   string
	Type   SinkSourceType
	Chan   SinkSourceChan
	Format SinkSourceFormat
	Layout InOutLayout
}

// ComputeGraph is the fully reconstructed graph: nodes, connectors,
// buffer-ROIs, and the per-input/output descriptors (spec.md §3 "Compute
// graph").
type ComputeGraph struct {
	Nodes       []Node
	Connectors  []Connector
	BufferRois  []BufferRoi
	DummyRoi    uint32
	HasDummyRoi bool

	InputDescriptors  []InOutDescriptor
	OutputDescriptors []InOutDescriptor
}

// bufferLocation is the auxiliary per-buffer liveness table from spec.md
// §4.4 ("BufferLocation table").
type bufferLocation struct {
	owningNode    uint32
	borrowingNode uint32
	sinksourceID  uint32
	bufferRoiID   uint32
	ssboOffset    uint64
}

func newBufferLocation() bufferLocation {
	return bufferLocation{owningNode: nodeNone, borrowingNode: nodeNone, bufferRoiID: nodeNone}
}

func literalU64(v uint64) Source {
	lit, _ := PutUnsignedScalarLiteral(ScalarU64, v)
	return LiteralSource(lit)
}

func requireF16(t ScalarType) (SinkSourceFormat, error) {
	switch t {
	case ScalarF16:
		return FormatF16, nil
	case ScalarI16, ScalarU16, ScalarI32, ScalarU32, ScalarI64, ScalarU64, ScalarF32, ScalarF64:
		return 0, unsupportedErrorf("tensor type %v is not supported for model I/O (only F16 is)", t)
	default:
		return 0, artifactErrorf("unexpected scalar type %v", t)
	}
}

func layoutFromTensorFormat(f TensorFormat) (InOutLayout, error) {
	switch f {
	case TensorFormatSSBOHWC:
		return LayoutHWC, nil
	case TensorFormatSSBOCHW:
		return LayoutCHW, nil
	case TensorFormatSSBOCHWC8:
		return LayoutCHWC8, nil
	case TensorFormatUnknown:
		return 0, artifactErrorf("tensor has unknown format")
	default:
		return 0, unsupportedErrorf("texture tensor formats are not supported")
	}
}

func ensureDummyRoi(g *ComputeGraph) uint32 {
	if !g.HasDummyRoi {
		g.DummyRoi = uint32(len(g.BufferRois))
		// Possibly too small under every host backend; left as an explicit
		// open question (spec.md §9), not fixed here.
		g.BufferRois = append(g.BufferRois, BufferRoi{ByteSize: literalU64(1), Format: FormatByte})
		g.HasDummyRoi = true
	}
	return g.DummyRoi
}

// ensureDummySource lazily materializes node nodeID's synthetic write slot,
// the "C" side of the A→C→B dummy-edge protocol (spec.md §4.4).
func ensureDummySource(g *ComputeGraph, nodeID uint32) uint32 {
	node := &g.Nodes[nodeID]
	if node.HasDummySource {
		return node.DummySource
	}
	dummyRoi := ensureDummyRoi(g)
	node.DummySource = uint32(len(node.SinkSources))
	node.HasDummySource = true
	node.SinkSources = append(node.SinkSources, SinkSource{
		Name: "dummy", Type: SinkWrite, Chan: ChanSSBO, Format: FormatByte,
		BufferRoiID: dummyRoi, SSBOOffset: literalU64(0),
	})
	return node.DummySource
}

type tensorBindingEntry struct {
	set     uint16
	binding uint16
	access  Access
	tensor  uint32
	buffer  uint32
}

// ReconstructComputeGraph builds the compute graph from m and its packed
// weights.
func ReconstructComputeGraph(m *Model, weights *CompressedWeights) (*ComputeGraph, error) {
	bufferLocations := make([]bufferLocation, len(m.Buffers))
	for i := range bufferLocations {
		bufferLocations[i] = newBufferLocation()
	}

	graph := &ComputeGraph{}

	weightRoiID := uint32(len(graph.BufferRois))
	graph.BufferRois = append(graph.BufferRois, BufferRoi{
		ByteSize: literalU64(uint64(len(weights.Data))), Format: FormatByte,
	})
	weightNodeID := uint32(len(graph.Nodes))
	graph.Nodes = append(graph.Nodes, Node{
		Kind:   NodeKindUpload,
		Upload: UploadOp{Name: "weights", SourceSlot: 0},
		SinkSources: []SinkSource{{
			Name: "w", Type: SinkSourceSrc, Chan: ChanSSBO, Format: FormatByte,
			BufferRoiID: weightRoiID, SSBOOffset: literalU64(0),
		}},
	})

	for _, init := range m.Initializers {
		tensor := m.Tensor(init.Tensor)
		loc := &bufferLocations[tensor.Buffer]
		off := weights.Offsets[init.Tensor]
		if off < 0 {
			return nil, artifactErrorf("initializer tensor %d has no packed weight offset", init.Tensor)
		}
		*loc = bufferLocation{
			owningNode: weightNodeID, sinksourceID: 0, borrowingNode: nodeNone,
			bufferRoiID: weightRoiID, ssboOffset: uint64(off),
		}
	}

	for i, tensorID := range m.Inputs {
		tensor := m.Tensor(tensorID)
		if tensor.Info == nil {
			return nil, artifactErrorf("input tensor %d has no tensor info", tensorID)
		}
		format, err := requireF16(tensor.Info.Type)
		if err != nil {
			return nil, err
		}
		if tensor.Offset.IsSymbolic() {
			return nil, artifactErrorf("input tensor %d must have a literal offset", tensorID)
		}
		off, err := ReadUnsignedScalarLiteral(tensor.Offset.Lit())
		if err != nil {
			return nil, err
		}
		if off != 0 {
			return nil, artifactErrorf("input tensor %d must have offset 0, got %d", tensorID, off)
		}

		buf := m.Buffer(tensor.Buffer)
		roiID := uint32(len(graph.BufferRois))
		graph.BufferRois = append(graph.BufferRois, BufferRoi{ByteSize: buf.Size, Format: format})

		bufferLocations[tensor.Buffer] = bufferLocation{
			owningNode: nodeExternal, sinksourceID: uint32(i), borrowingNode: nodeNone,
			bufferRoiID: roiID, ssboOffset: 0,
		}
	}

	names := make(map[string]uint32)
	nameSanitizer := strings.NewReplacer("-", "_", "+", "_")

	for d, dispatch := range m.Dispatches {
		nodeID := uint32(len(graph.Nodes))

		var bindings []tensorBindingEntry
		for _, ds := range dispatch.Bindings {
			for _, tb := range ds.Bindings {
				tensor := m.Tensor(tb.Tensor)
				bindings = append(bindings, tensorBindingEntry{
					set: ds.Set, binding: tb.Binding, access: tb.Access,
					tensor: tb.Tensor, buffer: tensor.Buffer,
				})
			}
		}
		sort.Slice(bindings, func(i, j int) bool {
			if bindings[i].set != bindings[j].set {
				return bindings[i].set < bindings[j].set
			}
			return bindings[i].binding < bindings[j].binding
		})

		var sinksources []SinkSource
		dummySinkID := uint32(len(bindings))

		for b, bind := range bindings {
			sinksourceID := uint32(b)
			loc := &bufferLocations[bind.buffer]

			var ssType SinkSourceType
			switch bind.access {
			case AccessWriteOnly:
				if loc.owningNode != nodeNone {
					ssType = SinkRead
					graph.Connectors = append(graph.Connectors, Connector{
						SrcNode: loc.owningNode, SrcSlot: loc.sinksourceID,
						DstNode: nodeID, DstSlot: sinksourceID,
					})
					if loc.borrowingNode != nodeNone {
						dummySource := ensureDummySource(graph, loc.borrowingNode)
						dummySink := dummySinkID
						dummySinkID++
						graph.Connectors = append(graph.Connectors, Connector{
							SrcNode: loc.borrowingNode, SrcSlot: dummySource,
							DstNode: nodeID, DstSlot: dummySink,
						})
					}
					loc.borrowingNode = nodeID
				} else {
					buf := m.Buffer(bind.buffer)
					roiID := uint32(len(graph.BufferRois))
					graph.BufferRois = append(graph.BufferRois, BufferRoi{ByteSize: buf.Size, Format: FormatByte})
					loc.owningNode = nodeID
					loc.bufferRoiID = roiID
					loc.borrowingNode = nodeNone
					loc.sinksourceID = sinksourceID
					ssType = SinkWrite
				}
			case AccessReadOnly:
				if loc.owningNode == nodeNone {
					return nil, artifactErrorf("tensor %d (buffer %d) is read before any writer", bind.tensor, bind.buffer)
				}
				graph.Connectors = append(graph.Connectors, Connector{
					SrcNode: loc.owningNode, SrcSlot: loc.sinksourceID,
					DstNode: nodeID, DstSlot: sinksourceID,
				})
				if loc.borrowingNode != nodeNone {
					dummySource := ensureDummySource(graph, loc.borrowingNode)
					dummySink := dummySinkID
					dummySinkID++
					graph.Connectors = append(graph.Connectors, Connector{
						SrcNode: loc.borrowingNode, SrcSlot: dummySource,
						DstNode: nodeID, DstSlot: dummySink,
					})
				}
				ssType = SinkRead
			case AccessReadWrite:
				return nil, unsupportedErrorf("read-write descriptor access is not supported (tensor %d)", bind.tensor)
			default:
				return nil, artifactErrorf("invalid tensor binding access %d", bind.access)
			}

			format := FormatByte
			if ssType == SinkRead {
				format = FormatAuto
			}
			tensor := m.Tensor(bind.tensor)
			sinksources = append(sinksources, SinkSource{
				Name: string(rune('a' + b)), Type: ssType, Chan: ChanSSBO, Format: format,
				BufferRoiID: loc.bufferRoiID, SSBOOffset: literalU64(loc.ssboOffset),
				TensorOffset: tensor.Offset, HasTensorOffset: true, TensorInfo: tensor.Info,
			})
		}

		dummySinkCount := dummySinkID - uint32(len(bindings))
		if dummySinkCount != 0 {
			ensureDummyRoi(graph)
			for i := uint32(0); i < dummySinkCount; i++ {
				sinksources = append(sinksources, SinkSource{
					Name: fmt.Sprintf("z%d", i), Type: SinkRead, Chan: ChanSSBO, Format: FormatByte,
					BufferRoiID: graph.DummyRoi, SSBOOffset: literalU64(0),
				})
			}
		}

		var dispatchName string
		if dispatch.Info != nil && dispatch.Info.Name != "" {
			name := nameSanitizer.Replace(dispatch.Info.Name)
			if suffix, ok := names[name]; ok {
				names[name] = suffix + 1
				dispatchName = fmt.Sprintf("%s_%d", name, suffix)
			} else {
				names[name] = 1
				dispatchName = name
			}
		} else {
			dispatchName = fmt.Sprintf("unnamed_dispatch_%d", d)
		}

		fields := make([]PushConstantFieldG, len(dispatch.PushConstant.Fields))
		for p, f := range dispatch.PushConstant.Fields {
			pcType, err := scalarToPushConstantType(f.DType)
			if err != nil {
				return nil, err
			}
			fields[p] = PushConstantFieldG{Offset: f.Offset, Type: pcType, Value: f.Source}
		}

		graph.Nodes = append(graph.Nodes, Node{
			Kind: NodeKindDispatch,
			Dispatch: ComputeDispatchOp{
				Name:            dispatchName,
				BinaryID:        dispatch.BinaryID,
				WorkgroupCountX: dispatch.WorkgroupCountX,
				WorkgroupCountY: dispatch.WorkgroupCountY,
				WorkgroupCountZ: dispatch.WorkgroupCountZ,
				PushConstant:    PushConstantsG{Size: dispatch.PushConstant.Size, Fields: fields},
				Info:            dispatch.Info,
			},
			SinkSources: sinksources,
		})
	}

	for o, tensorID := range m.Outputs {
		tensor := m.Tensor(tensorID)
		loc := &bufferLocations[tensor.Buffer]
		if loc.owningNode == nodeNone {
			return nil, artifactErrorf("model produces no output for tensor %d; at least one output is required", tensorID)
		}
		if loc.borrowingNode != nodeNone {
			return nil, unsupportedErrorf("output tensor %d's buffer is borrowed by a later node; cross-module dummy connectors are not supported", tensorID)
		}
		graph.Connectors = append(graph.Connectors, Connector{
			SrcNode: loc.owningNode, SrcSlot: loc.sinksourceID,
			DstNode: nodeExternal, DstSlot: uint32(o),
		})
	}

	graph.InputDescriptors = make([]InOutDescriptor, len(m.Inputs))
	for i, tensorID := range m.Inputs {
		tensor := m.Tensor(tensorID)
		info := tensor.Info
		name := info.Name
		if name == "" {
			name = fmt.Sprintf("unnamed-input-%d", i)
		}
		format, err := requireF16(info.Type)
		if err != nil {
			return nil, err
		}
		layout, err := layoutFromTensorFormat(info.Format)
		if err != nil {
			return nil, err
		}
		graph.InputDescriptors[i] = InOutDescriptor{Name: name, Type: SinkRead, Chan: ChanSSBO, Format: format, Layout: layout}
	}

	graph.OutputDescriptors = make([]InOutDescriptor, len(m.Outputs))
	for o, tensorID := range m.Outputs {
		tensor := m.Tensor(tensorID)
		info := tensor.Info
		loc := &bufferLocations[tensor.Buffer]

		name := info.Name
		if name == "" {
			name = fmt.Sprintf("unnamed-output-%d", o)
		}
		format, err := requireF16(info.Type)
		if err != nil {
			return nil, err
		}
		layout, err := layoutFromTensorFormat(info.Format)
		if err != nil {
			return nil, err
		}
		graph.OutputDescriptors[o] = InOutDescriptor{Name: name, Type: SinkWrite, Chan: ChanSSBO, Format: format, Layout: layout}

		graph.Nodes[loc.owningNode].SinkSources[loc.sinksourceID].Format = format
		graph.BufferRois[loc.bufferRoiID].Format = format
	}

	for _, c := range graph.Connectors {
		switch {
		case c.SrcNode == nodeExternal:
			graph.Nodes[c.DstNode].SinkSources[c.DstSlot].Format = graph.InputDescriptors[c.SrcSlot].Format
		case c.DstNode == nodeExternal:
			// Destination slot does not exist; nothing to infer.
		default:
			graph.Nodes[c.DstNode].SinkSources[c.DstSlot].Format = graph.Nodes[c.SrcNode].SinkSources[c.SrcSlot].Format
		}
	}

	return graph, nil
}
