package main

// This file is the artifact accessor (spec.md §4: component A) — a
// read-only in-memory view over a decoded DNX artifact. It holds no
// behavior beyond plain field access; the DNX reader library itself
// (parsing the wire bytes into this shape) lives in modelwire.go.

// TensorFormat is the on-device layout of a tensor's backing buffer.
type TensorFormat uint8

const (
	TensorFormatUnknown TensorFormat = iota
	TensorFormatSSBOHWC
	TensorFormatSSBOCHW
	TensorFormatSSBOCHWC8
	TensorFormatTexRGBA
	TensorFormatTexRGB
	TensorFormatTexRG
	TensorFormatTexR
)

func (f TensorFormat) String() string {
	switch f {
	case TensorFormatSSBOHWC:
		return "ssbo_hwc"
	case TensorFormatSSBOCHW:
		return "ssbo_chw"
	case TensorFormatSSBOCHWC8:
		return "ssbo_chwc8"
	case TensorFormatTexRGBA:
		return "tex_rgba"
	case TensorFormatTexRGB:
		return "tex_rgb"
	case TensorFormatTexRG:
		return "tex_rg"
	case TensorFormatTexR:
		return "tex_r"
	default:
		return "unknown"
	}
}

func (f TensorFormat) isTexture() bool {
	switch f {
	case TensorFormatTexRGBA, TensorFormatTexRGB, TensorFormatTexRG, TensorFormatTexR:
		return true
	default:
		return false
	}
}

// TensorInfo is the optional descriptive metadata attached to a tensor: its
// host-visible name (empty if anonymous), scalar element type, and layout.
type TensorInfo struct {
	Name   string
	Type   ScalarType
	Format TensorFormat
}

// Tensor is a typed view of some region of a Buffer.
type Tensor struct {
	Buffer uint32
	Offset Source
	Info   *TensorInfo // nil if the artifact carries no metadata for it
}

// Buffer is a logical backing allocation, sized either literally or
// symbolically, with a power-of-two alignment requirement.
type Buffer struct {
	Size      Source
	Alignment uint64
}

// Initializer fully populates one tensor's buffer with constant bytes.
type Initializer struct {
	Tensor uint32
	Data   []byte
}

// Access is a descriptor binding's read/write mode.
type Access uint8

const (
	AccessReadOnly Access = iota
	AccessWriteOnly
	AccessReadWrite
)

// TensorBinding is one descriptor slot within a descriptor set.
type TensorBinding struct {
	Binding uint16
	Access  Access
	Tensor  uint32
}

// DescriptorSetBinding groups the tensor bindings declared for one
// descriptor set.
type DescriptorSetBinding struct {
	Set      uint16
	Bindings []TensorBinding
}

// DispatchInfo is optional descriptive metadata for a dispatch.
type DispatchInfo struct {
	Name string
}

// PushConstantField is one field of a dispatch's push-constant block.
type PushConstantField struct {
	Offset uint16
	DType  ScalarType
	Source Source
}

// PushConstantDecl is a dispatch's whole push-constant block declaration.
type PushConstantDecl struct {
	Size   uint16
	Fields []PushConstantField
}

// Dispatch is one compute-shader invocation in the artifact.
type Dispatch struct {
	Bindings         []DescriptorSetBinding
	Info             *DispatchInfo
	BinaryID         uint32
	WorkgroupCountX  Source
	WorkgroupCountY  Source
	WorkgroupCountZ  Source
	PushConstant     PushConstantDecl
}

// SymOpKind is the opcode of a symbolic-IR operation (spec.md §3).
type SymOpKind uint8

const (
	SymAdd SymOpKind = iota
	SymSub
	SymMul
	SymDiv
	SymMod
	SymMin
	SymMax
)

// SymOp is one operation in the symbolic-variable DAG. Lhs/Rhs are either a
// symbol index (when the matching *Literal flag is false) or a literal
// integer operand (when it is true).
type SymOp struct {
	Op         SymOpKind
	LhsLiteral bool
	RhsLiteral bool
	Lhs        int64
	Rhs        int64
}

// SymIR is the ordered op sequence described in spec.md §3: op indices
// 0..VarCount are variables (leaf inputs), the rest are Ops.
type SymIR struct {
	VarCount uint32
	Ops      []SymOp
}

// ValueName associates a human name with a scalar source (literal or
// symbolic) somewhere in the artifact's name table.
type ValueName struct {
	Name  string
	Value Source
}

// Model is the full read-only accessor over a decoded DNX artifact.
type Model struct {
	Buffers        []Buffer
	Tensors        []Tensor
	Initializers   []Initializer
	Dispatches     []Dispatch
	Inputs         []uint32 // tensor ids, in declared order
	Outputs        []uint32 // tensor ids, in declared order
	ShaderBinaries [][]uint32
	ValueNames     []ValueName
	SymIR          SymIR
}

func (m *Model) Tensor(id uint32) *Tensor { return &m.Tensors[id] }
func (m *Model) Buffer(id uint32) *Buffer { return &m.Buffers[id] }
