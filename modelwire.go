package main

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// This file is the DNX artifact wire codec (spec.md §2 component A, expanded
// in SPEC_FULL.md §3): a hand-written marshal/unmarshal pair built directly
// on protowire's tag/varint/length-delimited primitives, the same substrate
// generated protobuf code is built from. No .pb.go stubs exist; field
// numbers below are this format's only compatibility contract.
//
// Message shapes (field numbers fixed, never renumber):
//
//	Model           1 buffers[Buffer] 2 tensors[Tensor] 3 initializers[Initializer]
//	                4 dispatches[Dispatch] 5 inputs[varint] 6 outputs[varint]
//	                7 shader_binaries[bytes] 8 value_names[ValueName] 9 sym_ir[SymIR]
//	Source          1 kind(varint) 2 literal_dtype(varint) 3 literal_bytes(bytes) 4 sid(varint)
//	Buffer          1 size[Source] 2 alignment(varint)
//	TensorInfo      1 name(string) 2 type(varint) 3 format(varint)
//	Tensor          1 buffer(varint) 2 offset[Source] 3 info[TensorInfo]
//	Initializer     1 tensor(varint) 2 data(bytes)
//	TensorBinding   1 binding(varint) 2 access(varint) 3 tensor(varint)
//	DescriptorSet   1 set(varint) 2 bindings[TensorBinding]
//	DispatchInfo    1 name(string)
//	PushConstField  1 offset(varint) 2 dtype(varint) 3 source[Source]
//	PushConstDecl   1 size(varint) 2 fields[PushConstField]
//	Dispatch        1 sets[DescriptorSet] 2 info[DispatchInfo] 3 binary_id(varint)
//	                4 wg_x[Source] 5 wg_y[Source] 6 wg_z[Source] 7 push_constant[PushConstDecl]
//	ValueName       1 name(string) 2 value[Source]
//	SymOp           1 op(varint) 2 lhs_literal(varint) 3 rhs_literal(varint) 4 lhs(zigzag) 5 rhs(zigzag)
//	SymIR           1 var_count(varint) 2 ops[SymOp]

func appendSubmessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(inner)))
	return append(b, inner...)
}

func encodeSource(s Source) []byte {
	var b []byte
	if s.IsSymbolic() {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(s.Sid()))
		return b
	}
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 0)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Lit().DType))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	lit := s.Lit().Bytes
	b = protowire.AppendVarint(b, uint64(len(lit)))
	b = append(b, lit...)
	return b
}

func decodeSource(buf []byte) (Source, error) {
	var kind uint64
	var dtype ScalarType
	var lit []byte
	var sid uint64
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return Source{}, artifactErrorf("malformed Source tag")
		}
		buf = buf[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return Source{}, artifactErrorf("malformed Source.kind")
			}
			kind, buf = v, buf[n:]
		case 2:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return Source{}, artifactErrorf("malformed Source.literal_dtype")
			}
			dtype, buf = ScalarType(v), buf[n:]
		case 3:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return Source{}, artifactErrorf("malformed Source.literal_bytes")
			}
			lit = append([]byte(nil), v...)
			buf = buf[n:]
		case 4:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return Source{}, artifactErrorf("malformed Source.sid")
			}
			sid, buf = v, buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return Source{}, artifactErrorf("malformed Source unknown field")
			}
			buf = buf[n:]
		}
	}
	if kind == 1 {
		return SymbolicSource(uint32(sid)), nil
	}
	return LiteralSource(Literal{DType: dtype, Bytes: lit}), nil
}

func encodeBuffer(buf Buffer) []byte {
	var b []byte
	b = appendSubmessage(b, 1, encodeSource(buf.Size))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, buf.Alignment)
	return b
}

func decodeBuffer(data []byte) (Buffer, error) {
	var out Buffer
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed Buffer tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Buffer.size")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.Size, data = src, data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed Buffer.alignment")
			}
			out.Alignment, data = v, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed Buffer unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeTensorInfo(info *TensorInfo) []byte {
	if info == nil {
		return nil
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(info.Name)))
	b = append(b, info.Name...)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.Type))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(info.Format))
	return b
}

func decodeTensorInfo(data []byte) (*TensorInfo, error) {
	out := &TensorInfo{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, artifactErrorf("malformed TensorInfo tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed TensorInfo.name")
			}
			out.Name, data = string(v), data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, artifactErrorf("malformed TensorInfo.type")
			}
			out.Type, data = ScalarType(v), data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, artifactErrorf("malformed TensorInfo.format")
			}
			out.Format, data = TensorFormat(v), data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, artifactErrorf("malformed TensorInfo unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeTensor(t Tensor) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Buffer))
	b = appendSubmessage(b, 2, encodeSource(t.Offset))
	if t.Info != nil {
		b = appendSubmessage(b, 3, encodeTensorInfo(t.Info))
	}
	return b
}

func decodeTensor(data []byte) (Tensor, error) {
	var out Tensor
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed Tensor tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed Tensor.buffer")
			}
			out.Buffer, data = uint32(v), data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Tensor.offset")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.Offset, data = src, data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Tensor.info")
			}
			info, err := decodeTensorInfo(v)
			if err != nil {
				return out, err
			}
			out.Info, data = info, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed Tensor unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeInitializer(in Initializer) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(in.Tensor))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(in.Data)))
	b = append(b, in.Data...)
	return b
}

func decodeInitializer(data []byte) (Initializer, error) {
	var out Initializer
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed Initializer tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed Initializer.tensor")
			}
			out.Tensor, data = uint32(v), data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Initializer.data")
			}
			out.Data, data = append([]byte(nil), v...), data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed Initializer unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeTensorBinding(tb TensorBinding) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(tb.Binding))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(tb.Access))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(tb.Tensor))
	return b
}

func decodeTensorBinding(data []byte) (TensorBinding, error) {
	var out TensorBinding
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed TensorBinding tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed TensorBinding.binding")
			}
			out.Binding, data = uint16(v), data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed TensorBinding.access")
			}
			out.Access, data = Access(v), data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed TensorBinding.tensor")
			}
			out.Tensor, data = uint32(v), data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed TensorBinding unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeDescriptorSet(ds DescriptorSetBinding) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ds.Set))
	for _, tb := range ds.Bindings {
		b = appendSubmessage(b, 2, encodeTensorBinding(tb))
	}
	return b
}

func decodeDescriptorSet(data []byte) (DescriptorSetBinding, error) {
	var out DescriptorSetBinding
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed DescriptorSet tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed DescriptorSet.set")
			}
			out.Set, data = uint16(v), data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed DescriptorSet.bindings")
			}
			tb, err := decodeTensorBinding(v)
			if err != nil {
				return out, err
			}
			out.Bindings = append(out.Bindings, tb)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed DescriptorSet unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodePushConstantField(f PushConstantField) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Offset))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.DType))
	b = appendSubmessage(b, 3, encodeSource(f.Source))
	return b
}

func decodePushConstantField(data []byte) (PushConstantField, error) {
	var out PushConstantField
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed PushConstantField tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantField.offset")
			}
			out.Offset, data = uint16(v), data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantField.dtype")
			}
			out.DType, data = ScalarType(v), data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantField.source")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.Source, data = src, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantField unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodePushConstantDecl(pc PushConstantDecl) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(pc.Size))
	for _, f := range pc.Fields {
		b = appendSubmessage(b, 2, encodePushConstantField(f))
	}
	return b
}

func decodePushConstantDecl(data []byte) (PushConstantDecl, error) {
	var out PushConstantDecl
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed PushConstantDecl tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantDecl.size")
			}
			out.Size, data = uint16(v), data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantDecl.fields")
			}
			f, err := decodePushConstantField(v)
			if err != nil {
				return out, err
			}
			out.Fields = append(out.Fields, f)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed PushConstantDecl unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeDispatchInfo(info *DispatchInfo) []byte {
	if info == nil {
		return nil
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(info.Name)))
	b = append(b, info.Name...)
	return b
}

func decodeDispatchInfo(data []byte) (*DispatchInfo, error) {
	out := &DispatchInfo{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, artifactErrorf("malformed DispatchInfo tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed DispatchInfo.name")
			}
			out.Name, data = string(v), data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, artifactErrorf("malformed DispatchInfo unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeDispatch(d Dispatch) []byte {
	var b []byte
	for _, ds := range d.Bindings {
		b = appendSubmessage(b, 1, encodeDescriptorSet(ds))
	}
	if d.Info != nil {
		b = appendSubmessage(b, 2, encodeDispatchInfo(d.Info))
	}
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.BinaryID))
	b = appendSubmessage(b, 4, encodeSource(d.WorkgroupCountX))
	b = appendSubmessage(b, 5, encodeSource(d.WorkgroupCountY))
	b = appendSubmessage(b, 6, encodeSource(d.WorkgroupCountZ))
	b = appendSubmessage(b, 7, encodePushConstantDecl(d.PushConstant))
	return b
}

func decodeDispatch(data []byte) (Dispatch, error) {
	var out Dispatch
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed Dispatch tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.sets")
			}
			ds, err := decodeDescriptorSet(v)
			if err != nil {
				return out, err
			}
			out.Bindings = append(out.Bindings, ds)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.info")
			}
			info, err := decodeDispatchInfo(v)
			if err != nil {
				return out, err
			}
			out.Info, data = info, data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.binary_id")
			}
			out.BinaryID, data = uint32(v), data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.wg_x")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.WorkgroupCountX, data = src, data[n:]
		case 5:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.wg_y")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.WorkgroupCountY, data = src, data[n:]
		case 6:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.wg_z")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.WorkgroupCountZ, data = src, data[n:]
		case 7:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch.push_constant")
			}
			pc, err := decodePushConstantDecl(v)
			if err != nil {
				return out, err
			}
			out.PushConstant, data = pc, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed Dispatch unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeValueName(vn ValueName) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(vn.Name)))
	b = append(b, vn.Name...)
	b = appendSubmessage(b, 2, encodeSource(vn.Value))
	return b
}

func decodeValueName(data []byte) (ValueName, error) {
	var out ValueName
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed ValueName tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed ValueName.name")
			}
			out.Name, data = string(v), data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed ValueName.value")
			}
			src, err := decodeSource(v)
			if err != nil {
				return out, err
			}
			out.Value, data = src, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed ValueName unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeSymOp(op SymOp) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(op.Op))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(op.LhsLiteral))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(op.RhsLiteral))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(op.Lhs))
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(op.Rhs))
	return b
}

func boolVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func decodeSymOp(data []byte) (SymOp, error) {
	var out SymOp
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed SymOp tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymOp.op")
			}
			out.Op, data = SymOpKind(v), data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymOp.lhs_literal")
			}
			out.LhsLiteral, data = v != 0, data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymOp.rhs_literal")
			}
			out.RhsLiteral, data = v != 0, data[n:]
		case 4:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymOp.lhs")
			}
			out.Lhs, data = protowire.DecodeZigZag(v), data[n:]
		case 5:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymOp.rhs")
			}
			out.Rhs, data = protowire.DecodeZigZag(v), data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed SymOp unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

func encodeSymIR(ir SymIR) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ir.VarCount))
	for _, op := range ir.Ops {
		b = appendSubmessage(b, 2, encodeSymOp(op))
	}
	return b
}

func decodeSymIR(data []byte) (SymIR, error) {
	var out SymIR
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, artifactErrorf("malformed SymIR tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymIR.var_count")
			}
			out.VarCount, data = uint32(v), data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, artifactErrorf("malformed SymIR.ops")
			}
			op, err := decodeSymOp(v)
			if err != nil {
				return out, err
			}
			out.Ops = append(out.Ops, op)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, artifactErrorf("malformed SymIR unknown field")
			}
			data = data[n:]
		}
	}
	return out, nil
}

// MarshalModel encodes m into the DNX artifact wire format.
func MarshalModel(m *Model) []byte {
	var b []byte
	for _, buf := range m.Buffers {
		b = appendSubmessage(b, 1, encodeBuffer(buf))
	}
	for _, t := range m.Tensors {
		b = appendSubmessage(b, 2, encodeTensor(t))
	}
	for _, in := range m.Initializers {
		b = appendSubmessage(b, 3, encodeInitializer(in))
	}
	for _, d := range m.Dispatches {
		b = appendSubmessage(b, 4, encodeDispatch(d))
	}
	for _, id := range m.Inputs {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(id))
	}
	for _, id := range m.Outputs {
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(id))
	}
	for _, words := range m.ShaderBinaries {
		raw := make([]byte, 4*len(words))
		for i, w := range words {
			raw[4*i] = byte(w)
			raw[4*i+1] = byte(w >> 8)
			raw[4*i+2] = byte(w >> 16)
			raw[4*i+3] = byte(w >> 24)
		}
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(len(raw)))
		b = append(b, raw...)
	}
	for _, vn := range m.ValueNames {
		b = appendSubmessage(b, 8, encodeValueName(vn))
	}
	b = appendSubmessage(b, 9, encodeSymIR(m.SymIR))
	return b
}

// UnmarshalModel decodes a DNX artifact's bytes into a Model, skipping
// unknown fields so older generators stay forward-compatible with newer
// artifact producers.
func UnmarshalModel(data []byte) (*Model, error) {
	m := &Model{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, artifactErrorf("malformed Model tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.buffers")
			}
			buf, err := decodeBuffer(v)
			if err != nil {
				return nil, err
			}
			m.Buffers = append(m.Buffers, buf)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.tensors")
			}
			t, err := decodeTensor(v)
			if err != nil {
				return nil, err
			}
			m.Tensors = append(m.Tensors, t)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.initializers")
			}
			in, err := decodeInitializer(v)
			if err != nil {
				return nil, err
			}
			m.Initializers = append(m.Initializers, in)
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.dispatches")
			}
			d, err := decodeDispatch(v)
			if err != nil {
				return nil, err
			}
			m.Dispatches = append(m.Dispatches, d)
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.inputs")
			}
			m.Inputs = append(m.Inputs, uint32(v))
			data = data[n:]
		case 6:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.outputs")
			}
			m.Outputs = append(m.Outputs, uint32(v))
			data = data[n:]
		case 7:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.shader_binaries")
			}
			if len(v)%4 != 0 {
				return nil, artifactErrorf("shader binary length %d not a multiple of 4", len(v))
			}
			words := make([]uint32, len(v)/4)
			for i := range words {
				words[i] = uint32(v[4*i]) | uint32(v[4*i+1])<<8 | uint32(v[4*i+2])<<16 | uint32(v[4*i+3])<<24
			}
			m.ShaderBinaries = append(m.ShaderBinaries, words)
			data = data[n:]
		case 8:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.value_names")
			}
			vn, err := decodeValueName(v)
			if err != nil {
				return nil, err
			}
			m.ValueNames = append(m.ValueNames, vn)
			data = data[n:]
		case 9:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model.sym_ir")
			}
			ir, err := decodeSymIR(v)
			if err != nil {
				return nil, err
			}
			m.SymIR, data = ir, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, artifactErrorf("malformed Model unknown field")
			}
			data = data[n:]
		}
	}
	return m, nil
}
