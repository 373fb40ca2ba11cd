package main

import (
	"encoding/binary"
	"fmt"
)

// ScalarType is the integer type tag carried by a literal scalar. Floats are
// listed too because TensorInfo and PushConstantField use the same tag set
// for validation, even though a Source's Literal must never carry one
// (spec.md §3 — "floats forbidden").
type ScalarType uint8

const (
	ScalarI16 ScalarType = iota
	ScalarU16
	ScalarI32
	ScalarU32
	ScalarI64
	ScalarU64
	ScalarF16
	ScalarF32
	ScalarF64
)

func (t ScalarType) String() string {
	switch t {
	case ScalarI16:
		return "i16"
	case ScalarU16:
		return "u16"
	case ScalarI32:
		return "i32"
	case ScalarU32:
		return "u32"
	case ScalarI64:
		return "i64"
	case ScalarU64:
		return "u64"
	case ScalarF16:
		return "f16"
	case ScalarF32:
		return "f32"
	case ScalarF64:
		return "f64"
	default:
		return fmt.Sprintf("scalar(%d)", uint8(t))
	}
}

// IsFloat reports whether t is one of the floating-point scalar types,
// which are never legal inside a Literal (spec.md §3).
func (t ScalarType) IsFloat() bool {
	return t == ScalarF16 || t == ScalarF32 || t == ScalarF64
}

// Literal is a scalar source's byte representation: a little-endian
// encoding of DType's width.
type Literal struct {
	DType ScalarType
	Bytes []byte
}

// sourceKind tags which alternative a Source currently holds.
type sourceKind uint8

const (
	sourceLiteral sourceKind = iota
	sourceSymbolic
)

// Source is the uniform "scalar source" accessor from spec.md §3: either a
// literal with a typed byte representation, or a reference into the
// symbolic-IR node array by index.
type Source struct {
	kind sourceKind
	lit  Literal
	sid  uint32
}

func LiteralSource(lit Literal) Source {
	return Source{kind: sourceLiteral, lit: lit}
}

func SymbolicSource(sid uint32) Source {
	return Source{kind: sourceSymbolic, sid: sid}
}

func (s Source) IsSymbolic() bool { return s.kind == sourceSymbolic }
func (s Source) IsLiteral() bool  { return s.kind == sourceLiteral }

// Sid returns the referenced symbolic-IR node index. Only valid when
// IsSymbolic is true.
func (s Source) Sid() uint32 { return s.sid }

// Lit returns the literal byte representation. Only valid when IsLiteral
// is true.
func (s Source) Lit() Literal { return s.lit }

// ReadUnsignedScalarLiteral is the uniform unsigned-literal read defined in
// spec.md §3: sign-extend (for signed types) then reinterpret as unsigned
// 64-bit. Grounded on original_source/codegen/symbolics.cpp's
// read_unsigned_scalar_literal.
func ReadUnsignedScalarLiteral(lit Literal) (uint64, error) {
	switch lit.DType {
	case ScalarI16:
		if len(lit.Bytes) < 2 {
			return 0, artifactErrorf("i16 literal needs 2 bytes, got %d", len(lit.Bytes))
		}
		v := int16(binary.LittleEndian.Uint16(lit.Bytes))
		return uint64(int64(v)), nil
	case ScalarU16:
		if len(lit.Bytes) < 2 {
			return 0, artifactErrorf("u16 literal needs 2 bytes, got %d", len(lit.Bytes))
		}
		return uint64(binary.LittleEndian.Uint16(lit.Bytes)), nil
	case ScalarI32:
		if len(lit.Bytes) < 4 {
			return 0, artifactErrorf("i32 literal needs 4 bytes, got %d", len(lit.Bytes))
		}
		v := int32(binary.LittleEndian.Uint32(lit.Bytes))
		return uint64(int64(v)), nil
	case ScalarU32:
		if len(lit.Bytes) < 4 {
			return 0, artifactErrorf("u32 literal needs 4 bytes, got %d", len(lit.Bytes))
		}
		return uint64(binary.LittleEndian.Uint32(lit.Bytes)), nil
	case ScalarI64:
		if len(lit.Bytes) < 8 {
			return 0, artifactErrorf("i64 literal needs 8 bytes, got %d", len(lit.Bytes))
		}
		v := int64(binary.LittleEndian.Uint64(lit.Bytes))
		return uint64(v), nil
	case ScalarU64:
		if len(lit.Bytes) < 8 {
			return 0, artifactErrorf("u64 literal needs 8 bytes, got %d", len(lit.Bytes))
		}
		return binary.LittleEndian.Uint64(lit.Bytes), nil
	case ScalarF16, ScalarF32, ScalarF64:
		return 0, artifactErrorf("floating point types are not allowed in scalar sources")
	default:
		return 0, artifactErrorf("unknown scalar literal type %v", lit.DType)
	}
}

// PutUnsignedScalarLiteral encodes v as the little-endian byte
// representation for dtype, the inverse of ReadUnsignedScalarLiteral, used
// by the artifact writer (tests, fixture construction).
func PutUnsignedScalarLiteral(dtype ScalarType, v uint64) (Literal, error) {
	buf := make([]byte, 8)
	switch dtype {
	case ScalarI16, ScalarU16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
		return Literal{DType: dtype, Bytes: buf[:2]}, nil
	case ScalarI32, ScalarU32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return Literal{DType: dtype, Bytes: buf[:4]}, nil
	case ScalarI64, ScalarU64:
		binary.LittleEndian.PutUint64(buf, v)
		return Literal{DType: dtype, Bytes: buf[:8]}, nil
	default:
		return Literal{}, artifactErrorf("unsupported literal dtype %v", dtype)
	}
}
