package main

// Weight packer (spec.md §4.2, component D). Two passes over the artifact's
// initializers in declared order: the first sizes the packed blob, the
// second copies bytes in at their aligned offsets. Grounded directly on
// original_source/src/compress_weights.cpp.

// CompressedWeights is the packed blob and per-tensor offset table
// described in spec.md §3 ("Compressed weights"): offsets[t] == -1 means
// tensor t is not initializer-backed.
type CompressedWeights struct {
	Offsets []int64
	Data    []byte
}

func alignUp(offset, alignment uint64) (uint64, error) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return 0, artifactErrorf("alignment %d is not a power of two", alignment)
	}
	return (offset + alignment - 1) &^ (alignment - 1), nil
}

// CompressWeights packs every initializer tensor's bytes into one
// contiguous, alignment-respecting blob.
func CompressWeights(m *Model) (*CompressedWeights, error) {
	var offset uint64
	for _, init := range m.Initializers {
		tensor := m.Tensor(init.Tensor)
		buf := m.Buffer(tensor.Buffer)

		if tensor.Offset.IsSymbolic() {
			return nil, unsupportedErrorf(
				"tensor %d: initializer references a tensor with a symbolic offset, only compile-time offsets are supported", init.Tensor)
		}
		tensorOffset, err := ReadUnsignedScalarLiteral(tensor.Offset.Lit())
		if err != nil {
			return nil, err
		}
		if tensorOffset != 0 {
			return nil, unsupportedErrorf(
				"tensor %d: initializer offset %d is nonzero, partial buffer initialization is not supported", init.Tensor, tensorOffset)
		}

		aligned, err := alignUp(offset, buf.Alignment)
		if err != nil {
			return nil, err
		}
		offset = aligned + uint64(len(init.Data))
	}

	out := &CompressedWeights{
		Offsets: make([]int64, len(m.Tensors)),
		Data:    make([]byte, offset),
	}
	for i := range out.Offsets {
		out.Offsets[i] = -1
	}

	offset = 0
	for _, init := range m.Initializers {
		tensor := m.Tensor(init.Tensor)
		buf := m.Buffer(tensor.Buffer)

		aligned, err := alignUp(offset, buf.Alignment)
		if err != nil {
			return nil, err
		}
		copy(out.Data[aligned:], init.Data)
		out.Offsets[init.Tensor] = int64(aligned)
		offset = aligned + uint64(len(init.Data))
	}
	return out, nil
}
