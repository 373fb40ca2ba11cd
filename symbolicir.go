package main

// Symbolic-IR extraction (spec.md §4.1, component C). Grounded on
// original_source/codegen/symbolics.cpp's read_symbolic_ir: walk the
// artifact's name table, associate every variable id (sid < var_count)
// with its name, and fail if any variable goes unnamed.

// SymbolicIR is the extracted view over a Model's symbolic DAG used by the
// emitter: Vars[sid] is the registered name of variable sid.
type SymbolicIR struct {
	IR   SymIR
	Vars []string
}

// ReadSymbolicIR extracts the named-variable table from m's symbolic IR.
func ReadSymbolicIR(m *Model) (*SymbolicIR, error) {
	varCount := m.SymIR.VarCount
	vars := make([]string, varCount)
	set := make([]bool, varCount)

	for _, vn := range m.ValueNames {
		if vn.Value.IsLiteral() {
			continue
		}
		sid := vn.Value.Sid()
		if sid >= varCount {
			continue
		}
		vars[sid] = vn.Name
		set[sid] = true
	}
	for i, ok := range set {
		if !ok {
			return nil, artifactErrorf("dynamic extent (symbol %d) has no registered name; denoxgen requires all dynamic extents to be named", i)
		}
	}
	return &SymbolicIR{IR: m.SymIR, Vars: vars}, nil
}
