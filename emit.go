package main

import (
	"fmt"
	"sort"
)

// Source emitter (spec.md §4.5, component G). Grounded on
// original_source/codegen/denox_create_nodes.cpp and denox_read_source.cpp.

// accessSymbol renders a scalar source as it appears inline in emitted C: a
// literal's unsigned decimal, a named variable, or a generated local
// `s<sid>`. Marks sid as referenced so emitSymbolLocals knows it is live.
func accessSymbol(ir *SymbolicIR, src Source, referenced []bool) (string, error) {
	if src.IsSymbolic() {
		sid := src.Sid()
		referenced[sid] = true
		if sid < uint32(len(ir.Vars)) {
			return ir.Vars[sid], nil
		}
		return fmt.Sprintf("s%d", sid), nil
	}
	v, err := ReadUnsignedScalarLiteral(src.Lit())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", v), nil
}

// emitSymbolLocals lowers the symbolic-IR ops that are still live (spec.md
// §4.1 "Prune-and-emit") to `int64_t s<sid> = <expr>;` declarations, in
// original IR order.
func emitSymbolLocals(w *SourceWriter, ir *SymbolicIR, referenced []bool) error {
	k := uint32(len(ir.Vars))
	m := uint32(len(ir.IR.Ops))
	n := k + m

	names := make([]string, n)
	copy(names, ir.Vars)

	refCounts := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		if referenced[i] {
			refCounts[i] = 1
		}
	}

	expressions := make([]string, m)
	for i := uint32(0); i < m; i++ {
		sid := k + i
		op := ir.IR.Ops[i]

		var lhs string
		if op.LhsLiteral {
			lhs = fmt.Sprintf("%d", op.Lhs)
		} else {
			lsid := uint32(op.Lhs)
			lhs = names[lsid]
			refCounts[lsid]++
		}

		var rhs string
		if op.RhsLiteral {
			rhs = fmt.Sprintf("%d", op.Rhs)
		} else {
			rsid := uint32(op.Rhs)
			rhs = names[rsid]
			refCounts[rsid]++
		}

		var expr string
		switch op.Op {
		case SymAdd:
			expr = fmt.Sprintf("%s + %s", lhs, rhs)
		case SymSub:
			expr = fmt.Sprintf("%s - %s", lhs, rhs)
		case SymMul:
			expr = fmt.Sprintf("%s * %s", lhs, rhs)
		case SymDiv:
			expr = fmt.Sprintf("%s / %s", lhs, rhs)
		case SymMod:
			expr = fmt.Sprintf("((%s %% %s) + %s) %% %s", lhs, rhs, rhs, rhs)
		case SymMin:
			expr = fmt.Sprintf("%s < %s ? %s : %s", lhs, rhs, lhs, rhs)
		case SymMax:
			expr = fmt.Sprintf("%s < %s ? %s : %s", lhs, rhs, rhs, lhs)
		default:
			return artifactErrorf("unknown symbolic op %d", op.Op)
		}

		symbolName := fmt.Sprintf("s%d", sid)
		names[sid] = symbolName
		expressions[i] = fmt.Sprintf("int64_t %s = %s;", symbolName, expr)
	}

	pruned := make([]bool, m)
	for {
		prunedOnce := false
		for i := uint32(0); i < m; i++ {
			sid := i + k
			if pruned[i] || refCounts[sid] > 0 {
				continue
			}
			pruned[i] = true
			prunedOnce = true
			op := ir.IR.Ops[i]
			if !op.LhsLiteral {
				refCounts[uint32(op.Lhs)]--
			}
			if !op.RhsLiteral {
				refCounts[uint32(op.Rhs)]--
			}
		}
		if !prunedOnce {
			break
		}
	}

	for i := uint32(0); i < m; i++ {
		if refCounts[k+i] > 0 {
			w.Append(expressions[i])
		}
	}
	return nil
}

func createBufferRois(w *SourceWriter, ir *SymbolicIR, graph *ComputeGraph, referenced []bool) error {
	for i, roi := range graph.BufferRois {
		if roi.ByteSize.IsLiteral() {
			byteSize, err := ReadUnsignedScalarLiteral(roi.ByteSize.Lit())
			if err != nil {
				return err
			}
			if roi.Format != FormatByte {
				elemSize, err := roi.Format.elementSize()
				if err != nil {
					return err
				}
				if byteSize%elemSize != 0 {
					return artifactErrorf("buffer-roi %d byte size %d is not a multiple of its element size %d", i, byteSize, elemSize)
				}
				byteSize /= elemSize
			}
			w.Append(fmt.Sprintf("dt_roi_t roi%d = {.wd = %d, .ht = 1};", i, byteSize))
			continue
		}

		expr, err := accessSymbol(ir, roi.ByteSize, referenced)
		if err != nil {
			return err
		}
		if roi.Format != FormatByte {
			elemSize, err := roi.Format.elementSize()
			if err != nil {
				return err
			}
			w.Append(fmt.Sprintf("dt_roi_t roi%d = {.wd = (uint32_t)(%s / %d), .ht = 1};", i, expr, elemSize))
		} else {
			w.Append(fmt.Sprintf("dt_roi_t roi%d = {.wd = (uint32_t)(%s), .ht = 1};", i, expr))
		}
	}
	return nil
}

// sinkSourceArgs renders the ("name","type","chan","format",&roi<k>) tuple
// shared by dt_node_add's variadic slot arguments.
func sinkSourceArgs(ss SinkSource) string {
	return fmt.Sprintf("\"%s\", \"%s\", \"%s\", \"%s\", &roi%d",
		ss.Name, ss.Type, ss.Chan, ss.Format, ss.BufferRoiID)
}

func createGraph(w *SourceWriter, ir *SymbolicIR, graph *ComputeGraph, shaders []ShaderBinary, moduleName string, referenced []bool) error {
	namespaces := make([]string, len(graph.Nodes))

	for nid, node := range graph.Nodes {
		switch node.Kind {
		case NodeKindDispatch:
			ns := node.Dispatch.Name
			namespaces[nid] = ns

			if node.Dispatch.PushConstant.Size != 0 {
				if err := emitPushConstant(w, ir, ns, node.Dispatch.PushConstant, referenced); err != nil {
					return err
				}
			}

			if int(node.Dispatch.BinaryID) >= len(shaders) {
				return artifactErrorf("dispatch %q references unknown shader binary %d", ns, node.Dispatch.BinaryID)
			}
			binary := shaders[node.Dispatch.BinaryID]

			w.Append(fmt.Sprintf("const int %s_id = dt_node_add(graph, module, \"%s\", \"%s\",", ns, moduleName, binary.Name))
			w.PushIndentation(2)

			wgx, err := accessSymbol(ir, node.Dispatch.WorkgroupCountX, referenced)
			if err != nil {
				return err
			}
			wgy, err := accessSymbol(ir, node.Dispatch.WorkgroupCountY, referenced)
			if err != nil {
				return err
			}
			wgz, err := accessSymbol(ir, node.Dispatch.WorkgroupCountZ, referenced)
			if err != nil {
				return err
			}
			w.Append(fmt.Sprintf("%s * DT_LOCAL_SIZE_X, %s * DT_LOCAL_SIZE_Y, %s,", wgx, wgy, wgz))

			if node.Dispatch.PushConstant.Size != 0 {
				w.Append(fmt.Sprintf("%d, (const int*)%s_pc, %d,", node.Dispatch.PushConstant.Size, ns, len(node.SinkSources)))
			} else {
				w.Append(fmt.Sprintf("0, NULL, %d,", len(node.SinkSources)))
			}

			if len(node.SinkSources) == 0 {
				return artifactErrorf("dispatch %q has no sink/sources", ns)
			}
			for i, ss := range node.SinkSources {
				line := sinkSourceArgs(ss)
				if i == len(node.SinkSources)-1 {
					line += ");"
				} else {
					line += ","
				}
				w.Append(line)
			}
			if err := w.PopIndentation(2); err != nil {
				return err
			}

		case NodeKindUpload:
			ns := node.Upload.Name
			namespaces[nid] = ns

			w.Append(fmt.Sprintf("const int %s_id = dt_node_add(graph, module, \"%s\", \"%s\",", ns, moduleName, ns))
			w.PushIndentation(2)
			w.Append("1, 1, 1, 0, NULL, 1,")
			for i, ss := range node.SinkSources {
				line := sinkSourceArgs(ss)
				if i == len(node.SinkSources)-1 {
					line += ");"
				} else {
					line += ","
				}
				w.Append(line)
			}
			if err := w.PopIndentation(2); err != nil {
				return err
			}
		}
	}

	for _, c := range graph.Connectors {
		switch {
		case c.SrcNode == nodeExternal:
			info := graph.InputDescriptors[c.SrcSlot]
			dstName := graph.Nodes[c.DstNode].SinkSources[c.DstSlot].Name
			w.Append(fmt.Sprintf("if (%s_connector == NULL) {", info.Name))
			w.PushIndentation(1)
			w.Append(fmt.Sprintf("dt_connector_copy(graph, module, %s_id, %s_id, %d);", info.Name, namespaces[c.DstNode], c.DstSlot))
			if err := w.PopIndentation(1); err != nil {
				return err
			}
			w.Append("} else {")
			w.PushIndentation(1)
			w.Append(fmt.Sprintf("dt_node_connect_named(graph, %s_id, %s_connector, %s_id, \"%s\");", info.Name, info.Name, namespaces[c.DstNode], dstName))
			if err := w.PopIndentation(1); err != nil {
				return err
			}
			w.Append("}")

		case c.DstNode == nodeExternal:
			info := graph.OutputDescriptors[c.DstSlot]
			srcName := graph.Nodes[c.SrcNode].SinkSources[c.SrcSlot].Name
			w.Append(fmt.Sprintf("if (%s_connector == NULL) {", info.Name))
			w.PushIndentation(1)
			w.Append(fmt.Sprintf("dt_connector_copy(graph, module, %s_id, %s_id, %d);", info.Name, namespaces[c.SrcNode], c.SrcSlot))
			if err := w.PopIndentation(1); err != nil {
				return err
			}
			w.Append("} else {")
			w.PushIndentation(1)
			w.Append(fmt.Sprintf("dt_node_connect_named(graph, %s_id, \"%s\", %s_id, %s_connector);", namespaces[c.SrcNode], srcName, info.Name, info.Name))
			if err := w.PopIndentation(1); err != nil {
				return err
			}
			w.Append("}")

		default:
			srcName := graph.Nodes[c.SrcNode].SinkSources[c.SrcSlot].Name
			dstName := graph.Nodes[c.DstNode].SinkSources[c.DstSlot].Name
			w.Append(fmt.Sprintf("dt_node_connect_named(graph, %s_id, \"%s\", %s_id, \"%s\");",
				namespaces[c.SrcNode], srcName, namespaces[c.DstNode], dstName))
		}
	}
	return nil
}

// emitPushConstant emits a dispatch's push-constant block (spec.md §4.5
// "Push-constant emission"): a contiguous uint32 array when every field is
// U32 at offset i*4, otherwise a byte array built field-by-field.
func emitPushConstant(w *SourceWriter, ir *SymbolicIR, ns string, pc PushConstantsG, referenced []bool) error {
	fields := append([]PushConstantFieldG(nil), pc.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })

	contiguousU32 := true
	for i, f := range fields {
		if f.Type != PCU32 || int(f.Offset) != i*4 {
			contiguousU32 = false
			break
		}
	}

	if contiguousU32 {
		def := fmt.Sprintf("const uint32_t %s_pc[%d] = {", ns, pc.Size/4)
		for i, f := range fields {
			if i > 0 {
				def += ", "
			}
			expr, err := accessSymbol(ir, f.Value, referenced)
			if err != nil {
				return err
			}
			if f.Value.IsLiteral() {
				def += expr
			} else {
				def += fmt.Sprintf("(uint32_t)(%s)", expr)
			}
		}
		def += "};"
		w.Append(def)
		return nil
	}

	w.Append(fmt.Sprintf("uint8_t %s_pc[%d];", ns, pc.Size))
	w.Append("{")
	w.PushIndentation(1)
	for p, f := range fields {
		expr, err := accessSymbol(ir, f.Value, referenced)
		if err != nil {
			return err
		}
		ctype := f.Type.cType()
		if f.Type != PCI64 {
			w.Append(fmt.Sprintf("const %s pc%d = (%s)%s;", ctype, p, ctype, expr))
		} else {
			w.Append(fmt.Sprintf("const %s pc%d = %s;", ctype, p, expr))
		}
		w.Append(fmt.Sprintf("memcpy(%s_pc + %d, &pc%d, sizeof(%s));", ns, f.Offset, p, ctype))
	}
	if err := w.PopIndentation(1); err != nil {
		return err
	}
	w.Append("}")
	return nil
}

// EmitCreateNodes renders the denox_create_nodes function into w (spec.md
// §4.5 "Emitted unit").
func EmitCreateNodes(w *SourceWriter, ir *SymbolicIR, graph *ComputeGraph, shaders []ShaderBinary, moduleName string) error {
	w.AddSystemInclude("stdint.h")
	w.AddSystemInclude("string.h")
	w.AddSystemInclude("stddef.h")
	w.AddLocalInclude("modules/api.h")

	def := "static void denox_create_nodes(dt_graph_t* graph, dt_module_t* module"
	if len(ir.Vars) == 0 && len(graph.InputDescriptors) == 0 && len(graph.OutputDescriptors) == 0 {
		w.Append(def + ") {")
	} else {
		w.Append(def + ",")
		w.PushIndentation(3)

		if len(ir.Vars) > 0 {
			var valueParams string
			for i, v := range ir.Vars {
				if i > 0 {
					valueParams += ", "
				}
				valueParams += fmt.Sprintf("uint64_t %s", v)
			}
			valueParams += ","
			w.Append(valueParams)
		}

		if len(graph.InputDescriptors) == 0 {
			return artifactErrorf("model has symbolic variables or I/O but no inputs")
		}
		for _, in := range graph.InputDescriptors {
			w.Append(fmt.Sprintf("int %s_id, const char* %s_connector,", in.Name, in.Name))
		}
		if len(graph.OutputDescriptors) == 0 {
			return artifactErrorf("model has symbolic variables or I/O but no outputs")
		}
		for i, out := range graph.OutputDescriptors {
			if i == len(graph.OutputDescriptors)-1 {
				w.Append(fmt.Sprintf("int %s_id, const char* %s_connector) {", out.Name, out.Name))
			} else {
				w.Append(fmt.Sprintf("int %s_id, const char* %s_connector,", out.Name, out.Name))
			}
		}
		if err := w.PopIndentation(3); err != nil {
			return err
		}
	}

	w.PushIndentation(1)

	referenced := make([]bool, uint32(len(ir.Vars))+uint32(len(ir.IR.Ops)))
	compSrc := NewSourceWriter()
	if err := createBufferRois(compSrc, ir, graph, referenced); err != nil {
		return err
	}
	if err := createGraph(compSrc, ir, graph, shaders, moduleName, referenced); err != nil {
		return err
	}

	symSrc := NewSourceWriter()
	if err := emitSymbolLocals(symSrc, ir, referenced); err != nil {
		return err
	}

	w.Append(symSrc.Finish())
	w.Append(compSrc.Finish())

	if err := w.PopIndentation(1); err != nil {
		return err
	}
	w.Append("}")
	return nil
}

// EmitReadSource renders the denox_read_source function into w (spec.md
// §4.5 "Emitted unit" first bullet): a cascade of guarded blocks, one per
// Upload node, each opening the weight sidecar, validating its size, and
// reading it into the mapped buffer.
func EmitReadSource(w *SourceWriter, graph *ComputeGraph, weights *CompressedWeights, weightsPath, moduleName string) error {
	w.AddSystemInclude("stdint.h")
	w.AddSystemInclude("stdio.h")
	w.AddLocalInclude("modules/api.h")

	w.Append("static int denox_read_source(dt_module_t* mod, void* mapped, dt_read_source_params_t* p) {")
	w.PushIndentation(1)

	first := true
	for _, node := range graph.Nodes {
		if node.Kind != NodeKindUpload {
			continue
		}
		if first {
			w.Append(fmt.Sprintf("if (p->node->kernel == dt_token(\"%s\")) {", node.Upload.Name))
			first = false
		} else {
			w.Append(fmt.Sprintf("} else if (p->node->kernel == dt_token(\"%s\")) {", node.Upload.Name))
		}

		w.PushIndentation(1)
		w.Append(fmt.Sprintf("FILE* f = dt_graph_open_resource(mod->graph, 0, \"%s\", \"rb\");", weightsPath))
		w.Append("if (!f) {")
		w.PushIndentation(1)
		w.Append("snprintf(mod->graph->gui_msg_buf, sizeof(mod->graph->gui_msg_buf),")
		w.PushIndentation(3)
		w.Append(fmt.Sprintf("\"%s: could not find \\\"%s\\\"\");", moduleName, weightsPath))
		if err := w.PopIndentation(3); err != nil {
			return err
		}
		w.Append("return 1;")
		if err := w.PopIndentation(1); err != nil {
			return err
		}
		w.Append("}")

		w.Append("fseek(f, 0, SEEK_END);")
		w.Append("const size_t size = ftell(f);")
		w.Append(fmt.Sprintf("const size_t expected_size = %d;", len(weights.Data)))

		w.Append("if (size != expected_size) {")
		w.PushIndentation(1)
		w.Append("snprintf(mod->graph->gui_msg_buf, sizeof(mod->graph->gui_msg_buf),")
		w.PushIndentation(3)
		w.Append(fmt.Sprintf("\"%s: weight file \\\"%s\\\" has unexpected size!\");", moduleName, weightsPath))
		if err := w.PopIndentation(3); err != nil {
			return err
		}
		w.Append("fclose(f);")
		w.Append("return 1;")
		if err := w.PopIndentation(1); err != nil {
			return err
		}
		w.Append("}")

		w.Append("fseek(f, 0, SEEK_SET);")
		w.Append("fread(mapped, size, 1, f);")
		w.Append("fclose(f);")
		if err := w.PopIndentation(1); err != nil {
			return err
		}
	}
	if !first {
		w.Append("}")
	}
	w.Append("return 0;")
	if err := w.PopIndentation(1); err != nil {
		return err
	}
	w.Append("}")
	return nil
}
