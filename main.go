package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// denoxgen — C code generator that translates a compiled neural-network DNX
// artifact into C source driving a host compute-graph API, plus weight-blob
// and shader sidecar files. Grounded on original_source/cli/main.cpp.

const versionString = "denoxgen 1.0.0"

func main() {
	var (
		srcDir     = flag.String("src-dir", "", "output directory for generated C source files (required)")
		shaderDir  = flag.String("shader-dir", "", "output directory for generated shader binaries (required)")
		weightDir  = flag.String("weight-dir", "", "output directory for neural network weights (required)")
		binDir     = flag.String("bin-dir", "", "host binary directory, used to compute the weight path baked into the generated source")
		moduleName = flag.String("module-name", "", "name of the generated module (required)")
		mkdir      = flag.Bool("mkdir", false, "create output directories (including parents) if they do not exist")
		version    = flag.Bool("version", false, "print version information and exit")
	)
	flag.BoolVar(mkdir, "p", false, "shorthand for -mkdir")
	flag.Usage = printUsage

	flag.Parse()

	if *version {
		fmt.Println(versionString)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "denoxgen: exactly one positional argument (the DNX artifact path) is required")
		flag.Usage()
		os.Exit(1)
	}
	dnxPath := flag.Arg(0)

	if *srcDir == "" || *shaderDir == "" || *weightDir == "" || *moduleName == "" {
		fmt.Fprintln(os.Stderr, "denoxgen: --src-dir, --shader-dir, --weight-dir, and --module-name are all required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(dnxPath, *srcDir, *shaderDir, *weightDir, *binDir, *moduleName, *mkdir); err != nil {
		var ge *genError
		if errors.As(err, &ge) {
			log.Fatalf("denoxgen: %s", ge.Error())
		}
		log.Fatalf("denoxgen: %v", err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s — C code generator translating a compiled neural-network artifact
into C source, a weight blob, and shader sidecar files.

USAGE:
    denoxgen <dnx> --src-dir DIR --shader-dir DIR --weight-dir DIR --module-name NAME [options]

ARGUMENTS:
    dnx                    Compiled neural network artifact (.dnx)

REQUIRED FLAGS:
    --src-dir DIR          Output directory for generated C source files
    --shader-dir DIR       Output directory for generated shader binaries
    --weight-dir DIR       Output directory for neural network weights
    --module-name NAME     Name of the generated module

OPTIONAL FLAGS:
    --bin-dir DIR          Host binary directory; the weight path baked into
                            the generated source is relative to this
    -p, --mkdir            Create output directories (including parents) if
                            they do not exist
    --version              Print version information and exit
`, versionString)
}

// run is the full generation pipeline (spec.md §4 "Pipeline"): decode,
// analyze, pack, then emit source and sidecar files.
func run(dnxPath, srcDir, shaderDir, weightDir, binDir, moduleName string, mkdirAllowed bool) error {
	if err := checkRegularFile(dnxPath); err != nil {
		return err
	}
	if err := ensureOutputDir(srcDir, "src-dir", mkdirAllowed); err != nil {
		return err
	}
	if err := ensureOutputDir(shaderDir, "shader-dir", mkdirAllowed); err != nil {
		return err
	}
	if err := ensureOutputDir(weightDir, "weight-dir", mkdirAllowed); err != nil {
		return err
	}
	if binDir != "" {
		if err := ensureOutputDir(binDir, "bin-dir", mkdirAllowed); err != nil {
			return err
		}
	}

	raw, err := readFileBytes(dnxPath)
	if err != nil {
		return err
	}
	model, err := UnmarshalModel(raw)
	if err != nil {
		return err
	}

	symbolicIR, err := ReadSymbolicIR(model)
	if err != nil {
		return err
	}

	weights, err := CompressWeights(model)
	if err != nil {
		return err
	}

	shaders := CreateShaderRegistry(model)

	graph, err := ReconstructComputeGraph(model, weights)
	if err != nil {
		return err
	}

	weightPath := filepath.Join(weightDir, moduleWeightFileName(moduleName))
	relWeight, err := relWeightPath(weightPath, binDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "relative-path: %s\n", relWeight)

	if err := atomicWriteFile(weightPath, weights.Data); err != nil {
		return err
	}

	for _, binary := range shaders {
		path := filepath.Join(shaderDir, shaderFileName(binary.Name))
		if err := atomicWriteFile(path, spvToBytes(binary.SPV)); err != nil {
			return err
		}
	}

	for i, in := range graph.InputDescriptors {
		fmt.Fprintf(os.Stderr, "input[%d]: %s\n", i, in.Name)
	}

	src := NewSourceWriter()
	src.AddHeaderGuard(fmt.Sprintf("%s_DENOX_MODULE_H", strings.ToUpper(moduleName)))
	src.Append("")
	if err := EmitReadSource(src, graph, weights, relWeight, moduleName); err != nil {
		return err
	}
	src.Append("")
	if err := EmitCreateNodes(src, symbolicIR, graph, shaders, moduleName); err != nil {
		return err
	}
	src.Append("")

	srcPath := filepath.Join(srcDir, "denox_model.h")
	return atomicWriteFile(srcPath, []byte(src.Finish()))
}
