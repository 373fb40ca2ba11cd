package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// Atomic file I/O (spec.md §6 "File I/O discipline"). Grounded on
// original_source/src/io.cpp: write to a .tmp sibling, then rename; remove
// the temp file on any failure.

func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return filesystemErrorf(err, "cannot write temp file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return filesystemErrorf(err, "rename %s to %s failed", tmp, path)
	}
	return nil
}

func readFileBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, filesystemErrorf(err, "cannot read %s", path)
	}
	return data, nil
}

// ensureOutputDir mirrors original_source/cli/main.cpp's check_output_dir:
// an existing non-directory path is always an error; a missing path is only
// created (with parents) when mkdirAllowed is set.
func ensureOutputDir(dir, name string, mkdirAllowed bool) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return filesystemErrorf(nil, "%s exists but is not a directory: %s", name, dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return filesystemErrorf(err, "cannot stat %s", dir)
	}
	if !mkdirAllowed {
		return filesystemErrorf(nil, "%s does not exist: %s (use --mkdir/-p to create it)", name, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return filesystemErrorf(err, "failed to create directory %s", dir)
	}
	return nil
}

func checkRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return filesystemErrorf(err, "DNX artifact does not exist or is not a regular file: %s", path)
	}
	if !info.Mode().IsRegular() {
		return filesystemErrorf(nil, "DNX artifact is not a regular file: %s", path)
	}
	return nil
}

func moduleWeightFileName(moduleName string) string {
	return fmt.Sprintf("%s-weights.dat", moduleName)
}

func shaderFileName(binaryName string) string {
	return binaryName + ".comp.spv"
}

// spvToBytes packs SPIR-V words as 4-byte little-endian words, the wire
// format for the emitted shader sidecar files (spec.md §6).
func spvToBytes(words []uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		out[4*i] = byte(w)
		out[4*i+1] = byte(w >> 8)
		out[4*i+2] = byte(w >> 16)
		out[4*i+3] = byte(w >> 24)
	}
	return out
}

// relWeightPath computes the weight path baked into denox_read_source
// relative to binDir, per SPEC_FULL.md §6. When binDir is empty (--bin-dir
// not given) the absolute weight path is used instead.
func relWeightPath(weightPath, binDir string) (string, error) {
	if binDir == "" {
		abs, err := filepath.Abs(weightPath)
		if err != nil {
			return "", filesystemErrorf(err, "cannot resolve absolute path for %s", weightPath)
		}
		return abs, nil
	}
	rel, err := filepath.Rel(binDir, weightPath)
	if err != nil {
		return "", filesystemErrorf(err, "cannot compute path of %s relative to %s", weightPath, binDir)
	}
	return rel, nil
}
