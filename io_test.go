package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFileLeavesNoTempOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	if err := atomicWriteFile(path, []byte("hello")); err != nil {
		t.Fatalf("atomicWriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file %s.tmp should not survive a successful write", path)
	}
}

func TestEnsureOutputDirCreatesWithMkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := ensureOutputDir(dir, "src-dir", true); err != nil {
		t.Fatalf("ensureOutputDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory %s was not created", dir)
	}
}

func TestEnsureOutputDirRejectsMissingWithoutMkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	if err := ensureOutputDir(dir, "src-dir", false); err == nil {
		t.Fatal("expected an error for a missing directory without --mkdir")
	}
}

func TestEnsureOutputDirRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ensureOutputDir(file, "src-dir", true); err == nil {
		t.Fatal("expected an error when the path exists but is not a directory")
	}
}

func TestCheckRegularFileRejectsMissing(t *testing.T) {
	if err := checkRegularFile(filepath.Join(t.TempDir(), "nope.dnx")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestSpvToBytesLittleEndian(t *testing.T) {
	got := spvToBytes([]uint32{0x01020304})
	want := []byte{0x04, 0x03, 0x02, 0x01}
	if len(got) != 4 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] || got[3] != want[3] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRelWeightPathRelative(t *testing.T) {
	binDir := filepath.Join("opt", "vkdt", "bin")
	weightPath := filepath.Join("opt", "vkdt", "bin", "modules", "denox", "mod-weights.dat")
	got, err := relWeightPath(weightPath, binDir)
	if err != nil {
		t.Fatalf("relWeightPath: %v", err)
	}
	want := filepath.Join("modules", "denox", "mod-weights.dat")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRelWeightPathAbsoluteWithoutBinDir(t *testing.T) {
	got, err := relWeightPath("weights.dat", "")
	if err != nil {
		t.Fatalf("relWeightPath: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("got %q, want an absolute path", got)
	}
}
