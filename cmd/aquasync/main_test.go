package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMainUsesExitFunc(t *testing.T) {
	got := -1
	orig, origArgs := exitFunc, os.Args
	defer func() { exitFunc, os.Args = orig, origArgs }()
	exitFunc = func(code int) { got = code }
	os.Args = []string{"aquasync", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "tankmates", "Neon Tetra"}
	main()
	if got != 1 {
		t.Fatalf("expected exit 1 for a missing config file, got %d", got)
	}
}

func TestRunHelp(t *testing.T) {
	if code := run([]string{"--help"}); code != 0 {
		t.Fatalf("expected help to exit 0, got %d", code)
	}
}
