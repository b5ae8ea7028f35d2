package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		in   string
		want bool
	}{
		{InternalImportForbidden, "aquasync/internal/core", true},
		{InternalImportForbidden, "aquasync/pkg/domain", false},
		{ExplanationImportForbidden, "aquasync/internal/enrich", true},
		{ExplanationImportForbidden, "aquasync/internal/adapters/httpapi", true},
		{ExplanationImportForbidden, "github.com/sashabaranov/go-openai", true},
		{ExplanationImportForbidden, "github.com/gin-gonic/gin/binding", true},
		{ExplanationImportForbidden, "aquasync/internal/enrichment", false},
		{ExplanationImportForbidden, "aquasync/internal/core", false},
		{AnyOf(InternalImportForbidden, ExplanationImportForbidden), "github.com/gin-gonic/gin", true},
		{AnyOf(), "anything", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("predicate(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "rules.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"aquasync/internal/enrich\"\n)\nvar _ = fmt.Sprint\nvar _ = enrich.Local\n")
	writeGo(t, dir, "rules_test.go", "package tmp\nimport \"github.com/gin-gonic/gin\"\nvar _ = gin.New\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, ExplanationImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "aquasync/internal/enrich (in rules.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var rec recordingFatal
	failIfDirectViolations(&rec, "core stays pure", viols)
	if !strings.Contains(rec.msg, "core stays pure") {
		t.Fatalf("expected reason in failure, got %q", rec.msg)
	}
}

func TestDirectImportErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeGo(t, dir, "broken.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, InternalImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertNoDirectImportsClean(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	AssertNoDirectImports(t, dir, InternalImportForbidden, "none")
}

func TestTransitiveViolationsFromGraph(t *testing.T) {
	orig := loadPackages
	defer func() { loadPackages = orig }()

	openai := &packages.Package{PkgPath: "github.com/sashabaranov/go-openai", Imports: map[string]*packages.Package{}}
	enrich := &packages.Package{PkgPath: "aquasync/internal/enrich", Imports: map[string]*packages.Package{"github.com/sashabaranov/go-openai": openai}}
	root := &packages.Package{PkgPath: "aquasync/internal/core", Imports: map[string]*packages.Package{"aquasync/internal/enrich": enrich}}
	loadPackages = func(string) ([]*packages.Package, error) { return []*packages.Package{root}, nil }

	viols, err := transitiveDependencyViolations(".", ExplanationImportForbidden)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(viols) != 2 || viols[0] != "aquasync/internal/enrich" || viols[1] != "github.com/sashabaranov/go-openai" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var rec recordingFatal
	failIfTransitiveViolations(&rec, "engine is standalone", viols)
	if !strings.Contains(rec.msg, "go-openai") {
		t.Fatalf("expected violation listing, got %q", rec.msg)
	}

	loadPackages = func(string) ([]*packages.Package, error) { return nil, errors.New("no go toolchain") }
	if _, err := transitiveDependencyViolations(".", ExplanationImportForbidden); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestAssertNoTransitiveDependencyOnRepo(t *testing.T) {
	AssertNoTransitiveDependency(t, "aquasync/pkg/domain", InternalImportForbidden, "domain has no internal deps")
}
