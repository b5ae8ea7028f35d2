package cli

import (
	"aquasync/internal/adapters/export"
	"aquasync/internal/core"
	"aquasync/internal/enrich"
	"aquasync/pkg/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const catalogYAML = `species:
  - name: Neon Tetra
    water_type: freshwater
    temperature_range: 20-26
    ph_range: 5.0-7.0
    temperament: peaceful
    social_behavior: schooling
    tank_zone: mid
    max_size_cm: 3.5
    fin_vulnerability: vulnerable
    fin_nipper: false
    schooling_min_number: 6
    diet: omnivore
    care_level: beginner
    accepted_feeds: [flakes]
    portion_grams: 0.05
    feedings_per_day: 2
  - name: Cardinal Tetra
    water_type: freshwater
    temperature_range: 23-29
    ph_range: 4.6-6.2
    temperament: peaceful
    social_behavior: schooling
    tank_zone: middle
    max_size_cm: 5
    fin_nipper: false
    schooling_min_number: 6
    diet: omnivore
    care_level: intermediate
    accepted_feeds: [flakes]
    portion_grams: 0.05
    feedings_per_day: 2
  - name: Tiger Barb
    water_type: freshwater
    temperature_range: 20-26
    ph_range: 6.0-8.0
    temperament: semi-aggressive
    social_behavior: shoaling
    tank_zone: mid
    max_size_cm: 7
    fin_nipper: true
    schooling_min_number: 6
    diet: omnivore
    care_level: beginner
    accepted_feeds: [flakes, pellets]
    portion_grams: 0.1
    feedings_per_day: 2
`

type env struct {
	dir     string
	config  string
	catalog string
}

func newEnv(t *testing.T, storage string) env {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "species.yaml")
	if err := os.WriteFile(catalogPath, []byte(catalogYAML), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cfg := fmt.Sprintf(`storage:
  driver: %s
  sqlite_path: %s
catalog:
  driver: file
  path: %s
blob:
  driver: fs
  fs_root: %s
retry:
  max_attempts: 1
log:
  level: error
`, storage, filepath.Join(dir, "verdicts.db"), catalogPath, filepath.Join(dir, "snapshots"))
	cfgPath := filepath.Join(dir, "aquasync.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env{dir: dir, config: cfgPath, catalog: catalogPath}
}

func run(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeReport(t *testing.T, out string) core.RecomputeReport {
	t.Helper()
	var report core.RecomputeReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	return report
}

func TestRecomputeIsIncremental(t *testing.T) {
	e := newEnv(t, "sqlite")
	code, out, errOut := run(t, context.Background(), "--config", e.config, "recompute-compatibility", "--batch-size", "2")
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	report := decodeReport(t, out)
	if report.Pairs != 3 || report.Upserted != 3 || report.Chunks != 2 {
		t.Fatalf("unexpected first report %+v", report)
	}
	if report.RunID == "" {
		t.Fatalf("expected generated run id")
	}

	code, out, _ = run(t, context.Background(), "-c", e.config, "recompute-compatibility")
	if code != ExitOK {
		t.Fatalf("second run exit %d", code)
	}
	if again := decodeReport(t, out); again.Skipped != 3 || again.Upserted != 0 {
		t.Fatalf("expected every pair skipped, got %+v", again)
	}

	code, out, _ = run(t, context.Background(), "-c", e.config, "recompute-compatibility", "--force")
	if code != ExitOK {
		t.Fatalf("forced run exit %d", code)
	}
	if forced := decodeReport(t, out); forced.Upserted != 3 {
		t.Fatalf("expected full recompute, got %+v", forced)
	}
}

func TestRecomputeLimit(t *testing.T) {
	e := newEnv(t, "memory")
	code, out, _ := run(t, context.Background(), "-c", e.config, "recompute-compatibility", "--limit", "2")
	if code != ExitOK {
		t.Fatalf("exit %d", code)
	}
	if report := decodeReport(t, out); report.Species != 2 || report.Pairs != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRecomputeExitCodes(t *testing.T) {
	e := newEnv(t, "memory")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	cases := []struct {
		name string
		ctx  context.Context
		args []string
		code int
	}{
		{"negative limit", context.Background(), []string{"-c", e.config, "recompute-compatibility", "--limit", "-1"}, ExitFatal},
		{"unknown flag", context.Background(), []string{"-c", e.config, "recompute-compatibility", "--bogus"}, ExitFatal},
		{"missing config", context.Background(), []string{"-c", filepath.Join(e.dir, "nope.yaml"), "recompute-compatibility"}, ExitFatal},
		{"cancelled", cancelled, []string{"-c", e.config, "recompute-compatibility"}, ExitPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := run(t, tc.ctx, tc.args...)
			if code != tc.code {
				t.Fatalf("expected exit %d, got %d: %s", tc.code, code, errOut)
			}
		})
	}
}

func TestRecomputeMissingCatalog(t *testing.T) {
	e := newEnv(t, "memory")
	if err := os.Remove(e.catalog); err != nil {
		t.Fatalf("remove catalog: %v", err)
	}
	code, _, errOut := run(t, context.Background(), "-c", e.config, "recompute-compatibility")
	if code != ExitFatal {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "load catalog") {
		t.Fatalf("expected catalog error, got %s", errOut)
	}
}

func TestStandaloneRecompute(t *testing.T) {
	e := newEnv(t, "memory")
	var stdout, stderr bytes.Buffer
	code := RunRecompute(context.Background(), []string{"--config", e.config, "--batch-size", "1"}, &stdout, &stderr)
	if code != ExitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if report := decodeReport(t, stdout.String()); report.Chunks != 3 {
		t.Fatalf("expected three chunks, got %+v", report)
	}
}

func TestRecomputeWithExport(t *testing.T) {
	e := newEnv(t, "sqlite")
	code, out, errOut := run(t, context.Background(), "-c", e.config, "recompute-compatibility", "--export", "--run-id", "nightly")
	if code != ExitOK {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if report := decodeReport(t, out); report.RunID != "nightly" {
		t.Fatalf("run id not used: %+v", report)
	}
	manifest := filepath.Join(e.dir, "snapshots", export.DefaultPrefix, "nightly", "manifest.json")
	if _, err := os.Stat(manifest); err != nil {
		t.Fatalf("expected manifest: %v", err)
	}

	code, out, _ = run(t, context.Background(), "-c", e.config, "export", "--list")
	if code != ExitOK {
		t.Fatalf("export --list exit %d", code)
	}
	var runs []export.Manifest
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Verdicts != 3 || runs[0].Profiles != 3 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	// a reused run id is refused
	if code, _, _ := run(t, context.Background(), "-c", e.config, "export", "--run-id", "nightly"); code != ExitFatal {
		t.Fatalf("expected duplicate export to fail, got %d", code)
	}
}

func TestQueryCommands(t *testing.T) {
	e := newEnv(t, "sqlite")
	if code, _, errOut := run(t, context.Background(), "-c", e.config, "recompute-compatibility"); code != ExitOK {
		t.Fatalf("recompute exit %d: %s", code, errOut)
	}

	code, out, _ := run(t, context.Background(), "-c", e.config, "tankmates", "neon tetra")
	if code != ExitOK {
		t.Fatalf("tankmates exit %d", code)
	}
	var profile domain.TankmateProfile
	if err := json.Unmarshal([]byte(out), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Name != "Neon Tetra" || len(profile.Mates()) != 2 {
		t.Fatalf("unexpected profile %+v", profile)
	}

	code, out, _ = run(t, context.Background(), "-c", e.config, "compat", "Neon Tetra", "Tiger Barb")
	if code != ExitOK {
		t.Fatalf("compat exit %d", code)
	}
	var v domain.Verdict
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if v.Level != domain.LevelIncompatible {
		t.Fatalf("fin nipper with a long-finned species should be incompatible, got %+v", v)
	}

	code, out, _ = run(t, context.Background(), "-c", e.config, "compat", "Neon Tetra", "Cardinal Tetra", "--explain")
	if code != ExitOK {
		t.Fatalf("compat --explain exit %d", code)
	}
	var ex enrich.Explanation
	if err := json.Unmarshal([]byte(out), &ex); err != nil {
		t.Fatalf("decode explanation: %v", err)
	}
	if ex.Source != enrich.SourceLocal || !strings.Contains(ex.Text, "Cardinal Tetra") {
		t.Fatalf("unexpected explanation %+v", ex)
	}

	if code, _, _ := run(t, context.Background(), "-c", e.config, "compat", "Neon Tetra", "Neon Tetra"); code != ExitFatal {
		t.Fatalf("self pair should exit 1, got %d", code)
	}
	if code, _, _ := run(t, context.Background(), "-c", e.config, "tankmates", "Nemo"); code != ExitFatal {
		t.Fatalf("unknown species should exit 1, got %d", code)
	}
	if code, _, _ := run(t, context.Background(), "-c", e.config, "compat", "A", "B", "--stock", "oops"); code != ExitFatal {
		t.Fatalf("bad stock should exit 1, got %d", code)
	}
}

func TestPlanCommand(t *testing.T) {
	e := newEnv(t, "memory")
	tank := filepath.Join(e.dir, "tank.yaml")
	body := `name: office
shape: rectangle
length: 60
width: 30
height: 40
unit: cm
stocking:
  neon tetra: 8
feeds:
  flakes: 500
`
	if err := os.WriteFile(tank, []byte(body), 0o600); err != nil {
		t.Fatalf("write tank: %v", err)
	}
	code, out, errOut := run(t, context.Background(), "-c", e.config, "plan", "--tank", tank)
	if code != ExitOK {
		t.Fatalf("plan exit %d: %s", code, errOut)
	}
	var plan domain.Plan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.VolumeLiters != 72 {
		t.Fatalf("expected 72 L, got %v", plan.VolumeLiters)
	}
	if _, ok := plan.Recommendations["Neon Tetra"]; !ok {
		t.Fatalf("expected neon tetra recommendation: %+v", plan.Recommendations)
	}
	if _, ok := plan.Feeds["flakes"]; !ok {
		t.Fatalf("expected flakes estimate: %+v", plan.Feeds)
	}

	if code, _, _ := run(t, context.Background(), "-c", e.config, "plan"); code != ExitFatal {
		t.Fatalf("missing --tank should exit 1, got %d", code)
	}
	bad := filepath.Join(e.dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("shape: hexagon\nlength: 10\n"), 0o600); err != nil {
		t.Fatalf("write bad tank: %v", err)
	}
	if code, _, _ := run(t, context.Background(), "-c", e.config, "plan", "--tank", bad); code != ExitFatal {
		t.Fatalf("invalid tank should exit 1, got %d", code)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestServeShutsDownOnCancel(t *testing.T) {
	e := newEnv(t, "memory")
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		code, _, _ := run(t, ctx, "-c", e.config, "serve", "--addr", addr, "--watch")
		done <- code
	}()

	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("healthz status %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case code := <-done:
		if code != ExitOK {
			t.Fatalf("expected clean shutdown, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
