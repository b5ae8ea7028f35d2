// Package export writes verdict and profile snapshots to a blob store. Each
// run lands under snapshots/<run id>/ as JSON and CSV renderings plus a
// manifest describing the artifacts.
package export

import (
	"aquasync/internal/blob"
	"aquasync/pkg/domain"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format names a snapshot rendering.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// DefaultPrefix is the key prefix every snapshot is written under.
const DefaultPrefix = "snapshots"

const manifestName = "manifest.json"

// Source supplies the data to export; *core.Service satisfies it.
type Source interface {
	Snapshot(ctx context.Context) ([]domain.Verdict, []domain.TankmateProfile, error)
}

// Artifact describes one stored file.
type Artifact struct {
	Key         string `json:"key"`
	Dataset     string `json:"dataset"`
	Format      Format `json:"format"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ETag        string `json:"etag,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Manifest summarizes a snapshot run.
type Manifest struct {
	RunID     string               `json:"run_id"`
	CreatedAt time.Time            `json:"created_at"`
	Verdicts  int                  `json:"verdicts"`
	Profiles  int                  `json:"profiles"`
	Levels    map[domain.Level]int `json:"levels"`
	Artifacts []Artifact           `json:"artifacts"`
}

// Exporter renders snapshots and stores them.
type Exporter struct {
	source  Source
	store   blob.Store
	prefix  string
	formats []Format
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(e *Exporter) { e.prefix = strings.Trim(prefix, "/") }
}

// WithFormats restricts the renderings written.
func WithFormats(formats ...Format) Option {
	return func(e *Exporter) {
		if len(formats) > 0 {
			e.formats = formats
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock fixes the manifest timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExporter builds an exporter writing JSON and CSV.
func NewExporter(source Source, store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		source:  source,
		store:   store,
		prefix:  DefaultPrefix,
		formats: []Format{FormatJSON, FormatCSV},
		now:     func() time.Time { return time.Now().UTC() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes one snapshot. An empty runID gets a fresh UUID. A run id
// that already has a manifest is rejected.
func (e *Exporter) Export(ctx context.Context, runID string) (Manifest, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if strings.ContainsAny(runID, "/\\") {
		return Manifest{}, fmt.Errorf("invalid run id %q", runID)
	}
	verdicts, profiles, err := e.source.Snapshot(ctx)
	if err != nil {
		return Manifest{}, fmt.Errorf("load snapshot: %w", err)
	}
	m := Manifest{
		RunID:     runID,
		CreatedAt: e.now(),
		Verdicts:  len(verdicts),
		Profiles:  len(profiles),
		Levels:    make(map[domain.Level]int, 3),
	}
	for _, v := range verdicts {
		m.Levels[v.Level]++
	}
	type rendering struct {
		dataset string
		format  Format
		render  func() ([]byte, error)
	}
	var plan []rendering
	for _, f := range e.formats {
		switch f {
		case FormatJSON:
			plan = append(plan,
				rendering{"verdicts", f, func() ([]byte, error) { return marshalJSON(verdicts) }},
				rendering{"profiles", f, func() ([]byte, error) { return marshalJSON(profiles) }})
		case FormatCSV:
			plan = append(plan,
				rendering{"verdicts", f, func() ([]byte, error) { return VerdictsCSV(verdicts) }},
				rendering{"profiles", f, func() ([]byte, error) { return ProfilesCSV(profiles) }})
		default:
			return Manifest{}, fmt.Errorf("unsupported export format %q", f)
		}
	}
	if _, err := e.store.Head(ctx, e.key(runID, manifestName)); err == nil {
		return Manifest{}, fmt.Errorf("%w: snapshot %s", blob.ErrExists, runID)
	}
	for _, r := range plan {
		payload, err := r.render()
		if err != nil {
			return Manifest{}, fmt.Errorf("render %s.%s: %w", r.dataset, r.format, err)
		}
		art, err := e.put(ctx, e.key(runID, r.dataset+"."+string(r.format)), payload, contentType(r.format), runID)
		if err != nil {
			return Manifest{}, err
		}
		art.Dataset, art.Format = r.dataset, r.format
		m.Artifacts = append(m.Artifacts, art)
	}
	payload, err := marshalJSON(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("render manifest: %w", err)
	}
	if _, err := e.put(ctx, e.key(runID, manifestName), payload, contentType(FormatJSON), runID); err != nil {
		return Manifest{}, err
	}
	e.logger.Info("snapshot exported", "run_id", runID, "driver", string(e.store.Driver()),
		"verdicts", m.Verdicts, "profiles", m.Profiles, "artifacts", len(m.Artifacts))
	return m, nil
}

func (e *Exporter) key(runID, name string) string {
	return path.Join(e.prefix, runID, name)
}

func (e *Exporter) put(ctx context.Context, key string, payload []byte, ct, runID string) (Artifact, error) {
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: ct,
		Metadata:    map[string]string{"run-id": runID},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s: %w", key, err)
	}
	art := Artifact{Key: info.Key, ContentType: ct, SizeBytes: info.Size, ETag: info.ETag, URL: info.URL}
	if art.URL == "" {
		if url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{}); err == nil {
			art.URL = url
		}
	}
	return art, nil
}

// Runs returns the manifest of every exported run, newest first.
func (e *Exporter) Runs(ctx context.Context) ([]Manifest, error) {
	infos, err := e.store.List(ctx, e.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var out []Manifest
	for _, info := range infos {
		if path.Base(info.Key) != manifestName {
			continue
		}
		m, err := e.readManifest(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Manifest loads the manifest of a run.
func (e *Exporter) Manifest(ctx context.Context, runID string) (Manifest, error) {
	return e.readManifest(ctx, e.key(runID, manifestName))
}

func (e *Exporter) readManifest(ctx context.Context, key string) (Manifest, error) {
	_, rc, err := e.store.Get(ctx, key)
	if err != nil {
		return Manifest{}, fmt.Errorf("read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Manifest{}, fmt.Errorf("read %s: %w", key, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return m, nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func contentType(f Format) string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// VerdictsCSV renders one row per verdict; list fields are joined with "; ".
func VerdictsCSV(verdicts []domain.Verdict) ([]byte, error) {
	rows := [][]string{{"species_a", "species_b", "level", "score", "confidence", "reasons", "conditions", "method", "fingerprint"}}
	for _, v := range verdicts {
		rows = append(rows, []string{
			v.Pair.A, v.Pair.B, string(v.Level),
			formatFloat(v.Score), formatFloat(v.Confidence),
			strings.Join(v.Reasons, "; "), strings.Join(v.Conditions, "; "),
			v.Method, v.Fingerprint,
		})
	}
	return writeCSV(rows)
}

// ProfilesCSV renders one row per profile. Conditional mates are written as
// "Name (condition; condition)" joined with " | ".
func ProfilesCSV(profiles []domain.TankmateProfile) ([]byte, error) {
	rows := [][]string{{"species", "fully_compatible", "conditional", "incompatible", "special_requirements", "care_level", "confidence"}}
	for _, p := range profiles {
		conditional := make([]string, 0, len(p.Conditional))
		for _, c := range p.Conditional {
			if len(c.Conditions) == 0 {
				conditional = append(conditional, c.Name)
				continue
			}
			conditional = append(conditional, fmt.Sprintf("%s (%s)", c.Name, strings.Join(c.Conditions, "; ")))
		}
		rows = append(rows, []string{
			p.Name,
			strings.Join(p.FullyCompatible, " | "),
			strings.Join(conditional, " | "),
			strings.Join(p.Incompatible, " | "),
			strings.Join(p.SpecialRequirements, "; "),
			string(p.CareLevel),
			formatFloat(p.Confidence),
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
