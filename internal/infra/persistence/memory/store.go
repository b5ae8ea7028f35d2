// Package memory provides an in-memory verdict store used for tests,
// ephemeral runs and as the read model behind the SQL stores.
package memory

import (
	"aquasync/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.VerdictStore = (*Store)(nil)

// Snapshot is a deep copy of the store contents.
type Snapshot struct {
	Verdicts []domain.Verdict         `json:"verdicts"`
	Profiles []domain.TankmateProfile `json:"profiles"`
}

// Store keeps verdicts keyed by canonical pair and profiles keyed by species.
type Store struct {
	mu       sync.RWMutex
	verdicts map[domain.PairKey]domain.Verdict
	profiles map[string]domain.TankmateProfile
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		verdicts: make(map[domain.PairKey]domain.Verdict),
		profiles: make(map[string]domain.TankmateProfile),
	}
}

// ValidateVerdicts rejects batches that contain non-canonical pairs or
// unknown levels. Stores call it before writing anything so a bad batch
// leaves no partial state.
func ValidateVerdicts(verdicts []domain.Verdict) error {
	for _, v := range verdicts {
		if !v.Pair.Canonical() {
			return fmt.Errorf("verdict pair %s is not canonical", v.Pair)
		}
		if !v.Level.Valid() {
			return fmt.Errorf("verdict %s has invalid level %q", v.Pair, v.Level)
		}
	}
	return nil
}

// UpsertVerdicts stores the batch atomically.
func (s *Store) UpsertVerdicts(ctx context.Context, verdicts []domain.Verdict) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateVerdicts(verdicts); err != nil {
		return err
	}
	s.ApplyVerdicts(verdicts)
	return nil
}

// ApplyVerdicts writes already-validated verdicts without checks. SQL stores
// call it after their transaction commits.
func (s *Store) ApplyVerdicts(verdicts []domain.Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range verdicts {
		s.verdicts[v.Pair] = v.Clone()
	}
}

// GetVerdict returns the verdict for the pair in either order.
func (s *Store) GetVerdict(_ context.Context, pair domain.PairKey) (domain.Verdict, bool, error) {
	pair = domain.NewPairKey(pair.A, pair.B)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verdicts[pair]
	if !ok {
		return domain.Verdict{}, false, nil
	}
	return v.Clone(), true, nil
}

// ListVerdicts returns every verdict ordered by pair.
func (s *Store) ListVerdicts(_ context.Context) ([]domain.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Verdict, 0, len(s.verdicts))
	for _, v := range s.verdicts {
		out = append(out, v.Clone())
	}
	SortVerdicts(out)
	return out, nil
}

// VerdictsFor returns the verdicts involving the species, ordered by pair.
func (s *Store) VerdictsFor(_ context.Context, species string) ([]domain.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Verdict
	for pair, v := range s.verdicts {
		if pair.Involves(species) {
			out = append(out, v.Clone())
		}
	}
	SortVerdicts(out)
	return out, nil
}

// Fingerprints returns the stored fingerprint per pair.
func (s *Store) Fingerprints(_ context.Context) (map[domain.PairKey]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.PairKey]string, len(s.verdicts))
	for pair, v := range s.verdicts {
		out[pair] = v.Fingerprint
	}
	return out, nil
}

// DeletePairs removes the verdicts; unknown pairs are ignored.
func (s *Store) DeletePairs(ctx context.Context, pairs []domain.PairKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		delete(s.verdicts, domain.NewPairKey(p.A, p.B))
	}
	return nil
}

// Clear drops every verdict and profile.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts = make(map[domain.PairKey]domain.Verdict)
	s.profiles = make(map[string]domain.TankmateProfile)
	return nil
}

// ReplaceProfiles swaps the full profile set.
func (s *Store) ReplaceProfiles(ctx context.Context, profiles []domain.TankmateProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.ApplyProfiles(profiles)
	return nil
}

// ApplyProfiles swaps the profile set without checks.
func (s *Store) ApplyProfiles(profiles []domain.TankmateProfile) {
	next := make(map[string]domain.TankmateProfile, len(profiles))
	for _, p := range profiles {
		next[p.Name] = cloneProfile(p)
	}
	s.mu.Lock()
	s.profiles = next
	s.mu.Unlock()
}

// GetProfile returns the stored profile for the species.
func (s *Store) GetProfile(_ context.Context, species string) (domain.TankmateProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[species]
	if !ok {
		return domain.TankmateProfile{}, false, nil
	}
	return cloneProfile(p), true, nil
}

// ListProfiles returns every profile ordered by species name.
func (s *Store) ListProfiles(_ context.Context) ([]domain.TankmateProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TankmateProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ExportState returns a deep copy of the store contents.
func (s *Store) ExportState() Snapshot {
	verdicts, _ := s.ListVerdicts(context.Background())
	profiles, _ := s.ListProfiles(context.Background())
	return Snapshot{Verdicts: verdicts, Profiles: profiles}
}

// ImportState replaces the store contents with the snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	verdicts := make(map[domain.PairKey]domain.Verdict, len(snapshot.Verdicts))
	for _, v := range snapshot.Verdicts {
		verdicts[v.Pair] = v.Clone()
	}
	profiles := make(map[string]domain.TankmateProfile, len(snapshot.Profiles))
	for _, p := range snapshot.Profiles {
		profiles[p.Name] = cloneProfile(p)
	}
	s.mu.Lock()
	s.verdicts = verdicts
	s.profiles = profiles
	s.mu.Unlock()
}

// SortVerdicts orders verdicts by (A, B).
func SortVerdicts(vs []domain.Verdict) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Pair.A != vs[j].Pair.A {
			return vs[i].Pair.A < vs[j].Pair.A
		}
		return vs[i].Pair.B < vs[j].Pair.B
	})
}

func cloneProfile(p domain.TankmateProfile) domain.TankmateProfile {
	cp := p
	cp.FullyCompatible = append([]string{}, p.FullyCompatible...)
	cp.Incompatible = append([]string{}, p.Incompatible...)
	cp.SpecialRequirements = append([]string{}, p.SpecialRequirements...)
	cp.Conditional = make([]domain.ConditionalMate, 0, len(p.Conditional))
	for _, c := range p.Conditional {
		cp.Conditional = append(cp.Conditional, domain.ConditionalMate{
			Name:       c.Name,
			Conditions: append([]string{}, c.Conditions...),
		})
	}
	return cp
}
