package domain

import "context"

// VerdictStore persists derived compatibility data. Verdicts are keyed by
// their canonical pair; writing an existing key replaces it.
type VerdictStore interface {
	// UpsertVerdicts writes the batch atomically: either every verdict is
	// stored or none is.
	UpsertVerdicts(ctx context.Context, verdicts []Verdict) error
	// GetVerdict returns the verdict for a canonical pair.
	GetVerdict(ctx context.Context, pair PairKey) (Verdict, bool, error)
	// ListVerdicts returns every verdict ordered by pair key.
	ListVerdicts(ctx context.Context) ([]Verdict, error)
	// VerdictsFor returns every verdict that involves the species, ordered by pair key.
	VerdictsFor(ctx context.Context, species string) ([]Verdict, error)
	// Fingerprints returns the stored input fingerprint for every pair.
	Fingerprints(ctx context.Context) (map[PairKey]string, error)
	// DeletePairs removes verdicts; missing pairs are ignored.
	DeletePairs(ctx context.Context, pairs []PairKey) error
	// Clear removes every verdict and profile.
	Clear(ctx context.Context) error
	// ReplaceProfiles atomically swaps the full profile set.
	ReplaceProfiles(ctx context.Context, profiles []TankmateProfile) error
	// GetProfile returns the stored profile for a species.
	GetProfile(ctx context.Context, species string) (TankmateProfile, bool, error)
	// ListProfiles returns every profile ordered by species name.
	ListProfiles(ctx context.Context) ([]TankmateProfile, error)
	Close() error
}

// CatalogSource is the read-only species attribute feed.
type CatalogSource interface {
	ListSpecies(ctx context.Context) ([]SpeciesRecord, error)
	GetSpecies(ctx context.Context, name string) (SpeciesRecord, bool, error)
}
