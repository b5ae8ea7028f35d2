package core

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"aquasync/pkg/domain"
)

// speciesDigest hashes the normalized attributes of one species. Species is
// a plain record, so its JSON form is stable for a given value.
func speciesDigest(s domain.Species) uint64 {
	payload, err := json.Marshal(s)
	if err != nil {
		return xxhash.Sum64String(s.Name)
	}
	return xxhash.Sum64(payload)
}

// pairFingerprint combines the engine signature with both species digests.
// A stored verdict whose fingerprint differs is stale.
func pairFingerprint(signature string, a, b uint64) string {
	d := xxhash.New()
	_, _ = d.WriteString(signature)
	_, _ = d.WriteString("|" + strconv.FormatUint(a, 16))
	_, _ = d.WriteString("|" + strconv.FormatUint(b, 16))
	return strconv.FormatUint(d.Sum64(), 16)
}

// Fingerprint returns the staleness fingerprint the engine would stamp on the
// verdict for the pair.
func (e *Engine) Fingerprint(a, b domain.Species) string {
	a, b = canonicalOrder(a, b)
	return pairFingerprint(e.Signature(), speciesDigest(a), speciesDigest(b))
}
