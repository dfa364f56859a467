package nonlinear

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"caustic/internal/model"
)

// IdentifierLength is the hex truncation applied to run identifiers.
const IdentifierLength = 10

// Identifier derives the deterministic key a run stores under. It hashes
// the model's canonical description together with the search engine name,
// the settings fingerprint and the dataset tag, so identical inputs resolve
// to the same on-disk directory across processes, and any prior edit, link,
// fix, settings or dataset change resolves to a fresh one.
func Identifier(spec *model.Spec, searchName, settingsFingerprint, datasetTag string) string {
	h := sha256.New()
	io.WriteString(h, spec.CanonicalDescription())
	io.WriteString(h, "\nsearch "+searchName)
	io.WriteString(h, "\nsettings\n"+settingsFingerprint)
	io.WriteString(h, "\ndataset "+datasetTag)
	return hex.EncodeToString(h.Sum(nil))[:IdentifierLength]
}

// ModelHash hashes the model description alone, recorded by the aggregator
// so equal models fit with different settings group together.
func ModelHash(spec *model.Spec) string {
	sum := sha256.Sum256([]byte(spec.CanonicalDescription()))
	return hex.EncodeToString(sum[:])[:IdentifierLength]
}

// OpenRun resolves a run's identifier and store from its settings. Callers
// check Completed on the store before sampling and load instead of rerun.
func OpenRun(spec *model.Spec, searchName string, set Settings) (*Store, string, error) {
	if set.OutputRoot == "" {
		return nil, "", errNoOutputRoot
	}
	id := Identifier(spec, searchName, set.Fingerprint(), set.DatasetTag)
	return NewStore(set.Dir(id)), id, nil
}
