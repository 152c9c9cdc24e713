package voicebank

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cwbudde/algo-utau/sample"
)

// Bank is a loaded singer: its ledger plus every sample the ledger references.
type Bank struct {
	Dir     string
	Index   *Index
	Samples *sample.Store

	// Failures lists samples that could not be prepared. Their entries stay
	// in the index but are unplayable.
	Failures []error
}

// LoadBank parses dir/oto.ini and prepares each referenced sample at
// sampleRate. A ledger parse error aborts the load; per-sample failures are
// collected and logged.
func LoadBank(dir string, sampleRate int, logger *slog.Logger) (*Bank, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := Load(filepath.Join(dir, LedgerName))
	if err != nil {
		return nil, err
	}
	b := &Bank{
		Dir:     dir,
		Index:   idx,
		Samples: sample.NewStore(sampleRate, logger),
	}
	seen := make(map[string]bool, idx.Len())
	for _, e := range idx.Entries() {
		key := b.SamplePath(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := b.Samples.Load(key); err != nil {
			logger.Warn("voicebank sample skipped", "alias", e.Alias, "error", err)
			b.Failures = append(b.Failures, err)
		}
	}
	logger.Info("voicebank loaded",
		"dir", dir,
		"entries", idx.Len(),
		"samples", b.Samples.Len(),
		"failures", len(b.Failures))
	return b, nil
}

// SamplePath returns the store key for e.
func (b *Bank) SamplePath(e Entry) string {
	return filepath.Join(b.Dir, e.SampleID)
}

// Lookup resolves a phoneme to its ledger entry and prepared sample.
func (b *Bank) Lookup(phoneme string) (Entry, *sample.Prepared, bool) {
	if b == nil {
		return Entry{}, nil, false
	}
	e, ok := b.Index.Resolve(phoneme)
	if !ok {
		return Entry{}, nil, false
	}
	p, ok := b.Samples.Get(b.SamplePath(e))
	if !ok {
		return e, nil, false
	}
	return e, p, true
}

// Err joins the per-sample failures, or returns nil.
func (b *Bank) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("voicebank %s: %w", b.Dir, errors.Join(b.Failures...))
}
