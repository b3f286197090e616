package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/datapreparer/internal/canonical"
)

// Snapshot is the golden form of a run. Check errors are left out since
// their text embeds the whole trace.
type Snapshot struct {
	Name      string  `json:"name"`
	Events    []Event `json:"events"`
	Remaining int     `json:"remaining"`
	Kept      bool    `json:"kept"`
}

// NewSnapshot captures r.
func NewSnapshot(r *Result) Snapshot {
	events := r.Events
	if events == nil {
		events = []Event{}
	}
	return Snapshot{
		Name:      r.Name,
		Events:    events,
		Remaining: r.Remaining,
		Kept:      r.Kept,
	}
}

// MarshalSnapshot returns the canonical JSON of r's snapshot.
func MarshalSnapshot(r *Result) ([]byte, error) {
	return canonical.Marshal(NewSnapshot(r))
}

// AssertGolden compares the snapshot of result with
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
