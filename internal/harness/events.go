package harness

import (
	"sync"

	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/testutil"
)

// EventType names a trace event.
type EventType string

// Event types.
const (
	EventProvision EventType = "provision"
	EventSkip      EventType = "skip"
	EventRelease   EventType = "release"
)

// Event is one step of a run.
type Event struct {
	Seq      int64     `json:"seq"`
	Type     EventType `json:"type"`
	Template string    `json:"template"`

	// Requested, Generated and Loaded are set on provision events.
	Requested int `json:"requested,omitempty"`
	Generated int `json:"generated,omitempty"`
	Loaded    int `json:"loaded,omitempty"`

	// IDs are the fixture ids of a provision or release event.
	IDs []string `json:"ids,omitempty"`
}

// recorder implements preparer.Observer.
type recorder struct {
	clock *testutil.SequenceClock

	mu    sync.Mutex
	trace []Event
}

func newRecorder(clock *testutil.SequenceClock) *recorder {
	return &recorder{clock: clock}
}

func (r *recorder) Provisioned(b fixture.Batch) {
	r.add(Event{
		Type:      EventProvision,
		Template:  b.TemplateName(),
		Requested: b.Requested(),
		Generated: b.Generated(),
		Loaded:    b.Len(),
		IDs:       ids(b),
	})
}

func (r *recorder) Skipped(name string) {
	r.add(Event{Type: EventSkip, Template: name})
}

func (r *recorder) Released(b fixture.Batch) {
	r.add(Event{Type: EventRelease, Template: b.TemplateName(), IDs: ids(b)})
}

func (r *recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = r.clock.Next()
	r.trace = append(r.trace, e)
}

func (r *recorder) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.trace...)
}

func ids(b fixture.Batch) []string {
	values := b.Values()
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.FixtureID()
	}
	return out
}
