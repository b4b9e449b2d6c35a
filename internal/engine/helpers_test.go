package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/engramdb/engram/internal/store"
	"github.com/engramdb/engram/internal/testutil"
)

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// newTestEngine builds an engine over a temp database with a
// deterministic clock and sequential ids.
func newTestEngine(t *testing.T) (*Engine, *testutil.DeterministicClock) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Open() failed")
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewDeterministicClock(testEpoch)
	return New(st, clock, testutil.NewSequenceIDs(), nil), clock
}

// recordingObserver captures emitted domain events.
type recordingObserver struct {
	events []DomainEvent
}

func (r *recordingObserver) OnEvent(ev DomainEvent) error {
	r.events = append(r.events, ev)
	return nil
}
