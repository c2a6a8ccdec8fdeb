package orchestrator

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures AnalyzeBatch's errgroup fan-out leaves no goroutines
// running past test completion.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
