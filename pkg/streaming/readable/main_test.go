package readable

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain catches goroutines left behind by the channel and reader sources.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
