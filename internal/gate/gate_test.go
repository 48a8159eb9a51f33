package gate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsentry/internal/protocol"
)

func report(addr, source string, ts time.Time) protocol.IOCReport {
	return protocol.IOCReport{
		Address:    addr,
		ChainID:    1,
		Confidence: 0.9,
		Timestamp:  ts,
		SourceID:   source,
	}
}

func TestMeetsThresholdUnknownAddress(t *testing.T) {
	g := New(DefaultConfig())
	assert.False(t, g.MeetsThreshold("0xUnknown"))
}

func TestSingleSourceNeverPasses(t *testing.T) {
	g := New(Config{MinReportCount: 3, MinTimeSpanSeconds: 0, MinDistinctSources: 2})

	// Many reports, long span, but one identity.
	base := time.Now()
	for i := 0; i < 50; i++ {
		g.Record("0xVictim", report("0xVictim", "sybil-attacker", base.Add(time.Duration(i)*time.Hour)))
	}

	assert.False(t, g.MeetsThreshold("0xVictim"))
}

func TestTimeSpanTooShort(t *testing.T) {
	g := New(Config{MinReportCount: 2, MinTimeSpanSeconds: 3600, MinDistinctSources: 2})

	base := time.Now()
	g.Record("0xEvil", report("0xEvil", "agent-A", base))
	g.Record("0xEvil", report("0xEvil", "agent-B", base.Add(time.Minute)))

	// Two sources, two reports, but only a minute apart.
	assert.False(t, g.MeetsThreshold("0xEvil"))
}

func TestAllThresholdsMet(t *testing.T) {
	g := New(Config{MinReportCount: 2, MinTimeSpanSeconds: 0, MinDistinctSources: 2})

	base := time.Now()
	g.Record("0xEvil", report("0xEvil", "agent-A", base))
	assert.False(t, g.MeetsThreshold("0xEvil"))

	g.Record("0xEvil", report("0xEvil", "agent-B", base.Add(time.Second)))
	assert.True(t, g.MeetsThreshold("0xEvil"))
}

func TestEvidenceCounts(t *testing.T) {
	g := New(DefaultConfig())

	base := time.Now()
	g.Record("0xA", report("0xA", "agent-A", base))
	g.Record("0xA", report("0xA", "agent-A", base.Add(time.Second)))
	g.Record("0xA", report("0xA", "agent-B", base.Add(2*time.Second)))

	reports, sources, span, ok := g.Evidence("0xA")
	require.True(t, ok)
	assert.Equal(t, 3, reports)
	assert.Equal(t, 2, sources)
	assert.Equal(t, 2*time.Second, span)

	_, _, _, ok = g.Evidence("0xB")
	assert.False(t, ok)

	assert.Equal(t, 1, g.Tracked())
}

func TestLastSeenIsLastRecorded(t *testing.T) {
	g := New(DefaultConfig())

	base := time.Now()
	g.Record("0xA", report("0xA", "agent-A", base))
	// A later call carrying an earlier timestamp wins; no reordering.
	g.Record("0xA", report("0xA", "agent-B", base.Add(-time.Hour)))

	_, _, span, ok := g.Evidence("0xA")
	require.True(t, ok)
	assert.Equal(t, -time.Hour, span)
}

func TestConcurrentRecordNoLostUpdates(t *testing.T) {
	g := New(DefaultConfig())

	const n = 64
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := fmt.Sprintf("agent-%03d", i)
			g.Record("0xConcurrent", report("0xConcurrent", source, base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	reports, sources, _, ok := g.Evidence("0xConcurrent")
	require.True(t, ok)
	assert.Equal(t, n, reports)
	assert.Equal(t, n, sources)
}
