package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsentry/internal/protocol"
)

func TestExactSetAddAndContains(t *testing.T) {
	s := NewExactSet()
	s.Add("0xAAAA")
	s.Add("0xBBBB")

	assert.True(t, s.Contains("0xAAAA"))
	assert.True(t, s.Contains("0xBBBB"))
	assert.False(t, s.Contains("0xCCCC"))
	assert.Equal(t, 2, s.Len())
}

func TestExactSetVersionAdvancesOnDuplicates(t *testing.T) {
	s := NewExactSet()
	assert.Equal(t, uint64(0), s.Version())

	s.Add("0xAAAA")
	s.Add("0xAAAA")
	s.Add("0xAAAA")

	// Membership is idempotent, the version counter is not.
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(3), s.Version())
}

func TestExactSetSerialize(t *testing.T) {
	s := NewExactSet()
	s.Add("0xAAAA")
	s.Add("0xBBBB")

	data, err := s.Serialize()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	snap, err := protocol.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, s.Version(), snap.Version)
	assert.Equal(t, s.Len(), snap.Count)
	assert.Len(t, snap.Entries, snap.Count)
	assert.ElementsMatch(t, []string{"0xAAAA", "0xBBBB"}, snap.Entries)
	assert.False(t, snap.Probabilistic)
}

func TestBloomSetAddAndContains(t *testing.T) {
	s := NewBloomSet(DefaultBloomCapacity, DefaultBloomFalsePositiveRate)
	s.Add("0xAAAA")
	s.Add("0xBBBB")

	// No false negatives.
	assert.True(t, s.Contains("0xAAAA"))
	assert.True(t, s.Contains("0xBBBB"))
	assert.Equal(t, 2, s.Len())
}

func TestBloomSetVersionAndDuplicates(t *testing.T) {
	s := NewBloomSet(DefaultBloomCapacity, DefaultBloomFalsePositiveRate)
	s.Add("0xAAAA")
	s.Add("0xAAAA")

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(2), s.Version())
}

func TestBloomSetSerialize(t *testing.T) {
	s := NewBloomSet(DefaultBloomCapacity, DefaultBloomFalsePositiveRate)
	s.Add("0xAAAA")

	data, err := s.Serialize()
	require.NoError(t, err)

	snap, err := protocol.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.True(t, snap.Probabilistic)
	assert.Equal(t, 1, snap.Count)
	assert.Empty(t, snap.Entries)
	assert.NotEmpty(t, snap.Filter)
}
