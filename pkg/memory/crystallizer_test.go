package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsSequences(t *testing.T) {
	c := NewSkillCrystallizer(3)
	seq := []string{"Grep", "Read", "Edit"}

	c.Observe(seq)
	c.Observe(seq)
	assert.Equal(t, 1, c.TotalPatterns())
	assert.Empty(t, c.Crystallized())

	c.Observe(seq)
	crystallized := c.Crystallized()
	require.Len(t, crystallized, 1)
	assert.Equal(t, seq, crystallized[0].Tools)
	assert.Equal(t, uint32(3), crystallized[0].Count)
	assert.NotEmpty(t, crystallized[0].LastSeen)
}

func TestEmptySequenceIgnored(t *testing.T) {
	c := NewSkillCrystallizer(1)
	c.Observe(nil)
	c.Observe([]string{})
	assert.Equal(t, 0, c.TotalPatterns())
}

func TestDistinctSequencesTrackedSeparately(t *testing.T) {
	c := NewSkillCrystallizer(2)
	c.Observe([]string{"Read", "Edit"})
	c.Observe([]string{"Edit", "Read"})
	assert.Equal(t, 2, c.TotalPatterns())
	assert.Empty(t, c.Crystallized())
}

func TestSeparatorPreventsBoundaryCollisions(t *testing.T) {
	c := NewSkillCrystallizer(1)
	c.Observe([]string{"ab", "c"})
	c.Observe([]string{"a", "bc"})
	assert.Equal(t, 2, c.TotalPatterns())
}

func TestCrystallizedSortsByCount(t *testing.T) {
	c := NewSkillCrystallizer(1)
	rare := []string{"Read"}
	common := []string{"Grep", "Edit"}
	c.Observe(rare)
	c.Observe(common)
	c.Observe(common)

	crystallized := c.Crystallized()
	require.Len(t, crystallized, 2)
	assert.Equal(t, common, crystallized[0].Tools)
}

func TestGenerateSkillMD(t *testing.T) {
	c := NewSkillCrystallizer(1)
	c.Observe([]string{"Grep", "Read", "Edit"})
	c.Observe([]string{"Grep", "Read", "Edit"})

	patterns := c.Crystallized()
	require.Len(t, patterns, 1)

	md := GenerateSkillMD(patterns[0])
	assert.Contains(t, md, "name: crystallized-"+patterns[0].Hash[:8])
	assert.Contains(t, md, "Auto-detected pattern (2x): Grep -> Read -> Edit")
	assert.Contains(t, md, "1. Grep\n2. Read\n3. Edit")
	assert.Contains(t, md, "user-invocable: true")
}
