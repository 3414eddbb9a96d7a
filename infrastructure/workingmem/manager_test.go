package workingmem

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/domain/config"
)

func testConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.WorkingMemoryWindow = 15 * time.Minute
	cfg.InitialMentionScore = 1.0
	cfg.RepeatMentionBoost = 0.2
	cfg.DecayFloor = 0.1
	cfg.MaxTrackedUsers = 3
	cfg.MaxTopicsPerUser = 5
	return cfg
}

func TestUpdate_FirstMentionScoresInitial(t *testing.T) {
	m := NewManager(testConfig(), nil)
	now := time.Now().UTC()

	m.Update("user-1", []string{"lives-in"}, []string{"Boston"}, now)

	ctx := m.ActiveContext("user-1", now)
	require.Len(t, ctx.Topics, 1)
	require.Len(t, ctx.Entities, 1)
	assert.InDelta(t, 1.0, ctx.Topics[0].Score, 1e-9)
	assert.Equal(t, "Boston", ctx.Entities[0].Name)
	assert.Equal(t, "lives-in", ctx.PrimaryFocus)
}

func TestUpdate_RepeatMentionBoosts(t *testing.T) {
	m := NewManager(testConfig(), nil)
	now := time.Now().UTC()

	m.Update("user-1", nil, []string{"Boston"}, now)
	m.Update("user-1", nil, []string{"boston"}, now)

	ctx := m.ActiveContext("user-1", now)
	require.Len(t, ctx.Entities, 1, "mentions differing only in case must merge")
	assert.InDelta(t, 1.2, ctx.Entities[0].Score, 1e-9)
}

func TestActiveContext_LinearDecay(t *testing.T) {
	m := NewManager(testConfig(), nil)
	start := time.Now().UTC()

	m.Update("user-1", []string{"project"}, nil, start)

	// Halfway through the window the score has halved
	ctx := m.ActiveContext("user-1", start.Add(7*time.Minute+30*time.Second))
	require.Len(t, ctx.Topics, 1)
	assert.InDelta(t, 0.5, ctx.Topics[0].Score, 1e-9)
}

func TestActiveContext_ExpiredEntriesPruned(t *testing.T) {
	m := NewManager(testConfig(), nil)
	start := time.Now().UTC()

	m.Update("user-1", []string{"project"}, []string{"Boston"}, start)

	ctx := m.ActiveContext("user-1", start.Add(16*time.Minute))
	assert.Empty(t, ctx.Topics)
	assert.Empty(t, ctx.Entities)
	assert.Empty(t, ctx.PrimaryFocus)
}

func TestUpdate_MentionAfterExpiryStartsFresh(t *testing.T) {
	m := NewManager(testConfig(), nil)
	start := time.Now().UTC()

	m.Update("user-1", nil, []string{"Boston"}, start)
	later := start.Add(20 * time.Minute)
	m.Update("user-1", nil, []string{"Boston"}, later)

	ctx := m.ActiveContext("user-1", later)
	require.Len(t, ctx.Entities, 1)
	assert.InDelta(t, 1.0, ctx.Entities[0].Score, 1e-9, "expired entry must not keep its old boosts")
}

func TestPrimaryFocus_HighestScoringTopic(t *testing.T) {
	m := NewManager(testConfig(), nil)
	now := time.Now().UTC()

	m.Update("user-1", []string{"vacation"}, nil, now)
	m.Update("user-1", []string{"deadline"}, nil, now)
	m.Update("user-1", []string{"deadline"}, nil, now)

	ctx := m.ActiveContext("user-1", now)
	assert.Equal(t, "deadline", ctx.PrimaryFocus)
}

func TestActiveContext_ScoreTiesBreakByRecency(t *testing.T) {
	m := NewManager(testConfig(), nil)
	start := time.Now().UTC()

	// Both topics decay down to the floor, so their scores tie exactly;
	// the more recently mentioned one must rank first
	m.Update("user-1", []string{"budget"}, nil, start)
	m.Update("user-1", []string{"deploys"}, nil, start.Add(30*time.Second))

	ctx := m.ActiveContext("user-1", start.Add(14*time.Minute+30*time.Second))
	require.Len(t, ctx.Topics, 2)
	assert.InDelta(t, ctx.Topics[0].Score, ctx.Topics[1].Score, 1e-9)
	assert.Equal(t, "deploys", ctx.Topics[0].Name)
	assert.Equal(t, "deploys", ctx.PrimaryFocus)
}

func TestActiveContext_UnknownUserIsEmpty(t *testing.T) {
	m := NewManager(testConfig(), nil)

	ctx := m.ActiveContext("nobody", time.Now().UTC())
	assert.Empty(t, ctx.Topics)
	assert.Empty(t, ctx.Entities)
}

func TestUserCap_EvictsLeastRecentlyActive(t *testing.T) {
	m := NewManager(testConfig(), nil)
	now := time.Now().UTC()

	m.Update("user-1", []string{"a"}, nil, now)
	m.Update("user-2", []string{"b"}, nil, now)
	m.Update("user-3", []string{"c"}, nil, now)

	// user-1 is the least recently active and gets evicted
	m.Update("user-4", []string{"d"}, nil, now)

	assert.Empty(t, m.ActiveContext("user-1", now).Topics)
	assert.NotEmpty(t, m.ActiveContext("user-2", now).Topics)
	assert.NotEmpty(t, m.ActiveContext("user-4", now).Topics)
}

func TestTopicCap_DropsOldestEntries(t *testing.T) {
	m := NewManager(testConfig(), nil)
	now := time.Now().UTC()

	for i := 0; i < 8; i++ {
		m.Update("user-1", []string{fmt.Sprintf("topic-%d", i)}, nil, now.Add(time.Duration(i)*time.Second))
	}

	ctx := m.ActiveContext("user-1", now.Add(10*time.Second))
	assert.Len(t, ctx.Topics, 5)
	for _, topic := range ctx.Topics {
		assert.NotEqual(t, "topic-0", topic.Name, "oldest topics must be dropped first")
		assert.NotEqual(t, "topic-1", topic.Name)
		assert.NotEqual(t, "topic-2", topic.Name)
	}
}
