// Package workingmem holds the short-term attention state of active
// users. The state is process-local by design: it models what a user
// is talking about right now, not durable knowledge, so losing it on
// restart is correct behavior.
package workingmem

import (
	"container/list"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/config"
)

type entry struct {
	display         string
	rawScore        float64
	lastMentionedAt time.Time
}

type userMemory struct {
	mu       sync.Mutex
	topics   map[string]*entry
	entities map[string]*entry
	element  *list.Element
}

// Manager implements the working memory port. Scores decay linearly
// over the configured window and entries are pruned lazily on read;
// nothing runs in the background. Users are tracked up to a fixed cap
// with least-recently-active eviction.
type Manager struct {
	window       time.Duration
	initialScore float64
	repeatBoost  float64
	decayFloor   float64
	maxUsers     int
	maxPerUser   int

	mu    sync.Mutex
	users map[string]*userMemory
	lru   *list.List

	logger *zap.Logger
}

// NewManager creates a working memory manager from domain configuration
func NewManager(cfg *config.DomainConfig, logger *zap.Logger) *Manager {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		window:       cfg.WorkingMemoryWindow,
		initialScore: cfg.InitialMentionScore,
		repeatBoost:  cfg.RepeatMentionBoost,
		decayFloor:   cfg.DecayFloor,
		maxUsers:     cfg.MaxTrackedUsers,
		maxPerUser:   cfg.MaxTopicsPerUser,
		users:        make(map[string]*userMemory),
		lru:          list.New(),
		logger:       logger,
	}
}

// Update boosts attention for the given topics and entities at time at.
// A first mention scores the initial value; a repeat mention adds the
// repeat boost on top of the current raw score.
func (m *Manager) Update(userID string, topics, entityNames []string, at time.Time) {
	if userID == "" || (len(topics) == 0 && len(entityNames) == 0) {
		return
	}

	um := m.userFor(userID)

	um.mu.Lock()
	defer um.mu.Unlock()

	for _, topic := range topics {
		m.mention(um.topics, topic, at)
	}
	for _, name := range entityNames {
		m.mention(um.entities, name, at)
	}

	m.enforceCap(um.topics)
	m.enforceCap(um.entities)
}

// ActiveContext returns the user's decayed attention state at now.
// Expired entries are pruned as a side effect.
func (m *Manager) ActiveContext(userID string, now time.Time) ports.WorkingMemoryContext {
	m.mu.Lock()
	um, ok := m.users[userID]
	if ok {
		m.lru.MoveToFront(um.element)
	}
	m.mu.Unlock()

	if !ok {
		return ports.WorkingMemoryContext{}
	}

	um.mu.Lock()
	defer um.mu.Unlock()

	ctx := ports.WorkingMemoryContext{
		Topics:   m.collect(um.topics, now),
		Entities: m.collect(um.entities, now),
	}
	if len(ctx.Topics) > 0 {
		ctx.PrimaryFocus = ctx.Topics[0].Name
	}
	return ctx
}

// userFor returns the user's memory, creating it and evicting the
// least recently active user when the cap is reached
func (m *Manager) userFor(userID string) *userMemory {
	m.mu.Lock()
	defer m.mu.Unlock()

	if um, ok := m.users[userID]; ok {
		m.lru.MoveToFront(um.element)
		return um
	}

	if m.maxUsers > 0 && len(m.users) >= m.maxUsers {
		oldest := m.lru.Back()
		if oldest != nil {
			evicted := oldest.Value.(string)
			m.lru.Remove(oldest)
			delete(m.users, evicted)
			m.logger.Debug("Evicted working memory",
				zap.String("user_id", evicted),
				zap.Int("tracked_users", len(m.users)))
		}
	}

	um := &userMemory{
		topics:   make(map[string]*entry),
		entities: make(map[string]*entry),
	}
	um.element = m.lru.PushFront(userID)
	m.users[userID] = um
	return um
}

func (m *Manager) mention(entries map[string]*entry, name string, at time.Time) {
	display := strings.Join(strings.Fields(name), " ")
	if display == "" {
		return
	}
	key := strings.ToLower(display)

	at = at.UTC()
	if e, ok := entries[key]; ok {
		// A mention after the window expired starts fresh rather
		// than boosting a score the user no longer holds
		if at.Sub(e.lastMentionedAt) >= m.window {
			e.rawScore = m.initialScore
		} else {
			e.rawScore += m.repeatBoost
		}
		e.lastMentionedAt = at
		e.display = display
		return
	}

	entries[key] = &entry{
		display:         display,
		rawScore:        m.initialScore,
		lastMentionedAt: at,
	}
}

// collect prunes expired entries and returns the rest with decayed
// scores, highest first
func (m *Manager) collect(entries map[string]*entry, now time.Time) []ports.AttentionEntry {
	var out []ports.AttentionEntry
	for key, e := range entries {
		age := now.Sub(e.lastMentionedAt)
		if age >= m.window {
			delete(entries, key)
			continue
		}
		decay := 1 - float64(age)/float64(m.window)
		if decay < m.decayFloor {
			decay = m.decayFloor
		}
		out = append(out, ports.AttentionEntry{
			Name:            e.display,
			Score:           e.rawScore * decay,
			LastMentionedAt: e.lastMentionedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		// Equal scores: the more recently mentioned entry wins
		return out[i].LastMentionedAt.After(out[j].LastMentionedAt)
	})
	return out
}

// enforceCap drops the weakest entries when a user tracks too many
func (m *Manager) enforceCap(entries map[string]*entry) {
	if m.maxPerUser <= 0 || len(entries) <= m.maxPerUser {
		return
	}

	type scored struct {
		key string
		at  time.Time
	}
	all := make([]scored, 0, len(entries))
	for key, e := range entries {
		all = append(all, scored{key: key, at: e.lastMentionedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].at.Before(all[j].at)
	})
	for _, s := range all[:len(entries)-m.maxPerUser] {
		delete(entries, s.key)
	}
}
