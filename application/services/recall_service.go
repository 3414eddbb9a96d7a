package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"engram/application/ports"
	"engram/application/queries"
)

// RecallService ranks the entities a user knows about. Long-term
// signals (mention count, last seen) come from the graph store; the
// short-term signal is the user's working-memory attention, so an
// entity under discussion right now outranks an old favorite.
type RecallService struct {
	entityRepo    ports.EntityRepository
	workingMemory ports.WorkingMemory
}

// NewRecallService creates the recall service
func NewRecallService(entityRepo ports.EntityRepository, workingMemory ports.WorkingMemory) *RecallService {
	return &RecallService{
		entityRepo:    entityRepo,
		workingMemory: workingMemory,
	}
}

// Recall returns the user's known entities, attention first
func (s *RecallService) Recall(ctx context.Context, userID string, limit int) ([]queries.RecalledEntity, error) {
	known, err := s.entityRepo.KnownEntities(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	attention := s.workingMemory.ActiveContext(userID, time.Now().UTC())
	scores := make(map[string]float64, len(attention.Entities))
	for _, e := range attention.Entities {
		scores[normalize(e.Name)] = e.Score
	}
	focus := normalize(attention.PrimaryFocus)

	recalled := make([]queries.RecalledEntity, len(known))
	for i, k := range known {
		key := normalize(k.Name)
		recalled[i] = queries.RecalledEntity{
			Name:           k.Name,
			MentionCount:   k.MentionCount,
			LastSeenAt:     k.LastSeenAt,
			AttentionScore: scores[key],
			InFocus:        focus != "" && key == focus,
		}
	}

	// Attention dominates; persistent signals break ties
	sort.SliceStable(recalled, func(i, j int) bool {
		if recalled[i].AttentionScore != recalled[j].AttentionScore {
			return recalled[i].AttentionScore > recalled[j].AttentionScore
		}
		if recalled[i].MentionCount != recalled[j].MentionCount {
			return recalled[i].MentionCount > recalled[j].MentionCount
		}
		return recalled[i].LastSeenAt.After(recalled[j].LastSeenAt)
	})

	if limit > 0 && len(recalled) > limit {
		recalled = recalled[:limit]
	}
	return recalled, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
