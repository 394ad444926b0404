package cache

import (
	"context"
	"log/slog"

	"github.com/quiz-master/server/src/server/data"
)

type Entity string

const (
	EntityUser     Entity = "user"
	EntitySubject  Entity = "subject"
	EntityChapter  Entity = "chapter"
	EntityQuiz     Entity = "quiz"
	EntityQuestion Entity = "question"
	// EntityScore is a quiz attempt.
	EntityScore  Entity = "score"
	EntitySearch Entity = "search"
)

// Mutation describes a committed write. ID is the affected entity; UserID is
// the owner of an attempt.
type Mutation struct {
	Entity Entity
	ID     int64
	UserID int64
}

// Purge is the set of cache entries a mutation makes stale.
type Purge struct {
	Patterns []string
	Keys     []string
}

var policies = map[Entity]func(Mutation) Purge{
	EntitySubject: func(m Mutation) Purge {
		return Purge{
			Patterns: []string{"subjects*", "search_*", "analytics*"},
			Keys:     []string{EntityKey("subject", m.ID)},
		}
	},
	EntityChapter: func(m Mutation) Purge {
		return Purge{
			Patterns: []string{"chapters*", "search_*", "analytics*"},
			Keys:     []string{EntityKey("chapter", m.ID)},
		}
	},
	EntityQuiz: func(m Mutation) Purge {
		return Purge{
			Patterns: []string{"quizzes*", "search_*", "analytics*", "charts*"},
			Keys:     []string{EntityKey("quiz", m.ID)},
		}
	},
	EntityQuestion: func(m Mutation) Purge {
		return Purge{
			Patterns: []string{"questions*", "search_*"},
			Keys:     []string{EntityKey("question", m.ID)},
		}
	},
	EntityUser: func(m Mutation) Purge {
		return Purge{
			Patterns: []string{UserNamespace(m.ID), "search_*", "analytics*"},
			Keys: []string{
				EntityKey("user", m.ID),
				RoleKey("users_list", data.RoleAdmin),
				RoleKey("users_list", data.RoleUser),
			},
		}
	},
	EntityScore: func(m Mutation) Purge {
		return Purge{
			Patterns: []string{UserNamespace(m.UserID), "charts*", "analytics*", "scores*"},
		}
	},
	EntitySearch: func(Mutation) Purge {
		return Purge{Patterns: []string{"search_*"}}
	},
}

// PolicyFor returns what m invalidates. Unknown entities invalidate nothing.
func PolicyFor(m Mutation) Purge {
	if p, ok := policies[m.Entity]; ok {
		return p(m)
	}
	return Purge{}
}

// Invalidator applies the policy after writes. Cache failures are logged and
// never reach the caller: the write already committed.
type Invalidator struct {
	store Store
}

func NewInvalidator(s Store) *Invalidator {
	return &Invalidator{store: s}
}

func (inv *Invalidator) Apply(ctx context.Context, m Mutation) {
	if inv == nil || inv.store == nil {
		return
	}
	p := PolicyFor(m)
	if len(p.Keys) > 0 {
		if err := inv.store.Delete(ctx, p.Keys...); err != nil {
			slog.Warn("Cache key invalidation failed", "entity", m.Entity, "keys", p.Keys, "error", err)
		}
	}
	for _, pattern := range p.Patterns {
		n, err := inv.store.DeletePattern(ctx, pattern)
		if err != nil {
			slog.Warn("Cache pattern invalidation failed", "entity", m.Entity, "pattern", pattern, "error", err)
			continue
		}
		if n > 0 {
			slog.Debug("Cache invalidated", "pattern", pattern, "removed", n)
		}
	}
}
