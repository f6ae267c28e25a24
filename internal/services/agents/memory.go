package agents

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// pruneAge is how old a low-importance entry must be before pruning
// may remove it.
const pruneAge = 7 * 24 * time.Hour

// pruneSlack lets a kind overshoot its cap by 20% before a prune runs.
const pruneSlack = 1.2

var financialTerms = []string{
	"stock", "share", "price", "market", "portfolio", "dividend",
	"earnings", "revenue", "profit", "invest", "asx", "nasdaq",
	"etf", "bond", "yield", "sector", "valuation",
}

var questionWords = []string{"what", "why", "how", "when", "should", "which", "?"}

// MemoryManager keeps importance-weighted agent memory in five
// independently capped partitions. Entries that score low and age out
// are pruned; recall ranks by word overlap, recency and importance.
type MemoryManager struct {
	config *common.AgentsConfig
	logger arbor.ILogger

	mu      sync.RWMutex
	entries map[models.MemoryKind][]*models.MemoryEntry
}

// NewMemoryManager creates an empty memory manager.
func NewMemoryManager(config *common.AgentsConfig, logger arbor.ILogger) *MemoryManager {
	return &MemoryManager{
		config:  config,
		logger:  logger,
		entries: make(map[models.MemoryKind][]*models.MemoryEntry),
	}
}

// RememberConversation stores one conversational turn, scoring its
// importance from length, question markers and financial vocabulary.
func (m *MemoryManager) RememberConversation(content string, metadata map[string]interface{}) *models.MemoryEntry {
	importance := 0.5
	if len(content) > 100 {
		importance += 0.1
	}
	lower := strings.ToLower(content)
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			importance += 0.2
			break
		}
	}
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			importance += 0.3
			break
		}
	}

	entry := models.NewMemoryEntry(models.MemoryKindConversation, content, importance)
	entry.Metadata = metadata
	m.add(entry)
	return entry
}

// RememberTask stores one task outcome, scoring importance from
// success, tool usage, duration and reasoning depth.
func (m *MemoryManager) RememberTask(task string, result *interfaces.TaskResult) *models.MemoryEntry {
	importance := 0.5
	if result.Success {
		importance += 0.2
	}
	if len(result.ToolsUsed) > 2 {
		importance += 0.1
	}
	if result.ElapsedMs > 30_000 {
		importance += 0.2
	}
	if len(result.ReasoningTrace) > 3 {
		importance += 0.1
	}

	content := task
	if result.Result != "" {
		content += "\n" + result.Result
	}

	entry := models.NewMemoryEntry(models.MemoryKindTaskHistory, content, importance)
	entry.Metadata = map[string]interface{}{
		"success":    result.Success,
		"tools_used": result.ToolsUsed,
		"elapsed_ms": result.ElapsedMs,
	}
	m.add(entry)
	return entry
}

// Remember stores an entry of any kind with an explicit importance.
func (m *MemoryManager) Remember(kind models.MemoryKind, content string, importance float64) *models.MemoryEntry {
	entry := models.NewMemoryEntry(kind, content, importance)
	m.add(entry)
	return entry
}

func (m *MemoryManager) add(entry *models.MemoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.Kind] = append(m.entries[entry.Kind], entry)

	limit := m.capFor(entry.Kind)
	if limit > 0 && float64(len(m.entries[entry.Kind])) > float64(limit)*pruneSlack {
		m.prune(entry.Kind, limit)
	}
}

// prune removes low-importance entries older than a week, then if the
// partition is still over its cap keeps the highest-importance entries,
// breaking ties by recency.
func (m *MemoryManager) prune(kind models.MemoryKind, limit int) {
	cutoff := time.Now().UTC().Add(-pruneAge)
	kept := make([]*models.MemoryEntry, 0, len(m.entries[kind]))
	for _, entry := range m.entries[kind] {
		if entry.Importance < m.config.PruneThreshold && entry.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, entry)
	}

	if len(kept) > limit {
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].Importance != kept[j].Importance {
				return kept[i].Importance > kept[j].Importance
			}
			return kept[i].CreatedAt.After(kept[j].CreatedAt)
		})
		kept = kept[:limit]
	}

	removed := len(m.entries[kind]) - len(kept)
	m.entries[kind] = kept

	if m.logger != nil && removed > 0 {
		m.logger.Debug().
			Str("kind", string(kind)).
			Int("removed", removed).
			Int("remaining", len(kept)).
			Msg("Pruned memory partition")
	}
}

// Recall returns up to limit entries across all kinds ranked by
// relevance to the query.
func (m *MemoryManager) Recall(query string, limit int) []*models.MemoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		entry *models.MemoryEntry
		score float64
	}

	queryWords := strings.Fields(strings.ToLower(query))
	var candidates []scored
	for _, entries := range m.entries {
		for _, entry := range entries {
			score := relevance(queryWords, entry)
			if score > 0 {
				candidates = append(candidates, scored{entry, score})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]*models.MemoryEntry, len(candidates))
	for i, c := range candidates {
		c.entry.AccessCount++
		result[i] = c.entry
	}
	return result
}

// relevance scores an entry against query words: word overlap scaled
// by a recency boost and the entry's importance.
func relevance(queryWords []string, entry *models.MemoryEntry) float64 {
	if len(queryWords) == 0 {
		return 0
	}

	content := strings.ToLower(entry.Content)
	matched := 0
	for _, word := range queryWords {
		if strings.Contains(content, word) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}

	score := float64(matched) / float64(len(queryWords))

	age := time.Since(entry.CreatedAt)
	switch {
	case age < 24*time.Hour:
		score *= 1.5
	case age < 7*24*time.Hour:
		score *= 1.2
	}

	return score * (1 + entry.Importance)
}

// Count returns the number of entries held for a kind.
func (m *MemoryManager) Count(kind models.MemoryKind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[kind])
}

func (m *MemoryManager) capFor(kind models.MemoryKind) int {
	switch kind {
	case models.MemoryKindConversation:
		return m.config.ConversationCap
	case models.MemoryKindTaskHistory:
		return m.config.TaskHistoryCap
	case models.MemoryKindContext:
		return m.config.ContextCap
	case models.MemoryKindKnowledge:
		return m.config.KnowledgeCap
	case models.MemoryKindPreference:
		return m.config.PreferenceCap
	default:
		return 0
	}
}
