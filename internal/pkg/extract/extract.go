// Package extract provides pattern-based entity and relation extraction
// for knowledge graph construction.
package extract

import (
	"regexp"
	"strings"
)

// Entity is a named node extracted from text.
type Entity struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Relation is a directed, typed edge between two entities.
type Relation struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

const (
	// maxEntities caps the number of entities extracted per text.
	maxEntities = 50

	// maxQueryEntities caps the number of entity candidates per query.
	maxQueryEntities = 10

	// mentionThreshold is the minimum number of mentions
	// before a capitalized phrase counts as an entity.
	mentionThreshold = 2
)

var (
	entityRegex = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

	relationPatterns = []struct {
		regex   *regexp.Regexp
		relType string
	}{
		{regexp.MustCompile(`(?i)(\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b)\s+(?:is|was|are|were)\s+(?:a|an|the)?\s*(\w+)`), "IS_A"},
		{regexp.MustCompile(`(?i)(\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b)\s+works?\s+(?:at|for)\s+(\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b)`), "WORKS_AT"},
		{regexp.MustCompile(`(?i)(\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b)\s+(?:located|in|at)\s+(\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b)`), "LOCATED_IN"},
	}
)

// EntitiesAndRelations extracts entities and relations from text using
// pattern matching. Capitalized phrases mentioned at least twice become
// entities; relation patterns only connect known entities.
func EntitiesAndRelations(text string) ([]Entity, []Relation) {
	seen := make(map[string]struct{})
	var entities []Entity

	for _, match := range entityRegex.FindAllString(text, -1) {
		name := strings.TrimSpace(match)
		if len(name) <= 2 {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		count := strings.Count(text, name)
		if count < mentionThreshold {
			continue
		}
		seen[name] = struct{}{}
		entities = append(entities, Entity{
			Name: name,
			Type: classifyEntityType(name),
			Properties: map[string]any{
				"mention_count": count,
				"first_mention": strings.Index(text, name),
			},
		})
		if len(entities) >= maxEntities {
			break
		}
	}

	seenRelations := make(map[string]struct{})
	var relations []Relation
	for _, p := range relationPatterns {
		for _, groups := range p.regex.FindAllStringSubmatch(text, -1) {
			if len(groups) < 3 {
				continue
			}
			source := strings.TrimSpace(groups[1])
			target := strings.TrimSpace(groups[len(groups)-1])
			if source == "" || target == "" {
				continue
			}
			if _, ok := seen[source]; !ok {
				continue
			}
			if _, ok := seen[target]; !ok {
				continue
			}
			key := source + "-" + p.relType + "-" + target
			if _, ok := seenRelations[key]; ok {
				continue
			}
			seenRelations[key] = struct{}{}
			relations = append(relations, Relation{
				Source: source,
				Target: target,
				Type:   p.relType,
				Properties: map[string]any{
					"context": truncate(groups[0], 100),
				},
			})
		}
	}

	return entities, relations
}

// QueryEntities extracts potential entity names from a query,
// used as knowledge graph traversal starting points.
// Duplicates are removed preserving first-occurrence order.
func QueryEntities(query string) []string {
	seen := make(map[string]struct{})
	var entities []string
	for _, match := range entityRegex.FindAllString(query, -1) {
		if len(match) <= 2 {
			continue
		}
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		entities = append(entities, match)
		if len(entities) >= maxQueryEntities {
			break
		}
	}
	return entities
}

// classifyEntityType assigns a coarse type label from surface features.
func classifyEntityType(name string) string {
	lower := strings.ToLower(name)

	orgWords := []string{"inc", "corp", "company", "ltd", "llc", "organization", "university", "college", "school", "institute"}
	for _, w := range orgWords {
		if strings.Contains(lower, w) {
			return "Organization"
		}
	}

	locWords := []string{"city", "country", "state", "nation", "republic"}
	for _, w := range locWords {
		if strings.Contains(lower, w) {
			return "Location"
		}
	}

	// Two capitalized words often form a person name.
	if len(strings.Fields(name)) == 2 {
		return "Person"
	}

	return "Entity"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
