package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kart-io/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	neo4jcomp "github.com/kart-io/graphrag/pkg/component/neo4j"
	"github.com/kart-io/graphrag/pkg/errors"
	neo4jopts "github.com/kart-io/graphrag/pkg/options/neo4j"
)

// maxTraversalRoots caps the number of traversal starting points.
const maxTraversalRoots = 5

// graphTypeRegex is the allow-list for node labels and relation types.
// Cypher cannot parameterize labels, so they are validated before being
// interpolated into queries.
var graphTypeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// SanitizeGraphType validates a node label or relation type against the
// allow-list. All other query values travel as bound parameters.
func SanitizeGraphType(s string) (string, error) {
	if !graphTypeRegex.MatchString(s) {
		return "", errors.ErrInvalidGraphType.WithMessagef("invalid graph label or relation type: %q", s)
	}
	return s, nil
}

// Neo4jGraph implements GraphStore on a Neo4j database.
// When the database is unreachable at startup the store runs in
// unavailable mode: writes and traversals become no-ops so the service
// can answer vector-only queries.
type Neo4jGraph struct {
	client *neo4jcomp.Client
}

var _ GraphStore = (*Neo4jGraph)(nil)

// NewNeo4jGraph connects to Neo4j. When the connection fails and the
// backend is not required, it returns an unavailable store instead of
// an error.
func NewNeo4jGraph(opts *neo4jopts.Options) (*Neo4jGraph, error) {
	client, err := neo4jcomp.New(opts)
	if err != nil {
		if opts.Required {
			return nil, err
		}
		logger.Warnw("Neo4j unreachable, continuing without knowledge graph", "uri", opts.URI, "error", err)
		return &Neo4jGraph{}, nil
	}

	logger.Infow("Connected to Neo4j knowledge graph", "uri", opts.URI)
	return &Neo4jGraph{client: client}, nil
}

// Available reports whether the graph backend is reachable.
func (g *Neo4jGraph) Available() bool {
	return g.client != nil
}

// AddEntities upserts entities keyed by (type, name).
// Entities with empty names or invalid labels are skipped.
func (g *Neo4jGraph) AddEntities(ctx context.Context, entities []*Entity) (int, error) {
	if !g.Available() || len(entities) == 0 {
		return 0, nil
	}

	added := 0
	for _, entity := range entities {
		if entity.Name == "" {
			continue
		}
		label := entity.Type
		if label == "" {
			label = "Entity"
		}
		label, err := SanitizeGraphType(label)
		if err != nil {
			logger.Warnw("Skipping entity with invalid label", "name", entity.Name, "type", entity.Type)
			continue
		}

		query := fmt.Sprintf(`MERGE (e:%s {name: $name})
SET e += $properties
SET e.updated_at = timestamp()
RETURN e`, label)

		props := entity.Properties
		if props == nil {
			props = map[string]any{}
		}
		if _, err := g.client.Write(ctx, query, map[string]any{
			"name":       entity.Name,
			"properties": props,
		}); err != nil {
			logger.Warnw("Error adding entity", "name", entity.Name, "error", err)
			continue
		}
		added++
	}

	logger.Infow("Added entities to knowledge graph", "count", added)
	return added, nil
}

// AddRelations upserts relations keyed by (source, type, target).
// Relations with empty endpoints or invalid types are skipped.
func (g *Neo4jGraph) AddRelations(ctx context.Context, relations []*Relation) (int, error) {
	if !g.Available() || len(relations) == 0 {
		return 0, nil
	}

	added := 0
	for _, rel := range relations {
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		relType := rel.Type
		if relType == "" {
			relType = "RELATED_TO"
		}
		relType, err := SanitizeGraphType(relType)
		if err != nil {
			logger.Warnw("Skipping relation with invalid type", "source", rel.Source, "type", rel.Type, "target", rel.Target)
			continue
		}

		query := fmt.Sprintf(`MATCH (s {name: $source})
MATCH (t {name: $target})
MERGE (s)-[r:%s]->(t)
ON CREATE SET r.created_at = timestamp()
SET r += $properties
RETURN r`, relType)

		props := rel.Properties
		if props == nil {
			props = map[string]any{}
		}
		if _, err := g.client.Write(ctx, query, map[string]any{
			"source":     rel.Source,
			"target":     rel.Target,
			"properties": props,
		}); err != nil {
			logger.Warnw("Error adding relation", "source", rel.Source, "type", relType, "target", rel.Target, "error", err)
			continue
		}
		added++
	}

	logger.Infow("Added relations to knowledge graph", "count", added)
	return added, nil
}

// Neighborhood traverses the graph from the given entity names.
// At most maxTraversalRoots starting points are used; a failing root is
// logged and skipped. The starting names are excluded from the results.
func (g *Neo4jGraph) Neighborhood(ctx context.Context, names []string, maxDepth, maxResults int) ([]*Entity, []*Relation, error) {
	if !g.Available() || len(names) == 0 {
		return nil, nil, nil
	}
	if maxDepth <= 0 {
		maxDepth = 1
	}

	query := fmt.Sprintf(`MATCH path = (start {name: $entity_name})-[*1..%d]-(connected)
WHERE ALL(name IN $entity_names WHERE name <> connected.name)
WITH connected, relationships(path) AS rels, nodes(path) AS path_nodes
LIMIT $max_results
RETURN DISTINCT connected AS entity, rels AS relations, path_nodes AS path_nodes`, maxDepth)

	roots := names
	if len(roots) > maxTraversalRoots {
		roots = roots[:maxTraversalRoots]
	}

	seenEntities := make(map[string]struct{})
	seenRelations := make(map[string]struct{})
	var entities []*Entity
	var relations []*Relation

	for _, root := range roots {
		records, err := g.client.Read(ctx, query, map[string]any{
			"entity_name":  root,
			"entity_names": names,
			"max_results":  maxResults,
		})
		if err != nil {
			logger.Warnw("Error traversing from entity", "entity", root, "error", err)
			continue
		}

		for _, record := range records {
			nodeNames := make(map[string]string)
			if raw, ok := record.Get("path_nodes"); ok {
				if nodes, ok := raw.([]any); ok {
					for _, n := range nodes {
						if node, ok := n.(dbtype.Node); ok {
							if name, ok := node.Props["name"].(string); ok {
								nodeNames[node.ElementId] = name
							}
						}
					}
				}
			}

			if raw, ok := record.Get("entity"); ok {
				if node, ok := raw.(dbtype.Node); ok {
					name, _ := node.Props["name"].(string)
					if name != "" {
						if _, dup := seenEntities[name]; !dup {
							seenEntities[name] = struct{}{}
							entityType := "Entity"
							if len(node.Labels) > 0 {
								entityType = node.Labels[0]
							}
							entities = append(entities, &Entity{
								EntityID:   node.ElementId,
								Name:       name,
								Type:       entityType,
								Properties: node.Props,
							})
						}
					}
				}
			}

			if raw, ok := record.Get("relations"); ok {
				if rels, ok := raw.([]any); ok {
					for _, r := range rels {
						rel, ok := r.(dbtype.Relationship)
						if !ok {
							continue
						}
						source := nodeNames[rel.StartElementId]
						target := nodeNames[rel.EndElementId]
						if source == "" || target == "" {
							continue
						}
						key := source + "-" + rel.Type + "->" + target
						if _, dup := seenRelations[key]; dup {
							continue
						}
						seenRelations[key] = struct{}{}
						relations = append(relations, &Relation{
							Source:     source,
							Target:     target,
							Type:       rel.Type,
							Properties: rel.Props,
						})
					}
				}
			}

			if len(entities) >= maxResults {
				break
			}
		}
	}

	if len(entities) > maxResults {
		entities = entities[:maxResults]
	}
	if len(relations) > maxResults {
		relations = relations[:maxResults]
	}
	logger.Infow("Knowledge graph traversal complete", "entities", len(entities), "relations", len(relations))
	return entities, relations, nil
}

// MatchEntityNames returns names of stored entities whose lowercased name
// appears as a word in the text. This catches entities the capitalized-phrase
// heuristic misses, such as lowercase or all-caps names.
func (g *Neo4jGraph) MatchEntityNames(ctx context.Context, text string) ([]string, error) {
	if !g.Available() || text == "" {
		return nil, nil
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		// Strip attached punctuation so trailing "?" or "," does not
		// prevent a name match.
		if w = strings.TrimFunc(w, unicode.IsPunct); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil, nil
	}

	records, err := g.client.Read(ctx, `MATCH (e)
WHERE toLower(e.name) IN $words
RETURN DISTINCT e.name AS name
LIMIT 50`, map[string]any{
		"words": words,
	})
	if err != nil {
		return nil, err
	}

	var names []string
	for _, record := range records {
		if raw, ok := record.Get("name"); ok {
			if name, ok := raw.(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// ShortestPath returns the nodes on the shortest path between two
// entities, or nil when no path exists within maxDepth.
func (g *Neo4jGraph) ShortestPath(ctx context.Context, source, target string, maxDepth int) ([]PathNode, error) {
	if !g.Available() {
		return nil, nil
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}

	query := fmt.Sprintf(`MATCH path = shortestPath((s {name: $source})-[*..%d]-(t {name: $target}))
RETURN path`, maxDepth)

	records, err := g.client.Read(ctx, query, map[string]any{
		"source": source,
		"target": target,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	raw, ok := records[0].Get("path")
	if !ok {
		return nil, nil
	}
	path, ok := raw.(dbtype.Path)
	if !ok {
		return nil, nil
	}

	nodes := make([]PathNode, 0, len(path.Nodes))
	for _, node := range path.Nodes {
		name, _ := node.Props["name"].(string)
		nodeType := "Entity"
		if len(node.Labels) > 0 {
			nodeType = node.Labels[0]
		}
		nodes = append(nodes, PathNode{Name: name, Type: nodeType})
	}
	return nodes, nil
}

// Stats returns graph statistics. Unavailable stores report zeros.
func (g *Neo4jGraph) Stats(ctx context.Context) (*GraphStats, error) {
	stats := &GraphStats{NodeTypes: map[string]int64{}}
	if !g.Available() {
		return stats, nil
	}

	records, err := g.client.Read(ctx, "MATCH (n) RETURN count(n) AS count", nil)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if v, ok := records[0].Get("count"); ok {
			stats.TotalNodes, _ = v.(int64)
		}
	}

	records, err = g.client.Read(ctx, "MATCH ()-[r]->() RETURN count(r) AS count", nil)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if v, ok := records[0].Get("count"); ok {
			stats.TotalRelationships, _ = v.(int64)
		}
	}

	records, err = g.client.Read(ctx, `MATCH (n)
RETURN labels(n)[0] AS type, count(n) AS count
ORDER BY count DESC`, nil)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		typeName, _ := record.Get("type")
		count, _ := record.Get("count")
		if name, ok := typeName.(string); ok {
			if c, ok := count.(int64); ok {
				stats.NodeTypes[name] = c
			}
		}
	}

	return stats, nil
}

// Close closes the Neo4j connection.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	if !g.Available() {
		return nil
	}
	return g.client.Close(ctx)
}
