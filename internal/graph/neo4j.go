// Package graph persists a bind.DependencyGraph to Neo4j: one
// Repository node per indexed tree, one Module node per interned
// module name, and a DEPENDS_ON edge per (source, target, kind) triple
// the Dependency Resolver produced.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/randalmurphy/code-index/internal/bind"
)

// Neo4jStore handles graph storage in Neo4j.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// Node and relationship labels.
const (
	NodeRepository = "Repository"
	NodeModule     = "Module"
	RelContains    = "CONTAINS"
	RelDependsOn   = "DEPENDS_ON"
)

// Repository represents a code repository node.
type Repository struct {
	Name string
	Path string
}

// ModuleEdge is one persisted DEPENDS_ON edge, the graph-database
// projection of a bind.Edge.
type ModuleEdge struct {
	Source       string
	Target       string
	Kind         string
	ResolvedPath string
}

// NewNeo4jStore creates a new Neo4j store.
func NewNeo4jStore(uri, username, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	return &Neo4jStore{driver: driver}, nil
}

// Close closes the Neo4j driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the uniqueness constraints PersistGraph relies
// on for its MERGE statements to stay idempotent across reruns.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT repo_name IF NOT EXISTS FOR (r:Repository) REQUIRE r.name IS UNIQUE",
		"CREATE CONSTRAINT module_path IF NOT EXISTS FOR (m:Module) REQUIRE (m.repo, m.name) IS UNIQUE",
	}
	for _, constraint := range constraints {
		if _, err := session.Run(ctx, constraint, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// UpsertRepository creates or updates a repository node.
func (s *Neo4jStore) UpsertRepository(ctx context.Context, repo Repository) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (r:Repository {name: $name})
		SET r.path = $path
	`, map[string]interface{}{
		"name": repo.Name,
		"path": repo.Path,
	})
	return err
}

// PersistGraph upserts one Module node per name interned in g and one
// DEPENDS_ON edge per edge g carries, under the given repository.
// Idempotent: reruns over an unchanged graph leave the same nodes and
// edges in place via MERGE.
func (s *Neo4jStore) PersistGraph(ctx context.Context, repo string, g *bind.DependencyGraph) error {
	if err := s.UpsertRepository(ctx, Repository{Name: repo}); err != nil {
		return fmt.Errorf("upsert repository: %w", err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, name := range g.Modules() {
		_, err := session.Run(ctx, `
			MERGE (m:Module {repo: $repo, name: $name})
			WITH m
			MATCH (r:Repository {name: $repo})
			MERGE (r)-[:CONTAINS]->(m)
		`, map[string]interface{}{"repo": repo, "name": name})
		if err != nil {
			return fmt.Errorf("upsert module %s: %w", name, err)
		}
	}

	for _, name := range g.Modules() {
		for _, edge := range g.Edges(name) {
			target := g.ModuleName(edge.Target)
			_, err := session.Run(ctx, `
				MATCH (source:Module {repo: $repo, name: $source})
				MATCH (target:Module {repo: $repo, name: $target})
				MERGE (source)-[e:DEPENDS_ON {kind: $kind}]->(target)
				SET e.resolved_path = $resolved_path
			`, map[string]interface{}{
				"repo":          repo,
				"source":        name,
				"target":        target,
				"kind":          edge.Kind,
				"resolved_path": edge.ResolvedPath,
			})
			if err != nil {
				return fmt.Errorf("upsert edge %s->%s (%s): %w", name, target, edge.Kind, err)
			}
		}
	}

	return nil
}

// RelatedModules returns the names of modules adjacent to module in
// either direction of a DEPENDS_ON edge, for the dependency-graph
// traversal SPEC_FULL.md §4.C names as a navigation aid.
func (s *Neo4jStore) RelatedModules(ctx context.Context, repo, module string, limit int) ([]ModuleEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (m:Module {repo: $repo, name: $name})
		OPTIONAL MATCH (m)-[out:DEPENDS_ON]->(dep:Module)
		OPTIONAL MATCH (dependent:Module)-[in:DEPENDS_ON]->(m)
		WITH COLLECT(DISTINCT {source: m.name, target: dep.name, kind: out.kind, resolved_path: out.resolved_path})
		   + COLLECT(DISTINCT {source: dependent.name, target: m.name, kind: in.kind, resolved_path: in.resolved_path}) AS edges
		UNWIND edges AS e
		WITH DISTINCT e
		WHERE e.source IS NOT NULL AND e.target IS NOT NULL
		RETURN e.source, e.target, e.kind, e.resolved_path
		LIMIT $limit
	`, map[string]interface{}{
		"repo":  repo,
		"name":  module,
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	var edges []ModuleEdge
	for result.Next(ctx) {
		record := result.Record()
		edges = append(edges, ModuleEdge{
			Source:       getString(record, "e.source"),
			Target:       getString(record, "e.target"),
			Kind:         getString(record, "e.kind"),
			ResolvedPath: getString(record, "e.resolved_path"),
		})
	}
	return edges, nil
}

// DeleteRepository removes a repository and all its modules.
func (s *Neo4jStore) DeleteRepository(ctx context.Context, repoName string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (r:Repository {name: $name})
		OPTIONAL MATCH (r)-[*]->(n)
		DETACH DELETE r, n
	`, map[string]interface{}{"name": repoName})
	return err
}

// ModuleCount returns the number of Module nodes under repo, used by
// the status command to report graph size without pulling every edge.
func (s *Neo4jStore) ModuleCount(ctx context.Context, repo string) (int64, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (m:Module {repo: $repo})
		RETURN count(m) AS n
	`, map[string]interface{}{"repo": repo})
	if err != nil {
		return 0, err
	}
	if result.Next(ctx) {
		return getInt64(result.Record(), "n"), nil
	}
	return 0, nil
}

func getString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

func getInt64(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	return 0
}
