// Package aerolex provides a temporal versioning and filtered retrieval
// engine for regulatory text.
//
// Aerolex answers the question "what did the regulation say on date X, and
// which passages are most relevant to this query?". Regulations are
// versioned with explicit validity intervals, amendments supersede older
// versions without destroying them, and similarity search combines with
// exact temporal filtering so historical queries return exactly the text
// that was in force at the requested instant.
//
// # Basic Usage
//
// Create a client from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := aerolex.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Ingesting Versions
//
// Each version of a regulation is ingested with its pre-computed chunk
// embeddings. Registering a version with a later effective date supersedes
// the current one automatically:
//
//	v, err := client.IngestVersion(ctx,
//		types.Regulation{ID: "far-121.542", Category: "operations", Jurisdiction: "US"},
//		types.VersionDescriptor{Effective: effectiveDate},
//		chunks)
//
// # Querying
//
// Queries are similarity searches constrained by validity. Omitting AsOf
// asks about the present; setting it asks about any past instant:
//
//	results, err := client.Query(ctx, embedding, planner.QueryOptions{
//		K:    5,
//		AsOf: &before2023,
//		Filter: filter.Jurisdiction("US"),
//	})
//
// # Temporal Model
//
// Versions carry half-open validity intervals: the effective date is
// inclusive and the expiry date exclusive, so adjacent versions tile time
// with no gaps and no overlaps. At most one version of a regulation is
// active at any moment. Superseded versions stay queryable forever.
//
// # Architecture
//
//   - pkg/ledger: in-memory version chains with copy-on-write snapshots
//   - pkg/chunkstore: durable storage for regulations, versions, and chunks
//   - pkg/index: approximate nearest-neighbor search with tombstoning
//   - pkg/filter: pure predicate evaluator for temporal and metadata filters
//   - pkg/planner: strategy selection, retries, and result resolution
//   - pkg/lineage: supersession audit trail
//
// The index is a derived structure: it can always be rebuilt from the chunk
// store, never the reverse.
package aerolex
