package lineage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/aerolex/aerolex/pkg/types"
)

// Neo4jRecorder stores supersession history as a graph: one node per
// regulation version and a SUPERSEDED_BY relationship from the old version
// to the new one. MERGE keeps both idempotent, so replaying a record after
// a restore does not duplicate the chain.
type Neo4jRecorder struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jRecorder creates a graph-backed recorder.
func NewNeo4jRecorder(uri, username, password, database string) (*Neo4jRecorder, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jRecorder{
		client:   driver,
		database: database,
	}, nil
}

// Record implements Recorder.
func (n *Neo4jRecorder) Record(ctx context.Context, rec types.LineageRecord) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (from:Version {regulation_id: $regulation_id, seq: $from_seq})
			MERGE (to:Version {regulation_id: $regulation_id, seq: $to_seq})
			SET to.effective_date = $effective_date
			MERGE (from)-[r:SUPERSEDED_BY]->(to)
			ON CREATE SET r.recorded_at = $recorded_at
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"regulation_id":  rec.RegulationID,
			"from_seq":       rec.FromSeq,
			"to_seq":         rec.ToSeq,
			"effective_date": rec.Effective.Format(time.RFC3339),
			"recorded_at":    rec.RecordedAt.Format(time.RFC3339),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to record lineage: %w", err)
	}
	return nil
}

// History implements Recorder.
func (n *Neo4jRecorder) History(ctx context.Context, regulationID string) ([]types.LineageRecord, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (from:Version {regulation_id: $regulation_id})-[r:SUPERSEDED_BY]->(to:Version)
			RETURN from.seq AS from_seq, to.seq AS to_seq,
			       to.effective_date AS effective_date, r.recorded_at AS recorded_at
			ORDER BY r.recorded_at ASC
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"regulation_id": regulationID,
		})
		if err != nil {
			return nil, err
		}

		records, err := res.Collect(ctx)
		return records, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query lineage history: %w", err)
	}

	records := result.([]*db.Record)
	out := make([]types.LineageRecord, 0, len(records))
	for _, record := range records {
		rec := types.LineageRecord{RegulationID: regulationID}

		if v, found := record.Get("from_seq"); found {
			if seq, ok := v.(int64); ok {
				rec.FromSeq = int(seq)
			}
		}
		if v, found := record.Get("to_seq"); found {
			if seq, ok := v.(int64); ok {
				rec.ToSeq = int(seq)
			}
		}
		if v, found := record.Get("effective_date"); found {
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					rec.Effective = t
				}
			}
		}
		if v, found := record.Get("recorded_at"); found {
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					rec.RecordedAt = t
				}
			}
		}

		out = append(out, rec)
	}

	return out, nil
}

// Close implements Recorder.
func (n *Neo4jRecorder) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}
