package planner

import (
	"context"

	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/ledger"
	"github.com/aerolex/aerolex/pkg/types"
)

type versionKey struct {
	regID string
	seq   int
}

// corpusView is a per-query read-through cache over the ledger and chunk
// store. Each chunk, version, and regulation is fetched at most once per
// query, which both bounds lookup cost during candidate filtering and
// pins one consistent version state for the whole query.
type corpusView struct {
	ctx      context.Context
	ledger   *ledger.Ledger
	store    chunkstore.Store
	chunks   map[string]*types.Chunk
	versions map[versionKey]*types.RegulationVersion
	regs     map[string]*types.Regulation
}

func newCorpusView(ctx context.Context, l *ledger.Ledger, s chunkstore.Store) *corpusView {
	return &corpusView{
		ctx:      ctx,
		ledger:   l,
		store:    s,
		chunks:   make(map[string]*types.Chunk),
		versions: make(map[versionKey]*types.RegulationVersion),
		regs:     make(map[string]*types.Regulation),
	}
}

func (v *corpusView) chunk(id string) *types.Chunk {
	if c, ok := v.chunks[id]; ok {
		return c
	}
	c, err := v.store.Chunk(v.ctx, id)
	if err != nil {
		c = nil
	}
	v.chunks[id] = c
	return c
}

func (v *corpusView) version(regID string, seq int) *types.RegulationVersion {
	key := versionKey{regID, seq}
	if ver, ok := v.versions[key]; ok {
		return ver
	}
	ver, err := v.ledger.Version(regID, seq)
	if err != nil {
		ver = nil
	}
	v.versions[key] = ver
	return ver
}

func (v *corpusView) regulation(id string) *types.Regulation {
	if r, ok := v.regs[id]; ok {
		return r
	}
	reg, err := v.ledger.Regulation(id)
	var out *types.Regulation
	if err == nil {
		out = &reg
	}
	v.regs[id] = out
	return out
}

// metadata builds the flattened filter view for one chunk. A chunk whose
// owning version or regulation cannot be resolved is simply inadmissible.
func (v *corpusView) metadata(chunkID string) (types.ChunkMetadata, bool) {
	c := v.chunk(chunkID)
	if c == nil {
		return types.ChunkMetadata{}, false
	}
	ver := v.version(c.RegulationID, c.VersionSeq)
	if ver == nil {
		return types.ChunkMetadata{}, false
	}

	m := types.ChunkMetadata{
		ChunkID:      c.ID,
		RegulationID: c.RegulationID,
		VersionSeq:   c.VersionSeq,
		Ordinal:      c.Ordinal,
		TokenCount:   c.TokenCount,
		Status:       ver.Status,
		Effective:    ver.Effective(),
		Expiry:       ver.Expiry(),
		Fields:       c.Fields,
	}
	if reg := v.regulation(c.RegulationID); reg != nil {
		m.Category = reg.Category
		m.Jurisdiction = reg.Jurisdiction
	}
	return m, true
}

// result materializes one hit into a full query result.
func (v *corpusView) result(h index.Hit) (types.QueryResult, bool) {
	c := v.chunk(h.ChunkID)
	if c == nil {
		return types.QueryResult{}, false
	}
	ver := v.version(c.RegulationID, c.VersionSeq)
	if ver == nil {
		return types.QueryResult{}, false
	}
	return types.QueryResult{
		ChunkID:      c.ID,
		RegulationID: c.RegulationID,
		VersionSeq:   c.VersionSeq,
		Ordinal:      c.Ordinal,
		Text:         c.Text,
		Score:        h.Score,
		Status:       ver.Status,
		Effective:    ver.Effective(),
		Expiry:       ver.Expiry(),
		Fields:       c.Fields,
	}, true
}
