package chunkstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aerolex/aerolex/pkg/types"
)

// Key layout: reg:<id>, ver:<id>|<seq zero-padded>, chunk:<id>. Records are
// JSON-encoded. The zero-padded seq keeps version iteration ordered.
const (
	regPrefix   = "reg:"
	verPrefix   = "ver:"
	chunkPrefix = "chunk:"
)

// BadgerStore is a Badger-backed durable Store. The full ledger and chunk
// corpus are reconstructable from it, and the ANN index is rebuildable from
// its chunks.
type BadgerStore struct {
	db        *badger.DB
	dimension int
}

// NewBadgerStore opens (or creates) a Badger store at path.
func NewBadgerStore(path string, dimension int) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", path, err)
	}
	return &BadgerStore{db: db, dimension: dimension}, nil
}

func verKey(regID string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s|%08d", verPrefix, regID, seq))
}

func (s *BadgerStore) AppendChunks(ctx context.Context, chunks []types.Chunk) error {
	if err := validateBatch(chunks, s.dimension); err != nil {
		return err
	}

	encoded := make([][]byte, len(chunks))
	for i := range chunks {
		data, err := json.Marshal(&chunks[i])
		if err != nil {
			return &types.InvalidInputError{Reason: "chunk " + chunks[i].ID, Err: err}
		}
		encoded[i] = data
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for i := range chunks {
			if err := txn.Set([]byte(chunkPrefix+chunks[i].ID), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Chunk(ctx context.Context, id string) (*types.Chunk, error) {
	var c types.Chunk
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chunkPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, &types.NotFoundError{Kind: "chunk", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", id, err)
	}
	return &c, nil
}

func (s *BadgerStore) ForEachChunk(ctx context.Context, fn func(*types.Chunk) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var c types.Chunk
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			})
			if err != nil {
				return err
			}
			if err := fn(&c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerStore) SaveRegulation(ctx context.Context, reg types.Regulation) error {
	if err := reg.Validate(); err != nil {
		return &types.InvalidInputError{Reason: "regulation", Err: err}
	}
	data, err := json.Marshal(&reg)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(regPrefix+reg.ID), data)
	})
}

func (s *BadgerStore) SaveVersion(ctx context.Context, v types.RegulationVersion) error {
	data, err := json.Marshal(&v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(verKey(v.RegulationID, v.Seq), data)
	})
}

func (s *BadgerStore) ForEachRegulation(ctx context.Context, fn func(types.Regulation, []types.RegulationVersion) error) error {
	var regs []types.Regulation
	versions := make(map[string][]types.RegulationVersion)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(regPrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			var reg types.Regulation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &reg)
			})
			if err != nil {
				it.Close()
				return err
			}
			regs = append(regs, reg)
		}
		it.Close()

		vopts := badger.DefaultIteratorOptions
		vopts.Prefix = []byte(verPrefix)
		vit := txn.NewIterator(vopts)
		defer vit.Close()
		for vit.Rewind(); vit.Valid(); vit.Next() {
			key := string(vit.Item().Key())
			regID := strings.TrimPrefix(key, verPrefix)
			if i := strings.LastIndex(regID, "|"); i >= 0 {
				regID = regID[:i]
			}
			var v types.RegulationVersion
			err := vit.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			})
			if err != nil {
				return err
			}
			versions[regID] = append(versions[regID], v)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	for _, reg := range regs {
		if err := fn(reg, versions[reg.ID]); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) Dimension() int { return s.dimension }

func (s *BadgerStore) Close() error { return s.db.Close() }
