package ledger

import (
	"fmt"
	"time"

	"github.com/aerolex/aerolex/pkg/types"
)

// Regulation returns the stored regulation record.
func (l *Ledger) Regulation(regID string) (types.Regulation, error) {
	r, err := l.lookup(regID)
	if err != nil {
		return types.Regulation{}, err
	}
	return r.snap.Load().reg, nil
}

// Regulations returns the IDs of all known regulations.
func (l *Ledger) Regulations() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.regs))
	for id := range l.regs {
		ids = append(ids, id)
	}
	return ids
}

// Version returns one version by sequence number.
func (l *Ledger) Version(regID string, seq int) (*types.RegulationVersion, error) {
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}
	v := findSeq(r.snap.Load().versions, seq)
	if v == nil {
		return nil, &types.NotFoundError{Kind: "version", ID: fmt.Sprintf("%s#%d", regID, seq)}
	}
	out := *v
	return &out, nil
}

// ActiveVersion returns the currently active version. Finding more than one
// active version is a fatal data-integrity error: it is alerted and
// surfaced, never resolved by picking one.
func (l *Ledger) ActiveVersion(regID string) (*types.RegulationVersion, error) {
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}
	s := r.snap.Load()

	var active *types.RegulationVersion
	for i := range s.versions {
		v := &s.versions[i]
		if v.Status != types.StatusActive {
			continue
		}
		if active != nil {
			return nil, l.integrityViolation(regID,
				fmt.Sprintf("versions %d and %d are both active", active.Seq, v.Seq))
		}
		active = v
	}
	if active == nil {
		return nil, &types.NotFoundError{Kind: "version", ID: regID + "#active"}
	}
	out := *active
	return &out, nil
}

// VersionAsOf returns the version in force at instant t. At most one
// version can cover any instant (contiguous, non-overlapping intervals);
// two matches is an integrity violation.
func (l *Ledger) VersionAsOf(regID string, t time.Time) (*types.RegulationVersion, error) {
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}
	s := r.snap.Load()

	var match *types.RegulationVersion
	for i := range s.versions {
		v := &s.versions[i]
		if v.Status == types.StatusDraft || !v.InForceAt(t) {
			continue
		}
		if match != nil {
			return nil, l.integrityViolation(regID,
				fmt.Sprintf("versions %d and %d both cover %s", match.Seq, v.Seq, t.Format("2006-01-02")))
		}
		match = v
	}
	if match == nil {
		return nil, &types.NotFoundError{
			Kind: "version", ID: fmt.Sprintf("%s@%s", regID, t.Format("2006-01-02")),
		}
	}
	out := *match
	return &out, nil
}

// History returns the regulation's versions ordered by effective date,
// drafts last.
func (l *Ledger) History(regID string) ([]types.RegulationVersion, error) {
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}
	s := r.snap.Load()

	out := make([]types.RegulationVersion, 0, len(s.versions))
	for _, v := range chainByEffective(s.versions) {
		out = append(out, *v)
	}
	for i := range s.versions {
		if s.versions[i].Status == types.StatusDraft {
			out = append(out, s.versions[i])
		}
	}
	return out, nil
}

// AddChunks records that n chunks were ingested for the given version. The
// counts feed the planner's selectivity estimate.
func (l *Ledger) AddChunks(regID string, seq, n int) error {
	r, err := l.lookup(regID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.snap.Load()
	if findSeq(s.versions, seq) == nil {
		return &types.NotFoundError{Kind: "version", ID: fmt.Sprintf("%s#%d", regID, seq)}
	}
	next := s.clone()
	next.chunks[seq] += n
	r.snap.Store(next)
	return nil
}

// Selectivity estimates the fraction of indexed chunks admissible under the
// temporal predicate: active-version chunks over total chunks for a
// present-tense query, or chunks of as-of-valid versions over total for a
// point-in-time query. Maintained incrementally via AddChunks; cheap enough
// to compute per query.
func (l *Ledger) Selectivity(asOf *time.Time) float64 {
	l.mu.RLock()
	regs := make([]*regulation, 0, len(l.regs))
	for _, r := range l.regs {
		regs = append(regs, r)
	}
	l.mu.RUnlock()

	var valid, total int
	for _, r := range regs {
		s := r.snap.Load()
		for i := range s.versions {
			v := &s.versions[i]
			n := s.chunks[v.Seq]
			total += n
			if v.Status == types.StatusDraft {
				continue
			}
			if asOf == nil {
				if v.Status == types.StatusActive {
					valid += n
				}
			} else if v.InForceAt(*asOf) {
				valid += n
			}
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(valid) / float64(total)
}

// Stats summarizes ledger contents.
type Stats struct {
	Regulations int `json:"regulations"`
	Versions    int `json:"versions"`
	Chunks      int `json:"chunks"`
}

// Summary returns corpus-wide counts.
func (l *Ledger) Summary() Stats {
	l.mu.RLock()
	regs := make([]*regulation, 0, len(l.regs))
	for _, r := range l.regs {
		regs = append(regs, r)
	}
	l.mu.RUnlock()

	st := Stats{Regulations: len(regs)}
	for _, r := range regs {
		s := r.snap.Load()
		st.Versions += len(s.versions)
		for _, n := range s.chunks {
			st.Chunks += n
		}
	}
	return st
}

// Restore loads a regulation and its versions from durable storage, used at
// startup to rebuild the in-memory ledger. It trusts the stored state but
// still runs the defensive at-most-one-active check.
func (l *Ledger) Restore(reg types.Regulation, versions []types.RegulationVersion, chunkCounts map[int]int) error {
	if err := reg.Validate(); err != nil {
		return &types.InvalidInputError{Reason: "regulation", Err: err}
	}

	active := 0
	for i := range versions {
		if versions[i].Status == types.StatusActive {
			active++
		}
	}
	if active > 1 {
		return l.integrityViolation(reg.ID, fmt.Sprintf("%d active versions in stored state", active))
	}

	s := &snapshot{
		reg:      reg,
		versions: make([]types.RegulationVersion, len(versions)),
		chunks:   make(map[int]int, len(chunkCounts)),
	}
	copy(s.versions, versions)
	for k, v := range chunkCounts {
		s.chunks[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[reg.ID]
	if !ok {
		r = &regulation{}
		l.regs[reg.ID] = r
	}
	r.snap.Store(s)
	return nil
}
