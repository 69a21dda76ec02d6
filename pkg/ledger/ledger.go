// Package ledger owns the supersession chain of every regulation. It is the
// single writer for version state: registration, historical backfill, and
// draft activation all pass through here.
//
// Per-regulation state is published as an immutable snapshot behind an
// atomic pointer. Readers load the snapshot and never take a lock; writers
// serialize per regulation, mutate a copy, and swap the pointer, so a
// concurrent reader observes either the fully-old or the fully-new state
// and never a half-applied supersession.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aerolex/aerolex/pkg/alert"
	"github.com/aerolex/aerolex/pkg/types"
)

// Recorder receives lineage records as supersessions happen. Implementations
// live in pkg/lineage.
type Recorder interface {
	Record(ctx context.Context, rec types.LineageRecord) error
}

// Options configures a Ledger.
type Options struct {
	// Lineage receives supersession records. Optional.
	Lineage Recorder
	// Alerter is notified of read-time integrity violations. Optional.
	Alerter alert.Alerter
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Ledger tracks regulations and their version chains.
type Ledger struct {
	mu   sync.RWMutex
	regs map[string]*regulation

	lineage Recorder
	alerter alert.Alerter
	logger  *slog.Logger
}

// regulation holds one regulation's published snapshot plus its writer lock.
// Different regulations mutate concurrently; writes to the same regulation
// serialize on mu.
type regulation struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// snapshot is immutable once published.
type snapshot struct {
	reg      types.Regulation
	versions []types.RegulationVersion // ordered by Seq
	chunks   map[int]int               // chunk count per Seq
}

// New creates an empty ledger.
func New(opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alerter := opts.Alerter
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}
	return &Ledger{
		regs:    make(map[string]*regulation),
		lineage: opts.Lineage,
		alerter: alerter,
		logger:  logger,
	}
}

// EnsureRegulation creates the regulation if it does not exist yet and
// returns the stored record. Regulations are immutable: a second call with
// the same ID returns the original record untouched.
func (l *Ledger) EnsureRegulation(reg types.Regulation) (types.Regulation, error) {
	if err := reg.Validate(); err != nil {
		return types.Regulation{}, &types.InvalidInputError{Reason: "regulation", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.regs[reg.ID]; ok {
		return r.snap.Load().reg, nil
	}

	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	r := &regulation{}
	r.snap.Store(&snapshot{reg: reg, chunks: make(map[int]int)})
	l.regs[reg.ID] = r

	l.logger.Info("regulation created", "regulation_id", reg.ID, "category", reg.Category)
	return reg, nil
}

func (l *Ledger) lookup(regID string) (*regulation, error) {
	l.mu.RLock()
	r, ok := l.regs[regID]
	l.mu.RUnlock()
	if !ok {
		return nil, &types.NotFoundError{Kind: "regulation", ID: regID}
	}
	return r, nil
}

// RegisterVersion registers a new version at the head of the regulation's
// chain. If the descriptor is not a draft, the version becomes active and
// the previous active version (if any) is superseded: its expiry is set to
// the new effective date and its status flips to superseded, atomically
// from a reader's point of view.
//
// Registration is all-or-nothing: any validation or conflict error leaves
// the published snapshot untouched. Out-of-order backfill is rejected with
// a ConflictError; use InsertHistoricalVersion for that.
func (l *Ledger) RegisterVersion(ctx context.Context, regID string, d types.VersionDescriptor) (*types.RegulationVersion, error) {
	if err := d.Validate(); err != nil {
		return nil, &types.InvalidInputError{Reason: "version descriptor", Err: err}
	}
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	s := r.snap.Load()

	if d.Supersedes != 0 {
		if findSeq(s.versions, d.Supersedes) == nil {
			r.mu.Unlock()
			return nil, &types.NotFoundError{Kind: "version", ID: fmt.Sprintf("%s#%d", regID, d.Supersedes)}
		}
	}

	newVersion := types.RegulationVersion{
		RegulationID: regID,
		Seq:          nextSeq(s.versions),
		Interval:     types.Interval{Effective: d.Effective, Expiry: d.Expiry},
		CreatedAt:    time.Now().UTC(),
	}

	if d.Draft {
		newVersion.Status = types.StatusDraft
		newVersion.Supersedes = d.Supersedes
		next := s.clone()
		next.versions = append(next.versions, newVersion)
		r.snap.Store(next)
		r.mu.Unlock()

		l.logger.Info("draft version registered",
			"regulation_id", regID, "seq", newVersion.Seq, "effective", d.Effective)
		return &newVersion, nil
	}

	prev, conflictErr := l.admitAtHead(s, regID, d)
	if conflictErr != nil {
		r.mu.Unlock()
		l.alertIfIntegrity(conflictErr)
		return nil, conflictErr
	}

	newVersion.Status = types.StatusActive
	next := s.clone()
	if prev != nil {
		newVersion.Supersedes = prev.Seq
		supersede(next.versions, prev.Seq, newVersion.Seq, d.Effective)
	}
	next.versions = append(next.versions, newVersion)
	r.snap.Store(next)
	r.mu.Unlock()

	l.logger.Info("version registered",
		"regulation_id", regID, "seq", newVersion.Seq,
		"effective", d.Effective, "supersedes", newVersion.Supersedes)

	if prev != nil {
		l.record(ctx, types.LineageRecord{
			RegulationID: regID,
			FromSeq:      prev.Seq,
			ToSeq:        newVersion.Seq,
			Effective:    d.Effective,
			RecordedAt:   time.Now().UTC(),
		})
	}
	return &newVersion, nil
}

// admitAtHead checks that the descriptor belongs at the head of the chain
// and returns the version it will supersede, if any. Called under the
// regulation's writer lock.
func (l *Ledger) admitAtHead(s *snapshot, regID string, d types.VersionDescriptor) (*types.RegulationVersion, error) {
	var prev *types.RegulationVersion
	for i := range s.versions {
		v := &s.versions[i]
		if v.Status == types.StatusDraft {
			continue
		}
		if !v.Effective().Before(d.Effective) {
			return nil, &types.ConflictError{
				RegulationID: regID,
				Reason: fmt.Sprintf("version %d is effective %s, on or after the new effective %s; use InsertHistoricalVersion for backfill",
					v.Seq, v.Effective().Format("2006-01-02"), d.Effective.Format("2006-01-02")),
			}
		}
		if v.Status == types.StatusSuperseded && v.Interval.Contains(d.Effective) {
			return nil, &types.ConflictError{
				RegulationID: regID,
				Reason: fmt.Sprintf("new effective %s falls inside superseded version %d interval %s",
					d.Effective.Format("2006-01-02"), v.Seq, v.Interval),
			}
		}
		if v.Status == types.StatusActive {
			if prev != nil {
				return nil, l.integrityError(regID, fmt.Sprintf("versions %d and %d are both active", prev.Seq, v.Seq))
			}
			prev = v
		}
	}
	if prev != nil && d.Supersedes != 0 && d.Supersedes != prev.Seq {
		return nil, &types.ConflictError{
			RegulationID: regID,
			Reason:       fmt.Sprintf("descriptor supersedes version %d but version %d is active", d.Supersedes, prev.Seq),
		}
	}
	return prev, nil
}

// InsertHistoricalVersion inserts an out-of-order version into the chain
// and re-derives the neighboring intervals: the predecessor's expiry is
// clamped to the inserted effective date, and the inserted version expires
// at its successor's effective date. RegisterVersion refuses out-of-order
// backfill; this operation re-derives the neighboring intervals instead of
// silently overwriting them.
func (l *Ledger) InsertHistoricalVersion(ctx context.Context, regID string, d types.VersionDescriptor) (*types.RegulationVersion, error) {
	if err := d.Validate(); err != nil {
		return nil, &types.InvalidInputError{Reason: "version descriptor", Err: err}
	}
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	s := r.snap.Load()

	chain := chainByEffective(s.versions)
	var pred, succ *types.RegulationVersion
	for i := range chain {
		v := chain[i]
		if v.Effective().Equal(d.Effective) {
			r.mu.Unlock()
			return nil, &types.ConflictError{
				RegulationID: regID,
				Reason:       fmt.Sprintf("version %d already effective on %s", v.Seq, d.Effective.Format("2006-01-02")),
			}
		}
		if v.Effective().Before(d.Effective) {
			pred = v
		} else if succ == nil {
			succ = v
		}
	}

	newVersion := types.RegulationVersion{
		RegulationID: regID,
		Seq:          nextSeq(s.versions),
		CreatedAt:    time.Now().UTC(),
	}
	if succ != nil {
		eff := succ.Effective()
		newVersion.Interval = types.NewInterval(d.Effective, eff)
		newVersion.Status = types.StatusSuperseded
		newVersion.SupersededBy = succ.Seq
	} else {
		// No later version: this is really a head registration.
		newVersion.Interval = types.Interval{Effective: d.Effective, Expiry: d.Expiry}
		newVersion.Status = types.StatusActive
	}

	next := s.clone()
	if pred != nil {
		newVersion.Supersedes = pred.Seq
		supersede(next.versions, pred.Seq, newVersion.Seq, d.Effective)
	}
	if succ != nil {
		if sv := findSeq(next.versions, succ.Seq); sv != nil {
			sv.Supersedes = newVersion.Seq
		}
	}
	next.versions = append(next.versions, newVersion)
	r.snap.Store(next)
	r.mu.Unlock()

	l.logger.Info("historical version inserted",
		"regulation_id", regID, "seq", newVersion.Seq, "interval", newVersion.Interval.String())

	now := time.Now().UTC()
	if pred != nil {
		l.record(ctx, types.LineageRecord{
			RegulationID: regID, FromSeq: pred.Seq, ToSeq: newVersion.Seq,
			Effective: d.Effective, RecordedAt: now,
		})
	}
	if succ != nil {
		l.record(ctx, types.LineageRecord{
			RegulationID: regID, FromSeq: newVersion.Seq, ToSeq: succ.Seq,
			Effective: succ.Effective(), RecordedAt: now,
		})
	}
	return &newVersion, nil
}

// ActivateDraft promotes a draft version to active, superseding the current
// active version per the usual rules. Activation is an explicit caller
// decision; drafts never self-activate when their effective date passes.
func (l *Ledger) ActivateDraft(ctx context.Context, regID string, seq int) (*types.RegulationVersion, error) {
	r, err := l.lookup(regID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	s := r.snap.Load()

	draft := findSeq(s.versions, seq)
	if draft == nil {
		r.mu.Unlock()
		return nil, &types.NotFoundError{Kind: "version", ID: fmt.Sprintf("%s#%d", regID, seq)}
	}
	if draft.Status != types.StatusDraft {
		r.mu.Unlock()
		return nil, &types.ConflictError{
			RegulationID: regID,
			Reason:       fmt.Sprintf("version %d is %s, not draft", seq, draft.Status),
		}
	}

	d := types.VersionDescriptor{Effective: draft.Effective(), Expiry: draft.Expiry()}
	prev, conflictErr := l.admitAtHead(s, regID, d)
	if conflictErr != nil {
		r.mu.Unlock()
		l.alertIfIntegrity(conflictErr)
		return nil, conflictErr
	}

	next := s.clone()
	activated := findSeq(next.versions, seq)
	activated.Status = types.StatusActive
	if prev != nil {
		activated.Supersedes = prev.Seq
		supersede(next.versions, prev.Seq, activated.Seq, activated.Effective())
	}
	result := *activated
	r.snap.Store(next)
	r.mu.Unlock()

	l.logger.Info("draft activated", "regulation_id", regID, "seq", seq)

	if prev != nil {
		l.record(ctx, types.LineageRecord{
			RegulationID: regID, FromSeq: prev.Seq, ToSeq: seq,
			Effective: result.Effective(), RecordedAt: time.Now().UTC(),
		})
	}
	return &result, nil
}

// record hands a lineage record to the recorder. Lineage is an audit
// side-channel: failures are logged, never propagated into the ledger write.
func (l *Ledger) record(ctx context.Context, rec types.LineageRecord) {
	if l.lineage == nil {
		return
	}
	if err := l.lineage.Record(ctx, rec); err != nil {
		l.logger.Error("lineage record failed",
			"regulation_id", rec.RegulationID, "from", rec.FromSeq, "to", rec.ToSeq, "error", err)
	}
}

// integrityError logs an I1 violation and builds the error without
// alerting. Used where the caller holds the regulation's writer lock;
// alerting does network I/O and must wait for the unlock.
func (l *Ledger) integrityError(regID, detail string) *types.IntegrityError {
	err := &types.IntegrityError{RegulationID: regID, Detail: detail}
	l.logger.Error("data integrity violation", "regulation_id", regID, "detail", detail)
	return err
}

func (l *Ledger) integrityViolation(regID, detail string) error {
	err := l.integrityError(regID, detail)
	l.alertIntegrity(err)
	return err
}

func (l *Ledger) alertIntegrity(err *types.IntegrityError) {
	if alertErr := l.alerter.Alert("aerolex integrity violation", err.Error()); alertErr != nil {
		l.logger.Error("integrity alert failed", "error", alertErr)
	}
}

// alertIfIntegrity fires the integrity alert for writer-path violations,
// after the regulation's writer lock has been released.
func (l *Ledger) alertIfIntegrity(err error) {
	var integrity *types.IntegrityError
	if errors.As(err, &integrity) {
		l.alertIntegrity(integrity)
	}
}

func nextSeq(versions []types.RegulationVersion) int {
	max := 0
	for i := range versions {
		if versions[i].Seq > max {
			max = versions[i].Seq
		}
	}
	return max + 1
}

func findSeq(versions []types.RegulationVersion, seq int) *types.RegulationVersion {
	for i := range versions {
		if versions[i].Seq == seq {
			return &versions[i]
		}
	}
	return nil
}

// supersede rewrites the superseded version in place within a cloned slice.
func supersede(versions []types.RegulationVersion, oldSeq, newSeq int, effective time.Time) {
	if v := findSeq(versions, oldSeq); v != nil {
		eff := effective
		v.Interval.Expiry = &eff
		v.Status = types.StatusSuperseded
		v.SupersededBy = newSeq
	}
}

// chainByEffective returns pointers to the non-draft versions sorted by
// effective date.
func chainByEffective(versions []types.RegulationVersion) []*types.RegulationVersion {
	chain := make([]*types.RegulationVersion, 0, len(versions))
	for i := range versions {
		if versions[i].Status != types.StatusDraft {
			chain = append(chain, &versions[i])
		}
	}
	sort.Slice(chain, func(i, j int) bool {
		return chain[i].Effective().Before(chain[j].Effective())
	})
	return chain
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		reg:      s.reg,
		versions: make([]types.RegulationVersion, len(s.versions)),
		chunks:   make(map[int]int, len(s.chunks)),
	}
	copy(next.versions, s.versions)
	for k, v := range s.chunks {
		next.chunks[k] = v
	}
	return next
}
