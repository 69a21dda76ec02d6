package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolex/aerolex/pkg/types"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// captureRecorder collects lineage records for assertions.
type captureRecorder struct {
	mu      sync.Mutex
	records []types.LineageRecord
}

func (c *captureRecorder) Record(_ context.Context, rec types.LineageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *captureRecorder) {
	t.Helper()
	rec := &captureRecorder{}
	l := New(Options{Lineage: rec})
	_, err := l.EnsureRegulation(types.Regulation{ID: "rbac-121-art-359", Category: "operations"})
	require.NoError(t, err)
	return l, rec
}

func TestRegisterFirstVersionBecomesActive(t *testing.T) {
	l, _ := newTestLedger(t)

	v1, err := l.RegisterVersion(context.Background(), "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)

	assert.Equal(t, 1, v1.Seq)
	assert.Equal(t, types.StatusActive, v1.Status)
	assert.Nil(t, v1.Expiry())
	assert.Zero(t, v1.Supersedes)
}

// Scenario from the supersession contract: registering V2 (effective
// 2023-04-01) over active V1 (effective 2022-08-15, open expiry) must leave
// V1 superseded with expiry exactly 2023-04-01 and V2 active and open.
func TestSupersession(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)

	v2, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01")})
	require.NoError(t, err)

	v1, err := l.Version("rbac-121-art-359", 1)
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuperseded, v1.Status)
	require.NotNil(t, v1.Expiry())
	assert.True(t, v1.Expiry().Equal(date("2023-04-01")), "no gap, no overlap")
	assert.Equal(t, 2, v1.SupersededBy)

	assert.Equal(t, types.StatusActive, v2.Status)
	assert.Nil(t, v2.Expiry())
	assert.Equal(t, 1, v2.Supersedes)

	require.Len(t, rec.records, 1)
	assert.Equal(t, 1, rec.records[0].FromSeq)
	assert.Equal(t, 2, rec.records[0].ToSeq)
}

func TestVersionAsOfBoundaries(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)
	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01")})
	require.NoError(t, err)

	// Strictly inside each interval.
	v, err := l.VersionAsOf("rbac-121-art-359", date("2023-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, v.Seq)

	v, err = l.VersionAsOf("rbac-121-art-359", date("2023-05-15"))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Seq)

	// The boundary instant resolves to the newer version: effective is
	// inclusive, expiry exclusive.
	v, err = l.VersionAsOf("rbac-121-art-359", date("2023-04-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Seq)

	// Before any version existed.
	_, err = l.VersionAsOf("rbac-121-art-359", date("2020-01-01"))
	var nf *types.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestRegisterConflicts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)
	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01")})
	require.NoError(t, err)

	var conflict *types.ConflictError

	// Backfill into the superseded interval must be rejected.
	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-01-01")})
	require.True(t, errors.As(err, &conflict), "got %v", err)

	// Equal effective date also conflicts.
	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01")})
	require.True(t, errors.As(err, &conflict), "got %v", err)

	// Superseding a version that is no longer active conflicts.
	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2024-01-01"), Supersedes: 1})
	require.True(t, errors.As(err, &conflict), "got %v", err)

	// A failed registration leaves state untouched.
	active, err := l.ActiveVersion("rbac-121-art-359")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Seq)
	hist, err := l.History("rbac-121-art-359")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestRegisterValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var invalid *types.InvalidInputError
	_, err := l.RegisterVersion(ctx, "rbac-121-art-359", types.VersionDescriptor{})
	assert.True(t, errors.As(err, &invalid))

	var nf *types.NotFoundError
	_, err = l.RegisterVersion(ctx, "no-such-regulation",
		types.VersionDescriptor{Effective: date("2023-04-01")})
	assert.True(t, errors.As(err, &nf))

	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01"), Supersedes: 9})
	assert.True(t, errors.As(err, &nf), "supersedes target must exist")
}

func TestInsertHistoricalVersion(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-01-01")})
	require.NoError(t, err)
	_, err = l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2024-01-01")})
	require.NoError(t, err)

	// Backfill a version between the two.
	v3, err := l.InsertHistoricalVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-01-01")})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuperseded, v3.Status)
	require.NotNil(t, v3.Expiry())
	assert.True(t, v3.Expiry().Equal(date("2024-01-01")), "expiry clamps to successor effective")
	assert.Equal(t, 1, v3.Supersedes)
	assert.Equal(t, 2, v3.SupersededBy)

	// Predecessor's interval re-derived.
	v1, err := l.Version("rbac-121-art-359", 1)
	require.NoError(t, err)
	require.NotNil(t, v1.Expiry())
	assert.True(t, v1.Expiry().Equal(date("2023-01-01")))

	// The chain stays contiguous: every probe instant maps to exactly one
	// version.
	for _, probe := range []string{"2022-06-01", "2023-01-01", "2023-06-01", "2024-01-01", "2025-01-01"} {
		_, err := l.VersionAsOf("rbac-121-art-359", date(probe))
		assert.NoError(t, err, "probe %s", probe)
	}
}

func TestDraftLifecycle(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)

	draft, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01"), Draft: true})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, draft.Status)

	// A draft takes no part in the temporal chain.
	v, err := l.VersionAsOf("rbac-121-art-359", date("2023-05-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, v.Seq)

	// Activation supersedes the current active version.
	activated, err := l.ActivateDraft(ctx, "rbac-121-art-359", draft.Seq)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, activated.Status)
	assert.Equal(t, 1, activated.Supersedes)

	v1, err := l.Version("rbac-121-art-359", 1)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuperseded, v1.Status)
	require.Len(t, rec.records, 1)

	// Re-activation conflicts.
	var conflict *types.ConflictError
	_, err = l.ActivateDraft(ctx, "rbac-121-art-359", draft.Seq)
	assert.True(t, errors.As(err, &conflict))
}

func TestSelectivity(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	v1, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)
	require.NoError(t, l.AddChunks("rbac-121-art-359", v1.Seq, 30))

	v2, err := l.RegisterVersion(ctx, "rbac-121-art-359",
		types.VersionDescriptor{Effective: date("2023-04-01")})
	require.NoError(t, err)
	require.NoError(t, l.AddChunks("rbac-121-art-359", v2.Seq, 10))

	// Present tense: only v2's chunks are active.
	assert.InDelta(t, 0.25, l.Selectivity(nil), 1e-9)

	// As of a v1-era date, only v1's chunks are valid.
	at := date("2023-01-01")
	assert.InDelta(t, 0.75, l.Selectivity(&at), 1e-9)

	st := l.Summary()
	assert.Equal(t, 1, st.Regulations)
	assert.Equal(t, 2, st.Versions)
	assert.Equal(t, 40, st.Chunks)
}

func TestRestoreRejectsDoubleActive(t *testing.T) {
	l := New(Options{})
	err := l.Restore(types.Regulation{ID: "r"}, []types.RegulationVersion{
		{RegulationID: "r", Seq: 1, Status: types.StatusActive, Interval: types.OpenInterval(date("2022-01-01"))},
		{RegulationID: "r", Seq: 2, Status: types.StatusActive, Interval: types.OpenInterval(date("2023-01-01"))},
	}, nil)

	var integrity *types.IntegrityError
	assert.True(t, errors.As(err, &integrity))
}

// Two concurrent registrations on different regulations must not block each
// other, and concurrent registrations on the same regulation serialize with
// the invariants holding regardless of completion order.
func TestConcurrentRegistration(t *testing.T) {
	l := New(Options{})
	ctx := context.Background()

	const regs = 8
	for i := 0; i < regs; i++ {
		_, err := l.EnsureRegulation(types.Regulation{ID: fmt.Sprintf("reg-%d", i)})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < regs; i++ {
		for day := 0; day < 20; day++ {
			wg.Add(1)
			go func(reg, day int) {
				defer wg.Done()
				eff := date("2022-01-01").AddDate(0, 0, day)
				// Same-regulation races legitimately conflict when a later
				// effective date lands first; only the winner's ordering
				// matters here.
				_, _ = l.RegisterVersion(ctx, fmt.Sprintf("reg-%d", reg),
					types.VersionDescriptor{Effective: eff})
			}(i, day)
		}
	}
	wg.Wait()

	for i := 0; i < regs; i++ {
		regID := fmt.Sprintf("reg-%d", i)
		hist, err := l.History(regID)
		require.NoError(t, err)
		require.NotEmpty(t, hist)

		// I1: at most one active.
		active := 0
		for _, v := range hist {
			if v.Status == types.StatusActive {
				active++
			}
		}
		assert.Equal(t, 1, active, "regulation %s", regID)

		// I3: chain contiguous and non-overlapping; each superseded version
		// expires exactly at its successor's effective date.
		for j := 0; j+1 < len(hist); j++ {
			require.NotNil(t, hist[j].Expiry(), "regulation %s version %d", regID, hist[j].Seq)
			assert.True(t, hist[j].Expiry().Equal(hist[j+1].Effective()),
				"regulation %s: gap or overlap between %d and %d", regID, hist[j].Seq, hist[j+1].Seq)
		}
		assert.Nil(t, hist[len(hist)-1].Expiry())
	}
}

// Readers racing a writer must observe either the fully-old or the
// fully-new state, never a half-applied supersession.
func TestAtomicVisibility(t *testing.T) {
	l := New(Options{})
	ctx := context.Background()
	_, err := l.EnsureRegulation(types.Regulation{ID: "r"})
	require.NoError(t, err)
	_, err = l.RegisterVersion(ctx, "r", types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			hist, err := l.History("r")
			if err != nil {
				t.Error(err)
				return
			}
			switch len(hist) {
			case 1:
				if hist[0].Status != types.StatusActive || hist[0].Expiry() != nil {
					t.Error("saw half-applied old state")
					return
				}
			case 2:
				if hist[0].Status != types.StatusSuperseded || hist[0].Expiry() == nil ||
					hist[1].Status != types.StatusActive {
					t.Error("saw half-applied new state")
					return
				}
			default:
				t.Errorf("impossible history length %d", len(hist))
				return
			}
		}
	}()

	time.Sleep(time.Millisecond)
	_, err = l.RegisterVersion(ctx, "r", types.VersionDescriptor{Effective: date("2023-04-01")})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	close(stop)
	wg.Wait()
}

// reentrantAlerter performs a ledger write from inside Alert. It only
// completes if the alert is emitted after the regulation's writer lock is
// released; an alert under the lock deadlocks here instead.
type reentrantAlerter struct {
	ledger    *Ledger
	regID     string
	once      sync.Once
	reentered chan error
}

func (a *reentrantAlerter) Alert(subject, message string) error {
	a.once.Do(func() {
		_, err := a.ledger.RegisterVersion(context.Background(), a.regID,
			types.VersionDescriptor{Effective: date("2031-01-01"), Draft: true})
		a.reentered <- err
	})
	return nil
}

// Alerting does network I/O, so an integrity alert on the write path must
// fire after the writer lock is released, never inside the critical
// section where it would stall every writer for the regulation.
func TestIntegrityAlertReleasesWriterLock(t *testing.T) {
	alerter := &reentrantAlerter{regID: "r", reentered: make(chan error, 1)}
	l := New(Options{Alerter: alerter})
	alerter.ledger = l

	ctx := context.Background()
	_, err := l.EnsureRegulation(types.Regulation{ID: "r"})
	require.NoError(t, err)
	_, err = l.RegisterVersion(ctx, "r", types.VersionDescriptor{Effective: date("2022-08-15")})
	require.NoError(t, err)

	// Corrupt the published snapshot with a second active version so the
	// next registration trips the defensive double-active check.
	r := l.regs["r"]
	s := r.snap.Load()
	next := s.clone()
	next.versions = append(next.versions, types.RegulationVersion{
		RegulationID: "r",
		Seq:          2,
		Status:       types.StatusActive,
		Interval:     types.OpenInterval(date("2023-01-01")),
	})
	r.snap.Store(next)

	done := make(chan error, 1)
	go func() {
		_, err := l.RegisterVersion(ctx, "r", types.VersionDescriptor{Effective: date("2024-01-01")})
		done <- err
	}()

	select {
	case err := <-done:
		var integrity *types.IntegrityError
		require.ErrorAs(t, err, &integrity)
	case <-time.After(2 * time.Second):
		t.Fatal("registration blocked: alert emitted while writer lock held")
	}

	select {
	case err := <-alerter.reentered:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant write from the alerter never completed")
	}
}
