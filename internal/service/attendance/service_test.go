package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *memory.Store
	clock *clock.Fixed
	hub   *sse.Hub
	svc   attendance.AttendanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFixed(at(9, 0))
	hub := sse.NewHub()
	return &fixture{
		store: store,
		clock: clk,
		hub:   hub,
		svc:   NewAttendanceService(store.Attendances(), store.Breaks(), store, clk, hub),
	}
}

func (f *fixture) at(h, m int) *fixture {
	f.clock.Set(at(h, m))
	return f
}

func (f *fixture) punchIn(t *testing.T, h, m int) attendance.SummaryResponse {
	t.Helper()
	s, err := f.at(h, m).svc.PunchIn(context.Background(), attendance.PunchRequest{UserID: "u1"})
	require.NoError(t, err)
	return s
}

func (f *fixture) startBreak(h, m int, typ attendance.BreakType, reason *string) (attendance.SummaryResponse, error) {
	return f.at(h, m).svc.StartBreak(context.Background(), attendance.StartBreakRequest{UserID: "u1", Type: typ, Reason: reason})
}

func (f *fixture) endBreak(h, m int) (attendance.SummaryResponse, error) {
	return f.at(h, m).svc.EndBreak(context.Background(), attendance.EndBreakRequest{UserID: "u1"})
}

func (f *fixture) punchOut(h, m int) (attendance.SummaryResponse, error) {
	return f.at(h, m).svc.PunchOut(context.Background(), attendance.PunchRequest{UserID: "u1"})
}

func (f *fixture) today(t *testing.T, h, m int) attendance.SummaryResponse {
	t.Helper()
	s, err := f.at(h, m).svc.Today(context.Background(), "u1")
	require.NoError(t, err)
	return s
}

func TestPunchIn_StartsWorking(t *testing.T) {
	f := newFixture(t)

	s := f.punchIn(t, 9, 0)
	assert.Equal(t, attendance.StatusWorking, s.Status)
	assert.Equal(t, int64(0), s.WorkDurationSeconds)
	require.NotNil(t, s.PunchInTime)
	assert.True(t, s.PunchInTime.Equal(at(9, 0)))
	assert.Nil(t, s.PunchOutTime)
	assert.Nil(t, s.CurrentBreak)

	s = f.today(t, 9, 0)
	assert.Equal(t, attendance.StatusWorking, s.Status)
	assert.Equal(t, int64(0), s.WorkDurationSeconds)
}

func TestStartBreak_OnBreakDurations(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 9, 0)

	_, err := f.startBreak(11, 0, attendance.BreakTypeTea, nil)
	require.NoError(t, err)

	s := f.today(t, 11, 10)
	assert.Equal(t, attendance.StatusOnBreak, s.Status)
	require.NotNil(t, s.CurrentBreak)
	assert.Equal(t, attendance.BreakTypeTea, s.CurrentBreak.Type)
	assert.Equal(t, int64(600), s.CurrentBreak.DurationSeconds)
	assert.Equal(t, int64(7200), s.WorkDurationSeconds)
	assert.Equal(t, int64(600), s.BreakDurationSeconds)
}

func TestStartBreak_LunchIsSingleUse(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 9, 0)

	_, err := f.startBreak(11, 0, attendance.BreakTypeTea, nil)
	require.NoError(t, err)
	_, err = f.endBreak(11, 15)
	require.NoError(t, err)

	_, err = f.startBreak(13, 0, attendance.BreakTypeLunch, nil)
	require.NoError(t, err)
	s, err := f.endBreak(13, 30)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusWorking, s.Status)
	assert.Equal(t, int64(45*60), s.BreakDurationSeconds)
	assert.Equal(t, int64(4*3600+30*60-45*60), s.WorkDurationSeconds)

	_, err = f.startBreak(14, 0, attendance.BreakTypeLunch, nil)
	assert.ErrorIs(t, err, attendance.ErrLunchAlreadyTaken)

	// Tea stays unlimited.
	_, err = f.startBreak(15, 0, attendance.BreakTypeTea, nil)
	assert.NoError(t, err)
}

func TestPunchOut_RejectedWhileOnBreak(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 9, 0)

	_, err := f.startBreak(10, 0, attendance.BreakTypeTea, nil)
	require.NoError(t, err)

	_, err = f.punchOut(18, 0)
	assert.ErrorIs(t, err, attendance.ErrBreakStillActive)

	s := f.today(t, 18, 0)
	assert.Equal(t, attendance.StatusOnBreak, s.Status)
	assert.Nil(t, s.PunchOutTime)
}

func TestPunchIn_CompletedDayCannotReopen(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 9, 0)

	s, err := f.punchOut(18, 0)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCompleted, s.Status)
	require.NotNil(t, s.PunchOutTime)
	assert.Equal(t, int64(9*3600), s.WorkDurationSeconds)

	_, err = f.at(18, 5).svc.PunchIn(context.Background(), attendance.PunchRequest{UserID: "u1"})
	assert.ErrorIs(t, err, attendance.ErrDayAlreadyCompleted)

	// Work stops at punch out.
	assert.Equal(t, int64(9*3600), f.today(t, 23, 0).WorkDurationSeconds)
}

func TestStartBreak_EmergencyRequiresReason(t *testing.T) {
	f := newFixture(t)

	// Checked before the attendance lookup.
	_, err := f.startBreak(8, 0, attendance.BreakTypeEmergency, nil)
	assert.ErrorIs(t, err, attendance.ErrReasonRequired)

	f.punchIn(t, 9, 0)

	for _, reason := range []*string{nil, ptr(""), ptr("   ")} {
		_, err := f.startBreak(10, 0, attendance.BreakTypeEmergency, reason)
		assert.ErrorIs(t, err, attendance.ErrReasonRequired)
	}

	s, err := f.startBreak(10, 0, attendance.BreakTypeEmergency, ptr(" family "))
	require.NoError(t, err)
	require.NotNil(t, s.CurrentBreak)
	require.NotNil(t, s.CurrentBreak.Reason)
	assert.Equal(t, "family", *s.CurrentBreak.Reason)
}

func TestStateMachine_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("punch out without record", func(t *testing.T) {
		_, err := newFixture(t).punchOut(18, 0)
		assert.ErrorIs(t, err, attendance.ErrNotPunchedIn)
	})

	t.Run("break without record", func(t *testing.T) {
		_, err := newFixture(t).startBreak(10, 0, attendance.BreakTypeTea, nil)
		assert.ErrorIs(t, err, attendance.ErrNotPunchedIn)
	})

	t.Run("end break without record", func(t *testing.T) {
		_, err := newFixture(t).endBreak(10, 0)
		assert.ErrorIs(t, err, attendance.ErrNoAttendanceToday)
	})

	t.Run("double punch in", func(t *testing.T) {
		f := newFixture(t)
		f.punchIn(t, 9, 0)
		_, err := f.at(9, 1).svc.PunchIn(ctx, attendance.PunchRequest{UserID: "u1"})
		assert.ErrorIs(t, err, attendance.ErrAlreadyPunchedIn)
	})

	t.Run("end break when none active", func(t *testing.T) {
		f := newFixture(t)
		f.punchIn(t, 9, 0)
		_, err := f.endBreak(10, 0)
		assert.ErrorIs(t, err, attendance.ErrNoActiveBreak)
	})

	t.Run("second concurrent break", func(t *testing.T) {
		f := newFixture(t)
		f.punchIn(t, 9, 0)
		_, err := f.startBreak(10, 0, attendance.BreakTypeTea, nil)
		require.NoError(t, err)
		_, err = f.startBreak(10, 5, attendance.BreakTypeEmergency, ptr("call"))
		assert.ErrorIs(t, err, attendance.ErrBreakAlreadyActive)
	})

	t.Run("lunch checked before active break", func(t *testing.T) {
		f := newFixture(t)
		f.punchIn(t, 9, 0)
		_, err := f.startBreak(13, 0, attendance.BreakTypeLunch, nil)
		require.NoError(t, err)
		_, err = f.startBreak(13, 5, attendance.BreakTypeLunch, nil)
		assert.ErrorIs(t, err, attendance.ErrLunchAlreadyTaken)
	})

	t.Run("double punch out", func(t *testing.T) {
		f := newFixture(t)
		f.punchIn(t, 9, 0)
		_, err := f.punchOut(18, 0)
		require.NoError(t, err)
		_, err = f.punchOut(18, 1)
		assert.ErrorIs(t, err, attendance.ErrAlreadyPunchedOut)
	})

	t.Run("break after punch out", func(t *testing.T) {
		f := newFixture(t)
		f.punchIn(t, 9, 0)
		_, err := f.punchOut(18, 0)
		require.NoError(t, err)
		_, err = f.startBreak(18, 5, attendance.BreakTypeTea, nil)
		assert.ErrorIs(t, err, attendance.ErrNotPunchedIn)
		_, err = f.endBreak(18, 6)
		assert.ErrorIs(t, err, attendance.ErrNoActiveBreak)
	})

	t.Run("every rejection is classified", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.punchOut(18, 0)
		assert.True(t, attendance.IsRejected(err))
	})
}

func TestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PunchIn(ctx, attendance.PunchRequest{UserID: "  "})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "user_id")
	assert.False(t, attendance.IsRejected(err))

	_, err = f.svc.StartBreak(ctx, attendance.StartBreakRequest{UserID: "u1", Type: "nap"})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "type")

	_, err = f.svc.Today(ctx, "")
	require.ErrorAs(t, err, &verrs)
}

func TestMutations_PersistSnapshotTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.punchIn(t, 9, 0)

	_, err := f.startBreak(11, 0, attendance.BreakTypeTea, nil)
	require.NoError(t, err)
	_, err = f.endBreak(11, 20)
	require.NoError(t, err)

	att, err := f.store.Attendances().GetByUserAndDate(ctx, "u1", clock.Today(f.clock))
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, int64(20*60), att.TotalBreakSeconds)
	assert.Equal(t, int64(2*3600), att.TotalWorkSeconds)

	breaks, err := f.store.Breaks().ListByAttendance(ctx, att.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	require.NotNil(t, breaks[0].EndTime)
	assert.Equal(t, int64(20*60), breaks[0].DurationSeconds)

	_, err = f.punchOut(17, 0)
	require.NoError(t, err)

	att, err = f.store.Attendances().GetByUserAndDate(ctx, "u1", clock.Today(f.clock))
	require.NoError(t, err)
	require.NotNil(t, att.PunchOutAt)
	assert.Equal(t, int64(8*3600-20*60), att.TotalWorkSeconds)
	assert.Equal(t, int64(20*60), att.TotalBreakSeconds)
}

func TestSummarize_IdempotentRead(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 9, 0)
	_, err := f.startBreak(11, 0, attendance.BreakTypeTea, nil)
	require.NoError(t, err)

	ctx := context.Background()
	date := clock.Today(f.clock)
	first, err := f.svc.Summarize(ctx, "u1", date, at(11, 30))
	require.NoError(t, err)
	second, err := f.svc.Summarize(ctx, "u1", date, at(11, 30))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestToday_RollsOverAtReferenceMidnight(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 23, 0)

	f.clock.Set(time.Date(2026, 10, 18, 1, 0, 0, 0, ist))
	s, err := f.svc.Today(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNotPunchedIn, s.Status)

	_, err = f.svc.PunchOut(context.Background(), attendance.PunchRequest{UserID: "u1"})
	assert.ErrorIs(t, err, attendance.ErrNotPunchedIn)
}

func TestPunchIn_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PunchIn(context.Background(), attendance.PunchRequest{UserID: "u1"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, attendance.ErrAlreadyPunchedIn) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 15, rejected)
}

func TestStartBreak_ConcurrentOnlyOneOpen(t *testing.T) {
	f := newFixture(t)
	f.punchIn(t, 9, 0)
	f.clock.Set(at(10, 0))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.StartBreak(context.Background(), attendance.StartBreakRequest{UserID: "u1", Type: attendance.BreakTypeTea})
		}()
	}
	wg.Wait()

	att, err := f.store.Attendances().GetByUserAndDate(context.Background(), "u1", clock.Today(f.clock))
	require.NoError(t, err)
	breaks, err := f.store.Breaks().ListByAttendance(context.Background(), att.ID)
	require.NoError(t, err)
	assert.Len(t, breaks, 1)
}

func TestMutations_PublishSummary(t *testing.T) {
	f := newFixture(t)
	events, cleanup := f.hub.Subscribe("u1")
	defer cleanup()

	f.punchIn(t, 9, 0)

	select {
	case ev := <-events:
		assert.Equal(t, sse.EventAttendanceUpdated, ev.Event)
		summary, ok := ev.Data.(attendance.SummaryResponse)
		require.True(t, ok)
		assert.Equal(t, attendance.StatusWorking, summary.Status)
	default:
		t.Fatal("expected attendance.updated event")
	}

	// Rejected transitions publish nothing.
	_, err := f.at(9, 5).svc.PunchIn(context.Background(), attendance.PunchRequest{UserID: "u1"})
	require.Error(t, err)
	assert.Len(t, events, 0)
}

type unreadableAttendances struct {
	attendance.AttendanceRepository
}

func (unreadableAttendances) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	return nil, errors.New("connection reset")
}

func TestMutations_ResponseDoesNotDependOnFollowUpRead(t *testing.T) {
	store := memory.NewStore()
	clk := clock.NewFixed(at(9, 0))
	hub := sse.NewHub()
	svc := NewAttendanceService(unreadableAttendances{store.Attendances()}, store.Breaks(), store, clk, hub)
	ctx := context.Background()

	events, cleanup := hub.Subscribe("u1")
	defer cleanup()

	s, err := svc.PunchIn(ctx, attendance.PunchRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusWorking, s.Status)
	assert.Len(t, events, 1)

	clk.Set(at(10, 0))
	s, err = svc.StartBreak(ctx, attendance.StartBreakRequest{UserID: "u1", Type: attendance.BreakTypeTea})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnBreak, s.Status)
	require.NotNil(t, s.CurrentBreak)
	assert.Equal(t, int64(0), s.CurrentBreak.DurationSeconds)

	clk.Set(at(10, 15))
	s, err = svc.EndBreak(ctx, attendance.EndBreakRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusWorking, s.Status)
	assert.Equal(t, int64(15*60), s.BreakDurationSeconds)
	assert.Equal(t, int64(45*60), s.WorkDurationSeconds)

	clk.Set(at(12, 0))
	s, err = svc.PunchOut(ctx, attendance.PunchRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCompleted, s.Status)
	assert.Equal(t, int64(15*60), s.BreakDurationSeconds)
	assert.Equal(t, int64(2*3600+45*60), s.WorkDurationSeconds)
	assert.Len(t, events, 4)
}
