// Package memory is a process-local store used for development and tests.
// Transactions are serialized store-wide and roll back by restoring a snapshot.
// Reads outside a transaction wait for the running one to finish, so they only
// observe committed state (read committed per call).
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
)

type txKey struct{}

type Store struct {
	txMu sync.RWMutex

	mu          sync.RWMutex
	users       []user.User
	attendances map[string]attendance.Attendance
	byUserDate  map[string]string
	breaks      map[string]attendance.Break
}

func NewStore() *Store {
	return &Store{
		attendances: make(map[string]attendance.Attendance),
		byUserDate:  make(map[string]string),
		breaks:      make(map[string]attendance.Break),
	}
}

// AddUser registers u in the roster.
func (s *Store) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
}

type snapshot struct {
	attendances map[string]attendance.Attendance
	byUserDate  map[string]string
	breaks      map[string]attendance.Break
}

// WithinTransaction implements attendance.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTransaction(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, s)

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err = fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// readCommitted blocks until no transaction is running unless ctx belongs to one.
func (s *Store) readCommitted(ctx context.Context) func() {
	if s.inTransaction(ctx) {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		attendances: maps.Clone(s.attendances),
		byUserDate:  maps.Clone(s.byUserDate),
		breaks:      maps.Clone(s.breaks),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendances = snap.attendances
	s.byUserDate = snap.byUserDate
	s.breaks = snap.breaks
}

func userDateKey(userID string, date time.Time) string {
	return userID + "|" + clock.FormatDate(date)
}

// Attendances returns the attendance.AttendanceRepository view of the store.
func (s *Store) Attendances() attendance.AttendanceRepository {
	return attendanceRepository{s}
}

// Breaks returns the attendance.BreakRepository view of the store.
func (s *Store) Breaks() attendance.BreakRepository {
	return breakRepository{s}
}

// Users returns the user.UserRepository view of the store.
func (s *Store) Users() user.UserRepository {
	return userRepository{s}
}

type attendanceRepository struct {
	s *Store
}

func (r attendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.readCommitted(ctx)()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byUserDate[userDateKey(userID, date)]
	if !ok {
		return nil, nil
	}
	att := r.s.attendances[id]
	return &att, nil
}

// LockByUserAndDate needs no row lock here since transactions are already serialized.
func (r attendanceRepository) LockByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	return r.GetByUserAndDate(ctx, userID, date)
}

func (r attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Attendance{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := userDateKey(newAttendance.UserID, newAttendance.Date)
	if _, exists := r.s.byUserDate[key]; exists {
		return attendance.Attendance{}, fmt.Errorf("attendance for %s: %w", key, attendance.ErrConstraintViolation)
	}
	if _, exists := r.s.attendances[newAttendance.ID]; exists {
		return attendance.Attendance{}, fmt.Errorf("attendance id %s: %w", newAttendance.ID, attendance.ErrConstraintViolation)
	}

	now := time.Now()
	newAttendance.CreatedAt = now
	newAttendance.UpdatedAt = now
	r.s.attendances[newAttendance.ID] = newAttendance
	r.s.byUserDate[key] = newAttendance.ID
	return newAttendance, nil
}

func (r attendanceRepository) UpdateTotals(ctx context.Context, att attendance.Attendance) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.attendances[att.ID]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}
	stored.PunchOutAt = att.PunchOutAt
	stored.TotalWorkSeconds = att.TotalWorkSeconds
	stored.TotalBreakSeconds = att.TotalBreakSeconds
	stored.UpdatedAt = time.Now()
	r.s.attendances[att.ID] = stored
	return nil
}

type breakRepository struct {
	s *Store
}

func (r breakRepository) ListByAttendance(ctx context.Context, attendanceID string) ([]attendance.Break, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.readCommitted(ctx)()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	breaks := make([]attendance.Break, 0)
	for _, b := range r.s.breaks {
		if b.AttendanceID == attendanceID {
			breaks = append(breaks, b)
		}
	}
	sortBreaks(breaks)
	return breaks, nil
}

func (r breakRepository) Create(ctx context.Context, newBreak attendance.Break) (attendance.Break, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Break{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !newBreak.Type.IsValid() {
		return attendance.Break{}, fmt.Errorf("break type %q: %w", newBreak.Type, attendance.ErrConstraintViolation)
	}
	if _, ok := r.s.attendances[newBreak.AttendanceID]; !ok {
		return attendance.Break{}, attendance.ErrAttendanceNotFound
	}
	if _, exists := r.s.breaks[newBreak.ID]; exists {
		return attendance.Break{}, fmt.Errorf("break id %s: %w", newBreak.ID, attendance.ErrConstraintViolation)
	}
	for _, b := range r.s.breaks {
		if b.AttendanceID != newBreak.AttendanceID {
			continue
		}
		if b.IsActive() && newBreak.IsActive() {
			return attendance.Break{}, fmt.Errorf("second open break: %w", attendance.ErrConstraintViolation)
		}
		if b.Type == attendance.BreakTypeLunch && newBreak.Type == attendance.BreakTypeLunch {
			return attendance.Break{}, fmt.Errorf("second lunch break: %w", attendance.ErrConstraintViolation)
		}
	}

	now := time.Now()
	newBreak.CreatedAt = now
	newBreak.UpdatedAt = now
	r.s.breaks[newBreak.ID] = newBreak
	return newBreak, nil
}

func (r breakRepository) End(ctx context.Context, id string, endTime time.Time, durationSeconds int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.breaks[id]
	if !ok || !b.IsActive() {
		return attendance.ErrBreakNotFound
	}
	b.EndTime = &endTime
	b.DurationSeconds = durationSeconds
	b.UpdatedAt = time.Now()
	r.s.breaks[id] = b
	return nil
}

func (r breakRepository) ListOpenBefore(ctx context.Context, date time.Time) ([]attendance.OpenBreak, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.readCommitted(ctx)()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cutoff := clock.FormatDate(date)
	open := make([]attendance.OpenBreak, 0)
	for _, b := range r.s.breaks {
		if !b.IsActive() {
			continue
		}
		att := r.s.attendances[b.AttendanceID]
		if clock.FormatDate(att.Date) >= cutoff {
			continue
		}
		open = append(open, attendance.OpenBreak{Break: b, UserID: att.UserID, AttendanceDate: att.Date})
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].StartTime.Before(open[j].StartTime)
	})
	return open, nil
}

func sortBreaks(breaks []attendance.Break) {
	sort.Slice(breaks, func(i, j int) bool {
		if breaks[i].StartTime.Equal(breaks[j].StartTime) {
			return breaks[i].ID < breaks[j].ID
		}
		return breaks[i].StartTime.Before(breaks[j].StartTime)
	})
}

type userRepository struct {
	s *Store
}

func (r userRepository) List(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	users := make([]user.User, len(r.s.users))
	copy(users, r.s.users)
	r.s.mu.RUnlock()

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})
	return users, nil
}
