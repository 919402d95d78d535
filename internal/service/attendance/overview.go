package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/clock"
	"golang.org/x/sync/errgroup"
)

type OverviewServiceImpl struct {
	ledger      attendance.AttendanceService
	userRepo    user.UserRepository
	clock       clock.Clock
	concurrency int
}

// Overview implements attendance.OverviewService.
// Every date is evaluated as of now, so a break left open on a past date keeps growing.
func (s *OverviewServiceImpl) Overview(ctx context.Context, date *time.Time) (attendance.OverviewResponse, error) {
	now := s.clock.Now()
	day := clock.DateOf(now, s.clock.Location())
	if date != nil {
		day = clock.DateOf(*date, s.clock.Location())
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return attendance.OverviewResponse{}, fmt.Errorf("failed to list users: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})

	items := make([]attendance.OverviewItem, len(users))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range users {
		g.Go(func() error {
			summary, err := s.ledger.Summarize(gCtx, u.ID, day, now)
			if err != nil {
				return fmt.Errorf("failed to summarize user %s: %w", u.ID, err)
			}
			items[i] = attendance.OverviewItem{
				UserID:     u.ID,
				Name:       u.Name,
				Phone:      u.ContactNumber,
				RoleID:     u.RoleID,
				Attendance: summary,
				IsPresent:  summary.Status.IsPresent(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return attendance.OverviewResponse{}, err
	}

	meta := attendance.OverviewMeta{
		Date:       clock.FormatDate(day),
		TotalUsers: len(items),
	}
	for _, item := range items {
		if item.IsPresent {
			meta.PresentCount++
		}
	}
	meta.AbsentCount = meta.TotalUsers - meta.PresentCount

	return attendance.OverviewResponse{Items: items, Meta: meta}, nil
}

func NewOverviewService(ledger attendance.AttendanceService, userRepo user.UserRepository, clk clock.Clock, concurrency int) attendance.OverviewService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &OverviewServiceImpl{
		ledger:      ledger,
		userRepo:    userRepo,
		clock:       clk,
		concurrency: concurrency,
	}
}
