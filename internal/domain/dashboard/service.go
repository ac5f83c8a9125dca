package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sirana/sirana/pkg/apperror"
)

const (
	recentRows   = 5
	topDiagnoses = 10
	trendDays    = 7
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// dayStart truncates t to local midnight.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the most recent Sunday midnight at or before t.
func weekStart(t time.Time) time.Time {
	d := dayStart(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// monthStart returns midnight on the first day of t's month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Overview assembles the administrator dashboard. The independent
// aggregation queries run concurrently and join before the response is
// built; none of them mutate anything.
func (s *Service) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	o := &Overview{}

	today := dayStart(now)
	week := weekStart(now)
	month := monthStart(now)

	since := func(t time.Time) RangeFilter { return RangeFilter{From: &t} }

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { o.Summary.TotalPatients, err = s.repo.CountPatients(ctx, RangeFilter{}); return })
	g.Go(func() (err error) {
		o.Summary.TotalAssessments, err = s.repo.CountAssessments(ctx, RangeFilter{})
		return
	})
	g.Go(func() (err error) { o.Summary.TotalEnvironment, err = s.repo.CountEnvironments(ctx); return })
	g.Go(func() (err error) { o.Summary.TotalNeeds, err = s.repo.CountNeeds(ctx); return })
	g.Go(func() (err error) { o.Summary.TotalUsers, err = s.repo.CountUsers(ctx); return })

	g.Go(func() (err error) { o.Today.Patients, err = s.repo.CountPatients(ctx, since(today)); return })
	g.Go(func() (err error) { o.Today.Assessments, err = s.repo.CountAssessments(ctx, since(today)); return })
	g.Go(func() (err error) { o.ThisWeek.Patients, err = s.repo.CountPatients(ctx, since(week)); return })
	g.Go(func() (err error) { o.ThisWeek.Assessments, err = s.repo.CountAssessments(ctx, since(week)); return })
	g.Go(func() (err error) { o.ThisMonth.Patients, err = s.repo.CountPatients(ctx, since(month)); return })
	g.Go(func() (err error) { o.ThisMonth.Assessments, err = s.repo.CountAssessments(ctx, since(month)); return })

	g.Go(func() (err error) { o.Charts.PatientsByAgeGroup, err = s.repo.PatientsByAgeGroup(ctx); return })
	g.Go(func() (err error) { o.Charts.PatientsBySex, err = s.repo.PatientsBySex(ctx); return })
	g.Go(func() (err error) { o.Charts.AssessmentsByFollowUp, err = s.repo.AssessmentsByFollowUp(ctx); return })
	g.Go(func() (err error) { o.Charts.EnvironmentsByWater, err = s.repo.EnvironmentsByWaterAccess(ctx); return })
	g.Go(func() (err error) {
		o.Charts.EnvironmentsBySanitary, err = s.repo.EnvironmentsBySanitation(ctx)
		return
	})
	g.Go(func() (err error) { o.Charts.TopDiagnoses, err = s.repo.TopDiagnoses(ctx, topDiagnoses); return })

	g.Go(func() (err error) {
		o.RecentPatients, err = s.repo.RecentPatients(ctx, recentRows, RangeFilter{})
		return
	})
	g.Go(func() (err error) {
		o.RecentVisits, err = s.repo.RecentAssessments(ctx, recentRows, RangeFilter{})
		return
	})
	g.Go(func() (err error) { o.ActiveDisasters, err = s.repo.ActiveDisasters(ctx); return })

	// One count pair per calendar day, oldest first, each over the
	// half-open interval [dayStart, dayStart+24h).
	trend := make([]DayCount, trendDays)
	for i := 0; i < trendDays; i++ {
		i := i
		day := today.AddDate(0, 0, i-trendDays+1)
		next := day.AddDate(0, 0, 1)
		trend[i].Date = day.Format("2006-01-02")
		g.Go(func() (err error) {
			trend[i].Patients, err = s.repo.CountPatients(ctx, RangeFilter{From: &day, To: &next})
			return
		})
		g.Go(func() (err error) {
			trend[i].Assessments, err = s.repo.CountAssessments(ctx, RangeFilter{From: &day, To: &next})
			return
		})
	}

	if err := g.Wait(); err != nil {
		return nil, apperror.NewStorage("dashboard overview", err)
	}

	o.Charts.Last7Days = trend
	return o, nil
}

// MyOverview assembles the per-officer dashboard, restricted to records
// the given user created.
func (s *Service) MyOverview(ctx context.Context, userID uuid.UUID, now time.Time) (*MyOverview, error) {
	o := &MyOverview{}

	today := dayStart(now)
	mine := RangeFilter{CreatedBy: &userID}
	mineToday := RangeFilter{From: &today, CreatedBy: &userID}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { o.TotalPatients, err = s.repo.CountPatients(ctx, mine); return })
	g.Go(func() (err error) { o.TotalAssessments, err = s.repo.CountAssessments(ctx, mine); return })
	g.Go(func() (err error) { o.Today.Patients, err = s.repo.CountPatients(ctx, mineToday); return })
	g.Go(func() (err error) { o.Today.Assessments, err = s.repo.CountAssessments(ctx, mineToday); return })
	g.Go(func() (err error) { o.RecentPatients, err = s.repo.RecentPatients(ctx, recentRows, mine); return })
	g.Go(func() (err error) { o.RecentVisits, err = s.repo.RecentAssessments(ctx, recentRows, mine); return })

	if err := g.Wait(); err != nil {
		return nil, apperror.NewStorage("user dashboard", err)
	}
	return o, nil
}
