package dashboard

import "context"

// Repository exposes the read-only aggregation queries the dashboards
// are built from. Every method is safe to run concurrently.
type Repository interface {
	CountPatients(ctx context.Context, f RangeFilter) (int, error)
	CountAssessments(ctx context.Context, f RangeFilter) (int, error)
	CountEnvironments(ctx context.Context) (int, error)
	CountNeeds(ctx context.Context) (int, error)
	CountUsers(ctx context.Context) (int, error)

	PatientsByAgeGroup(ctx context.Context) (map[string]int, error)
	PatientsBySex(ctx context.Context) (map[string]int, error)
	AssessmentsByFollowUp(ctx context.Context) (map[string]int, error)
	EnvironmentsByWaterAccess(ctx context.Context) (map[string]int, error)
	EnvironmentsBySanitation(ctx context.Context) (map[string]int, error)
	TopDiagnoses(ctx context.Context, limit int) ([]DiagnosisCount, error)

	RecentPatients(ctx context.Context, limit int, f RangeFilter) ([]*RecentPatient, error)
	RecentAssessments(ctx context.Context, limit int, f RangeFilter) ([]*RecentAssessment, error)
	ActiveDisasters(ctx context.Context) ([]*ActiveDisaster, error)
}
