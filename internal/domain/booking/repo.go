package booking

import "context"

// Repository is the set of Moka reads and writes the booking workflow needs.
type Repository interface {
	FindProbands(ctx context.Context, participantID string) ([]PatientInfo, error)
	ListTests(ctx context.Context, internalPatientID int64) ([]NGSTest, error)
	GetPatientStatus(ctx context.Context, internalPatientID int64) (*int64, error)
	UpdatePatientStatus(ctx context.Context, internalPatientID, status int64) error
	CreateTest(ctx context.Context, req *TestRequest) error
	AddPatientLog(ctx context.Context, entry *LogEntry) error
}
