// Package mokadb sets up a SQLite stand-in for the Moka tables the booking
// workflow touches, for use in tests.
package mokadb

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/moka/gel2moka/internal/config"
	"github.com/moka/gel2moka/internal/platform/db"
)

// DDL creates the subset of the Moka schema read and written by gel2moka.
const DDL = `
CREATE TABLE Probands_100k (
	Participant_ID      TEXT NOT NULL,
	InternalPatientID   INTEGER,
	Referring_Clinician INTEGER,
	PatientTrustID      TEXT
);
CREATE TABLE Patients (
	InternalPatientID INTEGER PRIMARY KEY,
	s_StatusOverall   INTEGER
);
CREATE TABLE NGSTest (
	NGSTestID             INTEGER PRIMARY KEY AUTOINCREMENT,
	InternalPatientID     INTEGER NOT NULL,
	ReferralID            INTEGER NOT NULL,
	StatusID              INTEGER,
	DateRequested         TEXT,
	BookBy                TEXT,
	ResultBuild           INTEGER,
	BookingAuthorisedByID INTEGER,
	Service               INTEGER,
	GELProbandID          TEXT,
	IRID                  TEXT,
	GeL_case_flags        TEXT
);
CREATE TABLE PatientLog (
	PatientLogID      INTEGER PRIMARY KEY AUTOINCREMENT,
	InternalPatientID INTEGER NOT NULL,
	LogEntry          TEXT,
	Date              TEXT,
	Login             TEXT,
	PCName            TEXT
);`

// Config returns a sqlite configuration for dsn using the main schema.
func Config(dsn string) *config.Config {
	return &config.Config{Moka: config.MokaConfig{
		Driver:          config.DriverSQLite,
		DSN:             dsn,
		Schema:          "main",
		ConnectAttempts: 1,
	}}
}

// Open returns a gateway on a fresh in-memory database with the schema
// applied. It is closed when the test ends.
func Open(t *testing.T) *db.Gateway {
	t.Helper()
	ctx := context.Background()
	g, err := db.Open(ctx, Config(":memory:"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	if err := Apply(ctx, g); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return g
}

// Apply runs DDL one statement at a time.
func Apply(ctx context.Context, g *db.Gateway) error {
	for _, stmt := range strings.Split(DDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := g.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddProband inserts a Probands_100k row and, when status is non-nil, the
// matching Patients row.
func AddProband(t *testing.T, g *db.Gateway, participantID string, patientID, clinician int64, pru string, status *int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := g.Exec(ctx, `INSERT INTO Probands_100k (Participant_ID, InternalPatientID, Referring_Clinician, PatientTrustID) VALUES (?, ?, ?, ?)`,
		participantID, patientID, clinician, pru); err != nil {
		t.Fatalf("insert proband: %v", err)
	}
	if status == nil {
		return
	}
	if _, err := g.Exec(ctx, `INSERT OR REPLACE INTO Patients (InternalPatientID, s_StatusOverall) VALUES (?, ?)`, patientID, *status); err != nil {
		t.Fatalf("insert patient: %v", err)
	}
}

// AddUnlinkedProband inserts a Probands_100k row with a NULL
// InternalPatientID.
func AddUnlinkedProband(t *testing.T, g *db.Gateway, participantID string, clinician int64, pru string) {
	t.Helper()
	if _, err := g.Exec(context.Background(), `INSERT INTO Probands_100k (Participant_ID, InternalPatientID, Referring_Clinician, PatientTrustID) VALUES (?, NULL, ?, ?)`,
		participantID, clinician, pru); err != nil {
		t.Fatalf("insert unlinked proband: %v", err)
	}
}

// AddTest inserts an existing NGSTest row.
func AddTest(t *testing.T, g *db.Gateway, patientID, referralID int64, irid string) {
	t.Helper()
	if _, err := g.Exec(context.Background(), `INSERT INTO NGSTest (InternalPatientID, ReferralID, StatusID, IRID) VALUES (?, ?, ?, ?)`,
		patientID, referralID, 2, irid); err != nil {
		t.Fatalf("insert ngstest: %v", err)
	}
}

// Count returns the number of rows in table matching where.
func Count(t *testing.T, g *db.Gateway, table, where string, args ...interface{}) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := g.QueryRow(context.Background(), q, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// Status returns the s_StatusOverall of a patient.
func Status(t *testing.T, g *db.Gateway, patientID int64) int64 {
	t.Helper()
	var s int64
	if err := g.QueryRow(context.Background(), `SELECT s_StatusOverall FROM Patients WHERE InternalPatientID = ?`, patientID).Scan(&s); err != nil {
		t.Fatalf("select status: %v", err)
	}
	return s
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
