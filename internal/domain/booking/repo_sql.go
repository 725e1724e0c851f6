package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/moka/gel2moka/internal/platform/db"
)

type repoSQL struct{ gw *db.Gateway }

// NewRepoSQL returns a Repository that talks to Moka through gw.
func NewRepoSQL(gw *db.Gateway) Repository {
	return &repoSQL{gw: gw}
}

func (r *repoSQL) FindProbands(ctx context.Context, participantID string) ([]PatientInfo, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		r.gw.Columns("InternalPatientID", "Referring_Clinician", "PatientTrustID"),
		r.gw.Table("Probands_100k"), r.gw.Ident("Participant_ID"))
	rows, err := r.gw.Query(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("select probands for %s: %w", participantID, err)
	}
	defer rows.Close()

	var out []PatientInfo
	for rows.Next() {
		var (
			p         PatientInfo
			patientID sql.NullInt64
			clinician sql.NullString
			pru       sql.NullString
		)
		if err := rows.Scan(&patientID, &clinician, &pru); err != nil {
			return nil, fmt.Errorf("scan proband: %w", err)
		}
		p.InternalPatientID = patientID.Int64
		p.ClinicianID = strings.TrimSpace(clinician.String)
		p.PRU = pru.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoSQL) ListTests(ctx context.Context, internalPatientID int64) ([]NGSTest, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		r.gw.Columns("NGSTestID", "StatusID", "IRID"), r.gw.Table("NGSTest"),
		r.gw.Ident("InternalPatientID"), r.gw.Ident("ReferralID"))
	rows, err := r.gw.Query(ctx, query, internalPatientID, ReferralID100K)
	if err != nil {
		return nil, fmt.Errorf("select ngstests for patient %d: %w", internalPatientID, err)
	}
	defer rows.Close()

	var out []NGSTest
	for rows.Next() {
		var (
			t      NGSTest
			status sql.NullInt64
			irid   sql.NullString
		)
		if err := rows.Scan(&t.ID, &status, &irid); err != nil {
			return nil, fmt.Errorf("scan ngstest: %w", err)
		}
		if status.Valid {
			t.StatusID = &status.Int64
		}
		t.IRID = irid.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repoSQL) GetPatientStatus(ctx context.Context, internalPatientID int64) (*int64, error) {
	var status sql.NullInt64
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		r.gw.Ident("s_StatusOverall"), r.gw.Table("Patients"), r.gw.Ident("InternalPatientID"))
	err := r.gw.QueryRow(ctx, query, internalPatientID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select status for patient %d: %w", internalPatientID, err)
	}
	if !status.Valid {
		return nil, nil
	}
	return &status.Int64, nil
}

func (r *repoSQL) UpdatePatientStatus(ctx context.Context, internalPatientID, status int64) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		r.gw.Table("Patients"), r.gw.Ident("s_StatusOverall"), r.gw.Ident("InternalPatientID"))
	_, err := r.gw.Exec(ctx, query, status, internalPatientID)
	if err != nil {
		return fmt.Errorf("update status for patient %d: %w", internalPatientID, err)
	}
	return nil
}

// CreateTest inserts the NGSTest row. ResultBuild and GeL_case_flags are
// only written for cases that carry genome data.
func (r *repoSQL) CreateTest(ctx context.Context, req *TestRequest) error {
	cols := []string{"InternalPatientID", "ReferralID", "StatusID", "DateRequested", "BookBy"}
	args := []interface{}{req.InternalPatientID, ReferralID100K, TestStatusRequested, req.RequestedAt, req.ClinicianID}
	if req.Genome != nil {
		cols = append(cols, "ResultBuild")
		args = append(args, BuildCode(req.Genome.Assembly))
	}
	cols = append(cols, "BookingAuthorisedByID", "Service", "GELProbandID", "IRID")
	args = append(args, BookingAuthorisedByNA, ServiceNone, req.ParticipantID, req.RequestID)
	if req.Genome != nil {
		cols = append(cols, "GeL_case_flags")
		args = append(args, nullString(req.Genome.Flags))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.gw.Table("NGSTest"), r.gw.Columns(cols...), db.Placeholders(len(cols)))
	if _, err := r.gw.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ngstest %s: %w", req.RequestID, err)
	}
	return nil
}

func (r *repoSQL) AddPatientLog(ctx context.Context, entry *LogEntry) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.gw.Table("PatientLog"),
		r.gw.Columns("InternalPatientID", "LogEntry", "Date", "Login", "PCName"), db.Placeholders(5))
	_, err := r.gw.Exec(ctx, query, entry.InternalPatientID, entry.Entry, entry.Date, entry.Login, entry.PCName)
	if err != nil {
		return fmt.Errorf("insert patient log for %d: %w", entry.InternalPatientID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
