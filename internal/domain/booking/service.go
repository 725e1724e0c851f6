package booking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// OutcomeSink receives one outcome per processed case.
type OutcomeSink interface {
	Write(o Outcome) error
}

// AuditIdentity is recorded as Login and PCName on PatientLog rows.
type AuditIdentity struct {
	Login  string
	PCName string
}

// DefaultAuditIdentity uses the program name and the host name.
func DefaultAuditIdentity() AuditIdentity {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return AuditIdentity{Login: filepath.Base(os.Args[0]), PCName: host}
}

type Service struct {
	repo   Repository
	audit  AuditIdentity
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, audit AuditIdentity, logger zerolog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// Resolve runs the case lookups: proband, existing 100K tests, then patient
// status. The patient is only accepted when exactly one proband row
// matches; otherwise the resolution has no patient. The later lookups are
// skipped when the proband is unmatched or has no InternalPatientID.
func (s *Service) Resolve(ctx context.Context, c Case) (*Resolution, error) {
	probands, err := s.repo.FindProbands(ctx, c.ParticipantID)
	if err != nil {
		return nil, err
	}
	res := &Resolution{}
	if len(probands) != 1 {
		s.logger.Debug().Str("participant_id", c.ParticipantID).Int("matches", len(probands)).Msg("proband not uniquely resolved")
		return res, nil
	}
	p := probands[0]
	res.Patient = &p
	if !p.Linked() {
		s.logger.Debug().Str("participant_id", c.ParticipantID).Msg("proband has no InternalPatientID")
		return res, nil
	}

	res.Tests, err = s.repo.ListTests(ctx, p.InternalPatientID)
	if err != nil {
		return nil, err
	}

	p.Status, err = s.repo.GetPatientStatus(ctx, p.InternalPatientID)
	if err != nil {
		return nil, err
	}
	if p.Status == nil {
		s.logger.Warn().Int64("internal_patient_id", p.InternalPatientID).Msg("no overall status found in Patients")
	}
	return res, nil
}

// Book writes the new test request for a resolved patient. A patient in
// the Complete state is moved to 100K first. Each statement commits on its
// own, so a failure part way leaves the earlier writes in place.
func (s *Service) Book(ctx context.Context, c Case, p *PatientInfo) error {
	now := s.now()

	if p.Status != nil && *p.Status == PatientStatusComplete {
		if err := s.repo.UpdatePatientStatus(ctx, p.InternalPatientID, PatientStatus100K); err != nil {
			return err
		}
		if err := s.repo.AddPatientLog(ctx, s.logEntry(p.InternalPatientID, LogStatusChanged, now)); err != nil {
			return err
		}
	}

	req := &TestRequest{
		InternalPatientID: p.InternalPatientID,
		ClinicianID:       p.ClinicianID,
		ParticipantID:     c.ParticipantID,
		RequestID:         c.RequestID,
		Genome:            c.Genome,
		RequestedAt:       now,
	}
	if err := s.repo.CreateTest(ctx, req); err != nil {
		return err
	}
	return s.repo.AddPatientLog(ctx, s.logEntry(p.InternalPatientID, LogTestAdded, now))
}

func (s *Service) logEntry(patientID int64, entry string, at time.Time) *LogEntry {
	return &LogEntry{
		InternalPatientID: patientID,
		Entry:             entry,
		Date:              at,
		Login:             s.audit.Login,
		PCName:            s.audit.PCName,
	}
}

// Process resolves one case and books it when no matching request exists.
// A database error is returned together with an ERROR outcome describing it.
func (s *Service) Process(ctx context.Context, c Case) (Outcome, error) {
	out := Outcome{Case: c}

	res, err := s.Resolve(ctx, c)
	if err != nil {
		out.Status, out.Message = StatusError, err.Error()
		return out, err
	}
	if res.Patient != nil {
		out.PRU = res.Patient.PRU
	}

	switch {
	case res.Patient == nil || !res.Patient.Linked() || res.Patient.ClinicianID == "":
		out.Status, out.Message = StatusError, MsgUnresolved
	case res.HasRequest(c.RequestID):
		out.Status, out.Message = StatusSkip, MsgDuplicate
	default:
		if err := s.Book(ctx, c, res.Patient); err != nil {
			out.Status, out.Message = StatusError, err.Error()
			return out, err
		}
		out.Status, out.Message = StatusSuccess, MsgBooked
	}
	return out, nil
}

// Run processes cases in order, each exactly once, writing every outcome to
// sink. It stops at the first database or sink error, after recording the
// failing case.
func (s *Service) Run(ctx context.Context, cases []Case, sink OutcomeSink) (Summary, error) {
	var sum Summary
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		out, procErr := s.Process(ctx, c)
		sum.Add(out.Status)

		evt := s.logger.Info()
		if procErr != nil {
			evt = s.logger.Error().Err(procErr)
		}
		evt.Int("line", c.Line).
			Str("participant_id", c.ParticipantID).
			Str("irid", c.RequestID).
			Str("pru", out.PRU).
			Str("status", string(out.Status)).
			Msg(out.Message)

		if err := sink.Write(out); err != nil {
			return sum, fmt.Errorf("write outcome for %s: %w", c.RequestID, err)
		}
		if procErr != nil {
			return sum, fmt.Errorf("case %s/%s: %w", c.ParticipantID, c.RequestID, procErr)
		}
	}
	return sum, nil
}
