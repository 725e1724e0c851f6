package booking

import "time"

// Moka item and status identifiers. These are fixed values owned by the
// Moka database, not derived here.
const (
	ReferralID100K        int64 = 1199901218
	TestStatusRequested   int64 = 2
	BookingAuthorisedByNA int64 = 1201865434
	ServiceNone           int64 = 0

	PatientStatusComplete int64 = 4
	PatientStatus100K     int64 = 1202218839

	BuildGRCh38  int64 = 3224
	BuildGRCh37  int64 = 109
	BuildUnknown int64 = 289
)

// PatientLog entries written by the booking workflow.
const (
	LogStatusChanged = "Patients: Status changed to 100K"
	LogTestAdded     = "NGS: GeL test request added."
)

// Outcome messages.
const (
	MsgUnresolved = "No Moka InternalPatientID and/or referring clinician found for this patient, check they are in Moka Probands_100k table"
	MsgDuplicate  = "NGSTest request already exists for this interpretation request ID"
	MsgBooked     = "Created new NGSTest request"
)

// Genome carries the optional assembly and GeL case flags columns.
type Genome struct {
	Assembly string
	Flags    string
}

// Case is one row of the case list.
type Case struct {
	Line          int
	ParticipantID string
	RequestID     string  // interpretation request ID, <irid>-<version>
	Genome        *Genome // nil when the input has no assembly/flags columns
}

// PatientInfo is the proband as found in Probands_100k plus its current
// overall status from Patients. InternalPatientID is 0 when the proband row
// has no patient linked.
type PatientInfo struct {
	InternalPatientID int64
	ClinicianID       string
	PRU               string
	Status            *int64
}

// Linked reports whether the proband row points at a Moka patient.
func (p *PatientInfo) Linked() bool {
	return p.InternalPatientID != 0
}

// NGSTest is an existing 100K test request for a patient.
type NGSTest struct {
	ID       int64
	StatusID *int64
	IRID     string
}

// Resolution is what the lookups found for a case. Patient is nil when the
// participant matched zero or several probands.
type Resolution struct {
	Patient *PatientInfo
	Tests   []NGSTest
}

// HasRequest reports whether one of the existing tests carries irid.
func (r *Resolution) HasRequest(irid string) bool {
	for _, t := range r.Tests {
		if t.IRID == irid {
			return true
		}
	}
	return false
}

// TestRequest is a new NGSTest row.
type TestRequest struct {
	InternalPatientID int64
	ClinicianID       string
	ParticipantID     string
	RequestID         string
	Genome            *Genome
	RequestedAt       time.Time
}

// LogEntry is a PatientLog audit row.
type LogEntry struct {
	InternalPatientID int64
	Entry             string
	Date              time.Time
	Login             string
	PCName            string
}

type Status string

const (
	StatusError   Status = "ERROR"
	StatusSkip    Status = "SKIP"
	StatusSuccess Status = "SUCCESS"
)

// Outcome is the result recorded for one case.
type Outcome struct {
	Case    Case
	PRU     string
	Status  Status
	Message string
}

// Summary counts outcomes for a run.
type Summary struct {
	Total   int
	Success int
	Skipped int
	Errors  int
}

func (s *Summary) Add(status Status) {
	s.Total++
	switch status {
	case StatusSuccess:
		s.Success++
	case StatusSkip:
		s.Skipped++
	case StatusError:
		s.Errors++
	}
}

// BuildCode maps a genome assembly name to its Moka item ID. Anything other
// than GRCh38 or GRCh37 is recorded as Unknown.
func BuildCode(assembly string) int64 {
	switch assembly {
	case "GRCh38":
		return BuildGRCh38
	case "GRCh37":
		return BuildGRCh37
	default:
		return BuildUnknown
	}
}
