package booking

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultLog_Write(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewResultLog(&buf)
	if err != nil {
		t.Fatalf("NewResultLog() error: %v", err)
	}

	outcomes := []Outcome{
		{Case: Case{ParticipantID: "111000001", RequestID: "1234-1"}, PRU: "RJ1 100", Status: StatusSuccess, Message: MsgBooked},
		{Case: Case{ParticipantID: "111000002", RequestID: "2345-1"}, Status: StatusError, Message: "driver:\tbroken\nconnection"},
	}
	for _, o := range outcomes {
		if err := l.Write(o); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}

	want := "GeLParticipantID\tInterpretationRequestID\tPRU\tStatus\tLog\n" +
		"111000001\t1234-1\tRJ1 100\tSUCCESS\tCreated new NGSTest request\n" +
		"111000002\t2345-1\t\tERROR\tdriver: broken connection\n"
	if buf.String() != want {
		t.Errorf("unexpected log:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestOpenResultLog_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")
	if err := os.WriteFile(path, []byte("previous run\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	l, err := OpenResultLog(path)
	if err != nil {
		t.Fatalf("OpenResultLog() error: %v", err)
	}
	if err := l.Write(Outcome{Case: Case{ParticipantID: "p", RequestID: "r"}, Status: StatusSkip, Message: MsgDuplicate}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), data)
	}
	if lines[0] != "previous run" {
		t.Errorf("expected earlier content kept, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "p\tr\t\tSKIP\t") {
		t.Errorf("unexpected outcome line %q", lines[2])
	}
}
