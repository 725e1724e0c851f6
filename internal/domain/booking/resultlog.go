package booking

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var resultHeader = [...]string{"GeLParticipantID", "InterpretationRequestID", "PRU", "Status", "Log"}

var fieldCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// ResultLog appends tab-separated outcome lines. Each line goes straight to
// the underlying writer so lines already written survive an aborted run.
type ResultLog struct {
	w      io.Writer
	closer io.Closer
}

// OpenResultLog opens path for appending, creating it if needed, and writes
// the header line.
func OpenResultLog(path string) (*ResultLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	l, err := NewResultLog(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.closer = f
	return l, nil
}

// NewResultLog writes the header line to w.
func NewResultLog(w io.Writer) (*ResultLog, error) {
	l := &ResultLog{w: w}
	if err := l.writeLine(resultHeader[:]...); err != nil {
		return nil, fmt.Errorf("write result log header: %w", err)
	}
	return l, nil
}

func (l *ResultLog) Write(o Outcome) error {
	return l.writeLine(o.Case.ParticipantID, o.Case.RequestID, o.PRU, string(o.Status), o.Message)
}

func (l *ResultLog) writeLine(fields ...string) error {
	clean := make([]string, len(fields))
	for i, f := range fields {
		clean[i] = fieldCleaner.Replace(f)
	}
	_, err := io.WriteString(l.w, strings.Join(clean, "\t")+"\n")
	return err
}

func (l *ResultLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
