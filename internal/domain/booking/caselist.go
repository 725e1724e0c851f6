package booking

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Accepted header lines. The extended form adds genome assembly and case
// flags; its trailing group column is ignored.
const (
	HeaderBasic    = "participant_ID\tCIP_ID"
	HeaderExtended = "participant_ID\tCIP_ID\tassembly\tflags\tgroup"
)

const headerPrefix = "participant_ID"

var (
	ErrBadHeader    = errors.New("input file does not contain expected header row")
	ErrMalformedRow = errors.New("malformed case row")
)

// ParseCaseList reads a tab-separated case list. A leading byte-order mark
// is dropped. The first line must be HeaderBasic or HeaderExtended exactly;
// blank lines and repeated header lines are skipped.
func ParseCaseList(r io.Reader) ([]Case, error) {
	sc := bufio.NewScanner(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read case list: %w", err)
		}
		return nil, ErrBadHeader
	}

	var extended bool
	switch header := sc.Text(); header {
	case HeaderBasic:
	case HeaderExtended:
		extended = true
	default:
		return nil, fmt.Errorf("%w: got %q", ErrBadHeader, header)
	}

	var cases []Case
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, headerPrefix) {
			continue
		}
		c, err := parseRow(line, lineNo, extended)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read case list line %d: %w", lineNo+1, err)
	}
	return cases, nil
}

func parseRow(line string, lineNo int, extended bool) (Case, error) {
	fields := strings.Split(line, "\t")
	want := 2
	if extended {
		want = 4
	}
	if len(fields) < want {
		return Case{}, fmt.Errorf("%w: line %d has %d fields, need %d", ErrMalformedRow, lineNo, len(fields), want)
	}

	c := Case{
		Line:          lineNo,
		ParticipantID: strings.TrimSpace(fields[0]),
		RequestID:     strings.TrimSpace(fields[1]),
	}
	if c.ParticipantID == "" || c.RequestID == "" {
		return Case{}, fmt.Errorf("%w: line %d has an empty participant or request ID", ErrMalformedRow, lineNo)
	}
	if extended {
		c.Genome = &Genome{
			Assembly: strings.TrimSpace(fields[2]),
			Flags:    strings.TrimSpace(fields[3]),
		}
	}
	return c, nil
}
