package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/moka/gel2moka/internal/domain/booking"
	"github.com/moka/gel2moka/internal/platform/db"
	"github.com/moka/gel2moka/internal/testutil/mokadb"
)

// setupEnv points the config at a SQLite file in a temp dir and returns
// the directory and database path.
func setupEnv(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "moka.db")
	ini := "[MOKA]\nDRIVER = sqlite\nDSN = " + dbPath + "\nSCHEMA = main\nCONNECT_ATTEMPTS = 1\n"
	cfgPath := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(cfgPath, []byte(ini), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MOKA_CONFIG", cfgPath)
	return dir, dbPath
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRun_BadHeaderStopsBeforeDatabase(t *testing.T) {
	dir, dbPath := setupEnv(t)
	input := filepath.Join(dir, "cases.tsv")
	writeFile(t, input, "participant\tirid\n111000001\t1234-1\n")

	err := run(context.Background(), input, filepath.Join(dir, "out.tsv"), io.Discard)
	if !errors.Is(err, booking.ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("expected the database never to be opened, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.tsv")); !os.IsNotExist(err) {
		t.Errorf("expected no result log, stat err = %v", err)
	}
}

func TestRun_MissingInput(t *testing.T) {
	dir, _ := setupEnv(t)
	err := run(context.Background(), filepath.Join(dir, "absent.tsv"), filepath.Join(dir, "out.tsv"), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "open input file") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestRun_BooksCases(t *testing.T) {
	dir, dbPath := setupEnv(t)
	ctx := context.Background()

	g, err := db.Open(ctx, mokadb.Config(dbPath), zerolog.Nop())
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	if err := mokadb.Apply(ctx, g); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	mokadb.AddProband(t, g, "111000001", 10, 501, "RJ1 100", mokadb.Int64(booking.PatientStatusComplete))
	mokadb.AddProband(t, g, "111000002", 20, 502, "RJ1 200", mokadb.Int64(1))
	mokadb.AddTest(t, g, 20, booking.ReferralID100K, "2222-1")
	g.Close()

	input := filepath.Join(dir, "cases.tsv")
	writeFile(t, input, booking.HeaderExtended+"\n"+
		"111000001\t1111-1\tGRCh38\t\tneg\n"+
		"111000002\t2222-1\tGRCh37\t\tneg\n"+
		"111000003\t3333-1\tGRCh38\t\tneg\n")
	output := filepath.Join(dir, "out.tsv")

	if err := run(ctx, input, output, io.Discard); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	want := []string{
		"GeLParticipantID\tInterpretationRequestID\tPRU\tStatus\tLog",
		"111000001\t1111-1\tRJ1 100\tSUCCESS\t" + booking.MsgBooked,
		"111000002\t2222-1\tRJ1 200\tSKIP\t" + booking.MsgDuplicate,
		"111000003\t3333-1\t\tERROR\t" + booking.MsgUnresolved,
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), data)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	g, err = db.Open(ctx, mokadb.Config(dbPath), zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer g.Close()
	if n := mokadb.Count(t, g, "NGSTest", "IRID = ? AND ResultBuild = ?", "1111-1", booking.BuildGRCh38); n != 1 {
		t.Errorf("expected the new test with build 3224, got %d", n)
	}
	if got := mokadb.Status(t, g, 10); got != booking.PatientStatus100K {
		t.Errorf("expected status 100K, got %d", got)
	}
}

func TestRootCmd_RequiresFlags(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"-i", "cases.tsv"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "output_file") {
		t.Fatalf("expected missing output_file error, got %v", err)
	}
}
