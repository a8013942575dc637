package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emesix/switchcraft/internal/model"
)

func TestFileLoggerLogAndQuery(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(filepath.Join(dir, "audit.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	rec := model.NewAuditRecord("sw1", "apply_config", "alice").WithSuccess()
	if err := logger.Log(rec); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].DeviceID != "sw1" || got[0].Actor != "alice" {
		t.Errorf("Query = %+v, want one record for sw1/alice", got)
	}
}

func TestFileLoggerQueryFilters(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(filepath.Join(dir, "audit.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	records := []*model.AuditRecord{
		model.NewAuditRecord("sw1", "apply_config", "alice").WithSuccess(),
		model.NewAuditRecord("sw1", "apply_config", "bob").WithError(errors.New("boom")),
		model.NewAuditRecord("sw2", "drift_check", "alice").WithSuccess(),
	}
	for _, r := range records {
		if err := logger.Log(r); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	if got, _ := logger.Query(Filter{DeviceID: "sw1"}); len(got) != 2 {
		t.Errorf("DeviceID filter: got %d, want 2", len(got))
	}
	if got, _ := logger.Query(Filter{Actor: "alice"}); len(got) != 2 {
		t.Errorf("Actor filter: got %d, want 2", len(got))
	}
	if got, _ := logger.Query(Filter{FailureOnly: true}); len(got) != 1 {
		t.Errorf("FailureOnly filter: got %d, want 1", len(got))
	}
	if got, _ := logger.Query(Filter{SuccessOnly: true}); len(got) != 2 {
		t.Errorf("SuccessOnly filter: got %d, want 2", len(got))
	}
	if got, _ := logger.Query(Filter{Limit: 1}); len(got) != 1 {
		t.Errorf("Limit filter: got %d, want 1", len(got))
	}
	if got, _ := logger.Query(Filter{Offset: 2}); len(got) != 1 {
		t.Errorf("Offset filter: got %d, want 1", len(got))
	}
}

func TestFileLoggerQueryTimeRange(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(filepath.Join(dir, "audit.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	logger.Log(model.NewAuditRecord("sw1", "apply_config", "alice").WithSuccess())

	if got, _ := logger.Query(Filter{StartTime: time.Now().Add(-time.Hour), EndTime: time.Now().Add(time.Hour)}); len(got) != 1 {
		t.Errorf("in-range query: got %d, want 1", len(got))
	}
	if got, _ := logger.Query(Filter{StartTime: time.Now().Add(time.Hour)}); len(got) != 0 {
		t.Errorf("future-only query: got %d, want 0", len(got))
	}
}

func TestFileLoggerQueryNonExistentFile(t *testing.T) {
	dir := t.TempDir()
	logger := &FileLogger{path: filepath.Join(dir, "missing.log")}
	got, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestFileLoggerQuerySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	content := `{"device_id":"sw1","operation":"apply_config","success":true}
not json
{"device_id":"sw2","operation":"apply_config","success":true}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	logger, err := NewFileLogger(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	got, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want 2 (malformed line skipped)", len(got))
	}
}

func TestFileLoggerRotatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	logger, err := NewFileLogger(path, RotationConfig{MaxSizeBytes: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 4; i++ {
		if err := logger.Log(model.NewAuditRecord("sw1", "apply_config", "alice").WithSuccess()); err != nil {
			t.Fatalf("Log iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "audit.log.*"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) == 0 {
		t.Error("expected rotation to produce backup files")
	}
	if len(matches) > 2 {
		t.Errorf("got %d backups, want at most MaxBackups=2", len(matches))
	}
}

func TestDefaultLoggerNoOpWithoutConfiguration(t *testing.T) {
	SetDefaultLogger(nil)
	if err := Log(model.NewAuditRecord("sw1", "apply_config", "alice")); err != nil {
		t.Errorf("Log with no default logger: %v", err)
	}
	got, err := Query(Filter{})
	if err != nil || len(got) != 0 {
		t.Errorf("Query with no default logger = %v, %v", got, err)
	}
}

func TestDefaultLoggerDelegates(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(filepath.Join(dir, "audit.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()
	defer SetDefaultLogger(nil)

	SetDefaultLogger(logger)
	if err := Log(model.NewAuditRecord("sw1", "apply_config", "alice").WithSuccess()); err != nil {
		t.Fatalf("Log: %v", err)
	}
	got, err := Query(Filter{})
	if err != nil || len(got) != 1 {
		t.Errorf("Query via default logger = %v, %v, want 1 record", got, err)
	}
}
