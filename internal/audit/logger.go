// Package audit provides the append-only, JSON-lines audit log (spec
// §4.6): every engine operation writes one model.AuditRecord before
// returning, and the log supports filtered queries for later review.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
)

// Logger is the audit logging backend contract.
type Logger interface {
	Log(rec *model.AuditRecord) error
	Query(filter Filter) ([]*model.AuditRecord, error)
	Close() error
}

// Filter selects a subset of records from Query.
type Filter struct {
	DeviceID    string
	Actor       string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// RotationConfig bounds a FileLogger's on-disk footprint. Zero value means
// no rotation. DefaultRotation matches the 10MB/5-backup retention
// switchcraft runs with in production.
type RotationConfig struct {
	MaxSizeBytes int64
	MaxBackups   int
}

// DefaultRotation is the production default: rotate at 10MB, keep 5
// backups.
var DefaultRotation = RotationConfig{MaxSizeBytes: 10 * 1024 * 1024, MaxBackups: 5}

// FileLogger appends one JSON object per line to path, rotating by size.
type FileLogger struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// NewFileLogger opens (creating if needed) the audit log at path.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileLogger{path: path, file: file, encoder: json.NewEncoder(file), rotation: rotation}, nil
}

// Log appends rec, rotating first if the file has grown past
// rotation.MaxSizeBytes.
func (l *FileLogger) Log(rec *model.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSizeBytes > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() >= l.rotation.MaxSizeBytes {
			if err := l.rotate(); err != nil {
				return fmt.Errorf("rotating audit log: %w", err)
			}
		}
	}
	return l.encoder.Encode(rec)
}

// Query scans the log file and returns records matching filter, oldest
// first, with Offset/Limit applied after filtering.
func (l *FileLogger) Query(filter Filter) ([]*model.AuditRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []*model.AuditRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec model.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			logx.Logger.Warnf("audit: skipping malformed log entry at line %d: %v", line, err)
			continue
		}
		if matchesFilter(&rec, filter) {
			records = append(records, &rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(records) {
			return nil, nil
		}
		records = records[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(records) {
		records = records[:filter.Limit]
	}
	return records, nil
}

// Close closes the underlying file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func matchesFilter(rec *model.AuditRecord, filter Filter) bool {
	if filter.DeviceID != "" && rec.DeviceID != filter.DeviceID {
		return false
	}
	if filter.Actor != "" && rec.Actor != filter.Actor {
		return false
	}
	if filter.Operation != "" && rec.Operation != filter.Operation {
		return false
	}
	if !filter.StartTime.IsZero() && rec.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && rec.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.SuccessOnly && !rec.Success {
		return false
	}
	if filter.FailureOnly && rec.Success {
		return false
	}
	return true
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	rotatedPath := l.path + "." + time.Now().Format("20060102-150405")
	if err := os.Rename(l.path, rotatedPath); err != nil {
		return err
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.encoder = json.NewEncoder(file)

	if l.rotation.MaxBackups > 0 {
		l.cleanupOldBackups()
	}
	return nil
}

func (l *FileLogger) cleanupOldBackups() {
	dir := filepath.Dir(l.path)
	pattern := filepath.Base(l.path) + ".*"
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var backups []backup
	for _, p := range matches {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: p, modTime: info.ModTime()})
	}
	if len(backups) <= l.rotation.MaxBackups {
		return
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].modTime.Before(backups[j].modTime) })
	for _, b := range backups[:len(backups)-l.rotation.MaxBackups] {
		os.Remove(b.path)
	}
}

// loggerHolder wraps a Logger so atomic.Value always stores the same
// concrete type, since the first Store of a nil interface would otherwise
// panic on later type assertions.
type loggerHolder struct{ logger Logger }

var defaultLogger atomic.Value

// SetDefaultLogger installs logger as the package-wide default used by Log
// and Query, so engine components that don't hold a Logger reference
// directly can still emit records.
func SetDefaultLogger(logger Logger) {
	defaultLogger.Store(loggerHolder{logger: logger})
}

func getDefaultLogger() Logger {
	v := defaultLogger.Load()
	if v == nil {
		return nil
	}
	return v.(loggerHolder).logger
}

// Log appends rec via the default logger; a no-op if none is configured.
func Log(rec *model.AuditRecord) error {
	if l := getDefaultLogger(); l != nil {
		return l.Log(rec)
	}
	return nil
}

// Query runs filter against the default logger, returning no records (not
// an error) if none is configured.
func Query(filter Filter) ([]*model.AuditRecord, error) {
	if l := getDefaultLogger(); l != nil {
		return l.Query(filter)
	}
	return nil, nil
}
