package journal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chameleon-db/dsql/pkg/engine"
)

// Entry represents a single journal entry
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Dialect   string         `json:"dialect,omitempty"`
	Table     string         `json:"table,omitempty"`
	SQL       string         `json:"sql,omitempty"`
	Params    int            `json:"params,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  int64          `json:"duration_ms,omitempty"`
}

// Entry statuses.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusDryRun = "dry_run"
)

// Logger is an append-only journal with one JSON-lines file per day
// and an index.json of per-action counters for the current day.
type Logger struct {
	journalDir string
	mu         sync.Mutex
	now        func() time.Time
}

// NewLogger creates a new journal logger
func NewLogger(journalDir string) (*Logger, error) {
	if err := os.MkdirAll(journalDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &Logger{
		journalDir: journalDir,
		now:        time.Now,
	}, nil
}

// Log appends an entry to the journal
func (l *Logger) Log(action, status string, details map[string]any, err error) error {
	entry := Entry{
		Action:  action,
		Status:  status,
		Details: details,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return l.Append(&entry)
}

// LogError logs an error event
func (l *Logger) LogError(action string, err error, details map[string]any) error {
	return l.Log(action, StatusError, details, err)
}

// Append writes entry, filling in its ID and timestamp when unset.
func (l *Logger) Append(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	f, err := os.OpenFile(l.logFile(entry.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}

	if err := l.updateIndex(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to update index: %v\n", err)
	}

	return nil
}

// Observer returns a hook that journals every statement a Manager runs.
func (l *Logger) Observer() engine.Observer {
	return func(ctx context.Context, ev engine.Event) {
		entry := FromEvent(ev)
		if err := l.Append(&entry); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to journal statement %s: %v\n", ev.ID, err)
		}
	}
}

// FromEvent converts a Manager event into an entry.
func FromEvent(ev engine.Event) Entry {
	entry := Entry{
		ID:       ev.ID,
		Status:   StatusOK,
		Dialect:  ev.Dialect,
		Duration: ev.Duration.Milliseconds(),
	}
	if s := ev.Statement; s != nil {
		entry.Action = s.Kind.String()
		entry.Table = s.Table
		entry.SQL = s.Text
		entry.Params = len(s.Params)
	}
	switch {
	case ev.Err != nil:
		entry.Status = StatusError
		entry.Error = ev.Err.Error()
	case ev.DryRun:
		entry.Status = StatusDryRun
	}
	switch r := ev.Response.(type) {
	case engine.Affected:
		entry.Details = map[string]any{"affected": int64(r)}
	case engine.InsertResult:
		entry.Details = map[string]any{"inserted": len(r.IDs)}
	}
	return entry
}

// logFile returns the path of the day file t falls in
func (l *Logger) logFile(t time.Time) string {
	return filepath.Join(l.journalDir, t.Format("2006-01-02")+".jsonl")
}

// Index is the content of index.json
type Index struct {
	Date     string         `json:"date"`
	Entries  int            `json:"entries"`
	ByAction map[string]int `json:"by_action"`
	ByStatus map[string]int `json:"by_status"`
}

// updateIndex bumps the daily counters
func (l *Logger) updateIndex(e *Entry) error {
	indexFile := filepath.Join(l.journalDir, "index.json")

	var index Index
	if data, err := os.ReadFile(indexFile); err == nil {
		if err := json.Unmarshal(data, &index); err != nil {
			return err
		}
	}

	today := e.Timestamp.Format("2006-01-02")
	if index.Date != today {
		index = Index{Date: today}
	}
	if index.ByAction == nil {
		index.ByAction = make(map[string]int)
	}
	if index.ByStatus == nil {
		index.ByStatus = make(map[string]int)
	}

	index.Entries++
	index.ByAction[e.Action]++
	index.ByStatus[e.Status]++

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(indexFile, data, 0644)
}

// ReadIndex returns today's counters
func (l *Logger) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(filepath.Join(l.journalDir, "index.json"))
	if os.IsNotExist(err) {
		return &Index{Date: l.now().Format("2006-01-02")}, nil
	}
	if err != nil {
		return nil, err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// ============================================================
// QUERIES
// ============================================================

// Last returns the last n entries across all day files, oldest first
func (l *Logger) Last(n int) ([]*Entry, error) {
	entries, err := l.all()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Errors returns all error entries from today
func (l *Logger) Errors() ([]*Entry, error) {
	return l.today(func(e *Entry) bool { return e.Status == StatusError })
}

// Actions returns today's entries of the given action (select, insert, ...)
func (l *Logger) Actions(action string) ([]*Entry, error) {
	return l.today(func(e *Entry) bool { return e.Action == action })
}

// Search returns entries whose table, SQL or error contain term
func (l *Logger) Search(term string) ([]*Entry, error) {
	entries, err := l.all()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)
	var out []*Entry
	for _, e := range entries {
		hay := strings.ToLower(e.Table + "\n" + e.SQL + "\n" + e.Error)
		if strings.Contains(hay, term) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Logger) today(keep func(*Entry) bool) ([]*Entry, error) {
	entries, err := l.readFile(l.logFile(l.now()))
	if err != nil {
		return nil, err
	}
	out := []*Entry{}
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// all reads every day file in date order
func (l *Logger) all() ([]*Entry, error) {
	files, err := filepath.Glob(filepath.Join(l.journalDir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	out := []*Entry{}
	for _, f := range files {
		entries, err := l.readFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (l *Logger) readFile(path string) ([]*Entry, error) {
	l.mu.Lock()
	data, err := os.ReadFile(path)
	l.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err)
		}
		entries = append(entries, &e)
	}
	return entries, sc.Err()
}
