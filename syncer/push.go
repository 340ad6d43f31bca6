// Package syncer keeps the hosted replica in step with the local store: a
// table-by-table push engine with a periodic worker, plus an on-demand pull
// for the product catalog.
package syncer

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cremeria/store"
)

// Remote is the replica surface the engine needs. Implemented by
// remote.Client; tests substitute a fake.
type Remote interface {
	Enabled() bool
	Select(table string, columns []string, filters map[string]string, order string, limit int) ([]map[string]any, error)
	Upsert(table, pkColumn string, rows []map[string]any) error
}

// TableResult is the outcome of pushing one table in one cycle.
type TableResult struct {
	Table  string `json:"table"`
	Sent   int    `json:"sent"`
	Errors int    `json:"errors"`
}

// Status is the last observed sync state, for the operator dashboard.
type Status struct {
	LastPush    time.Time     `json:"last_push"`
	LastPull    time.Time     `json:"last_pull"`
	LastCycleID string        `json:"last_cycle_id"`
	Results     []TableResult `json:"results"`
}

// Engine pushes local rows to the remote replica.
type Engine struct {
	db           *store.DB
	remote       Remote
	cache        Cache
	batchSize    int
	pollInterval time.Duration
	pullCooldown time.Duration
	now          func() time.Time

	mu     sync.Mutex
	status Status
	// Columns the remote rejected, learned from upsert errors and excluded
	// from subsequent cycles.
	dropped map[string]map[string]bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Cache is the TTL cache used for pull suppression.
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string, ttl time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

func WithPullCooldown(d time.Duration) Option {
	return func(e *Engine) { e.pullCooldown = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(db *store.DB, remote Remote, cache Cache, opts ...Option) *Engine {
	e := &Engine{
		db:           db,
		remote:       remote,
		cache:        cache,
		batchSize:    100,
		pollInterval: 300 * time.Second,
		pullCooldown: 30 * time.Second,
		now:          time.Now,
		dropped:      make(map[string]map[string]bool),
		stopChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = noopCache{}
	}
	return e
}

// PushAll runs one full push cycle: every configured table, in dependency
// order, in batches keyed by the table's primary key. Errors are logged and
// counted; the cycle never aborts early.
func (e *Engine) PushAll() []TableResult {
	if e.remote == nil || !e.remote.Enabled() {
		log.Printf("sync: no remote replica configured, push skipped")
		return nil
	}
	cycleID := uuid.NewString()
	results := make([]TableResult, 0, len(pushTables))

	for _, spec := range pushTables {
		res := e.pushTable(&spec)
		results = append(results, res)
		log.Printf("sync %s: table %s -> %s sent=%d errors=%d",
			cycleID[:8], spec.Name, spec.RemoteName, res.Sent, res.Errors)
	}

	e.mu.Lock()
	e.status.LastPush = e.now()
	e.status.LastCycleID = cycleID
	e.status.Results = results
	e.mu.Unlock()
	return results
}

func (e *Engine) pushTable(spec *TableSpec) TableResult {
	res := TableResult{Table: spec.Name}
	rows, err := e.materialize(spec)
	if err != nil {
		log.Printf("sync: materialize %s: %v", spec.Name, err)
		res.Errors++
		return res
	}
	for start := 0; start < len(rows); start += e.batchSize {
		end := start + e.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		if err := e.upsertBatch(spec, batch); err != nil {
			log.Printf("sync: upsert %s rows %d-%d: %v", spec.RemoteName, start, end, err)
			res.Errors += len(batch)
			continue
		}
		res.Sent += len(batch)
	}
	return res
}

// upsertBatch sends one batch, learning rejected columns from schema-mismatch
// errors and retrying once without them.
func (e *Engine) upsertBatch(spec *TableSpec, batch []map[string]any) error {
	err := e.remote.Upsert(spec.RemoteName, spec.PrimaryKey, batch)
	if err == nil {
		return nil
	}
	col, ok := rejectedColumn(err)
	if !ok {
		return err
	}
	e.dropColumn(spec.RemoteName, col)
	for _, row := range batch {
		delete(row, col)
	}
	log.Printf("sync: remote %s lacks column %q, dropped for this run", spec.RemoteName, col)
	return e.remote.Upsert(spec.RemoteName, spec.PrimaryKey, batch)
}

// rejectedColumn extracts the offending column name from a PostgREST
// schema-mismatch error ("Could not find the 'x' column ...").
func rejectedColumn(err error) (string, bool) {
	msg := err.Error()
	marker := "Could not find the '"
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	j := strings.Index(rest, "'")
	if j <= 0 {
		return "", false
	}
	return rest[:j], true
}

func (e *Engine) dropColumn(remoteTable, col string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dropped[remoteTable] == nil {
		e.dropped[remoteTable] = make(map[string]bool)
	}
	e.dropped[remoteTable][col] = true
}

// materialize runs the spec's select and builds name-keyed rows, applying the
// normalizer, datetime coercion and column restrictions.
func (e *Engine) materialize(spec *TableSpec) ([]map[string]any, error) {
	return e.materializeSQL(spec, spec.LocalSQL)
}

func (e *Engine) materializeSQL(spec *TableSpec, query string, args ...any) ([]map[string]any, error) {
	dbRows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", spec.Name, err)
	}
	defer dbRows.Close()

	cols, err := dbRows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for dbRows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := dbRows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		e.shapeRow(spec, row)
		out = append(out, row)
	}
	return out, dbRows.Err()
}

func (e *Engine) shapeRow(spec *TableSpec, row map[string]any) {
	if spec.Normalize != nil {
		spec.Normalize(row)
	}
	coerceDatetimes(row)
	if len(spec.RemoteColumns) > 0 {
		keep := make(map[string]bool, len(spec.RemoteColumns))
		for _, col := range spec.RemoteColumns {
			keep[col] = true
		}
		for col := range row {
			if !keep[col] {
				delete(row, col)
			}
		}
	}
	e.mu.Lock()
	for col := range e.dropped[spec.RemoteName] {
		delete(row, col)
	}
	e.mu.Unlock()
}

// GetStatus returns a copy of the last sync status.
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := e.status
	status.Results = append([]TableResult(nil), e.status.Results...)
	return status
}

type noopCache struct{}

func (noopCache) Get(string) (string, bool)         { return "", false }
func (noopCache) Set(string, string, time.Duration) {}
