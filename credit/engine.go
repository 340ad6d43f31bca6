// Package credit classifies outstanding accounts-receivable into time bands
// and drives the alert lifecycle (surface once, snooze, mark paid).
package credit

import (
	"log"
	"sync"
	"time"

	"cremeria/store"
)

// Engine evaluates credit time bands against an injected clock.
type Engine struct {
	db  *store.DB
	now func() time.Time
}

func NewEngine(db *store.DB, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{db: db, now: now}
}

// Overdue returns unpaid credits whose due instant has passed, ordered by
// due date and time. A credit due exactly now is overdue.
func (e *Engine) Overdue() ([]store.CreditPending, error) {
	credits, err := e.db.ListUnpaidCredits()
	if err != nil {
		return nil, err
	}
	now := e.now()
	today := now.Format(store.DateLayout)
	clock := now.Format(store.ClockLayout)

	var overdue []store.CreditPending
	for _, c := range credits {
		if c.DueDate < today || (c.DueDate == today && c.DueTime <= clock) {
			overdue = append(overdue, c)
		}
	}
	return overdue, nil
}

// DueSoon returns unpaid credits falling due within the next hour, ordered by
// due time. The band is strict on both ends: later than now, no later than
// now plus one hour.
func (e *Engine) DueSoon() ([]store.CreditPending, error) {
	credits, err := e.db.ListUnpaidCredits()
	if err != nil {
		return nil, err
	}
	now := e.now()
	horizon := now.Add(time.Hour)
	today := now.Format(store.DateLayout)
	clock := now.Format(store.ClockLayout)
	horizonDate := horizon.Format(store.DateLayout)
	horizonClock := horizon.Format(store.ClockLayout)

	var due []store.CreditPending
	for _, c := range credits {
		if c.DueDate == today && c.DueTime > clock {
			if horizonDate == today {
				if c.DueTime <= horizonClock {
					due = append(due, c)
				}
			} else {
				// Horizon crosses midnight; the rest of today qualifies.
				due = append(due, c)
			}
		} else if horizonDate != today && c.DueDate == horizonDate && c.DueTime <= horizonClock {
			due = append(due, c)
		}
	}
	return due, nil
}

// UnseenAlerts returns overdue credits whose alert has not been surfaced yet.
// Each alert appears exactly once until snoozed or re-armed.
func (e *Engine) UnseenAlerts() ([]store.CreditPending, error) {
	overdue, err := e.Overdue()
	if err != nil {
		return nil, err
	}
	var unseen []store.CreditPending
	for _, c := range overdue {
		if c.AlertShownFlag == 0 {
			unseen = append(unseen, c)
		}
	}
	return unseen, nil
}

// MarkPaid settles a credit.
func (e *Engine) MarkPaid(id int64) error {
	return e.db.MarkCreditPaid(id)
}

// MarkAlerted snoozes a credit's alert until the next daily re-arm.
func (e *Engine) MarkAlerted(id int64) error {
	return e.db.MarkCreditAlerted(id)
}

// RearmJob re-arms snoozed alerts for unpaid credits at local midnight.
type RearmJob struct {
	engine   *Engine
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRearmJob(engine *Engine) *RearmJob {
	return &RearmJob{engine: engine, stopChan: make(chan struct{})}
}

func (j *RearmJob) Start() {
	j.wg.Add(1)
	go j.run()
}

func (j *RearmJob) Stop() {
	select {
	case <-j.stopChan:
	default:
		close(j.stopChan)
	}
	j.wg.Wait()
}

func (j *RearmJob) run() {
	defer j.wg.Done()
	for {
		now := j.engine.now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		timer := time.NewTimer(midnight.Sub(now))
		select {
		case <-j.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			n, err := j.engine.db.RearmCreditAlerts()
			if err != nil {
				log.Printf("re-arm credit alerts: %v", err)
			} else if n > 0 {
				log.Printf("re-armed %d credit alerts", n)
			}
		}
	}
}
