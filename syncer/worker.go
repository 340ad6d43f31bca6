package syncer

import (
	"errors"
	"log"
	"time"
)

// Start begins the periodic push loop. The worker reads through its own
// short-lived queries and never blocks the operator path.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop halts the periodic loop and waits for an in-flight cycle to finish.
func (e *Engine) Stop() {
	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}
	e.wg.Wait()
}

func (e *Engine) run() {
	defer e.wg.Done()

	// Catalog refresh at startup so the terminal opens with current prices.
	// Best effort: the shop keeps selling from the local catalog either way.
	if _, err := e.PullProducts(); err != nil && !errors.Is(err, ErrRemoteDisabled) {
		log.Printf("sync worker: startup pull: %v", err)
	}

	interval := e.pollInterval
	if interval <= 0 {
		interval = 300 * time.Second
	}
	log.Printf("sync worker: pushing every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.PushAll()
		}
	}
}
