package client

import "time"

// TimeoutScanner periodically asks every pending read-only request
// whether it has exceeded its local deadline, per spec.md §5's
// "dedicated timeout-scanning thread" concurrency note. Non-goals (§1)
// exclude wiring this to a default-on production cron; a scanner runs
// only when the caller calls EnableTimeoutScanner or sets
// Config.EnableQueryTimeout, in which case New calls it.
type TimeoutScanner interface {
	// ScanOnce is invoked on every tick; implementations should expire
	// any pending request whose deadline has passed.
	ScanOnce(now time.Time)
}

// connDeadlineScanner is the default TimeoutScanner: it calls
// conn.Conn.ExpireDeadlines on every connection the client currently
// owns.
type connDeadlineScanner struct {
	client *Client
}

func (s *connDeadlineScanner) ScanOnce(now time.Time) {
	for _, c := range s.client.snapshotConns() {
		c.ExpireDeadlines(now)
	}
}

// EnableTimeoutScanner starts a goroutine that calls scanner.ScanOnce
// every interval until the client is closed. Passing a nil scanner
// installs the default connDeadlineScanner. Per spec.md §1/§6, this is
// opt-in: New calls it only when Config.EnableQueryTimeout is set.
func (c *Client) EnableTimeoutScanner(interval time.Duration, scanner TimeoutScanner) {
	if scanner == nil {
		scanner = &connDeadlineScanner{client: c}
	}
	if interval <= 0 {
		interval = c.cfg.TimeoutScanInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case now := <-ticker.C:
				scanner.ScanOnce(now)
			}
		}
	}()
}
