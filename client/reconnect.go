package client

import (
	"context"
	"time"
)

// reconnectEntry is one endpoint waiting for the 10s reconnect sweep,
// per spec.md §4.6 ("an endpoint enters the reconnect list when a
// previously-authenticated connection is lost, or when
// keep_connecting=true was requested for an endpoint that never
// authenticated").
type reconnectEntry struct {
	addr         string
	lastAttempt  time.Time
	attemptCount int
}

func (c *Client) enqueueReconnect(addr string) {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()
	if _, ok := c.reconnectList[addr]; ok {
		return
	}
	c.reconnectList[addr] = &reconnectEntry{addr: addr}
}

func (c *Client) reconnectLoop() {
	ticker := time.NewTicker(DefaultReconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sweepReconnect()
		}
	}
}

func (c *Client) sweepReconnect() {
	c.reconnectMu.Lock()
	pending := make([]*reconnectEntry, 0, len(c.reconnectList))
	for _, e := range c.reconnectList {
		pending = append(pending, e)
	}
	c.reconnectMu.Unlock()

	for _, e := range pending {
		e.lastAttempt = time.Now()
		e.attemptCount++

		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		err := c.dialAndRegister(ctx, e.addr)
		cancel()
		if err != nil {
			c.log.WithError(err).WithField("addr", e.addr).Debug("client: reconnect attempt failed")
			continue
		}

		c.reconnectMu.Lock()
		delete(c.reconnectList, e.addr)
		c.reconnectMu.Unlock()
		c.stats.incReconnects()
	}
}
