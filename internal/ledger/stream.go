package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamEvents subscribes to the ledger's change-event feed. Events are
// newline-delimited JSON delivered at least once; the returned channel is
// closed when the stream ends or ctx is cancelled. A malformed line is
// logged and skipped, never fatal to the stream.
func (c *Client) StreamEvents(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	// The subscription outlives any per-call timeout, so it gets its own
	// transport without one.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code opening event stream: %d", resp.StatusCode)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var event Event
			if err := json.Unmarshal(line, &event); err != nil {
				c.log.Errorf("Skipping malformed ledger event: %v", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.log.Errorf("Ledger event stream closed: %v", err)
		}
	}()
	return events, nil
}
