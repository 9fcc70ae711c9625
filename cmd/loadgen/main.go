// Command loadgen submits synthetic score actions against a running
// scoreboard instance and reports acceptance counts. Useful for exercising
// rate limits, cache refresh behavior, and the live stream under load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Default configuration constants.
const (
	defaultNumActions = 10000
	defaultUsers      = 100
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

var actionTypes = []struct {
	name string
	max  int64
}{
	{"login", 10},
	{"task_complete", 50},
	{"contest_win", 500},
}

type counters struct {
	accepted    atomic.Int64
	duplicates  atomic.Int64
	rateLimited atomic.Int64
	invalid     atomic.Int64
	failed      atomic.Int64
}

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numActions = flag.Int("actions", defaultNumActions, "Number of actions to submit")
		users      = flag.Int("users", defaultUsers, "Number of distinct users to spread actions over")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		dupRate    = flag.Float64("dup-rate", 0.05, "Fraction of actions resubmitted with a reused action ID")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	client := &http.Client{Timeout: *timeout}
	jobs := make(chan int, *workers)
	var stats counters

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			// Idempotency is keyed per (userID, actionID), so an injected
			// duplicate must replay both halves of the previous pair.
			var lastUserID, lastUsername, lastActionID string
			for range jobs {
				userN := rng.Intn(*users)
				at := actionTypes[rng.Intn(len(actionTypes))]

				userID := fmt.Sprintf("user-%03d", userN)
				username := fmt.Sprintf("Player %d", userN)
				actionID := uuid.NewString()
				if lastActionID != "" && rng.Float64() < *dupRate {
					userID, username, actionID = lastUserID, lastUsername, lastActionID
				}
				lastUserID, lastUsername, lastActionID = userID, username, actionID

				submit(ctx, client, *baseURL, &stats, submission{
					userID:     userID,
					username:   username,
					actionID:   actionID,
					actionType: at.name,
					increment:  1 + rng.Int63n(at.max),
				})
			}
		}()
	}

	for i := 0; i < *numActions; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			i = *numActions
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("submitted %d actions in %s (%.0f/s)\n",
		*numActions, elapsed.Round(time.Millisecond), float64(*numActions)/elapsed.Seconds())
	fmt.Printf("  accepted:     %d\n", stats.accepted.Load())
	fmt.Printf("  duplicates:   %d\n", stats.duplicates.Load())
	fmt.Printf("  rate limited: %d\n", stats.rateLimited.Load())
	fmt.Printf("  invalid:      %d\n", stats.invalid.Load())
	fmt.Printf("  failed:       %d\n", stats.failed.Load())

	if stats.failed.Load() > 0 {
		os.Exit(1)
	}
}

type submission struct {
	userID     string
	username   string
	actionID   string
	actionType string
	increment  int64
}

func submit(ctx context.Context, client *http.Client, baseURL string, stats *counters, s submission) {
	body, err := json.Marshal(map[string]any{
		"action_id":       s.actionID,
		"action_type":     s.actionType,
		"score_increment": s.increment,
	})
	if err != nil {
		stats.failed.Add(1)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/actions", bytes.NewReader(body))
	if err != nil {
		stats.failed.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", s.userID)
	req.Header.Set("X-User-Name", s.username)

	resp, err := client.Do(req)
	if err != nil {
		stats.failed.Add(1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		stats.accepted.Add(1)
	case http.StatusConflict:
		stats.duplicates.Add(1)
	case http.StatusTooManyRequests:
		stats.rateLimited.Add(1)
	case http.StatusBadRequest:
		stats.invalid.Add(1)
	default:
		stats.failed.Add(1)
	}
}
