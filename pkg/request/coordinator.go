package request

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matst80/slask-docs/pkg/source"
	"github.com/matst80/slask-docs/pkg/types"
)

var (
	requestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskdocs_requests_created_total",
		Help: "The total number of newly created access request records",
	})
	requestsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskdocs_requests_updated_total",
		Help: "The total number of incremented access request records",
	})
	requestsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskdocs_requests_failed_total",
		Help: "The total number of failed access request submissions",
	})
)

// State of the coordinator while a submission is in flight. Observable for
// tests, the coordinator always returns to StateIdle.
type State int32

const (
	StateIdle State = iota
	StateChecking
	StateCreating
	StateUpdating
)

// Outcome reports whether a submission created a new record or incremented
// an existing one, and the resulting total.
type Outcome struct {
	Created bool `json:"created"`
	Count   int  `json:"count"`
}

// Message is the transient notification text shown to the requester.
func (o Outcome) Message() string {
	if o.Created {
		return "Access request submitted successfully!"
	}
	return fmt.Sprintf("Request updated. Total requests: %d", o.Count)
}

// Notifier is the transient status channel (toast equivalent) towards the
// host environment.
type Notifier interface {
	Notify(message string)
}

// EventSink receives recorded access requests, used to publish them on the
// message bus. May be nil.
type EventSink interface {
	RequestRecorded(ev RequestEvent)
}

// RequestEvent describes one recorded access request.
type RequestEvent struct {
	DocumentId string `json:"documentId"`
	Requester  string `json:"requester"`
	Created    bool   `json:"created"`
	Count      int    `json:"count"`
}

// Coordinator implements the access-request workflow. With a count column
// configured it deduplicates per (document, requester) pair by incrementing
// the existing record; without one every submission creates a new record.
//
// The existence-check-then-write sequence is a read-modify-write race when
// two sessions submit for the same pair concurrently. The counter is
// advisory, not a security control, so eventual consistency is accepted;
// there is no cross-session lock to take.
type Coordinator struct {
	Store    source.RequestStore
	Settings *types.Settings
	Notifier Notifier
	Events   EventSink

	state atomic.Int32
}

func NewCoordinator(store source.RequestStore, settings *types.Settings) *Coordinator {
	return &Coordinator{Store: store, Settings: settings}
}

func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// Submit records an access request for a document by a requester. It always
// performs a fresh existence check, no local caching of request records.
func (c *Coordinator) Submit(ctx context.Context, documentId, requester string) (Outcome, error) {
	outcome, err := c.submit(ctx, documentId, requester)
	if err != nil {
		requestsFailed.Inc()
		c.notify(fmt.Sprintf("Failed to submit request: %v", err))
		return outcome, err
	}
	if outcome.Created {
		requestsCreated.Inc()
	} else {
		requestsUpdated.Inc()
	}
	c.notify(outcome.Message())
	if c.Events != nil {
		c.Events.RequestRecorded(RequestEvent{
			DocumentId: documentId,
			Requester:  requester,
			Created:    outcome.Created,
			Count:      outcome.Count,
		})
	}
	return outcome, nil
}

func (c *Coordinator) submit(ctx context.Context, documentId, requester string) (Outcome, error) {
	defer c.setState(StateIdle)

	if documentId == "" {
		return Outcome{}, fmt.Errorf("no document id for request")
	}
	cfg := c.Settings.RequestSnapshot()
	if !cfg.Configured() {
		// fail fast, no network call
		return Outcome{}, &types.ConfigError{Missing: "request list, document id column or requester column"}
	}

	if cfg.CountColumn == "" {
		// legacy path: every submission creates a row
		c.setState(StateCreating)
		err := c.Store.CreateRequest(ctx, cfg.List, map[string]any{
			cfg.DocumentIdColumn: documentId,
			cfg.RequesterColumn:  requester,
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Created: true, Count: 1}, nil
	}

	c.setState(StateChecking)
	existing, err := c.Store.FindRequest(ctx, cfg.List, cfg.DocumentIdColumn, documentId, cfg.RequesterColumn, requester, []string{cfg.CountColumn})
	if err != nil {
		return Outcome{}, err
	}

	if existing != nil {
		c.setState(StateUpdating)
		count := parseCount(existing.Fields[cfg.CountColumn]) + 1
		err = c.Store.UpdateRequest(ctx, cfg.List, existing.Id, map[string]any{
			cfg.CountColumn: count,
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Created: false, Count: count}, nil
	}

	c.setState(StateCreating)
	err = c.Store.CreateRequest(ctx, cfg.List, map[string]any{
		cfg.DocumentIdColumn: documentId,
		cfg.RequesterColumn:  requester,
		cfg.CountColumn:      1,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Created: true, Count: 1}, nil
}

func (c *Coordinator) notify(message string) {
	if c.Notifier == nil {
		log.Printf("request notification: %s", message)
		return
	}
	c.Notifier.Notify(message)
}

// parseCount reads the stored count value. Missing or non numeric values
// degrade to 0 and the submission proceeds, they are not errors.
func parseCount(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
