package request

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matst80/slask-docs/pkg/source"
	"github.com/matst80/slask-docs/pkg/types"
)

type fakeStore struct {
	records  []*source.RequestRecord
	finds    int
	creates  int
	updates  int
	failWith error
	nextId   int
}

func (f *fakeStore) FindRequest(_ context.Context, list, idColumn, idValue, requesterColumn, requesterValue string, _ []string) (*source.RequestRecord, error) {
	f.finds++
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, r := range f.records {
		if r.Fields[idColumn] == idValue && r.Fields[requesterColumn] == requesterValue {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, list string, fields map[string]any) error {
	f.creates++
	if f.failWith != nil {
		return f.failWith
	}
	f.nextId++
	copied := map[string]any{}
	for k, v := range fields {
		copied[k] = v
	}
	f.records = append(f.records, &source.RequestRecord{Id: fmt.Sprint(f.nextId), Fields: copied})
	return nil
}

func (f *fakeStore) UpdateRequest(_ context.Context, list, recordId string, fields map[string]any) error {
	f.updates++
	if f.failWith != nil {
		return f.failWith
	}
	for _, r := range f.records {
		if r.Id == recordId {
			for k, v := range fields {
				r.Fields[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("no record %s", recordId)
}

func settingsWithCount() *types.Settings {
	s := &types.Settings{}
	s.Request = types.RequestSettings{
		List:             "AccessRequests",
		DocumentIdColumn: "DocId",
		RequesterColumn:  "Requester",
		CountColumn:      "RequestCount",
	}
	return s
}

func TestSubmitCreatesThenIncrements(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, settingsWithCount())
	ctx := context.Background()

	outcome, err := c.Submit(ctx, "doc-1", "user@example.com")
	assert.NoError(t, err)
	assert.True(t, outcome.Created)
	assert.Equal(t, 1, outcome.Count)
	assert.Equal(t, "Access request submitted successfully!", outcome.Message())
	assert.Equal(t, 1, len(store.records))

	outcome, err = c.Submit(ctx, "doc-1", "user@example.com")
	assert.NoError(t, err)
	assert.False(t, outcome.Created)
	assert.Equal(t, 2, outcome.Count)
	assert.Equal(t, "Request updated. Total requests: 2", outcome.Message())
	// still one record, it was incremented in place
	assert.Equal(t, 1, len(store.records))
	assert.Equal(t, 2, store.records[0].Fields["RequestCount"])
}

func TestSubmitDifferentRequesterGetsOwnRecord(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, settingsWithCount())
	ctx := context.Background()

	_, _ = c.Submit(ctx, "doc-1", "a@example.com")
	outcome, err := c.Submit(ctx, "doc-1", "b@example.com")
	assert.NoError(t, err)
	assert.True(t, outcome.Created)
	assert.Equal(t, 2, len(store.records))
}

func TestSubmitLegacyModeAlwaysCreates(t *testing.T) {
	store := &fakeStore{}
	s := settingsWithCount()
	s.Request.CountColumn = ""
	c := NewCoordinator(store, s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		outcome, err := c.Submit(ctx, "doc-1", "user@example.com")
		assert.NoError(t, err)
		assert.True(t, outcome.Created)
	}
	assert.Equal(t, 3, len(store.records))
	// legacy mode never checks for an existing record
	assert.Equal(t, 0, store.finds)
}

func TestSubmitUnconfiguredFailsFast(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, &types.Settings{})

	_, err := c.Submit(context.Background(), "doc-1", "user@example.com")
	assert.Error(t, err)
	assert.True(t, types.IsConfigError(err))
	// fail fast means no network calls at all
	assert.Equal(t, 0, store.finds+store.creates+store.updates)
}

func TestSubmitEmptyDocumentId(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, settingsWithCount())

	_, err := c.Submit(context.Background(), "", "user@example.com")
	assert.Error(t, err)
	assert.Equal(t, 0, store.finds+store.creates+store.updates)
}

func TestSubmitStoreErrorSurfaces(t *testing.T) {
	store := &fakeStore{failWith: fmt.Errorf("upstream down")}
	c := NewCoordinator(store, settingsWithCount())

	_, err := c.Submit(context.Background(), "doc-1", "user@example.com")
	assert.ErrorContains(t, err, "upstream down")
	assert.Equal(t, StateIdle, c.State())
}

func TestParseCountFallsBackToZero(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{nil, 0},
		{float64(7), 7},
		{3, 3},
		{"12", 12},
		{"not a number", 0},
		{true, 0},
	}
	for _, tc := range cases {
		if got := parseCount(tc.in); got != tc.want {
			t.Errorf("parseCount(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSubmitCorruptCountRestartsAtOne(t *testing.T) {
	store := &fakeStore{}
	c := NewCoordinator(store, settingsWithCount())
	ctx := context.Background()

	_, _ = c.Submit(ctx, "doc-1", "user@example.com")
	store.records[0].Fields["RequestCount"] = "garbage"

	outcome, err := c.Submit(ctx, "doc-1", "user@example.com")
	assert.NoError(t, err)
	// unparsable stored count degrades to 0, the increment lands on 1
	assert.Equal(t, 1, outcome.Count)
}

type recordingSink struct {
	events []RequestEvent
}

func (r *recordingSink) RequestRecorded(ev RequestEvent) {
	r.events = append(r.events, ev)
}

func TestSubmitPublishesEvents(t *testing.T) {
	store := &fakeStore{}
	sink := &recordingSink{}
	c := NewCoordinator(store, settingsWithCount())
	c.Events = Sinks{sink, nil}

	_, _ = c.Submit(context.Background(), "doc-1", "user@example.com")
	_, _ = c.Submit(context.Background(), "doc-1", "user@example.com")

	assert.Equal(t, 2, len(sink.events))
	assert.True(t, sink.events[0].Created)
	assert.False(t, sink.events[1].Created)
	assert.Equal(t, 2, sink.events[1].Count)
}
