package sync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/internal/customers"
	"github.com/receptionly/platform/internal/voice"
)

type fakeFeed struct {
	calls    []voice.Call
	listErr  error
	byID     map[string]*voice.Call
	lastList voice.ListCallsParams
}

func (f *fakeFeed) ListCalls(_ context.Context, p voice.ListCallsParams) ([]voice.Call, error) {
	f.lastList = p
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.calls, nil
}

func (f *fakeFeed) GetCall(_ context.Context, callID string) (*voice.Call, error) {
	if call, ok := f.byID[callID]; ok {
		return call, nil
	}
	return nil, fmt.Errorf("call %s not found", callID)
}

type memoryDedup struct {
	mu  sync.Mutex
	ids map[string]string // call id -> business id
}

func newMemoryDedup() *memoryDedup {
	return &memoryDedup{ids: map[string]string{}}
}

func (d *memoryDedup) MarkSynced(_ context.Context, businessID, callID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.ids[callID]; ok {
		return false, nil
	}
	d.ids[callID] = businessID
	return true, nil
}

func (d *memoryDedup) IDs(_ context.Context) (map[string]struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]struct{}, len(d.ids))
	for id := range d.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (d *memoryDedup) IDsForBusiness(_ context.Context, businessID string) (map[string]struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[string]struct{}{}
	for id, biz := range d.ids {
		if biz == businessID {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type stubDirectory struct {
	dir business.Directory
	err error
}

func (s stubDirectory) Load(context.Context) (business.Directory, error) {
	return s.dir, s.err
}

type memoryLog struct {
	mu   sync.Mutex
	rows []string
}

func (l *memoryLog) LogCall(_ context.Context, businessID, customerID, content string, _ []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, businessID+"/"+customerID+": "+content)
	return nil
}

func (l *memoryLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func newTestService(feed *fakeFeed, dir business.Directory) (*Service, *customers.InMemoryRepository, *memoryLog, *memoryDedup) {
	repo := customers.NewInMemoryRepository()
	log := &memoryLog{}
	dedup := newMemoryDedup()
	svc := NewService(ServiceConfig{
		Feed:      feed,
		Customers: repo,
		Messages:  log,
		Dedup:     dedup,
		Directory: stubDirectory{dir: dir},
	})
	return svc, repo, log, dedup
}

func endedCall(id, agent, from string, fields map[string]string) voice.Call {
	return voice.Call{
		CallID:          id,
		VoiceAgentID:    agent,
		FromNumber:      from,
		CallStatus:      voice.CallStatusEnded,
		Transcript:      "agent: hello",
		ExtractedFields: fields,
	}
}

func TestSyncOrganizationSamCustomerScenario(t *testing.T) {
	// One feed with two routable calls (same caller, twice), one call for
	// a second business, and one unroutable call.
	feed := &fakeFeed{calls: []voice.Call{
		endedCall("call-1", "agent-a", "+15550100", map[string]string{
			"first_name": "Sam", "pet_name": "Rex",
		}),
		endedCall("call-2", "agent-a", "+15550100", map[string]string{
			"last_name": "Customer", "favorite_day": "Friday",
		}),
		endedCall("call-3", "agent-b", "+15550200", nil),
		endedCall("call-4", "agent-unknown", "+15550300", nil),
	}}
	dir := business.Directory{
		"agent-a": {ID: "biz-1", Name: "Bella's Hair"},
		"agent-b": {ID: "biz-2", Name: "ACME Plumbing"},
	}
	svc, repo, log, _ := newTestService(feed, dir)

	result, err := svc.SyncOrganization(context.Background(), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalCalls)
	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 2, result.NewCustomers)
	assert.Equal(t, 1, result.Unroutable)
	assert.Equal(t, 0, result.Duplicates)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "agent-unknown")

	assert.Equal(t, 2, result.Businesses["biz-1"].Synced)
	assert.Equal(t, 1, result.Businesses["biz-1"].NewCustomers)
	assert.Equal(t, "Bella's Hair", result.Businesses["biz-1"].Name)
	assert.Equal(t, 1, result.Businesses["biz-2"].Synced)

	// Both calls from the same number fold into one customer, with the
	// custom fields merged additively.
	sam, err := repo.GetByPhone(context.Background(), "biz-1", "+15550100")
	require.NoError(t, err)
	assert.Equal(t, "Sam", sam.FirstName)
	assert.Equal(t, "Customer", sam.LastName)
	assert.Equal(t, "Rex", sam.CustomFields["pet_name"])
	assert.Equal(t, "Friday", sam.CustomFields["favorite_day"])

	// One inbound message row per synced call, none for the unroutable one.
	assert.Equal(t, 3, log.count())
}

func TestSyncOrganizationRerunIsIdempotent(t *testing.T) {
	feed := &fakeFeed{calls: []voice.Call{
		endedCall("call-1", "agent-a", "+15550100", map[string]string{"first_name": "Sam"}),
	}}
	dir := business.Directory{"agent-a": {ID: "biz-1", Name: "Bella's Hair"}}
	svc, _, log, _ := newTestService(feed, dir)

	first, err := svc.SyncOrganization(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Synced)
	assert.Equal(t, 1, first.NewCustomers)

	second, err := svc.SyncOrganization(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Synced)
	assert.Equal(t, 1, second.Duplicates)
	assert.Equal(t, 0, second.NewCustomers)

	// No second interaction row for the replayed call.
	assert.Equal(t, 1, log.count())
}

func TestSyncOrganizationFeedFailureAborts(t *testing.T) {
	feed := &fakeFeed{listErr: fmt.Errorf("provider unreachable")}
	svc, _, log, _ := newTestService(feed, business.Directory{})

	_, err := svc.SyncOrganization(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unreachable")
	assert.Equal(t, 0, log.count())
}

func TestSyncOrganizationBadCallDoesNotAbortBatch(t *testing.T) {
	feed := &fakeFeed{calls: []voice.Call{
		endedCall("call-1", "agent-a", "", nil), // no caller number
		endedCall("call-2", "agent-a", "+15550100", nil),
	}}
	dir := business.Directory{"agent-a": {ID: "biz-1", Name: "Bella's Hair"}}
	svc, _, _, _ := newTestService(feed, dir)

	result, err := svc.SyncOrganization(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "call-1")
}

func TestSyncOrganizationFetchesAdminScopedFeed(t *testing.T) {
	feed := &fakeFeed{}
	svc, _, _, _ := newTestService(feed, business.Directory{})

	_, err := svc.SyncOrganization(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.True(t, feed.lastList.Admin, "organization run must request the all-agents feed")
	assert.Empty(t, feed.lastList.AgentID)

	_, err = svc.SyncBusiness(context.Background(), "biz-1", "agent-a", time.Time{})
	require.NoError(t, err)
	assert.False(t, feed.lastList.Admin, "per-business run stays agent scoped")
	assert.Equal(t, "agent-a", feed.lastList.AgentID)
}

func TestSyncBusinessSkipsOtherTenantsDuplicatesOnly(t *testing.T) {
	feed := &fakeFeed{calls: []voice.Call{
		endedCall("call-1", "agent-a", "+15550100", nil),
		endedCall("call-2", "agent-a", "+15550101", nil),
	}}
	svc, _, _, dedup := newTestService(feed, business.Directory{})

	// call-1 was already ingested for this business.
	_, err := dedup.MarkSynced(context.Background(), "biz-1", "call-1")
	require.NoError(t, err)

	result, err := svc.SyncBusiness(context.Background(), "biz-1", "agent-a", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Duplicates)
	assert.Empty(t, result.Errors)
}

func TestSyncBusinessIgnoresOngoingCalls(t *testing.T) {
	ongoing := endedCall("call-1", "agent-a", "+15550100", nil)
	ongoing.CallStatus = voice.CallStatusOngoing
	feed := &fakeFeed{calls: []voice.Call{ongoing}}
	svc, _, _, _ := newTestService(feed, business.Directory{})

	result, err := svc.SyncBusiness(context.Background(), "biz-1", "agent-a", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Synced)
}

func TestBackfillTranscripts(t *testing.T) {
	feed := &fakeFeed{byID: map[string]*voice.Call{
		"call-1": {CallID: "call-1", Transcript: "agent: hello again"},
		"call-2": {CallID: "call-2"}, // still not transcribed
	}}
	svc, repo, _, _ := newTestService(feed, business.Directory{})

	_, _, err := repo.Upsert(context.Background(), customers.UpsertParams{
		BusinessID: "biz-1", Phone: "+15550100", CallID: "call-1",
	})
	require.NoError(t, err)
	_, _, err = repo.Upsert(context.Background(), customers.UpsertParams{
		BusinessID: "biz-1", Phone: "+15550200", CallID: "call-2",
	})
	require.NoError(t, err)

	result, err := svc.BackfillTranscripts(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Errors)

	got, err := repo.GetByPhone(context.Background(), "biz-1", "+15550100")
	require.NoError(t, err)
	assert.Equal(t, "agent: hello again", got.Transcript)
}
