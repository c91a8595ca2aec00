package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
	"github.com/lodestone-app/lodestone/internal/store/memory"
)

func newTestServer(t *testing.T) (store.Store, *httptest.Server) {
	t.Helper()
	s := memory.New()
	srv := httptest.NewServer(NewRouter(s, time.UTC, zerolog.Nop(), nil))
	t.Cleanup(srv.Close)
	return s, srv
}

func seedPlanningDay(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	due := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{{
		ItemID: "item-1", Kind: model.KindTask, OwnerID: "alice",
		Title: "Write report", EstimatedMinutes: 60, Priority: 1,
		NextDue: &due, CreationTime: due, UpdateTime: due,
	}}))
	require.NoError(t, s.Blocks().Upsert(ctx, []model.Block{{
		BlockID: "blk-1", OwnerID: "alice",
		Start:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC),
		Persona: model.PersonaWork,
	}}))
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestCreateAndGetPlan(t *testing.T) {
	s, srv := newTestServer(t)
	seedPlanningDay(t, s)

	resp, err := http.Post(srv.URL+"/v1/owners/alice/plans/2025-06-02", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		PlanID  string `json:"planId"`
		Planned int    `json:"planned"`
		Written int    `json:"written"`
	}
	decodeBody(t, resp, &created)
	assert.Equal(t, "alice_2025-06-02", created.PlanID)
	assert.Equal(t, 1, created.Planned)
	assert.Equal(t, 1, created.Written)

	resp, err = http.Get(srv.URL + "/v1/owners/alice/plans/2025-06-02")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched struct {
		PlanID      string                  `json:"planId"`
		Assignments []*model.PlanAssignment `json:"assignments"`
	}
	decodeBody(t, resp, &fetched)
	require.Len(t, fetched.Assignments, 1)
	assert.Equal(t, "item-1", fetched.Assignments[0].ItemID)
	assert.Equal(t, model.AssignmentPlanned, fetched.Assignments[0].Status)
}

func TestCreatePlanRejectsBadInput(t *testing.T) {
	_, srv := newTestServer(t)

	// malformed day never matches the route
	resp, err := http.Post(srv.URL+"/v1/owners/alice/plans/june-2nd", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// owner with forbidden characters
	resp, err = http.Post(srv.URL+"/v1/owners/BAD!OWNER/plans/2025-06-02", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReconcileEndpointRemovesOrphans(t *testing.T) {
	s, srv := newTestServer(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{{
		ItemID: "item-1", Kind: model.KindTask, OwnerID: "alice",
		Title: "Live", Status: "todo", CreationTime: now, UpdateTime: now,
	}}))
	require.NoError(t, s.Index().Upsert(ctx, []*model.IndexEntry{{
		ItemID: "ghost", OwnerUID: "alice", Kind: model.KindTask, Title: "Gone",
		LastActivity: now, UpdatedAt: now,
	}}))

	resp, err := http.Post(srv.URL+"/v1/owners/alice/reconcile", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep struct {
		OrphansRemoved   int `json:"orphansRemoved"`
		FieldsBackfilled int `json:"fieldsBackfilled"`
	}
	decodeBody(t, resp, &rep)
	assert.Equal(t, 1, rep.OrphansRemoved)
	assert.Equal(t, 1, rep.FieldsBackfilled)
}

func TestAuditUnownedEndpoint(t *testing.T) {
	s, srv := newTestServer(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{{
		ItemID: "stray", Kind: model.KindChore, Title: "No owner",
		CreationTime: now, UpdateTime: now,
	}}))

	resp, err := http.Get(srv.URL + "/v1/audit/unowned")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &rep)
	assert.Equal(t, 1, rep.Count)
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}
