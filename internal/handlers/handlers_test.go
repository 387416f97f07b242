package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tangled.org/tanager.social/tanager/internal/auth"
	"tangled.org/tanager.social/tanager/internal/database/sqlitestore"
	"tangled.org/tanager.social/tanager/internal/trust"
)

// testHarness bundles a Handler with the real store behind it.
type testHarness struct {
	handler *Handler
	store   *sqlitestore.Store
	svc     *trust.Service
}

func setupTestHandler(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "tanager-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	svc := trust.NewService(store, store.ContentStore())

	for _, userID := range []string{"admin1", "mod1", "alice", "bob"} {
		require.NoError(t, store.CreateProfile(ctx, userID, userID+".test", time.Now()))
	}
	require.NoError(t, store.GrantRole(ctx, trust.RoleAssignment{
		ID: "r1", UserID: "admin1", RoleType: trust.RoleAdmin, IsActive: true, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.GrantRole(ctx, trust.RoleAssignment{
		ID: "r2", UserID: "mod1", RoleType: trust.RoleModerator, IsActive: true, CreatedAt: time.Now(),
	}))

	return &testHarness{
		handler: NewHandler(svc, store, Config{}),
		store:   store,
		svc:     svc,
	}
}

// doRequest invokes a handler method directly with an authenticated
// principal and optional path values, the way the router would.
func doRequest(t *testing.T, h http.HandlerFunc, method, principal string, body any, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, "/test", &buf)
	if principal != "" {
		r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
	}
	for k, v := range pathValues {
		r.SetPathValue(k, v)
	}

	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleApplySuspension(t *testing.T) {
	h := setupTestHandler(t)
	apply := h.handler.HandleApplySuspension

	t.Run("requires authentication", func(t *testing.T) {
		w := doRequest(t, apply, http.MethodPost, "", trust.SuspensionRequest{TargetUserID: "alice"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects missing target", func(t *testing.T) {
		w := doRequest(t, apply, http.MethodPost, "admin1", trust.SuspensionRequest{Reason: "spam"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("denies actors without a role", func(t *testing.T) {
		w := doRequest(t, apply, http.MethodPost, "bob", trust.SuspensionRequest{
			TargetUserID: "alice", Reason: "spam",
		}, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("denies permanent suspension by moderator", func(t *testing.T) {
		w := doRequest(t, apply, http.MethodPost, "mod1", trust.SuspensionRequest{
			TargetUserID: "alice", Reason: "spam",
		}, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin suspends permanently", func(t *testing.T) {
		w := doRequest(t, apply, http.MethodPost, "admin1", trust.SuspensionRequest{
			TargetUserID: "alice", Reason: "spam",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "suspended", body["status"])
		action := body["action"].(map[string]any)
		assert.Equal(t, "alice", action["target_user_id"])
		assert.Equal(t, string(trust.ActionUserSuspended), action["action_type"])
	})

	t.Run("unknown target is a 404", func(t *testing.T) {
		w := doRequest(t, apply, http.MethodPost, "admin1", trust.SuspensionRequest{
			TargetUserID: "ghost", Reason: "spam",
		}, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleLiftSuspension(t *testing.T) {
	h := setupTestHandler(t)
	lift := h.handler.HandleLiftSuspension

	t.Run("no active suspension is a 404", func(t *testing.T) {
		w := doRequest(t, lift, http.MethodDelete, "admin1",
			map[string]string{"reason": "appeal"}, map[string]string{"userID": "alice"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("lifts an active suspension", func(t *testing.T) {
		_, err := h.svc.ApplySuspension(context.Background(), "admin1", trust.SuspensionRequest{
			TargetUserID: "alice", Reason: "spam",
		})
		require.NoError(t, err)

		w := doRequest(t, lift, http.MethodDelete, "admin1",
			map[string]string{"reason": "appeal accepted"}, map[string]string{"userID": "alice"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "lifted", body["status"])
	})
}

func TestHandleGetRestriction(t *testing.T) {
	h := setupTestHandler(t)
	get := h.handler.HandleGetRestriction

	t.Run("subject reads their own state", func(t *testing.T) {
		w := doRequest(t, get, http.MethodGet, "alice", nil, map[string]string{"userID": "alice"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "unrestricted", decodeBody(t, w)["status"])
	})

	t.Run("non-admin cannot read others", func(t *testing.T) {
		w := doRequest(t, get, http.MethodGet, "bob", nil, map[string]string{"userID": "alice"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin sees the restriction", func(t *testing.T) {
		_, err := h.svc.ApplySuspension(context.Background(), "admin1", trust.SuspensionRequest{
			TargetUserID: "alice", Reason: "spam",
		})
		require.NoError(t, err)

		w := doRequest(t, get, http.MethodGet, "admin1", nil, map[string]string{"userID": "alice"})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "restricted", body["status"])
		restriction := body["restriction"].(map[string]any)
		assert.Equal(t, "spam", restriction["reason"])
	})
}

func TestHandleSubmitReport(t *testing.T) {
	h := setupTestHandler(t)
	submit := h.handler.HandleSubmitReport

	t.Run("accepts a report", func(t *testing.T) {
		w := doRequest(t, submit, http.MethodPost, "alice",
			ReportRequest{ReportType: "post", TargetID: "post-1", Reason: "spam"}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "received", body["status"])
		assert.NotEmpty(t, body["id"])
	})

	t.Run("duplicate is a 409", func(t *testing.T) {
		w := doRequest(t, submit, http.MethodPost, "alice",
			ReportRequest{ReportType: "post", TargetID: "post-1", Reason: "again"}, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("self report is a 400", func(t *testing.T) {
		w := doRequest(t, submit, http.MethodPost, "alice",
			ReportRequest{ReportType: "user", TargetID: "alice"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleDuplicateCheck(t *testing.T) {
	h := setupTestHandler(t)

	check := func(principal, query string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/reports/duplicate-check?"+query, nil)
		r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
		w := httptest.NewRecorder()
		h.handler.HandleDuplicateCheck(w, r)
		return w
	}

	t.Run("requires both parameters", func(t *testing.T) {
		w := check("alice", "report_type=post")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reflects report history", func(t *testing.T) {
		w := check("alice", "report_type=post&target_id=post-9")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["duplicate"])

		_, err := h.svc.SubmitReport(context.Background(), "alice", "post", "post-9", "spam")
		require.NoError(t, err)

		w = check("alice", "report_type=post&target_id=post-9")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["duplicate"])
	})
}

func TestHandleDeleteContent(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	del := h.handler.HandleDeleteContent

	content := h.store.ContentStore()
	require.NoError(t, content.CreateContent(ctx, trust.TargetPost, "post-1", "alice", time.Now()))
	require.NoError(t, content.CreateContent(ctx, trust.TargetPost, "post-2", "alice", time.Now()))

	t.Run("stranger is denied", func(t *testing.T) {
		w := doRequest(t, del, http.MethodPost, "bob",
			deleteContentRequest{ContentType: "post", ContentID: "post-1"}, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("moderator delete records a ledger entry", func(t *testing.T) {
		w := doRequest(t, del, http.MethodPost, "mod1",
			deleteContentRequest{ContentType: "post", ContentID: "post-1", Reason: "offensive"}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "deleted", body["status"])
		actionID := body["action_id"].(string)
		require.NotEmpty(t, actionID)

		action, err := h.store.GetAction(ctx, actionID)
		require.NoError(t, err)
		require.NotNil(t, action)
		assert.Equal(t, trust.ActionContentRemoved, action.ActionType)
		assert.Equal(t, "offensive", action.Reason)
	})

	t.Run("owner deletes their own content", func(t *testing.T) {
		w := doRequest(t, del, http.MethodPost, "alice",
			deleteContentRequest{ContentType: "post", ContentID: "post-2"}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing content is a 404", func(t *testing.T) {
		w := doRequest(t, del, http.MethodPost, "mod1",
			deleteContentRequest{ContentType: "post", ContentID: "post-1"}, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleLinkReversal(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	link := h.handler.HandleLinkReversal

	for _, id := range []string{"n1", "n2"} {
		require.NoError(t, h.store.CreateNotification(ctx, trust.Notification{
			ID: id, RecipientID: "alice", Type: trust.NotificationModeration, CreatedAt: time.Now(),
		}))
	}

	t.Run("requires both ids", func(t *testing.T) {
		w := doRequest(t, link, http.MethodPost, "admin1",
			linkReversalRequest{ReversalID: "n2"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("links the reversal", func(t *testing.T) {
		w := doRequest(t, link, http.MethodPost, "admin1",
			linkReversalRequest{ReversalID: "n2", OriginalID: "n1"}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		n, err := h.store.GetNotification(ctx, "n2")
		require.NoError(t, err)
		assert.Equal(t, "n1", n.RelatedNotificationID)
	})

	t.Run("self link is a 400", func(t *testing.T) {
		w := doRequest(t, link, http.MethodPost, "admin1",
			linkReversalRequest{ReversalID: "n1", OriginalID: "n1"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleAuditLog(t *testing.T) {
	h := setupTestHandler(t)

	_, err := h.svc.ApplySuspension(context.Background(), "admin1", trust.SuspensionRequest{
		TargetUserID: "alice", Reason: "spam",
	})
	require.NoError(t, err)

	t.Run("moderator is denied", func(t *testing.T) {
		w := doRequest(t, h.handler.HandleAuditLog, http.MethodGet, "mod1", nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin reads entries", func(t *testing.T) {
		w := doRequest(t, h.handler.HandleAuditLog, http.MethodGet, "admin1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		entries := body["entries"].([]any)
		require.Len(t, entries, 1)
	})

	t.Run("user actions are admin only", func(t *testing.T) {
		w := doRequest(t, h.handler.HandleUserActions, http.MethodGet, "mod1", nil,
			map[string]string{"userID": "alice"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = doRequest(t, h.handler.HandleUserActions, http.MethodGet, "admin1", nil,
			map[string]string{"userID": "alice"})
		require.Equal(t, http.StatusOK, w.Code)

		actions := decodeBody(t, w)["actions"].([]any)
		require.Len(t, actions, 1)
	})
}

func TestHandleAdminOverview(t *testing.T) {
	h := setupTestHandler(t)

	t.Run("non-admin is denied", func(t *testing.T) {
		w := doRequest(t, h.handler.HandleAdminOverview, http.MethodGet, "mod1", nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin sees live counts", func(t *testing.T) {
		_, err := h.svc.ApplySuspension(context.Background(), "admin1", trust.SuspensionRequest{
			TargetUserID: "alice", Reason: "spam",
		})
		require.NoError(t, err)
		_, err = h.svc.SubmitReport(context.Background(), "bob", "post", "post-1", "spam")
		require.NoError(t, err)

		w := doRequest(t, h.handler.HandleAdminOverview, http.MethodGet, "admin1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["active_restrictions"])
		assert.Equal(t, float64(1), body["actions_last_24h"])
		assert.Equal(t, float64(1), body["reports_last_24h"])
	})
}

func TestHandleRoleCheck(t *testing.T) {
	h := setupTestHandler(t)

	t.Run("requires authentication", func(t *testing.T) {
		w := doRequest(t, h.handler.HandleRoleCheck, http.MethodGet, "", nil,
			map[string]string{"userID": "mod1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	tests := []struct {
		userID      string
		isAdmin     bool
		isModerator bool
	}{
		{"admin1", true, true},
		{"mod1", false, true},
		{"alice", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			w := doRequest(t, h.handler.HandleRoleCheck, http.MethodGet, "alice", nil,
				map[string]string{"userID": tt.userID})
			require.Equal(t, http.StatusOK, w.Code)

			body := decodeBody(t, w)
			assert.Equal(t, tt.isAdmin, body["is_admin"])
			assert.Equal(t, tt.isModerator, body["is_moderator"])
		})
	}
}
