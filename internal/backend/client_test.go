// Copyright (c) 2026 Blood Bridge. All rights reserved.

package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/backend"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/pkg/pagination"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := backend.New(server.URL+"/", server.Client().Transport)
	require.NoError(t, err)
	return client
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		_, err := backend.New(raw, nil)
		assert.Error(t, err, raw)
	}
}

func TestClient_UserRole(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    role.Role
		wantErr bool
	}{
		{name: "assigned", status: http.StatusOK, body: `{"role":"volunteer"}`, want: role.Volunteer},
		{name: "empty_role", status: http.StatusOK, body: `{"role":""}`, want: role.None},
		{name: "unknown_user", status: http.StatusNotFound, body: `{"message":"user not found"}`, want: role.None},
		{name: "unknown_role", status: http.StatusOK, body: `{"role":"superuser"}`, wantErr: true},
		{name: "server_error", status: http.StatusInternalServerError, body: `{"message":"boom"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/users/donor@example.com/role", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.UserRole(context.Background(), "donor@example.com")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_StatusError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"already blocked"}`))
	})

	err := client.UpdateUserStatus(context.Background(), "u1", "blocked")

	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Equal(t, "already blocked", statusErr.Message)
	assert.Equal(t, http.MethodPatch, statusErr.Method)
	assert.False(t, backend.IsNotFound(err))
}

func TestClient_ListUsers(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/all-users", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		assert.Equal(t, "blocked", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"users":[{"_id":"u1","name":"A","email":"a@x.com","status":"blocked"}],"total":11}`))
	})

	page, err := client.ListUsers(context.Background(), pagination.Params{Page: 2, Limit: 10}, "blocked")
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1", page.Items[0].ID)
	assert.Equal(t, 2, page.Meta.TotalPages)
	assert.True(t, page.Meta.HasPrev())
	assert.False(t, page.Meta.HasNext())
}

func TestClient_ListDonationRequestsEmpty(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "me@x.com", r.URL.Query().Get("email"))
		_, _ = w.Write([]byte(`{"data":null,"total":0}`))
	})

	page, err := client.ListDonationRequests(context.Background(), pagination.Params{Page: 1, Limit: 10}, backend.DonationFilter{RequesterEmail: "me@x.com"})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestClient_RecordSignIn(t *testing.T) {
	var body map[string]string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, client.RecordSignIn(context.Background(), "a@x.com", at))

	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "2026-03-01T10:00:00Z", body["lastSignInTime"])
}

func TestClient_User(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/id/u1", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"u1","email":"rahim@example.com","role":"donor"}`))
	})

	user, err := client.User(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "rahim@example.com", user.Email)
}

func TestClient_UpdateUserRole(t *testing.T) {
	var body map[string]string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1/role", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"modifiedCount":1}`))
	})

	require.NoError(t, client.UpdateUserRole(context.Background(), "u1", role.Volunteer))
	assert.Equal(t, "volunteer", body["role"])
}
