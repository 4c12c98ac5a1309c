// Copyright (c) 2026 Blood Bridge. All rights reserved.

package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bloodbridge/portal/internal/backend"
	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/validate"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/pkg/pagination"
)

var userStatuses = []string{"active", "blocked"}

type usersData struct {
	Listing  listing[backend.User]
	Roles    []role.Role
	Statuses []string
}

func (handler *Handler) allUsers(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	status := statusFilter(request, userStatuses)
	page, err := client.ListUsers(request.Context(), pagination.FromRequest(request), status)
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "users", View{
		Title: "All users",
		Data: usersData{
			Listing:  listing[backend.User]{Page: page, Base: filteredBase(request, status), Filter: status},
			Roles:    role.All,
			Statuses: userStatuses,
		},
	})
}

// updateUserRole changes another user's role and drops that user's cached
// role so their next gated request sees it.
func (handler *Handler) updateUserRole(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()
	ctx := request.Context()

	if err := request.ParseForm(); err != nil {
		handler.renderer.Error(writer, request, apperr.ValidationError("Malformed form submission"))
		return
	}
	id := chi.URLParam(request, "id")
	value := request.PostForm.Get("role")

	invalid := (&validate.Validator{}).
		Required("id", id).
		OneOf("role", value, role.Names()...).
		Err()
	if invalid != nil {
		handler.renderer.Error(writer, request, invalid)
		return
	}
	next, _ := role.Parse(value)

	// The cache entry to drop belongs to the account the API holds under id;
	// the form only names the user for display.
	target, err := client.User(ctx, id)
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	if err := client.UpdateUserRole(ctx, id, next); err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	if err := handler.roles.Invalidate(ctx, target.Email); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "role_invalidate_failed", slog.String("target", target.Email), slog.Any("error", err))
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_role_changed", slog.String("target", target.Email), slog.String("role", next.String()))
	seeOther(writer, request, returnTo(request))
}

func (handler *Handler) updateUserStatus(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()
	ctx := request.Context()

	if err := request.ParseForm(); err != nil {
		handler.renderer.Error(writer, request, apperr.ValidationError("Malformed form submission"))
		return
	}
	id := chi.URLParam(request, "id")
	status := request.PostForm.Get("status")

	if invalid := (&validate.Validator{}).Required("id", id).OneOf("status", status, userStatuses...).Err(); invalid != nil {
		handler.renderer.Error(writer, request, invalid)
		return
	}

	if err := client.UpdateUserStatus(ctx, id, status); err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_status_changed", slog.String("user_id", id), slog.String("status", status))
	seeOther(writer, request, returnTo(request))
}

// returnTo sends the admin back to the page of the listing they were on.
func returnTo(request *http.Request) string {
	page, err := strconv.Atoi(request.PostForm.Get("page"))
	if err != nil || page < 1 {
		return "/dashboard/all-users"
	}
	return "/dashboard/all-users?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
}
