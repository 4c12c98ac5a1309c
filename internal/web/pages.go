// Copyright (c) 2026 Blood Bridge. All rights reserved.

package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bloodbridge/portal/internal/backend"
	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/validate"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/internal/session"
	"github.com/bloodbridge/portal/pkg/pagination"
)

// # Public Pages

func (handler *Handler) home(writer http.ResponseWriter, request *http.Request) {
	requests, err := handler.public().PublicDonationRequests(request.Context())
	if err != nil {
		// The landing page still renders without the teaser list.
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "home_requests_unavailable", slog.Any("error", err))
	}
	if len(requests) > 3 {
		requests = requests[:3]
	}
	handler.renderer.Render(writer, request, http.StatusOK, "home", View{Title: "Blood Bridge", Data: requests})
}

func (handler *Handler) blog(writer http.ResponseWriter, request *http.Request) {
	blogs, err := handler.public().Blogs(request.Context(), "published")
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "blog", View{Title: "Blog", Data: blogs})
}

func (handler *Handler) publicDonationRequests(writer http.ResponseWriter, request *http.Request) {
	requests, err := handler.public().PublicDonationRequests(request.Context())
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "donation_requests", View{Title: "Donation requests", Data: requests})
}

type donorSearch struct {
	BloodGroups []string
	BloodGroup  string
	District    string
	Upazila     string
	Searched    bool
	Donors      []backend.User
}

func (handler *Handler) donorSearch(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	search := donorSearch{
		BloodGroups: validate.BloodGroups,
		BloodGroup:  query.Get("bloodGroup"),
		District:    strings.TrimSpace(query.Get("district")),
		Upazila:     strings.TrimSpace(query.Get("upazila")),
	}
	view := View{Title: "Search donors", Data: &search}

	if search.BloodGroup == "" && search.District == "" && search.Upazila == "" {
		handler.renderer.Render(writer, request, http.StatusOK, "donor_search", view)
		return
	}

	if err := (&validate.Validator{}).BloodGroup("bloodGroup", search.BloodGroup).MaxLen("district", search.District, 64).MaxLen("upazila", search.Upazila, 64).Err(); err != nil {
		view.Error = apperr.As(err)
		handler.renderer.Render(writer, request, http.StatusBadRequest, "donor_search", view)
		return
	}

	donors, err := handler.public().SearchDonors(request.Context(), search.BloodGroup, search.District, search.Upazila)
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	search.Searched = true
	search.Donors = donors
	handler.renderer.Render(writer, request, http.StatusOK, "donor_search", view)
}

// # Signed-in Pages

type dashboardData struct {
	Role   role.Role
	Stats  *backend.Stats
	Recent []backend.DonationRequest
}

// dashboard adapts to the role, which the private gate does not look up, so
// it resolves it here. An unknown role shows the plain welcome.
func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()
	ctx := request.Context()

	sess, _ := session.FromContext(ctx)
	current, err := handler.roles.Resolve(ctx, sess.Email())
	if session.Handled(err) {
		return
	}
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "dashboard_role_unavailable", slog.Any("error", err))
		current = role.None
	}

	data := dashboardData{Role: current}
	switch current {
	case role.Admin, role.Volunteer:
		data.Stats, err = client.DashboardStats(ctx)
	case role.Donor:
		var page backend.Page[backend.DonationRequest]
		page, err = client.ListDonationRequests(ctx, pagination.Params{Page: 1, Limit: 3}, backend.DonationFilter{RequesterEmail: sess.Email()})
		data.Recent = page.Items
	}
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}

	handler.renderer.Render(writer, request, http.StatusOK, "dashboard", View{Title: "Dashboard", Role: current, Data: data})
}

func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	sess, _ := session.FromContext(request.Context())
	user, err := client.Profile(request.Context(), sess.Email())
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "profile", View{Title: "My profile", Data: user})
}

type listing[T any] struct {
	Page   backend.Page[T]
	Base   string
	Filter string
}

func (handler *Handler) funding(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	page, err := client.ListFunding(request.Context(), pagination.FromRequest(request))
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "funding", View{
		Title: "Funding",
		Data:  listing[backend.Funding]{Page: page, Base: request.URL.Path},
	})
}

func (handler *Handler) donationRequest(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	found, err := client.DonationRequest(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "donation_request", View{Title: "Donation request", Data: found})
}

// # Role-gated Pages

var donationStatuses = []string{"pending", "inprogress", "done", "canceled"}

func (handler *Handler) myDonationRequests(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	sess, _ := session.FromContext(request.Context())
	filter := backend.DonationFilter{
		Status:         statusFilter(request, donationStatuses),
		RequesterEmail: sess.Email(),
	}
	page, err := client.ListDonationRequests(request.Context(), pagination.FromRequest(request), filter)
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "requests", View{
		Title: "My donation requests",
		Data:  listing[backend.DonationRequest]{Page: page, Base: filteredBase(request, filter.Status), Filter: filter.Status},
	})
}

func (handler *Handler) allDonationRequests(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	filter := backend.DonationFilter{Status: statusFilter(request, donationStatuses)}
	page, err := client.ListDonationRequests(request.Context(), pagination.FromRequest(request), filter)
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "requests", View{
		Title: "All blood donation requests",
		Data:  listing[backend.DonationRequest]{Page: page, Base: filteredBase(request, filter.Status), Filter: filter.Status},
	})
}

type contentData struct {
	Blogs  []backend.Blog
	Filter string
}

func (handler *Handler) contentManagement(writer http.ResponseWriter, request *http.Request) {
	client, request, release := handler.secure(writer, request)
	defer release()

	status := statusFilter(request, []string{"draft", "published"})
	blogs, err := client.Blogs(request.Context(), status)
	if err != nil {
		handler.renderer.Error(writer, request, err)
		return
	}
	handler.renderer.Render(writer, request, http.StatusOK, "content", View{
		Title: "Content management",
		Data:  contentData{Blogs: blogs, Filter: status},
	})
}

// # Helpers

// statusFilter returns the "status" query value when it is one of allowed.
func statusFilter(request *http.Request, allowed []string) string {
	status := request.URL.Query().Get("status")
	if (&validate.Validator{}).OneOf("status", status, allowed...).HasErrors() {
		return ""
	}
	return status
}

func filteredBase(request *http.Request, status string) string {
	if status == "" {
		return request.URL.Path
	}
	return request.URL.Path + "?" + url.Values{"status": {status}}.Encode()
}
