// Copyright (c) 2026 Blood Bridge. All rights reserved.

package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/pkg/pagination"
)

// # Resources

// User is a registered member of the platform.
type User struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar,omitempty"`
	BloodGroup string `json:"bloodGroup,omitempty"`
	District   string `json:"district,omitempty"`
	Upazila    string `json:"upazila,omitempty"`
	Role       string `json:"role,omitempty"`
	Status     string `json:"status,omitempty"`
}

// DonationRequest is a request for blood posted by a donor.
type DonationRequest struct {
	ID                string `json:"_id"`
	RequesterName     string `json:"requesterName,omitempty"`
	RequesterEmail    string `json:"requesterEmail,omitempty"`
	RecipientName     string `json:"recipientName"`
	RecipientDistrict string `json:"recipientDistrict,omitempty"`
	RecipientUpazila  string `json:"recipientUpazila,omitempty"`
	Hospital          string `json:"hospitalName,omitempty"`
	Address           string `json:"fullAddress,omitempty"`
	BloodGroup        string `json:"bloodGroup"`
	DonationDate      string `json:"donationDate,omitempty"`
	DonationTime      string `json:"donationTime,omitempty"`
	Message           string `json:"requestMessage,omitempty"`
	Status            string `json:"status,omitempty"`
}

// Funding is one contribution to the organisation.
type Funding struct {
	ID       string  `json:"_id"`
	UserName string  `json:"userName"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

// Blog is a content-managed article.
type Blog struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Content   string `json:"content"`
	Status    string `json:"status,omitempty"`
}

// Stats feeds the admin and volunteer dashboard cards.
type Stats struct {
	TotalDonors   int     `json:"totalDonors"`
	TotalRequests int     `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T
	Meta  pagination.Meta
}

func newPage[T any](items []T, total int64, params pagination.Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: pagination.NewMeta(params.Page, params.Limit, int(total))}
}

// # Users

// UserRole returns the role assigned to email. A missing user or an empty
// role is [role.None], not an error.
func (c *Client) UserRole(ctx context.Context, email string) (role.Role, error) {
	var payload struct {
		Role string `json:"role"`
	}
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email)+"/role", nil, nil, &payload)
	if IsNotFound(err) {
		return role.None, nil
	}
	if err != nil {
		return role.None, err
	}
	if payload.Role == "" {
		return role.None, nil
	}
	return role.Parse(payload.Role)
}

// Profile returns the user record for email.
func (c *Client) Profile(ctx context.Context, email string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// User returns the user record with id.
func (c *Client) User(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/id/"+url.PathEscape(id), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers pages through every user, optionally filtered by status.
func (c *Client) ListUsers(ctx context.Context, params pagination.Params, status string) (Page[User], error) {
	query := params.APIQuery()
	if status != "" {
		query.Set("status", status)
	}

	var payload struct {
		Users []User `json:"users"`
		Total int64  `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/all-users", query, nil, &payload); err != nil {
		return Page[User]{}, err
	}
	return newPage(payload.Users, payload.Total, params), nil
}

// UpdateUserRole assigns r to the user with id.
func (c *Client) UpdateUserRole(ctx context.Context, id string, r role.Role) error {
	body := map[string]string{"role": string(r)}
	return c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/role", nil, body, nil)
}

// UpdateUserStatus blocks or unblocks the user with id.
func (c *Client) UpdateUserStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/status", nil, body, nil)
}

// RecordSignIn stamps the last sign-in time on the user record.
func (c *Client) RecordSignIn(ctx context.Context, email string, at time.Time) error {
	body := map[string]string{
		"email":          email,
		"lastSignInTime": at.UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPatch, "/users", nil, body, nil)
}

// # Donation Requests

// DonationFilter narrows a donation request listing.
type DonationFilter struct {
	Status string

	// RequesterEmail limits the listing to one donor's requests.
	RequesterEmail string
}

// ListDonationRequests pages through donation requests.
func (c *Client) ListDonationRequests(ctx context.Context, params pagination.Params, filter DonationFilter) (Page[DonationRequest], error) {
	query := params.APIQuery()
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.RequesterEmail != "" {
		query.Set("email", filter.RequesterEmail)
	}

	var payload struct {
		Data  []DonationRequest `json:"data"`
		Total int64             `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/donation-requests", query, nil, &payload); err != nil {
		return Page[DonationRequest]{}, err
	}
	return newPage(payload.Data, payload.Total, params), nil
}

// DonationRequest returns one donation request.
func (c *Client) DonationRequest(ctx context.Context, id string) (*DonationRequest, error) {
	var request DonationRequest
	if err := c.do(ctx, http.MethodGet, "/donation-requests/"+url.PathEscape(id), nil, nil, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// PublicDonationRequests lists the pending requests shown to visitors.
func (c *Client) PublicDonationRequests(ctx context.Context) ([]DonationRequest, error) {
	var requests []DonationRequest
	if err := c.do(ctx, http.MethodGet, "/public-donation-requests", nil, nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// # Dashboard

// DashboardStats returns the totals shown on the staff dashboard.
func (c *Client) DashboardStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/dashboard-stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListFunding pages through recorded contributions.
func (c *Client) ListFunding(ctx context.Context, params pagination.Params) (Page[Funding], error) {
	var payload struct {
		Data  []Funding `json:"data"`
		Total int64     `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/funding", params.APIQuery(), nil, &payload); err != nil {
		return Page[Funding]{}, err
	}
	return newPage(payload.Data, payload.Total, params), nil
}

// # Content

// Blogs lists blogs with status ("draft" or "published"); empty lists all.
func (c *Client) Blogs(ctx context.Context, status string) ([]Blog, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}

	var blogs []Blog
	if err := c.do(ctx, http.MethodGet, "/blogs", query, nil, &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

// SearchDonors finds active donors by blood group and location.
func (c *Client) SearchDonors(ctx context.Context, bloodGroup, district, upazila string) ([]User, error) {
	query := url.Values{}
	for key, value := range map[string]string{"bloodGroup": bloodGroup, "district": district, "upazila": upazila} {
		if value != "" {
			query.Set(key, value)
		}
	}

	var donors []User
	if err := c.do(ctx, http.MethodGet, "/donors", query, nil, &donors); err != nil {
		return nil, err
	}
	return donors, nil
}
