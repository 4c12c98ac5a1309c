// Copyright (c) 2026 Blood Bridge. All rights reserved.

package pagination_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bloodbridge/portal/pkg/pagination"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  pagination.Params
	}{
		{"", pagination.Params{Page: 1, Limit: 10}},
		{"page=3&limit=25", pagination.Params{Page: 3, Limit: 25}},
		{"page=-2&limit=1000", pagination.Params{Page: 1, Limit: 10}},
		{"page=abc", pagination.Params{Page: 1, Limit: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/dashboard/all-users?"+tt.query, nil)
			assert.Equal(t, tt.want, pagination.FromRequest(request))
		})
	}
}

func TestParams_APIQuery(t *testing.T) {
	assert.Equal(t, "page=0&size=10", pagination.Params{Page: 1, Limit: 10}.APIQuery().Encode())
	assert.Equal(t, "page=2&size=5", pagination.Params{Page: 3, Limit: 5}.APIQuery().Encode())
	assert.Equal(t, 10, pagination.Params{Page: 3, Limit: 5}.Offset())
}

func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 10, 35)

	assert.Equal(t, 4, meta.TotalPages)
	assert.True(t, meta.HasPrev())
	assert.True(t, meta.HasNext())
	assert.False(t, pagination.NewMeta(4, 10, 35).HasNext())
}
