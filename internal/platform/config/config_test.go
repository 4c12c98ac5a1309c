// Copyright (c) 2026 Blood Bridge. All rights reserved.

package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbridge/portal/internal/platform/config"
)

/*
TestLoad_Defaults verifies that required variables plus defaults produce a valid config.
*/
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("API_BASE_URL", "http://api.local")
	t.Setenv("IDENTITY_API_KEY", "key")
	t.Setenv("SESSION_STORE", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, config.StoreMemory, cfg.RoleCache)
	assert.Equal(t, 3*time.Second, cfg.GateLoadingTimeout)
	assert.Equal(t, 15*time.Second, cfg.GateSubmitTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.NeedsRedis())
}

/*
TestValidate_BackendRequirements checks the cross-field rules for store selection.
*/
func TestValidate_BackendRequirements(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"memory_only", config.Config{SessionStore: "memory", RoleCache: "memory", GateLoadingTimeout: time.Second}, false},
		{"redis_without_url", config.Config{SessionStore: "redis", RoleCache: "memory", GateLoadingTimeout: time.Second}, true},
		{"redis_cache_without_url", config.Config{SessionStore: "memory", RoleCache: "redis", GateLoadingTimeout: time.Second}, true},
		{"postgres_without_dsn", config.Config{SessionStore: "postgres", RoleCache: "memory", GateLoadingTimeout: time.Second}, true},
		{"postgres_with_dsn", config.Config{SessionStore: "postgres", DatabaseURL: "postgres://x", RoleCache: "memory", GateLoadingTimeout: time.Second}, false},
		{"unknown_store", config.Config{SessionStore: "etcd", RoleCache: "memory", GateLoadingTimeout: time.Second}, true},
		{"zero_loading_timeout", config.Config{SessionStore: "memory", RoleCache: "memory"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
