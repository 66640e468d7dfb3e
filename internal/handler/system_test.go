package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whynot-innovations/portal/internal/config"
	"github.com/whynot-innovations/portal/internal/credential"
)

func newSystemHandler(env map[string]string, development, debugEnv bool) *SystemHandler {
	cfg := &config.Config{
		Env:            "production",
		EnableDebugEnv: debugEnv,
		Public: config.PublicProviderConfig{
			APIKey:    env[config.PublicAPIKeyEnv],
			ProjectID: env[config.PublicProjectIDEnv],
		},
	}
	if development {
		cfg.Env = "development"
	}
	h := NewSystemHandler(cfg, testLogger())
	h.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestPublicConfig(t *testing.T) {
	h := newSystemHandler(map[string]string{
		config.PublicAPIKeyEnv:    "AIzaKey",
		config.PublicProjectIDEnv: "whynot-prod",
	}, false, false)

	rr := serve(t, http.HandlerFunc(h.HandlePublicConfig), http.MethodGet, "/api/config/public", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[config.PublicProviderConfig](t, rr)
	assert.Equal(t, "AIzaKey", got.APIKey)
	assert.Equal(t, "whynot-prod", got.ProjectID)
}

func TestPublicConfig_MissingIsConfigurationError(t *testing.T) {
	h := newSystemHandler(map[string]string{config.PublicAPIKeyEnv: "AIzaKey"}, false, false)

	rr := serve(t, http.HandlerFunc(h.HandlePublicConfig), http.MethodGet, "/api/config/public", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "configuration_error")
	assert.Contains(t, rr.Body.String(), config.PublicProjectIDEnv)
}

func TestDebugEnv_DisabledInProduction(t *testing.T) {
	h := newSystemHandler(nil, false, false)

	rr := serve(t, http.HandlerFunc(h.HandleDebugEnv), http.MethodGet, "/api/debug/env", "", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDebugEnv_ReportsWithoutValues(t *testing.T) {
	secret := `{"type":"service_account","private_key":"-----BEGIN-----"}`
	h := newSystemHandler(map[string]string{
		config.PublicAPIKeyEnv:    "AIzaSyAbcdefgh1234",
		config.PublicProjectIDEnv: "short",
		credential.EnvVar:         secret,
	}, false, true)

	rr := serve(t, http.HandlerFunc(h.HandleDebugEnv), http.MethodGet, "/api/debug/env", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "private_key")

	report := decode[envReport](t, rr)
	assert.Equal(t, "production", report.Environment)
	assert.Equal(t, len(config.DiagnosedVars), report.Summary.Total)
	assert.Equal(t, 3, report.Summary.Set)
	assert.Equal(t, len(config.DiagnosedVars)-3, report.Summary.Missing)
	assert.NotContains(t, report.Summary.MissingNames, config.PublicAPIKeyEnv)
	assert.Contains(t, report.Summary.MissingNames, config.PublicAppIDEnv)

	byName := map[string]envVariable{}
	for _, v := range report.Variables {
		byName[v.Name] = v
	}
	assert.Equal(t, "AIza...1234", byName[config.PublicAPIKeyEnv].Preview)
	assert.Equal(t, 18, byName[config.PublicAPIKeyEnv].Length)
	assert.Empty(t, byName[config.PublicProjectIDEnv].Preview, "short values get no preview")
	assert.False(t, byName[config.PublicAppIDEnv].IsSet)
}

func TestDebugEnv_EnabledInDevelopment(t *testing.T) {
	h := newSystemHandler(nil, true, false)

	rr := serve(t, http.HandlerFunc(h.HandleDebugEnv), http.MethodGet, "/api/debug/env", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
