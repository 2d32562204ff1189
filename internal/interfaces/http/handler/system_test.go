package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/livrocaixa/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandlerGetSystemInfo(t *testing.T) {
	h := NewSystemHandler(nil)
	tc := testutil.NewTestContext(t)

	h.GetSystemInfo(tc.Context)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())

	var resp struct {
		Success bool               `json:"success"`
		Data    SystemInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "livrocaixa", resp.Data.Name)
	assert.NotEmpty(t, resp.Data.GoVersion)

	_, err := time.ParseDuration(resp.Data.Uptime)
	assert.NoError(t, err, "uptime should be a parseable duration")
}

func TestSystemHandlerHealthWithoutDatabase(t *testing.T) {
	// A handler constructed without a database reports liveness only
	h := NewSystemHandler(nil)
	tc := testutil.NewTestContext(t)

	h.Health(tc.Context)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())

	var resp struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &resp))
	assert.Equal(t, "ok", resp.Data.Status)
}

func TestSystemHandlerReadyMirrorsHealth(t *testing.T) {
	h := NewSystemHandler(nil)
	tc := testutil.NewTestContext(t)

	h.Ready(tc.Context)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())
}
