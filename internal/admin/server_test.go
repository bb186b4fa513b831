// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majordomo/internal/admin"
	"majordomo/internal/mdp"
)

// buildTestServer wires an admin.Server's handlers behind an httptest
// server, fronting a live Broker driven by an in-memory transport.
func buildTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	tr := mdp.NewInmemTransport()
	broker := mdp.NewBroker(tr, mdp.Options{Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Run(ctx)

	pw := admin.NewPasswordService()
	hash, err := pw.HashPassword("test-password")
	require.NoError(t, err)

	srv := admin.NewServer(broker, admin.Config{
		JWTSecret: "test-secret",
		Issuer:    "majordomo-test",
		User:      "operator",
		PassHash:  hash,
	})

	handler := srv.Handler()
	ts := httptest.NewServer(handler)

	return ts, func() {
		ts.Close()
		cancel()
	}
}

func login(t *testing.T, ts *httptest.Server, username, password string) *http.Response {
	t.Helper()
	body := strings.NewReader(`{"username":"` + username + `","password":"` + password + `"}`)
	resp, err := http.Post(ts.URL+"/api/v1/login", "application/json", body)
	require.NoError(t, err)
	return resp
}

func TestLoginSuccessThenStats(t *testing.T) {
	ts, cleanup := buildTestServer(t)
	defer cleanup()

	resp := login(t, ts, "operator", "test-password")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginBody struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginBody))
	assert.NotEmpty(t, loginBody.Token)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+loginBody.Token)

	statsResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer statsResp.Body.Close()
	assert.Equal(t, http.StatusOK, statsResp.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts, cleanup := buildTestServer(t)
	defer cleanup()

	resp := login(t, ts, "operator", "wrong-password")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatsRejectsMissingToken(t *testing.T) {
	ts, cleanup := buildTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestKickUnknownWorkerReturnsNoContent(t *testing.T) {
	ts, cleanup := buildTestServer(t)
	defer cleanup()

	resp := login(t, ts, "operator", "test-password")
	defer resp.Body.Close()
	var loginBody struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginBody))

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/workers/no-such-worker", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+loginBody.Token)

	kickResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer kickResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, kickResp.StatusCode)
}
