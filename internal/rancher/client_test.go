package rancher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	uperrors "github.com/systmms/upshift/internal/errors"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		Endpoint:  endpoint,
		AccessKey: "access-key",
		SecretKey: "secret-key",
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{AccessKey: "a", SecretKey: "s"})
	require.Error(t, err)

	var cfgErr uperrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "endpoint", cfgErr.Field)
}

func TestNewClient_RequiresKeyPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       ClientConfig
		wantField string
	}{
		{
			name:      "missing access key",
			cfg:       ClientConfig{Endpoint: "http://cattle.local", SecretKey: "s"},
			wantField: "accessKey",
		},
		{
			name:      "missing secret key",
			cfg:       ClientConfig{Endpoint: "http://cattle.local", AccessKey: "a"},
			wantField: "secretKey",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewClient(tt.cfg)
			require.Error(t, err)

			var cfgErr uperrors.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestFindService(t *testing.T) {
	var gotQuery string
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("name")
		gotUser, gotPass, _ = r.BasicAuth()

		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/services", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id":    "1s1",
					"name":  "web",
					"state": "active",
					"launchConfig": map[string]interface{}{
						"imageUuid": "docker:org/app:v1",
					},
					"actions": map[string]string{
						"upgrade": "http://example/upgrade",
					},
				},
				{"id": "1s2", "name": "web", "state": "removed"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	svc, err := client.FindService(context.Background(), "web")
	require.NoError(t, err)

	assert.Equal(t, "web", gotQuery)
	assert.Equal(t, "access-key", gotUser)
	assert.Equal(t, "secret-key", gotPass)

	// First match wins on ambiguous names
	assert.Equal(t, "1s1", svc.ID)
	assert.Equal(t, StateActive, svc.State)
	assert.True(t, svc.HasAction(ActionUpgrade))
}

func TestFindService_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FindService(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, uperrors.IsNotFound(err))
}

func TestFindService_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FindService(context.Background(), "web")
	require.Error(t, err)
	assert.True(t, uperrors.IsTransport(err))

	var te *uperrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Contains(t, te.Message, "internal failure")
}

func TestUpgradeService(t *testing.T) {
	var gotBody upgradeBody
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(Service{Name: "web", State: StateUpgrading})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	// Action URLs are absolute and bypass the base endpoint
	svc := &Service{
		Name:  "web",
		State: StateActive,
		Actions: map[string]string{
			ActionUpgrade: server.URL + "/v1/services/1s1/?action=upgrade",
		},
	}

	strategy := InServiceStrategy{
		BatchSize:      2,
		IntervalMillis: 10000,
		StartFirst:     true,
		LaunchConfig: map[string]interface{}{
			"imageUuid": "docker:org/app:v2",
		},
	}

	updated, err := client.UpgradeService(context.Background(), svc, strategy)
	require.NoError(t, err)

	assert.Equal(t, "/v1/services/1s1/", gotPath)
	assert.Equal(t, StateUpgrading, updated.State)
	assert.Equal(t, int64(2), gotBody.InServiceStrategy.BatchSize)
	assert.Equal(t, int64(10000), gotBody.InServiceStrategy.IntervalMillis)
	assert.True(t, gotBody.InServiceStrategy.StartFirst)
	assert.Equal(t, "docker:org/app:v2", gotBody.InServiceStrategy.LaunchConfig["imageUuid"])
}

func TestUpgradeService_NoAction(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://unused.invalid")

	svc := &Service{Name: "web", State: "removed"}
	_, err := client.UpgradeService(context.Background(), svc, InServiceStrategy{})
	require.Error(t, err)
	assert.True(t, uperrors.IsPrecondition(err))
}

func TestFinishUpgrade(t *testing.T) {
	var gotLen int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLen = r.ContentLength
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	svc := &Service{
		Name:  "web",
		State: StateUpgraded,
		Actions: map[string]string{
			ActionFinishUpgrade: server.URL + "/v1/services/1s1/?action=finishupgrade",
		},
	}

	require.NoError(t, client.FinishUpgrade(context.Background(), svc))
	assert.LessOrEqual(t, gotLen, int64(0), "finishupgrade should carry no body")
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type":"apiRoot"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	assert.NoError(t, client.Ping(context.Background()))
}
