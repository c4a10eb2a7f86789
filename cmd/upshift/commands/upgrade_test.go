package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/upshift/internal/config"
	"github.com/systmms/upshift/internal/logging"
)

// fakeControlPlaneServer scripts a control plane: successive service fetches
// walk the state sequence, action posts are recorded.
type fakeControlPlaneServer struct {
	mu           sync.Mutex
	states       []string
	fetches      int
	upgradePosts int
	finishPosts  int
	lastStrategy map[string]interface{}

	server *httptest.Server
}

func newFakeControlPlaneServer(t *testing.T, states []string) *fakeControlPlaneServer {
	t.Helper()

	f := &fakeControlPlaneServer{states: states}

	mux := http.NewServeMux()
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		idx := f.fetches
		if idx >= len(f.states) {
			idx = len(f.states) - 1
		}
		f.fetches++
		state := f.states[idx]
		f.mu.Unlock()

		if r.URL.Query().Get("name") != "web" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id":    "1s1",
					"name":  "web",
					"state": state,
					"launchConfig": map[string]interface{}{
						"imageUuid":   "docker:org/app:v1",
						"environment": map[string]string{"A": "1"},
					},
					"actions": map[string]string{
						"upgrade":       f.server.URL + "/services/1s1/?action=upgrade",
						"finishupgrade": f.server.URL + "/services/1s1/?action=finishupgrade",
					},
				},
			},
		})
	})
	mux.HandleFunc("/services/1s1/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.URL.Query().Get("action") {
		case "upgrade":
			f.upgradePosts++
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if strategy, ok := body["inServiceStrategy"].(map[string]interface{}); ok {
				f.lastStrategy = strategy
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"name": "web", "state": "upgrading"})
		case "finishupgrade":
			f.finishPosts++
			fmt.Fprint(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writeTestConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()

	content := fmt.Sprintf(`
endpoint: %s
accessKey: test-access
secretKey: test-secret
timeouts:
  statusCheckFrequencyMs: 10
  serviceUpgradedTimeoutMs: 5000
  serviceActiveTimeoutMs: 5000
`, endpoint)

	path := filepath.Join(t.TempDir(), "upshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return &config.Config{Path: path, Logger: logging.New(false, true)}
}

func TestUpgradeCommand_EndToEnd(t *testing.T) {
	cp := newFakeControlPlaneServer(t, []string{"active", "upgrading", "upgraded", "active"})
	cfg := writeTestConfig(t, cp.server.URL)

	cmd := NewUpgradeCommand(cfg)
	cmd.SetArgs([]string{"--service", "web", "--image", "org/app", "--tag", "v2", "--env", "B=2"})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, 1, cp.upgradePosts)
	assert.Equal(t, 1, cp.finishPosts)

	require.NotNil(t, cp.lastStrategy)
	launchConfig := cp.lastStrategy["launchConfig"].(map[string]interface{})
	assert.Equal(t, "docker:org/app:v2", launchConfig["imageUuid"])

	env := launchConfig["environment"].(map[string]interface{})
	assert.Equal(t, "1", env["A"])
	assert.Equal(t, "2", env["B"])
}

func TestUpgradeCommand_UnexpectedState(t *testing.T) {
	cp := newFakeControlPlaneServer(t, []string{"active", "upgrading", "rolling-back"})
	cfg := writeTestConfig(t, cp.server.URL)

	cmd := NewUpgradeCommand(cfg)
	cmd.SetArgs([]string{"--service", "web", "--image", "org/app"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolling-back")
	assert.Zero(t, cp.finishPosts)
}

func TestUpgradeCommand_ServiceNotFound(t *testing.T) {
	cp := newFakeControlPlaneServer(t, []string{"active"})
	cfg := writeTestConfig(t, cp.server.URL)

	cmd := NewUpgradeCommand(cfg)
	cmd.SetArgs([]string{"--service", "ghost", "--image", "org/app"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpgradeCommand_MissingFlags(t *testing.T) {
	cfg := writeTestConfig(t, "http://unused.invalid")

	cmd := NewUpgradeCommand(cfg)
	cmd.SetArgs([]string{"--image", "org/app"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service")
}
