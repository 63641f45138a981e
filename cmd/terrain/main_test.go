package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyverse-de/terrain-cli/internal/cache"
	"github.com/cyverse-de/terrain-cli/internal/credential/credentialtest"
)

const subscriptionJSON = `{"result":{"effective_start_date":"2024-01-01","effective_end_date":"2025-01-01","plan":{"name":"Basic"},"quotas":[{"quota":20,"resource_type":{"name":"cpu.hours","unit":"cpu hours"}}],"usages":[]}}`

type fakeTerrain struct {
	mu   sync.Mutex
	hits []string
}

func (f *fakeTerrain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits = append(f.hits, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	switch r.URL.Path {
	case "/qms/plans":
		fmt.Fprint(w, `{"result":[{"name":"Basic","plan_quota_defaults":[{"quota_value":20,"resource_type":{"name":"cpu.hours","unit":"cpu hours"}}]}]}`)
	case "/qms/resource-types":
		fmt.Fprint(w, `{"result":[{"name":"cpu.hours","unit":"cpu hours"}]}`)
	case "/subjects":
		fmt.Fprint(w, `{"subjects":[{"id":"bob"}]}`)
	case "/qms/user/plan", "/admin/qms/users/bob/plan", "/admin/qms/users/bob/plan/cpu.hours/quota":
		fmt.Fprint(w, subscriptionJSON)
	case "/admin/qms/users/carol/plan":
		http.Error(w, `{"reason":"not an admin"}`, http.StatusForbidden)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTerrain) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hits...)
}

// setup points a "test" environment at a fake Terrain and caches a valid
// credential for alice so no prompt happens.
func setup(t *testing.T) (*fakeTerrain, string) {
	t.Helper()
	t.Setenv("TERRAIN_ENV", "")
	t.Setenv("TERRAIN_LOG_LEVEL", "")

	fake := &fakeTerrain{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	store := &cache.Store{Dir: dir}
	require.NoError(t, store.Save("test", credentialtest.Valid(t, "alice")))

	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("environments:\n  test: %s\ndefault_environment: test\ncache_dir: %s\nlog_level: error\n", srv.URL, dir)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return fake, path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestListPlans(t *testing.T) {
	fake, cfg := setup(t)

	code, out, errOut := runCLI(t, "--config", cfg, "subscriptions", "list-plans")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "Basic:\n    cpu.hours: 20 cpu hours\n", out)
	require.Equal(t, []string{"GET /qms/plans"}, fake.requests())
}

func TestListPlansAlias(t *testing.T) {
	_, cfg := setup(t)

	code, out, _ := runCLI(t, "--config", cfg, "sub", "lp", "--json")
	require.Equal(t, 0, code)
	require.Contains(t, out, `"name": "Basic"`)
}

func TestGetRouting(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"self", nil, "GET /qms/user/plan"},
		{"explicit self", []string{"-u", "alice"}, "GET /qms/user/plan"},
		{"other user", []string{"--user", "bob"}, "GET /admin/qms/users/bob/plan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, cfg := setup(t)

			args := append([]string{"--config", cfg, "subscriptions", "get"}, tt.args...)
			code, out, errOut := runCLI(t, args...)
			require.Equal(t, 0, code, errOut)
			require.Contains(t, out, "Plan: Basic")
			require.Equal(t, []string{tt.want}, fake.requests())
		})
	}
}

func TestGetForbidden(t *testing.T) {
	_, cfg := setup(t)

	code, out, errOut := runCLI(t, "--config", cfg, "subscriptions", "get", "-u", "carol")
	require.Equal(t, 1, code)
	require.Empty(t, out)
	require.Contains(t, errOut, "403")
	require.Contains(t, errOut, "not an admin")
}

func TestSetQuota(t *testing.T) {
	fake, cfg := setup(t)

	code, _, errOut := runCLI(t, "--config", cfg, "subs", "set-quota", "-u", "bob", "-r", "CPU.hours", "-q", "2K")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, []string{
		"GET /subjects",
		"GET /qms/resource-types",
		"POST /admin/qms/users/bob/plan/cpu.hours/quota",
	}, fake.requests())
}

func TestSetQuotaValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"bad value", []string{"-u", "bob", "-r", "cpu.hours", "-q", "5X"}, `invalid quota value: "5X"`},
		{"unknown user", []string{"-u", "carol", "-r", "cpu.hours", "-q", "5"}, "user does not exist: carol"},
		{"unknown resource type", []string{"-u", "bob", "-r", "gpu.hours", "-q", "5"}, "resource type does not exist: gpu.hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, cfg := setup(t)

			args := append([]string{"--config", cfg, "subscriptions", "set-quota"}, tt.args...)
			code, out, errOut := runCLI(t, args...)
			require.Equal(t, 2, code)
			require.Empty(t, out)
			require.Equal(t, "terrain: "+tt.msg+"\n", errOut)
			for _, hit := range fake.requests() {
				require.NotContains(t, hit, "POST")
			}
		})
	}
}

func TestUnknownEnvironment(t *testing.T) {
	fake, cfg := setup(t)

	code, _, errOut := runCLI(t, "--config", cfg, "--env", "staging", "subscriptions", "list-plans")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "invalid terrain environment: staging")
	require.Empty(t, fake.requests())
}

func TestWhoami(t *testing.T) {
	_, cfg := setup(t)

	code, out, errOut := runCLI(t, "--config", cfg, "whoami")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "alice on test\n")
}

func TestHelpListsSubcommands(t *testing.T) {
	code, out, _ := runCLI(t, "help")
	require.Equal(t, 0, code)
	require.Contains(t, out, "The following subcommands are available:")
	require.Contains(t, out, "subscriptions: subscription operations (subscription,sub,subs)")
	require.Contains(t, out, "list-plans: list available subscription plans (plans,lp)")
	require.Contains(t, out, "set-quota:")
	require.NotContains(t, out, "completion")
}

func TestVersion(t *testing.T) {
	_, cfg := setup(t)
	code, out, _ := runCLI(t, "--config", cfg, "version")
	require.Equal(t, 0, code)
	require.Equal(t, "terrain dev\n", out)
}
