package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/config"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/secrets"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v2/access/tokens":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token":     "abcdefghijklmnop",
				"expiresAt": "2030-01-01T00:00:00.000Z",
			})
		case r.URL.Path == "/api/v2/UserProfile":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"username": "ops@acme.com", "org": r.Header.Get("Org-Access")}},
			})
		case r.URL.Path == "/api/v2/AuditLogs" && r.URL.Query().Get("page") == "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data":   []map[string]any{{"id": 1}, {"id": 2}},
				"paging": map[string]any{"urls": map[string]string{"nextPage": "http://" + r.Host + "/api/v2/AuditLogs?page=2"}},
			})
		case r.URL.Path == "/api/v2/AuditLogs":
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"id": 3}}})
		case r.URL.Path == "/api/v2/AlertChannels/search":
			body, _ := io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []json.RawMessage{body}})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no such path"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LW_ACCOUNT", "LW_SUBACCOUNT", "LW_API_KEY", "LW_API_SECRET", "LW_BASE_DOMAIN", "LW_ORG_ACCESS", "LW_PROFILE", "REDIS_ADDR", "LW_RATE_LIMIT", "LW_USE_AWS_SECRETS"} {
		t.Setenv(k, "")
	}
	t.Setenv("LW_CONFIG_FILE", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ENV", "dev")
}

// fakeSecrets serves profiles from a map in place of Secrets Manager.
type fakeSecrets struct {
	secrets map[string]map[string]string
}

func (f *fakeSecrets) GetSecret(_ context.Context, name string) (map[string]string, error) {
	if v, ok := f.secrets[name]; ok {
		return v, nil
	}
	return nil, errors.New("secret not found: " + name)
}

func (f *fakeSecrets) ListSecrets(_ context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range f.secrets {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func useSecrets(t *testing.T, f *fakeSecrets) {
	t.Helper()
	prev := newSecretsProvider
	newSecretsProvider = func(context.Context, string) (secrets.Provider, error) { return f, nil }
	t.Cleanup(func() { newSecretsProvider = prev })
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, int) {
	t.Helper()
	base := []string{"--account", "acme", "--api-key", "ACME_KEY", "--api-secret", "_secret", "--base-url", srv.URL}
	var out bytes.Buffer
	code := run(context.Background(), append(base, args...), &out)
	return out.String(), code
}

func TestGet(t *testing.T) {
	isolateEnv(t)
	srv := newAPI(t)

	out, code := runCLI(t, srv, "--org", "get", "/api/v2/UserProfile")
	require.Equal(t, 0, code)

	var body map[string][]map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "ops@acme.com", body["data"][0]["username"])
	assert.Equal(t, "true", body["data"][0]["org"])
}

func TestGet_APIErrorExitsNonZero(t *testing.T) {
	isolateEnv(t)
	srv := newAPI(t)

	_, code := runCLI(t, srv, "get", "/api/v2/Missing")
	assert.Equal(t, 1, code)
}

func TestItems(t *testing.T) {
	isolateEnv(t)
	srv := newAPI(t)

	out, code := runCLI(t, srv, "items", "/api/v2/AuditLogs")
	require.Equal(t, 0, code)
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`, `{"id":3}`}, strings.Fields(out))

	out, code = runCLI(t, srv, "items", "-n", "2", "/api/v2/AuditLogs")
	require.Equal(t, 0, code)
	assert.Len(t, strings.Fields(out), 2)
}

func TestSearch(t *testing.T) {
	isolateEnv(t)
	srv := newAPI(t)

	out, code := runCLI(t, srv, "search", "--body", `{"filters":[{"field":"type","expression":"eq","value":"SlackChannel"}]}`, "/api/v2/AlertChannels/search")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"filters":[{"field":"type","expression":"eq","value":"SlackChannel"}]}`, strings.TrimSpace(out))

	_, code = runCLI(t, srv, "search", "--body", "{not json", "/api/v2/AlertChannels/search")
	assert.Equal(t, 1, code)
}

func TestToken_MaskedByDefault(t *testing.T) {
	isolateEnv(t)
	srv := newAPI(t)

	out, code := runCLI(t, srv, "token")
	require.Equal(t, 0, code)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "acme", got["account"])
	assert.Equal(t, "****mnop", got["token"])
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339), got["expiresAt"])

	out, code = runCLI(t, srv, "token", "--show")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "abcdefghijklmnop")
}

func TestProfiles_ListsSecretsManagerProfiles(t *testing.T) {
	isolateEnv(t)
	useSecrets(t, &fakeSecrets{secrets: map[string]map[string]string{
		"dev/lacework/default": {},
		"dev/lacework/prod":    {},
		"prod/lacework/other":  {},
	}})

	var out bytes.Buffer
	code := run(context.Background(), []string{"profiles"}, &out)
	require.Equal(t, 0, code)
	assert.Equal(t, []string{"default", "prod"}, strings.Fields(out.String()))
}

func TestAWSProfile(t *testing.T) {
	isolateEnv(t)
	srv := newAPI(t)
	useSecrets(t, &fakeSecrets{secrets: map[string]map[string]string{
		"dev/lacework/default": {"account": "fromsecret", "api_key": "SECRET_KEY", "api_secret": "sec"},
	}})

	var out bytes.Buffer
	code := run(context.Background(), []string{"--aws", "--base-url", srv.URL, "token"}, &out)
	require.Equal(t, 0, code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "fromsecret", got["account"])

	// Credential flags win over the stored secret.
	out2, code := runCLI(t, srv, "--aws", "token")
	require.Equal(t, 0, code)
	require.NoError(t, json.Unmarshal([]byte(out2), &got))
	assert.Equal(t, "acme", got["account"])
}

func TestOverlay(t *testing.T) {
	p := config.Profile{Account: "a", APIKey: "k", APISecret: "s", Domain: "lacework.net"}
	overlay(&p, config.Profile{Account: "b", Subaccount: "sub", Domain: "fra.lacework.net"})
	assert.Equal(t, config.Profile{
		Account:    "b",
		Subaccount: "sub",
		APIKey:     "k",
		APISecret:  "s",
		Domain:     "fra.lacework.net",
	}, p)
}

func TestMissingCredentials(t *testing.T) {
	isolateEnv(t)
	var out bytes.Buffer
	code := run(context.Background(), []string{"token"}, &out)
	assert.Equal(t, 1, code)
}

func TestRequestFlags(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantLen int
		wantErr bool
	}{
		{name: "none", args: nil, wantLen: 0},
		{name: "params and org", args: []string{"-P", "limit=5", "--param", "scope=Details", "--org-call"}, wantLen: 2},
		{name: "bad param", args: []string{"-P", "novalue"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f requestFlags
			_, err := flags.NewParser(&f, flags.HelpFlag|flags.PassDoubleDash).ParseArgs(tc.args)
			require.NoError(t, err)

			opts, err := f.requestOptions()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, tc.wantLen)
		})
	}
}

func TestHelpExitsZero(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"--help"}, &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "items")
}
