package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/devlake-bot/internal/devlake"
	"github.com/edvin/devlake-bot/internal/model"
	"github.com/edvin/devlake-bot/internal/secret"
)

func newVault(t *testing.T) *secret.Vault {
	t.Helper()
	v := secret.NewVault(time.Minute)
	t.Cleanup(v.Close)
	return v
}

func TestCreateConnection_ConsumesVaultEntry(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		fmt.Fprint(w, `{"id": 42}`)
	}))
	defer srv.Close()

	vault := newVault(t)
	ref := vault.Put("ghp_test_token")
	a := NewDevLake(devlake.NewClient(srv.URL, ""), vault)

	connID, err := a.CreateConnection(context.Background(), CreateConnectionParams{
		Name:     "demo-github",
		Provider: model.ProviderGitHub,
		TokenRef: ref,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), connID)
	assert.Equal(t, "ghp_test_token", gotBody["token"])
	assert.Equal(t, "https://api.github.com/", gotBody["endpoint"])
	assert.Equal(t, true, gotBody["enableGraphql"])

	// The reference is single-use: a second resolution must fail.
	_, ok := vault.Take(ref)
	assert.False(t, ok)
}

func TestCreateConnection_ExpiredReference(t *testing.T) {
	vault := newVault(t)
	a := NewDevLake(devlake.NewClient("http://127.0.0.1:0", ""), vault)

	_, err := a.CreateConnection(context.Background(), CreateConnectionParams{
		Name:     "demo-github",
		Provider: model.ProviderGitHub,
		TokenRef: "never-stored",
	})

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "CredentialExpired", appErr.Type())
}

func TestCreateConnection_TokenConsumedEvenOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "bad credentials"}`)
	}))
	defer srv.Close()

	vault := newVault(t)
	ref := vault.Put("ghp_test_token")
	a := NewDevLake(devlake.NewClient(srv.URL, ""), vault)

	_, err := a.CreateConnection(context.Background(), CreateConnectionParams{
		Name:     "demo-github",
		Provider: model.ProviderGitHub,
		TokenRef: ref,
	})

	var derr *devlake.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusUnauthorized, derr.StatusCode)
	assert.NotContains(t, err.Error(), "ghp_test_token")

	_, ok := vault.Take(ref)
	assert.False(t, ok)
}

func TestCreateConnection_GitLabDefaults(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/plugins/gitlab/connections", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		fmt.Fprint(w, `{"id": 7}`)
	}))
	defer srv.Close()

	vault := newVault(t)
	ref := vault.Put("glpat-test")
	a := NewDevLake(devlake.NewClient(srv.URL, ""), vault)

	_, err := a.CreateConnection(context.Background(), CreateConnectionParams{
		Name:     "demo-gitlab",
		Provider: model.ProviderGitLab,
		TokenRef: ref,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/api/v4/", gotBody["endpoint"])
	assert.Equal(t, false, gotBody["enableGraphql"])
}

func TestLinkScopes_MergesWithExistingBlueprint(t *testing.T) {
	var patched struct {
		Connections []model.BlueprintConnection `json:"connections"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects/demo":
			fmt.Fprint(w, `{"blueprint": {"id": 300}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/blueprints/300":
			fmt.Fprint(w, `{"id": 300, "connections": [{"pluginName": "github", "connectionId": 42, "scopes": [{"scopeId": "9001"}]}]}`)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/blueprints/300":
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &patched))
			fmt.Fprint(w, `{}`)
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	a := NewDevLake(devlake.NewClient(srv.URL, ""), newVault(t))
	err := a.LinkScopes(context.Background(), LinkScopesParams{
		ProjectName:   "demo",
		Provider:      model.ProviderGitHub,
		ConnectionID:  42,
		RepositoryIDs: []int64{9001, 9002},
	})

	require.NoError(t, err)
	require.Len(t, patched.Connections, 1)
	assert.Equal(t, []model.BlueprintScope{{ScopeID: "9001"}, {ScopeID: "9002"}}, patched.Connections[0].Scopes)
}

func TestMergeScopes_NewConnectionEntry(t *testing.T) {
	existing := []model.BlueprintConnection{
		{PluginName: "github", ConnectionID: 42, Scopes: []model.BlueprintScope{{ScopeID: "9001"}}},
	}

	merged := mergeScopes(existing, model.ProviderGitLab, 7, []int64{555})

	require.Len(t, merged, 2)
	assert.Equal(t, "gitlab", merged[1].PluginName)
	assert.Equal(t, int64(7), merged[1].ConnectionID)
	assert.Equal(t, []model.BlueprintScope{{ScopeID: "555"}}, merged[1].Scopes)
}
