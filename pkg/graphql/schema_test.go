package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/nexusbot/entitlements/pkg/licensing"
)

func newTestSchema(t *testing.T) (graphql.Schema, *licensing.Manager) {
	t.Helper()

	store, err := licensing.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	manager, err := licensing.NewManager(store, licensing.DefaultKeyConfig())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	schema, err := NewSchema(manager)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	return schema, manager
}

func execute(t *testing.T, schema graphql.Schema, query string) map[string]any {
	t.Helper()

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       context.Background(),
	})
	if len(result.Errors) > 0 {
		t.Fatalf("Query errors: %v", result.Errors)
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("Result data is %T", result.Data)
	}
	return data
}

func TestHealthQuery(t *testing.T) {
	schema, _ := newTestSchema(t)

	data := execute(t, schema, `{ health }`)
	if data["health"] != "ok" {
		t.Errorf("health = %v", data["health"])
	}
}

func TestUserAndLicenseQueries(t *testing.T) {
	schema, manager := newTestSchema(t)
	ctx := context.Background()

	key, _ := manager.IssueKey(ctx, licensing.TierPro)
	if result, _ := manager.RedeemKey(ctx, "user-1", key); !result.Success {
		t.Fatal("Setup redemption failed")
	}

	t.Run("User by id", func(t *testing.T) {
		data := execute(t, schema, `{ user(id: "user-1") { id tier licenseKey } }`)
		user, ok := data["user"].(map[string]any)
		if !ok {
			t.Fatalf("user = %v", data["user"])
		}
		if user["tier"] != "PRO" || user["licenseKey"] != key {
			t.Errorf("user = %v", user)
		}
	})

	t.Run("Unknown user is null", func(t *testing.T) {
		data := execute(t, schema, `{ user(id: "ghost") { id } }`)
		if data["user"] != nil {
			t.Errorf("user = %v, want null", data["user"])
		}
	})

	t.Run("License by key", func(t *testing.T) {
		data := execute(t, schema, `{ license(key: "`+key+`") { tier usedBy revoked } }`)
		lic, ok := data["license"].(map[string]any)
		if !ok {
			t.Fatalf("license = %v", data["license"])
		}
		if lic["tier"] != "PRO" || lic["usedBy"] != "user-1" || lic["revoked"] != false {
			t.Errorf("license = %v", lic)
		}
	})

	t.Run("Licenses filtered by tier", func(t *testing.T) {
		manager.IssueKey(ctx, licensing.TierBasic)

		data := execute(t, schema, `{ licenses(tier: "BASIC") { key tier } }`)
		list, ok := data["licenses"].([]any)
		if !ok {
			t.Fatalf("licenses = %v", data["licenses"])
		}
		if len(list) != 1 {
			t.Fatalf("Filtered licenses = %d, want 1", len(list))
		}
	})
}

func TestStatsQuery(t *testing.T) {
	schema, manager := newTestSchema(t)
	ctx := context.Background()

	key, _ := manager.IssueKey(ctx, licensing.TierBasic)
	manager.RedeemKey(ctx, "user-1", key)
	manager.IssueKey(ctx, licensing.TierPro)
	manager.SetUserLicense(ctx, "user-2", licensing.TierFree, "")
	manager.RevokeUser(ctx, "user-2")

	data := execute(t, schema, `{ stats { totalLicenses totalUsers revokedLicenses redeemedLicenses } }`)
	stats, ok := data["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats = %v", data["stats"])
	}

	if stats["totalLicenses"] != 3 {
		t.Errorf("totalLicenses = %v, want 3", stats["totalLicenses"])
	}
	if stats["totalUsers"] != 2 {
		t.Errorf("totalUsers = %v, want 2", stats["totalUsers"])
	}
	if stats["revokedLicenses"] != 1 {
		t.Errorf("revokedLicenses = %v, want 1", stats["revokedLicenses"])
	}
	if stats["redeemedLicenses"] != 2 {
		t.Errorf("redeemedLicenses = %v, want 2", stats["redeemedLicenses"])
	}
}

func TestHTTPHandler(t *testing.T) {
	schema, _ := newTestSchema(t)
	handler := NewHandler(schema)

	t.Run("Valid query", func(t *testing.T) {
		body, _ := json.Marshal(Request{Query: `{ health }`})
		req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != 200 {
			t.Fatalf("Status = %d", rec.Code)
		}
		var resp Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Response not JSON: %v", err)
		}
		data := resp.Data.(map[string]any)
		if data["health"] != "ok" {
			t.Errorf("health = %v", data["health"])
		}
	})

	t.Run("Query errors surface", func(t *testing.T) {
		body, _ := json.Marshal(Request{Query: `{ nonsense }`})
		req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var resp Response
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if len(resp.Errors) == 0 {
			t.Error("Invalid field produced no errors")
		}
	})

	t.Run("GET rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/graphql", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != 405 {
			t.Errorf("Status = %d, want 405", rec.Code)
		}
	})
}
