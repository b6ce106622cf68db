package licensing

import (
	"context"
	"testing"
	"time"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	m, err := NewManager(store, DefaultKeyConfig(), opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	t.Run("Nil store", func(t *testing.T) {
		if _, err := NewManager(nil, DefaultKeyConfig()); err != ErrNilStore {
			t.Errorf("NewManager(nil) error = %v, want ErrNilStore", err)
		}
	})

	t.Run("Invalid key config", func(t *testing.T) {
		cfg := DefaultKeyConfig()
		cfg.Segments = 0
		if _, err := NewManager(store, cfg); err == nil {
			t.Error("NewManager() accepted invalid key config")
		}
	})
}

func TestIssueKeys(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	keys, err := m.IssueKeys(ctx, TierPro, 3)
	if err != nil {
		t.Fatalf("IssueKeys() error = %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("IssueKeys() returned %d keys, want 3", len(keys))
	}

	doc, err := m.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	for _, key := range keys {
		rec, ok := doc.Licenses[key]
		if !ok {
			t.Fatalf("Issued key %s not persisted", key)
		}
		if rec.Tier != TierPro {
			t.Errorf("Issued key tier = %s, want PRO", rec.Tier)
		}
		if rec.UsedBy != "" || rec.UsedAt != nil {
			t.Errorf("Issued key %s should be unassigned: %+v", key, rec)
		}
		if rec.Revoked {
			t.Errorf("Issued key %s should not be revoked", key)
		}
	}
	if len(doc.Users) != 0 {
		t.Error("IssueKeys() created user records")
	}
}

func TestIssueKeysInvalidCount(t *testing.T) {
	m := newTestManager(t)

	for _, count := range []int{0, -1} {
		if _, err := m.IssueKeys(context.Background(), TierBasic, count); err != ErrInvalidCount {
			t.Errorf("IssueKeys(count=%d) error = %v, want ErrInvalidCount", count, err)
		}
	}
}

func TestSetUserLicenseMintsFresh(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	view, err := m.SetUserLicense(ctx, "user-1", TierBasic, "")
	if err != nil {
		t.Fatalf("SetUserLicense() error = %v", err)
	}

	if view.Tier != TierBasic {
		t.Errorf("View tier = %s, want BASIC", view.Tier)
	}
	if view.LicenseKey == "" {
		t.Error("View has no license key")
	}
	if !view.ActivatedAt.Equal(now) {
		t.Errorf("ActivatedAt = %v, want %v", view.ActivatedAt, now)
	}

	doc, _ := m.Export(ctx)
	rec := doc.Licenses[view.LicenseKey]
	if rec == nil {
		t.Fatal("Minted license record not persisted")
	}
	if rec.UsedBy != "user-1" {
		t.Errorf("Minted license UsedBy = %q, want user-1", rec.UsedBy)
	}
	if rec.UsedAt == nil || !rec.UsedAt.Equal(now) {
		t.Errorf("Minted license UsedAt = %v, want %v", rec.UsedAt, now)
	}
}

func TestSetUserLicenseBindsExistingKey(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	key, err := m.IssueKey(ctx, TierPro)
	if err != nil {
		t.Fatalf("IssueKey() error = %v", err)
	}

	view, err := m.SetUserLicense(ctx, "user-1", TierPro, key)
	if err != nil {
		t.Fatalf("SetUserLicense() error = %v", err)
	}
	if view.LicenseKey != key {
		t.Errorf("View key = %s, want %s", view.LicenseKey, key)
	}
	if view.Tier != TierPro {
		t.Errorf("View tier = %s, want PRO", view.Tier)
	}
}

func TestSetUserLicenseUnknownKey(t *testing.T) {
	m := newTestManager(t)

	_, err := m.SetUserLicense(context.Background(), "user-1", TierPro, "NOSUCH-KEY")
	if err == nil {
		t.Fatal("SetUserLicense() accepted unknown custom key")
	}
}

func TestSetUserLicenseArchivesOldKey(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.SetUserLicense(ctx, "user-1", TierFree, "")
	if err != nil {
		t.Fatalf("SetUserLicense() error = %v", err)
	}

	second, err := m.SetUserLicense(ctx, "user-1", TierPro, "")
	if err != nil {
		t.Fatalf("SetUserLicense() upgrade error = %v", err)
	}

	if second.LicenseKey == first.LicenseKey {
		t.Fatal("Upgrade did not mint a new key")
	}
	if len(second.OldLicenses) != 1 || second.OldLicenses[0] != first.LicenseKey {
		t.Errorf("OldLicenses = %v, want [%s]", second.OldLicenses, first.LicenseKey)
	}
}

func TestUserTierMirrorsLicenseRecord(t *testing.T) {
	// The user record's tier is a cache of the bound license record's
	// tier; binding with a mismatched requested tier must not let them
	// drift.
	m := newTestManager(t)
	ctx := context.Background()

	key, err := m.IssueKey(ctx, TierPro)
	if err != nil {
		t.Fatalf("IssueKey() error = %v", err)
	}

	// Request BASIC while binding a PRO key: the record wins
	view, err := m.SetUserLicense(ctx, "user-1", TierBasic, key)
	if err != nil {
		t.Fatalf("SetUserLicense() error = %v", err)
	}
	if view.Tier != TierPro {
		t.Errorf("View tier = %s, want PRO (derived from license record)", view.Tier)
	}

	doc, _ := m.Export(ctx)
	if doc.Users["user-1"].Tier != doc.Licenses[key].Tier {
		t.Error("User tier cache drifted from license record")
	}
}
