package licensing

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexusbot/entitlements/pkg/audit"
	"github.com/nexusbot/entitlements/pkg/logging"
)

// IssueKey generates a key and persists an unassigned license record of
// the given tier. No user binding happens here.
func (m *Manager) IssueKey(ctx context.Context, tier Tier) (string, error) {
	keys, err := m.IssueKeys(ctx, tier, 1)
	if err != nil {
		return "", err
	}
	return keys[0], nil
}

// IssueKeys generates count keys in a single load/mutate/save cycle
func (m *Manager) IssueKeys(ctx context.Context, tier Tier, count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		key, err := m.mintLicense(doc, tier, "")
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := m.save(ctx, doc); err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.RecordKeysIssued(string(tier), count)
	}
	for _, key := range keys {
		m.recordAudit(&audit.Event{
			Action:       audit.ActionIssue,
			ResourceType: audit.ResourceLicense,
			ResourceID:   key,
			Status:       audit.StatusSuccess,
			Detail:       string(tier),
		})
	}
	m.logger.Info("license keys generated",
		logging.TierName(string(tier)),
		logging.Count(count),
	)

	return keys, nil
}

// SetUserLicense binds a user to a license.
//
// With an empty customKey a fresh key and license record owned by the
// user are minted immediately (the auto-provision path and revoke's
// FREE-downgrade path). With a customKey the key must reference an
// existing license record, whose usedBy/usedAt are stamped. Either way
// a previously active key is archived into the user's history.
func (m *Manager) SetUserLicense(ctx context.Context, userID string, tier Tier, customKey string) (*LicenseView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.applyUserLicense(doc, userID, tier, customKey); err != nil {
		return nil, err
	}

	if err := m.save(ctx, doc); err != nil {
		return nil, err
	}

	view := m.viewFor(doc, userID)
	m.logger.Info("user license set",
		logging.UserID(userID),
		logging.TierName(string(view.Tier)),
		logging.LicenseKey(view.LicenseKey),
	)

	return view, nil
}

// applyUserLicense mutates doc to bind userID to a license; callers
// hold the manager lock and handle persistence
func (m *Manager) applyUserLicense(doc *Document, userID string, tier Tier, customKey string) error {
	key := customKey

	if key == "" {
		minted, err := m.mintLicense(doc, tier, userID)
		if err != nil {
			return err
		}
		key = minted
	} else {
		rec, ok := doc.Licenses[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		now := m.now()
		rec.UsedBy = userID
		rec.UsedAt = &now
	}

	bindUser(doc, userID, key, m.now())
	return nil
}

// RedeemKey is the guarded entry point for user-submitted keys.
//
// The tier granted always comes from the stored license record, never
// from caller input. Re-redeeming a key already bound to the same user
// is a no-op success.
func (m *Manager) RedeemKey(ctx context.Context, userID, key string) (RedeemResult, error) {
	key = strings.TrimSpace(key)

	// Structural validation happens before any store access
	if m.cfg.StrictValidation {
		if err := ValidateKeyFormat(key, m.cfg); err != nil {
			if m.metrics != nil {
				m.metrics.RecordRedemption("invalid_format")
			}
			return RedeemResult{Message: err.Error()}, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return RedeemResult{}, err
	}

	rec, ok := doc.Licenses[key]
	if !ok {
		m.failRedemption(userID, key, "not_found")
		return RedeemResult{Message: "Invalid license key. Key does not exist."}, nil
	}

	if rec.Revoked {
		m.failRedemption(userID, key, "revoked")
		return RedeemResult{Message: "This license key has been revoked."}, nil
	}

	if rec.UsedBy != "" && rec.UsedBy != userID {
		m.failRedemption(userID, key, "conflict")
		return RedeemResult{Message: "This license key is already in use by another user."}, nil
	}

	if err := m.applyUserLicense(doc, userID, rec.Tier, key); err != nil {
		return RedeemResult{}, err
	}

	if err := m.save(ctx, doc); err != nil {
		return RedeemResult{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordRedemption("success")
	}
	m.recordAudit(&audit.Event{
		UserID:       userID,
		Action:       audit.ActionRedeem,
		ResourceType: audit.ResourceLicense,
		ResourceID:   key,
		Status:       audit.StatusSuccess,
		Detail:       string(rec.Tier),
	})
	m.logger.Info("license key redeemed",
		logging.UserID(userID),
		logging.TierName(string(rec.Tier)),
		logging.LicenseKey(key),
	)

	return RedeemResult{
		Success: true,
		Tier:    rec.Tier,
		Message: fmt.Sprintf("Successfully redeemed %s license!", rec.Tier),
	}, nil
}

func (m *Manager) failRedemption(userID, key, outcome string) {
	if m.metrics != nil {
		m.metrics.RecordRedemption(outcome)
	}
	m.recordAudit(&audit.Event{
		UserID:       userID,
		Action:       audit.ActionRedeem,
		ResourceType: audit.ResourceLicense,
		ResourceID:   key,
		Status:       audit.StatusFailure,
		Detail:       outcome,
	})
}

// RevokeUser revokes a user's active license. A FREE user's license is
// marked revoked in place, which bans them: there is nowhere lower to
// downgrade to. A BASIC or PRO user gets a brand-new FREE license, with
// the old key archived; the old record's own revoked flag is left
// untouched, it simply becomes orphaned.
//
// Returns false (not an error) when the user is unknown.
func (m *Manager) RevokeUser(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return false, err
	}

	user, ok := doc.Users[userID]
	if !ok {
		if m.metrics != nil {
			m.metrics.RecordRevocation("revoke", "not_found")
		}
		return false, nil
	}

	previousTier := user.Tier

	if user.Tier == TierFree {
		if rec, ok := doc.Licenses[user.LicenseKey]; ok {
			rec.Revoked = true
		}
	} else {
		if err := m.applyUserLicense(doc, userID, TierFree, ""); err != nil {
			return false, err
		}
	}

	if err := m.save(ctx, doc); err != nil {
		return false, err
	}

	if m.metrics != nil {
		m.metrics.RecordRevocation("revoke", "success")
	}
	m.recordAudit(&audit.Event{
		UserID:       userID,
		Action:       audit.ActionRevoke,
		ResourceType: audit.ResourceUser,
		ResourceID:   userID,
		Status:       audit.StatusSuccess,
		Detail:       string(previousTier),
	})
	m.logger.Info("user license revoked",
		logging.UserID(userID),
		logging.TierName(string(previousTier)),
	)

	return true, nil
}

// UnrevokeUser clears the revoked flag on the user's currently active
// license. Returns false when the user is unknown or the active license
// is not revoked; nothing is mutated in either case.
//
// Note this is not the inverse of RevokeUser for BASIC/PRO users: their
// revocation minted a fresh FREE license, which is not revoked, so a
// subsequent unrevoke fails.
func (m *Manager) UnrevokeUser(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return false, err
	}

	user, ok := doc.Users[userID]
	if !ok {
		if m.metrics != nil {
			m.metrics.RecordRevocation("unrevoke", "not_found")
		}
		return false, nil
	}

	rec, ok := doc.Licenses[user.LicenseKey]
	if !ok || !rec.Revoked {
		if m.metrics != nil {
			m.metrics.RecordRevocation("unrevoke", "not_revoked")
		}
		return false, nil
	}

	rec.Revoked = false

	if err := m.save(ctx, doc); err != nil {
		return false, err
	}

	if m.metrics != nil {
		m.metrics.RecordRevocation("unrevoke", "success")
	}
	m.recordAudit(&audit.Event{
		UserID:       userID,
		Action:       audit.ActionUnrevoke,
		ResourceType: audit.ResourceUser,
		ResourceID:   userID,
		Status:       audit.StatusSuccess,
	})
	m.logger.Info("user license un-revoked", logging.UserID(userID))

	return true, nil
}
