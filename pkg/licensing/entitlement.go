package licensing

import (
	"context"
	"fmt"
)

// GetUserLicense returns the merged user + license view, or nil when
// the user has no usable license. A user record pointing at a missing
// license record (store corruption) also yields nil; it is logged as a
// warning and never raised, so command dispatch cannot crash on it.
func (m *Manager) GetUserLicense(ctx context.Context, userID string) (*LicenseView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	return m.viewFor(doc, userID), nil
}

// CanUseCommand decides whether a user may invoke a command gated at
// requiredTier. Decision order: no license denies; a revoked license
// denies unconditionally regardless of tier (revocation is a hard ban,
// not a downgrade); an insufficient tier denies naming both tiers;
// otherwise allow.
func (m *Manager) CanUseCommand(ctx context.Context, userID string, requiredTier Tier) (CheckResult, error) {
	view, err := m.GetUserLicense(ctx, userID)
	if err != nil {
		return CheckResult{}, err
	}

	result := decide(view, requiredTier)
	if m.metrics != nil {
		m.metrics.RecordAuthorizationCheck(result.Allowed)
	}

	return result, nil
}

func decide(view *LicenseView, requiredTier Tier) CheckResult {
	if view == nil {
		return CheckResult{
			Reason: "No license found. Please interact with the bot to generate a license.",
		}
	}

	if view.Revoked {
		return CheckResult{
			UserTier: view.Tier,
			Reason:   "Your license has been revoked. You are banned from using this bot.",
		}
	}

	if !view.Tier.AtLeast(requiredTier) {
		return CheckResult{
			UserTier: view.Tier,
			Reason:   fmt.Sprintf("This command requires %s license or higher. You have %s.", requiredTier, view.Tier),
		}
	}

	return CheckResult{Allowed: true, UserTier: view.Tier}
}

// Export returns a deep copy of the current document for read-only
// admin surfaces (listings, GraphQL, snapshots)
func (m *Manager) Export(ctx context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Clone(), nil
}
