package licensing

import (
	"strings"
	"time"
)

// Tier represents a license tier
type Tier string

const (
	TierFree  Tier = "FREE"
	TierBasic Tier = "BASIC"
	TierPro   Tier = "PRO"
)

// tierLevels orders tiers; a higher level grants access to everything below it
var tierLevels = map[Tier]int{
	TierFree:  0,
	TierBasic: 1,
	TierPro:   2,
}

// String returns the tier name
func (t Tier) String() string {
	return string(t)
}

// Level returns the ordinal position of the tier.
// Unrecognized tiers map to 0 (FREE): malformed data degrades to
// minimum privilege instead of failing.
func (t Tier) Level() int {
	return tierLevels[t]
}

// Known reports whether the tier is one of the defined values
func (t Tier) Known() bool {
	_, ok := tierLevels[t]
	return ok
}

// AtLeast reports whether the tier meets or exceeds the required tier
func (t Tier) AtLeast(required Tier) bool {
	return t.Level() >= required.Level()
}

// ParseTier normalizes a tier string. Anything unrecognized parses to
// TierFree, the same minimum-privilege policy Level applies.
func ParseTier(s string) Tier {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if t.Known() {
		return t
	}
	return TierFree
}

// AllTiers returns the defined tiers in ascending order
func AllTiers() []Tier {
	return []Tier{TierFree, TierBasic, TierPro}
}

// LicenseRecord is a single issued license, keyed by its key string
type LicenseRecord struct {
	Tier      Tier       `json:"tier"`
	CreatedAt time.Time  `json:"createdAt"`
	UsedBy    string     `json:"usedBy,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	Revoked   bool       `json:"revoked"`
}

// UserRecord tracks a user's active license plus the history of keys
// previously bound to them. Tier is a denormalized copy of the active
// license's tier; it is only ever written by bindUser, which re-derives
// it from the license record.
type UserRecord struct {
	LicenseKey  string    `json:"licenseKey"`
	Tier        Tier      `json:"tier"`
	ActivatedAt time.Time `json:"activatedAt"`
	OldLicenses []string  `json:"oldLicenses,omitempty"`
}

// Document is the persisted entitlement aggregate. Every mutation
// rewrites the whole document; there is no transaction log.
type Document struct {
	Licenses map[string]*LicenseRecord `json:"licenses"`
	Users    map[string]*UserRecord    `json:"users"`
}

// NewDocument returns an empty aggregate
func NewDocument() *Document {
	return &Document{
		Licenses: make(map[string]*LicenseRecord),
		Users:    make(map[string]*UserRecord),
	}
}

// normalize replaces nil maps after decoding a sparse document
func (d *Document) normalize() {
	if d.Licenses == nil {
		d.Licenses = make(map[string]*LicenseRecord)
	}
	if d.Users == nil {
		d.Users = make(map[string]*UserRecord)
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	out := NewDocument()
	for key, rec := range d.Licenses {
		c := *rec
		if rec.UsedAt != nil {
			t := *rec.UsedAt
			c.UsedAt = &t
		}
		out.Licenses[key] = &c
	}
	for id, user := range d.Users {
		c := *user
		c.OldLicenses = append([]string(nil), user.OldLicenses...)
		out.Users[id] = &c
	}
	return out
}

// LicenseView is the merged user + license view returned to callers.
// Tier comes from the user record (the denormalized cache); Revoked and
// CreatedAt are read live from the license record.
type LicenseView struct {
	UserID      string    `json:"userId"`
	Tier        Tier      `json:"tier"`
	LicenseKey  string    `json:"licenseKey"`
	ActivatedAt time.Time `json:"activatedAt"`
	OldLicenses []string  `json:"oldLicenses,omitempty"`
	Revoked     bool      `json:"revoked"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CheckResult is the outcome of an authorization decision
type CheckResult struct {
	Allowed  bool   `json:"allowed"`
	UserTier Tier   `json:"userTier,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RedeemResult is the outcome of a key redemption attempt. Domain-rule
// failures land here with a user-facing message, never as errors.
type RedeemResult struct {
	Success bool   `json:"success"`
	Tier    Tier   `json:"tier,omitempty"`
	Message string `json:"message"`
}
