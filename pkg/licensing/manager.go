package licensing

import (
	"context"
	"sync"
	"time"

	"github.com/nexusbot/entitlements/pkg/audit"
	"github.com/nexusbot/entitlements/pkg/logging"
)

// MetricsRecorder receives operation outcomes. Implemented by
// metrics.Registry; a nil recorder disables instrumentation.
type MetricsRecorder interface {
	RecordKeysIssued(tier string, count int)
	RecordRedemption(outcome string)
	RecordRevocation(action, outcome string)
	RecordAuthorizationCheck(allowed bool)
	RecordStoreOperation(operation string, err error, duration time.Duration)
}

// Manager owns the entitlement document and serializes every operation.
//
// Each lifecycle operation performs a full load, mutate, save cycle
// against the store. All of it runs under one mutex, so two concurrent
// operations can never interleave their I/O and lose an update: the
// manager is a single writer.
type Manager struct {
	store   DocumentStore
	cfg     KeyConfig
	logger  logging.Logger
	metrics MetricsRecorder
	audit   audit.Recorder
	now     func() time.Time
	mu      sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics recorder
func WithMetrics(recorder MetricsRecorder) Option {
	return func(m *Manager) { m.metrics = recorder }
}

// WithAudit sets the audit sink for lifecycle transitions
func WithAudit(recorder audit.Recorder) Option {
	return func(m *Manager) { m.audit = recorder }
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an entitlement manager over the given store
func NewManager(store DocumentStore, cfg KeyConfig, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store:  store,
		cfg:    cfg,
		logger: logging.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// KeyConfig returns the manager's key-format configuration
func (m *Manager) KeyConfig() KeyConfig {
	return m.cfg
}

// load wraps store.Load with metrics
func (m *Manager) load(ctx context.Context) (*Document, error) {
	start := time.Now()
	doc, err := m.store.Load(ctx)
	if m.metrics != nil {
		m.metrics.RecordStoreOperation("load", err, time.Since(start))
	}
	return doc, err
}

// save wraps store.Save with metrics
func (m *Manager) save(ctx context.Context, doc *Document) error {
	start := time.Now()
	err := m.store.Save(ctx, doc)
	if m.metrics != nil {
		m.metrics.RecordStoreOperation("save", err, time.Since(start))
	}
	return err
}

func (m *Manager) recordAudit(event *audit.Event) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Record(event); err != nil {
		m.logger.Warn("failed to record audit event", logging.Error(err))
	}
}

// viewFor builds the merged user + license view from a loaded document.
// Returns nil when the user is unknown, and also when the user's key
// resolves to no license record: store corruption is logged, never
// raised, because a broken record must not crash command dispatch.
func (m *Manager) viewFor(doc *Document, userID string) *LicenseView {
	user, ok := doc.Users[userID]
	if !ok {
		return nil
	}

	rec, ok := doc.Licenses[user.LicenseKey]
	if !ok {
		m.logger.Warn("user references missing license record",
			logging.UserID(userID),
			logging.LicenseKey(user.LicenseKey),
		)
		return nil
	}

	return &LicenseView{
		UserID:      userID,
		Tier:        user.Tier,
		LicenseKey:  user.LicenseKey,
		ActivatedAt: user.ActivatedAt,
		OldLicenses: append([]string(nil), user.OldLicenses...),
		Revoked:     rec.Revoked,
		CreatedAt:   rec.CreatedAt,
	}
}

// bindUser is the only write path for a user record. The denormalized
// tier is re-derived from the bound license record here, so the cache
// can never drift from the license it mirrors. A previously active key
// is archived into OldLicenses before being superseded.
func bindUser(doc *Document, userID, key string, now time.Time) {
	rec := doc.Licenses[key]

	var old []string
	if user, ok := doc.Users[userID]; ok {
		old = user.OldLicenses
		if user.LicenseKey != key {
			old = append(old, user.LicenseKey)
		}
	}

	doc.Users[userID] = &UserRecord{
		LicenseKey:  key,
		Tier:        rec.Tier,
		ActivatedAt: now,
		OldLicenses: old,
	}
}

// mintLicense creates a fresh license record owned by userID (empty
// userID leaves it unassigned) and returns its key
func (m *Manager) mintLicense(doc *Document, tier Tier, userID string) (string, error) {
	key, err := GenerateKeyString(tier, m.cfg)
	if err != nil {
		return "", err
	}

	rec := &LicenseRecord{
		Tier:      tier,
		CreatedAt: m.now(),
	}
	if userID != "" {
		now := m.now()
		rec.UsedBy = userID
		rec.UsedAt = &now
	}
	doc.Licenses[key] = rec

	return key, nil
}
