package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nexusbot/entitlements/pkg/licensing"
	"github.com/nexusbot/entitlements/pkg/logging"
)

// DefaultCooldown is the minimum gap between commands for a user
const DefaultCooldown = 3 * time.Second

// Commands that must stay reachable without an entitlement check, so a
// user with a revoked or missing license can still recover.
var exemptCommands = map[string]bool{
	"redeem":  true,
	"license": true,
	"help":    true,
}

// ProvisionMetrics is the slice of metrics the dispatcher records
type ProvisionMetrics interface {
	RecordAutoProvision()
}

// Dispatcher routes incoming commands through entitlement checks
type Dispatcher struct {
	registry *Registry
	manager  *licensing.Manager
	logger   logging.Logger
	metrics  ProvisionMetrics
	cooldown time.Duration
	ownerID  string

	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger
func WithDispatchLogger(logger logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithProvisionMetrics sets the metrics recorder
func WithProvisionMetrics(m ProvisionMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithCooldown overrides the per-user cooldown. Zero disables it.
func WithCooldown(cooldown time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.cooldown = cooldown }
}

// WithOwner marks a user ID as the bot owner. The owner skips tier
// checks and cooldowns.
func WithOwner(ownerID string) DispatcherOption {
	return func(d *Dispatcher) { d.ownerID = ownerID }
}

// WithDispatchClock overrides the time source, for tests
func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher over a command registry and a
// license manager
func NewDispatcher(registry *Registry, manager *licensing.Manager, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		manager:  manager,
		logger:   logging.NewNopLogger(),
		cooldown: DefaultCooldown,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one command invocation end to end: cooldown, license
// auto-provisioning, the tier check, then the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.UserID == "" {
		return nil, ErrInvalidUserID
	}

	cmd, ok := d.registry.Lookup(req.Command)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, req.Command)
	}

	isOwner := d.ownerID != "" && req.UserID == d.ownerID

	if cmd.OwnerOnly && !isOwner {
		d.logger.Info("owner command refused",
			logging.UserID(req.UserID),
			logging.Command(cmd.Name))
		return &Response{Message: "This command is restricted to the bot owner."}, nil
	}

	if !isOwner && !cmd.OwnerOnly {
		if wait := d.checkCooldown(req.UserID, cmd); wait > 0 {
			return &Response{
				Message: fmt.Sprintf("Please wait %.1f seconds before using another command.", wait.Seconds()),
			}, nil
		}
	}

	if err := d.ensureLicense(ctx, req.UserID); err != nil {
		return nil, err
	}

	if !isOwner && !exemptCommands[strings.ToLower(cmd.Name)] {
		check, err := d.manager.CanUseCommand(ctx, req.UserID, cmd.RequiredTier)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			d.logger.Info("command denied",
				logging.UserID(req.UserID),
				logging.Command(cmd.Name),
				logging.Reason(check.Reason))
			return &Response{Message: check.Reason}, nil
		}
	}

	d.logger.Debug("dispatching command",
		logging.UserID(req.UserID),
		logging.Command(cmd.Name))

	return cmd.Handler(ctx, req)
}

// ensureLicense provisions a FREE license the first time a user shows up
func (d *Dispatcher) ensureLicense(ctx context.Context, userID string) error {
	view, err := d.manager.GetUserLicense(ctx, userID)
	if err != nil {
		return err
	}
	if view != nil {
		return nil
	}

	if _, err := d.manager.SetUserLicense(ctx, userID, licensing.TierFree, ""); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.RecordAutoProvision()
	}
	d.logger.Info("auto-provisioned license",
		logging.UserID(userID),
		logging.TierName(licensing.TierFree.String()))
	return nil
}

// checkCooldown returns how long the user must still wait before running
// this command again, stamping the current time when they are clear.
// Cooldowns are tracked per user per command.
func (d *Dispatcher) checkCooldown(userID string, cmd *Command) time.Duration {
	cooldown := d.cooldown
	if cmd.Cooldown > 0 {
		cooldown = cmd.Cooldown
	}
	if cooldown <= 0 {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := userID + "\x00" + strings.ToLower(cmd.Name)
	now := d.now()
	if last, ok := d.lastSeen[key]; ok {
		if elapsed := now.Sub(last); elapsed < cooldown {
			return cooldown - elapsed
		}
	}
	d.lastSeen[key] = now
	return 0
}
