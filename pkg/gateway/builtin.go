package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexusbot/entitlements/pkg/licensing"
)

// RegisterBuiltins wires the core license commands into a registry
func RegisterBuiltins(registry *Registry, manager *licensing.Manager) error {
	builtins := []*Command{
		{
			Name:         "redeem",
			Description:  "Redeem a license key",
			RequiredTier: licensing.TierFree,
			Handler:      redeemHandler(manager),
		},
		{
			Name:         "license",
			Description:  "Show your current license",
			RequiredTier: licensing.TierFree,
			Handler:      licenseHandler(manager),
		},
		{
			Name:         "help",
			Description:  "List available commands",
			RequiredTier: licensing.TierFree,
			Handler:      helpHandler(registry),
		},
	}

	for _, cmd := range builtins {
		if err := registry.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func redeemHandler(manager *licensing.Manager) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if len(req.Args) == 0 {
			return &Response{Message: "Usage: redeem <license-key>"}, nil
		}

		result, err := manager.RedeemKey(ctx, req.UserID, req.Args[0])
		if err != nil {
			return nil, err
		}

		resp := &Response{Message: result.Message}
		if result.Success {
			resp.Data = map[string]any{"tier": result.Tier.String()}
		}
		return resp, nil
	}
}

func licenseHandler(manager *licensing.Manager) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		view, err := manager.GetUserLicense(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if view == nil {
			return &Response{Message: "No license found."}, nil
		}

		status := "active"
		if view.Revoked {
			status = "revoked"
		}
		return &Response{
			Message: fmt.Sprintf("Tier: %s | Key: %s | Status: %s", view.Tier, view.LicenseKey, status),
			Data: map[string]any{
				"tier":    view.Tier.String(),
				"key":     view.LicenseKey,
				"revoked": view.Revoked,
			},
		}, nil
	}
}

func helpHandler(registry *Registry) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		var sb strings.Builder
		sb.WriteString("Available commands:\n")
		for _, name := range registry.Names() {
			cmd, _ := registry.Lookup(name)
			fmt.Fprintf(&sb, "  %s - %s (requires %s)\n", cmd.Name, cmd.Description, cmd.RequiredTier)
		}
		return &Response{Message: sb.String()}, nil
	}
}
