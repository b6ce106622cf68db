package graphql

import (
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"
	"github.com/nexusbot/entitlements/pkg/licensing"
)

// NewSchema builds the read-only admin schema over a license manager
func NewSchema(manager *licensing.Manager) (graphql.Schema, error) {
	licenseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "License",
		Fields: graphql.Fields{
			"key":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"tier":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{Type: graphql.String},
			"usedBy":    &graphql.Field{Type: graphql.String},
			"usedAt":    &graphql.Field{Type: graphql.String},
			"revoked":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"tier":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"licenseKey":  &graphql.Field{Type: graphql.String},
			"activatedAt": &graphql.Field{Type: graphql.String},
			"oldLicenses": &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"totalLicenses":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"totalUsers":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"revokedLicenses":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"redeemedLicenses": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"license": &graphql.Field{
				Type: licenseType,
				Args: graphql.FieldConfigArgument{
					"key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: resolveLicense(manager),
			},
			"licenses": &graphql.Field{
				Type: graphql.NewList(licenseType),
				Args: graphql.FieldConfigArgument{
					"tier":    &graphql.ArgumentConfig{Type: graphql.String},
					"revoked": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: resolveLicenses(manager),
			},
			"user": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: resolveUser(manager),
			},
			"users": &graphql.Field{
				Type:    graphql.NewList(userType),
				Resolve: resolveUsers(manager),
			},
			"stats": &graphql.Field{
				Type:    statsType,
				Resolve: resolveStats(manager),
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func licenseToMap(key string, rec *licensing.LicenseRecord) map[string]any {
	out := map[string]any{
		"key":       key,
		"tier":      rec.Tier.String(),
		"createdAt": rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"revoked":   rec.Revoked,
	}
	if rec.UsedBy != "" {
		out["usedBy"] = rec.UsedBy
	}
	if rec.UsedAt != nil {
		out["usedAt"] = rec.UsedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

func userToMap(id string, rec *licensing.UserRecord) map[string]any {
	return map[string]any{
		"id":          id,
		"tier":        rec.Tier.String(),
		"licenseKey":  rec.LicenseKey,
		"activatedAt": rec.ActivatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"oldLicenses": rec.OldLicenses,
	}
}

func resolveLicense(manager *licensing.Manager) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		key, _ := p.Args["key"].(string)
		doc, err := manager.Export(p.Context)
		if err != nil {
			return nil, err
		}
		rec, ok := doc.Licenses[key]
		if !ok {
			return nil, nil
		}
		return licenseToMap(key, rec), nil
	}
}

func resolveLicenses(manager *licensing.Manager) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		doc, err := manager.Export(p.Context)
		if err != nil {
			return nil, err
		}

		tierFilter, hasTier := p.Args["tier"].(string)
		revokedFilter, hasRevoked := p.Args["revoked"].(bool)

		keys := make([]string, 0, len(doc.Licenses))
		for key := range doc.Licenses {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		out := make([]map[string]any, 0, len(keys))
		for _, key := range keys {
			rec := doc.Licenses[key]
			if hasTier && rec.Tier.String() != tierFilter {
				continue
			}
			if hasRevoked && rec.Revoked != revokedFilter {
				continue
			}
			out = append(out, licenseToMap(key, rec))
		}
		return out, nil
	}
}

func resolveUser(manager *licensing.Manager) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		id, _ := p.Args["id"].(string)
		doc, err := manager.Export(p.Context)
		if err != nil {
			return nil, err
		}
		rec, ok := doc.Users[id]
		if !ok {
			return nil, nil
		}
		return userToMap(id, rec), nil
	}
}

func resolveUsers(manager *licensing.Manager) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		doc, err := manager.Export(p.Context)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(doc.Users))
		for id := range doc.Users {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		out := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			out = append(out, userToMap(id, doc.Users[id]))
		}
		return out, nil
	}
}

func resolveStats(manager *licensing.Manager) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		doc, err := manager.Export(p.Context)
		if err != nil {
			return nil, err
		}

		revoked := 0
		redeemed := 0
		for _, rec := range doc.Licenses {
			if rec.Revoked {
				revoked++
			}
			if rec.UsedBy != "" {
				redeemed++
			}
		}
		return map[string]any{
			"totalLicenses":    len(doc.Licenses),
			"totalUsers":       len(doc.Users),
			"revokedLicenses":  revoked,
			"redeemedLicenses": redeemed,
		}, nil
	}
}
