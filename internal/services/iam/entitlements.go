package iam

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// NormalizeSlugs trims each slug, drops empties and duplicates, and sorts.
// The result is never nil.
func NormalizeSlugs(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// FilterCatalog returns the catalog entries visible to user, in catalog
// order. Admins see everything; nil users see nothing.
func FilterCatalog(user *models.User, apps catalog.Catalog) catalog.Catalog {
	if user == nil {
		return catalog.Catalog{}
	}
	if user.IsAdmin {
		return apps
	}
	allowed := make(map[string]struct{}, len(user.AllowedApps))
	for _, slug := range user.AllowedApps {
		allowed[slug] = struct{}{}
	}
	out := make(catalog.Catalog, 0, len(allowed))
	for _, app := range apps {
		if _, ok := allowed[app.Slug]; ok {
			out = append(out, app)
		}
	}
	return out
}

// SetEntitlements replaces the user's entitlement set.
func (s *iamService) SetEntitlements(ctx context.Context, userID int64, slugs []string) ([]string, error) {
	normalized := NormalizeSlugs(slugs)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.SetEntitlements",
		attribute.Int64(telemetry.AttrUserID, userID),
		attribute.Int(telemetry.AttrAppCount, len(normalized)),
	)
	defer span.End()

	if err := s.users.ReplaceApps(ctx, userID, normalized); err != nil {
		telemetry.RecordError(span, err)
		return nil, mapMutationErr("replace entitlements", err)
	}
	return s.GetEntitlements(ctx, userID)
}

// GetEntitlements returns the user's sorted entitlement set.
func (s *iamService) GetEntitlements(ctx context.Context, userID int64) ([]string, error) {
	slugs, err := s.users.GetApps(ctx, userID)
	if err != nil {
		return nil, storageErr("load entitlements", err)
	}
	if slugs == nil {
		slugs = []string{}
	}
	return slugs, nil
}
