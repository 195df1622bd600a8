// Package catalog loads the list of downstream applications the gateway
// fronts. The catalog is read-only once loaded; Store swaps whole snapshots.
package catalog

import "fmt"

// App is one downstream application. Keys in the source file that are not
// modelled here are kept in Extra and served back unchanged.
type App struct {
	Slug        string         `mapstructure:"slug" json:"slug"`
	Name        string         `mapstructure:"name" json:"name,omitempty"`
	URL         string         `mapstructure:"url" json:"url"`
	Description string         `mapstructure:"description" json:"description,omitempty"`
	Icon        string         `mapstructure:"icon" json:"icon,omitempty"`
	Extra       map[string]any `mapstructure:",remain" json:"extra,omitempty"`
}

// Catalog is an ordered list of apps with unique slugs.
type Catalog []App

// Find returns the app with slug, if present.
func (c Catalog) Find(slug string) (App, bool) {
	for _, app := range c {
		if app.Slug == slug {
			return app, true
		}
	}
	return App{}, false
}

// Slugs returns every slug in catalog order.
func (c Catalog) Slugs() []string {
	out := make([]string, 0, len(c))
	for _, app := range c {
		out = append(out, app.Slug)
	}
	return out
}

func (c Catalog) validateUnique() error {
	seen := make(map[string]struct{}, len(c))
	for _, app := range c {
		if _, dup := seen[app.Slug]; dup {
			return fmt.Errorf("duplicate app slug %q", app.Slug)
		}
		seen[app.Slug] = struct{}{}
	}
	return nil
}
