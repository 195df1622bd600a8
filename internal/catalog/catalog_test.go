package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `[
  {"slug": "crm", "name": "CRM", "url": "https://crm.example.com", "owner": "sales"},
  {"slug": "wiki", "name": "Wiki", "url": "https://wiki.example.com", "icon": "book"}
]`

const sampleYAML = `
- slug: crm
  name: CRM
  url: https://crm.example.com
- slug: dashboards
  url: https://grafana.example.com
  description: Team dashboards
  order: 2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseJSON(t *testing.T) {
	apps, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)
	require.Len(t, apps, 2)

	assert.Equal(t, []string{"crm", "wiki"}, apps.Slugs())
	assert.Equal(t, "https://crm.example.com", apps[0].URL)
	assert.Equal(t, "sales", apps[0].Extra["owner"])
	assert.Equal(t, "book", apps[1].Icon)

	wiki, ok := apps.Find("wiki")
	require.True(t, ok)
	assert.Equal(t, "Wiki", wiki.Name)

	_, ok = apps.Find("missing")
	assert.False(t, ok)
}

func TestParseYAML(t *testing.T) {
	apps, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "dashboards", apps[1].Slug)
	assert.Equal(t, "Team dashboards", apps[1].Description)
	assert.Contains(t, apps[1].Extra, "order")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "not an array", doc: `{"slug": "crm"}`, wantErr: "invalid catalog"},
		{name: "missing url", doc: `[{"slug": "crm"}]`, wantErr: "invalid catalog"},
		{name: "bad slug", doc: `[{"slug": "Bad Slug", "url": "https://x"}]`, wantErr: "invalid catalog"},
		{name: "duplicate slug", doc: `[{"slug": "crm", "url": "https://a"}, {"slug": "crm", "url": "https://b"}]`, wantErr: "duplicate app slug"},
		{name: "malformed json", doc: `[{`, wantErr: "parse catalog JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_EmptyCatalog(t *testing.T) {
	apps, err := ParseJSON([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)
}

func TestLoadFile_ByExtension(t *testing.T) {
	jsonPath := writeFile(t, "apps.json", sampleJSON)
	yamlPath := writeFile(t, "apps.yaml", sampleYAML)

	fromJSON, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Len(t, fromJSON, 2)

	fromYAML, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"crm", "dashboards"}, fromYAML.Slugs())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestStore_Reload(t *testing.T) {
	path := writeFile(t, "apps.json", sampleJSON)

	store, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.Len(t, store.Apps(), 2)

	require.NoError(t, os.WriteFile(path, []byte(`[{"slug": "hr", "url": "https://hr.example.com"}]`), 0o644))
	apps, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"hr"}, apps.Slugs())
	assert.Equal(t, []string{"hr"}, store.Apps().Slugs())

	// A broken file keeps the previous snapshot.
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = store.Reload()
	assert.Error(t, err)
	assert.Equal(t, []string{"hr"}, store.Apps().Slugs())
}

func TestStaticStore(t *testing.T) {
	store := NewStaticStore(Catalog{{Slug: "crm", URL: "https://crm"}})
	apps, err := store.Reload()
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}
