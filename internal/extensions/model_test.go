package extensions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexide/vertex/backend/internal/openvsx"
	"github.com/vertexide/vertex/backend/internal/plugins"
)

type fakeHost struct {
	mu   sync.Mutex
	list []plugins.Plugin
	subs []func()
}

func (h *fakeHost) WillStart(ctx context.Context) error { return nil }

func (h *fakeHost) Plugins() []plugins.Plugin {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]plugins.Plugin(nil), h.list...)
}

func (h *fakeHost) OnDidChangePlugins(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
	return func() {}
}

func (h *fakeHost) setPlugins(list ...plugins.Plugin) {
	h.mu.Lock()
	h.list = list
	subs := append([]func(){}, h.subs...)
	h.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

type fakeRegistry struct {
	mu          sync.Mutex
	versions    map[string]openvsx.VersionData
	searchHits  []openvsx.SearchEntry
	searchCalls []string
	readmes     map[string]string
	readmeErrs  map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		versions:   make(map[string]openvsx.VersionData),
		readmes:    make(map[string]string),
		readmeErrs: make(map[string]error),
	}
}

func (r *fakeRegistry) Search(ctx context.Context, query string, includeAllVersions bool) (*openvsx.SearchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchCalls = append(r.searchCalls, query)
	return &openvsx.SearchResult{
		TotalSize:  len(r.searchHits),
		Extensions: append([]openvsx.SearchEntry(nil), r.searchHits...),
	}, nil
}

func (r *fakeRegistry) LatestCompatibleExtensionVersion(ctx context.Context, id string) (*openvsx.VersionData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.versions[id]
	if !ok {
		return nil, fmt.Errorf("extension %s: %w", id, openvsx.ErrNotFound)
	}
	return &data, nil
}

func (r *fakeRegistry) LatestCompatibleVersion(versions []openvsx.VersionData) (*openvsx.VersionData, bool) {
	if len(versions) == 0 {
		return nil, false
	}
	return &versions[0], true
}

func (r *fakeRegistry) FetchText(ctx context.Context, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.readmeErrs[url]; ok {
		return "", err
	}
	if text, ok := r.readmes[url]; ok {
		return text, nil
	}
	return "", fmt.Errorf("fetch %s: %w", url, openvsx.ErrNotFound)
}

func (r *fakeRegistry) searchQueries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.searchCalls...)
}

func (r *fakeRegistry) addVersion(data openvsx.VersionData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[data.ID()] = data
}

type fakeRenderer struct{}

func (fakeRenderer) Render(markdown string) (string, error) {
	return "<p>" + markdown + "</p>", nil
}

func version(namespace, name, displayName, description string) openvsx.VersionData {
	return openvsx.VersionData{
		Namespace:   namespace,
		Name:        name,
		Version:     "1.0.0",
		DisplayName: displayName,
		Description: description,
		Publisher:   namespace,
	}
}

func newTestModel(t *testing.T, host plugins.Host, registry RegistryAPI) *Model {
	t.Helper()
	m := NewModel(Options{
		Registry: registry,
		Host:     host,
		Renderer: fakeRenderer{},
		Debounce: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
	return m
}

func TestInstalledScanPopulatesModel(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))
	registry.addVersion(version("pub", "blue", "Blue Theme", "A blue theme"))

	host := &fakeHost{}
	host.setPlugins(
		plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX},
		plugins.Plugin{ID: "pub.blue", Kind: plugins.KindVSX, Builtin: true},
		plugins.Plugin{ID: "shell.menu", Kind: plugins.KindBuiltinFrontend},
	)

	m := newTestModel(t, host, registry)

	require.Eventually(t, func() bool {
		return len(m.Installed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Only marketplace plugins make it into the installed set.
	assert.ElementsMatch(t, []string{"pub.blue", "pub.red"}, m.Installed())

	// Every id in the set resolves against the table.
	for _, id := range m.Installed() {
		ext, ok := m.Extension(id)
		require.True(t, ok, id)
		assert.True(t, ext.Installed)
	}

	require.Eventually(t, func() bool {
		ext, ok := m.Extension("pub.red")
		return ok && ext.DisplayName == "Red Theme"
	}, 2*time.Second, 10*time.Millisecond)

	blue, ok := m.Extension("pub.blue")
	require.True(t, ok)
	assert.True(t, blue.Builtin)

	_, ok = m.Extension("shell.menu")
	assert.False(t, ok)
}

func TestInstalledSortsByDisplayName(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "zeta", "Alpha Tool", "Sorts first"))
	registry.addVersion(version("pub", "alpha", "Zeta Tool", "Sorts last"))

	host := &fakeHost{}
	host.setPlugins(
		plugins.Plugin{ID: "pub.alpha", Kind: plugins.KindVSX},
		plugins.Plugin{ID: "pub.zeta", Kind: plugins.KindVSX},
	)

	m := newTestModel(t, host, registry)

	require.Eventually(t, func() bool {
		a, okA := m.Extension("pub.alpha")
		z, okZ := m.Extension("pub.zeta")
		return okA && okZ && a.DisplayName != "" && z.DisplayName != ""
	}, 2*time.Second, 10*time.Millisecond)

	// Re-scan with metadata present orders by display name, not id.
	host.setPlugins(
		plugins.Plugin{ID: "pub.alpha", Kind: plugins.KindVSX},
		plugins.Plugin{ID: "pub.zeta", Kind: plugins.KindVSX},
	)

	require.Eventually(t, func() bool {
		installed := m.Installed()
		return len(installed) == 2 && installed[0] == "pub.zeta" && installed[1] == "pub.alpha"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmptyQueryRestoresInstalledWithoutRemoteCall(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))
	registry.searchHits = []openvsx.SearchEntry{
		{Namespace: "other", Name: "tool", AllVersions: []openvsx.VersionData{
			version("other", "tool", "Some Tool", "Does things"),
		}},
	}

	host := &fakeHost{}
	host.setPlugins(plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX})

	m := newTestModel(t, host, registry)

	require.Eventually(t, func() bool {
		return len(m.Installed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	m.SetQuery("tool")
	require.Eventually(t, func() bool {
		return len(m.SearchResults()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	callsAfterSearch := len(registry.searchQueries())

	m.SetQuery("")
	require.Eventually(t, func() bool {
		installed := m.Installed()
		return len(installed) == 1 && installed[0] == "pub.red"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, callsAfterSearch, len(registry.searchQueries()))
}

func TestPrefixQueryFiltersInstalled(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))
	registry.addVersion(version("pub", "blue", "Blue Theme", "A blue theme"))

	host := &fakeHost{}
	host.setPlugins(
		plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX},
		plugins.Plugin{ID: "pub.blue", Kind: plugins.KindVSX, Builtin: true},
	)

	m := newTestModel(t, host, registry)

	require.Eventually(t, func() bool {
		ext, ok := m.Extension("pub.blue")
		return ok && ext.DisplayName == "Blue Theme" && len(m.Installed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	var mu sync.Mutex
	var counts []int
	m.OnDidResults(func(count int) {
		mu.Lock()
		counts = append(counts, count)
		mu.Unlock()
	})

	m.SetQuery("@installed red")
	require.Eventually(t, func() bool {
		installed := m.Installed()
		return len(installed) == 1 && installed[0] == "pub.red"
	}, 2*time.Second, 10*time.Millisecond)

	m.SetQuery("@builtin")
	require.Eventually(t, func() bool {
		installed := m.Installed()
		return len(installed) == 1 && installed[0] == "pub.blue"
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	got := append([]int(nil), counts...)
	mu.Unlock()
	assert.Equal(t, []int{1, 1}, got)

	// No remote traffic for prefix queries.
	assert.Empty(t, registry.searchQueries())
}

func TestUnrecognizedPrefixFiresNoResultCount(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))

	host := &fakeHost{}
	host.setPlugins(plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX})

	m := newTestModel(t, host, registry)
	require.Eventually(t, func() bool {
		return len(m.Installed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var mu sync.Mutex
	fired := 0
	m.OnDidResults(func(int) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	m.SetQuery("@recommended")
	require.Eventually(t, func() bool {
		return len(m.Installed()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, fired)
}

func TestPrefixQuerySkipsEntriesMissingMetadata(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))
	// pub.bare never resolves remotely, so it keeps an empty display name.

	host := &fakeHost{}
	host.setPlugins(
		plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX},
		plugins.Plugin{ID: "pub.bare", Kind: plugins.KindVSX},
	)

	m := newTestModel(t, host, registry)
	require.Eventually(t, func() bool {
		ext, ok := m.Extension("pub.red")
		return ok && ext.DisplayName == "Red Theme" && len(m.Installed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	m.SetQuery("@installed")
	require.Eventually(t, func() bool {
		installed := m.Installed()
		return len(installed) == 1 && installed[0] == "pub.red"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRemoteSearchMergesResults(t *testing.T) {
	registry := newFakeRegistry()
	registry.searchHits = []openvsx.SearchEntry{
		{Namespace: "other", Name: "tool", AllVersions: []openvsx.VersionData{
			version("other", "tool", "Some Tool", "Does things"),
		}},
		{Namespace: "misc", Name: "empty"},
	}

	host := &fakeHost{}
	m := newTestModel(t, host, registry)

	var mu sync.Mutex
	var counts []int
	m.OnDidResults(func(count int) {
		mu.Lock()
		counts = append(counts, count)
		mu.Unlock()
	})

	m.SetQuery("tool")
	require.Eventually(t, func() bool {
		return len(m.SearchResults()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"other.tool"}, m.SearchResults())
	ext, ok := m.Extension("other.tool")
	require.True(t, ok)
	assert.Equal(t, "Some Tool", ext.DisplayName)
	assert.False(t, ext.Installed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1}, counts)
}

func TestDebouncedQueriesCollapse(t *testing.T) {
	registry := newFakeRegistry()
	host := &fakeHost{}
	m := NewModel(Options{
		Registry: registry,
		Host:     host,
		Debounce: 50 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)

	m.SetQuery("a")
	m.SetQuery("ab")
	m.SetQuery("abc")

	require.Eventually(t, func() bool {
		return len(registry.searchQueries()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"abc"}, registry.searchQueries())
}

func TestResolveUnknownExtension(t *testing.T) {
	registry := newFakeRegistry()
	host := &fakeHost{}
	m := newTestModel(t, host, registry)

	_, err := m.Resolve(context.Background(), "nobody.missing")
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "nobody.missing", resErr.ID)
	assert.ErrorIs(t, err, openvsx.ErrNotFound)
}

func TestResolveRendersReadme(t *testing.T) {
	registry := newFakeRegistry()
	data := version("pub", "doc", "Doc Tool", "Documented")
	data.Files = map[string]string{"readme": "https://registry/readme"}
	registry.addVersion(data)
	registry.readmes["https://registry/readme"] = "# Doc Tool"

	host := &fakeHost{}
	m := newTestModel(t, host, registry)

	ext, err := m.Resolve(context.Background(), "pub.doc")
	require.NoError(t, err)
	assert.Equal(t, "<p># Doc Tool</p>", ext.ReadmeHTML)
}

func TestResolveMissingReadmeIsNotFatal(t *testing.T) {
	registry := newFakeRegistry()
	data := version("pub", "nodoc", "No Doc", "Undocumented")
	data.Files = map[string]string{"readme": "https://registry/missing"}
	registry.addVersion(data)

	host := &fakeHost{}
	m := newTestModel(t, host, registry)

	ext, err := m.Resolve(context.Background(), "pub.nodoc")
	require.NoError(t, err)
	assert.Empty(t, ext.ReadmeHTML)
}

func TestRefreshKeepsCachedInstalledOnFailure(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "ghost", "Ghost", "Fading away"))

	host := &fakeHost{}
	host.setPlugins(plugins.Plugin{ID: "pub.ghost", Kind: plugins.KindVSX})

	m := newTestModel(t, host, registry)
	require.Eventually(t, func() bool {
		ext, ok := m.Extension("pub.ghost")
		return ok && ext.DisplayName == "Ghost"
	}, 2*time.Second, 10*time.Millisecond)

	// Registry loses the extension while it stays installed locally.
	registry.mu.Lock()
	delete(registry.versions, "pub.ghost")
	registry.mu.Unlock()

	ext, err := m.Resolve(context.Background(), "pub.ghost")
	require.NoError(t, err)
	assert.Equal(t, "Ghost", ext.DisplayName)
	assert.True(t, ext.Installed)
}

func TestUninstallClearsFlagAndKeepsEntry(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))
	registry.addVersion(version("pub", "blue", "Blue Theme", "A blue theme"))

	host := &fakeHost{}
	host.setPlugins(
		plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX},
		plugins.Plugin{ID: "pub.blue", Kind: plugins.KindVSX},
	)

	m := newTestModel(t, host, registry)
	require.Eventually(t, func() bool {
		return len(m.Installed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	host.setPlugins(plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX})

	require.Eventually(t, func() bool {
		installed := m.Installed()
		return len(installed) == 1 && installed[0] == "pub.red"
	}, 2*time.Second, 10*time.Millisecond)

	blue, ok := m.Extension("pub.blue")
	require.True(t, ok)
	assert.False(t, blue.Installed)
}

func TestChangeEventFiresOnMutation(t *testing.T) {
	registry := newFakeRegistry()
	registry.addVersion(version("pub", "red", "Red Theme", "A red theme"))

	host := &fakeHost{}

	m := NewModel(Options{
		Registry: registry,
		Host:     host,
		Debounce: 10 * time.Millisecond,
	})

	var mu sync.Mutex
	changes := 0
	m.OnDidChange(func() {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)

	host.setPlugins(plugins.Plugin{ID: "pub.red", Kind: plugins.KindVSX})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return changes > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResolutionErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &ResolutionError{ID: "a.b", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "a.b")
}
