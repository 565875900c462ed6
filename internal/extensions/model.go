package extensions

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/vertexide/vertex/backend/internal/events"
	"github.com/vertexide/vertex/backend/internal/infrastructure/monitoring"
	"github.com/vertexide/vertex/backend/internal/logging"
	"github.com/vertexide/vertex/backend/internal/openvsx"
	"github.com/vertexide/vertex/backend/internal/plugins"
	"github.com/vertexide/vertex/backend/internal/progress"
	"github.com/vertexide/vertex/backend/internal/types"
)

// RegistryAPI is the remote registry collaborator consumed by the model.
type RegistryAPI interface {
	Search(ctx context.Context, query string, includeAllVersions bool) (*openvsx.SearchResult, error)
	LatestCompatibleExtensionVersion(ctx context.Context, id string) (*openvsx.VersionData, error)
	LatestCompatibleVersion(versions []openvsx.VersionData) (*openvsx.VersionData, bool)
	FetchText(ctx context.Context, url string) (string, error)
}

// ReadmeRenderer compiles README markdown into sanitized HTML.
type ReadmeRenderer interface {
	Render(markdown string) (string, error)
}

// ResolutionError reports that an extension could not be resolved against
// the remote registry.
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve extension %s: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var (
	installedPrefix = regexp.MustCompile(`(?i)^@installed$`)
	builtinPrefix   = regexp.MustCompile(`(?i)^@builtin$`)
)

// Options configures a Model. Registry and Host are required; the rest
// default to no-op implementations.
type Options struct {
	Registry RegistryAPI
	Host     plugins.Host
	Renderer ReadmeRenderer
	Progress progress.Reporter
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	// Debounce is the quiet period for search updates. Zero means 150ms.
	Debounce time.Duration
}

// Model owns the canonical extension-by-id table and the derived id-sets
// (installed, default-installed snapshot, search results). All mutation
// funnels through progress-tracked tasks; a newer search task cancels any
// older in-flight one before it can touch shared state.
type Model struct {
	log      *logging.Logger
	registry RegistryAPI
	host     plugins.Host
	renderer ReadmeRenderer
	progress progress.Reporter
	metrics  *monitoring.Metrics

	mu               sync.Mutex
	extensionsByID   map[string]*types.Extension
	installed        []string
	defaultInstalled []string
	searchResults    []string
	query            string

	debouncer *Debouncer
	runCtx    context.Context

	changes *events.Emitter[struct{}]
	results *events.Emitter[int]

	startOnce   sync.Once
	initialized chan struct{}
}

// NewModel creates a model. Call Start to begin the bootstrap sequences.
func NewModel(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Progress == nil {
		opts.Progress = progress.Nop{}
	}
	if opts.Debounce == 0 {
		opts.Debounce = 150 * time.Millisecond
	}

	return &Model{
		runCtx:         context.Background(),
		log:            opts.Logger,
		registry:       opts.Registry,
		host:           opts.Host,
		renderer:       opts.Renderer,
		progress:       opts.Progress,
		metrics:        opts.Metrics,
		extensionsByID: make(map[string]*types.Extension),
		debouncer:      NewDebouncer(opts.Debounce),
		changes:        events.NewEmitter[struct{}](),
		results:        events.NewEmitter[int](),
		initialized:    make(chan struct{}),
	}
}

// Start launches the two bootstrap sequences concurrently: installed sync
// (plugin host) and search sync (remote registry). The initialized signal
// is satisfied once both have been started, not completed.
func (m *Model) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.runCtx = ctx
		m.mu.Unlock()

		go m.syncInstalled(ctx)
		go m.syncSearch(ctx)

		close(m.initialized)
	})
}

// OnDidChange subscribes to model-changed notifications, fired after any
// mutating task completes successfully.
func (m *Model) OnDidChange(fn func()) func() {
	return m.changes.Subscribe(func(struct{}) { fn() })
}

// OnDidResults subscribes to result-count notifications, fired after a
// search or filter pass completes, carrying the new result-set size.
func (m *Model) OnDidResults(fn func(count int)) func() {
	return m.results.Subscribe(fn)
}

// Extension looks up an extension by id. Pure lookup, no side effects.
// The returned value is a snapshot copy.
func (m *Model) Extension(id string) (types.Extension, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.extensionsByID[id]
	if !ok {
		return types.Extension{}, false
	}
	return *ext, true
}

// Installed returns a snapshot of the installed id-set, reflecting the set
// at call time.
func (m *Model) Installed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.installed...)
}

// SearchResults returns a snapshot of the most recent search-result id-set.
func (m *Model) SearchResults() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searchResults...)
}

// Query returns the current search query.
func (m *Model) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// SetQuery updates the search query and triggers a debounced re-evaluation.
func (m *Model) SetQuery(query string) {
	m.mu.Lock()
	m.query = query
	m.mu.Unlock()

	m.scheduleSearchUpdate()
}

// Resolve waits for initial registry population, refreshes the given id
// from the remote source, and lazily fetches and renders its README on
// first resolution. Fails with a *ResolutionError if the id cannot be
// found remotely.
func (m *Model) Resolve(ctx context.Context, id string) (types.Extension, error) {
	select {
	case <-m.initialized:
	case <-ctx.Done():
		return types.Extension{}, ctx.Err()
	}

	var resolved types.Extension
	err := m.progress.Do(ctx, "resolve", func(ctx context.Context) error {
		ext, err := m.refresh(ctx, id)
		if err != nil {
			return &ResolutionError{ID: id, Err: err}
		}

		m.resolveReadme(ctx, id, ext)

		m.mu.Lock()
		resolved = *m.extensionsByID[id]
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return types.Extension{}, err
	}

	if ctx.Err() == nil {
		m.changes.Emit(struct{}{})
	}
	return resolved, nil
}

// syncInstalled is the installed bootstrap sequence: wait for the plugin
// host, subscribe to plugin-list changes, run an initial scan, then trigger
// one search update so the initial view is consistent.
func (m *Model) syncInstalled(ctx context.Context) {
	if err := m.host.WillStart(ctx); err != nil {
		m.log.Warn("plugin host failed to start", zap.Error(err))
		return
	}

	unsubscribe := m.host.OnDidChangePlugins(func() {
		m.runInstalledScan(ctx)
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	m.runInstalledScan(ctx)
	m.scheduleSearchUpdate()
}

// syncSearch is the search bootstrap sequence: one initial search update.
// Query changes arrive through SetQuery.
func (m *Model) syncSearch(ctx context.Context) {
	m.scheduleSearchUpdate()
}

func (m *Model) scheduleSearchUpdate() {
	m.mu.Lock()
	ctx := m.runCtx
	m.mu.Unlock()
	m.debouncer.Schedule(ctx, m.runSearchUpdate)
}

// runInstalledScan rebuilds the installed id-set from the plugin host's
// current list and re-snapshots the default-installed set. Per-id refreshes
// are spawned fire-and-forget; the scan does not wait for them.
func (m *Model) runInstalledScan(ctx context.Context) {
	err := m.progress.Do(ctx, "installed-scan", func(ctx context.Context) error {
		previous := m.Installed()

		var working []string
		seen := make(map[string]bool)

		for _, plugin := range m.host.Plugins() {
			if plugin.Kind != plugins.KindVSX {
				continue
			}
			id := strings.ToLower(plugin.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			working = append(working, id)

			m.ensureInstalledEntry(id, plugin.Builtin)
			go m.refreshAndNotify(ctx, id)
		}

		// Plugins that disappeared from the host still get a refresh so
		// their cached metadata reflects the registry's latest view.
		for _, id := range previous {
			if !seen[id] {
				m.markUninstalled(id)
				go m.refreshAndNotify(ctx, id)
			}
		}

		m.sortByDisplay(working)

		m.mu.Lock()
		m.installed = working
		m.defaultInstalled = append([]string(nil), working...)
		m.mu.Unlock()

		m.updateGauges()
		return nil
	})

	if err == nil && ctx.Err() == nil {
		m.changes.Emit(struct{}{})
	}
}

// runSearchUpdate evaluates the current query: empty restores the default
// installed view, "@"-prefixed filters locally, anything else searches the
// remote registry. Commits re-check the context so a cancelled task leaves
// no visible state change.
func (m *Model) runSearchUpdate(ctx context.Context) {
	m.mu.Lock()
	query := m.query
	m.mu.Unlock()

	var count int
	var fireCount bool

	err := m.progress.Do(ctx, "search-update", func(ctx context.Context) error {
		switch {
		case query == "":
			m.mu.Lock()
			defer m.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return err
			}
			m.installed = append([]string(nil), m.defaultInstalled...)
			return nil

		case strings.HasPrefix(query, "@"):
			var err error
			count, fireCount, err = m.filterLocal(ctx, query)
			return err

		default:
			var err error
			count, err = m.searchRemote(ctx, query)
			fireCount = err == nil
			return err
		}
	})
	if err != nil || ctx.Err() != nil {
		return
	}

	m.updateGauges()
	m.changes.Emit(struct{}{})
	if fireCount {
		m.results.Emit(count)
	}
}

// filterLocal handles prefix queries (@installed, @builtin): filter among
// the plugin-host-reported extensions without a remote call. The result
// count fires only when the prefix is one of the recognized keywords.
func (m *Model) filterLocal(ctx context.Context, query string) (int, bool, error) {
	prefix := query
	rest := ""
	if i := strings.IndexFunc(query, unicode.IsSpace); i >= 0 {
		prefix, rest = query[:i], query[i+1:]
	}
	rest = strings.ToLower(strings.TrimSpace(rest))

	wantInstalled := installedPrefix.MatchString(prefix)
	wantBuiltin := builtinPrefix.MatchString(prefix)
	recognized := wantInstalled || wantBuiltin

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []string
	if recognized {
		for _, id := range m.defaultInstalled {
			ext, ok := m.extensionsByID[id]
			if !ok {
				continue
			}
			if wantBuiltin && !ext.Builtin {
				continue
			}
			// Entries without a display name or description never match
			// local filtering.
			if ext.DisplayName == "" || ext.Description == "" {
				continue
			}
			if rest != "" &&
				!strings.Contains(strings.ToLower(ext.ID), rest) &&
				!strings.Contains(strings.ToLower(ext.DisplayName), rest) &&
				!strings.Contains(strings.ToLower(ext.Description), rest) {
				continue
			}
			matched = append(matched, id)
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	m.installed = matched
	return len(matched), recognized, nil
}

// searchRemote queries the registry with all versions included, picks the
// latest compatible version per result group, merges it into the table,
// and replaces the search-result id-set.
func (m *Model) searchRemote(ctx context.Context, query string) (int, error) {
	result, err := m.registry.Search(ctx, query, true)
	if err != nil {
		m.log.Warn("extension search failed", zap.String("query", query), zap.Error(err))
		return 0, err
	}

	var ids []string
	for _, entry := range result.Extensions {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		data, ok := m.registry.LatestCompatibleVersion(entry.AllVersions)
		if !ok {
			continue
		}
		ext := m.merge(data)
		ids = append(ids, ext.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.searchResults = ids
	return len(ids), nil
}

// refresh requests the latest compatible version's metadata for id and
// merges it into the table. On a registry failure it falls back to the
// cached entry only while the extension is installed (stale-while-installed);
// otherwise the failure propagates and the id surfaces in no reported set.
func (m *Model) refresh(ctx context.Context, id string) (*types.Extension, error) {
	data, err := m.registry.LatestCompatibleExtensionVersion(ctx, id)
	if err != nil {
		m.mu.Lock()
		cached, ok := m.extensionsByID[id]
		installed := ok && cached.Installed
		m.mu.Unlock()

		if installed {
			m.log.Debug("keeping cached metadata for installed extension",
				zap.String("id", id), zap.Error(err))
			return cached, nil
		}
		m.log.Debug("dropping extension after failed refresh",
			zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.merge(data), nil
}

// refreshAndNotify wraps refresh in a progress scope. Spawned
// fire-and-forget from the installed scan.
func (m *Model) refreshAndNotify(ctx context.Context, id string) {
	err := m.progress.Do(ctx, "refresh", func(ctx context.Context) error {
		_, err := m.refresh(ctx, id)
		return err
	})
	if err == nil && ctx.Err() == nil {
		m.changes.Emit(struct{}{})
	}
}

// resolveReadme lazily fetches and renders the extension's README. A 404 is
// expected for extensions without one and stays out of the logs; any other
// failure is logged and leaves the readme absent.
func (m *Model) resolveReadme(ctx context.Context, id string, ext *types.Extension) {
	m.mu.Lock()
	readmeURL := ext.ReadmeURL
	done := ext.ReadmeHTML != ""
	m.mu.Unlock()

	if done || readmeURL == "" || m.renderer == nil {
		return
	}

	markdown, err := m.registry.FetchText(ctx, readmeURL)
	if err != nil {
		if !openvsx.IsNotFound(err) {
			m.log.Warn("failed to fetch extension readme",
				zap.String("id", id), zap.Error(err))
		}
		return
	}

	html, err := m.renderer.Render(markdown)
	if err != nil {
		m.log.Warn("failed to compile extension readme",
			zap.String("id", id), zap.Error(err))
		return
	}

	m.mu.Lock()
	ext.ReadmeHTML = html
	m.mu.Unlock()
}

// ensureInstalledEntry creates the registry entry for an installed plugin
// on first reference and marks it installed.
func (m *Model) ensureInstalledEntry(id string, builtin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.extensionsByID[id]
	if !ok {
		ext = &types.Extension{ID: id}
		m.extensionsByID[id] = ext
	}
	ext.Installed = true
	ext.Builtin = builtin
}

// markUninstalled clears the installed flag; the entry itself persists for
// the session.
func (m *Model) markUninstalled(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ext, ok := m.extensionsByID[id]; ok {
		ext.Installed = false
	}
}

// merge folds remote version data into the entry for its id, creating the
// entry on first reference. Installed/builtin flags are owned by the
// installed scan and stay untouched.
func (m *Model) merge(data *openvsx.VersionData) *types.Extension {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := data.ID()
	ext, ok := m.extensionsByID[id]
	if !ok {
		ext = &types.Extension{ID: id}
		m.extensionsByID[id] = ext
	}

	if data.DisplayName != "" {
		ext.DisplayName = data.DisplayName
	}
	if data.Description != "" {
		ext.Description = data.Description
	}
	ext.Version = data.Version
	if data.Publisher != "" {
		ext.Publisher = data.Publisher
	} else if data.Namespace != "" {
		ext.Publisher = strings.ToLower(data.Namespace)
	}
	if url, ok := data.Files["download"]; ok {
		ext.DownloadURL = url
	}
	if url, ok := data.Files["icon"]; ok {
		ext.IconURL = url
	}
	if url, ok := data.Files["readme"]; ok {
		ext.ReadmeURL = url
	}
	if url, ok := data.Files["license"]; ok {
		ext.LicenseURL = url
	}

	return ext
}

// sortByDisplay orders ids by display name, falling back to publisher.
// Entries missing both stay in scan order.
func (m *Model) sortByDisplay(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(ids, func(i, j int) bool {
		a, okA := m.extensionsByID[ids[i]]
		b, okB := m.extensionsByID[ids[j]]
		if !okA || !okB {
			return false
		}
		if a.DisplayName != "" && b.DisplayName != "" {
			return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
		}
		if a.Publisher != "" && b.Publisher != "" {
			return strings.ToLower(a.Publisher) < strings.ToLower(b.Publisher)
		}
		return false
	})
}

func (m *Model) updateGauges() {
	if m.metrics == nil {
		return
	}
	m.mu.Lock()
	known := len(m.extensionsByID)
	installed := len(m.installed)
	searchResults := len(m.searchResults)
	m.mu.Unlock()
	m.metrics.SetRegistryState(known, installed, searchResults)
}
