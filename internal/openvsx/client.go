package openvsx

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertexide/vertex/backend/internal/infrastructure/resilience"
	"github.com/vertexide/vertex/backend/internal/logging"
)

// EngineVSX is the engine key extensions declare compatibility against.
const EngineVSX = "vsx"

// Options configures the registry client.
type Options struct {
	// BaseURL is the registry API root, e.g. "https://open-vsx.org/api".
	BaseURL string
	// EngineVersion is the running editor engine version used for
	// compatibility checks.
	EngineVersion string
	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
	// Logger is optional; a nop logger is used when nil.
	Logger *logging.Logger
}

// Client talks to an Open VSX-style extension registry. It wraps resty
// with a retrying transport, rate limiting, and a circuit breaker.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	engine  *semver.Version
	log     *logging.Logger
}

// NewClient creates a registry client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	engine, err := semver.NewVersion(opts.EngineVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid engine version %q: %w", opts.EngineVersion, err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.Logger = nil

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", "Vertex-Marketplace/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1)
	}

	breaker := resilience.New("registry", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// Registries vary in reliability; trip only on sustained failure.
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("registry circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return &Client{
		http:    httpClient,
		limiter: limiter,
		breaker: breaker,
		engine:  engine,
		log:     log,
	}, nil
}

// Search queries the registry. When includeAllVersions is set, each result
// entry carries every published version so callers can pick a compatible one.
func (c *Client) Search(ctx context.Context, query string, includeAllVersions bool) (*SearchResult, error) {
	var result SearchResult
	err := c.execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetQueryParam("query", query).
			SetQueryParam("includeAllVersions", fmt.Sprintf("%t", includeAllVersions)).
			SetResult(&result).
			Get("/-/search")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AllVersions returns every published version of the given extension,
// newest first as reported by the registry.
func (c *Client) AllVersions(ctx context.Context, id string) ([]VersionData, error) {
	namespace, name, err := splitID(id)
	if err != nil {
		return nil, err
	}

	var result versionsResponse
	err = c.execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetPathParam("namespace", namespace).
			SetPathParam("name", name).
			SetResult(&result).
			Get("/{namespace}/{name}/versions")
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return result.Versions, nil
}

// LatestCompatibleExtensionVersion resolves the newest version of id whose
// declared engine range matches the running engine. Returns ErrNotFound when
// the registry does not know the extension or no version is compatible.
func (c *Client) LatestCompatibleExtensionVersion(ctx context.Context, id string) (*VersionData, error) {
	versions, err := c.AllVersions(ctx, id)
	if err != nil {
		return nil, err
	}

	latest, ok := c.LatestCompatibleVersion(versions)
	if !ok {
		return nil, fmt.Errorf("%w: no compatible version of %s", ErrNotFound, id)
	}
	return latest, nil
}

// LatestCompatibleVersion picks the newest engine-compatible version from
// the given set. Versions without a parseable semver are skipped; versions
// without an engine entry are treated as compatible with any engine.
func (c *Client) LatestCompatibleVersion(versions []VersionData) (*VersionData, bool) {
	var best *VersionData
	var bestVer *semver.Version

	for i := range versions {
		v := &versions[i]
		parsed, err := semver.NewVersion(v.Version)
		if err != nil {
			c.log.Debug("skipping unparseable extension version",
				zap.String("id", v.ID()), zap.String("version", v.Version))
			continue
		}
		if !c.engineCompatible(v) {
			continue
		}
		if bestVer == nil || parsed.GreaterThan(bestVer) {
			best, bestVer = v, parsed
		}
	}

	return best, best != nil
}

// FetchText downloads the given URL as plain text. Non-2xx responses fail
// with a *ResponseError carrying the status code.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	var body string
	err := c.execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		resp, err := req.Get(url)
		if err == nil && resp.IsSuccess() {
			body = resp.String()
		}
		return resp, err
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *Client) engineCompatible(v *VersionData) bool {
	rangeStr, ok := v.Engines[EngineVSX]
	if !ok || rangeStr == "" || rangeStr == "*" {
		return true
	}
	constraint, err := semver.NewConstraint(rangeStr)
	if err != nil {
		c.log.Debug("skipping version with unparseable engine range",
			zap.String("id", v.ID()), zap.String("range", rangeStr))
		return false
	}
	return constraint.Check(c.engine)
}

// execute funnels a request through the rate limiter and circuit breaker
// and converts non-2xx responses into *ResponseError. Client errors other
// than 429 do not count against the breaker; a missing extension is not a
// registry outage.
func (c *Client) execute(ctx context.Context, fn func(req *resty.Request) (*resty.Response, error)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var clientErr error
	err := c.breaker.Do(func() error {
		resp, err := fn(c.http.R().SetContext(ctx))
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			respErr := &ResponseError{
				URL:    resp.Request.URL,
				Status: resp.StatusCode(),
			}
			if resp.StatusCode() >= 500 || resp.StatusCode() == 429 {
				return respErr
			}
			clientErr = respErr
		}
		return nil
	})
	if err != nil {
		return err
	}
	return clientErr
}
