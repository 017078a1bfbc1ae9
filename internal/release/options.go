package release

import (
	"net/http"
	"time"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
)

const (
	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second
	// lowRateLimit triggers a warning about the remaining API budget.
	lowRateLimit = 10
	// listPageSize is the page size used when scanning releases.
	listPageSize = 100
)

// options configures a backend.
type options struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     logging.Logger
}

// Option configures a Backend.
type Option func(*options)

// WithBaseURL overrides the API base URL. Used by tests and self-hosted
// instances.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	o.logger = logging.OrNop(o.logger)
	return o
}
