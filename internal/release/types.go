// Package release fetches repository and release-tag records from hosting
// APIs. GitHub and GitLab backends implement the same Backend capability;
// Resolver picks one per repository identity.
package release

import (
	"context"
	"errors"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a repository or tag does not exist on
	// the queried host.
	ErrNotFound = errors.New("not found")
	// ErrNoAssets is returned when a release tag has no downloadable assets.
	ErrNoAssets = errors.New("no release assets found")
	// ErrInvalidIdentity is returned for repository strings without an
	// owner/name pair.
	ErrInvalidIdentity = errors.New("invalid repository identity")
)

// Host identifies a hosting service.
type Host string

const (
	HostUnknown Host = ""
	HostGitHub  Host = "github.com"
	HostGitLab  Host = "gitlab.com"
)

// TagLatest selects the newest published release.
const TagLatest = "latest"

// prereleaseAliases select the newest prerelease.
var prereleaseAliases = []string{"pre", "pre-release", "prerelease"}

// IsLatest reports whether tag tracks the newest release.
func IsLatest(tag string) bool {
	return tag == "" || tag == TagLatest
}

// IsPrerelease reports whether tag is one of the prerelease aliases.
func IsPrerelease(tag string) bool {
	return slices.Contains(prereleaseAliases, strings.ToLower(tag))
}

// Identity is a normalized owner/name repository identity with the host it
// was parsed from, if any.
type Identity struct {
	Owner string
	Name  string
	Host  Host
}

// ParseIdentity accepts "owner/name", "https://github.com/owner/name/..." or
// "gitlab.com/owner/name". URL forms keep the first two path segments.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		return Identity{}, invalidIdentity(s)
	}

	var id Identity
	switch {
	case strings.Contains(s, "github.com"):
		id.Host = HostGitHub
	case strings.Contains(s, "gitlab.com"):
		id.Host = HostGitLab
	}

	p := strings.Trim(s, "/")
	if strings.Contains(s, ".com") {
		raw := s
		if !strings.Contains(raw, "://") {
			raw = "https://" + strings.TrimLeft(raw, "/")
		}
		u, err := url.Parse(raw)
		if err != nil {
			return Identity{}, invalidIdentity(s)
		}
		p = strings.Trim(path.Clean("/"+u.Path), "/")
	}

	parts := strings.Split(p, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, invalidIdentity(s)
	}
	id.Owner = parts[0]
	id.Name = strings.TrimSuffix(parts[1], ".git")

	return id, nil
}

func invalidIdentity(s string) error {
	return &identityError{input: s}
}

type identityError struct {
	input string
}

func (e *identityError) Error() string {
	return `invalid repository identity "` + e.input + `": provide a url or owner/repo, e.g. "https://github.com/junegunn/fzf" or "junegunn/fzf"`
}

func (e *identityError) Unwrap() error {
	return ErrInvalidIdentity
}

// String returns "owner/name".
func (i Identity) String() string {
	return i.Owner + "/" + i.Name
}

// Key returns the identity with path separators replaced, suitable as a
// file name.
func (i Identity) Key() string {
	return i.Owner + "_" + i.Name
}

// Slug returns the trailing segment of the identity.
func (i Identity) Slug() string {
	return i.Name
}

// Asset is a single downloadable file attached to a release tag.
type Asset struct {
	URL  string
	Size int64
}

// Filename derives the asset file name from its URL.
func (a Asset) Filename() string {
	return Filename(a.URL)
}

// Filename returns the last path segment of a download URL.
func Filename(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		if name := path.Base(u.Path); name != "/" && name != "." {
			return name
		}
	}
	return path.Base(rawURL)
}

// Tag is a release tag record as returned by a hosting API.
type Tag struct {
	Name        string
	PublishedAt *time.Time
	ReleasedAt  *time.Time
	Prerelease  bool
	Assets      []Asset
}

// AssetURLs returns the download URLs of the tag's assets in order.
func (t *Tag) AssetURLs() []string {
	urls := make([]string, 0, len(t.Assets))
	for _, a := range t.Assets {
		urls = append(urls, a.URL)
	}
	return urls
}

// PublishTime returns PublishedAt, then ReleasedAt, then the Unix epoch.
func (t *Tag) PublishTime() time.Time {
	return PublishTime(t.PublishedAt, t.ReleasedAt)
}

// PublishTime returns the first non-nil timestamp, or the Unix epoch.
func PublishTime(published, released *time.Time) time.Time {
	switch {
	case published != nil && !published.IsZero():
		return published.UTC()
	case released != nil && !released.IsZero():
		return released.UTC()
	default:
		return time.Unix(0, 0).UTC()
	}
}

// RepoInfo is the repository summary shown by `info` and stored with each
// install record.
type RepoInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Topics      []string   `json:"topics,omitempty"`
	Language    string     `json:"language,omitempty"`
	Stars       int        `json:"stars"`
	Forks       int        `json:"forks"`
	Issues      int        `json:"issues,omitempty"`
	URL         string     `json:"url"`
	Updated     *time.Time `json:"updated,omitempty"`
	Created     *time.Time `json:"created,omitempty"`
	Archived    bool       `json:"archived,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`
}

// Backend queries one hosting service.
type Backend interface {
	Info(ctx context.Context, id Identity) (*RepoInfo, error)
	ReleaseTag(ctx context.Context, id Identity, tag string) (*Tag, error)
}
