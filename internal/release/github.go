package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
)

// GitHubBackend queries the GitHub REST API through go-github.
type GitHubBackend struct {
	client *github.Client
	opts   options
}

// NewGitHub creates a GitHub backend.
func NewGitHub(opts ...Option) (*GitHubBackend, error) {
	o := applyOptions(opts)

	client := github.NewClient(o.httpClient)
	if o.token != "" {
		client = client.WithAuthToken(o.token)
	} else {
		o.logger.Debug("GITHUB_TOKEN is not set; GitHub API calls are limited to 60 per hour")
	}
	if o.userAgent != "" {
		client.UserAgent = o.userAgent
	}
	if o.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &GitHubBackend{client: client, opts: o}, nil
}

// Info returns repository information.
func (g *GitHubBackend) Info(ctx context.Context, id Identity) (*RepoInfo, error) {
	repo, resp, err := g.client.Repositories.Get(ctx, id.Owner, id.Name)
	g.checkRate(resp)
	if err != nil {
		return nil, g.wrap(err, "get repository %s", id)
	}

	raw, err := rawFields(repo)
	if err != nil {
		return nil, err
	}
	return repoInfoFromFields(raw), nil
}

// ReleaseTag returns the named release. "latest" selects the newest
// published release; the prerelease aliases select the newest prerelease.
func (g *GitHubBackend) ReleaseTag(ctx context.Context, id Identity, tag string) (*Tag, error) {
	var (
		rel  *github.RepositoryRelease
		resp *github.Response
		err  error
	)

	switch {
	case IsLatest(tag):
		rel, resp, err = g.client.Repositories.GetLatestRelease(ctx, id.Owner, id.Name)
	case IsPrerelease(tag):
		rel, err = g.latestPrerelease(ctx, id)
	default:
		rel, resp, err = g.client.Repositories.GetReleaseByTag(ctx, id.Owner, id.Name, tag)
	}
	g.checkRate(resp)
	if err != nil {
		return nil, g.wrap(err, "get release %s@%s", id, tag)
	}

	return tagFromGitHub(rel), nil
}

func (g *GitHubBackend) latestPrerelease(ctx context.Context, id Identity) (*github.RepositoryRelease, error) {
	releases, resp, err := g.client.Repositories.ListReleases(ctx, id.Owner, id.Name, &github.ListOptions{PerPage: listPageSize})
	g.checkRate(resp)
	if err != nil {
		return nil, err
	}
	// the API lists newest first
	for _, rel := range releases {
		if rel.GetPrerelease() {
			return rel, nil
		}
	}
	return nil, fmt.Errorf("no prerelease for %s: %w", id, ErrNotFound)
}

func tagFromGitHub(rel *github.RepositoryRelease) *Tag {
	t := &Tag{
		Name:       rel.GetTagName(),
		Prerelease: rel.GetPrerelease(),
	}
	if ts := rel.GetPublishedAt(); !ts.IsZero() {
		published := ts.Time.UTC()
		t.PublishedAt = &published
	}
	for _, a := range rel.Assets {
		if a.GetBrowserDownloadURL() == "" {
			continue
		}
		t.Assets = append(t.Assets, Asset{URL: a.GetBrowserDownloadURL(), Size: int64(a.GetSize())})
	}
	return t
}

func (g *GitHubBackend) checkRate(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	if resp.Rate.Remaining < lowRateLimit {
		g.opts.logger.Warn("GitHub API rate limit almost exhausted",
			"remaining", resp.Rate.Remaining, "limit", resp.Rate.Limit, "reset", resp.Rate.Reset.Time)
	}
}

func (g *GitHubBackend) wrap(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
