package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// DefaultGitLabURL is the public GitLab API root.
const DefaultGitLabURL = "https://gitlab.com/api/v4"

// GitLabBackend queries the GitLab REST API through client-go.
type GitLabBackend struct {
	client *gitlab.Client
	opts   options
}

// NewGitLab creates a GitLab backend.
func NewGitLab(opts ...Option) (*GitLabBackend, error) {
	o := applyOptions(opts)

	base := o.baseURL
	if base == "" {
		base = DefaultGitLabURL
	}
	client, err := gitlab.NewClient(o.token,
		gitlab.WithBaseURL(base),
		gitlab.WithHTTPClient(o.httpClient),
		gitlab.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}
	if o.token == "" {
		o.logger.Debug("GITLAB_TOKEN is not set; some GitLab fields are omitted and rate limits are lower")
	}
	if o.userAgent != "" {
		client.UserAgent = o.userAgent
	}

	return &GitLabBackend{client: client, opts: o}, nil
}

// Info returns project information. The language is the project's most
// used language.
func (g *GitLabBackend) Info(ctx context.Context, id Identity) (*RepoInfo, error) {
	project, resp, err := g.client.Projects.GetProject(id.String(),
		&gitlab.GetProjectOptions{License: gitlab.Ptr(true)}, gitlab.WithContext(ctx))
	g.checkRate(resp)
	if err != nil {
		return nil, g.wrap(resp, err, "get project %s", id)
	}

	raw, err := rawFields(project)
	if err != nil {
		return nil, err
	}
	info := repoInfoFromFields(raw)

	languages, resp, err := g.client.Projects.GetProjectLanguages(id.String(), gitlab.WithContext(ctx))
	g.checkRate(resp)
	if err != nil || languages == nil {
		g.opts.logger.Debug("project languages unavailable", "repo", id.String(), "error", err)
		return info, nil
	}
	shares := make(map[string]float64, len(*languages))
	for name, share := range *languages {
		shares[name] = float64(share)
	}
	info.Language = topLanguage(shares)

	return info, nil
}

// ReleaseTag returns the named release. "latest" uses the permalink; the
// prerelease aliases select the newest upcoming release.
func (g *GitLabBackend) ReleaseTag(ctx context.Context, id Identity, tag string) (*Tag, error) {
	var (
		rel  *gitlab.Release
		resp *gitlab.Response
		err  error
	)

	switch {
	case IsLatest(tag):
		rel, resp, err = g.client.Releases.GetLatestRelease(id.String(), gitlab.WithContext(ctx))
	case IsPrerelease(tag):
		rel, resp, err = g.latestUpcoming(ctx, id)
	default:
		rel, resp, err = g.client.Releases.GetRelease(id.String(), tag, gitlab.WithContext(ctx))
	}
	g.checkRate(resp)
	if err != nil {
		return nil, g.wrap(resp, err, "get release %s@%s", id, tag)
	}

	return tagFromGitLab(rel), nil
}

func (g *GitLabBackend) latestUpcoming(ctx context.Context, id Identity) (*gitlab.Release, *gitlab.Response, error) {
	opt := &gitlab.ListReleasesOptions{ListOptions: gitlab.ListOptions{PerPage: listPageSize}}
	releases, resp, err := g.client.Releases.ListReleases(id.String(), opt, gitlab.WithContext(ctx))
	if err != nil {
		return nil, resp, err
	}
	// the API lists newest first
	for _, rel := range releases {
		if rel.UpcomingRelease {
			return rel, resp, nil
		}
	}
	return nil, resp, fmt.Errorf("no prerelease for %s: %w", id, ErrNotFound)
}

func tagFromGitLab(rel *gitlab.Release) *Tag {
	t := &Tag{
		Name:       rel.TagName,
		ReleasedAt: rel.ReleasedAt,
		Prerelease: rel.UpcomingRelease,
	}
	for _, link := range rel.Assets.Links {
		if link == nil {
			continue
		}
		u := link.DirectAssetURL
		if u == "" {
			u = link.URL
		}
		if u != "" {
			t.Assets = append(t.Assets, Asset{URL: u})
		}
	}
	return t
}

func (g *GitLabBackend) checkRate(resp *gitlab.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	remaining := resp.Header.Get("RateLimit-Remaining")
	if remaining == "" {
		return
	}
	if n, err := strconv.Atoi(remaining); err == nil && n < lowRateLimit {
		g.opts.logger.Warn("GitLab API rate limit almost exhausted", "remaining", n)
	}
}

func (g *GitLabBackend) wrap(resp *gitlab.Response, err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	var glErr *gitlab.ErrorResponse
	if errors.As(err, &glErr) && glErr.Response != nil && glErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// topLanguage returns the language with the largest share, breaking ties
// alphabetically.
func topLanguage(languages map[string]float64) string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if languages[names[i]] != languages[names[j]] {
			return languages[names[i]] > languages[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
