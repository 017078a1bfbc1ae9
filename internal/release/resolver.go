package release

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
)

// Resolver dispatches to the backend matching an identity's host. An
// identity without a host is tried on GitHub first and on GitLab when
// GitHub reports it missing.
type Resolver struct {
	github Backend
	gitlab Backend
	logger logging.Logger
}

// NewResolver creates a Resolver over the two backends.
func NewResolver(github, gitlab Backend, logger logging.Logger) *Resolver {
	return &Resolver{github: github, gitlab: gitlab, logger: logging.OrNop(logger)}
}

// Info returns repository information.
func (r *Resolver) Info(ctx context.Context, id Identity) (*RepoInfo, error) {
	var info *RepoInfo
	err := r.dispatch(id, func(b Backend) error {
		var err error
		info, err = b.Info(ctx, id)
		return err
	})
	return info, err
}

// ReleaseTag returns the release tag record.
func (r *Resolver) ReleaseTag(ctx context.Context, id Identity, tag string) (*Tag, error) {
	if tag == "" {
		tag = TagLatest
	}
	var t *Tag
	err := r.dispatch(id, func(b Backend) error {
		var err error
		t, err = b.ReleaseTag(ctx, id, tag)
		return err
	})
	return t, err
}

func (r *Resolver) dispatch(id Identity, call func(Backend) error) error {
	switch id.Host {
	case HostGitHub:
		return call(r.github)
	case HostGitLab:
		return call(r.gitlab)
	}

	err := call(r.github)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return err
	}
	r.logger.Debug("not found on GitHub, trying GitLab", "repo", id.String())
	return call(r.gitlab)
}
