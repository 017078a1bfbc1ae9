// Package metadata persists one installation record per tracked
// repository. Records are JSON files named after the repository identity
// and are validated against an embedded schema when read.
package metadata

import (
	"time"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

// Record is everything known about one installed repository.
type Record struct {
	Repo release.RepoInfo `json:"repo"`
	Tag  TagInfo          `json:"tag"`
	Meta Meta             `json:"meta"`
}

// TagInfo is the subset of the installed release tag that upgrade needs.
type TagInfo struct {
	Name        string     `json:"tag_name"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
}

// PublishTime is the tag's effective publish time.
func (t TagInfo) PublishTime() time.Time {
	return release.PublishTime(t.PublishedAt, t.ReleasedAt)
}

// NewTagInfo copies the persisted fields of tag.
func NewTagInfo(tag *release.Tag) TagInfo {
	if tag == nil {
		return TagInfo{}
	}
	return TagInfo{Name: tag.Name, PublishedAt: tag.PublishedAt, ReleasedAt: tag.ReleasedAt}
}

// Meta holds the install request and everything it produced on disk.
type Meta struct {
	RepoID        string       `json:"repo_id"`
	Host          release.Host `json:"host,omitempty"`
	Tag           string       `json:"tag"`
	URL           string       `json:"url,omitempty"`
	AssetPattern  string       `json:"asset_pattern,omitempty"`
	BinPattern    string       `json:"bin_pattern,omitempty"`
	SymlinkAlias  string       `json:"symlink_alias,omitempty"`
	AssetURL      string       `json:"asset_url"`
	Asset         string       `json:"asset"`
	Verified      bool         `json:"verified"`
	ExtractedPath string       `json:"extracted_path"`
	ExtractedBin  []string     `json:"extracted_bin"`
	Symlinks      []string     `json:"symlinks"`
	Installed     time.Time    `json:"installed"`
	InstallID     string       `json:"install_id"`
}

// Exists reports whether r describes an installation.
func (r *Record) Exists() bool {
	return r != nil && r.Meta.RepoID != ""
}

// Identity rebuilds the repository identity the record was installed from.
func (r *Record) Identity() (release.Identity, error) {
	id, err := release.ParseIdentity(r.Meta.RepoID)
	if err != nil {
		return release.Identity{}, err
	}
	id.Host = r.Meta.Host
	return id, nil
}

// TracksLatest reports whether the record follows the newest stable release
// rather than a pinned tag, prerelease alias or direct URL.
func (r *Record) TracksLatest() bool {
	return r.Meta.URL == "" && release.IsLatest(r.Meta.Tag)
}

// Paths lists every filesystem path the installation owns, links first.
func (r *Record) Paths() []string {
	var paths []string
	paths = append(paths, r.Meta.Symlinks...)
	if r.Meta.Asset != "" {
		paths = append(paths, r.Meta.Asset)
	}
	if r.Meta.ExtractedPath != "" {
		paths = append(paths, r.Meta.ExtractedPath)
	}
	return paths
}
