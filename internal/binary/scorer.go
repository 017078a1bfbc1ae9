package binary

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

// MaxRefinements bounds the number of times an operator is asked for a
// better pattern before giving up.
const MaxRefinements = 5

// blacklistedSuffixes mark package-manager or checksum-only assets.
var blacklistedSuffixes = []string{".deb", ".rpm", ".sha1", ".sha256", ".sha256sum", ".sum"}

// Candidate is a scored asset URL.
type Candidate struct {
	URL   string
	Score int
}

// Scorer ranks asset URLs against a platform fingerprint.
type Scorer struct {
	os     *regexp.Regexp
	arch   *regexp.Regexp
	logger logging.Logger
}

// NewScorer creates a scorer for fp.
func NewScorer(fp platform.Fingerprint, logger logging.Logger) *Scorer {
	return &Scorer{
		os:     fp.OSRegexp(),
		arch:   fp.ArchRegexp(),
		logger: logging.OrNop(logger),
	}
}

// Score rates every candidate:
//
//	os match + arch match - blacklisted suffix + 2 * pattern match
//
// Matching is case-insensitive and looks at the asset file name. An empty
// pattern matches everything.
func (s *Scorer) Score(urls []string, pattern string) ([]Candidate, error) {
	user, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	scored := make([]Candidate, 0, len(urls))
	for _, u := range urls {
		name := release.Filename(u)
		score := 0
		if s.os.MatchString(name) {
			score++
		}
		if s.arch.MatchString(name) {
			score++
		}
		if isBlacklisted(name) {
			score--
		}
		if user.MatchString(name) {
			score += 2
		}
		scored = append(scored, Candidate{URL: u, Score: score})
	}
	return scored, nil
}

// Best returns every candidate sharing the maximum score, in input order.
func (s *Scorer) Best(urls []string, pattern string) ([]string, error) {
	scored, err := s.Score(urls, pattern)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return nil, nil
	}

	top := scored[0].Score
	for _, c := range scored[1:] {
		if c.Score > top {
			top = c.Score
		}
	}

	var best []string
	for _, c := range scored {
		if c.Score == top {
			best = append(best, c.URL)
		}
	}
	return best, nil
}

// Select resolves urls to a single asset. On a tie it asks asker for a new
// pattern and rescores the full set, up to MaxRefinements times. With a nil
// asker a tie returns an *AmbiguousAssetError.
func (s *Scorer) Select(ctx context.Context, urls []string, pattern string, asker PatternAsker) (string, error) {
	if len(urls) == 0 {
		return "", ErrNoCandidates
	}
	if pattern == "" {
		pattern = MatchAll
	}

	for attempt := 0; ; attempt++ {
		best, err := s.Best(urls, pattern)
		if err != nil {
			return "", err
		}
		s.logger.Debug("scored assets", "pattern", pattern, "best", best)

		if len(best) == 1 {
			s.logger.Info("selected asset", "url", best[0])
			return best[0], nil
		}

		ambiguous := &AmbiguousAssetError{Candidates: best, Pattern: pattern}
		s.logger.Error("asset selection is ambiguous", "pattern", pattern, "candidates", len(best))
		if asker == nil || attempt >= MaxRefinements {
			return "", ambiguous
		}

		pattern, err = asker.AskPattern(ctx, best)
		if err != nil {
			return "", fmt.Errorf("ask asset pattern: %w", err)
		}
		if pattern == "" {
			pattern = MatchAll
		}
	}
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = MatchAll
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

func isBlacklisted(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range blacklistedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
