package binary

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCandidates is returned when scoring is asked to pick from an
	// empty set.
	ErrNoCandidates = errors.New("no candidate assets")
	// ErrAmbiguousAsset is returned when scoring cannot settle on a single
	// asset and no operator can refine the pattern.
	ErrAmbiguousAsset = errors.New("a unique asset could not be identified")
	// ErrChecksumMismatch is returned when a download does not match its
	// reference digest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrNoExecutables is returned when an extracted tree holds no
	// executable files.
	ErrNoExecutables = errors.New("no executables found")
)

// AmbiguousAssetError carries the tied candidates so a caller can show them.
type AmbiguousAssetError struct {
	Candidates []string
	Pattern    string
}

func (e *AmbiguousAssetError) Error() string {
	return fmt.Sprintf("%s with pattern %q among %d candidates:\n  %s\ntry a more specific asset pattern",
		ErrAmbiguousAsset, e.Pattern, len(e.Candidates), strings.Join(e.Candidates, "\n  "))
}

func (e *AmbiguousAssetError) Unwrap() error {
	return ErrAmbiguousAsset
}

// ChecksumError reports the expected and computed digests of a file.
type ChecksumError struct {
	File     string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s for %s: expected %s, got %s", ErrChecksumMismatch, e.File, e.Expected, e.Got)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// PatternAsker asks an operator for a refined asset pattern when several
// candidates tie.
type PatternAsker interface {
	AskPattern(ctx context.Context, candidates []string) (string, error)
}

// Progress receives download progress. Implementations must tolerate
// total being -1 when the size is unknown.
type Progress interface {
	Start(name string, total int64)
	Add(n int64)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(string, int64) {}
func (noopProgress) Add(int64)           {}
func (noopProgress) Finish()             {}

// MatchAll is the default disambiguation pattern.
const MatchAll = ".*"
