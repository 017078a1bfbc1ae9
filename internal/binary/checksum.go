package binary

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

// MaxChecksumFileSize caps how much of a checksum file is read.
const MaxChecksumFileSize = 1 << 20

var (
	manifestPattern = regexp.MustCompile(`(?i)(checksums\.txt|sha256\.txt|sha256sum\.txt)$`)
	sidecarPattern  = regexp.MustCompile(`(?i)(sha256|sha256sum|sum)$`)
	bsdRowPattern   = regexp.MustCompile(`^SHA256 \((.+)\) = ([0-9A-Fa-f]+)$`)
)

// Fetcher reads a small remote file into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string, limit int64) ([]byte, error)
}

// ChecksumResolver locates the reference digest of an asset among the
// sibling assets of its release.
type ChecksumResolver struct {
	fetcher Fetcher
	logger  logging.Logger
}

// NewChecksumResolver creates a resolver that downloads checksum files
// through fetcher.
func NewChecksumResolver(fetcher Fetcher, logger logging.Logger) *ChecksumResolver {
	return &ChecksumResolver{fetcher: fetcher, logger: logging.OrNop(logger)}
}

// Resolve returns the expected hex digest for the asset at assetURL, or an
// empty string when no checksum file lists it.
//
// Aggregated manifests (checksums.txt, sha256.txt, sha256sum.txt) are
// tried first, then per-asset sidecars whose name contains the asset name.
// A file that cannot be fetched is skipped.
func (r *ChecksumResolver) Resolve(ctx context.Context, assetURL string, siblings []string) (string, error) {
	name := release.Filename(assetURL)

	var manifests, sidecars []string
	for _, u := range siblings {
		if u == assetURL {
			continue
		}
		file := release.Filename(u)
		switch {
		case manifestPattern.MatchString(file):
			manifests = append(manifests, u)
		case sidecarPattern.MatchString(file) && strings.Contains(file, name):
			sidecars = append(sidecars, u)
		}
	}

	for _, u := range manifests {
		rows, err := r.rows(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.logger.Warn("skipping checksum manifest", "url", u, "error", err)
			continue
		}
		if digest := matchRow(rows, name); digest != "" {
			r.logger.Debug("found checksum in manifest", "url", u)
			return digest, nil
		}
	}

	for _, u := range sidecars {
		rows, err := r.rows(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.logger.Warn("skipping checksum sidecar", "url", u, "error", err)
			continue
		}
		if digest := matchRow(rows, name); digest != "" {
			r.logger.Debug("found checksum in sidecar", "url", u)
			return digest, nil
		}
		// a bare digest belongs to whichever asset the sidecar is named after
		if len(rows) == 1 && rows[0].name == "" && sidecarFor(release.Filename(u), name) {
			r.logger.Debug("using bare sidecar checksum", "url", u)
			return rows[0].digest, nil
		}
	}

	r.logger.Debug("no checksum available", "asset", name)
	return "", nil
}

func (r *ChecksumResolver) rows(ctx context.Context, url string) ([]checksumRow, error) {
	body, err := r.fetcher.Fetch(ctx, url, MaxChecksumFileSize)
	if err != nil {
		return nil, err
	}
	return parseChecksums(bytes.NewReader(body))
}

type checksumRow struct {
	digest string
	name   string
}

// parseChecksums reads GNU ("<hex>  [*]name") and BSD
// ("SHA256 (name) = <hex>") formatted rows. Other lines are ignored.
func parseChecksums(r io.Reader) ([]checksumRow, error) {
	var rows []checksumRow
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := bsdRowPattern.FindStringSubmatch(line); m != nil {
			rows = append(rows, checksumRow{digest: m[2], name: cleanRowName(m[1])})
			continue
		}

		parts := strings.Fields(line)
		switch len(parts) {
		case 0:
			continue
		case 1:
			if isHex(parts[0]) {
				rows = append(rows, checksumRow{digest: parts[0]})
			}
		default:
			if isHex(parts[0]) {
				rows = append(rows, checksumRow{digest: parts[0], name: cleanRowName(parts[1])})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan checksum file: %w", err)
	}
	return rows, nil
}

// sidecarFor reports whether sidecar is the checksum file of asset alone,
// as in "tool.tar.gz.sha256" for "tool.tar.gz".
func sidecarFor(sidecar, asset string) bool {
	stem := sidecarPattern.ReplaceAllString(sidecar, "")
	return strings.TrimRight(stem, "._-") == asset
}

func cleanRowName(name string) string {
	name = strings.TrimPrefix(name, "*")
	return strings.TrimPrefix(name, "./")
}

// matchRow prefers an exact name match and falls back to a suffix match in
// either direction.
func matchRow(rows []checksumRow, name string) string {
	for _, row := range rows {
		if row.name == name {
			return row.digest
		}
	}
	for _, row := range rows {
		if row.name == "" {
			continue
		}
		if strings.HasSuffix(row.name, name) || strings.HasSuffix(name, row.name) {
			return row.digest
		}
	}
	return ""
}

func isHex(s string) bool {
	if len(s) == 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Verifier compares files with reference digests.
type Verifier struct {
	logger logging.Logger
}

// NewVerifier creates a verifier.
func NewVerifier(logger logging.Logger) *Verifier {
	return &Verifier{logger: logging.OrNop(logger)}
}

// Verify checks path against expected. An empty expected digest skips the
// check with a warning and reports verified=false.
func (v *Verifier) Verify(path, expected string) (bool, error) {
	if expected == "" {
		v.logger.Warn("no checksum available, skipping verification", "file", path)
		return false, nil
	}

	got, err := SHA256File(path)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	if got != expected {
		return false, &ChecksumError{File: path, Expected: expected, Got: got}
	}

	v.logger.Info("checksum verified", "file", path)
	return true, nil
}

// SHA256File returns the lowercase hex SHA-256 digest of a file.
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
