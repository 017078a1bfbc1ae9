package binary

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
)

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionBzip2
	compressionXz
	compressionZstd
)

func (c compression) String() string {
	switch c {
	case compressionGzip:
		return "gzip"
	case compressionBzip2:
		return "bzip2"
	case compressionXz:
		return "xz"
	case compressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

var magics = []struct {
	kind  compression
	magic []byte
}{
	{compressionGzip, []byte{0x1f, 0x8b}},
	{compressionBzip2, []byte("BZh")},
	{compressionXz, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{compressionZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
}

// Extractor unpacks downloaded assets into the data directory.
type Extractor struct {
	logger logging.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger logging.Logger) *Extractor {
	return &Extractor{logger: logging.OrNop(logger)}
}

// Extract places the asset at assetPath under dataDir and returns the
// extraction root.
//
// The asset is classified by content. Anything that does not read as a tar
// stream (after optional gzip, bzip2, xz or zstd decompression) is a
// standalone executable: it gains the executable bits and moves to
// dataDir/<name> with a trailing ".tar" removed. A compressed standalone
// file is decompressed and also loses its compression extension.
//
// Archives whose entries share a common leading directory are extracted into
// dataDir and that directory is the root. Flat archives are extracted into
// dataDir/<base name>, where the base name drops the last extension and
// then any trailing ".tar".
func (e *Extractor) Extract(assetPath, dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	names, kind, err := e.listEntries(assetPath)
	if err != nil {
		e.logger.Warn("asset is not a tar archive", "path", assetPath, "compression", kind)
		return e.placeStandalone(assetPath, dataDir, kind)
	}

	prefix := commonPrefix(names)
	base := filepath.Base(assetPath)

	var extractDir, root string
	if prefix != "" {
		extractDir = dataDir
		root = filepath.Join(dataDir, prefix)
	} else {
		root = filepath.Join(dataDir, strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), ".tar"))
		extractDir = root
	}

	if err := removeWithin(root, dataDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", fmt.Errorf("create extract dir: %w", err)
	}

	e.logger.Info("extracting", "archive", assetPath, "root", root)
	if err := e.extractTar(assetPath, extractDir); err != nil {
		return "", err
	}

	e.logger.Debug("extracted", "archive", assetPath, "root", root)
	return root, nil
}

// openDecompressed opens path and wraps it in the decompressor its magic
// bytes call for.
func openDecompressed(path string) (io.Reader, func() error, compression, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, compressionNone, fmt.Errorf("open asset: %w", err)
	}

	br := bufio.NewReader(file)
	head, _ := br.Peek(6)
	kind := compressionNone
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			kind = m.kind
			break
		}
	}

	closeFile := file.Close
	switch kind {
	case compressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, nil, kind, fmt.Errorf("create gzip reader: %w", err)
		}
		return zr, func() error { zr.Close(); return closeFile() }, kind, nil
	case compressionBzip2:
		return bzip2.NewReader(br), closeFile, kind, nil
	case compressionXz:
		xr, err := xz.NewReader(br)
		if err != nil {
			file.Close()
			return nil, nil, kind, fmt.Errorf("create xz reader: %w", err)
		}
		return xr, closeFile, kind, nil
	case compressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			file.Close()
			return nil, nil, kind, fmt.Errorf("create zstd reader: %w", err)
		}
		return zr, func() error { zr.Close(); return closeFile() }, kind, nil
	default:
		return br, closeFile, kind, nil
	}
}

// listEntries returns every entry name when path reads as a tar stream.
func (e *Extractor) listEntries(path string) ([]string, compression, error) {
	r, closeFn, kind, err := openDecompressed(path)
	if err != nil {
		return nil, kind, err
	}
	defer closeFn()

	tr := tar.NewReader(r)
	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, kind, fmt.Errorf("read tar header: %w", err)
		}
		names = append(names, header.Name)
	}
	if len(names) == 0 {
		return nil, kind, errors.New("empty tar stream")
	}
	return names, kind, nil
}

func (e *Extractor) extractTar(path, destDir string) error {
	r, closeFn, _, err := openDecompressed(path)
	if err != nil {
		return err
	}
	defer closeFn()

	destDir = filepath.Clean(destDir)
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name)
		if target == destDir {
			continue
		}
		if !within(target, destDir) {
			return fmt.Errorf("illegal file path: %s", header.Name)
		}

		mode := os.FileMode(header.Mode).Perm()
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			if err := os.Chmod(target, mode|0o700); err != nil {
				return fmt.Errorf("chmod %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeEntry(target, tr, mode); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) || !within(filepath.Join(filepath.Dir(target), header.Linkname), destDir) {
				return fmt.Errorf("illegal symlink %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		case tar.TypeLink:
			source := filepath.Join(destDir, header.Linkname)
			if !within(source, destDir) {
				return fmt.Errorf("illegal hard link %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			os.Remove(target)
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", target, err)
			}

		default:
			e.logger.Debug("skipping tar entry", "name", header.Name, "type", header.Typeflag)
		}
	}
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}

	// umask may have dropped bits
	if err := os.Chmod(target, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", target, err)
	}
	return nil
}

func (e *Extractor) placeStandalone(assetPath, dataDir string, kind compression) (string, error) {
	name := filepath.Base(assetPath)
	if kind != compressionNone {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	dest := filepath.Join(dataDir, strings.TrimSuffix(name, ".tar"))

	if err := removeWithin(dest, dataDir); err != nil {
		return "", err
	}

	if kind == compressionNone {
		if err := moveFile(assetPath, dest); err != nil {
			return "", err
		}
	} else {
		info, err := os.Stat(assetPath)
		if err != nil {
			return "", fmt.Errorf("stat asset: %w", err)
		}
		r, closeFn, _, err := openDecompressed(assetPath)
		if err != nil {
			return "", err
		}
		err = writeEntry(dest, r, info.Mode().Perm())
		closeFn()
		if err != nil {
			return "", fmt.Errorf("decompress %s: %w", assetPath, err)
		}
	}

	if err := SetExecutable(dest); err != nil {
		return "", err
	}
	e.logger.Debug("placed standalone executable", "path", dest)
	return dest, nil
}

// SetExecutable adds the executable bits to a file's existing mode.
func SetExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	err = writeEntry(dst, in, info.Mode().Perm())
	in.Close()
	if err != nil {
		return err
	}
	return os.Remove(src)
}

// commonPrefix returns the leading path shared by every entry, or "" when
// the entries do not share one.
func commonPrefix(names []string) string {
	var prefix []string
	first := true
	for _, name := range names {
		parts := splitPath(name)
		if len(parts) == 0 {
			continue
		}
		if first {
			prefix = parts
			first = false
			continue
		}
		n := 0
		for n < len(prefix) && n < len(parts) && prefix[n] == parts[n] {
			n++
		}
		prefix = prefix[:n]
		if len(prefix) == 0 {
			return ""
		}
	}
	return filepath.Join(prefix...)
}

func splitPath(name string) []string {
	cleaned := filepath.ToSlash(filepath.Clean(name))
	var parts []string
	for _, p := range strings.Split(cleaned, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

// within reports whether path is strictly inside dir.
func within(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && !filepath.IsAbs(rel)
}

// removeWithin deletes path if it is strictly inside dir.
func removeWithin(path, dir string) error {
	if !within(path, dir) {
		return fmt.Errorf("refusing to remove %s outside %s", path, dir)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
