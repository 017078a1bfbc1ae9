package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/config"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
)

// memorySource serves a single release per repository.
type memorySource struct {
	tags map[string]*release.Tag
}

func (m *memorySource) Info(_ context.Context, id release.Identity) (*release.RepoInfo, error) {
	if _, ok := m.tags[id.String()]; !ok {
		return nil, fmt.Errorf("%s: %w", id, release.ErrNotFound)
	}
	return &release.RepoInfo{
		Name:     id.String(),
		URL:      "https://github.com/" + id.String(),
		Language: "Go",
		Stars:    12345,
		Topics:   []string{"cli", "tools"},
	}, nil
}

func (m *memorySource) ReleaseTag(_ context.Context, id release.Identity, _ string) (*release.Tag, error) {
	tag, ok := m.tags[id.String()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, release.ErrNotFound)
	}
	return tag, nil
}

// publishRelease serves a linux/amd64 tarball holding one executable plus a
// checksums.txt, and returns the tag describing them.
func publishRelease(t *testing.T, exe, version string) *release.Tag {
	t.Helper()

	asset := fmt.Sprintf("%s-%s-linux-amd64.tar.gz", exe, version)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	body := "#!/bin/sh\necho " + version + "\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     exe + "-" + version + "/" + exe,
		Mode:     0o755,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	archive := buf.Bytes()

	sum := sha256.Sum256(archive)
	files := map[string][]byte{
		"/" + asset:         archive,
		"/checksums.txt":    []byte(hex.EncodeToString(sum[:]) + "  " + asset + "\n"),
		"/tool-windows.zip": []byte("other"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	published := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return &release.Tag{
		Name:        version,
		PublishedAt: &published,
		Assets: []release.Asset{
			{URL: srv.URL + "/" + asset},
			{URL: srv.URL + "/tool-windows.zip"},
			{URL: srv.URL + "/checksums.txt"},
		},
	}
}

// testApp returns an app pinned to linux/amd64 with no prompter or
// progress bar, using source for release lookups.
func testApp(t *testing.T, source service.Source) *app {
	t.Helper()
	fp, err := platform.Resolve("linux", "x86_64", "", nil)
	require.NoError(t, err)

	return &app{
		detector: platform.StaticDetector{Info: &platform.Info{Fingerprint: fp, Processor: "x86_64", Machine: "amd64"}},
		newSource: func(*config.Config, logging.Logger) (service.Source, error) {
			return source, nil
		},
	}
}

// run executes the command tree with args and returns stdout and stderr.
func run(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(a)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func findCommand(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	cmd, _, err := root.Find([]string{name})
	require.NoError(t, err)
	return cmd
}
