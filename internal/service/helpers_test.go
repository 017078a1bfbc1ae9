package service

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/binary"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/config"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/metadata"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/testutil"
)

var (
	t1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

// fakeSource serves repository info and tags from memory.
type fakeSource struct {
	mu    sync.Mutex
	tags  map[string]map[string]*release.Tag
	fails map[string]error
	calls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{tags: map[string]map[string]*release.Tag{}, fails: map[string]error{}}
}

func (f *fakeSource) setTag(repo, name string, tag *release.Tag) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tags[repo] == nil {
		f.tags[repo] = map[string]*release.Tag{}
	}
	f.tags[repo][name] = tag
}

func (f *fakeSource) Info(_ context.Context, id release.Identity) (*release.RepoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fails[id.String()]; err != nil {
		return nil, err
	}
	return &release.RepoInfo{Name: id.String(), URL: "https://github.com/" + id.String()}, nil
}

func (f *fakeSource) ReleaseTag(_ context.Context, id release.Identity, tag string) (*release.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fails[id.String()]; err != nil {
		return nil, err
	}
	t, ok := f.tags[id.String()][tag]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", id, tag, release.ErrNotFound)
	}
	return t, nil
}

// fakePrompter answers every confirmation with answer.
type fakePrompter struct {
	answer   bool
	patterns []string
	prompts  []string
}

func (p *fakePrompter) Confirm(_ context.Context, prompt string) (bool, error) {
	p.prompts = append(p.prompts, prompt)
	return p.answer, nil
}

func (p *fakePrompter) AskPattern(_ context.Context, _ []string) (string, error) {
	if len(p.patterns) == 0 {
		return "", fmt.Errorf("no pattern")
	}
	next := p.patterns[0]
	p.patterns = p.patterns[1:]
	return next, nil
}

// assetServer serves release files from memory.
type assetServer struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string][]byte
}

func newAssetServer(t *testing.T) *assetServer {
	t.Helper()
	s := &assetServer{files: map[string][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body, ok := s.files[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *assetServer) put(path string, body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = body
	return s.URL + path
}

// publish registers a release of repo whose asset holds one executable
// named exe under a versioned prefix, plus a checksums.txt.
func (s *assetServer) publish(t *testing.T, src *fakeSource, repo, exe, version string, published time.Time, aliases ...string) *release.Tag {
	t.Helper()
	asset := fmt.Sprintf("%s-%s-linux-amd64.tar.gz", exe, version)
	archive := tarGz(t, map[string]string{
		fmt.Sprintf("%s-%s/%s", exe, version, exe):   "#!/bin/sh\necho " + version + "\n",
		fmt.Sprintf("%s-%s/README.md", exe, version): "docs",
	})
	sum := sha256.Sum256(archive)

	prefix := "/" + repo + "/releases/download/" + version + "/"
	tag := &release.Tag{
		Name:        version,
		PublishedAt: &published,
		Assets: []release.Asset{
			{URL: s.put(prefix+asset, archive)},
			{URL: s.put(prefix+exe+"-"+version+"-darwin-arm64.tar.gz", []byte("other"))},
			{URL: s.put(prefix+"checksums.txt", []byte(hex.EncodeToString(sum[:])+"  "+asset+"\n"))},
		},
	}
	src.setTag(repo, version, tag)
	for _, alias := range aliases {
		src.setTag(repo, alias, tag)
	}
	return tag
}

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, body := range files {
		mode := int64(0o644)
		if filepath.Ext(name) == "" {
			mode = 0o755
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: mode, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type harness struct {
	env     *testutil.Env
	cfg     *config.Config
	store   *metadata.Store
	source  *fakeSource
	server  *assetServer
	clock   TestClock
	manager *Manager
}

func newHarness(t *testing.T, prompter Prompter) *harness {
	t.Helper()
	env := testutil.SetupTestEnv(t)
	cfg := &config.Config{
		LogLevel:    "debug",
		BinDir:      env.BinDir,
		CacheDir:    env.CacheDir,
		DataDir:     env.DataDir,
		MetadataDir: env.MetadataDir,
		UserAgent:   "getrelease-test",
	}
	fp, err := platform.Resolve("linux", "x86_64", "", nil)
	require.NoError(t, err)

	h := &harness{
		env:    env,
		cfg:    cfg,
		store:  metadata.NewStore(env.MetadataDir, nil),
		source: newFakeSource(),
		server: newAssetServer(t),
		clock:  TestClock{FixedTime: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.manager = NewManager(cfg, fp, h.source, h.store, prompter, h.clock, nil,
		WithDownloadOptions(binary.WithRetries(0, time.Millisecond)))
	return h
}

// snapshot records every path under root with its mode, size and mtime.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out[path] = fmt.Sprintf("%s %d %d", info.Mode(), info.Size(), info.ModTime().UnixNano())
		return nil
	})
	require.NoError(t, err)
	return out
}
