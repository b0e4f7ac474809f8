package imgset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bianoble/imgset/internal/codec"
	"github.com/bianoble/imgset/internal/format"
	"github.com/bianoble/imgset/internal/manifest"
)

const testConfig = `version: 1
source_dir: src
cache_dir: .cache
output:
  dir: dist
  name: "[path][name][scale].[ext]"
`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

var stubCodec = codec.Func(func(_ context.Context, src []byte, target format.Modern) ([]byte, error) {
	return append([]byte(target.Name+":"), src...), nil
})

// setupProject writes a config and a logo with a @2x sibling and returns
// the project directory.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "imgset.yaml"), []byte(testConfig))
	writeFile(t, filepath.Join(dir, "src", "logo.png"), pngBytes(t, 10, 6))
	writeFile(t, filepath.Join(dir, "src", "logo@2x.png"), pngBytes(t, 20, 12))
	return dir
}

func newTestClient(t *testing.T, dir string) *Client {
	t.Helper()
	client, err := New(Options{
		ConfigPath: filepath.Join(dir, "imgset.yaml"),
		Codec:      stubCodec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewDefaultPaths(t *testing.T) {
	dir := t.TempDir()
	client, err := New(Options{ConfigPath: filepath.Join(dir, "imgset.yaml")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.projectRoot != dir {
		t.Errorf("projectRoot = %q, want %q", client.projectRoot, dir)
	}
	if want := filepath.Join(dir, ".imgset", "manifest.yaml"); client.ManifestPath() != want {
		t.Errorf("ManifestPath = %q, want %q", client.ManifestPath(), want)
	}
	if _, ok := client.codec.(codec.Native); !ok {
		t.Errorf("codec = %T, want codec.Native", client.codec)
	}
}

func TestBuildWritesArtifactsAndManifest(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)

	result, err := client.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Assets) != 1 {
		t.Fatalf("assets = %d, want 1", len(result.Assets))
	}
	// 2 scales x (original, avif, webp) + module
	if len(result.Written) != 7 {
		t.Errorf("written = %d, want 7", len(result.Written))
	}

	d := result.Assets[0].Descriptor
	if d.URI != "/logo.png" || d.Width != 10 || d.Height != 6 {
		t.Errorf("descriptor = %+v", d)
	}

	avif, err := os.ReadFile(filepath.Join(dir, "dist", "logo@2x.avif"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(avif, []byte("avif:")) {
		t.Errorf("avif artifact = %q", avif[:8])
	}

	m, err := manifest.Load(client.ManifestPath())
	if err != nil {
		t.Fatalf("loading manifest: %v", err)
	}
	a, ok := m.Find("logo.png")
	if !ok {
		t.Fatal("manifest has no entry for logo.png")
	}
	if a.Module != "logo.png.js" || len(a.Artifacts) != 6 {
		t.Errorf("manifest entry = %+v", a)
	}

	entries, err := os.ReadDir(filepath.Join(dir, ".cache", "objects"))
	if err != nil || len(entries) == 0 {
		t.Errorf("cache not populated: %v", err)
	}
}

func TestBuildDryRunLeavesNoTrace(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)

	result, err := client.Build(context.Background(), BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, w := range result.Written {
		if w.Action != "planned" {
			t.Errorf("%s: action = %q, want planned", w.Path, w.Action)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dist exists after dry run: %v", err)
	}
	if _, err := os.Stat(client.ManifestPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("manifest exists after dry run: %v", err)
	}
}

func TestBuildThenPrune(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)
	ctx := context.Background()

	if _, err := client.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Without the @2x sibling the second build no longer produces the @2x
	// artifacts.
	if err := os.Remove(filepath.Join(dir, "src", "logo@2x.png")); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("second Build: %v", err)
	}

	m, err := manifest.Load(client.ManifestPath())
	if err != nil {
		t.Fatal(err)
	}
	wantStale := []string{"logo@2x.avif", "logo@2x.png", "logo@2x.webp"}
	if !slices.Equal(m.Stale, wantStale) {
		t.Fatalf("stale = %v, want %v", m.Stale, wantStale)
	}

	planned, err := client.Prune(ctx, PruneOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Prune dry run: %v", err)
	}
	if len(planned.Removed) != 3 {
		t.Errorf("planned = %v", planned.Removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "logo@2x.png")); err != nil {
		t.Errorf("dry run removed a file: %v", err)
	}

	result, err := client.Prune(ctx, PruneOptions{})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(result.Removed) != 3 {
		t.Errorf("removed = %v", result.Removed)
	}
	for _, p := range wantStale {
		if _, err := os.Stat(filepath.Join(dir, "dist", p)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "logo.png")); err != nil {
		t.Errorf("current artifact removed: %v", err)
	}

	m, err = manifest.Load(client.ManifestPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Stale) != 0 {
		t.Errorf("stale after prune = %v", m.Stale)
	}
}

func TestResolve(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)

	ar, err := client.Resolve(context.Background(), filepath.Join(dir, "src", "logo.png"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ar.Artifacts) != 6 {
		t.Errorf("artifacts = %d, want 6", len(ar.Artifacts))
	}
	if len(ar.Descriptor.Sources) != 3 || ar.Descriptor.Sources[0].Type != format.MimeAVIF {
		t.Errorf("sources = %+v", ar.Descriptor.Sources)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Resolve wrote output: %v", err)
	}
}

func TestResolveOutsideSourceDir(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)

	if _, err := client.Resolve(context.Background(), filepath.Join(dir, "imgset.yaml")); err == nil {
		t.Error("expected error for a file outside the source directory")
	}
}

func TestInfo(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)

	if _, err := client.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	info := client.Info("1.2.3")
	if info.Version != "1.2.3" || info.Assets != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.CacheDir != filepath.Join(dir, ".cache") || info.CacheEntries == 0 {
		t.Errorf("cache = %s (%d entries)", info.CacheDir, info.CacheEntries)
	}
	if len(info.Formats) != 2 {
		t.Errorf("formats = %v", info.Formats)
	}
}

func TestCleanCache(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)

	if _, err := client.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	cleaned, err := client.CleanCache()
	if err != nil {
		t.Fatalf("CleanCache: %v", err)
	}
	if cleaned != filepath.Join(dir, ".cache") {
		t.Errorf("cleaned %q", cleaned)
	}
	entries, err := os.ReadDir(filepath.Join(dir, ".cache", "objects"))
	if err != nil || len(entries) != 0 {
		t.Errorf("cache not empty: %v %v", entries, err)
	}
}

func TestBuildMissingConfig(t *testing.T) {
	client, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "imgset.yaml")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Build(context.Background(), BuildOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist", err)
	}
}
