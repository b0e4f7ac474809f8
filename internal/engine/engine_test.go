package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bianoble/imgset/internal/codec"
	"github.com/bianoble/imgset/internal/convert"
	"github.com/bianoble/imgset/internal/descriptor"
	"github.com/bianoble/imgset/internal/emit"
	"github.com/bianoble/imgset/internal/format"
	"github.com/bianoble/imgset/internal/naming"
	"github.com/bianoble/imgset/internal/resolve"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// taggingCodec prefixes the source with the target name, or fails for
// sources containing "broken".
var taggingCodec = codec.Func(func(_ context.Context, src []byte, target format.Modern) ([]byte, error) {
	if bytes.Contains(src, []byte("broken")) {
		return nil, &codec.EncodeError{Format: target.Name, Err: errors.New("bad pixels")}
	}
	return append([]byte(target.Name+":"), src...), nil
})

func newEngine(t *testing.T, srcDir, outDir string, dryRun bool) *BuildEngine {
	t.Helper()
	return &BuildEngine{
		Resolver: &resolve.Resolver{
			Converter: convert.New(taggingCodec),
			Formats:   format.AllEnabled(),
		},
		Emitter:   emit.New(emit.Options{Dir: outDir, Path: "static", Name: "[path][name][scale].[ext]", DryRun: dryRun}, nil),
		SourceDir: srcDir,
		OutputDir: outDir,
		Include:   []string{"**/*.{png,gif,svg}"},
		Scalings:  []int{1, 2, 3},
		Module:    descriptor.ModuleOptions{ESModule: true},
		ModuleExt: ".js",
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"logo.png":            []byte("1"),
		"logo@2x.png":         []byte("2"),
		"icons/star@2x.gif":   []byte("2"),
		"icons/star@3x.gif":   []byte("3"),
		"drafts/wip.png":      []byte("x"),
		"dist/static/old.png": []byte("x"),
		"bad@0x.png":          []byte("x"),
		"notes.txt":           []byte("x"),
	})

	assets, errs, err := Discover(root, []string{"**/*.{png,gif}"}, []string{"drafts/**"}, filepath.Join(root, "dist"))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2: %+v", len(assets), assets)
	}
	if assets[0].Primary != "icons/star@2x.gif" || len(assets[0].Scales) != 2 {
		t.Errorf("asset 0 = %+v", assets[0])
	}
	if assets[1].Primary != "logo.png" || assets[1].Scales[1] != 2 {
		t.Errorf("asset 1 = %+v", assets[1])
	}

	if len(errs) != 1 || errs[0].Asset != "bad@0x.png" || !errors.Is(errs[0], naming.ErrInvalidResourceName) {
		t.Errorf("errs = %v", errs)
	}
}

func TestBuildEngineBasic(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTree(t, src, map[string][]byte{
		"img/logo.png":    pngBytes(t, 64, 32),
		"img/logo@2x.png": pngBytes(t, 128, 64),
		"anim.gif":        gifBytes(t, 10, 10),
	})

	eng := newEngine(t, src, out, false)
	result, err := eng.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(result.Assets))
	}

	gifAsset, logo := result.Assets[0], result.Assets[1]
	if gifAsset.Source != "anim.gif" || len(gifAsset.Artifacts) != 1 {
		t.Errorf("gif asset = %+v", gifAsset)
	}
	if logo.Source != "img/logo.png" || len(logo.Artifacts) != 6 {
		t.Fatalf("logo asset = %+v", logo)
	}

	d := logo.Descriptor
	if d.URI != "/static/img/logo.png" || d.Width != 64 || d.Height != 32 {
		t.Errorf("descriptor = %+v", d)
	}
	if len(d.Sources) != 3 || d.Sources[0].Type != format.MimeAVIF {
		t.Fatalf("sources = %+v", d.Sources)
	}
	if d.Sources[0].SrcSet != "/static/img/logo.avif 1x, /static/img/logo@2x.avif 2x" {
		t.Errorf("avif srcSet = %q", d.Sources[0].SrcSet)
	}

	derived, err := os.ReadFile(filepath.Join(out, "static", "img", "logo@2x.webp"))
	if err != nil {
		t.Fatalf("reading derived artifact: %v", err)
	}
	if !bytes.HasPrefix(derived, []byte("webp:")) {
		t.Errorf("derived content = %q", derived[:10])
	}

	module, err := os.ReadFile(filepath.Join(out, "img", "logo.png.js"))
	if err != nil {
		t.Fatalf("reading module: %v", err)
	}
	if !strings.Contains(string(module), `export default new AdaptiveImage({`) {
		t.Errorf("module =\n%s", module)
	}

	// 7 artifacts + 2 modules.
	if len(result.Written) != 9 {
		t.Errorf("written = %d, want 9", len(result.Written))
	}

	// A second build changes nothing.
	again, err := eng.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Written) != 0 || len(again.Skipped) != 9 {
		t.Errorf("rebuild wrote %d, skipped %d", len(again.Written), len(again.Skipped))
	}
}

func TestBuildLogicalSizeFromHigherScale(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTree(t, src, map[string][]byte{"hero@2x.gif": gifBytes(t, 100, 50)})

	result, err := newEngine(t, src, out, false).Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	d := result.Assets[0].Descriptor
	if d.Width != 50 || d.Height != 25 {
		t.Errorf("size = %vx%v, want 50x25", d.Width, d.Height)
	}
}

func TestBuildCollectsAssetErrors(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTree(t, src, map[string][]byte{
		"good.gif":   gifBytes(t, 4, 4),
		"bad.png":    []byte("broken"),
		"bad@2x.png": pngBytes(t, 8, 8),
	})

	result, err := newEngine(t, src, out, false).Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build without fail-fast should not return an error: %v", err)
	}
	if len(result.Assets) != 1 || result.Assets[0].Source != "good.gif" {
		t.Errorf("assets = %+v", result.Assets)
	}
	if !result.Failed() || result.Errors[0].Asset != "bad.png" {
		t.Fatalf("errors = %v", result.Errors)
	}
	var convErr *convert.ConversionError
	if !errors.As(result.Errors[0], &convErr) {
		t.Errorf("error %v should unwrap to ConversionError", result.Errors[0])
	}
}

func TestBuildFailFast(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTree(t, src, map[string][]byte{"bad.png": []byte("broken")})

	_, err := newEngine(t, src, out, false).Build(context.Background(), BuildOptions{FailFast: true})
	var ae AssetError
	if !errors.As(err, &ae) || ae.Asset != "bad.png" {
		t.Errorf("error = %v, want AssetError for bad.png", err)
	}
}

func TestBuildOnly(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTree(t, src, map[string][]byte{"a.gif": gifBytes(t, 1, 1), "b.gif": gifBytes(t, 1, 1)})

	result, err := newEngine(t, src, out, false).Build(context.Background(), BuildOptions{Only: []string{"b.gif"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Assets) != 1 || result.Assets[0].Source != "b.gif" {
		t.Errorf("assets = %+v", result.Assets)
	}
}

func TestBuildDryRun(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "dist")
	writeTree(t, src, map[string][]byte{"a.gif": gifBytes(t, 2, 2)})

	result, err := newEngine(t, src, out, true).Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Written) != 2 {
		t.Fatalf("planned = %v", result.Written)
	}
	for _, fa := range result.Written {
		if fa.Action != "planned" {
			t.Errorf("action = %q, want planned", fa.Action)
		}
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("dry run must not create the output directory")
	}
}

func TestBuildSkipsOutputDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{"a.gif": gifBytes(t, 2, 2)})
	out := filepath.Join(root, "dist")

	eng := newEngine(t, root, out, false)
	if _, err := eng.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	// The emitted dist/static/a.gif must not become an asset.
	result, err := eng.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Assets) != 1 {
		t.Errorf("assets = %+v", result.Assets)
	}
}

func TestBuildCancelled(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string][]byte{"a.png": pngBytes(t, 2, 2)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newEngine(t, src, t.TempDir(), false)
	eng.Resolver.Converter = convert.New(codec.Func(func(ctx context.Context, src []byte, target format.Modern) ([]byte, error) {
		return nil, ctx.Err()
	}))
	if _, err := eng.Build(ctx, BuildOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestModulePath(t *testing.T) {
	if got := ModulePath("img/a.png", ".mjs"); got != "img/a.png.mjs" {
		t.Errorf("got %q", got)
	}
	if got := ModulePath("a.png", ""); got != "a.png.js" {
		t.Errorf("got %q", got)
	}
}
