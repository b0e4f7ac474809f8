package convert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/bianoble/imgset/internal/cache"
	"github.com/bianoble/imgset/internal/codec"
	"github.com/bianoble/imgset/internal/format"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (brokenStore) Put(string, []byte) error         { return errors.New("disk gone") }

func countingCodec(calls *atomic.Int32) codec.Codec {
	return codec.Func(func(_ context.Context, src []byte, target format.Modern) ([]byte, error) {
		calls.Add(1)
		return append([]byte(target.Name+":"), src...), nil
	})
}

func TestConvertCachesResult(t *testing.T) {
	var calls atomic.Int32
	c := New(countingCodec(&calls), WithStore(newMemStore()))
	buf := NewBuffer([]byte("pixels"))

	first, err := c.Convert(context.Background(), buf, format.WebP)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	second, err := c.Convert(context.Background(), buf, format.WebP)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("codec called %d times, want 1", calls.Load())
	}
	if string(first) != "webp:pixels" || string(second) != string(first) {
		t.Errorf("results = %q, %q", first, second)
	}
}

func TestConvertIdenticalContentSharesEntry(t *testing.T) {
	var calls atomic.Int32
	c := New(countingCodec(&calls), WithStore(newMemStore()))

	if _, err := c.Convert(context.Background(), NewBuffer([]byte("same")), format.AVIF); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Convert(context.Background(), NewBuffer([]byte("same")), format.AVIF); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("codec called %d times, want 1", calls.Load())
	}

	if CacheKey(NewBuffer([]byte("same")).Digest(), format.AVIF) != CacheKey(NewBuffer([]byte("same")).Digest(), format.AVIF) {
		t.Error("identical content must produce identical keys")
	}
}

func TestConvertPerFormatEntries(t *testing.T) {
	var calls atomic.Int32
	c := New(countingCodec(&calls), WithStore(newMemStore()))
	buf := NewBuffer([]byte("pixels"))

	for _, f := range format.ModernFormats(format.AllEnabled()) {
		if _, err := c.Convert(context.Background(), buf, f); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("codec called %d times, want 2", calls.Load())
	}
}

func TestConvertWithoutStore(t *testing.T) {
	var calls atomic.Int32
	c := New(countingCodec(&calls))
	buf := NewBuffer([]byte("pixels"))

	for range 2 {
		if _, err := c.Convert(context.Background(), buf, format.WebP); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("codec called %d times, want 2", calls.Load())
	}
}

func TestConvertStoreErrorsAreMisses(t *testing.T) {
	var calls atomic.Int32
	c := New(countingCodec(&calls), WithStore(brokenStore{}))

	out, err := c.Convert(context.Background(), NewBuffer([]byte("p")), format.WebP)
	if err != nil {
		t.Fatalf("store errors must not fail conversion: %v", err)
	}
	if string(out) != "webp:p" {
		t.Errorf("out = %q", out)
	}
}

func TestConvertCodecFailure(t *testing.T) {
	boom := &codec.EncodeError{Format: "avif", Err: errors.New("boom")}
	store := newMemStore()
	c := New(codec.Func(func(context.Context, []byte, format.Modern) ([]byte, error) {
		return nil, boom
	}), WithStore(store))

	_, err := c.Convert(context.Background(), NewBuffer([]byte("p")), format.AVIF)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("error = %v, want ConversionError", err)
	}
	if convErr.Format != "avif" {
		t.Errorf("format = %q", convErr.Format)
	}
	var encErr *codec.EncodeError
	if !errors.As(err, &encErr) {
		t.Error("ConversionError should unwrap to the codec error")
	}
	if len(store.data) != 0 {
		t.Error("failed conversions must not be stored")
	}
}

func TestBufferDigestMemoized(t *testing.T) {
	var hashes int
	orig := digestFn
	digestFn = func(p []byte) digest.Digest {
		hashes++
		return orig(p)
	}
	defer func() { digestFn = orig }()

	buf := NewBuffer([]byte("once"))
	d1 := buf.Digest()
	d2 := buf.Digest()

	if hashes != 1 {
		t.Errorf("hashed %d times, want 1", hashes)
	}
	if d1 != d2 || d1.Algorithm() != digest.SHA256 {
		t.Errorf("digests = %s, %s", d1, d2)
	}
}

func TestCacheKeyFormat(t *testing.T) {
	d := digest.FromBytes([]byte("abc"))
	key := CacheKey(d, format.WebP)
	if !strings.HasSuffix(key, ".webp") {
		t.Errorf("key = %q", key)
	}
	if strings.Contains(key, d.Encoded()) {
		t.Error("key should use base64url, not hex")
	}
}

func TestConvertWithDiskCache(t *testing.T) {
	store, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	buf := NewBuffer([]byte("disk"))

	if _, err := New(countingCodec(&calls), WithStore(store)).Convert(context.Background(), buf, format.AVIF); err != nil {
		t.Fatal(err)
	}
	// A fresh converter over the same directory sees the entry.
	out, err := New(countingCodec(&calls), WithStore(store)).Convert(context.Background(), NewBuffer([]byte("disk")), format.AVIF)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 || string(out) != "avif:disk" {
		t.Errorf("calls = %d, out = %q", calls.Load(), out)
	}
}
