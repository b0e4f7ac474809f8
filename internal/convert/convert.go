// Package convert derives modern-format copies of source images and caches
// the results by content.
package convert

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/bianoble/imgset/internal/cache"
	"github.com/bianoble/imgset/internal/codec"
	"github.com/bianoble/imgset/internal/format"
)

// Store is the durable key-value store behind a Converter.
// A store that cannot be read or written reports errors; the Converter treats
// them as misses.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// digestFn is swapped in tests to count hash computations.
var digestFn = digest.FromBytes

// Buffer pairs image bytes with their content digest. The digest is computed
// at most once per Buffer.
type Buffer struct {
	data   []byte
	once   sync.Once
	digest digest.Digest
}

// NewBuffer wraps data. The caller must not modify data afterwards.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the wrapped bytes.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Digest returns the sha256 digest of the wrapped bytes.
func (b *Buffer) Digest() digest.Digest {
	b.once.Do(func() {
		b.digest = digestFn(b.data)
	})
	return b.digest
}

// CacheKey returns the store key for d converted to f.
func CacheKey(d digest.Digest, f format.Modern) string {
	sum, err := hex.DecodeString(d.Encoded())
	if err != nil {
		// go-digest only produces hex encodings; fall back to the raw string.
		return d.Encoded() + "." + f.Ext
	}
	return cache.Key(sum, f.Ext)
}

// ConversionError reports a failed derivation into Format.
type ConversionError struct {
	Format string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion to %s failed: %v", e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Converter converts buffers into modern formats through a codec, consulting
// a Store first. A Converter without a store always invokes the codec.
type Converter struct {
	codec codec.Codec
	store Store
	log   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithStore sets the durable store.
func WithStore(s Store) Option {
	return func(c *Converter) {
		c.store = s
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Converter that encodes with cd.
func New(cd codec.Codec, opts ...Option) *Converter {
	c := &Converter{
		codec: cd,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert returns buf encoded as target. Stored results are returned without
// invoking the codec; fresh results are stored before returning. Store errors
// never fail a conversion.
func (c *Converter) Convert(ctx context.Context, buf *Buffer, target format.Modern) ([]byte, error) {
	if c.store == nil {
		return c.encode(ctx, buf, target)
	}

	key := CacheKey(buf.Digest(), target)
	data, found, err := c.store.Get(key)
	if err != nil {
		c.log.Debug("cache read failed", "key", key, "err", err)
	} else if found {
		c.log.Debug("cache hit", "key", key)
		return data, nil
	}

	out, err := c.encode(ctx, buf, target)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(key, out); err != nil {
		c.log.Debug("cache write failed", "key", key, "err", err)
	}
	return out, nil
}

func (c *Converter) encode(ctx context.Context, buf *Buffer, target format.Modern) ([]byte, error) {
	out, err := c.codec.Encode(ctx, buf.Bytes(), target)
	if err != nil {
		return nil, &ConversionError{Format: target.Name, Err: err}
	}
	return out, nil
}
