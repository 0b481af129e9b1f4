// Package codegen provides short code generation.
// Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLength is the code length used when callers have no preference.
	DefaultLength = 6

	// maxUnbiased is the largest multiple of len(alphanumeric) that fits in a byte.
	// Bytes at or above it are discarded so every character is equally likely.
	maxUnbiased = 256 - (256 % len(alphanumeric))
)

// Generator generates random short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// alphanumericGenerator draws characters uniformly from [A-Za-z0-9].
type alphanumericGenerator struct {
	src io.Reader
}

// Option configures an alphanumeric generator.
type Option func(*alphanumericGenerator)

// WithSource replaces crypto/rand as the randomness source.
// The reader must be safe for concurrent use if the generator is shared.
func WithSource(r io.Reader) Option {
	return func(g *alphanumericGenerator) {
		if r != nil {
			g.src = r
		}
	}
}

// NewAlphanumeric returns a generator over [A-Za-z0-9].
func NewAlphanumeric(opts ...Option) Generator {
	g := &alphanumericGenerator{src: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a random string of the given length.
func (g *alphanumericGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)

	for len(out) < length {
		n, err := io.ReadFull(g.src, buf)
		if err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf[:n] {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
