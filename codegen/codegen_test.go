package codegen

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNewAlphanumeric(t *testing.T) {
	gen := NewAlphanumeric()
	if gen == nil {
		t.Fatal("NewAlphanumeric() returned nil")
	}
}

func TestAlphanumericGenerator_Generate(t *testing.T) {
	t.Run("generates code of requested length", func(t *testing.T) {
		gen := NewAlphanumeric()

		for _, length := range []int{1, 6, 7, 8, 32} {
			code, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}
			if len(code) != length {
				t.Errorf("Generate(%d) returned length %d, want %d", length, len(code), length)
			}
		}
	})

	t.Run("default length code matches expected format", func(t *testing.T) {
		gen := NewAlphanumeric()

		for range 200 {
			code, err := gen.Generate(DefaultLength)
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if !regexp.MustCompile(`^[A-Za-z0-9]{6}$`).MatchString(code) {
				t.Fatalf("Generate() = %q, want 6 alphanumeric characters", code)
			}
		}
	})

	t.Run("generates only alphanumeric characters", func(t *testing.T) {
		gen := NewAlphanumeric()

		code, err := gen.Generate(500)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if !codePattern.MatchString(code) {
			t.Errorf("Generate() produced non-alphanumeric output: %q", code)
		}
	})

	t.Run("skips bytes that would bias the distribution", func(t *testing.T) {
		src := bytes.NewReader([]byte{255, 0, 1, 61, 248, 62})
		gen := NewAlphanumeric(WithSource(src))

		code, err := gen.Generate(3)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if code != "AB9" {
			t.Errorf("Generate() = %q, want %q", code, "AB9")
		}
	})

	t.Run("covers the whole alphabet", func(t *testing.T) {
		gen := NewAlphanumeric()
		seen := make(map[rune]bool)

		code, err := gen.Generate(20000)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		for _, c := range code {
			seen[c] = true
		}
		for _, c := range alphanumeric {
			if !seen[c] {
				t.Errorf("character %q never generated", c)
			}
		}
	})

	t.Run("returns error for non-positive length", func(t *testing.T) {
		gen := NewAlphanumeric()

		for _, length := range []int{0, -1} {
			_, err := gen.Generate(length)
			if err == nil {
				t.Fatalf("Generate(%d) expected error, got nil", length)
			}
			if err.Error() != "length must be positive" {
				t.Errorf("error message = %q, want %q", err.Error(), "length must be positive")
			}
		}
	})

	t.Run("returns error when the source fails", func(t *testing.T) {
		gen := NewAlphanumeric(WithSource(failingReader{}))

		_, err := gen.Generate(6)
		if err == nil {
			t.Fatal("Generate() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "entropy exhausted") {
			t.Errorf("error = %v, want wrapped source error", err)
		}
	})

	t.Run("returns error when the source runs dry", func(t *testing.T) {
		gen := NewAlphanumeric(WithSource(bytes.NewReader([]byte{1, 2})))

		if _, err := gen.Generate(6); err == nil {
			t.Fatal("Generate() expected error, got nil")
		}
	})

	t.Run("nil source keeps crypto/rand", func(t *testing.T) {
		gen := NewAlphanumeric(WithSource(nil))

		if _, err := gen.Generate(6); err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
	})

	t.Run("concurrent generation is safe", func(t *testing.T) {
		gen := NewAlphanumeric()
		const goroutines = 50
		const iterations = 100

		var wg sync.WaitGroup
		errCh := make(chan error, goroutines)

		for range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range iterations {
					code, err := gen.Generate(8)
					if err != nil {
						errCh <- err
						return
					}
					if len(code) != 8 {
						errCh <- errors.New("wrong length: " + code)
						return
					}
				}
			}()
		}

		wg.Wait()
		close(errCh)

		for err := range errCh {
			t.Errorf("concurrent Generate() error: %v", err)
		}
	})
}
