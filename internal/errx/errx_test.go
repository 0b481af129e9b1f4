package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestE(t *testing.T) {
	t.Run("returns nil when error is nil", func(t *testing.T) {
		got := E("op", NotFound, nil)
		if got != nil {
			t.Errorf("E() with nil error = %v, want nil", got)
		}
	})

	t.Run("constructs Error with all fields", func(t *testing.T) {
		root := errors.New("root cause")
		err := E("shortener.repo.GetByCode", NotFound, root)

		var e *Error
		if !errors.As(err, &e) {
			t.Fatal("expected error to be of type *errx.Error")
		}

		if got, want := e.Op, "shortener.repo.GetByCode"; got != want {
			t.Errorf("Op = %q, want %q", got, want)
		}
		if got, want := e.Kind, NotFound; got != want {
			t.Errorf("Kind = %v, want %v", got, want)
		}
		if !errors.Is(e.Err, root) {
			t.Errorf("Err = %v, want %v", e.Err, root)
		}
	})

	t.Run("preserves all error kinds", func(t *testing.T) {
		kinds := []Kind{Unknown, NotFound, Conflict, Invalid, Internal}
		root := errors.New("test error")

		for _, kind := range kinds {
			t.Run(fmt.Sprintf("kind_%d", kind), func(t *testing.T) {
				err := E("operation", kind, root)
				if got := KindOf(err); got != kind {
					t.Errorf("KindOf() = %v, want %v", got, kind)
				}
			})
		}
	})
}

func TestWrap(t *testing.T) {
	t.Run("keeps the inner kind", func(t *testing.T) {
		inner := E("shortener.repo.Create", Conflict, errors.New("duplicate"))
		outer := Wrap("shortener.service.Create", inner)

		if got := KindOf(outer); got != Conflict {
			t.Errorf("KindOf() = %v, want %v", got, Conflict)
		}
		if got := OpOf(outer); got != "shortener.service.Create" {
			t.Errorf("OpOf() = %q, want %q", got, "shortener.service.Create")
		}
	})

	t.Run("plain errors become Unknown", func(t *testing.T) {
		err := Wrap("op", errors.New("boom"))
		if got := KindOf(err); got != Unknown {
			t.Errorf("KindOf() = %v, want %v", got, Unknown)
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := Wrap("op", nil); err != nil {
			t.Errorf("Wrap(nil) = %v, want nil", err)
		}
	})
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "nil inner error returns op",
			err:  &Error{Op: "handler.Redirect", Kind: NotFound, Err: nil},
			want: "handler.Redirect",
		},
		{
			name: "empty op returns inner error message",
			err:  &Error{Op: "", Kind: Unknown, Err: errors.New("root cause")},
			want: "root cause",
		},
		{
			name: "normal case formats op and error",
			err:  &Error{Op: "service.RecordClick", Kind: NotFound, Err: errors.New("root cause")},
			want: "service.RecordClick: root cause",
		},
		{
			name: "both empty returns empty op",
			err:  &Error{Op: "", Kind: Unknown, Err: nil},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Run("unwraps to inner error", func(t *testing.T) {
		root := errors.New("root")
		err := E("repo.GetByCode", NotFound, root)

		if !errors.Is(err, root) {
			t.Error("errors.Is() failed to identify root error through unwrapping")
		}
	})

	t.Run("supports nested wrapping", func(t *testing.T) {
		root := errors.New("database error")
		layer1 := E("repo.Query", Internal, root)
		layer2 := Wrap("service.Get", layer1)
		layer3 := Wrap("handler.Handle", layer2)

		if !errors.Is(layer3, root) {
			t.Error("errors.Is() failed with deeply nested errors")
		}
	})

	t.Run("returns nil when Err is nil", func(t *testing.T) {
		err := &Error{Op: "test", Kind: Unknown, Err: nil}
		if unwrapped := err.Unwrap(); unwrapped != nil {
			t.Errorf("Unwrap() = %v, want nil", unwrapped)
		}
	})
}

func TestKindOf(t *testing.T) {
	t.Run("returns Unknown for standard error", func(t *testing.T) {
		if got := KindOf(errors.New("standard error")); got != Unknown {
			t.Errorf("KindOf() = %v, want %v", got, Unknown)
		}
	})

	t.Run("returns Unknown for nil error", func(t *testing.T) {
		if got := KindOf(nil); got != Unknown {
			t.Errorf("KindOf(nil) = %v, want %v", got, Unknown)
		}
	})

	t.Run("extracts kind through wrapping chain", func(t *testing.T) {
		repo := E("repo.GetByCode", NotFound, errors.New("root"))
		service := Wrap("service.Get", repo)
		handler := Wrap("handler.Get", service)

		if got := KindOf(handler); got != NotFound {
			t.Errorf("KindOf() = %v, want %v", got, NotFound)
		}
	})

	t.Run("finds kind through fmt.Errorf wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", E("operation", Invalid, errors.New("bad")))
		if got := KindOf(err); got != Invalid {
			t.Errorf("KindOf() = %v, want %v", got, Invalid)
		}
	})
}

func TestIs(t *testing.T) {
	err := E("op", Conflict, errors.New("duplicate"))

	if !Is(err, Conflict) {
		t.Error("Is(err, Conflict) = false, want true")
	}
	if Is(err, NotFound) {
		t.Error("Is(err, NotFound) = true, want false")
	}
	if Is(nil, Unknown) {
		t.Error("Is(nil, Unknown) = true, want false")
	}
}

func TestOpOf(t *testing.T) {
	t.Run("returns empty for standard error", func(t *testing.T) {
		if got := OpOf(errors.New("standard error")); got != "" {
			t.Errorf("OpOf() = %q, want empty string", got)
		}
	})

	t.Run("returns empty for nil error", func(t *testing.T) {
		if got := OpOf(nil); got != "" {
			t.Errorf("OpOf(nil) = %q, want empty string", got)
		}
	})

	t.Run("extracts outermost op from chain", func(t *testing.T) {
		repo := E("repo.GetByCode", NotFound, errors.New("root"))
		service := Wrap("service.Get", repo)

		if got, want := OpOf(service), "service.Get"; got != want {
			t.Errorf("OpOf() = %q, want %q", got, want)
		}
	})
}

func TestMessageOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "plain error",
			err:  errors.New("plain"),
			want: "plain",
		},
		{
			name: "strips op prefixes from the chain",
			err:  Wrap("service.Create", E("validate", Invalid, errors.New("Valid target URL is required."))),
			want: "Valid target URL is required.",
		},
		{
			name: "innermost errx without cause returns its op",
			err:  Wrap("outer", &Error{Op: "inner", Kind: Invalid}),
			want: "inner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageOf(tt.err); got != tt.want {
				t.Errorf("MessageOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Unknown, "Unknown"},
		{NotFound, "NotFound"},
		{Conflict, "Conflict"},
		{Invalid, "Invalid"},
		{Internal, "Internal"},
		{Kind(99), "Kind(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("Kind.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
