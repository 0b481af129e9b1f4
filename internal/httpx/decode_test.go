package httpx

import (
	"net/http/httptest"
	"strings"
	"testing"
)

type createPayload struct {
	TargetURL  string `json:"targetUrl"`
	CustomCode string `json:"customCode"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     string
		want        createPayload
	}{
		{
			name:        "valid body",
			body:        `{"targetUrl":"https://example.com","customCode":"abc123"}`,
			contentType: "application/json",
			want:        createPayload{TargetURL: "https://example.com", CustomCode: "abc123"},
		},
		{
			name:        "null custom code decodes as empty",
			body:        `{"targetUrl":"https://example.com","customCode":null}`,
			contentType: "application/json; charset=utf-8",
			want:        createPayload{TargetURL: "https://example.com"},
		},
		{
			name: "missing content type is accepted",
			body: `{"targetUrl":"https://example.com"}`,
			want: createPayload{TargetURL: "https://example.com"},
		},
		{
			name:        "wrong content type",
			body:        `targetUrl=https://example.com`,
			contentType: "application/x-www-form-urlencoded",
			wantErr:     "content type must be application/json",
		},
		{
			name:        "empty body",
			body:        "",
			contentType: "application/json",
			wantErr:     "request body is empty",
		},
		{
			name:        "syntax error",
			body:        `{"targetUrl" "https://example.com"}`,
			contentType: "application/json",
			wantErr:     "malformed JSON at position",
		},
		{
			name:        "truncated body",
			body:        `{"targetUrl":`,
			contentType: "application/json",
			wantErr:     "unexpected end of body",
		},
		{
			name:        "wrong field type",
			body:        `{"targetUrl":42}`,
			contentType: "application/json",
			wantErr:     `invalid value for field "targetUrl"`,
		},
		{
			name:        "unknown field",
			body:        `{"targetUrl":"https://example.com","title":"x"}`,
			contentType: "application/json",
			wantErr:     "unknown field",
		},
		{
			name:        "trailing object",
			body:        `{"targetUrl":"https://a.example"}{"targetUrl":"https://b.example"}`,
			contentType: "application/json",
			wantErr:     "multiple JSON objects",
		},
		{
			name:        "oversized body",
			body:        `{"targetUrl":"https://example.com/` + strings.Repeat("a", MaxRequestBodySize) + `"}`,
			contentType: "application/json",
			wantErr:     "request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/links", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			got, err := DecodeJSON[createPayload](httptest.NewRecorder(), req)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("DecodeJSON() expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("DecodeJSON() error = %q, want it to contain %q", err.Error(), tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeJSON() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
