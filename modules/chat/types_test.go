package chat

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{name: "plain text", content: "hello", want: "hello"},
		{name: "surrounding whitespace trimmed", content: "  hello  ", want: "hello"},
		{name: "empty", content: "", wantErr: ErrEmptyMessage},
		{name: "whitespace only", content: " \t\n ", wantErr: ErrEmptyMessage},
		{name: "exactly max length", content: strings.Repeat("a", MaxMessageLength), want: strings.Repeat("a", MaxMessageLength)},
		{name: "over max length", content: strings.Repeat("a", MaxMessageLength+1), wantErr: ErrMessageTooLong},
		{name: "invalid utf8", content: "abc\xff", wantErr: ErrMessageInvalid},
		{name: "multibyte content", content: "こんにちは", want: "こんにちは"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateContent(tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateContent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateContent() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClampHistoryLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultHistoryLimit},
		{in: -5, want: DefaultHistoryLimit},
		{in: 10, want: 10},
		{in: MaxHistoryLimit, want: MaxHistoryLimit},
		{in: MaxHistoryLimit + 1, want: MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := ClampHistoryLimit(tt.in); got != tt.want {
			t.Errorf("ClampHistoryLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
