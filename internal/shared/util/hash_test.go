package util

import (
	"errors"
	"strings"
	"testing"
)

func TestHashOwnerKey(t *testing.T) {
	owner := TenantOwner(42)
	if owner != "tenant:42" {
		t.Fatalf("unexpected owner %q", owner)
	}
	got := HashOwnerKey(owner)
	if got != HashOwnerKey(owner) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashOwnerKey(TenantOwner(43)) {
		t.Fatalf("expected distinct tenants to hash differently")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "care plan.docx", want: "care plan.docx"},
		{in: "  notes/march\\2025.pdf ", want: "notes_march_2025.pdf"},
		{in: "plan\x00\t.csv", want: "plan.csv"},
		{in: "../etc/passwd", err: true},
		{in: "   ", err: true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidFileName) {
				t.Fatalf("SanitizeFileName(%q): expected ErrInvalidFileName, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}

	long, err := SanitizeFileName(strings.Repeat("a", 300) + ".docx")
	if err != nil {
		t.Fatalf("long name: %v", err)
	}
	if len(long) != 255 || !strings.HasSuffix(long, ".docx") {
		t.Fatalf("expected 255-byte name keeping extension, got %d %q", len(long), long[len(long)-8:])
	}
}

func TestTruncateUTF8(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{in: "Zoë", max: 10, want: "Zoë"},
		{in: "Zoë", max: 3, want: "Zo"},
		{in: "Zoë", max: 4, want: "Zoë"},
		{in: "日本", max: 4, want: "日"},
		{in: "abc", max: 0, want: ""},
	}
	for _, tc := range cases {
		if got := TruncateUTF8(tc.in, tc.max); got != tc.want {
			t.Fatalf("TruncateUTF8(%q, %d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
