package internal

import (
	"strings"
	"testing"
)

func TestNewOTPWidthAndAlphabet(t *testing.T) {
	for digits := MinOTPDigits; digits <= MaxOTPDigits; digits++ {
		code, err := NewOTP(digits)
		if err != nil {
			t.Fatalf("NewOTP(%d) failed: %v", digits, err)
		}
		if len(code) != digits || !isNumeric(code) {
			t.Fatalf("NewOTP(%d) returned %q", digits, code)
		}
	}
}

func TestNewOTPRejectsWidthOutOfRange(t *testing.T) {
	for _, digits := range []int{0, 3, 11} {
		if _, err := NewOTP(digits); err == nil {
			t.Fatalf("expected NewOTP(%d) to fail", digits)
		}
	}
}

func TestNewOTPVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := NewOTP(8)
		if err != nil {
			t.Fatalf("NewOTP failed: %v", err)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 45 {
		t.Fatalf("expected mostly distinct codes, got %d distinct of 50", len(seen))
	}
}

func TestSecretKeyStable(t *testing.T) {
	a := SecretKey("token")
	if a != SecretKey("token") || a == SecretKey("token2") {
		t.Fatal("expected SecretKey to be deterministic and input-sensitive")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func TestMaskChannel(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"alice@example.com": "a***@example.com",
		"@example.com":      "***@example.com",
		"+15550100":         "+1*****00",
		"123":               "***",
	}
	for in, want := range cases {
		if got := MaskChannel(in); got != want {
			t.Fatalf("MaskChannel(%q) = %q, want %q", in, got, want)
		}
	}
	if strings.Contains(MaskChannel("+447700900123"), "900") {
		t.Fatal("expected middle digits to be masked")
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
