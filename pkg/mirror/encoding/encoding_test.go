package encoding

import (
	"bytes"
	"errors"
	"testing"
)

// TestIdentityNoCopy verifies that the UTF-8 path returns the input slice
// itself and counts the hit, so in-range conversions allocate nothing.
func TestIdentityNoCopy(t *testing.T) {
	if err := InitCharset("UTF-8"); err != nil {
		t.Fatalf("InitCharset: %v", err)
	}

	in := []byte("fö/ö.txt")
	before := IdentityHits()

	out, err := ToUTF8(in)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if &out[0] != &in[0] {
		t.Error("ToUTF8 copied on the identity path")
	}

	out, err = FromUTF8(in)
	if err != nil {
		t.Fatalf("FromUTF8: %v", err)
	}
	if &out[0] != &in[0] {
		t.Error("FromUTF8 copied on the identity path")
	}

	if got := IdentityHits() - before; got != 2 {
		t.Errorf("identity hits: got %d, want 2", got)
	}
}

// TestTranscodeRoundTrip verifies the non-identity path on a single-byte
// charset.
func TestTranscodeRoundTrip(t *testing.T) {
	if err := InitCharset("ISO-8859-1"); err != nil {
		t.Fatalf("InitCharset: %v", err)
	}
	defer func() { _ = InitCharset("UTF-8") }()

	latin := []byte{'f', 0xE9, '.', 't', 'x', 't'} // "fé.txt" in Latin-1

	u8, err := ToUTF8(latin)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if want := []byte("fé.txt"); !bytes.Equal(u8, want) {
		t.Fatalf("ToUTF8 = %q, want %q", u8, want)
	}

	back, err := FromUTF8(u8)
	if err != nil {
		t.Fatalf("FromUTF8: %v", err)
	}
	if !bytes.Equal(back, latin) {
		t.Errorf("round trip = %x, want %x", back, latin)
	}
}

// TestFromUTF8Invalid verifies that malformed UTF-8 cannot cross the
// boundary toward the locale.
func TestFromUTF8Invalid(t *testing.T) {
	if err := InitCharset("ISO-8859-1"); err != nil {
		t.Fatalf("InitCharset: %v", err)
	}
	defer func() { _ = InitCharset("UTF-8") }()

	if _, err := FromUTF8([]byte{0xFF, 0xFE}); !errors.Is(err, ErrEncoding) {
		t.Errorf("got %v, want ErrEncoding", err)
	}
}

// TestUnknownCharset verifies initialization failure for unknown locales.
func TestUnknownCharset(t *testing.T) {
	if err := InitCharset("NO-SUCH-CHARSET"); !errors.Is(err, ErrUnknownCharset) {
		t.Errorf("got %v, want ErrUnknownCharset", err)
	}
	// The previous converter must remain installed.
	if _, err := ToUTF8([]byte("x")); err != nil {
		t.Errorf("converter lost after failed init: %v", err)
	}
}

// TestLocaleCharset verifies charset extraction from locale values.
func TestLocaleCharset(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"LC_ALL": "en_US.UTF-8"}, "UTF-8"},
		{map[string]string{"LANG": "ru_RU.KOI8-R"}, "KOI8-R"},
		{map[string]string{"LC_CTYPE": "de_DE.ISO-8859-1@euro"}, "ISO-8859-1"},
		{map[string]string{"LANG": "C"}, "UTF-8"},
		{map[string]string{"LANG": "en_US"}, "UTF-8"},
		{map[string]string{}, "UTF-8"},
	}

	for _, tt := range tests {
		for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
			t.Setenv(key, tt.env[key])
		}
		if got := localeCharset(); got != tt.want {
			t.Errorf("env %v: got %q, want %q", tt.env, got, tt.want)
		}
	}
}
