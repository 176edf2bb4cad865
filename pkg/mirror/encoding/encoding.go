// Package encoding translates path names between the operating-system locale
// encoding and UTF-8. The manifest persists names as UTF-8 octets regardless
// of the locale, so every name crosses this boundary exactly once in each
// direction.
//
// The codec is selected once at program start from the environment and is
// immutable afterwards; concurrent readers are safe. On UTF-8 locales both
// directions are the identity and perform no allocation.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrEncoding indicates that a name cannot round-trip through the configured
// locale encoding.
var ErrEncoding = errors.New("name not representable in locale encoding")

// ErrUnknownCharset indicates that the locale names a charset the converter
// does not know.
var ErrUnknownCharset = errors.New("unknown locale charset")

type codec struct {
	charset  string
	identity bool
	enc      encoding.Encoding
}

var active atomic.Pointer[codec]

// identityHits counts conversions that took the zero-copy identity path.
// Exposed for tests of the no-allocation guarantee.
var identityHits atomic.Int64

func init() {
	// A usable default until Init runs (tests, library use).
	active.Store(&codec{charset: "UTF-8", identity: true})
}

// Init resolves the locale charset from the environment (LC_ALL, LC_CTYPE,
// LANG, in that order) and installs the matching converter. It is called once
// at program start; later calls replace the converter wholesale.
func Init() error {
	return InitCharset(localeCharset())
}

// InitCharset installs the converter for an explicit charset name.
func InitCharset(charset string) error {
	if isUTF8(charset) {
		active.Store(&codec{charset: "UTF-8", identity: true})
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCharset, charset)
	}
	active.Store(&codec{charset: charset, enc: enc})
	return nil
}

// Charset returns the charset the converter was initialized with.
func Charset() string {
	return active.Load().charset
}

// IdentityHits returns the number of conversions served by the zero-copy
// identity path since process start.
func IdentityHits() int64 {
	return identityHits.Load()
}

// toUTF8 converts a name from the locale encoding to UTF-8. On UTF-8 locales
// the input slice is returned as-is.
func (c *codec) toUTF8(name []byte) ([]byte, error) {
	if c.identity {
		identityHits.Add(1)
		return name, nil
	}
	out, err := c.enc.NewDecoder().Bytes(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrEncoding, name, err)
	}
	// x/text decoders substitute undecodable bytes instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(name, utf8.RuneError) {
		return nil, fmt.Errorf("%w: %q", ErrEncoding, name)
	}
	return out, nil
}

func (c *codec) fromUTF8(name []byte) ([]byte, error) {
	if c.identity {
		identityHits.Add(1)
		return name, nil
	}
	if !utf8.Valid(name) {
		return nil, fmt.Errorf("%w: %q", ErrEncoding, name)
	}
	out, err := c.enc.NewEncoder().Bytes(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrEncoding, name, err)
	}
	return out, nil
}

// ToUTF8 converts a name from the locale encoding to UTF-8.
// Callers must not assume the result is a distinct allocation.
func ToUTF8(name []byte) ([]byte, error) {
	return active.Load().toUTF8(name)
}

// FromUTF8 converts a UTF-8 name back to the locale encoding.
func FromUTF8(name []byte) ([]byte, error) {
	return active.Load().fromUTF8(name)
}

// localeCharset extracts the charset from the usual locale variables.
// "en_US.UTF-8" yields "UTF-8"; the C and POSIX locales, and an unset
// environment, are treated as UTF-8 since that is what every supported
// platform actually stores on disk.
func localeCharset() string {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if v == "C" || v == "POSIX" {
			return "UTF-8"
		}
		if i := strings.IndexByte(v, '.'); i >= 0 {
			cs := v[i+1:]
			if j := strings.IndexByte(cs, '@'); j >= 0 {
				cs = cs[:j]
			}
			return cs
		}
		return "UTF-8"
	}
	return "UTF-8"
}

func isUTF8(charset string) bool {
	switch strings.ToUpper(charset) {
	case "UTF-8", "UTF8":
		return true
	}
	return false
}
