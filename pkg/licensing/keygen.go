package licensing

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/nexusbot/entitlements/pkg/validation"
)

// Character sets for key generation
const (
	CharsetNumeric           = "0123456789"
	CharsetUppercase         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetLowercase         = "abcdefghijklmnopqrstuvwxyz"
	CharsetHexadecimal       = "0123456789ABCDEF"
	CharsetAlphanumeric      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetAlphanumericMixed = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// KeyConfig controls the shape of generated license keys. Operators tune
// key shape through configuration, never code changes.
type KeyConfig struct {
	// Segments is the number of random segments in a key
	Segments int `json:"segments" yaml:"segments"`
	// SegmentLength is the number of characters per segment
	SegmentLength int `json:"segmentLength" yaml:"segment_length"`
	// CharacterSet is the alphabet characters are drawn from
	CharacterSet string `json:"characterSet" yaml:"character_set"`
	// Separator joins segments
	Separator string `json:"separator" yaml:"separator"`
	// IncludeTierPrefix prepends the tier name as its own segment
	IncludeTierPrefix bool `json:"includeTierPrefix" yaml:"include_tier_prefix"`
	// StrictValidation rejects redeemed keys that do not match the current
	// format. Off by default so operators can change the format over time
	// without invalidating previously issued keys.
	StrictValidation bool `json:"strictValidation" yaml:"strict_validation"`
}

// DefaultKeyConfig returns the deployed default layout:
// 5 segments of 5 uppercase alphanumerics, e.g. X7H9K-2M4P8-Q1R5N-3A6B2-C9D0E
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		Segments:          5,
		SegmentLength:     5,
		CharacterSet:      CharsetAlphanumeric,
		Separator:         "-",
		IncludeTierPrefix: false,
		StrictValidation:  false,
	}
}

// Validate checks the key layout for internal consistency
func (c KeyConfig) Validate() error {
	return validation.NewConfigValidator("KeyConfig").
		RangeInt("Segments", c.Segments, 1, 16).
		RangeInt("SegmentLength", c.SegmentLength, 1, 64).
		MinLen("CharacterSet", c.CharacterSet, 2).
		Check("CharacterSet", len(c.CharacterSet) <= 256, "character set cannot exceed 256 characters").
		Required("Separator", c.Separator).
		NotContains("CharacterSet", c.CharacterSet, c.Separator, "separator must not appear in the character set").
		Err()
}

// GenerateKeyString produces a new license key for the given tier.
//
// Each character is chosen independently and uniformly from the
// character set using crypto/rand with rejection sampling, so there is
// no modulo bias for alphabets whose size does not divide 256. Keys are
// bearer credentials; a predictable source is not acceptable here.
//
// No uniqueness check is performed against existing keys. The store is
// last-write-wins on collision, which with the default 5x5 alphanumeric
// layout (36^25 key space) is astronomically unlikely to ever matter.
func GenerateKeyString(tier Tier, cfg KeyConfig) (string, error) {
	segments := make([]string, 0, cfg.Segments+1)

	if cfg.IncludeTierPrefix {
		segments = append(segments, strings.ToUpper(string(tier)))
	}

	for i := 0; i < cfg.Segments; i++ {
		segment, err := randomString(cfg.SegmentLength, cfg.CharacterSet)
		if err != nil {
			return "", err
		}
		segments = append(segments, segment)
	}

	return strings.Join(segments, cfg.Separator), nil
}

// randomString draws length characters uniformly from charset.
// Bytes >= the largest multiple of len(charset) below 256 are rejected
// and redrawn, keeping each character exactly uniform.
func randomString(length int, charset string) (string, error) {
	n := len(charset)
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, charset[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// ValidateKeyFormat checks a key's structure against the configured
// layout. Used only when StrictValidation is enabled, and always before
// any store access. The returned error message is user-facing.
func ValidateKeyFormat(key string, cfg KeyConfig) error {
	parts := strings.Split(key, cfg.Separator)

	expected := cfg.Segments
	if cfg.IncludeTierPrefix {
		expected++
	}

	if len(parts) != expected {
		return fmt.Errorf("invalid license key format: expected %d segments separated by %q", expected, cfg.Separator)
	}

	if cfg.IncludeTierPrefix {
		if !Tier(parts[0]).Known() {
			return fmt.Errorf("invalid license key format: unknown tier prefix %q", parts[0])
		}
		parts = parts[1:]
	}

	for _, part := range parts {
		if len(part) != cfg.SegmentLength {
			return fmt.Errorf("invalid segment length: expected %d characters per segment", cfg.SegmentLength)
		}
	}

	return nil
}
