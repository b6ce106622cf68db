package validation

import (
	"strings"
	"testing"
)

func TestConfigValidatorPasses(t *testing.T) {
	err := NewConfigValidator("TestConfig").
		Required("name", "value").
		MinInt("workers", 4, 1).
		RangeInt("port", 8080, 1, 65535).
		MinLen("secret", "0123456789abcdef0123456789abcdef", 32).
		OneOf("mode", "strict", "strict", "lenient").
		NotContains("charset", "ABCDEF", "-", "separator collision").
		Check("custom", true, "never fires").
		Err()

	if err != nil {
		t.Errorf("Valid chain produced error: %v", err)
	}
}

func TestConfigValidatorCollectsAllErrors(t *testing.T) {
	err := NewConfigValidator("TestConfig").
		Required("name", "").
		MinInt("workers", 0, 1).
		OneOf("mode", "chaos", "strict", "lenient").
		Err()

	if err == nil {
		t.Fatal("Invalid chain produced no error")
	}

	msg := err.Error()
	for _, want := range []string{"name", "workers", "mode"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Joined error missing %q: %s", want, msg)
		}
	}
}

func TestConfigValidatorChecks(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		wantErr bool
	}{
		{"Range below", func() error {
			return NewConfigValidator("C").RangeInt("n", 0, 1, 16).Err()
		}, true},
		{"Range above", func() error {
			return NewConfigValidator("C").RangeInt("n", 17, 1, 16).Err()
		}, true},
		{"Range edges", func() error {
			return NewConfigValidator("C").RangeInt("lo", 1, 1, 16).RangeInt("hi", 16, 1, 16).Err()
		}, false},
		{"NotContains hit", func() error {
			return NewConfigValidator("C").NotContains("charset", "AB-CD", "-", "collision").Err()
		}, true},
		{"NotContains empty substring", func() error {
			return NewConfigValidator("C").NotContains("charset", "ABCD", "", "collision").Err()
		}, false},
		{"Check failure", func() error {
			return NewConfigValidator("C").Check("field", false, "predicate failed").Err()
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if (err != nil) != tt.wantErr {
				t.Errorf("Err() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
