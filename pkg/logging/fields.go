package logging

import "time"

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers

func Component(name string) Field {
	return String("component", name)
}

func UserID(id string) Field {
	return String("user_id", id)
}

func LicenseKey(key string) Field {
	return String("license_key", key)
}

func TierName(tier string) Field {
	return String("tier", tier)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Command(name string) Field {
	return String("command", name)
}

func Reason(reason string) Field {
	return String("reason", reason)
}

func Count(n int) Field {
	return Int("count", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}
