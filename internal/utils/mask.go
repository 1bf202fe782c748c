package utils

// MaskSecret returns a redacted form of a secret, keeping only a short
// prefix so log lines stay correlatable without leaking the value.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
