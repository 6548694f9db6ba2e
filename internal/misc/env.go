// Package misc holds small helpers shared across the agent: environment
// lookup and retry with backoff.
package misc

import "os"

// Getenv returns the environment value or the default when unset/empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
