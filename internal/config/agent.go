// Package config resolves agent settings from environment variables, CLI
// flags, and defaults, in that order (ENV > CLI > defaults).
package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akosarev/hostflux/internal/misc"
)

const (
	defaultEndpoint = "http://localhost:8086"
	defaultUsername = "development"
	defaultPassword = "development"
	defaultOrg      = "development"
	defaultBucket   = "development"
	defaultPollMs   = 3000
)

// AgentConfig holds everything the agent needs to run.
type AgentConfig struct {
	Endpoint      string
	Username      string
	Password      string
	Org           string
	Bucket        string
	VendorFilter  string
	StatusAddress string
	PollInterval  time.Duration
}

// LoadAgentConfig parses flags and merges them with the environment.
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	addrOpt := fs.String("a", "", fmt.Sprintf("store endpoint URL, default: %s", defaultEndpoint))
	userOpt := fs.String("u", "", "store username")
	passOpt := fs.String("w", "", "store password")
	orgOpt := fs.String("o", "", "organization name")
	bucketOpt := fs.String("b", "", "bucket name")
	pollOpt := fs.Int("p", 0, fmt.Sprintf("poll interval in milliseconds, default: %d", defaultPollMs))
	vendorOpt := fs.String("g", "", "graphics vendor filter substring")
	statusOpt := fs.String("s", "", "status endpoint listen address, empty disables")

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	addr := normalizeEndpoint(fromEnvOrFlag("ADDRESS", *addrOpt, defaultEndpoint))
	if _, err := url.ParseRequestURI(addr); err != nil {
		return AgentConfig{}, fmt.Errorf("invalid store endpoint: %q", addr)
	}

	poll := pollInterval("POLL_INTERVAL", *pollOpt, defaultPollMs)
	if poll <= 0 {
		return AgentConfig{}, fmt.Errorf("poll interval must be > 0, got %v", poll)
	}

	return AgentConfig{
		Endpoint:      addr,
		Username:      fromEnvOrFlag("STORE_USERNAME", *userOpt, defaultUsername),
		Password:      fromEnvOrFlag("STORE_PASSWORD", *passOpt, defaultPassword),
		Org:           fromEnvOrFlag("ORG", *orgOpt, defaultOrg),
		Bucket:        fromEnvOrFlag("BUCKET", *bucketOpt, defaultBucket),
		VendorFilter:  fromEnvOrFlag("VENDOR_FILTER", *vendorOpt, ""),
		StatusAddress: fromEnvOrFlag("STATUS_ADDRESS", *statusOpt, ""),
		PollInterval:  poll,
	}, nil
}

// fromEnvOrFlag returns the environment value when present, otherwise the CLI
// flag, otherwise the default.
func fromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(misc.Getenv(envKey, "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// pollInterval reads a duration given either as an integer millisecond count
// or in Go duration syntax.
func pollInterval(envKey string, flagMs, defMs int) time.Duration {
	if ev := strings.TrimSpace(misc.Getenv(envKey, "")); ev != "" {
		if n, err := strconv.ParseInt(ev, 10, 64); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
		if d, err := time.ParseDuration(ev); err == nil && d > 0 {
			return d
		}
		return 0
	}
	if flagMs > 0 {
		return time.Duration(flagMs) * time.Millisecond
	}
	return time.Duration(defMs) * time.Millisecond
}

func normalizeEndpoint(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultEndpoint
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}
