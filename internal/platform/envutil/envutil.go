package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// String returns the trimmed value of name, or def when unset or blank.
func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// Int parses name as an int. Malformed values fall back to def and are reported on log when given.
func Int(name string, def int, log *logger.Logger) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable could not be parsed as int, using default", "env_var", name, "provided", v, "default", def)
		}
		return def
	}
	return i
}

// Bool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func Bool(name string, def bool, log *logger.Logger) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	if log != nil {
		log.Warn("Environment variable could not be parsed as bool, using default", "env_var", name, "provided", v, "default", def)
	}
	return def
}

// Seconds reads name as a whole number of seconds. Negative values clamp to zero.
func Seconds(name string, def time.Duration, log *logger.Logger) time.Duration {
	n := Int(name, -1, log)
	if n < 0 {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			return def
		}
		return 0
	}
	return time.Duration(n) * time.Second
}

// List splits a comma separated value and drops empty items.
func List(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
