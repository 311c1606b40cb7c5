package bootstrap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Environment variable names and their defaults.
const (
	EnvDebugMode = "DEBUG_MODE"
	EnvHost      = "HOST"
	EnvPort      = "PORT"

	DefaultDebugMode = "true"
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 5001
)

// ErrInvalidPort is returned when PORT is not an integer in 0..65535.
var ErrInvalidPort = errors.New("invalid port")

// Settings are the three startup parameters handed to the application's serve loop.
type Settings struct {
	Debug bool
	Host  string
	Port  int
}

// LookupFunc reports the value of an environment variable and whether it is set.
// os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadSettings reads DEBUG_MODE, HOST and PORT through lookup. A variable that
// is set, even to the empty string, is used as is; only unset variables take
// their default.
func LoadSettings(lookup LookupFunc) (Settings, error) {
	debug := valueOr(lookup, EnvDebugMode, DefaultDebugMode)
	host := valueOr(lookup, EnvHost, DefaultHost)

	port := DefaultPort
	if raw, ok := lookup(EnvPort); ok {
		p, err := ParsePort(raw)
		if err != nil {
			return Settings{}, err
		}
		port = p
	}

	return Settings{
		Debug: ParseDebug(debug),
		Host:  host,
		Port:  port,
	}, nil
}

// ParseDebug reports whether v spells a truthy debug flag: true, 1 or yes in any case.
func ParseDebug(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// ParsePort parses a base-10 port number, tolerating surrounding whitespace.
func ParsePort(v string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidPort, EnvPort, v)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%w: %s=%d is out of range", ErrInvalidPort, EnvPort, port)
	}
	return port, nil
}

func valueOr(lookup LookupFunc, key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}
