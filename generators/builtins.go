package generators

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/brettbedarf/ramfs/filesystem"
)

type BuiltInGeneratorType = string

const (
	HostnameGeneratorType BuiltInGeneratorType = "hostname"
	NowGeneratorType      BuiltInGeneratorType = "now"
	EnvGeneratorType      BuiltInGeneratorType = "env"
	UUIDGeneratorType     BuiltInGeneratorType = "uuid"
	CounterGeneratorType  BuiltInGeneratorType = "counter"
	PidGeneratorType      BuiltInGeneratorType = "pid"
)

// RegisterBuiltins registers all built-in generators by default
// or only the specific ones if keys are provided
func RegisterBuiltins(gens ...BuiltInGeneratorType) {
	if len(gens) == 0 {
		// Include all built-in generators here when adding implementations
		gens = append(gens,
			HostnameGeneratorType,
			NowGeneratorType,
			EnvGeneratorType,
			UUIDGeneratorType,
			CounterGeneratorType,
			PidGeneratorType,
		)
	}

	for _, key := range gens {
		switch key {
		case HostnameGeneratorType:
			Register(key, newHostname)
		case NowGeneratorType:
			Register(key, newNow)
		case EnvGeneratorType:
			Register(key, newEnv)
		case UUIDGeneratorType:
			Register(key, newUUID)
		case CounterGeneratorType:
			Register(key, newCounter)
		case PidGeneratorType:
			Register(key, newPid)
		}
	}
}

// newHostname targets the current hostname, re-read on every call.
func newHostname(string) (filesystem.TargetFunc, error) {
	return func() string {
		name, err := os.Hostname()
		if err != nil {
			return "localhost"
		}
		return name
	}, nil
}

// newNow targets the current time. arg is a time layout; "unix" selects
// epoch seconds and empty defaults to RFC3339.
func newNow(arg string) (filesystem.TargetFunc, error) {
	if arg == "unix" {
		return func() string {
			return strconv.FormatInt(time.Now().Unix(), 10)
		}, nil
	}
	layout := arg
	if layout == "" {
		layout = time.RFC3339
	}
	return func() string {
		return time.Now().Format(layout)
	}, nil
}

// newEnv targets the named environment variable's current value.
func newEnv(arg string) (filesystem.TargetFunc, error) {
	if arg == "" {
		return nil, fmt.Errorf("env generator requires a variable name")
	}
	return func() string {
		return os.Getenv(arg)
	}, nil
}

// newUUID targets a fresh UUID on every read.
func newUUID(string) (filesystem.TargetFunc, error) {
	return func() string {
		return uuid.NewString()
	}, nil
}

// newCounter targets a monotonic counter: each read increments and reports
// the new value. arg sets the value before the first read (default 0).
func newCounter(arg string) (filesystem.TargetFunc, error) {
	var n atomic.Int64
	if arg != "" {
		start, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter start %q: %w", arg, err)
		}
		n.Store(start)
	}
	return func() string {
		return strconv.FormatInt(n.Add(1), 10)
	}, nil
}

// newPid targets the serving process's PID.
func newPid(string) (filesystem.TargetFunc, error) {
	return func() string {
		return strconv.Itoa(os.Getpid())
	}, nil
}
