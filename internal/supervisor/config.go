package supervisor

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"
)

// Config holds the configuration for the supervised syncthing process.
type Config struct {
	// Binary is the path to the syncthing executable.
	// Default: "/usr/bin/syncthing"
	Binary string `yaml:"binary"`

	// APIKey is handed to syncthing via -gui-apikey and must match the
	// key used by the REST client.
	APIKey string `yaml:"api_key"`

	// Address is the GUI/REST bind address passed via -gui-address.
	// Format: "host:port" (e.g., "127.0.0.1:8384")
	Address string `yaml:"address"`

	// HomeDir is syncthing's configuration directory, passed via -home.
	// Empty means syncthing uses its platform default and no flag is passed.
	HomeDir string `yaml:"home_dir"`

	// Environment contains extra environment variables for the process.
	// Entries here override inherited variables of the same name.
	Environment map[string]string `yaml:"environment"`

	// DenyUpgrade forces STNOUPGRADE=1 into the process environment so
	// syncthing never self-upgrades underneath the supervisor.
	DenyUpgrade bool `yaml:"deny_upgrade"`

	// LowPriority runs the process at below-normal scheduling priority.
	LowPriority bool `yaml:"low_priority"`

	// HideDeviceIDs redacts device IDs from republished log output.
	HideDeviceIDs bool `yaml:"hide_device_ids"`

	// MaxImmediateRestarts caps back-to-back implicit restarts before the
	// supervisor gives up. 0 means unlimited.
	// Default: 5
	MaxImmediateRestarts int `yaml:"max_immediate_restarts"`

	// StabilityWindow is how long a run must survive before the implicit
	// restart counter resets.
	// Default: 60s
	StabilityWindow time.Duration `yaml:"stability_window"`

	// GracefulTimeout is how long Kill waits after SIGTERM before SIGKILL.
	// Default: 10s
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Binary:               "/usr/bin/syncthing",
		Address:              "127.0.0.1:8384",
		DenyUpgrade:          true,
		MaxImmediateRestarts: 5,
		StabilityWindow:      60 * time.Second,
		GracefulTimeout:      10 * time.Second,
	}
}

// Validate checks the configuration for errors.
//
// The binary path only has to be non-empty: whether it exists on disk is
// checked at Start, so a supervisor can be constructed before syncthing
// is installed.
func (c *Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("syncthing binary path is required")
	}

	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}

	if c.Address == "" {
		return fmt.Errorf("gui address is required")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid gui address %q: %w", c.Address, err)
	}

	if c.MaxImmediateRestarts < 0 {
		return fmt.Errorf("max_immediate_restarts must not be negative")
	}

	return nil
}

// BuildArgs constructs the command-line arguments for syncthing.
//
// The supervisor owns browser launching and restarts, so both are turned
// off unconditionally; syncthing signals a desired restart through its
// exit code instead. The key and address values are wrapped in double
// quotes to match syncthing's documented invocation form.
func (c *Config) BuildArgs() []string {
	args := []string{
		"-no-browser",
		"-no-restart",
		fmt.Sprintf("-gui-apikey=%q", c.APIKey),
		fmt.Sprintf("-gui-address=%q", c.Address),
	}

	// Home directory (-home) only when explicitly configured
	if strings.TrimSpace(c.HomeDir) != "" {
		args = append(args, fmt.Sprintf("-home=%q", c.HomeDir))
	}

	return args
}

// BuildEnv returns the full environment for the process: the parent
// environment with configured overrides applied on top, plus the
// upgrade-disable marker when DenyUpgrade is set.
//
// The result is sorted so launches are deterministic and loggable.
func (c *Config) BuildEnv() []string {
	merged := make(map[string]string)

	for _, kv := range os.Environ() {
		if idx := strings.Index(kv, "="); idx > 0 {
			merged[kv[:idx]] = kv[idx+1:]
		}
	}

	for k, v := range c.Environment {
		merged[k] = v
	}

	if c.DenyUpgrade {
		merged["STNOUPGRADE"] = "1"
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	return env
}
