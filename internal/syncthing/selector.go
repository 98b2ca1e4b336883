package syncthing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ProbeVersion asks the daemon for its version using the
// version-independent endpoint, so a binding can then be selected.
func ProbeVersion(ctx context.Context, baseURL, apiKey string) (Version, error) {
	probe := restClient{newRest(baseURL, apiKey)}
	return probe.Version(ctx)
}

// clientFactory constructs a version binding for a base URL and key.
type clientFactory func(baseURL, apiKey string) Client

// bindings maps a protocol generation ("major.minor") to its client
// factory. Populated once by the init functions of the binding files;
// read-only afterwards.
var bindings = map[string]clientFactory{}

func registerBinding(generation string, factory clientFactory) {
	if _, dup := bindings[generation]; dup {
		panic("syncthing: duplicate client binding for " + generation)
	}
	bindings[generation] = factory
}

// SelectClient picks the client binding for a reported daemon version
// string (for example "v0.13.7" or "1.27.2") and constructs it.
//
// Selection happens once per daemon run: the caller probes the version
// endpoint with any binding, then selects for real. Versions newer
// than the newest known generation use the newest binding; versions
// older than the oldest known generation are rejected with
// ErrUnsupportedVersion.
func SelectClient(version, baseURL, apiKey string) (Client, error) {
	gen, err := parseGeneration(version)
	if err != nil {
		return nil, err
	}

	if factory, ok := bindings[gen.String()]; ok {
		return factory(baseURL, apiKey), nil
	}

	// Fall forward to the newest binding not newer than the daemon.
	var best generation
	var bestFactory clientFactory
	for key, factory := range bindings {
		g, err := parseGeneration(key)
		if err != nil {
			continue
		}
		if g.newer(gen) {
			continue
		}
		if bestFactory == nil || g.newer(best) {
			best = g
			bestFactory = factory
		}
	}
	if bestFactory == nil {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedVersion, version, supportedGenerations())
	}
	return bestFactory(baseURL, apiKey), nil
}

// generation is a comparable major.minor pair.
type generation struct {
	major, minor int
}

func (g generation) String() string {
	return fmt.Sprintf("%d.%d", g.major, g.minor)
}

func (g generation) newer(other generation) bool {
	if g.major != other.major {
		return g.major > other.major
	}
	return g.minor > other.minor
}

// parseGeneration extracts "major.minor" from a version string,
// tolerating a leading "v" and trailing patch/pre-release segments.
func parseGeneration(version string) (generation, error) {
	s := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if idx := strings.IndexAny(s, "-+ "); idx >= 0 {
		s = s[:idx]
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return generation{}, fmt.Errorf("%w: cannot parse version %q", ErrUnsupportedVersion, version)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return generation{}, fmt.Errorf("%w: cannot parse version %q", ErrUnsupportedVersion, version)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return generation{}, fmt.Errorf("%w: cannot parse version %q", ErrUnsupportedVersion, version)
	}
	return generation{major: major, minor: minor}, nil
}

func supportedGenerations() string {
	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
