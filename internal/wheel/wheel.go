package wheel

import (
	"fmt"
	"strings"
)

// Info holds the components of a wheel filename as defined by the binary
// distribution format: distribution-version(-build)?-python-abi-platform.whl.
// Distribution names have dashes escaped to underscores, so the dash count is
// exact.
type Info struct {
	Distribution string
	Version      string
	BuildTag     string
	PythonTag    string
	ABITag       string
	PlatformTag  string
}

// Parse splits a wheel filename into its components. The filename must carry
// the .whl extension and either five or six dash-separated fields.
func Parse(filename string) (*Info, error) {
	base, ok := strings.CutSuffix(filename, ".whl")
	if !ok {
		return nil, fmt.Errorf("wheel: %q is not a wheel filename", filename)
	}

	parts := strings.Split(base, "-")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("wheel: %q has an empty filename field", filename)
		}
	}

	switch len(parts) {
	case 5:
		return &Info{
			Distribution: parts[0],
			Version:      parts[1],
			PythonTag:    parts[2],
			ABITag:       parts[3],
			PlatformTag:  parts[4],
		}, nil
	case 6:
		return &Info{
			Distribution: parts[0],
			Version:      parts[1],
			BuildTag:     parts[2],
			PythonTag:    parts[3],
			ABITag:       parts[4],
			PlatformTag:  parts[5],
		}, nil
	default:
		return nil, fmt.Errorf("wheel: %q has %d filename fields, want 5 or 6", filename, len(parts))
	}
}

// MatchesPlatform reports whether filename should be published for the given
// platform suffix, e.g. "x86_64.whl". The match is a plain suffix comparison,
// mirroring the glob the pipeline replaces.
func MatchesPlatform(filename, suffix string) bool {
	if suffix == "" {
		return false
	}
	return strings.HasSuffix(filename, suffix)
}
