package database

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var versionRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// VersionInfo represents parsed PostgreSQL server version information
type VersionInfo struct {
	Major int    // Major version number (e.g., 16)
	Minor int    // Minor version number (e.g., 4)
	Patch int    // Patch version number, only used by pre-10 servers (e.g., 9.6.24)
	Raw   string // Raw server_version string
}

// String returns the version as a string in format "major.minor.patch"
func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsAtLeast checks if this version is at least the specified version
func (v VersionInfo) IsAtLeast(major, minor int) bool {
	if v.Major > major {
		return true
	}
	return v.Major == major && v.Minor >= minor
}

// Supported reports whether the server understands every statement the
// schema DSL and ledger render (to_regclass with text input, 9.6+).
func (v VersionInfo) Supported() bool {
	return v.IsAtLeast(9, 6)
}

// Version retrieves and parses the server version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var raw string
	if err := c.db.QueryRowContext(ctx, "SHOW server_version").Scan(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to query PostgreSQL version")
	}

	version, err := parseVersion(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse PostgreSQL version: %s", raw)
	}

	return version, nil
}

// parseVersion parses a server_version string. Known forms:
// - "16.4" (standard)
// - "16.4 (Debian 16.4-1.pgdg120+2)" (with distribution suffix)
// - "9.6.24" (pre-10 three-part version)
// - "17beta1" (pre-release)
func parseVersion(versionStr string) (*VersionInfo, error) {
	cleaned := strings.TrimSpace(versionStr)
	if spaceIdx := strings.Index(cleaned, " "); spaceIdx != -1 {
		cleaned = cleaned[:spaceIdx]
	}

	matches := versionRegex.FindStringSubmatch(cleaned)
	if matches == nil {
		return nil, errors.Errorf("invalid version format: %s", versionStr)
	}

	info := &VersionInfo{Raw: versionStr}
	parts := []*int{&info.Major, &info.Minor, &info.Patch}
	for i, p := range parts {
		if matches[i+1] == "" {
			continue
		}

		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid version component: %s", matches[i+1])
		}
		*p = n
	}

	return info, nil
}
