package config

import "fmt"

// CurrentVersion is the config file format this build reads.
const CurrentVersion = 1

// VersionProblem says why a config version can not be used.
type VersionProblem int

const (
	// VersionInvalid is a zero or negative version after defaults ran.
	VersionInvalid VersionProblem = iota + 1
	// VersionTooNew is a file written for a later release.
	VersionTooNew
)

// VersionError reports a config file this build can not read.
type VersionError struct {
	Version int
	Problem VersionProblem
}

func (e *VersionError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Problem {
	case VersionTooNew:
		return fmt.Sprintf("version %d is newer than this build reads (%d); upgrade introspect", e.Version, CurrentVersion)
	case VersionInvalid:
		return fmt.Sprintf("version %d is invalid; omit it or set version: %d", e.Version, CurrentVersion)
	default:
		return fmt.Sprintf("version %d is not supported", e.Version)
	}
}

// ValidateVersion checks a version after defaults were applied, so a file
// without a version line has already been given CurrentVersion.
func ValidateVersion(version int) error {
	switch {
	case version <= 0:
		return &VersionError{Version: version, Problem: VersionInvalid}
	case version > CurrentVersion:
		return &VersionError{Version: version, Problem: VersionTooNew}
	default:
		return nil
	}
}
