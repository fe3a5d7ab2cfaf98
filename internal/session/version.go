package session

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ServerVersion is the view API version this server speaks.
const ServerVersion = "1.2.0"

// CodeVersionUnsupported is the error code for a rejected client version.
const CodeVersionUnsupported = "client_version_unsupported"

// VersionError is returned when a client's version cannot be served.
type VersionError struct {
	Code    string
	Message string
}

func (e *VersionError) Error() string {
	return e.Message
}

// CheckClientVersion accepts clients on the server's major version. An
// empty client version is accepted. Versions may omit the "v" prefix.
func CheckClientVersion(server, client string) error {
	if client == "" {
		return nil
	}
	cv := normalizeVersion(client)
	sv := normalizeVersion(server)
	if !semver.IsValid(cv) {
		return &VersionError{
			Code:    CodeVersionUnsupported,
			Message: fmt.Sprintf("client version %q is not a semantic version", client),
		}
	}
	if semver.Major(cv) != semver.Major(sv) {
		return &VersionError{
			Code: CodeVersionUnsupported,
			Message: fmt.Sprintf("client version %s is not supported; server speaks %s.x",
				client, strings.TrimPrefix(semver.Major(sv), "v")),
		}
	}
	return nil
}

// normalizeVersion adds the "v" prefix semver requires.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
