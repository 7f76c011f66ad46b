// Package address resolves reply recipients from raw From header values.
package address

import (
	"regexp"
	"strings"

	"draftly/internal/apperror"
)

var (
	angleAddrPattern = regexp.MustCompile(`<([^>]+)>`)
	bareAddrPattern  = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
)

var noReplyMarkers = []string{"no-reply", "noreply", "do-not-reply"}

// IsNoReply reports whether the sender asks not to be replied to.
func IsNoReply(fromHeader string) bool {
	from := strings.ToLower(fromHeader)
	for _, marker := range noReplyMarkers {
		if strings.Contains(from, marker) {
			return true
		}
	}
	return false
}

// ExtractRecipient returns the address a reply should go to. An address in
// angle brackets wins, then the first bare address, then the trimmed input.
func ExtractRecipient(fromHeader string) (string, error) {
	trimmed := strings.TrimSpace(fromHeader)
	if trimmed == "" {
		return "", apperror.Validation("from field cannot be empty")
	}

	if match := angleAddrPattern.FindStringSubmatch(fromHeader); match != nil {
		return strings.TrimSpace(match[1]), nil
	}

	if match := bareAddrPattern.FindStringSubmatch(fromHeader); match != nil {
		return strings.TrimSpace(match[1]), nil
	}

	return trimmed, nil
}
