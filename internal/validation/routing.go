// Package validation checks identifiers that arrive from clients.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	uicRegex          = regexp.MustCompile(`^[A-Z][0-9A-Z]{4,5}$`)
	sectionRegex      = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,22}[A-Z0-9]$`)
	installationRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,63}$`)
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 20000
	maxCommentLen     = 4000
)

// Section codes that collide with stage names are refused so ledger text
// stays unambiguous.
var reservedSections = map[string]struct{}{
	"ARCHIVED":   {},
	"ORIGINATOR": {},
	"COMMANDER":  {},
	"HQMC":       {},
	"EXTERNAL":   {},
}

// ValidateUIC validates a unit identification code such as M12345.
func ValidateUIC(uic string) error {
	if !uicRegex.MatchString(uic) {
		return fmt.Errorf("UIC must be 5-6 uppercase letters or digits starting with a letter")
	}
	return nil
}

// ValidateSectionCode validates an installation section or HQMC division code.
func ValidateSectionCode(code string) error {
	if !sectionRegex.MatchString(code) {
		return fmt.Errorf("section code must be 2-24 uppercase letters, digits or hyphens")
	}
	if strings.Contains(code, "--") {
		return fmt.Errorf("section code cannot contain consecutive hyphens")
	}
	if _, reserved := reservedSections[code]; reserved {
		return fmt.Errorf("section code %s is reserved", code)
	}
	return nil
}

// ValidateInstallationID validates an installation identifier.
func ValidateInstallationID(id string) error {
	if !installationRegex.MatchString(id) {
		return fmt.Errorf("installation id must be 2-64 letters, digits, underscores or hyphens")
	}
	return nil
}

// ValidateTitle trims and checks a request title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", fmt.Errorf("title too long (max %d characters)", maxTitleLen)
	}
	return title, nil
}

// ValidateDescription checks a request description.
func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	}
	return nil
}

// ValidateComment checks a ledger comment.
func ValidateComment(comment string) error {
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return fmt.Errorf("comment too long (max %d characters)", maxCommentLen)
	}
	return nil
}
