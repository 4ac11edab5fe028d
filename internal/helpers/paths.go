package helpers

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

const sanRegexStr = `[\/:*?"><|]`

var sanRegex = regexp.MustCompile(sanRegexStr)

// Sanitise cleans a filename by replacing invalid characters. Remote names
// are attacker-ish input: they become local paths verbatim otherwise.
func Sanitise(filename string) string {
	san := sanRegex.ReplaceAllString(filename, "_")
	return strings.TrimSpace(san)
}

// MakeDirs creates directories recursively.
func MakeDirs(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file (not directory) exists at the given path.
func FileExists(path string) (bool, error) {
	f, err := os.Stat(path)
	if err == nil {
		return !f.IsDir(), nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ValidatePath checks that a path does not contain dangerous characters.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}
