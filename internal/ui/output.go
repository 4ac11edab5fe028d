package ui

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/term"
)

// RunErrorCount and RunWarningCount track errors/warnings during a run.
var RunErrorCount int
var RunWarningCount int

// VerboseEnabled gates PrintDebug output. Set once at startup from the
// --verbose flag.
var VerboseEnabled bool

// AnsiRegex is compiled once for performance.
var AnsiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Printf("%s%s%s %s\n", ColorGreen, SymbolCheck, ColorReset, msg)
}

// PrintError prints an error message and increments the error counter.
func PrintError(msg string) {
	RunErrorCount++
	fmt.Printf("%s%s%s %s\n", ColorRed, SymbolCross, ColorReset, msg)
}

// PrintInfo prints an info message.
func PrintInfo(msg string) {
	fmt.Printf("%s%s%s %s\n", ColorBlue, SymbolInfo, ColorReset, msg)
}

// PrintWarning prints a warning message and increments the warning counter.
func PrintWarning(msg string) {
	RunWarningCount++
	fmt.Printf("%s%s%s %s\n", ColorYellow, SymbolWarning, ColorReset, msg)
}

// PrintDownload prints a download message.
func PrintDownload(msg string) {
	fmt.Printf("%s%s%s %s\n", ColorCyan, SymbolDownload, ColorReset, msg)
}

// PrintDebug prints a message only when verbose output is enabled.
func PrintDebug(msg string) {
	if !VerboseEnabled {
		return
	}
	fmt.Printf("%s·%s %s\n", ColorCyan, ColorReset, msg)
}

// PrintHeader prints a bold section header with an underline.
func PrintHeader(title string) {
	fmt.Printf("\n%s%s%s\n", ColorBold, title, ColorReset)
	fmt.Println(strings.Repeat("─", min(len(title), GetTermWidth())))
}

// PrintKeyValue prints an aligned "key: value" row with a colored value.
func PrintKeyValue(key, value, valueColor string) {
	fmt.Printf("  %s%-12s%s %s%s%s\n", ColorBold, key+":", ColorReset, valueColor, value, ColorReset)
}

// StripAnsiCodes removes ANSI escape sequences from a string.
func StripAnsiCodes(s string) string {
	return AnsiRegex.ReplaceAllString(s, "")
}

// GetTermWidth returns the terminal width, defaulting to 80.
func GetTermWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width == 0 {
		return 80
	}
	return width
}
