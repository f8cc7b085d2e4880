package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// WIB is Western Indonesia Time (UTC+7); all user-facing dates are shown in it.
var WIB = time.FixedZone("WIB", 7*60*60)

// DisplayTimeLayout is the layout of user-facing timestamps, e.g. "02 Jan 2006, 15:04 WIB".
const DisplayTimeLayout = "02 Jan 2006, 15:04 WIB"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Truncate shortens `s` to `max` runes, appending "..." when something was cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// FormatWIB formats `t` in WIB using DisplayTimeLayout. The zero time gives "".
func FormatWIB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(WIB).Format(DisplayTimeLayout)
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests,
// so we walk up until we find it; the current working directory is used as a last resort.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
