// internal/classifier/classifier.go

// Package classifier maps free-text task descriptions to a fixed set of task
// kinds using case-insensitive keyword matching. The dispatcher consults it to
// pick an executor for each plan step.
package classifier

import "strings"

// Kind is the category a task description resolves to.
type Kind string

const (
	KindBrowse  Kind = "browser"
	KindCode    Kind = "code"
	KindFile    Kind = "file"
	KindUnknown Kind = "unknown"
)

// Keyword sets per kind. Order within a set does not matter; the kinds
// themselves are checked in a fixed priority order.
var (
	browseKeywords = []string{"browse", "visit", "access"}
	codeKeywords   = []string{"python", "code", "execute"}
	fileKeywords   = []string{"file", "read", "write"}
)

// Classify resolves a task description to its Kind. Pure function, no error
// cases. Kinds are checked Browse > Code > File, so a description containing
// both a browse keyword and a code keyword is a browse task.
func Classify(text string) Kind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, browseKeywords):
		return KindBrowse
	case containsAny(lower, codeKeywords):
		return KindCode
	case containsAny(lower, fileKeywords):
		return KindFile
	default:
		return KindUnknown
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractCode strips the code-task keyword tokens from a task description,
// leaving the fragment to run. An empty remainder (or a bare "code" token)
// substitutes a trivial placeholder program so the executor always has input.
func ExtractCode(task string) string {
	code := task
	code = strings.ReplaceAll(code, "python", "")
	code = strings.ReplaceAll(code, "execute", "")
	code = strings.TrimSpace(code)
	// "execute python: print(...)" leaves a dangling separator behind.
	code = strings.TrimSpace(strings.TrimLeft(code, ":"))
	if code == "" || code == "code" {
		code = `print("Hello World")`
	}
	return code
}
