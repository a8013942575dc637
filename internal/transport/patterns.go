package transport

import "strings"

// RejectPatterns are the case-insensitive substrings that mark a vendor
// response as an error rather than plain output (spec §4.5). Transports use
// this to classify ExitHint; the executor uses the same list to decide
// whether a failure is recoverable.
var RejectPatterns = []string{
	"please disable dual mode",
	"already a member",
	"port is in spanning-tree",
	"invalid input",
	"unrecognized command",
	"connection closed",
}

// DisconnectPatterns mark output that indicates the session itself died,
// distinct from a command-level rejection.
var DisconnectPatterns = []string{
	"connection closed",
	"connection reset",
	"broken pipe",
	"eof",
}

// ClassifyOutput scans output for recognized patterns and returns the
// corresponding ExitHint. Statistics text containing the bare words "error"
// or "fail" (e.g. interface counters) is deliberately NOT treated as an
// error (spec §4.1): only the structural markers above count.
func ClassifyOutput(output string) ExitHint {
	lower := strings.ToLower(output)
	for _, p := range DisconnectPatterns {
		if strings.Contains(lower, p) {
			return ExitDisconnect
		}
	}
	for _, p := range RejectPatterns {
		if strings.Contains(lower, p) {
			return ExitError
		}
	}
	return ExitOK
}

// MatchedPattern returns the first RejectPatterns entry present in output,
// or "" if none match. Used by the executor's recovery dispatch to pick
// the matching action.
func MatchedPattern(output string) string {
	lower := strings.ToLower(output)
	for _, p := range RejectPatterns {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}
