package chain

import (
	"fmt"
	"regexp"
	"strings"

	ferrors "saffaucet/errors"
)

// Node error codes that signal a stale or contested account sequence.
var sequenceErrorCodes = map[string]struct{}{
	"invalid_nonce":     {},
	"nonce_too_low":     {},
	"nonce_too_high":    {},
	"sequence_mismatch": {},
}

// Fallback patterns for nodes that only return plain-text errors. Matching
// happens here, in the gateway, so the dispatcher never inspects message
// wording itself.
var sequenceErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`account sequence mismatch: expected \d+, got \d+`),
	regexp.MustCompile(`expected sequence:? \d+`),
	regexp.MustCompile(`sequence \d+ but got \d+`),
	regexp.MustCompile(`sequence \d+ != \d+`),
	regexp.MustCompile(`nonce too (low|high)`),
}

// classifyNodeError maps a node rejection to the faucet error taxonomy.
// A recognized code wins; otherwise the message text is pattern-matched.
func classifyNodeError(code, message string) *ferrors.FaucetError {
	if code != "" {
		if _, ok := sequenceErrorCodes[code]; ok {
			return ferrors.NewSequenceConflictError(fmt.Sprintf("node rejected broadcast (%s): %s", code, message))
		}
		return ferrors.NewTransportError(fmt.Sprintf("node rejected broadcast (%s): %s", code, message))
	}

	lower := strings.ToLower(message)
	for _, pattern := range sequenceErrorPatterns {
		if pattern.MatchString(lower) {
			return ferrors.NewSequenceConflictError("node rejected broadcast: " + message)
		}
	}
	return ferrors.NewTransportError("node rejected broadcast: " + message)
}
