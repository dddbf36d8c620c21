package session

import (
	"regexp"

	"github.com/tutorkit/relay/pkg/agent"
)

// endPhrasePattern matches the agent's closing vocabulary: case-insensitive,
// tolerant of embedded whitespace, anchored on word boundaries so e.g.
// "goodbyeville" does not match.
var endPhrasePattern = regexp.MustCompile(`(?i)\b(good\s*bye|goodbye|farewell|lesson\s*complete|end\s*of\s*lesson)\b`)

// IsTerminalText reports whether a text fragment contains an
// end-of-conversation phrase.
func IsTerminalText(text string) bool {
	return endPhrasePattern.MatchString(text)
}

// eventIsTerminal scans the textual parts of an agent event; a match in any
// part flags the whole event.
func eventIsTerminal(ev agent.Event) bool {
	for _, text := range ev.TextParts() {
		if IsTerminalText(text) {
			return true
		}
	}
	return false
}
