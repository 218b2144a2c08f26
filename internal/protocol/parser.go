// Package protocol extracts debate-protocol signals from raw agent text.
// Parsing is pure: same input, same output, no state.
package protocol

import (
	"regexp"
	"strings"
)

// Markers are case-insensitive tag pairs. The final-answer payload may span
// lines. An unclosed tag is not a marker and stays in the body.
var (
	agreeRe = regexp.MustCompile(`(?is)<agree>\s*(.*?)\s*</agree>`)
	finalRe = regexp.MustCompile(`(?is)<final>(.*?)</final>`)
	blankRe = regexp.MustCompile(`\n{3,}`)
)

type SignalState string

const (
	SignalAbsent    SignalState = "absent"
	SignalPresent   SignalState = "present"
	SignalMalformed SignalState = "malformed"
)

// BoolSignal is a tagged agreement result. Value is meaningful only when
// State is SignalPresent; malformed is never collapsed into a default.
type BoolSignal struct {
	State SignalState
	Value bool
}

type TextSignal struct {
	State SignalState
	Value string
}

type ParsedTurn struct {
	Agreement   BoolSignal
	FinalAnswer TextSignal
	Body        string
}

// Parse extracts the agreement and final-answer signals from raw and strips
// every marker span from the display body. When a marker kind occurs more
// than once the last occurrence wins: agents restate, they do not amend.
func Parse(raw string) ParsedTurn {
	return ParsedTurn{
		Agreement:   parseAgreement(raw),
		FinalAnswer: parseFinal(raw),
		Body:        stripMarkers(raw),
	}
}

func parseAgreement(raw string) BoolSignal {
	matches := agreeRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return BoolSignal{State: SignalAbsent}
	}
	payload := strings.TrimSpace(matches[len(matches)-1][1])
	switch {
	case strings.EqualFold(payload, "true"):
		return BoolSignal{State: SignalPresent, Value: true}
	case strings.EqualFold(payload, "false"):
		return BoolSignal{State: SignalPresent, Value: false}
	}
	return BoolSignal{State: SignalMalformed}
}

func parseFinal(raw string) TextSignal {
	matches := finalRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return TextSignal{State: SignalAbsent}
	}
	payload := strings.TrimSpace(matches[len(matches)-1][1])
	if payload == "" {
		return TextSignal{State: SignalMalformed}
	}
	return TextSignal{State: SignalPresent, Value: payload}
}

func stripMarkers(raw string) string {
	body := agreeRe.ReplaceAllString(raw, "")
	body = finalRe.ReplaceAllString(body, "")
	body = blankRe.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}
