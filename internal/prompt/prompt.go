// Package prompt assembles generation instructions for the content pipeline.
//
// A composed prompt carries the topic, the platform style hint, the tone and
// creativity descriptors, a hard word-count target stated twice, and at most
// two trimmed reference snippets. Keeping references short and repeating the
// target is deliberate: long reference blocks dilute the length instruction
// and the generator drifts.
package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Word-count targets for the named length forms.
const (
	ShortWords  = 150
	MediumWords = 400
	LongWords   = 600
)

// MaxReferences caps how many reference snippets a prompt embeds.
const MaxReferences = 2

// RefCharBudget is the per-reference character budget.
const RefCharBudget = 200

// Platform codes accepted by the pipeline.
const (
	PlatformFacebook  = "FCB"
	PlatformInstagram = "INT"
	PlatformTikTok    = "TTK"
	PlatformLinkedIn  = "LKN"
)

// platformHints maps a platform code to a short style instruction.
var platformHints = map[string]string{
	PlatformFacebook:  "Write for Facebook: conversational, with a clear call to action and a question to spark engagement.",
	PlatformInstagram: "Write for Instagram: visual, youthful language with an energetic hook.",
	PlatformTikTok:    "Write for TikTok: punchy and viral, grab attention in the first sentence.",
	PlatformLinkedIn:  "Write for LinkedIn: professional and educational, include a market insight.",
}

// platformNames maps a platform code to its display name.
var platformNames = map[string]string{
	PlatformFacebook:  "Facebook",
	PlatformInstagram: "Instagram",
	PlatformTikTok:    "TikTok",
	PlatformLinkedIn:  "LinkedIn",
}

// KnownPlatform reports whether code is a supported platform.
func KnownPlatform(code string) bool {
	_, ok := platformHints[code]
	return ok
}

// PlatformName returns the display name for a platform code, or "Generic"
// when the code is unknown or empty.
func PlatformName(code string) string {
	if name, ok := platformNames[code]; ok {
		return name
	}
	return "Generic"
}

// Request describes what the caller wants generated.
type Request struct {
	Topic      string
	Platform   string // FCB, INT, TTK, LKN or empty for generic
	Tone       string // embedded verbatim
	Creativity string // embedded verbatim
	Length     string // "short", "medium", "long" or "Exact (N words)"
}

// Reference is a scored snippet embedded into the prompt as context.
type Reference struct {
	Text  string
	Score float64
}

// exactWords matches the explicit length forms "Exact (N words)" and
// "Exato (N palavras)".
var exactWords = regexp.MustCompile(`(?i)^exa(?:ct|to)\s*\(\s*(\d+)\s*(?:words|palavras)?\s*\)$`)

// TargetWords resolves a length specifier to a word-count target.
// The explicit exact form takes precedence; named ranges resolve to their
// midpoint. Unknown specifiers fall back to the medium target.
func TargetWords(length string) int {
	length = strings.TrimSpace(length)

	if m := exactWords.FindStringSubmatch(length); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}

	switch strings.ToLower(length) {
	case "short", "curto":
		return ShortWords
	case "long", "longo":
		return LongWords
	default:
		return MediumWords
	}
}

// Compose builds the generation instruction for a request. Only the top
// MaxReferences references are embedded, each trimmed to RefCharBudget
// characters. The target word count appears once near the top and once in
// a closing reminder.
func Compose(req Request, refs []Reference) (string, int) {
	target := TargetWords(req.Length)

	var b strings.Builder
	fmt.Fprintf(&b, "Write a social media post about: %s\n\n", req.Topic)
	fmt.Fprintf(&b, "The post must contain exactly %d words.\n\n", target)

	if hint, ok := platformHints[req.Platform]; ok {
		b.WriteString(hint)
		b.WriteString("\n")
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if req.Creativity != "" {
		fmt.Fprintf(&b, "Creativity: %s\n", req.Creativity)
	}

	if len(refs) > 0 {
		b.WriteString("\nUse these references as context:\n")
		for i, ref := range refs {
			if i >= MaxReferences {
				break
			}
			fmt.Fprintf(&b, "- %s\n", Trim(ref.Text, RefCharBudget))
		}
	}

	b.WriteString("\nWrite the post text only, with no headings or markup.\n")
	fmt.Fprintf(&b, "Remember: the post must contain exactly %d words.", target)

	return b.String(), target
}

// CorrectiveSuffix states how far off the last attempt was and whether to
// add or trim content. It is appended to the prompt between retries.
func CorrectiveSuffix(wordCount, target int) string {
	diff := target - wordCount
	if diff > 0 {
		return fmt.Sprintf(
			"\n\nThe previous attempt had %d words, %d short of the %d-word target. Expand the content by roughly %d words.",
			wordCount, diff, target, diff)
	}
	return fmt.Sprintf(
		"\n\nThe previous attempt had %d words, %d over the %d-word target. Trim the content by roughly %d words.",
		wordCount, -diff, target, -diff)
}

// Trim cuts s to at most budget characters, appending an ellipsis when
// content was dropped. Budgets are counted in runes so multi-byte text
// is not cut mid-character.
func Trim(s string, budget int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return strings.TrimSpace(string(runes[:budget])) + "..."
}
