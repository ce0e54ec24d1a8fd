// Package moderation provides age-appropriate content filtering for the
// tutoring chat pipeline. Classification is pure and stateless: the keyword
// tables are immutable package-level values, so a single call site can be
// shared by every concurrent turn without locking.
package moderation

import (
	"strings"
	"unicode"
)

// AgeTier controls the wording of the system prompt. It does not change
// which moderation categories apply.
type AgeTier string

const (
	AgeTierUnder14 AgeTier = "under14"
	AgeTierTeen    AgeTier = "teen"
	AgeTierAdult   AgeTier = "adult"
)

// ParseAgeTier maps a client-supplied age filter to an AgeTier.
// Unknown or empty values fall back to teen.
func ParseAgeTier(s string) AgeTier {
	switch AgeTier(s) {
	case AgeTierUnder14, AgeTierTeen, AgeTierAdult:
		return AgeTier(s)
	default:
		return AgeTierTeen
	}
}

// Blocked categories, in check order. The first category with a matching
// keyword wins; there is no scoring or weighting.
const (
	CategoryJailbreak    = "jailbreak_attempt"
	CategoryViolence     = "violence"
	CategoryExplicit     = "explicit"
	CategoryDrugs        = "drugs"
	CategoryPersonalInfo = "personal_info"
	CategoryBullying     = "bullying"
)

// Flag categories. Flags annotate permitted content for downstream review;
// they never block a message.
const (
	FlagMentalHealth      = "mental_health"
	FlagAcademicIntegrity = "academic_integrity"
	FlagExcessiveCaps     = "excessive_caps"
)

// Decision is the result of classifying one message.
type Decision struct {
	Blocked  bool
	Category string
	// Message is the age-neutral redirect shown to the student.
	Message string
}

// jailbreakPhrases are prompt-injection markers. They are checked before all
// category keywords: a jailbreak attempt may be disguised as benign topic text.
var jailbreakPhrases = []string{
	"ignore previous instructions",
	"ignore all instructions",
	"you are now",
	"act as",
	"pretend to be",
	"forget your rules",
	"forget your guidelines",
	"forget your instructions",
	"developer mode",
	"jailbreak",
	"dan mode",
	"do anything now",
}

// blockedCategory pairs a category with its keyword list. Iteration order is
// fixed, so classification is deterministic for a given input.
type blockedCategory struct {
	name     string
	keywords []string
}

var blockedCategories = []blockedCategory{
	{CategoryViolence, []string{
		"kill", "murder", "suicide", "self harm", "cut myself", "hurt myself",
		"shoot", "stab", "attack", "bomb", "weapon", "gun",
	}},
	{CategoryExplicit, []string{
		"porn", "sex", "nude", "naked", "xxx", "nsfw",
		"sexy", "hot girl", "hot guy", "dating",
	}},
	{CategoryDrugs, []string{
		"get high", "smoke weed", "buy drugs", "cocaine", "heroin",
		"meth", "ecstasy", "lsd", "marijuana",
	}},
	{CategoryPersonalInfo, []string{
		"home address", "phone number", "social security", "ssn",
		"credit card", "bank account", "password",
	}},
	{CategoryBullying, []string{
		"kill yourself", "kys", "you're stupid", "loser", "idiot kid",
		"hate you", "you're ugly", "nobody likes you",
	}},
}

var mentalHealthKeywords = []string{
	"depressed", "depression", "anxiety", "scared", "afraid",
	"worried", "stressed", "bullied", "lonely",
}

var academicIntegrityKeywords = []string{
	"homework answer", "test answer", "cheat", "copy homework",
	"quiz answers", "exam answers",
}

// blockedMessages maps each category to its redirect message.
var blockedMessages = map[string]string{
	CategoryViolence:     "I can't discuss violent content. Let's talk about something positive!",
	CategoryExplicit:     "That's not appropriate for our learning environment. What else can I help you with?",
	CategoryDrugs:        "I can't help with that topic. Let's focus on your studies!",
	CategoryPersonalInfo: "Please don't share personal information online. It's not safe!",
	CategoryBullying:     "That language isn't okay. Remember to be kind to yourself and others!",
}

const genericBlockedMessage = "I can't help with that. Let's focus on learning!"

// Caps-ratio flagging thresholds. The length gate keeps short all-caps words
// like "OK" or "ASAP" from tripping the aggression indicator.
const (
	capsRatioThreshold  = 0.5
	capsLengthThreshold = 20
)

// Classify decides whether a message may proceed. The jailbreak phrase list
// is tested first; otherwise the blocked categories are tested in fixed
// order and the first substring match wins.
func Classify(text string, tier AgeTier) Decision {
	lower := strings.ToLower(text)

	for _, phrase := range jailbreakPhrases {
		if strings.Contains(lower, phrase) {
			return Decision{
				Blocked:  true,
				Category: CategoryJailbreak,
				Message:  genericBlockedMessage,
			}
		}
	}

	for _, cat := range blockedCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return Decision{
					Blocked:  true,
					Category: cat.name,
					Message:  blockedMessage(cat.name),
				}
			}
		}
	}

	return Decision{Blocked: false}
}

// Flag returns the non-blocking annotations for a permitted message. Each
// keyword list contributes at most one flag regardless of how many of its
// keywords match. Flag does not consult the blocking tables; callers invoke
// it only after Classify allows the message.
func Flag(text string) []string {
	lower := strings.ToLower(text)
	var flags []string

	for _, kw := range mentalHealthKeywords {
		if strings.Contains(lower, kw) {
			flags = append(flags, FlagMentalHealth)
			break
		}
	}

	for _, kw := range academicIntegrityKeywords {
		if strings.Contains(lower, kw) {
			flags = append(flags, FlagAcademicIntegrity)
			break
		}
	}

	if capsRatio(text) > capsRatioThreshold && len([]rune(text)) > capsLengthThreshold {
		flags = append(flags, FlagExcessiveCaps)
	}

	return flags
}

// capsRatio is the ratio of uppercase letters to total rune count.
func capsRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(len(runes))
}

func blockedMessage(category string) string {
	if msg, ok := blockedMessages[category]; ok {
		return msg
	}
	return genericBlockedMessage
}

// basePrompt is the pedagogical system prompt shared by all age tiers.
const basePrompt = `You are inspir AI, a friendly and helpful AI tutor designed for students.

Your role:
- Help students learn and understand concepts
- Encourage critical thinking and problem-solving
- Be patient, kind, and encouraging
- Use age-appropriate language
- Never provide direct answers to homework/tests - guide instead
- If a student seems distressed, encourage them to talk to a trusted adult

Remember: You're here to help students LEARN, not just get answers.`

var ageAddenda = map[AgeTier]string{
	AgeTierUnder14: "\n\nAge group: Under 14. Use very simple language, lots of encouragement, and kid-friendly examples.",
	AgeTierTeen:    "\n\nAge group: 13-17 (Teen). Use clear language with relatable examples.",
	AgeTierAdult:   "\n\nAge group: 18+ (Adult). Use sophisticated language and advanced concepts.",
}

// SystemPrompt returns the LLM system instructions for an age tier.
// Unknown tiers fall back to the teen addendum.
func SystemPrompt(tier AgeTier) string {
	addendum, ok := ageAddenda[tier]
	if !ok {
		addendum = ageAddenda[AgeTierTeen]
	}
	return basePrompt + addendum
}

// RegenerationAddendum is appended to the system prompt when the client
// explicitly rejected the previous answer and asked for a new one.
const RegenerationAddendum = "\n\nNote: The user was not satisfied with the previous response and requested a regeneration. Please provide a different, improved answer with a fresh perspective and approach."
