package synth

// Category is the response category a reply is seeded from.
type Category string

const (
	CategoryGreeting      Category = "greeting"
	CategoryQuestion      Category = "question"
	CategoryAgreement     Category = "agreement"
	CategoryEmpathy       Category = "empathy"
	CategoryEncouragement Category = "encouragement"
	CategoryCuriosity     Category = "curiosity"
)

// builtinBank seeds responses for categories where the profile has no
// learned exemplars yet.
var builtinBank = map[Category][]string{
	CategoryGreeting: {
		"Hey! Good to hear from you.",
		"Hi there! How's it going?",
		"Hey, what's up?",
	},
	CategoryQuestion: {
		"Good question! Here's what I think.",
		"Let me think about that. I'd say it depends on the details.",
		"That's worth considering. My first take is yes.",
	},
	CategoryAgreement: {
		"That makes sense to me.",
		"I see where you're coming from.",
		"Good point, I agree with that.",
	},
	CategoryEmpathy: {
		"That sounds rough. I'm here if you want to talk it through.",
		"Sorry to hear that. Anything I can do to help?",
		"That's a tough spot. Hang in there.",
	},
	CategoryEncouragement: {
		"You've got this.",
		"Glad I could help! Happy to do it again anytime.",
		"Anytime! That's what I'm here for.",
	},
	CategoryCuriosity: {
		"Interesting. Tell me more about that.",
		"Thanks for sharing that with me.",
		"That's good to know. How did it go?",
	},
}

// elaborations are appended when a long-preference profile gets a short draft.
var elaborations = []string{
	"Let me explain further.",
	"Here's more detail on that.",
	"There's actually more to it.",
	"I can expand on this.",
}

// fallbackResponse is the guaranteed non-empty reply of last resort.
const fallbackResponse = "Thanks for your message."
