package classify

import "regexp"

// Decision-required pattern groups. Category order is the decision
// priority: the first matched category in this order drives the decision,
// but every matched category is reported.
var decisionCategories = []string{"sensitive", "money", "commitment", "choice"}

var decisionPatterns = map[string][]*regexp.Regexp{
	"choice": compileAll(
		`option\s+[a-z]\s+(or|vs\.?|versus)\s+(option\s+)?[a-z]`,
		`which\s+(one|option|choice|approach|solution)`,
		`do\s+you\s+prefer`,
		`would\s+you\s+(prefer|like|rather|choose)`,
		`should\s+(we|i)\s+(go\s+with|choose|pick|select)`,
		`please\s+(choose|select|pick)`,
		`what\s+do\s+you\s+think\s+(about|of)`,
		`(option|choice)\s*[1-9a-z][\s:]+.*?(option|choice)\s*[1-9a-z]`,
	),
	"money": compileAll(
		`\$\s*[\d,]+(\.\d{2})?`,
		`€\s*[\d,]+(\.\d{2})?`,
		`£\s*[\d,]+(\.\d{2})?`,
		`\b(budget|cost|price|expense|payment|invoice)\b`,
		`\b(approve|approval|authorize|authorization)\b`,
		`\b(quote|quotation|estimate|pricing)\b`,
	),
	"commitment": compileAll(
		`\b(can\s+you\s+)?(commit|promise|guarantee)\b`,
		`\b(deadline|due\s+date|deliver\s+by|complete\s+by)\b`,
		`\b(by\s+)?(end\s+of|before)\s+(the\s+)?(day|week|month|quarter)`,
		`when\s+can\s+you\s+(deliver|complete|finish)`,
		`is\s+it\s+possible\s+to\s+(deliver|complete|finish)`,
	),
	"sensitive": compileAll(
		`\b(confidential|sensitive|private)\b`,
		`\b(urgent|asap|immediately|critical)\b`,
		`\b(legal|lawyer|attorney|lawsuit)\b`,
		`\b(contract|agreement|terms|nda|mou)\b`,
		`\b(sign|signature|execute)\s+(this|the)\s+(document|agreement|contract)`,
		`\b(compliance|regulatory|audit)\b`,
	),
}

// Auto-respond category tables. Table order breaks score ties: the
// strict > comparison in detectCategory keeps the earlier category.
var autoRespondCategories = []Category{
	CategoryMeetingConfirmation,
	CategorySimpleAcknowledgment,
	CategorySchedulingRequest,
	CategoryFollowUp,
	CategoryStatusUpdate,
}

var autoRespondPatterns = map[Category][]*regexp.Regexp{
	CategoryMeetingConfirmation: compileAll(
		`(can|could)\s+(we|you)\s+(meet|sync|chat|talk|call)`,
		`(are|is)\s+(you|your\s+team)\s+(free|available)`,
		`(schedule|set\s+up|arrange)\s+(a\s+)?(meeting|call|sync)`,
		`(let'?s|shall\s+we)\s+(meet|sync|chat|talk|call)`,
		`(how\s+about|what\s+about)\s+\w+day`,
	),
	CategorySimpleAcknowledgment: compileAll(
		`\b(thanks|thank\s+you|thx|ty)\s*[!.]*\s*$`,
		`(got\s+it|received|noted|understood)`,
		`(sounds\s+good|looks\s+good|perfect|great)`,
		`(will\s+do|on\s+it)`,
	),
	CategorySchedulingRequest: compileAll(
		`when\s+(are|is)\s+(you|your\s+team)\s+(free|available)`,
		`(your|what'?s\s+your)\s+availability`,
		`(let\s+me\s+know|lmk)\s+(when|your\s+availability)`,
		`(can\s+you\s+share|share)\s+your\s+(calendar|availability)`,
	),
	CategoryFollowUp: compileAll(
		`(just\s+)?(checking\s+in|following\s+up)`,
		`(did\s+you\s+(get|receive|see))`,
		`(any\s+update|updates?)\s+(on|about|regarding)`,
		`(wanted\s+to\s+)?(touch\s+base|check\s+in)`,
	),
	CategoryStatusUpdate: compileAll(
		`(unfortunately|regret\s+to\s+inform)`,
		`(not\s+(been\s+)?selected|not\s+moving\s+forward)`,
		`(decided\s+to\s+pursue|chosen\s+to\s+proceed\s+with)\s+other`,
		`(position\s+has\s+been\s+filled|role\s+has\s+been\s+filled)`,
		`(will\s+not\s+be\s+(proceeding|moving\s+forward))`,
		`(after\s+careful\s+consideration)`,
		`(this\s+is\s+(a\s+)?(to\s+)?(notify|inform|update)\s+you)`,
		`(wanted\s+to\s+let\s+you\s+know)`,
		`(for\s+your\s+(information|records|reference))`,
		`(please\s+be\s+(advised|informed))`,
		`(status\s+update|update\s+on\s+your)`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}
