// Package classify implements the deterministic decision engine that
// routes each incoming email to an automatic reply or to the user.
package classify

import (
	"fmt"
	"log/slog"
	"strings"
)

// Decision is the routing outcome of classification.
type Decision string

const (
	// AutoRespond means the agent handles the email fully.
	AutoRespond Decision = "auto"
	// NeedsChoice means the user must pick between offered options.
	NeedsChoice Decision = "choice"
	// NeedsApproval means the user must approve (money, contracts, commitments).
	NeedsApproval Decision = "approve"
	// NeedsInput means the email is ambiguous and needs the user.
	NeedsInput Decision = "input"
)

// Category is the detected email type for the auto-respond path.
type Category string

const (
	CategoryMeetingConfirmation  Category = "meeting_confirmation"
	CategorySimpleAcknowledgment Category = "simple_acknowledgment"
	CategorySchedulingRequest    Category = "scheduling_request"
	CategoryFollowUp             Category = "follow_up"
	CategoryInfoRequest          Category = "info_request"
	CategoryStatusUpdate         Category = "status_update"
	CategoryUnknown              Category = "unknown"
)

// Result is the immutable output of Classify.
type Result struct {
	Decision         Decision
	Category         Category
	Confidence       float64
	Reason           string
	MatchedPatterns  []string
	DetectedLanguage string
}

// Config carries the user preferences the classifier consults.
type Config struct {
	// AlwaysNotifySenders holds exact addresses or "@domain" suffixes
	// that always route to the user.
	AlwaysNotifySenders []string
	// AutoRespondTypes is the allow-list of categories the agent may
	// answer without the user.
	AutoRespondTypes []string
}

// Classifier decides whether an email can be answered automatically.
// It is a pure function over its configuration and the fixed pattern
// tables; no I/O happens here.
type Classifier struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Classifier with the given preferences.
func New(cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cfg: cfg, logger: logger}
}

// Classify determines the routing decision for one email. threadContext
// carries prior bodies in the thread; it is accepted for future use and
// does not influence the current pattern tables.
func (c *Classifier) Classify(subject, body, senderEmail string, threadContext []string) Result {
	_ = threadContext
	text := strings.ToLower(subject + "\n" + body)

	// 1. Sender override wins over everything.
	if senderInList(senderEmail, c.cfg.AlwaysNotifySenders) {
		c.logger.Debug("sender in always_notify list", "sender", senderEmail)
		return Result{
			Decision:         NeedsInput,
			Category:         CategoryUnknown,
			Confidence:       1.0,
			Reason:           fmt.Sprintf("Sender %q is in always_notify_senders list", senderEmail),
			MatchedPatterns:  []string{},
			DetectedLanguage: DetectLanguage(subject + "\n" + body),
		}
	}

	// 2. Decision-required patterns. All categories are checked and
	// reported; the first matched category in priority order decides.
	matched := checkDecisionPatterns(text)
	if len(matched) > 0 {
		decision := NeedsChoice
		for _, cat := range decisionCategories {
			if !contains(matched, cat) {
				continue
			}
			if cat == "choice" {
				decision = NeedsChoice
			} else {
				decision = NeedsApproval
			}
			break
		}
		return Result{
			Decision:         decision,
			Category:         CategoryUnknown,
			Confidence:       0.85,
			Reason:           "Matched decision patterns: " + strings.Join(matched, ", "),
			MatchedPatterns:  matched,
			DetectedLanguage: DetectLanguage(subject + "\n" + body),
		}
	}

	// 3. Auto-respond category scoring.
	category, score := detectCategory(text)
	if score >= 0.6 && contains(c.cfg.AutoRespondTypes, string(category)) {
		return Result{
			Decision:         AutoRespond,
			Category:         category,
			Confidence:       score,
			Reason:           fmt.Sprintf("Detected as %q which is in auto_respond_types", category),
			MatchedPatterns:  []string{string(category)},
			DetectedLanguage: DetectLanguage(subject + "\n" + body),
		}
	}

	// 4. Default: hand to the user.
	return Result{
		Decision:         NeedsInput,
		Category:         category,
		Confidence:       0.5,
		Reason:           "No clear patterns matched; defaulting to user input",
		MatchedPatterns:  []string{},
		DetectedLanguage: DetectLanguage(subject + "\n" + body),
	}
}

// senderInList matches exact addresses case-insensitively; entries with a
// leading "@" match the sender's domain suffix.
func senderInList(sender string, list []string) bool {
	s := strings.ToLower(strings.TrimSpace(sender))
	for _, entry := range list {
		e := strings.ToLower(strings.TrimSpace(entry))
		if e == "" {
			continue
		}
		if strings.HasPrefix(e, "@") {
			if strings.HasSuffix(s, e) {
				return true
			}
		} else if s == e {
			return true
		}
	}
	return false
}

// checkDecisionPatterns returns every decision category with at least one
// matching pattern, in priority order.
func checkDecisionPatterns(text string) []string {
	var matched []string
	for _, cat := range decisionCategories {
		for _, re := range decisionPatterns[cat] {
			if re.MatchString(text) {
				matched = append(matched, cat)
				break
			}
		}
	}
	return matched
}

// detectCategory scores every auto-respond category by its pattern match
// count; score = min(0.6 + 0.1*matches, 0.95). Ties keep the earlier
// table entry.
func detectCategory(text string) (Category, float64) {
	best := CategoryUnknown
	bestScore := 0.0

	for _, cat := range autoRespondCategories {
		count := 0
		for _, re := range autoRespondPatterns[cat] {
			if re.MatchString(text) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		score := 0.6 + 0.1*float64(count)
		if score > 0.95 {
			score = 0.95
		}
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	return best, bestScore
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
