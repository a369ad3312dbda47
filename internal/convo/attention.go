package convo

import (
	"regexp"
	"strings"
)

// attentionRule is one ordered (matcher, weight) pair. All rules are
// additive and every hit is reported back as a reason.
type attentionRule struct {
	re     *regexp.Regexp
	weight int
	reason string
}

var attentionRules = []attentionRule{
	{regexp.MustCompile(`(?i)\b(bug|broken|crash(?:ing|ed)?|error|fail(?:ing|ed|ure)?|regression|exception)\b`), 25, "bug language"},
	{regexp.MustCompile(`(?i)\b(urgent|asap|critical|blocker|blocking|immediately|right now|emergency)\b`), 30, "urgency language"},
	{regexp.MustCompile(`(?i)\b(fix|implement|build|deploy|ship|update|refactor|investigate|release)\b`), 15, "task verb"},
	{regexp.MustCompile(`@[A-Za-z][\w-]{2,}`), 10, "direct mention"},
	{regexp.MustCompile(`(?i)\b(by (?:today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|eod|eow)|deadline|due (?:date|by|on)|end of (?:day|week|sprint))\b`), 20, "deadline language"},
	{regexp.MustCompile(`(?i)\b(customer(?:s)?|revenue|production|outage|downtime|sla|churn)\b`), 20, "business impact"},
	{regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|good (?:morning|afternoon|evening))\b[\s!.,]*$`), -20, "greeting"},
	{regexp.MustCompile(`(?i)^\s*(ok(?:ay)?|sure|yes|no|yep|nope|thanks|thank you|ty|got it|sounds good|will do|\+1|nice|cool)\b[\s!.]*$`), -30, "acknowledgment"},
	{regexp.MustCompile(`(?i)^\s*(lol|haha+|hmm+|heh|:\)|:D)\s*$`), -25, "casual interjection"},
}

const (
	replyBonus    = 5
	topicBonus    = 10
	highThreshold = 70
	medThreshold  = 40
)

// AttentionScore rates a single message 0..100. The score never filters
// a message by itself; it is informational and feeds the orchestrator's
// summaries and the extraction actionability gate.
func (e *Engine) AttentionScore(content string, actx *AttentionContext) Attention {
	return scoreAttention(content, actx)
}

func scoreAttention(content string, actx *AttentionContext) Attention {
	var att Attention

	if strings.TrimSpace(content) == "" {
		att.Level = "low"
		att.Reasons = []string{"empty content"}
		return att
	}

	score := 0
	for _, r := range attentionRules {
		if r.re.MatchString(content) {
			score += r.weight
			att.Reasons = append(att.Reasons, r.reason)
		}
	}

	if actx != nil {
		if actx.IsReply {
			score += replyBonus
			att.Reasons = append(att.Reasons, "reply continuity")
		}
		if actx.ActiveTopic != "" && strings.Contains(strings.ToLower(content), actx.ActiveTopic) {
			score += topicBonus
			att.Reasons = append(att.Reasons, "continues active topic")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	att.Score = score

	switch {
	case score >= highThreshold:
		att.Level = "high"
	case score >= medThreshold:
		att.Level = "medium"
	default:
		att.Level = "low"
	}
	return att
}

// cacheScored appends to the channel's attention ring.
// Caller must hold the write lock.
func (ch *channelState) cacheScored(sm ScoredMessage) {
	ch.attention = append(ch.attention, sm)
	if len(ch.attention) > attentionCacheCap {
		ch.attention = ch.attention[len(ch.attention)-attentionCacheCap:]
	}
}

// HighAttention returns cached messages at or above the given level for a
// channel, newest last.
func (e *Engine) HighAttention(channelID string, minScore int) []ScoredMessage {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	ch, ok := e.store.channels[channelID]
	if !ok {
		return nil
	}
	var out []ScoredMessage
	for _, sm := range ch.attention {
		if sm.Attention.Score >= minScore {
			out = append(out, sm)
		}
	}
	return out
}
