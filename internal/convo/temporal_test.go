package convo

import (
	"testing"
	"time"
)

func TestExtractTimeContext_Yesterday(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	tc := e.ExtractTimeContext("yesterday we started this")

	if tc.Relative == nil {
		t.Fatal("expected a relative time hit")
	}
	if tc.Relative.Value != 1 || tc.Relative.Unit != "days" || tc.Relative.Raw != "yesterday" {
		t.Errorf("relative = %+v, want {1 days yesterday}", tc.Relative)
	}
}

func TestExtractTimeContext_NumericAgo(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	tc := e.ExtractTimeContext("we shipped that 3 weeks ago")

	if tc.Relative == nil {
		t.Fatal("expected a relative time hit")
	}
	if tc.Relative.Value != 3 || tc.Relative.Unit != "weeks" {
		t.Errorf("relative = %+v, want {3 weeks}", tc.Relative)
	}
}

func TestExtractTimeContext_DeadlineAndDuration(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	tc := e.ExtractTimeContext("needs to land by friday, should take 2 hours")

	if tc.Deadline == nil || tc.Deadline.Raw != "by friday" {
		t.Errorf("deadline = %+v, want {by friday}", tc.Deadline)
	}
	if tc.Duration == nil || tc.Duration.Value != 2 || tc.Duration.Unit != "hours" {
		t.Errorf("duration = %+v, want {2 hours}", tc.Duration)
	}
}

func TestExtractTimeContext_FirstHitPerCategory(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	// Two relative expressions: only the first matching rule is kept.
	tc := e.ExtractTimeContext("yesterday and also 2 days ago")

	if tc.Relative == nil || tc.Relative.Raw != "yesterday" {
		t.Errorf("relative = %+v, want the yesterday hit", tc.Relative)
	}
}

func TestExtractTimeContext_NoHits(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	tc := e.ExtractTimeContext("looks good to me")

	if !tc.Empty() {
		t.Errorf("time context = %+v, want empty", tc)
	}
}

func TestAnalyzeTemporalPatterns_StalenessAfter24h(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	old := time.Now().Add(-25 * time.Hour)
	e.ProcessMessage("ch1", "m1", "we need to fix the export pipeline", "alice", old, "")

	report := e.AnalyzeTemporalPatterns("ch1")
	if len(report.StalenessAlerts) != 1 {
		t.Fatalf("staleness alerts = %d, want 1", len(report.StalenessAlerts))
	}
	alert := report.StalenessAlerts[0]
	if alert.Task != "export pipeline" {
		t.Errorf("task = %q, want export pipeline", alert.Task)
	}
	if alert.HoursSinceActivity != 25 {
		t.Errorf("hours = %d, want 25", alert.HoursSinceActivity)
	}
	if alert.LastMentionedBy != "alice" {
		t.Errorf("lastMentionedBy = %q, want alice", alert.LastMentionedBy)
	}
}

func TestAnalyzeTemporalPatterns_RecentActivityExcluded(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	recent := time.Now().Add(-time.Hour)
	e.ProcessMessage("ch1", "m1", "we need to fix the export pipeline", "alice", recent, "")

	report := e.AnalyzeTemporalPatterns("ch1")
	if len(report.StalenessAlerts) != 0 {
		t.Errorf("staleness alerts = %v, want none within 24h", report.StalenessAlerts)
	}
}

func TestAnalyzeTemporalPatterns_RecurringTopics(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()
	e.AddMessage("ch1", "m1", "hey the deploy problem is back", "alice", ts)
	e.AddMessage("ch1", "m2", "anyway, lunch?", "bob", ts.Add(time.Minute))
	e.AddMessage("ch1", "m3", "so, the deploy problem again", "carol", ts.Add(2*time.Minute))

	report := e.AnalyzeTemporalPatterns("ch1")
	if len(report.RecurringTopics) != 1 {
		t.Fatalf("recurring topics = %v, want exactly one", report.RecurringTopics)
	}
	if report.RecurringTopics[0].Topic != "deploy problem" || report.RecurringTopics[0].Count != 2 {
		t.Errorf("topic = %+v, want {deploy problem 2}", report.RecurringTopics[0])
	}
}

func TestAnalyzeTemporalPatterns_UnknownChannel(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	report := e.AnalyzeTemporalPatterns("nope")

	if len(report.StalenessAlerts) != 0 || len(report.RecurringTopics) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}
