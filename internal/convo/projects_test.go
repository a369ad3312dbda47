package convo

import (
	"testing"
	"time"
)

func TestSyncChannelToProject_RoundTrip(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()
	e.ProcessMessage("ch1", "m1", "we need to fix the search indexer", "alice", ts, "")

	// Repeated syncs must report the channel exactly once.
	e.SyncChannelToProject("atlas", "ch1")
	e.SyncChannelToProject("atlas", "ch1")
	e.SyncChannelToProject("atlas", "ch1")

	pc, ok := e.CrossChannelContext("atlas")
	if !ok {
		t.Fatal("expected project context")
	}
	if len(pc.Channels) != 1 || pc.Channels[0] != "ch1" {
		t.Errorf("channels = %v, want [ch1] exactly once", pc.Channels)
	}
}

func TestSyncChannelToProject_RepeatedSyncDoesNotInflateMentions(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()
	e.ProcessMessage("ch1", "m1", "we need to fix the search indexer", "alice", ts, "")
	e.SyncChannelToProject("atlas", "ch1")
	e.SyncChannelToProject("atlas", "ch1")

	pc, _ := e.CrossChannelContext("atlas")
	for _, te := range pc.TrendingEntities {
		if te.Name == "search indexer" && te.Mentions != 1 {
			t.Errorf("mentions = %d, want 1 (latest contribution, not stacked)", te.Mentions)
		}
	}
}

func TestCrossChannelContext_TrendingOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()

	// "search indexer" mentioned in two channels, "billing job" in one.
	e.ProcessMessage("ch1", "m1", "we need to fix the search indexer", "alice", ts, "")
	e.ProcessMessage("ch1", "m2", "still need to fix the search indexer", "bob", ts.Add(time.Second), "")
	e.ProcessMessage("ch2", "m3", "can someone fix the search indexer?", "carol", ts, "")
	e.ProcessMessage("ch2", "m4", "also fix the billing job", "carol", ts.Add(time.Second), "")

	e.SyncChannelToProject("atlas", "ch1")
	e.SyncChannelToProject("atlas", "ch2")

	pc, ok := e.CrossChannelContext("atlas")
	if !ok {
		t.Fatal("expected project context")
	}
	if len(pc.Channels) != 2 {
		t.Fatalf("channels = %v, want 2", pc.Channels)
	}

	var indexer *TrendingEntity
	for i := range pc.TrendingEntities {
		if pc.TrendingEntities[i].Name == "search indexer" {
			indexer = &pc.TrendingEntities[i]
		}
	}
	if indexer == nil {
		t.Fatalf("trending = %+v, want search indexer present", pc.TrendingEntities)
	}
	if indexer.Mentions != 3 {
		t.Errorf("indexer mentions = %d, want 3 across channels", indexer.Mentions)
	}
	if indexer.Channels != 2 {
		t.Errorf("indexer channels = %d, want 2", indexer.Channels)
	}
	if pc.TrendingEntities[0].Name != "search indexer" {
		t.Errorf("top trending = %q, want search indexer", pc.TrendingEntities[0].Name)
	}
}

func TestCrossChannelContext_UnknownProject(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if _, ok := e.CrossChannelContext("nope"); ok {
		t.Error("expected ok=false for undeclared project")
	}
}

func TestSyncChannelToProject_UnknownChannelIsNoop(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SyncChannelToProject("atlas", "ghost")

	if _, ok := e.CrossChannelContext("atlas"); ok {
		t.Error("syncing an unknown channel should not declare the project")
	}
}
