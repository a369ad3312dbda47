package convo

import (
	"fmt"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

func newTestEngine() *Engine {
	return NewEngine(NewStore(), log.Nop(), Hooks{})
}

func TestAddMessage_AppendsToActiveThread(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()

	t1 := e.AddMessage("ch1", "m1", "the login page is broken", "alice", ts)
	t2 := e.AddMessage("ch1", "m2", "I can reproduce it", "bob", ts.Add(time.Minute))

	if t1.ID != t2.ID {
		t.Errorf("second message started thread %s, want append to %s", t2.ID, t1.ID)
	}
	if len(t2.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(t2.Messages))
	}
	if !t2.Active {
		t.Error("thread should still be active")
	}
}

func TestAddMessage_TopicMarkerStartsNewThread(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()

	t1 := e.AddMessage("ch1", "m1", "the login page is broken", "alice", ts)
	t2 := e.AddMessage("ch1", "m2", "anyway, did anyone review my PR?", "bob", ts.Add(time.Minute))

	if t1.ID == t2.ID {
		t.Fatal("topic marker should have started a new thread")
	}
	if t1.Active {
		t.Error("prior thread should be inactive after topic shift")
	}
	if !t2.Active {
		t.Error("new thread should be active")
	}
}

func TestAddMessage_TopicSeed(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	th := e.AddMessage("ch1", "m1", "hey, the checkout bug is back", "alice", time.Now())

	if th.Topic != "checkout bug" {
		t.Errorf("topic = %q, want %q", th.Topic, "checkout bug")
	}
}

func TestAddMessage_LazyClosureAfterSilence(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()

	t1 := e.AddMessage("ch1", "m1", "deploy is failing", "alice", ts)

	// 31 minutes of silence: the late message still lands on the old
	// thread, which is then marked inactive.
	t2 := e.AddMessage("ch1", "m2", "still failing for me", "bob", ts.Add(31*time.Minute))
	if t1.ID != t2.ID {
		t.Fatal("late message should append before closure is evaluated")
	}
	if t2.Active {
		t.Error("thread should be inactive after >30min gap")
	}

	// The next message finds no active thread and starts a new one.
	t3 := e.AddMessage("ch1", "m3", "ok looking into the deploy now", "alice", ts.Add(32*time.Minute))
	if t3.ID == t1.ID {
		t.Error("expected a fresh thread after lazy closure")
	}
}

func TestAddMessage_LastActivityMonotone(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()

	e.AddMessage("ch1", "m1", "first", "alice", ts)
	th := e.AddMessage("ch1", "m2", "out of order delivery", "bob", ts.Add(-time.Minute))

	if th.LastActivityAt.Before(ts) {
		t.Errorf("LastActivityAt regressed to %v, want >= %v", th.LastActivityAt, ts)
	}
}

func TestAddMessage_UnionsEntities(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	th := e.AddMessage("ch1", "m1", "we need to fix the payment flow", "alice", time.Now())

	if _, ok := th.Entities["payment flow"]; !ok {
		t.Errorf("thread entity set = %v, want to contain %q", th.Entities, "payment flow")
	}
}

func TestAddMessage_ChannelsAreIsolated(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()

	t1 := e.AddMessage("ch1", "m1", "first channel", "alice", ts)
	t2 := e.AddMessage("ch2", "m2", "second channel", "alice", ts)

	if t1.ID == t2.ID {
		t.Error("channels must not share threads")
	}
	if t1.ChannelID != "ch1" || t2.ChannelID != "ch2" {
		t.Errorf("channel IDs = %q, %q", t1.ChannelID, t2.ChannelID)
	}
}

func TestClearChannel(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.AddMessage("ch1", "m1", "something", "alice", time.Now())
	e.ClearChannel("ch1")

	if got := len(e.store.Channels()); got != 0 {
		t.Errorf("channels after clear = %d, want 0", got)
	}
}

func TestThreadWindow(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	ts := time.Now()
	var th *Thread
	for i := 0; i < 4; i++ {
		th = e.AddMessage("ch1", fmt.Sprintf("m%d", i), fmt.Sprintf("message %d", i), "alice", ts.Add(time.Duration(i)*time.Second))
	}

	got := e.ThreadWindow("ch1", th.ID, 2)
	if len(got) != 2 {
		t.Fatalf("window = %d messages, want 2", len(got))
	}
	if got[0].Content != "message 2" || got[1].Content != "message 3" {
		t.Errorf("window = [%q, %q], want the last two messages", got[0].Content, got[1].Content)
	}

	if all := e.ThreadWindow("ch1", th.ID, 0); len(all) != 4 {
		t.Errorf("full window = %d messages, want 4", len(all))
	}
	if missing := e.ThreadWindow("ch1", "nope", 2); missing != nil {
		t.Errorf("window for unknown thread = %v, want nil", missing)
	}
}
