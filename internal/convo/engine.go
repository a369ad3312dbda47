package convo

import (
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

// Hooks decouples the engine from its metrics backend. All fields are
// optional; nil hooks are skipped.
type Hooks struct {
	// OnMessage fires once per processed message with the attention level
	// and whether the message started a new thread.
	OnMessage func(attentionLevel string, threadStarted bool)

	// OnDecision fires when a decision sentence is recorded.
	OnDecision func()

	// OnResolve fires when a pronoun or vague reference resolves to a
	// focus-stack entry of the given kind.
	OnResolve func(kind string)
}

// Engine is the conversation-context engine. It owns no goroutines and
// performs no I/O; every operation is a bounded in-memory computation
// over the arena Store.
type Engine struct {
	store  *Store
	logger log.Logger
	hooks  Hooks
}

// NewEngine creates a context engine over the given arena store.
func NewEngine(store *Store, logger log.Logger, hooks Hooks) *Engine {
	if store == nil {
		panic(xerrors.New("convo: store is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		store:  store,
		logger: logger,
		hooks:  hooks,
	}
}

// ClearChannel drops all conversational state for one channel. Task
// origins and the confidence trail survive.
func (e *Engine) ClearChannel(channelID string) {
	e.store.ClearChannel(channelID)
}
