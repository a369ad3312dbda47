// Package convo is Scribe's conversation-context engine. It turns a raw,
// unordered stream of short chat messages into thread-segmented,
// entity-resolved, decision-annotated, temporally-aware context: the
// Engine segments threads, tracks a recency-ranked entity focus stack,
// scores message attention, records decisions and task origins,
// aggregates cross-channel project memory, and maintains the confidence
// trail used to learn extraction adjustments. All state lives in one
// arena Store, is process-local, and is deliberately volatile.
package convo
