// Package extract turns chat messages into issue-tracker task candidates.
//
// The Service owns the attention gate, dedup, and record lifecycle; the
// Engine owns the LLM round trip and payload parsing. Extraction consumes
// the conversation-context engine twice: formatted context goes into the
// prompt on the way in, and the confidence trail receives the result on the
// way out.
package extract
