// Package engine orchestrates the conversation flow: it retrieves
// knowledge-base context for each user message, prompts the completion
// model with that context plus recent history and the rolling summary,
// scores confidence from the retrieval results, and persists both sides of
// the exchange. Every summaryInterval messages the full transcript is
// re-summarized so long conversations keep a bounded prompt.
package engine
