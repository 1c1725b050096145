// Package tokenizer estimates token counts for text and message lists when
// an upstream reply omits usage accounting. It prefers an exact tiktoken
// encoding for known OpenAI-compatible models and falls back to a
// character-ratio estimator that distinguishes CJK from ASCII text.
package tokenizer
