// Package openai implements the ai interfaces against OpenAI-compatible
// APIs using langchaingo clients. It serves both the hosted OpenAI API and
// self-hosted compatible servers (Ollama, vLLM, LocalAI) via Config.BaseURL.
package openai
