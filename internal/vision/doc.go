// Package vision sends wood photos to a remote vision model and normalizes
// whatever JSON shape the model answers with into a ranked match list.
// It supports an OpenAI-compatible chat completions endpoint and Gemini,
// with client-side rate limiting in front of either.
package vision
