// Package identify coordinates a single wood identification request: quota
// gating, photo compression, result caching, remote identification and the
// offline fallback.
package identify
