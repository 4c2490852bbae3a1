// Package fallback implements the on-device identifier used when the remote
// service is unreachable or fails. It ranks species with a small colour
// prototype model and degrades to a placeholder match when no model is installed.
package fallback
