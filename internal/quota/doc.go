// Package quota tracks the daily allowance of identification requests.
// State lives in a key-value store so it survives process restarts; the
// day counter resets lazily on the first access after the calendar day changes.
package quota
