// Package memory implements the two conversation memories of the answer
// pipeline:
// 1. Short-term memory: a bounded, time-expiring log of recent turns per
// session, used as personalization context.
// 2. Long-term memory: durable per-user facts promoted from conversation
// turns by an explicit, pluggable policy, deduplicated by fact identity.
package memory
