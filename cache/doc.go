// Package cache implements the process-wide collection cache: a table
// mapping collection name to its single resident in-memory store, with
// access tracking, dirty state, and a byte-budget plus TTL eviction
// policy.
//
// The table is guarded by one mutex covering every operation. This is
// a deliberate simplicity/throughput trade-off: requests for different
// collections still serialize on the table lock, but the invariant
// "at most one resident store per name" falls out for free.
//
// Eviction ordering is intentional. The TTL sweep only ever removes
// clean entries, so idle age alone can never drop unflushed writes.
// The byte budget is an unconditional ceiling: clean entries go first,
// oldest access first, but dirty entries are evicted too once no clean
// entry remains (after a best-effort persist).
package cache
