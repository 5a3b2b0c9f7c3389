// Package mirrorcache keeps a process-local mirror of selected entries from
// an authoritative remote key-value store, using server-pushed invalidation
// notifications as the primary consistency mechanism and periodic full
// resynchronization as a correctness backstop. Repeated reads of mirrored
// data cost a map lookup, not a network round-trip, without serving stale
// data indefinitely.
//
// Components:
//   - remote.Remote: the authoritative store boundary (Redis via remote/redis,
//     in-process via remote/memory).
//   - codec.Codec[V]: (de)serializes V <-> the store's flat payloads.
//   - absentstore.Store: bounded-TTL "confirmed absent" markers, suppressing
//     repeated remote lookups for hot missing ids.
//
// Two collection shapes:
//   - Collection[T] (New): lazily populated; reads fall through to the remote
//     store on miss.
//   - FullCollection[T, U] (NewFull): whole-dataset mirror, optionally
//     filtered and mapped, rebuilt by Sync; local reads never do I/O.
//
// Invalidation events flow through a bounded queue (oldest dropped on
// overflow - deliberately lossy-but-live) into a fixed worker pool that
// re-fetches the current remote value. Consistency is eventual: ordering is
// only meaningful per id, and the re-fetch plus periodic Sync bound how long
// any divergence survives.
package mirrorcache
