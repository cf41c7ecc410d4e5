// Package redisds implements the datastore contract on Redis hashes.
//
// Node layout:
//   - {prefix}/netconf                              HASH {_node: 1}
//   - {prefix}/netconf/streams                      HASH {_node: 1}
//   - {prefix}/netconf/streams/stream[name=NETCONF] HASH {_node: 1, name: NETCONF, ...}
//
// Merge maps to HSET, so it overlays fields; delete removes the node and every
// key below it in one MULTI/EXEC.
package redisds
