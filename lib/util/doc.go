// Package util provides small data structures shared by the store packages.
//
// The package contains:
//   - expiry: a priority queue keyed by string that combines a binary heap with
//     a hash map, used to find cache entries that have been idle for too long
//     while still allowing direct updates and removal by path
//
// The structures are not thread-safe, callers synchronize access themselves.
package util
