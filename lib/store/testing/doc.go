// Package testing provides standardised tests and benchmarks for store
// implementations that satisfy the store.IStore interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the IStore contract
//   - benchmark: Performance tests for the common file operations
//
// The factory must return a store rooted at the given directory that serves
// the namespaces NamespaceA and NamespaceB. Calling the factory twice with the
// same directory must open the same data, which is how persistence is tested.
//
// Example usage:
//
//	factory := func(root string) store.IStore {
//		return NewMyStore(root, "docs:p1", "music:p2")
//	}
//
//	storetesting.RunStoreTests(t, "MyStore", factory)
//	storetesting.RunStoreBenchmarks(b, "MyStore", factory)
package testing
