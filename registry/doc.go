// Package registry caches generated invocation types.
//
// A generated type is created once per distinct (method, strategy) pair and
// reused for every invocation instance of that method. Table is the cache
// point: Ensure builds on first use under a per-table lock, later calls for
// the same Key return the cached type. Observers receive lifecycle events
// when types are generated into or evicted from the table.
package registry
