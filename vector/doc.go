// Package vector implements the vec0 sidecar maintenance and k-NN search
// path for vector-promoted fields. A vector field's base
// row carries the raw JSON array as a TEXT column; this package keeps a
// companion vec0 virtual table in lockstep with it, keyed by the same
// document id, and compiles vectorSearch into a MATCH query against that
// table.
//
// The vec0 module itself is registered by github.com/asg017/sqlite-vec-go-bindings,
// a cgo binding, gated behind the skibbadb_vec build tag (see register_vec.go and register_stub.go)
// so the default build stays pure Go. Without that tag, Search and the
// dual-write helpers return a descriptive error instead of failing at the
// SQL engine with "no such module: vec0".
package vector
