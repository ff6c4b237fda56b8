//go:build !skibbadb_vec

package vector

// Enabled reports whether the vec0 virtual-table module is available in
// this build. The default, pure-Go build does not link sqlite-vec's cgo
// bindings, so vector operations fail fast with ErrDisabled instead of
// the engine's opaque "no such module: vec0".
const Enabled = false
