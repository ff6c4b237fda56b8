//go:build skibbadb_vec

package vector

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Enabled reports whether the vec0 virtual-table module is available in
// this build.
const Enabled = true

func init() {
	sqlite_vec.Auto()
}
