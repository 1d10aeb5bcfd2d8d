// Package routes derives on-disk locations from route pathnames. Every
// per-route manifest producer uses AssetPrefix so that manifests for one
// route sit at parallel locations across the server output tree.
package routes

import (
	"path"
	"strings"
)

// AssetPrefix turns a route pathname into a directory prefix for manifest
// paths. The root route maps to "", so its manifests sit directly under the
// route-tree directory. Routes under /index get an extra "/index" so they
// cannot collide with index-named entries of their parent. Dynamic segments
// such as [slug] or [...all] are kept verbatim.
func AssetPrefix(pathname string) string {
	if pathname == "" {
		return ""
	}
	p := path.Clean("/" + pathname)
	switch {
	case p == "/":
		return ""
	case p == "/index" || strings.HasPrefix(p, "/index/"):
		return "/index" + p
	default:
		return p
	}
}
