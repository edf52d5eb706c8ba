package ast

import (
	"strconv"
	"strings"
)

// Path is a JSON Pointer (RFC 6901) into the submitted rule document,
// for example "/rule/and/0/age".
type Path string

// RootPath is the pointer to the document root.
const RootPath Path = ""

// Key returns the path extended by an object key.
func (p Path) Key(key string) Path {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return p + "/" + Path(key)
}

// Index returns the path extended by an array index.
func (p Path) Index(i int) Path {
	return p + "/" + Path(strconv.Itoa(i))
}

// String returns the pointer, or "/" for the root.
func (p Path) String() string {
	if p == RootPath {
		return "/"
	}
	return string(p)
}

// PathFromSegments builds a Path from unescaped segments.
func PathFromSegments(segments []string) Path {
	p := RootPath
	for _, s := range segments {
		p = p.Key(s)
	}
	return p
}
