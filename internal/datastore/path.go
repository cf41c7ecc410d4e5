package datastore

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// PathArg is one step of a Path: a container (Name only) or a list entry
// selected by a single key leaf (Name[KeyName=KeyValue]).
type PathArg struct {
	Name     string
	KeyName  string
	KeyValue string
}

// Node returns a container step.
func Node(name string) PathArg { return PathArg{Name: name} }

// Keyed returns a list-entry step.
func Keyed(name, keyName, keyValue string) PathArg {
	return PathArg{Name: name, KeyName: keyName, KeyValue: keyValue}
}

// IsKeyed reports whether the step selects a list entry.
func (a PathArg) IsKeyed() bool { return a.KeyName != "" }

func (a PathArg) String() string {
	if !a.IsKeyed() {
		return a.Name
	}
	return a.Name + "[" + a.KeyName + "=" + a.KeyValue + "]"
}

func (a PathArg) encode() string {
	if !a.IsKeyed() {
		return url.PathEscape(a.Name)
	}
	return url.PathEscape(a.Name) + "[" + url.PathEscape(a.KeyName) + "=" + url.PathEscape(a.KeyValue) + "]"
}

// Path is an immutable instance path from the store root.
type Path struct {
	args []PathArg
}

// RootPath is the empty path.
var RootPath = Path{}

// NewPath builds a path from steps.
func NewPath(args ...PathArg) Path {
	return Path{args: append([]PathArg(nil), args...)}
}

// Child returns p extended by arg.
func (p Path) Child(arg PathArg) Path {
	args := make([]PathArg, 0, len(p.args)+1)
	args = append(args, p.args...)
	return Path{args: append(args, arg)}
}

// Parent returns p without its last step. The root is its own parent.
func (p Path) Parent() Path {
	if len(p.args) == 0 {
		return p
	}
	return Path{args: p.args[:len(p.args)-1]}
}

// Args returns a copy of the steps.
func (p Path) Args() []PathArg { return append([]PathArg(nil), p.args...) }

// Len returns the number of steps.
func (p Path) Len() int { return len(p.args) }

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool { return len(p.args) == 0 }

// Last returns the final step; ok is false for the root.
func (p Path) Last() (arg PathArg, ok bool) {
	if len(p.args) == 0 {
		return PathArg{}, false
	}
	return p.args[len(p.args)-1], true
}

// Ancestors returns every non-root proper ancestor, outermost first.
func (p Path) Ancestors() []Path {
	if len(p.args) < 2 {
		return nil
	}
	out := make([]Path, 0, len(p.args)-1)
	for i := 1; i < len(p.args); i++ {
		out = append(out, Path{args: p.args[:i]})
	}
	return out
}

// Contains reports whether other equals p or lies below it.
func (p Path) Contains(other Path) bool {
	if len(other.args) < len(p.args) {
		return false
	}
	for i := range p.args {
		if p.args[i] != other.args[i] {
			return false
		}
	}
	return true
}

// Equal reports step-wise equality.
func (p Path) Equal(other Path) bool {
	return len(p.args) == len(other.args) && p.Contains(other)
}

// String renders the human form, e.g. /netconf/streams/stream[name=NETCONF].
func (p Path) String() string {
	if len(p.args) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, a := range p.args {
		sb.WriteByte('/')
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Encode renders the storage form: like String but with every name and key
// value URL-path-escaped so that '/' only ever separates steps.
func (p Path) Encode() string {
	var sb strings.Builder
	for _, a := range p.args {
		sb.WriteByte('/')
		sb.WriteString(a.encode())
	}
	return sb.String()
}

// ParsePath parses the human form produced by String. Key values may not
// contain '/' or ']' in this form; use NewPath for arbitrary values.
func ParsePath(s string) (Path, error) {
	return parse(s, func(v string) (string, error) { return v, nil })
}

// DecodePath parses the storage form produced by Encode.
func DecodePath(s string) (Path, error) {
	return parse(s, url.PathUnescape)
}

func parse(s string, unescape func(string) (string, error)) (Path, error) {
	if s == "" || s == "/" {
		return RootPath, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Path{}, errors.Newf("datastore: path %q must be absolute", s)
	}
	var args []PathArg
	for _, seg := range strings.Split(s[1:], "/") {
		arg, err := parseArg(seg, unescape)
		if err != nil {
			return Path{}, errors.Wrapf(err, "datastore: parse %q", s)
		}
		args = append(args, arg)
	}
	return Path{args: args}, nil
}

func parseArg(seg string, unescape func(string) (string, error)) (PathArg, error) {
	if seg == "" {
		return PathArg{}, errors.New("empty step")
	}
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		name, err := unescape(seg)
		return PathArg{Name: name}, err
	}
	if !strings.HasSuffix(seg, "]") {
		return PathArg{}, errors.Newf("unterminated key in %q", seg)
	}
	kv := seg[open+1 : len(seg)-1]
	eq := strings.IndexByte(kv, '=')
	if open == 0 || eq <= 0 {
		return PathArg{}, errors.Newf("malformed key in %q", seg)
	}
	name, err := unescape(seg[:open])
	if err != nil {
		return PathArg{}, err
	}
	keyName, err := unescape(kv[:eq])
	if err != nil {
		return PathArg{}, err
	}
	keyValue, err := unescape(kv[eq+1:])
	if err != nil {
		return PathArg{}, err
	}
	return PathArg{Name: name, KeyName: keyName, KeyValue: keyValue}, nil
}
