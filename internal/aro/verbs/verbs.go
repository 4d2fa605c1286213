// Package verbs holds the static verb → semantic-role table shared by the
// semantic analyzer (data-flow derivation) and the feature-set executor
// (result binding), so the two agree on role classification by
// construction instead of by convention.
package verbs

import (
	"strings"

	"github.com/arolang/aro-sub011/internal/aro/ast"
)

// Info is the compile-time-known shape of a built-in verb.
type Info struct {
	Role        ast.ActionRole
	AllowRebind bool // verb may rebind an already-bound result name
}

var table = map[string]Info{
	// request role: pull a sub-path or remote value.
	"extract":  {Role: ast.RoleRequest},
	"parse":    {Role: ast.RoleRequest},
	"retrieve": {Role: ast.RoleRequest},
	"read":     {Role: ast.RoleRequest},
	"request":  {Role: ast.RoleRequest},
	"fetch":    {Role: ast.RoleRequest},

	// own role: pure computation.
	"compute":   {Role: ast.RoleOwn},
	"calculate": {Role: ast.RoleOwn},
	"derive":    {Role: ast.RoleOwn},
	"transform": {Role: ast.RoleOwn},
	"map":       {Role: ast.RoleOwn},
	"filter":    {Role: ast.RoleOwn},
	"reduce":    {Role: ast.RoleOwn},
	"validate":  {Role: ast.RoleOwn},
	"create":    {Role: ast.RoleOwn},
	"format":    {Role: ast.RoleOwn},

	// export role: repository mutation.
	"store":  {Role: ast.RoleExport},
	"update": {Role: ast.RoleExport, AllowRebind: true},
	"delete": {Role: ast.RoleExport},

	// rebind-allowed own role: state-field transitions.
	"accept": {Role: ast.RoleOwn, AllowRebind: true},
	"set":    {Role: ast.RoleOwn, AllowRebind: true},
	"modify": {Role: ast.RoleOwn, AllowRebind: true},
	"change": {Role: ast.RoleOwn, AllowRebind: true},

	// response role.
	"return": {Role: ast.RoleResponse},

	// response/export role: error/log/event output.
	"throw":   {Role: ast.RoleResponse},
	"log":     {Role: ast.RoleExport},
	"emit":    {Role: ast.RoleExport},
	"send":    {Role: ast.RoleExport},
	"publish": {Role: ast.RoleExport},
}

// Lookup returns the Info for a verb (case-insensitive), and false if the
// verb is unknown to the built-in table — callers should still permit
// custom-registered verbs.
func Lookup(verb string) (Info, bool) {
	info, ok := table[strings.ToLower(verb)]
	return info, ok
}

// RoleOf returns the semantic role for verb, defaulting to RoleOwn for any
// verb not in the built-in table. Custom actions carry no role of their
// own (actions.Registry.Register takes none), so a custom verb is treated
// as own by both the analyzer and the executor.
func RoleOf(verb string) ast.ActionRole {
	if info, ok := Lookup(verb); ok {
		return info.Role
	}
	return ast.RoleOwn
}

// AllowsRebind reports whether verb is permitted to rebind an
// already-bound result name under the immutability policy.
func AllowsRebind(verb string) bool {
	info, ok := Lookup(verb)
	return ok && info.AllowRebind
}
