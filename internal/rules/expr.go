// Package rules evaluates per-collection access predicates. The grammar is a
// small closed set of expressions parsed once at rule-load time; anything
// outside the set is rejected, so unparseable rules can never be installed and
// evaluation stays fail-closed.
package rules

import (
	"strings"

	dErrors "alphabase/pkg/domain-errors"
)

// Resource carries the fields of an existing document that rules may inspect.
type Resource struct {
	ID    string
	Owner string
}

// Expr is one variant of the closed rule grammar. Evaluation is pure: no
// state, no side effects.
type Expr interface {
	// Evaluate reports whether access is allowed for the given principal.
	// principal is "" for unauthenticated requests; resource is nil when no
	// document exists yet.
	Evaluate(principal string, resource *Resource) bool

	// String returns the canonical source text of the expression.
	String() string
}

// literal is the constant "true" / "false" rule.
type literal bool

func (l literal) Evaluate(string, *Resource) bool { return bool(l) }

func (l literal) String() string {
	if l {
		return "true"
	}
	return "false"
}

// authPresence is "auth != null" (expected=true) or "auth == null"
// (expected=false).
type authPresence bool

func (a authPresence) Evaluate(principal string, _ *Resource) bool {
	return (principal != "") == bool(a)
}

func (a authPresence) String() string {
	if a {
		return "auth != null"
	}
	return "auth == null"
}

// resourceField identifies which document field an ownership rule compares
// against the principal.
type resourceField int

const (
	fieldOwner resourceField = iota
	fieldID
)

// fieldEquals is "resource.<field> == auth.uid". A missing resource denies.
type fieldEquals struct {
	field resourceField
}

func (f fieldEquals) Evaluate(principal string, resource *Resource) bool {
	if resource == nil {
		return false
	}
	switch f.field {
	case fieldID:
		return resource.ID == principal
	default:
		return resource.Owner == principal
	}
}

func (f fieldEquals) String() string {
	if f.field == fieldID {
		return "resource.id == auth.uid"
	}
	return "resource.owner == auth.uid"
}

// principalEquals is "auth.uid == '<literal>'".
type principalEquals struct {
	username string
}

func (p principalEquals) Evaluate(principal string, _ *Resource) bool {
	return principal == p.username
}

func (p principalEquals) String() string {
	return "auth.uid == '" + p.username + "'"
}

// Parse maps rule source text onto the closed expression set. Unknown text is
// an error rather than a silently-denying rule, so a bad update can never
// brick a collection.
func Parse(source string) (Expr, error) {
	switch text := strings.TrimSpace(source); text {
	case "true":
		return literal(true), nil
	case "false":
		return literal(false), nil
	case "auth != null":
		return authPresence(true), nil
	case "auth == null":
		return authPresence(false), nil
	case "resource.owner == auth.uid":
		return fieldEquals{field: fieldOwner}, nil
	case "resource.id == auth.uid":
		return fieldEquals{field: fieldID}, nil
	default:
		if username, ok := parsePrincipalEquals(text); ok {
			return principalEquals{username: username}, nil
		}
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unrecognized rule expression: %q", source)
	}
}

// parsePrincipalEquals matches "auth.uid == '<name>'" with a single-quoted
// literal.
func parsePrincipalEquals(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, "auth.uid ==")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '\'' || rest[len(rest)-1] != '\'' {
		return "", false
	}
	username := rest[1 : len(rest)-1]
	if username == "" || strings.ContainsRune(username, '\'') {
		return "", false
	}
	return username, true
}

// MustParse parses a rule that is known valid at compile time. It panics on
// error and exists for the built-in default table.
func MustParse(source string) Expr {
	expr, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return expr
}
