package rules

import "sync"

// CollectionRule pairs the read and write predicates for one collection.
type CollectionRule struct {
	Read  Expr
	Write Expr
}

// RuleText is the string form of a collection's rules, used by the admin
// surface.
type RuleText struct {
	Read  string `json:"read"`
	Write string `json:"write"`
}

// Engine owns the rule table. Reads take a shared lock so evaluation sees a
// consistent snapshot while updates swap entries atomically.
type Engine struct {
	mu    sync.RWMutex
	rules map[string]CollectionRule
}

// NewEngine returns an engine seeded with the built-in collection rules.
func NewEngine() *Engine {
	return &Engine{
		rules: map[string]CollectionRule{
			// Sensor readings are world-readable; only the owner may rewrite.
			"sensors": {
				Read:  MustParse("true"),
				Write: MustParse("resource.owner == auth.uid"),
			},
			"devices": {
				Read:  MustParse("auth != null"),
				Write: MustParse("auth != null"),
			},
			"users": {
				Read:  MustParse("auth != null"),
				Write: MustParse("auth != null"),
			},
			"admin": {
				Read:  MustParse("auth.uid == 'admin'"),
				Write: MustParse("auth.uid == 'admin'"),
			},
			"files": {
				Read:  MustParse("auth != null"),
				Write: MustParse("auth != null"),
			},
		},
	}
}

// ValidateRead reports whether the principal may read from the collection.
// Pass a nil resource for the existence-independent pre-check and the loaded
// resource for the per-record check.
func (e *Engine) ValidateRead(collection, principal string, resource *Resource) bool {
	rule, ok := e.lookup(collection)
	if !ok {
		// Unknown collections default to authenticated-only access.
		return principal != ""
	}
	return rule.Read.Evaluate(principal, resource)
}

// ValidateWrite reports whether the principal may write to the collection.
func (e *Engine) ValidateWrite(collection, principal string, resource *Resource) bool {
	rule, ok := e.lookup(collection)
	if !ok {
		return principal != ""
	}
	return rule.Write.Evaluate(principal, resource)
}

func (e *Engine) lookup(collection string) (CollectionRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, ok := e.rules[collection]
	return rule, ok
}

// Update replaces one or both predicates for a collection. Each provided
// expression is validated against the closed grammar before anything is
// stored; on error the table is untouched. A collection unknown so far gains
// fail-closed defaults for whichever side is not provided.
func (e *Engine) Update(collection string, read, write *string) error {
	var readExpr, writeExpr Expr
	var err error
	if read != nil {
		if readExpr, err = Parse(*read); err != nil {
			return err
		}
	}
	if write != nil {
		if writeExpr, err = Parse(*write); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rule, ok := e.rules[collection]
	if !ok {
		rule = CollectionRule{
			Read:  MustParse("false"),
			Write: MustParse("false"),
		}
	}
	if readExpr != nil {
		rule.Read = readExpr
	}
	if writeExpr != nil {
		rule.Write = writeExpr
	}
	e.rules[collection] = rule
	return nil
}

// Snapshot returns the rule table in source-text form.
func (e *Engine) Snapshot() map[string]RuleText {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]RuleText, len(e.rules))
	for collection, rule := range e.rules {
		out[collection] = RuleText{
			Read:  rule.Read.String(),
			Write: rule.Write.String(),
		}
	}
	return out
}
