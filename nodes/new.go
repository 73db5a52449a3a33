package nodes

// Constructors for expression nodes. These mint the identity token the
// compiler's expression cache is keyed by; building the structs directly with
// a zero ID is allowed but opts the node out of caching.

// NewExpression returns a raw engine expression node.
func NewExpression(value string) *Expression {
	return &Expression{ID: NewID(), Value: value}
}

// NewNegate returns a negation of value.
func NewNegate(value Expr) *Negate {
	return &Negate{ID: NewID(), Value: value}
}

// NewIdentity returns an identity comparison node.
func NewIdentity(expression, value Expr) *Identity {
	return &Identity{ID: NewID(), Expression: expression, Value: value}
}

// NewEquality returns an equality comparison node.
func NewEquality(expression, value Expr) *Equality {
	return &Equality{ID: NewID(), Expression: expression, Value: value}
}

// NewInterp returns a string interpolation expression node.
func NewInterp(value string) *Interp {
	return &Interp{ID: NewID(), Value: value}
}

// NewMarker returns a named sentinel reference node.
func NewMarker(name string) *Marker {
	return &Marker{ID: NewID(), Name: name}
}

// NewTranslated returns a translation wrapper around an expression.
func NewTranslated(msgid string, inner Expr) *Translated {
	return &Translated{ID: NewID(), Msgid: msgid, Node: inner}
}
