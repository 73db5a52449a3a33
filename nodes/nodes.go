package nodes

import "sync/atomic"

// ---------------------------------------------------------------------------
// Node tree: input to the template compiler
// ---------------------------------------------------------------------------

// ID is an identity token minted at node construction time. The compiler's
// expression cache is keyed by ID, so two textually identical expression
// nodes are distinct unless they are literally the same instance.
type ID uint64

var idCounter atomic.Uint64

// NewID mints a fresh identity token.
func NewID() ID {
	return ID(idCounter.Add(1))
}

// Node is the interface implemented by all template nodes.
type Node interface {
	node() // marker method
}

// Expr is the interface for expression nodes handled by the expression
// sub-compiler.
type Expr interface {
	Identity() ID
	expr() // marker method
}

// ---------------------------------------------------------------------------
// Template nodes
// ---------------------------------------------------------------------------

// Text is literal template text, emitted verbatim.
type Text struct {
	Value string
}

func (n *Text) node() {}

// Sequence is an ordered list of nodes compiled back to back.
type Sequence struct {
	Items []Node
}

func (n *Sequence) node() {}

// Element is a markup element: start tag, content, optional end tag.
type Element struct {
	Start   Node
	Content Node
	End     Node // nil for void elements
}

func (n *Element) node() {}

// Start is an element start tag with its attributes.
type Start struct {
	Name       string
	Prefix     string
	Suffix     string
	Attributes []Node
}

func (n *Start) node() {}

// End is an element end tag.
type End struct {
	Name   string
	Prefix string
	Space  string
	Suffix string
}

func (n *End) node() {}

// Attribute is a dynamic attribute. The emitted value is escaped with the
// attribute's own quote character and dropped entirely when nil.
type Attribute struct {
	Name       string
	Expression Expr
	Quote      string
	Eq         string
	Space      string
}

func (n *Attribute) node() {}

// Content inserts an evaluated expression. Msgid, when set, routes the value
// through translation; Escape selects markup escaping.
type Content struct {
	Expression Expr
	Msgid      string
	Escape     bool
}

func (n *Content) node() {}

// Interpolation is template text with ${...} substitutions, emitted with
// escaping applied to each substituted value.
type Interpolation struct {
	Value string
}

func (n *Interpolation) node() {}

// Condition guards a body on the truth of an expression.
type Condition struct {
	Expression Expr
	Node       Node
	Orelse     Node // nil when there is no else branch
}

func (n *Condition) node() {}

// Assignment binds one or more names to an expression result. Local
// assignments write the dynamic context only; non-local ones also write the
// propagating context.
type Assignment struct {
	Names      []string
	Expression Expr
	Local      bool
}

func (n *Assignment) node() {}

// Define wraps a body in one or more assignments with backup/restore
// semantics: names revert to their prior bindings (or absence) on exit.
type Define struct {
	Assignments []*Assignment
	Node        Node
}

func (n *Define) node() {}

// Repeat loops a body over an iterable, binding one or more names per item.
// Whitespace is emitted between items (not after the last).
type Repeat struct {
	Names      []string
	Expression Expr
	Local      bool
	Whitespace string
	Node       Node
}

func (n *Repeat) node() {}

// Translate marks a body for translation. The normalized body text becomes
// the message id unless Msgid is set explicitly.
type Translate struct {
	Msgid string
	Node  Node
}

func (n *Translate) node() {}

// Name is a named sub-block inside a Translate body. Its rendered text is
// passed to the translation call under Name, with a ${name} placeholder left
// in the surrounding message.
type Name struct {
	Name string
	Node Node
}

func (n *Name) node() {}

// Domain sets the translation domain for the duration of its body.
type Domain struct {
	Name string
	Node Node
}

func (n *Domain) node() {}

// OnError renders Fallback instead of Node when Node fails with a
// recoverable error, discarding any output the failed body produced.
type OnError struct {
	Node     Node
	Fallback Node
}

func (n *OnError) node() {}

// Cache pre-evaluates expressions so that later occurrences of the same
// instances reuse the results.
type Cache struct {
	Expressions []Expr
	Node        Node
}

func (n *Cache) node() {}

// UseInternalMacro invokes a sibling macro of the same program by name. An
// empty name selects the unnamed default macro.
type UseInternalMacro struct {
	Name string
}

func (n *UseInternalMacro) node() {}

// UseMacro invokes an external macro value with slot overrides.
type UseMacro struct {
	Expression Expr
	Slots      []*DefineSlot
}

func (n *UseMacro) node() {}

// DefineSlot declares a fillable slot with a default body.
type DefineSlot struct {
	Name string
	Node Node
}

func (n *DefineSlot) node() {}

// Macro is a named render function. An empty Name denotes the default macro.
type Macro struct {
	Name string
	Body []Node
}

func (n *Macro) node() {}

// MacroProgram is the tree root: a set of named macros plus a default body.
type MacroProgram struct {
	Macro
	Macros []*Macro
}

func (n *MacroProgram) node() {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expression is a raw expression string handed to the expression engine.
type Expression struct {
	ID    ID
	Value string
}

func (n *Expression) Identity() ID { return n.ID }
func (n *Expression) node()        {}
func (n *Expression) expr()        {}

// Negate is boolean negation of an inner expression.
type Negate struct {
	ID    ID
	Value Expr
}

func (n *Negate) Identity() ID { return n.ID }
func (n *Negate) node()        {}
func (n *Negate) expr()        {}

// Identity compares two expressions for object identity.
type Identity struct {
	ID         ID
	Expression Expr
	Value      Expr
}

func (n *Identity) Identity() ID { return n.ID }
func (n *Identity) node()        {}
func (n *Identity) expr()        {}

// Equality compares two expressions for equality.
type Equality struct {
	ID         ID
	Expression Expr
	Value      Expr
}

func (n *Equality) Identity() ID { return n.ID }
func (n *Equality) node()        {}
func (n *Equality) expr()        {}

// Interp is a string with ${...} substitutions evaluated and concatenated.
type Interp struct {
	ID    ID
	Value string
}

func (n *Interp) Identity() ID { return n.ID }
func (n *Interp) node()        {}
func (n *Interp) expr()        {}

// Marker references a named module-level sentinel object.
type Marker struct {
	ID   ID
	Name string
}

func (n *Marker) Identity() ID { return n.ID }
func (n *Marker) node()        {}
func (n *Marker) expr()        {}

// Translated wraps an expression whose result is used both as message id
// and default for a translation call.
type Translated struct {
	ID    ID
	Msgid string
	Node  Expr
}

func (n *Translated) Identity() ID { return n.ID }
func (n *Translated) node()        {}
func (n *Translated) expr()        {}
