// Package program defines the intermediate representation produced by the
// template compiler: a flat, ordered list of statements per render function.
// Statement order is a correctness invariant; nothing may be reordered.
package program

// CtxKind selects one of the two run-time name-binding contexts.
type CtxKind uint8

const (
	// CtxE is the dynamic context: per-invocation, read and written by the
	// program, copied into nested macro calls.
	CtxE CtxKind = iota

	// CtxR is the propagating context: assignments here remain visible to
	// the caller after a macro or slot call returns.
	CtxR
)

// String returns a short name for the context kind.
func (k CtxKind) String() string {
	if k == CtxR {
		return "rcontext"
	}
	return "econtext"
}

// StreamName is the emit target denoting the real output stream of the
// enclosing render function (as opposed to a local buffer).
const StreamName = "stream"

// Program is a compiled template: named render functions plus the named
// sentinel symbols they reference. The default function is "render".
type Program struct {
	Markers   []string
	Functions []*FuncDef
}

// Function returns the named function, or nil.
func (p *Program) Function(name string) *FuncDef {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Assignment targets
// ---------------------------------------------------------------------------

// Target is an assignment destination.
type Target interface {
	target() // marker method
}

// NameTarget stores into a function-local variable.
type NameTarget struct {
	Name string
}

func (NameTarget) target() {}

// CtxTarget stores into one of the run-time contexts under a key.
type CtxTarget struct {
	Ctx CtxKind
	Key string
}

func (CtxTarget) target() {}

// TupleTarget destructures a sequence value across element targets.
type TupleTarget struct {
	Elems []Target
}

func (TupleTarget) target() {}

// ---------------------------------------------------------------------------
// Value expressions
// ---------------------------------------------------------------------------

// Expr is a value expression evaluated by the emitted program.
type Expr interface {
	exprNode() // marker method
}

// Str is a string constant.
type Str struct {
	Value string
}

// Num is an integer constant.
type Num struct {
	Value int
}

// Val is an arbitrary constant value (typically nil).
type Val struct {
	Value any
}

// Name loads a function-local variable.
type Name struct {
	ID string
}

// BuiltinRef loads a host builtin helper by name.
type BuiltinRef struct {
	Name string
}

// CtxItem is a strict dynamic-context fetch; a missing key is a run-time
// name-lookup error surfaced to the caller.
type CtxItem struct {
	Key string
}

// CtxGet fetches from the dynamic context with a default for absent keys.
type CtxGet struct {
	Key     string
	Default Expr
}

// CtxPop removes and returns a dynamic-context entry, yielding the marker
// sentinel when the key is absent.
type CtxPop struct {
	Key string
}

// Sentinel is the process-wide absence marker.
type Sentinel struct{}

// MarkerRef references a named program-level sentinel object.
type MarkerRef struct {
	Name string
}

// UnaryOp applies a unary operator. Ops: "not".
type UnaryOp struct {
	Op string
	X  Expr
}

// BinOp applies a binary operator. Ops: "is", "isnot", "==", ">", "-".
type BinOp struct {
	Op string
	X  Expr
	Y  Expr
}

// Path traverses from a root value through named steps (map keys, struct
// fields, slice indices). A failed step is a run-time lookup error.
type Path struct {
	Root  Expr
	Steps []string
}

// Concat joins parts into one string, converting each part.
type Concat struct {
	Parts []Expr
}

// JoinBuf joins the accumulated parts of a local buffer into one string.
type JoinBuf struct {
	Buffer string
}

// CollapseWS reduces runs of Unicode whitespace in a string to single
// spaces and trims the ends.
type CollapseWS struct {
	X Expr
}

// MapLit builds a string-keyed mapping.
type MapLit struct {
	Keys   []string
	Values []Expr
}

// TranslateCall invokes the frame's translate binding with a message id,
// optional mapping, default text and the active translation domain.
type TranslateCall struct {
	Msgid   Expr
	Mapping Expr // nil when the block has no named sub-blocks
	Default Expr // nil translates with no default
}

// Convert coerces a value to output text via the frame's decode/convert
// bindings. Nil stays nil.
type Convert struct {
	X Expr
}

// Escape converts and markup-escapes a value. Nil and false results become
// nil. Quote, when set, is additionally escaped (attribute position).
type Escape struct {
	X     Expr
	Quote string
}

func (Str) exprNode()           {}
func (Num) exprNode()           {}
func (Val) exprNode()           {}
func (Name) exprNode()          {}
func (BuiltinRef) exprNode()    {}
func (CtxItem) exprNode()       {}
func (CtxGet) exprNode()        {}
func (CtxPop) exprNode()        {}
func (Sentinel) exprNode()      {}
func (MarkerRef) exprNode()     {}
func (UnaryOp) exprNode()       {}
func (BinOp) exprNode()         {}
func (Path) exprNode()          {}
func (Concat) exprNode()        {}
func (JoinBuf) exprNode()       {}
func (CollapseWS) exprNode()    {}
func (MapLit) exprNode()        {}
func (TranslateCall) exprNode() {}
func (Convert) exprNode()       {}
func (Escape) exprNode()        {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Stmt is one intermediate statement.
type Stmt interface {
	stmtNode() // marker method
}

// Comment is a no-op carrying generated-program annotations.
type Comment struct {
	Text string
}

// Emit appends a value to an output sink: the render stream when To is
// StreamName, otherwise the named local buffer.
type Emit struct {
	To    string
	Value Expr
}

// NewBuffer binds a fresh output buffer to a local name.
type NewBuffer struct {
	Name string
}

// Assign evaluates Value once and stores it into every target in order.
type Assign struct {
	Targets []Target
	Value   Expr
}

// Delete removes a key from the dynamic context.
type Delete struct {
	Key string
}

// If branches on the truth of Cond.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// For iterates the wrapped iterator held in the local Iter, binding each
// item to the local Var and running Body.
type For struct {
	Var  string
	Iter string
	Body []Stmt
}

// FuncDef defines a render function taking (stream, econtext, rcontext).
// At top level it is a program function; nested, it binds a callable value
// to a local of the same name.
type FuncDef struct {
	Name string
	Body []Stmt
}

// Guard runs Body; when it fails with a recoverable error the stream is
// truncated back to its length at entry and Fallback runs instead. Any
// other failure propagates.
type Guard struct {
	Body     []Stmt
	Fallback []Stmt
}

// SetupRepeat calls the dynamic context's repeat collaborator for the loop
// names and the raw iterable in the local Source, storing the wrapped
// iterator in Iter and its countdown index handle in Index.
type SetupRepeat struct {
	Names  []string
	Source string
	Iter   string
	Index  string
}

// CallMacro invokes a sibling function of the same program with the current
// stream, a copy of the dynamic context, and the propagating context.
type CallMacro struct {
	Name string
}

// Call invokes a callable value (slot closure or external macro) with the
// current stream and a copy of the dynamic context. The third argument is
// the propagating context, or the dynamic context itself when
// EcontextPropagates is set (slot overrides report assignments back through
// it).
type Call struct {
	Callee             Expr
	EcontextPropagates bool
}

// MergeRContext folds the propagating context back into the dynamic
// context after a nested call.
type MergeRContext struct{}

func (Comment) stmtNode()       {}
func (Emit) stmtNode()          {}
func (NewBuffer) stmtNode()     {}
func (Assign) stmtNode()        {}
func (Delete) stmtNode()        {}
func (If) stmtNode()            {}
func (For) stmtNode()           {}
func (FuncDef) stmtNode()       {}
func (Guard) stmtNode()         {}
func (SetupRepeat) stmtNode()   {}
func (CallMacro) stmtNode()     {}
func (Call) stmtNode()          {}
func (MergeRContext) stmtNode() {}
