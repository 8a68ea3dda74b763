package syntax

// Shape is the part of an expression the dotted-path resolver understands.
// It is a closed union: Call, Member, Identifier or Other.
type Shape interface {
	isShape()
}

// Call is a call (or construction) whose callee is resolved.
type Call struct{ Callee *Node }

// Member is a property access on Object.
type Member struct {
	Object   *Node
	Property string
}

// Identifier is a bare name.
type Identifier struct{ Name string }

// Other is anything the resolver does not follow.
type Other struct{}

func (Call) isShape()       {}
func (Member) isShape()     {}
func (Identifier) isShape() {}
func (Other) isShape()      {}

// Adapter classifies a grammar's nodes into shapes.
type Adapter func(*Node) Shape

// ResolvePath reconstructs a dotted API path such as
// "navigator.clipboard.writeText". ok is false when any part of the chain is
// not a call, member access or identifier.
func ResolvePath(n *Node, adapt Adapter) (path string, ok bool) {
	if n == nil {
		return "", false
	}
	switch s := adapt(n).(type) {
	case Call:
		return ResolvePath(s.Callee, adapt)
	case Member:
		if s.Property == "" {
			return "", false
		}
		obj, ok := ResolvePath(s.Object, adapt)
		if !ok {
			return "", false
		}
		return obj + "." + s.Property, true
	case Identifier:
		return s.Name, s.Name != ""
	default:
		return "", false
	}
}
