package lookup

import "github.com/dshills/javacontext-mcp/internal/jast"

// Visibility decides whether members and types can be accessed from an
// invocation type. receiver is the static type of the qualifying
// expression (nil for unqualified or static access) and superAccess is set
// for super.m() and super.f.
type Visibility interface {
	FieldVisible(f *FieldBinding, receiver, invocation *TypeBinding, superAccess bool) bool
	MethodVisible(m *MethodBinding, receiver, invocation *TypeBinding, superAccess bool) bool
	TypeVisible(t, invocation *TypeBinding) bool
}

// Ordinary implements the Java access rules a regular compiler applies.
// Private members are accessible throughout the outermost enclosing type.
type Ordinary struct{}

// FieldVisible implements Visibility.
func (Ordinary) FieldVisible(f *FieldBinding, receiver, invocation *TypeBinding, superAccess bool) bool {
	if f.IsArrayLength() {
		return true
	}
	return memberVisible(f.Modifiers, f.Declaring, receiver, invocation, superAccess)
}

// MethodVisible implements Visibility.
func (Ordinary) MethodVisible(m *MethodBinding, receiver, invocation *TypeBinding, superAccess bool) bool {
	if m.Declaring != nil && m.Declaring.IsArray() {
		return true
	}
	if m.Constructor && m.Modifiers.Has(jast.ModProtected) && !SamePackage(invocation, m.Declaring) {
		// protected constructors are only reachable through super(...)
		return superAccess
	}
	return memberVisible(m.Modifiers, m.Declaring, receiver, invocation, superAccess)
}

// TypeVisible implements Visibility.
func (Ordinary) TypeVisible(t, invocation *TypeBinding) bool {
	t = t.Leaf()
	if t.Kind == TypePrimitive || t.Kind == TypeNull || invocation == nil {
		return true
	}
	switch {
	case t.Modifiers.Has(jast.ModPublic):
		return t.Enclosing == nil || Ordinary{}.TypeVisible(t.Enclosing, invocation)
	case t == invocation:
		return true
	case t.Modifiers.Has(jast.ModPrivate):
		return t.Outermost() == invocation.Outermost()
	case t.Modifiers.Has(jast.ModProtected):
		if SamePackage(t, invocation) {
			return true
		}
		for c := invocation; c != nil; c = c.Enclosing {
			if t.Enclosing != nil && c.IsSubtypeOf(t.Enclosing) {
				return true
			}
		}
		return false
	}
	return SamePackage(t, invocation)
}

func memberVisible(mods jast.Modifiers, declaring, receiver, invocation *TypeBinding, superAccess bool) bool {
	if declaring == nil || invocation == nil {
		return true
	}
	switch {
	case mods.Has(jast.ModPublic):
		return true
	case invocation == declaring:
		return true
	case mods.Has(jast.ModProtected):
		if SamePackage(invocation, declaring) {
			return true
		}
		for c := invocation; c != nil; c = c.Enclosing {
			if !c.IsSubtypeOf(declaring) {
				continue
			}
			if superAccess || receiver == nil || mods.Has(jast.ModStatic) || receiver.IsSubtypeOf(c) {
				return true
			}
		}
		return false
	case mods.Has(jast.ModPrivate):
		return invocation.Outermost() == declaring.Outermost()
	}
	if !SamePackage(invocation, declaring) {
		return false
	}
	return defaultReachable(declaring, receiver)
}

// defaultReachable walks the receiver's superclass chain to the declaring
// class; every class on the way must share the declaring package.
func defaultReachable(declaring, receiver *TypeBinding) bool {
	if receiver == nil || receiver == declaring || receiver.Kind == TypeArray {
		return true
	}
	pkg := declaring.PackageName()
	for c := receiver; c != nil; c = c.Superclass() {
		if c == declaring {
			return true
		}
		if c.PackageName() != pkg {
			return false
		}
	}
	// interface members reached through a class receiver
	return true
}

// SamePackage reports whether two types are declared in the same package.
func SamePackage(a, b *TypeBinding) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Leaf().PackageName() == b.Leaf().PackageName()
}
