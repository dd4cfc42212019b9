package lookup

import "github.com/dshills/javacontext-mcp/internal/jast"

// IsConvertible reports method invocation conversion: assignment
// compatibility plus boxing and unboxing. A nil type is an unresolved
// expression and converts to anything.
func IsConvertible(from, to *TypeBinding) bool {
	if from == nil || to == nil {
		return true
	}
	if from.IsCompatibleWith(to) {
		return true
	}
	env := from.env
	if env == nil {
		env = to.env
	}
	if env == nil {
		return false
	}
	if from.IsPrimitive() && !to.IsPrimitive() {
		box := env.Box(from)
		return box != nil && box.IsSubtypeOf(to)
	}
	if !from.IsPrimitive() && to.IsPrimitive() {
		p := env.Unbox(from)
		return p != nil && p.IsCompatibleWith(to)
	}
	return false
}

func compatible(from, to *TypeBinding) bool {
	if from == nil || to == nil {
		return true
	}
	return from.IsCompatibleWith(to)
}

// FindField looks up name in receiver, its superinterfaces and its
// superclasses. The first visible field wins; otherwise the first field
// found is returned as a NotVisible problem binding.
func FindField(receiver *TypeBinding, name string, invocation *TypeBinding, vis Visibility, superAccess bool) *FieldBinding {
	if receiver == nil {
		return &FieldBinding{Name: name, Problem: NotFound}
	}
	var notVisible *FieldBinding
	visited := make(map[*TypeBinding]bool)
	for c := receiver; c != nil; c = c.Superclass() {
		var candidates []*FieldBinding
		if f := c.DeclaredField(name); f != nil {
			candidates = []*FieldBinding{f}
		} else {
			candidates = interfaceFields(c, name, visited)
		}
		if len(candidates) > 1 {
			return &FieldBinding{Name: name, Declaring: candidates[0].Declaring, Type: candidates[0].Type,
				Problem: Ambiguous, Closest: candidates[0]}
		}
		if len(candidates) == 1 {
			f := candidates[0]
			if vis.FieldVisible(f, receiver, invocation, superAccess) {
				return f
			}
			if notVisible == nil {
				notVisible = f
			}
		}
	}
	if notVisible != nil {
		return &FieldBinding{Name: name, Declaring: notVisible.Declaring, Type: notVisible.Type,
			Modifiers: notVisible.Modifiers, Problem: NotVisible, Closest: notVisible}
	}
	return &FieldBinding{Name: name, Problem: NotFound}
}

// interfaceFields searches the superinterfaces of t breadth first. The
// visited set belongs to the caller so shared bindings are never marked.
func interfaceFields(t *TypeBinding, name string, visited map[*TypeBinding]bool) []*FieldBinding {
	var found []*FieldBinding
	queue := append([]*TypeBinding(nil), t.Interfaces()...)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[i] {
			continue
		}
		visited[i] = true
		if f := i.DeclaredField(name); f != nil {
			found = appendDistinctField(found, f)
			continue
		}
		queue = append(queue, i.Interfaces()...)
	}
	return found
}

func appendDistinctField(list []*FieldBinding, f *FieldBinding) []*FieldBinding {
	for _, g := range list {
		if g == f {
			return list
		}
	}
	return append(list, f)
}

// CollectMethods gathers every method named name reachable from receiver.
// Interface receivers search the interface, then all distinct
// superinterfaces breadth first, then Object. Class receivers walk the
// superclass chain and then the superinterfaces. Overridden methods are
// dropped in favour of the most derived declaration.
func CollectMethods(receiver *TypeBinding, name string) []*MethodBinding {
	if receiver == nil {
		return nil
	}
	var out []*MethodBinding
	add := func(ms []*MethodBinding) {
	next:
		for _, m := range ms {
			for _, o := range out {
				if o.sameParameters(m) {
					continue next
				}
			}
			out = append(out, m)
		}
	}
	env := receiver.env

	if receiver.Kind == TypeArray {
		if obj := env.Object(); obj != nil {
			add(publicOnly(obj.DeclaredMethods(name)))
		}
		if name == "clone" {
			out = append(out, &MethodBinding{Name: "clone", Declaring: receiver, Return: receiver, Modifiers: jast.ModPublic})
		}
		return out
	}

	visited := make(map[*TypeBinding]bool)
	var queue []*TypeBinding
	if receiver.IsInterface() {
		queue = append(queue, receiver)
	} else {
		for c := receiver; c != nil; c = c.Superclass() {
			if visited[c] {
				break
			}
			visited[c] = true
			add(c.DeclaredMethods(name))
			queue = append(queue, c.Interfaces()...)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[i] {
			continue
		}
		visited[i] = true
		add(i.DeclaredMethods(name))
		queue = append(queue, i.Interfaces()...)
	}
	if receiver.IsInterface() {
		if obj := env.Object(); obj != nil {
			add(publicOnly(obj.DeclaredMethods(name)))
		}
	}
	return out
}

func publicOnly(ms []*MethodBinding) []*MethodBinding {
	var out []*MethodBinding
	for _, m := range ms {
		if m.Modifiers.Has(jast.ModPublic) {
			out = append(out, m)
		}
	}
	return out
}

// FindMethod resolves a method invocation on receiver.
func FindMethod(receiver *TypeBinding, name string, args []*TypeBinding, invocation *TypeBinding, vis Visibility, superAccess bool) *MethodBinding {
	return SelectMethod(CollectMethods(receiver, name), name, args, receiver, invocation, vis, superAccess)
}

// FindConstructor resolves an allocation of t.
func FindConstructor(t *TypeBinding, args []*TypeBinding, invocation *TypeBinding, vis Visibility, superAccess bool) *MethodBinding {
	if t == nil {
		return &MethodBinding{Problem: NotFound, Constructor: true}
	}
	m := SelectMethod(t.Constructors(), t.SimpleName(), args, nil, invocation, vis, superAccess)
	m.Constructor = true
	return m
}

// SelectMethod picks the invoked method among same-named candidates:
// applicable candidates first, then visible ones, then the most specific.
// Zero applicable candidates is NotFound with the first candidate as the
// closest match; zero visible candidates is NotVisible; several equally
// specific candidates are Ambiguous.
func SelectMethod(candidates []*MethodBinding, name string, args []*TypeBinding, receiver, invocation *TypeBinding, vis Visibility, superAccess bool) *MethodBinding {
	if len(candidates) == 0 {
		return &MethodBinding{Name: name, Problem: NotFound, Declaring: receiver}
	}
	applicable := Applicable(candidates, args)
	if len(applicable) == 0 {
		c := candidates[0]
		return &MethodBinding{Name: name, Declaring: c.Declaring, Params: c.Params, Return: c.Return,
			Modifiers: c.Modifiers, Constructor: c.Constructor, Problem: NotFound, Closest: c}
	}
	var visible []*MethodBinding
	for _, m := range applicable {
		if vis.MethodVisible(m, receiver, invocation, superAccess) {
			visible = append(visible, m)
		}
	}
	if len(visible) == 0 {
		c := applicable[0]
		return &MethodBinding{Name: name, Declaring: c.Declaring, Params: c.Params, Return: c.Return,
			Modifiers: c.Modifiers, Constructor: c.Constructor, Problem: NotVisible, Closest: c}
	}
	if len(visible) == 1 {
		return visible[0]
	}
	best := MostSpecific(visible)
	if len(best) == 1 {
		return best[0]
	}
	// an abstract interface method and its concrete implementation share
	// the signature; the class declaration is listed first
	same := true
	for _, m := range best[1:] {
		if !m.sameParameters(best[0]) {
			same = false
			break
		}
	}
	if same {
		return best[0]
	}
	c := best[0]
	return &MethodBinding{Name: name, Declaring: c.Declaring, Params: c.Params, Return: c.Return,
		Modifiers: c.Modifiers, Constructor: c.Constructor, Problem: Ambiguous, Closest: c}
}

// Applicable filters candidates in the three invocation phases: strict
// (subtyping and widening), loose (boxing) and variable arity.
func Applicable(candidates []*MethodBinding, args []*TypeBinding) []*MethodBinding {
	var out []*MethodBinding
	for _, m := range candidates {
		if fixedArity(m, args, compatible) {
			out = append(out, m)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, m := range candidates {
		if fixedArity(m, args, IsConvertible) {
			out = append(out, m)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, m := range candidates {
		if variableArity(m, args) {
			out = append(out, m)
		}
	}
	return out
}

func fixedArity(m *MethodBinding, args []*TypeBinding, conv func(from, to *TypeBinding) bool) bool {
	if len(m.Params) != len(args) {
		return false
	}
	for i, p := range m.Params {
		if !conv(args[i], p) {
			return false
		}
	}
	return true
}

func variableArity(m *MethodBinding, args []*TypeBinding) bool {
	n := len(m.Params)
	if !m.Varargs || n == 0 || len(args) < n-1 {
		return false
	}
	last := m.Params[n-1]
	if !last.IsArray() {
		return false
	}
	for i := 0; i < n-1; i++ {
		if !IsConvertible(args[i], m.Params[i]) {
			return false
		}
	}
	for _, a := range args[n-1:] {
		if !IsConvertible(a, last.Elem) {
			return false
		}
	}
	return true
}

// IsVarargsCall reports whether an invocation of m with args needs the
// trailing arguments wrapped into an array.
func IsVarargsCall(m *MethodBinding, args []*TypeBinding) bool {
	if !m.Varargs {
		return false
	}
	if fixedArity(m, args, IsConvertible) {
		return false
	}
	return variableArity(m, args)
}

// MostSpecific returns the maximally specific methods: those whose
// parameters are each convertible to the parameters of every other one.
func MostSpecific(ms []*MethodBinding) []*MethodBinding {
	var out []*MethodBinding
	for _, m := range ms {
		best := true
		for _, o := range ms {
			if m == o {
				continue
			}
			if !moreSpecific(m, o) {
				best = false
				break
			}
		}
		if best {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return ms
	}
	return out
}

func moreSpecific(m, o *MethodBinding) bool {
	if len(m.Params) != len(o.Params) {
		return len(m.Params) < len(o.Params) == !m.Varargs
	}
	for i := range m.Params {
		if !IsConvertible(m.Params[i], o.Params[i]) {
			return false
		}
	}
	return true
}
