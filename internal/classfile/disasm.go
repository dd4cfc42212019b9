package classfile

import (
	"fmt"
	"strings"
)

// Disassemble renders a javap-like listing of the class, used by the CLI
// and in test failure messages.
func Disassemble(cf *ClassFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "class %s", cf.Name)
	if cf.Super != "" {
		fmt.Fprintf(&b, " extends %s", cf.Super)
	}
	if len(cf.Interfaces) > 0 {
		fmt.Fprintf(&b, " implements %s", strings.Join(cf.Interfaces, ", "))
	}
	fmt.Fprintf(&b, " (version %d.%d, access %#04x)\n", cf.Major, cf.Minor, cf.Access)
	for _, ic := range cf.InnerClasses {
		fmt.Fprintf(&b, "  inner %s outer=%q name=%q access %#04x\n", ic.Inner, ic.Outer, ic.Name, ic.Access)
	}
	if em := cf.EnclosingMethod; em != nil {
		fmt.Fprintf(&b, "  enclosing method %s.%s%s\n", em.Class, em.Name, em.Desc)
	}

	for _, f := range cf.Fields {
		fmt.Fprintf(&b, "  field %#04x %s %s", f.Access, f.Name, f.Descriptor)
		if f.Constant != nil {
			fmt.Fprintf(&b, " = %v", f.Constant)
		}
		b.WriteByte('\n')
	}
	for _, m := range cf.Methods {
		fmt.Fprintf(&b, "  method %#04x %s%s", m.Access, m.Name, m.Descriptor)
		if len(m.Exceptions) > 0 {
			fmt.Fprintf(&b, " throws %s", strings.Join(m.Exceptions, ", "))
		}
		b.WriteByte('\n')
		if m.Code == nil {
			continue
		}
		fmt.Fprintf(&b, "    stack=%d locals=%d\n", m.Code.MaxStack, m.Code.MaxLocals)
		if m.Code.Instructions == nil && len(m.Code.Bytes) > 0 {
			fmt.Fprintf(&b, "    <%d bytes not decoded>\n", len(m.Code.Bytes))
			continue
		}
		for _, in := range m.Code.Instructions {
			if in.Op == OpLabel {
				fmt.Fprintf(&b, "   %s\n", in)
				continue
			}
			fmt.Fprintf(&b, "      %s\n", in)
		}
	}
	return b.String()
}
