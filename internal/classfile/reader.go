package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

type cpEntry struct {
	tag   byte
	a, b  uint16
	value any
}

type reader struct {
	data []byte
	pos  int
	err  error
	pool []cpEntry
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrClassFormat, fmt.Sprintf(format, args...))
	}
}

func (r *reader) u1() byte {
	if r.err != nil || r.pos+1 > len(r.data) {
		r.fail("truncated at %d", r.pos)
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u2() uint16 {
	if r.err != nil || r.pos+2 > len(r.data) {
		r.fail("truncated at %d", r.pos)
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if r.err != nil || r.pos+4 > len(r.data) {
		r.fail("truncated at %d", r.pos)
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil || n < 0 || r.pos+n > len(r.data) {
		r.fail("truncated at %d", r.pos)
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *reader) entry(idx uint16, tags ...byte) *cpEntry {
	if int(idx) <= 0 || int(idx) >= len(r.pool) {
		r.fail("constant pool index %d out of range", idx)
		return &cpEntry{}
	}
	e := &r.pool[idx]
	for _, t := range tags {
		if e.tag == t {
			return e
		}
	}
	r.fail("constant %d has tag %d", idx, e.tag)
	return &cpEntry{}
}

func (r *reader) utf8(idx uint16) string {
	s, _ := r.entry(idx, tagUtf8).value.(string)
	return s
}

func (r *reader) className(idx uint16) string {
	if idx == 0 {
		return ""
	}
	return r.utf8(r.entry(idx, tagClass).a)
}

func (r *reader) memberRef(idx uint16) *MemberRef {
	e := r.entry(idx, tagFieldref, tagMethodref, tagInterfaceMethodref)
	nt := r.entry(e.b, tagNameAndType)
	return &MemberRef{
		Owner:     r.className(e.a),
		Name:      r.utf8(nt.a),
		Desc:      r.utf8(nt.b),
		Interface: e.tag == tagInterfaceMethodref,
	}
}

func (r *reader) constant(idx uint16) any {
	e := r.entry(idx, tagInteger, tagFloat, tagLong, tagDouble, tagString, tagClass)
	switch e.tag {
	case tagString:
		return r.utf8(e.a)
	case tagClass:
		return ClassConst(r.utf8(e.a))
	}
	return e.value
}

// Parse decodes class file bytes. Malformed input yields an error wrapping
// ErrClassFormat. Method code is decoded into Instructions when every opcode
// is supported; otherwise only Code.Bytes is set.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	if r.u4() != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrClassFormat)
	}
	cf := &ClassFile{}
	cf.Minor = r.u2()
	cf.Major = r.u2()
	r.readPool()
	if r.err != nil {
		return nil, r.err
	}

	cf.Access = r.u2()
	cf.Name = r.className(r.u2())
	cf.Super = r.className(r.u2())
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		cf.Interfaces = append(cf.Interfaces, r.className(r.u2()))
	}

	for n := r.u2(); n > 0 && r.err == nil; n-- {
		f := &Field{Access: r.u2(), Name: r.utf8(r.u2()), Descriptor: r.utf8(r.u2())}
		for a := r.u2(); a > 0 && r.err == nil; a-- {
			name, body := r.attribute()
			if name == "ConstantValue" && len(body) == 2 {
				f.Constant = r.constant(binary.BigEndian.Uint16(body))
			}
		}
		cf.Fields = append(cf.Fields, f)
	}

	for n := r.u2(); n > 0 && r.err == nil; n-- {
		m := &Method{Access: r.u2(), Name: r.utf8(r.u2()), Descriptor: r.utf8(r.u2())}
		for a := r.u2(); a > 0 && r.err == nil; a-- {
			name, body := r.attribute()
			switch name {
			case "Code":
				m.Code = r.code(body)
			case "Exceptions":
				sub := &reader{data: body, pool: r.pool}
				for k := sub.u2(); k > 0 && sub.err == nil; k-- {
					m.Exceptions = append(m.Exceptions, sub.className(sub.u2()))
				}
				if sub.err != nil {
					r.err = sub.err
				}
			}
		}
		cf.Methods = append(cf.Methods, m)
	}

	for a := r.u2(); a > 0 && r.err == nil; a-- {
		name, body := r.attribute()
		sub := &reader{data: body, pool: r.pool}
		switch name {
		case "SourceFile":
			cf.SourceFile = sub.utf8(sub.u2())
		case "InnerClasses":
			for k := sub.u2(); k > 0 && sub.err == nil; k-- {
				ic := InnerClass{Inner: sub.className(sub.u2()), Outer: sub.className(sub.u2())}
				if nameIdx := sub.u2(); nameIdx != 0 {
					ic.Name = sub.utf8(nameIdx)
				}
				ic.Access = sub.u2()
				cf.InnerClasses = append(cf.InnerClasses, ic)
			}
		case "EnclosingMethod":
			em := &EnclosingMethod{Class: sub.className(sub.u2())}
			if nt := sub.u2(); nt != 0 {
				e := sub.entry(nt, tagNameAndType)
				em.Name, em.Desc = sub.utf8(e.a), sub.utf8(e.b)
			}
			cf.EnclosingMethod = em
		}
		if sub.err != nil {
			r.err = sub.err
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return cf, nil
}

func (r *reader) readPool() {
	count := int(r.u2())
	r.pool = make([]cpEntry, count)
	for i := 1; i < count && r.err == nil; i++ {
		e := &r.pool[i]
		e.tag = r.u1()
		switch e.tag {
		case tagUtf8:
			n := int(r.u2())
			e.value = decodeModifiedUTF8(r.bytes(n))
		case tagInteger:
			e.value = int32(r.u4())
		case tagFloat:
			e.value = math.Float32frombits(r.u4())
		case tagLong:
			hi, lo := r.u4(), r.u4()
			e.value = int64(uint64(hi)<<32 | uint64(lo))
			i++
		case tagDouble:
			hi, lo := r.u4(), r.u4()
			e.value = math.Float64frombits(uint64(hi)<<32 | uint64(lo))
			i++
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			e.a, e.b = r.u2(), r.u2()
		case tagMethodHandle:
			e.a = uint16(r.u1())
			e.b = r.u2()
		default:
			r.fail("unknown constant tag %d at index %d", e.tag, i)
		}
	}
}

func (r *reader) attribute() (string, []byte) {
	name := r.utf8(r.u2())
	n := int(r.u4())
	return name, r.bytes(n)
}

func (r *reader) code(body []byte) *Code {
	sub := &reader{data: body, pool: r.pool}
	c := &Code{MaxStack: int(sub.u2()), MaxLocals: int(sub.u2())}
	n := int(sub.u4())
	c.Bytes = sub.bytes(n)
	sub.bytes(int(sub.u2()) * 8) // exception table
	for a := sub.u2(); a > 0 && sub.err == nil; a-- {
		name, attr := sub.attribute()
		if name != "LineNumberTable" {
			continue
		}
		ln := &reader{data: attr, pool: r.pool}
		for k := ln.u2(); k > 0 && ln.err == nil; k-- {
			c.LineNumbers = append(c.LineNumbers, LineNumber{PC: int(ln.u2()), Line: int(ln.u2())})
		}
	}
	if sub.err != nil {
		r.err = sub.err
		return c
	}
	if insns, err := r.decodeCode(c.Bytes); err == nil {
		c.Instructions = insns
	}
	return c
}

// decodeCode decodes raw bytecode into symbolic instructions. Branch
// targets become OpLabel pseudo instructions whose Label is the target
// offset.
func (r *reader) decodeCode(code []byte) ([]Instruction, error) {
	type decoded struct {
		pc int
		in Instruction
	}
	var list []decoded
	targets := make(map[int]bool)
	c := &reader{data: code, pool: r.pool}
	for c.pos < len(code) && c.err == nil {
		pc := c.pos
		op := Opcode(c.u1())
		in := Instruction{Op: op}
		switch {
		case op >= 0x1a && op <= 0x2d:
			k := int(op - 0x1a)
			in.Op = OpIload + Opcode(k/4)
			in.Int = k % 4
		case op >= 0x3b && op <= 0x4e:
			k := int(op - 0x3b)
			in.Op = OpIstore + Opcode(k/4)
			in.Int = k % 4
		case op.isLocalOp():
			in.Int = int(c.u1())
		case op == OpBipush:
			in.Int = int(int8(c.u1()))
		case op == OpSipush:
			in.Int = int(int16(c.u2()))
		case op == OpNewarray:
			in.Int = int(c.u1())
		case op == OpLdc:
			in.Const = r.constant(uint16(c.u1()))
		case op == OpLdcW || op == OpLdc2W:
			in.Const = r.constant(c.u2())
		case op == OpIinc:
			in.Int = int(c.u1())
			in.Inc = int(int8(c.u1()))
		case op == OpWide:
			inner := Opcode(c.u1())
			in.Op = inner
			in.Int = int(c.u2())
			if inner == OpIinc {
				in.Inc = int(int16(c.u2()))
			} else if !inner.isLocalOp() {
				return nil, fmt.Errorf("%w: wide %s", ErrUnsupportedOpcode, inner)
			}
		case op == OpGotoW:
			in.Label = pc + int(int32(c.u4()))
			targets[in.Label] = true
		case op.IsBranch():
			in.Label = pc + int(int16(c.u2()))
			targets[in.Label] = true
		case op >= OpGetstatic && op <= OpInvokestatic:
			in.Ref = r.memberRef(c.u2())
		case op == OpInvokeiface:
			in.Ref = r.memberRef(c.u2())
			c.u2()
		case op == OpNew || op == OpAnewarray || op == OpCheckcast || op == OpInstanceof:
			in.Class = r.className(c.u2())
		case op == OpMultianewarr:
			in.Class = r.className(c.u2())
			in.Int = int(c.u1())
		case op == OpTableswitch || op == OpLookupswitch || op == 0xa8 || op == 0xa9 || op == 0xba || op == 0xc9:
			return nil, fmt.Errorf("%w: %#x at %d", ErrUnsupportedOpcode, int(op), pc)
		default:
			if _, ok := opNames[op]; !ok {
				return nil, fmt.Errorf("%w: %#x at %d", ErrUnsupportedOpcode, int(op), pc)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		list = append(list, decoded{pc, in})
	}
	if c.err != nil {
		return nil, c.err
	}

	out := make([]Instruction, 0, len(list)+len(targets))
	for _, d := range list {
		if targets[d.pc] {
			out = append(out, Instruction{Op: OpLabel, Label: d.pc})
		}
		out = append(out, d.in)
	}
	return out, nil
}

func decodeModifiedUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}
