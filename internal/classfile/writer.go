package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// poolBuilder assigns constant pool indices with deduplication
type poolBuilder struct {
	buf   bytes.Buffer
	index map[string]uint16
	next  uint16
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{index: make(map[string]uint16), next: 1}
}

func (p *poolBuilder) add(key string, size uint16, write func(b *bytes.Buffer)) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	write(&p.buf)
	p.index[key] = idx
	p.next += size
	return idx
}

func (p *poolBuilder) utf8(s string) uint16 {
	return p.add("U"+s, 1, func(b *bytes.Buffer) {
		enc := encodeModifiedUTF8(s)
		b.WriteByte(tagUtf8)
		_ = binary.Write(b, binary.BigEndian, uint16(len(enc)))
		b.Write(enc)
	})
}

func (p *poolBuilder) class(name string) uint16 {
	nameIdx := p.utf8(name)
	return p.add("C"+name, 1, func(b *bytes.Buffer) {
		b.WriteByte(tagClass)
		_ = binary.Write(b, binary.BigEndian, nameIdx)
	})
}

func (p *poolBuilder) str(s string) uint16 {
	idx := p.utf8(s)
	return p.add("S"+s, 1, func(b *bytes.Buffer) {
		b.WriteByte(tagString)
		_ = binary.Write(b, binary.BigEndian, idx)
	})
}

func (p *poolBuilder) constant(v any) (uint16, error) {
	switch c := v.(type) {
	case int32:
		return p.add(fmt.Sprintf("I%d", c), 1, func(b *bytes.Buffer) {
			b.WriteByte(tagInteger)
			_ = binary.Write(b, binary.BigEndian, c)
		}), nil
	case int:
		return p.constant(int32(c))
	case float32:
		bits := math.Float32bits(c)
		return p.add(fmt.Sprintf("F%x", bits), 1, func(b *bytes.Buffer) {
			b.WriteByte(tagFloat)
			_ = binary.Write(b, binary.BigEndian, bits)
		}), nil
	case int64:
		return p.add(fmt.Sprintf("J%d", c), 2, func(b *bytes.Buffer) {
			b.WriteByte(tagLong)
			_ = binary.Write(b, binary.BigEndian, c)
		}), nil
	case float64:
		bits := math.Float64bits(c)
		return p.add(fmt.Sprintf("D%x", bits), 2, func(b *bytes.Buffer) {
			b.WriteByte(tagDouble)
			_ = binary.Write(b, binary.BigEndian, bits)
		}), nil
	case string:
		return p.str(c), nil
	case ClassConst:
		return p.class(string(c)), nil
	}
	return 0, fmt.Errorf("unsupported constant %T", v)
}

func (p *poolBuilder) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	return p.add("N"+name+":"+desc, 1, func(b *bytes.Buffer) {
		b.WriteByte(tagNameAndType)
		_ = binary.Write(b, binary.BigEndian, n)
		_ = binary.Write(b, binary.BigEndian, d)
	})
}

func (p *poolBuilder) member(tag byte, ref *MemberRef) uint16 {
	owner := p.class(ref.Owner)
	nt := p.nameAndType(ref.Name, ref.Desc)
	return p.add(fmt.Sprintf("M%d%s", tag, ref), 1, func(b *bytes.Buffer) {
		b.WriteByte(tag)
		_ = binary.Write(b, binary.BigEndian, owner)
		_ = binary.Write(b, binary.BigEndian, nt)
	})
}

func (p *poolBuilder) ref(in Instruction) uint16 {
	switch in.Op {
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		return p.member(tagFieldref, in.Ref)
	case OpInvokeiface:
		return p.member(tagInterfaceMethodref, in.Ref)
	}
	if in.Ref.Interface {
		return p.member(tagInterfaceMethodref, in.Ref)
	}
	return p.member(tagMethodref, in.Ref)
}

// Write serializes a class file. Code attributes are assembled from their
// symbolic instructions; MaxStack and MaxLocals are computed when zero.
func Write(cf *ClassFile) ([]byte, error) {
	pool := newPoolBuilder()
	var body bytes.Buffer
	w := func(v any) { _ = binary.Write(&body, binary.BigEndian, v) }

	access := cf.Access
	w(access)
	w(pool.class(cf.Name))
	if cf.Super == "" {
		w(uint16(0))
	} else {
		w(pool.class(cf.Super))
	}
	w(uint16(len(cf.Interfaces)))
	for _, i := range cf.Interfaces {
		w(pool.class(i))
	}

	w(uint16(len(cf.Fields)))
	for _, f := range cf.Fields {
		w(f.Access)
		w(pool.utf8(f.Name))
		w(pool.utf8(f.Descriptor))
		if f.Constant == nil {
			w(uint16(0))
			continue
		}
		idx, err := pool.constant(f.Constant)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		w(uint16(1))
		w(pool.utf8("ConstantValue"))
		w(uint32(2))
		w(idx)
	}

	w(uint16(len(cf.Methods)))
	for _, m := range cf.Methods {
		w(m.Access)
		w(pool.utf8(m.Name))
		w(pool.utf8(m.Descriptor))
		attrs := 0
		if m.Code != nil {
			attrs++
		}
		if len(m.Exceptions) > 0 {
			attrs++
		}
		w(uint16(attrs))
		if m.Code != nil {
			code, err := assembleCode(pool, m)
			if err != nil {
				return nil, fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
			}
			w(pool.utf8("Code"))
			w(uint32(len(code)))
			body.Write(code)
		}
		if len(m.Exceptions) > 0 {
			w(pool.utf8("Exceptions"))
			w(uint32(2 + 2*len(m.Exceptions)))
			w(uint16(len(m.Exceptions)))
			for _, e := range m.Exceptions {
				w(pool.class(e))
			}
		}
	}

	classAttrs := 0
	if cf.SourceFile != "" {
		classAttrs++
	}
	if len(cf.InnerClasses) > 0 {
		classAttrs++
	}
	if cf.EnclosingMethod != nil {
		classAttrs++
	}
	w(uint16(classAttrs))
	if cf.SourceFile != "" {
		w(pool.utf8("SourceFile"))
		w(uint32(2))
		w(pool.utf8(cf.SourceFile))
	}
	if len(cf.InnerClasses) > 0 {
		w(pool.utf8("InnerClasses"))
		w(uint32(2 + 8*len(cf.InnerClasses)))
		w(uint16(len(cf.InnerClasses)))
		for _, ic := range cf.InnerClasses {
			w(pool.class(ic.Inner))
			if ic.Outer == "" {
				w(uint16(0))
			} else {
				w(pool.class(ic.Outer))
			}
			if ic.Name == "" {
				w(uint16(0))
			} else {
				w(pool.utf8(ic.Name))
			}
			w(ic.Access)
		}
	}
	if em := cf.EnclosingMethod; em != nil {
		w(pool.utf8("EnclosingMethod"))
		w(uint32(4))
		w(pool.class(em.Class))
		if em.Name == "" {
			w(uint16(0))
		} else {
			w(pool.nameAndType(em.Name, em.Desc))
		}
	}

	major, minor := cf.Major, cf.Minor
	if major == 0 {
		major = MajorVersion
	}
	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, uint32(Magic))
	_ = binary.Write(&out, binary.BigEndian, minor)
	_ = binary.Write(&out, binary.BigEndian, major)
	_ = binary.Write(&out, binary.BigEndian, pool.next)
	out.Write(pool.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// assembleCode encodes the Code attribute body of a method
func assembleCode(pool *poolBuilder, m *Method) ([]byte, error) {
	c := m.Code
	insns := c.Instructions

	maxStack := c.MaxStack
	if maxStack == 0 {
		s, err := ComputeMaxStack(insns)
		if err != nil {
			return nil, err
		}
		maxStack = s
	}
	maxLocals := c.MaxLocals
	if maxLocals == 0 {
		args := ArgSlots(m.Descriptor)
		if m.Access&AccStatic == 0 {
			args++
		}
		maxLocals = ComputeMaxLocals(insns, args)
	}

	// pass 1: resolve pool indices and sizes
	indices := make([]uint16, len(insns))
	offsets := make([]int, len(insns)+1)
	labels := make(map[int]int)
	pc := 0
	for i, in := range insns {
		offsets[i] = pc
		switch {
		case in.Op == OpLabel:
			labels[in.Label] = pc
		case in.Ref != nil:
			indices[i] = pool.ref(in)
		case in.Class != "":
			indices[i] = pool.class(in.Class)
		case in.Op == OpLdc || in.Op == OpLdcW || in.Op == OpLdc2W:
			idx, err := pool.constant(in.Const)
			if err != nil {
				return nil, err
			}
			indices[i] = idx
		}
		pc += insnSize(in, indices[i])
	}
	offsets[len(insns)] = pc

	// pass 2: encode
	var code bytes.Buffer
	for i, in := range insns {
		if err := encodeInsn(&code, in, indices[i], offsets[i], labels); err != nil {
			return nil, err
		}
	}

	var attr bytes.Buffer
	w := func(v any) { _ = binary.Write(&attr, binary.BigEndian, v) }
	w(uint16(maxStack))
	w(uint16(maxLocals))
	w(uint32(code.Len()))
	attr.Write(code.Bytes())
	w(uint16(0)) // exception table
	if len(c.LineNumbers) == 0 {
		w(uint16(0))
		return attr.Bytes(), nil
	}
	w(uint16(1))
	w(pool.utf8("LineNumberTable"))
	w(uint32(2 + 4*len(c.LineNumbers)))
	w(uint16(len(c.LineNumbers)))
	for _, ln := range c.LineNumbers {
		idx := ln.PC
		if idx < 0 || idx > len(insns) {
			idx = 0
		}
		w(uint16(offsets[idx]))
		w(uint16(ln.Line))
	}
	return attr.Bytes(), nil
}

func isShortLocal(in Instruction) bool {
	return in.Op.isLocalOp() && in.Int >= 0 && in.Int <= 3
}

func insnSize(in Instruction, poolIdx uint16) int {
	switch in.Op {
	case OpLabel:
		return 0
	case OpBipush, OpNewarray:
		return 2
	case OpSipush:
		return 3
	case OpLdc, OpLdcW:
		switch in.Const.(type) {
		case int64, float64:
			return 3
		}
		if poolIdx < 256 {
			return 2
		}
		return 3
	case OpLdc2W:
		return 3
	case OpIinc:
		if in.Int > 255 || in.Inc < -128 || in.Inc > 127 {
			return 6
		}
		return 3
	case OpInvokeiface:
		return 5
	case OpMultianewarr:
		return 4
	case OpGotoW:
		return 5
	}
	if in.Op.isLocalOp() {
		switch {
		case isShortLocal(in):
			return 1
		case in.Int > 255:
			return 4
		}
		return 2
	}
	if in.Op.IsBranch() || in.Ref != nil || in.Class != "" {
		return 3
	}
	return 1
}

func shortLocalBase(op Opcode) byte {
	switch op {
	case OpIload:
		return 0x1a
	case OpLload:
		return 0x1e
	case OpFload:
		return 0x22
	case OpDload:
		return 0x26
	case OpAload:
		return 0x2a
	case OpIstore:
		return 0x3b
	case OpLstore:
		return 0x3f
	case OpFstore:
		return 0x43
	case OpDstore:
		return 0x47
	}
	return 0x4b // astore_0
}

func encodeInsn(b *bytes.Buffer, in Instruction, poolIdx uint16, pc int, labels map[int]int) error {
	w := func(v any) { _ = binary.Write(b, binary.BigEndian, v) }
	switch in.Op {
	case OpLabel:
		return nil
	case OpBipush:
		b.WriteByte(byte(in.Op))
		b.WriteByte(byte(int8(in.Int)))
		return nil
	case OpNewarray:
		b.WriteByte(byte(in.Op))
		b.WriteByte(byte(in.Int))
		return nil
	case OpSipush:
		b.WriteByte(byte(in.Op))
		w(int16(in.Int))
		return nil
	case OpLdc, OpLdcW, OpLdc2W:
		switch {
		case insnSize(in, poolIdx) == 2:
			b.WriteByte(byte(OpLdc))
			b.WriteByte(byte(poolIdx))
		default:
			op := OpLdcW
			switch in.Const.(type) {
			case int64, float64:
				op = OpLdc2W
			}
			b.WriteByte(byte(op))
			w(poolIdx)
		}
		return nil
	case OpIinc:
		if insnSize(in, 0) == 6 {
			b.WriteByte(byte(OpWide))
			b.WriteByte(byte(OpIinc))
			w(uint16(in.Int))
			w(int16(in.Inc))
			return nil
		}
		b.WriteByte(byte(OpIinc))
		b.WriteByte(byte(in.Int))
		b.WriteByte(byte(int8(in.Inc)))
		return nil
	case OpInvokeiface:
		b.WriteByte(byte(in.Op))
		w(poolIdx)
		b.WriteByte(byte(1 + ArgSlots(in.Ref.Desc)))
		b.WriteByte(0)
		return nil
	case OpMultianewarr:
		b.WriteByte(byte(in.Op))
		w(poolIdx)
		b.WriteByte(byte(in.Int))
		return nil
	}

	if in.Op.isLocalOp() {
		switch {
		case isShortLocal(in):
			b.WriteByte(shortLocalBase(in.Op) + byte(in.Int))
		case in.Int > 255:
			b.WriteByte(byte(OpWide))
			b.WriteByte(byte(in.Op))
			w(uint16(in.Int))
		default:
			b.WriteByte(byte(in.Op))
			b.WriteByte(byte(in.Int))
		}
		return nil
	}
	if in.Op.IsBranch() {
		target, ok := labels[in.Label]
		if !ok {
			return fmt.Errorf("%w: L%d", ErrBadBranch, in.Label)
		}
		off := target - pc
		if in.Op == OpGotoW {
			b.WriteByte(byte(in.Op))
			w(int32(off))
			return nil
		}
		if off < math.MinInt16 || off > math.MaxInt16 {
			return fmt.Errorf("branch offset %d out of range", off)
		}
		b.WriteByte(byte(in.Op))
		w(int16(off))
		return nil
	}
	b.WriteByte(byte(in.Op))
	if in.Ref != nil || in.Class != "" {
		w(poolIdx)
	}
	return nil
}

// encodeModifiedUTF8 encodes a string the way the class file format expects:
// NUL is two bytes and supplementary characters are surrogate pairs.
func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, r := range s {
		if r > 0xFFFF {
			r -= 0x10000
			hi := 0xD800 + (r >> 10)
			lo := 0xDC00 + (r & 0x3FF)
			out = appendMUTF8Char(out, hi)
			out = appendMUTF8Char(out, lo)
			continue
		}
		out = appendMUTF8Char(out, r)
	}
	return out
}

func appendMUTF8Char(out []byte, r rune) []byte {
	switch {
	case r != 0 && r < 0x80:
		return append(out, byte(r))
	case r < 0x800:
		return append(out, byte(0xC0|(r>>6)), byte(0x80|(r&0x3F)))
	}
	return append(out, byte(0xE0|(r>>12)), byte(0x80|((r>>6)&0x3F)), byte(0x80|(r&0x3F)))
}
