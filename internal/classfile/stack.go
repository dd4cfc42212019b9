package classfile

import "fmt"

// StackEffect returns how many slots an instruction pops and pushes.
func StackEffect(in Instruction) (pop, push int) {
	op := in.Op
	switch {
	case op == OpNop || op == OpLabel || op == OpIinc || op == OpGoto || op == OpGotoW || op == OpReturn:
		return 0, 0
	case op == OpAconstNull || (op >= OpIconstM1 && op <= OpIconst5) || (op >= OpFconst0 && op <= OpFconst2) ||
		op == OpBipush || op == OpSipush:
		return 0, 1
	case op == OpLconst0 || op == OpLconst1 || op == OpDconst0 || op == OpDconst1:
		return 0, 2
	case op == OpLdc || op == OpLdcW || op == OpLdc2W:
		switch in.Const.(type) {
		case int64, float64:
			return 0, 2
		}
		return 0, 1
	case op == OpIload || op == OpFload || op == OpAload:
		return 0, 1
	case op == OpLload || op == OpDload:
		return 0, 2
	case op == OpLaload || op == OpDaload:
		return 2, 2
	case op >= OpIaload && op <= OpSaload:
		return 2, 1
	case op == OpIstore || op == OpFstore || op == OpAstore:
		return 1, 0
	case op == OpLstore || op == OpDstore:
		return 2, 0
	case op == OpLastore || op == OpDastore:
		return 4, 0
	case op >= OpIastore && op <= OpSastore:
		return 3, 0
	}

	switch op {
	case OpPop:
		return 1, 0
	case OpPop2:
		return 2, 0
	case OpDup:
		return 1, 2
	case OpDupX1:
		return 2, 3
	case OpDupX2:
		return 3, 4
	case OpDup2:
		return 2, 4
	case OpDup2X1:
		return 3, 5
	case OpDup2X2:
		return 4, 6
	case OpSwap:
		return 2, 2
	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIshl, OpIshr, OpIushr, OpIand, OpIor, OpIxor,
		OpFadd, OpFsub, OpFmul, OpFdiv, OpFrem:
		return 2, 1
	case OpLadd, OpLsub, OpLmul, OpLdiv, OpLrem, OpLand, OpLor, OpLxor,
		OpDadd, OpDsub, OpDmul, OpDdiv, OpDrem:
		return 4, 2
	case OpLshl, OpLshr, OpLushr:
		return 3, 2
	case OpIneg, OpFneg, OpI2f, OpF2i, OpI2b, OpI2c, OpI2s:
		return 1, 1
	case OpLneg, OpDneg, OpL2d, OpD2l:
		return 2, 2
	case OpI2l, OpI2d, OpF2l, OpF2d:
		return 1, 2
	case OpL2i, OpL2f, OpD2i, OpD2f:
		return 2, 1
	case OpLcmp, OpDcmpl, OpDcmpg:
		return 4, 1
	case OpFcmpl, OpFcmpg:
		return 2, 1
	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle, OpIfnull, OpIfnonnull:
		return 1, 0
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple, OpIfAcmpeq, OpIfAcmpne:
		return 2, 0
	case OpIreturn, OpFreturn, OpAreturn, OpAthrow, OpMonitorenter, OpMonitorexit:
		return 1, 0
	case OpLreturn, OpDreturn:
		return 2, 0
	case OpGetstatic:
		return 0, SlotSize(in.Ref.Desc)
	case OpPutstatic:
		return SlotSize(in.Ref.Desc), 0
	case OpGetfield:
		return 1, SlotSize(in.Ref.Desc)
	case OpPutfield:
		return 1 + SlotSize(in.Ref.Desc), 0
	case OpInvokevirtual, OpInvokespecial, OpInvokeiface:
		_, ret, _ := ParseMethodDescriptor(in.Ref.Desc)
		return 1 + ArgSlots(in.Ref.Desc), SlotSize(ret)
	case OpInvokestatic:
		_, ret, _ := ParseMethodDescriptor(in.Ref.Desc)
		return ArgSlots(in.Ref.Desc), SlotSize(ret)
	case OpNew:
		return 0, 1
	case OpNewarray, OpAnewarray, OpArraylength, OpCheckcast, OpInstanceof:
		return 1, 1
	case OpMultianewarr:
		return in.Int, 1
	}
	return 0, 0
}

// ComputeMaxStack runs a depth dataflow over the instruction list and
// returns the maximum operand stack depth. It fails on underflow or when
// two paths reach the same instruction with different depths.
func ComputeMaxStack(code []Instruction) (int, error) {
	labels := make(map[int]int)
	for i, in := range code {
		if in.Op == OpLabel {
			labels[in.Label] = i
		}
	}
	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}

	maxDepth := 0
	type item struct{ pc, depth int }
	work := []item{{0, 0}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		for pc, d := it.pc, it.depth; pc < len(code); pc++ {
			if depth[pc] >= 0 {
				if depth[pc] != d {
					return 0, fmt.Errorf("inconsistent stack depth at %d: %d vs %d", pc, depth[pc], d)
				}
				break
			}
			depth[pc] = d
			in := code[pc]
			pop, push := StackEffect(in)
			if d < pop {
				return 0, fmt.Errorf("stack underflow at %d (%s)", pc, in)
			}
			d = d - pop + push
			if d > maxDepth {
				maxDepth = d
			}
			if in.Op.IsBranch() {
				target, ok := labels[in.Label]
				if !ok {
					return 0, fmt.Errorf("%w: L%d", ErrBadBranch, in.Label)
				}
				work = append(work, item{target, d})
				if in.Op == OpGoto || in.Op == OpGotoW {
					break
				}
			}
			if in.Op.IsReturn() {
				break
			}
		}
	}
	return maxDepth, nil
}

// ComputeMaxLocals returns the number of local slots used by the code,
// never less than argSlots.
func ComputeMaxLocals(code []Instruction, argSlots int) int {
	max := argSlots
	for _, in := range code {
		size := 0
		switch in.Op {
		case OpLload, OpDload, OpLstore, OpDstore:
			size = 2
		case OpIload, OpFload, OpAload, OpIstore, OpFstore, OpAstore, OpIinc:
			size = 1
		}
		if size > 0 && in.Int+size > max {
			max = in.Int + size
		}
	}
	return max
}
