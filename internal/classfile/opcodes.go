package classfile

// Opcode is a JVM instruction opcode. OpLabel is a pseudo instruction that
// marks a branch target and emits no bytes.
type Opcode int

const (
	OpNop           Opcode = 0x00
	OpAconstNull    Opcode = 0x01
	OpIconstM1      Opcode = 0x02
	OpIconst0       Opcode = 0x03
	OpIconst1       Opcode = 0x04
	OpIconst2       Opcode = 0x05
	OpIconst3       Opcode = 0x06
	OpIconst4       Opcode = 0x07
	OpIconst5       Opcode = 0x08
	OpLconst0       Opcode = 0x09
	OpLconst1       Opcode = 0x0a
	OpFconst0       Opcode = 0x0b
	OpFconst1       Opcode = 0x0c
	OpFconst2       Opcode = 0x0d
	OpDconst0       Opcode = 0x0e
	OpDconst1       Opcode = 0x0f
	OpBipush        Opcode = 0x10
	OpSipush        Opcode = 0x11
	OpLdc           Opcode = 0x12
	OpLdcW          Opcode = 0x13
	OpLdc2W         Opcode = 0x14
	OpIload         Opcode = 0x15
	OpLload         Opcode = 0x16
	OpFload         Opcode = 0x17
	OpDload         Opcode = 0x18
	OpAload         Opcode = 0x19
	OpIload0        Opcode = 0x1a
	OpAload0        Opcode = 0x2a
	OpIaload        Opcode = 0x2e
	OpLaload        Opcode = 0x2f
	OpFaload        Opcode = 0x30
	OpDaload        Opcode = 0x31
	OpAaload        Opcode = 0x32
	OpBaload        Opcode = 0x33
	OpCaload        Opcode = 0x34
	OpSaload        Opcode = 0x35
	OpIstore        Opcode = 0x36
	OpLstore        Opcode = 0x37
	OpFstore        Opcode = 0x38
	OpDstore        Opcode = 0x39
	OpAstore        Opcode = 0x3a
	OpIstore0       Opcode = 0x3b
	OpAstore3       Opcode = 0x4e
	OpIastore       Opcode = 0x4f
	OpLastore       Opcode = 0x50
	OpFastore       Opcode = 0x51
	OpDastore       Opcode = 0x52
	OpAastore       Opcode = 0x53
	OpBastore       Opcode = 0x54
	OpCastore       Opcode = 0x55
	OpSastore       Opcode = 0x56
	OpPop           Opcode = 0x57
	OpPop2          Opcode = 0x58
	OpDup           Opcode = 0x59
	OpDupX1         Opcode = 0x5a
	OpDupX2         Opcode = 0x5b
	OpDup2          Opcode = 0x5c
	OpDup2X1        Opcode = 0x5d
	OpDup2X2        Opcode = 0x5e
	OpSwap          Opcode = 0x5f
	OpIadd          Opcode = 0x60
	OpLadd          Opcode = 0x61
	OpFadd          Opcode = 0x62
	OpDadd          Opcode = 0x63
	OpIsub          Opcode = 0x64
	OpLsub          Opcode = 0x65
	OpFsub          Opcode = 0x66
	OpDsub          Opcode = 0x67
	OpImul          Opcode = 0x68
	OpLmul          Opcode = 0x69
	OpFmul          Opcode = 0x6a
	OpDmul          Opcode = 0x6b
	OpIdiv          Opcode = 0x6c
	OpLdiv          Opcode = 0x6d
	OpFdiv          Opcode = 0x6e
	OpDdiv          Opcode = 0x6f
	OpIrem          Opcode = 0x70
	OpLrem          Opcode = 0x71
	OpFrem          Opcode = 0x72
	OpDrem          Opcode = 0x73
	OpIneg          Opcode = 0x74
	OpLneg          Opcode = 0x75
	OpFneg          Opcode = 0x76
	OpDneg          Opcode = 0x77
	OpIshl          Opcode = 0x78
	OpLshl          Opcode = 0x79
	OpIshr          Opcode = 0x7a
	OpLshr          Opcode = 0x7b
	OpIushr         Opcode = 0x7c
	OpLushr         Opcode = 0x7d
	OpIand          Opcode = 0x7e
	OpLand          Opcode = 0x7f
	OpIor           Opcode = 0x80
	OpLor           Opcode = 0x81
	OpIxor          Opcode = 0x82
	OpLxor          Opcode = 0x83
	OpIinc          Opcode = 0x84
	OpI2l           Opcode = 0x85
	OpI2f           Opcode = 0x86
	OpI2d           Opcode = 0x87
	OpL2i           Opcode = 0x88
	OpL2f           Opcode = 0x89
	OpL2d           Opcode = 0x8a
	OpF2i           Opcode = 0x8b
	OpF2l           Opcode = 0x8c
	OpF2d           Opcode = 0x8d
	OpD2i           Opcode = 0x8e
	OpD2l           Opcode = 0x8f
	OpD2f           Opcode = 0x90
	OpI2b           Opcode = 0x91
	OpI2c           Opcode = 0x92
	OpI2s           Opcode = 0x93
	OpLcmp          Opcode = 0x94
	OpFcmpl         Opcode = 0x95
	OpFcmpg         Opcode = 0x96
	OpDcmpl         Opcode = 0x97
	OpDcmpg         Opcode = 0x98
	OpIfeq          Opcode = 0x99
	OpIfne          Opcode = 0x9a
	OpIflt          Opcode = 0x9b
	OpIfge          Opcode = 0x9c
	OpIfgt          Opcode = 0x9d
	OpIfle          Opcode = 0x9e
	OpIfIcmpeq      Opcode = 0x9f
	OpIfIcmpne      Opcode = 0xa0
	OpIfIcmplt      Opcode = 0xa1
	OpIfIcmpge      Opcode = 0xa2
	OpIfIcmpgt      Opcode = 0xa3
	OpIfIcmple      Opcode = 0xa4
	OpIfAcmpeq      Opcode = 0xa5
	OpIfAcmpne      Opcode = 0xa6
	OpGoto          Opcode = 0xa7
	OpTableswitch   Opcode = 0xaa
	OpLookupswitch  Opcode = 0xab
	OpIreturn       Opcode = 0xac
	OpLreturn       Opcode = 0xad
	OpFreturn       Opcode = 0xae
	OpDreturn       Opcode = 0xaf
	OpAreturn       Opcode = 0xb0
	OpReturn        Opcode = 0xb1
	OpGetstatic     Opcode = 0xb2
	OpPutstatic     Opcode = 0xb3
	OpGetfield      Opcode = 0xb4
	OpPutfield      Opcode = 0xb5
	OpInvokevirtual Opcode = 0xb6
	OpInvokespecial Opcode = 0xb7
	OpInvokestatic  Opcode = 0xb8
	OpInvokeiface   Opcode = 0xb9
	OpNew           Opcode = 0xbb
	OpNewarray      Opcode = 0xbc
	OpAnewarray     Opcode = 0xbd
	OpArraylength   Opcode = 0xbe
	OpAthrow        Opcode = 0xbf
	OpCheckcast     Opcode = 0xc0
	OpInstanceof    Opcode = 0xc1
	OpMonitorenter  Opcode = 0xc2
	OpMonitorexit   Opcode = 0xc3
	OpWide          Opcode = 0xc4
	OpMultianewarr  Opcode = 0xc5
	OpIfnull        Opcode = 0xc6
	OpIfnonnull     Opcode = 0xc7
	OpGotoW         Opcode = 0xc8

	OpLabel Opcode = -1
)

// newarray element type codes
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

var opNames = map[Opcode]string{
	OpNop: "nop", OpAconstNull: "aconst_null", OpIconstM1: "iconst_m1", OpIconst0: "iconst_0",
	OpIconst1: "iconst_1", OpIconst2: "iconst_2", OpIconst3: "iconst_3", OpIconst4: "iconst_4",
	OpIconst5: "iconst_5", OpLconst0: "lconst_0", OpLconst1: "lconst_1", OpFconst0: "fconst_0",
	OpFconst1: "fconst_1", OpFconst2: "fconst_2", OpDconst0: "dconst_0", OpDconst1: "dconst_1",
	OpBipush: "bipush", OpSipush: "sipush", OpLdc: "ldc", OpLdcW: "ldc_w", OpLdc2W: "ldc2_w",
	OpIload: "iload", OpLload: "lload", OpFload: "fload", OpDload: "dload", OpAload: "aload",
	OpIaload: "iaload", OpLaload: "laload", OpFaload: "faload", OpDaload: "daload",
	OpAaload: "aaload", OpBaload: "baload", OpCaload: "caload", OpSaload: "saload",
	OpIstore: "istore", OpLstore: "lstore", OpFstore: "fstore", OpDstore: "dstore", OpAstore: "astore",
	OpIastore: "iastore", OpLastore: "lastore", OpFastore: "fastore", OpDastore: "dastore",
	OpAastore: "aastore", OpBastore: "bastore", OpCastore: "castore", OpSastore: "sastore",
	OpPop: "pop", OpPop2: "pop2", OpDup: "dup", OpDupX1: "dup_x1", OpDupX2: "dup_x2",
	OpDup2: "dup2", OpDup2X1: "dup2_x1", OpDup2X2: "dup2_x2", OpSwap: "swap",
	OpIadd: "iadd", OpLadd: "ladd", OpFadd: "fadd", OpDadd: "dadd",
	OpIsub: "isub", OpLsub: "lsub", OpFsub: "fsub", OpDsub: "dsub",
	OpImul: "imul", OpLmul: "lmul", OpFmul: "fmul", OpDmul: "dmul",
	OpIdiv: "idiv", OpLdiv: "ldiv", OpFdiv: "fdiv", OpDdiv: "ddiv",
	OpIrem: "irem", OpLrem: "lrem", OpFrem: "frem", OpDrem: "drem",
	OpIneg: "ineg", OpLneg: "lneg", OpFneg: "fneg", OpDneg: "dneg",
	OpIshl: "ishl", OpLshl: "lshl", OpIshr: "ishr", OpLshr: "lshr", OpIushr: "iushr", OpLushr: "lushr",
	OpIand: "iand", OpLand: "land", OpIor: "ior", OpLor: "lor", OpIxor: "ixor", OpLxor: "lxor",
	OpIinc: "iinc", OpI2l: "i2l", OpI2f: "i2f", OpI2d: "i2d", OpL2i: "l2i", OpL2f: "l2f",
	OpL2d: "l2d", OpF2i: "f2i", OpF2l: "f2l", OpF2d: "f2d", OpD2i: "d2i", OpD2l: "d2l",
	OpD2f: "d2f", OpI2b: "i2b", OpI2c: "i2c", OpI2s: "i2s",
	OpLcmp: "lcmp", OpFcmpl: "fcmpl", OpFcmpg: "fcmpg", OpDcmpl: "dcmpl", OpDcmpg: "dcmpg",
	OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfge: "ifge", OpIfgt: "ifgt", OpIfle: "ifle",
	OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
	OpIfIcmpge: "if_icmpge", OpIfIcmpgt: "if_icmpgt", OpIfIcmple: "if_icmple",
	OpIfAcmpeq: "if_acmpeq", OpIfAcmpne: "if_acmpne", OpGoto: "goto",
	OpTableswitch: "tableswitch", OpLookupswitch: "lookupswitch",
	OpIreturn: "ireturn", OpLreturn: "lreturn", OpFreturn: "freturn", OpDreturn: "dreturn",
	OpAreturn: "areturn", OpReturn: "return",
	OpGetstatic: "getstatic", OpPutstatic: "putstatic", OpGetfield: "getfield", OpPutfield: "putfield",
	OpInvokevirtual: "invokevirtual", OpInvokespecial: "invokespecial",
	OpInvokestatic: "invokestatic", OpInvokeiface: "invokeinterface",
	OpNew: "new", OpNewarray: "newarray", OpAnewarray: "anewarray", OpArraylength: "arraylength",
	OpAthrow: "athrow", OpCheckcast: "checkcast", OpInstanceof: "instanceof",
	OpMonitorenter: "monitorenter", OpMonitorexit: "monitorexit", OpWide: "wide",
	OpMultianewarr: "multianewarray", OpIfnull: "ifnull", OpIfnonnull: "ifnonnull",
	OpGotoW: "goto_w", OpLabel: "label",
}

// String returns the mnemonic.
func (op Opcode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// IsBranch reports instructions whose operand is a label.
func (op Opcode) IsBranch() bool {
	return (op >= OpIfeq && op <= OpGoto) || op == OpIfnull || op == OpIfnonnull || op == OpGotoW
}

// IsReturn reports the return family and athrow.
func (op Opcode) IsReturn() bool {
	return (op >= OpIreturn && op <= OpReturn) || op == OpAthrow
}

// isLocalOp reports loads and stores that take a local index.
func (op Opcode) isLocalOp() bool {
	return (op >= OpIload && op <= OpAload) || (op >= OpIstore && op <= OpAstore)
}
