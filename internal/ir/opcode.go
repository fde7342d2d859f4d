package ir

// Opcode is the closed instruction opcode enumeration. Predicates over
// opcodes switch exhaustively so that adding an opcode forces every
// classification site to be revisited.
type Opcode int

const (
	// Unary and binary arithmetic.
	Add Opcode = iota
	FAdd
	Sub
	FSub
	Mul
	FMul
	UDiv
	SDiv
	FDiv
	URem
	SRem
	FRem
	FNeg

	// Bitwise.
	Shl
	LShr
	AShr
	And
	Or
	Xor

	// Address arithmetic.
	GetElementPtr

	// Conversions.
	Trunc
	ZExt
	SExt
	FPToUI
	FPToSI
	UIToFP
	SIToFP
	FPTrunc
	FPExt
	PtrToInt
	IntToPtr
	BitCast
	AddrSpaceCast

	// Comparisons.
	ICmp
	FCmp

	// Vector and aggregate.
	ExtractElement
	InsertElement
	ShuffleVector
	ExtractValue
	InsertValue

	// Memory.
	Alloca
	Load
	Store
	Fence

	// Other value producers.
	Call
	PHI
	Select

	// Control flow.
	Br
	Ret
	Invoke
	Resume
	Unreachable
)

var opcodeNames = map[Opcode]string{
	Add:            "add",
	FAdd:           "fadd",
	Sub:            "sub",
	FSub:           "fsub",
	Mul:            "mul",
	FMul:           "fmul",
	UDiv:           "udiv",
	SDiv:           "sdiv",
	FDiv:           "fdiv",
	URem:           "urem",
	SRem:           "srem",
	FRem:           "frem",
	FNeg:           "fneg",
	Shl:            "shl",
	LShr:           "lshr",
	AShr:           "ashr",
	And:            "and",
	Or:             "or",
	Xor:            "xor",
	GetElementPtr:  "getelementptr",
	Trunc:          "trunc",
	ZExt:           "zext",
	SExt:           "sext",
	FPToUI:         "fptoui",
	FPToSI:         "fptosi",
	UIToFP:         "uitofp",
	SIToFP:         "sitofp",
	FPTrunc:        "fptrunc",
	FPExt:          "fpext",
	PtrToInt:       "ptrtoint",
	IntToPtr:       "inttoptr",
	BitCast:        "bitcast",
	AddrSpaceCast:  "addrspacecast",
	ICmp:           "icmp",
	FCmp:           "fcmp",
	ExtractElement: "extractelement",
	InsertElement:  "insertelement",
	ShuffleVector:  "shufflevector",
	ExtractValue:   "extractvalue",
	InsertValue:    "insertvalue",
	Alloca:         "alloca",
	Load:           "load",
	Store:          "store",
	Fence:          "fence",
	Call:           "call",
	PHI:            "phi",
	Select:         "select",
	Br:             "br",
	Ret:            "ret",
	Invoke:         "invoke",
	Resume:         "resume",
	Unreachable:    "unreachable",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "<invalid opcode>"
}

// IsTerminator reports whether the opcode ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case Br, Ret, Invoke, Resume, Unreachable:
		return true
	default:
		return false
	}
}

// IsCast reports whether the opcode is a conversion.
func (op Opcode) IsCast() bool {
	switch op {
	case Trunc, ZExt, SExt, FPToUI, FPToSI, UIToFP, SIToFP,
		FPTrunc, FPExt, PtrToInt, IntToPtr, BitCast, AddrSpaceCast:
		return true
	default:
		return false
	}
}

// CmpPred is the comparison predicate of an icmp or fcmp instruction. The
// integer and floating-point predicates are distinct enum members even where
// their mnemonics collide (icmp ugt vs fcmp ugt).
type CmpPred int

const (
	NoPred CmpPred = iota

	// icmp predicates.
	IntEQ
	IntNE
	IntUGT
	IntUGE
	IntULT
	IntULE
	IntSGT
	IntSGE
	IntSLT
	IntSLE

	// fcmp predicates.
	FloatOEQ
	FloatOGT
	FloatOGE
	FloatOLT
	FloatOLE
	FloatONE
	FloatORD
	FloatUEQ
	FloatUGT
	FloatUGE
	FloatULT
	FloatULE
	FloatUNE
	FloatUNO
)

var intPredNames = map[CmpPred]string{
	IntEQ:  "eq",
	IntNE:  "ne",
	IntUGT: "ugt",
	IntUGE: "uge",
	IntULT: "ult",
	IntULE: "ule",
	IntSGT: "sgt",
	IntSGE: "sge",
	IntSLT: "slt",
	IntSLE: "sle",
}

var floatPredNames = map[CmpPred]string{
	FloatOEQ: "oeq",
	FloatOGT: "ogt",
	FloatOGE: "oge",
	FloatOLT: "olt",
	FloatOLE: "ole",
	FloatONE: "one",
	FloatORD: "ord",
	FloatUEQ: "ueq",
	FloatUGT: "ugt",
	FloatUGE: "uge",
	FloatULT: "ult",
	FloatULE: "ule",
	FloatUNE: "une",
	FloatUNO: "uno",
}

func (p CmpPred) String() string {
	if s, ok := intPredNames[p]; ok {
		return s
	}
	if s, ok := floatPredNames[p]; ok {
		return s
	}
	return "<invalid predicate>"
}

// IntPred looks up an icmp predicate by mnemonic.
func IntPred(name string) (CmpPred, bool) {
	for p, s := range intPredNames {
		if s == name {
			return p, true
		}
	}
	return NoPred, false
}

// FloatPred looks up an fcmp predicate by mnemonic.
func FloatPred(name string) (CmpPred, bool) {
	for p, s := range floatPredNames {
		if s == name {
			return p, true
		}
	}
	return NoPred, false
}
