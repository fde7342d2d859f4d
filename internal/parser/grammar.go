package parser

// Participle grammar for the textual IR. The grammar mirrors the LLVM
// assembly subset the optimizer operates on: module globals, function
// declarations and definitions, labeled basic blocks, and the closed
// instruction set. Vector and aggregate opcodes exist in the opcode
// enumeration but have no textual form.

import (
	"github.com/alecthomas/participle/v2/lexer"
)

type File struct {
	Target *Target     `@@?`
	Decls  []*TopLevel `@@*`
}

type Target struct {
	Layout string `"target" "datalayout" "=" @String`
}

type TopLevel struct {
	Global  *GlobalDef `  @@`
	Declare *Declare   `| @@`
	Define  *Define    `| @@`
}

type GlobalDef struct {
	Pos  lexer.Position
	Name string   `@GlobalIdent "="`
	Type *TypeRef `"global" @@`
}

type TypeRef struct {
	Pos  lexer.Position
	Name string `@Ident`
}

type Declare struct {
	Pos    lexer.Position
	Ret    *TypeRef   `"declare" @@`
	Name   string     `@GlobalIdent`
	Params []*TypeRef `"(" [ @@ ( "," @@ )* ] ")"`
}

type Define struct {
	Pos    lexer.Position
	Ret    *TypeRef    `"define" @@`
	Name   string      `@GlobalIdent`
	Params []*ParamRef `"(" [ @@ ( "," @@ )* ] ")"`
	Blocks []*BlockDef `"{" @@+ "}"`
}

type ParamRef struct {
	Pos  lexer.Position
	Type *TypeRef `@@`
	Name string   `@LocalIdent`
}

type BlockDef struct {
	Pos   lexer.Position
	Label string      `@Label`
	Insts []*InstLine `@@+`
}

type InstLine struct {
	Pos    lexer.Position
	Result string `[ @LocalIdent "=" ]`
	Rhs    *Rhs   `@@`
}

// Rhs is the instruction body after the optional "%name =" prefix. Each
// alternative starts with a distinct mnemonic.
type Rhs struct {
	Bin     *BinInst     `  @@`
	Cmp     *CmpInst     `| @@`
	Cast    *CastInst    `| @@`
	Neg     *NegInst     `| @@`
	Load    *LoadInst    `| @@`
	Store   *StoreInst   `| @@`
	Alloca  *AllocaInst  `| @@`
	Gep     *GepInst     `| @@`
	Call    *CallInst    `| @@`
	Select  *SelectInst  `| @@`
	Phi     *PhiInst     `| @@`
	Fence   *FenceInst   `| @@`
	Br      *BrInst      `| @@`
	Ret     *RetInst     `| @@`
	Invoke  *InvokeInst  `| @@`
	Resume  *ResumeInst  `| @@`
	Unreach *UnreachInst `| @@`
}

type BinInst struct {
	Op string `@("add"|"fadd"|"sub"|"fsub"|"mul"|"fmul"|"udiv"|"sdiv"|"fdiv"|"urem"|"srem"|"frem"|"shl"|"lshr"|"ashr"|"and"|"or"|"xor")`
	Type *TypeRef `@@`
	X    *Operand `@@ ","`
	Y    *Operand `@@`
}

type CmpInst struct {
	Op   string   `@("icmp"|"fcmp")`
	Pred string   `@Ident`
	Type *TypeRef `@@`
	X    *Operand `@@ ","`
	Y    *Operand `@@`
}

type CastInst struct {
	Op string `@("trunc"|"zext"|"sext"|"fptoui"|"fptosi"|"uitofp"|"sitofp"|"fptrunc"|"fpext"|"ptrtoint"|"inttoptr"|"bitcast"|"addrspacecast")`
	From *TypeRef `@@`
	X    *Operand `@@`
	To   *TypeRef `"to" @@`
}

type NegInst struct {
	Type *TypeRef `"fneg" @@`
	X    *Operand `@@`
}

type LoadInst struct {
	Volatile bool     `"load" [ @"volatile" ]`
	Type     *TypeRef `@@ ","`
	AddrType *TypeRef `@@`
	Addr     *Operand `@@`
}

type StoreInst struct {
	Volatile bool     `"store" [ @"volatile" ]`
	Type     *TypeRef `@@`
	Val      *Operand `@@ ","`
	AddrType *TypeRef `@@`
	Addr     *Operand `@@`
}

type AllocaInst struct {
	Type *TypeRef `"alloca" @@`
}

type GepInst struct {
	Elem    *TypeRef   `"getelementptr" @@ ","`
	Base    *TypedOp   `@@`
	Indices []*TypedOp `( "," @@ )*`
}

type CallInst struct {
	Ret    *TypeRef   `"call" @@`
	Callee string     `@GlobalIdent`
	Args   []*TypedOp `"(" [ @@ ( "," @@ )* ] ")"`
}

type SelectInst struct {
	Cond    *TypedOp `"select" @@ ","`
	IfTrue  *TypedOp `@@ ","`
	IfFalse *TypedOp `@@`
}

type PhiInst struct {
	Type     *TypeRef    `"phi" @@`
	Incoming []*Incoming `@@ ( "," @@ )*`
}

type Incoming struct {
	Val   *Operand `"[" @@ ","`
	Block string   `@LocalIdent "]"`
}

// FenceInst requires an explicit ordering token so the grammar never
// mistakes the next line's mnemonic for the ordering.
type FenceInst struct {
	Ordering string `"fence" @Ident`
}

type BrInst struct {
	Dest *TypedOp `"br" @@`
	Then *TypedOp `[ "," @@`
	Else *TypedOp `"," @@ ]`
}

type RetInst struct {
	Type *TypeRef `"ret" @@`
	Val  *Operand `[ @@ ]`
}

type InvokeInst struct {
	Ret    *TypeRef   `"invoke" @@`
	Callee string     `@GlobalIdent`
	Args   []*TypedOp `"(" [ @@ ( "," @@ )* ] ")"`
	Normal string     `"to" "label" @LocalIdent`
	Unwind string     `"unwind" "label" @LocalIdent`
}

type ResumeInst struct {
	Val *TypedOp `"resume" @@`
}

type UnreachInst struct {
	Tok string `@"unreachable"`
}

type TypedOp struct {
	Pos  lexer.Position
	Type *TypeRef `@@`
	Val  *Operand `@@`
}

type Operand struct {
	Pos    lexer.Position
	Local  *string `  @LocalIdent`
	Global *string `| @GlobalIdent`
	Float  *string `| @Float`
	Int    *string `| @Int`
	True   bool    `| @"true"`
	False  bool    `| @"false"`
	Null   bool    `| @"null"`
	Undef  bool    `| @"undef"`
}
