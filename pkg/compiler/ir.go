package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// IRInstrKind tags a three-address instruction.
type IRInstrKind int

const (
	IRAssign IRInstrKind = iota
	IRUnary
	IRBinary
	IRLabel
	IRGoto
	IRIfGoto
	IRParam
	IRCall
	IRReturn
	IRReturnVoid
	IRIndexLoad
	IRIndexStore
)

// IRInstr is one instruction; unused fields stay empty. Operands are
// names: a temporary %tN, a literal in its surface form (strings and
// chars requoted), or a user-visible variable name. Info holds the
// operator for IRUnary/IRBinary, the label for IRLabel/IRGoto/IRIfGoto,
// and the callee name for IRCall.
type IRInstr struct {
	Kind IRInstrKind
	Dst  string
	Src1 string
	Src2 string
	Info string
}

// IRFunction is a named instruction list; parameter types are not
// carried because the IR is untyped.
type IRFunction struct {
	Name         string
	Params       []string
	Instructions []IRInstr
}

// IRGlobal records a top-level variable. InitValue is the literal's
// surface form and only meaningful when HasInit is set.
type IRGlobal struct {
	Name      string
	Type      TypeKind
	HasInit   bool
	InitValue string
}

// IRProgram is the lowerer's output artifact.
type IRProgram struct {
	Globals   []IRGlobal
	Functions []IRFunction
}

// IRErrorKind is the closed set of lowering diagnostics.
type IRErrorKind int

const (
	UnsupportedExpression IRErrorKind = iota
	UnsupportedStatement
	InvalidAssignmentTarget
)

func (k IRErrorKind) String() string {
	switch k {
	case UnsupportedExpression:
		return "UnsupportedExpression"
	case UnsupportedStatement:
		return "UnsupportedStatement"
	case InvalidAssignmentTarget:
		return "InvalidAssignmentTarget"
	default:
		return "IRGenError"
	}
}

// IRDiagnostic is one accumulated lowering error.
type IRDiagnostic struct {
	Kind    IRErrorKind
	Message string
	Where   Node
}

// lowerer linearizes one program. Temporaries reset per function; the
// label counter spans the program so every label name is unique.
type lowerer struct {
	res   *Resolution
	prog  *IRProgram
	diags []IRDiagnostic

	current      *IRFunction
	tempCounter  int
	labelCounter int
}

// Lower flattens prog into three-address IR. It expects a clean
// resolve/check upstream and reports only forms it cannot lower; where
// it can, it synthesizes a plausible fallback and keeps going so later
// forms still lower.
func Lower(prog *Program, res *Resolution) (*IRProgram, []IRDiagnostic) {
	g := &lowerer{res: res, prog: &IRProgram{}}
	for _, d := range prog.Decls {
		g.topLevelDecl(d)
	}
	return g.prog, g.diags
}

func (g *lowerer) report(kind IRErrorKind, where Node, message string) {
	g.diags = append(g.diags, IRDiagnostic{Kind: kind, Message: message, Where: where})
}

func (g *lowerer) newTemp() string {
	name := "%t" + strconv.Itoa(g.tempCounter)
	g.tempCounter++
	return name
}

func (g *lowerer) newLabel(base string) string {
	name := base + "_" + strconv.Itoa(g.labelCounter)
	g.labelCounter++
	return name
}

func (g *lowerer) emit(instr IRInstr) {
	if g.current != nil {
		g.current.Instructions = append(g.current.Instructions, instr)
	}
}

func (g *lowerer) topLevelDecl(d Decl) {
	switch d := d.(type) {
	case *FunctionDecl:
		g.function(d)
	case *TopVarDecl:
		g.topVar(d)
	default:
		g.report(UnsupportedStatement, d, "unsupported top level declaration")
	}
}

// topVar records a global. Only pure literal initializers carry over;
// anything else reports and leaves the global uninitialized.
func (g *lowerer) topVar(tv *TopVarDecl) {
	s := tv.Decl
	gl := IRGlobal{Name: s.Name, Type: s.Type}
	if s.Init != nil {
		if text, ok := literalText(s.Init); ok {
			gl.HasInit = true
			gl.InitValue = text
		} else {
			g.report(UnsupportedExpression, s.Init, "non-literal global initializer is not supported")
		}
	}
	g.prog.Globals = append(g.prog.Globals, gl)
}

// literalText renders a pure literal in its surface form.
func literalText(e Expr) (string, bool) {
	switch e := e.(type) {
	case *IntLit:
		return e.Raw, true
	case *FloatLit:
		return e.Raw, true
	case *BoolLit:
		if e.Value {
			return "true", true
		}
		return "false", true
	case *StringLit:
		return "\"" + e.Value + "\"", true
	case *CharLit:
		return "'" + e.Value + "'", true
	default:
		return "", false
	}
}

func (g *lowerer) function(fn *FunctionDecl) {
	g.prog.Functions = append(g.prog.Functions, IRFunction{Name: fn.Name})
	f := &g.prog.Functions[len(g.prog.Functions)-1]
	for _, p := range fn.Params {
		f.Params = append(f.Params, p.Name)
	}
	saved := g.current
	g.current = f
	g.tempCounter = 0
	g.block(fn.Body)
	g.current = saved
}

func (g *lowerer) block(b *BlockStmt) {
	for _, s := range b.Stmts {
		g.stmt(s)
	}
}

func (g *lowerer) stmt(s Stmt) {
	switch s := s.(type) {
	case *BlockStmt:
		g.block(s)
	case *IfStmt:
		g.ifStmt(s)
	case *WhileStmt:
		g.whileStmt(s)
	case *ForStmt:
		g.forStmt(s)
	case *ReturnStmt:
		if s.Expr != nil {
			t := g.expr(s.Expr)
			g.emit(IRInstr{Kind: IRReturn, Src1: t})
		} else {
			g.emit(IRInstr{Kind: IRReturnVoid})
		}
	case *ExprStmt:
		g.expr(s.Expr)
	case *VarDeclStmt:
		// No declaration instruction: the IR is untyped, so a local
		// springs into existence at its first assignment.
		if s.Init != nil {
			t := g.expr(s.Init)
			g.emit(IRInstr{Kind: IRAssign, Dst: s.Name, Src1: t})
		}
	default:
		g.report(UnsupportedStatement, s, "unsupported statement")
	}
}

func (g *lowerer) ifStmt(s *IfStmt) {
	cond := g.expr(s.Cond)
	thenLabel := g.newLabel("if_then")
	// Without an else the end label doubles as the else target.
	var elseLabel, endLabel string
	if s.Else != nil {
		elseLabel = g.newLabel("if_else")
		endLabel = g.newLabel("if_end")
	} else {
		elseLabel = g.newLabel("if_end")
		endLabel = elseLabel
	}

	g.emit(IRInstr{Kind: IRIfGoto, Src1: cond, Info: thenLabel})
	g.emit(IRInstr{Kind: IRGoto, Info: elseLabel})
	g.emit(IRInstr{Kind: IRLabel, Info: thenLabel})
	g.stmt(s.Then)
	if s.Else != nil {
		g.emit(IRInstr{Kind: IRGoto, Info: endLabel})
		g.emit(IRInstr{Kind: IRLabel, Info: elseLabel})
		g.stmt(s.Else)
		g.emit(IRInstr{Kind: IRLabel, Info: endLabel})
	} else {
		g.emit(IRInstr{Kind: IRLabel, Info: elseLabel})
	}
}

func (g *lowerer) whileStmt(s *WhileStmt) {
	condLabel := g.newLabel("while_cond")
	bodyLabel := g.newLabel("while_body")
	endLabel := g.newLabel("while_end")

	g.emit(IRInstr{Kind: IRLabel, Info: condLabel})
	cond := g.expr(s.Cond)
	g.emit(IRInstr{Kind: IRIfGoto, Src1: cond, Info: bodyLabel})
	g.emit(IRInstr{Kind: IRGoto, Info: endLabel})
	g.emit(IRInstr{Kind: IRLabel, Info: bodyLabel})
	g.stmt(s.Body)
	g.emit(IRInstr{Kind: IRGoto, Info: condLabel})
	g.emit(IRInstr{Kind: IRLabel, Info: endLabel})
}

func (g *lowerer) forStmt(s *ForStmt) {
	if s.Init != nil {
		g.stmt(s.Init)
	}
	condLabel := g.newLabel("for_cond")
	bodyLabel := g.newLabel("for_body")
	endLabel := g.newLabel("for_end")

	g.emit(IRInstr{Kind: IRLabel, Info: condLabel})
	if s.Cond != nil {
		cond := g.expr(s.Cond)
		g.emit(IRInstr{Kind: IRIfGoto, Src1: cond, Info: bodyLabel})
		g.emit(IRInstr{Kind: IRGoto, Info: endLabel})
	} else {
		g.emit(IRInstr{Kind: IRGoto, Info: bodyLabel})
	}
	g.emit(IRInstr{Kind: IRLabel, Info: bodyLabel})
	g.stmt(s.Body)
	if s.Incr != nil {
		g.expr(s.Incr) // value dropped
	}
	g.emit(IRInstr{Kind: IRGoto, Info: condLabel})
	g.emit(IRInstr{Kind: IRLabel, Info: endLabel})
}

// expr lowers an expression and returns the operand name holding its
// value; "" when the expression produces none.
func (g *lowerer) expr(e Expr) string {
	if e == nil {
		g.report(UnsupportedExpression, nil, "empty expression")
		return ""
	}
	if text, ok := literalText(e); ok {
		t := g.newTemp()
		g.emit(IRInstr{Kind: IRAssign, Dst: t, Src1: text})
		return t
	}
	switch e := e.(type) {
	case *Ident:
		// A bare name is already an operand; no copy.
		return e.Name
	case *UnaryExpr:
		return g.unary(e)
	case *BinaryExpr:
		return g.binary(e)
	case *CallExpr:
		return g.call(e)
	case *IndexExpr:
		return g.index(e)
	default:
		g.report(UnsupportedExpression, e, "unsupported expression")
		return ""
	}
}

func (g *lowerer) unary(e *UnaryExpr) string {
	rhs := g.expr(e.Rhs)
	dst := g.newTemp()
	g.emit(IRInstr{Kind: IRUnary, Dst: dst, Src1: rhs, Info: e.Op.String()})
	return dst
}

func (g *lowerer) binary(e *BinaryExpr) string {
	if e.Op == OpAssign {
		switch lhs := e.Lhs.(type) {
		case *Ident:
			rhs := g.expr(e.Rhs)
			g.emit(IRInstr{Kind: IRAssign, Dst: lhs.Name, Src1: rhs})
			return lhs.Name
		case *IndexExpr:
			base := g.expr(lhs.Base)
			index := g.expr(lhs.Index)
			rhs := g.expr(e.Rhs)
			g.emit(IRInstr{Kind: IRIndexStore, Dst: base, Src1: index, Src2: rhs})
			return rhs
		default:
			g.report(InvalidAssignmentTarget, e.Lhs, "invalid assignment target")
			// Still lower the RHS so later forms are not destabilized.
			return g.expr(e.Rhs)
		}
	}
	left := g.expr(e.Lhs)
	right := g.expr(e.Rhs)
	dst := g.newTemp()
	g.emit(IRInstr{Kind: IRBinary, Dst: dst, Src1: left, Src2: right, Info: e.Op.String()})
	return dst
}

// call emits one param per argument then the call itself. The call gets
// a destination temporary only when the resolver saw a declared return
// type for the callee.
func (g *lowerer) call(e *CallExpr) string {
	for _, arg := range e.Args {
		t := g.expr(arg)
		g.emit(IRInstr{Kind: IRParam, Src1: t})
	}

	funcName := "<call>"
	if id, ok := e.Callee.(*Ident); ok {
		funcName = id.Name
	}

	hasReturn := false
	if sym := g.res.SymbolForCall(e); sym != nil && sym.Sig.HasRet {
		hasReturn = true
	}

	instr := IRInstr{Kind: IRCall, Info: funcName, Src1: strconv.Itoa(len(e.Args))}
	if hasReturn {
		dst := g.newTemp()
		instr.Dst = dst
		g.emit(instr)
		return dst
	}
	g.emit(instr)
	return ""
}

func (g *lowerer) index(e *IndexExpr) string {
	base := g.expr(e.Base)
	index := g.expr(e.Index)
	dst := g.newTemp()
	g.emit(IRInstr{Kind: IRIndexLoad, Dst: dst, Src1: base, Src2: index})
	return dst
}

//  Textual form

func (ins IRInstr) String() string {
	switch ins.Kind {
	case IRLabel:
		return ins.Info + ":"
	case IRGoto:
		return "goto " + ins.Info
	case IRIfGoto:
		return "if " + ins.Src1 + " goto " + ins.Info
	case IRAssign:
		return ins.Dst + " = " + ins.Src1
	case IRUnary:
		return ins.Dst + " = " + ins.Info + ins.Src1
	case IRBinary:
		return ins.Dst + " = " + ins.Src1 + " " + ins.Info + " " + ins.Src2
	case IRParam:
		return "param " + ins.Src1
	case IRCall:
		if ins.Dst != "" {
			return ins.Dst + " = call " + ins.Info + ", " + ins.Src1
		}
		return "call " + ins.Info + ", " + ins.Src1
	case IRReturn:
		return "return " + ins.Src1
	case IRReturnVoid:
		return "return"
	case IRIndexLoad:
		return ins.Dst + " = " + ins.Src1 + "[" + ins.Src2 + "]"
	case IRIndexStore:
		return ins.Dst + "[" + ins.Src1 + "] = " + ins.Src2
	default:
		return "?"
	}
}

// String renders the whole program: globals first, then each function
// with two-space-indented instructions closed by "end".
func (p *IRProgram) String() string {
	var b strings.Builder
	for _, g := range p.Globals {
		fmt.Fprintf(&b, "global %s %s", g.Type, g.Name)
		if g.HasInit {
			b.WriteString(" = " + g.InitValue)
		}
		b.WriteByte('\n')
	}
	if len(p.Globals) > 0 {
		b.WriteByte('\n')
	}
	for _, fn := range p.Functions {
		fmt.Fprintf(&b, "function %s(%s)\n", fn.Name, strings.Join(fn.Params, ", "))
		for _, ins := range fn.Instructions {
			b.WriteString("  ")
			b.WriteString(ins.String())
			b.WriteByte('\n')
		}
		b.WriteString("end\n\n")
	}
	return b.String()
}
