package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveSrc(t *testing.T, src string) (*Program, *Resolution) {
	t.Helper()
	prog := mustParse(t, src)
	return prog, Resolve(prog)
}

func scopeKinds(res *Resolution) []ScopeErrorKind {
	kinds := make([]ScopeErrorKind, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		kinds[i] = d.Kind
	}
	return kinds
}

func TestResolveCleanProgram(t *testing.T) {
	src := `
int g = 1;
fn add(int a, int b) int { return a + b; }
fn main() {
	int x = g;
	x = add(x, 2);
}
`
	_, res := resolveSrc(t, src)
	assert.False(t, res.HasErrors(), "diagnostics: %v", res.Diagnostics)
}

func TestResolveDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []ScopeErrorKind
		names []string
	}{
		{
			name:  "Undeclared Variable",
			input: "fn k() { u = 3; }",
			kinds: []ScopeErrorKind{UndeclaredVariableAccessed},
			names: []string{"u"},
		},
		{
			name:  "Undefined Function",
			input: "fn f() { g(); }",
			kinds: []ScopeErrorKind{UndefinedFunctionCalled},
			names: []string{"g"},
		},
		{
			name:  "Called Identifier Is A Variable",
			input: "fn f() { int g; g(); }",
			kinds: []ScopeErrorKind{UndefinedFunctionCalled},
			names: []string{"g"},
		},
		{
			name:  "Variable Redefinition",
			input: "fn f() { int x; int x; }",
			kinds: []ScopeErrorKind{VariableRedefinition},
			names: []string{"x"},
		},
		{
			name:  "Function Redefinition",
			input: "fn f() { } fn f() { }",
			kinds: []ScopeErrorKind{FunctionPrototypeRedefinition},
			names: []string{"f"},
		},
		{
			name:  "Function Name Clashes With Variable",
			input: "int f; fn f() { }",
			kinds: []ScopeErrorKind{VariableRedefinition},
			names: []string{"f"},
		},
		{
			name:  "Duplicate Parameter",
			input: "fn f(int a, int a) { }",
			kinds: []ScopeErrorKind{VariableRedefinition},
			names: []string{"a"},
		},
		{
			name:  "Arguments Still Analyzed On Bad Call",
			input: "fn f() { g(u); }",
			kinds: []ScopeErrorKind{UndefinedFunctionCalled, UndeclaredVariableAccessed},
			names: []string{"g", "u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := resolveSrc(t, tt.input)
			require.Equal(t, tt.kinds, scopeKinds(res))
			for i, d := range res.Diagnostics {
				assert.Equal(t, tt.names[i], d.Name)
			}
		})
	}
}

func TestResolveShadowingIsSilent(t *testing.T) {
	src := `
int x = 1;
fn f() {
	int x = 2;
	{
		int x = 3;
		x = 4;
	}
}
`
	_, res := resolveSrc(t, src)
	assert.False(t, res.HasErrors(), "diagnostics: %v", res.Diagnostics)
}

// The use in the inner block must bind to the innermost declaration.
func TestResolveBindsInnermost(t *testing.T) {
	prog, res := resolveSrc(t, "int x = 1;\nfn f() { int x = 2; x = 3; }")
	require.False(t, res.HasErrors())

	fn := prog.Decls[1].(*FunctionDecl)
	// Body block: [VarDecl x, ExprStmt(x = 3)]
	assign := fn.Body.Stmts[1].(*ExprStmt).Expr.(*BinaryExpr)
	use := assign.Lhs.(*Ident)

	sym := res.SymbolForIdent(use)
	require.NotNil(t, sym)
	assert.Equal(t, SymbolVariable, sym.Kind)
	assert.Equal(t, TypeInt, sym.VarType)
	assert.Equal(t, "x", sym.Name)
}

func TestResolveForScopeSpansHeaderAndBody(t *testing.T) {
	src := "fn f() { for (int i = 0; i < 3; i = i + 1) { i = i + 1; } }"
	_, res := resolveSrc(t, src)
	assert.False(t, res.HasErrors(), "diagnostics: %v", res.Diagnostics)

	// The induction variable does not leak past the loop.
	src = "fn f() { for (int i = 0; i < 3; i = i + 1) { } i = 0; }"
	_, res = resolveSrc(t, src)
	require.True(t, res.HasErrors())
	assert.Equal(t, UndeclaredVariableAccessed, res.Diagnostics[0].Kind)
}

func TestResolveCallBindsSignature(t *testing.T) {
	prog, res := resolveSrc(t, "fn add(int a, float b) float { return b; }\nfn main() { add(1, 2.0); }")
	require.False(t, res.HasErrors())

	call := prog.Decls[1].(*FunctionDecl).Body.Stmts[0].(*ExprStmt).Expr.(*CallExpr)
	sym := res.SymbolForCall(call)
	require.NotNil(t, sym)
	assert.Equal(t, SymbolFunction, sym.Kind)
	assert.True(t, sym.IsDefined)
	assert.Equal(t, []TypeKind{TypeInt, TypeFloat}, sym.Sig.ParamTypes)
	assert.True(t, sym.Sig.HasRet)
	assert.Equal(t, TypeFloat, sym.Sig.RetType)
}

// Calls through non-identifier callees record no binding but still
// analyze the callee and arguments.
func TestResolveNonIdentCallee(t *testing.T) {
	prog, res := resolveSrc(t, "fn f(int x) { x[0](u); }")
	require.True(t, res.HasErrors())
	kinds := scopeKinds(res)
	assert.Equal(t, []ScopeErrorKind{UndeclaredVariableAccessed}, kinds)
	assert.Equal(t, "u", res.Diagnostics[0].Name)

	call := prog.Decls[0].(*FunctionDecl).Body.Stmts[0].(*ExprStmt).Expr.(*CallExpr)
	assert.Nil(t, res.SymbolForCall(call))
}

// Running the resolver twice over one tree yields identical maps and
// diagnostics.
func TestResolveIdempotent(t *testing.T) {
	prog := mustParse(t, `
int g = 1;
fn f(int a) int { return a + g; }
fn main() { f(u); }
`)
	first := Resolve(prog)
	second := Resolve(prog)

	require.Equal(t, len(first.Diagnostics), len(second.Diagnostics))
	for i := range first.Diagnostics {
		assert.Equal(t, first.Diagnostics[i].Kind, second.Diagnostics[i].Kind)
		assert.Equal(t, first.Diagnostics[i].Name, second.Diagnostics[i].Name)
	}
	assert.Equal(t, len(first.idents), len(second.idents))
	for id, sym := range first.idents {
		other := second.idents[id]
		require.NotNil(t, other)
		assert.Equal(t, sym.Name, other.Name)
		assert.Equal(t, sym.Kind, other.Kind)
		assert.Equal(t, sym.VarType, other.VarType)
	}
	assert.Equal(t, len(first.calls), len(second.calls))
}

func TestSignatureEquality(t *testing.T) {
	intSig := FunctionSignature{ParamTypes: []TypeKind{TypeInt}}
	assert.True(t, intSig.Equals(FunctionSignature{ParamTypes: []TypeKind{TypeInt}}))
	assert.False(t, intSig.Equals(FunctionSignature{ParamTypes: []TypeKind{TypeFloat}}))
	assert.False(t, intSig.Equals(FunctionSignature{ParamTypes: []TypeKind{TypeInt, TypeInt}}))
	assert.False(t, intSig.Equals(FunctionSignature{ParamTypes: []TypeKind{TypeInt}, HasRet: true, RetType: TypeInt}))

	withRet := FunctionSignature{HasRet: true, RetType: TypeBool}
	assert.True(t, withRet.Equals(FunctionSignature{HasRet: true, RetType: TypeBool}))
	assert.False(t, withRet.Equals(FunctionSignature{HasRet: true, RetType: TypeInt}))
}
