package interp

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stepwise-dev/stepwise/vm"
)

func run(t *testing.T, src string) (*Execution, *bytes.Buffer) {
	t.Helper()
	prog, err := vm.CompileLiteral(src)
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	var out bytes.Buffer
	ex := NewExecution(prog, &out)
	if err := ex.Run(context.Background()); err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	return ex, &out
}

func wantGlobal(t *testing.T, ex *Execution, name string, want vm.Value) {
	t.Helper()
	got, ok := ex.Globals[name]
	if !ok {
		t.Fatalf("Variable %q not found", name)
	}
	c, comparable := got.Cmp(want)
	if !comparable || c != 0 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestArithmetic(t *testing.T) {
	ex, _ := run(t, `
a = 7 // 2
b = -7 // 2
c = 7 % -3
d = 1 / 2
e = pow(2, 10)
`)
	wantGlobal(t, ex, "a", vm.IntValue(3))
	wantGlobal(t, ex, "b", vm.IntValue(-4))
	wantGlobal(t, ex, "c", vm.IntValue(-2))
	wantGlobal(t, ex, "d", vm.FloatValue(0.5))
	wantGlobal(t, ex, "e", vm.IntValue(1024))
}

func TestAugmentedAssignOrder(t *testing.T) {
	ex, _ := run(t, `
s = 'ab'
s += 'cd'
n = 10
n -= 3
n //= 2
`)
	wantGlobal(t, ex, "s", vm.StrValue("abcd"))
	wantGlobal(t, ex, "n", vm.IntValue(3))
}

func TestWhileLoop(t *testing.T) {
	ex, _ := run(t, `
x = 5
total = 0
while x > 0:
    total += x
    x -= 1
`)
	wantGlobal(t, ex, "x", vm.IntValue(0))
	wantGlobal(t, ex, "total", vm.IntValue(15))
}

func TestForRange(t *testing.T) {
	ex, _ := run(t, `
total = 0
for i in range(1, 4):
    total += i
`)
	wantGlobal(t, ex, "total", vm.IntValue(6))
	wantGlobal(t, ex, "i", vm.IntValue(3))
}

func TestBreakContinue(t *testing.T) {
	ex, _ := run(t, `
total = 0
for i in range(10):
    if i % 2 == 0:
        continue
    if i > 5:
        break
    total += i
`)
	// 1 + 3 + 5
	wantGlobal(t, ex, "total", vm.IntValue(9))
}

func TestFunctionCall(t *testing.T) {
	ex, _ := run(t, `
def add(a, b=10):
    return a + b

x = add(1)
y = add(1, 2)
z = add(1, b=5)
`)
	wantGlobal(t, ex, "x", vm.IntValue(11))
	wantGlobal(t, ex, "y", vm.IntValue(3))
	wantGlobal(t, ex, "z", vm.IntValue(6))
}

func TestRecursion(t *testing.T) {
	ex, _ := run(t, `
def fib(n):
    if n < 2:
        return n
    return fib(n - 1) + fib(n - 2)

x = fib(10)
`)
	wantGlobal(t, ex, "x", vm.IntValue(55))
}

func TestCallerLocalsInvisible(t *testing.T) {
	// g has no binding for n; the n local in its caller f must not leak
	// into g's lookup. CPython raises NameError here.
	prog, err := vm.CompileLiteral(`
def g():
    return n

def f():
    n = 10
    return g()

x = f()
`)
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	ex := NewExecution(prog, &bytes.Buffer{})
	err = ex.Run(context.Background())
	if err == nil {
		t.Fatal("reading a caller's local should fail the run")
	}
	if !strings.Contains(err.Error(), "'n' is not defined") {
		t.Errorf("error = %q, want a not-defined error for n", err)
	}
}

func TestComprehensionReadsEnclosingLocals(t *testing.T) {
	ex, _ := run(t, `
def scale(m):
    return [m * n for n in range(3)]

xs = scale(2)
`)
	xs := ex.Globals["xs"].(*vm.ListValue)
	if xs.String() != "[0, 2, 4]" {
		t.Errorf("xs = %s, want [0, 2, 4]", xs)
	}
}

func TestListAliasing(t *testing.T) {
	ex, _ := run(t, `
a = [1]
b = a
b.append(2)
n = len(a)
`)
	wantGlobal(t, ex, "n", vm.IntValue(2))
	a := ex.Globals["a"].(*vm.ListValue)
	if len(a.Elems) != 2 || a.Elems[1] != vm.IntValue(2) {
		t.Errorf("a = %v, want [1, 2]", a)
	}
}

func TestTupleUnpack(t *testing.T) {
	ex, _ := run(t, `
a, b = 1, 2
a, b = b, a
`)
	wantGlobal(t, ex, "a", vm.IntValue(2))
	wantGlobal(t, ex, "b", vm.IntValue(1))
}

func TestComprehensions(t *testing.T) {
	ex, _ := run(t, `
squares = [n * n for n in range(4)]
evens = [n for n in range(10) if n % 2 == 0]
table = {n: n * n for n in range(3)}
`)
	squares := ex.Globals["squares"].(*vm.ListValue)
	if squares.String() != "[0, 1, 4, 9]" {
		t.Errorf("squares = %s, want [0, 1, 4, 9]", squares)
	}
	evens := ex.Globals["evens"].(*vm.ListValue)
	if evens.String() != "[0, 2, 4, 6, 8]" {
		t.Errorf("evens = %s", evens)
	}
	table := ex.Globals["table"].(*vm.DictValue)
	if table.String() != "{0: 0, 1: 1, 2: 4}" {
		t.Errorf("table = %s", table)
	}
	// Comprehension loop variables never leak into globals.
	if _, ok := ex.Globals["n"]; ok {
		t.Error("comprehension variable n leaked into globals")
	}
}

func TestZipLoop(t *testing.T) {
	ex, _ := run(t, `
pairs = []
for a, b in zip([1, 2, 3], [4, 5]):
    pairs.append(a + b)
`)
	pairs := ex.Globals["pairs"].(*vm.ListValue)
	if pairs.String() != "[5, 7]" {
		t.Errorf("pairs = %s, want [5, 7]", pairs)
	}
}

func TestEnumerate(t *testing.T) {
	ex, _ := run(t, `
out = []
for i, c in enumerate('abc', 1):
    out.append(i)
`)
	out := ex.Globals["out"].(*vm.ListValue)
	if out.String() != "[1, 2, 3]" {
		t.Errorf("out = %s, want [1, 2, 3]", out)
	}
}

func TestMapFilterBuiltins(t *testing.T) {
	ex, _ := run(t, `
doubled = list(map(lambda n: n * 2, [1, 2, 3]))
odds = list(filter(lambda n: n % 2 == 1, range(6)))
total = sum(map(lambda n: n * n, range(4)))
`)
	doubled := ex.Globals["doubled"].(*vm.ListValue)
	if doubled.String() != "[2, 4, 6]" {
		t.Errorf("doubled = %s", doubled)
	}
	odds := ex.Globals["odds"].(*vm.ListValue)
	if odds.String() != "[1, 3, 5]" {
		t.Errorf("odds = %s", odds)
	}
	wantGlobal(t, ex, "total", vm.IntValue(14))
}

func TestBuiltins(t *testing.T) {
	ex, _ := run(t, `
a = sum(range(5))
b = min(3, 1, 2)
c = max([4, 9, 2])
d = sorted([3, 1, 2])
e = len('hello')
f = abs(-4)
g = int('42')
h = str(7)
`)
	wantGlobal(t, ex, "a", vm.IntValue(10))
	wantGlobal(t, ex, "b", vm.IntValue(1))
	wantGlobal(t, ex, "c", vm.IntValue(9))
	d := ex.Globals["d"].(*vm.ListValue)
	if d.String() != "[1, 2, 3]" {
		t.Errorf("d = %s", d)
	}
	wantGlobal(t, ex, "e", vm.IntValue(5))
	wantGlobal(t, ex, "f", vm.IntValue(4))
	wantGlobal(t, ex, "g", vm.IntValue(42))
	wantGlobal(t, ex, "h", vm.StrValue("7"))
}

func TestSetOperations(t *testing.T) {
	ex, _ := run(t, `
s = set([1, 2, 2, 3])
s.add(4)
s.discard(2)
n = len(s)
has = 3 in s
uniq = len(set('aba'))
empty = len(set())
`)
	wantGlobal(t, ex, "n", vm.IntValue(3))
	wantGlobal(t, ex, "has", vm.BoolTrue)
	wantGlobal(t, ex, "uniq", vm.IntValue(2))
	wantGlobal(t, ex, "empty", vm.IntValue(0))
}

func TestShortCircuit(t *testing.T) {
	ex, _ := run(t, `
a = 0 or 'd'
b = 0 and 1
c = 1 and 'x'
d = 'y' or 1
`)
	wantGlobal(t, ex, "a", vm.StrValue("d"))
	wantGlobal(t, ex, "b", vm.IntValue(0))
	wantGlobal(t, ex, "c", vm.StrValue("x"))
	wantGlobal(t, ex, "d", vm.StrValue("y"))
}

func TestConditionalExpr(t *testing.T) {
	ex, _ := run(t, `
x = 'big' if 10 > 5 else 'small'
y = 'big' if 1 > 5 else 'small'
`)
	wantGlobal(t, ex, "x", vm.StrValue("big"))
	wantGlobal(t, ex, "y", vm.StrValue("small"))
}

func TestStringMethods(t *testing.T) {
	ex, _ := run(t, `
a = 'Hello World'.lower()
b = ' pad '.strip()
c = '-'.join(['a', 'b', 'c'])
d = 'a,b,c'.split(',')
`)
	wantGlobal(t, ex, "a", vm.StrValue("hello world"))
	wantGlobal(t, ex, "b", vm.StrValue("pad"))
	wantGlobal(t, ex, "c", vm.StrValue("a-b-c"))
	d := ex.Globals["d"].(*vm.ListValue)
	if d.String() != "['a', 'b', 'c']" {
		t.Errorf("d = %s", d)
	}
}

func TestIndexingAndSlicing(t *testing.T) {
	ex, _ := run(t, `
xs = [10, 20, 30, 40]
a = xs[0]
b = xs[-1]
c = xs[1:3]
s = 'hello'[1:4]
d = {'k': 'v'}
v = d['k']
`)
	wantGlobal(t, ex, "a", vm.IntValue(10))
	wantGlobal(t, ex, "b", vm.IntValue(40))
	c := ex.Globals["c"].(*vm.ListValue)
	if c.String() != "[20, 30]" {
		t.Errorf("c = %s", c)
	}
	wantGlobal(t, ex, "s", vm.StrValue("ell"))
	wantGlobal(t, ex, "v", vm.StrValue("v"))
}

func TestPrintOutput(t *testing.T) {
	_, out := run(t, `
print('hello')
print(1, 2, sep='-')
print('no newline', end='')
`)
	want := "hello\n1-2\nno newline"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRuntimeErrorSurfaces(t *testing.T) {
	prog, err := vm.CompileLiteral("x = 1 / 0\n")
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	ex := NewExecution(prog, &bytes.Buffer{})
	if err := ex.Run(context.Background()); err == nil {
		t.Fatal("division by zero should fail the run")
	}
}

func TestUndefinedName(t *testing.T) {
	prog, err := vm.CompileLiteral("x = missing + 1\n")
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	ex := NewExecution(prog, &bytes.Buffer{})
	if err := ex.Run(context.Background()); err == nil {
		t.Fatal("undefined name should fail the run")
	}
}
