package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
)

func mustParse(t *testing.T, src string) *parser.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	return prog
}

// TestTonTimerBehaviour matches spec.md §8 scenario 1.
func TestTonTimerBehaviour(t *testing.T) {
	src := `
VAR
	T1 : TON;
	Start : BOOL := FALSE;
END_VAR
T1(IN := Start, PT := T#100ms);
`
	prog := mustParse(t, src)
	var nowMS float64
	rt := New(func() float64 { return nowMS })
	require.NoError(t, rt.Load(prog))

	for i := 0; i < 20; i++ {
		nowMS += 10
		rt.Cycle()
		q, err := rt.ReadField("T1", "Q")
		require.NoError(t, err)
		require.False(t, q.(bool))
		et, err := rt.ReadField("T1", "ET")
		require.NoError(t, err)
		require.Equal(t, float64(0), et)
	}

	require.NoError(t, rt.WriteVariable("Start", true))

	firstTrueCycle := -1
	for i := 1; i <= 15; i++ {
		nowMS += 10
		rt.Cycle()
		q, err := rt.ReadField("T1", "Q")
		require.NoError(t, err)
		if q.(bool) && firstTrueCycle == -1 {
			firstTrueCycle = i
		}
	}
	require.GreaterOrEqual(t, firstTrueCycle, 10)
	require.LessOrEqual(t, firstTrueCycle, 11)
}

func TestArithmeticAndCoercion(t *testing.T) {
	src := `
VAR
	A : INT := 7;
	B : INT := 2;
	Q : INT;
	R : INT;
	F : REAL;
END_VAR
Q := A DIV B;
R := A MOD B;
F := A / B;
`
	prog := mustParse(t, src)
	rt := New(nil)
	require.NoError(t, rt.Load(prog))
	rt.Cycle()

	q, _ := rt.ReadVariable("Q")
	require.Equal(t, int64(3), q)
	r, _ := rt.ReadVariable("R")
	require.Equal(t, int64(1), r)
	f, _ := rt.ReadVariable("F")
	require.Equal(t, float64(3.5), f)
}

func TestIfElsifElse(t *testing.T) {
	src := `
VAR
	X : INT := 5;
	Label : STRING;
END_VAR
IF X > 10 THEN
	Label := 'big';
ELSIF X > 3 THEN
	Label := 'mid';
ELSE
	Label := 'small';
END_IF;
`
	prog := mustParse(t, src)
	rt := New(nil)
	require.NoError(t, rt.Load(prog))
	rt.Cycle()
	v, _ := rt.ReadVariable("Label")
	require.Equal(t, "mid", v)
}

func TestForLoopAccumulates(t *testing.T) {
	src := `
VAR
	I : INT;
	Sum : INT := 0;
END_VAR
FOR I := 1 TO 5 DO
	Sum := Sum + I;
END_FOR;
`
	prog := mustParse(t, src)
	rt := New(nil)
	require.NoError(t, rt.Load(prog))
	rt.Cycle()
	sum, _ := rt.ReadVariable("Sum")
	require.Equal(t, int64(15), sum)
}

func TestArrayAssignment(t *testing.T) {
	src := `
VAR
	Arr : ARRAY[0..3] OF INT;
	I : INT := 2;
END_VAR
Arr[I] := 42;
`
	prog := mustParse(t, src)
	rt := New(nil)
	require.NoError(t, rt.Load(prog))
	rt.Cycle()
	cell, ok := rt.Cell("Arr")
	require.True(t, ok)
	elems := cell.Value.([]*Cell)
	require.Equal(t, int64(42), elems[2].Value)
}

func TestRTrigDetectsRisingEdgeOnce(t *testing.T) {
	src := `
VAR
	E1 : R_TRIG;
	Clk : BOOL := FALSE;
END_VAR
E1(CLK := Clk);
`
	prog := mustParse(t, src)
	rt := New(nil)
	require.NoError(t, rt.Load(prog))
	rt.Cycle()
	q, _ := rt.ReadField("E1", "Q")
	require.False(t, q.(bool))

	require.NoError(t, rt.WriteVariable("Clk", true))
	rt.Cycle()
	q, _ = rt.ReadField("E1", "Q")
	require.True(t, q.(bool))

	rt.Cycle()
	q, _ = rt.ReadField("E1", "Q")
	require.False(t, q.(bool))
}

func TestWhileGuardAbortsInfiniteLoop(t *testing.T) {
	src := `
VAR
	X : BOOL := TRUE;
END_VAR
WHILE X DO
	X := TRUE;
END_WHILE;
`
	prog := mustParse(t, src)
	rt := New(nil)
	require.NoError(t, rt.Load(prog))
	diags := rt.Cycle()
	require.NotEmpty(t, diags)
	require.Contains(t, diags[0].Message, "infinite loop")
}
