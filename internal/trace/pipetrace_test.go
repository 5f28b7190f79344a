package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipeWriter_EmitsExpectedLineFormats(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPipeWriter(&buf)

	require.NoError(t, pw.Tick(1000))
	require.NoError(t, pw.NewInst(42, 0x1000, 0x2000, "ldq r1, 0(r2)", 0, 7))
	require.NoError(t, pw.Move(42, StageDecode, 0x0, 0, 0x0))
	require.NoError(t, pw.Move(42, StageExecute, 0x1, 12, 0xabc, "dcache_miss"))
	require.NoError(t, pw.Delete(42, "committed"))
	require.NoError(t, pw.Flush())

	expected := "@ 1000\n" +
		"+ 42 0x1000 0x2000 ldq r1, 0(r2) [T0, CP#7]\n" +
		"* 42 DA 0x0 0 0x0\n" +
		"* 42 EX 0x1 12 0xabc dcache_miss\n" +
		"- 42 committed\n"
	require.Equal(t, expected, buf.String())
}

func TestPipeWriter_MoveAndDeleteWithoutExtras(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPipeWriter(&buf)

	require.NoError(t, pw.Move(1, StageFetch, 0, 0, 0))
	require.NoError(t, pw.Delete(1))
	require.NoError(t, pw.Flush())

	require.Equal(t, "* 1 IF 0x0 0 0x0\n- 1\n", buf.String())
}
