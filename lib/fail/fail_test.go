package fail

import (
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func catchExit(t *testing.T) *int {
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })
	return &code
}

func TestExternal(t *testing.T) {
	code := catchExit(t)
	log, hook := test.NewNullLogger()

	External(log, "file %s is missing", "snap.0")

	require.Equal(t, 1, *code)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	require.True(t, strings.HasSuffix(hook.LastEntry().Message,
		"file snap.0 is missing"))
	require.NotContains(t, hook.LastEntry().Data, "stack")
}

func TestInternal(t *testing.T) {
	code := catchExit(t)
	log, hook := test.NewNullLogger()

	Internal(log, "impossible width %d", 3)

	require.Equal(t, 1, *code)
	require.True(t, strings.HasSuffix(hook.LastEntry().Message,
		"impossible width 3"))
	stack, ok := hook.LastEntry().Data["stack"].(string)
	require.True(t, ok)
	require.Contains(t, stack, "TestInternal")
}
