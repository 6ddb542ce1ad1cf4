package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveVersion_ReleaseBuild(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.2.0", "abcdef1", map[string]string{"vcs.revision": "0123456789"})
	require.Equal(t, "1.2.0", got)
}

func TestResolveVersion_DevelopmentBuild(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.2.0", "", map[string]string{"vcs.revision": "0123456789abcdef", "vcs.modified": "false"})
	require.Equal(t, "1.2.0-0123456", got)
}

func TestResolveVersion_DirtyWorkingTree(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.2.0", "", map[string]string{"vcs.revision": "0123456789abcdef", "vcs.modified": "true"})
	require.Equal(t, "1.2.0-0123456-dirty", got)
}

func TestResolveVersion_ShortRevision(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.2.0", "", map[string]string{"vcs.revision": "abc"})
	require.Equal(t, "1.2.0-abc", got)
}

func TestResolveVersion_NoVCSInfo(t *testing.T) {
	t.Parallel()
	require.Equal(t, "1.2.0", resolveVersion("1.2.0", "", nil))
}

func TestResolveVersion_EmptyBaseFallsBackToZero(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.0.0", resolveVersion("", "", nil))
}

func TestBuildSettings(t *testing.T) {
	t.Parallel()
	settings := buildSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}, {Key: "GOOS", Value: "linux"}})
	require.Equal(t, map[string]string{"vcs.revision": "abc", "GOOS": "linux"}, settings)
}

func TestResolveStartsWithVersion(t *testing.T) {
	t.Parallel()
	require.True(t, strings.HasPrefix(Resolve(), Version))
}
