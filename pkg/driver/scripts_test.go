package driver

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debundle/pkg/source"
)

const scriptDir = "testdata/scripts"

var expectErrorRegex = regexp2.MustCompile(`^//\s*expect_error:\s*(.*)$`, regexp2.None)

// expectedError returns the message substring named by an
// `// expect_error: ...` line, or "" when the script should succeed.
func expectedError(t *testing.T, content string) string {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		m, err := expectErrorRegex.FindStringMatch(scanner.Text())
		require.NoError(t, err)
		if m != nil {
			return strings.TrimSpace(m.GroupByNumber(1).String())
		}
	}
	require.NoError(t, scanner.Err())
	return ""
}

// TestScripts transforms every testdata script. A script either names the
// error it must fail with or has a sibling .jsx file with the exact output.
func TestScripts(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join(scriptDir, "*.js"))
	require.NoError(t, err)
	require.NotEmpty(t, scripts)

	for _, path := range scripts {
		name := filepath.Base(path)
		t.Run(strings.TrimSuffix(name, ".js"), func(t *testing.T) {
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			src := source.FromBatch(scriptDir, name, string(content))

			res, err := Transform(context.Background(), src, Options{})
			if want := expectedError(t, string(content)); want != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), want)
				return
			}
			require.NoError(t, err)

			golden, err := os.ReadFile(source.OutputName(path, ".jsx"))
			require.NoError(t, err, "missing expected output for %s", name)
			if diff := cmp.Diff(string(golden), res.Output); diff != "" {
				t.Errorf("%s output mismatch (-want +got):\n%s", name, diff)
			}
		})
	}
}
