package libcheck

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileContentsMatchValidator compares a file's trimmed contents with an
// expected value.
type FileContentsMatchValidator struct {
	Path            string
	ExpectedContent string
}

func (v *FileContentsMatchValidator) Name() string {
	return fmt.Sprintf("file '%s' content matches", v.Path)
}

func (v *FileContentsMatchValidator) Validate(ctx context.Context) (TestCase, error) {
	if _, err := os.Stat(v.Path); err != nil {
		name := fmt.Sprintf("file %s exists", v.Path)
		return Failing(name, fmt.Sprintf("file '%s' does not exist", v.Path)), nil
	}

	content, err := os.ReadFile(v.Path)
	if err != nil {
		return TestCase{}, fmt.Errorf("failed to read '%s': %v", v.Path, err)
	}

	got := strings.TrimSpace(string(content))
	want := strings.TrimSpace(v.ExpectedContent)
	if got == want {
		return Passing(v.Name(), fmt.Sprintf("file '%s' content matches expected", v.Path)), nil
	}
	return Failing(v.Name(), fmt.Sprintf("content mismatch:\n  expected: '%s...'\n  got: '%s...'",
		preview(want, 50), preview(got, 50))), nil
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
