package content

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Revise returns a diff-match-patch patch text turning before into after.
// Both sides are normalized first so line-ending or trailing-whitespace
// churn from the admin editor does not produce a revision. An empty result
// means the edit changed nothing.
func Revise(before, after string) string {
	b, a := normalize(before), normalize(after)
	if b == a {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(b, a, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.PatchToText(dmp.PatchMake(b, diffs))
}

// Apply replays a patch produced by Revise onto base. ok is false when any
// hunk failed to apply.
func Apply(base, patchText string) (string, bool, error) {
	if patchText == "" {
		return base, true, nil
	}
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return "", false, err
	}
	out, applied := dmp.PatchApply(patches, normalize(base))
	for _, ok := range applied {
		if !ok {
			return out, false, nil
		}
	}
	return out, true, nil
}

// normalize trims trailing whitespace from each line and converts CRLF to LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
