package structure

import (
	"fmt"
	"strconv"
	"strings"
)

// Legacy structure feeds classify entries with string tier labels instead of
// the canonical integer tier. parseLegacyTier translates one label:
//
//	"money"             -> 0
//	"buffer"            -> 1
//	"tier1" .. "tierN"  -> 1 .. N
//	"3" (bare numeral)  -> 3
func parseLegacyTier(label string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	switch s {
	case "":
		return 0, fmt.Errorf("empty tier label")
	case "money":
		return 0, nil
	case "buffer":
		return 1, nil
	}
	if rest, ok := strings.CutPrefix(s, "tier"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("unknown tier label %q", label)
		}
		return n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unknown tier label %q", label)
	}
	return n, nil
}
