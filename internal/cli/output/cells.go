package output

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// None fills a cell that has no value.
const None = "-"

// Mode renders a write mode with the algorithm it uses, e.g. "compressed (zstd)".
func Mode(mode, algorithm string) string {
	if algorithm == "" {
		return mode
	}
	return mode + " (" + algorithm + ")"
}

// YesNo renders a flag.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Size renders a file size in human units, or "missing" when the backing
// file is gone. With exact set the byte count follows in parentheses.
func Size(bytes int64, missing, exact bool) string {
	if missing {
		return "missing"
	}
	s := humanize.Bytes(uint64(bytes))
	if exact {
		s += " (" + humanize.Comma(bytes) + " bytes)"
	}
	return s
}

// Age renders a timestamp relative to now, e.g. "3 minutes ago".
func Age(t *time.Time) string {
	if t == nil || t.IsZero() {
		return None
	}
	return humanize.Time(*t)
}

// Hash renders a witness in lower-case hex. Legacy sha1 witnesses are
// stored upper-case.
func Hash(hash string) string {
	if hash == "" {
		return None
	}
	return strings.ToLower(hash)
}
