package diff

import "strings"

// Op is an operation from original text to proposed text.
type Op int

// Operations from original text to proposed text.
const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Edit is one fragment of a Script.
type Edit struct {
	Op   Op
	Text string
}

// Script is an ordered edit script from an original text to a proposed text.
type Script []Edit

// Original returns the original text described by s (equal + delete fragments).
func (s Script) Original() string {
	var b strings.Builder
	for _, e := range s {
		if e.Op != OpInsert {
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

// Proposed returns the proposed text described by s (equal + insert fragments).
func (s Script) Proposed() string {
	var b strings.Builder
	for _, e := range s {
		if e.Op != OpDelete {
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

// IsIdentity reports whether s contains no inserts or deletes.
func (s Script) IsIdentity() bool {
	for _, e := range s {
		if e.Op != OpEqual {
			return false
		}
	}
	return true
}

// defaultEOL is the EOL ('\n').
//
// This constant exists because the design may change to allow configurable EOLs (maybe Windows needs "\r\n"), and this provides a nice hook to find callsites.
const defaultEOL = "\n"
