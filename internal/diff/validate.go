package diff

import "fmt"

// validate checks the Script invariants against the texts it was computed from and returns an error on the first violation.
func (s Script) validate(original, proposed string) error {
	for i, e := range s {
		if e.Text == "" {
			return fmt.Errorf("edit[%d]: empty %s text", i, e.Op)
		}
		switch e.Op {
		case OpEqual, OpInsert, OpDelete:
		default:
			return fmt.Errorf("edit[%d]: op %s is not allowed in a script", i, e.Op)
		}
		if i == 0 {
			continue
		}
		prev := s[i-1]
		if prev.Op == OpEqual && e.Op == OpEqual {
			return fmt.Errorf("edit[%d]: adjacent equal edits", i)
		}
		if prev.Op == e.Op {
			return fmt.Errorf("edit[%d]: adjacent %s edits", i, e.Op)
		}
		if prev.Op == OpInsert && e.Op == OpDelete {
			return fmt.Errorf("edit[%d]: delete follows insert", i)
		}
	}

	if s.Original() != original {
		return fmt.Errorf("script: equal+delete do not reconstruct original")
	}
	if s.Proposed() != proposed {
		return fmt.Errorf("script: equal+insert do not reconstruct proposed")
	}
	return nil
}
