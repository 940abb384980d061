package change

import "fmt"

// Validate checks that changes are well formed against original: ids are unique and positive, each range lies inside original and matches OriginalText, Type agrees
// with the texts, and the list is sorted ascending by From without overlaps. Two Changes may touch, but may not start at the same offset.
func Validate(original string, changes []Change) error {
	seen := make(map[int]bool, len(changes))
	for i, c := range changes {
		if c.ID <= 0 {
			return fmt.Errorf("change[%d]: invalid id %d", i, c.ID)
		}
		if seen[c.ID] {
			return fmt.Errorf("change[%d]: duplicate id %d", i, c.ID)
		}
		seen[c.ID] = true

		if c.From < 0 || c.To < c.From || c.To > len(original) {
			return fmt.Errorf("change %d: range [%d,%d) outside content of length %d", c.ID, c.From, c.To, len(original))
		}
		if original[c.From:c.To] != c.OriginalText {
			return fmt.Errorf("change %d: OriginalText does not match original[%d:%d]", c.ID, c.From, c.To)
		}

		switch c.Type {
		case Addition:
			if c.From != c.To || c.NewText == "" {
				return fmt.Errorf("change %d: addition must be zero-width with NewText", c.ID)
			}
		case Deletion:
			if c.From == c.To || c.NewText != "" {
				return fmt.Errorf("change %d: deletion must remove text and insert none", c.ID)
			}
		case Replacement:
			if c.From == c.To || c.NewText == "" {
				return fmt.Errorf("change %d: replacement must remove and insert text", c.ID)
			}
		default:
			return fmt.Errorf("change %d: unknown type %q", c.ID, c.Type)
		}

		switch c.Status {
		case Pending, Accepted, Rejected:
		default:
			return fmt.Errorf("change %d: unknown status %q", c.ID, c.Status)
		}

		if i == 0 {
			continue
		}
		prev := changes[i-1]
		if c.From <= prev.From {
			return fmt.Errorf("change %d: not sorted after change %d", c.ID, prev.ID)
		}
		if c.From < prev.To {
			return fmt.Errorf("change %d: overlaps change %d", c.ID, prev.ID)
		}
	}
	return nil
}
