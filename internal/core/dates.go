package core

import "time"

// dateLayout is the canonical calendar-date form used for all stamps and due
// dates. Lexicographic comparison of two dates in this form matches
// chronological order, which the scheduler relies on.
const dateLayout = "2006-01-02"

// dateStamp formats t as a canonical calendar date.
func dateStamp(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// validDate reports whether s is a parseable canonical calendar date.
func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
