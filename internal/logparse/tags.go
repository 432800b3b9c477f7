package logparse

import "strings"

const (
	logOpen  = "<log>"
	logClose = "</log>"
)

// NextLogBlock finds the next <log>...</log> span at or after from.
// start is the offset of "<log>" and end the offset just past "</log>".
// ok is false when no opening tag remains or its closing tag is missing.
func NextLogBlock(doc string, from int) (start, end int, ok bool) {
	if from >= len(doc) {
		return 0, 0, false
	}
	i := strings.Index(doc[from:], logOpen)
	if i < 0 {
		return 0, 0, false
	}
	start = from + i
	j := strings.Index(doc[start:], logClose)
	if j < 0 {
		return 0, 0, false
	}
	return start, start + j + len(logClose), true
}

// LogBlockInner strips the surrounding <log> and </log> from a span
// returned by NextLogBlock.
func LogBlockInner(block string) string {
	return block[len(logOpen) : len(block)-len(logClose)]
}

// TagValue returns the text between the first <tag> and the next </tag>.
// Matching is literal: no nesting, attributes or entity decoding.
func TagValue(s, tag string) string {
	open := "<" + tag + ">"
	i := strings.Index(s, open)
	if i < 0 {
		return ""
	}
	i += len(open)
	j := strings.Index(s[i:], "</"+tag+">")
	if j < 0 {
		return ""
	}
	return s[i : i+j]
}
