package repofiles

import (
	"fmt"
	"strings"
)

// Flatten returns one FileRecord per File entry, depth-first, in listing
// order. Filtered entries contribute nothing and directory grouping is
// discarded. The result is never nil, and Flatten(a, b) equals
// append(Flatten(a), Flatten(b)...).
func Flatten(entries ...TreeEntry) []FileRecord {
	out := make([]FileRecord, 0)
	for _, e := range entries {
		out = appendRecords(out, e)
	}
	return out
}

func appendRecords(out []FileRecord, e TreeEntry) []FileRecord {
	switch e.Kind {
	case KindFile:
		return append(out, FileRecord{Path: e.Path, Content: e.Content})
	case KindDirectory:
		for _, c := range e.Children {
			out = appendRecords(out, c)
		}
	}
	return out
}

// Bundle concatenates records into the single text blob handed to analysis
// services: each file as "<path>:\n <content> \n".
func Bundle(records []FileRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s:\n %s \n", r.Path, r.Content)
	}
	return b.String()
}
