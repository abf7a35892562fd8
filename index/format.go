package index

import (
	"strconv"
	"strings"
)

// Format renders o in the report layout: the count, then one line per
// document indented by a tab, then one line per sentence indented by two tabs
// listing the word's positions. Every level is sorted ascending.
//
//	3
//		7
//			0 4 12
//		9
//			2 0
func (o *Occurrences) Format(sb *strings.Builder) {
	sb.WriteString(strconv.FormatInt(o.count, 10))
	for _, docID := range o.Documents() {
		sb.WriteString("\n\t")
		sb.WriteString(strconv.FormatInt(docID, 10))
		for _, sentenceID := range o.Sentences(docID) {
			sb.WriteString("\n\t\t")
			sb.WriteString(strconv.FormatInt(sentenceID, 10))
			for _, pos := range o.Positions(docID, sentenceID) {
				sb.WriteByte(' ')
				sb.WriteString(strconv.FormatInt(pos, 10))
			}
		}
	}
}

func (o *Occurrences) String() string {
	var sb strings.Builder
	o.Format(&sb)
	return sb.String()
}
