package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Fields are the key/value pairs of an audit line.
type Fields map[string]interface{}

const auditPrefix = "[DRAFT_ACTION]"

// Audit writes one structured line per draft lifecycle action. Successful
// actions go to the info stream, failures to the error stream.
func (l *Logger) Audit(success bool, fields Fields) {
	line := FormatAudit(fields)
	if success {
		l.info.Output(2, line)
		return
	}
	l.error.Output(2, line)
}

// FormatAudit renders fields as "[DRAFT_ACTION] k1=v1 k2=v2" with keys
// sorted. Nil and empty string values are left out.
func FormatAudit(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == nil || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(auditPrefix)
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		if strings.ContainsAny(v, " \t\n\"") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}
