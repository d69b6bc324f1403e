package logging

import (
	"fmt"
	"sort"
	"strings"

	"warp/internal/logger"
)

// Log prints a structured line: [MODULE] action=... key=value ...
// Once the logger package is initialised the line goes to its handler,
// otherwise to stdout.
func Log(module, action string, fields map[string]string) {
	line := Format(module, action, fields)
	if l := logger.Current(); l != nil {
		l.Info(line)
		return
	}
	fmt.Println(line)
}

func Format(module, action string, fields map[string]string) string {
	if module == "" {
		module = "APP"
	}
	parts := []string{}
	if action != "" {
		parts = append(parts, "action="+action)
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val := strings.ReplaceAll(fields[k], " ", "_")
			parts = append(parts, k+"="+val)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("[%s]", module)
	}
	return fmt.Sprintf("[%s] %s", module, strings.Join(parts, " "))
}
