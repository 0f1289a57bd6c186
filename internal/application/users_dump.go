package application

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"telegram-usersettings/internal/domain/model"
)

// maxMessageBytes is the largest dump sent inline; longer ones go as a file.
const maxMessageBytes = 4000

// FormatUsersDump renders every user's settings, users and keys sorted.
// Users without any value are skipped; an empty result means no data.
func FormatUsersDump(all map[int64]model.UserSettings) string {
	ids := make([]int64, 0, len(all))
	for id, s := range all {
		if len(s) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sb strings.Builder
	for _, id := range ids {
		s := all[id]
		fmt.Fprintf(&sb, "\n<b>%d:</b>\n", id)
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := "None"
			if s.IsSet(k) {
				v = html.EscapeString(formatValue(s[k]))
			}
			fmt.Fprintf(&sb, "%s: <code>%s</code>\n", k, v)
		}
	}
	return sb.String()
}
