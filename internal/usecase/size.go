package usecase

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize accepts plain bytes ("40000000") or a number with a unit
// ("2.5gb", "1000mb"). Units are binary: 1gb == 1024^3 bytes.
func ParseSize(raw string) (int64, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	for _, unit := range []string{"kb", "mb", "gb", "tb"} {
		if strings.HasSuffix(s, unit) {
			s = strings.TrimSuffix(s, unit) + unit[:1] + "ib"
			break
		}
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// ReadableSize renders bytes the way the menus show them, e.g. "1.9 GiB".
func ReadableSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
