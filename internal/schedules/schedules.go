package schedules

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/teetime-sniper/internal/booking"
)

// weekday names accepted in task files and stored rows.
var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if len(k) > 3 {
		k = k[:3]
	}
	if d, ok := weekdayNames[k]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := ParseWeekday(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func joinWeekdays(ds []time.Weekday) string {
	names := make([]string, 0, len(ds))
	for _, d := range ds {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

func validateAll(ss []booking.Schedule) error {
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate schedule %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
