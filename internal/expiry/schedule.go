package expiry

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the sweep times of a cron expression.
type Schedule interface {
	Next(after time.Time) time.Time
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a 5-field cron expression or a descriptor such as
// "@hourly". Times are evaluated in UTC.
func ParseSchedule(expression string) (Schedule, error) {
	sched, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse cron: %w", err)
	}
	return &schedule{sched: sched}, nil
}

type schedule struct {
	sched cron.Schedule
}

func (s *schedule) Next(after time.Time) time.Time {
	return s.sched.Next(after.UTC())
}
