package validity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
)

var (
	ErrModeInvalid     = errors.New("validity mode invalid")
	ErrDateInvalid     = errors.New("validity date invalid")
	ErrTimeInvalid     = errors.New("validity start time invalid")
	ErrDurationInvalid = errors.New("validity duration invalid")
	ErrDaysInvalid     = errors.New("validity days invalid")
)

// Mode 有效期模式描述
// 说明：三种模式互斥；Kind 决定哪些字段生效。
type Mode struct {
	Kind            string // by_days / single_day / single_hour
	Days            int    // by_days：自创建起的天数
	Date            string // single_day/single_hour：日期（YYYY-MM-DD）
	StartTime       string // single_hour：起始时刻（HH:MM）
	DurationMinutes int    // single_hour：持续分钟数
}

// ResolveWindow 将模式与创建时刻解析为具体窗口。
// 场馆本地时间按固定 UTC 偏移折算（offsetMinutes），不做夏令时调整；
// 结果在批次创建时落库，之后偏移量变更不影响已有令牌。
func ResolveWindow(mode Mode, createdAt time.Time, offsetMinutes int) (validFrom, expiresAt *time.Time, err error) {
	switch strings.TrimSpace(mode.Kind) {
	case constants.BatchModeByDays:
		return resolveByDays(mode, createdAt)
	case constants.BatchModeSingleDay:
		return resolveSingleDay(mode, createdAt, offsetMinutes)
	case constants.BatchModeSingleHour:
		return resolveSingleHour(mode, offsetMinutes)
	default:
		return nil, nil, ErrModeInvalid
	}
}

func resolveByDays(mode Mode, createdAt time.Time) (*time.Time, *time.Time, error) {
	if mode.Days <= 0 {
		return nil, nil, ErrDaysInvalid
	}
	// 令牌立即可用，整窗口自创建时刻起算
	end := createdAt.Add(time.Duration(mode.Days) * 24 * time.Hour).UTC()
	return nil, &end, nil
}

func resolveSingleDay(mode Mode, createdAt time.Time, offsetMinutes int) (*time.Time, *time.Time, error) {
	year, month, day, err := parseDate(mode.Date)
	if err != nil {
		return nil, nil, err
	}
	zone := venueZone(offsetMinutes)
	start := time.Date(year, month, day, 0, 0, 0, 0, zone).UTC()
	end := time.Date(year, month, day, 23, 59, 59, 999*int(time.Millisecond), zone).UTC()

	var validFrom *time.Time
	if createdAt.Before(start) {
		validFrom = &start
	}
	return validFrom, &end, nil
}

func resolveSingleHour(mode Mode, offsetMinutes int) (*time.Time, *time.Time, error) {
	year, month, day, err := parseDate(mode.Date)
	if err != nil {
		return nil, nil, err
	}
	hour, minute, err := parseClock(mode.StartTime)
	if err != nil {
		return nil, nil, err
	}
	if mode.DurationMinutes <= 0 {
		return nil, nil, ErrDurationInvalid
	}
	zone := venueZone(offsetMinutes)
	start := time.Date(year, month, day, hour, minute, 0, 0, zone).UTC()
	end := start.Add(time.Duration(mode.DurationMinutes) * time.Minute)
	return &start, &end, nil
}

func parseDate(raw string) (int, time.Month, int, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, 0, ErrDateInvalid
	}
	year, month, day := parsed.Date()
	return year, month, day, nil
}

func parseClock(raw string) (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, ErrTimeInvalid
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func venueZone(offsetMinutes int) *time.Location {
	return time.FixedZone(fmt.Sprintf("venue%+d", offsetMinutes/60), offsetMinutes*60)
}
