package gamification

import (
	"fmt"
	"time"
)

// Clock 统一引擎的“当天”定义。连续学习按日期计算，所有调用方必须使用同一个时区，
// 否则在跨时区的午夜前后会出现连续天数来回跳动。
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// LoadClock 按 IANA 时区名构造，空字符串视为 UTC
func LoadClock(name string) (*Clock, error) {
	if name == "" {
		return NewClock(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewClock(loc), nil
}

// NewFixedClock 固定时间，用于测试和批处理
func NewFixedClock(at time.Time, loc *time.Location) *Clock {
	c := NewClock(loc)
	c.now = func() time.Time { return at }
	return c
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today 返回引擎时区下的当天日期，以 UTC 零点表示，便于按纯日期落库
func (c *Clock) Today() time.Time {
	return CivilDate(c.Now())
}

// CivilDate 取 t 在其自身时区下的年月日
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
