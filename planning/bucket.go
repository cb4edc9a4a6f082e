package planning

import (
	"time"
)

// =============================================================================
// BUCKET - Day-granularity planning period (this engine plans in days)
// =============================================================================

// Bucket is one calendar day in UTC. Lead-time offsets are whole days, so a
// day bucket is the engine's only period granularity. Buckets are comparable
// and usable as map keys.
type Bucket struct {
	Time time.Time
}

// NewBucket builds a bucket for the given calendar day.
func NewBucket(year int, month time.Month, day int) Bucket {
	return Bucket{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// BucketOf truncates an arbitrary timestamp to its UTC day.
func BucketOf(t time.Time) Bucket {
	u := t.UTC()
	return Bucket{Time: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Comparison
func (b Bucket) Before(other Bucket) bool        { return b.Time.Before(other.Time) }
func (b Bucket) After(other Bucket) bool         { return b.Time.After(other.Time) }
func (b Bucket) Equal(other Bucket) bool         { return b.Time.Equal(other.Time) }
func (b Bucket) BeforeOrEqual(other Bucket) bool { return !b.After(other) }
func (b Bucket) AfterOrEqual(other Bucket) bool  { return !b.Before(other) }
func (b Bucket) IsZero() bool                    { return b.Time.IsZero() }

// Arithmetic
func (b Bucket) AddDays(n int) Bucket { return Bucket{Time: b.Time.AddDate(0, 0, n)} }

// DaysUntil returns the whole days from b to other (negative when other is
// earlier).
func (b Bucket) DaysUntil(other Bucket) int {
	return int(other.Time.Sub(b.Time).Hours() / 24)
}

func (b Bucket) String() string {
	if b.IsZero() {
		return ""
	}
	return b.Time.Format("2006-01-02")
}

// ParseBucket parses a YYYY-MM-DD day.
func ParseBucket(s string) (Bucket, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Bucket{}, err
	}
	return BucketOf(t), nil
}
