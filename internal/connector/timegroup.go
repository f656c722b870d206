package connector

import (
	"fmt"
	"math"
	"time"
)

// DurationSplitStrategy controls how a time group's duration is shared
// between its tags.
type DurationSplitStrategy string

const (
	DivideBetweenTags      DurationSplitStrategy = "DIVIDE_BETWEEN_TAGS"
	WholeDurationToEachTag DurationSplitStrategy = "WHOLE_DURATION_TO_EACH_TAG"
)

// TimeGroup is the payload of a posted time webhook call.
type TimeGroup struct {
	GroupID               string                `json:"groupId"`
	GroupName             string                `json:"groupName"`
	Description           string                `json:"description"`
	CallerKey             string                `json:"callerKey"`
	Tags                  []Tag                 `json:"tags"`
	TimeRows              []TimeRow             `json:"timeRows"`
	User                  User                  `json:"user"`
	TotalDurationSecs     int64                 `json:"totalDurationSecs"`
	DurationSplitStrategy DurationSplitStrategy `json:"durationSplitStrategy"`
}

type Tag struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// TimeRow is one hour-bucketed activity. ActivityHour is a UTC hour
// encoded as yyyyMMddHH, e.g. 2024030110.
type TimeRow struct {
	ActivityHour int    `json:"activityHour"`
	DurationSecs int64  `json:"durationSecs"`
	Activity     string `json:"activity"`
	Description  string `json:"description"`
}

type User struct {
	Name                       string `json:"name"`
	Email                      string `json:"email"`
	ExternalID                 string `json:"externalId"`
	ExperienceWeightingPercent int    `json:"experienceWeightingPercent"`
}

const activityHourLayout = "2006010215"

// Start returns the beginning of the row's activity hour.
func (r TimeRow) Start() (time.Time, error) {
	t, err := time.ParseInLocation(activityHourLayout, fmt.Sprintf("%010d", r.ActivityHour), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid activity hour %d: %w", r.ActivityHour, err)
	}
	return t, nil
}

// StartTime returns the earliest activity hour among the group's time rows.
// It reports false when the group has no time rows.
func StartTime(tg TimeGroup) (time.Time, bool, error) {
	if len(tg.TimeRows) == 0 {
		return time.Time{}, false, nil
	}
	earliest := tg.TimeRows[0]
	for _, row := range tg.TimeRows[1:] {
		if row.ActivityHour < earliest.ActivityHour {
			earliest = row
		}
	}
	start, err := earliest.Start()
	if err != nil {
		return time.Time{}, false, err
	}
	return start, true, nil
}

// TagDurationSecs is the worked time to record against each of
// relevantTags tags, rounded to the nearest second. Experience weighting
// applies first. With WholeDurationToEachTag every tag gets the full
// weighted duration; any other strategy divides it between the tags.
func TagDurationSecs(tg TimeGroup, relevantTags int) int64 {
	if relevantTags <= 0 {
		return 0
	}
	weighted := float64(tg.TotalDurationSecs) * float64(tg.User.ExperienceWeightingPercent) / 100

	switch tg.DurationSplitStrategy {
	case WholeDurationToEachTag:
		return roundSecs(weighted)
	default:
		return roundSecs(weighted / float64(relevantTags))
	}
}

func roundSecs(secs float64) int64 {
	return int64(math.Round(secs))
}

// validateDuration rejects durations and weightings that would post
// negative or inflated time.
func validateDuration(tg TimeGroup) error {
	if tg.TotalDurationSecs < 0 {
		return fmt.Errorf("total duration %ds is negative", tg.TotalDurationSecs)
	}
	if p := tg.User.ExperienceWeightingPercent; p < 0 || p > 100 {
		return fmt.Errorf("experience weighting %d%% is outside 0-100", p)
	}
	return nil
}
