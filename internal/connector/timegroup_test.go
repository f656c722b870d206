package connector

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTagDurationSecs(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		percent  int
		strategy DurationSplitStrategy
		tags     int
		want     int64
	}{
		{"divide", 1500, 50, DivideBetweenTags, 3, 250},
		{"whole", 3000, 80, WholeDurationToEachTag, 2, 2400},
		{"unknown strategy divides", 1000, 100, "", 4, 250},
		{"rounds to nearest second", 1000, 100, DivideBetweenTags, 3, 333},
		{"rounds half up", 5, 100, DivideBetweenTags, 2, 3},
		{"no tags", 1000, 100, DivideBetweenTags, 0, 0},
		{"zero weighting", 1000, 0, WholeDurationToEachTag, 1, 0},
		{"negative rounds away from zero", -1500, 100, WholeDurationToEachTag, 1, -1500},
		{"negative half rounds away from zero", -5, 100, DivideBetweenTags, 2, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := TimeGroup{
				TotalDurationSecs:     tt.total,
				User:                  User{ExperienceWeightingPercent: tt.percent},
				DurationSplitStrategy: tt.strategy,
			}
			if got := TagDurationSecs(tg, tt.tags); got != tt.want {
				t.Errorf("TagDurationSecs = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		percent int
		wantErr bool
	}{
		{"typical", 1500, 50, false},
		{"zero duration", 0, 100, false},
		{"full weighting", 1500, 100, false},
		{"no weighting", 1500, 0, false},
		{"negative duration", -1, 100, true},
		{"negative weighting", 1500, -100, true},
		{"weighting above 100", 1500, 101, true},
	}

	for _, tt := range tests {
		tg := TimeGroup{TotalDurationSecs: tt.total, User: User{ExperienceWeightingPercent: tt.percent}}
		if err := validateDuration(tg); (err != nil) != tt.wantErr {
			t.Errorf("%s: validateDuration = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestStartTime(t *testing.T) {
	tg := TimeGroup{TimeRows: []TimeRow{{ActivityHour: 2024123123}, {ActivityHour: 2024010100}, {ActivityHour: 2024060112}}}

	got, ok, err := StartTime(tg)
	if err != nil || !ok {
		t.Fatalf("StartTime = %v, %v", ok, err)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("StartTime = %v, want %v", got, want)
	}

	if _, ok, err := StartTime(TimeGroup{}); ok || err != nil {
		t.Errorf("StartTime without rows = %v, %v; want absent", ok, err)
	}

	if _, _, err := StartTime(TimeGroup{TimeRows: []TimeRow{{ActivityHour: 2024133099}}}); err == nil {
		t.Error("expected error for invalid activity hour")
	}
}

func TestTimeGroup_DecodesWebhookPayload(t *testing.T) {
	payload := `{
		"groupId": "g1",
		"callerKey": "ck",
		"tags": [{"name": "WT-1", "path": "/Jira/WT-1"}],
		"timeRows": [{"activityHour": 2024030110, "durationSecs": 60, "activity": "IDE"}],
		"user": {"externalId": "jsmith", "email": "j@example.com", "experienceWeightingPercent": 90},
		"totalDurationSecs": 60,
		"durationSplitStrategy": "WHOLE_DURATION_TO_EACH_TAG"
	}`

	var tg TimeGroup
	if err := json.Unmarshal([]byte(payload), &tg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if tg.DurationSplitStrategy != WholeDurationToEachTag || tg.User.ExperienceWeightingPercent != 90 ||
		tg.Tags[0].Path != "/Jira/WT-1" || tg.TimeRows[0].ActivityHour != 2024030110 {
		t.Errorf("decoded %+v", tg)
	}
}
