package schedule

import (
	"errors"
	"reflect"
	"testing"

	"github.com/racktic/bookmarket/pkg/models"
)

func entry(location, day, section string) models.ClassEntry {
	return models.ClassEntry{
		Course:   "课程",
		Teacher:  "老师",
		Location: location,
		Day:      day,
		Section:  section,
	}
}

func TestRecommend_ExactIntersection(t *testing.T) {
	seller := []models.ClassEntry{
		entry("六教", "星期一", "第2节"),
		entry("三教", "星期三", "第4节"),
	}
	buyer := []models.ClassEntry{
		entry("六教", "星期一", "第2节"),
		entry("五教", "星期五", "第1节"),
	}

	got, err := Recommend(seller, buyer)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	want := MeetingSpot{Location: "六教", Time: "星期一第2节"}
	found := false
	for _, s := range got {
		if s == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %+v in recommendations, got %+v", want, got)
	}
}

func TestRecommend_NearbySections(t *testing.T) {
	seller := []models.ClassEntry{entry("六教", "星期一", "第1节")}
	buyer := []models.ClassEntry{entry("六教", "星期一", "第2节")}

	got, err := Recommend(seller, buyer)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	// Adjacent sections at a shared location meet at the earlier section.
	want := []MeetingSpot{{Location: "六教", Time: "星期一第1节"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Recommend = %+v, want %+v", got, want)
	}
}

func TestRecommend_NoCrossDayOrFarSections(t *testing.T) {
	tests := []struct {
		name   string
		seller models.ClassEntry
		buyer  models.ClassEntry
	}{
		{"same location different day", entry("六教", "星期一", "第2节"), entry("六教", "星期二", "第2节")},
		{"same day sections too far apart", entry("六教", "星期一", "第1节"), entry("六教", "星期一", "第4节")},
		{"different locations", entry("六教", "星期一", "第2节"), entry("三教", "星期一", "第2节")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Recommend(
				[]models.ClassEntry{tt.seller},
				[]models.ClassEntry{tt.buyer},
			)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no recommendations, got %+v", got)
			}
		})
	}
}

func TestRecommend_Deduplicates(t *testing.T) {
	// Duplicate schedule rows must not produce duplicate spots.
	seller := []models.ClassEntry{
		entry("六教", "星期一", "第2节"),
		entry("六教", "星期一", "第2节"),
	}
	buyer := []models.ClassEntry{entry("六教", "星期一", "第2节")}

	got, err := Recommend(seller, buyer)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 deduplicated spot, got %d: %+v", len(got), got)
	}
}

func TestRecommend_MissingSchedule(t *testing.T) {
	seller := []models.ClassEntry{entry("六教", "星期一", "第2节")}

	if _, err := Recommend(seller, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty buyer schedule: err = %v, want ErrNotFound", err)
	}
	if _, err := Recommend(nil, seller); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty seller schedule: err = %v, want ErrNotFound", err)
	}
}

func TestValidateEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.ClassEntry
		wantErr bool
	}{
		{"valid", []models.ClassEntry{entry("六教", "星期日", "第6节")}, false},
		{"unknown day", []models.ClassEntry{entry("六教", "周一", "第2节")}, true},
		{"unknown section", []models.ClassEntry{entry("六教", "星期一", "第7节")}, true},
		{"missing location", []models.ClassEntry{entry("", "星期一", "第2节")}, true},
		{"empty list valid", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntries(tt.entries)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEntries = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(1, 2); got != "星期一第2节" {
		t.Errorf("FormatTime(1, 2) = %q, want 星期一第2节", got)
	}
	if got := FormatTime(7, 6); got != "星期日第6节" {
		t.Errorf("FormatTime(7, 6) = %q, want 星期日第6节", got)
	}
}
