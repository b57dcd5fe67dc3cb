package entity

import (
	"encoding/json"
	"strconv"

	"nous-core/pkg/lexical"
)

// LessonDraft is a generated lesson that has not been persisted yet.
type LessonDraft struct {
	Title     string           `json:"title"`
	CourseID  FlexibleID       `json:"courseId"`
	Narration string           `json:"narration"`
	Content   lexical.Document `json:"content"`
	Published bool             `json:"published"`
	Course    CourseRef        `json:"course"`
	Keywords  []string         `json:"keywords,omitempty"`
	// Audio is the file name of the synthesized narration in the media
	// directory; empty when synthesis failed.
	Audio string `json:"audio,omitempty"`
}

type CourseRef struct {
	ID FlexibleID `json:"id"`
}

// FlexibleID accepts numeric and string ids and writes numeric ones back as
// numbers.
type FlexibleID string

func (f FlexibleID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = FlexibleID(s)
	return nil
}

func (f FlexibleID) String() string { return string(f) }
