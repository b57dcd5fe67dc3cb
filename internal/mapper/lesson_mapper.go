package mapper

import (
	"encoding/json"

	"nous-core/internal/model"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"

	"gorm.io/datatypes"
)

type LessonMapper struct{}

func NewLessonMapper() *LessonMapper {
	return &LessonMapper{}
}

func (m *LessonMapper) ToRecord(l *model.Lesson) *gateway.LessonRecord {
	if l == nil {
		return nil
	}

	var content lexical.Document
	if len(l.Content) > 0 {
		// Stored content was written by ToModel; a decode failure leaves an
		// empty document rather than hiding the lesson.
		_ = json.Unmarshal(l.Content, &content)
	}

	return &gateway.LessonRecord{
		ID:        l.Id.String(),
		Title:     l.Title,
		CourseID:  l.CourseId,
		Narration: l.Narration,
		Content:   content,
		Published: l.Published,
	}
}

func (m *LessonMapper) ToRecords(ls []*model.Lesson) []gateway.LessonRecord {
	out := make([]gateway.LessonRecord, 0, len(ls))
	for _, l := range ls {
		out = append(out, *m.ToRecord(l))
	}
	return out
}

func (m *LessonMapper) ToModel(in gateway.LessonInput) (*model.Lesson, error) {
	content, err := json.Marshal(in.Content)
	if err != nil {
		return nil, err
	}
	return &model.Lesson{
		Title:     in.Title,
		CourseId:  in.CourseID,
		Narration: in.Narration,
		Content:   datatypes.JSON(content),
		Published: true,
	}, nil
}

func (m *LessonMapper) ToCourseRecord(c *model.Course) *gateway.CourseRecord {
	if c == nil {
		return nil
	}
	return &gateway.CourseRecord{ID: c.Id, Title: c.Title, Description: c.Description}
}
