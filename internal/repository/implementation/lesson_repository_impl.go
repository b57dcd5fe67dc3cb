package implementation

import (
	"context"
	"errors"
	"fmt"

	"nous-core/internal/mapper"
	"nous-core/internal/model"
	"nous-core/internal/repository/specification"
	"nous-core/pkg/gateway"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LessonRepositoryImpl is the local lesson archive, used instead of the CMS
// when LESSON_BACKEND=local.
type LessonRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LessonMapper
}

var _ gateway.LessonStore = (*LessonRepositoryImpl)(nil)

func NewLessonRepository(db *gorm.DB) *LessonRepositoryImpl {
	return &LessonRepositoryImpl{
		db:     db,
		mapper: mapper.NewLessonMapper(),
	}
}

func (r *LessonRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// requireToken keeps the local archive as strict as the CMS about callers
// without credentials.
func requireToken(token string) error {
	if token == "" {
		return gateway.New(gateway.Unauthorized, "authentication token required", gateway.ErrUnauthorized)
	}
	return nil
}

func (r *LessonRepositoryImpl) CreateLesson(ctx context.Context, in gateway.LessonInput, token string) (*gateway.LessonRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	m, err := r.mapper.ToModel(in)
	if err != nil {
		return nil, gateway.Wrap(gateway.Malformed, fmt.Errorf("encode lesson content: %w", err))
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CourseID != "" {
			course := model.Course{Id: in.CourseID, Title: "Course " + in.CourseID}
			if err := tx.Where("id = ?", in.CourseID).FirstOrCreate(&course).Error; err != nil {
				return err
			}
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, gateway.Wrap(gateway.Persistence, err)
	}
	return r.mapper.ToRecord(m), nil
}

func (r *LessonRepositoryImpl) GetLesson(ctx context.Context, id, token string) (*gateway.LessonRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gateway.New(gateway.NotFound, "Lesson not found", gateway.ErrNotFound)
	}

	var m model.Lesson
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: uid})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.New(gateway.NotFound, "Lesson not found", gateway.ErrNotFound)
		}
		return nil, err
	}
	return r.mapper.ToRecord(&m), nil
}

func (r *LessonRepositoryImpl) GetCourse(ctx context.Context, id, token string) (*gateway.CourseRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}

	var m model.Course
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.New(gateway.NotFound, "Course not found", gateway.ErrNotFound)
		}
		return nil, err
	}
	return r.mapper.ToCourseRecord(&m), nil
}

// SearchLessons matches published lesson titles against the first five
// keywords, newest first.
func (r *LessonRepositoryImpl) SearchLessons(ctx context.Context, keywords []string, limit int, token string) ([]gateway.LessonRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	if len(keywords) == 0 {
		return []gateway.LessonRecord{}, nil
	}

	var models []*model.Lesson
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.TitleContainsAny{Keywords: keywords},
		specification.Published{},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{N: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToRecords(models), nil
}
