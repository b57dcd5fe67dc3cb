package specification

import (
	"strings"

	"gorm.io/gorm"
)

// TitleContainsAny matches lessons whose title contains any keyword,
// case-insensitively. Uses LOWER/LIKE so it runs on Postgres and SQLite.
type TitleContainsAny struct {
	Keywords []string
}

func (s TitleContainsAny) Apply(db *gorm.DB) *gorm.DB {
	var clauses []string
	var args []interface{}
	for _, kw := range s.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		clauses = append(clauses, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}
	if len(clauses) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

type Published struct{}

func (Published) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("published = ?", true)
}
