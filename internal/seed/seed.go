// Package seed 从 YAML 夹具导入演示用的用户、题目和错题本数据
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"learning_progress/internal/model"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Fixture struct {
	Users     []UserFixture      `yaml:"users"`
	Questions []QuestionFixture  `yaml:"questions"`
	ErrorBook []ErrorBookFixture `yaml:"errorBook"`
}

type UserFixture struct {
	ID     uint   `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Avatar string `yaml:"avatar"`
}

type QuestionFixture struct {
	ID          string      `yaml:"id"`
	ChapterID   string      `yaml:"chapterId"`
	Type        string      `yaml:"type"`
	Content     string      `yaml:"content"`
	Answer      interface{} `yaml:"answer"`
	Options     interface{} `yaml:"options"`
	Explanation string      `yaml:"explanation"`
}

type ErrorBookFixture struct {
	UserID       uint   `yaml:"userId"`
	QuestionID   string `yaml:"questionId"`
	MasteryLevel int    `yaml:"masteryLevel"`
}

// Stats 导入数量
type Stats struct {
	Users     int
	Questions int
	ErrorBook int
}

func Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, f.validate()
}

func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

func (f *Fixture) validate() error {
	questions := make(map[string]bool, len(f.Questions))
	for _, q := range f.Questions {
		if q.ID == "" {
			return fmt.Errorf("question without id")
		}
		switch model.QuestionType(q.Type) {
		case model.SingleChoice, model.MultipleChoice, model.FillBlank, model.Essay:
		default:
			return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
		}
		questions[q.ID] = true
	}
	for _, e := range f.ErrorBook {
		if e.MasteryLevel < 0 {
			return fmt.Errorf("error book entry %d/%s: negative mastery level", e.UserID, e.QuestionID)
		}
		if !questions[e.QuestionID] {
			return fmt.Errorf("error book entry references unknown question %s", e.QuestionID)
		}
	}
	return nil
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Apply 在一个事务内写入夹具。题目按主键覆盖，已有的错题条目保持不变。
func Apply(ctx context.Context, db *gorm.DB, f *Fixture) (*Stats, error) {
	stats := &Stats{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range f.Users {
			user := model.User{Name: u.Name, Email: u.Email, Avatar: u.Avatar, Role: model.Student}
			user.ID = u.ID
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
				return fmt.Errorf("user %d: %w", u.ID, err)
			}
			stats.Users++
		}

		for _, q := range f.Questions {
			answer, err := toJSON(q.Answer)
			if err != nil {
				return fmt.Errorf("question %s answer: %w", q.ID, err)
			}
			options, err := toJSON(q.Options)
			if err != nil {
				return fmt.Errorf("question %s options: %w", q.ID, err)
			}
			question := model.Question{
				ChapterID:   q.ChapterID,
				Type:        model.QuestionType(q.Type),
				Content:     q.Content,
				Answer:      answer,
				Options:     options,
				Explanation: q.Explanation,
			}
			question.ID = q.ID
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&question).Error; err != nil {
				return fmt.Errorf("question %s: %w", q.ID, err)
			}
			stats.Questions++
		}

		for _, e := range f.ErrorBook {
			entry := model.ErrorBookEntry{
				UserID:       e.UserID,
				QuestionID:   e.QuestionID,
				MasteryLevel: e.MasteryLevel,
			}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
			if result.Error != nil {
				return fmt.Errorf("error book %d/%s: %w", e.UserID, e.QuestionID, result.Error)
			}
			stats.ErrorBook += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
