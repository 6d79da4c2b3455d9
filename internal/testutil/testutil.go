// Package testutil 为各包测试提供内存数据库、固定时钟和种子数据
package testutil

import (
	"encoding/json"
	"fmt"
	"learning_progress/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 每个测试一个独立的内存 sqlite，单连接串行执行
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.Models()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// Clock 可手动拨动的时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Date 当天上午 10 点（UTC）
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Clock) AddDays(n int) {
	c.mu.Lock()
	c.now = c.now.AddDate(0, 0, n)
	c.mu.Unlock()
}

func CreateUser(tb testing.TB, db *gorm.DB, name string) *model.User {
	tb.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: model.Student}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return u
}

// CreateQuestion answer 为 nil 时不设置标准答案
func CreateQuestion(tb testing.TB, db *gorm.DB, typ model.QuestionType, answer interface{}) *model.Question {
	tb.Helper()
	q := &model.Question{
		Type:    typ,
		Content: "question " + string(typ),
		Answer:  JSON(tb, answer),
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("create question: %v", err)
	}
	return q
}

func CreateErrorBookEntry(tb testing.TB, db *gorm.DB, userID uint, questionID string, level int) *model.ErrorBookEntry {
	tb.Helper()
	e := &model.ErrorBookEntry{UserID: userID, QuestionID: questionID, MasteryLevel: level}
	if err := db.Create(e).Error; err != nil {
		tb.Fatalf("create error book entry: %v", err)
	}
	return e
}

func JSON(tb testing.TB, v interface{}) datatypes.JSON {
	tb.Helper()
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal: %v", err)
	}
	return datatypes.JSON(raw)
}
