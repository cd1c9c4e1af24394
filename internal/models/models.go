package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 角色枚举与原有权限体系一致。
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// ValidRole 判断角色是否在允许范围内。
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleInstructor || role == RoleStudent
}

type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:128;not null"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string
	Role         string `gorm:"size:16;not null;default:student;index"`
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Course struct {
	ID           string `gorm:"primaryKey;size:36"`
	Title        string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	InstructorID string `gorm:"size:36;not null;index"`
	Students     []User `gorm:"many2many:course_students"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ChatMessage 按课程分组的聊天记录，只增不删。
// seq 由数据库单调分配，同一时间戳的消息以它定序，历史回放顺序与落库顺序一致。
type ChatMessage struct {
	ID        string `gorm:"primaryKey;size:36"`
	Seq       int64  `gorm:"autoIncrement;uniqueIndex"`
	CourseID  string `gorm:"size:36;index:idx_chat_course;not null"`
	SenderID  string `gorm:"size:36;index;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
