package chat

import (
	"context"
	"time"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/models"
	"gorm.io/gorm"
)

// Message 是带发送者展示信息的消息视图，id 与 created_at 由存储端赋值。
type Message struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatStore 是持久化协作方的契约：按课程追加、按插入序读取。
// 同一课程上并发 Append 的先后顺序由存储端裁定。
type ChatStore interface {
	Append(ctx context.Context, courseID, senderID, content string) (*Message, error)
	ListRecent(ctx context.Context, courseID string, limit int) ([]Message, error)
}

// GormStore 基于 gorm/Postgres 实现 ChatStore。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Append 落库一条消息并补齐发送者展示信息。
func (s *GormStore) Append(ctx context.Context, courseID, senderID, content string) (*Message, error) {
	rec := models.ChatMessage{CourseID: courseID, SenderID: senderID, Content: content}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	out := &Message{
		ID:        rec.ID,
		CourseID:  rec.CourseID,
		SenderID:  rec.SenderID,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}
	// 发送者展示信息查不到不影响已落库的消息。
	var sender models.User
	if err := s.db.WithContext(ctx).Select("name", "email").First(&sender, "id = ?", senderID).Error; err == nil {
		out.SenderName = sender.Name
		out.SenderEmail = sender.Email
	}
	return out, nil
}

// ListRecent 返回课程最近 limit 条消息，按插入序升序排列。
// 用 seq 而不是 created_at 定序，同一时间戳的消息才不会乱序。
func (s *GormStore) ListRecent(ctx context.Context, courseID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var recs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("seq desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	// 反转为升序
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}

	senders, err := s.resolveSenders(ctx, recs)
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(recs))
	for _, m := range recs {
		u := senders[m.SenderID]
		out = append(out, Message{
			ID:          m.ID,
			CourseID:    m.CourseID,
			SenderID:    m.SenderID,
			SenderName:  u.Name,
			SenderEmail: u.Email,
			Content:     m.Content,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out, nil
}

// resolveSenders 批量获取消息涉及的发送者展示信息。
func (s *GormStore) resolveSenders(ctx context.Context, recs []models.ChatMessage) (map[string]models.User, error) {
	seen := make(map[string]struct{}, len(recs))
	ids := make([]string, 0, len(recs))
	for _, m := range recs {
		if _, ok := seen[m.SenderID]; ok {
			continue
		}
		seen[m.SenderID] = struct{}{}
		ids = append(ids, m.SenderID)
	}

	senders := make(map[string]models.User, len(ids))
	if len(ids) > 0 {
		var users []models.User
		if err := s.db.WithContext(ctx).Select("id", "name", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			senders[u.ID] = u
		}
	}
	return senders, nil
}
