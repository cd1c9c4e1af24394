package service

import (
	"context"
	"errors"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/models"
	"gorm.io/gorm"
)

// CourseService 封装课程查询与选课关系判定，课程本身的增删改由外部系统负责。
type CourseService struct {
	db *gorm.DB
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db}
}

// Get 按 id 查询课程。
func (s *CourseService) Get(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

// IsMember 判断用户是否任课教师或已选课学生，网关据此决定能否加入房间。
func (s *CourseService) IsMember(ctx context.Context, userID, courseID string) (bool, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).Select("id", "instructor_id").First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if course.InstructorID == userID {
		return true, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Table("course_students").
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
