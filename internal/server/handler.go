package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/auth"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/chat"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合聊天相关的 HTTP handler，依赖注入 service 与消息存储。
type Handler struct {
	courses      *service.CourseService
	store        chat.ChatStore
	gw           *chat.Gateway
	historyLimit int
}

func NewHandler(courses *service.CourseService, store chat.ChatStore, gw *chat.Gateway, historyLimit int) *Handler {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Handler{courses: courses, store: store, gw: gw, historyLimit: historyLimit}
}

// ChatHistory 返回课程最近的聊天记录，升序排列，供客户端进房前自举。
func (h *Handler) ChatHistory(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	limit := h.historyLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	requester, _ := auth.GetIdentity(c)

	if _, err := h.courses.Get(c.Request.Context(), courseID); err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}
		log.Error().Err(err).Str("course_id", courseID).Str("user_id", requester.UserID).Msg("lookup course")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	msgs, err := h.store.ListRecent(c.Request.Context(), courseID, limit)
	if err != nil {
		log.Error().Err(err).Str("course_id", courseID).Str("user_id", requester.UserID).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "online": h.gw.Online(courseID)})
}
