package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/config"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity 是一次成功验证得到的用户断言，聊天核心只依赖这三个字段。
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// Claims 与原系统签发的 payload 对齐：uid + role。
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func GenerateAccessToken(userID, role, secret string, ttlMinutes int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAccessToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Verifier 校验 bearer token 并回查用户行，用户已删除视作凭证无效。
type Verifier struct {
	db     *gorm.DB
	secret string
}

func NewVerifier(db *gorm.DB, secret string) *Verifier {
	return &Verifier{db: db, secret: secret}
}

func (v *Verifier) Verify(ctx context.Context, credential string) (Identity, error) {
	claims, err := ParseAccessToken(credential, v.secret)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	var user models.User
	if err := v.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		return Identity{}, ErrInvalidToken
	}
	if !models.ValidRole(user.Role) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// AuthMiddleware 保护 REST 接口，校验 Bearer token 并把身份写入 gin 上下文。
func AuthMiddleware(cfg config.Config, db *gorm.DB) gin.HandlerFunc {
	verifier := NewVerifier(db, cfg.JWTSecret)
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		id, err := verifier.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("identity", id)
		c.Next()
	}
}

// GetIdentity 读取 AuthMiddleware 写入的身份，未认证时 ok 为 false。
func GetIdentity(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get("identity"); ok {
		if id, ok2 := v.(Identity); ok2 {
			return id, true
		}
	}
	return Identity{}, false
}
