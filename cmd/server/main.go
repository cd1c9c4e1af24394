package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/auth"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/chat"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/config"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/db"
	clog "github.com/Mustakeem2004/CourseManagementSystem01/internal/log"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/models"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/server"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	seed := flag.Bool("seed", false, "create a demo instructor, student and course before serving")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	if *seed {
		if err := seedDemo(gdb, cfg); err != nil {
			log.Fatal().Err(err).Msg("seed demo data")
		}
	}

	store := chat.NewGormStore(gdb)
	verifier := auth.NewVerifier(gdb, cfg.JWTSecret)
	courses := service.NewCourseService(gdb)
	var membership chat.Membership
	if cfg.ChatRequireEnrollment {
		membership = courses
	}
	gw := chat.NewGateway(verifier, membership, store, chat.Options{
		AuthTimeout:       cfg.ChatAuthTimeout,
		MaxMessageBytes:   cfg.ChatMaxMessageBytes,
		SendQueue:         cfg.ChatSendQueue,
		RequireEnrollment: cfg.ChatRequireEnrollment,
	})

	r := server.SetupRouter(cfg, gdb, gw, store)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}

// seedDemo 为本地演示准备一名教师、一名学生和一门已选课的课程，
// 并打印两人的访问 token，方便直接连 /ws 调试。
func seedDemo(gdb *gorm.DB, cfg config.Config) error {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		return err
	}
	instructor := models.User{Name: "Demo Instructor", Email: "instructor@example.com", PasswordHash: hash, Role: models.RoleInstructor}
	if err := gdb.Where(models.User{Email: instructor.Email}).FirstOrCreate(&instructor).Error; err != nil {
		return err
	}
	student := models.User{Name: "Demo Student", Email: "student@example.com", PasswordHash: hash, Role: models.RoleStudent}
	if err := gdb.Where(models.User{Email: student.Email}).FirstOrCreate(&student).Error; err != nil {
		return err
	}
	course := models.Course{Title: "Introduction to Go", Description: "Demo course", InstructorID: instructor.ID}
	if err := gdb.Where(models.Course{Title: course.Title, InstructorID: instructor.ID}).FirstOrCreate(&course).Error; err != nil {
		return err
	}
	if err := gdb.Model(&course).Association("Students").Append(&student); err != nil {
		return err
	}

	for _, u := range []models.User{instructor, student} {
		token, err := auth.GenerateAccessToken(u.ID, u.Role, cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
		if err != nil {
			return err
		}
		log.Info().Str("email", u.Email).Str("course_id", course.ID).Str("token", token).Msg("demo credentials")
	}
	return nil
}
