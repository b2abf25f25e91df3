package database

import (
	"fmt"
	"log"

	"exam_sim_backend/internal/config"
	"exam_sim_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Simulation{},
		&model.SimulationQuestion{},
		&model.QuestionOption{},
		&model.QuestionKeyword{},
		&model.Assignment{},
		&model.SimulationRoom{},
		&model.SimulationResult{},
		&model.ResultAnswer{},
		&model.OpenAnswerSubmission{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}
