package database

import (
	"encoding/json"
	"fmt"
	"log"

	"mathdiag_backend/internal/config"
	"mathdiag_backend/internal/model"

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

	err = db.AutoMigrate(
		&model.Misconception{},
		&model.DiagnosticForm{},
		&model.DiagnosticSession{},
		&model.DiagnosticResult{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedMisconceptions(db)

	return db, nil
}

type seedEntry struct {
	tag         string
	name        string
	description string
	category    string
	severity    string
	grades      []int
	patterns    []string
	remediation string
}

// seedMisconceptions 目录为空时写入核验过的基础误解条目
func seedMisconceptions(db *gorm.DB) {
	var count int64
	db.Model(&model.Misconception{}).Count(&count)
	if count > 0 {
		return
	}

	seeds := []seedEntry{
		{
			tag:         "misc_001",
			name:        "Multiplication Always Makes Bigger",
			description: "学生认为乘法的结果一定比两个因数都大，遇到小于 1 的因数时判断失效。",
			category:    "multiplication",
			severity:    "high",
			grades:      []int{4, 5, 6},
			patterns:    []string{"0.5 × 8 的结果被判断为大于 8", "拒绝接受乘积小于被乘数"},
			remediation: "用面积模型对比 ×2 与 ×0.5，建立\"乘以小于 1 的数会缩小\"的直觉。",
		},
		{
			tag:         "misc_002",
			name:        "Division Always Makes Smaller",
			description: "学生认为除法的结果一定比被除数小，除以分数或小数时出错。",
			category:    "division",
			severity:    "high",
			grades:      []int{5, 6, 7},
			patterns:    []string{"8 ÷ 0.5 被判断为小于 8"},
			remediation: "用\"分装\"情境演示除以 1/2 等于问\"有几个一半\"。",
		},
		{
			tag:         "misc_003",
			name:        "Ignoring Order of Operations",
			description: "学生从左到右逐个运算，忽略乘除优先于加减。",
			category:    "order_of_operations",
			severity:    "medium",
			grades:      []int{5, 6},
			patterns:    []string{"3 + 4 × 2 算成 14"},
			remediation: "先用括号显式标出运算顺序，再逐步撤掉括号。",
		},
		{
			tag:         "misc_004",
			name:        "Add/Subtract Fractions by Adding Denominators",
			description: "学生把分数加减当成分子加分子、分母加分母。",
			category:    "fractions",
			severity:    "high",
			grades:      []int{4, 5, 6},
			patterns:    []string{"1/2 + 1/3 算成 2/5"},
			remediation: "用分数条演示通分，强调只有同样大小的份才能直接相加。",
		},
		{
			tag:         "misc_005",
			name:        "Larger Denominator Means Larger Fraction",
			description: "学生把分母的大小直接当作分数的大小。",
			category:    "fractions",
			severity:    "high",
			grades:      []int{3, 4, 5},
			patterns:    []string{"认为 1/8 > 1/4"},
			remediation: "切同一块饼对比 1/4 与 1/8 的实际大小。",
		},
	}

	for _, s := range seeds {
		grades, _ := json.Marshal(s.grades)
		patterns, _ := json.Marshal(s.patterns)
		db.Create(&model.Misconception{
			Tag:                 s.tag,
			Name:                s.name,
			Description:         s.description,
			Category:            s.category,
			Severity:            s.severity,
			GradeLevels:         grades,
			EvidencePatterns:    patterns,
			RemediationStrategy: s.remediation,
			Verified:            true,
		})
	}
}
