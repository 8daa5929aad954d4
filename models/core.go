package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// 支持的数据库类型
const (
	DBSqlite   = "sqlite"
	DBPostgres = "postgres"
	DBMysql    = "mysql"
	DBNone     = "none"
)

// InitDB 按类型打开历史记录数据库并迁移表结构
func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(dbType) {
	case DBSqlite, "":
		// 确保目录存在
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), os.ModePerm); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case DBPostgres:
		dialector = postgres.Open(dsn)
	case DBMysql:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dbType, err)
	}

	if err := migrateAllTables(db); err != nil {
		return nil, fmt.Errorf("migrate tables: %w", err)
	}
	return db, nil
}

// migrateAllTables 批量迁移所有表
func migrateAllTables(db *gorm.DB) error {
	models := []interface{}{
		&EditRecord{},
		&ExportRecord{},
	}

	return db.AutoMigrate(models...)
}
