package services

import (
	"encoding/json"
	"fmt"

	"github.com/GrainArc/LULCSampler/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 100

// HistoryService 编辑与导出记录，db 为空时不记录
type HistoryService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewHistoryService(db *gorm.DB, log *zap.Logger) *HistoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryService{db: db, log: log}
}

func (s *HistoryService) Enabled() bool {
	return s != nil && s.db != nil
}

// RecordEdit 保存编辑记录，失败只记日志
func (s *HistoryService) RecordEdit(rec models.EditRecord) {
	if !s.Enabled() {
		return
	}
	if err := s.db.Create(&rec).Error; err != nil {
		s.log.Warn("record edit failed", zap.String("action", rec.Action), zap.String("ref", rec.FeatureRef), zap.Error(err))
	}
}

// RecordExport 保存导出记录
func (s *HistoryService) RecordExport(result *ExportResult, path string) error {
	if !s.Enabled() || result == nil {
		return nil
	}
	rec := models.ExportRecord{
		Format:       result.Format,
		Path:         path,
		FeatureCount: result.FeatureCount,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// Edits 最近的编辑记录，按时间倒序
func (s *HistoryService) Edits(limit int) ([]models.EditRecord, error) {
	records := []models.EditRecord{}
	if !s.Enabled() {
		return records, nil
	}
	if err := s.db.Order("id desc").Limit(normalizeLimit(limit)).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query edit records: %w", err)
	}
	return records, nil
}

// Exports 最近的导出记录，按时间倒序
func (s *HistoryService) Exports(limit int) ([]models.ExportRecord, error) {
	records := []models.ExportRecord{}
	if !s.Enabled() {
		return records, nil
	}
	if err := s.db.Order("id desc").Limit(normalizeLimit(limit)).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query export records: %w", err)
	}
	return records, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultHistoryLimit
	}
	return limit
}

func jsonProperties(v map[string]interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
