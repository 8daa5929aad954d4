package models

import "gorm.io/datatypes"

// 编辑动作
const (
	ActionAdd            = "add"
	ActionUpdateClass    = "update_class"
	ActionUpdateGeometry = "update_geometry"
	ActionRemove         = "remove"
	ActionClear          = "clear"
	ActionMergeSamples   = "merge_samples"
)

// EditRecord 会话编辑记录（不保存坐标）
type EditRecord struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Action       string         `gorm:"type:varchar(50);index" json:"action"`
	FeatureRef   string         `gorm:"type:varchar(64);index" json:"feature_ref"`
	OldClassID   int            `json:"old_class_id"`
	NewClassID   int            `json:"new_class_id"`
	GeometryType string         `gorm:"type:varchar(50)" json:"geometry_type"`
	Properties   datatypes.JSON `json:"properties"`
	CreatedAt    int64          `gorm:"autoCreateTime" json:"created_at"`
}

func (EditRecord) TableName() string {
	return "edit_records"
}

// ExportRecord 导出记录
type ExportRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Format       string `gorm:"type:varchar(20)" json:"format"`
	Path         string `gorm:"type:varchar(1024)" json:"path"`
	FeatureCount int    `json:"feature_count"`
	CreatedAt    int64  `gorm:"autoCreateTime" json:"created_at"`
}

func (ExportRecord) TableName() string {
	return "export_records"
}
