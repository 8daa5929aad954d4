package models

import (
	"time"

	"github.com/paulmach/orb"
)

// 要素来源
const (
	SourceDigitized = "digitized"
	SourceUploaded  = "uploaded"
)

// LULCClass 土地利用/覆盖分类
type LULCClass struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"` // #RRGGBB
}

// AreaOfInterest 研究区范围
type AreaOfInterest struct {
	Geometry orb.MultiPolygon `json:"-"`
	Bound    orb.Bound        `json:"-"`
	Center   orb.Point        `json:"-"`
	Zoom     int              `json:"zoom"`
	CRS      string           `json:"crs"` // EPSG代码，未知时为空
	Count    int              `json:"count"`
}

// SampleFeature 预加载的训练样本
type SampleFeature struct {
	Geometry orb.Geometry
	ClassID  int
	RawClass string // 属性表中的原始分类值
}

// DigitizedFeature 会话中的已标注要素
type DigitizedFeature struct {
	Ref       string       `json:"ref"`
	FeatureID int          `json:"feature_id"`
	Geometry  orb.Geometry `json:"-"`
	ClassID   int          `json:"class_id"`
	Source    string       `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
}

// MapView 地图视图状态
type MapView struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}
