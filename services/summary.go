package services

import (
	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ClassSummary 单个分类的统计
type ClassSummary struct {
	ClassID   int     `json:"class_id"`
	ClassName string  `json:"class_name"`
	Color     string  `json:"color"`
	Uploaded  int     `json:"uploaded"`
	Digitized int     `json:"digitized"`
	Total     int     `json:"total"`
	AreaM2    float64 `json:"area_m2"` // 面要素的测地近似面积
}

// Summary 会话统计
type Summary struct {
	Classes       []ClassSummary `json:"classes"`
	Uploaded      int            `json:"uploaded"`
	Digitized     int            `json:"digitized"`
	Total         int            `json:"total"`
	Points        int            `json:"points"`
	Polygons      int            `json:"polygons"`       // 含多面
	ActiveClasses int            `json:"active_classes"` // 至少有一个要素的分类数
}

// Summarize 按分类表顺序统计要素数量与面积
func Summarize(catalog *ClassCatalog, features []models.DigitizedFeature) Summary {
	classes := catalog.List()
	index := make(map[int]int, len(classes))
	summary := Summary{Classes: make([]ClassSummary, len(classes))}
	for i, class := range classes {
		index[class.ID] = i
		summary.Classes[i] = ClassSummary{ClassID: class.ID, ClassName: class.Name, Color: class.Color}
	}

	for _, f := range features {
		i, ok := index[f.ClassID]
		if !ok {
			continue
		}
		cs := &summary.Classes[i]
		if f.Source == models.SourceUploaded {
			cs.Uploaded++
			summary.Uploaded++
		} else {
			cs.Digitized++
			summary.Digitized++
		}
		cs.Total++
		summary.Total++
		switch f.Geometry.(type) {
		case orb.Point:
			summary.Points++
		case orb.Polygon, orb.MultiPolygon:
			summary.Polygons++
		}
		cs.AreaM2 += featureArea(f.Geometry)
	}

	for _, cs := range summary.Classes {
		if cs.Total > 0 {
			summary.ActiveClasses++
		}
	}
	return summary
}

func featureArea(geom orb.Geometry) float64 {
	switch geom.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return geo.Area(geom)
	}
	return 0
}
