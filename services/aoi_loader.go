package services

import (
	"fmt"
	"math"

	"github.com/GrainArc/LULCSampler/Transformer"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadAOI 读取研究区范围并计算地图初始视图
func LoadAOI(path string, fallbackEncoding string) (*models.AreaOfInterest, error) {
	fc, crs, err := Transformer.ReadVectorFile(path, fallbackEncoding)
	if err != nil {
		return nil, err
	}

	var mp orb.MultiPolygon
	count := 0
	for _, feature := range fc.Features {
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, geom)
			count++
		case orb.MultiPolygon:
			mp = append(mp, geom...)
			count++
		}
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: %s: no polygon features", models.ErrUnreadableFile, path)
	}

	bound := mp.Bound()
	return &models.AreaOfInterest{
		Geometry: mp,
		Bound:    bound,
		Center:   bound.Center(),
		Zoom:     ZoomForBound(bound),
		CRS:      crs,
		Count:    count,
	}, nil
}

// ZoomForBound 按范围最大跨度估算初始缩放级别
func ZoomForBound(b orb.Bound) int {
	span := math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	switch {
	case span > 10:
		return 6
	case span > 5:
		return 7
	case span > 2:
		return 8
	case span > 1:
		return 9
	case span > 0.5:
		return 10
	case span > 0.1:
		return 11
	case span > 0.05:
		return 12
	default:
		return 13
	}
}

// AOIFeatureCollection 研究区输出为要素集合
func AOIFeatureCollection(aoi *models.AreaOfInterest) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if aoi == nil {
		return fc
	}
	for _, polygon := range aoi.Geometry {
		fc.Append(geojson.NewFeature(polygon))
	}
	return fc
}
