package Transformer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ReadGeoJSON 读取 GeoJSON 文件，支持 FeatureCollection、单个 Feature 与裸几何
func ReadGeoJSON(path string) (*geojson.FeatureCollection, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", models.ErrUnreadableFile, err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, path, err)
	}

	var fc *geojson.FeatureCollection
	switch probe.Type {
	case "FeatureCollection":
		fc, err = geojson.UnmarshalFeatureCollection(data)
	case "Feature":
		var feature *geojson.Feature
		feature, err = geojson.UnmarshalFeature(data)
		if err == nil {
			fc = geojson.NewFeatureCollection()
			fc.Append(feature)
		}
	default:
		var geometry *geojson.Geometry
		geometry, err = geojson.UnmarshalGeometry(data)
		if err == nil {
			fc = geojson.NewFeatureCollection()
			fc.Append(geojson.NewFeature(geometry.Geometry()))
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, path, err)
	}

	detector := &crsDetector{}
	for _, feature := range fc.Features {
		if feature.Geometry == nil {
			continue
		}
		b := feature.Geometry.Bound()
		detector.add(b.Min[0], b.Min[1])
		detector.add(b.Max[0], b.Max[1])
	}
	return fc, detector.result(), nil
}

// WriteGeoJSON 写出 GeoJSON 文件
func WriteGeoJSON(fc *geojson.FeatureCollection, path string) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode geojson: %v", models.ErrWrite, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("%w: %v", models.ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", models.ErrWrite, err)
	}
	return nil
}

// eeFeatureCollection 带 columns 类型表的 FeatureCollection
type eeFeatureCollection struct {
	Type     string             `json:"type"`
	Columns  map[string]string  `json:"columns"`
	Features []*geojson.Feature `json:"features"`
}

// WriteEEFeatureCollection 写出可导入 Earth Engine 的 FeatureCollection
func WriteEEFeatureCollection(fc *geojson.FeatureCollection, columns map[string]string, path string) error {
	features := fc.Features
	if features == nil {
		features = []*geojson.Feature{}
	}
	data, err := json.MarshalIndent(eeFeatureCollection{
		Type:     "FeatureCollection",
		Columns:  columns,
		Features: features,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode feature collection: %v", models.ErrWrite, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("%w: %v", models.ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", models.ErrWrite, err)
	}
	return nil
}

// GeometryFromJSON 解析前端提交的 GeoJSON 几何（也接受 Feature）
func GeometryFromJSON(data []byte) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidGeometry, err)
	}
	if probe.Type == "Feature" {
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidGeometry, err)
		}
		if feature.Geometry == nil {
			return nil, fmt.Errorf("%w: feature without geometry", models.ErrInvalidGeometry)
		}
		return feature.Geometry, nil
	}
	geometry, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidGeometry, err)
	}
	if geometry.Geometry() == nil {
		return nil, fmt.Errorf("%w: empty geometry", models.ErrInvalidGeometry)
	}
	return geometry.Geometry(), nil
}
