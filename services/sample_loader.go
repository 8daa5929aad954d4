package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GrainArc/LULCSampler/Transformer"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
)

// SampleLoadResult 样本加载结果
type SampleLoadResult struct {
	Samples     []models.SampleFeature `json:"-"`
	Loaded      int                    `json:"loaded"`
	Unresolved  int                    `json:"unresolved"`  // 分类无法匹配
	Unsupported int                    `json:"unsupported"` // 几何类型不支持
	CRS         string                 `json:"crs"`
}

// LoadSamples 读取已有训练样本，分类字段值先按编号匹配再按名称匹配
func LoadSamples(path, classField, fallbackEncoding string, catalog *ClassCatalog) (*SampleLoadResult, error) {
	fc, crs, err := Transformer.ReadVectorFile(path, fallbackEncoding)
	if err != nil {
		return nil, err
	}

	result := &SampleLoadResult{CRS: crs}
	if len(fc.Features) == 0 {
		return result, nil
	}

	key, ok := propertyKey(fc.Features[0].Properties, classField)
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing class field %q", models.ErrUnreadableFile, path, classField)
	}

	for _, feature := range fc.Features {
		switch feature.Geometry.(type) {
		case orb.Point, orb.Polygon, orb.MultiPolygon:
		default:
			result.Unsupported++
			continue
		}

		raw := propertyString(feature.Properties[key])
		class, err := resolveClass(catalog, raw)
		if err != nil {
			result.Unresolved++
			continue
		}
		result.Samples = append(result.Samples, models.SampleFeature{
			Geometry: feature.Geometry,
			ClassID:  class.ID,
			RawClass: raw,
		})
	}
	result.Loaded = len(result.Samples)
	return result, nil
}

// propertyKey 不区分大小写查找属性名
func propertyKey(props map[string]interface{}, field string) (string, bool) {
	if _, ok := props[field]; ok {
		return field, true
	}
	for k := range props {
		if strings.EqualFold(k, field) {
			return k, true
		}
	}
	return "", false
}

func propertyString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func resolveClass(catalog *ClassCatalog, raw string) (models.LULCClass, error) {
	if raw == "" {
		return models.LULCClass{}, fmt.Errorf("%w: empty class value", models.ErrUnknownClass)
	}
	if id, err := strconv.Atoi(Transformer.TrimTrailingZeros(raw)); err == nil {
		if class, err := catalog.Get(id); err == nil {
			return class, nil
		}
	}
	return catalog.ByName(raw)
}
