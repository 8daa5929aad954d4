package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GrainArc/LULCSampler/Transformer"
	"github.com/GrainArc/LULCSampler/methods"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb/geojson"
)

// 导出格式
const (
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
	FormatDXF       = "dxf"
	FormatEE        = "ee"
)

// eeColumns Earth Engine FeatureCollection 的属性类型表
var eeColumns = map[string]string{
	"class_id":   "Integer",
	"class_name": "String",
	"color":      "String",
	"feature_id": "Integer",
	"source":     "String",
}

var exportFields = []Transformer.ShpField{
	{Name: "class_id", Kind: Transformer.FieldNumber, Size: 10},
	{Name: "class_name", Kind: Transformer.FieldString, Size: 100},
	{Name: "color", Kind: Transformer.FieldString, Size: 7},
	{Name: "feature_id", Kind: Transformer.FieldNumber, Size: 10},
	{Name: "source", Kind: Transformer.FieldString, Size: 20},
}

// ExportResult 导出结果
type ExportResult struct {
	Format       string   `json:"format"`
	Files        []string `json:"files"`
	FeatureCount int      `json:"feature_count"`
}

// Exporter 会话导出
type Exporter struct {
	catalog *ClassCatalog
	crs     string
}

// NewExporter crs 为输出坐标系，只为 4326 写 .prj
func NewExporter(catalog *ClassCatalog, crs string) *Exporter {
	return &Exporter{catalog: catalog, crs: crs}
}

// NormalizeFormat 规范化格式名，format 为空时按扩展名推断
func NormalizeFormat(format, path string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch f {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "shapefile", "shp":
		return FormatShapefile, nil
	case "dxf":
		return FormatDXF, nil
	case "ee", "earthengine":
		return FormatEE, nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, f)
	}
}

// FormatExtension 格式对应的文件扩展名
func FormatExtension(format string) string {
	switch format {
	case FormatShapefile:
		return ".shp"
	case FormatDXF:
		return ".dxf"
	case FormatEE:
		return ".json"
	default:
		return ".geojson"
	}
}

// Export 将要素写到 path，已存在的文件被覆盖
func (e *Exporter) Export(features []models.DigitizedFeature, path, format string) (*ExportResult, error) {
	f, err := NormalizeFormat(format, path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrWrite, err)
	}

	fc := BuildFeatureCollection(features, e.catalog)
	result := &ExportResult{Format: f, FeatureCount: len(features)}
	switch f {
	case FormatGeoJSON:
		if err := Transformer.WriteGeoJSON(fc, path); err != nil {
			return nil, err
		}
		result.Files = []string{path}
	case FormatShapefile:
		written, err := Transformer.ConvertGeoJSONToSHP(fc, path, exportFields, e.crs)
		if err != nil {
			return nil, err
		}
		for _, shpPath := range written {
			result.Files = append(result.Files, Transformer.ShapefileSidecars(shpPath)...)
		}
	case FormatDXF:
		if err := methods.ConvertGeoJSONToDXF(fc, path); err != nil {
			return nil, err
		}
		result.Files = []string{path}
	case FormatEE:
		if err := Transformer.WriteEEFeatureCollection(eeFeatureCollection(fc), eeColumns, path); err != nil {
			return nil, err
		}
		result.Files = []string{path}
	}
	return result, nil
}

// eeFeatureCollection 只保留类型表中的属性
func eeFeatureCollection(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		feature := geojson.NewFeature(f.Geometry)
		for name := range eeColumns {
			if v, ok := f.Properties[name]; ok {
				feature.Properties[name] = v
			}
		}
		out.Append(feature)
	}
	return out
}

// BuildFeatureCollection 要素转换为带分类属性的 GeoJSON
func BuildFeatureCollection(features []models.DigitizedFeature, catalog *ClassCatalog) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(newGeoJSONFeature(f, catalog))
	}
	return fc
}

// EditableFeature 附带 ref 的要素，供前端编辑与删除
func EditableFeature(f models.DigitizedFeature, catalog *ClassCatalog) *geojson.Feature {
	feature := newGeoJSONFeature(f, catalog)
	feature.ID = f.Ref
	feature.Properties["ref"] = f.Ref
	return feature
}

func newGeoJSONFeature(f models.DigitizedFeature, catalog *ClassCatalog) *geojson.Feature {
	feature := geojson.NewFeature(f.Geometry)
	feature.Properties["class_id"] = f.ClassID
	if class, err := catalog.Get(f.ClassID); err == nil {
		feature.Properties["class_name"] = class.Name
		feature.Properties["color"] = class.Color
	}
	feature.Properties["feature_id"] = f.FeatureID
	feature.Properties["source"] = f.Source
	feature.Properties["created_at"] = f.CreatedAt.UTC().Format(time.RFC3339)
	return feature
}
