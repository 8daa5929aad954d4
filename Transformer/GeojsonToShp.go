package Transformer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 字段类型
const (
	FieldString = "string"
	FieldNumber = "number"
)

// ShpField 输出字段定义，名称不超过10个字符
type ShpField struct {
	Name string
	Kind string
	Size uint8
}

func (f ShpField) shpField() shp.Field {
	if f.Kind == FieldNumber {
		return shp.NumberField(f.Name, f.Size)
	}
	return shp.StringField(f.Name, f.Size)
}

// shpLayer 一个几何类型对应的输出文件
type shpLayer struct {
	path     string
	geomType shp.ShapeType
	writer   *shp.Writer
	row      int
}

// ConvertGeoJSONToSHP 按几何类型将要素写为 <name>_point.shp 与 <name>_polygon.shp
// 没有要素的几何类型不生成文件，并删除同名旧文件；返回写出的 .shp 路径
func ConvertGeoJSONToSHP(geoData *geojson.FeatureCollection, shpfileFilePath string, fields []ShpField, crs string) ([]string, error) {
	dirPath := filepath.Dir(shpfileFilePath)
	fileName := filepath.Base(shpfileFilePath)
	rootName := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	if err := os.MkdirAll(dirPath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrWrite, err)
	}

	layers := map[string]*shpLayer{
		"point":   {path: filepath.Join(dirPath, rootName+"_point.shp"), geomType: shp.POINT},
		"polygon": {path: filepath.Join(dirPath, rootName+"_polygon.shp"), geomType: shp.POLYGON},
	}
	shpFields := make([]shp.Field, len(fields))
	for i, f := range fields {
		shpFields[i] = f.shpField()
	}

	closeAll := func() {
		for _, layer := range layers {
			if layer.writer != nil {
				layer.writer.Close()
				layer.writer = nil
			}
		}
	}
	defer closeAll()

	for _, feature := range geoData.Features {
		if feature.Geometry == nil {
			continue
		}
		var (
			key   string
			shape shp.Shape
		)
		switch geom := feature.Geometry.(type) {
		case orb.Point:
			key = "point"
			shape = &shp.Point{X: geom[0], Y: geom[1]}
		case orb.Polygon:
			key = "polygon"
			shape = polygonShape(orb.MultiPolygon{geom})
		case orb.MultiPolygon:
			key = "polygon"
			shape = polygonShape(geom)
		default:
			return nil, fmt.Errorf("%w: unsupported geometry type %s", models.ErrWrite, feature.Geometry.GeoJSONType())
		}

		layer := layers[key]
		if layer.writer == nil {
			writer, err := shp.Create(layer.path, layer.geomType)
			if err != nil {
				return nil, fmt.Errorf("%w: create %s: %v", models.ErrWrite, layer.path, err)
			}
			layer.writer = writer
			if err := writer.SetFields(shpFields); err != nil {
				return nil, fmt.Errorf("%w: set fields %s: %v", models.ErrWrite, layer.path, err)
			}
		}

		layer.writer.Write(shape)
		for idx, f := range fields {
			value := attributeValue(f, feature.Properties[f.Name])
			if err := layer.writer.WriteAttribute(layer.row, idx, value); err != nil {
				return nil, fmt.Errorf("%w: write attribute %s: %v", models.ErrWrite, f.Name, err)
			}
		}
		layer.row++
	}
	closeAll()

	var written []string
	for _, key := range []string{"point", "polygon"} {
		layer := layers[key]
		if layer.row == 0 {
			// 同名旧文件中可能残留已删除的要素
			if err := removeShapefile(layer.path); err != nil {
				return nil, err
			}
			continue
		}
		base := strings.TrimSuffix(layer.path, ".shp")
		if err := createCpgFile(base + ".cpg"); err != nil {
			return nil, err
		}
		if prj := prjForCRS(crs); prj != "" {
			if err := os.WriteFile(base+".prj", []byte(prj), 0644); err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrWrite, err)
			}
		}
		written = append(written, layer.path)
	}
	return written, nil
}

// polygonShape 外环写为顺时针，内环写为逆时针；不修改原几何
func polygonShape(mp orb.MultiPolygon) *shp.Polygon {
	var parts [][]shp.Point
	for _, polygon := range mp {
		for i, ring := range polygon {
			r := ring.Clone()
			if IsClockwise(r) != (i == 0) {
				r.Reverse()
			}
			points := make([]shp.Point, len(r))
			for j, pt := range r {
				points[j] = shp.Point{X: pt[0], Y: pt[1]}
			}
			parts = append(parts, points)
		}
	}
	polygon := shp.Polygon(*shp.NewPolyLine(parts))
	return &polygon
}

func attributeValue(f ShpField, item interface{}) interface{} {
	if f.Kind == FieldNumber {
		switch v := item.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			if v == math.Trunc(v) {
				return int(v)
			}
			return v
		case nil:
			return 0
		}
	}
	switch v := item.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// removeShapefile 删除 .shp 及其附属文件，文件不存在时忽略
func removeShapefile(shpPath string) error {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".shp", ".shx", ".dbf", ".cpg", ".prj"} {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: %v", models.ErrWrite, err)
		}
	}
	return nil
}

func createCpgFile(filename string) error {
	if err := os.WriteFile(filename, []byte("UTF-8"), 0644); err != nil {
		return fmt.Errorf("%w: %v", models.ErrWrite, err)
	}
	return nil
}
