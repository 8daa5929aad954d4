package Transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var numericRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// TrimTrailingZeros 去掉数字字符串小数部分尾部多余的零
func TrimTrailingZeros(input string) string {
	if !numericRegex.MatchString(input) {
		return input
	}

	if strings.Contains(input, ".") {
		parts := strings.SplitN(input, ".", 2)
		intPart := parts[0]
		fracPart := strings.TrimRight(parts[1], "0")
		if len(fracPart) == 0 {
			return intPart
		}
		return intPart + "." + fracPart
	}

	return input
}

func SplitPoints(points []shp.Point, parts []int32) [][]shp.Point {
	var polygons [][]shp.Point
	for i, partIndex := range parts {
		start := partIndex
		var end int32
		if i < len(parts)-1 {
			end = parts[i+1]
		} else {
			end = int32(len(points))
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			continue
		}
		polygons = append(polygons, points[start:end])
	}
	return polygons
}

func IsClockwise(points []orb.Point) bool {
	sum := 0.0
	for i := 0; i < len(points)-1; i++ {
		p1 := points[i]
		p2 := points[i+1]
		sum += (p2[0] - p1[0]) * (p2[1] + p1[1])
	}
	// If sum is positive, points are in clockwise order.
	return sum > 0
}

// groupRings 按环方向分组：顺时针为外环，其后的逆时针环为其内环
// 首个环即使为逆时针也作为外环处理
func groupRings(dounts []bool) [][]int {
	var result [][]int
	for i, outer := range dounts {
		if outer || len(result) == 0 {
			result = append(result, []int{i})
			continue
		}
		result[len(result)-1] = append(result[len(result)-1], i)
	}
	return result
}

// ConvertSHPToGeoJSON 读取 shapefile 为 GeoJSON 要素集合，并返回识别出的坐标系
// fallbackEncoding 为缺少 .cpg 时 DBF 文本使用的编码
func ConvertSHPToGeoJSON(shpfileFilePath string, fallbackEncoding string) (*geojson.FeatureCollection, string, error) {
	if err := checkCompanionFiles(shpfileFilePath); err != nil {
		return nil, "", err
	}

	shape, err := shp.Open(shpfileFilePath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, shpfileFilePath, err)
	}
	defer shape.Close()

	featureCollection := geojson.NewFeatureCollection()
	fields := shape.Fields()
	decode := newTextDecoder(readCPGEncoding(shpfileFilePath, fallbackEncoding))
	detector := &crsDetector{}

	for shape.Next() {
		n, p := shape.Shape()

		var geometry orb.Geometry
		switch s := p.(type) {
		case *shp.Point:
			geometry = pointGeometry(s.X, s.Y, detector)
		case *shp.PointZ:
			geometry = pointGeometry(s.X, s.Y, detector)
		case *shp.PointM:
			geometry = pointGeometry(s.X, s.Y, detector)
		case *shp.PolyLine:
			geometry = lineGeometry(s.Points, detector)
		case *shp.PolyLineZ:
			geometry = lineGeometry(s.Points, detector)
		case *shp.PolyLineM:
			geometry = lineGeometry(s.Points, detector)
		case *shp.Polygon:
			geometry = polygonGeometry(s.Points, s.Parts, detector)
		case *shp.PolygonZ:
			geometry = polygonGeometry(s.Points, s.Parts, detector)
		case *shp.PolygonM:
			geometry = polygonGeometry(s.Points, s.Parts, detector)
		default:
			// 空几何或不支持的类型
			continue
		}
		if geometry == nil {
			continue
		}

		feature := geojson.NewFeature(geometry)
		feature.Properties = buildAttributes(n, shape, fields, decode)
		featureCollection.Append(feature)
	}
	if err := shape.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, shpfileFilePath, err)
	}

	crs, found := readPrjCRS(shpfileFilePath)
	if !found {
		crs = detector.result()
	}
	return featureCollection, crs, nil
}

// checkCompanionFiles 检查 .shx 与 .dbf 是否存在
func checkCompanionFiles(shpfileFilePath string) error {
	if _, err := os.Stat(shpfileFilePath); err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnreadableFile, err)
	}
	base := strings.TrimSuffix(shpfileFilePath, filepath.Ext(shpfileFilePath))
	for _, ext := range []string{".shx", ".dbf"} {
		if !fileExistsAnyCase(base, ext) {
			return fmt.Errorf("%w: %s: missing %s companion file", models.ErrUnreadableFile, shpfileFilePath, ext)
		}
	}
	return nil
}

func fileExistsAnyCase(base, ext string) bool {
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}

// buildAttributes 构建要素属性字典
func buildAttributes(n int, shape *shp.Reader, fields []shp.Field, decode func(string) string) map[string]interface{} {
	attrs := make(map[string]interface{}, len(fields))
	for k, f := range fields {
		attrValue := strings.Trim(shape.ReadAttribute(n, k), " \x00")
		fieldName := strings.Trim(decode(f.String()), " \x00")
		attrs[fieldName] = TrimTrailingZeros(decode(attrValue))
	}
	return attrs
}

func pointGeometry(x, y float64, detector *crsDetector) orb.Geometry {
	detector.add(x, y)
	return orb.Point{x, y}
}

func lineGeometry(points []shp.Point, detector *crsDetector) orb.Geometry {
	coords := make(orb.LineString, len(points))
	for i, vertex := range points {
		detector.add(vertex.X, vertex.Y)
		coords[i] = orb.Point{vertex.X, vertex.Y}
	}
	return coords
}

// polygonGeometry 处理面类型几何对象
// 输出环方向遵循 GeoJSON 约定：外环逆时针，内环顺时针；单个面返回 Polygon
func polygonGeometry(points []shp.Point, parts []int32, detector *crsDetector) orb.Geometry {
	rings := SplitPoints(points, parts)
	if len(rings) == 0 {
		return nil
	}

	orbRings := make([]orb.Ring, len(rings))
	dounts := make([]bool, len(rings))
	for i, part := range rings {
		ring := make(orb.Ring, len(part))
		for j, vertex := range part {
			detector.add(vertex.X, vertex.Y)
			ring[j] = orb.Point{vertex.X, vertex.Y}
		}
		orbRings[i] = ring
		dounts[i] = IsClockwise(ring)
	}

	var multiPolygon orb.MultiPolygon
	for _, group := range groupRings(dounts) {
		polygon := make(orb.Polygon, 0, len(group))
		for k, idx := range group {
			polygon = append(polygon, orientRing(orbRings[idx], k == 0))
		}
		multiPolygon = append(multiPolygon, polygon)
	}

	if len(multiPolygon) == 1 {
		return multiPolygon[0]
	}
	return multiPolygon
}

// OrientGeometry 返回环方向符合 GeoJSON 约定的副本，非面几何原样复制
func OrientGeometry(geom orb.Geometry) orb.Geometry {
	switch g := geom.(type) {
	case orb.Polygon:
		return orientPolygon(g.Clone())
	case orb.MultiPolygon:
		mp := g.Clone()
		for i := range mp {
			mp[i] = orientPolygon(mp[i])
		}
		return mp
	case nil:
		return nil
	}
	return orb.Clone(geom)
}

func orientPolygon(p orb.Polygon) orb.Polygon {
	for i := range p {
		p[i] = orientRing(p[i], i == 0)
	}
	return p
}

// orientRing 外环转为逆时针，内环转为顺时针
func orientRing(ring orb.Ring, outer bool) orb.Ring {
	clockwise := IsClockwise(ring)
	if outer == clockwise {
		ring.Reverse()
	}
	return ring
}
