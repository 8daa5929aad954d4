package methods

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/entity"
)

// DXF基本色（ACI 1-7）
var aciPalette = []struct {
	number color.ColorNumber
	rgb    [3]float64
}{
	{color.Red, [3]float64{255, 0, 0}},
	{color.Yellow, [3]float64{255, 255, 0}},
	{color.Green, [3]float64{0, 255, 0}},
	{color.Cyan, [3]float64{0, 255, 255}},
	{color.Blue, [3]float64{0, 0, 255}},
	{color.Magenta, [3]float64{255, 0, 255}},
	{color.White, [3]float64{255, 255, 255}},
}

var layerNameReplacer = strings.NewReplacer("<", "_", ">", "_", "/", "_", "\\", "_", "\"", "_", ":", "_", ";", "_", "?", "_", "*", "_", "|", "_", "=", "_", ",", "_", "`", "_")

// DXFLayerName 图层名去掉DXF不允许的字符
func DXFLayerName(name string) string {
	name = strings.TrimSpace(layerNameReplacer.Replace(name))
	if name == "" {
		return "0_unclassified"
	}
	return name
}

// NearestACI 返回与 #RRGGBB 最接近的DXF基本色
func NearestACI(hex string) color.ColorNumber {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return color.White
	}
	r, g, b := float64(v>>16&0xFF), float64(v>>8&0xFF), float64(v&0xFF)

	best := color.White
	bestDist := math.MaxFloat64
	for _, c := range aciPalette {
		d := (r-c.rgb[0])*(r-c.rgb[0]) + (g-c.rgb[1])*(g-c.rgb[1]) + (b-c.rgb[2])*(b-c.rgb[2])
		if d < bestDist {
			best, bestDist = c.number, d
		}
	}
	return best
}

// ConvertGeoJSONToDXF 按 class_name 属性分图层写出DXF
// 面的每个环写为一条闭合的多段线，点写为 POINT
func ConvertGeoJSONToDXF(featureCollection *geojson.FeatureCollection, outputFilename string) error {
	d := dxf.NewDrawing()
	d.Header().LtScale = 1.0

	layers := make(map[string]bool)
	for _, feature := range featureCollection.Features {
		className, _ := feature.Properties["class_name"].(string)
		layerName := DXFLayerName(className)
		if !layers[layerName] {
			hex, _ := feature.Properties["color"].(string)
			if _, err := d.AddLayer(layerName, NearestACI(hex), dxf.DefaultLineType, false); err != nil {
				return fmt.Errorf("%w: add dxf layer %s: %v", models.ErrWrite, layerName, err)
			}
			layers[layerName] = true
		}
		if err := d.ChangeLayer(layerName); err != nil {
			return fmt.Errorf("%w: change dxf layer %s: %v", models.ErrWrite, layerName, err)
		}

		switch geom := feature.Geometry.(type) {
		case orb.Point:
			if _, err := d.Point(geom[0], geom[1], 0); err != nil {
				return fmt.Errorf("%w: dxf point: %v", models.ErrWrite, err)
			}
		case orb.Polygon:
			addPolygon(d, geom)
		case orb.MultiPolygon:
			for _, polygon := range geom {
				addPolygon(d, polygon)
			}
		default:
			return fmt.Errorf("%w: unsupported geometry type %T", models.ErrWrite, geom)
		}
	}

	if err := d.SaveAs(outputFilename); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrWrite, outputFilename, err)
	}
	return nil
}

// 环本身首尾相同，写出后即为闭合多段线
func addPolygon(d *drawing.Drawing, polygon orb.Polygon) {
	for _, ring := range polygon {
		lwp := entity.NewLwPolyline(len(ring))
		for j, pt := range ring {
			lwp.Vertices[j] = []float64{pt[0], pt[1]}
		}
		d.AddEntity(lwp)
	}
}
