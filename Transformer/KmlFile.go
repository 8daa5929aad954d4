package Transformer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Document kmlFolder   `xml:"Document"`
	Folders  []kmlFolder `xml:"Folder"`
}

// kmlFolder Document 与 Folder 结构相同，可任意嵌套
type kmlFolder struct {
	Name       string         `xml:"name"`
	Folders    []kmlFolder    `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name          string            `xml:"name"`
	ExtendedData  kmlExtendedData   `xml:"ExtendedData"`
	Point         *kmlPoint         `xml:"Point"`
	LineString    *kmlLineString    `xml:"LineString"`
	Polygon       *kmlPolygon       `xml:"Polygon"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlExtendedData struct {
	SchemaData []struct {
		SimpleData []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"SimpleData"`
	} `xml:"SchemaData"`
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLinearRing struct {
	Coordinates string `xml:"LinearRing>coordinates"`
}

type kmlPolygon struct {
	Outer kmlLinearRing   `xml:"outerBoundaryIs"`
	Inner []kmlLinearRing `xml:"innerBoundaryIs"`
}

type kmlMultiGeometry struct {
	Points      []kmlPoint      `xml:"Point"`
	LineStrings []kmlLineString `xml:"LineString"`
	Polygons    []kmlPolygon    `xml:"Polygon"`
}

// ReadKML 读取KML地标，坐标系固定为 EPSG:4326
// 属性取自 ExtendedData，地标名称写入 kml_name
func ReadKML(path string) (*geojson.FeatureCollection, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, path, err)
	}
	var root kmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableFile, path, err)
	}

	fc := geojson.NewFeatureCollection()
	var walk func(folder kmlFolder) error
	walk = func(folder kmlFolder) error {
		for _, pm := range folder.Placemarks {
			geoms, err := pm.geometries()
			if err != nil {
				return fmt.Errorf("%w: %s: placemark %q: %v", models.ErrUnreadableFile, path, pm.Name, err)
			}
			for _, geom := range geoms {
				feature := geojson.NewFeature(geom)
				feature.Properties = pm.properties()
				fc.Append(feature)
			}
		}
		for _, sub := range folder.Folders {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root.Document); err != nil {
		return nil, "", err
	}
	for _, folder := range root.Folders {
		if err := walk(folder); err != nil {
			return nil, "", err
		}
	}
	return fc, "4326", nil
}

func (pm kmlPlacemark) properties() geojson.Properties {
	props := geojson.Properties{}
	for _, schema := range pm.ExtendedData.SchemaData {
		for _, d := range schema.SimpleData {
			props[d.Name] = strings.TrimSpace(d.Value)
		}
	}
	for _, d := range pm.ExtendedData.Data {
		props[d.Name] = strings.TrimSpace(d.Value)
	}
	props["kml_name"] = pm.Name
	return props
}

func (pm kmlPlacemark) geometries() ([]orb.Geometry, error) {
	var geoms []orb.Geometry
	if pm.Point != nil {
		p, err := parseKMLPoint(pm.Point.Coordinates)
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, p)
	}
	if pm.LineString != nil {
		ls, err := parseKMLCoordinates(pm.LineString.Coordinates)
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, orb.LineString(ls))
	}
	if pm.Polygon != nil {
		poly, err := pm.Polygon.polygon()
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, poly)
	}
	if mg := pm.MultiGeometry; mg != nil {
		for _, pt := range mg.Points {
			p, err := parseKMLPoint(pt.Coordinates)
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, p)
		}
		for _, line := range mg.LineStrings {
			ls, err := parseKMLCoordinates(line.Coordinates)
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, orb.LineString(ls))
		}
		// 多个面合并为 MultiPolygon
		var mp orb.MultiPolygon
		for _, p := range mg.Polygons {
			poly, err := p.polygon()
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		switch len(mp) {
		case 0:
		case 1:
			geoms = append(geoms, mp[0])
		default:
			geoms = append(geoms, mp)
		}
	}
	return geoms, nil
}

func (p kmlPolygon) polygon() (orb.Polygon, error) {
	outer, err := parseKMLCoordinates(p.Outer.Coordinates)
	if err != nil {
		return nil, err
	}
	poly := orb.Polygon{orb.Ring(outer)}
	for _, inner := range p.Inner {
		ring, err := parseKMLCoordinates(inner.Coordinates)
		if err != nil {
			return nil, err
		}
		poly = append(poly, orb.Ring(ring))
	}
	return poly, nil
}

func parseKMLPoint(coords string) (orb.Point, error) {
	points, err := parseKMLCoordinates(coords)
	if err != nil {
		return orb.Point{}, err
	}
	if len(points) != 1 {
		return orb.Point{}, fmt.Errorf("point has %d coordinates", len(points))
	}
	return points[0], nil
}

// parseKMLCoordinates 解析以空白分隔的 "lon,lat[,alt]" 坐标串
func parseKMLCoordinates(coords string) ([]orb.Point, error) {
	var points []orb.Point
	for _, tuple := range strings.Fields(coords) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid coordinate %q", tuple)
		}
		x, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", tuple)
		}
		y, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", tuple)
		}
		points = append(points, orb.Point{x, y})
	}
	if len(points) == 0 {
		return nil, errors.New("empty coordinates")
	}
	return points, nil
}
