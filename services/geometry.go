package services

import (
	"fmt"
	"math"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// validateGeometry 只接受点与面，allowMulti 为 true 时接受多面（上传样本）
func validateGeometry(geom orb.Geometry, allowMulti bool) error {
	switch g := geom.(type) {
	case orb.Point:
		return validatePoint(g)
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		if !allowMulti {
			return fmt.Errorf("%w: MultiPolygon is only accepted from uploaded samples", models.ErrInvalidGeometry)
		}
		if len(g) == 0 {
			return fmt.Errorf("%w: empty MultiPolygon", models.ErrInvalidGeometry)
		}
		for _, polygon := range g {
			if err := validatePolygon(polygon); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return fmt.Errorf("%w: missing geometry", models.ErrInvalidGeometry)
	default:
		return fmt.Errorf("%w: unsupported geometry type %s", models.ErrInvalidGeometry, geom.GeoJSONType())
	}
}

func validatePoint(p orb.Point) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", models.ErrInvalidGeometry)
		}
	}
	return nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon without rings", models.ErrInvalidGeometry)
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring %d has %d positions, need at least 4", models.ErrInvalidGeometry, i, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring %d is not closed", models.ErrInvalidGeometry, i)
		}
		for _, pt := range ring {
			if err := validatePoint(pt); err != nil {
				return err
			}
		}
	}
	return nil
}

// withinAOI 点落在研究区内；面要求外环的顶点与边均在研究区内，且不包住研究区的洞
func withinAOI(aoi orb.MultiPolygon, geom orb.Geometry) bool {
	switch g := geom.(type) {
	case orb.Point:
		return planar.MultiPolygonContains(aoi, g)
	case orb.Polygon:
		return polygonWithin(aoi, g)
	case orb.MultiPolygon:
		for _, polygon := range g {
			if !polygonWithin(aoi, polygon) {
				return false
			}
		}
		return true
	}
	return false
}

func polygonWithin(aoi orb.MultiPolygon, p orb.Polygon) bool {
	outer := p[0]
	for _, pt := range outer {
		if !planar.MultiPolygonContains(aoi, pt) {
			return false
		}
	}
	for i := 0; i < len(outer)-1; i++ {
		a, b := outer[i], outer[i+1]
		// 顶点都在区内时，边仍可能穿过凹形研究区的边界
		mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
		if !planar.MultiPolygonContains(aoi, mid) {
			return false
		}
		for _, aoiPolygon := range aoi {
			for _, ring := range aoiPolygon {
				for j := 0; j < len(ring)-1; j++ {
					if segmentsCross(a, b, ring[j], ring[j+1]) {
						return false
					}
				}
			}
		}
	}
	for _, aoiPolygon := range aoi {
		for _, hole := range aoiPolygon[1:] {
			for _, pt := range hole {
				if planar.RingContains(outer, pt) {
					return false
				}
			}
		}
	}
	return true
}

// segmentsCross 两条线段在端点以外相交
func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
