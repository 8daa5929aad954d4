package Transformer

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// WGS84 投影文件内容
const wgs84Prj = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

var utmZoneRegex = regexp.MustCompile(`UTM[_ ]ZONE[_ ](\d{1,2})([NS])`)

// crsDetector 根据坐标范围判断坐标系
type crsDetector struct {
	geographic int
	projected  int
}

func (d *crsDetector) add(x, y float64) {
	if x >= -180 && x <= 180 && y >= -90 && y <= 90 {
		d.geographic++
	} else {
		d.projected++
	}
}

// result 全部坐标落在经纬度范围内时判定为 EPSG:4326，否则未知
func (d *crsDetector) result() string {
	if d.geographic > 0 && d.projected == 0 {
		return "4326"
	}
	return ""
}

// readPrjCRS 读取 .prj 文件并识别常见坐标系
// 返回值 found 表示 prj 文件存在
func readPrjCRS(shpfilePath string) (crs string, found bool) {
	prjPath := strings.TrimSuffix(shpfilePath, filepath.Ext(shpfilePath)) + ".prj"
	content, err := os.ReadFile(prjPath)
	if err != nil {
		return "", false
	}
	return parsePrj(string(content)), true
}

func parsePrj(wkt string) string {
	upper := strings.ToUpper(wkt)
	if strings.HasPrefix(strings.TrimSpace(upper), "PROJCS") {
		if strings.Contains(upper, "WEB_MERCATOR") || strings.Contains(upper, "PSEUDO_MERCATOR") || strings.Contains(upper, "PSEUDO-MERCATOR") {
			return "3857"
		}
		if m := utmZoneRegex.FindStringSubmatch(upper); m != nil && strings.Contains(upper, "WGS") {
			zone, _ := strconv.Atoi(m[1])
			if m[2] == "N" {
				return strconv.Itoa(32600 + zone)
			}
			return strconv.Itoa(32700 + zone)
		}
		return ""
	}
	switch {
	case strings.Contains(upper, "WGS_1984"), strings.Contains(upper, "WGS 84"), strings.Contains(upper, "WGS84"):
		return "4326"
	case strings.Contains(upper, "CHINA_2000"), strings.Contains(upper, "CGCS2000"):
		return "4490"
	}
	return ""
}

// prjForCRS 返回坐标系对应的prj内容，没有内置定义时返回空
func prjForCRS(crs string) string {
	switch crs {
	case "4326", "":
		return wgs84Prj
	default:
		return ""
	}
}
