package Transformer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb/geojson"
)

// ReadVectorFile 按扩展名读取矢量文件，压缩包（.zip/.rar）中取第一个 .shp
func ReadVectorFile(path string, fallbackEncoding string) (*geojson.FeatureCollection, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return ConvertSHPToGeoJSON(path, fallbackEncoding)
	case ".geojson", ".json":
		return ReadGeoJSON(path)
	case ".kml":
		return ReadKML(path)
	case ".zip", ".rar":
		shpPath, cleanup, err := unzipShapefile(path)
		if err != nil {
			return nil, "", err
		}
		defer cleanup()
		return ConvertSHPToGeoJSON(shpPath, fallbackEncoding)
	default:
		return nil, "", fmt.Errorf("%w: %s: unsupported vector format", models.ErrUnreadableFile, path)
	}
}

// ShapefileSidecars 返回 .shp 及同名的 .shx/.dbf/.cpg/.prj 文件路径
func ShapefileSidecars(shpPath string) []string {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	var files []string
	for _, ext := range []string{".shp", ".shx", ".dbf", ".cpg", ".prj"} {
		if fileExistsAnyCase(base, ext) {
			files = append(files, base+ext)
		}
	}
	return files
}
