package Transformer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var testFields = []ShpField{
	{Name: "class_id", Kind: FieldNumber, Size: 10},
	{Name: "class_name", Kind: FieldString, Size: 120},
}

// 逆时针外环 + 顺时针内环
func squareWithHole() orb.Polygon {
	return orb.Polygon{
		{{104.0, -3.0}, {104.1, -3.0}, {104.1, -2.9}, {104.0, -2.9}, {104.0, -3.0}},
		{{104.02, -2.98}, {104.02, -2.92}, {104.08, -2.92}, {104.08, -2.98}, {104.02, -2.98}},
	}
}

func newFeature(geom orb.Geometry, classID int, name string) *geojson.Feature {
	f := geojson.NewFeature(geom)
	f.Properties["class_id"] = classID
	f.Properties["class_name"] = name
	return f
}

func TestConvertGeoJSONToSHP_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(squareWithHole(), 1, "Forest"))
	fc.Append(newFeature(orb.Point{104.05, -2.95}, 2, "Water"))
	fc.Append(newFeature(orb.MultiPolygon{
		{{{105, -3}, {105.1, -3}, {105.1, -2.9}, {105, -3}}},
		{{{106, -3}, {106.1, -3}, {106.1, -2.9}, {106, -3}}},
	}, 3, "Agriculture"))

	written, err := ConvertGeoJSONToSHP(fc, filepath.Join(dir, "samples.shp"), testFields, "4326")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "samples_point.shp"),
		filepath.Join(dir, "samples_polygon.shp"),
	}, written)
	assert.FileExists(t, filepath.Join(dir, "samples_polygon.cpg"))
	assert.FileExists(t, filepath.Join(dir, "samples_polygon.prj"))

	points, crs, err := ConvertSHPToGeoJSON(written[0], "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "4326", crs)
	require.Len(t, points.Features, 1)
	assert.True(t, orb.Equal(orb.Point{104.05, -2.95}, points.Features[0].Geometry))
	assert.Equal(t, "2", points.Features[0].Properties["class_id"])
	assert.Equal(t, "Water", points.Features[0].Properties["class_name"])

	polygons, _, err := ConvertSHPToGeoJSON(written[1], "UTF-8")
	require.NoError(t, err)
	require.Len(t, polygons.Features, 2)
	assert.True(t, orb.Equal(squareWithHole(), polygons.Features[0].Geometry))
	assert.Equal(t, "1", polygons.Features[0].Properties["class_id"])

	multi, ok := polygons.Features[1].Geometry.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}

func TestConvertGeoJSONToSHP_DoesNotMutateInput(t *testing.T) {
	clockwise := orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	original := orb.Clone(clockwise)

	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(clockwise, 1, "Forest"))
	_, err := ConvertGeoJSONToSHP(fc, filepath.Join(t.TempDir(), "out.shp"), testFields, "4326")
	require.NoError(t, err)
	assert.True(t, orb.Equal(original, clockwise))
}

func TestConvertGeoJSONToSHP_UnsupportedGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(orb.LineString{{0, 0}, {1, 1}}, 1, "Road"))
	_, err := ConvertGeoJSONToSHP(fc, filepath.Join(t.TempDir(), "out.shp"), testFields, "4326")
	assert.ErrorIs(t, err, models.ErrWrite)
}

func TestConvertSHPToGeoJSON_Unreadable(t *testing.T) {
	dir := t.TempDir()

	_, _, err := ConvertSHPToGeoJSON(filepath.Join(dir, "missing.shp"), "UTF-8")
	assert.ErrorIs(t, err, models.ErrUnreadableFile)

	corrupt := filepath.Join(dir, "corrupt.shp")
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt"+ext), []byte("garbage"), 0644))
	}
	_, _, err = ConvertSHPToGeoJSON(corrupt, "UTF-8")
	assert.ErrorIs(t, err, models.ErrUnreadableFile)

	// 缺少 .dbf
	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(orb.Point{1, 1}, 1, "Forest"))
	written, err := ConvertGeoJSONToSHP(fc, filepath.Join(dir, "lonely.shp"), testFields, "4326")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "lonely_point.dbf")))
	_, _, err = ConvertSHPToGeoJSON(written[0], "UTF-8")
	assert.ErrorIs(t, err, models.ErrUnreadableFile)
}

func TestReadVectorFile_Zip(t *testing.T) {
	dir := t.TempDir()
	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(squareWithHole(), 1, "Forest"))
	written, err := ConvertGeoJSONToSHP(fc, filepath.Join(dir, "aoi.shp"), testFields, "4326")
	require.NoError(t, err)

	zipPath := filepath.Join(dir, "aoi.zip")
	require.NoError(t, ZipFiles(ShapefileSidecars(written[0]), zipPath))

	got, crs, err := ReadVectorFile(zipPath, "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "4326", crs)
	require.Len(t, got.Features, 1)
	assert.True(t, orb.Equal(squareWithHole(), got.Features[0].Geometry))

	_, _, err = ReadVectorFile(filepath.Join(dir, "aoi.kml"), "UTF-8")
	assert.ErrorIs(t, err, models.ErrUnreadableFile)
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{"b.SHP", "sub/a.shp", "a.dbf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	files, err := FindFiles(dir, "shp")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.SHP"), filepath.Join(dir, "sub", "a.shp")}, files)

	_, err = FindFiles(filepath.Join(dir, "missing"), "shp")
	assert.Error(t, err)
}

func TestConvertGeoJSONToSHP_RemovesStaleLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.shp")
	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(orb.Point{104.1, -2.9}, 1, "Forest"))
	fc.Append(newFeature(squareWithHole(), 1, "Forest"))
	_, err := ConvertGeoJSONToSHP(fc, path, testFields, "4326")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "s_point.prj"))

	fc.Features = fc.Features[1:]
	written, err := ConvertGeoJSONToSHP(fc, path, testFields, "4326")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "s_polygon.shp")}, written)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".cpg", ".prj"} {
		assert.NoFileExists(t, filepath.Join(dir, "s_point"+ext))
	}
}

func TestOrientGeometry(t *testing.T) {
	clockwise := orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	got := OrientGeometry(clockwise).(orb.Polygon)
	assert.False(t, IsClockwise(got[0]))
	assert.True(t, IsClockwise(clockwise[0]), "input is not modified")

	mp := OrientGeometry(orb.MultiPolygon{clockwise, squareWithHole()}).(orb.MultiPolygon)
	assert.False(t, IsClockwise(mp[0][0]))
	assert.False(t, IsClockwise(mp[1][0]))
	assert.True(t, IsClockwise(mp[1][1]))

	assert.Equal(t, orb.Point{1, 2}, OrientGeometry(orb.Point{1, 2}))
	assert.Nil(t, OrientGeometry(nil))
}

func TestConvertGeoJSONToSHP_ClockwiseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	polygon := OrientGeometry(orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}})
	fc := geojson.NewFeatureCollection()
	fc.Append(newFeature(polygon, 1, "Forest"))
	written, err := ConvertGeoJSONToSHP(fc, filepath.Join(dir, "cw.shp"), testFields, "4326")
	require.NoError(t, err)

	got, _, err := ConvertSHPToGeoJSON(written[0], "UTF-8")
	require.NoError(t, err)
	require.Len(t, got.Features, 1)
	assert.True(t, orb.Equal(polygon, got.Features[0].Geometry))
}

func TestReadGeoJSON(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"collection.geojson": `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"class_id":1}}]}`,
		"feature.json":       `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":null}`,
		"geometry.geojson":   `{"type":"Point","coordinates":[1,2]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			fc, crs, err := ReadVectorFile(path, "UTF-8")
			require.NoError(t, err)
			require.Len(t, fc.Features, 1)
			assert.True(t, orb.Equal(orb.Point{1, 2}, fc.Features[0].Geometry))
			assert.Equal(t, "4326", crs)
		})
	}

	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, _, err := ReadGeoJSON(bad)
	assert.ErrorIs(t, err, models.ErrUnreadableFile)
}

func TestGeometryFromJSON(t *testing.T) {
	geom, err := GeometryFromJSON([]byte(`{"type":"Point","coordinates":[104.1,-3.2]}`))
	require.NoError(t, err)
	assert.Equal(t, orb.Point{104.1, -3.2}, geom)

	geom, err = GeometryFromJSON([]byte(`{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`))
	require.NoError(t, err)
	assert.Equal(t, "Polygon", geom.GeoJSONType())

	_, err = GeometryFromJSON([]byte(`{"type":"Feature","properties":{},"geometry":null}`))
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	_, err = GeometryFromJSON([]byte(`nope`))
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)
}

func TestGroupRings(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1}, {2}}, groupRings([]bool{true, false, true}))
	// 首环逆时针仍作为外环
	assert.Equal(t, [][]int{{0, 1}}, groupRings([]bool{false, false}))
}

func TestTrimTrailingZeros(t *testing.T) {
	assert.Equal(t, "12", TrimTrailingZeros("12.000"))
	assert.Equal(t, "12.5", TrimTrailingZeros("12.50"))
	assert.Equal(t, "Forest", TrimTrailingZeros("Forest"))
}

func TestParsePrj(t *testing.T) {
	assert.Equal(t, "4326", parsePrj(wgs84Prj))
	assert.Equal(t, "32748", parsePrj(`PROJCS["WGS_1984_UTM_Zone_48S",GEOGCS["GCS_WGS_1984"]]`))
	assert.Equal(t, "3857", parsePrj(`PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere"]`))
	assert.Equal(t, "", parsePrj(`PROJCS["Something_Local"]`))
}

func TestNewTextDecoder(t *testing.T) {
	// "测试" 的 GBK 编码
	gbk := string([]byte{0xb2, 0xe2, 0xca, 0xd4})
	assert.Equal(t, "测试", newTextDecoder("GBK")(gbk))
	assert.Equal(t, "测试", newTextDecoder("936")(gbk))
	assert.Equal(t, "é", newTextDecoder("ANSI 1252")(string([]byte{0xe9})))
	assert.Equal(t, "plain", newTextDecoder("UTF-8")("plain"))
	assert.Equal(t, "plain", newTextDecoder("no-such-encoding")("plain"))
}

func TestDecodeText(t *testing.T) {
	out, enc := DecodeText([]byte("class_id,class_name\n1,Forest\n"))
	assert.Equal(t, "UTF-8", enc)
	assert.Equal(t, "class_id,class_name\n1,Forest\n", string(out))

	utf8Text := "森林,水体,耕地,建设用地,未利用地,草地,湿地,裸地\n"
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(utf8Text))
	require.NoError(t, err)
	out, enc = DecodeText(gbk)
	assert.NotEqual(t, "UTF-8", enc)
	assert.Equal(t, utf8Text, string(out))
}

func TestReadCPGEncoding(t *testing.T) {
	dir := t.TempDir()
	shpPath := filepath.Join(dir, "layer.shp")
	assert.Equal(t, "UTF-8", readCPGEncoding(shpPath, "UTF-8"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "layer.cpg"), []byte(" GBK\n"), 0644))
	assert.Equal(t, "GBK", readCPGEncoding(shpPath, "UTF-8"))
}

const testKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
  <name>samples</name>
  <Folder>
    <name>training</name>
    <Placemark>
      <name>forest-1</name>
      <ExtendedData><SchemaData schemaUrl="#s"><SimpleData name="LULC_Type">Forest</SimpleData></SchemaData></ExtendedData>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>
        104.0,-3.0,0 104.1,-3.0,0 104.1,-2.9,0 104.0,-3.0,0
      </coordinates></LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
  </Folder>
  <Placemark>
    <name>water-1</name>
    <ExtendedData><Data name="LULC_Type"><value>2</value></Data></ExtendedData>
    <Point><coordinates>104.5,-2.5</coordinates></Point>
  </Placemark>
  <Placemark>
    <name>multi</name>
    <MultiGeometry>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>0,0 1,0 1,1 0,0</coordinates></LinearRing></outerBoundaryIs></Polygon>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>2,2 3,2 3,3 2,2</coordinates></LinearRing></outerBoundaryIs></Polygon>
    </MultiGeometry>
  </Placemark>
</Document>
</kml>`

func TestReadVectorFile_KML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.kml")
	require.NoError(t, os.WriteFile(path, []byte(testKML), 0o644))

	fc, crs, err := ReadVectorFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, "4326", crs)
	require.Len(t, fc.Features, 3)

	// Document 下的地标先于 Folder 读取
	assert.Equal(t, orb.Point{104.5, -2.5}, fc.Features[0].Geometry)
	assert.Equal(t, "2", fc.Features[0].Properties["LULC_Type"])
	assert.Equal(t, "water-1", fc.Features[0].Properties["kml_name"])

	mp, ok := fc.Features[1].Geometry.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)

	poly, ok := fc.Features[2].Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 4)
	assert.Equal(t, "Forest", fc.Features[2].Properties["LULC_Type"])
}

func TestReadKML_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.kml")
	require.NoError(t, os.WriteFile(bad, []byte(`<kml><Document><Placemark><Point><coordinates>abc</coordinates></Point></Placemark></Document></kml>`), 0o644))
	_, _, err := ReadKML(bad)
	assert.ErrorIs(t, err, models.ErrUnreadableFile)

	_, _, err = ReadKML(filepath.Join(dir, "missing.kml"))
	assert.ErrorIs(t, err, models.ErrUnreadableFile)
}
