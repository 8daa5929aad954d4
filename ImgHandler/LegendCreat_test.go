package ImgHandler

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLegend(t *testing.T) {
	items := ClassLegendItems([]models.LULCClass{
		{ID: 1, Name: "Forest", Color: "#228B22"},
		{ID: 2, Name: "Water", Color: "#0000FF"},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "1  Forest", items[0].Label)

	data, err := CreateLegend(items)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, img.Bounds().Dx(), 150)

	// 第一个符号中心为分类颜色
	r, g, b, _ := img.At(15+25, 15+20).RGBA()
	assert.Equal(t, color.RGBA{0x22, 0x8B, 0x22, 0xFF}, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xFF})
}

func TestCreateLegend_Empty(t *testing.T) {
	data, err := CreateLegend(nil)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestCreateLegend_BadColor(t *testing.T) {
	_, err := CreateLegend([]LegendItem{{Label: "x", Color: "green"}})
	assert.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#FFA500")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 165, 0, 255}, c)

	_, err = parseHexColor("#FFF")
	assert.Error(t, err)
}

func TestCalculateOptimalColumns(t *testing.T) {
	assert.Equal(t, 1, calculateOptimalColumns(0, 150, 40))
	assert.Equal(t, 1, calculateOptimalColumns(3, 150, 40))
	assert.Equal(t, 6, calculateOptimalColumns(1000, 150, 40))
}

func TestCreateLegend_PointSymbol(t *testing.T) {
	data, err := CreateLegend([]LegendItem{
		{Label: "sample", Color: "#0000FF", GeoType: "point"},
		{Label: "area", Color: "#0000FF", GeoType: "polygon"},
	})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	rgb := func(x, y int) color.RGBA {
		r, g, b, _ := img.At(x, y).RGBA()
		return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xFF}
	}
	blue := color.RGBA{0, 0, 0xFF, 0xFF}
	white := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}

	// 符号框左上为 (15, 22)，大小 50x25
	assert.Equal(t, blue, rgb(15+25, 22+12))
	assert.Equal(t, white, rgb(15+2, 22+2), "point symbol is a circle, corner stays empty")

	// 两项排为一列，面符号在第二行，角点被填充
	require.Equal(t, 2*40+2*15, img.Bounds().Dy())
	assert.Equal(t, blue, rgb(15+2, 62+2))
}
