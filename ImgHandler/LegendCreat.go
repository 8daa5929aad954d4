package ImgHandler

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// LegendItem 图例项
type LegendItem struct {
	Label   string `json:"label"`
	Color   string `json:"color"`    // #RRGGBB
	GeoType string `json:"geo_type"` // point 或 polygon
}

var (
	fontOnce   sync.Once
	legendFont *truetype.Font
	fontErr    error
)

// ClassLegendItems 分类表转换为图例项，每个分类一个面符号
func ClassLegendItems(classes []models.LULCClass) []LegendItem {
	items := make([]LegendItem, len(classes))
	for i, class := range classes {
		items[i] = LegendItem{
			Label:   fmt.Sprintf("%d  %s", class.ID, class.Name),
			Color:   class.Color,
			GeoType: "polygon",
		}
	}
	return items
}

func parseHexColor(colorStr string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(colorStr), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", colorStr)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", colorStr, err)
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, nil
}

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		legendFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return legendFont, fontErr
}

func drawText(img *image.RGBA, x, y int, text string, fontSize float64, fontColor color.Color, ttfFont *truetype.Font) error {
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(ttfFont)
	c.SetFontSize(fontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(fontColor))
	c.SetHinting(font.HintingFull)

	pt := freetype.Pt(x, y)
	_, err := c.DrawString(text, pt)
	return err
}

// drawCircle 绘制圆形（用于点符号）
func drawCircle(img *image.RGBA, centerX, centerY, radius int, fillColor color.Color, borderColor color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				img.Set(centerX+x, centerY+y, fillColor)
			}
		}
	}

	for angle := 0.0; angle < 360; angle += 0.5 {
		rad := angle * math.Pi / 180
		x := centerX + int(float64(radius)*math.Cos(rad))
		y := centerY + int(float64(radius)*math.Sin(rad))
		img.Set(x, y, borderColor)
	}
}

// drawPolygonSymbol 绘制面符号（填充矩形）
func drawPolygonSymbol(img *image.RGBA, xPos, yPos, width, height int, fillColor color.Color, borderColor color.Color) {
	draw.Draw(img, image.Rect(xPos, yPos, xPos+width, yPos+height), &image.Uniform{fillColor}, image.Point{}, draw.Src)

	for dx := 0; dx < width; dx++ {
		img.Set(xPos+dx, yPos, borderColor)
		img.Set(xPos+dx, yPos+height-1, borderColor)
	}
	for dy := 0; dy < height; dy++ {
		img.Set(xPos, yPos+dy, borderColor)
		img.Set(xPos+width-1, yPos+dy, borderColor)
	}
}

func drawSymbol(img *image.RGBA, xPos, yPos int, symbolWidth, symbolHeight int, geoType string, symbolColor color.Color) {
	borderColor := color.RGBA{80, 80, 80, 255}

	if strings.EqualFold(geoType, "point") {
		radius := symbolHeight / 2
		drawCircle(img, xPos+symbolWidth/2, yPos+symbolHeight/2, radius-2, symbolColor, borderColor)
		return
	}
	drawPolygonSymbol(img, xPos, yPos, symbolWidth, symbolHeight, symbolColor, borderColor)
}

// CreateLegend 绘制PNG图例
func CreateLegend(items []LegendItem) ([]byte, error) {
	ttfFont, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("load legend font: %w", err)
	}

	itemHeight := 40
	symbolWidth := 50
	symbolHeight := 25
	textOffsetX := 65
	padding := 15
	minItemWidth := 150
	fontSize := 14.0

	itemWidth := minItemWidth
	for _, item := range items {
		w := textOffsetX + calculateTextWidth(item.Label, fontSize, ttfFont) + 20
		if w > itemWidth {
			itemWidth = w
		}
	}

	numItems := len(items)
	numCols := calculateOptimalColumns(numItems, itemWidth, itemHeight)
	numRows := (numItems + numCols - 1) / numCols
	if numRows == 0 {
		numRows = 1
	}

	width := numCols*itemWidth + padding*2
	height := numRows*itemHeight + padding*2
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	for i, item := range items {
		row := i / numCols
		col := i % numCols
		xPos := padding + col*itemWidth
		yPos := padding + row*itemHeight

		symbolColor, err := parseHexColor(item.Color)
		if err != nil {
			return nil, err
		}

		symbolYOffset := (itemHeight - symbolHeight) / 2
		drawSymbol(img, xPos, yPos+symbolYOffset, symbolWidth, symbolHeight, item.GeoType, symbolColor)

		textYOffset := itemHeight/2 + 5
		if err := drawText(img, xPos+textOffsetX, yPos+textYOffset, item.Label, fontSize, color.Black, ttfFont); err != nil {
			return nil, fmt.Errorf("draw legend label %q: %w", item.Label, err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func calculateTextWidth(text string, fontSize float64, ttfFont *truetype.Font) int {
	face := truetype.NewFace(ttfFont, &truetype.Options{Size: fontSize, DPI: 72})
	defer face.Close()

	width := 0
	for _, r := range text {
		advance, ok := face.GlyphAdvance(r)
		if !ok {
			width += int(fontSize)
			continue
		}
		width += advance.Round()
	}
	return width
}

func calculateOptimalColumns(numItems, itemWidth, itemHeight int) int {
	if numItems == 0 {
		return 1
	}

	optimalCols := int(math.Sqrt(float64(numItems) * float64(itemHeight) / float64(itemWidth)))
	if optimalCols < 1 {
		optimalCols = 1
	}
	if optimalCols > 6 {
		optimalCols = 6
	}
	if optimalCols > numItems {
		optimalCols = numItems
	}
	return optimalCols
}
