package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/GrainArc/LULCSampler/Transformer"
	"github.com/GrainArc/LULCSampler/models"
)

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CSV表头别名（不区分大小写）
var (
	idColumns    = []string{"class_id", "id"}
	nameColumns  = []string{"class_name", "lulc_type"}
	colorColumns = []string{"color", "color_palette"}
)

// ClassCatalog 分类表，加载后只读
type ClassCatalog struct {
	classes []models.LULCClass
	byID    map[int]int
	byName  map[string]int
}

// NewClassCatalog 校验并构建分类表
func NewClassCatalog(classes []models.LULCClass) (*ClassCatalog, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", models.ErrMalformedCatalog)
	}
	c := &ClassCatalog{
		classes: make([]models.LULCClass, 0, len(classes)),
		byID:    make(map[int]int, len(classes)),
		byName:  make(map[string]int, len(classes)),
	}
	for _, class := range classes {
		class.Name = strings.TrimSpace(class.Name)
		class.Color = strings.TrimSpace(class.Color)
		if class.Name == "" {
			return nil, fmt.Errorf("%w: class %d has an empty name", models.ErrMalformedCatalog, class.ID)
		}
		if !hexColorRegex.MatchString(class.Color) {
			return nil, fmt.Errorf("%w: class %q has invalid color %q", models.ErrMalformedCatalog, class.Name, class.Color)
		}
		if _, ok := c.byID[class.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate class id %d", models.ErrMalformedCatalog, class.ID)
		}
		key := strings.ToLower(class.Name)
		if _, ok := c.byName[key]; ok {
			return nil, fmt.Errorf("%w: duplicate class name %q", models.ErrMalformedCatalog, class.Name)
		}
		c.byID[class.ID] = len(c.classes)
		c.byName[key] = len(c.classes)
		c.classes = append(c.classes, class)
	}
	return c, nil
}

// DefaultCatalog 未配置CSV时使用的内置分类
func DefaultCatalog() *ClassCatalog {
	c, _ := NewClassCatalog([]models.LULCClass{
		{ID: 1, Name: "Urban/Built-up", Color: "#FF0000"},
		{ID: 2, Name: "Agriculture", Color: "#FFA500"},
		{ID: 3, Name: "Forest", Color: "#008000"},
		{ID: 4, Name: "Water", Color: "#0000FF"},
		{ID: 5, Name: "Wetlands", Color: "#800080"},
	})
	return c
}

// LoadClassCatalog 从CSV文件加载分类表，GBK等非UTF-8编码自动识别
func LoadClassCatalog(path string) (*ClassCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnreadableFile, err)
	}
	text, _ := Transformer.DecodeText(data)
	return ParseClassCatalog(bytes.NewReader(text))
}

// ParseClassCatalog 解析带表头的分类CSV
func ParseClassCatalog(r io.Reader) (*ClassCatalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", models.ErrMalformedCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedCatalog, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol := findColumn(header, idColumns)
	nameCol := findColumn(header, nameColumns)
	colorCol := findColumn(header, colorColumns)
	for col, aliases := range map[int][]string{idCol: idColumns, nameCol: nameColumns, colorCol: colorColumns} {
		if col < 0 {
			return nil, fmt.Errorf("%w: missing column %s", models.ErrMalformedCatalog, strings.Join(aliases, "|"))
		}
	}

	var classes []models.LULCClass
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformedCatalog, err)
		}
		if isBlankRecord(record) {
			continue
		}
		if len(record) <= idCol || len(record) <= nameCol || len(record) <= colorCol {
			return nil, fmt.Errorf("%w: line %d: missing values", models.ErrMalformedCatalog, line)
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[idCol]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: class id %q is not an integer", models.ErrMalformedCatalog, line, record[idCol])
		}
		classes = append(classes, models.LULCClass{
			ID:    id,
			Name:  record[nameCol],
			Color: record[colorCol],
		})
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no data rows", models.ErrMalformedCatalog)
	}
	return NewClassCatalog(classes)
}

func findColumn(header []string, aliases []string) int {
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for _, alias := range aliases {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Get 按编号查找分类
func (c *ClassCatalog) Get(id int) (models.LULCClass, error) {
	idx, ok := c.byID[id]
	if !ok {
		return models.LULCClass{}, fmt.Errorf("%w: %d", models.ErrUnknownClass, id)
	}
	return c.classes[idx], nil
}

// ByName 按名称查找分类，不区分大小写
func (c *ClassCatalog) ByName(name string) (models.LULCClass, error) {
	idx, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.LULCClass{}, fmt.Errorf("%w: %q", models.ErrUnknownClass, name)
	}
	return c.classes[idx], nil
}

// Has 判断分类编号是否存在
func (c *ClassCatalog) Has(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// List 按文件顺序返回全部分类
func (c *ClassCatalog) List() []models.LULCClass {
	out := make([]models.LULCClass, len(c.classes))
	copy(out, c.classes)
	return out
}

func (c *ClassCatalog) Len() int {
	return len(c.classes)
}
