package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var MainConfig = Default()

type Config struct {
	XMLName          xml.Name  `xml:"config" yaml:"-"`
	MainRouter       string    `xml:"MainRouter" yaml:"main_router"`
	ClassCSV         string    `xml:"classcsv" yaml:"class_csv"`
	AOI              string    `xml:"aoi" yaml:"aoi"`
	Samples          string    `xml:"samples" yaml:"samples"`
	SampleClassField string    `xml:"sampleclassfield" yaml:"sample_class_field"`
	LoadSamples      bool      `xml:"loadsamples" yaml:"load_samples"`
	RestrictToAOI    bool      `xml:"restricttoaoi" yaml:"restrict_to_aoi"`
	DBFEncoding      string    `xml:"dbfencoding" yaml:"dbf_encoding"`
	Download         string    `xml:"download" yaml:"download"`
	Basemap          string    `xml:"basemap" yaml:"basemap"`
	Database         Database  `xml:"database" yaml:"database"`
	Log              Log       `xml:"log" yaml:"log"`
	TileCache        TileCache `xml:"tilecache" yaml:"tile_cache"`
}

type Database struct {
	Type string `xml:"type" yaml:"type"` // sqlite / postgres / mysql / none
	DSN  string `xml:"dsn" yaml:"dsn"`
}

type Log struct {
	Level  string `xml:"level" yaml:"level"`
	Format string `xml:"format" yaml:"format"` // json / console
}

type TileCache struct {
	Size int    `xml:"size" yaml:"size"`
	TTL  string `xml:"ttl" yaml:"ttl"`
}

// Default 默认配置
func Default() Config {
	return Config{
		MainRouter:       ":8426",
		ClassCSV:         "./data/lc_classes.csv",
		AOI:              "./data/aoi.shp",
		SampleClassField: "LULC_Type",
		DBFEncoding:      "UTF-8",
		Download:         "./OutFile",
		Basemap:          "carto-dark",
		Database: Database{
			Type: "sqlite",
			DSN:  "./OutFile/history.db",
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		TileCache: TileCache{
			Size: 1000,
			TTL:  "10m",
		},
	}
}

// LoadConfig 读取XML或YAML配置文件，空字段使用默认值
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = xml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	MainConfig = cfg
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.MainRouter == "" {
		c.MainRouter = def.MainRouter
	}
	if c.SampleClassField == "" {
		c.SampleClassField = def.SampleClassField
	}
	if c.DBFEncoding == "" {
		c.DBFEncoding = def.DBFEncoding
	}
	if c.Download == "" {
		c.Download = def.Download
	}
	if c.Basemap == "" {
		c.Basemap = def.Basemap
	}
	if c.Database.Type == "" {
		c.Database.Type = def.Database.Type
	}
	if c.Database.DSN == "" && c.Database.Type == def.Database.Type {
		c.Database.DSN = filepath.Join(c.Download, "history.db")
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.TileCache.Size <= 0 {
		c.TileCache.Size = def.TileCache.Size
	}
	if c.TileCache.TTL == "" {
		c.TileCache.TTL = def.TileCache.TTL
	}
}

// Validate 检查配置取值
func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "postgres", "mysql", "none":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if _, err := c.TileCacheTTL(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// TileCacheTTL 瓦片缓存过期时间
func (c Config) TileCacheTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.TileCache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid tile cache ttl %q: %w", c.TileCache.TTL, err)
	}
	return ttl, nil
}
