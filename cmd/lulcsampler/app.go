package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/GrainArc/LULCSampler/config"
	"github.com/GrainArc/LULCSampler/logger"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/GrainArc/LULCSampler/routers"
	"github.com/GrainArc/LULCSampler/services"
	"github.com/GrainArc/LULCSampler/tile_proxy"
	"github.com/GrainArc/LULCSampler/views"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 导出坐标系，前端绘制的几何均为经纬度
const exportCRS = "4326"

type app struct {
	cfg     config.Config
	log     *zap.Logger
	catalog *services.ClassCatalog
	aoi     *models.AreaOfInterest
	session *services.DigitizingSession
	history *services.HistoryService
	db      *gorm.DB
	cache   *tile_proxy.TileCache
	tiles   *tile_proxy.TileProxyService
	engine  *gin.Engine
}

// loadInputs 读取分类表与研究区，配置了路径的文件缺失时报错
func loadInputs(cfg config.Config, log *zap.Logger) (*services.ClassCatalog, *models.AreaOfInterest, error) {
	catalog := services.DefaultCatalog()
	if cfg.ClassCSV != "" {
		var err error
		catalog, err = services.LoadClassCatalog(cfg.ClassCSV)
		if err != nil {
			return nil, nil, fmt.Errorf("load class catalog: %w", err)
		}
	} else {
		log.Warn("no class csv configured, using built-in classes")
	}
	log.Info("class catalog loaded", zap.String("path", cfg.ClassCSV), zap.Int("classes", catalog.Len()))

	if cfg.AOI == "" {
		log.Warn("no area of interest configured")
		return catalog, nil, nil
	}
	aoi, err := services.LoadAOI(cfg.AOI, cfg.DBFEncoding)
	if err != nil {
		return nil, nil, fmt.Errorf("load area of interest: %w", err)
	}
	log.Info("area of interest loaded",
		zap.String("path", cfg.AOI),
		zap.Int("polygons", aoi.Count),
		zap.String("crs", aoi.CRS),
		zap.Int("zoom", aoi.Zoom))
	return catalog, aoi, nil
}

func loadSamples(cfg config.Config, catalog *services.ClassCatalog, log *zap.Logger) (*services.SampleLoadResult, error) {
	result, err := services.LoadSamples(cfg.Samples, cfg.SampleClassField, cfg.DBFEncoding, catalog)
	if err != nil {
		return nil, err
	}
	log.Info("samples loaded",
		zap.String("path", cfg.Samples),
		zap.Int("loaded", result.Loaded),
		zap.Int("unresolved", result.Unresolved),
		zap.Int("unsupported", result.Unsupported))
	return result, nil
}

func openHistory(cfg config.Config, log *zap.Logger) (*services.HistoryService, *gorm.DB, error) {
	if strings.EqualFold(cfg.Database.Type, models.DBNone) {
		log.Info("edit history disabled")
		return services.NewHistoryService(nil, log), nil, nil
	}
	db, err := models.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	log.Info("edit history enabled", zap.String("type", cfg.Database.Type))
	return services.NewHistoryService(db, log), db, nil
}

func newApp(cfg config.Config, log *zap.Logger) (*app, error) {
	catalog, aoi, err := loadInputs(cfg, log)
	if err != nil {
		return nil, err
	}

	history, db, err := openHistory(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := []services.SessionOption{services.WithRecorder(history)}
	if cfg.RestrictToAOI {
		opts = append(opts, services.WithAOIRestriction())
	}
	session := services.NewDigitizingSession(catalog, aoi, opts...)

	if cfg.LoadSamples && cfg.Samples != "" {
		// 样本为可选输入，失败不影响启动
		if result, err := loadSamples(cfg, catalog, log); err != nil {
			log.Warn("skip samples", zap.String("path", cfg.Samples), zap.Error(err))
		} else if _, err := session.MergeSamples(result.Samples); err != nil {
			log.Warn("merge samples failed", zap.Error(err))
		}
	}

	ttl, err := cfg.TileCacheTTL()
	if err != nil {
		return nil, err
	}
	cache := tile_proxy.NewTileCache(cfg.TileCache.Size, ttl)
	tiles := tile_proxy.NewTileProxyService(tile_proxy.DefaultBasemaps(), cache, log)
	if !tiles.SetDefault(cfg.Basemap) {
		log.Warn("unknown basemap, using default", zap.String("basemap", cfg.Basemap))
	}

	controller := views.NewDigitizeController(
		session,
		services.NewExporter(catalog, exportCRS),
		history,
		views.SampleSource{Path: cfg.Samples, ClassField: cfg.SampleClassField, Encoding: cfg.DBFEncoding},
		cfg.Download,
		log,
	)

	return &app{
		cfg:     cfg,
		log:     log,
		catalog: catalog,
		aoi:     aoi,
		session: session,
		history: history,
		db:      db,
		cache:   cache,
		tiles:   tiles,
		engine:  routers.NewEngine(controller, tiles, logger.GinLogger(log)),
	}, nil
}

func (a *app) Close() {
	a.cache.Close()
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// resolveConfig 未指定配置文件时尝试当前目录的 config.xml
func resolveConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat("config.xml"); err != nil {
			return config.MainConfig, nil
		}
		path = "config.xml"
	}
	return config.LoadConfig(path)
}
