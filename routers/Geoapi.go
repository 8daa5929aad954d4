package routers

import (
	"net/http"

	"github.com/GrainArc/LULCSampler/tile_proxy"
	"github.com/GrainArc/LULCSampler/views"
	"github.com/GrainArc/LULCSampler/web"
	"github.com/gin-gonic/gin"
)

// GeoRouters 标注接口
func GeoRouters(r *gin.Engine, dc *views.DigitizeController, tiles *tile_proxy.TileProxyService) {
	apiRouter := r.Group("/api")
	{
		apiRouter.GET("/classes", dc.ListClasses)
		apiRouter.GET("/classes/:id", dc.GetClass)
		apiRouter.GET("/legend.png", dc.Legend)
		apiRouter.GET("/aoi", dc.GetAOI)
	}
	{
		apiRouter.GET("/session", dc.GetSession)
		apiRouter.PUT("/session/active-class", dc.SetActiveClass)
		apiRouter.PUT("/session/view", dc.SetView)
	}
	{
		apiRouter.GET("/features", dc.ListFeatures)
		apiRouter.POST("/features", dc.AddFeature)
		apiRouter.DELETE("/features", dc.ClearFeatures)
		apiRouter.GET("/features/:ref", dc.GetFeature)
		apiRouter.DELETE("/features/:ref", dc.RemoveFeature)
		apiRouter.PUT("/features/:ref/class", dc.UpdateFeatureClass)
		apiRouter.PUT("/features/:ref/geometry", dc.UpdateFeatureGeometry)
	}
	{
		apiRouter.POST("/samples/load", dc.LoadSamples)
		apiRouter.GET("/summary", dc.Summary)
		apiRouter.POST("/export", dc.Export)
		apiRouter.GET("/export/download", dc.Download)
		apiRouter.GET("/history/edits", dc.EditHistory)
		apiRouter.GET("/history/exports", dc.ExportHistory)
	}

	if tiles != nil {
		apiRouter.GET("/basemaps", tiles.ListBasemaps)
		tiles.RegisterRoutes(r)
	}
}

// WebRouters 前端页面
func WebRouters(r *gin.Engine) {
	index := web.Index()
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	r.StaticFS("/static", http.FS(web.Static()))
}

// NewEngine 组装全部路由
func NewEngine(dc *views.DigitizeController, tiles *tile_proxy.TileProxyService, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware...)
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 64 << 20
	WebRouters(r)
	GeoRouters(r, dc, tiles)
	return r
}
