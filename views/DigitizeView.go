package views

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/GrainArc/LULCSampler/ImgHandler"
	"github.com/GrainArc/LULCSampler/Transformer"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/GrainArc/LULCSampler/response"
	"github.com/GrainArc/LULCSampler/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const defaultExportName = "lulc_samples"

var exportNameRegex = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)

var uploadExtensions = map[string]bool{
	".zip":     true,
	".rar":     true,
	".geojson": true,
	".json":    true,
	".kml":     true,
}

// SampleSource 样本文件配置
type SampleSource struct {
	Path       string
	ClassField string
	Encoding   string
}

// DigitizeController 标注会话接口
type DigitizeController struct {
	session  *services.DigitizingSession
	exporter *services.Exporter
	history  *services.HistoryService
	samples  SampleSource
	outDir   string
	log      *zap.Logger
}

func NewDigitizeController(session *services.DigitizingSession, exporter *services.Exporter, history *services.HistoryService, samples SampleSource, outDir string, log *zap.Logger) *DigitizeController {
	if log == nil {
		log = zap.NewNop()
	}
	return &DigitizeController{
		session:  session,
		exporter: exporter,
		history:  history,
		samples:  samples,
		outDir:   outDir,
		log:      log,
	}
}

type classRequest struct {
	ClassID *int `json:"class_id" binding:"required"`
}

type exportRequest struct {
	Format string `json:"format"`
	Name   string `json:"name"`
}

// ListClasses 分类列表
func (dc *DigitizeController) ListClasses(c *gin.Context) {
	response.Success(c, dc.session.Catalog().List())
}

// GetClass 按编号查询分类
func (dc *DigitizeController) GetClass(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	class, err := dc.session.Catalog().Get(id)
	if err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	response.Success(c, class)
}

// Legend 分类图例PNG
func (dc *DigitizeController) Legend(c *gin.Context) {
	data, err := ImgHandler.CreateLegend(ImgHandler.ClassLegendItems(dc.session.Catalog().List()))
	if err != nil {
		dc.log.Error("render legend failed", zap.Error(err))
		response.InternalError(c, "render legend failed")
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// GetAOI 研究区范围与初始视图
func (dc *DigitizeController) GetAOI(c *gin.Context) {
	aoi := dc.session.AOI()
	if aoi == nil {
		response.NotFound(c, "no area of interest loaded")
		return
	}
	response.Success(c, gin.H{
		"geojson": services.AOIFeatureCollection(aoi),
		"bounds":  []float64{aoi.Bound.Min[0], aoi.Bound.Min[1], aoi.Bound.Max[0], aoi.Bound.Max[1]},
		"center":  []float64{aoi.Center[1], aoi.Center[0]},
		"zoom":    aoi.Zoom,
		"crs":     aoi.CRS,
		"count":   aoi.Count,
	})
}

// GetSession 当前分类、视图与要素
func (dc *DigitizeController) GetSession(c *gin.Context) {
	state := dc.session.State()
	response.Success(c, gin.H{
		"active_class": state.ActiveClass,
		"view":         state.View,
		"features":     dc.session.FeatureCollection(),
	})
}

// SetActiveClass 选择当前分类
func (dc *DigitizeController) SetActiveClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	class, err := dc.session.SetActiveClass(*req.ClassID)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, class)
}

// SetView 保存地图视图
func (dc *DigitizeController) SetView(c *gin.Context) {
	var view models.MapView
	if err := c.ShouldBindJSON(&view); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := dc.session.SetView(view); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, view)
}

// ListFeatures 全部要素
func (dc *DigitizeController) ListFeatures(c *gin.Context) {
	response.Success(c, dc.session.FeatureCollection())
}

// AddFeature 新增要素，请求体为 GeoJSON 几何或 Feature
func (dc *DigitizeController) AddFeature(c *gin.Context) {
	geom, ok := readGeometry(c)
	if !ok {
		return
	}
	f, err := dc.session.AddFeature(geom)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, services.EditableFeature(f, dc.session.Catalog()))
}

// GetFeature 查询单个要素
func (dc *DigitizeController) GetFeature(c *gin.Context) {
	f, err := dc.session.Get(c.Param("ref"))
	if err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	response.Success(c, services.EditableFeature(f, dc.session.Catalog()))
}

// RemoveFeature 删除要素
func (dc *DigitizeController) RemoveFeature(c *gin.Context) {
	ref := c.Param("ref")
	if err := dc.session.RemoveFeature(ref); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, gin.H{"ref": ref})
}

// ClearFeatures 清空要素
func (dc *DigitizeController) ClearFeatures(c *gin.Context) {
	removed := dc.session.Clear()
	response.Success(c, gin.H{"removed": removed})
}

// UpdateFeatureClass 修改要素分类
func (dc *DigitizeController) UpdateFeatureClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	f, err := dc.session.UpdateClass(c.Param("ref"), *req.ClassID)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, services.EditableFeature(f, dc.session.Catalog()))
}

// UpdateFeatureGeometry 修改要素几何
func (dc *DigitizeController) UpdateFeatureGeometry(c *gin.Context) {
	geom, ok := readGeometry(c)
	if !ok {
		return
	}
	f, err := dc.session.UpdateGeometry(c.Param("ref"), geom)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, services.EditableFeature(f, dc.session.Catalog()))
}

// LoadSamples 加载样本并合并到会话
// 支持上传压缩的 shapefile、GeoJSON 或 KML（表单字段 file），否则读取配置的样本路径
func (dc *DigitizeController) LoadSamples(c *gin.Context) {
	classField := c.DefaultPostForm("class_field", dc.samples.ClassField)
	path := dc.samples.Path

	if file, err := c.FormFile("file"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !uploadExtensions[ext] {
			response.BadRequest(c, "sample upload must be a zipped shapefile, GeoJSON or KML file")
			return
		}
		tmpDir, err := os.MkdirTemp("", "lulc-upload-*")
		if err != nil {
			response.InternalError(c, "create upload dir failed")
			return
		}
		defer os.RemoveAll(tmpDir)
		path = filepath.Join(tmpDir, uuid.NewString()+ext)
		if err := c.SaveUploadedFile(file, path); err != nil {
			response.InternalError(c, "save upload failed")
			return
		}
	}
	if path == "" {
		response.BadRequest(c, "no sample file configured or uploaded")
		return
	}

	result, err := services.LoadSamples(path, classField, dc.samples.Encoding, dc.session.Catalog())
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	if _, err := dc.session.MergeSamples(result.Samples); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	dc.log.Info("samples merged",
		zap.Int("loaded", result.Loaded),
		zap.Int("unresolved", result.Unresolved),
		zap.Int("unsupported", result.Unsupported))
	response.Success(c, result)
}

// Summary 分类统计
func (dc *DigitizeController) Summary(c *gin.Context) {
	response.Success(c, services.Summarize(dc.session.Catalog(), dc.session.Features()))
}

// Export 导出到输出目录
func (dc *DigitizeController) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	format := req.Format
	if format == "" {
		format = services.FormatGeoJSON
	}
	format, err := services.NormalizeFormat(format, "")
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}

	path := filepath.Join(dc.outDir, exportFileName(req.Name)+services.FormatExtension(format))
	result, err := dc.export(path, format)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success(c, result)
}

// Download 导出并下载，shapefile 打包为 zip
func (dc *DigitizeController) Download(c *gin.Context) {
	format, err := services.NormalizeFormat(c.DefaultQuery("format", services.FormatGeoJSON), "")
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}

	tmpDir, err := os.MkdirTemp("", "lulc-export-*")
	if err != nil {
		response.InternalError(c, "create export dir failed")
		return
	}
	defer os.RemoveAll(tmpDir)

	name := exportFileName(c.Query("name"))
	path := filepath.Join(tmpDir, name+services.FormatExtension(format))
	result, err := dc.export(path, format)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}

	if format == services.FormatShapefile {
		if len(result.Files) == 0 {
			response.NotFound(c, "no features to export")
			return
		}
		zipPath := filepath.Join(tmpDir, name+".zip")
		if err := Transformer.ZipFiles(result.Files, zipPath); err != nil {
			writeError(c, err, http.StatusBadRequest)
			return
		}
		path = zipPath
	}
	c.FileAttachment(path, filepath.Base(path))
}

// EditHistory 编辑记录
func (dc *DigitizeController) EditHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := dc.history.Edits(limit)
	if err != nil {
		dc.log.Error("query edit history failed", zap.Error(err))
		response.InternalError(c, "query edit history failed")
		return
	}
	response.Success(c, records)
}

// ExportHistory 导出记录
func (dc *DigitizeController) ExportHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := dc.history.Exports(limit)
	if err != nil {
		dc.log.Error("query export history failed", zap.Error(err))
		response.InternalError(c, "query export history failed")
		return
	}
	response.Success(c, records)
}

func (dc *DigitizeController) export(path, format string) (*services.ExportResult, error) {
	start := time.Now()
	result, err := dc.exporter.Export(dc.session.Features(), path, format)
	if err != nil {
		dc.log.Error("export failed", zap.String("format", format), zap.String("path", path), zap.Error(err))
		return nil, err
	}
	if err := dc.history.RecordExport(result, path); err != nil {
		dc.log.Warn("record export failed", zap.Error(err))
	}
	dc.log.Info("session exported",
		zap.String("format", result.Format),
		zap.Int("features", result.FeatureCount),
		zap.Strings("files", result.Files),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func readGeometry(c *gin.Context) (orb.Geometry, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "read request body failed")
		return nil, false
	}
	geom, err := Transformer.GeometryFromJSON(body)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return nil, false
	}
	return geom, true
}

func exportFileName(name string) string {
	name = exportNameRegex.ReplaceAllString(strings.TrimSpace(filepath.Base(name)), "_")
	name = strings.Trim(name, "_.")
	if name == "" {
		return defaultExportName
	}
	return name
}

// writeError 将业务错误映射为HTTP状态
// unknownClass 区分查询（404）与修改（400）场景
func writeError(c *gin.Context, err error, unknownClass int) {
	msg := err.Error()
	switch {
	case errors.Is(err, models.ErrUnknownClass):
		response.Error(c, unknownClass, msg)
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, msg)
	case errors.Is(err, models.ErrNoActiveClass):
		response.Conflict(c, msg)
	case errors.Is(err, models.ErrOutsideAOI):
		response.UnprocessableEntity(c, msg)
	case errors.Is(err, models.ErrInvalidGeometry),
		errors.Is(err, models.ErrInvalidView),
		errors.Is(err, models.ErrUnsupportedFormat),
		errors.Is(err, models.ErrUnreadableFile):
		response.BadRequest(c, msg)
	case errors.Is(err, models.ErrWrite):
		response.InternalError(c, msg)
	default:
		response.InternalError(c, fmt.Sprintf("unexpected error: %v", err))
	}
}
