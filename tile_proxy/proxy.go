package tile_proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GrainArc/LULCSampler/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	ErrUnknownBasemap = errors.New("unknown basemap")
	ErrTileOutOfRange = errors.New("tile coordinate out of range")
)

// TileRequest 瓦片请求参数
type TileRequest struct {
	Basemap string
	Z       int
	X       int
	Y       int
}

// TileProxyService 底图瓦片代理
type TileProxyService struct {
	basemaps   []Basemap
	byID       map[string]Basemap
	defaultID  string
	httpClient *http.Client
	cache      *TileCache
	log        *zap.Logger
}

// NewTileProxyService 创建瓦片代理服务
func NewTileProxyService(basemaps []Basemap, cache *TileCache, log *zap.Logger) *TileProxyService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &TileProxyService{
		basemaps: basemaps,
		byID:     make(map[string]Basemap, len(basemaps)),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache: cache,
		log:   log,
	}
	for _, b := range basemaps {
		s.byID[b.ID] = b
	}
	if len(basemaps) > 0 {
		s.defaultID = basemaps[0].ID
	}
	return s
}

// SetDefault 设置前端默认底图，未知底图返回false
func (s *TileProxyService) SetDefault(id string) bool {
	if !s.Has(id) {
		return false
	}
	s.defaultID = id
	return true
}

// Basemaps 返回底图列表
func (s *TileProxyService) Basemaps() []Basemap {
	out := make([]Basemap, len(s.basemaps))
	copy(out, s.basemaps)
	return out
}

// Has 判断底图是否存在
func (s *TileProxyService) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// RegisterRoutes 注册路由
func (s *TileProxyService) RegisterRoutes(r gin.IRoutes) {
	r.GET("/tiles/:basemap/:z/:x/:y", s.HandleTileRequest)
}

// ListBasemaps 底图列表接口
func (s *TileProxyService) ListBasemaps(c *gin.Context) {
	response.Success(c, gin.H{"default": s.defaultID, "basemaps": s.Basemaps()})
}

// HandleTileRequest 处理瓦片请求
func (s *TileProxyService) HandleTileRequest(c *gin.Context) {
	req, err := parseTileRequest(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, contentType, err := s.GetTile(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrUnknownBasemap):
		response.NotFound(c, err.Error())
		return
	case errors.Is(err, ErrTileOutOfRange):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		s.log.Warn("tile fetch failed", zap.String("basemap", req.Basemap), zap.Int("z", req.Z), zap.Int("x", req.X), zap.Int("y", req.Y), zap.Error(err))
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	sendTileResponse(c, data, contentType)
}

// GetTile 先查缓存，未命中时请求上游
func (s *TileProxyService) GetTile(ctx context.Context, req TileRequest) ([]byte, string, error) {
	basemap, ok := s.byID[req.Basemap]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownBasemap, req.Basemap)
	}
	if err := checkTileRange(req, basemap.MaxZoom); err != nil {
		return nil, "", err
	}

	cacheKey := fmt.Sprintf("%s_%d_%d_%d", req.Basemap, req.Z, req.X, req.Y)
	if item, ok := s.cache.Get(cacheKey); ok {
		return item.Data, item.ContentType, nil
	}

	data, contentType, err := s.fetchTile(ctx, buildTileURL(basemap, req.Z, req.X, req.Y))
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = formatContentType(basemap.Format)
	}
	s.cache.Set(cacheKey, data, contentType)
	return data, contentType, nil
}

func parseTileRequest(c *gin.Context) (TileRequest, error) {
	z, err := strconv.Atoi(c.Param("z"))
	if err != nil {
		return TileRequest{}, fmt.Errorf("invalid z")
	}
	x, err := strconv.Atoi(c.Param("x"))
	if err != nil {
		return TileRequest{}, fmt.Errorf("invalid x")
	}

	// y可能带扩展名
	yStr := c.Param("y")
	if i := strings.IndexByte(yStr, '.'); i >= 0 {
		yStr = yStr[:i]
	}
	y, err := strconv.Atoi(yStr)
	if err != nil {
		return TileRequest{}, fmt.Errorf("invalid y")
	}
	return TileRequest{Basemap: c.Param("basemap"), Z: z, X: x, Y: y}, nil
}

func checkTileRange(req TileRequest, maxZoom int) error {
	if req.Z < 0 || (maxZoom > 0 && req.Z > maxZoom) {
		return fmt.Errorf("%w: z=%d", ErrTileOutOfRange, req.Z)
	}
	n := 1 << uint(req.Z)
	if req.X < 0 || req.X >= n || req.Y < 0 || req.Y >= n {
		return fmt.Errorf("%w: %d/%d/%d", ErrTileOutOfRange, req.Z, req.X, req.Y)
	}
	return nil
}

// buildTileURL 按模板构建瓦片URL，{s} 按坐标轮换子域名
func buildTileURL(basemap Basemap, z, x, y int) string {
	url := basemap.URLTemplate
	if len(basemap.Subdomains) > 0 {
		url = strings.ReplaceAll(url, "{s}", basemap.Subdomains[(x+y)%len(basemap.Subdomains)])
	}
	url = strings.ReplaceAll(url, "{z}", strconv.Itoa(z))
	url = strings.ReplaceAll(url, "{x}", strconv.Itoa(x))
	url = strings.ReplaceAll(url, "{-y}", strconv.Itoa((1<<uint(z))-1-y)) // TMS格式
	url = strings.ReplaceAll(url, "{y}", strconv.Itoa(y))
	return url
}

// fetchTile 获取单个瓦片
func (s *TileProxyService) fetchTile(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "LULCSampler/1.0 (+tile proxy)")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch tile failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tile server returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response failed: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = ""
	}
	return data, contentType, nil
}

func formatContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func sendTileResponse(c *gin.Context, data []byte, contentType string) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Data(http.StatusOK, contentType, data)
}
