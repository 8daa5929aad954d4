package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GrainArc/LULCSampler/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const aoiGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"aoi"},
"geometry":{"type":"Polygon","coordinates":[[[104,-3],[105,-3],[105,-2],[104,-2],[104,-3]]]}}]}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "classes.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("ID,LULC_Type,color_palette\n1,Forest,#228B22\n2,Water,#0000FF\n"), 0o644))
	aoiPath := filepath.Join(dir, "aoi.geojson")
	require.NoError(t, os.WriteFile(aoiPath, []byte(aoiGeoJSON), 0o644))

	cfg := config.Default()
	cfg.ClassCSV = csvPath
	cfg.AOI = aoiPath
	cfg.Download = filepath.Join(dir, "out")
	cfg.Database.Type = "none"
	return cfg
}

func TestNewApp_ServesCatalogAndClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := newApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 2, a.catalog.Len())
	require.NotNil(t, a.aoi)
	assert.Equal(t, 1, a.aoi.Count)

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/classes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Forest"`)

	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "leaflet"))

	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/basemaps", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"default":"carto-dark"`)
}

func TestNewApp_MissingMandatoryInputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.ClassCSV = filepath.Join(t.TempDir(), "missing.csv")
	_, err := newApp(cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.AOI = filepath.Join(t.TempDir(), "missing.shp")
	_, err = newApp(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewApp_BuiltInCatalogWithoutCSV(t *testing.T) {
	cfg := testConfig(t)
	cfg.ClassCSV = ""
	cfg.AOI = ""
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, 5, a.catalog.Len())
	assert.Nil(t, a.aoi)
}

func TestNewApp_OptionalSamplesDoNotAbort(t *testing.T) {
	cfg := testConfig(t)
	cfg.LoadSamples = true
	cfg.Samples = filepath.Join(t.TempDir(), "missing.shp")
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, 0, a.session.Len())
}

func TestNewApp_SqliteHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Type = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "history.db")
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.history.Enabled())
}
