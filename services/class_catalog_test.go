package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GrainArc/LULCSampler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestParseClassCatalog(t *testing.T) {
	csv := "class_id,class_name,color\n1,Forest,#228B22\n2,Water,#0000FF\n\n3,Urban/Built-up,#ff0000\n"
	catalog, err := ParseClassCatalog(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []models.LULCClass{
		{ID: 1, Name: "Forest", Color: "#228B22"},
		{ID: 2, Name: "Water", Color: "#0000FF"},
		{ID: 3, Name: "Urban/Built-up", Color: "#ff0000"},
	}, catalog.List())

	forest, err := catalog.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Forest", forest.Name)

	water, err := catalog.ByName(" water ")
	require.NoError(t, err)
	assert.Equal(t, 2, water.ID)

	_, err = catalog.Get(9)
	assert.ErrorIs(t, err, models.ErrUnknownClass)
	_, err = catalog.ByName("Tundra")
	assert.ErrorIs(t, err, models.ErrUnknownClass)
}

func TestParseClassCatalog_HeaderAliases(t *testing.T) {
	csv := "\ufeffLULC_Type,ID,color_palette\nForest,3,#008000\n"
	catalog, err := ParseClassCatalog(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []models.LULCClass{{ID: 3, Name: "Forest", Color: "#008000"}}, catalog.List())
}

func TestParseClassCatalog_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty file":        "",
		"header only":       "class_id,class_name,color\n",
		"missing column":    "class_id,class_name\n1,Forest\n",
		"non integer id":    "class_id,class_name,color\nx,Forest,#228B22\n",
		"missing id":        "class_id,class_name,color\n,Forest,#228B22\n",
		"duplicate id":      "class_id,class_name,color\n1,Forest,#228B22\n1,Water,#0000FF\n",
		"duplicate name":    "class_id,class_name,color\n1,Forest,#228B22\n2,forest,#0000FF\n",
		"empty name":        "class_id,class_name,color\n1, ,#228B22\n",
		"bad color":         "class_id,class_name,color\n1,Forest,green\n",
		"short color":       "class_id,class_name,color\n1,Forest,#FFF\n",
		"short row":         "class_id,class_name,color\n1,Forest\n",
		"unbalanced quotes": "class_id,class_name,color\n1,\"Forest,#228B22\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassCatalog(strings.NewReader(content))
			assert.ErrorIs(t, err, models.ErrMalformedCatalog)
		})
	}
}

func TestLoadClassCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lc_classes.csv")
	require.NoError(t, os.WriteFile(path, []byte("class_id,class_name,color\n1,Forest,#228B22\n"), 0644))

	catalog, err := LoadClassCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	_, err = LoadClassCatalog(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, models.ErrUnreadableFile)
}

func TestLoadClassCatalog_GBK(t *testing.T) {
	csvText := "class_id,class_name,color\n" +
		"1,天然林地与人工林地,#228B22\n" +
		"2,河流湖泊水库坑塘,#0000FF\n" +
		"3,水田旱地与园地,#FFD700\n" +
		"4,城镇村及工矿用地,#DC143C\n"
	data, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(csvText))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "lc_gbk.csv")
	require.NoError(t, os.WriteFile(path, data, 0644))

	catalog, err := LoadClassCatalog(path)
	require.NoError(t, err)
	require.Equal(t, 4, catalog.Len())
	class, err := catalog.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "河流湖泊水库坑塘", class.Name)
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.Equal(t, 5, catalog.Len())
	urban, err := catalog.ByName("Urban/Built-up")
	require.NoError(t, err)
	assert.Equal(t, 1, urban.ID)
	assert.True(t, catalog.Has(5))
	assert.False(t, catalog.Has(6))
}

func TestClassCatalog_ListIsCopy(t *testing.T) {
	catalog := DefaultCatalog()
	list := catalog.List()
	list[0].Name = "changed"
	first, err := catalog.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Urban/Built-up", first.Name)
}
