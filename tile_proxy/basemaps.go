package tile_proxy

// Basemap 底图定义
type Basemap struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URLTemplate string   `json:"-"`
	Subdomains  []string `json:"-"`
	Attribution string   `json:"attribution"`
	MaxZoom     int      `json:"max_zoom"`
	Format      string   `json:"format"`
}

// DefaultBasemaps 内置底图
func DefaultBasemaps() []Basemap {
	return []Basemap{
		{
			ID:          "carto-dark",
			Name:        "CartoDB Dark",
			URLTemplate: "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
			Subdomains:  []string{"a", "b", "c", "d"},
			Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
			MaxZoom:     20,
			Format:      "png",
		},
		{
			ID:          "esri-satellite",
			Name:        "Satellite (ESRI)",
			URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
			Attribution: "Esri",
			MaxZoom:     19,
			Format:      "jpeg",
		},
		{
			ID:          "google-satellite",
			Name:        "Satellite (Google)",
			URLTemplate: "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
			Attribution: "Google",
			MaxZoom:     20,
			Format:      "jpeg",
		},
		{
			ID:          "osm",
			Name:        "OpenStreetMap",
			URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "&copy; OpenStreetMap contributors",
			MaxZoom:     19,
			Format:      "png",
		},
		{
			ID:          "carto-positron",
			Name:        "CartoDB Positron",
			URLTemplate: "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
			Subdomains:  []string{"a", "b", "c", "d"},
			Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
			MaxZoom:     20,
			Format:      "png",
		},
	}
}
