package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/GrainArc/LULCSampler/Transformer"
	"github.com/GrainArc/LULCSampler/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EditRecorder 接收会话编辑记录
type EditRecorder interface {
	RecordEdit(rec models.EditRecord)
}

// SessionOption 会话可选配置
type SessionOption func(*DigitizingSession)

// WithAOIRestriction 新增与修改的数字化要素必须位于研究区内
func WithAOIRestriction() SessionOption {
	return func(s *DigitizingSession) {
		s.restrictToAOI = true
	}
}

// WithRecorder 设置编辑记录接收方
func WithRecorder(r EditRecorder) SessionOption {
	return func(s *DigitizingSession) {
		s.recorder = r
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) SessionOption {
	return func(s *DigitizingSession) {
		s.now = now
	}
}

// DigitizingSession 内存中的标注会话
type DigitizingSession struct {
	mu            sync.RWMutex
	catalog       *ClassCatalog
	aoi           *models.AreaOfInterest
	restrictToAOI bool
	recorder      EditRecorder
	now           func() time.Time

	activeClass *int
	features    []*models.DigitizedFeature
	nextID      int
	view        models.MapView
}

// SessionState 会话快照
type SessionState struct {
	ActiveClass *models.LULCClass         `json:"active_class"`
	View        models.MapView            `json:"view"`
	Features    []models.DigitizedFeature `json:"features"`
}

func NewDigitizingSession(catalog *ClassCatalog, aoi *models.AreaOfInterest, opts ...SessionOption) *DigitizingSession {
	s := &DigitizingSession{
		catalog: catalog,
		aoi:     aoi,
		now:     time.Now,
		nextID:  1,
		view:    models.MapView{Zoom: 2},
	}
	if aoi != nil {
		s.view = models.MapView{Lat: aoi.Center[1], Lon: aoi.Center[0], Zoom: aoi.Zoom}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetActiveClass 选择当前分类
func (s *DigitizingSession) SetActiveClass(id int) (models.LULCClass, error) {
	class, err := s.catalog.Get(id)
	if err != nil {
		return models.LULCClass{}, err
	}
	s.mu.Lock()
	s.activeClass = &class.ID
	s.mu.Unlock()
	return class, nil
}

// ActiveClass 返回当前分类，未选择时 ok 为 false
func (s *DigitizingSession) ActiveClass() (models.LULCClass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeClass == nil {
		return models.LULCClass{}, false
	}
	class, err := s.catalog.Get(*s.activeClass)
	return class, err == nil
}

// AddFeature 以当前分类新增一个数字化要素，面的环方向统一为外环逆时针
func (s *DigitizingSession) AddFeature(geom orb.Geometry) (models.DigitizedFeature, error) {
	if _, ok := s.ActiveClass(); !ok {
		return models.DigitizedFeature{}, models.ErrNoActiveClass
	}
	if err := validateGeometry(geom, false); err != nil {
		return models.DigitizedFeature{}, err
	}
	if err := s.checkAOI(geom); err != nil {
		return models.DigitizedFeature{}, err
	}

	s.mu.Lock()
	if s.activeClass == nil {
		s.mu.Unlock()
		return models.DigitizedFeature{}, models.ErrNoActiveClass
	}
	f := s.appendLocked(Transformer.OrientGeometry(geom), *s.activeClass, models.SourceDigitized)
	out := copyFeature(f)
	s.mu.Unlock()

	s.record(models.EditRecord{
		Action:       models.ActionAdd,
		FeatureRef:   out.Ref,
		NewClassID:   out.ClassID,
		GeometryType: geom.GeoJSONType(),
	})
	return out, nil
}

func (s *DigitizingSession) appendLocked(geom orb.Geometry, classID int, source string) *models.DigitizedFeature {
	f := &models.DigitizedFeature{
		Ref:       uuid.NewString(),
		FeatureID: s.nextID,
		Geometry:  geom,
		ClassID:   classID,
		Source:    source,
		CreatedAt: s.now(),
	}
	s.nextID++
	s.features = append(s.features, f)
	return f
}

// UpdateClass 修改要素分类
func (s *DigitizingSession) UpdateClass(ref string, classID int) (models.DigitizedFeature, error) {
	s.mu.Lock()
	f, _, err := s.findLocked(ref)
	if err != nil {
		s.mu.Unlock()
		return models.DigitizedFeature{}, err
	}
	if !s.catalog.Has(classID) {
		s.mu.Unlock()
		return models.DigitizedFeature{}, fmt.Errorf("%w: %d", models.ErrUnknownClass, classID)
	}
	oldClass := f.ClassID
	f.ClassID = classID
	out := copyFeature(f)
	s.mu.Unlock()

	s.record(models.EditRecord{
		Action:       models.ActionUpdateClass,
		FeatureRef:   ref,
		OldClassID:   oldClass,
		NewClassID:   classID,
		GeometryType: out.Geometry.GeoJSONType(),
	})
	return out, nil
}

// UpdateGeometry 替换要素几何，分类保持不变
func (s *DigitizingSession) UpdateGeometry(ref string, geom orb.Geometry) (models.DigitizedFeature, error) {
	s.mu.Lock()
	f, _, err := s.findLocked(ref)
	if err != nil {
		s.mu.Unlock()
		return models.DigitizedFeature{}, err
	}
	uploaded := f.Source == models.SourceUploaded
	if err := validateGeometry(geom, uploaded); err != nil {
		s.mu.Unlock()
		return models.DigitizedFeature{}, err
	}
	if !uploaded {
		if err := s.checkAOI(geom); err != nil {
			s.mu.Unlock()
			return models.DigitizedFeature{}, err
		}
	}
	f.Geometry = Transformer.OrientGeometry(geom)
	out := copyFeature(f)
	s.mu.Unlock()

	s.record(models.EditRecord{
		Action:       models.ActionUpdateGeometry,
		FeatureRef:   ref,
		OldClassID:   out.ClassID,
		NewClassID:   out.ClassID,
		GeometryType: geom.GeoJSONType(),
	})
	return out, nil
}

// RemoveFeature 删除要素，引用无效时会话保持不变
func (s *DigitizingSession) RemoveFeature(ref string) error {
	s.mu.Lock()
	f, idx, err := s.findLocked(ref)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.features = append(s.features[:idx], s.features[idx+1:]...)
	s.mu.Unlock()

	s.record(models.EditRecord{
		Action:       models.ActionRemove,
		FeatureRef:   ref,
		OldClassID:   f.ClassID,
		GeometryType: f.Geometry.GeoJSONType(),
	})
	return nil
}

// Get 按引用获取要素
func (s *DigitizingSession) Get(ref string) (models.DigitizedFeature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, _, err := s.findLocked(ref)
	if err != nil {
		return models.DigitizedFeature{}, err
	}
	return copyFeature(f), nil
}

// Features 按绘制顺序返回全部要素的副本
func (s *DigitizingSession) Features() []models.DigitizedFeature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DigitizedFeature, len(s.features))
	for i, f := range s.features {
		out[i] = copyFeature(f)
	}
	return out
}

func (s *DigitizingSession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

// Clear 清空全部要素，当前分类与视图保留
func (s *DigitizingSession) Clear() int {
	s.mu.Lock()
	n := len(s.features)
	s.features = nil
	s.nextID = 1
	s.mu.Unlock()

	s.record(models.EditRecord{
		Action:     models.ActionClear,
		Properties: jsonProperties(map[string]interface{}{"removed": n}),
	})
	return n
}

// MergeSamples 合并上传样本，替换之前合并的样本；返回合并数量
func (s *DigitizingSession) MergeSamples(samples []models.SampleFeature) (int, error) {
	for i, sample := range samples {
		if !s.catalog.Has(sample.ClassID) {
			return 0, fmt.Errorf("%w: sample %d: %d", models.ErrUnknownClass, i, sample.ClassID)
		}
		if err := validateGeometry(sample.Geometry, true); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	s.mu.Lock()
	kept := s.features[:0]
	replaced := 0
	for _, f := range s.features {
		if f.Source == models.SourceUploaded {
			replaced++
			continue
		}
		kept = append(kept, f)
	}
	s.features = kept
	for _, sample := range samples {
		s.appendLocked(Transformer.OrientGeometry(sample.Geometry), sample.ClassID, models.SourceUploaded)
	}
	s.mu.Unlock()

	s.record(models.EditRecord{
		Action:     models.ActionMergeSamples,
		Properties: jsonProperties(map[string]interface{}{"merged": len(samples), "replaced": replaced}),
	})
	return len(samples), nil
}

// SetView 保存地图视图
func (s *DigitizingSession) SetView(view models.MapView) error {
	if view.Lat < -90 || view.Lat > 90 || view.Lon < -180 || view.Lon > 180 {
		return fmt.Errorf("%w: center %.6f,%.6f out of range", models.ErrInvalidView, view.Lat, view.Lon)
	}
	if view.Zoom < 0 || view.Zoom > 22 {
		return fmt.Errorf("%w: zoom %d out of range", models.ErrInvalidView, view.Zoom)
	}
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	return nil
}

func (s *DigitizingSession) View() models.MapView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// State 返回当前分类、视图与要素
func (s *DigitizingSession) State() SessionState {
	state := SessionState{Features: s.Features(), View: s.View()}
	if class, ok := s.ActiveClass(); ok {
		state.ActiveClass = &class
	}
	return state
}

// FeatureCollection 会话要素输出为 GeoJSON，附带 ref 供前端编辑
func (s *DigitizingSession) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range s.Features() {
		fc.Append(EditableFeature(f, s.catalog))
	}
	return fc
}

func (s *DigitizingSession) Catalog() *ClassCatalog {
	return s.catalog
}

func (s *DigitizingSession) AOI() *models.AreaOfInterest {
	return s.aoi
}

func (s *DigitizingSession) checkAOI(geom orb.Geometry) error {
	if !s.restrictToAOI || s.aoi == nil {
		return nil
	}
	if !withinAOI(s.aoi.Geometry, geom) {
		return models.ErrOutsideAOI
	}
	return nil
}

func (s *DigitizingSession) findLocked(ref string) (*models.DigitizedFeature, int, error) {
	for i, f := range s.features {
		if f.Ref == ref {
			return f, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s", models.ErrNotFound, ref)
}

func (s *DigitizingSession) record(rec models.EditRecord) {
	if s.recorder != nil {
		s.recorder.RecordEdit(rec)
	}
}

func copyFeature(f *models.DigitizedFeature) models.DigitizedFeature {
	out := *f
	out.Geometry = orb.Clone(f.Geometry)
	return out
}
