package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/annel0/worldgen/internal/storage"
	"github.com/annel0/worldgen/internal/vec"
	"github.com/annel0/worldgen/internal/world"
	"github.com/gin-gonic/gin"
)

// errBadRequest помечает ошибки разбора параметров запроса
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor сопоставляет доменные ошибки HTTP-статусам
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, world.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, world.ErrNotFound), errors.Is(err, storage.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, world.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, world.ErrNoPath):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (rs *RestServer) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, GenericResponse{
		Success: false,
		Message: err.Error(),
	})
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ===== DTO =====

type worldInfo struct {
	State        string                   `json:"state"`
	GenerationID string                   `json:"generation_id,omitempty"`
	Settings     world.GenerationSettings `json:"settings"`
	Regions      int                      `json:"regions"`
	Failed       map[string]string        `json:"failed,omitempty"`
	Bounds       *world.Rect              `json:"bounds,omitempty"`
	PlayArea     *world.Rect              `json:"play_area,omitempty"`
}

type regionSummary struct {
	Key    world.RegionKey `json:"key"`
	Offset vec.Vec3Float   `json:"offset"`
	Bounds world.Rect      `json:"bounds"`
	Counts map[string]int  `json:"counts"`
	Zones  []zoneInfo      `json:"zones"`
}

type zoneInfo struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Shape   string     `json:"shape"`
	Anchor  vec.Vec2   `json:"anchor"`
	Color   string     `json:"color"`
	Cells   int        `json:"cells"`
	Members []vec.Vec2 `json:"members,omitempty"`
}

type coordinateInfo struct {
	Key           vec.Vec2      `json:"key"`
	Type          string        `json:"type"`
	WorldPosition vec.Vec3Float `json:"world_position"`
	Height        *float64      `json:"height,omitempty"`
	Zone          string        `json:"zone,omitempty"`
	OnPath        bool          `json:"on_path,omitempty"`
}

type pathInfo struct {
	Region   world.RegionKey `json:"region"`
	Length   int             `json:"length"`
	Excluded []string        `json:"excluded,omitempty"`
	Keys     []vec.Vec2      `json:"keys"`
}

func newZoneInfo(z *world.Zone, withMembers bool) zoneInfo {
	info := zoneInfo{
		Name:   z.Name(),
		Type:   z.Type().String(),
		Shape:  z.Definition().Shape.String(),
		Anchor: z.Anchor(),
		Color:  z.Color().String(),
		Cells:  z.Len(),
	}
	if withMembers {
		info.Members = z.Members()
	}
	return info
}

func newRegionSummary(r *world.Region) regionSummary {
	counts := make(map[string]int)
	for t, n := range r.Coordinates().Counts() {
		counts[t.String()] = n
	}
	zones := r.Zones()
	summary := regionSummary{
		Key:    r.Key(),
		Offset: r.Offset(),
		Bounds: r.Bounds(),
		Counts: counts,
		Zones:  make([]zoneInfo, 0, len(zones)),
	}
	for _, z := range zones {
		summary.Zones = append(summary.Zones, newZoneInfo(z, false))
	}
	return summary
}

func newPathInfo(p *world.Path) pathInfo {
	info := pathInfo{Region: p.Region(), Length: p.Len(), Keys: p.Keys()}
	for _, t := range p.Excluded().Types() {
		info.Excluded = append(info.Excluded, t.String())
	}
	return info
}

// ===== Разбор параметров =====

func regionParam(c *gin.Context) (world.RegionKey, error) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		return world.RegionKey{}, badRequestf("region key must be two integers, got %s/%s", c.Param("x"), c.Param("y"))
	}
	return world.RegionKey{X: x, Y: y}, nil
}

// parseVec2 разбирает "x,y"
func parseVec2(name, s string) (vec.Vec2, error) {
	xs, ys, found := strings.Cut(s, ",")
	if !found {
		return vec.Vec2{}, badRequestf("%s must be \"x,y\", got %q", name, s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return vec.Vec2{}, badRequestf("%s must be \"x,y\", got %q", name, s)
	}
	return vec.Vec2{X: x, Y: y}, nil
}

func parseFloatQuery(c *gin.Context, name string) (float64, error) {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0, badRequestf("%s must be a number, got %q", name, c.Query(name))
	}
	return v, nil
}

// parseTypeSet разбирает список типов через запятую
func parseTypeSet(s string) (world.TypeSet, error) {
	var set world.TypeSet
	if strings.TrimSpace(s) == "" {
		return set, nil
	}
	for _, name := range strings.Split(s, ",") {
		t, err := world.ParseCoordinateType(strings.TrimSpace(name))
		if err != nil {
			return 0, badRequestf("exclude: %v", err)
		}
		set = set.With(t)
	}
	return set, nil
}

// ===== Обработчики =====

// handleWorld возвращает состояние построителя и геометрию мира
func (rs *RestServer) handleWorld(c *gin.Context) {
	info := worldInfo{
		State:    rs.world.State().String(),
		Settings: rs.world.Settings(),
	}

	if id, err := rs.world.GenerationID(); err == nil {
		info.GenerationID = id
		regions, _ := rs.world.Regions()
		info.Regions = len(regions)
		if failures, err := rs.world.Failures(); err == nil && len(failures) > 0 {
			info.Failed = make(map[string]string, len(failures))
			for k, ferr := range failures {
				info.Failed[k.String()] = ferr.Error()
			}
		}
		if bounds, err := rs.world.Bounds(); err == nil {
			info.Bounds = &bounds
		}
		if area, err := rs.world.PlayArea(); err == nil {
			info.PlayArea = &area
		}
	}

	ok(c, "Состояние мира", info)
}

func (rs *RestServer) handleRegions(c *gin.Context) {
	regions, err := rs.world.Regions()
	if err != nil {
		rs.fail(c, err)
		return
	}
	out := make([]regionSummary, 0, len(regions))
	for _, r := range regions {
		out = append(out, newRegionSummary(r))
	}
	ok(c, "Список регионов", out)
}

func (rs *RestServer) region(c *gin.Context) (*world.Region, bool) {
	key, err := regionParam(c)
	if err != nil {
		rs.fail(c, err)
		return nil, false
	}
	r, err := rs.world.Region(key)
	if err != nil {
		rs.fail(c, err)
		return nil, false
	}
	return r, true
}

func (rs *RestServer) handleRegion(c *gin.Context) {
	r, found := rs.region(c)
	if !found {
		return
	}
	ok(c, "Регион "+r.Key().String(), newRegionSummary(r))
}

// handleCoordinates отдаёт клетки региона, опционально фильтруя по ?type=
func (rs *RestServer) handleCoordinates(c *gin.Context) {
	r, found := rs.region(c)
	if !found {
		return
	}

	var filter world.TypeSet
	if q := c.Query("type"); q != "" {
		set, err := parseTypeSet(q)
		if err != nil {
			rs.fail(c, err)
			return
		}
		filter = set
	}

	m := r.Coordinates()
	out := make([]coordinateInfo, 0, m.Len())
	for _, coord := range m.Coordinates() {
		t := coord.Type()
		if filter != 0 && !filter.Has(t) {
			continue
		}
		info := coordinateInfo{
			Key:           coord.Key,
			Type:          t.String(),
			WorldPosition: coord.WorldPosition,
			OnPath:        coord.OnPath(),
		}
		if h, has := coord.GroundHeight(); has {
			info.Height = &h
		}
		if z, inZone := m.ZoneAt(coord.Key); inZone {
			info.Zone = z.Name()
		}
		out = append(out, info)
	}
	ok(c, "Клетки региона", out)
}

func (rs *RestServer) handleZones(c *gin.Context) {
	r, found := rs.region(c)
	if !found {
		return
	}
	zones := r.Zones()
	out := make([]zoneInfo, 0, len(zones))
	for _, z := range zones {
		out = append(out, newZoneInfo(z, true))
	}
	ok(c, "Зоны региона", out)
}

// handleMap отдаёт ASCII-карту региона; ?format=text: простым текстом
func (rs *RestServer) handleMap(c *gin.Context) {
	r, found := rs.region(c)
	if !found {
		return
	}
	rows := RenderRegion(r)
	if c.Query("format") == "text" {
		c.String(http.StatusOK, strings.Join(rows, "\n")+"\n")
		return
	}
	ok(c, "Карта региона", gin.H{"rows": rows, "legend": Legend()})
}

func (rs *RestServer) handleChunk(c *gin.Context) {
	key, err := regionParam(c)
	if err != nil {
		rs.fail(c, err)
		return
	}
	cx, errX := strconv.Atoi(c.Param("cx"))
	cy, errY := strconv.Atoi(c.Param("cy"))
	if errX != nil || errY != nil {
		rs.fail(c, badRequestf("chunk key must be two integers"))
		return
	}
	chunk, err := rs.world.GetChunkAt(key, vec.Vec2{X: cx, Y: cy})
	if err != nil {
		rs.fail(c, err)
		return
	}
	ok(c, "Чанк", chunk)
}

// handleChunkAtPosition ищет чанк по мировой точке ?x=&z=
func (rs *RestServer) handleChunkAtPosition(c *gin.Context) {
	x, err := parseFloatQuery(c, "x")
	if err != nil {
		rs.fail(c, err)
		return
	}
	z, err := parseFloatQuery(c, "z")
	if err != nil {
		rs.fail(c, err)
		return
	}
	chunk, err := rs.world.ChunkAtWorldPosition(vec.Vec3Float{X: x, Z: z})
	if err != nil {
		rs.fail(c, err)
		return
	}
	ok(c, "Чанк", chunk)
}

// handlePath считает маршрут ?from=x,y&to=x,y&exclude=Water,Obstacle без записи в сетку
func (rs *RestServer) handlePath(c *gin.Context) {
	key, err := regionParam(c)
	if err != nil {
		rs.fail(c, err)
		return
	}
	from, err := parseVec2("from", c.Query("from"))
	if err != nil {
		rs.fail(c, err)
		return
	}
	to, err := parseVec2("to", c.Query("to"))
	if err != nil {
		rs.fail(c, err)
		return
	}
	excluded, err := parseTypeSet(c.Query("exclude"))
	if err != nil {
		rs.fail(c, err)
		return
	}

	p, err := rs.world.ComputePath(key, from, to, excluded)
	if err != nil {
		rs.fail(c, err)
		return
	}
	ok(c, "Маршрут найден", newPathInfo(p))
}

// handleRandom выбирает случайную клетку ?type=
func (rs *RestServer) handleRandom(c *gin.Context) {
	key, err := regionParam(c)
	if err != nil {
		rs.fail(c, err)
		return
	}
	t, err := world.ParseCoordinateType(c.Query("type"))
	if err != nil {
		rs.fail(c, badRequestf("type: %v", err))
		return
	}
	pos, err := rs.world.GetRandomCoordinateValueOfType(key, t)
	if err != nil {
		rs.fail(c, err)
		return
	}
	ok(c, "Случайная клетка", gin.H{"key": pos, "type": t.String()})
}

// handleServerInfo возвращает информацию о процессе инспектора
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	info := map[string]interface{}{
		"name":           "worldgen inspector",
		"status":         rs.world.State().String(),
		"uptime":         rs.metrics.GetUptime(),
		"memory_mb":      fmt.Sprintf("%.1f", rs.metrics.GetMemoryUsage()),
		"cpu_percent":    fmt.Sprintf("%.1f", cpuPercent),
		"memory_details": rs.metrics.GetDetailedMemoryStats(),
	}

	ok(c, "Информация о сервере", info)
}

func (rs *RestServer) handleSnapshots(c *gin.Context) {
	if rs.store == nil {
		ok(c, "Хранилище снимков не настроено", []string{})
		return
	}
	ids, err := rs.store.List(c.Request.Context())
	if err != nil {
		rs.fail(c, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	ok(c, "Снимки мира", out)
}

// ===== Административные =====

type regenerateResult struct {
	GenerationID string            `json:"generation_id"`
	SnapshotID   string            `json:"snapshot_id,omitempty"`
	Failed       map[string]string `json:"failed,omitempty"`
}

// handleRegenerate перестраивает мир; читатели видят старую сетку до подмены
func (rs *RestServer) handleRegenerate(c *gin.Context) {
	ctx := c.Request.Context()
	err := rs.world.Regenerate(ctx)

	var genErr *world.GenerationError
	partial := errors.As(err, &genErr) && rs.world.State() == world.StateGenerated
	if err != nil && !partial {
		rs.fail(c, err)
		return
	}

	id, idErr := rs.world.GenerationID()
	if idErr != nil {
		rs.fail(c, idErr)
		return
	}
	result := regenerateResult{GenerationID: id}
	if partial {
		result.Failed = make(map[string]string, len(genErr.Failed))
		for k, ferr := range genErr.Failed {
			result.Failed[k.String()] = ferr.Error()
		}
	}

	if rs.store != nil {
		if bp, isStatic := rs.world.Blueprint().(world.StaticBlueprint); isStatic {
			snap := storage.NewSnapshot(rs.world.Settings(), bp)
			snap.GenerationID = id
			snap.Note = "regenerate via API"
			if err := rs.store.Save(ctx, snap); err != nil {
				rs.logger.Warn("⚠️ Не удалось сохранить снимок %s: %v", snap.ID, err)
			} else {
				result.SnapshotID = snap.ID.String()
			}
		}
	}

	message := "Мир перегенерирован"
	if partial {
		message = fmt.Sprintf("Мир перегенерирован, регионов с ошибками: %d", len(genErr.Failed))
	}
	ok(c, message, result)
}

func (rs *RestServer) handleReset(c *gin.Context) {
	rs.world.ResetGeneration(c.Request.Context())
	ok(c, "Мир сброшен", gin.H{"state": rs.world.State().String()})
}

// CommitPathRequest: маршрут для записи в опубликованную сетку
type CommitPathRequest struct {
	Region  world.RegionKey        `json:"region"`
	From    vec.Vec2               `json:"from"`
	To      vec.Vec2               `json:"to"`
	Exclude []world.CoordinateType `json:"exclude"`
}

func (rs *RestServer) handleCommitPath(c *gin.Context) {
	var req CommitPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, badRequestf("Неверный формат запроса: %v", err))
		return
	}

	p, err := rs.world.ComputePath(req.Region, req.From, req.To, world.NewTypeSet(req.Exclude...))
	if err != nil {
		rs.fail(c, err)
		return
	}
	if err := rs.world.CommitPath(c.Request.Context(), p); err != nil {
		rs.fail(c, err)
		return
	}
	ok(c, "Маршрут записан", newPathInfo(p))
}
