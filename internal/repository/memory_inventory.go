package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"github.com/google/uuid"
)

// MemoryInventoryRepo DB 未就绪时使用的内存仓库，也是服务层测试的存储
// - IDs 使用 uuid
// - InTx 持有写锁期间在状态副本上执行，成功才替换，失败即丢弃（等价于回滚）
// - 唯一约束和外键行为与 Postgres 表结构保持一致
type MemoryInventoryRepo struct {
	mu    sync.RWMutex
	state *memState
}

func NewMemoryInventoryRepo() *MemoryInventoryRepo {
	return &MemoryInventoryRepo{state: newMemState()}
}

type memState struct {
	roomTypes    map[string]domain.RoomType
	units        map[string]domain.RoomUnit
	reservations map[string]domain.Reservation
	links        map[string]domain.ReservationUnitLink
	windows      map[string]domain.BlockedWindow
}

func newMemState() *memState {
	return &memState{
		roomTypes:    map[string]domain.RoomType{},
		units:        map[string]domain.RoomUnit{},
		reservations: map[string]domain.Reservation{},
		links:        map[string]domain.ReservationUnitLink{},
		windows:      map[string]domain.BlockedWindow{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.roomTypes {
		c.roomTypes[k] = v
	}
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	for k, v := range s.windows {
		c.windows[k] = v
	}
	return c
}

// ---- seed（测试和演示数据使用，预订由外部流程创建） ----

// SeedRoomType 写入房型，RoomTypeID 为空时生成
func (r *MemoryInventoryRepo) SeedRoomType(rt domain.RoomType) string {
	if rt.RoomTypeID == "" {
		rt.RoomTypeID = uuid.NewString()
	}
	r.mutate(func(s *memState) { s.roomTypes[rt.RoomTypeID] = rt })
	return rt.RoomTypeID
}

// SeedUnit 写入单元，Status 为空时默认 available
func (r *MemoryInventoryRepo) SeedUnit(u domain.RoomUnit) string {
	if u.RoomUnitID == "" {
		u.RoomUnitID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = domain.UnitStatusAvailable
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.mutate(func(s *memState) { s.units[u.RoomUnitID] = u })
	return u.RoomUnitID
}

// SeedReservation 写入预订及其关联，返回关联 id（与 links 顺序一致）
func (r *MemoryInventoryRepo) SeedReservation(res domain.Reservation, links ...domain.ReservationUnitLink) (string, []string) {
	if res.ReservationID == "" {
		res.ReservationID = uuid.NewString()
	}
	res.CheckIn, res.CheckOut = domain.Day(res.CheckIn), domain.Day(res.CheckOut)
	res.UpdatedAt = time.Now().UTC()

	ids := make([]string, 0, len(links))
	r.mutate(func(s *memState) {
		s.reservations[res.ReservationID] = res
		for _, l := range links {
			if l.LinkID == "" {
				l.LinkID = uuid.NewString()
			}
			if l.Quantity == 0 {
				l.Quantity = 1
			}
			l.ReservationID = res.ReservationID
			s.links[l.LinkID] = l
			ids = append(ids, l.LinkID)
		}
	})
	return res.ReservationID, ids
}

// SetReservationStatus 模拟外部流程修改预订状态（如取消）
func (r *MemoryInventoryRepo) SetReservationStatus(reservationID string, status domain.ReservationStatus) error {
	var err error
	r.mutate(func(s *memState) {
		res, ok := s.reservations[reservationID]
		if !ok {
			err = domain.NewNotFoundError("reservation", reservationID)
			return
		}
		res.Status = status
		s.reservations[reservationID] = res
	})
	return err
}

// SeedBlockedWindow 直接写入封锁窗口，不做校验
func (r *MemoryInventoryRepo) SeedBlockedWindow(w domain.BlockedWindow) string {
	if w.BlockedWindowID == "" {
		w.BlockedWindowID = uuid.NewString()
	}
	w.StartDate, w.EndDate, w.ExpiryDate = domain.Day(w.StartDate), domain.Day(w.EndDate), domain.Day(w.ExpiryDate)
	r.mutate(func(s *memState) { s.windows[w.BlockedWindowID] = w })
	return w.BlockedWindowID
}

// mutate 写时复制：已发布的 state 只读，读操作无需持锁遍历
func (r *MemoryInventoryRepo) mutate(fn func(s *memState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.state.clone()
	fn(next)
	r.state = next
}

// ---- InventoryRepository ----

func (r *MemoryInventoryRepo) InTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{memState: r.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state = tx.memState
	return nil
}

func (r *MemoryInventoryRepo) DeactivateExpiredBlockedWindows(_ context.Context, today time.Time) ([]*domain.BlockedWindow, error) {
	now := time.Now().UTC()
	out := []*domain.BlockedWindow{}
	r.mutate(func(s *memState) {
		for id, w := range s.windows {
			if !w.Active || !w.Expired(today) {
				continue
			}
			w.Active = false
			w.UpdatedAt = now
			s.windows[id] = w
			cp := w
			out = append(out, &cp)
		}
	})
	sortWindows(out)
	return out, nil
}

// read 返回当前已提交的快照
func (r *MemoryInventoryRepo) read() *memState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *MemoryInventoryRepo) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	return r.read().GetRoomType(ctx, id)
}

func (r *MemoryInventoryRepo) ListRoomTypes(ctx context.Context, id string) ([]*domain.RoomType, error) {
	return r.read().ListRoomTypes(ctx, id)
}

func (r *MemoryInventoryRepo) GetUnit(ctx context.Context, id string) (*domain.RoomUnit, error) {
	return r.read().GetUnit(ctx, id)
}

func (r *MemoryInventoryRepo) ListUnits(ctx context.Context, f UnitFilters) ([]*domain.RoomUnit, error) {
	return r.read().ListUnits(ctx, f)
}

func (r *MemoryInventoryRepo) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.read().GetReservation(ctx, id)
}

func (r *MemoryInventoryRepo) GetLink(ctx context.Context, id string) (*domain.ReservationUnitLink, error) {
	return r.read().GetLink(ctx, id)
}

func (r *MemoryInventoryRepo) ListReservationLinks(ctx context.Context, reservationID string) ([]*domain.ReservationUnitLink, error) {
	return r.read().ListReservationLinks(ctx, reservationID)
}

func (r *MemoryInventoryRepo) ListUnitReservationIDs(ctx context.Context, unitID string) ([]string, error) {
	return r.read().ListUnitReservationIDs(ctx, unitID)
}

func (r *MemoryInventoryRepo) ListUnitOccupancies(ctx context.Context, unitID string, window domain.DateRange) ([]*domain.Occupancy, error) {
	return r.read().ListUnitOccupancies(ctx, unitID, window)
}

func (r *MemoryInventoryRepo) ListUnitBlockedWindows(ctx context.Context, unitID string, window domain.DateRange) ([]*domain.BlockedWindow, error) {
	return r.read().ListUnitBlockedWindows(ctx, unitID, window)
}

func (r *MemoryInventoryRepo) ListOccupanciesInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.Occupancy, error) {
	return r.read().ListOccupanciesInRange(ctx, roomTypeID, window)
}

func (r *MemoryInventoryRepo) ListBlockedWindowsInRange(ctx context.Context, roomTypeID string, window domain.DateRange) ([]*domain.BlockedWindow, error) {
	return r.read().ListBlockedWindowsInRange(ctx, roomTypeID, window)
}

func (r *MemoryInventoryRepo) GetBlockedWindow(ctx context.Context, id string) (*domain.BlockedWindow, error) {
	return r.read().GetBlockedWindow(ctx, id)
}

func (r *MemoryInventoryRepo) ListBlockedWindows(ctx context.Context, f BlockedWindowFilters) ([]*domain.BlockedWindow, error) {
	return r.read().ListBlockedWindows(ctx, f)
}

func (r *MemoryInventoryRepo) CountOccupiedUnits(ctx context.Context, roomTypeID string, today time.Time) (int, error) {
	return r.read().CountOccupiedUnits(ctx, roomTypeID, today)
}

// ---- 读操作（state 上实现，仓库和事务共用） ----

func (s *memState) GetRoomType(_ context.Context, id string) (*domain.RoomType, error) {
	rt, ok := s.roomTypes[id]
	if !ok {
		return nil, domain.NewNotFoundError("room_type", id)
	}
	return &rt, nil
}

func (s *memState) ListRoomTypes(_ context.Context, id string) ([]*domain.RoomType, error) {
	out := []*domain.RoomType{}
	for _, rt := range s.roomTypes {
		if id != "" && rt.RoomTypeID != id {
			continue
		}
		cp := rt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].RoomTypeID < out[j].RoomTypeID
	})
	return out, nil
}

func (s *memState) GetUnit(_ context.Context, id string) (*domain.RoomUnit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, domain.NewNotFoundError("room_unit", id)
	}
	return &u, nil
}

func (s *memState) ListUnits(_ context.Context, f UnitFilters) ([]*domain.RoomUnit, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []*domain.RoomUnit{}
	for _, u := range s.units {
		if f.RoomTypeID != "" && u.RoomTypeID != f.RoomTypeID {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.UnitNumber), search) &&
			!strings.Contains(strings.ToLower(u.Notes), search) {
			continue
		}
		cp := u
		out = append(out, &cp)
	}
	domain.SortUnits(out)
	return out, nil
}

func (s *memState) GetReservation(_ context.Context, id string) (*domain.Reservation, error) {
	res, ok := s.reservations[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id)
	}
	return &res, nil
}

func (s *memState) GetLink(_ context.Context, id string) (*domain.ReservationUnitLink, error) {
	l, ok := s.links[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation_unit_link", id)
	}
	return &l, nil
}

func (s *memState) ListReservationLinks(_ context.Context, reservationID string) ([]*domain.ReservationUnitLink, error) {
	out := []*domain.ReservationUnitLink{}
	for _, l := range s.links {
		if l.ReservationID == reservationID {
			cp := l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out, nil
}

func (s *memState) ListUnitReservationIDs(_ context.Context, unitID string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range s.links {
		if l.RoomUnitID == nil || *l.RoomUnitID != unitID || seen[l.ReservationID] {
			continue
		}
		seen[l.ReservationID] = true
		out = append(out, l.ReservationID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memState) occupancies(match func(l domain.ReservationUnitLink) bool, window domain.DateRange) []*domain.Occupancy {
	out := []*domain.Occupancy{}
	for _, l := range s.links {
		if !l.Assigned() || !match(l) {
			continue
		}
		res, ok := s.reservations[l.ReservationID]
		if !ok || !res.Status.IsOccupying() {
			continue
		}
		o := &domain.Occupancy{
			LinkID:        l.LinkID,
			ReservationID: res.ReservationID,
			RoomUnitID:    *l.RoomUnitID,
			RoomTypeID:    l.RoomTypeID,
			Status:        res.Status,
			Kind:          res.Kind,
			Source:        res.Source,
			CheckIn:       res.CheckIn,
			CheckOut:      res.CheckOut,
		}
		if o.Range().Overlaps(window) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckIn.Before(out[j].CheckIn)
		}
		return out[i].LinkID < out[j].LinkID
	})
	return out
}

func (s *memState) ListUnitOccupancies(_ context.Context, unitID string, window domain.DateRange) ([]*domain.Occupancy, error) {
	return s.occupancies(func(l domain.ReservationUnitLink) bool {
		return *l.RoomUnitID == unitID
	}, window), nil
}

func (s *memState) ListOccupanciesInRange(_ context.Context, roomTypeID string, window domain.DateRange) ([]*domain.Occupancy, error) {
	return s.occupancies(func(l domain.ReservationUnitLink) bool {
		if roomTypeID == "" {
			return true
		}
		u, ok := s.units[*l.RoomUnitID]
		return ok && u.RoomTypeID == roomTypeID
	}, window), nil
}

func (s *memState) windowsWhere(match func(w domain.BlockedWindow) bool) []*domain.BlockedWindow {
	out := []*domain.BlockedWindow{}
	for _, w := range s.windows {
		if match(w) {
			cp := w
			out = append(out, &cp)
		}
	}
	sortWindows(out)
	return out
}

func (s *memState) ListUnitBlockedWindows(_ context.Context, unitID string, window domain.DateRange) ([]*domain.BlockedWindow, error) {
	return s.windowsWhere(func(w domain.BlockedWindow) bool {
		return w.Active && w.RoomUnitID == unitID && w.Range().Overlaps(window)
	}), nil
}

func (s *memState) ListBlockedWindowsInRange(_ context.Context, roomTypeID string, window domain.DateRange) ([]*domain.BlockedWindow, error) {
	return s.windowsWhere(func(w domain.BlockedWindow) bool {
		if !w.Active || !w.Range().Overlaps(window) {
			return false
		}
		if roomTypeID == "" {
			return true
		}
		u, ok := s.units[w.RoomUnitID]
		return ok && u.RoomTypeID == roomTypeID
	}), nil
}

func (s *memState) GetBlockedWindow(_ context.Context, id string) (*domain.BlockedWindow, error) {
	w, ok := s.windows[id]
	if !ok {
		return nil, domain.NewNotFoundError("blocked_window", id)
	}
	return &w, nil
}

func (s *memState) ListBlockedWindows(_ context.Context, f BlockedWindowFilters) ([]*domain.BlockedWindow, error) {
	return s.windowsWhere(func(w domain.BlockedWindow) bool {
		if f.RoomUnitID != "" && w.RoomUnitID != f.RoomUnitID {
			return false
		}
		if f.ActiveOnly && !w.Active {
			return false
		}
		if f.RoomTypeID != "" {
			u, ok := s.units[w.RoomUnitID]
			if !ok || u.RoomTypeID != f.RoomTypeID {
				return false
			}
		}
		return true
	}), nil
}

func (s *memState) CountOccupiedUnits(_ context.Context, roomTypeID string, today time.Time) (int, error) {
	today = domain.Day(today)
	seen := map[string]bool{}
	for _, l := range s.links {
		if !l.Assigned() || l.RoomTypeID != roomTypeID {
			continue
		}
		res, ok := s.reservations[l.ReservationID]
		if !ok || !res.Status.IsOccupying() {
			continue
		}
		if res.Range().End.After(today) {
			seen[*l.RoomUnitID] = true
		}
	}
	return len(seen), nil
}

func sortWindows(ws []*domain.BlockedWindow) {
	sort.Slice(ws, func(i, j int) bool {
		if !ws[i].StartDate.Equal(ws[j].StartDate) {
			return ws[i].StartDate.Before(ws[j].StartDate)
		}
		return ws[i].BlockedWindowID < ws[j].BlockedWindowID
	})
}

// ---- 写事务 ----

type memTx struct {
	*memState
}

// 内存实现由仓库写锁整体串行化，Lock* 只做存在性检查

func (t *memTx) LockRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	return t.GetRoomType(ctx, id)
}

func (t *memTx) LockUnit(ctx context.Context, id string) (*domain.RoomUnit, error) {
	return t.GetUnit(ctx, id)
}

func (t *memTx) LockUnits(ctx context.Context, ids []string) ([]*domain.RoomUnit, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make([]*domain.RoomUnit, 0, len(sorted))
	for _, id := range sorted {
		u, err := t.GetUnit(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (t *memTx) LockReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return t.GetReservation(ctx, id)
}

func (t *memTx) LockLink(ctx context.Context, id string) (*domain.ReservationUnitLink, error) {
	return t.GetLink(ctx, id)
}

func (t *memTx) LockBlockedWindow(ctx context.Context, id string) (*domain.BlockedWindow, error) {
	return t.GetBlockedWindow(ctx, id)
}

func (t *memTx) SetLinkUnit(_ context.Context, linkID, unitID string) error {
	l, ok := t.links[linkID]
	if !ok {
		return domain.NewNotFoundError("reservation_unit_link", linkID)
	}
	if _, ok := t.units[unitID]; !ok {
		return domain.NewNotFoundError("room_unit", unitID)
	}
	id := unitID
	l.RoomUnitID = &id
	t.links[linkID] = l
	return nil
}

func (t *memTx) UpdateReservationDates(_ context.Context, reservationID string, checkIn, checkOut time.Time) error {
	res, ok := t.reservations[reservationID]
	if !ok {
		return domain.NewNotFoundError("reservation", reservationID)
	}
	res.CheckIn, res.CheckOut = domain.Day(checkIn), domain.Day(checkOut)
	res.UpdatedAt = time.Now().UTC()
	t.reservations[reservationID] = res
	return nil
}

func (t *memTx) InsertBlockedWindow(_ context.Context, w *domain.BlockedWindow) error {
	if _, ok := t.units[w.RoomUnitID]; !ok {
		return domain.NewNotFoundError("room_unit", w.RoomUnitID)
	}
	if w.BlockedWindowID == "" {
		w.BlockedWindowID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	t.windows[w.BlockedWindowID] = *w
	return nil
}

func (t *memTx) UpdateBlockedWindow(_ context.Context, w *domain.BlockedWindow) error {
	if _, ok := t.windows[w.BlockedWindowID]; !ok {
		return domain.NewNotFoundError("blocked_window", w.BlockedWindowID)
	}
	w.UpdatedAt = time.Now().UTC()
	t.windows[w.BlockedWindowID] = *w
	return nil
}

func (t *memTx) DeleteBlockedWindow(_ context.Context, id string) error {
	if _, ok := t.windows[id]; !ok {
		return domain.NewNotFoundError("blocked_window", id)
	}
	delete(t.windows, id)
	return nil
}

func (t *memTx) InsertUnits(_ context.Context, units []*domain.RoomUnit) error {
	taken := map[string]bool{}
	for _, u := range t.units {
		taken[u.RoomTypeID+"\x00"+u.UnitNumber] = true
	}
	now := time.Now().UTC()
	for _, u := range units {
		key := u.RoomTypeID + "\x00" + u.UnitNumber
		if taken[key] {
			return &domain.ConflictError{Kind: domain.ConflictUnitNumber, UnitNumber: u.UnitNumber}
		}
		taken[key] = true
		if u.RoomUnitID == "" {
			u.RoomUnitID = uuid.NewString()
		}
		if u.Status == "" {
			u.Status = domain.UnitStatusAvailable
		}
		u.CreatedAt, u.UpdatedAt = now, now
		t.units[u.RoomUnitID] = *u
	}
	return nil
}

func (t *memTx) UpdateUnitStatus(_ context.Context, unitID string, status domain.UnitStatus, notes string) error {
	u, ok := t.units[unitID]
	if !ok {
		return domain.NewNotFoundError("room_unit", unitID)
	}
	u.Status = status
	u.Notes = notes
	u.UpdatedAt = time.Now().UTC()
	t.units[unitID] = u
	return nil
}

func (t *memTx) DeleteUnit(_ context.Context, unitID string) error {
	if _, ok := t.units[unitID]; !ok {
		return domain.NewNotFoundError("room_unit", unitID)
	}
	for _, l := range t.links {
		if l.RoomUnitID != nil && *l.RoomUnitID == unitID {
			return fmt.Errorf("room unit %s still referenced by link %s", unitID, l.LinkID)
		}
	}
	for id, w := range t.windows {
		if w.RoomUnitID == unitID {
			delete(t.windows, id)
		}
	}
	delete(t.units, unitID)
	return nil
}

var (
	_ InventoryRepository = (*MemoryInventoryRepo)(nil)
	_ InventoryTx         = (*memTx)(nil)
)
