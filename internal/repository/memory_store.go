package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chai-api/internal/domain"
)

// MemoryStore DB 未启用时的内存实现（本地联调与测试），语义与 PostgresStore 一致。
// InTx 在状态副本上执行，成功后整体替换，失败即丢弃，相当于回滚。
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	nextID    int64
	relays    []domain.Relay
	homes     []domain.Home
	setpoints []domain.SetpointChange
	schedules []domain.Schedule
	profiles  []domain.Profile
	logs      []domain.LogEntry
	readings  []domain.Reading
}

// rows are never updated in place, so copying the slice headers is enough
func (s *memoryState) clone() *memoryState {
	return &memoryState{
		nextID:    s.nextID,
		relays:    append([]domain.Relay(nil), s.relays...),
		homes:     append([]domain.Home(nil), s.homes...),
		setpoints: append([]domain.SetpointChange(nil), s.setpoints...),
		schedules: append([]domain.Schedule(nil), s.schedules...),
		profiles:  append([]domain.Profile(nil), s.profiles...),
		logs:      append([]domain.LogEntry(nil), s.logs...),
		readings:  append([]domain.Reading(nil), s.readings...),
	}
}

func (s *memoryState) id() int64 {
	s.nextID++
	return s.nextID
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{}}
}

var _ Store = (*MemoryStore)(nil)

type memoryAccess func(fn func(s *memoryState) error) error

func (m *MemoryStore) locked(fn func(s *memoryState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

// Repos 非事务访问，每次操作单独加锁
func (m *MemoryStore) Repos() Repositories {
	return memoryRepos(m.locked)
}

// InTx fn must only use the repositories it is handed; calling m.Repos() inside would deadlock.
func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	direct := func(f func(s *memoryState) error) error { return f(work) }
	if err := fn(ctx, memoryRepos(direct)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

// AddReading 写入一条传感器读数（正式环境由采集服务写库）
func (m *MemoryStore) AddReading(rd domain.Reading) int64 {
	var id int64
	_ = m.locked(func(s *memoryState) error {
		rd.ID = s.id()
		id = rd.ID
		s.readings = append(s.readings, rd)
		return nil
	})
	return id
}

func memoryRepos(access memoryAccess) Repositories {
	r := &memoryRepo{access: access}
	return Repositories{Homes: r, Setpoints: r, Schedules: r, Profiles: r, Logs: r, Readings: r}
}

type memoryRepo struct {
	access memoryAccess
}

// --- Homes ---

func (r *memoryRepo) GetCurrentHome(_ context.Context, label string) (*domain.Home, error) {
	var out *domain.Home
	err := r.access(func(s *memoryState) error {
		for i := range s.homes {
			h := s.homes[i]
			if h.Label != label {
				continue
			}
			if out == nil || h.Revision.After(out.Revision) || (h.Revision.Equal(out.Revision) && h.ID > out.ID) {
				out = &h
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memoryRepo) GetRelay(_ context.Context, relayID int64) (*domain.Relay, error) {
	var out *domain.Relay
	_ = r.access(func(s *memoryState) error {
		for i := range s.relays {
			if s.relays[i].ID == relayID {
				relay := s.relays[i]
				out = &relay
			}
		}
		return nil
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memoryRepo) CreateRelay(_ context.Context, refreshToken string) (int64, error) {
	if refreshToken == "" {
		return 0, fmt.Errorf("refresh token is required")
	}
	var id int64
	err := r.access(func(s *memoryState) error {
		id = s.id()
		s.relays = append(s.relays, domain.Relay{ID: id, RefreshToken: refreshToken})
		return nil
	})
	return id, err
}

func (r *memoryRepo) CreateHome(_ context.Context, home *domain.Home) (int64, error) {
	if home.Label == "" {
		return 0, fmt.Errorf("label is required")
	}
	err := r.access(func(s *memoryState) error {
		home.ID = s.id()
		s.homes = append(s.homes, *home)
		return nil
	})
	return home.ID, err
}

// --- Setpoints ---

func (r *memoryRepo) GetActiveSetpoint(_ context.Context, homeID int64, now time.Time) (*domain.SetpointChange, error) {
	var out *domain.SetpointChange
	_ = r.access(func(s *memoryState) error {
		for i := range s.setpoints {
			sp := s.setpoints[i]
			if sp.HomeID != homeID || !sp.ActiveAt(now) {
				continue
			}
			if out == nil || sp.ID > out.ID {
				out = &sp
			}
		}
		return nil
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memoryRepo) CreateSetpoint(_ context.Context, sp *domain.SetpointChange) (int64, error) {
	err := r.access(func(s *memoryState) error {
		sp.ID = s.id()
		s.setpoints = append(s.setpoints, *sp)
		return nil
	})
	return sp.ID, err
}

// --- Schedules ---

func (r *memoryRepo) currentSchedules(s *memoryState, homeID int64) map[domain.Day]domain.Schedule {
	current := map[domain.Day]domain.Schedule{}
	for _, sc := range s.schedules {
		if sc.HomeID != homeID {
			continue
		}
		prev, ok := current[sc.Day]
		if !ok || sc.Revision.After(prev.Revision) || (sc.Revision.Equal(prev.Revision) && sc.ID > prev.ID) {
			current[sc.Day] = sc
		}
	}
	return current
}

func (r *memoryRepo) GetCurrentSchedule(_ context.Context, homeID int64, day domain.Day) (*domain.Schedule, error) {
	var out *domain.Schedule
	_ = r.access(func(s *memoryState) error {
		if sc, ok := r.currentSchedules(s, homeID)[day]; ok {
			sc.Entries = sc.Entries.Clone()
			out = &sc
		}
		return nil
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memoryRepo) ListCurrentSchedules(_ context.Context, homeID int64, mask domain.Daymask) ([]*domain.Schedule, error) {
	var out []*domain.Schedule
	_ = r.access(func(s *memoryState) error {
		current := r.currentSchedules(s, homeID)
		for _, day := range mask.Days() {
			if sc, ok := current[day]; ok {
				sc.Entries = sc.Entries.Clone()
				out = append(out, &sc)
			}
		}
		return nil
	})
	return out, nil
}

func (r *memoryRepo) CreateSchedules(_ context.Context, schedules []*domain.Schedule) error {
	return r.access(func(s *memoryState) error {
		for _, sc := range schedules {
			sc.ID = s.id()
			row := *sc
			row.Entries = sc.Entries.Clone()
			s.schedules = append(s.schedules, row)
		}
		return nil
	})
}

// --- Profiles ---

func (r *memoryRepo) GetGeneration(_ context.Context, homeID int64, profileID int) (domain.ProfileGeneration, error) {
	gen := domain.ProfileGeneration{ProfileID: profileID}
	_ = r.access(func(s *memoryState) error {
		for i := range s.profiles {
			p := &s.profiles[i]
			if p.HomeID == homeID && p.ProfileID == profileID && p.StartsGeneration() && p.ID > gen.StartID {
				gen.StartID = p.ID
			}
		}
		return nil
	})
	return gen, nil
}

func (r *memoryRepo) GetCurrentProfile(_ context.Context, homeID int64, gen domain.ProfileGeneration) (*domain.Profile, error) {
	var out *domain.Profile
	_ = r.access(func(s *memoryState) error {
		for i := range s.profiles {
			p := s.profiles[i]
			if p.HomeID != homeID || !gen.Contains(&p) {
				continue
			}
			if out == nil || p.ID > out.ID {
				out = &p
			}
		}
		return nil
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memoryRepo) ListCurrentProfiles(_ context.Context, homeID int64) ([]*domain.Profile, error) {
	latest := map[int]domain.Profile{}
	_ = r.access(func(s *memoryState) error {
		for _, p := range s.profiles {
			if p.HomeID != homeID {
				continue
			}
			if prev, ok := latest[p.ProfileID]; !ok || p.ID > prev.ID {
				latest[p.ProfileID] = p
			}
		}
		return nil
	})
	out := make([]*domain.Profile, 0, len(latest))
	for _, p := range latest {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileID < out[j].ProfileID })
	return out, nil
}

func (r *memoryRepo) ListObservations(_ context.Context, homeID int64, gen domain.ProfileGeneration, skip, limit int) ([]ProfileObservation, error) {
	var out []ProfileObservation
	_ = r.access(func(s *memoryState) error {
		setpoints := map[int64]domain.SetpointChange{}
		for _, sp := range s.setpoints {
			setpoints[sp.ID] = sp
		}
		for _, p := range s.profiles {
			if p.HomeID != homeID || !gen.Contains(&p) || p.SetpointID == nil {
				continue
			}
			sp, ok := setpoints[*p.SetpointID]
			if !ok || sp.Hidden {
				continue
			}
			p, sp := p, sp
			out = append(out, ProfileObservation{Profile: &p, Setpoint: &sp})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Profile.ID > out[j].Profile.ID })
	if skip > len(out) {
		skip = len(out)
	}
	if skip > 0 {
		out = out[skip:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) CreateProfile(_ context.Context, p *domain.Profile) (int64, error) {
	if !domain.ValidProfileID(p.ProfileID) {
		return 0, fmt.Errorf("profile id %d out of range", p.ProfileID)
	}
	err := r.access(func(s *memoryState) error {
		p.ID = s.id()
		s.profiles = append(s.profiles, *p)
		return nil
	})
	return p.ID, err
}

// --- Logs ---

func (r *memoryRepo) CreateLog(_ context.Context, entry *domain.LogEntry) (int64, error) {
	if entry.Category == "" {
		return 0, fmt.Errorf("category is required")
	}
	err := r.access(func(s *memoryState) error {
		entry.ID = s.id()
		s.logs = append(s.logs, *entry)
		return nil
	})
	return entry.ID, err
}

func (r *memoryRepo) ListLogs(_ context.Context, homeID int64, filters LogFilters) ([]*domain.LogEntry, error) {
	var out []*domain.LogEntry
	_ = r.access(func(s *memoryState) error {
		for _, e := range s.logs {
			if e.HomeID != homeID || e.Timestamp.Before(filters.Start) {
				continue
			}
			if filters.Category != "" && e.Category != filters.Category {
				continue
			}
			if filters.End != nil && !e.Timestamp.Before(*filters.End) {
				continue
			}
			e := e
			out = append(out, &e)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// --- Readings ---

func (r *memoryRepo) GetLatestReading(_ context.Context, relayID int64, kind domain.ReadingKind) (*domain.Reading, error) {
	var out *domain.Reading
	_ = r.access(func(s *memoryState) error {
		for _, rd := range s.readings {
			if rd.RelayID != relayID || rd.Kind != kind {
				continue
			}
			if out == nil || rd.Start.After(out.Start) {
				rd := rd
				out = &rd
			}
		}
		return nil
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memoryRepo) ListReadings(_ context.Context, relayID int64, kind domain.ReadingKind, start time.Time, end *time.Time) ([]*domain.Reading, error) {
	var out []*domain.Reading
	_ = r.access(func(s *memoryState) error {
		for _, rd := range s.readings {
			if rd.RelayID != relayID || rd.Kind != kind || rd.Start.Before(start) {
				continue
			}
			if end != nil && rd.End.After(*end) {
				continue
			}
			rd := rd
			out = append(out, &rd)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
