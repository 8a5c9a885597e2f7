package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
)

const testOwner = "owner-1"

var errConnReset = errors.New("connection reset by peer")

// memStore is an in-memory stand-in for the repositories. settle serialises purchases the
// way the row locks do in Postgres.
type memStore struct {
	mu     sync.Mutex
	settle sync.Mutex

	rooms      map[string]models.Room
	activities map[string]models.ActivityType
	students   map[string]*models.Student
	teams      map[string]*models.Team
	entries    []*models.LedgerEntry
	byKey      map[string]*models.LedgerEntry
	grants     map[string]string
	credits    map[string][]repository.CrystalCredit
	items      map[string]*models.ShopItem
	purchases  []models.Purchase

	failKeys    map[string]int
	insertCalls int
}

func newMemStore() *memStore {
	return &memStore{
		rooms:      map[string]models.Room{},
		activities: map[string]models.ActivityType{},
		students:   map[string]*models.Student{},
		teams:      map[string]*models.Team{},
		byKey:      map[string]*models.LedgerEntry{},
		grants:     map[string]string{},
		credits:    map[string][]repository.CrystalCredit{},
		items:      map[string]*models.ShopItem{},
		failKeys:   map[string]int{},
	}
}

func (m *memStore) addRoom(id string) {
	m.rooms[id] = models.Room{ID: id, OwnerID: testOwner, Name: "Sala " + id, Status: models.RoomStatusActive}
}

func (m *memStore) addTeam(id, roomID string, crystals int) {
	m.teams[id] = &models.Team{ID: id, OwnerID: testOwner, RoomID: roomID, Name: "Equipe " + id, Crystals: crystals}
}

func (m *memStore) addStudent(id, roomID, teamID string, class models.StudentClass) {
	s := &models.Student{ID: id, OwnerID: testOwner, RoomID: roomID, Name: "Aluno " + id, Class: class}
	if teamID != "" {
		team := teamID
		s.TeamID = &team
	}
	m.students[id] = s
}

func (m *memStore) addActivity(id string, xp int, mode models.AttributionMode) {
	m.activities[id] = models.ActivityType{ID: id, OwnerID: testOwner, Name: "Atividade " + id, XP: xp, Mode: mode}
}

func (m *memStore) crystals(teamID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teams[teamID].Crystals
}

func (m *memStore) liveEntries() []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if !e.Reversed {
			out = append(out, *e)
		}
	}
	return out
}

func (m *memStore) entriesOfKind(kind models.EntryKind) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range m.liveEntries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type memRooms struct{ *memStore }

func (r memRooms) GetByID(ctx context.Context, ownerID, id string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok || room.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

type memActivities struct{ *memStore }

func (r memActivities) GetByID(ctx context.Context, ownerID, id string) (*models.ActivityType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok || a.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (r memActivities) List(ctx context.Context, ownerID string) ([]models.ActivityType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ActivityType
	for _, a := range r.activities {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memStudents struct{ *memStore }

func (r memStudents) GetByID(ctx context.Context, ownerID, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok || s.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r memStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listStudents(filter), nil
}

func (r memStudents) SetPowerUsed(ctx context.Context, ownerID, id string, used bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok || s.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	s.PowerUsedThisPhase = used
	return nil
}

func (r memStudents) SetRoomPowerUsed(ctx context.Context, ownerID, roomID string, used bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.students {
		if s.OwnerID == ownerID && s.RoomID == roomID {
			s.PowerUsedThisPhase = used
			n++
		}
	}
	return n, nil
}

func (m *memStore) listStudents(filter models.StudentFilter) []models.Student {
	ids := map[string]bool{}
	for _, id := range filter.IDs {
		ids[id] = true
	}
	var out []models.Student
	for _, s := range m.students {
		if s.OwnerID != filter.OwnerID {
			continue
		}
		if filter.RoomID != "" && s.RoomID != filter.RoomID {
			continue
		}
		if filter.TeamID != "" && !s.OnTeam(filter.TeamID) {
			continue
		}
		if len(ids) > 0 && !ids[s.ID] {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTeams struct{ *memStore }

func (r memTeams) GetByID(ctx context.Context, ownerID, id string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok || t.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r memTeams) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listTeams(filter), nil
}

func (m *memStore) listTeams(filter models.TeamFilter) []models.Team {
	ids := map[string]bool{}
	for _, id := range filter.IDs {
		ids[id] = true
	}
	var out []models.Team
	for _, t := range m.teams {
		if t.OwnerID != filter.OwnerID {
			continue
		}
		if filter.RoomID != "" && t.RoomID != filter.RoomID {
			continue
		}
		if len(ids) > 0 && !ids[t.ID] {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memLedger struct{ *memStore }

func (r memLedger) ClaimGrant(ctx context.Context, ownerID, grantID, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ownerID + "/" + grantID
	stored, ok := r.grants[key]
	if !ok {
		r.grants[key] = fingerprint
		return nil
	}
	if stored != fingerprint {
		return repository.ErrGrantIDReused
	}
	return nil
}

func (r memLedger) InsertEntry(ctx context.Context, entry *models.LedgerEntry, credits []repository.CrystalCredit) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if n := r.failKeys[entry.IdempotencyKey]; n > 0 {
		r.failKeys[entry.IdempotencyKey] = n - 1
		return false, errConnReset
	}
	if existing, ok := r.byKey[entry.OwnerID+"/"+entry.IdempotencyKey]; ok {
		*entry = *existing
		return false, nil
	}
	stored := *entry
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, &stored)
	r.byKey[stored.OwnerID+"/"+stored.IdempotencyKey] = &stored
	for _, c := range credits {
		r.teams[c.TeamID].Crystals += c.Amount
	}
	r.credits[stored.ID] = credits
	*entry = stored
	return true, nil
}

func (r memLedger) GetByID(ctx context.Context, ownerID, id string) (*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id && e.OwnerID == ownerID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memLedger) Reverse(ctx context.Context, ownerID, id string) (*models.LedgerEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID != id || e.OwnerID != ownerID {
			continue
		}
		if e.Reversed {
			return nil, 0, repository.ErrAlreadyReversed
		}
		now := time.Now().UTC()
		e.Reversed = true
		e.ReversedAt = &now
		taken := 0
		for _, c := range r.credits[e.ID] {
			team := r.teams[c.TeamID]
			debit := c.Amount
			if debit > team.Crystals {
				debit = team.Crystals
			}
			team.Crystals -= debit
			taken += debit
		}
		cp := *e
		return &cp, taken, nil
	}
	return nil, 0, sql.ErrNoRows
}

func (r memLedger) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listEntries(filter), nil
}

func (m *memStore) listEntries(filter models.LedgerFilter) []models.LedgerEntry {
	var out []models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.OwnerID != filter.OwnerID || (e.Reversed && !filter.IncludeReversed) {
			continue
		}
		if filter.RoomID != "" && e.RoomID != filter.RoomID {
			continue
		}
		if len(filter.TeamIDs) > 0 || len(filter.StudentIDs) > 0 {
			match := false
			for _, id := range filter.TeamIDs {
				match = match || (e.AttributedTo == models.AttributeTeam && e.Attribution().Includes(id))
			}
			for _, id := range filter.StudentIDs {
				match = match || (e.AttributedTo == models.AttributeStudent && e.Attribution().Includes(id))
			}
			if !match {
				continue
			}
		}
		out = append(out, *e)
	}
	return out
}

func (m *memStore) spentXP(teamID string) int {
	total := 0
	for _, p := range m.purchases {
		if p.TeamID == teamID && p.Currency == models.CurrencyXP {
			total += p.Cost
		}
	}
	return total
}

func (r memLedger) TeamLedger(ctx context.Context, q sqlx.QueryerContext, ownerID, teamID string) (*models.TeamLedger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[teamID]
	if !ok || team.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	members := r.listStudents(models.StudentFilter{OwnerID: ownerID, TeamID: teamID})
	ids := make([]string, len(members))
	for i, s := range members {
		ids[i] = s.ID
	}
	entries := r.listEntries(models.LedgerFilter{OwnerID: ownerID, TeamIDs: []string{teamID}, StudentIDs: ids})
	return &models.TeamLedger{Team: *team, Members: members, Entries: entries, SpentXP: r.spentXP(teamID)}, nil
}

func (r memLedger) RoomLedger(ctx context.Context, ownerID, roomID string) (*models.RoomLedger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	teams := r.listTeams(models.TeamFilter{OwnerID: ownerID, RoomID: roomID})
	spent := map[string]int{}
	for _, t := range teams {
		spent[t.ID] = r.spentXP(t.ID)
	}
	return &models.RoomLedger{
		RoomID:   roomID,
		Teams:    teams,
		Students: r.listStudents(models.StudentFilter{OwnerID: ownerID, RoomID: roomID}),
		Entries:  r.listEntries(models.LedgerFilter{OwnerID: ownerID, RoomID: roomID}),
		SpentXP:  spent,
	}, nil
}

type memShop struct{ *memStore }

func (r memShop) ListAvailable(ctx context.Context, ownerID, roomID string) ([]models.ShopItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ShopItem
	for _, item := range r.items {
		if item.OwnerID == ownerID && item.Purchasable(roomID) {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memShop) ListPurchases(ctx context.Context, ownerID, teamID string) ([]models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Purchase
	for _, p := range r.purchases {
		if p.OwnerID == ownerID && p.TeamID == teamID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memShop) Purchase(ctx context.Context, params repository.PurchaseParams) (*repository.PurchaseOutcome, error) {
	r.settle.Lock()
	defer r.settle.Unlock()

	r.mu.Lock()
	team, okTeam := r.teams[params.TeamID]
	item, okItem := r.items[params.ItemID]
	var out repository.PurchaseOutcome
	if okTeam {
		out.Team = *team
	}
	if okItem {
		out.Item = *item
	}
	r.mu.Unlock()
	if !okTeam || !okItem {
		return nil, sql.ErrNoRows
	}

	if params.Gate != nil {
		if err := params.Gate(ctx, nil, &out.Team, &out.Item); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	debit := params.Currency == models.CurrencyCrystals && item.Price > 0
	if debit && team.Crystals < item.Price {
		return nil, repository.ErrInsufficientBalance
	}
	if item.Stock <= 0 || !item.Active {
		return nil, repository.ErrOutOfStock
	}
	item.Stock--
	if debit {
		team.Crystals -= item.Price
	}
	out.Purchase = models.Purchase{
		ID:        uuid.NewString(),
		OwnerID:   params.OwnerID,
		ItemID:    item.ID,
		TeamID:    team.ID,
		Cost:      item.Price,
		Currency:  params.Currency,
		CreatedAt: time.Now().UTC(),
	}
	r.purchases = append(r.purchases, out.Purchase)
	out.Team = *team
	out.Item = *item
	return &out, nil
}

type notifierSpy struct {
	mu    sync.Mutex
	rooms []string
}

func (n *notifierSpy) RoomChanged(ctx context.Context, ownerID, roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, roomID)
}

func (n *notifierSpy) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.rooms...)
}

func teacher() models.Actor {
	return models.Actor{OwnerID: testOwner, UserID: testOwner}
}

func leader(teamID string) models.Actor {
	return models.Actor{OwnerID: testOwner, TeamID: teamID, Leader: true}
}
