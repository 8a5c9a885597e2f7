package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/database"
)

// CrystalCredit is a crystal amount credited to a team together with a ledger entry.
type CrystalCredit struct {
	TeamID string
	Amount int
}

// LedgerRepository persists XP ledger entries, their attributions and crystal side effects.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, owner_id, room_id, activity_type_id, grant_id, idempotency_key, kind, attributed_to, xp, reversed, reversed_at, created_at`

// ClaimGrant binds a grant id to the fingerprint of the request that first used it. Claiming
// the same id with the same fingerprint is a replay. A different fingerprint returns
// ErrGrantIDReused.
func (r *LedgerRepository) ClaimGrant(ctx context.Context, ownerID, grantID, fingerprint string) error {
	const claim = `INSERT INTO grants (owner_id, id, fingerprint, created_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (owner_id, id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, claim, ownerID, grantID, fingerprint, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("claim grant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check grant claim rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var stored string
	if err := r.db.GetContext(ctx, &stored, `SELECT fingerprint FROM grants WHERE owner_id = $1 AND id = $2`, ownerID, grantID); err != nil {
		return fmt.Errorf("load grant claim: %w", err)
	}
	if stored != fingerprint {
		return ErrGrantIDReused
	}
	return nil
}

// InsertEntry appends an entry with its attribution and applies the crystal credits in one
// transaction. When the idempotency key already exists nothing is written, entry is filled
// from the stored row and inserted is false.
func (r *LedgerRepository) InsertEntry(ctx context.Context, entry *models.LedgerEntry, credits []CrystalCredit) (inserted bool, err error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO ledger_entries
	(id, owner_id, room_id, activity_type_id, grant_id, idempotency_key, kind, attributed_to, xp, reversed, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)
	ON CONFLICT (owner_id, idempotency_key) DO NOTHING
	RETURNING id`
		var id string
		scanErr := tx.QueryRowxContext(ctx, insert,
			entry.ID, entry.OwnerID, entry.RoomID, entry.ActivityTypeID, entry.GrantID, entry.IdempotencyKey,
			entry.Kind, entry.AttributedTo, entry.XP, entry.CreatedAt,
		).Scan(&id)
		if errors.Is(scanErr, sql.ErrNoRows) {
			existing, loadErr := getEntryByKey(ctx, tx, entry.OwnerID, entry.IdempotencyKey)
			if loadErr != nil {
				return loadErr
			}
			*entry = *existing
			return nil
		}
		if scanErr != nil {
			return fmt.Errorf("insert ledger entry: %w", scanErr)
		}

		if err := insertAttribution(ctx, tx, entry); err != nil {
			return err
		}
		for _, credit := range credits {
			if credit.Amount == 0 {
				continue
			}
			if err := moveCrystals(ctx, tx, credit.TeamID, credit.Amount, &entry.ID, nil, models.CrystalReasonAccrual); err != nil {
				return err
			}
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func insertAttribution(ctx context.Context, tx *sqlx.Tx, entry *models.LedgerEntry) error {
	attribution := entry.Attribution()
	var query string
	switch attribution.Kind {
	case models.AttributeTeam:
		query = `INSERT INTO ledger_entry_teams (entry_id, team_id) VALUES ($1, $2)`
	case models.AttributeStudent:
		query = `INSERT INTO ledger_entry_students (entry_id, student_id) VALUES ($1, $2)`
	default:
		return fmt.Errorf("unknown attribution kind %q", attribution.Kind)
	}
	for _, id := range attribution.IDs {
		if _, err := tx.ExecContext(ctx, query, entry.ID, id); err != nil {
			return fmt.Errorf("insert %s attribution: %w", attribution.Kind, err)
		}
	}
	return nil
}

// moveCrystals applies a signed delta and records it. Debits are conditional on the balance.
func moveCrystals(ctx context.Context, tx *sqlx.Tx, teamID string, amount int, entryID, purchaseID *string, reason models.CrystalReason) error {
	res, err := tx.ExecContext(ctx, `UPDATE teams SET crystals = crystals + $2 WHERE id = $1 AND crystals + $2 >= 0`, teamID, amount)
	if err != nil {
		return fmt.Errorf("update crystals: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check crystal rows: %w", err)
	}
	if rows == 0 {
		return ErrInsufficientBalance
	}
	const insert = `INSERT INTO crystal_movements (id, team_id, entry_id, purchase_id, amount, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), teamID, entryID, purchaseID, amount, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("record crystal movement: %w", err)
	}
	return nil
}

func getEntryByKey(ctx context.Context, q sqlx.QueryerContext, ownerID, key string) (*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE owner_id = $1 AND idempotency_key = $2`
	var entry models.LedgerEntry
	if err := sqlx.GetContext(ctx, q, &entry, query, ownerID, key); err != nil {
		return nil, fmt.Errorf("load ledger entry by key: %w", err)
	}
	entries := []models.LedgerEntry{entry}
	if err := attachAttributions(ctx, q, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// GetByID fetches one entry with its attribution.
func (r *LedgerRepository) GetByID(ctx context.Context, ownerID, id string) (*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1 AND owner_id = $2`
	var entry models.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	entries := []models.LedgerEntry{entry}
	if err := attachAttributions(ctx, r.db, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// List returns entries matching the filter, newest first. TeamIDs and StudentIDs are OR-ed:
// an entry matches when it is attributed to any of the listed teams or students.
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	return listEntries(ctx, r.db, filter)
}

func listEntries(ctx context.Context, q sqlx.QueryerContext, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	args := []interface{}{filter.OwnerID}
	conditions := []string{"owner_id = $1"}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)))
	}
	if !filter.IncludeReversed {
		conditions = append(conditions, "reversed = FALSE")
	}
	attributed := make([]string, 0, 2)
	if len(filter.TeamIDs) > 0 {
		args = append(args, pq.Array(filter.TeamIDs))
		attributed = append(attributed, fmt.Sprintf("id IN (SELECT entry_id FROM ledger_entry_teams WHERE team_id = ANY($%d))", len(args)))
	}
	if len(filter.StudentIDs) > 0 {
		args = append(args, pq.Array(filter.StudentIDs))
		attributed = append(attributed, fmt.Sprintf("id IN (SELECT entry_id FROM ledger_entry_students WHERE student_id = ANY($%d))", len(args)))
	}
	if len(attributed) > 0 {
		conditions = append(conditions, "("+strings.Join(attributed, " OR ")+")")
	}

	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE `)
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		limit := filter.Limit
		if limit > 500 {
			limit = 500
		}
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))
	}

	var entries []models.LedgerEntry
	if err := sqlx.SelectContext(ctx, q, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	if err := attachAttributions(ctx, q, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type attributionRow struct {
	EntryID  string `db:"entry_id"`
	TargetID string `db:"target_id"`
}

func attachAttributions(ctx context.Context, q sqlx.QueryerContext, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}

	var teams []attributionRow
	if err := sqlx.SelectContext(ctx, q, &teams,
		`SELECT entry_id, team_id AS target_id FROM ledger_entry_teams WHERE entry_id = ANY($1) ORDER BY team_id`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load team attributions: %w", err)
	}
	var students []attributionRow
	if err := sqlx.SelectContext(ctx, q, &students,
		`SELECT entry_id, student_id AS target_id FROM ledger_entry_students WHERE entry_id = ANY($1) ORDER BY student_id`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load student attributions: %w", err)
	}
	for _, row := range teams {
		if i, ok := index[row.EntryID]; ok {
			entries[i].TeamIDs = append(entries[i].TeamIDs, row.TargetID)
		}
	}
	for _, row := range students {
		if i, ok := index[row.EntryID]; ok {
			entries[i].StudentIDs = append(entries[i].StudentIDs, row.TargetID)
		}
	}
	return nil
}

// Reverse flips the reversed flag and takes back the crystals the entry credited, each team
// debited at most down to zero. Returns the updated entry and the crystals taken back.
func (r *LedgerRepository) Reverse(ctx context.Context, ownerID, id string) (*models.LedgerEntry, int, error) {
	var (
		entry    models.LedgerEntry
		reversed int
	)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1 AND owner_id = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &entry, query, id, ownerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock ledger entry: %w", err)
		}
		if entry.Reversed {
			return ErrAlreadyReversed
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE ledger_entries SET reversed = TRUE, reversed_at = $2 WHERE id = $1`, id, now); err != nil {
			return fmt.Errorf("reverse ledger entry: %w", err)
		}
		entry.Reversed = true
		entry.ReversedAt = &now

		var credits []struct {
			TeamID string `db:"team_id"`
			Amount int    `db:"amount"`
		}
		if err := tx.SelectContext(ctx, &credits, `SELECT team_id, SUM(amount) AS amount FROM crystal_movements
	WHERE entry_id = $1 GROUP BY team_id ORDER BY team_id`, id); err != nil {
			return fmt.Errorf("load entry crystal credits: %w", err)
		}
		for _, credit := range credits {
			if credit.Amount <= 0 {
				continue
			}
			var balance int
			if err := tx.GetContext(ctx, &balance, `SELECT crystals FROM teams WHERE id = $1 FOR UPDATE`, credit.TeamID); err != nil {
				return fmt.Errorf("lock team balance: %w", err)
			}
			debit := credit.Amount
			if debit > balance {
				debit = balance
			}
			if debit == 0 {
				continue
			}
			if err := moveCrystals(ctx, tx, credit.TeamID, -debit, &entry.ID, nil, models.CrystalReasonReversal); err != nil {
				return err
			}
			reversed += debit
		}
		entries := []models.LedgerEntry{entry}
		if err := attachAttributions(ctx, tx, entries); err != nil {
			return err
		}
		entry = entries[0]
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &entry, reversed, nil
}

// TeamLedger loads the flat facts needed to total one team. q lets callers read inside
// their own transaction; nil reads from the pool.
func (r *LedgerRepository) TeamLedger(ctx context.Context, q sqlx.QueryerContext, ownerID, teamID string) (*models.TeamLedger, error) {
	if q == nil {
		q = r.db
	}
	var team models.Team
	if err := sqlx.GetContext(ctx, q, &team, `SELECT `+teamColumns+` FROM teams WHERE id = $1 AND owner_id = $2`, teamID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("load team: %w", err)
	}
	members, err := listStudents(ctx, q, models.StudentFilter{OwnerID: ownerID, TeamID: teamID})
	if err != nil {
		return nil, err
	}
	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	entries, err := listEntries(ctx, q, models.LedgerFilter{OwnerID: ownerID, TeamIDs: []string{teamID}, StudentIDs: memberIDs})
	if err != nil {
		return nil, err
	}
	var spent int
	if err := sqlx.GetContext(ctx, q, &spent,
		`SELECT COALESCE(SUM(cost), 0) FROM purchases WHERE team_id = $1 AND currency = 'xp'`, teamID); err != nil {
		return nil, fmt.Errorf("sum xp purchases: %w", err)
	}
	return &models.TeamLedger{Team: team, Members: members, Entries: entries, SpentXP: spent}, nil
}

// RoomLedger loads the flat facts needed to rank every team and student of a room.
func (r *LedgerRepository) RoomLedger(ctx context.Context, ownerID, roomID string) (*models.RoomLedger, error) {
	teams, err := listTeams(ctx, r.db, models.TeamFilter{OwnerID: ownerID, RoomID: roomID})
	if err != nil {
		return nil, err
	}
	students, err := listStudents(ctx, r.db, models.StudentFilter{OwnerID: ownerID, RoomID: roomID})
	if err != nil {
		return nil, err
	}
	entries, err := listEntries(ctx, r.db, models.LedgerFilter{OwnerID: ownerID, RoomID: roomID})
	if err != nil {
		return nil, err
	}
	var spentRows []struct {
		TeamID string `db:"team_id"`
		Spent  int    `db:"spent"`
	}
	if err := r.db.SelectContext(ctx, &spentRows, `SELECT p.team_id, SUM(p.cost) AS spent FROM purchases p
	WHERE p.currency = 'xp' AND p.team_id IN (SELECT id FROM teams WHERE room_id = $1 AND owner_id = $2)
	GROUP BY p.team_id`, roomID, ownerID); err != nil {
		return nil, fmt.Errorf("sum room xp purchases: %w", err)
	}
	spent := make(map[string]int, len(spentRows))
	for _, row := range spentRows {
		spent[row.TeamID] = row.Spent
	}
	return &models.RoomLedger{RoomID: roomID, Teams: teams, Students: students, Entries: entries, SpentXP: spent}, nil
}
