package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phillip-england/maintreq/internal/requests"
)

var (
	ErrNotFound      = errors.New("request not found")
	ErrNotConfigured = errors.New("database is not configured")
)

const selectColumns = `id, data_solicitacao, solicitante, setor_cargo, modelo_equipamento,
	descricao_equipamento, codigo_equipamento, sistema_alocado, quantidade,
	centro_custo, CAST(valor AS DOUBLE PRECISION), motivo_envio, url_imagem, status`

const insertRequestSQL = `INSERT INTO solicitacoes (
	data_solicitacao, solicitante, setor_cargo, modelo_equipamento,
	descricao_equipamento, codigo_equipamento, sistema_alocado, quantidade,
	centro_custo, valor, motivo_envio, url_imagem, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

// Repository runs the solicitacoes queries against one open database handle.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	loc     *time.Location
}

func NewRepository(db *sql.DB, dialect Dialect, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{db: db, dialect: dialect, loc: loc}
}

// Insert stores req in its own transaction and returns the assigned id.
func (r *Repository) Insert(ctx context.Context, req requests.Request) (int64, error) {
	var id int64
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		var err error
		id, err = r.insert(ctx, tx, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertAll stores every row in one transaction. Nothing is kept when any
// row fails.
func (r *Repository) InsertAll(ctx context.Context, rows []requests.Request) (int, error) {
	inserted := 0
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		for i, req := range rows {
			if _, err := r.insert(ctx, tx, req); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *Repository) insert(ctx context.Context, tx DBTX, req requests.Request) (int64, error) {
	if err := req.Valid(); err != nil {
		return 0, err
	}
	status := req.Status
	if status == "" {
		status = requests.StatusAwaitingShipment
	}
	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	var id int64
	err := tx.QueryRowContext(ctx, r.dialect.rebind(insertRequestSQL),
		submittedAt.UTC(),
		req.RequesterName,
		req.RequesterSectorRole,
		req.EquipmentModel,
		nullString(req.EquipmentDescription),
		req.EquipmentCode,
		req.AllocatedSystem,
		req.Quantity,
		nullString(req.CostCenter),
		nullFloat(req.Value),
		req.Reason,
		nullString(req.PhotoURL),
		status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}
	return id, nil
}

// FetchAll returns every row, newest first.
func (r *Repository) FetchAll(ctx context.Context) ([]requests.Request, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM solicitacoes ORDER BY data_solicitacao DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch requests: %w", err)
	}
	defer rows.Close()

	out := []requests.Request{}
	for rows.Next() {
		var (
			req         requests.Request
			description sql.NullString
			costCenter  sql.NullString
			value       sql.NullFloat64
			photoURL    sql.NullString
		)
		if err := rows.Scan(
			&req.ID,
			&req.SubmittedAt,
			&req.RequesterName,
			&req.RequesterSectorRole,
			&req.EquipmentModel,
			&description,
			&req.EquipmentCode,
			&req.AllocatedSystem,
			&req.Quantity,
			&costCenter,
			&value,
			&req.Reason,
			&photoURL,
			&req.Status,
		); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.SubmittedAt = req.SubmittedAt.In(r.loc)
		req.EquipmentDescription = stringPtr(description)
		req.CostCenter = stringPtr(costCenter)
		req.PhotoURL = stringPtr(photoURL)
		if value.Valid {
			v := value.Float64
			req.Value = &v
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

// Delete removes the row with id. A missing id yields ErrNotFound and the
// transaction is rolled back.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, r.dialect.rebind(`DELETE FROM solicitacoes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete request %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete request %d: %w", id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
