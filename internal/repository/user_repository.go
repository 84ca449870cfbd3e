package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

var ErrTableNotWritable = errors.New("table does not hold users")

// Each query renders one JSON document per row with the joined sub-resources
// under the same keys the REST API uses, so both adapters share one decoder.
const (
	selectCustomers = `
    SELECT row_to_json(c) FROM (
        SELECT cu.*,
            (SELECT row_to_json(ct) FROM "Contact" ct WHERE ct."customerId" = cu."id" LIMIT 1) AS contact,
            (SELECT row_to_json(av) FROM "Avatar" av WHERE av."customerId" = cu."id" LIMIT 1) AS "Avatar"
        FROM "Customer" cu
        ORDER BY cu."username"
    ) c
    `

	selectFreelancers = `
    SELECT row_to_json(f) FROM (
        SELECT fr.*,
            (SELECT row_to_json(ct) FROM "Contact" ct WHERE ct."freelancerId" = fr."id" LIMIT 1) AS contact,
            (SELECT row_to_json(av) FROM "Avatar" av WHERE av."freelancerId" = fr."id" LIMIT 1) AS "Avatar",
            (SELECT json_agg(s) FROM "SkillSet" s WHERE s."freelancerId" = fr."id") AS skills,
            (SELECT json_agg(w ORDER BY w."joinedDate") FROM "WorkExperience" w WHERE w."freelancerId" = fr."id") AS "workExperience"
        FROM "Freelancer" fr
        ORDER BY fr."username"
    ) f
    `
)

type UserRepository struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
}

func NewUserRepository(dbURL string, logger *zap.Logger) (*UserRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &UserRepository{
		DB:     pool,
		Logger: logger,
	}, nil
}

func (r *UserRepository) Close() {
	r.DB.Close()
}

// EnsureSchema creates the directory tables when missing and installs the
// triggers that publish a notification on every change to a watched table.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	r.Logger.Info("Directory schema and change triggers in place")
	return nil
}

func (r *UserRepository) FetchCustomers(ctx context.Context) ([]model.Customer, error) {
	docs, err := r.queryDocuments(ctx, selectCustomers)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}

	customers := make([]model.Customer, 0, len(docs))
	for _, doc := range docs {
		c, err := decodeCustomer(doc)
		if err != nil {
			return nil, fmt.Errorf("fetch customers: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

func (r *UserRepository) FetchFreelancers(ctx context.Context) ([]model.Freelancer, error) {
	docs, err := r.queryDocuments(ctx, selectFreelancers)
	if err != nil {
		return nil, fmt.Errorf("fetch freelancers: %w", err)
	}

	freelancers := make([]model.Freelancer, 0, len(docs))
	for _, doc := range docs {
		f, err := decodeFreelancer(doc)
		if err != nil {
			return nil, fmt.Errorf("fetch freelancers: %w", err)
		}
		freelancers = append(freelancers, f)
	}
	return freelancers, nil
}

func (r *UserRepository) queryDocuments(ctx context.Context, query string) ([][]byte, error) {
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *UserRepository) UpdateStatus(ctx context.Context, table model.Table, id string, status model.Status) error {
	if err := writableTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET "status" = $1 WHERE "id" = $2`, pgx.Identifier{string(table)}.Sanitize())
	tag, err := r.DB.Exec(ctx, query, string(status), id)
	if err != nil {
		r.Logger.Error("UpdateStatus failed", zap.Error(err), zap.String("table", string(table)), zap.String("id", id))
		return fmt.Errorf("update %s status: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		r.Logger.Debug("UpdateStatus matched no rows", zap.String("table", string(table)), zap.String("id", id))
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, table model.Table, id string) error {
	if err := writableTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, pgx.Identifier{string(table)}.Sanitize())
	tag, err := r.DB.Exec(ctx, query, id)
	if err != nil {
		r.Logger.Error("Delete failed", zap.Error(err), zap.String("table", string(table)), zap.String("id", id))
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		r.Logger.Debug("Delete matched no rows", zap.String("table", string(table)), zap.String("id", id))
	}
	return nil
}

func writableTable(table model.Table) error {
	switch table {
	case model.TableCustomer, model.TableFreelancer:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrTableNotWritable, table)
}
