package outlets

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

//go:embed outlets.yaml
var seedOutlets []byte

const schemaSQL = `
CREATE TABLE IF NOT EXISTS outlets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	location TEXT NOT NULL,
	address TEXT NOT NULL,
	opening_hours TEXT NOT NULL,
	services TEXT,
	contact TEXT,
	latitude REAL,
	longitude REAL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_outlets_name ON outlets(name);
`

// Store is the tabular outlet provider backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates the schema and seeds the embedded outlets when the table is empty.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("initialize outlets schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outlets").Scan(&count); err != nil {
		return nil, fmt.Errorf("count outlets: %w", err)
	}
	if count == 0 {
		if err := s.seed(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) seed(ctx context.Context) error {
	var outlets []model.Outlet
	if err := yaml.Unmarshal(seedOutlets, &outlets); err != nil {
		return fmt.Errorf("decode outlet seed: %w", err)
	}
	for _, o := range outlets {
		if _, err := s.AddOutlet(ctx, o); err != nil {
			return err
		}
	}
	logx.Info().Int("outlets", len(outlets)).Msg("seeded outlet database")
	return nil
}

// AddOutlet inserts an outlet and returns its id.
func (s *Store) AddOutlet(ctx context.Context, o model.Outlet) (int64, error) {
	if o.Name == "" || o.Location == "" || o.Address == "" || o.OpeningHours == "" {
		return 0, fmt.Errorf("outlet requires name, location, address and opening hours")
	}
	services, err := json.Marshal(nonNil(o.Services))
	if err != nil {
		return 0, fmt.Errorf("encode services: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO outlets (name, location, address, opening_hours, services, contact, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Name, o.Location, o.Address, o.OpeningHours, string(services),
		nullString(o.Contact), nullFloat(o.Latitude), nullFloat(o.Longitude),
	)
	if err != nil {
		return 0, fmt.Errorf("insert outlet: %w", err)
	}
	return res.LastInsertId()
}

// All returns every outlet ordered by name.
func (s *Store) All(ctx context.Context) ([]model.Outlet, error) {
	return s.Query(ctx, Query{SQL: "SELECT " + fullColumns + " FROM outlets" + orderByName})
}

// Query runs a translated query. The safety gate is applied again here so
// no caller can bypass it.
func (s *Store) Query(ctx context.Context, q Query) ([]model.Outlet, error) {
	if err := CheckSafe(q); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query outlets: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []model.Outlet
	for rows.Next() {
		o, err := scanOutlet(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outlets: %w", err)
	}
	return out, nil
}

func scanOutlet(rows *sql.Rows, cols []string) (model.Outlet, error) {
	var (
		o        model.Outlet
		services sql.NullString
		contact  sql.NullString
		address  sql.NullString
		hours    sql.NullString
		lat, lng sql.NullFloat64
	)
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch c {
		case "id":
			dest[i] = &o.ID
		case "name":
			dest[i] = &o.Name
		case "location":
			dest[i] = &o.Location
		case "address":
			dest[i] = &address
		case "opening_hours":
			dest[i] = &hours
		case "services":
			dest[i] = &services
		case "contact":
			dest[i] = &contact
		case "latitude":
			dest[i] = &lat
		case "longitude":
			dest[i] = &lng
		default:
			dest[i] = new(any)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return model.Outlet{}, fmt.Errorf("scan outlet: %w", err)
	}

	o.Address = address.String
	o.OpeningHours = hours.String
	o.Contact = contact.String
	o.Latitude = lat.Float64
	o.Longitude = lng.Float64
	if services.Valid && services.String != "" {
		if err := json.Unmarshal([]byte(services.String), &o.Services); err != nil {
			logx.Warn().Err(err).Int64("outlet_id", o.ID).Msg("ignoring malformed services column")
			o.Services = nil
		}
	}
	return o, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}
