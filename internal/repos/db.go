package repos

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"pharmastore/internal/domain"
	applog "pharmastore/internal/log"
)

//go:embed seed/catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Products []domain.Product `yaml:"products"`
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; one connection also keeps
	// ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  category TEXT NOT NULL,
  manufacturer TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  prescription INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(LOWER(category));
CREATE INDEX IF NOT EXISTS idx_products_name     ON products(LOWER(name));

-- Carts: one row per owner key (user:<id> or session:<sid>)
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  owner_key TEXT UNIQUE NOT NULL,
  user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
  session_id TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  cart_id    TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (cart_id, product_id)
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	cat, err := ParseCatalog(defaultCatalog)
	if err != nil {
		return err
	}
	applog.L().Info("seed.catalog", zap.Int("products", len(cat.Products)))
	_, err = UpsertCatalog(db, cat)
	return err
}

func ParseCatalog(b []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	for i, p := range cat.Products {
		if p.ID == "" || p.Name == "" || p.Category == "" {
			return Catalog{}, fmt.Errorf("catalog entry %d: id, name and category are required", i)
		}
		if p.Price < 0 || p.Stock < 0 {
			return Catalog{}, fmt.Errorf("catalog entry %q: negative price or stock", p.ID)
		}
	}
	return cat, nil
}

// SeedFromFile loads a YAML catalog and upserts it (idempotent).
func SeedFromFile(db *sqlx.DB, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	cat, err := ParseCatalog(b)
	if err != nil {
		return 0, err
	}
	return UpsertCatalog(db, cat)
}

func UpsertCatalog(db *sqlx.DB, cat Catalog) (int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range cat.Products {
		if _, err := tx.NamedExec(`
			INSERT INTO products(id,name,description,price,category,manufacturer,stock,prescription,created_at)
			VALUES(:id,:name,:description,:price,:category,:manufacturer,:stock,:prescription,CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
			  name=excluded.name, description=excluded.description, price=excluded.price,
			  category=excluded.category, manufacturer=excluded.manufacturer,
			  stock=excluded.stock, prescription=excluded.prescription,
			  updated_at=CURRENT_TIMESTAMP
		`, p); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", p.ID, err)
		}
	}
	return len(cat.Products), tx.Commit()
}
