package store

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for testing

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/scope"
)

func setupBuilderTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			price REAL,
			category TEXT
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO products (id, name, price, category) VALUES
		(1, 'Product 1', 10.5, 'A'),
		(2, 'Product 2', 20.0, 'B'),
		(3, 'Product 3', 15.5, 'A'),
		(4, 'Product 4', 30.0, 'C')
	`)
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}
	return db
}

func TestSQLBuilder_BasicSelect(t *testing.T) {
	qb := newSQLBuilder(SQLite, "products")

	sql, args := qb.ToSQL()
	expectedSQL := `SELECT * FROM "products"`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
	if len(args) != 0 {
		t.Errorf("Expected no args, got %v", args)
	}
}

func TestSQLBuilder_WhereOrderWindow(t *testing.T) {
	qb := newSQLBuilder(SQLite, "products").
		Select(`"products"."id"`, `"products"."name"`).
		Where(scope.New("price > ?", 15.0)).
		Where(scope.QueryScope{}).
		Where(scope.New("category = ?", "A")).
		OrderBy("price DESC").
		OrderBy("name").
		Limit(10).
		Offset(5)

	sql, args := qb.ToSQL()
	expectedSQL := `SELECT "products"."id", "products"."name" FROM "products" WHERE price > ? AND category = ? ORDER BY price DESC, name LIMIT 10 OFFSET 5`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
	if len(args) != 2 || args[0] != 15.0 || args[1] != "A" {
		t.Errorf("Expected args [15 A], got %v", args)
	}
}

func TestSQLBuilder_JoinArgsPrecedeWhereArgs(t *testing.T) {
	qb := newSQLBuilder(SQLite, "products").
		Join(`LEFT JOIN "categories" "Category" ON "Category"."id" = "products"."category_id" AND "Category"."kind" = ?`, "main").
		Where(scope.New(`"Category"."active" = ?`, true))

	sql, args := qb.ToSQL()
	expectedSQL := `SELECT * FROM "products" LEFT JOIN "categories" "Category" ON "Category"."id" = "products"."category_id" AND "Category"."kind" = ? WHERE "Category"."active" = ?`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
	if len(args) != 2 || args[0] != "main" || args[1] != true {
		t.Errorf("Expected args [main true], got %v", args)
	}
}

func TestSQLBuilder_MySQL(t *testing.T) {
	qb := newSQLBuilder(MySQL, "products").Offset(5)

	sql, _ := qb.ToSQL()
	expectedSQL := "SELECT * FROM `products` LIMIT 18446744073709551615 OFFSET 5"
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
}

func TestSQLBuilder_PostgresPlaceholders(t *testing.T) {
	qb := newSQLBuilder(Postgres, "products").
		Where(scope.New("name LIKE ? ESCAPE '!'", "%a%")).
		Where(scope.New("note = '?' AND category = ?", "A"))

	sql, _ := qb.ToSQL()
	expectedSQL := `SELECT * FROM "products" WHERE name LIKE $1 ESCAPE '!' AND note = '?' AND category = $2`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
}

func TestSQLBuilder_ToCountSQL(t *testing.T) {
	qb := newSQLBuilder(SQLite, "products").
		Where(scope.New("price > ?", 15.0)).
		OrderBy("price").
		Limit(1)

	sql, args := qb.ToCountSQL()
	expectedSQL := `SELECT COUNT(*) FROM "products" WHERE price > ?`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %d", len(args))
	}
}

func TestSQLBuilder_Clone(t *testing.T) {
	original := newSQLBuilder(SQLite, "products").
		Where(scope.New("price > ?", 10.0)).
		OrderBy("price DESC").
		Limit(3)

	clone := original.Clone().Where(scope.New("category = ?", "A")).Limit(1)

	originalSQL, originalArgs := original.ToSQL()
	cloneSQL, cloneArgs := clone.ToSQL()
	if originalSQL == cloneSQL {
		t.Errorf("Clone should have different SQL after modification")
	}
	if len(originalArgs) != 1 {
		t.Errorf("Original should have 1 arg, got %d", len(originalArgs))
	}
	if len(cloneArgs) != 2 {
		t.Errorf("Clone should have 2 args, got %d", len(cloneArgs))
	}
	if *original.limit != 3 {
		t.Errorf("Original limit changed to %d", *original.limit)
	}
}

func TestSQLBuilder_Executes(t *testing.T) {
	db := setupBuilderTestDB(t)
	defer db.Close()
	ctx := context.Background()

	qb := newSQLBuilder(SQLite, "products").
		Select(`"products"."id"`).
		Where(scope.Any(scope.New("price > ?", 25.0), scope.New("category = ?", "A"))).
		OrderBy(`"products"."price" DESC`)

	countSQL, countArgs := qb.ToCountSQL()
	var count int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}

	query, args := qb.Limit(2).Offset(1).ToSQL()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error: %v", err)
	}
	// price order: 4 (30.0), 3 (15.5), 1 (10.5); the window skips the first
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("Expected ids [3 1], got %v", ids)
	}
}

func TestDialect(t *testing.T) {
	if got := SQLite.Quote(`we"ird`); got != `"we""ird"` {
		t.Errorf("Quote() = %s", got)
	}
	if got := MySQL.Column("Shop", "name"); got != "`Shop`.`name`" {
		t.Errorf("MySQL Column() = %s", got)
	}
	if got := MySQL.Text("x"); got != "CAST(x AS CHAR)" {
		t.Errorf("MySQL Text() = %s", got)
	}
	for in, want := range map[string]Dialect{"": SQLite, "sqlite3": SQLite, "PostgreSQL": Postgres, "mariadb": MySQL} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Error("ParseDialect(oracle) expected error")
	}
}
