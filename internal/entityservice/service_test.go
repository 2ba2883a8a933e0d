package entityservice

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/introspect"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/options"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/resolver"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/validation"
)

type Category struct {
	ID   int
	Name string `admin:"required,maxlength=20"`
}

type Product struct {
	ID         int
	Name       string `admin:"required,search=contains"`
	Sku        string
	Price      decimal.Decimal
	Stock      int
	CategoryID *int
	Category   *Category
}

type OrderLine struct {
	OrderID int `gorm:"primaryKey;autoIncrement:false"`
	LineNo  int `gorm:"primaryKey;autoIncrement:false"`
	Item    string
}

type Gadget struct {
	ID   int
	Name string
}

type testEnv struct {
	db    *gorm.DB
	svc   *Service
	graph *metadata.Graph
	logs  *bytes.Buffer
}

func newTestEnv(t *testing.T, configure func(b *options.Builder)) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Category{}, &Product{}, &OrderLine{}, &Gadget{}))

	catID := 1
	require.NoError(t, db.Create(&Category{ID: 1, Name: "Lighting"}).Error)
	require.NoError(t, db.Create(&[]Product{
		{ID: 1, Name: "Desk Lamp", Sku: "L-1", Price: decimal.RequireFromString("19.90"), Stock: 5, CategoryID: &catID},
		{ID: 2, Name: "Floor Lamp", Sku: "L-2", Price: decimal.RequireFromString("49.00"), Stock: 2, CategoryID: &catID},
		{ID: 3, Name: "Bulb", Sku: "B-1", Price: decimal.RequireFromString("2.50"), Stock: 100},
	}).Error)
	require.NoError(t, db.Create(&OrderLine{OrderID: 7, LineNo: 2, Item: "Bulb"}).Error)
	require.NoError(t, db.Create(&Gadget{ID: 1, Name: "Gizmo"}).Error)

	b := options.NewBuilder().IncludeAllEntities().
		ConfigureEntity(Gadget{}, func(e *options.EntityOptionsBuilder) {
			e.SetCanEdit(false).SetCanDelete(false)
		})
	if configure != nil {
		configure(b)
	}
	r := resolver.New(introspect.NewGormProvider(db, &Product{}, &OrderLine{}, &Gadget{}), b.Options(), resolver.Config{})
	graph, err := r.GetMetadata(context.Background())
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	svc := New(store.New(db), Config{Logger: slog.New(slog.NewTextHandler(logs, nil))})
	return &testEnv{db: db, svc: svc, graph: graph, logs: logs}
}

func (env *testEnv) entity(t *testing.T, model any) *metadata.EntityMetadata {
	t.Helper()
	e, ok := env.graph.ByType(reflect.TypeOf(model))
	require.True(t, ok, "entity %T not resolved", model)
	return e
}

func (env *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(model).Count(&n).Error)
	return n
}

func TestGetInstance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	products := env.entity(t, Product{})

	got, err := env.svc.GetInstance(ctx, products, "1", []string{"category"})
	require.NoError(t, err)
	p := got.(*Product)
	assert.Equal(t, "Desk Lamp", p.Name)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Lighting", p.Category.Name)

	got, err = env.svc.GetInstance(ctx, products, "2", nil)
	require.NoError(t, err)
	assert.Nil(t, got.(*Product).Category, "navigations load only on request")

	_, err = env.svc.GetInstance(ctx, products, "99", nil)
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	_, err = env.svc.GetInstance(ctx, products, "abc", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = env.svc.GetInstance(ctx, products, "1", []string{"Supplier"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGetInstance_CompositeKey(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	lines := env.entity(t, OrderLine{})

	got, err := env.svc.GetInstance(ctx, lines, "7--2", nil)
	require.NoError(t, err)
	line := got.(*OrderLine)
	assert.Equal(t, "Bulb", line.Item)

	key, err := env.svc.Key(lines, line)
	require.NoError(t, err)
	assert.Equal(t, "7--2", key)

	_, err = env.svc.GetInstance(ctx, lines, "7", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = env.svc.GetInstance(ctx, lines, "7--3", nil)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	products := env.entity(t, Product{})

	res, err := env.svc.Search(context.Background(), products, query.Request{
		Search:  "LAMP",
		OrderBy: []query.OrderBy{{Path: "Price", Descending: true}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, "Floor Lamp", res.Items[0].(*Product).Name)

	_, err = env.svc.Search(context.Background(), products, query.Request{OrderBy: []query.OrderBy{{Path: "Color"}}})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCreate(t *testing.T) {
	var sawTransaction bool
	env := newTestEnv(t, func(b *options.Builder) {
		b.ConfigureEntity(Product{}, func(e *options.EntityOptionsBuilder) {
			e.SetCreateAction(func(ctx context.Context, tx *gorm.DB, entity any) error {
				_, sawTransaction = store.TransactionFromContext(ctx)
				p := entity.(*Product)
				if p.Sku == "" {
					p.Sku = "AUTO"
				}
				if p.Name == "Forbidden" {
					return errors.New("not allowed")
				}
				return nil
			})
		})
	})
	ctx := context.Background()
	products := env.entity(t, Product{})

	created, err := env.svc.Create(ctx, products, &Product{Name: "Table Lamp", Stock: 1})
	require.NoError(t, err)
	p := created.(*Product)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "AUTO", p.Sku)
	assert.True(t, sawTransaction)
	assert.Equal(t, int64(4), env.count(t, &Product{}))

	_, err = env.svc.Create(ctx, products, &Product{Name: "Forbidden"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create action failed")
	assert.Equal(t, int64(4), env.count(t, &Product{}))

	_, err = env.svc.Create(ctx, products, &Product{Stock: 1})
	var verrs *validation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"is required"}, verrs.Fields["Name"])
	assert.Equal(t, int64(4), env.count(t, &Product{}))

	_, err = env.svc.Create(ctx, products, &Category{Name: "Wrong"})
	assert.ErrorIs(t, err, ErrMixedEntityTypes)
}

func TestUpdate(t *testing.T) {
	var (
		seenChanges  map[string]any
		seenOriginal *Product
	)
	env := newTestEnv(t, func(b *options.Builder) {
		b.ConfigureEntity(Product{}, func(e *options.EntityOptionsBuilder) {
			e.SetUpdateAction(func(_ context.Context, _ *gorm.DB, _ any, changes map[string]any) error {
				seenChanges = map[string]any{}
				for k, v := range changes {
					seenChanges[k] = v
				}
				changes["sku"] = "L-1-RESTOCKED"
				return nil
			})
			e.SetAfterUpdateAction(func(_ context.Context, _ *gorm.DB, original, _ any) error {
				seenOriginal = original.(*Product)
				return errors.New("notification failed")
			})
		})
	})
	ctx := context.Background()
	products := env.entity(t, Product{})

	loaded, err := env.svc.GetInstance(ctx, products, "1", nil)
	require.NoError(t, err)
	original := Snapshot(products, loaded)
	p := loaded.(*Product)
	p.Stock = 9

	updated, err := env.svc.Update(ctx, products, p, original)
	require.NoError(t, err, "after update errors are logged, not returned")

	assert.Equal(t, map[string]any{"stock": 9}, seenChanges)
	got := updated.(*Product)
	assert.Equal(t, 9, got.Stock)
	assert.Equal(t, "L-1-RESTOCKED", got.Sku)
	assert.Equal(t, "Desk Lamp", got.Name)
	require.NotNil(t, seenOriginal)
	assert.Equal(t, 5, seenOriginal.Stock)
	assert.Contains(t, env.logs.String(), "After update action failed")
	assert.Contains(t, env.logs.String(), "notification failed")
}

func TestUpdate_Refusals(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	gadgets := env.entity(t, Gadget{})
	_, err := env.svc.Update(ctx, gadgets, &Gadget{ID: 1, Name: "Changed"}, nil)
	assert.ErrorIs(t, err, ErrReadOnlyEntity)

	products := env.entity(t, Product{})
	_, err = env.svc.Update(ctx, products, &Product{ID: 42, Name: "Ghost"}, nil)
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	_, err = env.svc.Update(ctx, products, &Product{ID: 1, Name: ""}, &Product{ID: 1, Name: "Desk Lamp"})
	var verrs *validation.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestUpdate_WithinCallerTransaction(t *testing.T) {
	env := newTestEnv(t, nil)
	products := env.entity(t, Product{})

	err := env.db.Transaction(func(tx *gorm.DB) error {
		ctx := store.WithTransaction(context.Background(), tx)
		_, err := env.svc.Update(ctx, products, &Product{ID: 3, Name: "Bulb", Sku: "B-1", Stock: 0}, &Product{ID: 3, Name: "Bulb", Sku: "B-1", Stock: 100})
		require.NoError(t, err)
		return errors.New("rollback")
	})
	require.Error(t, err)

	var stock int
	require.NoError(t, env.db.Model(&Product{}).Where("id = ?", 3).Select("stock").Scan(&stock).Error)
	assert.Equal(t, 100, stock)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	products := env.entity(t, Product{})

	require.NoError(t, env.svc.Delete(ctx, products, &Product{ID: 3}))
	assert.Equal(t, int64(2), env.count(t, &Product{}))

	err := env.svc.Delete(ctx, products, &Product{ID: 3})
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	err = env.svc.Delete(ctx, env.entity(t, Gadget{}), &Gadget{ID: 1})
	assert.ErrorIs(t, err, ErrReadOnlyEntity)
}

func TestBulkDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	products := env.entity(t, Product{})

	err := env.svc.BulkDelete(ctx, products, []any{&Product{ID: 1}, &Category{ID: 1}})
	assert.ErrorIs(t, err, ErrMixedEntityTypes)
	assert.Equal(t, int64(3), env.count(t, &Product{}))

	err = env.svc.BulkDelete(ctx, products, []any{&Product{ID: 1}, &Product{ID: 99}})
	assert.ErrorIs(t, err, ErrInstanceNotFound)
	assert.Equal(t, int64(3), env.count(t, &Product{}), "a failed bulk delete rolls back")

	require.NoError(t, env.svc.BulkDelete(ctx, products, []any{&Product{ID: 1}, &Product{ID: 2}}))
	assert.Equal(t, int64(1), env.count(t, &Product{}))

	require.NoError(t, env.svc.BulkDelete(ctx, products, nil))
}

func TestCancelledContext(t *testing.T) {
	var actionCalls int
	env := newTestEnv(t, func(b *options.Builder) {
		b.ConfigureEntity(Product{}, func(e *options.EntityOptionsBuilder) {
			e.SetCreateAction(func(context.Context, *gorm.DB, any) error {
				actionCalls++
				return nil
			})
			e.SetUpdateAction(func(context.Context, *gorm.DB, any, map[string]any) error {
				actionCalls++
				return nil
			})
		})
	})
	products := env.entity(t, Product{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.Search(ctx, products, query.Request{Search: "lamp"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = env.svc.GetInstance(ctx, products, "1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrInstanceNotFound)

	_, err = env.svc.Create(ctx, products, &Product{Name: "Wall Lamp", Stock: 1})
	assert.ErrorIs(t, err, context.Canceled)

	original := &Product{ID: 1, Name: "Desk Lamp", Sku: "L-1", Stock: 5}
	edited := &Product{ID: 1, Name: "Desk Lamp", Sku: "L-1", Stock: 0}
	_, err = env.svc.Update(ctx, products, edited, original)
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, env.svc.Delete(ctx, products, &Product{ID: 3}), context.Canceled)
	assert.ErrorIs(t, env.svc.BulkDelete(ctx, products, []any{&Product{ID: 1}, &Product{ID: 2}}), context.Canceled)

	assert.Zero(t, actionCalls, "lifecycle actions do not run without a transaction")
	assert.Equal(t, int64(3), env.count(t, &Product{}))
	var stock int
	require.NoError(t, env.db.Model(&Product{}).Where("id = ?", 1).Select("stock").Scan(&stock).Error)
	assert.Equal(t, 5, stock)
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, nil)
	categories := env.entity(t, Category{})

	ok, errs := env.svc.Validate(context.Background(), categories, &Category{Name: "A name that is far too long"}, nil)
	assert.False(t, ok)
	assert.Equal(t, []string{"must be at most 20 characters"}, errs.Fields["Name"])

	ok, errs = env.svc.Validate(context.Background(), categories, &Category{Name: "Tools"}, nil)
	assert.True(t, ok)
	assert.Zero(t, errs.Count())
}

func TestSnapshotAndDiff(t *testing.T) {
	env := newTestEnv(t, nil)
	products := env.entity(t, Product{})

	catID := 1
	original := &Product{
		ID:         1,
		Name:       "Desk Lamp",
		Price:      decimal.RequireFromString("1.50"),
		CategoryID: &catID,
		Category:   &Category{ID: 1, Name: "Lighting"},
	}
	snap := Snapshot(products, original).(*Product)
	require.Equal(t, original, snap)
	assert.NotSame(t, original.CategoryID, snap.CategoryID)
	assert.NotSame(t, original.Category, snap.Category)

	snap.Category.Name = "Changed"
	assert.Equal(t, "Lighting", original.Category.Name)

	edited := Snapshot(products, original).(*Product)
	edited.Price = decimal.RequireFromString("1.5")
	assert.Empty(t, Diff(products, original, edited), "equal decimals are not a change")

	other := 2
	edited.CategoryID = &other
	edited.Name = "Desk Lamp XL"
	assert.Equal(t, map[string]any{"category_id": &other, "name": "Desk Lamp XL"}, Diff(products, original, edited))

	all := Diff(products, nil, edited)
	assert.ElementsMatch(t, []string{"name", "sku", "price", "stock", "category_id"}, keys(all))

	assert.Nil(t, Snapshot(products, &Category{}))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type Widget struct {
	ID     int
	Name   string
	Color  string
	Size   int
	Weight float64
	Active bool
}

func TestUpdate_WritesOnlyChangedColumns(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	r := resolver.New(introspect.NewGormProvider(db, &Widget{}), options.NewBuilder().IncludeAllEntities().Options(), resolver.Config{})
	graph, err := r.GetMetadata(context.Background())
	require.NoError(t, err)
	widgets, ok := graph.ByType(reflect.TypeOf(Widget{}))
	require.True(t, ok)

	original := &Widget{ID: 1, Name: "Bolt", Color: "red", Size: 3, Weight: 1.5, Active: true}
	edited := Snapshot(widgets, original).(*Widget)
	edited.Name = "Bolt XL"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "widgets" SET "name"=\$1 WHERE`).
		WithArgs("Bolt XL", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "widgets" WHERE "widgets"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color", "size", "weight", "active"}).
			AddRow(1, "Bolt XL", "red", 3, 1.5, true))
	mock.ExpectCommit()

	svc := New(store.New(db), Config{})
	updated, err := svc.Update(context.Background(), widgets, edited, original)
	require.NoError(t, err)
	assert.Equal(t, "Bolt XL", updated.(*Widget).Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
