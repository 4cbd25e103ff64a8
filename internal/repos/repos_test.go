package repos_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastore/internal/domain"
	"pharmastore/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenDBSeedsCatalogOnce(t *testing.T) {
	db := memdb(t)
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM products`))
	assert.Equal(t, 10, n)

	p, err := repos.NewProductRepo(db).Get(context.Background(), "amoxicilina-500")
	require.NoError(t, err)
	assert.True(t, p.Prescription)
	assert.Equal(t, 32.40, p.Price)
}

func TestProductSearchMatchesNameDescriptionManufacturer(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	prods := repos.NewProductRepo(db)

	f, err := repos.ProductFilter{Term: "DIPIRONA"}.Normalize()
	require.NoError(t, err)
	got, err := prods.Search(ctx, f)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, p := range got {
		assert.True(t, containsFold(p.Name, "dipirona") || containsFold(p.Description, "dipirona") || containsFold(p.Manufacturer, "dipirona"), p.ID)
	}

	// manufacturer match, category filter, ordering by category then name
	f, _ = repos.ProductFilter{Term: "medley"}.Normalize()
	got, err = prods.Search(ctx, f)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Analgésicos", got[0].Category)
	assert.Equal(t, "Antialérgicos", got[1].Category)

	f, _ = repos.ProductFilter{Category: "analgésicos", Limit: 2}.Normalize()
	got, err = prods.Search(ctx, f)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dipirona-gotas", got[0].ID)
	assert.Equal(t, "dipirona-500", got[1].ID)
}

func TestProductSearchEscapesWildcards(t *testing.T) {
	db := memdb(t)
	f, _ := repos.ProductFilter{Term: "%"}.Normalize()
	got, err := repos.NewProductRepo(db).Search(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductFilterNormalize(t *testing.T) {
	f, err := repos.ProductFilter{Term: "  x  ", Limit: 500}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "x", f.Term)
	assert.Equal(t, repos.MaxSearchLimit, f.Limit)

	f, err = repos.ProductFilter{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, repos.DefaultSearchLimit, f.Limit)

	_, err = repos.ProductFilter{Limit: -1}.Normalize()
	assert.Error(t, err)
}

func TestProductUpdatePatch(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	prods := repos.NewProductRepo(db)

	price := 9.99
	stock := 3
	p, err := prods.Update(ctx, "dipirona-500", domain.ProductPatch{Price: &price, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 9.99, p.Price)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, "EMS", p.Manufacturer)

	_, err = prods.Update(ctx, "nope", domain.ProductPatch{Price: &price})
	assert.True(t, repos.IsNoRows(err))
}

func TestCartAddReadRemoveClear(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	carts := repos.NewCartRepo(db)
	owner := domain.CartOwner{SessionID: "s-1"}

	require.NoError(t, carts.AddItem(ctx, owner, "dipirona-500", 2))
	cart, err := carts.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 17.80, cart.Total)

	// adding again accumulates
	require.NoError(t, carts.AddItem(ctx, owner, "dipirona-500", 1))
	require.NoError(t, carts.AddItem(ctx, owner, "loratadina-10", 1))
	cart, err = carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.ItemCount)
	assert.Equal(t, 37.90, cart.Total)

	removed, err := carts.RemoveItem(ctx, owner, "not-in-cart")
	require.NoError(t, err)
	assert.False(t, removed)
	cart, _ = carts.Get(ctx, owner)
	assert.Len(t, cart.Items, 2)

	removed, err = carts.RemoveItem(ctx, owner, "loratadina-10")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, carts.Clear(ctx, owner))
	cart, err = carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestCartRejectsUnknownProductAndOverStock(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	carts := repos.NewCartRepo(db)
	owner := domain.CartOwner{SessionID: "s-2"}

	assert.ErrorIs(t, carts.AddItem(ctx, owner, "ghost", 1), repos.ErrProductNotFound)
	assert.ErrorIs(t, carts.AddItem(ctx, owner, "protetor-solar-fps50", 36), repos.ErrInsufficientStock)
	assert.ErrorIs(t, carts.AddItem(ctx, domain.CartOwner{}, "dipirona-500", 1), repos.ErrNoOwner)
}

func TestCartSetQuantity(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	carts := repos.NewCartRepo(db)
	owner := domain.CartOwner{SessionID: "s-3"}

	require.NoError(t, carts.SetQuantity(ctx, owner, "omeprazol-20", 4))
	cart, _ := carts.Get(ctx, owner)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	require.NoError(t, carts.SetQuantity(ctx, owner, "omeprazol-20", 0))
	cart, _ = carts.Get(ctx, owner)
	assert.Empty(t, cart.Items)

	assert.ErrorIs(t, carts.SetQuantity(ctx, owner, "ghost", 0), repos.ErrProductNotFound)
	assert.ErrorIs(t, carts.SetQuantity(ctx, owner, "ghost", 2), repos.ErrProductNotFound)
}

func TestCartMergeOnLogin(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	users := repos.NewUserRepo(db)
	carts := repos.NewCartRepo(db)

	u, err := users.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	userOwner := domain.CartOwner{UserID: u.ID}
	anon := domain.CartOwner{SessionID: "alice-phone"}

	require.NoError(t, carts.AddItem(ctx, userOwner, "dipirona-500", 1))
	require.NoError(t, carts.AddItem(ctx, anon, "dipirona-500", 2))
	require.NoError(t, carts.AddItem(ctx, anon, "vitamina-c-1g", 1))

	require.NoError(t, carts.Merge(ctx, "alice-phone", u.ID))

	cart, err := carts.Get(ctx, userOwner)
	require.NoError(t, err)
	qty := map[string]int{}
	for _, it := range cart.Items {
		qty[it.ProductID] = it.Quantity
	}
	assert.Equal(t, map[string]int{"dipirona-500": 3, "vitamina-c-1g": 1}, qty)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM carts WHERE owner_key = 'session:alice-phone'`))
	assert.Zero(t, n)

	// merging a session without a cart is a no-op
	assert.NoError(t, carts.Merge(ctx, "never-seen", u.ID))
}

func TestUserCreateConflict(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	users := repos.NewUserRepo(db)

	_, err := users.Create(ctx, "Bob", "h")
	require.NoError(t, err)
	_, err = users.Create(ctx, "bob", "h")
	assert.ErrorIs(t, err, repos.ErrUsernameTaken)

	u, err := users.ByUsername(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Username)

	_, err = users.ByUsername(ctx, "carol")
	assert.True(t, repos.IsNoRows(err))
}

func TestSeedFromFileUpserts(t *testing.T) {
	db := memdb(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - id: dipirona-500
    name: Dipirona Sódica 500mg
    price: 7.50
    category: Analgésicos
    manufacturer: EMS
    stock: 10
  - id: soro-fisiologico
    name: Soro Fisiológico 0,9% 500ml
    price: 6.00
    category: Soluções
    stock: 25
`), 0o644))

	n, err := repos.SeedFromFile(db, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := repos.NewProductRepo(db).Get(context.Background(), "dipirona-500")
	require.NoError(t, err)
	assert.Equal(t, 7.50, p.Price)

	_, err = repos.ParseCatalog([]byte("products:\n  - id: x\n"))
	assert.Error(t, err)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
