package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplyhub/marketplace-backend/internal/testdb"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"gorm.io/gorm"
)

type importFixture struct {
	conn     *gorm.DB
	importer Importer
	repo     Repository
}

func newImportFixture(t *testing.T, wrap func(Repository) Repository) importFixture {
	t.Helper()
	client, conn := testdb.Client(t)
	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	imp, err := NewImporter(ImporterParams{
		Repo:    repo,
		Tx:      client,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Metrics: metrics.NewImportMetrics(prometheus.NewRegistry()),
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	return importFixture{conn: conn, importer: imp, repo: repo}
}

func mustParse(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func shopInput(managerID uuid.UUID, doc *Document) ImportInput {
	return ImportInput{ManagerID: managerID, ManagerType: enums.UserTypeShop, Document: doc}
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestImportCreatesCatalogAndSkipsMalformedEntries(t *testing.T) {
	fx := newImportFixture(t, nil)
	managerID := uuid.New()

	result, err := fx.importer.Import(context.Background(), shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)

	assert.Equal(t, "Gadget Hub", result.ShopName)
	assert.Equal(t, 2, result.CategoriesLinked)
	assert.Equal(t, 1, result.CategoriesSkipped)
	assert.Equal(t, 2, result.ItemsImported)
	assert.Equal(t, 1, result.ItemsSkipped)

	var shop models.Shop
	require.NoError(t, fx.conn.First(&shop, result.ShopID).Error)
	assert.True(t, shop.ManagedBy(managerID))
	require.NotNil(t, shop.URL)
	assert.Equal(t, "https://gadgets.example.test", *shop.URL)
	assert.True(t, shop.AcceptingOrders)

	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.ShopCategory{}))
	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.ProductInfo{}))
	assert.EqualValues(t, 4, countRows(t, fx.conn, &models.ProductParameter{}))
	assert.EqualValues(t, 4, countRows(t, fx.conn, &models.Parameter{}))

	var listing models.ProductInfo
	require.NoError(t, fx.conn.Preload("Parameters.Parameter").Where("external_id = ?", 4216292).First(&listing).Error)
	assert.EqualValues(t, 110000, listing.Price)
	assert.EqualValues(t, 116990, listing.PriceRRC)
	assert.Equal(t, 14, listing.Quantity)
	assert.Len(t, listing.Parameters, 4)

	var events []models.OutboxEvent
	require.NoError(t, fx.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventCatalogImported, events[0].EventType)
	assert.Equal(t, enums.AggregateShop, events[0].AggregateType)
}

func TestImportIsIdempotent(t *testing.T) {
	fx := newImportFixture(t, nil)
	managerID := uuid.New()
	ctx := context.Background()

	first, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)
	second, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)

	assert.Equal(t, first.ShopID, second.ShopID)
	assert.EqualValues(t, 2, second.ListingsReplaced)
	assert.EqualValues(t, 1, countRows(t, fx.conn, &models.Shop{}))
	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.Product{}))
	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.ProductInfo{}))
	assert.EqualValues(t, 4, countRows(t, fx.conn, &models.ProductParameter{}))
	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.ShopCategory{}))

	var duplicates int64
	require.NoError(t, fx.conn.Raw(
		`SELECT COUNT(*) FROM (SELECT product_id, shop_id FROM product_infos GROUP BY product_id, shop_id HAVING COUNT(*) > 1) d`,
	).Scan(&duplicates).Error)
	assert.Zero(t, duplicates)
}

func TestImportReplacesOmittedListings(t *testing.T) {
	fx := newImportFixture(t, nil)
	managerID := uuid.New()
	ctx := context.Background()

	_, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)

	smaller := `
shop: Gadget Hub
categories:
  - id: 15
    name: Accessories
goods:
  - id: 4672670
    category: 15
    model: cases/leather
    name: Leather case
    price: 1700
    price_rrc: 1990
    quantity: 80
    parameters: {}
`
	result, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, smaller)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsImported)

	var listings []models.ProductInfo
	require.NoError(t, fx.conn.Find(&listings).Error)
	require.Len(t, listings, 1)
	assert.EqualValues(t, 1700, listings[0].Price)
	assert.EqualValues(t, 0, countRows(t, fx.conn, &models.ProductParameter{}))
	// Products are shared across shops and survive a replace.
	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.Product{}))
}

func TestReimportDetachesPlacedOrderLinesAndDropsBasketLines(t *testing.T) {
	fx := newImportFixture(t, nil)
	managerID := uuid.New()
	ctx := context.Background()

	_, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)
	var listing models.ProductInfo
	require.NoError(t, fx.conn.Where("external_id = ?", 4216292).First(&listing).Error)

	placed := models.Order{UserID: uuid.New(), Status: enums.OrderStatusNew}
	require.NoError(t, fx.conn.Create(&placed).Error)
	placedItem := models.OrderItem{
		OrderID:       placed.ID,
		ProductInfoID: &listing.ID,
		ShopID:        listing.ShopID,
		Quantity:      2,
		Name:          listing.Name,
		Model:         listing.Model,
		Price:         listing.Price,
	}
	require.NoError(t, fx.conn.Create(&placedItem).Error)

	basket := models.Order{UserID: uuid.New(), Status: enums.OrderStatusBasket}
	require.NoError(t, fx.conn.Create(&basket).Error)
	basketItem := models.OrderItem{
		OrderID:       basket.ID,
		ProductInfoID: &listing.ID,
		ShopID:        listing.ShopID,
		Quantity:      1,
		Name:          listing.Name,
		Price:         listing.Price,
	}
	require.NoError(t, fx.conn.Create(&basketItem).Error)

	result, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.BasketItemsDropped)
	assert.EqualValues(t, 2, result.ListingsReplaced)

	var kept models.OrderItem
	require.NoError(t, fx.conn.First(&kept, placedItem.ID).Error)
	assert.Nil(t, kept.ProductInfoID)
	assert.Equal(t, "Apple iPhone XS Max 512GB (gold)", kept.Name)
	assert.Equal(t, "apple/iphone/xs-max", kept.Model)
	assert.EqualValues(t, 110000, kept.Price)
	assert.Equal(t, 2, kept.Quantity)

	err = fx.conn.First(&models.OrderItem{}, basketItem.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	// The emptied basket itself stays.
	require.NoError(t, fx.conn.First(&models.Order{}, basket.ID).Error)
}

func TestImportSharesProductsAcrossShops(t *testing.T) {
	fx := newImportFixture(t, nil)
	ctx := context.Background()

	_, err := fx.importer.Import(ctx, shopInput(uuid.New(), mustParse(t, sampleDocument)))
	require.NoError(t, err)
	other := strings.Replace(sampleDocument, "shop: Gadget Hub", "shop: Phone Corner", 1)
	_, err = fx.importer.Import(ctx, shopInput(uuid.New(), mustParse(t, other)))
	require.NoError(t, err)

	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.Product{}))
	assert.EqualValues(t, 4, countRows(t, fx.conn, &models.ProductInfo{}))
	assert.EqualValues(t, 4, countRows(t, fx.conn, &models.Parameter{}))
}

func TestImportSkipsConflictingAndUnknownCategories(t *testing.T) {
	fx := newImportFixture(t, nil)
	require.NoError(t, fx.conn.Create(&models.Category{ID: 15, Name: "Cases"}).Error)

	body := `
shop: Gadget Hub
categories:
  - id: 15
    name: Accessories
goods:
  - id: 1
    category: 15
    model: m
    name: Existing category product
    price: 10
    price_rrc: 12
    quantity: 1
    parameters: {}
  - id: 2
    category: 999
    model: m
    name: Orphan
    price: 10
    price_rrc: 12
    quantity: 1
    parameters: {}
  - id: 3
    category: 15
    model: m
    name: Existing category product
    price: 11
    price_rrc: 12
    quantity: 1
    parameters: {}
`
	result, err := fx.importer.Import(context.Background(), shopInput(uuid.New(), mustParse(t, body)))
	require.NoError(t, err)

	assert.Equal(t, 0, result.CategoriesLinked)
	assert.Equal(t, 1, result.CategoriesSkipped)
	assert.Equal(t, 1, result.ItemsImported)
	assert.Equal(t, 2, result.ItemsSkipped)

	var category models.Category
	require.NoError(t, fx.conn.First(&category, 15).Error)
	assert.Equal(t, "Cases", category.Name)
}

func TestImportRejectsShopManagedByAnotherUser(t *testing.T) {
	fx := newImportFixture(t, nil)
	ctx := context.Background()

	_, err := fx.importer.Import(ctx, shopInput(uuid.New(), mustParse(t, sampleDocument)))
	require.NoError(t, err)

	_, err = fx.importer.Import(ctx, shopInput(uuid.New(), mustParse(t, sampleDocument)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.ProductInfo{}))
}

func TestImportClaimsUnmanagedShop(t *testing.T) {
	fx := newImportFixture(t, nil)
	require.NoError(t, fx.conn.Create(&models.Shop{Name: "Gadget Hub", AcceptingOrders: true}).Error)
	managerID := uuid.New()

	result, err := fx.importer.Import(context.Background(), shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)

	var shop models.Shop
	require.NoError(t, fx.conn.First(&shop, result.ShopID).Error)
	assert.True(t, shop.ManagedBy(managerID))
}

func TestImportRequiresShopAccount(t *testing.T) {
	fx := newImportFixture(t, nil)
	_, err := fx.importer.Import(context.Background(), ImportInput{
		ManagerID:   uuid.New(),
		ManagerType: enums.UserTypeCustomer,
		Document:    mustParse(t, sampleDocument),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.EqualValues(t, 0, countRows(t, fx.conn, &models.Shop{}))
}

func TestImportRejectsIncompleteDocument(t *testing.T) {
	fx := newImportFixture(t, nil)
	shop := "Gadget Hub"
	_, err := fx.importer.Import(context.Background(), shopInput(uuid.New(), &Document{Shop: &shop, Goods: []GoodEntry{}}))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSchema))
	assert.EqualValues(t, 0, countRows(t, fx.conn, &models.Shop{}))
}

type failingListingRepo struct {
	Repository
	failAfter *int
}

func (f failingListingRepo) WithTx(tx *gorm.DB) Repository {
	return failingListingRepo{Repository: f.Repository.WithTx(tx), failAfter: f.failAfter}
}

func (f failingListingRepo) CreateListing(ctx context.Context, listing *models.ProductInfo) error {
	if *f.failAfter == 0 {
		return errors.New("disk full")
	}
	*f.failAfter--
	return f.Repository.CreateListing(ctx, listing)
}

func TestImportFailureKeepsPreviousCatalog(t *testing.T) {
	remaining := 100
	fx := newImportFixture(t, func(repo Repository) Repository {
		return failingListingRepo{Repository: repo, failAfter: &remaining}
	})
	managerID := uuid.New()
	ctx := context.Background()

	_, err := fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.NoError(t, err)

	remaining = 1
	_, err = fx.importer.Import(ctx, shopInput(managerID, mustParse(t, sampleDocument)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.EqualValues(t, 2, countRows(t, fx.conn, &models.ProductInfo{}))
	assert.EqualValues(t, 4, countRows(t, fx.conn, &models.ProductParameter{}))
	assert.EqualValues(t, 1, countRows(t, fx.conn, &models.OutboxEvent{}))
}

func TestNewImporterGuards(t *testing.T) {
	_, err := NewImporter(ImporterParams{})
	require.Error(t, err)
}
