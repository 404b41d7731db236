package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Importer reconciles supplier price lists into the catalog tables.
type Importer interface {
	Import(ctx context.Context, input ImportInput) (*ImportResult, error)
}

// ImporterParams configure the importer.
type ImporterParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Cache   *ListingCache
	Metrics *metrics.ImportMetrics
	Logger  *logger.Logger
}

type importer struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	cache   *ListingCache
	metrics *metrics.ImportMetrics
	logg    *logger.Logger
}

// NewImporter builds a catalog importer.
func NewImporter(params ImporterParams) (Importer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &importer{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		cache:   params.Cache,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

// Import replaces the shop's offering with the document's goods in one transaction.
// Malformed categories and goods are skipped; missing top-level keys fail the whole call.
func (i *importer) Import(ctx context.Context, input ImportInput) (*ImportResult, error) {
	started := time.Now()
	result, err := i.run(ctx, input)
	if err != nil {
		i.metrics.Observe(metrics.OutcomeFailure, time.Since(started))
		return nil, err
	}
	i.metrics.Observe(metrics.OutcomeSuccess, time.Since(started))
	i.metrics.AddItems(result.ItemsImported, result.ItemsSkipped)

	i.cache.Invalidate(ctx)

	logCtx := i.logg.WithFields(ctx, map[string]any{
		"shop":                 result.ShopName,
		"shop_id":              result.ShopID,
		"items_imported":       result.ItemsImported,
		"items_skipped":        result.ItemsSkipped,
		"basket_items_dropped": result.BasketItemsDropped,
	})
	i.logg.Info(logCtx, "catalog imported")
	return result, nil
}

func (i *importer) run(ctx context.Context, input ImportInput) (*ImportResult, error) {
	if input.ManagerType != enums.UserTypeShop {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only shop accounts can import catalogs")
	}
	if err := input.Document.Validate(); err != nil {
		return nil, err
	}
	doc := input.Document
	result := &ImportResult{ShopName: doc.ShopName()}

	err := i.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := i.repo.WithTx(tx)

		shop, err := i.resolveShop(ctx, repo, input, doc)
		if err != nil {
			return err
		}
		result.ShopID = shop.ID

		known := make(map[int64]bool, len(doc.Categories))
		for _, entry := range doc.Categories {
			if !entry.valid() {
				result.CategoriesSkipped++
				continue
			}
			linked, err := linkCategory(ctx, repo, shop.ID, *entry.ID, strings.TrimSpace(*entry.Name))
			if err != nil {
				return err
			}
			if !linked {
				result.CategoriesSkipped++
				continue
			}
			known[*entry.ID] = true
			result.CategoriesLinked++
		}

		dropped, err := repo.ReleaseShopListings(ctx, shop.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release shop listings")
		}
		result.BasketItemsDropped = dropped

		replaced, err := repo.DeleteShopListings(ctx, shop.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete shop listings")
		}
		result.ListingsReplaced = replaced

		listed := make(map[int64]bool, len(doc.Goods))
		for _, good := range doc.Goods {
			if !good.valid() {
				result.ItemsSkipped++
				continue
			}
			ok, err := categoryExists(ctx, repo, known, *good.Category)
			if err != nil {
				return err
			}
			if !ok {
				result.ItemsSkipped++
				continue
			}

			product, err := repo.GetOrCreateProduct(ctx, strings.TrimSpace(*good.Name), *good.Category)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get or create product")
			}
			if listed[product.ID] {
				result.ItemsSkipped++
				continue
			}
			listed[product.ID] = true

			if err := createListing(ctx, repo, shop.ID, product.ID, good); err != nil {
				return err
			}
			result.ItemsImported++
		}

		return i.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCatalogImported,
			AggregateType: enums.AggregateShop,
			AggregateID:   fmt.Sprintf("%d", shop.ID),
			Actor:         &outbox.ActorRef{UserID: input.ManagerID, UserType: input.ManagerType},
			Data: payloads.CatalogImportedEvent{
				ShopID:        shop.ID,
				ShopName:      shop.Name,
				ManagerID:     input.ManagerID,
				ItemsImported: result.ItemsImported,
				ItemsSkipped:  result.ItemsSkipped,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveShop gets or creates the shop by name and binds it to the manager.
func (i *importer) resolveShop(ctx context.Context, repo Repository, input ImportInput, doc *Document) (*models.Shop, error) {
	name := doc.ShopName()
	shop, err := repo.FindShopByName(ctx, name)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup shop")
	}
	if shop == nil {
		managerID := input.ManagerID
		shop = &models.Shop{
			Name:            name,
			URL:             trimmed(doc.URL),
			UserID:          &managerID,
			AcceptingOrders: true,
		}
		if err := repo.CreateShop(ctx, shop); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shop")
		}
		return shop, nil
	}

	if shop.UserID != nil && !shop.ManagedBy(input.ManagerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop is managed by another account")
	}
	updates := map[string]any{}
	if shop.UserID == nil {
		managerID := input.ManagerID
		shop.UserID = &managerID
		updates["user_id"] = managerID
	}
	if url := trimmed(doc.URL); url != nil {
		shop.URL = url
		updates["url"] = *url
	}
	if err := repo.UpdateShop(ctx, shop.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop")
	}
	return shop, nil
}

// linkCategory gets or creates the category and links it to the shop. It
// reports false when the id already belongs to a differently named category.
func linkCategory(ctx context.Context, repo Repository, shopID, categoryID int64, name string) (bool, error) {
	category, err := repo.FindCategory(ctx, categoryID)
	switch {
	case err == nil:
		if category.Name != name {
			return false, nil
		}
	case db.IsNotFound(err):
		if err := repo.CreateCategory(ctx, &models.Category{ID: categoryID, Name: name}); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
		}
	default:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}
	if err := repo.LinkShopCategory(ctx, shopID, categoryID); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link shop category")
	}
	return true, nil
}

func categoryExists(ctx context.Context, repo Repository, known map[int64]bool, categoryID int64) (bool, error) {
	if exists, seen := known[categoryID]; seen {
		return exists, nil
	}
	_, err := repo.FindCategory(ctx, categoryID)
	switch {
	case err == nil:
		known[categoryID] = true
	case db.IsNotFound(err):
		known[categoryID] = false
	default:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}
	return known[categoryID], nil
}

func createListing(ctx context.Context, repo Repository, shopID, productID int64, good GoodEntry) error {
	listing := &models.ProductInfo{
		ExternalID: *good.ID,
		Model:      *good.Model,
		Name:       strings.TrimSpace(*good.Name),
		Quantity:   int(*good.Quantity),
		Price:      *good.Price,
		PriceRRC:   *good.PriceRRC,
		ProductID:  productID,
		ShopID:     shopID,
	}
	if err := repo.CreateListing(ctx, listing); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, err.Error())
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	params := good.SortedParameters()
	rows := make([]models.ProductParameter, 0, len(params))
	for _, param := range params {
		parameter, err := repo.GetOrCreateParameter(ctx, param.Name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get or create parameter")
		}
		rows = append(rows, models.ProductParameter{
			ProductInfoID: listing.ID,
			ParameterID:   parameter.ID,
			Value:         param.Value,
		})
	}
	if err := repo.CreateListingParameters(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing parameters")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
