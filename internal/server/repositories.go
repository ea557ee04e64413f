package server

import (
	"database/sql"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository/firestore"
)

// Repositories is one complete store driver
type Repositories struct {
	Carts       repository.CartRepository
	Products    repository.ProductRepository
	Upsells     repository.UpsellRepository
	Collections repository.CollectionRepository
	Categories  repository.CategoryRepository
	Orders      repository.OrderRepository
}

func FirestoreRepositories(client *gfs.Client) Repositories {
	return Repositories{
		Carts:       firestore.NewCartRepositoryFS(client),
		Products:    firestore.NewProductRepositoryFS(client),
		Upsells:     firestore.NewUpsellRepositoryFS(client),
		Collections: firestore.NewCollectionRepositoryFS(client),
		Categories:  firestore.NewCategoryRepositoryFS(client),
		Orders:      firestore.NewOrderRepositoryFS(client),
	}
}

func PostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Carts:       repository.NewCartRepository(db),
		Products:    repository.NewProductRepository(db),
		Upsells:     repository.NewUpsellRepository(db),
		Collections: repository.NewCollectionRepository(db),
		Categories:  repository.NewCategoryRepository(db),
		Orders:      repository.NewOrderRepository(db),
	}
}
