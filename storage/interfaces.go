package storage

import (
	"errors"

	"laptop-intelligence/models"
)

// ErrLaptopNotFound is returned by lookups for an id or identity with no row.
var ErrLaptopNotFound = errors.New("laptop not found")

// LaptopFilter holds the conjunctive predicates for laptop listing. Price
// and availability predicates are evaluated by the caller against each
// laptop's latest offer.
type LaptopFilter struct {
	Brand  string
	Search string
}

// Store is the interface the ingestion pipeline and API layer talk to.
// Laptop rows are upserted by identity; offer/review/qna rows are append-only
// and deduplicated on their natural keys (offers by laptop/seller/time, qna
// by laptop/question/time, reviews by laptop/author/time plus review text,
// since anonymous same-page reviews share author and time), so re-inserting
// an already-stored observation is a no-op.
type Store interface {
	UpsertLaptop(l *models.Laptop) (int64, error)
	LaptopByID(id int64) (*models.Laptop, error)
	LaptopByIdentity(brand, modelName string) (*models.Laptop, error)
	ListLaptops(f LaptopFilter) ([]*models.Laptop, error)

	InsertOffers(offers []*models.Offer) (int, error)
	InsertReviews(reviews []*models.Review) (int, error)
	InsertQnA(items []*models.QnA) (int, error)

	LatestOffer(laptopID int64) (*models.Offer, error)
	OffersFor(laptopID int64) ([]*models.Offer, error)
	ReviewsFor(laptopID int64) ([]*models.Review, error)
	QnAFor(laptopID int64) ([]*models.QnA, error)

	Close() error
}
