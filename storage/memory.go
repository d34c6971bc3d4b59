package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"laptop-intelligence/models"
)

// MemoryStore is an in-memory Store with the same upsert and append-only
// dedup semantics as the Postgres store. It backs package tests and lets the
// API run without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	laptops []*models.Laptop
	offers  []*models.Offer
	reviews []*models.Review
	qna     []*models.QnA
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (ms *MemoryStore) UpsertLaptop(l *models.Laptop) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, existing := range ms.laptops {
		if existing.Brand == l.Brand && existing.ModelName == l.ModelName {
			existing.Specs = l.Specs
			l.ID = existing.ID
			return existing.ID, nil
		}
	}

	stored := *l
	stored.ID = ms.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	ms.nextID++
	ms.laptops = append(ms.laptops, &stored)
	l.ID = stored.ID
	return stored.ID, nil
}

func (ms *MemoryStore) LaptopByID(id int64) (*models.Laptop, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, l := range ms.laptops {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrLaptopNotFound
}

func (ms *MemoryStore) LaptopByIdentity(brand, modelName string) (*models.Laptop, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, l := range ms.laptops {
		if l.Brand == brand && l.ModelName == modelName {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrLaptopNotFound
}

func (ms *MemoryStore) ListLaptops(f LaptopFilter) ([]*models.Laptop, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*models.Laptop
	for _, l := range ms.laptops {
		if f.Brand != "" && !containsFold(l.Brand, f.Brand) {
			continue
		}
		if f.Search != "" && !containsFold(l.Brand, f.Search) && !containsFold(l.ModelName, f.Search) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (ms *MemoryStore) InsertOffers(offers []*models.Offer) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	inserted := 0
	for _, o := range offers {
		dup := false
		for _, existing := range ms.offers {
			if existing.LaptopID == o.LaptopID && existing.Seller == o.Seller &&
				existing.ObservedAt.Equal(o.ObservedAt) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		cp := *o
		cp.ID = ms.nextID
		ms.nextID++
		ms.offers = append(ms.offers, &cp)
		inserted++
	}
	return inserted, nil
}

func (ms *MemoryStore) InsertReviews(reviews []*models.Review) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	inserted := 0
	for _, r := range reviews {
		dup := false
		for _, existing := range ms.reviews {
			if existing.LaptopID == r.LaptopID && existing.Author == r.Author &&
				existing.ObservedAt.Equal(r.ObservedAt) && existing.Text == r.Text {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		cp := *r
		cp.ID = ms.nextID
		ms.nextID++
		ms.reviews = append(ms.reviews, &cp)
		inserted++
	}
	return inserted, nil
}

func (ms *MemoryStore) InsertQnA(items []*models.QnA) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	inserted := 0
	for _, q := range items {
		dup := false
		for _, existing := range ms.qna {
			if existing.LaptopID == q.LaptopID && existing.Question == q.Question &&
				existing.ObservedAt.Equal(q.ObservedAt) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		cp := *q
		cp.ID = ms.nextID
		ms.nextID++
		ms.qna = append(ms.qna, &cp)
		inserted++
	}
	return inserted, nil
}

func (ms *MemoryStore) LatestOffer(laptopID int64) (*models.Offer, error) {
	offers, err := ms.OffersFor(laptopID)
	if err != nil || len(offers) == 0 {
		return nil, err
	}
	return offers[0], nil
}

func (ms *MemoryStore) OffersFor(laptopID int64) ([]*models.Offer, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*models.Offer
	for _, o := range ms.offers {
		if o.LaptopID == laptopID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.After(out[j].ObservedAt) })
	return out, nil
}

func (ms *MemoryStore) ReviewsFor(laptopID int64) ([]*models.Review, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*models.Review
	for _, r := range ms.reviews {
		if r.LaptopID == laptopID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.After(out[j].ObservedAt) })
	return out, nil
}

func (ms *MemoryStore) QnAFor(laptopID int64) ([]*models.QnA, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*models.QnA
	for _, q := range ms.qna {
		if q.LaptopID == laptopID {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.After(out[j].ObservedAt) })
	return out, nil
}

func (ms *MemoryStore) Close() error { return nil }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
