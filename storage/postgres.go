package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"laptop-intelligence/models"
)

// PostgresStore persists the laptop catalog and its time-series facts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS laptops (
			id          BIGSERIAL PRIMARY KEY,
			brand       VARCHAR(50)  NOT NULL,
			model_name  VARCHAR(100) NOT NULL,
			specs_json  TEXT         NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (brand, model_name)
		);

		CREATE TABLE IF NOT EXISTS offers (
			id           BIGSERIAL PRIMARY KEY,
			laptop_id    BIGINT        NOT NULL REFERENCES laptops(id),
			price        NUMERIC(10,2) NOT NULL,
			currency     VARCHAR(10)   NOT NULL DEFAULT 'USD',
			is_available BOOLEAN       NOT NULL DEFAULT TRUE,
			shipping_eta TEXT          NOT NULL DEFAULT '',
			promotions   TEXT          NOT NULL DEFAULT '[]',
			seller       VARCHAR(100)  NOT NULL DEFAULT '',
			observed_at  TIMESTAMPTZ   NOT NULL,
			UNIQUE (laptop_id, seller, observed_at)
		);

		CREATE TABLE IF NOT EXISTS reviews (
			id          BIGSERIAL PRIMARY KEY,
			laptop_id   BIGINT       NOT NULL REFERENCES laptops(id),
			rating      NUMERIC(4,2) NOT NULL,
			review_text TEXT         NOT NULL DEFAULT '',
			text_hash   CHAR(64)     NOT NULL DEFAULT '',
			author      VARCHAR(100) NOT NULL DEFAULT '',
			observed_at TIMESTAMPTZ  NOT NULL,
			UNIQUE (laptop_id, author, observed_at, text_hash)
		);

		CREATE TABLE IF NOT EXISTS qna (
			id          BIGSERIAL PRIMARY KEY,
			laptop_id   BIGINT      NOT NULL REFERENCES laptops(id),
			question    TEXT        NOT NULL,
			answer      TEXT        NOT NULL DEFAULT '',
			observed_at TIMESTAMPTZ NOT NULL,
			UNIQUE (laptop_id, question, observed_at)
		);

		CREATE INDEX IF NOT EXISTS idx_offers_laptop   ON offers(laptop_id, observed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_reviews_laptop  ON reviews(laptop_id, observed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_qna_laptop      ON qna(laptop_id, observed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_laptops_brand   ON laptops(brand);
	`)
	return err
}

// UpsertLaptop inserts the laptop or, if (brand, model_name) already exists,
// refreshes its specification map. History rows are never touched.
func (ps *PostgresStore) UpsertLaptop(l *models.Laptop) (int64, error) {
	specsJSON, err := json.Marshal(l.Specs)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal specs: %w", err)
	}

	var id int64
	err = ps.db.QueryRow(`
		INSERT INTO laptops (brand, model_name, specs_json)
		VALUES ($1, $2, $3)
		ON CONFLICT (brand, model_name)
		DO UPDATE SET specs_json = EXCLUDED.specs_json
		RETURNING id
	`, l.Brand, l.ModelName, string(specsJSON)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert laptop %s %s: %w", l.Brand, l.ModelName, err)
	}

	l.ID = id
	return id, nil
}

// LaptopByID fetches one laptop row.
func (ps *PostgresStore) LaptopByID(id int64) (*models.Laptop, error) {
	return ps.scanLaptop(ps.db.QueryRow(`
		SELECT id, brand, model_name, specs_json, created_at
		FROM laptops WHERE id = $1
	`, id))
}

// LaptopByIdentity fetches one laptop row by its (brand, model_name) key.
func (ps *PostgresStore) LaptopByIdentity(brand, modelName string) (*models.Laptop, error) {
	return ps.scanLaptop(ps.db.QueryRow(`
		SELECT id, brand, model_name, specs_json, created_at
		FROM laptops WHERE brand = $1 AND model_name = $2
	`, brand, modelName))
}

func (ps *PostgresStore) scanLaptop(row *sql.Row) (*models.Laptop, error) {
	l := &models.Laptop{}
	var specsJSON string
	err := row.Scan(&l.ID, &l.Brand, &l.ModelName, &specsJSON, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLaptopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan laptop: %w", err)
	}
	if err := json.Unmarshal([]byte(specsJSON), &l.Specs); err != nil {
		return nil, fmt.Errorf("postgres: decode specs for laptop %d: %w", l.ID, err)
	}
	return l, nil
}

// ListLaptops returns laptops matching the filter, ordered by id.
func (ps *PostgresStore) ListLaptops(f LaptopFilter) ([]*models.Laptop, error) {
	query := `
		SELECT id, brand, model_name, specs_json, created_at
		FROM laptops WHERE 1=1`
	var args []interface{}

	if f.Brand != "" {
		args = append(args, "%"+f.Brand+"%")
		query += fmt.Sprintf(" AND brand ILIKE $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND (brand ILIKE $%d OR model_name ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY id"

	rows, err := ps.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list laptops: %w", err)
	}
	defer rows.Close()

	var laptops []*models.Laptop
	for rows.Next() {
		l := &models.Laptop{}
		var specsJSON string
		if err := rows.Scan(&l.ID, &l.Brand, &l.ModelName, &specsJSON, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan laptop row: %w", err)
		}
		if err := json.Unmarshal([]byte(specsJSON), &l.Specs); err != nil {
			return nil, fmt.Errorf("postgres: decode specs for laptop %d: %w", l.ID, err)
		}
		laptops = append(laptops, l)
	}
	return laptops, rows.Err()
}

// InsertOffers appends offer observations, skipping rows whose natural key
// (laptop, seller, observed_at) is already stored. Returns rows inserted.
func (ps *PostgresStore) InsertOffers(offers []*models.Offer) (int, error) {
	if len(offers) == 0 {
		return 0, nil
	}

	valueStrings := make([]string, 0, len(offers))
	valueArgs := make([]interface{}, 0, len(offers)*8)

	for idx, o := range offers {
		promosJSON, err := json.Marshal(nonNil(o.Promotions))
		if err != nil {
			return 0, fmt.Errorf("postgres: marshal promotions: %w", err)
		}
		base := idx * 8
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs,
			o.LaptopID, o.Price, o.Currency, o.IsAvailable,
			o.ShippingETA, string(promosJSON), o.Seller, o.ObservedAt)
	}

	res, err := ps.db.Exec(fmt.Sprintf(`
		INSERT INTO offers (laptop_id, price, currency, is_available, shipping_eta, promotions, seller, observed_at)
		VALUES %s
		ON CONFLICT (laptop_id, seller, observed_at) DO NOTHING
	`, strings.Join(valueStrings, ",")), valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert offers: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// InsertReviews appends review observations with natural-key dedup. The key
// includes a hash of the review text: anonymous reviews from one page share
// author and observation time, so the content is what tells them apart.
func (ps *PostgresStore) InsertReviews(reviews []*models.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	valueStrings := make([]string, 0, len(reviews))
	valueArgs := make([]interface{}, 0, len(reviews)*6)

	for idx, r := range reviews {
		base := idx * 6
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs, r.LaptopID, r.Rating, r.Text, textHash(r.Text), r.Author, r.ObservedAt)
	}

	res, err := ps.db.Exec(fmt.Sprintf(`
		INSERT INTO reviews (laptop_id, rating, review_text, text_hash, author, observed_at)
		VALUES %s
		ON CONFLICT (laptop_id, author, observed_at, text_hash) DO NOTHING
	`, strings.Join(valueStrings, ",")), valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert reviews: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// InsertQnA appends question/answer observations with natural-key dedup.
func (ps *PostgresStore) InsertQnA(items []*models.QnA) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	valueStrings := make([]string, 0, len(items))
	valueArgs := make([]interface{}, 0, len(items)*4)

	for idx, q := range items {
		base := idx * 4
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		valueArgs = append(valueArgs, q.LaptopID, q.Question, q.Answer, q.ObservedAt)
	}

	res, err := ps.db.Exec(fmt.Sprintf(`
		INSERT INTO qna (laptop_id, question, answer, observed_at)
		VALUES %s
		ON CONFLICT (laptop_id, question, observed_at) DO NOTHING
	`, strings.Join(valueStrings, ",")), valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert qna: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// LatestOffer returns the most recent offer for a laptop, or nil if none.
func (ps *PostgresStore) LatestOffer(laptopID int64) (*models.Offer, error) {
	offers, err := ps.queryOffers(`
		SELECT id, laptop_id, price, currency, is_available, shipping_eta, promotions, seller, observed_at
		FROM offers WHERE laptop_id = $1
		ORDER BY observed_at DESC LIMIT 1
	`, laptopID)
	if err != nil || len(offers) == 0 {
		return nil, err
	}
	return offers[0], nil
}

// OffersFor returns the full offer history, newest first.
func (ps *PostgresStore) OffersFor(laptopID int64) ([]*models.Offer, error) {
	return ps.queryOffers(`
		SELECT id, laptop_id, price, currency, is_available, shipping_eta, promotions, seller, observed_at
		FROM offers WHERE laptop_id = $1
		ORDER BY observed_at DESC
	`, laptopID)
}

func (ps *PostgresStore) queryOffers(query string, args ...interface{}) ([]*models.Offer, error) {
	rows, err := ps.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query offers: %w", err)
	}
	defer rows.Close()

	var offers []*models.Offer
	for rows.Next() {
		o := &models.Offer{}
		var promosJSON string
		if err := rows.Scan(&o.ID, &o.LaptopID, &o.Price, &o.Currency, &o.IsAvailable,
			&o.ShippingETA, &promosJSON, &o.Seller, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan offer: %w", err)
		}
		if err := json.Unmarshal([]byte(promosJSON), &o.Promotions); err != nil {
			o.Promotions = []string{}
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// ReviewsFor returns the full review history, newest first.
func (ps *PostgresStore) ReviewsFor(laptopID int64) ([]*models.Review, error) {
	rows, err := ps.db.Query(`
		SELECT id, laptop_id, rating, review_text, author, observed_at
		FROM reviews WHERE laptop_id = $1
		ORDER BY observed_at DESC
	`, laptopID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		r := &models.Review{}
		if err := rows.Scan(&r.ID, &r.LaptopID, &r.Rating, &r.Text, &r.Author, &r.ObservedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// QnAFor returns the full Q&A history, newest first.
func (ps *PostgresStore) QnAFor(laptopID int64) ([]*models.QnA, error) {
	rows, err := ps.db.Query(`
		SELECT id, laptop_id, question, answer, observed_at
		FROM qna WHERE laptop_id = $1
		ORDER BY observed_at DESC
	`, laptopID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query qna: %w", err)
	}
	defer rows.Close()

	var items []*models.QnA
	for rows.Next() {
		q := &models.QnA{}
		if err := rows.Scan(&q.ID, &q.LaptopID, &q.Question, &q.Answer, &q.ObservedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan qna: %w", err)
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func textHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
