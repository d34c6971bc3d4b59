package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"laptop-intelligence/models"
)

// Artifact file names for live data, each keyed by model identifier.
const (
	offersFile  = "offers.json"
	reviewsFile = "reviews.json"
	qnaFile     = "qna.json"
	statusFile  = "status.json"
)

// ArtifactStore persists and reloads the JSON artifacts that sit between the
// collectors and the ingestion pipeline: one spec document per model and
// three live-data files keyed by model identifier.
type ArtifactStore struct {
	specsDir string
	liveDir  string
}

// NewArtifactStore creates the artifact directories if needed.
func NewArtifactStore(specsDir, liveDir string) (*ArtifactStore, error) {
	for _, dir := range []string{specsDir, liveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("artifacts: create dir %q: %w", dir, err)
		}
	}
	return &ArtifactStore{specsDir: specsDir, liveDir: liveDir}, nil
}

// SaveSpec writes one model's spec document to specs/<model_key>.json.
func (as *ArtifactStore) SaveSpec(doc *models.SpecDocument) error {
	return writeJSON(filepath.Join(as.specsDir, doc.ModelKey+".json"), doc)
}

// LoadSpec reads one model's spec document; ok is false when the artifact
// does not exist for this run.
func (as *ArtifactStore) LoadSpec(modelKey string) (*models.SpecDocument, bool, error) {
	path := filepath.Join(as.specsDir, modelKey+".json")
	var doc models.SpecDocument
	ok, err := readJSON(path, &doc)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &doc, true, nil
}

// SaveLive writes the live artifacts from the collected results: the three
// data files plus the per-category statuses that let ingestion distinguish
// an empty category from a failed one.
func (as *ArtifactStore) SaveLive(results map[string]*models.CollectResult) error {
	offers := make(map[string][]models.LiveOffer)
	reviews := make(map[string][]models.LiveReview)
	qna := make(map[string][]models.LiveQnA)
	statuses := make(map[string]models.LiveStatus)

	for key, res := range results {
		if res.Offer != nil {
			offers[key] = append(offers[key], *res.Offer)
		}
		reviews[key] = append([]models.LiveReview{}, res.Reviews...)
		qna[key] = append([]models.LiveQnA{}, res.QnA...)
		statuses[key] = models.LiveStatus{
			Offer:   res.OfferStatus,
			Reviews: res.ReviewStatus,
			QnA:     res.QnAStatus,
		}
	}

	if err := writeJSON(filepath.Join(as.liveDir, offersFile), offers); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(as.liveDir, reviewsFile), reviews); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(as.liveDir, qnaFile), qna); err != nil {
		return err
	}
	return writeJSON(filepath.Join(as.liveDir, statusFile), statuses)
}

// LoadLiveOffers reads the offers artifact; missing file yields an empty map.
func (as *ArtifactStore) LoadLiveOffers() (map[string][]models.LiveOffer, error) {
	out := make(map[string][]models.LiveOffer)
	_, err := readJSON(filepath.Join(as.liveDir, offersFile), &out)
	return out, err
}

// LoadLiveReviews reads the reviews artifact; missing file yields an empty map.
func (as *ArtifactStore) LoadLiveReviews() (map[string][]models.LiveReview, error) {
	out := make(map[string][]models.LiveReview)
	_, err := readJSON(filepath.Join(as.liveDir, reviewsFile), &out)
	return out, err
}

// LoadLiveStatus reads the per-category statuses; missing file yields an
// empty map, which reads as "no recorded outcome" for every model.
func (as *ArtifactStore) LoadLiveStatus() (map[string]models.LiveStatus, error) {
	out := make(map[string]models.LiveStatus)
	_, err := readJSON(filepath.Join(as.liveDir, statusFile), &out)
	return out, err
}

// LoadLiveQnA reads the qna artifact; missing file yields an empty map.
func (as *ArtifactStore) LoadLiveQnA() (map[string][]models.LiveQnA, error) {
	out := make(map[string][]models.LiveQnA)
	_, err := readJSON(filepath.Join(as.liveDir, qnaFile), &out)
	return out, err
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: marshal %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("artifacts: write %q: %w", path, err)
	}
	return nil
}

// readJSON decodes path into v, reporting ok=false when the file is absent.
func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("artifacts: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("artifacts: decode %q: %w", path, err)
	}
	return true, nil
}
