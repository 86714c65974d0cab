package dupdetect

import (
	"sort"
	"time"

	"github.com/fixcity/report-server/internal/models"
)

// ReportInput carries the fields of a newly submitted report that the
// scorer needs. The new report has no id yet: it cannot collide with any
// candidate.
type ReportInput struct {
	Category    models.Category
	Description string
	Latitude    float64
	Longitude   float64
}

// Candidate is an existing canonical report offered for comparison. The
// caller (storage collaborator) pre-filters candidates to the new report's
// category; the scorer re-checks the canonical invariant itself so duplicate
// chains can never form.
type Candidate struct {
	ID             string
	Category       models.Category
	Description    string
	Latitude       float64
	Longitude      float64
	Status         models.Status
	ParentReportID *string
	DuplicateCount int
	LastReportedAt time.Time
	ResolvedAt     *time.Time
}

// Match is a candidate judged to describe the same real-world issue as the
// new report, with the evidence that qualified it.
type Match struct {
	Candidate  Candidate
	Distance   float64 // meters
	Similarity float64 // Jaccard score, [0,1]
	Score      float64 // composite ranking score

	// ProximityOnly is set when the text evidence was inconclusive (one or
	// both descriptions normalized to nothing) and the match qualified on
	// location alone.
	ProximityOnly bool
}

// Scorer ranks duplicate candidates for new reports.
type Scorer struct {
	cfg Config
}

// NewScorer returns a scorer using the given policy configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// FindCandidates returns the candidates that qualify as duplicates of the
// new report, ordered by descending match confidence. An empty candidate
// list yields an empty result, never an error: an uncertain duplicate
// decision must not block submission.
//
// A candidate qualifies when it is canonical, in the same category, within
// MaxDistanceMeters, and either its description similarity reaches
// MinTextSimilarity or the combined proximity+similarity score reaches
// MinCompositeScore. The composite path is what lets very close but
// textually dissimilar reports ("garbage pile" vs "trash smell" at the
// same spot) match: closeness carries the candidate even at zero shared
// vocabulary, while a distant candidate needs the text to agree. When the
// text evidence is inconclusive (a description normalizing to nothing),
// proximity alone decides.
func (s *Scorer) FindCandidates(input ReportInput, candidates []Candidate) []Match {
	var matches []Match

	inputTokens := len(tokenize(input.Description))

	for _, c := range candidates {
		// Child reports never participate as candidates.
		if c.ParentReportID != nil {
			continue
		}
		if c.Category != input.Category {
			continue
		}

		dist := Distance(input.Latitude, input.Longitude, c.Latitude, c.Longitude)
		if dist > s.cfg.MaxDistanceMeters {
			continue
		}

		sim := TextSimilarity(input.Description, c.Description)
		inconclusive := inputTokens == 0 || len(tokenize(c.Description)) == 0

		proximity := 1 - dist/s.cfg.MaxDistanceMeters
		score := 0.5 * proximity
		if !inconclusive {
			score += 0.5 * sim
		}

		if !inconclusive && sim < s.cfg.MinTextSimilarity && score < s.cfg.MinCompositeScore {
			continue
		}

		matches = append(matches, Match{
			Candidate:     c,
			Distance:      dist,
			Similarity:    sim,
			Score:         score,
			ProximityOnly: inconclusive,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].Candidate.LastReportedAt.Equal(matches[j].Candidate.LastReportedAt) {
			return matches[i].Candidate.LastReportedAt.After(matches[j].Candidate.LastReportedAt)
		}
		return matches[i].Candidate.DuplicateCount > matches[j].Candidate.DuplicateCount
	})

	return matches
}

// Best returns the top-ranked match, or nil if none qualify. The first
// qualifying candidate wins; the engine does not attempt global clustering.
func (s *Scorer) Best(input ReportInput, candidates []Candidate) *Match {
	matches := s.FindCandidates(input, candidates)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}
