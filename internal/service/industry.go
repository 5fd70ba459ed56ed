package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Industry is the normalized search result shared by every source.
type Industry struct {
	IndustryID     string            `json:"industryId"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Codes          map[string]string `json:"codes,omitempty"`
	Geography      string            `json:"geography,omitempty"`
	MarketSize     any               `json:"marketSize,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	Year           string            `json:"year,omitempty"`
	Source         string            `json:"source"`
	SourceDetails  []string          `json:"sourceDetails,omitempty"`
	LastUpdated    string            `json:"lastUpdated,omitempty"`
	RelevanceScore float64           `json:"relevanceScore"`
}

// SourceError reports one source's failure inside a multi-source call.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// SearchRequest selects sources and filters for an industry search.
type SearchRequest struct {
	Query        string
	Sources      []string // empty means every available source
	Limit        int
	MinRelevance float64
	Geography    string
}

// SearchResult is the aggregated, deterministically ordered outcome.
type SearchResult struct {
	Query           string        `json:"query"`
	Results         []Industry    `json:"results"`
	Errors          []SourceError `json:"errors"`
	SourcesSearched []string      `json:"sourcesSearched"`
}

// Searcher is one source's industry lookup capability.
type Searcher interface {
	Source() string
	Available() bool
	Search(ctx context.Context, query, geography string) ([]Industry, error)
}

// SearchIndustries fans the query out to every permitted source in
// parallel and merges the results. Per-source failures land in the
// Errors list; the call only fails when no searcher is usable at all.
func (s *Service) SearchIndustries(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("search: query is required")
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var active []Searcher
	for _, sr := range s.searchers {
		if !sr.Available() {
			continue
		}
		if len(req.Sources) > 0 && !containsFold(req.Sources, sr.Source()) {
			continue
		}
		active = append(active, sr)
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("search: no data source available for this query")
	}

	out := &SearchResult{
		Query:   query,
		Results: []Industry{},
		Errors:  []SourceError{},
	}
	for _, sr := range active {
		out.SourcesSearched = append(out.SourcesSearched, sr.Source())
	}
	sort.Strings(out.SourcesSearched)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, sr := range active {
		sr := sr
		g.Go(func() error {
			industries, err := sr.Search(gctx, query, req.Geography)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Errors = append(out.Errors, SourceError{
					Source: sr.Source(), Message: err.Error(),
				})
				return nil // partial failure never aborts the search
			}
			for _, ind := range industries {
				if ind.Source == "" {
					ind.Source = sr.Source()
				}
				ind.RelevanceScore = relevanceScore(query, ind)
				if ind.RelevanceScore < req.MinRelevance {
					continue
				}
				out.Results = append(out.Results, ind)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortIndustries(out.Results)
	sort.Slice(out.Errors, func(i, j int) bool {
		return out.Errors[i].Source < out.Errors[j].Source
	})
	if len(out.Results) > req.Limit {
		out.Results = out.Results[:req.Limit]
	}
	return out, nil
}

// sortIndustries orders by relevance descending with stable tiebreaks so
// fixed inputs always produce the same ordering.
func sortIndustries(results []Industry) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.IndustryID < b.IndustryID
	})
}

// relevanceScore is the fraction of query tokens found in the
// industry's name, description, and codes.
func relevanceScore(query string, ind Industry) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}

	var sb strings.Builder
	sb.WriteString(ind.Name)
	sb.WriteByte(' ')
	sb.WriteString(ind.Description)
	for scheme, code := range ind.Codes {
		sb.WriteByte(' ')
		sb.WriteString(scheme)
		sb.WriteByte(' ')
		sb.WriteString(code)
	}
	have := make(map[string]bool)
	for _, t := range tokenize(sb.String()) {
		have[t] = true
	}

	matched := 0
	for _, t := range qTokens {
		if have[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(qTokens))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
