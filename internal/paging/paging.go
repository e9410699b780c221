package paging

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const DefaultPageSize = 20

// Paginator ranks jobs and cuts them into pages.
type Paginator struct {
	PageSize int
	// Window bounds how far diversification may move a job. Zero disables it.
	Window int
}

// Page is one slice of a ranked result.
type Page struct {
	Jobs       []jobs.Job
	Page       int
	TotalPages int
	Total      int
	HasNext    bool
	HasPrev    bool
	// Clamped is set when the requested page was past the end.
	Clamped bool
}

func New(pageSize, window int) Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if window < 0 {
		window = 0
	}
	return Paginator{PageSize: pageSize, Window: window}
}

// Rank returns a copy sorted by match score, then by posting date, newest
// first. Ties keep their input order.
func Rank(items []jobs.Job) []jobs.Job {
	ranked := slices.Clone(items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return ranked[i].PostedDate.After(ranked[j].PostedDate)
	})
	return ranked
}

// Diversify returns a copy where every job is shifted by a random amount
// below Window. The shuffle depends only on key and page.
func (p Paginator) Diversify(items []jobs.Job, key string, page int) []jobs.Job {
	out := slices.Clone(items)
	if p.Window <= 0 || len(out) < 2 {
		return out
	}

	rng := rand.New(rand.NewPCG(seed(key, page)))
	weights := make([]float64, len(out))
	for i := range weights {
		weights[i] = float64(i) + rng.Float64()*float64(p.Window)
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return weights[order[a]] < weights[order[b]]
	})

	for i, idx := range order {
		out[i] = items[idx]
	}
	return out
}

func seed(key string, page int) (uint64, uint64) {
	h := fnv.New64a()
	h.Write([]byte(key))
	first := h.Sum64()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(page))
	h.Write(buf[:])
	return first, h.Sum64()
}

// Paginate diversifies ranked and returns the requested page. Pages below 1
// become 1, pages past the end are clamped to the last page.
func (p Paginator) Paginate(key string, ranked []jobs.Job, page int) Page {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(ranked)
	totalPages := (total + size - 1) / size

	if page < 1 {
		page = 1
	}
	clamped := false
	if totalPages > 0 && page > totalPages {
		page = totalPages
		clamped = true
	}
	if totalPages == 0 {
		page = 1
	}

	result := Page{
		Jobs:       []jobs.Job{},
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
		Clamped:    clamped,
	}
	if total == 0 {
		return result
	}

	ordered := p.Diversify(ranked, key, page)
	start := (page - 1) * size
	end := min(start+size, total)
	result.Jobs = ordered[start:end]

	return result
}
