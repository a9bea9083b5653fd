package consensus

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entry is one non-empty transcription considered by the resolver: an id,
// the normalized text, and the submission time used for deterministic
// tie-breaks.
type Entry struct {
	ID        uuid.UUID
	Text      string
	CreatedAt time.Time

	tokens []string
}

// Cluster is a group of mutually similar entries. Members are indices into
// the resolver's entry slice, sorted ascending. AvgIntra is the mean
// pairwise similarity between members; 1 for singletons.
type Cluster struct {
	Representative int
	Members        []int
	AvgIntra       float64
}

// ClusterStrategy groups entries given their pairwise similarity matrix.
// Implementations must be deterministic for identical inputs.
type ClusterStrategy interface {
	Cluster(sim [][]float64, threshold float64) []Cluster
}

// Resolution is the outcome of one consensus computation. Entries holds the
// non-empty transcriptions in the deterministic order the resolver used;
// Similarity is their pairwise matrix. ConsensusCluster is -1 when no
// consensus was attempted (below minimum count).
type Resolution struct {
	Entries          []Entry
	Similarity       [][]float64
	Clusters         []Cluster
	ConsensusCluster int
	Confidence       float64
	ParticipantCount int
}

// Pending reports whether the computation ended without a consensus attempt.
func (r *Resolution) Pending() bool {
	return r.ConsensusCluster < 0
}

// RepresentativeIndex returns the entry index of the consensus
// representative, or -1 when pending.
func (r *Resolution) RepresentativeIndex() int {
	if r.Pending() {
		return -1
	}
	return r.Clusters[r.ConsensusCluster].Representative
}

// ConsensusText returns the representative's text. Only valid when not
// pending.
func (r *Resolution) ConsensusText() string {
	return r.Entries[r.RepresentativeIndex()].Text
}

// InConsensus reports whether entry i belongs to the consensus cluster.
func (r *Resolution) InConsensus(i int) bool {
	if r.Pending() {
		return false
	}
	for _, m := range r.Clusters[r.ConsensusCluster].Members {
		if m == i {
			return true
		}
	}
	return false
}

// SimilarityToConsensus returns entry i's similarity to the consensus
// representative. Only valid when not pending.
func (r *Resolution) SimilarityToConsensus(i int) float64 {
	rep := r.RepresentativeIndex()
	if i == rep {
		return 1
	}
	return r.Similarity[i][rep]
}

// Resolver clusters the transcriptions of a chunk and picks the consensus
// group. The clustering policy is pluggable; the default is greedy
// threshold grouping.
type Resolver struct {
	params   Params
	strategy ClusterStrategy
}

// NewResolver creates a resolver with the default greedy strategy.
func NewResolver(params Params) *Resolver {
	return NewResolverWithStrategy(params, GreedyThreshold{})
}

// NewResolverWithStrategy creates a resolver with a custom clustering
// strategy.
func NewResolverWithStrategy(params Params, strategy ClusterStrategy) *Resolver {
	return &Resolver{params: params, strategy: strategy}
}

// Resolve computes the consensus for the given non-empty entries. The input
// slice is not mutated; entries are ordered by CreatedAt (then ID) before
// any index-based tie-break, so the result is identical across calls
// regardless of input order.
func (r *Resolver) Resolve(entries []Entry) Resolution {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})
	for i := range ordered {
		ordered[i].tokens = Tokenize(ordered[i].Text)
	}

	res := Resolution{
		Entries:          ordered,
		ConsensusCluster: -1,
		ParticipantCount: len(ordered),
	}

	if len(ordered) < r.params.MinimumCount {
		return res
	}

	res.Similarity = similarityMatrix(ordered)
	res.Clusters = r.strategy.Cluster(res.Similarity, r.params.AgreementThreshold)
	res.ConsensusCluster = selectConsensus(res.Clusters, res.Similarity)

	winner := res.Clusters[res.ConsensusCluster]
	res.Confidence = clamp01(float64(len(winner.Members)) / float64(len(ordered)) * winner.AvgIntra)
	return res
}

func similarityMatrix(entries []Entry) [][]float64 {
	n := len(entries)
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
		sim[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := TokenSimilarity(entries[i].tokens, entries[j].tokens)
			sim[i][j] = s
			sim[j][i] = s
		}
	}
	return sim
}

// selectConsensus picks the consensus cluster: largest wins; on equal size
// the cluster whose representative has the highest average intra-cluster
// similarity wins; if still tied, the cluster holding the
// earliest-submitted entry wins (entries are in submission order, so the
// lowest member index is the earliest).
func selectConsensus(clusters []Cluster, sim [][]float64) int {
	best := 0
	for c := 1; c < len(clusters); c++ {
		if betterCluster(clusters[c], clusters[best], sim) {
			best = c
		}
	}
	return best
}

func betterCluster(a, b Cluster, sim [][]float64) bool {
	if len(a.Members) != len(b.Members) {
		return len(a.Members) > len(b.Members)
	}
	ra := representativeAvg(a, sim)
	rb := representativeAvg(b, sim)
	if ra != rb {
		return ra > rb
	}
	return a.Members[0] < b.Members[0]
}

// representativeAvg is the representative's mean similarity to the other
// members; 1 for singletons.
func representativeAvg(c Cluster, sim [][]float64) float64 {
	if len(c.Members) == 1 {
		return 1
	}
	var sum float64
	for _, m := range c.Members {
		if m != c.Representative {
			sum += sim[c.Representative][m]
		}
	}
	return sum / float64(len(c.Members)-1)
}

// GreedyThreshold is the default clustering strategy: repeatedly seed on
// the unassigned entry with the highest average similarity to the other
// unassigned entries, group everything within the agreement threshold of
// the seed, and repeat on the remainder. Deterministic: all ties fall back
// to the lowest entry index, which is submission order.
type GreedyThreshold struct{}

// Cluster implements ClusterStrategy.
func (GreedyThreshold) Cluster(sim [][]float64, threshold float64) []Cluster {
	n := len(sim)
	unassigned := make([]bool, n)
	remaining := n
	for i := range unassigned {
		unassigned[i] = true
	}

	var clusters []Cluster
	for remaining > 0 {
		seed := pickSeed(sim, unassigned)

		var members []int
		for j := 0; j < n; j++ {
			if unassigned[j] && (j == seed || sim[seed][j] >= threshold) {
				members = append(members, j)
			}
		}
		for _, m := range members {
			unassigned[m] = false
		}
		remaining -= len(members)

		clusters = append(clusters, finishCluster(members, sim))
	}
	return clusters
}

// pickSeed returns the unassigned index with the highest mean similarity to
// the other unassigned indices.
func pickSeed(sim [][]float64, unassigned []bool) int {
	seed, bestAvg := -1, -1.0
	for i := range sim {
		if !unassigned[i] {
			continue
		}
		var sum float64
		count := 0
		for j := range sim {
			if j != i && unassigned[j] {
				sum += sim[i][j]
				count++
			}
		}
		avg := 0.0
		if count > 0 {
			avg = sum / float64(count)
		}
		if avg > bestAvg {
			seed, bestAvg = i, avg
		}
	}
	return seed
}

// finishCluster elects the member with the highest mean intra-cluster
// similarity as representative and computes the mean pairwise similarity.
func finishCluster(members []int, sim [][]float64) Cluster {
	c := Cluster{Representative: members[0], Members: members, AvgIntra: 1}
	if len(members) == 1 {
		return c
	}

	bestAvg := -1.0
	for _, i := range members {
		var sum float64
		for _, j := range members {
			if j != i {
				sum += sim[i][j]
			}
		}
		avg := sum / float64(len(members)-1)
		if avg > bestAvg {
			c.Representative, bestAvg = i, avg
		}
	}

	var pairSum float64
	pairs := 0
	for x := 0; x < len(members); x++ {
		for y := x + 1; y < len(members); y++ {
			pairSum += sim[members[x]][members[y]]
			pairs++
		}
	}
	c.AvgIntra = pairSum / float64(pairs)
	return c
}
