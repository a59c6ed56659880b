package service

import (
	"fmt"
	"math/rand"
)

// ReviewPair is one reviewer -> reviewee edge, both identified by submission id.
type ReviewPair struct {
	ReviewerID uint
	RevieweeID uint
}

// SelectRandomAssignment assigns every submission k distinct peers to review
// so that every submission is also reviewed exactly k times and nobody
// reviews their own work. The result depends only on the order of
// submissionIDs, k and seed.
//
// Each of the k pools starts with every submission. Reviewers, in input
// order, draw one not yet selected submission from each pool. When a late
// reviewer finds a pool holding only submissions it cannot take, the pick is
// swapped with an earlier reviewer's pick from the same pool. If no swap
// exists, which can only happen when there are fewer than 2k submissions, the
// assignment falls back to rotating a seeded shuffle.
func SelectRandomAssignment(submissionIDs []uint, k int, seed int64) ([]ReviewPair, error) {
	n := len(submissionIDs)
	if k <= 0 {
		return []ReviewPair{}, nil
	}
	if n <= k {
		return nil, fmt.Errorf("%w: %d submissions cannot each review %d others", ErrAssignmentUnsatisfiable, n, k)
	}

	rng := rand.New(rand.NewSource(seed))

	pools := make([][]int, k)
	for p := range pools {
		pools[p] = make([]int, n)
		for i := range pools[p] {
			pools[p][i] = i
		}
	}

	picks := make([][]int, n)
	selected := make([]map[int]struct{}, n)

	for reviewer := 0; reviewer < n; reviewer++ {
		selected[reviewer] = map[int]struct{}{reviewer: {}}
		picks[reviewer] = make([]int, k)

		for p := 0; p < k; p++ {
			candidates := make([]int, 0, len(pools[p]))
			for _, index := range pools[p] {
				if _, taken := selected[reviewer][index]; !taken {
					candidates = append(candidates, index)
				}
			}

			var pick int
			if len(candidates) > 0 {
				pick = candidates[rng.Intn(len(candidates))]
				pools[p] = removeIndex(pools[p], pick)
			} else {
				handed, replacement, ok := repairPick(reviewer, p, pools[p], picks, selected)
				if !ok {
					return rotatedAssignment(submissionIDs, k, seed), nil
				}
				pools[p] = removeIndex(pools[p], replacement)
				pick = handed
			}

			picks[reviewer][p] = pick
			selected[reviewer][pick] = struct{}{}
		}
	}

	pairs := make([]ReviewPair, 0, n*k)
	for reviewer := 0; reviewer < n; reviewer++ {
		for p := 0; p < k; p++ {
			pairs = append(pairs, ReviewPair{
				ReviewerID: submissionIDs[reviewer],
				RevieweeID: submissionIDs[picks[reviewer][p]],
			})
		}
	}

	return pairs, nil
}

// repairPick finds an earlier reviewer whose pick from pool p the current
// reviewer can take, while the earlier reviewer can take an entry still left
// in the pool. The earlier reviewer is switched to that entry. It returns the
// handed over index and the pool entry that replaced it. Candidates are
// scanned in a fixed order.
func repairPick(reviewer, p int, pool []int, picks [][]int, selected []map[int]struct{}) (int, int, bool) {
	for earlier := 0; earlier < reviewer; earlier++ {
		handed := picks[earlier][p]
		if _, taken := selected[reviewer][handed]; taken {
			continue
		}
		for _, replacement := range pool {
			if _, taken := selected[earlier][replacement]; taken {
				continue
			}

			delete(selected[earlier], handed)
			selected[earlier][replacement] = struct{}{}
			picks[earlier][p] = replacement
			return handed, replacement, true
		}
	}
	return 0, 0, false
}

// rotatedAssignment shuffles the submissions and lets the i-th one review
// the next k in the shuffled ring.
func rotatedAssignment(submissionIDs []uint, k int, seed int64) []ReviewPair {
	n := len(submissionIDs)
	order := rand.New(rand.NewSource(seed)).Perm(n)

	pairs := make([]ReviewPair, 0, n*k)
	for position, reviewer := range order {
		for offset := 1; offset <= k; offset++ {
			pairs = append(pairs, ReviewPair{
				ReviewerID: submissionIDs[reviewer],
				RevieweeID: submissionIDs[order[(position+offset)%n]],
			})
		}
	}
	return pairs
}

func removeIndex(pool []int, value int) []int {
	for i, index := range pool {
		if index == value {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}
