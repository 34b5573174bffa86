package converter

import (
	"math/rand"
	"time"

	"github.com/menta2k/dataset-converter/pkg/pairs"
)

// Split names for the two output subsets.
const (
	SplitTrain = "train"
	SplitVal   = "val"
)

// splitPairs divides the pair list into disjoint train and val subsets.
// len(train) is floor(ratio*n); the remainder goes to val. The list is
// shuffled before slicing. With a nil seed every run draws a fresh shuffle
// (train/val membership differs between runs on the same input); with an
// explicit seed the split is fully reproducible.
func splitPairs(pairList []pairs.Pair, ratio float64, seed *int64) (train, val []pairs.Pair) {
	shuffled := make([]pairs.Pair, len(pairList))
	copy(shuffled, pairList)

	src := time.Now().UnixNano()
	if seed != nil {
		src = *seed
	}
	rng := rand.New(rand.NewSource(src))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	splitIdx := int(float64(len(shuffled)) * ratio)
	return shuffled[:splitIdx], shuffled[splitIdx:]
}
