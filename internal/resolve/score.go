package resolve

import (
	"strings"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// Scoring weights. Composition fit dominates; novelty and in-run
// diversity break ties between visually equivalent entries.
const (
	weightComposition = 0.5
	weightNovelty     = 0.3
	weightDiversity   = 0.2
)

// scoreEntry scores one eligible candidate for a slot.
//
//	composition: 1 on exact class match, 0.5 when the slot doesn't care,
//	             0.25 on mismatch
//	novelty:     inverse frequency of recent ledger use
//	diversity:   inverse count of same-category picks already in this run
func scoreEntry(e model.LibraryEntry, slot model.VisualSlot, recentUses int, catCount map[string]int) float64 {
	var comp float64
	switch {
	case slot.Composition == "":
		comp = 0.5
	case strings.EqualFold(e.Composition, slot.Composition):
		comp = 1
	default:
		comp = 0.25
	}

	novelty := 1.0 / float64(1+recentUses)
	diversity := 1.0 / float64(1+catCount[e.Category()])

	return weightComposition*comp + weightNovelty*novelty + weightDiversity*diversity
}
