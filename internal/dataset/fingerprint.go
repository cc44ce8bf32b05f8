package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/store"
)

// Fingerprint computes a canonical content hash for a training example.
// Message contents are lower-cased and trimmed and the messages sorted by
// (role, content), so two examples with the same semantic content collapse
// to the same fingerprint regardless of order or casing.
func Fingerprint(ex models.TrainingExample) string {
	type pair struct{ role, content string }
	pairs := make([]pair, 0, len(ex.Messages))
	for _, m := range ex.Messages {
		pairs = append(pairs, pair{
			role:    m.Role,
			content: strings.ToLower(strings.TrimSpace(m.Content)),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].role != pairs[j].role {
			return pairs[i].role < pairs[j].role
		}
		return pairs[i].content < pairs[j].content
	})

	h := sha256.New()
	for _, p := range pairs {
		h.Write([]byte(p.role))
		h.Write([]byte{0x1f})
		h.Write([]byte(p.content))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Index is a set of example fingerprints. It is owned by a single job run
// and is not safe for concurrent use; a fresh per-job Index is created for
// every generation run rather than shared.
type Index struct {
	seen map[string]struct{}
}

func NewIndex() *Index {
	return &Index{seen: make(map[string]struct{})}
}

func (i *Index) Has(fp string) bool {
	_, ok := i.seen[fp]
	return ok
}

func (i *Index) Add(fp string) {
	i.seen[fp] = struct{}{}
}

func (i *Index) Len() int {
	return len(i.seen)
}

// LoadGlobalIndex re-derives example fingerprints from every dataset with
// stored content. Malformed lines are skipped, not fatal. The snapshot is
// taken fresh at the start of each job, so two jobs running concurrently
// can both accept the same new example relative to each other.
func LoadGlobalIndex(ctx context.Context, datasets store.DatasetStore) (*Index, error) {
	hasContent := true
	existing, err := datasets.Query(ctx, store.DatasetFilter{HasContent: &hasContent})
	if err != nil {
		return nil, fmt.Errorf("load existing datasets: %w", err)
	}

	idx := NewIndex()
	for _, d := range existing {
		if d.Content == nil {
			continue
		}
		for _, ex := range DecodeJSONLLenient(*d.Content) {
			idx.Add(Fingerprint(ex))
		}
	}
	return idx, nil
}
