package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/xid"
)

// ImportMode chooses how an imported catalog meets the current one.
type ImportMode string

const (
	// ImportMerge appends the imported products under fresh ids.
	ImportMerge ImportMode = "merge"
	// ImportReplace swaps the whole catalog for the imported one, ids kept.
	ImportReplace ImportMode = "replace"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", fmt.Errorf("%w: unknown import mode %q", domain.ErrInvalidInput, s)
	}
}

// ImportProposal is a validated products backup waiting for commit.
type ImportProposal struct {
	ID                   string           `json:"id"`
	Mode                 ImportMode       `json:"mode"`
	Products             []domain.Product `json:"products"`
	Dropped              int              `json:"dropped"`
	Existing             int              `json:"existing"`
	RequiresConfirmation bool             `json:"requiresConfirmation"`
	Description          string           `json:"description"`
}

type ImportResult struct {
	Mode     ImportMode `json:"mode"`
	Imported int        `json:"imported"`
	Dropped  int        `json:"dropped"`
	Total    int        `json:"total"`
}

// Export encodes the catalog as a products_backup envelope.
func (c *Catalog) Export(now time.Time) (backup.File, error) {
	return backup.Encode(backup.KindProducts, c.List(), now)
}

// ProposeImport validates a products backup. Invalid elements are dropped and
// counted. Replacing a non-empty (or unreadable) catalog, or importing with
// dropped elements, needs confirmation at commit.
func (c *Catalog) ProposeImport(content []byte, mode ImportMode) (*ImportProposal, error) {
	if mode == "" {
		mode = ImportMerge
	}
	if mode != ImportMerge && mode != ImportReplace {
		return nil, fmt.Errorf("%w: unknown import mode %q", domain.ErrInvalidInput, mode)
	}

	env, err := backup.Decode(backup.KindProducts, content)
	if err != nil {
		return nil, err
	}
	imported, dropped, err := backup.DecodeProducts(env.Data)
	if err != nil {
		return nil, err
	}
	if len(imported) == 0 {
		return nil, domain.NewValidationError("products", "no valid products in file (%d dropped)", dropped)
	}
	duplicates := 0
	if mode == ImportReplace {
		imported, duplicates = dropDuplicateIDs(imported)
		dropped += duplicates
	}

	c.mu.Lock()
	existing := len(c.products)
	corrupt := c.loadFailed
	c.mu.Unlock()

	p := &ImportProposal{
		ID:       xid.New("imp"),
		Mode:     mode,
		Products: imported,
		Dropped:  dropped,
		Existing: existing,
	}
	p.RequiresConfirmation = dropped > 0 || (mode == ImportReplace && (existing > 0 || corrupt))

	var parts []string
	if invalid := dropped - duplicates; invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d product(s) have an invalid structure and will be skipped", invalid))
	}
	if duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d product(s) repeat an earlier id and will be skipped", duplicates))
	}
	switch {
	case mode == ImportMerge:
		parts = append(parts, fmt.Sprintf("add %d product(s) to the %d existing", len(imported), existing))
	case corrupt:
		parts = append(parts, fmt.Sprintf("current data looks corrupt; replace it with %d product(s)", len(imported)))
	default:
		parts = append(parts, fmt.Sprintf("replace the %d current product(s) with %d from the file", existing, len(imported)))
	}
	p.Description = strings.Join(parts, "; ")
	return p, nil
}

// dropDuplicateIDs keeps the first product for each id.
func dropDuplicateIDs(in []domain.Product) ([]domain.Product, int) {
	seen := make(map[int]bool, len(in))
	out := make([]domain.Product, 0, len(in))
	for _, p := range in {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, len(in) - len(out)
}

// CommitImport applies a proposal. It refuses with ErrConfirmationRequired when
// the proposal needs confirmation and confirmed is false.
func (c *Catalog) CommitImport(ctx context.Context, p *ImportProposal, confirmed bool) (ImportResult, error) {
	if p == nil {
		return ImportResult{}, fmt.Errorf("commit import: %w: no proposal", domain.ErrInvalidInput)
	}
	if p.RequiresConfirmation && !confirmed {
		return ImportResult{}, domain.ErrConfirmationRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The catalog may have gained products since the proposal was made.
	if p.Mode == ImportReplace && len(c.products) > 0 && !confirmed {
		return ImportResult{}, domain.ErrConfirmationRequired
	}

	var next []domain.Product
	switch p.Mode {
	case ImportReplace:
		next = append([]domain.Product(nil), p.Products...)
	default:
		base := maxID(c.products)
		next = make([]domain.Product, 0, len(c.products)+len(p.Products))
		next = append(next, c.products...)
		for i, product := range p.Products {
			product.ID = base + i + 1
			next = append(next, product)
		}
	}

	if err := c.commit(ctx, "CommitImport", next); err != nil {
		return ImportResult{}, err
	}
	c.logger.WithFields(logrus.Fields{
		"mode":     p.Mode,
		"imported": len(p.Products),
		"dropped":  p.Dropped,
	}).Info("products imported")

	return ImportResult{Mode: p.Mode, Imported: len(p.Products), Dropped: p.Dropped, Total: len(next)}, nil
}
