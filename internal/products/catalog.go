package products

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

//go:embed products.yaml
var seedProducts []byte

const (
	weightName        = 2.0
	weightDescription = 1.5
	weightTags        = 1.0
	weightCategory    = 0.5
	minKeywordLen     = 3
)

// Catalog is an in-memory keyword-scored product search provider. Searches
// hold the read lock for the whole scan so Add never interleaves with one.
type Catalog struct {
	mu       sync.RWMutex
	products []model.Product
}

// NewCatalog decodes a YAML list of products.
func NewCatalog(doc []byte) (*Catalog, error) {
	var products []model.Product
	if err := yaml.Unmarshal(doc, &products); err != nil {
		return nil, fmt.Errorf("decode product catalog: %w", err)
	}
	return &Catalog{products: products}, nil
}

// DefaultCatalog returns the catalog seeded from the embedded product list.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(seedProducts)
	if err != nil {
		panic(err)
	}
	return c
}

// Add appends a product. Ids must be unique.
func (c *Catalog) Add(p model.Product) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("product requires id and name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.products {
		if existing.ID == p.ID {
			return fmt.Errorf("product %s already exists", p.ID)
		}
	}
	c.products = append(c.products, p)
	return nil
}

// All returns a copy of every product.
func (c *Catalog) All() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Product(nil), c.products...)
}

// Search returns up to k products with a positive score, best first.
func (c *Catalog) Search(ctx context.Context, query string, k int) ([]model.ScoredProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keywords := strings.Fields(strings.ToLower(query))

	c.mu.RLock()
	var scored []model.ScoredProduct
	for _, p := range c.products {
		if s := score(keywords, p); s > 0 {
			scored = append(scored, model.ScoredProduct{Product: p, Score: s})
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// score credits each keyword once, by the most specific field it appears
// in, and averages over all query words.
func score(keywords []string, p model.Product) float64 {
	if len(keywords) == 0 {
		return 0
	}
	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)
	tags := strings.ToLower(strings.Join(p.Tags, " "))
	category := strings.ToLower(p.Category)

	var total float64
	for _, kw := range keywords {
		if len(kw) < minKeywordLen {
			continue
		}
		switch {
		case strings.Contains(name, kw):
			total += weightName
		case strings.Contains(desc, kw):
			total += weightDescription
		case strings.Contains(tags, kw):
			total += weightTags
		case strings.Contains(category, kw):
			total += weightCategory
		}
	}
	return total / float64(len(keywords))
}

// Summarize produces the one-line description of a result set.
func Summarize(query string, results []model.ScoredProduct) string {
	if len(results) == 0 {
		return "No products found matching your query."
	}
	q := strings.ToLower(query)

	if strings.Contains(q, "drinkware") || strings.Contains(q, "cup") || strings.Contains(q, "mug") {
		n := 0
		for _, r := range results {
			name := strings.ToLower(r.Name)
			if r.Category == "drinkware" || strings.Contains(name, "mug") || strings.Contains(name, "tumbler") {
				n++
			}
		}
		if n > 0 {
			return fmt.Sprintf("I found %d drinkware items including tumblers, mugs, and bottles. "+
				"Our drinkware collection features high-quality materials like stainless steel and ceramic, perfect for enjoying your ZUS coffee.", n)
		}
	}

	if strings.Contains(q, "coffee") && strings.Contains(q, "bean") {
		for _, r := range results {
			desc := strings.ToLower(r.Description + " " + r.Name)
			if strings.Contains(desc, "coffee") && strings.Contains(desc, "bean") {
				return "Our coffee selection includes premium blends perfect for different brewing methods. The signature blend features chocolate and caramel notes."
			}
		}
	}

	if strings.Contains(q, "tumbler") {
		return "Our tumblers are designed to keep your beverages at the perfect temperature with double-wall insulation and leak-proof design."
	}
	if strings.Contains(q, "mug") {
		return "Our mugs combine style and functionality, perfect for your daily coffee ritual at home or office."
	}

	var categories []string
	for _, cat := range []string{"drinkware", "coffee"} {
		for _, r := range results {
			if r.Category == cat || strings.Contains(strings.ToLower(r.Description), cat) {
				categories = append(categories, cat)
				break
			}
		}
	}
	if len(categories) > 0 {
		return fmt.Sprintf("I found %d products in our %s collection. These items are carefully selected to enhance your ZUS Coffee experience.",
			len(results), strings.Join(categories, " and "))
	}
	return fmt.Sprintf("I found %d products that match your query. Each item is designed with quality and functionality in mind.", len(results))
}
