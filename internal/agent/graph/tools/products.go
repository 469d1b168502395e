package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	"github.com/Chative-core-poc-v1/dialogue/internal/products"
)

// ProductSearcher is satisfied by *products.Catalog.
type ProductSearcher interface {
	Search(ctx context.Context, query string, k int) ([]model.ScoredProduct, error)
}

func NewProductsTool(searcher ProductSearcher, defaultTopK int) tool.InvokableTool {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: model.ToolProducts,
			Desc: "Search ZUS Coffee drinkware and coffee products by keyword.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Product keywords, e.g. tumbler or coffee beans",
					Required: true,
				},
				"top_k": {
					Type: schema.Integer,
					Desc: "Maximum number of products to return",
				},
			}),
		},
		func(ctx context.Context, in *model.ProductSearchInput) (*model.ProductSearchOutput, error) {
			if in.Query == "" {
				return nil, errx.Validation("Product search error: query is required", nil)
			}
			k := in.TopK
			if k <= 0 || k > 20 {
				k = defaultTopK
			}
			results, err := searcher.Search(ctx, in.Query, k)
			if err != nil {
				return nil, errx.Upstream("Product search is unavailable right now", err)
			}
			if results == nil {
				results = []model.ScoredProduct{}
			}
			return &model.ProductSearchOutput{
				Query:      in.Query,
				Results:    results,
				Summary:    products.Summarize(in.Query, results),
				TotalFound: len(results),
			}, nil
		},
	)
}
