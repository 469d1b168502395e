package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	"github.com/Chative-core-poc-v1/dialogue/internal/outlets"
)

// OutletProvider runs translated outlet queries; *outlets.Store satisfies it.
type OutletProvider interface {
	Query(ctx context.Context, q outlets.Query) ([]model.Outlet, error)
}

func NewOutletsTool(provider OutletProvider) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: model.ToolOutlets,
			Desc: "Look up ZUS Coffee outlets by location, opening hours, services or contact details.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Question about outlets, e.g. outlets in Petaling Jaya opening hours",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *model.OutletSearchInput) (*model.OutletSearchOutput, error) {
			if in.Query == "" {
				return nil, errx.Validation("Outlet query error: query is required", nil)
			}
			q, err := outlets.Translate(in.Query)
			if err != nil {
				return nil, err
			}
			rows, err := provider.Query(ctx, q)
			if err != nil {
				if errx.KindOf(err) == errx.KindSecurityRejection {
					return nil, err
				}
				return nil, errx.Upstream("Outlet information is unavailable right now", err)
			}
			if rows == nil {
				rows = []model.Outlet{}
			}
			return &model.OutletSearchOutput{
				Query:      in.Query,
				SQLQuery:   q.SQL,
				Results:    rows,
				TotalFound: len(rows),
			}, nil
		},
	)
}
