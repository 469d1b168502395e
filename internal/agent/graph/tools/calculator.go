package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	"github.com/Chative-core-poc-v1/dialogue/internal/calculator"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

// Calculator is satisfied by *calculator.Calculator.
type Calculator interface {
	Calculate(ctx context.Context, expr string) (*calculator.Result, error)
}

func NewCalculatorTool(calc Calculator) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: model.ToolCalculator,
			Desc: "Evaluate a basic arithmetic expression with + - * / % ** and parentheses.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"expression": {
					Type:     schema.String,
					Desc:     "Arithmetic expression, e.g. 2 + 3 * 4",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *model.CalculationInput) (*model.CalculationOutput, error) {
			if in.Expression == "" {
				return nil, errx.Validation("Calculation error: expression is required", nil)
			}
			res, err := calc.Calculate(ctx, in.Expression)
			if err != nil {
				return nil, errx.Validation("Calculation error: "+errx.SafeMessage(err, "invalid expression"), err)
			}
			return &model.CalculationOutput{
				Expression: res.Expression,
				Result:     calculator.FormatNumber(res.Value),
				Method:     res.Method,
			}, nil
		},
	)
}
