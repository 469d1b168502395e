package nodes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

const (
	NoOutletsMessage  = "I couldn't find any outlets matching your query. Could you try a different location?"
	NoProductsMessage = "I couldn't find any products matching your query. Try asking about drinkware, coffee, or ZUS products."
	processedMessage  = "I've processed your request successfully."

	maxListedOutlets  = 3
	maxListedProducts = 3
)

// FormatToolResult renders the data of a successful tool result as reply text.
func FormatToolResult(result model.ToolResult) (string, error) {
	switch result.ToolName {
	case model.ToolCalculator:
		var out model.CalculationOutput
		if err := json.Unmarshal(result.Data, &out); err != nil {
			return "", fmt.Errorf("decode calculator output: %w", err)
		}
		return fmt.Sprintf("The result of %s is %s", out.Expression, out.Result), nil

	case model.ToolOutlets:
		var out model.OutletSearchOutput
		if err := json.Unmarshal(result.Data, &out); err != nil {
			return "", fmt.Errorf("decode outlets output: %w", err)
		}
		return formatOutlets(out.Results), nil

	case model.ToolProducts:
		var out model.ProductSearchOutput
		if err := json.Unmarshal(result.Data, &out); err != nil {
			return "", fmt.Errorf("decode products output: %w", err)
		}
		return formatProducts(out), nil
	}
	return processedMessage, nil
}

func formatOutlets(outlets []model.Outlet) string {
	switch len(outlets) {
	case 0:
		return NoOutletsMessage
	case 1:
		o := outlets[0]
		var b strings.Builder
		fmt.Fprintf(&b, "I found the %s outlet:\n", o.Name)
		if o.Address != "" {
			fmt.Fprintf(&b, "📍 %s\n", o.Address)
		}
		if o.OpeningHours != "" {
			fmt.Fprintf(&b, "🕐 %s\n", o.OpeningHours)
		}
		if len(o.Services) > 0 {
			fmt.Fprintf(&b, "🛍️ Services: %s", strings.Join(o.Services, ", "))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d outlets:\n\n", len(outlets))
	for _, o := range outlets[:min(len(outlets), maxListedOutlets)] {
		fmt.Fprintf(&b, "• %s - %s\n", o.Name, o.Location)
		if o.OpeningHours != "" {
			fmt.Fprintf(&b, "  %s\n", o.OpeningHours)
		}
		b.WriteString("\n")
	}
	if extra := len(outlets) - maxListedOutlets; extra > 0 {
		fmt.Fprintf(&b, "... and %d more outlets.", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProducts(out model.ProductSearchOutput) string {
	if len(out.Results) == 0 {
		return NoProductsMessage
	}
	summary := out.Summary
	if summary == "" {
		summary = "Here are the products I found:"
	}

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nTop products:\n")
	for _, p := range out.Results[:min(len(out.Results), maxListedProducts)] {
		b.WriteString("• " + p.Name)
		if p.Price != "" {
			b.WriteString(" - " + p.Price)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
