package model

import "encoding/json"

// Tool names known to the planner.
const (
	ToolOutlets    = "outlets"
	ToolProducts   = "products"
	ToolCalculator = "calculator"
)

// ToolResult is the uniform envelope every gateway call returns.
type ToolResult struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	ToolName string          `json:"tool_name"`
}

// ================ Calculator ================
type CalculationInput struct {
	Expression string `json:"expression"`
}

type CalculationOutput struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
	Method     string `json:"method"`
}

// ================ Outlets ================
type OutletSearchInput struct {
	Query string `json:"query"`
}

type Outlet struct {
	ID           int64    `json:"id" yaml:"-"`
	Name         string   `json:"name" yaml:"name"`
	Location     string   `json:"location" yaml:"location"`
	Address      string   `json:"address,omitempty" yaml:"address"`
	OpeningHours string   `json:"opening_hours,omitempty" yaml:"opening_hours"`
	Services     []string `json:"services,omitempty" yaml:"services"`
	Contact      string   `json:"contact,omitempty" yaml:"contact"`
	Latitude     float64  `json:"latitude,omitempty" yaml:"latitude"`
	Longitude    float64  `json:"longitude,omitempty" yaml:"longitude"`
}

type OutletSearchOutput struct {
	Query      string   `json:"query"`
	SQLQuery   string   `json:"sql_query"`
	Results    []Outlet `json:"results"`
	TotalFound int      `json:"total_found"`
}

// ================ Products ================
type ProductSearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Price       string   `json:"price,omitempty" yaml:"price"`
	ImageURL    string   `json:"image_url,omitempty" yaml:"image_url"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Features    []string `json:"features,omitempty" yaml:"features"`
}

type ScoredProduct struct {
	Product
	Score float64 `json:"score"`
}

type ProductSearchOutput struct {
	Query      string          `json:"query"`
	Results    []ScoredProduct `json:"results"`
	Summary    string          `json:"summary"`
	TotalFound int             `json:"total_found"`
}
