package gateway

import (
	"fmt"
	"strings"
	"text/template"
)

// promptDef is a prompt template plus its argument contract.
type promptDef struct {
	Prompt
	tmpl     *template.Template
	defaults map[string]string
}

var promptCatalog = buildPrompts()

func buildPrompts() []promptDef {
	mk := func(name, body string) *template.Template {
		return template.Must(template.New(name).Parse(body))
	}
	return []promptDef{
		{
			Prompt: Prompt{
				Name:        "market-analysis",
				Description: "Structured market analysis workflow for an industry in a region.",
				Arguments: []PromptArgument{
					{Name: "industry", Description: "Industry name or NAICS code.", Required: true},
					{Name: "region", Description: "Country or region code."},
				},
			},
			defaults: map[string]string{"region": "US"},
			tmpl: mk("market-analysis", `Analyze the {{.industry}} market in {{.region}}.

1. Call industry_search with query "{{.industry}}" to map the landscape.
2. Call market_size_calculator with industryQuery "{{.industry}}" and
   geographyCodes ["{{.region}}"] for a current size estimate.
3. Call data_validation with query "{{.industry}}" to cross-check the
   estimate across independent sources.
4. Summarize: market size with confidence, the dominant players or
   segments found, and which data sources contributed.`),
		},
		{
			Prompt: Prompt{
				Name:        "tam-report",
				Description: "TAM/SAM sizing report from a base market estimate.",
				Arguments: []PromptArgument{
					{Name: "industry", Description: "Industry being sized.", Required: true},
					{Name: "baseMarketSize", Description: "Base market size in USD."},
					{Name: "growthRate", Description: "Annual growth rate as a fraction."},
				},
			},
			defaults: map[string]string{"baseMarketSize": "10000000000", "growthRate": "0.15"},
			tmpl: mk("tam-report", `Build a TAM/SAM report for {{.industry}}.

1. Call tam_calculator with baseMarketSize {{.baseMarketSize}} and
   annualGrowthRate {{.growthRate}} over 5 years.
2. Call sam_calculator on the resulting TAM with your best estimates of
   geographic and competitive constraints.
3. Call market_forecasting with baseValue {{.baseMarketSize}} to show
   conservative, base, and aggressive trajectories.
4. Present the year-by-year table, state every assumption, and flag any
   figure derived from a default rather than real data.`),
		},
		{
			Prompt: Prompt{
				Name:        "company-profile",
				Description: "Company fundamentals and financials briefing.",
				Arguments: []PromptArgument{
					{Name: "symbol", Description: "Stock ticker symbol.", Required: true},
				},
			},
			tmpl: mk("company-profile", `Profile the company with ticker {{.symbol}}.

1. Call alphaVantage_getCompanyOverview with symbol "{{.symbol}}".
2. Call company_financials_retriever with companySymbol "{{.symbol}}"
   for the income statement, then again for the balance sheet.
3. Report market capitalization, revenue trend, margins, and how the
   company's market cap compares to its industry's estimated size.`),
		},
	}
}

func listPrompts() []Prompt {
	out := make([]Prompt, 0, len(promptCatalog))
	for _, p := range promptCatalog {
		out = append(out, p.Prompt)
	}
	return out
}

func renderPrompt(name string, args map[string]string) (*GetPromptResult, error) {
	for _, p := range promptCatalog {
		if p.Name != name {
			continue
		}
		merged := make(map[string]string, len(args)+len(p.defaults))
		for k, v := range p.defaults {
			merged[k] = v
		}
		for k, v := range args {
			merged[k] = v
		}
		for _, a := range p.Arguments {
			if a.Required && merged[a.Name] == "" {
				return nil, fmt.Errorf("prompt %s: missing required argument %q", name, a.Name)
			}
		}
		var sb strings.Builder
		if err := p.tmpl.Execute(&sb, merged); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		return &GetPromptResult{
			Description: p.Description,
			Messages: []PromptMessage{{
				Role:    "user",
				Content: PromptContent{Type: "text", Text: sb.String()},
			}},
		}, nil
	}
	return nil, fmt.Errorf("unknown prompt: %s", name)
}
