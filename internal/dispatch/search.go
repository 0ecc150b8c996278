// internal/dispatch/search.go
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// searchStrategy describes one way of locating and driving a search box.
type searchStrategy struct {
	Name           string
	InputSelector  string
	ButtonSelector string
	// EnterKey submits by pressing Enter in the input instead of clicking
	// the button.
	EnterKey bool
}

// searchStrategies is tried strictly in order, most specific first. The first
// strategy that completes submission wins; order is significant and fixed.
var searchStrategies = []searchStrategy{
	{
		Name:           "Google standard input (name=q)",
		InputSelector:  "input[name='q']",
		ButtonSelector: "button[name='btnK']",
		EnterKey:       true,
	},
	{
		Name:          "Google form submit (textarea)",
		InputSelector: "textarea[name='q']",
		EnterKey:      true,
	},
	{
		Name:           "Generic search input",
		InputSelector:  "input[type='search']",
		ButtonSelector: "button[type='submit']",
		EnterKey:       false,
	},
	{
		Name:          "Input with search placeholder",
		InputSelector: "input[placeholder*='search']",
		EnterKey:      true,
	},
	{
		Name:          "Any input field (fallback)",
		InputSelector: "input[type='text']",
		EnterKey:      true,
	},
}

// TrySearch walks the strategy list against the page. A strategy whose input
// cannot even be focused is skipped without recording a fault; any later
// failure is recorded and the next strategy is tried. Success short-circuits.
func TrySearch(ctx context.Context, page schemas.PageHandle, query string, logger *zap.Logger) schemas.SearchResult {
	result := schemas.SearchResult{
		MethodsTried: make([]string, 0, len(searchStrategies)),
		Errors:       make([]string, 0),
	}

	for _, strategy := range searchStrategies {
		result.MethodsTried = append(result.MethodsTried, strategy.Name)

		// Locating the input is the cheap pre-check; failure means this
		// strategy simply does not apply to the page.
		if err := page.Focus(ctx, strategy.InputSelector); err != nil {
			continue
		}

		if err := runStrategy(ctx, page, strategy, query); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		// Navigation after submit is best effort; some pages update in place.
		if err := page.WaitForLoad(ctx, 10*time.Second); err != nil {
			logger.Debug("No navigation observed after search submit",
				zap.String("strategy", strategy.Name), zap.Error(err))
		}

		result.Success = true
		result.MethodUsed = strategy.Name
		logger.Info("Search submitted", zap.String("strategy", strategy.Name), zap.String("query", query))
		return result
	}

	logger.Warn("All search strategies failed", zap.Strings("tried", result.MethodsTried))
	return result
}

func runStrategy(ctx context.Context, page schemas.PageHandle, s searchStrategy, query string) error {
	if err := page.Fill(ctx, s.InputSelector, query, 10*time.Second); err != nil {
		return err
	}
	if s.EnterKey {
		return page.Press(ctx, s.InputSelector, "Enter")
	}
	if s.ButtonSelector != "" {
		return page.Click(ctx, s.ButtonSelector, 10*time.Second)
	}
	return page.Press(ctx, s.InputSelector, "Enter")
}
