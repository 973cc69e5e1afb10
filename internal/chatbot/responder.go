package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/supermart/supermart/internal/catalog"
	"github.com/supermart/supermart/internal/shared"
)

// Intent names the keyword that matched.
type Intent string

const (
	IntentCategory Intent = "category_browse"
	IntentPrice    Intent = "price_inquiry"
	IntentStock    Intent = "stock_inquiry"
	IntentHelp     Intent = "help"
)

const (
	helpReply        = "I'm your Supermart assistant. Ask me about products, prices, or categories!"
	pricePrompt      = "Please mention the product name to check price."
	stockPrompt      = "Tell me the product name to check stock."
	noCategoriesText = "No categories are available yet."
)

// Catalog is the read side the responder needs.
type Catalog interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	FindMentioned(ctx context.Context, text string) (catalog.Product, error)
}

// Reply is returned to the caller.
type Reply struct {
	Response string `json:"response"`
	Intent   Intent `json:"intent"`
}

// Responder answers chat messages by fixed keyword matching.
type Responder struct {
	catalog Catalog
	printer *message.Printer
	logger  *slog.Logger
}

// NewResponder builds a responder for English replies.
func NewResponder(cat Catalog, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		catalog: cat,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

// Respond matches the first keyword in order category, price, stock.
func (r *Responder) Respond(ctx context.Context, msg string) (Reply, error) {
	text := strings.ToLower(msg)
	switch {
	case strings.Contains(text, "category"):
		return r.categories(ctx)
	case strings.Contains(text, "price"):
		p, ok, err := r.mentionedProduct(ctx, text)
		if err != nil || !ok {
			return Reply{Response: pricePrompt, Intent: IntentPrice}, err
		}
		f, _ := p.Price.Float64()
		return Reply{Response: r.printer.Sprintf("%s costs $%.2f.", p.Name, f), Intent: IntentPrice}, nil
	case strings.Contains(text, "stock"):
		p, ok, err := r.mentionedProduct(ctx, text)
		if err != nil || !ok {
			return Reply{Response: stockPrompt, Intent: IntentStock}, err
		}
		return Reply{Response: r.stockLine(p), Intent: IntentStock}, nil
	default:
		return Reply{Response: helpReply, Intent: IntentHelp}, nil
	}
}

func (r *Responder) categories(ctx context.Context) (Reply, error) {
	cats, err := r.catalog.ListCategories(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("chatbot: categories: %w", err)
	}
	if len(cats) == 0 {
		return Reply{Response: noCategoriesText, Intent: IntentCategory}, nil
	}
	var b strings.Builder
	b.WriteString("Available Categories:\n")
	for _, c := range cats {
		b.WriteString("- ")
		b.WriteString(c.Name)
		b.WriteString("\n")
	}
	return Reply{Response: b.String(), Intent: IntentCategory}, nil
}

func (r *Responder) stockLine(p catalog.Product) string {
	switch {
	case !p.InStock():
		return r.printer.Sprintf("%s is out of stock.", p.Name)
	case p.IsLowStock():
		return r.printer.Sprintf("Only %d units of %s left.", p.Quantity, p.Name)
	default:
		return r.printer.Sprintf("%s is in stock (%d units).", p.Name, p.Quantity)
	}
}

// mentionedProduct finds the product with the longest name contained in text.
func (r *Responder) mentionedProduct(ctx context.Context, text string) (catalog.Product, bool, error) {
	p, err := r.catalog.FindMentioned(ctx, text)
	switch {
	case err == nil:
		return p, true, nil
	case errors.Is(err, shared.ErrNotFound):
		return catalog.Product{}, false, nil
	default:
		r.logger.Warn("chatbot product lookup", slog.Any("error", err))
		return catalog.Product{}, false, nil
	}
}
