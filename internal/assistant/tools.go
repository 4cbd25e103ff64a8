package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
	"pharmastore/internal/metrics"
	"pharmastore/internal/repos"
	"pharmastore/internal/services"
	"pharmastore/internal/validate"
)

// Kind says which part of the UI a tool result may update.
type Kind string

const (
	KindQuery      Kind = "query"
	KindDisplay    Kind = "display"
	KindCart       Kind = "cart"
	KindNavigation Kind = "navigation"
)

const (
	ToolSearchProducts = "search_products"
	ToolShowProducts   = "show_products"
	ToolAddToCart      = "add_to_cart"
	ToolRemoveFromCart = "remove_from_cart"
	ToolViewCart       = "view_cart"
	ToolClearCart      = "clear_cart"
	ToolNavigate       = "navigate"
)

// ToolResult is tagged with its originating tool so callers can route
// it without inspecting the payload.
type ToolResult struct {
	CallID string `json:"callId"`
	Tool   string `json:"tool"`
	Kind   Kind   `json:"kind"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Overlay struct {
	Title    string           `json:"title"`
	Products []domain.Product `json:"products"`
}

type Navigation struct {
	Page      string `json:"page"`
	Path      string `json:"path"`
	ProductID string `json:"productId,omitempty"`
	Category  string `json:"category,omitempty"`
}

type searchArgs struct {
	Query    string `json:"query" validate:"max=100"`
	Category string `json:"category" validate:"max=64"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
}

type showArgs struct {
	ProductIDs []string `json:"productIds" validate:"max=20,dive,required,max=64"`
	Query      string   `json:"query" validate:"max=100"`
	Category   string   `json:"category" validate:"max=64"`
	Title      string   `json:"title" validate:"max=120"`
}

type addArgs struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=50"`
}

type removeArgs struct {
	ProductID string `json:"productId" validate:"required,max=64"`
}

type navigateArgs struct {
	Page      string `json:"page" validate:"required,oneof=home products product cart checkout login register"`
	ProductID string `json:"productId" validate:"max=64"`
	Category  string `json:"category" validate:"max=64"`
}

func obj(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }

// Specs is the fixed tool catalog offered to the model.
var Specs = []ToolSpec{
	{
		Name:        ToolSearchProducts,
		Description: "Search the pharmacy catalog by free text and/or category. Returns matching products with id, price, stock and prescription flag. Does not show anything to the customer.",
		Parameters: obj(map[string]any{
			"query":    str("Text matched against product name, description and manufacturer"),
			"category": str("Exact category name, e.g. Analgésicos"),
			"limit":    map[string]any{"type": "integer", "description": "Maximum results (default 10)", "minimum": 0, "maximum": 100},
		}),
	},
	{
		Name:        ToolShowProducts,
		Description: "Display products to the customer in the product panel. Pass explicit productIds, or a query/category to display search results.",
		Parameters: obj(map[string]any{
			"productIds": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Product ids to display"},
			"query":      str("Search text when ids are not known"),
			"category":   str("Category filter"),
			"title":      str("Panel heading"),
		}),
	},
	{
		Name:        ToolAddToCart,
		Description: "Add a product to the customer's cart.",
		Parameters: obj(map[string]any{
			"productId": str("Product id from search results"),
			"quantity":  map[string]any{"type": "integer", "description": "Units to add (default 1)", "minimum": 1, "maximum": 50},
		}, "productId"),
	},
	{
		Name:        ToolRemoveFromCart,
		Description: "Remove a product line from the customer's cart.",
		Parameters:  obj(map[string]any{"productId": str("Product id to remove")}, "productId"),
	},
	{
		Name:        ToolViewCart,
		Description: "Return the customer's current cart with items and total.",
		Parameters:  obj(map[string]any{}),
	},
	{
		Name:        ToolClearCart,
		Description: "Remove every item from the customer's cart.",
		Parameters:  obj(map[string]any{}),
	},
	{
		Name:        ToolNavigate,
		Description: "Send the customer to a page of the store.",
		Parameters: obj(map[string]any{
			"page": map[string]any{
				"type": "string",
				"enum": []string{"home", "products", "product", "cart", "checkout", "login", "register"},
			},
			"productId": str("Required when page is product"),
			"category":  str("Optional category when page is products"),
		}, "page"),
	},
}

var kinds = map[string]Kind{
	ToolSearchProducts: KindQuery,
	ToolShowProducts:   KindDisplay,
	ToolAddToCart:      KindCart,
	ToolRemoveFromCart: KindCart,
	ToolViewCart:       KindCart,
	ToolClearCart:      KindCart,
	ToolNavigate:       KindNavigation,
}

const defaultToolLimit = 10

// Toolbox executes tool calls for one cart owner.
type Toolbox struct {
	Catalog *services.CatalogService
	Carts   *services.CartService
}

func NewToolbox(catalog *services.CatalogService, carts *services.CartService) *Toolbox {
	return &Toolbox{Catalog: catalog, Carts: carts}
}

// Dispatch runs one call. Failures are reported in the result and
// never returned as errors, so the model can see and react to them.
func (tb *Toolbox) Dispatch(ctx context.Context, owner domain.CartOwner, call ToolCall) ToolResult {
	res := ToolResult{CallID: call.ID, Tool: call.Name, Kind: kinds[call.Name]}
	data, err := tb.run(ctx, owner, call)
	metrics.ToolCalls.WithLabelValues(toolLabel(call.Name), metrics.Result(err)).Inc()
	if err != nil {
		res.Error = toolError(err)
		return res
	}
	res.OK = true
	res.Data = data
	return res
}

func toolLabel(name string) string {
	if _, ok := kinds[name]; ok {
		return name
	}
	return "unknown"
}

func toolError(err error) string {
	if apperr.KindOf(err) == apperr.KindInternal {
		return "internal error"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return apperr.Validation("malformed arguments: %v", err)
		}
	}
	return validate.Struct(dst)
}

func (tb *Toolbox) run(ctx context.Context, owner domain.CartOwner, call ToolCall) (any, error) {
	switch call.Name {
	case ToolSearchProducts:
		var a searchArgs
		if err := decodeArgs(call.Args, &a); err != nil {
			return nil, err
		}
		if a.Limit == 0 {
			a.Limit = defaultToolLimit
		}
		prods, err := tb.Catalog.Search(ctx, repos.ProductFilter{Term: a.Query, Category: a.Category, Limit: a.Limit})
		if err != nil {
			return nil, err
		}
		return map[string]any{"count": len(prods), "products": prods}, nil

	case ToolShowProducts:
		var a showArgs
		if err := decodeArgs(call.Args, &a); err != nil {
			return nil, err
		}
		return tb.show(ctx, a)

	case ToolAddToCart:
		var a addArgs
		if err := decodeArgs(call.Args, &a); err != nil {
			return nil, err
		}
		cart, err := tb.Carts.Add(ctx, owner, a.ProductID, a.Quantity)
		if err == nil {
			metrics.CartMutations.WithLabelValues("add").Inc()
		}
		return cart, err

	case ToolRemoveFromCart:
		var a removeArgs
		if err := decodeArgs(call.Args, &a); err != nil {
			return nil, err
		}
		cart, err := tb.Carts.Remove(ctx, owner, a.ProductID)
		if err == nil {
			metrics.CartMutations.WithLabelValues("remove").Inc()
		}
		return cart, err

	case ToolViewCart:
		return tb.Carts.View(ctx, owner)

	case ToolClearCart:
		cart, err := tb.Carts.Clear(ctx, owner)
		if err == nil {
			metrics.CartMutations.WithLabelValues("clear").Inc()
		}
		return cart, err

	case ToolNavigate:
		var a navigateArgs
		if err := decodeArgs(call.Args, &a); err != nil {
			return nil, err
		}
		return navigation(a)
	}
	return nil, apperr.Validation("unknown tool %q", call.Name)
}

func (tb *Toolbox) show(ctx context.Context, a showArgs) (*Overlay, error) {
	var (
		prods []domain.Product
		err   error
	)
	if len(a.ProductIDs) > 0 {
		prods, err = tb.Catalog.ByIDs(ctx, a.ProductIDs)
	} else {
		if a.Query == "" && a.Category == "" {
			return nil, apperr.Validation("productIds, query or category is required")
		}
		prods, err = tb.Catalog.Search(ctx, repos.ProductFilter{Term: a.Query, Category: a.Category, Limit: defaultToolLimit})
	}
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "Produtos"
	}
	return &Overlay{Title: title, Products: prods}, nil
}

func navigation(a navigateArgs) (*Navigation, error) {
	nav := &Navigation{Page: a.Page, ProductID: a.ProductID, Category: a.Category}
	switch a.Page {
	case "home":
		nav.Path = "/"
	case "products":
		nav.Path = "/products"
		if a.Category != "" {
			nav.Path += "?category=" + url.QueryEscape(a.Category)
		}
	case "product":
		id, ok := validate.ID(a.ProductID)
		if !ok {
			return nil, apperr.Validation("productId is required for the product page")
		}
		nav.Path = "/products/" + id
	default:
		nav.Path = "/" + a.Page
	}
	return nav, nil
}

// encodeResult is the JSON handed back to the model for one call.
func encodeResult(r ToolResult) string {
	payload := map[string]any{"ok": r.OK}
	if r.Error != "" {
		payload["error"] = r.Error
	}
	if r.Data != nil {
		payload["data"] = r.Data
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
	}
	return string(b)
}
