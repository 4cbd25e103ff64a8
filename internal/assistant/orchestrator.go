package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
	applog "pharmastore/internal/log"
	"pharmastore/internal/metrics"
	"pharmastore/internal/validate"
)

const (
	DefaultMaxSteps = 5
	MaxMessageLen   = 2000
)

const systemPrompt = `You are the virtual assistant of an online pharmacy.
Help customers find products, compare options and manage their cart.
Rules:
- Reply in the customer's language (usually Portuguese), briefly and politely.
- Use search_products to look things up before answering about availability or prices. Never invent products, prices or stock.
- Use show_products whenever you recommend or list products so the customer can see them.
- Use add_to_cart, remove_from_cart, view_cart and clear_cart for cart requests, using product ids returned by the tools.
- Use navigate when the customer asks to go to a page (cart, checkout, login...).
- Do not diagnose conditions or prescribe treatment; suggest seeing a doctor or pharmacist when symptoms are serious.
- Products marked prescription=true require a medical prescription; say so when they come up.`

type Request struct {
	Message   string           `json:"message" validate:"required,max=2000"`
	SessionID string           `json:"sessionId" validate:"max=64"`
	Owner     domain.CartOwner `json:"-"`
}

type Response struct {
	Response    string       `json:"response"`
	ToolResults []ToolResult `json:"toolResults"`
	Overlay     *Overlay     `json:"overlay,omitempty"`
	Cart        *domain.Cart `json:"cart,omitempty"`
	Navigation  *Navigation  `json:"navigation,omitempty"`
}

// apply routes a tagged result to the response field its kind owns.
// Later results of the same kind win.
func (r *Response) apply(res ToolResult) {
	r.ToolResults = append(r.ToolResults, res)
	if !res.OK {
		return
	}
	switch res.Kind {
	case KindDisplay:
		if o, ok := res.Data.(*Overlay); ok {
			r.Overlay = o
		}
	case KindCart:
		if c, ok := res.Data.(domain.Cart); ok {
			r.Cart = &c
		}
	case KindNavigation:
		if n, ok := res.Data.(*Navigation); ok {
			r.Navigation = n
		}
	}
}

type Orchestrator struct {
	Model    Model
	Tools    *Toolbox
	History  HistoryStore
	MaxSteps int
}

func NewOrchestrator(model Model, tools *Toolbox, history HistoryStore) *Orchestrator {
	if history == nil {
		history = NewMemoryHistory(DefaultHistoryTurns)
	}
	return &Orchestrator{Model: model, Tools: tools, History: history, MaxSteps: DefaultMaxSteps}
}

func (o *Orchestrator) Available() bool { return o != nil && o.Model != nil }

func (o *Orchestrator) Chat(ctx context.Context, req Request) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		metrics.ChatRequests.WithLabelValues(outcome(err)).Inc()
		metrics.ChatDuration.Observe(time.Since(start).Seconds())
	}()

	req.Message = strings.TrimSpace(req.Message)
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	switch {
	case req.SessionID != "":
		if _, ok := validate.ID(req.SessionID); !ok {
			return nil, apperr.Validation("invalid sessionId")
		}
	case req.Owner.UserID == "":
		return nil, apperr.Validation("missing sessionId")
	}
	if !o.Available() {
		return nil, apperr.Unavailable("assistant unavailable")
	}
	if req.Owner.Key() == "" {
		req.Owner.SessionID = req.SessionID
	}
	key := historyKey(req)

	history, err := o.History.Load(ctx, key)
	if err != nil {
		applog.L().Warn("chat.history_load_failed", zap.String("session", key), zap.Error(err))
		history = nil
	}
	transcript := append(history, Message{Role: RoleUser, Content: req.Message})

	steps := o.MaxSteps
	if steps <= 0 {
		steps = DefaultMaxSteps
	}
	resp = &Response{ToolResults: []ToolResult{}}
	for step := 0; step < steps; step++ {
		reply, err := o.Model.Complete(ctx, systemPrompt, transcript, Specs)
		if err != nil {
			return nil, apperr.Upstream("assistant request failed", fmt.Errorf("%s: %w", o.Model.Name(), err))
		}
		resp.Response = strings.TrimSpace(reply.Content)
		if len(reply.ToolCalls) == 0 {
			break
		}
		calls := append([]ToolCall(nil), reply.ToolCalls...)
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = fmt.Sprintf("call_%d_%d", step, i)
			}
		}
		transcript = append(transcript, Message{Role: RoleAssistant, Content: reply.Content, ToolCalls: calls})
		for _, call := range calls {
			res := o.Tools.Dispatch(ctx, req.Owner, call)
			resp.apply(res)
			transcript = append(transcript, Message{Role: RoleTool, ToolCallID: call.ID, Name: call.Name, Content: encodeResult(res)})
		}
	}
	if resp.Response == "" {
		resp.Response = fallbackText(resp)
	}

	turns := []Message{
		{Role: RoleUser, Content: req.Message},
		{Role: RoleAssistant, Content: resp.Response},
	}
	if err := o.History.Append(ctx, key, turns...); err != nil {
		applog.L().Warn("chat.history_save_failed", zap.String("session", key), zap.Error(err))
	}
	return resp, nil
}

// historyKey is the sessionId when given, else the user's owner key.
func historyKey(req Request) string {
	if req.SessionID != "" {
		return req.SessionID
	}
	return req.Owner.Key()
}

// fallbackText covers a model that only called tools, or ran out of steps.
func fallbackText(r *Response) string {
	switch {
	case r.Cart != nil:
		return "Pronto, atualizei o seu carrinho."
	case r.Overlay != nil:
		return "Aqui estão os produtos que encontrei."
	case r.Navigation != nil:
		return "Levando você até a página solicitada."
	default:
		return "Desculpe, não consegui concluir o pedido. Pode reformular?"
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "invalid"
	case apperr.KindUnavailable:
		return "unavailable"
	case apperr.KindUpstream:
		return "upstream"
	default:
		return "error"
	}
}
