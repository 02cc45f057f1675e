package web

import (
	"context"
	"errors"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"datahunter/internal/adapters/background"
	"datahunter/internal/collector/widget"
	"datahunter/internal/domain"
	"datahunter/pkg/log"
)

// settleTimeout bounds how long a waiting request follows a widget.
const settleTimeout = 30 * time.Second

// Widgets finds the live widgets.
type Widgets interface {
	Widgets() []widget.Controller
	Widget(id string) (widget.Controller, bool)
}

// Messenger posts to the background coordinator.
type Messenger interface {
	Post(m background.Message) bool
}

// Accounts reads the bound account.
type Accounts interface {
	Self(ctx context.Context) (domain.UserInfo, error)
}

// Handlers serves the control API.
type Handlers struct {
	widgets  Widgets
	messages Messenger
	accounts Accounts
}

// NewHandlers creates the handlers.
func NewHandlers(widgets Widgets, messages Messenger, accounts Accounts) *Handlers {
	return &Handlers{widgets: widgets, messages: messages, accounts: accounts}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type authBody struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// render writes a templ component as HTML.
func render(c *fiber.Ctx, component templ.Component) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return adaptor.HTTPHandler(templ.Handler(component))(c)
}

// Status renders the widget overview page.
func (h *Handlers) Status(c *fiber.Ctx) error {
	return render(c, StatusPage(h.views()))
}

// ListWidgets returns every live widget.
func (h *Handlers) ListWidgets(c *fiber.Ctx) error {
	return c.JSON(h.views())
}

func (h *Handlers) views() []widget.View {
	ws := h.widgets.Widgets()
	views := make([]widget.View, 0, len(ws))
	for _, w := range ws {
		views = append(views, w.View())
	}
	return views
}

// GetWidget returns one widget. With ?wait=true it first waits for the widget
// to settle.
func (h *Handlers) GetWidget(c *fiber.Ctx) error {
	w, ok := h.widgets.Widget(c.Params("id"))
	if !ok {
		return widgetNotFound(c)
	}
	return h.respond(c, w, fiber.StatusOK)
}

// Submit sends the held record of a widget.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	w, ok := h.widgets.Widget(c.Params("id"))
	if !ok {
		return widgetNotFound(c)
	}

	if err := w.Submit(); err != nil {
		log.GlobalInfoCtx(c.UserContext(), "submit refused", "widget", w.ID(), "error", err)
		return c.Status(submitStatus(err)).JSON(errorBody{Error: err.Error(), Kind: string(domain.Classify(err))})
	}
	return h.respond(c, w, fiber.StatusAccepted)
}

// Retry re-runs what failed last.
func (h *Handlers) Retry(c *fiber.Ctx) error {
	w, ok := h.widgets.Widget(c.Params("id"))
	if !ok {
		return widgetNotFound(c)
	}
	w.Retry()
	return h.respond(c, w, fiber.StatusAccepted)
}

// ViewRecords opens the rewards page for a submitted widget.
func (h *Handlers) ViewRecords(c *fiber.Ctx) error {
	w, ok := h.widgets.Widget(c.Params("id"))
	if !ok {
		return widgetNotFound(c)
	}
	w.ViewRecords()
	return c.JSON(w.View())
}

// Login stores the credentials posted by the account page.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var body authBody
	if err := c.BodyParser(&body); err != nil || body.Access == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "access token required", Kind: string(domain.KindBadInput)})
	}
	return h.post(c, background.Message{Kind: background.KindAuth, Access: body.Access, Refresh: body.Refresh})
}

// Logout removes the credentials.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	return h.post(c, background.Message{Kind: background.KindLogout})
}

// RefreshBlacklist asks for a fresh reply blacklist.
func (h *Handlers) RefreshBlacklist(c *fiber.Ctx) error {
	return h.post(c, background.Message{Kind: background.KindRefreshBlacklist})
}

// Self proxies the account info of the bound account.
func (h *Handlers) Self(c *fiber.Ctx) error {
	info, err := h.accounts.Self(c.UserContext())
	if err != nil {
		log.GlobalWarnCtx(c.UserContext(), "self lookup failed", "error", err)
		return c.Status(hubStatus(err)).JSON(errorBody{Error: domain.ShortenError(err), Kind: string(domain.Classify(err))})
	}
	return c.JSON(info)
}

func (h *Handlers) post(c *fiber.Ctx, m background.Message) error {
	if !h.messages.Post(m) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorBody{Error: "background queue full"})
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func widgetNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(errorBody{Error: "widget not found", Kind: string(domain.KindNotFound)})
}

// respond writes the view of w, settled first when the client asked to wait.
func (h *Handlers) respond(c *fiber.Ctx, w widget.Controller, status int) error {
	if !c.QueryBool("wait") {
		return c.Status(status).JSON(w.View())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), settleTimeout)
	defer cancel()
	v, err := w.Settle(ctx)
	if err != nil {
		return c.Status(fiber.StatusGatewayTimeout).JSON(v)
	}
	return c.Status(fiber.StatusOK).JSON(v)
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoAccount):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrNotFound):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrDisposed):
		return fiber.StatusGone
	default:
		return fiber.StatusInternalServerError
	}
}

func hubStatus(err error) int {
	switch domain.Classify(err) {
	case domain.KindAuthFailure:
		return fiber.StatusUnauthorized
	case domain.KindNetwork, domain.KindTimeout:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
