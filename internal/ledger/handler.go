package ledger

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// Handler exposes the engine over HTTP.
type Handler struct {
	engine *Engine
}

// NewHandler builds a transaction HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type submitBody struct {
	Sender          string          `json:"sender"`
	Receiver        string          `json:"receiver"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transactionType"`
}

type statusBody struct {
	Status string `json:"status"`
}

// Submit applies a deposit, withdrawal or transfer.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var body submitBody
	if err := c.BodyParser(&body); err != nil {
		return ValidationError("invalid request body")
	}
	view, err := h.engine.Submit(c.UserContext(), SubmitRequest{
		SenderID:   body.Sender,
		ReceiverID: body.Receiver,
		Amount:     body.Amount,
		Type:       transaction.Type(body.TransactionType),
	})
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if view.Status == transaction.StatusPending {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(view)
}

// ListAll returns every transaction.
func (h *Handler) ListAll(c *fiber.Ctx) error {
	views, err := h.engine.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(views)
}

// ListForAccount returns the transactions an account took part in.
func (h *Handler) ListForAccount(c *fiber.Ctx) error {
	views, err := h.engine.ListForAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(views)
}

// UpdateStatus relabels a transaction.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var body statusBody
	if err := c.BodyParser(&body); err != nil {
		return ValidationError("invalid request body")
	}
	view, err := h.engine.UpdateStatus(c.UserContext(), c.Params("id"), transaction.Status(body.Status))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(view)
}
