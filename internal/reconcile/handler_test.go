package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledgerflow/internal/logging"
)

func TestHandlerListsByStatus(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutbox(NewMemoryStore(), logging.Discard())
	require.NoError(t, outbox.DeferRecord(ctx, deferredView(), errors.New("insert failed")))
	require.NoError(t, outbox.Escalate(ctx, deferredView(), "acc-a", deferredView().Amount, errors.New("credit failed")))

	app := fiber.New()
	app.Get("/reconciliation", NewHandler(outbox).List)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/reconciliation?status=escalated", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, KindCompensationFailed, entries[0].Kind)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/reconciliation", nil))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Len(t, entries, 2)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/reconciliation?status=lost", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
