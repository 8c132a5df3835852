package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	eventmodel "ticketing-backend/internal/domains/event/model"
	ordermodel "ticketing-backend/internal/domains/order/model"
	orderrepo "ticketing-backend/internal/domains/order/repository"
	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/model"
	"ticketing-backend/internal/domains/payment/repository"
	ticketmodel "ticketing-backend/internal/domains/ticket/model"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/clock"
	"ticketing-backend/pkg/qrtoken"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type engineFixture struct {
	txns     *mockTransactionRepo
	refunds  *mockRefundRepo
	outbox   *mockOutboxRepo
	orders   *mockOrderRepo
	events   *mockEventRepo
	tickets  *mockTicketRepo
	eventSvc *mockEventService
	gw       *mockGateway
	tasks    *recordingTaskClient
	clk      *clock.Fixed

	engine *transactionEngine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		txns:     &mockTransactionRepo{},
		refunds:  &mockRefundRepo{},
		outbox:   &mockOutboxRepo{},
		orders:   &mockOrderRepo{},
		events:   &mockEventRepo{},
		tickets:  &mockTicketRepo{},
		eventSvc: &mockEventService{},
		gw:       &mockGateway{},
		tasks:    &recordingTaskClient{},
		clk:      clock.NewFixed(testNow),
	}

	engine := NewTransactionEngine(
		fakeTxRunner{},
		f.txns, f.refunds, f.outbox,
		f.orders, f.events, f.tickets, f.eventSvc,
		f.gw,
		qrtoken.NewCodec("test-secret"),
		f.clk,
		fixedBackoff{delay: time.Second},
		f.tasks,
		audit.NopEmitter{},
		EngineConfig{
			Currency:         "NGN",
			OrganizerPercent: 90,
			MaxRetries:       3,
			ProcessingExpiry: 15 * time.Minute,
		},
	)
	f.engine = engine.(*transactionEngine)
	return f
}

// stubIDs makes newID hand out a fixed sequence.
func (f *engineFixture) stubIDs(ids ...uuid.UUID) {
	i := 0
	f.engine.newID = func() uuid.UUID {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func purchasableEvent(organizerID, tierID uuid.UUID, price int64, quantity, sold, maxPerUser, version int) *eventmodel.Event {
	eventID := uuid.New()
	return &eventmodel.Event{
		ID:          eventID,
		OrganizerID: organizerID,
		Status:      eventmodel.EventStatusPublished,
		Title:       "Lagos Live",
		Tiers: []eventmodel.TicketTier{{
			ID:         tierID,
			EventID:    eventID,
			Name:       "VIP",
			Price:      price,
			Quantity:   quantity,
			SoldCount:  sold,
			MaxPerUser: maxPerUser,
			Version:    version,
		}},
	}
}

// =====================================================
// INITIATE
// =====================================================

func TestInitiateRejectsInvalidQuantity(t *testing.T) {
	f := newEngineFixture(t)

	for _, q := range []int{0, -1, 11} {
		_, err := f.engine.Initiate(context.Background(), InitiateInput{Quantity: q})
		assert.ErrorIs(t, err, model.ErrInvalidQuantity, "quantity %d", q)
	}
	f.gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
}

func TestInitiateReplaysClientKey(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	existing := &model.Transaction{
		ID:      uuid.New(),
		OrderID: uuid.New(),
		Status:  model.StatusProcessing,
	}
	order := &ordermodel.Order{ID: existing.OrderID}

	f.txns.On("GetByIdempotencyKey", ctx, "client-key-1").Return(existing, nil)
	f.orders.On("GetByID", ctx, existing.OrderID).Return(order, nil)

	result, err := f.engine.Initiate(ctx, InitiateInput{
		UserID:         uuid.New(),
		EventID:        uuid.New(),
		TierID:         uuid.New(),
		Quantity:       2,
		IdempotencyKey: "client-key-1",
	})
	require.NoError(t, err)

	assert.True(t, result.IsIdempotent)
	assert.Equal(t, existing, result.Transaction)
	assert.Equal(t, order, result.Order)
	// No new rows, no second checkout session.
	f.txns.AssertNotCalled(t, "CreateWithTx", mock.Anything, mock.Anything, mock.Anything)
	f.gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
}

func TestInitiateHappyPath(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	organizerID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(organizerID, tierID, 5000, 100, 10, 4, 1)
	orderID := uuid.New()
	txnID := uuid.New()
	f.stubIDs(orderID, txnID)

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)
	f.tickets.On("CountActiveForUserTier", ctx, userID, event.ID, tierID).Return(0, nil)
	f.orders.On("CreateWithTx", ctx, mock.Anything, mock.MatchedBy(func(o *ordermodel.Order) bool {
		return o.ID == orderID && o.Quantity == 2 && o.TotalAmount == 10000 &&
			o.PaymentStatus == ordermodel.PaymentStatusPending
	})).Return(nil)
	f.txns.On("CreateWithTx", ctx, mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.ID == txnID && txn.OrderID == orderID &&
			txn.Status == model.StatusInitiated &&
			txn.Amount == 10000 && txn.Currency == "NGN" &&
			strings.HasPrefix(txn.GatewayReference, "order_")
	})).Return(nil)

	sub := "ACCT_org"
	f.events.On("GetOrganizer", ctx, organizerID).Return(&eventmodel.Organizer{
		ID: organizerID, SubaccountCode: &sub, PlatformFeePercent: 10,
	}, nil)
	f.gw.On("Initialize", mock.Anything, mock.MatchedBy(func(req gateway.InitializeRequest) bool {
		return req.AmountMinor == 10000 && req.SubaccountCode == sub
	})).Return(&gateway.InitializeResponse{AuthorizationURL: "https://checkout.test/x"}, nil)

	result, err := f.engine.Initiate(ctx, InitiateInput{
		UserID:   userID,
		EventID:  event.ID,
		TierID:   tierID,
		Quantity: 2,
		Meta:     model.ClientMeta{Email: "buyer@example.com"},
	})
	require.NoError(t, err)

	assert.False(t, result.IsIdempotent)
	assert.Equal(t, "https://checkout.test/x", result.PaymentURL)
	assert.NotEmpty(t, result.IdempotencyKey)
	assert.Equal(t, int64(10000), result.Transaction.Amount)
}

func TestInitiateRejectsTierLimit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(uuid.New(), tierID, 5000, 100, 10, 4, 1)

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)
	// Already holds 3 of max 4; buying 2 more breaches the cap.
	f.tickets.On("CountActiveForUserTier", ctx, userID, event.ID, tierID).Return(3, nil)

	_, err := f.engine.Initiate(ctx, InitiateInput{
		UserID: userID, EventID: event.ID, TierID: tierID, Quantity: 2,
	})
	assert.ErrorIs(t, err, model.ErrTierLimit)
	f.orders.AssertNotCalled(t, "CreateWithTx", mock.Anything, mock.Anything, mock.Anything)
}

// Tiers stored without an explicit cap fall back to the default of 4.
func TestInitiateDefaultsPerUserLimit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(uuid.New(), tierID, 5000, 100, 10, 0, 1)

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)
	f.tickets.On("CountActiveForUserTier", ctx, userID, event.ID, tierID).Return(4, nil)

	_, err := f.engine.Initiate(ctx, InitiateInput{
		UserID: userID, EventID: event.ID, TierID: tierID, Quantity: 1,
	})
	assert.ErrorIs(t, err, model.ErrTierLimit)
	assert.Contains(t, err.Error(), "limit is 4")
}

func TestInitiateAllowsPurchaseUnderDefaultLimit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(uuid.New(), tierID, 5000, 100, 10, 0, 1)
	f.stubIDs(uuid.New(), uuid.New())

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)
	f.tickets.On("CountActiveForUserTier", ctx, userID, event.ID, tierID).Return(1, nil)
	f.orders.On("CreateWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	f.txns.On("CreateWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	f.events.On("GetOrganizer", ctx, event.OrganizerID).Return(nil, eventmodel.ErrOrganizerNotFound)
	f.gw.On("Initialize", mock.Anything, mock.Anything).
		Return(&gateway.InitializeResponse{AuthorizationURL: "https://checkout.test/x"}, nil)

	result, err := f.engine.Initiate(ctx, InitiateInput{
		UserID: userID, EventID: event.ID, TierID: tierID, Quantity: 3,
	})
	require.NoError(t, err)
	assert.False(t, result.IsIdempotent)
}

func TestInitiateRejectsInsufficientAvailability(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	tierID := uuid.New()
	event := purchasableEvent(uuid.New(), tierID, 5000, 100, 99, 4, 1)

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)

	_, err := f.engine.Initiate(ctx, InitiateInput{
		UserID: uuid.New(), EventID: event.ID, TierID: tierID, Quantity: 2,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientAvailability)
}

func TestInitiateCollapsesConcurrentDuplicates(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(uuid.New(), tierID, 5000, 100, 0, 4, 1)
	winner := &model.Transaction{ID: uuid.New(), OrderID: uuid.New(), Status: model.StatusInitiated}

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)
	f.tickets.On("CountActiveForUserTier", ctx, userID, event.ID, tierID).Return(0, nil)
	f.orders.On("CreateWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	// First lookup misses, the insert collides, the winner is reloaded.
	f.txns.On("GetByIdempotencyKey", ctx, "race-key").Return(nil, model.ErrTransactionNotFound).Once()
	f.txns.On("CreateWithTx", ctx, mock.Anything, mock.Anything).Return(model.ErrDuplicateIdempotencyKey)
	f.txns.On("GetByIdempotencyKey", ctx, "race-key").Return(winner, nil).Once()
	f.orders.On("GetByID", ctx, winner.OrderID).Return(&ordermodel.Order{ID: winner.OrderID}, nil)

	result, err := f.engine.Initiate(ctx, InitiateInput{
		UserID: userID, EventID: event.ID, TierID: tierID, Quantity: 1,
		IdempotencyKey: "race-key",
	})
	require.NoError(t, err)

	assert.True(t, result.IsIdempotent)
	assert.Equal(t, winner, result.Transaction)
	f.gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
}

func TestInitiateFailsTransactionWhenGatewayInitFails(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	organizerID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(organizerID, tierID, 5000, 100, 0, 4, 1)
	orderID := uuid.New()
	txnID := uuid.New()
	f.stubIDs(orderID, txnID)

	f.eventSvc.On("GetPurchasableEvent", ctx, event.ID).Return(event, nil)
	f.tickets.On("CountActiveForUserTier", ctx, userID, event.ID, tierID).Return(0, nil)
	f.orders.On("CreateWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	f.txns.On("CreateWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	f.events.On("GetOrganizer", ctx, organizerID).Return(nil, eventmodel.ErrOrganizerNotFound)
	f.gw.On("Initialize", mock.Anything, mock.Anything).Return(nil, errors.New("paystack down"))

	// The Fail path runs against the freshly created row.
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txnID).Return(&model.Transaction{
		ID: txnID, OrderID: orderID, Status: model.StatusInitiated, MaxRetries: 3,
	}, nil)
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txnID, mock.MatchedBy(func(d repository.FailureData) bool {
		// init_failed is retryable: a next attempt is scheduled.
		return d.Code == model.FailureInitFailed && d.NextRetryAt != nil &&
			d.NextRetryAt.Equal(testNow.Add(time.Second))
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, orderID, ordermodel.PaymentStatusFailed).Return(nil)

	_, err := f.engine.Initiate(ctx, InitiateInput{
		UserID: userID, EventID: event.ID, TierID: tierID, Quantity: 1,
	})
	assert.ErrorIs(t, err, model.ErrGatewayInit)
	f.txns.AssertExpectations(t)
}

// =====================================================
// COMPLETE
// =====================================================

func TestCompleteIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), OrderID: uuid.New(), Status: model.StatusCompleted}
	order := &ordermodel.Order{ID: txn.OrderID, TicketIDs: []string{"t1", "t2"}}

	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.orders.On("GetByID", ctx, txn.OrderID).Return(order, nil)

	result, err := f.engine.Complete(ctx, txn.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.AlreadyCompleted)
	assert.Equal(t, []string{"t1", "t2"}, result.TicketIDs)
	assert.Empty(t, f.tasks.tasks, "replay must not re-send the confirmation")
	f.events.AssertNotCalled(t, "IncrementTierSoldWithTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func completionFixture(f *engineFixture, status string, quantity, sold int) (*model.Transaction, *ordermodel.Order, *eventmodel.Event) {
	organizerID := uuid.New()
	tierID := uuid.New()
	event := purchasableEvent(organizerID, tierID, 5000, 100, sold, 10, 7)
	order := &ordermodel.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		EventID:     event.ID,
		TierID:      tierID,
		TierName:    "VIP",
		Quantity:    quantity,
		UnitPrice:   5000,
		TotalAmount: 5000 * int64(quantity),
	}
	txn := &model.Transaction{
		ID:               uuid.New(),
		OrderID:          order.ID,
		EventID:          event.ID,
		UserID:           order.UserID,
		Status:           status,
		Amount:           order.TotalAmount,
		GatewayReference: "order_ref_1",
		MetaEmail:        "buyer@example.com",
	}

	ctx := context.Background()
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.orders.On("GetForUpdateWithTx", ctx, mock.Anything, order.ID).Return(order, nil)
	f.events.On("GetForUpdateWithTx", ctx, mock.Anything, event.ID).Return(event, nil)
	return txn, order, event
}

func TestCompleteSettlesPaymentAndMintsTickets(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn, order, event := completionFixture(f, model.StatusProcessing, 2, 10)
	sub := "ACCT_org"
	f.events.On("GetOrganizer", ctx, event.OrganizerID).Return(&eventmodel.Organizer{
		ID: event.OrganizerID, SubaccountCode: &sub, PlatformFeePercent: 15,
	}, nil)
	f.events.On("IncrementTierSoldWithTx", ctx, mock.Anything, event.ID, order.TierID, 2, 7).Return(nil)
	f.events.On("AddEventTotalsWithTx", ctx, mock.Anything, event.ID, 2, int64(10000)).Return(nil)
	f.tickets.On("InsertWithTx", ctx, mock.Anything, mock.MatchedBy(func(tk *ticketmodel.Ticket) bool {
		return tk.OrderID == order.ID && tk.Status == ticketmodel.StatusValid && tk.QRCode != ""
	})).Return(nil).Twice()

	// The gateway settled 1000 to the platform; that is the split.
	data := &gateway.VerifyData{
		Status:               model.VerifyStatusSuccess,
		AmountMinor:          10000,
		Fees:                 150,
		Channel:              "card",
		GatewayTransactionID: "99887",
		Authorization:        gateway.AuthorizationMeta{CardType: "visa", Last4: "4081"},
		Subaccount:           &gateway.SubaccountShare{Code: sub, SharedAmount: 1000},
	}
	f.txns.On("MarkCompletedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(c repository.CompletionData) bool {
		return c.Splits.OrganizerAmount == 9000 && c.Splits.PlatformAmount == 1000 &&
			c.Splits.Fees == 150 && c.GatewayTransactionID == "99887" && c.GatewayChannel == "card"
	})).Return(nil)
	f.orders.On("MarkCompletedWithTx", ctx, mock.Anything, order.ID, mock.MatchedBy(func(u orderrepo.CompletionUpdate) bool {
		return len(u.TicketIDs) == 2 && u.SplitOrganizerAmount == 9000 &&
			u.SplitPlatformAmount == 1000 && u.GatewayReference == "order_ref_1"
	})).Return(nil)
	f.eventSvc.On("InvalidateSnapshot", ctx, event.ID).Return()

	result, err := f.engine.Complete(ctx, txn.ID, data)
	require.NoError(t, err)

	assert.False(t, result.AlreadyCompleted)
	assert.Len(t, result.TicketIDs, 2)
	require.Len(t, f.tasks.tasks, 1)
	assert.Contains(t, string(f.tasks.tasks[0].Payload()), "buyer@example.com")
	f.txns.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestCompletePromotesInitiatedThroughProcessing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn, order, event := completionFixture(f, model.StatusInitiated, 1, 0)
	f.txns.On("UpdateStatusWithTx", ctx, mock.Anything, txn.ID, model.StatusProcessing).Return(nil)
	f.events.On("GetOrganizer", ctx, event.OrganizerID).Return(nil, eventmodel.ErrOrganizerNotFound)
	f.events.On("IncrementTierSoldWithTx", ctx, mock.Anything, event.ID, order.TierID, 1, 7).Return(nil)
	f.events.On("AddEventTotalsWithTx", ctx, mock.Anything, event.ID, 1, int64(5000)).Return(nil)
	f.tickets.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(nil).Once()
	f.txns.On("MarkCompletedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(c repository.CompletionData) bool {
		// Organizer lookup failed: the configured 90% split applies.
		return c.Splits.OrganizerAmount == 4500 && c.Splits.PlatformAmount == 500
	})).Return(nil)
	f.orders.On("MarkCompletedWithTx", ctx, mock.Anything, order.ID, mock.Anything).Return(nil)
	f.eventSvc.On("InvalidateSnapshot", ctx, event.ID).Return()

	_, err := f.engine.Complete(ctx, txn.ID, nil)
	require.NoError(t, err)
	f.txns.AssertExpectations(t)
}

// The first caller's 200 body must already carry the settled state,
// not the rows as they were loaded at the start of the transaction.
func TestCompleteFirstCallReportsSettledState(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn, order, event := completionFixture(f, model.StatusProcessing, 2, 10)
	f.events.On("GetOrganizer", ctx, event.OrganizerID).Return(nil, eventmodel.ErrOrganizerNotFound)
	f.events.On("IncrementTierSoldWithTx", ctx, mock.Anything, event.ID, order.TierID, 2, 7).Return(nil)
	f.events.On("AddEventTotalsWithTx", ctx, mock.Anything, event.ID, 2, int64(10000)).Return(nil)
	f.tickets.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(nil).Twice()
	f.txns.On("MarkCompletedWithTx", ctx, mock.Anything, txn.ID, mock.Anything).Return(nil)
	f.orders.On("MarkCompletedWithTx", ctx, mock.Anything, order.ID, mock.Anything).Return(nil)
	f.eventSvc.On("InvalidateSnapshot", ctx, event.ID).Return()

	paidAt := testNow.Add(-time.Minute)
	result, err := f.engine.Complete(ctx, txn.ID, &gateway.VerifyData{
		Status:               model.VerifyStatusSuccess,
		AmountMinor:          10000,
		Channel:              "card",
		GatewayTransactionID: "55001",
		PaidAt:               &paidAt,
	})
	require.NoError(t, err)
	require.False(t, result.AlreadyCompleted)

	assert.Equal(t, model.StatusCompleted, result.Transaction.Status)
	require.NotNil(t, result.Transaction.CompletedAt)
	assert.Equal(t, paidAt, *result.Transaction.CompletedAt)
	assert.Equal(t, int64(9000), result.Transaction.SplitOrganizerAmount)
	assert.Equal(t, int64(1000), result.Transaction.SplitPlatformAmount)
	require.NotNil(t, result.Transaction.GatewayTransactionID)
	assert.Equal(t, "55001", *result.Transaction.GatewayTransactionID)

	assert.Equal(t, ordermodel.PaymentStatusCompleted, result.Order.PaymentStatus)
	assert.Equal(t, result.TicketIDs, result.Order.TicketIDs)
	require.NotNil(t, result.Order.PaidAt)
	assert.Equal(t, paidAt, *result.Order.PaidAt)
}

func TestCompleteOversellCommitsFailureAndRefundIntent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// 99 sold of 100, buyer paid for 2.
	txn, order, _ := completionFixture(f, model.StatusProcessing, 2, 99)
	outboxID := uuid.New()
	f.stubIDs(outboxID)

	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		// Oversold is business-terminal: never rescheduled.
		return d.Code == model.FailureOversold && d.NextRetryAt == nil
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, order.ID, ordermodel.PaymentStatusFailed).Return(nil)
	f.outbox.On("InsertWithTx", ctx, mock.Anything, mock.MatchedBy(func(e *model.RefundOutboxEntry) bool {
		return e.TransactionID == txn.ID && e.Amount == txn.Amount
	})).Return(nil)

	_, err := f.engine.Complete(ctx, txn.ID, nil)
	assert.ErrorIs(t, err, model.ErrOversold)

	var pe *model.PaymentError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.ErrCodeOversold, pe.Code)

	f.events.AssertNotCalled(t, "IncrementTierSoldWithTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tickets.AssertNotCalled(t, "InsertWithTx", mock.Anything, mock.Anything, mock.Anything)
	f.outbox.AssertExpectations(t)
}

func TestCompleteRejectsFailedTransaction(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), OrderID: uuid.New(), Status: model.StatusFailed}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	_, err := f.engine.Complete(ctx, txn.ID, nil)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestCompleteRetriesQRCodeCollision(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn, order, event := completionFixture(f, model.StatusProcessing, 1, 0)
	f.events.On("GetOrganizer", ctx, event.OrganizerID).Return(nil, eventmodel.ErrOrganizerNotFound)
	f.events.On("IncrementTierSoldWithTx", ctx, mock.Anything, event.ID, order.TierID, 1, 7).Return(nil)
	f.events.On("AddEventTotalsWithTx", ctx, mock.Anything, event.ID, 1, int64(5000)).Return(nil)

	// First insert collides, the re-signed token lands.
	f.tickets.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(ticketmodel.ErrDuplicateQRCode).Once()
	f.tickets.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	f.txns.On("MarkCompletedWithTx", ctx, mock.Anything, txn.ID, mock.Anything).Return(nil)
	f.orders.On("MarkCompletedWithTx", ctx, mock.Anything, order.ID, mock.Anything).Return(nil)
	f.eventSvc.On("InvalidateSnapshot", ctx, event.ID).Return()

	result, err := f.engine.Complete(ctx, txn.ID, nil)
	require.NoError(t, err)
	assert.Len(t, result.TicketIDs, 1)
}

func TestCompleteAbortsAfterRepeatedCollisions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn, order, event := completionFixture(f, model.StatusProcessing, 1, 0)
	f.events.On("GetOrganizer", ctx, event.OrganizerID).Return(nil, eventmodel.ErrOrganizerNotFound)
	f.events.On("IncrementTierSoldWithTx", ctx, mock.Anything, event.ID, order.TierID, 1, 7).Return(nil)
	f.events.On("AddEventTotalsWithTx", ctx, mock.Anything, event.ID, 1, int64(5000)).Return(nil)
	f.tickets.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(ticketmodel.ErrDuplicateQRCode)

	_, err := f.engine.Complete(ctx, txn.ID, nil)
	assert.ErrorIs(t, err, ticketmodel.ErrTokenCollision)
	f.txns.AssertNotCalled(t, "MarkCompletedWithTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================================================
// FAIL
// =====================================================

func TestFailIsNoOpWhenAlreadyFailed(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusFailed}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	got, err := f.engine.Fail(ctx, txn.ID, "again", model.FailureGateway, nil)
	require.NoError(t, err)

	assert.Equal(t, txn, got)
	f.txns.AssertNotCalled(t, "MarkFailedWithTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFailSchedulesRetryForRetryableCode(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusProcessing, RetryCount: 1, MaxRetries: 3,
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		// Backoff keyed to the current retry count (attempt 1 -> 2s).
		return d.Code == model.FailureGateway && d.NextRetryAt != nil &&
			d.NextRetryAt.Equal(testNow.Add(2*time.Second))
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusFailed).Return(nil)

	got, err := f.engine.Fail(ctx, txn.ID, "gateway 500", model.FailureGateway, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, got.Status)
	assert.NotNil(t, got.NextRetryAt)
	f.txns.AssertExpectations(t)
}

func TestFailTerminalCodeIsNeverRescheduled(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusProcessing, RetryCount: 0, MaxRetries: 3,
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		return d.Code == model.FailureDeclined && d.NextRetryAt == nil
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusFailed).Return(nil)

	got, err := f.engine.Fail(ctx, txn.ID, "card declined", model.FailureDeclined, nil)
	require.NoError(t, err)
	assert.Nil(t, got.NextRetryAt)
}

func TestFailExhaustedRetriesNotRescheduled(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusProcessing, RetryCount: 3, MaxRetries: 3,
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		return d.NextRetryAt == nil
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusFailed).Return(nil)

	_, err := f.engine.Fail(ctx, txn.ID, "gateway 500", model.FailureGateway, nil)
	require.NoError(t, err)
}

func TestFailRejectsRefundedTransaction(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusRefunded}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	_, err := f.engine.Fail(ctx, txn.ID, "x", model.FailureGateway, nil)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

// =====================================================
// REFUND
// =====================================================

func TestRefundPartialKeepsTickets(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusCompleted, Amount: 10000,
		GatewayReference: "order_ref_1",
	}
	admin := uuid.New()

	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.gw.On("Refund", mock.Anything, gateway.RefundRequest{
		TransactionReference: "order_ref_1", AmountMinor: 4000,
	}).Return(&gateway.RefundResponse{GatewayRefundID: "RF_1"}, nil)
	f.refunds.On("InsertWithTx", ctx, mock.Anything, mock.MatchedBy(func(r *model.Refund) bool {
		return r.Amount == 4000 && r.ProcessedBy == admin && *r.GatewayRefundID == "RF_1"
	})).Return(nil)
	f.txns.On("ApplyRefundWithTx", ctx, mock.Anything, txn.ID, int64(4000), model.StatusPartiallyRefunded).Return(nil)

	amount := int64(4000)
	got, err := f.engine.Refund(ctx, txn.ID, &amount, "customer request", admin)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPartiallyRefunded, got.Status)
	assert.Equal(t, int64(4000), got.TotalRefunded)
	f.tickets.AssertNotCalled(t, "CancelByOrderWithTx", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "UpdatePaymentStatusWithTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Repeated partials are allowed as long as each stays within the net;
// the status simply stays partially_refunded.
func TestRefundSecondPartialKeepsStatus(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusPartiallyRefunded, Amount: 10000, TotalRefunded: 3000,
		GatewayReference: "order_ref_1",
	}
	admin := uuid.New()

	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.gw.On("Refund", mock.Anything, gateway.RefundRequest{
		TransactionReference: "order_ref_1", AmountMinor: 2000,
	}).Return(&gateway.RefundResponse{GatewayRefundID: "RF_2"}, nil)
	f.refunds.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	f.txns.On("ApplyRefundWithTx", ctx, mock.Anything, txn.ID, int64(2000), model.StatusPartiallyRefunded).Return(nil)

	amount := int64(2000)
	got, err := f.engine.Refund(ctx, txn.ID, &amount, "second adjustment", admin)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPartiallyRefunded, got.Status)
	assert.Equal(t, int64(5000), got.TotalRefunded)
	f.tickets.AssertNotCalled(t, "CancelByOrderWithTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundFullCancelsTickets(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusPartiallyRefunded, Amount: 10000, TotalRefunded: 4000,
		GatewayReference: "order_ref_1",
	}
	admin := uuid.New()

	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	// nil amount refunds the remaining net.
	f.gw.On("Refund", mock.Anything, gateway.RefundRequest{
		TransactionReference: "order_ref_1", AmountMinor: 6000,
	}).Return(&gateway.RefundResponse{GatewayRefundID: "RF_2"}, nil)
	f.refunds.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(nil)
	f.txns.On("ApplyRefundWithTx", ctx, mock.Anything, txn.ID, int64(6000), model.StatusRefunded).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusRefunded).Return(nil)
	f.tickets.On("CancelByOrderWithTx", ctx, mock.Anything, txn.OrderID).Return(2, nil)

	got, err := f.engine.Refund(ctx, txn.ID, nil, "event cancelled", admin)
	require.NoError(t, err)

	assert.Equal(t, model.StatusRefunded, got.Status)
	assert.Equal(t, int64(10000), got.TotalRefunded)
	f.tickets.AssertExpectations(t)
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), Status: model.StatusCompleted, Amount: 10000, TotalRefunded: 9000,
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	amount := int64(2000)
	_, err := f.engine.Refund(ctx, txn.ID, &amount, "too much", uuid.New())
	assert.ErrorIs(t, err, model.ErrRefundExceedsNet)
	f.gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestRefundRejectsNonRefundableStatus(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusProcessing, Amount: 10000}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	_, err := f.engine.Refund(ctx, txn.ID, nil, "not settled", uuid.New())
	assert.ErrorIs(t, err, model.ErrNotRefundable)
}

func TestRefundRollsBackOnGatewayError(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), Status: model.StatusCompleted, Amount: 10000,
		GatewayReference: "order_ref_1",
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.gw.On("Refund", mock.Anything, mock.Anything).Return(nil, errors.New("paystack 502"))

	_, err := f.engine.Refund(ctx, txn.ID, nil, "x", uuid.New())
	assert.ErrorIs(t, err, model.ErrGatewayRefund)
	f.refunds.AssertNotCalled(t, "InsertWithTx", mock.Anything, mock.Anything, mock.Anything)
	f.txns.AssertNotCalled(t, "ApplyRefundWithTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================================================
// RETRY
// =====================================================

func TestRetryReinitializesPayment(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(), UserID: userID,
		Status: model.StatusFailed, RetryCount: 1, MaxRetries: 3,
		Amount: 10000, MetaEmail: "buyer@example.com",
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("MarkRetryingWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(ref string) bool {
		return strings.HasPrefix(ref, "retry_2_") && strings.HasSuffix(ref, userID.String())
	}), testNow).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusPending).Return(nil)
	f.gw.On("Initialize", mock.Anything, mock.MatchedBy(func(req gateway.InitializeRequest) bool {
		return req.AmountMinor == 10000 && req.Email == "buyer@example.com"
	})).Return(&gateway.InitializeResponse{AuthorizationURL: "https://checkout.test/retry"}, nil)

	result, err := f.engine.Retry(ctx, txn.ID)
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.test/retry", result.PaymentURL)
	assert.Equal(t, model.StatusProcessing, result.Transaction.Status)
	assert.Equal(t, 2, result.Transaction.RetryCount)
	assert.Nil(t, result.Transaction.NextRetryAt)
}

func TestRetryRejectsExhaustedTransaction(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusFailed, RetryCount: 3, MaxRetries: 3}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	_, err := f.engine.Retry(ctx, txn.ID)
	assert.ErrorIs(t, err, model.ErrRetryExhausted)
	f.gw.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
}

func TestRetryRejectsNonFailedTransaction(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusCompleted}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)

	_, err := f.engine.Retry(ctx, txn.ID)
	assert.ErrorIs(t, err, model.ErrNotRetryable)
}

func TestRetryFailsBackWhenGatewayInitFails(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(), UserID: uuid.New(),
		Status: model.StatusFailed, RetryCount: 0, MaxRetries: 3, Amount: 5000,
	}
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil).Once()
	f.txns.On("MarkRetryingWithTx", ctx, mock.Anything, txn.ID, mock.Anything, testNow).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusPending).Return(nil)
	f.gw.On("Initialize", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	// Fail re-reads the row, now processing after the retry bump.
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(&model.Transaction{
		ID: txn.ID, OrderID: txn.OrderID,
		Status: model.StatusProcessing, RetryCount: 1, MaxRetries: 3,
	}, nil).Once()
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		return d.Code == model.FailureGateway && d.NextRetryAt != nil
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusFailed).Return(nil)

	_, err := f.engine.Retry(ctx, txn.ID)
	assert.ErrorIs(t, err, model.ErrGatewayInit)
	f.txns.AssertExpectations(t)
}

// =====================================================
// VERIFY
// =====================================================

func TestVerifyAndCompleteSettlesSuccessfulCharge(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusCompleted, GatewayReference: "order_ref_1",
	}
	order := &ordermodel.Order{ID: txn.OrderID, TicketIDs: []string{"t1"}}

	f.txns.On("GetByReference", ctx, "order_ref_1").Return(txn, nil)
	f.gw.On("Verify", mock.Anything, "order_ref_1").Return(&gateway.VerifyData{
		Status: model.VerifyStatusSuccess, AmountMinor: 5000,
	}, nil)
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.orders.On("GetByID", ctx, txn.OrderID).Return(order, nil)

	result, err := f.engine.VerifyAndComplete(ctx, "order_ref_1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyCompleted)
}

func TestVerifyAndCompleteFailsDeclinedCharge(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusProcessing, GatewayReference: "order_ref_1", MaxRetries: 3,
	}
	f.txns.On("GetByReference", ctx, "order_ref_1").Return(txn, nil)
	f.gw.On("Verify", mock.Anything, "order_ref_1").Return(&gateway.VerifyData{
		Status: model.VerifyStatusFailed,
	}, nil)
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, txn.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		return d.Code == model.FailureDeclined && d.NextRetryAt == nil
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, txn.OrderID, ordermodel.PaymentStatusFailed).Return(nil)

	_, err := f.engine.VerifyAndComplete(ctx, "order_ref_1")
	assert.ErrorIs(t, err, model.ErrGatewayVerify)
	f.txns.AssertExpectations(t)
}

func TestVerifyAndCompleteLeavesStateOnGatewayError(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	txn := &model.Transaction{ID: uuid.New(), Status: model.StatusProcessing, GatewayReference: "order_ref_1"}
	f.txns.On("GetByReference", ctx, "order_ref_1").Return(txn, nil)
	f.gw.On("Verify", mock.Anything, "order_ref_1").Return(nil, errors.New("network"))

	_, err := f.engine.VerifyAndComplete(ctx, "order_ref_1")
	assert.ErrorIs(t, err, model.ErrGatewayVerify)
	f.txns.AssertNotCalled(t, "MarkFailedWithTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================================================
// SCHEDULED PASSES
// =====================================================

func TestScanDueRetriesEmpty(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.txns.On("ListDueRetries", ctx, testNow, retryScanLimit).Return([]*model.Transaction{}, nil)

	require.NoError(t, f.engine.ScanDueRetries(ctx))
	f.txns.AssertNotCalled(t, "GetForUpdateWithTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestScanDueRetriesSwallowsPerRowErrors(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	due := &model.Transaction{ID: uuid.New(), Status: model.StatusFailed}
	f.txns.On("ListDueRetries", ctx, testNow, retryScanLimit).Return([]*model.Transaction{due}, nil)
	f.txns.On("GetForUpdateWithTx", mock.Anything, mock.Anything, due.ID).Return(nil, model.ErrTransactionNotFound)

	// A row that vanished mid-scan must not fail the whole pass.
	require.NoError(t, f.engine.ScanDueRetries(ctx))
}

func TestExpireStaleProcessingFailsStuckRows(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	stuck := &model.Transaction{
		ID: uuid.New(), OrderID: uuid.New(),
		Status: model.StatusProcessing, RetryCount: 0, MaxRetries: 3,
	}
	cutoff := testNow.Add(-15 * time.Minute)
	f.txns.On("ListStaleProcessing", ctx, cutoff, retryScanLimit).Return([]*model.Transaction{stuck}, nil)
	f.txns.On("GetForUpdateWithTx", ctx, mock.Anything, stuck.ID).Return(stuck, nil)
	f.txns.On("MarkFailedWithTx", ctx, mock.Anything, stuck.ID, mock.MatchedBy(func(d repository.FailureData) bool {
		// Timeouts retry.
		return d.Code == model.FailureTimeout && d.NextRetryAt != nil
	})).Return(nil)
	f.orders.On("UpdatePaymentStatusWithTx", ctx, mock.Anything, stuck.OrderID, ordermodel.PaymentStatusFailed).Return(nil)

	require.NoError(t, f.engine.ExpireStaleProcessing(ctx))
	f.txns.AssertExpectations(t)
}

func TestListTransactionsClampsPaging(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	f.txns.On("ListByUser", ctx, userID, "", 20, 0).Return([]*model.Transaction{}, nil)

	_, err := f.engine.ListTransactions(ctx, userID, "", -5, -1)
	require.NoError(t, err)
	f.txns.AssertExpectations(t)
}
