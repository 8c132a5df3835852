package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	eventmodel "ticketing-backend/internal/domains/event/model"
	eventrepo "ticketing-backend/internal/domains/event/repository"
	eventservice "ticketing-backend/internal/domains/event/service"
	ordermodel "ticketing-backend/internal/domains/order/model"
	orderrepo "ticketing-backend/internal/domains/order/repository"
	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/model"
	"ticketing-backend/internal/domains/payment/repository"
	ticketmodel "ticketing-backend/internal/domains/ticket/model"
	ticketrepo "ticketing-backend/internal/domains/ticket/repository"
	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/clock"
	"ticketing-backend/pkg/logger"
	"ticketing-backend/pkg/qrtoken"
	"ticketing-backend/pkg/resilience"
)

// tokenSignAttempts bounds qr_code collision recovery during minting.
const tokenSignAttempts = 3

// retryScanLimit caps one cron pass of the retry scheduler.
const retryScanLimit = 50

// EngineConfig is the tuning surface of the transaction engine.
type EngineConfig struct {
	Currency         string
	OrganizerPercent int
	MaxRetries       int
	GatewayTimeout   time.Duration
	ProcessingExpiry time.Duration
	RetryConcurrency int
}

type transactionEngine struct {
	txRunner     repository.TxRunner
	transactions repository.TransactionRepository
	refunds      repository.RefundRepository
	outbox       repository.OutboxRepository
	orders       orderrepo.OrderRepository
	events       eventrepo.Repository
	tickets      ticketrepo.TicketRepository
	eventSvc     eventservice.EventService

	gateway gateway.PaymentGateway
	codec   *qrtoken.Codec
	clock   clock.Clock
	backoff resilience.BackoffStrategy
	tasks   TaskClient
	audit   audit.Emitter

	cfg EngineConfig

	// newID is swappable so tests get deterministic ids.
	newID func() uuid.UUID
}

func NewTransactionEngine(
	txRunner repository.TxRunner,
	transactions repository.TransactionRepository,
	refunds repository.RefundRepository,
	outbox repository.OutboxRepository,
	orders orderrepo.OrderRepository,
	events eventrepo.Repository,
	tickets ticketrepo.TicketRepository,
	eventSvc eventservice.EventService,
	gw gateway.PaymentGateway,
	codec *qrtoken.Codec,
	clk clock.Clock,
	backoff resilience.BackoffStrategy,
	tasks TaskClient,
	emitter audit.Emitter,
	cfg EngineConfig,
) TransactionEngine {
	if cfg.Currency == "" {
		cfg.Currency = model.DefaultCurrency
	}
	if cfg.RetryConcurrency <= 0 {
		cfg.RetryConcurrency = 5
	}
	return &transactionEngine{
		txRunner:     txRunner,
		transactions: transactions,
		refunds:      refunds,
		outbox:       outbox,
		orders:       orders,
		events:       events,
		tickets:      tickets,
		eventSvc:     eventSvc,
		gateway:      gw,
		codec:        codec,
		clock:        clk,
		backoff:      backoff,
		tasks:        tasks,
		audit:        emitter,
		cfg:          cfg,
		newID:        uuid.New,
	}
}

func (e *transactionEngine) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.GatewayTimeout)
}

// =====================================================
// INITIATE
// =====================================================

func (e *transactionEngine) Initiate(ctx context.Context, in InitiateInput) (*model.InitiateResult, error) {
	if !ordermodel.ValidQuantity(in.Quantity) {
		return nil, model.NewPaymentError(model.ErrCodeInvalidQuantity, "quantity must be between 1 and 10", model.ErrInvalidQuantity)
	}

	now := e.clock.Now()

	// Client-supplied keys replay authoritatively: no gateway call,
	// no new rows.
	key := in.IdempotencyKey
	if key != "" {
		existing, err := e.transactions.GetByIdempotencyKey(ctx, key)
		if err == nil {
			return e.replayInitiate(ctx, existing, key)
		}
		if !errors.Is(err, model.ErrTransactionNotFound) {
			return nil, err
		}
	} else {
		key = fmt.Sprintf("txn_%s_%s_%s_%d", in.UserID, in.EventID, in.TierID, now.UnixNano())
	}

	event, err := e.eventSvc.GetPurchasableEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	tier := event.TierByID(in.TierID)
	if tier == nil {
		return nil, eventmodel.ErrTierNotFound
	}
	if !tier.OnSaleAt(now) {
		return nil, eventmodel.ErrTierNotOnSale
	}
	if tier.Available() < in.Quantity {
		return nil, model.NewPaymentError(model.ErrCodeInsufficientAvailability,
			fmt.Sprintf("only %d tickets left in tier %s", tier.Available(), tier.Name), model.ErrInsufficientAvailability)
	}

	held, err := e.tickets.CountActiveForUserTier(ctx, in.UserID, in.EventID, in.TierID)
	if err != nil {
		return nil, err
	}
	if limit := tier.PerUserLimit(); held+in.Quantity > limit {
		return nil, model.NewPaymentError(model.ErrCodeTierLimit,
			fmt.Sprintf("limit is %d tickets per user for tier %s", limit, tier.Name), model.ErrTierLimit)
	}

	reference := fmt.Sprintf("order_%d_%s", now.UnixNano(), in.UserID)
	total := tier.Price * int64(in.Quantity)

	order := &ordermodel.Order{
		ID:            e.newID(),
		UserID:        in.UserID,
		EventID:       in.EventID,
		TierID:        in.TierID,
		TierName:      tier.Name,
		Quantity:      in.Quantity,
		UnitPrice:     tier.Price,
		TotalAmount:   total,
		PaymentStatus: ordermodel.PaymentStatusPending,
	}
	txn := &model.Transaction{
		ID:               e.newID(),
		IdempotencyKey:   key,
		Status:           model.StatusInitiated,
		UserID:           in.UserID,
		OrderID:          order.ID,
		EventID:          in.EventID,
		Amount:           total,
		Currency:         e.cfg.Currency,
		GatewayProvider:  model.GatewayPaystack,
		GatewayReference: reference,
		MaxRetries:       e.cfg.MaxRetries,
		InitiatedAt:      now,
		MetaIP:           in.Meta.IP,
		MetaUserAgent:    in.Meta.UserAgent,
		MetaEmail:        in.Meta.Email,
		MetaTierName:     tier.Name,
		MetaQuantity:     in.Quantity,
	}

	err = e.txRunner.InTx(ctx, func(tx pgx.Tx) error {
		if err := e.orders.CreateWithTx(ctx, tx, order); err != nil {
			return err
		}
		return e.transactions.CreateWithTx(ctx, tx, txn)
	})
	if err != nil {
		// Concurrent duplicates collapse on the unique key: the loser
		// reloads the winner's rows and answers idempotently.
		if errors.Is(err, model.ErrDuplicateIdempotencyKey) {
			winner, loadErr := e.transactions.GetByIdempotencyKey(ctx, key)
			if loadErr != nil {
				return nil, loadErr
			}
			return e.replayInitiate(ctx, winner, key)
		}
		return nil, err
	}

	subaccountCode := ""
	if organizer, orgErr := e.events.GetOrganizer(ctx, event.OrganizerID); orgErr == nil && organizer.SubaccountCode != nil {
		subaccountCode = *organizer.SubaccountCode
	}

	gwCtx, cancel := e.gatewayCtx(ctx)
	defer cancel()
	initResp, err := e.gateway.Initialize(gwCtx, gateway.InitializeRequest{
		Email:          in.Meta.Email,
		AmountMinor:    total,
		Reference:      reference,
		SubaccountCode: subaccountCode,
		Metadata: map[string]interface{}{
			"orderId":  order.ID.String(),
			"eventId":  in.EventID.String(),
			"tierId":   in.TierID.String(),
			"quantity": in.Quantity,
		},
	})
	if err != nil {
		if _, failErr := e.Fail(ctx, txn.ID, "init failed", model.FailureInitFailed, map[string]interface{}{
			"gatewayError": err.Error(),
		}); failErr != nil {
			logger.Error("failed to mark transaction failed after init error", failErr)
		}
		return nil, model.NewPaymentError(model.ErrCodeGatewayInit, "payment initialization failed", model.ErrGatewayInit)
	}

	e.audit.Emit(ctx, shared.AuditEventPayload{
		Action:        "payment.initiated",
		TransactionID: txn.ID.String(),
		Reference:     reference,
		ActorID:       in.UserID.String(),
		Detail: map[string]interface{}{
			"amount":   total,
			"quantity": in.Quantity,
		},
		At: now,
	})

	return &model.InitiateResult{
		Order:          order,
		Transaction:    txn,
		PaymentURL:     initResp.AuthorizationURL,
		IdempotencyKey: key,
		IsIdempotent:   false,
	}, nil
}

func (e *transactionEngine) replayInitiate(ctx context.Context, txn *model.Transaction, key string) (*model.InitiateResult, error) {
	order, err := e.orders.GetByID(ctx, txn.OrderID)
	if err != nil {
		return nil, err
	}
	return &model.InitiateResult{
		Order:          order,
		Transaction:    txn,
		IdempotencyKey: key,
		IsIdempotent:   true,
	}, nil
}

// =====================================================
// COMPLETE
// =====================================================

func (e *transactionEngine) Complete(ctx context.Context, transactionID uuid.UUID, data *gateway.VerifyData) (*model.CompleteResult, error) {
	var (
		result     *model.CompleteResult
		oversold   bool
		eventTitle string
		userEmail  string
	)

	err := e.txRunner.InTx(ctx, func(tx pgx.Tx) error {
		txn, err := e.transactions.GetForUpdateWithTx(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		userEmail = txn.MetaEmail

		// Idempotent boundary: verifier and webhook may both land
		// here; the later caller reads the settled state back.
		if txn.Status == model.StatusCompleted {
			order, err := e.orders.GetByID(ctx, txn.OrderID)
			if err != nil {
				return err
			}
			result = &model.CompleteResult{
				Transaction:      txn,
				Order:            order,
				TicketIDs:        order.TicketIDs,
				AlreadyCompleted: true,
			}
			return nil
		}

		// A charge can settle before the buyer ever reaches the
		// hosted page, so initiated rows pass through processing.
		if txn.Status == model.StatusInitiated {
			if err := e.transactions.UpdateStatusWithTx(ctx, tx, txn.ID, model.StatusProcessing); err != nil {
				return err
			}
			txn.Status = model.StatusProcessing
		}
		if err := model.ValidateTransition(txn.Status, model.StatusCompleted); err != nil {
			return err
		}

		order, err := e.orders.GetForUpdateWithTx(ctx, tx, txn.OrderID)
		if err != nil {
			return err
		}

		event, err := e.events.GetForUpdateWithTx(ctx, tx, txn.EventID)
		if err != nil {
			return err
		}
		eventTitle = event.Title
		tier := event.TierByID(order.TierID)
		if tier == nil {
			return eventmodel.ErrTierNotFound
		}

		// Oversell recovery: the buyer paid but the seats are gone.
		// The failed state and the refund intent must COMMIT, so this
		// branch returns nil from the Tx fn.
		if tier.SoldCount+order.Quantity > tier.Quantity {
			if err := e.transactions.MarkFailedWithTx(ctx, tx, txn.ID, repository.FailureData{
				Reason: "oversold at completion",
				Code:   model.FailureOversold,
			}); err != nil {
				return err
			}
			if err := e.orders.UpdatePaymentStatusWithTx(ctx, tx, order.ID, ordermodel.PaymentStatusFailed); err != nil {
				return err
			}
			if err := e.outbox.InsertWithTx(ctx, tx, &model.RefundOutboxEntry{
				ID:            e.newID(),
				TransactionID: txn.ID,
				Amount:        txn.Amount,
				Reason:        "oversold at completion",
			}); err != nil {
				return err
			}
			oversold = true
			return nil
		}

		if err := e.events.IncrementTierSoldWithTx(ctx, tx, event.ID, tier.ID, order.Quantity, tier.Version); err != nil {
			return err
		}
		if err := e.events.AddEventTotalsWithTx(ctx, tx, event.ID, order.Quantity, order.TotalAmount); err != nil {
			return err
		}

		organizerPercent := e.cfg.OrganizerPercent
		var subaccountCode *string
		if organizer, orgErr := e.events.GetOrganizer(ctx, event.OrganizerID); orgErr == nil {
			organizerPercent = organizer.OrganizerPercent()
			subaccountCode = organizer.SubaccountCode
		}
		splits := splitsFromGateway(txn.Amount, organizerPercent, data, subaccountCode)

		ticketIDs, err := e.mintTickets(ctx, tx, order)
		if err != nil {
			return err
		}

		completion := repository.CompletionData{Splits: splits}
		paidAt := e.clock.Now()
		if data != nil {
			completion.GatewayTransactionID = data.GatewayTransactionID
			completion.GatewayChannel = data.Channel
			completion.GatewayFees = data.Fees
			completion.GatewayAuthMeta = map[string]interface{}{
				"cardType": data.Authorization.CardType,
				"last4":    data.Authorization.Last4,
				"bank":     data.Authorization.Bank,
			}
			if data.PaidAt != nil {
				paidAt = *data.PaidAt
			}
		}
		if err := e.transactions.MarkCompletedWithTx(ctx, tx, txn.ID, completion); err != nil {
			return err
		}

		var gwTxnID *string
		if completion.GatewayTransactionID != "" {
			gwTxnID = &completion.GatewayTransactionID
		}
		if err := e.orders.MarkCompletedWithTx(ctx, tx, order.ID, orderrepo.CompletionUpdate{
			TicketIDs:            ticketIDs,
			SplitPlatformAmount:  splits.PlatformAmount,
			SplitOrganizerAmount: splits.OrganizerAmount,
			GatewayReference:     txn.GatewayReference,
			GatewayTransactionID: gwTxnID,
			PaidAt:               paidAt,
		}); err != nil {
			return err
		}

		// The response carries the settled state, so the loaded
		// structs must mirror what the Tx just wrote.
		txn.Status = model.StatusCompleted
		txn.CompletedAt = &paidAt
		txn.GatewayFees = completion.GatewayFees
		txn.SplitPlatformAmount = splits.PlatformAmount
		txn.SplitOrganizerAmount = splits.OrganizerAmount
		txn.SplitSubaccountCode = splits.SubaccountCode
		txn.SplitFees = splits.Fees
		if completion.GatewayTransactionID != "" {
			txn.GatewayTransactionID = gwTxnID
		}
		if completion.GatewayChannel != "" {
			txn.GatewayChannel = &completion.GatewayChannel
		}
		order.PaymentStatus = ordermodel.PaymentStatusCompleted
		order.TicketIDs = ticketIDs
		order.SplitPlatformAmount = splits.PlatformAmount
		order.SplitOrganizerAmount = splits.OrganizerAmount
		order.GatewayTransactionID = gwTxnID
		order.PaidAt = &paidAt

		result = &model.CompleteResult{
			Transaction: txn,
			Order:       order,
			TicketIDs:   ticketIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oversold {
		e.audit.Emit(ctx, shared.AuditEventPayload{
			Action:        "payment.oversold",
			TransactionID: transactionID.String(),
			At:            e.clock.Now(),
		})
		return nil, model.NewPaymentError(model.ErrCodeOversold, "tickets sold out before payment completed", model.ErrOversold)
	}

	if result.AlreadyCompleted {
		return result, nil
	}

	// First-time completion side effects, all best effort.
	e.eventSvc.InvalidateSnapshot(ctx, result.Order.EventID)
	e.enqueueConfirmation(ctx, result, eventTitle, userEmail)
	e.audit.Emit(ctx, shared.AuditEventPayload{
		Action:        "payment.completed",
		TransactionID: transactionID.String(),
		Reference:     result.Transaction.GatewayReference,
		Detail: map[string]interface{}{
			"amount":  result.Transaction.Amount,
			"tickets": len(result.TicketIDs),
		},
		At: e.clock.Now(),
	})

	return result, nil
}

// mintTickets creates the order's tickets inside the completion Tx.
// A qr_code collision re-signs with a fresh issue timestamp; after
// tokenSignAttempts the whole completion aborts.
func (e *transactionEngine) mintTickets(ctx context.Context, tx pgx.Tx, order *ordermodel.Order) ([]string, error) {
	ids := make([]string, 0, order.Quantity)
	for i := 0; i < order.Quantity; i++ {
		ticket := &ticketmodel.Ticket{
			ID:       e.newID(),
			OrderID:  order.ID,
			EventID:  order.EventID,
			UserID:   order.UserID,
			TierID:   order.TierID,
			TierName: order.TierName,
			Price:    order.UnitPrice,
			Status:   ticketmodel.StatusValid,
		}

		var inserted bool
		for attempt := 0; attempt < tokenSignAttempts; attempt++ {
			token, err := e.codec.Sign(qrtoken.Payload{
				TicketID: ticket.ID.String(),
				EventID:  order.EventID.String(),
				IssuedAt: e.clock.Now().UnixMilli() + int64(attempt),
			})
			if err != nil {
				return nil, err
			}
			ticket.QRCode = token

			err = e.tickets.InsertWithTx(ctx, tx, ticket)
			if err == nil {
				inserted = true
				break
			}
			if !errors.Is(err, ticketmodel.ErrDuplicateQRCode) {
				return nil, err
			}
		}
		if !inserted {
			return nil, ticketmodel.ErrTokenCollision
		}
		ids = append(ids, ticket.ID.String())
	}
	return ids, nil
}

func (e *transactionEngine) enqueueConfirmation(ctx context.Context, result *model.CompleteResult, eventTitle, email string) {
	if e.tasks == nil {
		return
	}
	payload, err := json.Marshal(shared.TicketConfirmationPayload{
		TransactionID: result.Transaction.ID.String(),
		OrderID:       result.Order.ID.String(),
		UserID:        result.Order.UserID.String(),
		Email:         email,
		EventName:     eventTitle,
		TicketIDs:     result.TicketIDs,
		AmountMinor:   result.Transaction.Amount,
		Currency:      result.Transaction.Currency,
	})
	if err != nil {
		logger.Error("failed to marshal ticket confirmation payload", err)
		return
	}
	task := asynq.NewTask(shared.TypeTicketSendConfirmation, payload)
	if _, err := e.tasks.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(3),
	); err != nil {
		logger.Error("failed to enqueue ticket confirmation", err)
	}
}

// =====================================================
// FAIL
// =====================================================

func (e *transactionEngine) Fail(ctx context.Context, transactionID uuid.UUID, reason, code string, details map[string]interface{}) (*model.Transaction, error) {
	var txn *model.Transaction

	err := e.txRunner.InTx(ctx, func(tx pgx.Tx) error {
		current, err := e.transactions.GetForUpdateWithTx(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		// Already failed: no-op, keep the original failure record.
		if current.Status == model.StatusFailed {
			txn = current
			return nil
		}
		if err := model.ValidateTransition(current.Status, model.StatusFailed); err != nil {
			return err
		}

		failure := repository.FailureData{Reason: reason, Code: code, Details: details}
		if model.IsRetryableFailure(code) && current.RetryCount < current.MaxRetries {
			next := e.clock.Now().Add(e.backoff.NextDelay(current.RetryCount))
			failure.NextRetryAt = &next
		}
		if err := e.transactions.MarkFailedWithTx(ctx, tx, current.ID, failure); err != nil {
			return err
		}
		if err := e.orders.UpdatePaymentStatusWithTx(ctx, tx, current.OrderID, ordermodel.PaymentStatusFailed); err != nil {
			return err
		}

		current.Status = model.StatusFailed
		current.FailureReason = &reason
		current.FailureCode = &code
		current.NextRetryAt = failure.NextRetryAt
		txn = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Emit(ctx, shared.AuditEventPayload{
		Action:        "payment.failed",
		TransactionID: transactionID.String(),
		Detail:        map[string]interface{}{"reason": reason, "code": code},
		At:            e.clock.Now(),
	})
	return txn, nil
}

// =====================================================
// REFUND
// =====================================================

func (e *transactionEngine) Refund(ctx context.Context, transactionID uuid.UUID, amount *int64, reason string, processedBy uuid.UUID) (*model.Transaction, error) {
	var txn *model.Transaction

	err := e.txRunner.InTx(ctx, func(tx pgx.Tx) error {
		current, err := e.transactions.GetForUpdateWithTx(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		if !current.IsRefundable() {
			return model.NewPaymentError(model.ErrCodeNotRefundable,
				fmt.Sprintf("transaction in status %s cannot be refunded", current.Status), model.ErrNotRefundable)
		}

		net := current.NetRefundable()
		amt := net
		if amount != nil {
			amt = *amount
		}
		if amt <= 0 || amt > net {
			return model.NewPaymentError(model.ErrCodeRefundExceedsNet,
				fmt.Sprintf("refund amount %d outside (0, %d]", amt, net), model.ErrRefundExceedsNet)
		}

		newStatus := model.StatusPartiallyRefunded
		if amt == net {
			newStatus = model.StatusRefunded
		}
		// A second partial keeps the status where it is; only real
		// moves go through the state machine.
		if newStatus != current.Status {
			if err := model.ValidateTransition(current.Status, newStatus); err != nil {
				return err
			}
		}

		// Money movement happens inside the Tx so a gateway failure
		// rolls everything back.
		gwCtx, cancel := e.gatewayCtx(ctx)
		defer cancel()
		refundResp, err := e.gateway.Refund(gwCtx, gateway.RefundRequest{
			TransactionReference: current.GatewayReference,
			AmountMinor:          amt,
		})
		if err != nil {
			return model.NewPaymentError(model.ErrCodeGatewayRefund, "gateway refund failed", model.ErrGatewayRefund)
		}

		gatewayRefundID := refundResp.GatewayRefundID
		if err := e.refunds.InsertWithTx(ctx, tx, &model.Refund{
			ID:              e.newID(),
			TransactionID:   current.ID,
			Amount:          amt,
			Reason:          reason,
			ProcessedBy:     processedBy,
			ProcessedAt:     e.clock.Now(),
			GatewayRefundID: &gatewayRefundID,
		}); err != nil {
			return err
		}
		if err := e.transactions.ApplyRefundWithTx(ctx, tx, current.ID, amt, newStatus); err != nil {
			return err
		}

		// Full refund revokes admission: cancel every still-valid
		// ticket of the order. Tier counters stay untouched.
		if newStatus == model.StatusRefunded {
			if err := e.orders.UpdatePaymentStatusWithTx(ctx, tx, current.OrderID, ordermodel.PaymentStatusRefunded); err != nil {
				return err
			}
			if _, err := e.tickets.CancelByOrderWithTx(ctx, tx, current.OrderID); err != nil {
				return err
			}
		}

		current.Status = newStatus
		current.TotalRefunded += amt
		txn = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Emit(ctx, shared.AuditEventPayload{
		Action:        "payment.refunded",
		TransactionID: transactionID.String(),
		ActorID:       processedBy.String(),
		Detail: map[string]interface{}{
			"amount": txn.TotalRefunded,
			"status": txn.Status,
			"reason": reason,
		},
		At: e.clock.Now(),
	})
	return txn, nil
}

// =====================================================
// RETRY
// =====================================================

func (e *transactionEngine) Retry(ctx context.Context, transactionID uuid.UUID) (*model.RetryResult, error) {
	now := e.clock.Now()

	var txn *model.Transaction
	var reference string

	err := e.txRunner.InTx(ctx, func(tx pgx.Tx) error {
		current, err := e.transactions.GetForUpdateWithTx(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		if current.Status != model.StatusFailed {
			return model.NewPaymentError(model.ErrCodeNotRetryable,
				fmt.Sprintf("transaction in status %s cannot be retried", current.Status), model.ErrNotRetryable)
		}
		if current.RetryCount >= current.MaxRetries {
			return model.NewPaymentError(model.ErrCodeRetryExhausted,
				fmt.Sprintf("all %d retry attempts used", current.MaxRetries), model.ErrRetryExhausted)
		}
		if err := model.ValidateTransition(current.Status, model.StatusProcessing); err != nil {
			return err
		}

		reference = fmt.Sprintf("retry_%d_%d_%s", current.RetryCount+1, now.UnixNano(), current.UserID)
		if err := e.transactions.MarkRetryingWithTx(ctx, tx, current.ID, reference, now); err != nil {
			return err
		}
		if err := e.orders.UpdatePaymentStatusWithTx(ctx, tx, current.OrderID, ordermodel.PaymentStatusPending); err != nil {
			return err
		}

		current.Status = model.StatusProcessing
		current.RetryCount++
		current.LastRetryAt = &now
		current.NextRetryAt = nil
		current.GatewayReference = reference
		txn = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := e.gatewayCtx(ctx)
	defer cancel()
	initResp, err := e.gateway.Initialize(gwCtx, gateway.InitializeRequest{
		Email:       txn.MetaEmail,
		AmountMinor: txn.Amount,
		Reference:   reference,
		Metadata: map[string]interface{}{
			"orderId": txn.OrderID.String(),
			"retry":   txn.RetryCount,
		},
	})
	if err != nil {
		if _, failErr := e.Fail(ctx, txn.ID, "retry init failed", model.FailureGateway, map[string]interface{}{
			"gatewayError": err.Error(),
			"attempt":      txn.RetryCount,
		}); failErr != nil {
			logger.Error("failed to mark transaction failed after retry init error", failErr)
		}
		return nil, model.NewPaymentError(model.ErrCodeGatewayInit, "payment initialization failed", model.ErrGatewayInit)
	}

	e.audit.Emit(ctx, shared.AuditEventPayload{
		Action:        "payment.retried",
		TransactionID: txn.ID.String(),
		Reference:     reference,
		Detail:        map[string]interface{}{"attempt": txn.RetryCount},
		At:            now,
	})

	return &model.RetryResult{Transaction: txn, PaymentURL: initResp.AuthorizationURL}, nil
}

// =====================================================
// VERIFY
// =====================================================

func (e *transactionEngine) VerifyAndComplete(ctx context.Context, reference string) (*model.CompleteResult, error) {
	txn, err := e.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := e.gatewayCtx(ctx)
	defer cancel()
	data, err := e.gateway.Verify(gwCtx, reference)
	if err != nil {
		// Transient: the transaction stays as-is for a later verify.
		return nil, model.NewPaymentError(model.ErrCodeGatewayVerify, "gateway verification failed", model.ErrGatewayVerify)
	}

	if data.Status != model.VerifyStatusSuccess {
		if txn.Status != model.StatusCompleted {
			if _, failErr := e.Fail(ctx, txn.ID, "charge "+data.Status, model.FailureDeclined, nil); failErr != nil {
				logger.Error("failed to mark transaction failed after verification", failErr)
			}
		}
		return nil, model.NewPaymentError(model.ErrCodeGatewayVerify,
			fmt.Sprintf("payment not successful: %s", data.Status), model.ErrGatewayVerify)
	}

	return e.Complete(ctx, txn.ID, data)
}

// =====================================================
// READS
// =====================================================

func (e *transactionEngine) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return e.transactions.GetByID(ctx, id)
}

func (e *transactionEngine) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	return e.transactions.GetByReference(ctx, reference)
}

func (e *transactionEngine) ListTransactions(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*model.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return e.transactions.ListByUser(ctx, userID, status, limit, offset)
}

// =====================================================
// SCHEDULED PASSES
// =====================================================

func (e *transactionEngine) ScanDueRetries(ctx context.Context) error {
	due, err := e.transactions.ListDueRetries(ctx, e.clock.Now(), retryScanLimit)
	if err != nil {
		return fmt.Errorf("list due retries: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	logger.Info("retry scan found due transactions", map[string]interface{}{"count": len(due)})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.RetryConcurrency)
	for _, txn := range due {
		id := txn.ID
		g.Go(func() error {
			// Per-row failures refresh next_retry_at through the Fail
			// path; the next scan picks the row up again.
			if _, err := e.Retry(gctx, id); err != nil {
				logger.ErrorWithFields("scheduled retry failed", err, map[string]interface{}{
					"transactionId": id.String(),
				})
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *transactionEngine) ExpireStaleProcessing(ctx context.Context) error {
	cutoff := e.clock.Now().Add(-e.cfg.ProcessingExpiry)
	stale, err := e.transactions.ListStaleProcessing(ctx, cutoff, retryScanLimit)
	if err != nil {
		return fmt.Errorf("list stale processing: %w", err)
	}

	for _, txn := range stale {
		if _, err := e.Fail(ctx, txn.ID, "timeout", model.FailureTimeout, map[string]interface{}{
			"processingSince": txn.ProcessingAt,
		}); err != nil {
			logger.ErrorWithFields("failed to expire stale transaction", err, map[string]interface{}{
				"transactionId": txn.ID.String(),
			})
		}
	}
	return nil
}
