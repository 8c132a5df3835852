package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	eventmodel "ticketing-backend/internal/domains/event/model"
	ordermodel "ticketing-backend/internal/domains/order/model"
	orderrepo "ticketing-backend/internal/domains/order/repository"
	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/model"
	"ticketing-backend/internal/domains/payment/repository"
	ticketmodel "ticketing-backend/internal/domains/ticket/model"
)

// fakeTxRunner executes the closure directly. The repositories are
// mocks, so no real pgx.Tx is ever touched.
type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// fixedBackoff removes jitter from retry scheduling assertions.
type fixedBackoff struct {
	delay time.Duration
}

func (b fixedBackoff) NextDelay(attempt int) time.Duration {
	return b.delay * time.Duration(attempt+1)
}

// recordingTaskClient captures enqueued tasks.
type recordingTaskClient struct {
	tasks []*asynq.Task
}

func (c *recordingTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: "test", Type: task.Type()}, nil
}

// ----- repositories -----

type mockTransactionRepo struct{ mock.Mock }

func (m *mockTransactionRepo) CreateWithTx(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error {
	return m.Called(ctx, tx, txn).Error(0)
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) GetByReferenceForUpdateWithTx(ctx context.Context, tx pgx.Tx, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, tx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	return m.Called(ctx, tx, id, status).Error(0)
}

func (m *mockTransactionRepo) MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, data repository.CompletionData) error {
	return m.Called(ctx, tx, id, data).Error(0)
}

func (m *mockTransactionRepo) MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, data repository.FailureData) error {
	return m.Called(ctx, tx, id, data).Error(0)
}

func (m *mockTransactionRepo) MarkRetryingWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reference string, at time.Time) error {
	return m.Called(ctx, tx, id, reference, at).Error(0)
}

func (m *mockTransactionRepo) ApplyRefundWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, newStatus string) error {
	return m.Called(ctx, tx, id, amount, newStatus).Error(0)
}

func (m *mockTransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*model.Transaction, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Transaction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*model.Transaction, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

type mockRefundRepo struct{ mock.Mock }

func (m *mockRefundRepo) InsertWithTx(ctx context.Context, tx pgx.Tx, refund *model.Refund) error {
	return m.Called(ctx, tx, refund).Error(0)
}

func (m *mockRefundRepo) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*model.Refund, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Refund), args.Error(1)
}

type mockOutboxRepo struct{ mock.Mock }

func (m *mockOutboxRepo) InsertWithTx(ctx context.Context, tx pgx.Tx, entry *model.RefundOutboxEntry) error {
	return m.Called(ctx, tx, entry).Error(0)
}

func (m *mockOutboxRepo) ListUnprocessed(ctx context.Context, limit int) ([]*model.RefundOutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RefundOutboxEntry), args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) CreateWithTx(ctx context.Context, tx pgx.Tx, order *ordermodel.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, orderID uuid.UUID) (*ordermodel.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordermodel.Order), args.Error(1)
}

func (m *mockOrderRepo) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*ordermodel.Order, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordermodel.Order), args.Error(1)
}

func (m *mockOrderRepo) MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, update orderrepo.CompletionUpdate) error {
	return m.Called(ctx, tx, orderID, update).Error(0)
}

func (m *mockOrderRepo) UpdatePaymentStatusWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string) error {
	return m.Called(ctx, tx, orderID, status).Error(0)
}

type mockEventRepo struct{ mock.Mock }

func (m *mockEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*eventmodel.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventmodel.Event), args.Error(1)
}

func (m *mockEventRepo) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*eventmodel.Event, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventmodel.Event), args.Error(1)
}

func (m *mockEventRepo) IncrementTierSoldWithTx(ctx context.Context, tx pgx.Tx, eventID, tierID uuid.UUID, quantity, expectedVersion int) error {
	return m.Called(ctx, tx, eventID, tierID, quantity, expectedVersion).Error(0)
}

func (m *mockEventRepo) AddEventTotalsWithTx(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, ticketsDelta int, revenueDelta int64) error {
	return m.Called(ctx, tx, eventID, ticketsDelta, revenueDelta).Error(0)
}

func (m *mockEventRepo) GetOrganizer(ctx context.Context, organizerID uuid.UUID) (*eventmodel.Organizer, error) {
	args := m.Called(ctx, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventmodel.Organizer), args.Error(1)
}

type mockTicketRepo struct{ mock.Mock }

func (m *mockTicketRepo) InsertWithTx(ctx context.Context, tx pgx.Tx, ticket *ticketmodel.Ticket) error {
	return m.Called(ctx, tx, ticket).Error(0)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id uuid.UUID) (*ticketmodel.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticketmodel.Ticket), args.Error(1)
}

func (m *mockTicketRepo) GetByQRCode(ctx context.Context, qrCode string) (*ticketmodel.Ticket, error) {
	args := m.Called(ctx, qrCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticketmodel.Ticket), args.Error(1)
}

func (m *mockTicketRepo) CountActiveForUserTier(ctx context.Context, userID, eventID, tierID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID, eventID, tierID)
	return args.Int(0), args.Error(1)
}

func (m *mockTicketRepo) CheckIn(ctx context.Context, ticketID, scannerID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, ticketID, scannerID, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockTicketRepo) CancelByOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, orderID)
	return args.Int(0), args.Error(1)
}

func (m *mockTicketRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*ticketmodel.Ticket, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticketmodel.Ticket), args.Error(1)
}

func (m *mockTicketRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ticketmodel.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticketmodel.Ticket), args.Error(1)
}

// ----- event service -----

type mockEventService struct{ mock.Mock }

func (m *mockEventService) GetPurchasableEvent(ctx context.Context, eventID uuid.UUID) (*eventmodel.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventmodel.Event), args.Error(1)
}

func (m *mockEventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*eventmodel.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventmodel.Event), args.Error(1)
}

func (m *mockEventService) InvalidateSnapshot(ctx context.Context, eventID uuid.UUID) {
	m.Called(ctx, eventID)
}

// ----- gateway -----

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitializeResponse), args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyData, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.VerifyData), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResponse), args.Error(1)
}

func (m *mockGateway) CreateSubaccount(ctx context.Context, req gateway.SubaccountRequest) (*gateway.SubaccountResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SubaccountResponse), args.Error(1)
}

func (m *mockGateway) VerifySignature(rawBody []byte, signature string) bool {
	return m.Called(rawBody, signature).Bool(0)
}

// ----- engine (for webhook processor tests) -----

type mockEngine struct{ mock.Mock }

func (m *mockEngine) Initiate(ctx context.Context, in InitiateInput) (*model.InitiateResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InitiateResult), args.Error(1)
}

func (m *mockEngine) Complete(ctx context.Context, transactionID uuid.UUID, data *gateway.VerifyData) (*model.CompleteResult, error) {
	args := m.Called(ctx, transactionID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompleteResult), args.Error(1)
}

func (m *mockEngine) Fail(ctx context.Context, transactionID uuid.UUID, reason, code string, details map[string]interface{}) (*model.Transaction, error) {
	args := m.Called(ctx, transactionID, reason, code, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockEngine) Refund(ctx context.Context, transactionID uuid.UUID, amount *int64, reason string, processedBy uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, transactionID, amount, reason, processedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockEngine) Retry(ctx context.Context, transactionID uuid.UUID) (*model.RetryResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RetryResult), args.Error(1)
}

func (m *mockEngine) VerifyAndComplete(ctx context.Context, reference string) (*model.CompleteResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompleteResult), args.Error(1)
}

func (m *mockEngine) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockEngine) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockEngine) ListTransactions(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*model.Transaction, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *mockEngine) ScanDueRetries(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockEngine) ExpireStaleProcessing(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
