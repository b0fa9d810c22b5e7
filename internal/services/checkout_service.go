package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mythmanga/internal/config"
	"mythmanga/internal/gateway"
	"mythmanga/internal/logger"
	"mythmanga/internal/models"
	"mythmanga/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Placeholders sent for verification when the dialog ran without a gateway order.
const (
	DemoOrderID   = "demo_order"
	DemoSignature = "demo_signature"
)

// OrdersRedirect is where the browser goes after a completed checkout.
const OrdersRedirect = "/orders"

var (
	ErrMethodUnavailable  = errors.New("checkout: payment method unavailable")
	ErrEmptyCart          = errors.New("checkout: cart is empty")
	ErrLoginRequired      = errors.New("checkout: sign in required for online payment")
	ErrInvalidCoupon      = errors.New("checkout: coupon rejected")
	ErrVerificationFailed = errors.New("checkout: payment signature not verified")
	ErrAttemptClosed      = errors.New("checkout: attempt no longer accepts callbacks")
	ErrOrderMismatch      = errors.New("checkout: payment belongs to a different gateway order")
	ErrPaymentReused      = errors.New("checkout: payment already settled another order")
)

// ErrorKind buckets checkout failures for the caller.
type ErrorKind string

const (
	KindConfiguration      ErrorKind = "configuration"
	KindValidation         ErrorKind = "validation"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindPaymentFailed      ErrorKind = "payment_failed"
	KindVerificationFailed ErrorKind = "verification_failed"
	KindPersistenceFailed  ErrorKind = "persistence_failed"
	KindAttemptClosed      ErrorKind = "attempt_closed"
	KindNotFound           ErrorKind = "not_found"
	KindInternal           ErrorKind = "internal"
)

// CheckoutError carries a failure bucket and the message shown to the shopper.
type CheckoutError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

func newCheckoutError(kind ErrorKind, message string, err error) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: message, Err: err}
}

// PaymentGateway is the remote side of the hosted-gateway exchange.
type PaymentGateway interface {
	CheckOrderConfig() error
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest, idempotencyKey string) (*models.GatewayOrder, error)
	Verify(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResponse, error)
}

// OrderNotifier is told about every persisted order. It must not block checkout.
type OrderNotifier interface {
	OrderReceived(ctx context.Context, order models.Order)
}

// SubmitCommand is one checkout submission.
type SubmitCommand struct {
	ClientID string
	// Identity is the signed-in user's id; empty for guests.
	Identity   string
	Method     models.PaymentMethod
	Form       models.CheckoutForm
	CouponCode string
	Settings   SettingsSnapshot
}

// PaymentResult is what the payment dialog hands back on success.
type PaymentResult struct {
	PaymentID string `json:"payment_id" validate:"required"`
	OrderID   string `json:"order_id"`
	Signature string `json:"signature"`
}

// CheckoutResult describes where an attempt ended up after an operation.
type CheckoutResult struct {
	Attempt  *models.CheckoutAttempt `json:"attempt"`
	Order    *models.Order           `json:"order,omitempty"`
	Dialog   *gateway.DialogOptions  `json:"dialog,omitempty"`
	Warning  string                  `json:"warning,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Redirect string                  `json:"redirect,omitempty"`
}

// CheckoutServiceDeps wires a CheckoutService.
type CheckoutServiceDeps struct {
	Carts    repositories.CartStore
	Attempts repositories.AttemptStore
	Orders   *OrderService
	Coupons  *CouponService
	Gateway  PaymentGateway
	Notifier OrderNotifier
	// GatewayConfig supplies currency, dialog branding and the verify policy.
	GatewayConfig config.GatewayConfig
	AttemptTTL    time.Duration
	// CallbackBasePath prefixes the dialog callback URLs.
	CallbackBasePath string
	Validate         *validator.Validate
	Now              func() time.Time
}

// CheckoutService drives checkout attempts through the payment state machine.
type CheckoutService struct {
	carts      repositories.CartStore
	attempts   repositories.AttemptStore
	orders     *OrderService
	coupons    *CouponService
	gateway    PaymentGateway
	notifier   OrderNotifier
	cfg        config.GatewayConfig
	attemptTTL time.Duration
	basePath   string
	validate   *validator.Validate
	now        func() time.Time

	tracer         trace.Tracer
	attemptCounter metric.Int64Counter
	fallbacks      metric.Int64Counter
	lenient        metric.Int64Counter
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(deps CheckoutServiceDeps) (*CheckoutService, error) {
	if deps.Carts == nil || deps.Attempts == nil || deps.Orders == nil || deps.Coupons == nil || deps.Gateway == nil {
		return nil, errors.New("checkout: carts, attempts, orders, coupons and gateway are required")
	}
	if deps.Validate == nil {
		deps.Validate = validator.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AttemptTTL <= 0 {
		deps.AttemptTTL = 30 * time.Minute
	}
	if deps.GatewayConfig.Currency == "" {
		deps.GatewayConfig.Currency = "INR"
	}

	meter := otel.Meter("mythmanga/checkout")
	attemptsCounter, err := meter.Int64Counter("checkout_attempts_total",
		metric.WithDescription("Checkout attempts by payment method and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create attempts counter: %w", err)
	}
	fallbacks, err := meter.Int64Counter("checkout_gateway_fallbacks_total",
		metric.WithDescription("Hosted-gateway attempts that continued without a gateway order"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}
	lenient, err := meter.Int64Counter("checkout_verification_lenient_total",
		metric.WithDescription("Payments accepted while verification was unreachable"))
	if err != nil {
		return nil, fmt.Errorf("failed to create lenient counter: %w", err)
	}

	return &CheckoutService{
		carts:          deps.Carts,
		attempts:       deps.Attempts,
		orders:         deps.Orders,
		coupons:        deps.Coupons,
		gateway:        deps.Gateway,
		notifier:       deps.Notifier,
		cfg:            deps.GatewayConfig,
		attemptTTL:     deps.AttemptTTL,
		basePath:       deps.CallbackBasePath,
		validate:       deps.Validate,
		now:            deps.Now,
		tracer:         otel.Tracer("mythmanga/checkout"),
		attemptCounter: attemptsCounter,
		fallbacks:      fallbacks,
		lenient:        lenient,
	}, nil
}

// AvailableMethods lists the payment methods the settings allow, in display order.
func AvailableMethods(settings SettingsSnapshot) []models.PaymentMethod {
	methods := make([]models.PaymentMethod, 0, 3)
	if settings.CODEnabled {
		methods = append(methods, models.PaymentMethodCOD)
	}
	if settings.HostedGatewayEnabled {
		methods = append(methods, models.PaymentMethodHostedGateway)
	}
	return append(methods, models.PaymentMethodStoredCard)
}

func methodAvailable(settings SettingsSnapshot, method models.PaymentMethod) bool {
	for _, m := range AvailableMethods(settings) {
		if m == method {
			return true
		}
	}
	return false
}

// Submit starts an attempt. Cash-on-delivery and demo-card attempts finish in
// this call; hosted-gateway attempts stop at AWAITING_GATEWAY_CALLBACK and
// return the dialog options.
func (s *CheckoutService) Submit(ctx context.Context, cmd SubmitCommand) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Submit", trace.WithAttributes(
		attribute.String("checkout.method", string(cmd.Method)),
		attribute.Bool("checkout.guest", cmd.Identity == ""),
	))
	defer span.End()

	now := s.now().UTC()
	attempt := &models.CheckoutAttempt{
		ID:        ulid.Make().String(),
		OrderID:   "ORD-" + ulid.Make().String(),
		ClientID:  cmd.ClientID,
		UserID:    cmd.Identity,
		Method:    cmd.Method,
		State:     models.StateIdle,
		Form:      cmd.Form,
		Currency:  s.cfg.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("checkout.attempt_id", attempt.ID))
	log := logger.Get().With(
		zap.String("attempt_id", attempt.ID),
		zap.String("method", string(cmd.Method)),
	)

	if !cmd.Method.Valid() || !methodAvailable(cmd.Settings, cmd.Method) {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindValidation, "selected payment method is not available",
			fmt.Errorf("%w: %s", ErrMethodUnavailable, cmd.Method)))
	}
	if err := transition(attempt, models.StateMethodSelected, now); err != nil {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindInternal, "could not start checkout", err))
	}

	if err := s.validate.Struct(cmd.Form); err != nil {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindValidation, "please check your shipping details", err))
	}
	if cmd.Method == models.PaymentMethodHostedGateway && cmd.Identity == "" {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindUnauthorized, "please sign in to pay online", ErrLoginRequired))
	}

	cart, err := s.carts.Get(ctx, cmd.ClientID)
	if err != nil {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindInternal, "could not read your cart", err))
	}
	if len(cart.Items) == 0 {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindValidation, "your cart is empty", ErrEmptyCart))
	}

	subtotal := cart.Subtotal()
	discount := decimal.Zero
	if cmd.CouponCode != "" {
		coupon, err := s.coupons.Apply(ctx, cmd.CouponCode, subtotal, cmd.Settings.CouponsEnabled)
		if err != nil {
			return nil, s.fail(span, cmd.Method, newCheckoutError(KindInternal, "could not check your coupon", err))
		}
		if !coupon.Valid {
			return nil, s.fail(span, cmd.Method, newCheckoutError(KindValidation, coupon.Message, ErrInvalidCoupon))
		}
		discount = coupon.Discount
		attempt.CouponCode = coupon.Code
	}

	attempt.Items = cart.OrderItems()
	attempt.Pricing = ComputeTotal(subtotal, cmd.Settings.FreeShippingThreshold, cmd.Settings.ShippingCharge, discount)

	if err := transition(attempt, models.StateSubmitting, s.now().UTC()); err != nil {
		return nil, s.fail(span, cmd.Method, newCheckoutError(KindInternal, "could not start checkout", err))
	}
	log.Info("Checkout submitted",
		zap.String("order_id", attempt.OrderID),
		zap.String("total", attempt.Pricing.Total.StringFixed(2)),
	)

	if cmd.Method != models.PaymentMethodHostedGateway {
		return s.persist(ctx, span, attempt, "", "")
	}
	return s.openGatewaySession(ctx, span, attempt)
}

func (s *CheckoutService) openGatewaySession(ctx context.Context, span trace.Span, attempt *models.CheckoutAttempt) (*CheckoutResult, error) {
	log := logger.Get().With(zap.String("attempt_id", attempt.ID))

	if err := transition(attempt, models.StateCreatingRemoteOrder, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindInternal, "could not start payment", err))
	}

	if err := s.gateway.CheckOrderConfig(); err != nil {
		return s.terminate(ctx, span, attempt, newCheckoutError(KindConfiguration, "online payment is not configured", err))
	}

	minor, err := ToMinorUnits(attempt.Pricing.Total)
	if err != nil {
		return s.terminate(ctx, span, attempt, newCheckoutError(KindValidation, "order total must be greater than zero", err))
	}
	attempt.AmountMinor = minor

	result := &CheckoutResult{Attempt: attempt}
	order, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{Amount: minor, Currency: attempt.Currency}, attempt.ID)
	if err != nil || order == nil {
		log.Warn("Gateway order creation failed, continuing in direct mode", zap.Error(err))
		span.AddEvent("gateway.fallback")
		s.fallbacks.Add(ctx, 1)
		order = &models.GatewayOrder{Amount: minor, Currency: attempt.Currency, Status: "direct"}
		result.Warning = "Online payment setup is unavailable; continuing with direct payment"
	}
	attempt.GatewayOrder = order

	if err := transition(attempt, models.StateAwaitingGatewayCallback, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindInternal, "could not start payment", err))
	}
	if err := s.attempts.Save(ctx, attempt, s.attemptTTL); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindInternal, "could not start payment", err))
	}

	dialog := gateway.NewDialogOptions(s.cfg, attempt, s.basePath)
	result.Dialog = &dialog
	return result, nil
}

// CompletePayment handles the dialog's success callback: verify, then persist.
func (s *CheckoutService) CompletePayment(ctx context.Context, attemptID string, payment PaymentResult) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CompletePayment", trace.WithAttributes(
		attribute.String("checkout.attempt_id", attemptID),
	))
	defer span.End()

	attempt, err := s.awaiting(ctx, span, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(payment); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindValidation, "payment id is required", err))
	}

	if err := transition(attempt, models.StateVerifying, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindAttemptClosed, "this payment has already been handled", err))
	}
	if err := s.claim(ctx, span, attempt, "could not verify payment"); err != nil {
		return nil, err
	}

	log := logger.Get().With(zap.String("attempt_id", attempt.ID), zap.String("payment_id", payment.PaymentID))

	// The gateway order is the one this attempt created. In direct mode there
	// is none and the client's order id is ignored.
	orderID, gatewayOrderID := DemoOrderID, ""
	if attempt.GatewayOrder != nil && attempt.GatewayOrder.ID != "" {
		orderID, gatewayOrderID = attempt.GatewayOrder.ID, attempt.GatewayOrder.ID
		if payment.OrderID != "" && payment.OrderID != gatewayOrderID {
			return s.terminate(ctx, span, attempt, newCheckoutError(KindVerificationFailed,
				"could not verify payment; please contact support",
				fmt.Errorf("%w: got %s, want %s", ErrOrderMismatch, payment.OrderID, gatewayOrderID)))
		}
	} else if payment.OrderID != "" {
		log.Warn("Ignoring client order id in direct mode", zap.String("client_order_id", payment.OrderID))
	}
	signature := payment.Signature
	if signature == "" {
		signature = DemoSignature
	}

	recorded, err := s.orders.PaymentRecorded(ctx, payment.PaymentID)
	if err != nil {
		log.Warn("Could not check payment reuse, continuing", zap.Error(err))
	}
	if recorded {
		return s.terminate(ctx, span, attempt, newCheckoutError(KindVerificationFailed,
			"could not verify payment; please contact support",
			fmt.Errorf("%w: %s", ErrPaymentReused, payment.PaymentID)))
	}

	verdict, err := s.gateway.Verify(ctx, gateway.VerifyRequest{
		OrderID:   orderID,
		PaymentID: payment.PaymentID,
		Signature: signature,
	})
	switch {
	case err != nil && s.cfg.VerifyUnreachablePolicy == config.VerifyPolicyAssumeVerified:
		log.Warn("Verification unreachable, accepting payment by policy", zap.Error(err))
		span.AddEvent("verification.assumed")
		s.lenient.Add(ctx, 1)
	case err != nil:
		return s.terminate(ctx, span, attempt, newCheckoutError(KindVerificationFailed, "could not verify payment", err))
	case !verdict.Verified:
		return s.terminate(ctx, span, attempt, newCheckoutError(KindVerificationFailed,
			"could not verify payment; please contact support", ErrVerificationFailed))
	}

	return s.persist(ctx, span, attempt, payment.PaymentID, gatewayOrderID)
}

// FailPayment handles the dialog's failure callback.
func (s *CheckoutService) FailPayment(ctx context.Context, attemptID, reason string) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.FailPayment", trace.WithAttributes(
		attribute.String("checkout.attempt_id", attemptID),
	))
	defer span.End()

	attempt, err := s.awaiting(ctx, span, attemptID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "unknown error"
	}

	attempt.FailureReason = reason
	if err := transition(attempt, models.StateFailed, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindAttemptClosed, "this payment has already been handled", err))
	}
	if err := s.claim(ctx, span, attempt, "could not record the failed payment"); err != nil {
		return nil, err
	}

	s.count(ctx, attempt.Method, "failed")
	return &CheckoutResult{Attempt: attempt, Message: "payment failed: " + reason}, nil
}

// CancelPayment handles dialog dismissal. The cart is left alone so the
// shopper can submit again.
func (s *CheckoutService) CancelPayment(ctx context.Context, attemptID string) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CancelPayment", trace.WithAttributes(
		attribute.String("checkout.attempt_id", attemptID),
	))
	defer span.End()

	attempt, err := s.awaiting(ctx, span, attemptID)
	if err != nil {
		return nil, err
	}
	if err := transition(attempt, models.StateCancelled, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindAttemptClosed, "this payment has already been handled", err))
	}
	if err := s.claim(ctx, span, attempt, "could not cancel the payment"); err != nil {
		return nil, err
	}

	s.count(ctx, attempt.Method, "cancelled")
	return &CheckoutResult{Attempt: attempt, Message: "payment cancelled"}, nil
}

// GetAttempt returns a stored attempt.
func (s *CheckoutService) GetAttempt(ctx context.Context, attemptID string) (*models.CheckoutAttempt, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if errors.Is(err, repositories.ErrAttemptNotFound) {
		return nil, newCheckoutError(KindNotFound, "checkout not found", err)
	}
	if err != nil {
		return nil, newCheckoutError(KindInternal, "could not load checkout", err)
	}
	return attempt, nil
}

// awaiting loads an attempt that must still be waiting for a dialog callback.
func (s *CheckoutService) awaiting(ctx context.Context, span trace.Span, attemptID string) (*models.CheckoutAttempt, error) {
	attempt, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if attempt.State != models.StateAwaitingGatewayCallback {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindAttemptClosed, "this payment has already been handled",
			fmt.Errorf("%w: attempt %s is %s", ErrAttemptClosed, attempt.ID, attempt.State)))
	}
	return attempt, nil
}

// claim stores the attempt's move out of AWAITING_GATEWAY_CALLBACK. Only one
// callback per attempt gets past it; the others see attempt_closed.
func (s *CheckoutService) claim(ctx context.Context, span trace.Span, attempt *models.CheckoutAttempt, message string) error {
	err := s.attempts.SaveIf(ctx, attempt, models.StateAwaitingGatewayCallback, s.attemptTTL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrAttemptStateChanged):
		return s.fail(span, attempt.Method, newCheckoutError(KindAttemptClosed, "this payment has already been handled",
			fmt.Errorf("%w: %v", ErrAttemptClosed, err)))
	case errors.Is(err, repositories.ErrAttemptNotFound):
		return s.fail(span, attempt.Method, newCheckoutError(KindNotFound, "checkout not found", err))
	default:
		return s.fail(span, attempt.Method, newCheckoutError(KindInternal, message, err))
	}
}

// persist writes the order. Only a successful insert clears the cart.
func (s *CheckoutService) persist(ctx context.Context, span trace.Span, attempt *models.CheckoutAttempt, paymentID, gatewayOrderID string) (*CheckoutResult, error) {
	if err := transition(attempt, models.StatePersisting, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindInternal, "could not save your order", err))
	}

	order := s.buildOrder(attempt, paymentID, gatewayOrderID)
	if err := s.orders.Persist(ctx, attempt.ClientID, order); err != nil {
		return s.terminate(ctx, span, attempt, newCheckoutError(KindPersistenceFailed, "could not save your order", err))
	}

	if err := transition(attempt, models.StateDone, s.now().UTC()); err != nil {
		return nil, s.fail(span, attempt.Method, newCheckoutError(KindInternal, "could not complete checkout", err))
	}
	if err := s.carts.Clear(ctx, attempt.ClientID); err != nil {
		logger.Get().Warn("Failed to clear cart after checkout",
			zap.String("client_id", attempt.ClientID),
			zap.Error(err),
		)
	}
	if s.notifier != nil {
		s.notifier.OrderReceived(ctx, *order)
	}
	if err := s.attempts.Save(ctx, attempt, s.attemptTTL); err != nil {
		logger.Get().Warn("Failed to save completed attempt", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}

	logger.Get().Info("Order placed",
		zap.String("attempt_id", attempt.ID),
		zap.String("order_id", order.ID),
		zap.String("payment_method", order.PaymentMethod),
	)
	s.count(ctx, attempt.Method, "done")
	return &CheckoutResult{Attempt: attempt, Order: order, Redirect: OrdersRedirect}, nil
}

func (s *CheckoutService) buildOrder(attempt *models.CheckoutAttempt, paymentID, gatewayOrderID string) *models.Order {
	status, paymentStatus := models.OrderStatusProcessing, models.PaymentStatusPaid
	if attempt.Method == models.PaymentMethodCOD {
		status, paymentStatus = models.OrderStatusPending, models.PaymentStatusPendingCOD
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:             attempt.OrderID,
		Items:          attempt.Items,
		TotalAmount:    attempt.Pricing.Total,
		Status:         status,
		PaymentStatus:  paymentStatus,
		PaymentMethod:  string(attempt.Method),
		PaymentID:      paymentID,
		GatewayOrderID: gatewayOrderID,
		CustomerName:   attempt.Form.Name,
		CustomerEmail:  attempt.Form.Email,
		CustomerPhone:  attempt.Form.Phone,
		ShippingName:   attempt.Form.Name,
		ShippingStreet: attempt.Form.Street,
		ShippingCity:   attempt.Form.City,
		ShippingState:  attempt.Form.State,
		ShippingZip:    attempt.Form.ZipCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if attempt.UserID != "" {
		identity := attempt.UserID
		order.UserIdentifier = &identity
		if _, err := uuid.Parse(identity); err == nil {
			order.UserID = &identity
		}
	}
	return order
}

// terminate moves the attempt to FAILED, stores it and returns the failure.
func (s *CheckoutService) terminate(ctx context.Context, span trace.Span, attempt *models.CheckoutAttempt, cerr *CheckoutError) (*CheckoutResult, error) {
	attempt.FailureReason = cerr.Message
	if err := transition(attempt, models.StateFailed, s.now().UTC()); err != nil {
		logger.Get().Error("Unexpected checkout state", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
	if err := s.attempts.Save(ctx, attempt, s.attemptTTL); err != nil {
		logger.Get().Warn("Failed to save failed attempt", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
	logger.Get().Warn("Checkout failed",
		zap.String("attempt_id", attempt.ID),
		zap.String("kind", string(cerr.Kind)),
		zap.Error(cerr.Err),
	)
	return &CheckoutResult{Attempt: attempt, Message: cerr.Message}, s.fail(span, attempt.Method, cerr)
}

func (s *CheckoutService) fail(span trace.Span, method models.PaymentMethod, cerr *CheckoutError) error {
	span.RecordError(cerr)
	span.SetStatus(codes.Error, cerr.Message)
	span.SetAttributes(attribute.String("checkout.error_kind", string(cerr.Kind)))
	s.count(context.Background(), method, string(cerr.Kind))
	return cerr
}

func (s *CheckoutService) count(ctx context.Context, method models.PaymentMethod, outcome string) {
	s.attemptCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
		attribute.String("outcome", outcome),
	))
}
