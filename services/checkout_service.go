package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SnapGateway creates hosted checkout pages
type SnapGateway interface {
	CreateTransaction(req *snap.Request) (*snap.Response, error)
}

type midtransGateway struct {
	client snap.Client
}

// NewSnapGateway returns a Midtrans Snap client. environment is "production"
// or anything else for the sandbox.
func NewSnapGateway(serverKey, environment string) SnapGateway {
	env := midtrans.Sandbox
	if strings.EqualFold(environment, "production") {
		env = midtrans.Production
	}
	g := &midtransGateway{}
	g.client.New(serverKey, env)
	return g
}

func (g *midtransGateway) CreateTransaction(req *snap.Request) (*snap.Response, error) {
	resp, merr := g.client.CreateTransaction(req)
	if merr != nil {
		return nil, merr
	}
	return resp, nil
}

// CheckoutInput starts an online payment. A blank amount pays the balance.
type CheckoutInput struct {
	Amount fees.RawAmount `json:"amount"`
}

// MidtransNotification is the HTTP notification the gateway posts
type MidtransNotification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	SettlementTime    string `json:"settlement_time"`
}

// CheckoutService runs student payments through Midtrans Snap. The payment is
// recorded only once the gateway reports the money as captured.
type CheckoutService struct {
	db        *gorm.DB
	gateway   SnapGateway
	serverKey string
	payments  *PaymentService
}

// NewCheckoutService creates a new checkout service. gateway may be nil when
// no server key is configured.
func NewCheckoutService(db *gorm.DB, gateway SnapGateway, serverKey string, payments *PaymentService) *CheckoutService {
	return &CheckoutService{db: db, gateway: gateway, serverKey: serverKey, payments: payments}
}

// IsConfigured reports whether online payments are available
func (s *CheckoutService) IsConfigured() bool {
	return s != nil && s.gateway != nil && s.serverKey != ""
}

// Start opens a checkout for one of the student's fees
func (s *CheckoutService) Start(ctx context.Context, user *model.User, student *model.Student, feeID uint, in CheckoutInput) (*model.CheckoutSession, error) {
	if !s.IsConfigured() {
		return nil, ErrCheckoutNotConfigured
	}

	var fee model.StudentFee
	if err := s.db.WithContext(ctx).First(&fee, feeID).Error; err != nil {
		return nil, notFound(err, ErrAssignmentNotFound)
	}
	if fee.StudentID != student.ID {
		return nil, ErrAssignmentNotFound
	}

	amount := fee.Balance()
	if !in.Amount.IsBlank() {
		parsed, err := fees.ParsePaymentAmount(in.Amount)
		if err != nil {
			return nil, err
		}
		amount = parsed
	}
	if _, err := fees.ApplyPayment(fee.Ledger(), amount); err != nil {
		return nil, err
	}
	if !amount.Equal(amount.Truncate(0)) {
		return nil, fees.NewError(fees.KindInvalidAmount, "amount", "Online payments must be a whole amount")
	}

	session := &model.CheckoutSession{
		OrderID:      fmt.Sprintf("FEE-%d-%s", fee.ID, strings.ToUpper(uuid.NewString()[:8])),
		StudentFeeID: fee.ID,
		StudentID:    student.ID,
		UserID:       user.ID,
		Amount:       amount,
		Status:       model.CheckoutStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	gross := amount.IntPart()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  session.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: student.FirstName,
			LName: student.LastName,
			Email: student.Email,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:       fmt.Sprintf("FEE-%d", fee.ID),
			Name:     fmt.Sprintf("%s fee %s", fee.Course, fee.AcademicYear),
			Price:    gross,
			Qty:      1,
			Category: "tuition",
		}},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}

	resp, err := s.gateway.CreateTransaction(req)
	if err != nil {
		s.db.WithContext(ctx).Model(session).Updates(map[string]interface{}{
			"status":         model.CheckoutStatusFailed,
			"gateway_status": "error",
		})
		return nil, fmt.Errorf("failed to create gateway transaction: %w", err)
	}

	session.SnapToken = resp.Token
	session.RedirectURL = resp.RedirectURL
	if err := s.db.WithContext(ctx).Model(session).Updates(map[string]interface{}{
		"snap_token":   resp.Token,
		"redirect_url": resp.RedirectURL,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to save checkout token: %w", err)
	}
	return session, nil
}

// Signature computes the notification signature for the configured key
func (s *CheckoutService) Signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + s.serverKey))
	return hex.EncodeToString(sum[:])
}

func (s *CheckoutService) verify(n *MidtransNotification) bool {
	expected := s.Signature(n.OrderID, n.StatusCode, n.GrossAmount)
	got := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// gatewayMethod maps the gateway payment type onto a payment method
func gatewayMethod(paymentType string) fees.Method {
	switch strings.ToLower(paymentType) {
	case "credit_card":
		return fees.MethodCard
	case "bank_transfer", "echannel", "permata", "bca_klikpay", "cimb_clicks", "danamon_online":
		return fees.MethodNetBanking
	default:
		return fees.MethodOther
	}
}

// HandleNotification applies a gateway notification. Repeated notifications
// for an order that is already settled change nothing.
func (s *CheckoutService) HandleNotification(ctx context.Context, n MidtransNotification, today time.Time) (*model.CheckoutSession, error) {
	if !s.IsConfigured() {
		return nil, ErrCheckoutNotConfigured
	}
	if !s.verify(&n) {
		return nil, ErrInvalidSignature
	}

	var session model.CheckoutSession
	if err := s.db.WithContext(ctx).Where("order_id = ?", n.OrderID).First(&session).Error; err != nil {
		return nil, notFound(err, ErrCheckoutNotFound)
	}

	gross, err := decimal.NewFromString(strings.TrimSpace(n.GrossAmount))
	if err != nil || !gross.Equal(session.Amount) {
		return nil, ErrCheckoutMismatch
	}

	payload, _ := json.Marshal(n)
	session.LastPayload = datatypes.JSON(payload)
	session.GatewayStatus = n.TransactionStatus
	if n.TransactionID != "" {
		session.GatewayTransactionID = n.TransactionID
	}

	if session.Status != model.CheckoutStatusSettled {
		switch strings.ToLower(n.TransactionStatus) {
		case "capture":
			if strings.EqualFold(n.FraudStatus, "accept") || n.FraudStatus == "" {
				if err := s.settle(ctx, &session, &n, today); err != nil {
					return nil, err
				}
			}
		case "settlement":
			if err := s.settle(ctx, &session, &n, today); err != nil {
				return nil, err
			}
		case "deny", "cancel", "failure":
			session.Status = model.CheckoutStatusFailed
		case "expire":
			session.Status = model.CheckoutStatusExpired
		}
	}

	if err := s.db.WithContext(ctx).Model(&session).Updates(map[string]interface{}{
		"status":                 session.Status,
		"gateway_status":         session.GatewayStatus,
		"gateway_transaction_id": session.GatewayTransactionID,
		"payment_id":             session.PaymentID,
		"last_payload":           session.LastPayload,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update checkout session: %w", err)
	}
	return &session, nil
}

// settle records the payment for a captured checkout
func (s *CheckoutService) settle(ctx context.Context, session *model.CheckoutSession, n *MidtransNotification, today time.Time) error {
	ref := n.TransactionID
	if len(ref) > 50 {
		ref = ref[:50]
	}
	payer := session.UserID

	payment, _, err := s.payments.Record(ctx, PaymentInput{
		StudentFeeID: session.StudentFeeID,
		Amount:       fees.RawAmount(session.Amount.StringFixed(fees.CurrencyScale)),
		Method:       string(gatewayMethod(n.PaymentType)),
		ReferenceNo:  ref,
		Notes:        "Online payment via " + n.PaymentType,
	}, PaymentOptions{
		PayerUserID:     &payer,
		StudentID:       session.StudentID,
		CheckoutOrderID: session.OrderID,
	}, today)

	switch {
	case err == nil:
		session.PaymentID = &payment.ID
		session.Status = model.CheckoutStatusSettled
		return nil
	case errors.Is(err, ErrConcurrentUpdate):
		var existing model.Payment
		if lookupErr := s.db.WithContext(ctx).Where("checkout_order_id = ?", session.OrderID).First(&existing).Error; lookupErr == nil {
			session.PaymentID = &existing.ID
			session.Status = model.CheckoutStatusSettled
			return nil
		}
		return err
	case fees.IsKind(err, fees.KindExceedsBalance), errors.Is(err, ErrAssignmentNotFound):
		// The fee changed after checkout started; the money is settled with
		// the gateway but cannot be applied automatically.
		log.Printf("Checkout %s could not be applied: %v", session.OrderID, err)
		session.Status = model.CheckoutStatusFailed
		return nil
	default:
		return err
	}
}

// GetForStudent loads a checkout owned by the student
func (s *CheckoutService) GetForStudent(ctx context.Context, orderID string, studentID uint) (*model.CheckoutSession, error) {
	var session model.CheckoutSession
	if err := s.db.WithContext(ctx).
		Where("order_id = ? AND student_id = ?", orderID, studentID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to fetch checkout session: %w", err)
	}
	return &session, nil
}

// ExpireStale marks pending checkouts older than maxAge as expired
func (s *CheckoutService) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("status = ? AND created_at < ?", model.CheckoutStatusPending, time.Now().Add(-maxAge).UTC()).
		Update("status", model.CheckoutStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire checkout sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
