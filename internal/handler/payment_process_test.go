package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/cinegate/theatre-booking/internal/repository"
)

func newPaymentHandler(t *testing.T) (*PaymentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPaymentHandler(repository.NewOrderRepo(db), nil), mock
}

func postPayment(t *testing.T, h *PaymentHandler, orderID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/"+orderID+"/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(orderID)
	if err := h.ProcessPayment(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func expectPendingOrder(mock sqlmock.Sqlmock, orderID uint64) {
	expiry := time.Now().UTC().Add(5 * time.Minute)
	mock.ExpectQuery(`SELECT id, user_id, total_price, payment_method, status`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "total_price", "payment_method", "status",
			"reservation_expires_at", "paid_at", "discount_id", "ordered_at",
		}).AddRow(orderID, 42, 25.5, "card", "pending", expiry, nil, nil, time.Now().UTC()))
}

func TestProcessPaymentSuccess(t *testing.T) {
	t.Parallel()
	h, mock := newPaymentHandler(t)

	expectPendingOrder(mock, 7)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET status = \?, paid_at = UTC_TIMESTAMP\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets SET reserved_until = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postPayment(t, h, "7", `{"payment_method":"card","success":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeResult(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcessPaymentFailureIsBusinessFailure(t *testing.T) {
	t.Parallel()
	h, mock := newPaymentHandler(t)

	// The order settles as failed and its seats are released, but the
	// outcome reported to the caller is a 400 with success=false.
	expectPendingOrder(mock, 7)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET status = \?, reservation_expires_at = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets SET is_reserved = 0, active = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postPayment(t, h, "7", `{"payment_method":"card","success":false}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeResult(t, rec)
	if body["success"] != false {
		t.Fatalf("success = %v, want false", body["success"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcessPaymentRequiresPaymentMethod(t *testing.T) {
	t.Parallel()
	h, mock := newPaymentHandler(t)

	// Rejected before any database work.
	for _, body := range []string{`{"success":true}`, `{"payment_method":"  ","success":true}`} {
		rec := postPayment(t, h, "7", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d for body %s, want 400", rec.Code, body)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}

func TestProcessPaymentNotPendingOrder(t *testing.T) {
	t.Parallel()
	h, mock := newPaymentHandler(t)

	mock.ExpectQuery(`SELECT id, user_id, total_price, payment_method, status`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "total_price", "payment_method", "status",
			"reservation_expires_at", "paid_at", "discount_id", "ordered_at",
		}).AddRow(7, 42, 25.5, "card", "completed", nil, time.Now().UTC(), nil, time.Now().UTC()))

	rec := postPayment(t, h, "7", `{"payment_method":"card","success":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeResult(t, rec)
	if body["success"] != false {
		t.Fatalf("success = %v, want false", body["success"])
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "completed") {
		t.Fatalf("message %q should name the current status", msg)
	}
}
