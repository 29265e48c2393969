package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"coursebundler/internal/core/ports"
	"coursebundler/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBytes       = 64 << 10
)

type PaymentHandler struct {
	payments    ports.PaymentService
	frontendURL string
	refundDays  int
}

func NewPaymentHandler(payments ports.PaymentService, frontendURL string, refundDays int) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		refundDays:  refundDays,
	}
}

type paymentVerificationRequest struct {
	SubscriptionID string `json:"subscriptionId" form:"subscriptionId"`
}

func (h *PaymentHandler) BuySubscription(c *gin.Context) {
	sub, err := h.payments.BeginSubscription(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"subscriptionId": sub.ID,
		"clientSecret":   sub.ClientSecret,
	})
}

// PaymentVerification redirects the browser to the frontend result page.
func (h *PaymentHandler) PaymentVerification(c *gin.Context) {
	var req paymentVerificationRequest
	bindForm(c, &req)

	payment, err := h.payments.VerifyAndRecord(c.Request.Context(), currentUserID(c), strings.TrimSpace(req.SubscriptionID))
	if errors.HasCode(err, errors.ErrCodeInvalidInput) {
		c.Redirect(http.StatusFound, h.frontendURL+"/paymentfail")
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	reference := payment.PaymentRef
	if reference == "" {
		reference = string(payment.ID)
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/paymentsuccess?reference=%s", h.frontendURL, url.QueryEscape(reference)))
}

func (h *PaymentHandler) GetPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     h.payments.PublicKey(),
	})
}

func (h *PaymentHandler) CancelSubscription(c *gin.Context) {
	refunded, err := h.payments.CancelSubscription(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	if refunded {
		ok(c, http.StatusOK, fmt.Sprintf("Subscription cancelled, You will receive full refund within %d days.", h.refundDays))
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("Subscription cancelled, Now refund initiated as subscription was cancelled after %d days.", h.refundDays))
}

func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.Error(errors.NewInvalidInputError("Unable to read request body"))
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
