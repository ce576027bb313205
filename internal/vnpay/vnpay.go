// Package vnpay builds signed VNPay checkout URLs and verifies the signed
// return callback. No network call happens here; the user's browser carries
// the redirect and the gateway calls back with the same parameter scheme.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("vnpay: invalid signature")
	ErrMalformedTxnRef  = errors.New("vnpay: malformed transaction reference")
)

// TimeLayout is VNPay's yyyyMMddHHmmss wire format.
const TimeLayout = "20060102150405"

// ResponseCodeSuccess is the gateway's "payment completed" code. Everything
// else is a failure whose code becomes the failure reason.
const ResponseCodeSuccess = "00"

const (
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
	ParamTxnRef         = "vnp_TxnRef"
	ParamResponseCode   = "vnp_ResponseCode"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamBankCode       = "vnp_BankCode"
	ParamCardType       = "vnp_CardType"
	ParamPayDate        = "vnp_PayDate"
)

type Config struct {
	TmnCode    string
	HashSecret string
	URL        string
	ReturnURL  string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// PaymentRequest carries the order-specific fields of a checkout session.
// Amount is in whole VND; the wire format wants minor units (x100).
type PaymentRequest struct {
	TxnRef     string
	Amount     int64
	OrderInfo  string
	ClientIP   string
	CreateTime time.Time
}

// BuildPaymentURL assembles the fixed parameter set, signs it, and appends
// the signature as the final query parameter.
func (c *Client) BuildPaymentURL(req PaymentRequest) string {
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Locale":     "vn",
		"vnp_CurrCode":   "VND",
		ParamTxnRef:      req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  "billpayment",
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     req.ClientIP,
		"vnp_CreateDate": req.CreateTime.Format(TimeLayout),
	}

	signData := encodeParams(params)
	signature := c.Sign(signData)

	return c.cfg.URL + "?" + signData + "&" + ParamSecureHash + "=" + signature
}

// Sign computes the hex HMAC-SHA512 of the encoded parameter string.
func (c *Client) Sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyReturn checks the callback signature and returns the verified
// parameters with the hash fields stripped. Nothing is returned on mismatch;
// callers must not touch any state with unverified input.
func (c *Client) VerifyReturn(values url.Values) (map[string]string, error) {
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}

	received := params[ParamSecureHash]
	if received == "" {
		return nil, ErrInvalidSignature
	}
	delete(params, ParamSecureHash)
	delete(params, ParamSecureHashType)

	expected := c.Sign(encodeParams(params))
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, ErrInvalidSignature
	}
	return params, nil
}

// FormatTxnRef builds the tracking reference round-tripped to the gateway.
func FormatTxnRef(t time.Time, orderID int64) string {
	return fmt.Sprintf("%s_%d", t.Format(TimeLayout), orderID)
}

// ParseTxnRef extracts the order id from a tracking reference.
func ParseTxnRef(ref string) (int64, error) {
	parts := strings.SplitN(ref, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, ErrMalformedTxnRef
	}
	orderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrMalformedTxnRef
	}
	return orderID, nil
}

// encodeParams URL-encodes keys and values, sorts by encoded key, and joins
// as key=value&... Spaces encode as '+', matching the gateway's signing rules.
func encodeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	encoded := make(map[string]string, len(params))
	for key, value := range params {
		ek := url.QueryEscape(key)
		keys = append(keys, ek)
		encoded[ek] = url.QueryEscape(value)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(encoded[key])
	}
	return b.String()
}
