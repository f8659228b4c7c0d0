package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Verifier authenticates gateway webhook deliveries. The gateway signs
// "<ts>.<body>" with a shared secret and sends "ts=<unix>,v1=<hex hmac>".
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// Options tunes signature verification.
type Options struct {
	// MaxAge bounds how old a signed timestamp may be. Zero defaults to 5m.
	MaxAge time.Duration
}

// NewVerifier builds a Verifier with the shared webhook secret.
func NewVerifier(secret string, opts Options) *Verifier {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Verifier{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Sign produces a header value for body at the current time. Used by tests
// and by the local gateway simulator.
func (v *Verifier) Sign(body []byte) string {
	ts := v.now().Unix()
	return fmt.Sprintf("ts=%d,v1=%s", ts, v.digest(ts, body))
}

// Verify checks header against body. Comparison is constant time.
func (v *Verifier) Verify(header string, body []byte) error {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return ErrInvalidSignature
		}
		switch key {
		case "ts":
			tsPart = value
		case "v1":
			sigPart = value
		}
	}
	if tsPart == "" || sigPart == "" {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.maxAge || age < -v.maxAge {
		return ErrInvalidSignature
	}

	expected := v.digest(ts, body)
	if !hmac.Equal([]byte(expected), []byte(sigPart)) {
		return ErrInvalidSignature
	}
	return nil
}

func (v *Verifier) digest(ts int64, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
