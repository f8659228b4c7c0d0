package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiendita/pagoflow/internal/pkg/signature"
)

// SignatureHeader carries the gateway webhook signature.
const SignatureHeader = "X-Gateway-Signature"

// VerifySignature authenticates webhook deliveries before any processing.
// The raw body is restored for downstream handlers since the signature
// covers the exact bytes sent.
func VerifySignature(verifier *signature.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := verifier.Verify(c.GetHeader(SignatureHeader), body); err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}
