package licensing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

const (
	HeaderInstanceID = "X-Instance-ID"
	HeaderTimestamp  = "X-Timestamp"
	HeaderSignature  = "X-Signature"
)

// Sign firma una petición: hex(HMAC-SHA256(secret, ts \n METHOD \n path \n hex(sha256(body)))).
// path es el path escapado de la URL, sin query string.
func Sign(secret string, ts int64, method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	canonical := strings.Join([]string{
		strconv.FormatInt(ts, 10),
		strings.ToUpper(method),
		path,
		hex.EncodeToString(bodyHash[:]),
	}, "\n")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify comprueba la firma de una petición recibida (usado por los dobles de prueba
// y por herramientas de diagnóstico).
func Verify(secret string, r *http.Request, body []byte) bool {
	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return false
	}
	want := Sign(secret, ts, r.Method, r.URL.EscapedPath(), body)
	return hmac.Equal([]byte(want), []byte(r.Header.Get(HeaderSignature)))
}
