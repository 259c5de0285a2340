package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"
)

// RequestIDHeader carries the request id in both directions. It is the
// header chimiddleware.RequestID reads.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLength bounds ids accepted from upstream, since they end up in
// every log line.
const maxRequestIDLength = 64

// RequestID wraps chimiddleware.RequestID.
//
// chi already stores the id in the context (chimiddleware.GetReqID) and
// reuses an id sent by an upstream proxy. The wrapper adds two things:
//
//   - FRESH IDS ARE xids. When the client sent no usable id, one is put on
//     the request header before chi looks, so chi adopts it instead of
//     generating its own "host/random-000001" form. An xid sorts by time,
//     which makes grepping logs for a window easy.
//   - THE ID IS ECHOED. Clients see it in the X-Request-Id response header
//     and can quote it when reporting a problem.
func RequestID(next http.Handler) http.Handler {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RequestIDHeader, chimiddleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
	tagged := chimiddleware.RequestID(echo)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(RequestIDHeader); id == "" || len(id) > maxRequestIDLength {
			r.Header.Set(RequestIDHeader, xid.New().String())
		}
		tagged.ServeHTTP(w, r)
	})
}
