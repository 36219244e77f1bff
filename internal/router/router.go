package router

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/librarium-io/librarium/internal/auth"
	"github.com/librarium-io/librarium/internal/book"
	bookrepo "github.com/librarium-io/librarium/internal/book/repo"
	"github.com/librarium-io/librarium/internal/guard"
	historyrepo "github.com/librarium-io/librarium/internal/history/repo"
	"github.com/librarium-io/librarium/internal/lending"
	"github.com/librarium-io/librarium/internal/token"
	"github.com/librarium-io/librarium/internal/user"
	userrepo "github.com/librarium-io/librarium/internal/user/repo"
	"github.com/librarium-io/librarium/pkg/utilities"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware attaches a KSUID to each request for log correlation
// and echoes it in the X-Request-Id response header.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = utilities.NewRequestID()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs each request at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			requestID, _ := r.Context().Value(requestIDContextKey).(string)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", requestID,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes wires services and handlers onto the standard library's
// http.ServeMux and wraps the result with the shared middleware stack.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, tokens *token.Manager) http.Handler {
	userRepo := userrepo.NewUserRepo(db)
	userSvc := user.NewService(db, userRepo, nil)
	bookRepo := bookrepo.NewBookRepo(db)
	bookSvc := book.NewService(db, bookRepo)
	ledger := historyrepo.NewHistoryRepo(db)
	lendSvc := lending.NewService(db, bookRepo, ledger, logger)

	g := guard.New(tokens, userSvc, logger)
	authHandler := auth.NewHandler(userSvc, tokens, logger)
	memberHandler := user.NewHandler(userSvc, ledger, logger)
	bookHandler := book.NewHandler(bookSvc, lendSvc, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Welcome to the Library Management System API"}`))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /auth/login", authHandler.Login)

	mux.Handle("POST /books/{$}", g.Librarian(bookHandler.Create))
	mux.Handle("PUT /books/{id}", g.Librarian(bookHandler.Update))
	mux.Handle("DELETE /books/{id}", g.Librarian(bookHandler.Delete))
	mux.HandleFunc("GET /books/{$}", bookHandler.List)
	mux.Handle("GET /books/available", g.Member(bookHandler.Available))
	mux.Handle("POST /books/borrow/{id}", g.Member(bookHandler.Borrow))
	mux.Handle("POST /books/return/{id}", g.Member(bookHandler.Return))

	mux.Handle("POST /members/{$}", g.Librarian(memberHandler.Create))
	mux.Handle("PUT /members/{id}", g.Librarian(memberHandler.Update))
	mux.Handle("DELETE /members/{id}", g.Librarian(memberHandler.Delete))
	mux.Handle("GET /members/{$}", g.Librarian(memberHandler.List))
	mux.Handle("GET /members/deleted", g.Librarian(memberHandler.ListDeleted))
	mux.Handle("GET /members/history", g.Librarian(memberHandler.HistoryAll))
	mux.Handle("GET /members/me/history", g.Member(memberHandler.MyHistory))
	mux.Handle("DELETE /members/me", g.Member(memberHandler.DeleteMe))

	handler := RequestIDMiddleware()(LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux)))
	return handler
}
