package handlers

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
)

type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix
}

// NewRouter wires the handlers to their routes and wraps them in the
// cross-cutting middleware, outermost first: request log, fault barrier,
// CORS, rate limit, timeout.
func NewRouter(store TodoStore, limiter Limiter, opts RouterOptions) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	router.HandleFunc("/", Index).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = router.NotFoundHandler
	api.MethodNotAllowedHandler = router.MethodNotAllowedHandler

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		Health(w, r, store)
	}).Methods(http.MethodGet)
	api.HandleFunc("/todos", func(w http.ResponseWriter, r *http.Request) {
		ListTodos(w, r, store)
	}).Methods(http.MethodGet)
	api.HandleFunc("/todos", func(w http.ResponseWriter, r *http.Request) {
		CreateTodo(w, r, store)
	}).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		GetTodo(w, r, store)
	}).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		UpdateTodo(w, r, store)
	}).Methods(http.MethodPut)
	api.HandleFunc("/todos/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		DeleteTodo(w, r, store)
	}).Methods(http.MethodDelete)

	var h http.Handler = router
	h = Timeout(opts.RequestTimeout)(h)
	h = RateLimit(limiter, opts.TrustedProxies)(h)
	h = APICORS(opts.CORSOrigins)(h)
	h = Recoverer(h)
	h = RequestLogger(opts.TrustedProxies)(h)
	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, MsgNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllow)
}
