package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/board-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/board-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Handler        *Handler
	Auth           httpmw.TokenAuthenticator
	Admins         httpmw.AdminChecker
	WS             http.HandlerFunc
	Ready          func() bool
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(httputil.MiddlewareRequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareLogging)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{httputil.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint: токен в query, своя проверка
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil && !d.Ready() {
			httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	h := d.Handler
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(d.Auth))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Get("/room/{slug}", h.GetRoomBySlug)

		pr.Route("/chats/{roomId}", func(cr chi.Router) {
			cr.Get("/", h.GetChats)
			cr.Post("/", h.PostChat)
			cr.With(httpmw.RequireRoomAdmin(d.Admins)).Delete("/", h.ClearChats)
		})

		pr.Route("/canvas/{roomId}", func(cr chi.Router) {
			cr.Get("/", h.GetCanvasOps)
			cr.Post("/", h.PostCanvasOp)
			cr.Get("/state", h.GetCanvasState)
			cr.With(httpmw.RequireRoomAdmin(d.Admins)).Delete("/", h.ClearCanvas)
			cr.With(httpmw.RequireRoomAdmin(d.Admins)).Delete("/{opId}", h.DeleteCanvasOp)
		})
	})

	return r
}
